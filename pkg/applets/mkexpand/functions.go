package mkexpand

import (
	"os"
	"strings"

	"golang.org/x/term"
)

// listFunctions prints the registered function names, in columns when
// stdout is a terminal and one per line otherwise.
func (s *session) listFunctions() {
	names := s.e.Registry().Names()
	width := terminalWidth(s.stdio.Out)
	if width <= 0 {
		for _, name := range names {
			s.stdio.Println(name)
		}
		return
	}
	for _, row := range columns(names, width) {
		s.stdio.Println(row)
	}
}

func terminalWidth(w any) int {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return 0
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return 0
	}
	return width
}

// columns lays names out column-major in rows no wider than width.
func columns(names []string, width int) []string {
	if len(names) == 0 {
		return nil
	}
	cell := 0
	for _, name := range names {
		cell = max(cell, len(name))
	}
	cell += 2
	cols := max(width/cell, 1)
	rows := (len(names) + cols - 1) / cols

	out := make([]string, 0, rows)
	for r := 0; r < rows; r++ {
		var b strings.Builder
		for c := 0; c < cols; c++ {
			i := c*rows + r
			if i >= len(names) {
				break
			}
			if i+rows < len(names) {
				b.WriteString(names[i] + strings.Repeat(" ", cell-len(names[i])))
			} else {
				b.WriteString(names[i])
			}
		}
		out = append(out, strings.TrimRight(b.String(), " "))
	}
	return out
}
