package mkexpand

import (
	"bufio"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/peterh/liner"

	"github.com/rcarmo/go-mkexpand/pkg/expand"
	"github.com/rcarmo/go-mkexpand/pkg/mkfile"
)

const (
	prompt     = "mkexpand> "
	contPrompt = "......... "
	replFile   = "<stdin>"
)

// prompter reads one line per call and returns io.EOF at end of input.
type prompter interface {
	Prompt(p string) (string, error)
	AppendHistory(line string)
	Close() error
}

// lineReader serves a non-terminal stdin, without prompts or history.
type lineReader struct {
	sc *bufio.Scanner
}

func (l *lineReader) Prompt(string) (string, error) {
	if l.sc.Scan() {
		return l.sc.Text(), nil
	}
	if err := l.sc.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

func (l *lineReader) AppendHistory(string) {}

func (l *lineReader) Close() error { return nil }

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}

func newPrompter(in io.Reader) prompter {
	if isTerminal(in) && liner.TerminalSupported() {
		l := liner.NewLiner()
		l.SetCtrlCAborts(true)
		return l
	}
	return &lineReader{sc: bufio.NewScanner(in)}
}

// repl evaluates makefile statements and expands every other line,
// printing non-empty results. define blocks and conditionals are
// gathered until they close. Errors are reported and the loop goes on.
func (s *session) repl(p prompter) error {
	defer p.Close()

	var block []string
	depth, line := 0, 0
	for {
		ps := prompt
		if len(block) > 0 {
			ps = contPrompt
		}
		text, err := p.Prompt(ps)
		if errors.Is(err, liner.ErrPromptAborted) {
			block, depth = nil, 0
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		line++
		if strings.TrimSpace(text) != "" {
			p.AppendHistory(text)
		}

		block = append(block, text)
		depth += mkfile.Nesting(text)
		if depth > 0 || strings.HasSuffix(text, "\\") {
			continue
		}
		first := line - len(block) + 1
		chunk := strings.Join(block, "\n")
		block, depth = nil, 0

		if err := s.replLine(chunk, first); err != nil {
			s.report(err)
		}
	}
	if len(block) > 0 {
		if err := s.replLine(strings.Join(block, "\n"), line-len(block)+1); err != nil {
			s.report(err)
		}
	}
	return nil
}

func (s *session) replLine(chunk string, line int) error {
	restore := s.e.At(expand.Location{File: replFile, Line: line})
	defer restore()

	if mkfile.IsStatement(chunk) {
		return s.r.Eval(chunk)
	}
	out, err := s.e.Expand(chunk)
	if err != nil {
		return err
	}
	if out != "" {
		s.stdio.Println(out)
	}
	return nil
}

func (s *session) report(err error) {
	var ee *expand.Error
	if errors.As(err, &ee) && !ee.Loc.IsZero() {
		s.stdio.Errorf("%s: *** %s.\n", ee.Loc, ee.Msg)
		return
	}
	s.stdio.Errorf("%s: *** %s.\n", applet, err)
}
