package expand

import (
	"bytes"
	"strings"
)

func funcNotdirSuffix(e *Engine, out *bytes.Buffer, args []string, name string) error {
	isSuffix := name == "suffix"
	doneany := false
	for _, w := range Words(args[0]) {
		p := len(w) - 1
		for p >= 0 && (!isSuffix || w[p] != '.') {
			if w[p] == '/' {
				break
			}
			p--
		}
		switch {
		case p >= 0 && !isSuffix:
			out.WriteString(w[p+1:])
		case p >= 0:
			if w[p] != '.' {
				continue
			}
			out.WriteString(w[p:])
		case !isSuffix:
			out.WriteString(w)
		default:
			continue
		}
		out.WriteByte(' ')
		doneany = true
	}
	killLastSpace(out, doneany)
	return nil
}

func funcBasenameDir(e *Engine, out *bytes.Buffer, args []string, name string) error {
	isBasename := name == "basename"
	doneany := false
	for _, w := range Words(args[0]) {
		p := len(w) - 1
		for p >= 0 && (!isBasename || w[p] != '.') {
			if w[p] == '/' {
				break
			}
			p--
		}
		switch {
		case p >= 0 && !isBasename:
			out.WriteString(w[:p+1])
		case p >= 0 && w[p] == '.':
			out.WriteString(w[:p])
		case !isBasename:
			out.WriteString("./")
		default:
			out.WriteString(w)
		}
		out.WriteByte(' ')
		doneany = true
	}
	killLastSpace(out, doneany)
	return nil
}

// Abspath makes name absolute against dir without touching the
// filesystem: "." components are dropped, ".." backs up one component
// (never above the root), and repeated or trailing slashes are removed.
func Abspath(dir, name string) string {
	if name == "" {
		return ""
	}
	const rootLen = 1
	var b []byte
	if name[0] != '/' {
		if dir == "" || dir[0] != '/' {
			return ""
		}
		b = append(b, dir...)
	} else {
		b = append(b, '/')
		name = name[rootLen:]
	}

	for len(name) > 0 {
		for len(name) > 0 && name[0] == '/' {
			name = name[1:]
		}
		end := strings.IndexByte(name, '/')
		if end < 0 {
			end = len(name)
		}
		comp := name[:end]
		name = name[end:]
		switch comp {
		case "":
		case ".":
		case "..":
			if len(b) > rootLen {
				b = b[:len(b)-1]
				for b[len(b)-1] != '/' {
					b = b[:len(b)-1]
				}
			}
		default:
			if b[len(b)-1] != '/' {
				b = append(b, '/')
			}
			b = append(b, comp...)
		}
	}
	if len(b) > rootLen && b[len(b)-1] == '/' {
		b = b[:len(b)-1]
	}
	return string(b)
}

func funcAbspath(e *Engine, out *bytes.Buffer, args []string, _ string) error {
	doneany := false
	for _, w := range Words(args[0]) {
		if p := Abspath(e.startDir, w); p != "" {
			out.WriteString(p)
			out.WriteByte(' ')
			doneany = true
		}
	}
	killLastSpace(out, doneany)
	return nil
}

func funcRealpath(e *Engine, out *bytes.Buffer, args []string, _ string) error {
	doneany := false
	for _, w := range Words(args[0]) {
		p, err := e.fs.Realpath(Abspath(e.startDir, w))
		if err != nil {
			tracer().Debugf("realpath %q: %v", w, err)
			continue
		}
		out.WriteString(p)
		out.WriteByte(' ')
		doneany = true
	}
	killLastSpace(out, doneany)
	return nil
}

func funcWildcard(e *Engine, out *bytes.Buffer, args []string, _ string) error {
	doneany := false
	for _, w := range Words(args[0]) {
		// Relative patterns are matched under the start directory and
		// reported relative to it.
		matches, err := e.fs.Glob(e.startDir, w)
		if err != nil {
			tracer().Debugf("wildcard %q: %v", w, err)
			continue
		}
		for _, m := range matches {
			out.WriteString(m)
			out.WriteByte(' ')
			doneany = true
		}
	}
	killLastSpace(out, doneany)
	return nil
}
