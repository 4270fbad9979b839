package expand

import (
	"bytes"
	"errors"
	"io/fs"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rcarmo/go-mkexpand/pkg/shell"
	"github.com/rcarmo/go-mkexpand/pkg/vars"
)

func funcShell(e *Engine, out *bytes.Buffer, args []string, _ string) error {
	s, err := e.RunShell(args[0], true)
	if err != nil {
		return err
	}
	out.WriteString(s)
	return nil
}

// RunShell runs command with $(SHELL) $(.SHELLFLAGS) and returns its
// standard output with newlines folded to spaces. trim selects whether
// all trailing newlines are dropped or only the last one. The exit status
// is recorded in .SHELLSTATUS. A command that cannot be started is
// reported as a warning and yields no output.
func (e *Engine) RunShell(command string, trim bool) (string, error) {
	sh, err := e.setting("SHELL", shell.DefaultShell)
	if err != nil {
		return "", err
	}
	flags, err := e.setting(".SHELLFLAGS", shell.DefaultFlags)
	if err != nil {
		return "", err
	}

	res, err := e.shell.Capture(e.ctx, shell.Command{
		Shell:  sh,
		Flags:  strings.Fields(flags),
		Line:   command,
		Env:    e.environ(),
		Dir:    e.startDir,
		Stderr: e.Stdio.Err,
	})
	if err != nil {
		if e.ctx.Err() != nil {
			return "", err
		}
		e.Warnf("%s: %v", sh, err)
		return "", nil
	}

	e.Vars.DefineGlobal(".SHELLSTATUS", strconv.Itoa(res.Status), vars.Override, vars.Simple)
	if res.Status == shell.StatusNotExecutable {
		tracer().Infof("%s: command not executable: %q", e.loc.String(), command)
		_, _ = e.Stdio.Err.Write(res.Output)
		return "", nil
	}
	return string(shell.FoldNewlines(res.Output, trim)), nil
}

// setting returns the stripped expansion of a configuration variable, or
// def when it is unset or blank.
func (e *Engine) setting(name, def string) (string, error) {
	v := e.Vars.Lookup(name)
	if v == nil {
		return def, nil
	}
	s, err := e.valueOf(v)
	if err != nil {
		return "", err
	}
	if s = stripSpace(s); s == "" {
		return def, nil
	}
	return s, nil
}

func funcFile(e *Engine, out *bytes.Buffer, args []string, _ string) error {
	fn, ok := strings.CutPrefix(args[0], ">")
	if !ok {
		return e.errorf(KindFileIO, "Invalid file operation: %s", args[0])
	}
	fn, appendTo := strings.CutPrefix(fn, ">")
	fn = stripSpace(fn)
	if fn == "" {
		return e.errorf(KindFileIO, "file: missing filename")
	}

	path := fn
	if !filepath.IsAbs(path) && e.startDir != "" {
		path = filepath.Join(e.startDir, path)
	}
	w, err := e.fs.OpenWriter(path, appendTo)
	if err != nil {
		return e.errorf(KindFileIO, "open: %s: %s", fn, reason(err))
	}
	if len(args) > 1 {
		text := args[1]
		if !strings.HasSuffix(text, "\n") {
			text += "\n"
		}
		if _, err := w.Write([]byte(text)); err != nil {
			w.Close()
			return e.errorf(KindFileIO, "write: %s: %s", fn, reason(err))
		}
	}
	if err := w.Close(); err != nil {
		return e.errorf(KindFileIO, "write: %s: %s", fn, reason(err))
	}
	return nil
}

// reason strips the operation and path from err, leaving the cause.
func reason(err error) string {
	var pe *fs.PathError
	if errors.As(err, &pe) {
		return pe.Err.Error()
	}
	return err.Error()
}
