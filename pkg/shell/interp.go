package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"

	"github.com/rcarmo/go-mkexpand/pkg/sandbox"
)

// Interp runs commands in an embedded POSIX shell interpreter instead of
// spawning SHELL. Flags are ignored; Shell is only checked against the
// sandbox. External programs named by the script are still executed.
type Interp struct{}

// Capture parses and runs c.Line. A syntax error is reported on c.Stderr
// with status 2, the way sh -c does. While the sandbox is enabled, the
// programs the script runs and the files it redirects to go through it.
func (Interp) Capture(ctx context.Context, c Command) (Result, error) {
	if err := sandbox.CheckExec(c.Shell); err != nil {
		return Result{}, err
	}
	stderr := c.Stderr
	if stderr == nil {
		stderr = io.Discard
	}
	file, err := syntax.NewParser(syntax.Variant(syntax.LangPOSIX)).Parse(strings.NewReader(c.Line), "")
	if err != nil {
		fmt.Fprintf(stderr, "sh: %v\n", err)
		return Result{Status: 2}, nil
	}

	stdin := c.Stdin
	if stdin == nil {
		stdin = strings.NewReader("")
	}
	var out bytes.Buffer
	opts := []interp.RunnerOption{
		interp.StdIO(stdin, &out, stderr),
		interp.Env(expand.ListEnviron(c.Env...)),
	}
	if c.Dir != "" {
		opts = append(opts, interp.Dir(c.Dir))
	}
	if sandbox.IsEnabled() {
		opts = append(opts, interp.ExecHandlers(sandboxExec), interp.OpenHandler(sandboxOpen))
	}
	runner, err := interp.New(opts...)
	if err != nil {
		return Result{}, err
	}

	tracer().Debugf("interp %q", c.Line)
	err = runner.Run(ctx, file)
	var status interp.ExitStatus
	switch {
	case err == nil:
		return Result{Output: out.Bytes()}, nil
	case errors.As(err, &status):
		return Result{Output: out.Bytes(), Status: int(status)}, nil
	}
	return Result{Output: out.Bytes()}, err
}

// statusDenied is what sh reports for a file it may not execute.
const statusDenied = 126

// sandboxExec refuses to run programs the sandbox does not allow. A
// refusal fails the command with status 126, as for a non-executable file.
func sandboxExec(next interp.ExecHandlerFunc) interp.ExecHandlerFunc {
	return func(ctx context.Context, args []string) error {
		hc := interp.HandlerCtx(ctx)
		path, err := interp.LookPathDir(hc.Dir, hc.Env, args[0])
		if err != nil {
			return next(ctx, args)
		}
		if err := sandbox.CheckExec(path); err != nil {
			fmt.Fprintf(hc.Stderr, "sh: %s: %v\n", args[0], err)
			return interp.NewExitStatus(statusDenied)
		}
		return next(ctx, args)
	}
}

// sandboxOpen opens redirection targets through the sandbox. A refusal is
// a *os.PathError so that the shell reports it and carries on.
func sandboxOpen(ctx context.Context, path string, flag int, perm os.FileMode) (io.ReadWriteCloser, error) {
	if path == os.DevNull {
		return os.OpenFile(path, flag, perm)
	}
	if path != "" && !filepath.IsAbs(path) {
		path = filepath.Join(interp.HandlerCtx(ctx).Dir, path)
	}
	f, err := sandbox.OpenFile(path, flag, perm)
	if err != nil {
		var pe *os.PathError
		if errors.As(err, &pe) {
			return nil, pe
		}
		return nil, &os.PathError{Op: "open", Path: path, Err: err}
	}
	return f, nil
}
