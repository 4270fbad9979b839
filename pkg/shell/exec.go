package shell

import (
	"bytes"
	"context"
	"errors"
	"os/exec"

	"github.com/rcarmo/go-mkexpand/pkg/sandbox"
)

// Exec runs commands as child processes. On cancellation the child's whole
// process group is killed.
type Exec struct{}

// Capture runs cmd and waits for it to exit.
func (Exec) Capture(ctx context.Context, c Command) (Result, error) {
	if err := sandbox.CheckExec(c.Shell); err != nil {
		return Result{}, err
	}
	args := append(append([]string(nil), c.Flags...), c.Line)
	cmd := exec.CommandContext(ctx, c.Shell, args...) // #nosec G204 -- make runs user-provided shell commands
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = c.Stderr
	cmd.Stdin = c.Stdin
	cmd.Env = c.Env
	cmd.Dir = c.Dir
	setProcessGroup(cmd)

	tracer().Debugf("exec %s %q", c.Shell, args)
	err := cmd.Run()
	if err == nil {
		return Result{Output: out.Bytes()}, nil
	}
	if ctx.Err() != nil {
		return Result{Output: out.Bytes()}, ctx.Err()
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return Result{Output: out.Bytes(), Status: exitStatus(exitErr)}, nil
	}
	return Result{}, err
}
