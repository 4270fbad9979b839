// Package shell runs the commands behind $(shell ...) and != assignments
// and captures their standard output.
package shell

import (
	"context"
	"io"

	"github.com/npillmayer/schuko/tracing"
)

func tracer() tracing.Trace {
	return tracing.Select("mkexpand.shell")
}

// Defaults used when SHELL or .SHELLFLAGS are empty.
const (
	DefaultShell = "/bin/sh"
	DefaultFlags = "-c"
)

// StatusNotExecutable is the exit status a shell reports when the command
// could not be run at all.
const StatusNotExecutable = 127

// Command is one shell invocation: Shell Flags... Line.
type Command struct {
	Shell  string
	Flags  []string
	Line   string
	Env    []string
	Dir    string
	Stdin  io.Reader
	Stderr io.Writer
}

// Result is the captured standard output and the exit status.
type Result struct {
	Output []byte
	Status int
}

// Runner spawns commands. A returned error means the command could not be
// started or waited for; a non-zero Status is not an error.
type Runner interface {
	Capture(ctx context.Context, cmd Command) (Result, error)
}

// FoldNewlines turns each newline of b into a space, treating "\r\n" as
// a single newline. With trim every trailing newline-derived space is
// removed; otherwise exactly one trailing character is dropped when b
// ends in at least one newline. b is rewritten in place.
func FoldNewlines(b []byte, trim bool) []byte {
	dst := 0
	lastNonNL := -1
	for i := 0; i < len(b); i++ {
		if b[i] == '\r' && i+1 < len(b) && b[i+1] == '\n' {
			continue
		}
		if b[i] == '\n' {
			b[dst] = ' '
		} else {
			b[dst] = b[i]
			lastNonNL = dst
		}
		dst++
	}
	if !trim && lastNonNL < dst-2 {
		lastNonNL = dst - 2
	}
	return b[:lastNonNL+1]
}
