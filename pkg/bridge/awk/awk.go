// Package awk adds an awk function to the expansion engine. Programs run
// in-process with goawk and reach back into make through gmk_expand(text)
// and gmk_eval(text). Standard output becomes the expansion, with
// newlines folded as for $(shell).
package awk

import (
	"bytes"
	"strings"

	"github.com/benhoyt/goawk/interp"
	"github.com/benhoyt/goawk/parser"
	"github.com/npillmayer/schuko/tracing"

	"github.com/rcarmo/go-mkexpand/pkg/expand"
	"github.com/rcarmo/go-mkexpand/pkg/sandbox"
	"github.com/rcarmo/go-mkexpand/pkg/shell"
)

// Feature is the .FEATURES word announcing the bridge.
const Feature = "awk"

func tracer() tracing.Trace {
	return tracing.Select("mkexpand.engine")
}

// Register adds $(awk PROGRAM) to b.
func Register(b *expand.Builder) error {
	return b.Register("awk", 0, 1, true, funcAwk)
}

func funcAwk(e *expand.Engine, out *bytes.Buffer, args []string, _ string) error {
	program := args[0]
	if strings.TrimSpace(program) == "" {
		return nil
	}

	// The first failure inside a callback stops the run once the program
	// returns.
	var callbackErr error
	funcs := map[string]interface{}{
		"gmk_expand": func(text string) string {
			s, err := e.Expand(text)
			if err != nil && callbackErr == nil {
				callbackErr = err
			}
			return s
		},
		"gmk_eval": func(text string) string {
			if err := e.Eval(text); err != nil && callbackErr == nil {
				callbackErr = err
			}
			return ""
		},
	}

	prog, err := parser.ParseProgram([]byte(program), &parser.ParserConfig{Funcs: funcs})
	if err != nil {
		return e.Errorf(expand.KindScript, "awk: %v", err)
	}

	var stdout bytes.Buffer
	config := &interp.Config{
		Argv0:   "awk",
		Stdin:   strings.NewReader(""),
		Output:  &stdout,
		Error:   e.Stdio.Err,
		Args:    []string{},
		Funcs:   funcs,
		Environ: environPairs(e.Environ()),
	}
	if sandbox.IsEnabled() {
		config.NoFileReads = true
		config.NoFileWrites = true
		config.NoExec = true
	}

	status, err := interp.ExecProgram(prog, config)
	if callbackErr != nil {
		return callbackErr
	}
	if err != nil {
		return e.Errorf(expand.KindScript, "awk: %v", err)
	}
	if status != 0 {
		tracer().Infof("%s: awk exited with status %d", e.Location(), status)
	}
	out.Write(shell.FoldNewlines(stdout.Bytes(), true))
	return nil
}

// environPairs converts KEY=VALUE entries to goawk's flat name, value
// list. The result is never nil so that the host environment stays out.
func environPairs(env []string) []string {
	pairs := make([]string, 0, len(env)*2)
	for _, entry := range env {
		name, value, ok := strings.Cut(entry, "=")
		if !ok {
			continue
		}
		pairs = append(pairs, name, value)
	}
	return pairs
}
