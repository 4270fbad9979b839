package testutil

import (
	"strings"
	"testing"

	"github.com/rcarmo/go-mkexpand/pkg/expand"
	"github.com/rcarmo/go-mkexpand/pkg/vars"
)

// ExpandCase defines a parameterized expansion test.
type ExpandCase struct {
	Name       string                                           // Test name
	Recursive  map[string]string                                // Variables defined with =
	Simple     map[string]string                                // Variables defined with :=
	Input      string                                           // Text to expand
	Want       string                                           // Expected expansion (exact match)
	WantKind   expand.Kind                                      // Expected error kind, 0 for success
	WantErr    string                                           // Expected error message substring
	WantOut    string                                           // Expected stdout (exact match)
	WantStderr string                                           // Expected stderr substring
	Files      map[string]string                                // Files to create in the start directory
	Setup      func(t *testing.T, e *expand.Engine)             // Optional setup function
	Check      func(t *testing.T, e *expand.Engine, dir string) // Optional post-run check
}

// NewEngine returns an engine with captured stdio rooted at dir.
func NewEngine(t *testing.T, dir string) (*expand.Engine, *Captured) {
	t.Helper()
	stdio, out, errBuf := CaptureStdioNoInput()
	e := expand.New(expand.Options{
		Stdio:    stdio,
		StartDir: dir,
	})
	return e, &Captured{Out: out, Err: errBuf}
}

// RunExpandTests runs a slice of parameterized expansion cases.
func RunExpandTests(t *testing.T, tests []ExpandCase) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.Name, func(t *testing.T) {
			var dir string
			if len(tt.Files) > 0 {
				dir = TempDirWithFiles(t, tt.Files)
			} else {
				dir = t.TempDir()
			}
			e, captured := NewEngine(t, dir)
			for name, value := range tt.Recursive {
				e.Vars.DefineGlobal(name, value, vars.File, vars.Recursive)
			}
			for name, value := range tt.Simple {
				e.Vars.DefineGlobal(name, value, vars.File, vars.Simple)
			}
			if tt.Setup != nil {
				tt.Setup(t, e)
			}

			got, err := e.Expand(tt.Input)
			switch {
			case tt.WantKind != 0 || tt.WantErr != "":
				if err == nil {
					t.Fatalf("Expand(%q) = %q, want error", tt.Input, got)
				}
				if tt.WantKind != 0 && expand.KindOf(err) != tt.WantKind {
					t.Errorf("error kind = %v, want %v (%v)", expand.KindOf(err), tt.WantKind, err)
				}
				if tt.WantErr != "" && !strings.Contains(err.Error(), tt.WantErr) {
					t.Errorf("error %q does not contain %q", err.Error(), tt.WantErr)
				}
			case err != nil:
				t.Fatalf("Expand(%q): %v", tt.Input, err)
			default:
				AssertOutput(t, got, tt.Want)
			}

			if tt.WantOut != "" {
				AssertOutput(t, captured.Out.String(), tt.WantOut)
			}
			if tt.WantStderr != "" {
				AssertOutputContains(t, captured.Err.String(), tt.WantStderr)
			}
			if tt.Check != nil {
				tt.Check(t, e, dir)
			}
		})
	}
}
