// Package expand implements make's variable and function expansion.
//
// An Engine expands text containing $(name ...) and ${name ...}
// references against a variable store, dispatching function invocations
// through an immutable Registry. Fatal conditions come back as *Error;
// warnings and info messages are written to the engine's Stdio.
package expand

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/npillmayer/schuko/tracing"

	"github.com/rcarmo/go-mkexpand/pkg/core"
	corefs "github.com/rcarmo/go-mkexpand/pkg/core/fs"
	"github.com/rcarmo/go-mkexpand/pkg/shell"
	"github.com/rcarmo/go-mkexpand/pkg/vars"
)

func tracer() tracing.Trace {
	return tracing.Select("mkexpand.engine")
}

// Filesystem is the file access the file, wildcard and realpath
// functions need.
type Filesystem interface {
	Glob(dir, pattern string) ([]string, error)
	Realpath(path string) (string, error)
	OpenWriter(name string, appendTo bool) (io.WriteCloser, error)
}

// Evaluator parses makefile text and installs its rules and variables.
type Evaluator interface {
	Eval(text string) error
}

// Options configures a new Engine. Zero fields get defaults.
type Options struct {
	Registry      *Registry
	Vars          *vars.Store
	Stdio         *core.Stdio
	FS            Filesystem
	Shell         shell.Runner
	StartDir      string
	Program       string
	WarnUndefined bool
}

// Engine expands make text. It is not safe for concurrent use.
type Engine struct {
	Vars  *vars.Store
	Stdio *core.Stdio

	registry      *Registry
	fs            Filesystem
	shell         shell.Runner
	eval          Evaluator
	ctx           context.Context
	loc           Location
	startDir      string
	program       string
	warnUndefined bool

	// callArgs is the number of positional parameters bound by the
	// innermost active call.
	callArgs int
}

// New returns an engine configured by opts.
func New(opts Options) *Engine {
	e := &Engine{
		Vars:          opts.Vars,
		Stdio:         opts.Stdio,
		registry:      opts.Registry,
		fs:            opts.FS,
		shell:         opts.Shell,
		ctx:           context.Background(),
		startDir:      opts.StartDir,
		program:       opts.Program,
		warnUndefined: opts.WarnUndefined,
	}
	if e.Vars == nil {
		e.Vars = vars.New(nil)
	}
	if e.Stdio == nil {
		e.Stdio = core.DefaultStdio()
	}
	if e.registry == nil {
		e.registry = DefaultRegistry()
	}
	if e.fs == nil {
		e.fs = corefs.OS{}
	}
	if e.shell == nil {
		e.shell = shell.Exec{}
	}
	if e.startDir == "" {
		if wd, err := os.Getwd(); err == nil {
			e.startDir = wd
		}
	}
	if e.program == "" {
		e.program = "mkexpand"
	}
	return e
}

// Registry returns the function table the engine dispatches through.
func (e *Engine) Registry() *Registry {
	return e.registry
}

// SetEvaluator installs the makefile reader used by eval.
func (e *Engine) SetEvaluator(ev Evaluator) {
	e.eval = ev
}

// SetContext sets the context that bounds shell invocations.
func (e *Engine) SetContext(ctx context.Context) {
	e.ctx = ctx
}

// SetWarnUndefined toggles warnings for references to undefined variables.
func (e *Engine) SetWarnUndefined(on bool) {
	e.warnUndefined = on
}

// StartDir is the directory relative paths are resolved against.
func (e *Engine) StartDir() string {
	return e.startDir
}

// Location returns the position currently being expanded.
func (e *Engine) Location() Location {
	return e.loc
}

// At makes loc the ambient location for diagnostics and returns a func
// restoring the previous one.
func (e *Engine) At(loc Location) func() {
	prev := e.loc
	e.loc = loc
	return func() { e.loc = prev }
}

// Warnf reports a non-fatal diagnostic at the current location.
func (e *Engine) Warnf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if e.loc.IsZero() {
		e.Stdio.Errorf("%s: %s\n", e.program, msg)
	} else {
		e.Stdio.Errorf("%s: %s\n", e.loc, msg)
	}
	tracer().Infof("warning at %q: %s", e.loc.String(), msg)
}

// Expand returns the complete expansion of text.
func (e *Engine) Expand(text string) (string, error) {
	var out bytes.Buffer
	if err := e.ExpandTo(&out, text); err != nil {
		return "", err
	}
	return out.String(), nil
}

// ExpandTo appends the expansion of text to out.
func (e *Engine) ExpandTo(out *bytes.Buffer, text string) error {
	for i := 0; i < len(text); {
		j := strings.IndexByte(text[i:], '$')
		if j < 0 {
			out.WriteString(text[i:])
			return nil
		}
		out.WriteString(text[i : i+j])
		i += j + 1
		if i >= len(text) {
			return nil
		}
		switch c := text[i]; c {
		case '$':
			out.WriteByte('$')
			i++
		case '(', '{':
			next, err := e.reference(out, text, i)
			if err != nil {
				return err
			}
			i = next
		default:
			if err := e.referenceVariable(out, text[i:i+1]); err != nil {
				return err
			}
			i++
		}
	}
	return nil
}

func closerFor(opener byte) byte {
	if opener == '(' {
		return ')'
	}
	return '}'
}

// reference expands the $(...) or ${...} whose opener is at text[open]
// and returns the offset just past its closer.
func (e *Engine) reference(out *bytes.Buffer, text string, open int) (int, error) {
	end, ok, err := e.handleFunction(out, text, open)
	if err != nil {
		return 0, err
	}
	if ok {
		return end + 1, nil
	}

	opener := text[open]
	closer := closerFor(opener)
	beg := open + 1
	rel := strings.IndexByte(text[beg:], closer)
	if rel < 0 {
		return 0, e.errorf(KindUnterminated, "unterminated variable reference")
	}
	end = beg + rel
	name := text[beg:end]
	if strings.IndexByte(name, '$') >= 0 {
		count, p := 0, beg
		for ; p < len(text); p++ {
			if text[p] == opener {
				count++
			} else if text[p] == closer {
				count--
				if count < 0 {
					break
				}
			}
		}
		if count < 0 {
			if name, err = e.Expand(text[beg:p]); err != nil {
				return 0, err
			}
			end = p
		}
	}
	return end + 1, e.referenceName(out, name)
}

// referenceName expands a computed reference name, which may be a
// substitution reference of the form VAR:PATTERN=REPLACEMENT.
func (e *Engine) referenceName(out *bytes.Buffer, name string) error {
	colon := strings.IndexByte(name, ':')
	if colon < 0 {
		return e.referenceVariable(out, name)
	}
	eq := strings.IndexByte(name[colon+1:], '=')
	if eq < 0 {
		return e.referenceVariable(out, name)
	}
	eq += colon + 1

	v := e.lookup(name[:colon])
	if v == nil || v.Value == "" {
		return nil
	}
	value, err := e.valueOf(v)
	if err != nil {
		return err
	}
	pat := ParsePattern(name[colon+1 : eq])
	var rep Pattern
	if pat.Wild {
		rep = ParsePattern(name[eq+1:])
	} else {
		pat = Pattern{Suffix: pat.Prefix, Wild: true}
		rep = Pattern{Suffix: name[eq+1:], Wild: true}
	}
	patsubstTo(out, value, pat, rep)
	return nil
}

// referenceVariable appends the value of the named variable.
func (e *Engine) referenceVariable(out *bytes.Buffer, name string) error {
	v := e.lookup(name)
	if v == nil || v.Value == "" {
		return nil
	}
	if !v.Recursive() {
		out.WriteString(v.Value)
		return nil
	}
	value, err := e.recursivelyExpand(v)
	if err != nil {
		return err
	}
	out.WriteString(value)
	return nil
}

// lookup finds a variable, warning about undefined names when enabled.
func (e *Engine) lookup(name string) *vars.Variable {
	v := e.Vars.Lookup(name)
	if v == nil && e.warnUndefined {
		msg := fmt.Sprintf("warning: undefined variable '%s'", name)
		if hint := e.suggest(name); hint != "" {
			msg += fmt.Sprintf(" (did you mean '%s'?)", hint)
		}
		e.Warnf("%s", msg)
	}
	return v
}

// suggest returns the defined variable name closest to name, if any is
// close enough to be a likely typo.
func (e *Engine) suggest(name string) string {
	if name == "" {
		return ""
	}
	names := e.Vars.Names()
	ranks := fuzzy.RankFindFold(name, names)
	if len(ranks) > 0 {
		sort.Sort(ranks)
		if ranks[0].Distance <= 2 {
			return ranks[0].Target
		}
	}
	best, bestDist := "", 3
	for _, n := range names {
		if d := fuzzy.LevenshteinDistance(name, n); d < bestDist {
			best, bestDist = n, d
		}
	}
	return best
}

// ValueOf returns the value of v, expanding it if it is recursive.
func (e *Engine) ValueOf(v *vars.Variable) (string, error) {
	return e.valueOf(v)
}

func (e *Engine) valueOf(v *vars.Variable) (string, error) {
	if !v.Recursive() {
		return v.Value, nil
	}
	return e.recursivelyExpand(v)
}

func (e *Engine) recursivelyExpand(v *vars.Variable) (string, error) {
	if v.Expanding {
		if v.ExpCount == 0 {
			return "", e.errorf(KindRecursive, "Recursive variable '%s' references itself (eventually)", v.Name)
		}
		v.ExpCount--
	}
	prev := v.Expanding
	v.Expanding = true
	defer func() { v.Expanding = prev }()
	return e.Expand(v.Value)
}

// Environ returns the environment for child processes: exported
// variables with their expanded values.
func (e *Engine) Environ() []string {
	return e.environ()
}

func (e *Engine) environ() []string {
	return e.Vars.Environ(func(v *vars.Variable) string {
		s, err := e.valueOf(v)
		if err != nil {
			return v.Value
		}
		return s
	})
}
