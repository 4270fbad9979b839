// Package mkfile reads makefile text into an expansion engine: variable
// assignments, conditionals, define blocks, includes and rules. A Reader
// is the evaluator behind $(eval) and the loader behind -f.
package mkfile

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/npillmayer/schuko/tracing"

	corefs "github.com/rcarmo/go-mkexpand/pkg/core/fs"
	"github.com/rcarmo/go-mkexpand/pkg/expand"
	"github.com/rcarmo/go-mkexpand/pkg/vars"
)

func tracer() tracing.Trace {
	return tracing.Select("mkexpand.mkfile")
}

// FileSystem is the file access include needs.
type FileSystem interface {
	ReadFile(path string) ([]byte, error)
	Exists(path string) bool
}

const maxIncludeDepth = 64

// Reader parses makefile text into an engine's variables and a rule graph.
type Reader struct {
	Graph *Graph

	// IncludeDirs are searched for relative include names that do not
	// exist under the start directory.
	IncludeDirs []string

	e     *expand.Engine
	fs    FileSystem
	depth int
}

// New returns a reader feeding e and installs it as e's evaluator. A nil
// fsys reads the sandboxed host filesystem; a nil g starts an empty graph.
func New(e *expand.Engine, fsys FileSystem, g *Graph) *Reader {
	if fsys == nil {
		fsys = corefs.OS{}
	}
	if g == nil {
		g = NewGraph(nil)
	}
	r := &Reader{Graph: g, e: e, fs: fsys}
	e.SetEvaluator(r)
	return r
}

// Eval parses text at the engine's current location. Every line of text
// reports that location.
func (r *Reader) Eval(text string) error {
	loc := r.e.Location()
	return r.parse(text, loc.File, loc.Line, 0)
}

// ReadFile reads and parses the makefile name, resolved against the start
// directory and IncludeDirs.
func (r *Reader) ReadFile(name string) error {
	data, err := r.fs.ReadFile(r.resolve(name))
	if err != nil {
		return r.errorf(expand.KindFileIO, "%s: %s", name, reason(err))
	}
	return r.Read(name, data)
}

// Read parses data as the makefile name and appends name to MAKEFILE_LIST.
func (r *Reader) Read(name string, data []byte) error {
	list := name
	if v := r.e.Vars.Lookup("MAKEFILE_LIST"); v != nil && v.Value != "" {
		list = v.Value + " " + name
	}
	r.e.Vars.DefineGlobal("MAKEFILE_LIST", list, vars.File, vars.Simple)
	tracer().Debugf("reading makefile %q", name)
	return r.parse(string(data), name, 1, 1)
}

// Assign applies a single "NAME op VALUE" line with the given origin, as
// for VAR=value command-line arguments.
func (r *Reader) Assign(line string, origin vars.Origin) error {
	name, op, value, ok := splitAssignment(line)
	if !ok {
		return r.errorf(expand.KindParse, "not a variable assignment: '%s'", line)
	}
	return r.assign(name, op, value, origin, false)
}

func (r *Reader) parse(text, file string, first, step int) error {
	if r.depth >= maxIncludeDepth {
		return r.errorf(expand.KindParse, "makefiles nested too deeply")
	}
	r.depth++
	defer func() { r.depth-- }()

	p := &parser{
		r:     r,
		e:     r.e,
		file:  file,
		lines: splitLines(text),
		first: first,
		step:  step,
	}
	return p.run()
}

func (r *Reader) resolve(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	path := filepath.Join(r.e.StartDir(), name)
	if r.fs.Exists(path) {
		return path
	}
	for _, dir := range r.IncludeDirs {
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(r.e.StartDir(), dir)
		}
		if p := filepath.Join(dir, name); r.fs.Exists(p) {
			return p
		}
	}
	return path
}

func (r *Reader) errorf(kind expand.Kind, format string, args ...any) error {
	return &expand.Error{Kind: kind, Loc: r.e.Location(), Msg: fmt.Sprintf(format, args...)}
}

func (r *Reader) assign(name, op, value string, origin vars.Origin, export bool) error {
	e := r.e
	n, err := e.Expand(name)
	if err != nil {
		return err
	}
	if n = strings.TrimSpace(n); n == "" {
		return r.errorf(expand.KindParse, "empty variable name")
	}
	value = strings.TrimLeft(value, " \t")

	var v *vars.Variable
	switch op {
	case "=":
		v = e.Vars.DefineGlobal(n, value, origin, vars.Recursive)
	case ":=", "::=":
		s, err := e.Expand(value)
		if err != nil {
			return err
		}
		v = e.Vars.DefineGlobal(n, s, origin, vars.Simple)
	case ":::=":
		s, err := e.Expand(value)
		if err != nil {
			return err
		}
		v = e.Vars.DefineGlobal(n, strings.ReplaceAll(s, "$", "$$"), origin, vars.Recursive)
	case "+=":
		if v, err = r.appendTo(n, value, origin); err != nil {
			return err
		}
	case "?=":
		if v = e.Vars.Lookup(n); v == nil {
			v = e.Vars.DefineGlobal(n, value, origin, vars.Recursive)
		}
	case "!=":
		cmd, err := e.Expand(value)
		if err != nil {
			return err
		}
		out, err := e.RunShell(cmd, false)
		if err != nil {
			return err
		}
		v = e.Vars.DefineGlobal(n, out, origin, vars.Recursive)
	default:
		return r.errorf(expand.KindParse, "unknown assignment operator '%s'", op)
	}
	if export {
		v.Export = true
	}
	tracer().Debugf("%s: %s %s (%s)", e.Location(), n, op, origin)
	return nil
}

// appendTo implements +=. The appended text is expanded first when the
// variable is simple.
func (r *Reader) appendTo(name, value string, origin vars.Origin) (*vars.Variable, error) {
	v := r.e.Vars.Lookup(name)
	if v == nil {
		return r.e.Vars.DefineGlobal(name, value, origin, vars.Recursive), nil
	}
	if value == "" {
		return v, nil
	}
	if !v.Recursive() {
		s, err := r.e.Expand(value)
		if err != nil {
			return nil, err
		}
		value = s
	}
	if v.Value != "" {
		value = v.Value + " " + value
	}
	return r.e.Vars.DefineGlobal(name, value, origin, v.Flavor), nil
}

func reason(err error) string {
	var pe *fs.PathError
	if errors.As(err, &pe) {
		return pe.Err.Error()
	}
	return err.Error()
}
