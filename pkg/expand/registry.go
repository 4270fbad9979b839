package expand

import (
	"bytes"
	"fmt"
	"sort"
	"sync"
)

// Builtin appends the result of one function invocation to out. name is
// the name the function was invoked under.
type Builtin func(e *Engine, out *bytes.Buffer, args []string, name string) error

// Descriptor is the registration record of a make function. MaxArgs 0
// means unbounded.
type Descriptor struct {
	Name       string
	MinArgs    int
	MaxArgs    int
	ExpandArgs bool
	Fn         Builtin
}

const maxFunctionName = 255

// Builder collects function registrations before the registry is frozen.
type Builder struct {
	funcs map[string]*Descriptor
}

// NewBuilder returns a builder with no functions.
func NewBuilder() *Builder {
	return &Builder{funcs: make(map[string]*Descriptor)}
}

// Register adds or replaces a function.
func (b *Builder) Register(name string, minArgs, maxArgs int, expandArgs bool, fn Builtin) error {
	if len(name) > maxFunctionName {
		return fmt.Errorf("Function name too long: %s", name)
	}
	if minArgs < 0 || minArgs > 255 {
		return fmt.Errorf("Invalid minimum argument count (%d) for function %s", minArgs, name)
	}
	if maxArgs < 0 || maxArgs > 255 || (maxArgs != 0 && maxArgs < minArgs) {
		return fmt.Errorf("Invalid maximum argument count (%d) for function %s", maxArgs, name)
	}
	b.funcs[name] = &Descriptor{
		Name:       name,
		MinArgs:    minArgs,
		MaxArgs:    maxArgs,
		ExpandArgs: expandArgs,
		Fn:         fn,
	}
	return nil
}

// Build freezes the registrations into a Registry. The builder may keep
// being used; later registrations do not affect the returned registry.
func (b *Builder) Build() *Registry {
	r := &Registry{funcs: make(map[string]*Descriptor, len(b.funcs))}
	for name, d := range b.funcs {
		cp := *d
		r.funcs[name] = &cp
		r.names = append(r.names, name)
	}
	sort.Strings(r.names)
	return r
}

// Registry is an immutable name-indexed function table.
type Registry struct {
	funcs map[string]*Descriptor
	names []string
}

// Lookup returns the descriptor registered under name, or nil.
func (r *Registry) Lookup(name string) *Descriptor {
	return r.funcs[name]
}

// Names lists the registered function names in sorted order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.names...)
}

// Builtins returns a builder preloaded with the standard make functions.
func Builtins() *Builder {
	b := NewBuilder()
	for _, d := range builtinTable {
		if err := b.Register(d.Name, d.MinArgs, d.MaxArgs, d.ExpandArgs, d.Fn); err != nil {
			panic(err)
		}
	}
	return b
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// DefaultRegistry returns the shared registry of standard functions.
func DefaultRegistry() *Registry {
	defaultOnce.Do(func() {
		defaultRegistry = Builtins().Build()
	})
	return defaultRegistry
}

var builtinTable []Descriptor

func init() {
	builtinTable = []Descriptor{
		{"abspath", 0, 1, true, funcAbspath},
		{"addprefix", 2, 2, true, funcAddfix},
		{"addsuffix", 2, 2, true, funcAddfix},
		{"basename", 0, 1, true, funcBasenameDir},
		{"dir", 0, 1, true, funcBasenameDir},
		{"notdir", 0, 1, true, funcNotdirSuffix},
		{"subst", 3, 3, true, funcSubst},
		{"suffix", 0, 1, true, funcNotdirSuffix},
		{"filter", 2, 2, true, funcFilter},
		{"filter-out", 2, 2, true, funcFilter},
		{"findstring", 2, 2, true, funcFindstring},
		{"firstword", 0, 1, true, funcFirstword},
		{"flavor", 0, 1, true, funcFlavor},
		{"join", 2, 2, true, funcJoin},
		{"lastword", 0, 1, true, funcLastword},
		{"patsubst", 3, 3, true, funcPatsubst},
		{"realpath", 0, 1, true, funcRealpath},
		{"shell", 0, 1, true, funcShell},
		{"sort", 0, 1, true, funcSort},
		{"strip", 0, 1, true, funcStrip},
		{"wildcard", 0, 1, true, funcWildcard},
		{"word", 2, 2, true, funcWord},
		{"wordlist", 3, 3, true, funcWordlist},
		{"words", 0, 1, true, funcWords},
		{"origin", 0, 1, true, funcOrigin},
		{"foreach", 3, 3, false, funcForeach},
		{"call", 1, 0, true, funcCall},
		{"info", 0, 1, true, funcDiagnostic},
		{"error", 0, 1, true, funcDiagnostic},
		{"warning", 0, 1, true, funcDiagnostic},
		{"if", 2, 3, false, funcIf},
		{"or", 1, 0, false, funcOr},
		{"and", 1, 0, false, funcAnd},
		{"value", 0, 1, true, funcValue},
		{"eval", 0, 1, true, funcEval},
		{"file", 1, 2, true, funcFile},
		{"eq", 2, 2, true, funcEq},
		{"not", 0, 1, true, funcNot},
	}
}
