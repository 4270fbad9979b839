// Package vars holds make variables in a chain of scopes.
package vars

import (
	"sort"
	"strings"

	"github.com/rcarmo/go-mkexpand/pkg/strcache"
)

// Origin records where a variable definition came from. Higher origins
// win over lower ones when a global definition is replaced.
type Origin int

const (
	Default Origin = iota
	Environment
	File
	EnvOverride
	CommandLine
	Override
	Automatic
)

var originNames = [...]string{
	Default:     "default",
	Environment: "environment",
	File:        "file",
	EnvOverride: "environment override",
	CommandLine: "command line",
	Override:    "override",
	Automatic:   "automatic",
}

func (o Origin) String() string {
	if o < 0 || int(o) >= len(originNames) {
		return "invalid"
	}
	return originNames[o]
}

// Flavor distinguishes recursively expanded from simply expanded variables.
type Flavor int

const (
	Recursive Flavor = iota
	Simple
)

func (f Flavor) String() string {
	if f == Simple {
		return "simple"
	}
	return "recursive"
}

// MaxExpCount is the expansion allowance granted to a variable while it
// runs as a user function body.
const MaxExpCount = 1<<15 - 1

// Variable is one named binding.
type Variable struct {
	Name   string
	Value  string
	Origin Origin
	Flavor Flavor
	Export bool

	// Expanding is set while the value is being expanded; ExpCount is the
	// number of nested self-references still tolerated.
	Expanding bool
	ExpCount  int
}

// Recursive reports whether the value is expanded on every reference.
func (v *Variable) Recursive() bool {
	return v.Flavor == Recursive
}

// Set is a single scope.
type Set struct {
	vars map[string]*Variable
}

func newSet() *Set {
	return &Set{vars: make(map[string]*Variable)}
}

// Store is a stack of scopes; index 0 is the global scope.
type Store struct {
	names        *strcache.Cache
	scopes       []*Set
	envOverrides bool
}

// New returns a store with an empty global scope. Variable names are
// interned in names when it is non-nil.
func New(names *strcache.Cache) *Store {
	return &Store{names: names, scopes: []*Set{newSet()}}
}

// SetEnvOverrides makes environment variables win over makefile
// assignments.
func (s *Store) SetEnvOverrides(on bool) {
	s.envOverrides = on
}

func (s *Store) intern(name string) string {
	if s.names == nil {
		return name
	}
	return s.names.Intern(name)
}

// Lookup finds name, searching from the innermost scope outwards.
func (s *Store) Lookup(name string) *Variable {
	for i := len(s.scopes) - 1; i >= 0; i-- {
		if v, ok := s.scopes[i].vars[name]; ok {
			return v
		}
	}
	return nil
}

// Define binds name in the innermost scope, unconditionally.
func (s *Store) Define(name, value string, origin Origin, flavor Flavor) *Variable {
	set := s.scopes[len(s.scopes)-1]
	if v, ok := set.vars[name]; ok {
		v.Value, v.Origin, v.Flavor = value, origin, flavor
		return v
	}
	v := &Variable{Name: s.intern(name), Value: value, Origin: origin, Flavor: flavor}
	set.vars[v.Name] = v
	return v
}

// DefineGlobal binds name in the global scope. An existing definition
// from a stronger origin is left untouched and returned.
func (s *Store) DefineGlobal(name, value string, origin Origin, flavor Flavor) *Variable {
	set := s.scopes[0]
	if v, ok := set.vars[name]; ok {
		if s.envOverrides && v.Origin == Environment {
			v.Origin = EnvOverride
		}
		if origin >= v.Origin {
			v.Value, v.Origin, v.Flavor = value, origin, flavor
		}
		return v
	}
	if s.envOverrides && origin == Environment {
		origin = EnvOverride
	}
	v := &Variable{Name: s.intern(name), Value: value, Origin: origin, Flavor: flavor}
	set.vars[v.Name] = v
	return v
}

// Undefine removes a global definition unless a stronger origin owns it.
func (s *Store) Undefine(name string, origin Origin) {
	set := s.scopes[0]
	if v, ok := set.vars[name]; ok && origin >= v.Origin {
		delete(set.vars, name)
	}
}

// Push opens a new innermost scope.
func (s *Store) Push() {
	s.scopes = append(s.scopes, newSet())
}

// Pop discards the innermost scope. The global scope is never popped.
func (s *Store) Pop() {
	if len(s.scopes) > 1 {
		s.scopes[len(s.scopes)-1] = nil
		s.scopes = s.scopes[:len(s.scopes)-1]
	}
}

// Scope pushes a scope and returns the func that pops it, for use with
// defer.
func (s *Store) Scope() func() {
	s.Push()
	depth := len(s.scopes)
	return func() {
		if len(s.scopes) == depth {
			s.Pop()
		}
	}
}

// Depth is the number of scopes, including the global one.
func (s *Store) Depth() int {
	return len(s.scopes)
}

// Names returns every visible variable name, sorted.
func (s *Store) Names() []string {
	seen := make(map[string]bool)
	var names []string
	for _, set := range s.scopes {
		for name := range set.vars {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	sort.Strings(names)
	return names
}

// LoadEnviron imports KEY=VALUE pairs with origin Environment. Exported
// so that they reach child processes unchanged.
func (s *Store) LoadEnviron(env []string) {
	for _, kv := range env {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || name == "" {
			continue
		}
		switch name {
		case "SHELL", "MAKEFLAGS":
			continue
		}
		v := s.DefineGlobal(name, value, Environment, Recursive)
		v.Export = true
	}
}

// Environ returns KEY=VALUE pairs for exported variables. The values are
// produced by expand, which receives each exported variable.
func (s *Store) Environ(expand func(*Variable) string) []string {
	var env []string
	for _, name := range s.Names() {
		v := s.Lookup(name)
		if v == nil || !v.Export {
			continue
		}
		env = append(env, name+"="+expand(v))
	}
	return env
}
