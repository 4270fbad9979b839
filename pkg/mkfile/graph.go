package mkfile

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/rcarmo/go-mkexpand/pkg/expand"
	"github.com/rcarmo/go-mkexpand/pkg/strcache"
)

// Rule is one rule line with its recipe. Recipe lines are kept verbatim,
// without the recipe prefix.
type Rule struct {
	Targets       []string
	Prereqs       []string
	OrderOnly     []string
	TargetPattern string
	Recipe        []string
	DoubleColon   bool
	Loc           expand.Location
}

// goal is the first target eligible as the default goal.
func (r *Rule) goal() string {
	for _, t := range r.Targets {
		if strings.Contains(t, "%") {
			continue
		}
		if strings.HasPrefix(t, ".") && !strings.Contains(t, "/") {
			continue
		}
		return t
	}
	return ""
}

// TargetVariable is a target-specific assignment, recorded unexpanded.
type TargetVariable struct {
	Target     string
	Assignment string
	Loc        expand.Location
}

// VPath is a vpath directive.
type VPath struct {
	Pattern string
	Dirs    []string
}

// Override reports a target whose recipe was replaced by a later rule.
type Override struct {
	Target   string
	Previous expand.Location
}

// Graph collects the rules read from makefiles. Target and prerequisite
// names are interned.
type Graph struct {
	names      *strcache.Cache
	rules      []*Rule
	byTarget   map[string][]*Rule
	targetVars []TargetVariable
	vpaths     []VPath
}

// NewGraph returns an empty graph interning names in cache. A nil cache
// gets a private one.
func NewGraph(cache *strcache.Cache) *Graph {
	if cache == nil {
		cache = strcache.New()
	}
	return &Graph{names: cache, byTarget: make(map[string][]*Rule)}
}

// Names is the cache names are interned in.
func (g *Graph) Names() *strcache.Cache {
	return g.names
}

func (g *Graph) intern(list []string) {
	for i, s := range list {
		list[i] = g.names.Intern(s)
	}
}

// Add files r under each of its targets. Single-colon rules replacing an
// earlier recipe are reported; mixing : and :: for a target is an error.
func (g *Graph) Add(r *Rule) ([]Override, error) {
	for _, t := range r.Targets {
		for _, old := range g.byTarget[t] {
			if old.DoubleColon != r.DoubleColon {
				return nil, fmt.Errorf("target file '%s' has both : and :: entries", t)
			}
		}
	}
	g.intern(r.Targets)
	g.intern(r.Prereqs)
	g.intern(r.OrderOnly)

	var overrides []Override
	for _, t := range r.Targets {
		if !r.DoubleColon && len(r.Recipe) > 0 && !strings.Contains(t, "%") {
			if old := g.recipeRule(t); old != nil {
				overrides = append(overrides, Override{Target: t, Previous: old.Loc})
			}
		}
		g.byTarget[t] = append(g.byTarget[t], r)
	}
	g.rules = append(g.rules, r)
	return overrides, nil
}

// All returns every rule in reading order.
func (g *Graph) All() []*Rule {
	return append([]*Rule(nil), g.rules...)
}

// Rules returns the rules naming target, in reading order.
func (g *Graph) Rules(target string) []*Rule {
	return g.byTarget[target]
}

// Targets lists every target, sorted.
func (g *Graph) Targets() []string {
	targets := make([]string, 0, len(g.byTarget))
	for t := range g.byTarget {
		targets = append(targets, t)
	}
	sort.Strings(targets)
	return targets
}

func (g *Graph) recipeRule(target string) *Rule {
	rules := g.byTarget[target]
	for i := len(rules) - 1; i >= 0; i-- {
		if len(rules[i].Recipe) > 0 {
			return rules[i]
		}
	}
	return nil
}

// Prereqs merges the prerequisites of every rule for target, keeping the
// first occurrence of each.
func (g *Graph) Prereqs(target string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range g.byTarget[target] {
		for _, p := range r.Prereqs {
			if !seen[p] {
				seen[p] = true
				out = append(out, p)
			}
		}
	}
	return out
}

// Recipe returns the recipe in effect for a single-colon target: the one
// given last.
func (g *Graph) Recipe(target string) []string {
	if r := g.recipeRule(target); r != nil {
		return r.Recipe
	}
	return nil
}

// AddTargetVariable records a target-specific assignment.
func (g *Graph) AddTargetVariable(tv TargetVariable) {
	tv.Target = g.names.Intern(tv.Target)
	g.targetVars = append(g.targetVars, tv)
}

// TargetVariables returns the target-specific assignments for target.
func (g *Graph) TargetVariables(target string) []TargetVariable {
	var out []TargetVariable
	for _, tv := range g.targetVars {
		if tv.Target == target {
			out = append(out, tv)
		}
	}
	return out
}

// SetVPath adds a vpath search list. Without dirs it clears the entries
// for pattern; without a pattern it clears all.
func (g *Graph) SetVPath(pattern string, dirs []string) {
	if pattern == "" {
		g.vpaths = nil
		return
	}
	if len(dirs) == 0 {
		kept := g.vpaths[:0]
		for _, vp := range g.vpaths {
			if vp.Pattern != pattern {
				kept = append(kept, vp)
			}
		}
		g.vpaths = kept
		return
	}
	g.vpaths = append(g.vpaths, VPath{Pattern: pattern, Dirs: dirs})
}

// VPaths returns the vpath directives in effect.
func (g *Graph) VPaths() []VPath {
	return append([]VPath(nil), g.vpaths...)
}

// WriteTo prints the rule database in makefile syntax.
func (g *Graph) WriteTo(w io.Writer) (int64, error) {
	var b strings.Builder
	b.WriteString("# Files\n")
	for _, t := range g.Targets() {
		rules := g.byTarget[t]
		if rules[0].DoubleColon {
			for _, r := range rules {
				writeRule(&b, t, "::", r.Prereqs, r.OrderOnly, r.Recipe, r.Loc)
			}
			continue
		}
		var orderOnly []string
		for _, r := range rules {
			orderOnly = append(orderOnly, r.OrderOnly...)
		}
		loc := rules[0].Loc
		if r := g.recipeRule(t); r != nil {
			loc = r.Loc
		}
		writeRule(&b, t, ":", g.Prereqs(t), orderOnly, g.Recipe(t), loc)
	}
	if len(g.targetVars) > 0 {
		b.WriteString("\n# Target-specific variables\n")
		for _, tv := range g.targetVars {
			fmt.Fprintf(&b, "%s: %s\n", tv.Target, tv.Assignment)
		}
	}
	if len(g.vpaths) > 0 {
		b.WriteString("\n# VPATH search paths\n")
		for _, vp := range g.vpaths {
			fmt.Fprintf(&b, "vpath %s %s\n", vp.Pattern, strings.Join(vp.Dirs, ":"))
		}
	}
	n, err := io.WriteString(w, b.String())
	return int64(n), err
}

func writeRule(b *strings.Builder, target, sep string, prereqs, orderOnly, recipe []string, loc expand.Location) {
	b.WriteByte('\n')
	b.WriteString(target)
	b.WriteString(sep)
	for _, p := range prereqs {
		b.WriteByte(' ')
		b.WriteString(p)
	}
	if len(orderOnly) > 0 {
		b.WriteString(" |")
		for _, p := range orderOnly {
			b.WriteByte(' ')
			b.WriteString(p)
		}
	}
	b.WriteByte('\n')
	if !loc.IsZero() {
		fmt.Fprintf(b, "#  from '%s', line %d\n", loc.File, loc.Line)
	}
	for _, line := range recipe {
		b.WriteByte('\t')
		b.WriteString(line)
		b.WriteByte('\n')
	}
}
