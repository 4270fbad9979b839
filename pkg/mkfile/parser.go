package mkfile

import (
	"fmt"
	"strings"

	"github.com/rcarmo/go-mkexpand/pkg/expand"
	"github.com/rcarmo/go-mkexpand/pkg/vars"
)

type conditional struct {
	active  bool // lines in the current branch are read
	taken   bool // some branch has been selected
	sawElse bool
	outer   bool // an enclosing conditional is skipping
}

type modifiers struct {
	override bool
	export   bool
}

func (m modifiers) origin() vars.Origin {
	if m.override {
		return vars.Override
	}
	return vars.File
}

type parser struct {
	r     *Reader
	e     *expand.Engine
	file  string
	lines []string
	next  int
	first int
	step  int
	line  int
	conds []conditional
	rule  *Rule
}

func (p *parser) run() error {
	for p.next < len(p.lines) {
		start := p.next
		raw := p.logicalLine()
		p.line = p.first + start*p.step
		restore := p.e.At(expand.Location{File: p.file, Line: p.line})
		err := p.handle(raw)
		restore()
		if err != nil {
			return err
		}
	}

	restore := p.e.At(expand.Location{File: p.file, Line: p.line})
	defer restore()
	if len(p.conds) > 0 {
		return p.errorf(expand.KindParse, "missing 'endif'")
	}
	return p.commitRule()
}

func (p *parser) logicalLine() string {
	var b strings.Builder
	for p.next < len(p.lines) {
		l := p.lines[p.next]
		p.next++
		b.WriteString(l)
		if !continued(l) {
			break
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func (p *parser) errorf(kind expand.Kind, format string, args ...any) error {
	return &expand.Error{Kind: kind, Loc: p.e.Location(), Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) ignoring() bool {
	return len(p.conds) > 0 && !p.conds[len(p.conds)-1].active
}

func (p *parser) recipePrefix() byte {
	if v := p.e.Vars.Lookup(".RECIPEPREFIX"); v != nil && v.Value != "" {
		return v.Value[0]
	}
	return '\t'
}

func (p *parser) handle(raw string) error {
	if raw != "" && raw[0] == p.recipePrefix() && p.rule != nil {
		if !p.ignoring() {
			p.rule.Recipe = append(p.rule.Recipe, raw[1:])
		}
		return nil
	}

	text := collapse(raw)
	line := strings.TrimLeft(stripComment(text), " \t")
	if strings.TrimSpace(line) == "" {
		return nil
	}
	if handled, err := p.directive(line); handled || err != nil {
		return err
	}
	if p.ignoring() {
		return nil
	}
	if err := p.commitRule(); err != nil {
		return err
	}
	if name, op, value, ok := splitAssignment(line); ok {
		return p.r.assign(name, op, value, vars.File, false)
	}
	return p.ruleLine(raw, strings.TrimLeft(text, " \t"))
}

// directive handles conditionals, define blocks and the other keyword
// lines. It reports false for assignments and rules.
func (p *parser) directive(line string) (bool, error) {
	word, rest := splitWord(line)
	if startsAssignment(rest) {
		return false, nil
	}
	for _, kw := range []string{"ifeq", "ifneq"} {
		if strings.HasPrefix(word, kw+"(") {
			word, rest = kw, line[len(kw):]
		}
	}
	switch word {
	case "ifeq", "ifneq", "ifdef", "ifndef":
		return true, p.ifDirective(word, rest)
	case "else":
		return true, p.elseDirective(rest)
	case "endif":
		return true, p.endifDirective(rest)
	case "endef":
		if p.ignoring() {
			return true, nil
		}
		return true, p.errorf(expand.KindParse, "extraneous 'endef'")
	}

	var mods modifiers
	body := line
loop:
	for {
		w, r := splitWord(body)
		if r == "" || startsAssignment(r) {
			break
		}
		switch w {
		case "override":
			mods.override = true
		case "export":
			mods.export = true
		case "private":
		default:
			break loop
		}
		body = r
	}

	word, rest = splitWord(body)
	if word == "define" && !startsAssignment(rest) {
		return true, p.define(rest, mods)
	}
	if p.ignoring() {
		return true, nil
	}

	switch word {
	case "include", "-include", "sinclude":
		if !startsAssignment(rest) {
			return true, p.include(rest, word == "include")
		}
	case "undefine":
		if !startsAssignment(rest) {
			return true, p.undefine(rest, mods)
		}
	case "unexport":
		if !startsAssignment(rest) {
			return true, p.setExport(rest, false)
		}
	case "vpath":
		if !startsAssignment(rest) {
			return true, p.vpath(rest)
		}
	case "export":
		if rest == "" {
			return true, p.setExport("", true)
		}
	}

	if !mods.override && !mods.export {
		return false, nil
	}
	if err := p.commitRule(); err != nil {
		return true, err
	}
	if name, op, value, ok := splitAssignment(body); ok {
		return true, p.r.assign(name, op, value, mods.origin(), mods.export)
	}
	if mods.export && !mods.override {
		return true, p.setExport(body, true)
	}
	return true, p.errorf(expand.KindParse, "invalid 'override' directive")
}

func (p *parser) ifDirective(kind, rest string) error {
	c := conditional{outer: p.ignoring()}
	if !c.outer {
		ok, err := p.test(kind, rest)
		if err != nil {
			return err
		}
		c.active, c.taken = ok, ok
	}
	p.conds = append(p.conds, c)
	return nil
}

func (p *parser) elseDirective(rest string) error {
	if len(p.conds) == 0 {
		return p.errorf(expand.KindParse, "extraneous 'else'")
	}
	c := &p.conds[len(p.conds)-1]
	if c.sawElse {
		return p.errorf(expand.KindParse, "only one 'else' per conditional")
	}

	word, args := splitWord(rest)
	for _, kw := range []string{"ifeq", "ifneq"} {
		if strings.HasPrefix(word, kw+"(") {
			word, args = kw, rest[len(kw):]
		}
	}
	switch word {
	case "ifeq", "ifneq", "ifdef", "ifndef":
		if c.outer || c.taken {
			c.active = false
			return nil
		}
		ok, err := p.test(word, args)
		if err != nil {
			return err
		}
		c.active, c.taken = ok, ok
		return nil
	case "":
	default:
		if !c.outer {
			p.e.Warnf("extraneous text after 'else' directive")
		}
	}
	c.sawElse = true
	c.active = !c.outer && !c.taken
	c.taken = true
	return nil
}

func (p *parser) endifDirective(rest string) error {
	if len(p.conds) == 0 {
		return p.errorf(expand.KindParse, "extraneous 'endif'")
	}
	c := p.conds[len(p.conds)-1]
	p.conds = p.conds[:len(p.conds)-1]
	if rest != "" && !c.outer {
		p.e.Warnf("extraneous text after 'endif' directive")
	}
	return nil
}

// test evaluates the condition of an ifeq, ifneq, ifdef or ifndef.
func (p *parser) test(kind, rest string) (bool, error) {
	switch kind {
	case "ifdef", "ifndef":
		name, err := p.e.Expand(rest)
		if err != nil {
			return false, err
		}
		v := p.e.Vars.Lookup(strings.TrimSpace(name))
		defined := v != nil && v.Value != ""
		return defined == (kind == "ifdef"), nil
	}

	a, b, extra, ok := splitConditionArgs(rest)
	if !ok {
		return false, p.errorf(expand.KindParse, "invalid syntax in conditional")
	}
	if extra {
		p.e.Warnf("extraneous text after '%s' directive", kind)
	}
	ea, err := p.e.Expand(a)
	if err != nil {
		return false, err
	}
	eb, err := p.e.Expand(b)
	if err != nil {
		return false, err
	}
	return (ea == eb) == (kind == "ifeq"), nil
}

// splitConditionArgs parses "(a,b)", "'a' 'b'" or "\"a\" \"b\"". extra
// reports text after the arguments.
func splitConditionArgs(s string) (a, b string, extra, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", "", false, false
	}
	if s[0] == '(' {
		depth, comma := 0, -1
		for i := 1; i < len(s); i++ {
			switch s[i] {
			case '(':
				depth++
			case ')':
				if depth == 0 {
					if comma < 0 {
						return "", "", false, false
					}
					a = strings.TrimRight(s[1:comma], " \t")
					b = strings.TrimSpace(s[comma+1 : i])
					return a, b, strings.TrimSpace(s[i+1:]) != "", true
				}
				depth--
			case ',':
				if depth == 0 && comma < 0 {
					comma = i
				}
			}
		}
		return "", "", false, false
	}

	quoted := func(s string) (string, string, bool) {
		if s == "" || (s[0] != '"' && s[0] != '\'') {
			return "", "", false
		}
		end := strings.IndexByte(s[1:], s[0])
		if end < 0 {
			return "", "", false
		}
		return s[1 : end+1], strings.TrimLeft(s[end+2:], " \t"), true
	}
	a, rest, ok := quoted(s)
	if !ok {
		return "", "", false, false
	}
	b, rest, ok = quoted(rest)
	if !ok {
		return "", "", false, false
	}
	return a, b, strings.TrimSpace(rest) != "", true
}

// define reads a define block up to its matching endef.
func (p *parser) define(rest string, mods modifiers) error {
	head := strings.TrimSpace(rest)
	op := "="
	for _, candidate := range []string{":::=", "::=", ":=", "+=", "?=", "!=", "="} {
		if strings.HasSuffix(head, candidate) {
			op = candidate
			head = strings.TrimSpace(strings.TrimSuffix(head, candidate))
			break
		}
	}

	var body []string
	depth := 1
	for p.next < len(p.lines) {
		l := p.lines[p.next]
		p.next++
		switch w, _ := splitWord(l); w {
		case "define":
			depth++
		case "endef":
			depth--
		}
		if depth == 0 {
			if p.ignoring() {
				return nil
			}
			if err := p.commitRule(); err != nil {
				return err
			}
			if head == "" {
				return p.errorf(expand.KindParse, "empty variable name")
			}
			return p.r.assign(head, op, strings.Join(body, "\n"), mods.origin(), mods.export)
		}
		body = append(body, l)
	}
	return p.errorf(expand.KindParse, "missing 'endef', unterminated 'define'")
}

func (p *parser) include(rest string, required bool) error {
	if err := p.commitRule(); err != nil {
		return err
	}
	names, err := p.e.Expand(rest)
	if err != nil {
		return err
	}
	for _, name := range expand.Words(names) {
		if !required && !p.r.fs.Exists(p.r.resolve(name)) {
			tracer().Debugf("%s: skipping missing %q", p.e.Location(), name)
			continue
		}
		if err := p.r.ReadFile(name); err != nil {
			return err
		}
	}
	return nil
}

func (p *parser) undefine(rest string, mods modifiers) error {
	name, err := p.e.Expand(rest)
	if err != nil {
		return err
	}
	if name = strings.TrimSpace(name); name == "" {
		return p.errorf(expand.KindParse, "empty variable name")
	}
	p.e.Vars.Undefine(name, mods.origin())
	return nil
}

// setExport marks the named variables for export to child processes. An
// empty list applies to every variable.
func (p *parser) setExport(list string, on bool) error {
	names, err := p.e.Expand(list)
	if err != nil {
		return err
	}
	words := expand.Words(names)
	if len(words) == 0 {
		words = p.e.Vars.Names()
	}
	for _, name := range words {
		v := p.e.Vars.Lookup(name)
		if v == nil {
			if !on {
				continue
			}
			v = p.e.Vars.DefineGlobal(name, "", vars.File, vars.Recursive)
		}
		v.Export = on
	}
	return nil
}

func (p *parser) vpath(rest string) error {
	text, err := p.e.Expand(rest)
	if err != nil {
		return err
	}
	pattern, dirs := splitWord(strings.TrimSpace(text))
	p.r.Graph.SetVPath(pattern, strings.FieldsFunc(dirs, func(r rune) bool {
		return r == ':' || r == ' ' || r == '\t'
	}))
	return nil
}

// ruleLine parses "targets : prerequisites ; recipe". When the unexpanded
// line has no separator the expansion is searched instead; a line that
// expands to blanks is accepted.
func (p *parser) ruleLine(raw, text string) error {
	head, recipe, hasRecipe := splitRecipe(text)
	head = stripComment(head)

	expanded := false
	i, _ := findSeparator(head)
	if i < 0 {
		s, err := p.e.Expand(head)
		if err != nil {
			return err
		}
		if strings.TrimSpace(s) == "" && !hasRecipe {
			return nil
		}
		if i = strings.IndexByte(s, ':'); i < 0 {
			return p.missingSeparator(raw)
		}
		head, expanded = s, true
	}

	targetText, rest := head[:i], head[i+1:]
	double := strings.HasPrefix(rest, ":")
	if double {
		rest = rest[1:]
	}
	if !expanded {
		if j, op := findSeparator(rest); j >= 0 && op != ":" {
			return p.targetVariable(targetText, strings.TrimSpace(rest))
		}
	}

	targets, prereqs := targetText, rest
	if !expanded {
		var err error
		if targets, err = p.e.Expand(targetText); err != nil {
			return err
		}
		if prereqs, err = p.e.Expand(rest); err != nil {
			return err
		}
	}

	rule := &Rule{
		Targets:     expand.Words(targets),
		DoubleColon: double,
		Loc:         p.e.Location(),
	}
	if j := strings.IndexByte(prereqs, ':'); j >= 0 {
		rule.TargetPattern = strings.TrimSpace(prereqs[:j])
		prereqs = prereqs[j+1:]
		if rule.TargetPattern == "" {
			return p.errorf(expand.KindParse, "missing target pattern")
		}
	}
	orderOnly := false
	for _, w := range expand.Words(prereqs) {
		switch {
		case w == "|":
			orderOnly = true
		case orderOnly:
			rule.OrderOnly = append(rule.OrderOnly, w)
		default:
			rule.Prereqs = append(rule.Prereqs, w)
		}
	}
	if len(rule.Targets) == 0 {
		if hasRecipe || len(rule.Prereqs) > 0 {
			return p.errorf(expand.KindParse, "missing target")
		}
		return nil
	}
	if hasRecipe {
		rule.Recipe = append(rule.Recipe, recipe)
	}
	p.rule = rule
	return nil
}

func (p *parser) missingSeparator(raw string) error {
	switch {
	case raw != "" && raw[0] == p.recipePrefix():
		return p.errorf(expand.KindParse, "recipe commences before first target")
	case strings.HasPrefix(raw, "        "):
		return p.errorf(expand.KindParse, "missing separator (did you mean TAB instead of 8 spaces?)")
	}
	return p.errorf(expand.KindParse, "missing separator")
}

func (p *parser) targetVariable(targets, assignment string) error {
	names, err := p.e.Expand(targets)
	if err != nil {
		return err
	}
	for _, t := range expand.Words(names) {
		p.r.Graph.AddTargetVariable(TargetVariable{
			Target:     t,
			Assignment: assignment,
			Loc:        p.e.Location(),
		})
	}
	return nil
}

// commitRule files the pending rule, if any, into the graph.
func (p *parser) commitRule() error {
	rule := p.rule
	if rule == nil {
		return nil
	}
	p.rule = nil

	restore := p.e.At(rule.Loc)
	defer restore()
	overrides, err := p.r.Graph.Add(rule)
	if err != nil {
		return p.errorf(expand.KindParse, "%v", err)
	}
	for _, o := range overrides {
		p.e.Warnf("warning: overriding recipe for target '%s'", o.Target)
		back := p.e.At(o.Previous)
		p.e.Warnf("warning: ignoring old recipe for target '%s'", o.Target)
		back()
	}

	if v := p.e.Vars.Lookup(".DEFAULT_GOAL"); v == nil || v.Value == "" {
		if goal := rule.goal(); goal != "" {
			p.e.Vars.DefineGlobal(".DEFAULT_GOAL", goal, vars.File, vars.Recursive)
		}
	}
	return nil
}
