package mkfile

import "testing"

func TestStripComment(t *testing.T) {
	tests := []struct{ in, want string }{
		{"a # b", "a "},
		{"no comment", "no comment"},
		{`a \# b`, "a # b"},
		{`a \\# b`, `a \`},
		{`a \\\# b`, `a \# b`},
		{`x\#y # z`, "x#y "},
		{"#", ""},
	}
	for _, tt := range tests {
		if got := stripComment(tt.in); got != tt.want {
			t.Errorf("stripComment(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCollapse(t *testing.T) {
	tests := []struct{ in, want string }{
		{"a", "a"},
		{"a \\\n  b", "a b"},
		{"a\\\n\tb\\\nc", "a b c"},
	}
	for _, tt := range tests {
		if got := collapse(tt.in); got != tt.want {
			t.Errorf("collapse(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestContinued(t *testing.T) {
	for in, want := range map[string]bool{`a\`: true, `a\\`: false, `a\\\`: true, "a": false, "": false} {
		if got := continued(in); got != want {
			t.Errorf("continued(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestFindSeparator(t *testing.T) {
	tests := []struct {
		in string
		at int
		op string
	}{
		{"X = 1", 2, "="},
		{"X := 1", 2, ":="},
		{"X ::= 1", 2, "::="},
		{"X :::= 1", 2, ":::="},
		{"X += 1", 2, "+="},
		{"X ?= 1", 2, "?="},
		{"X != date", 2, "!="},
		{"a: b", 1, ":"},
		{"$(a:b=c): d", 8, ":"},
		{"${x:=y} = z", 8, "="},
		{"$:x", -1, ""},
		{"plain", -1, ""},
	}
	for _, tt := range tests {
		at, op := findSeparator(tt.in)
		if at != tt.at || op != tt.op {
			t.Errorf("findSeparator(%q) = %d, %q; want %d, %q", tt.in, at, op, tt.at, tt.op)
		}
	}
}

func TestSplitRecipe(t *testing.T) {
	tests := []struct {
		in, head, recipe string
		ok               bool
	}{
		{"a: b ; echo hi", "a: b ", "echo hi", true},
		{"a: $(subst ;,x,b)", "a: $(subst ;,x,b)", "", false},
		{"a: b # c ; d", "a: b # c ; d", "", false},
		{"a: b \\# c ; d", "a: b \\# c ", "d", true},
	}
	for _, tt := range tests {
		head, recipe, ok := splitRecipe(tt.in)
		if head != tt.head || recipe != tt.recipe || ok != tt.ok {
			t.Errorf("splitRecipe(%q) = %q, %q, %v", tt.in, head, recipe, ok)
		}
	}
}

func TestSplitConditionArgs(t *testing.T) {
	tests := []struct {
		in        string
		a, b      string
		extra, ok bool
	}{
		{"(a,b)", "a", "b", false, true},
		{"($(x),  y )", "$(x)", "y", false, true},
		{"(f(a,b),c)", "f(a,b)", "c", false, true},
		{"($(f a,b),c)", "$(f a,b)", "c", false, true},
		{`"a" 'b'`, "a", "b", false, true},
		{`"a" "b" junk`, "a", "b", true, true},
		{"(a,b) junk", "a", "b", true, true},
		{"(a b)", "", "", false, false},
		{"a b", "", "", false, false},
		{`"a`, "", "", false, false},
		{"", "", "", false, false},
	}
	for _, tt := range tests {
		a, b, extra, ok := splitConditionArgs(tt.in)
		if a != tt.a || b != tt.b || extra != tt.extra || ok != tt.ok {
			t.Errorf("splitConditionArgs(%q) = %q, %q, %v, %v", tt.in, a, b, extra, ok)
		}
	}
}

func TestIsStatement(t *testing.T) {
	tests := []struct {
		line string
		want bool
	}{
		{"X = 1", true},
		{"X:=$(Y)", true},
		{"all: main.o", true},
		{"ifeq (a,b)", true},
		{"ifneq($(X),)", true},
		{"export", true},
		{"define = 3", true},
		{"$(info hello)", false},
		{"$(subst a,b,c:d)", false},
		{"plain words", false},
		{"   # comment", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsStatement(tt.line); got != tt.want {
			t.Errorf("IsStatement(%q) = %v, want %v", tt.line, got, tt.want)
		}
	}
}

func TestNesting(t *testing.T) {
	tests := []struct {
		line string
		want int
	}{
		{"define F", 1},
		{"override define F", 1},
		{"ifdef X", 1},
		{"ifeq (a,b)", 1},
		{"ifeq(a,b)", 1},
		{"endef", -1},
		{"endif # done", -1},
		{"else", 0},
		{"define := 1", 0},
		{"X = 1", 0},
	}
	for _, tt := range tests {
		if got := Nesting(tt.line); got != tt.want {
			t.Errorf("Nesting(%q) = %d, want %d", tt.line, got, tt.want)
		}
	}
}

func TestIsAssignment(t *testing.T) {
	tests := []struct {
		arg  string
		want bool
	}{
		{"CC=gcc", true},
		{"CFLAGS+=-O2", true},
		{"X:=$(Y)", true},
		{"$(subst a,b,x=y)", false},
		{"two words=1", false},
		{"=1", false},
		{"all: x", false},
		{"hello", false},
	}
	for _, tt := range tests {
		if got := IsAssignment(tt.arg); got != tt.want {
			t.Errorf("IsAssignment(%q) = %v, want %v", tt.arg, got, tt.want)
		}
	}
}
