package expand_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/npillmayer/schuko/tracing/gotestingadapter"

	"github.com/rcarmo/go-mkexpand/pkg/expand"
	"github.com/rcarmo/go-mkexpand/pkg/testutil"
	"github.com/rcarmo/go-mkexpand/pkg/vars"
)

func TestExpansion(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "mkexpand.engine")
	defer teardown()

	tests := []testutil.ExpandCase{
		{Name: "plain", Input: "no references", Want: "no references"},
		{Name: "dollar", Input: "cost: $$5", Want: "cost: $5"},
		{Name: "trailing_dollar", Input: "a$", Want: "a"},
		{
			Name:      "recursive",
			Recursive: map[string]string{"X": "<$(Y)>", "Y": "y"},
			Input:     "$(X)",
			Want:      "<y>",
		},
		{
			Name:   "single_char",
			Simple: map[string]string{"X": "1"},
			Input:  "$Xa $(X)",
			Want:   "1a 1",
		},
		{
			Name:   "braces",
			Simple: map[string]string{"NAME": "v"},
			Input:  "${NAME}",
			Want:   "v",
		},
		{
			Name:   "computed_name",
			Simple: map[string]string{"A": "B", "B": "val"},
			Input:  "$($(A))",
			Want:   "val",
		},
		{
			Name:   "computed_with_suffix",
			Simple: map[string]string{"which": "dbg", "CFLAGS_dbg": "-g"},
			Input:  "$(CFLAGS_$(which))",
			Want:   "-g",
		},
		{
			Name:   "subst_ref",
			Simple: map[string]string{"SRCS": "a.c b.c"},
			Input:  "$(SRCS:.c=.o)",
			Want:   "a.o b.o",
		},
		{
			Name:   "subst_ref_pattern",
			Simple: map[string]string{"SRCS": "a.c b.c"},
			Input:  "${SRCS:%.c=obj/%.o}",
			Want:   "obj/a.o obj/b.o",
		},
		{
			Name:   "subst_ref_word_end",
			Simple: map[string]string{"SRCS": "a.c.c b.cx"},
			Input:  "$(SRCS:.c=.o)",
			Want:   "a.c.o b.cx",
		},
		{
			Name:      "subst_ref_recursive_value",
			Recursive: map[string]string{"SRCS": "$(A) b.c", "A": "a.c"},
			Input:     "$(SRCS:.c=.o)",
			Want:      "a.o b.o",
		},
		{Name: "undefined", Input: "[$(NOPE)]", Want: "[]"},
		{Name: "name_with_space", Input: "$(foo bar)", Want: ""},
		{
			Name:     "unterminated_variable",
			Input:    "$(X",
			WantKind: expand.KindUnterminated,
			WantErr:  "unterminated variable reference",
		},
		{
			Name:     "unterminated_function",
			Input:    "$(subst a,b,c",
			WantKind: expand.KindUnterminated,
			WantErr:  "unterminated call to function 'subst': missing ')'",
		},
		{
			Name:     "unterminated_function_braces",
			Input:    "${subst a,b,c)",
			WantKind: expand.KindUnterminated,
			WantErr:  "missing '}'",
		},
		{Name: "function_braces", Input: "${subst a,b,cab}", Want: "cbb"},
		{Name: "function_other_parens", Input: "${subst (,[,a(b}", Want: "a[b"},
		{
			Name:      "self_reference",
			Recursive: map[string]string{"X": "a $(X)"},
			Input:     "$(X)",
			WantKind:  expand.KindRecursive,
			WantErr:   "Recursive variable 'X' references itself (eventually)",
		},
		{
			Name:      "indirect_self_reference",
			Recursive: map[string]string{"X": "$(Y)", "Y": "$(X)"},
			Input:     "$(X)",
			WantKind:  expand.KindRecursive,
		},
		{
			Name:      "simple_is_not_expanded",
			Simple:    map[string]string{"S": "$(X)"},
			Recursive: map[string]string{"X": "x"},
			Input:     "$(S)",
			Want:      "$(X)",
		},
		{
			Name:      "warn_undefined",
			Recursive: map[string]string{"FOOBAR": "1"},
			Setup: func(t *testing.T, e *expand.Engine) {
				e.SetWarnUndefined(true)
			},
			Input:      "[$(FOOBAZ)]",
			Want:       "[]",
			WantStderr: "mkexpand: warning: undefined variable 'FOOBAZ' (did you mean 'FOOBAR'?)",
		},
		{
			Name: "warning_location",
			Setup: func(t *testing.T, e *expand.Engine) {
				e.At(expand.Location{File: "Makefile", Line: 7})
			},
			Input:      "$(warning careful)",
			Want:       "",
			WantStderr: "Makefile:7: careful",
		},
	}
	testutil.RunExpandTests(t, tests)
}

func TestErrorLocation(t *testing.T) {
	e, _ := testutil.NewEngine(t, t.TempDir())
	restore := e.At(expand.Location{File: "rules.mk", Line: 12})
	_, err := e.Expand("$(word 0,a)")
	restore()

	var ee *expand.Error
	if !errors.As(err, &ee) {
		t.Fatalf("err = %v, want *expand.Error", err)
	}
	testutil.AssertOutput(t, ee.Error(), "rules.mk:12: first argument to 'word' function must be greater than 0")
	if !expand.IsFatal(err) {
		t.Error("arity errors must be fatal")
	}
	if !e.Location().IsZero() {
		t.Errorf("location not restored: %v", e.Location())
	}
}

func TestKinds(t *testing.T) {
	if expand.KindWarning.Fatal() || expand.KindUndefined.Fatal() {
		t.Error("warnings must not be fatal")
	}
	if !expand.KindFileIO.Fatal() {
		t.Error("file errors must be fatal")
	}
	testutil.AssertOutput(t, expand.KindArity.String(), "ArityError")
	testutil.AssertOutput(t, expand.Kind(99).String(), "Kind(99)")
	if expand.IsFatal(nil) {
		t.Error("nil is not fatal")
	}
	if !expand.IsFatal(context.Canceled) {
		t.Error("foreign errors are fatal")
	}
}

func TestScopesReleasedOnError(t *testing.T) {
	e, _ := testutil.NewEngine(t, t.TempDir())
	e.Vars.DefineGlobal("f", "$(error boom $1)", vars.File, vars.Recursive)
	depth := e.Vars.Depth()

	_, err := e.Expand("$(foreach x,a b,$(call f,$(x)))")
	if expand.KindOf(err) != expand.KindUser {
		t.Fatalf("err = %v, want user error", err)
	}
	if !strings.Contains(err.Error(), "boom a") {
		t.Errorf("err = %v", err)
	}
	if e.Vars.Depth() != depth {
		t.Fatalf("scope depth = %d after error, want %d", e.Vars.Depth(), depth)
	}
}

func FuzzExpand(f *testing.F) {
	f.Add("$(patsubst %.c,%.o,$(SRCS))")
	f.Add("$(foreach v,$(SRCS),$(v:.c=.h))")
	f.Add("$(call f,$(if x,y,z),$$)")
	f.Add("${subst a,b,$(SRCS}")
	if testing.Short() {
		f.Skip("fuzzing skipped in short mode")
	}
	f.Fuzz(func(t *testing.T, input string) {
		input = testutil.ClampString(input, 256)
		if strings.Contains(input, "shell") || strings.Contains(input, "file") || strings.Contains(input, "eval") {
			t.Skip("side effects")
		}
		e, _ := testutil.NewEngine(t, t.TempDir())
		e.Vars.DefineGlobal("SRCS", "a.c b.c", vars.File, vars.Simple)
		e.Vars.DefineGlobal("f", "$1-$2", vars.File, vars.Recursive)
		depth := e.Vars.Depth()
		_, _ = e.Expand(input)
		if e.Vars.Depth() != depth {
			t.Fatalf("scope leak expanding %q", input)
		}
	})
}
