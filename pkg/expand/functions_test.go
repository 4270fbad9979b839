package expand_test

import (
	"path/filepath"
	"strconv"
	"testing"

	"github.com/rcarmo/go-mkexpand/pkg/expand"
	"github.com/rcarmo/go-mkexpand/pkg/testutil"
)

func TestTextFunctions(t *testing.T) {
	tests := []testutil.ExpandCase{
		{Name: "patsubst", Input: "$(patsubst %.c,%.o,foo.c bar.c)", Want: "foo.o bar.o"},
		{Name: "subst", Input: "$(subst ee,EE,feet on the street)", Want: "fEEt on the strEEt"},
		{Name: "strip", Input: "$(strip   a \t b  \n c  )", Want: "a b c"},
		{Name: "strip_blank", Input: "[$(strip    )]", Want: "[]"},
		{Name: "findstring", Input: "$(findstring a,b a c)|$(findstring x,abc)", Want: "a|"},
		{Name: "filter", Input: "$(filter %.c %.h,foo.c bar.o baz.h)", Want: "foo.c baz.h"},
		{Name: "filter_out", Input: "$(filter-out %.c,foo.c bar.o baz.c)", Want: "bar.o"},
		{Name: "filter_literals_hashed", Input: "$(filter a b c d e,a x b y e z a)", Want: "a b e a"},
		{Name: "filter_literals_scanned", Input: "$(filter a,a b a)", Want: "a a"},
		{Name: "filter_of_filter_out", Input: "[$(filter %.c a,$(filter-out %.c a,x.c a b y.o))]", Want: "[]"},
		{Name: "sort", Input: "$(sort c a b a  c)", Want: "a b c"},
		{Name: "sort_bytewise", Input: "$(sort b B a A)", Want: "A B a b"},
		{Name: "sort_empty", Input: "[$(sort )]", Want: "[]"},
		{Name: "word", Input: "$(word 2,a b c)", Want: "b"},
		{Name: "word_past_end", Input: "[$(word 5,a b c)]", Want: "[]"},
		{Name: "word_padded_index", Input: "$(word  3 ,a b c)", Want: "c"},
		{
			Name:     "word_zero",
			Input:    "$(word 0,a b c)",
			WantKind: expand.KindArity,
			WantErr:  "first argument to 'word' function must be greater than 0",
		},
		{
			Name:     "word_non_numeric",
			Input:    "$(word x,a b c)",
			WantKind: expand.KindNonNumeric,
			WantErr:  "non-numeric first argument to 'word' function: 'x'",
		},
		{Name: "wordlist", Input: "$(wordlist 2,3,a b c d)", Want: "b c"},
		{Name: "wordlist_raw_span", Input: "$(wordlist 2,9,a  b   c)", Want: "b   c"},
		{Name: "wordlist_reversed", Input: "[$(wordlist 3,2,a b c)]", Want: "[]"},
		{Name: "wordlist_past_end", Input: "[$(wordlist 4,5,a b c)]", Want: "[]"},
		{
			Name:     "wordlist_zero",
			Input:    "$(wordlist 0,2,a b)",
			WantKind: expand.KindArity,
			WantErr:  "invalid first argument to 'wordlist' function: '0'",
		},
		{
			Name:     "wordlist_non_numeric_second",
			Input:    "$(wordlist 1,z,a)",
			WantKind: expand.KindNonNumeric,
			WantErr:  "non-numeric second argument to 'wordlist' function: 'z'",
		},
		{
			Name:     "wordlist_negative",
			Input:    "$(wordlist -1,2,a)",
			WantKind: expand.KindNonNumeric,
			WantErr:  "non-numeric first argument to 'wordlist' function: '-1'",
		},
		{Name: "words", Input: "$(words a b  c)|$(words )", Want: "3|0"},
		{Name: "firstword", Input: "$(firstword  x y z)|$(firstword )", Want: "x|"},
		{Name: "lastword", Input: "$(lastword x y z )|$(lastword )", Want: "z|"},
		{Name: "join", Input: "$(join a b c,1 2)", Want: "a1 b2 c"},
		{Name: "join_longer_second", Input: "$(join a,1 2 3)", Want: "a1 2 3"},
		{Name: "addprefix", Input: "$(addprefix src/,a.c b.c)", Want: "src/a.c src/b.c"},
		{Name: "addsuffix", Input: "$(addsuffix .o,a b)", Want: "a.o b.o"},
		{Name: "eq", Input: "$(eq a,a)|$(eq a,b)", Want: "1|"},
		{Name: "not", Input: "$(not  )|$(not x)", Want: "1|"},
		{
			Name:     "insufficient_arguments",
			Input:    "$(subst a,b)",
			WantKind: expand.KindArity,
			WantErr:  "insufficient number of arguments (2) to function 'subst'",
		},
		{Name: "last_argument_keeps_commas", Input: "$(subst a,b,a,a)", Want: "b,b"},
		{Name: "nested_parens_in_argument", Input: "$(subst x,(y),x,z)", Want: "(y),z"},
	}
	testutil.RunExpandTests(t, tests)
}

func TestWordlistSingleWordCount(t *testing.T) {
	list := "a b c d"
	for n := 1; n <= 6; n++ {
		e, _ := testutil.NewEngine(t, t.TempDir())
		got, err := e.Expand("$(words $(wordlist " + strconv.Itoa(n) + "," + strconv.Itoa(n) + "," + list + "))")
		if err != nil {
			t.Fatal(err)
		}
		want := "0"
		if n <= 4 {
			want = "1"
		}
		if got != want {
			t.Errorf("n=%d: got %q, want %q", n, got, want)
		}
	}
}

func TestSortIdempotent(t *testing.T) {
	e, _ := testutil.NewEngine(t, t.TempDir())
	once, err := e.Expand("$(sort q w e r t y w q)")
	if err != nil {
		t.Fatal(err)
	}
	twice, err := e.Expand("$(sort " + once + ")")
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertOutput(t, twice, once)
	testutil.AssertOutput(t, once, "e q r t w y")
}

func TestPathFunctions(t *testing.T) {
	tests := []testutil.ExpandCase{
		{Name: "dir", Input: "$(dir src/foo.c hacks)", Want: "src/ ./"},
		{Name: "notdir", Input: "$(notdir src/foo.c hacks a/)", Want: "foo.c hacks "},
		{Name: "suffix", Input: "$(suffix src/foo.c src-1.0/bar hacks.tar.gz)", Want: ".c .gz"},
		{Name: "basename", Input: "$(basename src/foo.c src-1.0/bar hacks)", Want: "src/foo src-1.0/bar hacks"},
		{Name: "abspath_absolute", Input: "$(abspath /a/./b/../c//d/ /)", Want: "/a/c/d /"},
		{
			Name:  "wildcard",
			Files: map[string]string{"b.c": "", "a.c": "", "c.h": "", "sub/d.c": ""},
			Input: "$(wildcard *.c sub/*.c c.h missing.h)",
			Want:  "a.c b.c sub/d.c c.h",
		},
		{
			Name:  "wildcard_dot_prefix",
			Files: map[string]string{"x.c": ""},
			Input: "$(patsubst ./%.c,obj/%.o,$(wildcard ./*.c))",
			Want:  "obj/x.o",
		},
		{Name: "wildcard_none", Input: "[$(wildcard *.zzz)]", Want: "[]"},
	}
	testutil.RunExpandTests(t, tests)
}

func TestWildcardStartDirWithMeta(t *testing.T) {
	root := testutil.TempDirWithFiles(t, map[string]string{
		"a[1]/x.c": "",
		"a1/x.c":   "",
		"a1/y.c":   "",
	})
	e, _ := testutil.NewEngine(t, filepath.Join(root, "a[1]"))

	got, err := e.Expand("$(wildcard x.c) | $(wildcard *.c) | [$(wildcard y.c)]")
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertOutput(t, got, "x.c | x.c | []")
}

func TestAbspathRelative(t *testing.T) {
	dir := t.TempDir()
	e, _ := testutil.NewEngine(t, dir)
	got, err := e.Expand("$(abspath src/../lib x)")
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertOutput(t, got, filepath.Join(dir, "lib")+" "+filepath.Join(dir, "x"))
}

func TestRealpath(t *testing.T) {
	dir := testutil.TempDirWithFiles(t, map[string]string{"x/y": ""})
	resolved, err := filepath.EvalSymlinks(dir)
	if err != nil {
		t.Fatal(err)
	}
	e, _ := testutil.NewEngine(t, dir)
	got, err := e.Expand("$(realpath x/../x/y nope)")
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertOutput(t, got, filepath.Join(resolved, "x", "y"))
}
