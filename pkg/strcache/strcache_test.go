package strcache_test

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/rcarmo/go-mkexpand/pkg/strcache"
)

func TestAddIsIdempotent(t *testing.T) {
	c := strcache.New()
	a := c.Add("foo.o")
	b := c.Add(strings.Join([]string{"foo", ".o"}, ""))
	if a != b {
		t.Fatalf("handles differ for equal content: %v vs %v", a, b)
	}
	if got := c.String(a); got != "foo.o" {
		t.Errorf("String = %q, want %q", got, "foo.o")
	}
	if c.Add("bar.o") == a {
		t.Error("different content returned the same handle")
	}
}

func TestContains(t *testing.T) {
	c := strcache.New()
	h := c.Add("main.c")
	if !c.Contains(h) {
		t.Error("issued handle not contained")
	}
	if c.Contains(strcache.Handle{}) {
		t.Error("zero handle reported as contained")
	}
	other := strcache.New()
	foreign := other.Add(strings.Repeat("x", 200))
	if c.Contains(foreign) {
		t.Error("handle from another cache with out-of-range offset reported as contained")
	}

	c.Add(strings.Repeat("y", 64))
	inRange := other.Add("a")
	if c.Contains(inRange) {
		t.Error("in-range handle from another cache reported as contained")
	}
	if got := c.String(inRange); got != "" {
		t.Errorf("String(foreign) = %q, want empty", got)
	}
	if !other.Contains(inRange) {
		t.Error("handle not contained by its own cache")
	}
}

func TestEmptyString(t *testing.T) {
	c := strcache.New()
	h := c.Add("")
	if h.IsZero() {
		t.Fatal("empty string got the zero handle")
	}
	if c.String(h) != "" || !c.Contains(h) {
		t.Error("empty string not stored")
	}
}

func TestStableAcrossGrowth(t *testing.T) {
	c := strcache.New()
	first := c.Add("first")
	view := c.String(first)
	for i := 0; i < 5000; i++ {
		c.Add(fmt.Sprintf("file-%d.c", i))
	}
	if c.String(first) != "first" || view != "first" {
		t.Error("interned string changed after growth")
	}
	if st := c.Stats(); st.Buffers < 2 || st.FullBuffers == 0 {
		t.Errorf("expected several buffers with some retired, got %+v", st)
	}
}

func TestOversizedString(t *testing.T) {
	c := strcache.New()
	big := strings.Repeat("a", strcache.BaseSize*2)
	h := c.Add(big)
	if c.String(h) != big {
		t.Fatal("oversized string not retained")
	}
	if st := c.Stats(); st.BufSize <= strcache.BaseSize*2 {
		t.Errorf("BufSize = %d, want > %d", st.BufSize, strcache.BaseSize*2)
	}
	if c.SetBufSize(10) != c.Stats().BufSize {
		t.Error("SetBufSize shrank the buffer size")
	}
}

func TestWriteStats(t *testing.T) {
	c := strcache.New()
	var buf bytes.Buffer
	c.WriteStats(&buf, "#")
	if !strings.Contains(buf.String(), "No strcache buffers") {
		t.Errorf("unexpected empty stats: %q", buf.String())
	}
	c.Add("a")
	c.Add("a")
	buf.Reset()
	c.WriteStats(&buf, "#")
	if !strings.Contains(buf.String(), "hit rate = 50%") {
		t.Errorf("stats missing hit rate: %q", buf.String())
	}
}
