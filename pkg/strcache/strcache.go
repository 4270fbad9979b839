// Package strcache provides a permanent, deduplicating string store.
//
// Strings are copied into fixed-size buffers that are never reallocated,
// compacted or freed, so a Handle stays valid for the lifetime of the
// Cache. Equal content always yields an equal Handle.
package strcache

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"unsafe"
)

// BaseSize is the nominal size of a cache buffer.
const BaseSize = 8192

// Handle identifies an interned string. The zero Handle is never issued.
type Handle struct {
	cache uint32 // id of the issuing Cache
	buf   uint32 // buffer index + 1
	off   uint32
	n     uint32
}

// IsZero reports whether h was never issued by a Cache.
func (h Handle) IsZero() bool {
	return h.buf == 0
}

type buffer struct {
	data  []byte
	end   int
	count int
}

func (b *buffer) free() int {
	return len(b.data) - b.end
}

var lastID atomic.Uint32

// Cache is an append-only string arena keyed by content.
type Cache struct {
	id      uint32
	mu      sync.RWMutex
	bufsize int
	bufs    []*buffer
	active  []int // buffers still searched for space, newest first
	full    []int
	index   map[string]Handle

	totalStrings int
	totalSize    int
	totalAdds    int
}

// New returns an empty Cache using BaseSize buffers.
func New() *Cache {
	return &Cache{
		id:      lastID.Add(1),
		bufsize: BaseSize,
		index:   make(map[string]Handle, 1024),
	}
}

// Add interns s and returns its handle.
func (c *Cache) Add(s string) Handle {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.totalAdds++
	if h, ok := c.index[s]; ok {
		return h
	}
	h := c.store(s)
	c.index[c.string(h)] = h
	return h
}

// AddBytes interns the content of b.
func (c *Cache) AddBytes(b []byte) Handle {
	return c.Add(string(b))
}

// Intern interns s and returns the retained copy.
func (c *Cache) Intern(s string) string {
	return c.String(c.Add(s))
}

func (c *Cache) store(s string) Handle {
	sz := len(s) + 1
	slot := -1
	if sz > c.bufsize {
		c.bufsize = ((sz+1)/BaseSize + 1) * BaseSize
	} else {
		for i, idx := range c.active {
			if c.bufs[idx].free() > sz {
				slot = i
				break
			}
		}
	}
	if slot < 0 {
		c.bufs = append(c.bufs, &buffer{data: make([]byte, c.bufsize)})
		c.active = append([]int{len(c.bufs) - 1}, c.active...)
		slot = 0
	}
	idx := c.active[slot]
	b := c.bufs[idx]
	off := b.end
	copy(b.data[off:], s)
	b.data[off+len(s)] = 0
	b.end += sz
	b.count++

	c.totalStrings++
	c.totalSize += sz
	if b.free() < c.totalSize/c.totalStrings+1 {
		c.active = append(c.active[:slot], c.active[slot+1:]...)
		c.full = append([]int{idx}, c.full...)
	}
	return Handle{cache: c.id, buf: uint32(idx + 1), off: uint32(off), n: uint32(len(s))}
}

// String returns the interned text for h. It returns "" for handles
// that do not belong to the cache.
func (c *Cache) String(h Handle) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.contains(h) {
		return ""
	}
	return c.string(h)
}

// string views the buffer bytes directly; bytes below a buffer's end
// are never written again.
func (c *Cache) string(h Handle) string {
	if h.n == 0 {
		return ""
	}
	b := c.bufs[h.buf-1]
	return unsafe.String(&b.data[h.off], int(h.n))
}

// Contains reports whether h addresses a string stored in this cache.
func (c *Cache) Contains(h Handle) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.contains(h)
}

func (c *Cache) contains(h Handle) bool {
	if h.cache != c.id || h.buf == 0 || int(h.buf) > len(c.bufs) {
		return false
	}
	b := c.bufs[h.buf-1]
	return int(h.off)+int(h.n) < b.end
}

// SetBufSize raises the nominal buffer size and returns the size in effect.
func (c *Cache) SetBufSize(size int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if size > c.bufsize {
		c.bufsize = size
	}
	return c.bufsize
}

// Stats summarizes cache usage.
type Stats struct {
	Buffers     int
	FullBuffers int
	Strings     int
	Size        int
	Lookups     int
	BufSize     int
	MaxFree     int
	MinFree     int
	TotalFree   int
}

// Stats returns a snapshot of usage counters.
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	st := Stats{
		Buffers:     len(c.bufs),
		FullBuffers: len(c.full),
		Strings:     c.totalStrings,
		Size:        c.totalSize,
		Lookups:     c.totalAdds,
		BufSize:     c.bufsize,
		MinFree:     c.bufsize,
	}
	for _, b := range c.bufs {
		f := b.free()
		st.TotalFree += f
		if f > st.MaxFree {
			st.MaxFree = f
		}
		if f < st.MinFree {
			st.MinFree = f
		}
	}
	return st
}

// HitRate is the percentage of Add calls answered from the index.
func (s Stats) HitRate() int {
	if s.Lookups == 0 {
		return 0
	}
	return 100 * (s.Lookups - s.Strings) / s.Lookups
}

// WriteStats prints a human readable summary, each line led by prefix.
func (c *Cache) WriteStats(w io.Writer, prefix string) {
	st := c.Stats()
	if st.Buffers == 0 {
		fmt.Fprintf(w, "%s No strcache buffers\n", prefix)
		return
	}
	avg := st.Size / st.Strings
	fmt.Fprintf(w, "%s strcache buffers: %d (%d) / strings = %d / storage = %d B / avg = %d B\n",
		prefix, st.Buffers, st.FullBuffers, st.Strings, st.Size, avg)
	fmt.Fprintf(w, "%s free: total = %d B / max = %d B / min = %d B\n",
		prefix, st.TotalFree, st.MaxFree, st.MinFree)
	fmt.Fprintf(w, "%s strcache performance: lookups = %d / hit rate = %d%%\n",
		prefix, st.Lookups, st.HitRate())
}
