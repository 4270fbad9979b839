// Package fs provides the file access make functions need, routed through
// the sandbox. The engine reaches the host filesystem only through OS.
package fs

import (
	"io"
	"os"
	"os/user"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"mvdan.cc/sh/v3/pattern"

	"github.com/rcarmo/go-mkexpand/pkg/sandbox"
)

// OS is the sandboxed host filesystem.
type OS struct {
	// Home replaces a leading "~"; empty means $HOME.
	Home string
}

// ReadFile reads an entire file.
func (o OS) ReadFile(path string) ([]byte, error) {
	return sandbox.ReadFile(path)
}

// Exists reports whether path names an existing file.
func (o OS) Exists(path string) bool {
	_, err := sandbox.Stat(path)
	return err == nil
}

// OpenWriter opens name for writing, truncating it unless appendTo is set.
func (o OS) OpenWriter(name string, appendTo bool) (io.WriteCloser, error) {
	flag := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if appendTo {
		flag = os.O_WRONLY | os.O_CREATE | os.O_APPEND
	}
	return sandbox.OpenFile(name, flag, 0o666)
}

// Realpath resolves path to an absolute name free of symlinks and "."
// or ".." components. The path must exist.
func (o OS) Realpath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	resolved, err := sandbox.EvalSymlinks(abs)
	if err != nil {
		return "", err
	}
	if _, err := sandbox.Stat(resolved); err != nil {
		return "", err
	}
	return resolved, nil
}

// Glob returns the existing paths matching pat in sorted order. A
// relative pat is matched under dir, taken literally, and the matches are
// reported relative to it; an empty dir means the working directory. A
// pattern without wildcards matches itself if it exists. Hidden entries
// only match components that start with a dot.
func (o OS) Glob(dir, pat string) ([]string, error) {
	pat = o.expandTilde(pat)
	if strings.HasPrefix(pat, "/") {
		dir = ""
	}
	if !hasMeta(pat) {
		if _, err := sandbox.Lstat(under(dir, pat)); err != nil {
			return nil, nil
		}
		return []string{pat}, nil
	}

	dirOnly := strings.HasSuffix(pat, "/")
	comps := strings.Split(strings.TrimRight(pat, "/"), "/")
	bases := []string{""}
	if strings.HasPrefix(pat, "/") {
		bases = []string{"/"}
		comps = comps[1:]
	}

	for i, comp := range comps {
		last := i == len(comps)-1
		var next []string
		for _, base := range bases {
			if !hasMeta(comp) {
				p := join(base, comp)
				if !last || exists(under(dir, p)) {
					next = append(next, p)
				}
				continue
			}
			matches, err := matchDir(dir, base, comp)
			if err != nil {
				return nil, err
			}
			next = append(next, matches...)
		}
		bases = next
		if len(bases) == 0 {
			return nil, nil
		}
	}

	if dirOnly {
		dirs := bases[:0]
		for _, p := range bases {
			if fi, err := sandbox.Stat(under(dir, p)); err == nil && fi.IsDir() {
				dirs = append(dirs, p+"/")
			}
		}
		bases = dirs
	}
	sort.Strings(bases)
	return bases, nil
}

func (o OS) expandTilde(pat string) string {
	if !strings.HasPrefix(pat, "~") {
		return pat
	}
	name, rest, _ := strings.Cut(pat[1:], "/")
	var home string
	if name == "" {
		home = o.Home
		if home == "" {
			home = os.Getenv("HOME")
		}
	} else if u, err := user.Lookup(name); err == nil {
		home = u.HomeDir
	}
	if home == "" {
		return pat
	}
	if rest == "" && !strings.Contains(pat, "/") {
		return home
	}
	return strings.TrimRight(home, "/") + "/" + rest
}

// matchDir lists the entries of base, resolved under dir, whose names
// match the glob comp. Unreadable directories match nothing.
func matchDir(dir, base, comp string) ([]string, error) {
	expr, err := pattern.Regexp(comp, pattern.Filenames|pattern.EntireString)
	if err != nil {
		return nil, err
	}
	rx, err := regexp.Compile(expr)
	if err != nil {
		return nil, err
	}
	list := under(dir, base)
	if list == "" {
		list = "."
	}
	entries, err := sandbox.ReadDir(list)
	if err != nil {
		return nil, nil
	}
	var out []string
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, ".") && !strings.HasPrefix(comp, ".") {
			continue
		}
		if rx.MatchString(name) {
			out = append(out, join(base, name))
		}
	}
	return out, nil
}

func hasMeta(s string) bool {
	return strings.ContainsAny(s, "*?[")
}

func exists(p string) bool {
	_, err := sandbox.Lstat(p)
	return err == nil
}

// under resolves the relative path p against dir.
func under(dir, p string) string {
	if dir == "" || strings.HasPrefix(p, "/") {
		return p
	}
	if p == "" {
		return dir
	}
	return join(dir, p)
}

func join(dir, name string) string {
	switch {
	case dir == "":
		return name
	case strings.HasSuffix(dir, "/"):
		return dir + name
	}
	return dir + "/" + name
}
