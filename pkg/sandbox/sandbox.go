// Package sandbox restricts the files a make run may touch and whether it
// may spawn shells. The policy is process-wide and disabled by default;
// every file access the expansion engine performs goes through it.
package sandbox

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Common sandbox errors.
var (
	ErrAccessDenied = errors.New("access denied: path not in sandbox")
	ErrReadOnly     = errors.New("write access denied: sandbox is read-only")
	ErrExecDenied   = errors.New("exec denied: sandbox does not allow running commands")
)

// Permission represents file access permissions.
type Permission uint8

const (
	PermNone  Permission = 0
	PermRead  Permission = 1 << iota // Can read files
	PermWrite                        // Can write/create files
	PermExec                         // Can run the file as a shell
)

// PathRule defines access rules for a path prefix.
type PathRule struct {
	Path       string     // Path prefix (resolved to absolute)
	Permission Permission // Allowed operations
}

// Config holds sandbox configuration.
type Config struct {
	// Paths to allow access to (with permissions)
	AllowedPaths []PathRule
	// Allow access to current working directory
	AllowCwd bool
	// Default permission for cwd if AllowCwd is true
	CwdPermission Permission
	// Allow $(shell) and != to run any shell, not only the ones granted
	// PermExec by a rule.
	AllowExec bool
}

type policy struct {
	mu        sync.RWMutex
	rules     []PathRule
	enabled   bool
	allowExec bool
}

// Global policy (disabled by default).
var global = &policy{}

// Init installs cfg as the global policy and enables it.
func Init(cfg *Config) error {
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}

	var rules []PathRule
	if cfg.AllowCwd {
		perm := cfg.CwdPermission
		if perm == PermNone {
			perm = PermRead | PermWrite
		}
		rules = append(rules, PathRule{Path: cwd, Permission: perm})
	}
	for _, rule := range cfg.AllowedPaths {
		absPath, err := filepath.Abs(rule.Path)
		if err != nil {
			continue
		}
		rules = append(rules, PathRule{Path: absPath, Permission: rule.Permission})
	}

	global.mu.Lock()
	defer global.mu.Unlock()
	global.rules = rules
	global.allowExec = cfg.AllowExec
	global.enabled = true
	return nil
}

// Disable disables the sandbox (allows all operations).
func Disable() {
	global.mu.Lock()
	defer global.mu.Unlock()
	global.enabled = false
}

// IsEnabled returns whether the sandbox is enabled.
func IsEnabled() bool {
	global.mu.RLock()
	defer global.mu.RUnlock()
	return global.enabled
}

// Check verifies that path may be accessed with perm.
func Check(path string, perm Permission) error {
	global.mu.RLock()
	defer global.mu.RUnlock()

	if !global.enabled {
		return nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return ErrAccessDenied
	}
	absPath = filepath.Clean(absPath)

	for _, rule := range global.rules {
		remainder, ok := strings.CutPrefix(absPath, rule.Path)
		if !ok || (remainder != "" && !strings.HasPrefix(remainder, string(filepath.Separator))) {
			continue
		}
		if rule.Permission&perm == perm {
			return nil
		}
		if perm&PermWrite != 0 && rule.Permission&PermWrite == 0 {
			return ErrReadOnly
		}
	}
	return ErrAccessDenied
}

// CheckExec verifies that shell may be spawned.
func CheckExec(shell string) error {
	global.mu.RLock()
	enabled, allow := global.enabled, global.allowExec
	global.mu.RUnlock()
	if !enabled || allow {
		return nil
	}
	if err := Check(shell, PermExec); err != nil {
		return ErrExecDenied
	}
	return nil
}

// Open opens a file for reading within the sandbox.
func Open(path string) (*os.File, error) {
	if err := Check(path, PermRead); err != nil {
		return nil, err
	}
	return os.Open(path) // #nosec G304 -- sandbox Check enforces allowed paths
}

// OpenFile opens a file with the given flags within the sandbox.
func OpenFile(path string, flag int, perm os.FileMode) (*os.File, error) {
	required := PermRead
	if flag&(os.O_WRONLY|os.O_RDWR|os.O_CREATE|os.O_TRUNC|os.O_APPEND) != 0 {
		required = PermWrite
	}
	if err := Check(path, required); err != nil {
		return nil, err
	}
	return os.OpenFile(path, flag, perm) // #nosec G304 -- sandbox Check enforces allowed paths
}

// ReadFile reads a file within the sandbox.
func ReadFile(path string) ([]byte, error) {
	if err := Check(path, PermRead); err != nil {
		return nil, err
	}
	return os.ReadFile(path) // #nosec G304 -- sandbox Check enforces allowed paths
}

// Stat returns file info within the sandbox.
func Stat(path string) (os.FileInfo, error) {
	if err := Check(path, PermRead); err != nil {
		return nil, err
	}
	return os.Stat(path)
}

// Lstat returns file info (not following symlinks) within the sandbox.
func Lstat(path string) (os.FileInfo, error) {
	if err := Check(path, PermRead); err != nil {
		return nil, err
	}
	return os.Lstat(path)
}

// ReadDir reads a directory within the sandbox.
func ReadDir(path string) ([]fs.DirEntry, error) {
	if err := Check(path, PermRead); err != nil {
		return nil, err
	}
	return os.ReadDir(path)
}

// EvalSymlinks resolves path. Both the path and its resolution must be
// readable.
func EvalSymlinks(path string) (string, error) {
	if err := Check(path, PermRead); err != nil {
		return "", err
	}
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		return "", err
	}
	if err := Check(resolved, PermRead); err != nil {
		return "", err
	}
	return resolved, nil
}
