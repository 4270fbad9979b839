package sandbox_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rcarmo/go-mkexpand/pkg/sandbox"
)

func TestSandboxDisabled(t *testing.T) {
	sandbox.Disable()

	if _, err := sandbox.Stat("/"); err != nil {
		t.Errorf("expected no error when sandbox disabled, got %v", err)
	}
	if err := sandbox.CheckExec("/bin/sh"); err != nil {
		t.Errorf("expected exec allowed when sandbox disabled, got %v", err)
	}
}

func TestSandboxEnabled(t *testing.T) {
	dir := t.TempDir()

	err := sandbox.Init(&sandbox.Config{
		AllowedPaths: []sandbox.PathRule{
			{Path: dir, Permission: sandbox.PermRead | sandbox.PermWrite},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	defer sandbox.Disable()

	testFile := filepath.Join(dir, "test.txt")
	f, err := sandbox.OpenFile(testFile, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		t.Fatalf("expected write to succeed in allowed path, got %v", err)
	}
	f.Close()

	if _, err := sandbox.Stat(filepath.Join(os.TempDir(), "..", "outside")); !errors.Is(err, sandbox.ErrAccessDenied) {
		t.Errorf("expected ErrAccessDenied outside the sandbox, got %v", err)
	}
}

func TestSandboxReadOnly(t *testing.T) {
	dir := t.TempDir()

	testFile := filepath.Join(dir, "readonly.mk")
	if err := os.WriteFile(testFile, []byte("X = 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	err := sandbox.Init(&sandbox.Config{
		AllowedPaths: []sandbox.PathRule{
			{Path: dir, Permission: sandbox.PermRead},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	defer sandbox.Disable()

	if _, err := sandbox.ReadFile(testFile); err != nil {
		t.Errorf("expected read to succeed, got %v", err)
	}
	if _, err := sandbox.OpenFile(testFile, os.O_WRONLY|os.O_APPEND, 0o644); !errors.Is(err, sandbox.ErrReadOnly) {
		t.Errorf("expected ErrReadOnly, got %v", err)
	}
}

func TestSandboxCwd(t *testing.T) {
	cwd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}

	err = sandbox.Init(&sandbox.Config{
		AllowCwd:      true,
		CwdPermission: sandbox.PermRead,
	})
	if err != nil {
		t.Fatal(err)
	}
	defer sandbox.Disable()

	if _, err := sandbox.ReadDir(cwd); err != nil {
		t.Errorf("expected ReadDir to succeed in cwd, got %v", err)
	}
	if _, err := sandbox.Stat(filepath.Dir(cwd)); !errors.Is(err, sandbox.ErrAccessDenied) {
		t.Errorf("expected ErrAccessDenied for parent of cwd, got %v", err)
	}
}

func TestSandboxPathTraversal(t *testing.T) {
	dir := t.TempDir()

	err := sandbox.Init(&sandbox.Config{
		AllowedPaths: []sandbox.PathRule{
			{Path: dir, Permission: sandbox.PermRead | sandbox.PermWrite},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	defer sandbox.Disable()

	traversalPath := filepath.Join(dir, "..", "..", "etc", "passwd")
	if _, err := sandbox.Stat(traversalPath); !errors.Is(err, sandbox.ErrAccessDenied) {
		t.Errorf("expected ErrAccessDenied for traversal path, got %v", err)
	}

	// A sibling sharing the rule's prefix is not inside it.
	if err := sandbox.Check(dir+"-sibling", sandbox.PermRead); !errors.Is(err, sandbox.ErrAccessDenied) {
		t.Errorf("expected ErrAccessDenied for prefix sibling, got %v", err)
	}
}

func TestSandboxEvalSymlinks(t *testing.T) {
	dir := t.TempDir()
	outside := t.TempDir()

	target := filepath.Join(outside, "target")
	if err := os.WriteFile(target, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	link := filepath.Join(dir, "link")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	err := sandbox.Init(&sandbox.Config{
		AllowedPaths: []sandbox.PathRule{
			{Path: dir, Permission: sandbox.PermRead},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	defer sandbox.Disable()

	if _, err := sandbox.EvalSymlinks(link); !errors.Is(err, sandbox.ErrAccessDenied) {
		t.Errorf("expected ErrAccessDenied for link leaving the sandbox, got %v", err)
	}
}

func TestSandboxExec(t *testing.T) {
	dir := t.TempDir()
	sh := filepath.Join(dir, "sh")

	err := sandbox.Init(&sandbox.Config{
		AllowedPaths: []sandbox.PathRule{
			{Path: dir, Permission: sandbox.PermRead},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	defer sandbox.Disable()
	if err := sandbox.CheckExec(sh); !errors.Is(err, sandbox.ErrExecDenied) {
		t.Errorf("expected ErrExecDenied, got %v", err)
	}

	err = sandbox.Init(&sandbox.Config{
		AllowedPaths: []sandbox.PathRule{
			{Path: sh, Permission: sandbox.PermRead | sandbox.PermExec},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := sandbox.CheckExec(sh); err != nil {
		t.Errorf("expected exec of granted shell, got %v", err)
	}

	if err := sandbox.Init(&sandbox.Config{AllowExec: true}); err != nil {
		t.Fatal(err)
	}
	if err := sandbox.CheckExec("/bin/sh"); err != nil {
		t.Errorf("expected exec allowed by AllowExec, got %v", err)
	}
}
