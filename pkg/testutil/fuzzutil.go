package testutil

import (
	"bytes"
	"os"
	"os/exec"
	"strings"
	"sync"
	"testing"
)

const MaxFuzzBytes = 2048

// Goal is appended to makefiles run under GNU make so that reading them
// is all that happens.
const Goal = "\n.PHONY: mkexpand-noop\nmkexpand-noop: ; @:\n"

type FuzzOptions struct {
	SkipMake  bool
	SharedDir bool
}

var (
	cwdMu    sync.Mutex
	makeOnce sync.Once
	makePath string
)

func ClampString(data string, max int) string {
	if len(data) > max {
		return data[:max]
	}
	return data
}

func RunAppletInDir(t *testing.T, run RunApplet, args []string, input string, dir string) (string, string, int) {
	t.Helper()
	cwdMu.Lock()
	defer cwdMu.Unlock()

	oldDir, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	defer func() { _ = os.Chdir(oldDir) }()

	stdio, out, errBuf := CaptureStdio(input)
	code := run(stdio, args)
	return out.String(), errBuf.String(), code
}

// GNUMake returns the path of a GNU make on PATH, or "".
func GNUMake() string {
	makeOnce.Do(func() {
		for _, name := range []string{"gmake", "make"} {
			path, err := exec.LookPath(name)
			if err != nil {
				continue
			}
			out, err := Command(path, "--version").Output()
			if err == nil && strings.HasPrefix(string(out), "GNU Make") {
				makePath = path
				return
			}
		}
	})
	return makePath
}

// RunMakeInDir runs GNU make on makefile in dir. ok is false when no GNU
// make is installed.
func RunMakeInDir(t *testing.T, makefile string, args []string, dir string) (string, string, int, bool) {
	t.Helper()
	path := GNUMake()
	if path == "" {
		return "", "", 0, false
	}
	cmdArgs := append([]string{"-s", "--no-print-directory", "-f", "-"}, args...)
	cmd := Command(path, cmdArgs...)
	cmd.Dir = dir
	cmd.Stdin = strings.NewReader(makefile + Goal)
	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf
	err := cmd.Run()
	exitCode := 0
	if err != nil {
		if ee, ok := err.(*exec.ExitError); ok {
			exitCode = ee.ExitCode()
		} else {
			t.Fatalf("make: %v", err)
		}
	}
	return outBuf.String(), errBuf.String(), exitCode, true
}

// FuzzCompare reads makefile with run and, unless opts.SkipMake is set,
// with GNU make, and compares what both print while reading it.
func FuzzCompare(t *testing.T, run RunApplet, makefile string, files map[string]string, opts FuzzOptions) {
	t.Helper()
	ourDir := TempDirWithFiles(t, files)
	makeDir := ourDir
	if !opts.SharedDir {
		makeDir = TempDirWithFiles(t, files)
	}
	ourOut, ourErr, ourCode := RunAppletInDir(t, run, []string{"-f", "-"}, makefile, ourDir)
	if opts.SkipMake {
		return
	}
	makeOut, makeErr, makeCode, ok := RunMakeInDir(t, makefile, nil, makeDir)
	if !ok {
		return
	}
	CompareMakeOutput(t, ourOut, ourErr, ourCode, makeOut, makeErr, makeCode)
}

// CompareMakeOutput fails t when the two runs differ. Diagnostics are
// compared without the program name prefix.
func CompareMakeOutput(t *testing.T, ourOut, ourErr string, ourCode int, makeOut, makeErr string, makeCode int) {
	t.Helper()
	if ourCode != makeCode {
		t.Fatalf("exit code mismatch: ours=%d make=%d\nours:   %q\nmake:   %q", ourCode, makeCode, ourErr, makeErr)
	}
	if !outputsEqual(ourOut, makeOut) {
		t.Fatalf("stdout mismatch:\nours:   %q\nmake:   %q", ourOut, makeOut)
	}
	if normalizeDiagnostics(ourErr, "mkexpand:") != normalizeDiagnostics(makeErr, "make:") {
		t.Fatalf("stderr mismatch:\nours:   %q\nmake:   %q", ourErr, makeErr)
	}
}

// normalizeDiagnostics drops the program name and GNU make's stdin
// makefile name so that only locations and messages remain.
func normalizeDiagnostics(s, program string) string {
	lines := strings.Split(strings.TrimSuffix(s, "\n"), "\n")
	for i, line := range lines {
		line = strings.TrimPrefix(line, program+" ")
		if j := strings.Index(line, ":"); j > 0 && strings.HasPrefix(line, "/") {
			line = "-" + line[j:]
		}
		lines[i] = line
	}
	return strings.Join(lines, "\n")
}

func outputsEqual(a, b string) bool {
	if a == b {
		return true
	}
	trimA := strings.TrimSuffix(a, "\n")
	trimB := strings.TrimSuffix(b, "\n")
	return trimA == trimB
}
