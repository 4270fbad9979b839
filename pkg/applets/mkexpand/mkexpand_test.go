package mkexpand_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rcarmo/go-mkexpand/pkg/applets/mkexpand"
	"github.com/rcarmo/go-mkexpand/pkg/core"
	"github.com/rcarmo/go-mkexpand/pkg/testutil"
)

func TestMkexpand(t *testing.T) {
	tests := []testutil.AppletTestCase{
		{
			Name:     "expand_argument",
			Args:     []string{"$(subst a,b,banana)"},
			WantCode: core.ExitSuccess,
			WantOut:  "bbnbnb\n",
		},
		{
			Name:     "command_line_variable",
			Args:     []string{"X=1", "$(X) $(origin X)"},
			WantCode: core.ExitSuccess,
			WantOut:  "1 command line\n",
		},
		{
			Name:     "stdin_expanded",
			Input:    "$(words a b c)\n",
			WantCode: core.ExitSuccess,
			WantOut:  "3\n",
		},
		{
			Name:     "makefile_and_print_variable",
			Args:     []string{"-f", "Makefile", "-V", "X", "$(X)"},
			Files:    map[string]string{"Makefile": "X := 1\n"},
			WantCode: core.ExitSuccess,
			WantOut:  "1\n1\n",
		},
		{
			Name:     "command_line_beats_makefile",
			Args:     []string{"-f", "Makefile", "X=cli", "$(X)"},
			Files:    map[string]string{"Makefile": "X = file\n"},
			WantCode: core.ExitSuccess,
			WantOut:  "cli\n",
		},
		{
			Name:     "makefile_from_stdin",
			Args:     []string{"-f", "-", "$(Y)"},
			Input:    "Y = from stdin\n",
			WantCode: core.ExitSuccess,
			WantOut:  "from stdin\n",
		},
		{
			Name:       "print_database",
			Args:       []string{"-p", "-f", "Makefile"},
			Files:      map[string]string{"Makefile": "OBJS := a.o\nall: $(OBJS)\n\tcc -o $@ $^\n"},
			WantCode:   core.ExitSuccess,
			WantOutSub: "# Files\n\nall: a.o\n#  from 'Makefile', line 2\n\tcc -o $@ $^\n",
		},
		{
			Name:       "print_database_variables",
			Args:       []string{"-p", "-f", "Makefile"},
			Files:      map[string]string{"Makefile": "OBJS := a.o\n"},
			WantCode:   core.ExitSuccess,
			WantOutSub: "\n# file\nOBJS := a.o\n",
		},
		{
			Name:     "user_error",
			Args:     []string{"$(error boom)"},
			WantCode: core.ExitUsage,
			WantErr:  "mkexpand: *** boom.  Stop.",
		},
		{
			Name:     "error_in_makefile",
			Args:     []string{"-f", "Makefile"},
			Files:    map[string]string{"Makefile": "X = 1\n$(error bad)\n"},
			WantCode: core.ExitUsage,
			WantErr:  "Makefile:2: *** bad.  Stop.",
		},
		{
			Name:     "missing_makefile",
			Args:     []string{"-f", "nope.mk"},
			WantCode: core.ExitUsage,
			WantErr:  "nope.mk: no such file or directory.  Stop.",
		},
		{
			Name:     "features_include_awk",
			Args:     []string{"$(filter awk undefine,$(.FEATURES))"},
			WantCode: core.ExitSuccess,
			WantOut:  "undefine awk\n",
		},
		{
			Name:     "file_function",
			Args:     []string{"$(file >out.txt,hello)done"},
			WantCode: core.ExitSuccess,
			WantOut:  "done\n",
			Check: func(t *testing.T, dir string) {
				path := filepath.Join(dir, "out.txt")
				testutil.AssertFileExists(t, path)
				testutil.AssertFileContent(t, path, "hello\n")
			},
		},
		{
			Name:     "awk_bridge",
			Args:     []string{"$(awk BEGIN { print 6*7 })"},
			WantCode: core.ExitSuccess,
			WantOut:  "42\n",
		},
		{
			Name:     "builtin_shell_runner",
			Args:     []string{"--shell-runner=builtin", "$(shell echo hi; echo there)"},
			WantCode: core.ExitSuccess,
			WantOut:  "hi there\n",
		},
		{
			Name:     "unknown_shell_runner",
			Args:     []string{"--shell-runner=bogus", "x"},
			WantCode: core.ExitUsage,
			WantErr:  "unknown shell runner 'bogus'",
		},
		{
			Name:     "sandbox_denies_shell",
			Args:     []string{"--sandbox", "[$(shell echo hi)]"},
			WantCode: core.ExitSuccess,
			WantOut:  "[]\n",
			WantErr:  "exec denied",
		},
		{
			Name:     "sandbox_denies_builtin_shell",
			Args:     []string{"--sandbox", "--shell-runner=builtin", "[$(shell echo hi; echo leaked > /tmp/mkexpand-sandbox-escape)]"},
			WantCode: core.ExitSuccess,
			WantOut:  "[]\n",
			WantErr:  "exec denied",
			Check: func(t *testing.T, dir string) {
				if _, err := os.Stat("/tmp/mkexpand-sandbox-escape"); err == nil {
					t.Fatal("builtin shell ran outside the sandbox")
				}
			},
		},
		{
			Name:     "sandbox_allow_exec",
			Args:     []string{"--sandbox", "--allow-exec", "$(shell echo hi)"},
			WantCode: core.ExitSuccess,
			WantOut:  "hi\n",
		},
		{
			Name:     "warn_undefined",
			Args:     []string{"--warn-undefined-variables", "[$(NOPE_NOT_SET)]"},
			WantCode: core.ExitSuccess,
			WantOut:  "[]\n",
			WantErr:  "warning: undefined variable 'NOPE_NOT_SET'",
		},
		{
			Name:       "list_functions",
			Args:       []string{"--list-functions"},
			WantCode:   core.ExitSuccess,
			WantOutSub: "patsubst\n",
		},
		{
			Name:       "stats",
			Args:       []string{"--stats"},
			WantCode:   core.ExitSuccess,
			WantOutSub: "# strcache buffers: ",
		},
		{
			Name:       "version",
			Args:       []string{"--version"},
			WantCode:   core.ExitSuccess,
			WantOutSub: "GNU make 4.4.1",
		},
		{
			Name:       "help",
			Args:       []string{"--help"},
			WantCode:   core.ExitSuccess,
			WantOutSub: "Usage:",
		},
		{
			Name:     "bad_option",
			Args:     []string{"--bogus"},
			WantCode: core.ExitUsage,
			WantErr:  "Usage:",
		},
	}
	testutil.RunAppletTests(t, mkexpand.Run, tests)
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("MKEXPAND_TEST_VAR", "env")
	tests := []testutil.AppletTestCase{
		{
			Name:     "makefile_wins",
			Args:     []string{"-f", "Makefile", "$(MKEXPAND_TEST_VAR) $(origin MKEXPAND_TEST_VAR)"},
			Files:    map[string]string{"Makefile": "MKEXPAND_TEST_VAR = file\n"},
			WantCode: core.ExitSuccess,
			WantOut:  "file file\n",
		},
		{
			Name:     "environment_wins",
			Args:     []string{"-e", "-f", "Makefile", "$(MKEXPAND_TEST_VAR) $(origin MKEXPAND_TEST_VAR)"},
			Files:    map[string]string{"Makefile": "MKEXPAND_TEST_VAR = file\n"},
			WantCode: core.ExitSuccess,
			WantOut:  "env environment override\n",
		},
	}
	testutil.RunAppletTests(t, mkexpand.Run, tests)
}

func TestInteractive(t *testing.T) {
	input := strings.Join([]string{
		"X = 5",
		"$(X)",
		"define T",
		"a$(1)",
		"endef",
		"$(call T,b)",
		"$(error oops)",
		"ifeq ($(X),5)",
		"Y = yes",
		"endif",
		"$(X)$(Y)",
		"",
	}, "\n")
	out, errBuf, code := testutil.CaptureAndRun(t, mkexpand.Run, []string{"-i"}, input)
	testutil.AssertExitCode(t, code, core.ExitSuccess)
	testutil.AssertOutput(t, out.String(), "5\nab\n5yes\n")
	testutil.AssertOutputContains(t, errBuf.String(), "<stdin>:7: *** oops.")
}

func TestIncludeDirs(t *testing.T) {
	dir := testutil.TempDirWithFiles(t, map[string]string{
		"Makefile":        "include common.mk\n",
		"lib/common.mk":   "FROM = lib\n",
		"other/common.mk": "FROM = other\n",
	})
	t.Chdir(dir)
	stdio, out, errBuf := testutil.CaptureStdioNoInput()
	code := mkexpand.Run(stdio, []string{"-I", "lib", "-I", "other", "-f", "Makefile", "$(FROM)"})
	testutil.AssertExitCode(t, code, core.ExitSuccess)
	if errBuf.Len() > 0 {
		t.Fatalf("stderr: %s", errBuf)
	}
	testutil.AssertOutput(t, out.String(), "lib\n")
}
