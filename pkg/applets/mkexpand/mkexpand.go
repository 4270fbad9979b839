// Package mkexpand implements the mkexpand command: it expands make text
// given as arguments or on standard input, optionally after reading
// makefiles, and can print the resulting variable and rule database.
package mkexpand

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/docopt/docopt-go"
	"github.com/npillmayer/schuko/tracing"
	"github.com/npillmayer/schuko/tracing/gologadapter"

	"github.com/rcarmo/go-mkexpand/pkg/bridge/awk"
	"github.com/rcarmo/go-mkexpand/pkg/core"
	"github.com/rcarmo/go-mkexpand/pkg/expand"
	"github.com/rcarmo/go-mkexpand/pkg/mkfile"
	"github.com/rcarmo/go-mkexpand/pkg/sandbox"
	"github.com/rcarmo/go-mkexpand/pkg/shell"
	"github.com/rcarmo/go-mkexpand/pkg/strcache"
	"github.com/rcarmo/go-mkexpand/pkg/vars"
)

const applet = "mkexpand"

// Version is reported by --version.
var Version = "mkexpand (GNU make " + mkfile.Version + " compatible)"

const usage = `mkexpand

Usage:
  mkexpand [options] [-f FILE]... [-I DIR]... [-V NAME]... [--allow=DIR]... [ARG...]
  mkexpand -h | --help
  mkexpand --version

Arguments:
  ARG  Text to expand, or a VAR=value command-line definition.

Options:
  -f FILE, --file=FILE            Read FILE as a makefile; "-" reads stdin.
  -I DIR, --include-dir=DIR       Search DIR for included makefiles.
  -V NAME, --print-variable=NAME  Print the expanded value of NAME.
  -e, --environment-overrides     Environment variables override makefiles.
  -p, --print-data-base           Print variables and rules.
  -i, --interactive               Read lines from stdin in a loop.
  --warn-undefined-variables      Warn when an undefined variable is referenced.
  --sandbox                       Restrict file access to the current directory.
  --allow=DIR                     Also allow DIR when sandboxed.
  --allow-exec                    Allow $(shell) when sandboxed.
  --shell-runner=RUNNER           exec or builtin [default: exec].
  --trace=LEVEL                   Trace to stderr at error, info or debug.
  --stats                         Print string cache statistics.
  --list-functions                List the available functions.
  -h, --help                      Show this help.
  --version                       Show the version.

With no ARG text and no -f, stdin is expanded as a whole, or read
line by line when it is a terminal.
`

type options struct {
	files        []string
	includeDirs  []string
	printVars    []string
	args         []string
	allow        []string
	envOverrides bool
	database     bool
	interactive  bool
	warnUndef    bool
	sandbox      bool
	allowExec    bool
	stats        bool
	listFuncs    bool
	runner       string
	trace        string
}

// Run executes mkexpand with the given arguments.
func Run(stdio *core.Stdio, args []string) int {
	o, code, ok := parseArgs(stdio, args)
	if !ok {
		return code
	}
	if o.trace != "" {
		setupTracing(stdio, o.trace)
	}
	if o.sandbox {
		if err := initSandbox(o); err != nil {
			return core.UsageError(stdio, applet, err.Error())
		}
		defer sandbox.Disable()
	}

	s, err := newSession(stdio, o)
	if err != nil {
		return core.UsageError(stdio, applet, err.Error())
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	s.e.SetContext(ctx)

	if err := s.run(o); err != nil {
		return fatal(stdio, err)
	}
	return core.ExitSuccess
}

func parseArgs(stdio *core.Stdio, args []string) (*options, int, bool) {
	shown := false
	parser := &docopt.Parser{
		HelpHandler: func(err error, text string) {
			shown = true
			if err != nil {
				stdio.Errorf("%s\n", text)
				return
			}
			stdio.Println(text)
		},
	}
	opts, err := parser.ParseArgs(usage, append([]string{}, args...), Version)
	if err != nil {
		return nil, core.ExitUsage, false
	}
	if shown {
		return nil, core.ExitSuccess, false
	}

	o := &options{
		files:       stringList(opts, "--file"),
		includeDirs: stringList(opts, "--include-dir"),
		printVars:   stringList(opts, "--print-variable"),
		allow:       stringList(opts, "--allow"),
		args:        stringList(opts, "ARG"),
	}
	o.envOverrides, _ = opts.Bool("--environment-overrides")
	o.database, _ = opts.Bool("--print-data-base")
	o.interactive, _ = opts.Bool("--interactive")
	o.warnUndef, _ = opts.Bool("--warn-undefined-variables")
	o.sandbox, _ = opts.Bool("--sandbox")
	o.allowExec, _ = opts.Bool("--allow-exec")
	o.stats, _ = opts.Bool("--stats")
	o.listFuncs, _ = opts.Bool("--list-functions")
	o.runner, _ = opts.String("--shell-runner")
	o.trace, _ = opts.String("--trace")
	return o, core.ExitSuccess, true
}

func stringList(opts docopt.Opts, key string) []string {
	list, _ := opts[key].([]string)
	return list
}

func setupTracing(stdio *core.Stdio, level string) {
	tr := gologadapter.New()
	tr.SetTraceLevel(tracing.TraceLevelFromString(level))
	tr.SetOutput(stdio.Err)
	tracing.SetTraceSelector(tracing.SelectorForAdapter(func() tracing.Trace { return tr }))
}

func initSandbox(o *options) error {
	cfg := &sandbox.Config{AllowCwd: true, AllowExec: o.allowExec}
	for _, dir := range o.allow {
		cfg.AllowedPaths = append(cfg.AllowedPaths, sandbox.PathRule{
			Path:       dir,
			Permission: sandbox.PermRead | sandbox.PermWrite,
		})
	}
	return sandbox.Init(cfg)
}

func runnerFor(name string) (shell.Runner, error) {
	switch name {
	case "", "exec":
		return shell.Exec{}, nil
	case "builtin":
		return shell.Interp{}, nil
	}
	return nil, fmt.Errorf("unknown shell runner '%s'", name)
}

// session is one configured engine with its makefile reader.
type session struct {
	stdio *core.Stdio
	cache *strcache.Cache
	e     *expand.Engine
	r     *mkfile.Reader
}

func newSession(stdio *core.Stdio, o *options) (*session, error) {
	runner, err := runnerFor(o.runner)
	if err != nil {
		return nil, err
	}
	b := expand.Builtins()
	if err := awk.Register(b); err != nil {
		return nil, err
	}
	startDir, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	cache := strcache.New()
	store := vars.New(cache)
	mkfile.SetDefaults(store, startDir, awk.Feature)
	store.SetEnvOverrides(o.envOverrides)
	store.LoadEnviron(os.Environ())

	e := expand.New(expand.Options{
		Registry:      b.Build(),
		Vars:          store,
		Stdio:         stdio,
		Shell:         runner,
		StartDir:      startDir,
		Program:       applet,
		WarnUndefined: o.warnUndef,
	})
	r := mkfile.New(e, nil, mkfile.NewGraph(cache))
	r.IncludeDirs = o.includeDirs
	return &session{stdio: stdio, cache: cache, e: e, r: r}, nil
}

func (s *session) run(o *options) error {
	var texts []string
	for _, arg := range o.args {
		if !mkfile.IsAssignment(arg) {
			texts = append(texts, arg)
			continue
		}
		if err := s.r.Assign(arg, vars.CommandLine); err != nil {
			return err
		}
	}
	for _, name := range o.files {
		if err := s.readMakefile(name); err != nil {
			return err
		}
	}
	for _, text := range texts {
		out, err := s.e.Expand(text)
		if err != nil {
			return err
		}
		s.stdio.Println(out)
	}

	other := o.database || o.stats || o.listFuncs || len(o.printVars) > 0
	switch {
	case o.interactive:
		if err := s.repl(newPrompter(s.stdio.In)); err != nil {
			return err
		}
	case len(texts) == 0 && len(o.files) == 0 && !other:
		if isTerminal(s.stdio.In) {
			if err := s.repl(newPrompter(s.stdio.In)); err != nil {
				return err
			}
		} else if err := s.expandStdin(); err != nil {
			return err
		}
	}

	for _, name := range o.printVars {
		if err := s.printVariable(name); err != nil {
			return err
		}
	}
	if o.database {
		if err := s.printDatabase(); err != nil {
			return err
		}
	}
	if o.listFuncs {
		s.listFunctions()
	}
	if o.stats {
		s.cache.WriteStats(s.stdio.Out, "#")
	}
	return nil
}

func (s *session) readMakefile(name string) error {
	if name != "-" {
		return s.r.ReadFile(name)
	}
	data, err := io.ReadAll(s.stdio.In)
	if err != nil {
		return s.e.Errorf(expand.KindFileIO, "-: %v", err)
	}
	return s.r.Read(name, data)
}

func (s *session) expandStdin() error {
	data, err := io.ReadAll(s.stdio.In)
	if err != nil {
		return s.e.Errorf(expand.KindFileIO, "stdin: %v", err)
	}
	out, err := s.e.Expand(string(data))
	if err != nil {
		return err
	}
	s.stdio.Print(out)
	return nil
}

func (s *session) printVariable(name string) error {
	v := s.e.Vars.Lookup(name)
	if v == nil {
		s.stdio.Println()
		return nil
	}
	val, err := s.e.ValueOf(v)
	if err != nil {
		return err
	}
	s.stdio.Println(val)
	return nil
}

// printDatabase writes every variable with its origin, then the rules.
func (s *session) printDatabase() error {
	s.stdio.Println("# Variables")
	for _, name := range s.e.Vars.Names() {
		v := s.e.Vars.Lookup(name)
		op := "="
		if !v.Recursive() {
			op = ":="
		}
		s.stdio.Printf("\n# %s\n", v.Origin)
		if v.Export {
			s.stdio.Print("export ")
		}
		s.stdio.Printf("%s %s %s\n", name, op, v.Value)
	}
	s.stdio.Println()
	_, err := s.r.Graph.WriteTo(s.stdio.Out)
	return err
}

// fatal reports err the way make reports errors that stop it.
func fatal(stdio *core.Stdio, err error) int {
	var ee *expand.Error
	if errors.As(err, &ee) {
		return core.FatalError(stdio, applet, ee.Loc.String(), ee.Msg)
	}
	return core.FatalError(stdio, applet, "", strings.TrimSpace(err.Error()))
}
