package mkfile

import (
	"slices"
	"strings"

	"github.com/rcarmo/go-mkexpand/pkg/shell"
	"github.com/rcarmo/go-mkexpand/pkg/vars"
)

// Version is the make version the reader follows, reported in
// MAKE_VERSION.
const Version = "4.4.1"

// Features are the .FEATURES words for what the reader supports.
var Features = []string{"target-specific", "order-only", "else-if", "undefine"}

// SetDefaults defines the built-in variables. extra names further
// .FEATURES words, such as scripting bridges.
func SetDefaults(s *vars.Store, startDir string, extra ...string) {
	s.DefineGlobal("SHELL", shell.DefaultShell, vars.Default, vars.Recursive)
	s.DefineGlobal(".SHELLFLAGS", shell.DefaultFlags, vars.Default, vars.Recursive)
	s.DefineGlobal("MAKE_VERSION", Version, vars.Default, vars.Recursive)
	s.DefineGlobal(".FEATURES", strings.Join(slices.Concat(Features, extra), " "), vars.Default, vars.Simple)
	s.DefineGlobal("CURDIR", startDir, vars.File, vars.Simple)
}
