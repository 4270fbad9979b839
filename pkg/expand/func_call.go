package expand

import (
	"bytes"
	"strconv"

	"github.com/rcarmo/go-mkexpand/pkg/vars"
)

// funcCall expands a user-defined function with $(0)..$(N) bound to the
// function name and its arguments.
func funcCall(e *Engine, out *bytes.Buffer, args []string, _ string) error {
	fname := stripSpace(args[0])
	if fname == "" {
		return nil
	}

	if d := e.registry.Lookup(fname); d != nil {
		return e.invoke(out, d, args[1:])
	}

	v := e.lookup(fname)
	if v == nil || v.Value == "" {
		return nil
	}

	defer e.Vars.Scope()()

	i := 0
	e.Vars.Define("0", fname, vars.Automatic, vars.Simple)
	for i = 1; i < len(args); i++ {
		e.Vars.Define(strconv.Itoa(i), args[i], vars.Automatic, vars.Simple)
	}
	// Hide the parameters of an enclosing call that this one does not set.
	for ; i < e.callArgs; i++ {
		e.Vars.Define(strconv.Itoa(i), "", vars.Automatic, vars.Simple)
	}

	v.ExpCount = vars.MaxExpCount
	saved := e.callArgs
	e.callArgs = i
	defer func() {
		e.callArgs = saved
		v.ExpCount = 0
	}()

	tracer().Debugf("%s: call %s with %d argument(s)", e.loc.String(), fname, len(args)-1)
	return e.referenceVariable(out, fname)
}
