package expand

import (
	"bytes"
	"strings"

	"github.com/rcarmo/go-mkexpand/pkg/vars"
)

// Conditions are stripped of surrounding whitespace before they are
// expanded; a condition is true when its expansion is non-empty.

func funcIf(e *Engine, out *bytes.Buffer, args []string, _ string) error {
	result := false
	if cond := stripSpace(args[0]); cond != "" {
		s, err := e.Expand(cond)
		if err != nil {
			return err
		}
		result = s != ""
	}
	branch := 2
	if result {
		branch = 1
	}
	if branch >= len(args) {
		return nil
	}
	return e.ExpandTo(out, args[branch])
}

func funcOr(e *Engine, out *bytes.Buffer, args []string, _ string) error {
	for _, arg := range args {
		cond := stripSpace(arg)
		if cond == "" {
			continue
		}
		s, err := e.Expand(cond)
		if err != nil {
			return err
		}
		if s != "" {
			out.WriteString(s)
			return nil
		}
	}
	return nil
}

func funcAnd(e *Engine, out *bytes.Buffer, args []string, _ string) error {
	var s string
	for _, arg := range args {
		cond := stripSpace(arg)
		if cond == "" {
			return nil
		}
		var err error
		if s, err = e.Expand(cond); err != nil {
			return err
		}
		if s == "" {
			return nil
		}
	}
	out.WriteString(s)
	return nil
}

func funcForeach(e *Engine, out *bytes.Buffer, args []string, _ string) error {
	name, err := e.Expand(args[0])
	if err != nil {
		return err
	}
	list, err := e.Expand(args[1])
	if err != nil {
		return err
	}
	body := args[2]

	defer e.Vars.Scope()()
	v := e.Vars.Define(name, "", vars.Automatic, vars.Simple)

	doneany := false
	for i := 0; ; {
		w, next, ok := NextToken(list, i)
		if !ok {
			break
		}
		i = next
		v.Value = w
		if err := e.ExpandTo(out, body); err != nil {
			return err
		}
		out.WriteByte(' ')
		doneany = true
	}
	killLastSpace(out, doneany)
	return nil
}

func funcOrigin(e *Engine, out *bytes.Buffer, args []string, _ string) error {
	if v := e.Vars.Lookup(args[0]); v != nil {
		out.WriteString(v.Origin.String())
	} else {
		out.WriteString("undefined")
	}
	return nil
}

func funcFlavor(e *Engine, out *bytes.Buffer, args []string, _ string) error {
	if v := e.Vars.Lookup(args[0]); v != nil {
		out.WriteString(v.Flavor.String())
	} else {
		out.WriteString("undefined")
	}
	return nil
}

func funcValue(e *Engine, out *bytes.Buffer, args []string, _ string) error {
	if v := e.Vars.Lookup(args[0]); v != nil {
		out.WriteString(v.Value)
	}
	return nil
}

func funcEval(e *Engine, out *bytes.Buffer, args []string, _ string) error {
	return e.Eval(args[0])
}

// Eval hands text to the installed makefile reader.
func (e *Engine) Eval(text string) error {
	if e.eval == nil {
		return e.errorf(KindParse, "eval: no makefile reader")
	}
	return e.eval.Eval(text)
}

// funcDiagnostic implements error, warning and info.
func funcDiagnostic(e *Engine, out *bytes.Buffer, args []string, name string) error {
	msg := strings.Join(args, ", ")
	switch name {
	case "error":
		return e.errorf(KindUser, "%s", msg)
	case "warning":
		e.Warnf("%s", msg)
	default:
		e.Stdio.Printf("%s\n", msg)
	}
	return nil
}
