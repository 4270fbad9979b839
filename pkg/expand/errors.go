package expand

import (
	"errors"
	"fmt"
	"strconv"
)

// Kind classifies expansion diagnostics.
type Kind int

const (
	KindArity Kind = iota + 1
	KindUnterminated
	KindNonNumeric
	KindUndefined
	KindUser
	KindWarning
	KindInfo
	KindSubprocess
	KindFileIO
	KindRecursive
	KindParse
	KindScript
)

var kindNames = map[Kind]string{
	KindArity:        "ArityError",
	KindUnterminated: "UnterminatedInvocation",
	KindNonNumeric:   "NonNumericArgument",
	KindUndefined:    "UndefinedVariable",
	KindUser:         "UserError",
	KindWarning:      "UserWarning",
	KindInfo:         "UserInfo",
	KindSubprocess:   "SubprocessFailure",
	KindFileIO:       "FileIOFailure",
	KindRecursive:    "RecursiveVariable",
	KindParse:        "ParseError",
	KindScript:       "ScriptError",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// Fatal reports whether errors of this kind abort the run.
func (k Kind) Fatal() bool {
	switch k {
	case KindUndefined, KindWarning, KindInfo, KindSubprocess:
		return false
	}
	return true
}

// Location is a position in makefile text.
type Location struct {
	File string
	Line int
}

// IsZero reports whether no location is known.
func (l Location) IsZero() bool {
	return l.File == ""
}

func (l Location) String() string {
	if l.File == "" {
		return ""
	}
	if l.Line <= 0 {
		return l.File
	}
	return l.File + ":" + strconv.Itoa(l.Line)
}

// Error is a diagnostic raised while expanding text.
type Error struct {
	Kind Kind
	Loc  Location
	Msg  string
}

func (e *Error) Error() string {
	if e.Loc.IsZero() {
		return e.Msg
	}
	return e.Loc.String() + ": " + e.Msg
}

// KindOf returns the Kind carried by err, or 0.
func KindOf(err error) Kind {
	var ee *Error
	if errors.As(err, &ee) {
		return ee.Kind
	}
	return 0
}

// IsFatal reports whether err must stop the run.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	k := KindOf(err)
	return k == 0 || k.Fatal()
}

// Errorf returns an *Error of the given kind at the current location.
func (e *Engine) Errorf(kind Kind, format string, args ...any) error {
	return e.errorf(kind, format, args...)
}

func (e *Engine) errorf(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Loc: e.loc, Msg: fmt.Sprintf(format, args...)}
}
