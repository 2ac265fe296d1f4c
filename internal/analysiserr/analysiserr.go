// Package analysiserr classifies the failures a checker can hit while
// traversing one item.
//
// Failures are not findings. They are logged where they arise and the
// checker moves on to the next item.
package analysiserr

import (
	"errors"
	"fmt"

	"github.com/hashicorp/go-hclog"
)

// Kind is the closed set of analysis failure classes.
type Kind int

const (
	// Unreachable means a checker invariant was violated.
	Unreachable Kind = iota
	// OutOfScope means the construct is deliberately not modeled.
	OutOfScope
	// Unimplemented means the construct is a known gap.
	Unimplemented
)

func (k Kind) String() string {
	switch k {
	case Unreachable:
		return "Unreachable"
	case OutOfScope:
		return "OutOfScope"
	case Unimplemented:
		return "Unimplemented"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Level returns the log level a failure of this kind is reported at.
func (k Kind) Level() hclog.Level {
	switch k {
	case OutOfScope:
		return hclog.Debug
	case Unimplemented:
		return hclog.Info
	default:
		return hclog.Error
	}
}

// Error is one analysis failure.
type Error struct {
	Kind Kind
	// Op names the failing operation, e.g. "typed_body".
	Op  string
	Msg string
	Err error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Kind, e.Op)
	if e.Msg != "" {
		msg += ": " + e.Msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error with the same Kind and Op, so that the
// constructors below can be compared against with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Op == e.Op && (t.Msg == "" || t.Msg == e.Msg)
}

// KindOf returns the kind of err. Errors outside the taxonomy are treated
// as Unreachable.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return Unreachable
}

// Log reports err at the level its kind maps to.
func Log(logger hclog.Logger, err error, args ...any) {
	if err == nil {
		return
	}
	kind := KindOf(err)
	logger.Log(kind.Level(), err.Error(), append([]any{"kind", kind.String()}, args...)...)
}

// NoBody reports that id has no typed body.
func NoBody(id fmt.Stringer) *Error {
	return &Error{Kind: OutOfScope, Op: "typed_body", Msg: "no body for " + id.String()}
}

// NonFunctionType reports that a callee type is not callable.
func NonFunctionType(ty fmt.Stringer) *Error {
	return &Error{Kind: Unreachable, Op: "fn_unsafety", Msg: "non-function type " + ty.String()}
}

// InvalidOwner reports an expression whose owner has no typed body.
func InvalidOwner(id fmt.Stringer) *Error {
	return &Error{Kind: Unreachable, Op: "callee", Msg: "invalid owner " + id.String()}
}

// UnsupportedCall reports a call through a field projection.
func UnsupportedCall(msg string) *Error {
	return &Error{Kind: OutOfScope, Op: "callee", Msg: msg}
}

// UnhandledCall reports a call shape that is not resolved yet.
func UnhandledCall(msg string) *Error {
	return &Error{Kind: Unimplemented, Op: "callee", Msg: msg}
}

// UnexpectedShape reports program data that contradicts what the checker
// was promised.
func UnexpectedShape(op, msg string) *Error {
	return &Error{Kind: Unreachable, Op: op, Msg: msg}
}

// Unsupported reports a construct the checker deliberately skips.
func Unsupported(op, msg string) *Error {
	return &Error{Kind: OutOfScope, Op: op, Msg: msg}
}
