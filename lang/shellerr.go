package lang

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// ErrKind is one of the seven typed error kinds of spec §7.
type ErrKind int

const (
	ErrArgument ErrKind = iota
	ErrType
	ErrLookup
	ErrIO
	ErrParse
	ErrSealed
	ErrInternal
)

func (k ErrKind) String() string {
	switch k {
	case ErrArgument:
		return "argument"
	case ErrType:
		return "type"
	case ErrLookup:
		return "lookup"
	case ErrIO:
		return "io"
	case ErrParse:
		return "parse"
	case ErrSealed:
		return "sealed"
	case ErrInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// Locator is implemented by anything that can report its source span —
// primarily AST nodes, generalizing the teacher's ASTNode.pos() used by
// gql/panic.go's Panicf.
type Locator interface {
	Pos() Location
}

// ShellError is the runtime's typed error, generalizing the teacher's
// Panicf(ast ASTNode, ...) (gql/panic.go) into the kinds of spec §7. It
// carries an optional Location so parse/compile errors can be reported
// pointing into the original script.
type ShellError struct {
	Kind ErrKind
	Loc  Location
	msg  string
	// cause preserves the pkg/errors stack trace when this error wraps a
	// lower-level failure (e.g. an I/O error from a builtin).
	cause error
}

func (e *ShellError) Error() string {
	if e.Loc != NoLocation && e.Loc != (Location{}) {
		return fmt.Sprintf("%s: %s (%s)", e.Kind, e.msg, e.Loc)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.msg)
}

// Unwrap exposes the wrapped cause, if any, to errors.Is/errors.As.
func (e *ShellError) Unwrap() error { return e.cause }

func newShellErr(kind ErrKind, loc Locator, format string, args ...interface{}) *ShellError {
	l := NoLocation
	if loc != nil {
		l = loc.Pos()
	}
	return &ShellError{Kind: kind, Loc: l, msg: fmt.Sprintf(format, args...)}
}

// IsClosedRemote reports whether err is the ShellError a Sender observes
// when its paired Receiver has been closed (spec §5 Cancellation): a
// producer into a pipe whose consumer has gone away should treat this as
// ordinary upstream termination, not a failure to surface.
func IsClosedRemote(err error) bool {
	se, ok := err.(*ShellError)
	return ok && se.Kind == ErrIO && strings.Contains(se.msg, "closed remote")
}

// WrapIOErr wraps a lower-level error (typically from a builtin's syscall or
// stream operation) as a ShellError of kind io, preserving its stack trace
// via github.com/pkg/errors the way the teacher wraps driver-boundary
// failures.
func WrapIOErr(loc Locator, err error) *ShellError {
	if err == nil {
		return nil
	}
	se := newShellErr(ErrIO, loc, "%s", err.Error())
	se.cause = errors.WithStack(err)
	return se
}

// Panicf raises a ShellError of the given kind, mirroring the teacher's
// gql/panic.go Panicf(ast ASTNode, ...): it always panics, so callers at a
// command boundary must recover it (see invokeRecoverable in driver.go).
func Panicf(kind ErrKind, loc Locator, format string, args ...interface{}) {
	panic(newShellErr(kind, loc, format, args...))
}

// RecoverShellError converts a recovered panic value into a *ShellError,
// wrapping unexpected panics as ErrInternal so the driver never crashes the
// process on a non-ShellError panic.
func RecoverShellError(r interface{}) *ShellError {
	if r == nil {
		return nil
	}
	if se, ok := r.(*ShellError); ok {
		return se
	}
	return newShellErr(ErrInternal, nil, "panic: %v", r)
}
