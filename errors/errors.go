package errors

import (
	"fmt"
	"strings"
)

// Phase indicates which subsystem reported the error
type Phase string

const (
	PhaseScope     Phase = "scope"     // handle scope stack
	PhaseReference Phase = "reference" // persistent references
	PhaseInfo      Phase = "info"      // native object info store
	PhaseCleanup   Phase = "cleanup"   // environment cleanup hooks
	PhaseEnv       Phase = "env"       // environment lifecycle
	PhaseEngine    Phase = "engine"    // engine adapter
	PhaseTimer     Phase = "timer"     // timer scheduler
	PhaseScenario  Phase = "scenario"  // scenario loading and replay
)

// Kind categorizes the error
type Kind string

const (
	KindInvalidArg        Kind = "invalid_arg"
	KindScopeMismatch     Kind = "handle_scope_mismatch"
	KindEscapeCalledTwice Kind = "escape_called_twice"
	KindGenericFailure    Kind = "generic_failure"
	KindClosed            Kind = "closed"
	KindDuplicate         Kind = "duplicate"
	KindNotFound          Kind = "not_found"
	KindUnderflow         Kind = "underflow"
	KindInvalidData       Kind = "invalid_data"
	KindExpectation       Kind = "expectation"
)

// Error is the structured error type used throughout the library
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Op     string
	Detail string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Op != "" {
		b.WriteString(" in ")
		b.WriteString(e.Op)
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Op sets the name of the failing operation
func (b *Builder) Op(op string) *Builder {
	b.err.Op = op
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// InvalidArg creates an invalid argument error
func InvalidArg(phase Phase, op, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidArg,
		Op:     op,
		Detail: detail,
	}
}

// ScopeMismatch creates a handle scope mismatch error
func ScopeMismatch(op string, got, top uint64) *Error {
	return &Error{
		Phase:  PhaseScope,
		Kind:   KindScopeMismatch,
		Op:     op,
		Detail: fmt.Sprintf("scope %d is not the current top (top is %d)", got, top),
		Value:  got,
	}
}

// EscapeCalledTwice creates a double escape error
func EscapeCalledTwice(scope uint64) *Error {
	return &Error{
		Phase:  PhaseScope,
		Kind:   KindEscapeCalledTwice,
		Op:     "escape_handle",
		Detail: fmt.Sprintf("scope %d already escaped a value", scope),
		Value:  scope,
	}
}

// GenericFailure creates an internal failure error for unexpected lookup misses
func GenericFailure(phase Phase, op, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindGenericFailure,
		Op:     op,
		Detail: detail,
	}
}

// Closed creates an error for operations on a torn down component
func Closed(phase Phase, component string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindClosed,
		Detail: fmt.Sprintf("%s is closed", component),
	}
}

// Duplicate creates a duplicate registration error
func Duplicate(phase Phase, op, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindDuplicate,
		Op:     op,
		Detail: fmt.Sprintf("%s already registered", what),
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, op, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Op:     op,
		Detail: fmt.Sprintf("%s not found", what),
	}
}

// Underflow creates a counter underflow error
func Underflow(phase Phase, op string, value any) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnderflow,
		Op:     op,
		Detail: fmt.Sprintf("counter %v cannot be decremented", value),
		Value:  value,
	}
}

// InvalidData creates an invalid data error
func InvalidData(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidData,
		Detail: detail,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// KindOf returns the Kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	for err != nil {
		if e, ok := err.(*Error); ok {
			return e.Kind
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return ""
		}
		err = u.Unwrap()
	}
	return ""
}
