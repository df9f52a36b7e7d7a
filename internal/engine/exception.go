package engine

import (
	"fmt"

	"github.com/cwbudde/go-pyembed/internal/ast"
)

// ExceptionKind is the fixed set of tags spec.md 4.2 lists.
type ExceptionKind string

const (
	TypeError           ExceptionKind = "TypeError"
	ValueError          ExceptionKind = "ValueError"
	NameError           ExceptionKind = "NameError"
	ZeroDivisionError   ExceptionKind = "ZeroDivisionError"
	AttributeError      ExceptionKind = "AttributeError"
	NotImplementedError ExceptionKind = "NotImplementedError"
	InternalError       ExceptionKind = "InternalError"
	// LimitExceeded is listed among spec.md 4.2's kinds for completeness,
	// but the driver never constructs an Exception with this kind: limit
	// violations are reported as an Exit variant (driver.go), not as a
	// raised, catchable exception (spec.md 4.8/7).
	LimitExceeded ExceptionKind = "LimitExceeded"
)

// Exception is an engine-raised condition with a source span. It is both
// something the driver surfaces as Exit.Raise and something the evaluator
// can wrap as a first-class Value (ExceptionValue) when a builtin like
// ValueError(msg) constructs one without raising it yet.
type Exception struct {
	Kind    ExceptionKind
	Message string
	Span    ast.Span
}

// NewException builds an Exception with a formatted message.
func NewException(kind ExceptionKind, span ast.Span, format string, args ...any) *Exception {
	return &Exception{Kind: kind, Message: fmt.Sprintf(format, args...), Span: span}
}

// Summary renders the single-line wire format spec.md section 6 pins down
// for the embedding test harness: "Exc: (L-C to L-C) Kind: message".
func (e *Exception) Summary() string {
	return fmt.Sprintf("Exc: (%d-%d to %d-%d) %s: %s",
		e.Span.StartLine, e.Span.StartCol, e.Span.EndLine, e.Span.EndCol, e.Kind, e.Message)
}

func (e *Exception) String() string { return e.Summary() }

// Error satisfies the stdlib error interface so an Exception can flow
// through Go error-returning call sites (e.g. Program.Run's error return for
// an InternalError) without a wrapper type.
func (e *Exception) Error() string { return e.Summary() }

// AsValue wraps the exception as a first-class engine Value, per spec.md
// 4.2 ("a raised exception is a first-class Value").
func (e *Exception) AsValue() Value { return ExceptionValue{Exc: e} }
