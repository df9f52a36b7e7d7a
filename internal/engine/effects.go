package engine

import (
	"code.hybscloud.com/kont"

	"github.com/cwbudde/go-pyembed/internal/ast"
)

// Eff is the evaluator's effectful computation type: an expression or
// statement evaluation that may suspend on an external call or a record
// method call before producing its result. Grounded on spec.md 4.5's
// suspend/resume contract, implemented on top of code.hybscloud.com/kont's
// continuation/algebraic-effects primitives rather than a hand-rolled
// goroutine/channel rendezvous.
type Eff[A any] = kont.Eff[A]

// KV is a keyword-argument pair, matching spec.md 4.5's
// `kwargs: [(Value, Value)]` wire shape for FrameExit descriptors (the key
// is a StringValue holding the parameter name).
type KV struct {
	Key   Value
	Value Value
}

// Reply is what the driver hands back to resume a suspended call: either a
// converted return Value or an adopted Exception. It is always passed by
// value (never as a nil pointer/interface), sidestepping kont's "nil means
// completed with zero value" stepping convention documented in its step.go.
type Reply struct {
	Value Value
	Err   *Exception
}

// ExternalCallOp is the suspension descriptor for a call to a name that
// isn't a builtin (the environment is not consulted) — spec.md 4.5's
// `ExternalCall{name, args, kwargs}`.
type ExternalCallOp struct {
	kont.Phantom[Reply]
	Name   string
	Args   []Value
	Kwargs []KV
	Span   ast.Span
}

// MethodCallOp is the suspension descriptor for a call whose target is an
// attribute of a Record value — spec.md 4.5's `MethodCall{receiver, name,
// args, kwargs}`.
type MethodCallOp struct {
	kont.Phantom[Reply]
	Receiver RecordValue
	Name     string
	Args     []Value
	Kwargs   []KV
	Span     ast.Span
}

// performExternalCall suspends evaluation on an external call, to be satisfied by the
// driver via Suspension.Resume.
func performExternalCall(op ExternalCallOp) Eff[Reply] {
	return kont.Perform[ExternalCallOp, Reply](op)
}

// performMethodCall suspends evaluation on a record method call.
func performMethodCall(op MethodCallOp) Eff[Reply] {
	return kont.Perform[MethodCallOp, Reply](op)
}
