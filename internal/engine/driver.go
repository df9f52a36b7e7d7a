package engine

import (
	"fmt"
	"log/slog"
	"time"

	"code.hybscloud.com/kont"

	"github.com/cwbudde/go-pyembed/internal/ast"
	"github.com/cwbudde/go-pyembed/internal/lexer"
	"github.com/cwbudde/go-pyembed/internal/parser"
	"github.com/cwbudde/go-pyembed/internal/syntaxerr"
)

// Program is a compiled unit: a parsed AST plus the argument names it
// expects, reusable across repeated Run calls (spec.md 4.8). It holds no
// per-run mutable state.
type Program struct {
	ast       *ast.Program
	argNames  []string
	externals []string
	filename  string
}

// Compile parses source into a reusable Program. argNames are the
// identifiers Run's positional args bind to in the top scope; externals is
// advisory (documents which external names the host expects to be called):
// it is stored on the Program and nothing reads it.
func Compile(source, filename string, argNames, externals []string) (*Program, *syntaxerr.ParseError) {
	l := lexer.New(source)
	p := parser.New(l, filename)
	prog, err := p.ParseProgram()
	if err != nil {
		return nil, err
	}
	return &Program{ast: prog, argNames: argNames, externals: externals, filename: filename}, nil
}

// ExternalFunctions is the host capability consulted on an ExternalCallOp
// suspension, per spec.md 6's `externals.call`.
type ExternalFunctions interface {
	Call(name string, args []Value, kwargs []KV) (Value, *Exception)
}

// MethodDispatcher is an optional capability: a host that also knows how
// to satisfy MethodCallOp suspensions. Its absence is what spec.md 4.5
// calls "standard mode" and triggers the NotImplementedError conversion.
type MethodDispatcher interface {
	CallMethod(receiver RecordValue, name string, args []Value, kwargs []KV) (Value, *Exception)
}

// Limits bounds a single Run call, per spec.md 4.8.
type Limits struct {
	InstructionBudget int64
	WallTimeout       time.Duration
}

// ExitKind distinguishes the three terminal Exit shapes spec.md 4.8 lists.
type ExitKind int

const (
	ExitReturn ExitKind = iota
	ExitRaise
	ExitLimitExceeded
)

// Exit is the outcome of a Run call.
type Exit struct {
	Kind          ExitKind
	Value         Value      // valid when Kind == ExitReturn
	Exc           *Exception // valid when Kind == ExitRaise
	LimitExceeded string     // "Instructions" or "Wall", valid when Kind == ExitLimitExceeded
}

// String renders the debug form spec.md section 6's test harness expects.
func (e Exit) String() string {
	switch e.Kind {
	case ExitReturn:
		return fmt.Sprintf("Return(%s)", e.Value.Repr())
	case ExitRaise:
		return fmt.Sprintf("Raise(%s)", e.Exc.Summary())
	case ExitLimitExceeded:
		return fmt.Sprintf("LimitExceeded{kind: %s}", e.LimitExceeded)
	}
	return "Exit(?)"
}

// lineWriter adapts a builder into the StdoutSink the evaluator's print()
// builtin writes through.
type lineWriter struct{ lines []string }

func (w *lineWriter) WriteLine(s string) { w.lines = append(w.lines, s) }

// Stdout joins the accumulated print() output, newline-terminated per line,
// matching the host-provided stdout sink contract of spec.md 4.4.
func (w *lineWriter) Stdout() string {
	out := ""
	for _, l := range w.lines {
		out += l + "\n"
	}
	return out
}

// Run drives the evaluator to completion, satisfying suspensions against
// externals (and, if present, a MethodDispatcher) as described in spec.md
// 4.8. A nil externals is valid: external calls then raise NameError
// rather than suspending the driver indefinitely, since there is no
// satisfier to consult.
//
// The error return is reserved for InternalError conditions (spec.md 7): a
// program the parser accepted but the evaluator could not make sense of, or
// a suspension the driver did not recognize. Neither is a condition
// embedded Python code can catch, so it never travels as Exit.Raise — it
// always comes back as a genuine Go error instead.
func (p *Program) Run(args []Value, limits Limits, externals ExternalFunctions) (Exit, *lineWriter, error) {
	env := NewEnvironment()
	for i, name := range p.argNames {
		if i < len(args) {
			env.Define(name, args[i])
		} else {
			env.Define(name, None)
		}
	}

	out := &lineWriter{}
	ctx := &EvalContext{Stdout: out, Budget: limits.InstructionBudget}
	if limits.WallTimeout > 0 {
		ctx.Deadline = time.Now().Add(limits.WallTimeout)
	}

	m := execStmts(p.ast.Statements, env, ctx)
	result, susp := kont.Step[Outcome](m)

	for susp != nil {
		if kind, halted := ctx.checkWall(); halted {
			susp.Discard()
			return Exit{Kind: ExitLimitExceeded, LimitExceeded: kind}, out, nil
		}

		reply := p.satisfy(susp.Op(), externals)
		if reply.Err != nil && reply.Err.Kind == InternalError {
			susp.Discard()
			logInternalError(reply.Err)
			return Exit{}, out, reply.Err
		}
		result, susp = susp.Resume(reply)
	}

	exit, err := p.classify(result, ctx)
	return exit, out, err
}

// logInternalError reports an engine invariant violation at Error level
// with its span before it is handed back to the caller as a Go error,
// per spec.md 7's "internal errors are logged" requirement.
func logInternalError(exc *Exception) {
	slog.Error("engine: internal error", "span", exc.Span, "message", exc.Message)
}

// satisfy resolves a suspended operation against the host capabilities,
// per spec.md 4.5/4.8's suspend/resume contract.
func (p *Program) satisfy(op kont.Operation, externals ExternalFunctions) Reply {
	switch o := op.(type) {
	case ExternalCallOp:
		if externals == nil {
			return Reply{Err: NewException(NameError, o.Span, "name '%s' is not defined", o.Name)}
		}
		v, exc := externals.Call(o.Name, o.Args, o.Kwargs)
		if exc != nil {
			return Reply{Err: exc}
		}
		return Reply{Value: v}
	case MethodCallOp:
		dispatcher, ok := externals.(MethodDispatcher)
		if !ok {
			return Reply{Err: NewException(NotImplementedError, o.Span,
				"Method call '%s' not implemented with standard execution", o.Name)}
		}
		v, exc := dispatcher.CallMethod(o.Receiver, o.Name, o.Args, o.Kwargs)
		if exc != nil {
			return Reply{Err: exc}
		}
		return Reply{Value: v}
	default:
		return Reply{Err: NewException(InternalError, ast.Span{}, "unrecognized suspension operation %T", op)}
	}
}

// classify turns the terminal Outcome into an Exit. On normal completion
// the Return payload is ctx.LastValue: the value of the most recently
// executed expression statement, at any nesting depth (inside if/for bodies
// too), or None if no expression statement ran. A later assignment or other
// non-expression statement does not reset it. An InternalError Outcome is reported as a Go
// error rather than Exit.Raise, for the same reason satisfy short-circuits
// on one in Run: it is not a condition embedded code can catch.
func (p *Program) classify(o Outcome, ctx *EvalContext) (Exit, error) {
	if o.Halted {
		return Exit{Kind: ExitLimitExceeded, LimitExceeded: o.HaltKind}, nil
	}
	if o.Exc != nil {
		if o.Exc.Kind == InternalError {
			logInternalError(o.Exc)
			return Exit{}, o.Exc
		}
		return Exit{Kind: ExitRaise, Exc: o.Exc}, nil
	}
	if ctx.LastValue != nil {
		return Exit{Kind: ExitReturn, Value: ctx.LastValue}, nil
	}
	return Exit{Kind: ExitReturn, Value: None}, nil
}
