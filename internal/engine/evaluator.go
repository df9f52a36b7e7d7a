package engine

import (
	"time"

	"code.hybscloud.com/kont"

	"github.com/cwbudde/go-pyembed/internal/ast"
)

// EvalContext carries everything a running evaluation needs beyond the
// environment: the instruction/wall budget (spec.md 4.8), the stdout sink
// print() writes to, and the value of the most recently executed expression
// statement at any nesting depth (the Run driver's Return value, since this
// grammar has no explicit return statement — spec.md section 8 scenario 1
// treats a lone expression statement's value as the program's result,
// REPL-style).
type EvalContext struct {
	Stdout StdoutSink

	Budget    int64
	Deadline  time.Time
	stmtCount int64

	LastValue Value
}

// StdoutSink is the capability print() needs. Kept as a narrow interface
// (grounded on the teacher's internal/builtins.Context pattern for
// decoupling builtin implementations from the evaluator's full state)
// rather than handing builtins the whole EvalContext.
type StdoutSink interface {
	WriteLine(s string)
}

// tick accounts for one executed statement against the instruction budget,
// and every 1024 statements also checks the wall deadline, per spec.md
// 4.8's suggested default N.
func (c *EvalContext) tick() (kind string, halted bool) {
	c.stmtCount++
	if c.Budget > 0 {
		c.Budget--
	}
	if c.Budget <= 0 {
		return "Instructions", true
	}
	if c.stmtCount%1024 == 0 {
		if kind, halted := c.checkWall(); halted {
			return kind, halted
		}
	}
	return "", false
}

// checkWall is also consulted at every suspension boundary, per spec.md
// 4.8 ("checks the wall deadline at each suspension boundary").
func (c *EvalContext) checkWall() (kind string, halted bool) {
	if c.Deadline.IsZero() {
		return "", false
	}
	if time.Now().After(c.Deadline) {
		return "Wall", true
	}
	return "", false
}

// Outcome is the Result<Value, Exception> spec.md 9 describes: every
// evaluator operation threads it instead of unwinding via panic/throw.
// Halted additionally carries the LimitExceeded signal, which short-
// circuits the same way an Exception does but is reported to the driver
// as Exit.LimitExceeded rather than Exit.Raise (spec.md 7).
type Outcome struct {
	Value    Value
	Exc      *Exception
	Halted   bool
	HaltKind string
}

func pureOutcome(o Outcome) Eff[Outcome] { return kont.Return[kont.Resumed](o) }
func pureValue(v Value) Eff[Outcome]     { return pureOutcome(Outcome{Value: v}) }
func pureExc(e *Exception) Eff[Outcome]  { return pureOutcome(Outcome{Exc: e}) }
func pureHalt(kind string) Eff[Outcome]  { return pureOutcome(Outcome{Halted: true, HaltKind: kind}) }

// bindEval sequences two evaluator steps, short-circuiting on exception or
// halt instead of invoking the continuation — the "every subsequent
// statement and expression short-circuits" rule from spec.md 4.2.
func bindEval(m Eff[Outcome], f func(Value) Eff[Outcome]) Eff[Outcome] {
	return kont.Bind(m, func(o Outcome) Eff[Outcome] {
		if o.Exc != nil || o.Halted {
			return pureOutcome(o)
		}
		return f(o.Value)
	})
}

// evalExprList evaluates expressions left to right, short-circuiting on
// the first exception/halt, and returns the accumulated Values.
func evalExprList(exprs []ast.Expr, env *Environment, ctx *EvalContext) Eff[OutcomeList] {
	return evalExprListFrom(exprs, 0, nil, env, ctx)
}

// OutcomeList is Outcome specialized to carry a slice of Values instead of
// a single one, used for argument lists and list literals.
type OutcomeList struct {
	Values   []Value
	Exc      *Exception
	Halted   bool
	HaltKind string
}

func evalExprListFrom(exprs []ast.Expr, i int, acc []Value, env *Environment, ctx *EvalContext) Eff[OutcomeList] {
	if i >= len(exprs) {
		return kont.Return[kont.Resumed](OutcomeList{Values: acc})
	}
	return kont.Bind(evalExpr(exprs[i], env, ctx), func(o Outcome) Eff[OutcomeList] {
		if o.Exc != nil {
			return kont.Return[kont.Resumed](OutcomeList{Exc: o.Exc})
		}
		if o.Halted {
			return kont.Return[kont.Resumed](OutcomeList{Halted: true, HaltKind: o.HaltKind})
		}
		return evalExprListFrom(exprs, i+1, append(acc, o.Value), env, ctx)
	})
}

// evalExpr evaluates a single expression node to an Outcome.
func evalExpr(node ast.Expr, env *Environment, ctx *EvalContext) Eff[Outcome] {
	switch n := node.(type) {
	case *ast.ConstExpr:
		return pureValue(constValue(n))
	case *ast.NameExpr:
		if v, ok := env.Get(n.Name); ok {
			return pureValue(v)
		}
		return pureExc(NewException(NameError, n.Span(), "name '%s' is not defined", n.Name))
	case *ast.ListExpr:
		return kont.Bind(evalExprList(n.Elements, env, ctx), func(o OutcomeList) Eff[Outcome] {
			if o.Exc != nil {
				return pureExc(o.Exc)
			}
			if o.Halted {
				return pureHalt(o.HaltKind)
			}
			return pureValue(NewList(o.Values))
		})
	case *ast.UnaryExpr:
		return bindEval(evalExpr(n.Operand, env, ctx), func(v Value) Eff[Outcome] {
			r, exc := UnaryOp(n.Op, v, n.Span())
			if exc != nil {
				return pureExc(exc)
			}
			return pureValue(r)
		})
	case *ast.BinaryExpr:
		return evalBinary(n, env, ctx)
	case *ast.SubscriptExpr:
		return evalSubscript(n, env, ctx)
	case *ast.AttributeExpr:
		return bindEval(evalExpr(n.Target, env, ctx), func(v Value) Eff[Outcome] {
			rec, ok := v.(RecordValue)
			if !ok {
				return pureExc(NewException(AttributeError, n.Span(), "'%s' object has no attribute '%s'", v.Type(), n.Name))
			}
			attr, ok := rec.Attrs.Get(n.Name)
			if !ok {
				return pureExc(NewException(AttributeError, n.Span(), "'%s' object has no attribute '%s'", rec.Name, n.Name))
			}
			return pureValue(attr)
		})
	case *ast.CallExpr:
		return evalCall(n, env, ctx)
	}
	return pureExc(NewException(InternalError, node.Span(), "unhandled expression node %T", node))
}

func constValue(n *ast.ConstExpr) Value {
	switch n.Kind {
	case ast.ConstInt:
		return IntValue(n.Int)
	case ast.ConstFloat:
		return FloatValue(n.Flt)
	case ast.ConstString:
		return StringValue(n.Str)
	case ast.ConstBool:
		return BoolValue(n.Bool)
	default:
		return None
	}
}

func evalBinary(n *ast.BinaryExpr, env *Environment, ctx *EvalContext) Eff[Outcome] {
	// and/or short-circuit: the right operand is only evaluated when
	// needed, matching Python semantics.
	if n.Op == ast.OpAnd || n.Op == ast.OpOr {
		return bindEval(evalExpr(n.Left, env, ctx), func(l Value) Eff[Outcome] {
			if n.Op == ast.OpAnd && !l.Truthy() {
				return pureValue(l)
			}
			if n.Op == ast.OpOr && l.Truthy() {
				return pureValue(l)
			}
			return evalExpr(n.Right, env, ctx)
		})
	}
	return bindEval(evalExpr(n.Left, env, ctx), func(l Value) Eff[Outcome] {
		return bindEval(evalExpr(n.Right, env, ctx), func(r Value) Eff[Outcome] {
			v, exc := BinaryOp(n.Op, l, r, n.Span())
			if exc != nil {
				return pureExc(exc)
			}
			return pureValue(v)
		})
	})
}

func evalSubscript(n *ast.SubscriptExpr, env *Environment, ctx *EvalContext) Eff[Outcome] {
	return bindEval(evalExpr(n.Target, env, ctx), func(target Value) Eff[Outcome] {
		return bindEval(evalExpr(n.Index, env, ctx), func(idx Value) Eff[Outcome] {
			v, exc := subscriptGet(target, idx, n.Span())
			if exc != nil {
				return pureExc(exc)
			}
			return pureValue(v)
		})
	})
}

// subscriptGet implements list[int]/string[int] with negative-index
// wraparound and bounds checking, per spec.md 4.3.
func subscriptGet(target, idx Value, span ast.Span) (Value, *Exception) {
	i, ok := asInt(idx)
	if !ok {
		return nil, NewException(TypeError, span, "%s indices must be integers", target.Type())
	}
	switch t := target.(type) {
	case ListValue:
		elems := *t.Elements
		pos, ok := normalizeIndex(i, int64(len(elems)))
		if !ok {
			return nil, NewException(ValueError, span, "list index out of range")
		}
		return elems[pos], nil
	case StringValue:
		runes := []rune(string(t))
		pos, ok := normalizeIndex(i, int64(len(runes)))
		if !ok {
			return nil, NewException(ValueError, span, "string index out of range")
		}
		return StringValue(string(runes[pos])), nil
	default:
		return nil, NewException(TypeError, span, "'%s' object is not subscriptable", target.Type())
	}
}

func normalizeIndex(i, length int64) (int64, bool) {
	if i < 0 {
		i += length
	}
	if i < 0 || i >= length {
		return 0, false
	}
	return i, true
}

func evalCall(n *ast.CallExpr, env *Environment, ctx *EvalContext) Eff[Outcome] {
	switch fn := n.Func.(type) {
	case *ast.NameExpr:
		if isBuiltin(fn.Name) {
			return kont.Bind(evalExprList(n.Args, env, ctx), func(o OutcomeList) Eff[Outcome] {
				if o.Exc != nil {
					return pureExc(o.Exc)
				}
				if o.Halted {
					return pureHalt(o.HaltKind)
				}
				return evalKwargs(n.Kwargs, env, ctx, func(kwargs []KV) Eff[Outcome] {
					v, exc := callBuiltin(fn.Name, o.Values, kwargs, n.Span(), ctx)
					if exc != nil {
						return pureExc(exc)
					}
					return pureValue(v)
				})
			})
		}
		return kont.Bind(evalExprList(n.Args, env, ctx), func(o OutcomeList) Eff[Outcome] {
			if o.Exc != nil {
				return pureExc(o.Exc)
			}
			if o.Halted {
				return pureHalt(o.HaltKind)
			}
			return evalKwargs(n.Kwargs, env, ctx, func(kwargs []KV) Eff[Outcome] {
				return callExternal(fn.Name, o.Values, kwargs, n.Span(), ctx)
			})
		})
	case *ast.AttributeExpr:
		return bindEval(evalExpr(fn.Target, env, ctx), func(recv Value) Eff[Outcome] {
			rec, ok := recv.(RecordValue)
			if !ok {
				return pureExc(NewException(TypeError, n.Span(), "'%s' object has no method '%s'", recv.Type(), fn.Name))
			}
			return kont.Bind(evalExprList(n.Args, env, ctx), func(o OutcomeList) Eff[Outcome] {
				if o.Exc != nil {
					return pureExc(o.Exc)
				}
				if o.Halted {
					return pureHalt(o.HaltKind)
				}
				return evalKwargs(n.Kwargs, env, ctx, func(kwargs []KV) Eff[Outcome] {
					return callMethod(rec, fn.Name, o.Values, kwargs, n.Span(), ctx)
				})
			})
		})
	default:
		return pureExc(NewException(TypeError, n.Span(), "expression is not callable"))
	}
}

func evalKwargs(kwargs []ast.KwArg, env *Environment, ctx *EvalContext, next func([]KV) Eff[Outcome]) Eff[Outcome] {
	exprs := make([]ast.Expr, len(kwargs))
	for i, kw := range kwargs {
		exprs[i] = kw.Value
	}
	return kont.Bind(evalExprList(exprs, env, ctx), func(o OutcomeList) Eff[Outcome] {
		if o.Exc != nil {
			return pureExc(o.Exc)
		}
		if o.Halted {
			return pureHalt(o.HaltKind)
		}
		kvs := make([]KV, len(kwargs))
		for i, kw := range kwargs {
			kvs[i] = KV{Key: StringValue(kw.Name), Value: o.Values[i]}
		}
		return next(kvs)
	})
}

// callExternal suspends on ExternalCallOp per spec.md 4.5/4.3, to be
// satisfied by the driver.
func callExternal(name string, args []Value, kwargs []KV, span ast.Span, ctx *EvalContext) Eff[Outcome] {
	if kind, halted := ctx.checkWall(); halted {
		return pureHalt(kind)
	}
	op := ExternalCallOp{Name: name, Args: args, Kwargs: kwargs, Span: span}
	return kont.Bind(performExternalCall(op), func(r Reply) Eff[Outcome] {
		if kind, halted := ctx.checkWall(); halted {
			return pureHalt(kind)
		}
		if r.Err != nil {
			return pureExc(r.Err)
		}
		return pureValue(r.Value)
	})
}

// callMethod suspends on MethodCallOp. If the driver has no method-dispatch
// support wired up, it resumes with a NotImplementedError reply — spec.md
// 4.5's "standard mode" conversion.
func callMethod(recv RecordValue, name string, args []Value, kwargs []KV, span ast.Span, ctx *EvalContext) Eff[Outcome] {
	if kind, halted := ctx.checkWall(); halted {
		return pureHalt(kind)
	}
	op := MethodCallOp{Receiver: recv, Name: name, Args: args, Kwargs: kwargs, Span: span}
	return kont.Bind(performMethodCall(op), func(r Reply) Eff[Outcome] {
		if kind, halted := ctx.checkWall(); halted {
			return pureHalt(kind)
		}
		if r.Err != nil {
			return pureExc(r.Err)
		}
		return pureValue(r.Value)
	})
}

// execStmts runs a statement list in order, short-circuiting on the first
// exception or halt (spec.md 7: "statement bodies terminate on first
// error").
func execStmts(stmts []ast.Stmt, env *Environment, ctx *EvalContext) Eff[Outcome] {
	if len(stmts) == 0 {
		return pureOutcome(Outcome{})
	}
	return bindEval(execStmt(stmts[0], env, ctx), func(_ Value) Eff[Outcome] {
		return execStmts(stmts[1:], env, ctx)
	})
}

// execStmt executes a single statement for effect.
func execStmt(node ast.Stmt, env *Environment, ctx *EvalContext) Eff[Outcome] {
	if kind, halted := ctx.tick(); halted {
		return pureHalt(kind)
	}
	switch n := node.(type) {
	case *ast.PassStmt:
		return pureOutcome(Outcome{})
	case *ast.ExprStmt:
		return bindEval(evalExpr(n.X, env, ctx), func(v Value) Eff[Outcome] {
			ctx.LastValue = v
			return pureValue(v)
		})
	case *ast.AssignStmt:
		return execAssign(n, env, ctx)
	case *ast.AnnAssignStmt:
		return execAnnAssign(n, env, ctx)
	case *ast.IfStmt:
		return bindEval(evalExpr(n.Test, env, ctx), func(test Value) Eff[Outcome] {
			if test.Truthy() {
				return execStmts(n.Body, env, ctx)
			}
			return execStmts(n.Else, env, ctx)
		})
	case *ast.ForStmt:
		return execFor(n, env, ctx)
	case *ast.UnsupportedStmt:
		return pureExc(NewException(NotImplementedError, n.Span(), "statement '%s' is not implemented", n.Keyword))
	}
	return pureExc(NewException(InternalError, node.Span(), "unhandled statement node %T", node))
}

func execAssign(n *ast.AssignStmt, env *Environment, ctx *EvalContext) Eff[Outcome] {
	if n.Op == nil {
		return bindEval(evalExpr(n.Value, env, ctx), func(v Value) Eff[Outcome] {
			return assignTo(n.Target, v, env, ctx)
		})
	}
	// Augmented assignment: `x op= e` is `x = x op e`, evaluating the
	// target's current value exactly once (spec.md 4.3).
	return bindEval(readTarget(n.Target, env, ctx), func(cur Value) Eff[Outcome] {
		return bindEval(evalExpr(n.Value, env, ctx), func(rhs Value) Eff[Outcome] {
			v, exc := BinaryOp(*n.Op, cur, rhs, n.Span())
			if exc != nil {
				return pureExc(exc)
			}
			return assignTo(n.Target, v, env, ctx)
		})
	})
}

func execAnnAssign(n *ast.AnnAssignStmt, env *Environment, ctx *EvalContext) Eff[Outcome] {
	if n.Value == nil {
		return pureOutcome(Outcome{}) // annotation-only: a no-op
	}
	return bindEval(evalExpr(n.Value, env, ctx), func(v Value) Eff[Outcome] {
		return assignTo(n.Target, v, env, ctx)
	})
}

// readTarget resolves an assignment target's current value, for augmented
// assignment's single-read rule.
func readTarget(target ast.Expr, env *Environment, ctx *EvalContext) Eff[Outcome] {
	switch t := target.(type) {
	case *ast.NameExpr:
		if v, ok := env.Get(t.Name); ok {
			return pureValue(v)
		}
		return pureExc(NewException(NameError, t.Span(), "name '%s' is not defined", t.Name))
	case *ast.SubscriptExpr:
		return evalSubscript(t, env, ctx)
	case *ast.AttributeExpr:
		return pureExc(NewException(NotImplementedError, t.Span(), "augmented assignment on record attributes is not implemented"))
	}
	return pureExc(NewException(InternalError, target.Span(), "unsupported assignment target %T", target))
}

// assignTo implements spec.md 4.3's assignment targets: simple names and
// list subscripts. Attribute assignment is explicitly out of scope (see
// SPEC_FULL.md 4.3's Open Question resolution).
func assignTo(target ast.Expr, v Value, env *Environment, ctx *EvalContext) Eff[Outcome] {
	switch t := target.(type) {
	case *ast.NameExpr:
		env.Assign(t.Name, v)
		return pureOutcome(Outcome{})
	case *ast.SubscriptExpr:
		return bindEval(evalExpr(t.Target, env, ctx), func(container Value) Eff[Outcome] {
			return bindEval(evalExpr(t.Index, env, ctx), func(idx Value) Eff[Outcome] {
				exc := subscriptSet(container, idx, v, t.Span())
				if exc != nil {
					return pureExc(exc)
				}
				return pureOutcome(Outcome{})
			})
		})
	case *ast.AttributeExpr:
		return pureExc(NewException(NotImplementedError, t.Span(), "attribute assignment is not implemented"))
	}
	return pureExc(NewException(InternalError, target.Span(), "unsupported assignment target %T", target))
}

func subscriptSet(container, idx, v Value, span ast.Span) *Exception {
	list, ok := container.(ListValue)
	if !ok {
		return NewException(TypeError, span, "'%s' object does not support item assignment", container.Type())
	}
	i, ok := asInt(idx)
	if !ok {
		return NewException(TypeError, span, "list indices must be integers")
	}
	elems := *list.Elements
	pos, ok := normalizeIndex(i, int64(len(elems)))
	if !ok {
		return NewException(ValueError, span, "list index out of range")
	}
	elems[pos] = v
	return nil
}

// execFor implements the iteration protocol from spec.md 4.3: Range yields
// 0..n (frozen at loop entry, which is automatic since Range.N never
// changes), List yields elements read by current index each iteration (so
// mutation during iteration is visible), String yields single-character
// strings.
func execFor(n *ast.ForStmt, env *Environment, ctx *EvalContext) Eff[Outcome] {
	return bindEval(evalExpr(n.Iter, env, ctx), func(iter Value) Eff[Outcome] {
		step, exc := iteratorFor(iter, n.Span())
		if exc != nil {
			return pureExc(exc)
		}
		return runForLoop(0, step, n.Var, n.Body, env, ctx)
	})
}

type iterStep func(i int64) (Value, bool)

func iteratorFor(v Value, span ast.Span) (iterStep, *Exception) {
	switch t := v.(type) {
	case RangeValue:
		n := t.N
		return func(i int64) (Value, bool) {
			if i >= n {
				return nil, false
			}
			return IntValue(i), true
		}, nil
	case ListValue:
		return func(i int64) (Value, bool) {
			elems := *t.Elements
			if i >= int64(len(elems)) {
				return nil, false
			}
			return elems[i], true
		}, nil
	case StringValue:
		runes := []rune(string(t))
		return func(i int64) (Value, bool) {
			if i >= int64(len(runes)) {
				return nil, false
			}
			return StringValue(string(runes[i])), true
		}, nil
	default:
		return nil, NewException(TypeError, span, "'%s' object is not iterable", v.Type())
	}
}

func runForLoop(i int64, step iterStep, loopVar string, body []ast.Stmt, env *Environment, ctx *EvalContext) Eff[Outcome] {
	v, ok := step(i)
	if !ok {
		return pureOutcome(Outcome{})
	}
	env.Assign(loopVar, v)
	return bindEval(execStmts(body, env, ctx), func(_ Value) Eff[Outcome] {
		return runForLoop(i+1, step, loopVar, body, env, ctx)
	})
}
