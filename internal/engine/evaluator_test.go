package engine

import (
	"testing"

	"code.hybscloud.com/kont"

	"github.com/cwbudde/go-pyembed/internal/ast"
)

func runExpr(t *testing.T, expr ast.Expr) Outcome {
	t.Helper()
	env := NewEnvironment()
	ctx := &EvalContext{Stdout: &lineWriter{}}
	o, susp := kont.Step[Outcome](evalExpr(expr, env, ctx))
	if susp != nil {
		t.Fatalf("unexpected suspension on a pure expression: %v", susp.Op())
	}
	return o
}

func name(n string) *ast.NameExpr {
	e := &ast.NameExpr{Name: n}
	e.SetSpan(ast.Span{})
	return e
}

func constInt(v int64) *ast.ConstExpr {
	e := &ast.ConstExpr{Kind: ast.ConstInt, Int: v}
	e.SetSpan(ast.Span{})
	return e
}

func TestEvalNameLookupMissingIsNameError(t *testing.T) {
	o := runExpr(t, name("undefined"))
	if o.Exc == nil || o.Exc.Kind != NameError {
		t.Fatalf("got %+v, want NameError", o)
	}
}

func TestEvalListSubscriptNegativeIndex(t *testing.T) {
	lst := &ast.ListExpr{Elements: []ast.Expr{constInt(10), constInt(20), constInt(30)}}
	lst.SetSpan(ast.Span{})
	idx := &ast.ConstExpr{Kind: ast.ConstInt, Int: -1}
	idx.SetSpan(ast.Span{})
	sub := &ast.SubscriptExpr{Target: lst, Index: idx}
	sub.SetSpan(ast.Span{})

	o := runExpr(t, sub)
	if o.Exc != nil {
		t.Fatalf("unexpected exception: %v", o.Exc)
	}
	if o.Value != IntValue(30) {
		t.Fatalf("got %v, want IntValue(30)", o.Value)
	}
}

func TestEvalListSubscriptOutOfRangeIsValueError(t *testing.T) {
	lst := &ast.ListExpr{Elements: []ast.Expr{constInt(1)}}
	lst.SetSpan(ast.Span{})
	idx := constInt(5)
	sub := &ast.SubscriptExpr{Target: lst, Index: idx}
	sub.SetSpan(ast.Span{})

	o := runExpr(t, sub)
	if o.Exc == nil || o.Exc.Kind != ValueError {
		t.Fatalf("got %+v, want ValueError", o)
	}
}

func TestRunForLoopSumsRange(t *testing.T) {
	src := "total = 0\n" +
		"for i in range(5):\n" +
		"    total += i\n" +
		"total\n"
	prog, perr := Compile(src, "<test>", nil, nil)
	if perr != nil {
		t.Fatalf("parse error: %v", perr)
	}
	exit, _, _ := prog.Run(nil, Limits{InstructionBudget: 10_000}, nil)
	if exit.Kind != ExitReturn || exit.Value != IntValue(10) {
		t.Fatalf("got %v, want Return(Int(10))", exit)
	}
}

func TestIfElseBranching(t *testing.T) {
	src := "x = 5\n" +
		"if x > 3:\n" +
		"    y = 'big'\n" +
		"else:\n" +
		"    y = 'small'\n" +
		"y\n"
	prog, perr := Compile(src, "<test>", nil, nil)
	if perr != nil {
		t.Fatalf("parse error: %v", perr)
	}
	exit, _, _ := prog.Run(nil, Limits{InstructionBudget: 10_000}, nil)
	if exit.Kind != ExitReturn || exit.Value != StringValue("big") {
		t.Fatalf("got %v, want Return(String(big))", exit)
	}
}

func TestStringIterationCharByChar(t *testing.T) {
	src := "out = []\n" +
		"for c in 'ab':\n" +
		"    out = out + [c]\n" +
		"out\n"
	prog, perr := Compile(src, "<test>", nil, nil)
	if perr != nil {
		t.Fatalf("parse error: %v", perr)
	}
	exit, _, _ := prog.Run(nil, Limits{InstructionBudget: 10_000}, nil)
	if exit.Kind != ExitReturn {
		t.Fatalf("got %v, want Return(...)", exit)
	}
	lst, ok := exit.Value.(ListValue)
	if !ok || len(*lst.Elements) != 2 {
		t.Fatalf("got %v, want a two-element list", exit.Value)
	}
	if (*lst.Elements)[0] != StringValue("a") || (*lst.Elements)[1] != StringValue("b") {
		t.Fatalf("got %v, want ['a', 'b']", lst)
	}
}

func TestPrintWritesToStdoutSink(t *testing.T) {
	prog, perr := Compile(`print('hello', 1, True)`, "<test>", nil, nil)
	if perr != nil {
		t.Fatalf("parse error: %v", perr)
	}
	_, out, _ := prog.Run(nil, Limits{InstructionBudget: 10_000}, nil)
	if got, want := out.Stdout(), "hello 1 True\n"; got != want {
		t.Fatalf("got stdout %q, want %q", got, want)
	}
}

func TestValueErrorBuiltinConstructsExceptionValue(t *testing.T) {
	prog, perr := Compile(`ValueError('bad')`, "<test>", nil, nil)
	if perr != nil {
		t.Fatalf("parse error: %v", perr)
	}
	exit, _, _ := prog.Run(nil, Limits{InstructionBudget: 10_000}, nil)
	ev, ok := exit.Value.(ExceptionValue)
	if exit.Kind != ExitReturn || !ok || ev.Exc.Kind != ValueError || ev.Exc.Message != "bad" {
		t.Fatalf("got %v, want Return(ExceptionValue{ValueError, bad})", exit)
	}
}
