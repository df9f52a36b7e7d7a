package engine

import (
	"testing"

	"github.com/cwbudde/go-pyembed/internal/ast"
)

func TestBinaryOpIntArithmetic(t *testing.T) {
	v, exc := BinaryOp(ast.OpAdd, IntValue(1), IntValue(2), ast.Span{})
	if exc != nil {
		t.Fatalf("unexpected exception: %v", exc)
	}
	if v != IntValue(3) {
		t.Fatalf("got %v, want IntValue(3)", v)
	}
}

func TestBinaryOpIntFloatCoercesToFloat(t *testing.T) {
	v, exc := BinaryOp(ast.OpAdd, IntValue(1), FloatValue(2.5), ast.Span{})
	if exc != nil {
		t.Fatalf("unexpected exception: %v", exc)
	}
	if v != FloatValue(3.5) {
		t.Fatalf("got %v, want FloatValue(3.5)", v)
	}
}

func TestBinaryOpStringPlusIntIsTypeError(t *testing.T) {
	v, exc := BinaryOp(ast.OpAdd, IntValue(1), StringValue("1"), ast.Span{})
	if exc == nil {
		t.Fatalf("expected TypeError, got value %v", v)
	}
	if exc.Kind != TypeError {
		t.Fatalf("got kind %s, want TypeError", exc.Kind)
	}
	want := "unsupported operand type(s) for +: 'int' and 'str'"
	if exc.Message != want {
		t.Fatalf("got message %q, want %q", exc.Message, want)
	}
}

func TestBinaryOpIntOverflow(t *testing.T) {
	_, exc := BinaryOp(ast.OpAdd, IntValue(1<<62), IntValue(1<<62), ast.Span{})
	if exc == nil || exc.Kind != TypeError {
		t.Fatalf("expected overflow TypeError, got %v", exc)
	}
}

func TestFloorDivAndModMatchPythonSemantics(t *testing.T) {
	v, exc := BinaryOp(ast.OpFloorDiv, IntValue(-7), IntValue(2), ast.Span{})
	if exc != nil || v != IntValue(-4) {
		t.Fatalf("got %v, %v, want IntValue(-4)", v, exc)
	}
	v, exc = BinaryOp(ast.OpMod, IntValue(-7), IntValue(2), ast.Span{})
	if exc != nil || v != IntValue(1) {
		t.Fatalf("got %v, %v, want IntValue(1)", v, exc)
	}
}

func TestDivisionByZero(t *testing.T) {
	_, exc := BinaryOp(ast.OpDiv, IntValue(1), IntValue(0), ast.Span{})
	if exc == nil || exc.Kind != ZeroDivisionError {
		t.Fatalf("expected ZeroDivisionError, got %v", exc)
	}
}

func TestEqualityCrossType(t *testing.T) {
	if !Equal(IntValue(1), BoolValue(true)) {
		t.Fatal("expected Int(1) == True")
	}
	if Equal(IntValue(0), NoneValue{}) {
		t.Fatal("Int(0) must not equal None")
	}
}

func TestNaNNeverEqualOrOrdered(t *testing.T) {
	nan := FloatValue(nanValue())
	if Equal(nan, nan) {
		t.Fatal("NaN must not equal itself")
	}
	for _, op := range []ast.BinOp{ast.OpLt, ast.OpLte, ast.OpGt, ast.OpGte} {
		v, exc := BinaryOp(op, nan, FloatValue(1), ast.Span{})
		if exc != nil {
			t.Fatalf("unexpected exception comparing against NaN: %v", exc)
		}
		if v.(BoolValue) {
			t.Fatalf("comparison %v against NaN must be False, got True", op)
		}
	}
}

func nanValue() float64 {
	var zero float64
	return zero / zero
}

func TestListConcatLenAdditivity(t *testing.T) {
	a := NewList([]Value{IntValue(1), IntValue(2)})
	b := NewList([]Value{IntValue(3)})
	v, exc := BinaryOp(ast.OpAdd, a, b, ast.Span{})
	if exc != nil {
		t.Fatalf("unexpected exception: %v", exc)
	}
	la, _ := Len(a)
	lb, _ := Len(b)
	lr, _ := Len(v)
	if lr != la+lb {
		t.Fatalf("len(a+b) = %d, want %d", lr, la+lb)
	}
}

func TestTruthiness(t *testing.T) {
	cases := []struct {
		v    Value
		want bool
	}{
		{IntValue(0), false},
		{IntValue(1), true},
		{FloatValue(0), false},
		{StringValue(""), false},
		{StringValue("x"), true},
		{NewList(nil), false},
		{NewList([]Value{IntValue(1)}), true},
		{None, false},
		{BoolValue(false), false},
	}
	for _, c := range cases {
		if got := c.v.Truthy(); got != c.want {
			t.Errorf("%v.Truthy() = %v, want %v", c.v, got, c.want)
		}
	}
}
