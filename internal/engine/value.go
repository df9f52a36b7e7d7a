// Package engine implements the runtime this module embeds: the Value
// model, the environment, the suspension-driven evaluator, the conversion
// layer between host and engine values, and the driver that ties them
// together. It is grounded on the teacher's internal/interp/runtime package
// (one concrete Go type per value variant, rather than a bare interface{}
// type switch), adapted from DWScript's Pascal-flavored object model to
// Python's simpler one.
package engine

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/cwbudde/go-pyembed/internal/ast"
)

// Value is the closed set of runtime values the evaluator produces and
// consumes. Every concrete type below implements it.
type Value interface {
	// Type returns the Python-facing type name, used in TypeError messages.
	Type() string
	// String renders the display form (Python's str()).
	String() string
	// Repr renders the debug form (Python's repr()).
	Repr() string
	// Truthy implements Python truthiness.
	Truthy() bool
}

// IntValue is a signed 64-bit integer. Arithmetic overflow is checked, not
// wrapped, per spec.
type IntValue int64

func (IntValue) Type() string       { return "int" }
func (v IntValue) String() string   { return strconv.FormatInt(int64(v), 10) }
func (v IntValue) Repr() string     { return v.String() }
func (v IntValue) Truthy() bool     { return v != 0 }

// FloatValue is an IEEE-754 double.
type FloatValue float64

func (FloatValue) Type() string { return "float" }
func (v FloatValue) String() string {
	f := float64(v)
	if math.IsInf(f, 1) {
		return "inf"
	}
	if math.IsInf(f, -1) {
		return "-inf"
	}
	if math.IsNaN(f) {
		return "nan"
	}
	if f == math.Trunc(f) && math.Abs(f) < 1e16 {
		return strconv.FormatFloat(f, 'f', 1, 64)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}
func (v FloatValue) Repr() string { return v.String() }
func (v FloatValue) Truthy() bool { return float64(v) != 0 }

// StringValue is an immutable, UTF-8 string.
type StringValue string

func (StringValue) Type() string     { return "str" }
func (v StringValue) String() string { return string(v) }
func (v StringValue) Repr() string   { return "'" + strings.ReplaceAll(string(v), "'", "\\'") + "'" }
func (v StringValue) Truthy() bool   { return len(v) != 0 }

// BoolValue is one of the two boolean singletons.
type BoolValue bool

func (BoolValue) Type() string { return "bool" }
func (v BoolValue) String() string {
	if v {
		return "True"
	}
	return "False"
}
func (v BoolValue) Repr() string { return v.String() }
func (v BoolValue) Truthy() bool { return bool(v) }

// NoneValue is the single None singleton.
type NoneValue struct{}

func (NoneValue) Type() string   { return "NoneType" }
func (NoneValue) String() string { return "None" }
func (NoneValue) Repr() string   { return "None" }
func (NoneValue) Truthy() bool   { return false }

// None is the shared singleton instance, since it carries no state.
var None = NoneValue{}

// ListValue is a mutable ordered sequence. Assignment never copies
// Elements — aliasing a list shares the same backing slice header's
// referent through the pointer below, matching spec.md's "lists passed
// into functions are aliased" invariant.
type ListValue struct {
	Elements *[]Value
}

// NewList builds a ListValue around elems; the slice is not copied, so the
// list shares elems' backing array.
func NewList(elems []Value) ListValue {
	e := elems
	return ListValue{Elements: &e}
}

func (ListValue) Type() string { return "list" }
func (v ListValue) String() string {
	parts := make([]string, len(*v.Elements))
	for i, e := range *v.Elements {
		parts[i] = e.Repr()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
func (v ListValue) Repr() string { return v.String() }
func (v ListValue) Truthy() bool { return len(*v.Elements) != 0 }

// RangeValue is the built-in range(n): an iterable producing 0..N-1.
type RangeValue struct {
	N int64
}

func (RangeValue) Type() string     { return "range" }
func (v RangeValue) String() string { return fmt.Sprintf("range(0, %d)", v.N) }
func (v RangeValue) Repr() string   { return v.String() }
func (v RangeValue) Truthy() bool   { return v.N != 0 }

// RecordValue represents a host-defined dataclass-like instance, converted
// into the engine per the Conversion Layer (convert.go).
type RecordValue struct {
	Name       string
	TypeID     reflect.Type
	FieldNames []string
	Attrs      *AttrMap
	Frozen     bool
}

func (RecordValue) Type() string { return "record" }
func (v RecordValue) String() string {
	return v.Repr()
}
func (v RecordValue) Repr() string {
	parts := make([]string, 0, len(v.FieldNames))
	for _, name := range v.FieldNames {
		val, _ := v.Attrs.Get(name)
		parts = append(parts, fmt.Sprintf("%s=%s", name, val.Repr()))
	}
	return fmt.Sprintf("%s(%s)", v.Name, strings.Join(parts, ", "))
}
func (RecordValue) Truthy() bool { return true }

// ExceptionValue wraps a raised-or-constructed Exception as a first-class
// Value, distinct from the evaluator's exception-propagation control state
// (see exception.go).
type ExceptionValue struct {
	Exc *Exception
}

func (ExceptionValue) Type() string     { return "exception" }
func (v ExceptionValue) String() string { return v.Exc.String() }
func (v ExceptionValue) Repr() string   { return v.Exc.String() }
func (ExceptionValue) Truthy() bool     { return true }

// Len implements the builtin len() and the length operation spec.md 4.1
// lists for String / List / Range.
func Len(v Value) (int64, bool) {
	switch t := v.(type) {
	case StringValue:
		return int64(len([]rune(string(t)))), true
	case ListValue:
		return int64(len(*t.Elements)), true
	case RangeValue:
		return t.N, true
	default:
		return 0, false
	}
}

// Equal implements spec.md 4.1's structural equality table, including the
// documented NaN exception (4.3 Open Question): Float NaN never compares
// equal to itself or anything else.
func Equal(a, b Value) bool {
	switch av := a.(type) {
	case IntValue:
		switch bv := b.(type) {
		case IntValue:
			return av == bv
		case FloatValue:
			return float64(av) == float64(bv)
		case BoolValue:
			return int64(av) == boolToInt(bv)
		}
		return false
	case FloatValue:
		switch bv := b.(type) {
		case IntValue:
			return float64(av) == float64(bv)
		case FloatValue:
			return float64(av) == float64(bv)
		case BoolValue:
			return float64(av) == float64(boolToInt(bv))
		}
		return false
	case BoolValue:
		switch bv := b.(type) {
		case BoolValue:
			return av == bv
		case IntValue:
			return boolToInt(av) == int64(bv)
		case FloatValue:
			return float64(boolToInt(av)) == float64(bv)
		}
		return false
	case StringValue:
		bv, ok := b.(StringValue)
		return ok && av == bv
	case NoneValue:
		_, ok := b.(NoneValue)
		return ok
	case ListValue:
		bv, ok := b.(ListValue)
		if !ok || len(*av.Elements) != len(*bv.Elements) {
			return false
		}
		for i, e := range *av.Elements {
			if !Equal(e, (*bv.Elements)[i]) {
				return false
			}
		}
		return true
	case RangeValue:
		bv, ok := b.(RangeValue)
		return ok && av.N == bv.N
	case RecordValue:
		bv, ok := b.(RecordValue)
		return ok && av.Name == bv.Name && av.Attrs.Equal(bv.Attrs)
	case ExceptionValue:
		bv, ok := b.(ExceptionValue)
		return ok && av.Exc.Kind == bv.Exc.Kind && av.Exc.Message == bv.Exc.Message
	}
	return false
}

func boolToInt(b BoolValue) int64 {
	if b {
		return 1
	}
	return 0
}

// asNumeric reports whether v is Int, Float, or Bool (bools behave as
// Int(0)/Int(1) in arithmetic contexts, per spec.md 4.1) and its float64
// value plus whether it was an Int/Bool (so the caller can keep Int results
// Int when both operands are integral).
func asNumeric(v Value) (f float64, isInt bool, ok bool) {
	switch t := v.(type) {
	case IntValue:
		return float64(t), true, true
	case BoolValue:
		return float64(boolToInt(t)), true, true
	case FloatValue:
		return float64(t), false, true
	default:
		return 0, false, false
	}
}

func asInt(v Value) (int64, bool) {
	switch t := v.(type) {
	case IntValue:
		return int64(t), true
	case BoolValue:
		return boolToInt(t), true
	default:
		return 0, false
	}
}

// BinaryOp applies one of spec.md 4.1's arithmetic/comparison operators.
// span is attached to any TypeError/ZeroDivisionError produced.
func BinaryOp(op ast.BinOp, a, b Value, span ast.Span) (Value, *Exception) {
	switch op {
	case ast.OpAdd:
		return opAdd(a, b, span)
	case ast.OpSub:
		return opArith(a, b, span, "-", func(x, y int64) (int64, bool) { return checkedSub(x, y) }, func(x, y float64) float64 { return x - y })
	case ast.OpMul:
		return opMul(a, b, span)
	case ast.OpDiv:
		return opDiv(a, b, span)
	case ast.OpFloorDiv:
		return opFloorDiv(a, b, span)
	case ast.OpMod:
		return opMod(a, b, span)
	case ast.OpEq:
		return BoolValue(Equal(a, b)), nil
	case ast.OpNeq:
		return BoolValue(!Equal(a, b)), nil
	case ast.OpLt, ast.OpLte, ast.OpGt, ast.OpGte:
		return compareOp(op, a, b, span)
	case ast.OpAnd:
		if !a.Truthy() {
			return a, nil
		}
		return b, nil
	case ast.OpOr:
		if a.Truthy() {
			return a, nil
		}
		return b, nil
	}
	return nil, NewException(TypeError, span, "unsupported binary operator")
}

func opAdd(a, b Value, span ast.Span) (Value, *Exception) {
	if as, ok := a.(StringValue); ok {
		if bs, ok := b.(StringValue); ok {
			return as + bs, nil
		}
		return nil, typeErrorFor("+", a, b, span)
	}
	if al, ok := a.(ListValue); ok {
		if bl, ok := b.(ListValue); ok {
			out := make([]Value, 0, len(*al.Elements)+len(*bl.Elements))
			out = append(out, *al.Elements...)
			out = append(out, *bl.Elements...)
			return NewList(out), nil
		}
		return nil, typeErrorFor("+", a, b, span)
	}
	return opArith(a, b, span, "+", checkedAdd, func(x, y float64) float64 { return x + y })
}

func opMul(a, b Value, span ast.Span) (Value, *Exception) {
	return opArith(a, b, span, "*", func(x, y int64) (int64, bool) { return checkedMul(x, y) }, func(x, y float64) float64 { return x * y })
}

func opArith(a, b Value, span ast.Span, sym string, intOp func(int64, int64) (int64, bool), floatOp func(float64, float64) float64) (Value, *Exception) {
	af, aInt, aok := asNumeric(a)
	bf, bInt, bok := asNumeric(b)
	if !aok || !bok {
		return nil, typeErrorFor(sym, a, b, span)
	}
	if aInt && bInt {
		ai, _ := asInt(a)
		bi, _ := asInt(b)
		r, ok := intOp(ai, bi)
		if !ok {
			return nil, NewException(TypeError, span, "integer overflow in arithmetic operation")
		}
		return IntValue(r), nil
	}
	return FloatValue(floatOp(af, bf)), nil
}

func opDiv(a, b Value, span ast.Span) (Value, *Exception) {
	af, _, aok := asNumeric(a)
	bf, _, bok := asNumeric(b)
	if !aok || !bok {
		return nil, typeErrorFor("/", a, b, span)
	}
	if bf == 0 {
		return nil, NewException(ZeroDivisionError, span, "division by zero")
	}
	return FloatValue(af / bf), nil
}

func opFloorDiv(a, b Value, span ast.Span) (Value, *Exception) {
	af, aInt, aok := asNumeric(a)
	bf, bInt, bok := asNumeric(b)
	if !aok || !bok {
		return nil, typeErrorFor("//", a, b, span)
	}
	if aInt && bInt {
		bi, _ := asInt(b)
		if bi == 0 {
			return nil, NewException(ZeroDivisionError, span, "integer division or modulo by zero")
		}
		ai, _ := asInt(a)
		if ai == math.MinInt64 && bi == -1 {
			return nil, NewException(TypeError, span, "integer overflow in arithmetic operation")
		}
		return IntValue(floorDivInt(ai, bi)), nil
	}
	if bf == 0 {
		return nil, NewException(ZeroDivisionError, span, "float floor division by zero")
	}
	return FloatValue(math.Floor(af / bf)), nil
}

func opMod(a, b Value, span ast.Span) (Value, *Exception) {
	af, aInt, aok := asNumeric(a)
	bf, bInt, bok := asNumeric(b)
	if !aok || !bok {
		return nil, typeErrorFor("%", a, b, span)
	}
	if aInt && bInt {
		bi, _ := asInt(b)
		if bi == 0 {
			return nil, NewException(ZeroDivisionError, span, "integer division or modulo by zero")
		}
		ai, _ := asInt(a)
		return IntValue(floorModInt(ai, bi)), nil
	}
	if bf == 0 {
		return nil, NewException(ZeroDivisionError, span, "float modulo by zero")
	}
	return FloatValue(math.Mod(math.Mod(af, bf)+bf, bf)), nil
}

func floorDivInt(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func floorModInt(a, b int64) int64 {
	m := a % b
	if m != 0 && ((m < 0) != (b < 0)) {
		m += b
	}
	return m
}

func checkedAdd(a, b int64) (int64, bool) {
	r := a + b
	if (r > a) == (b > 0) {
		return r, true
	}
	return 0, false
}

func checkedSub(a, b int64) (int64, bool) {
	r := a - b
	if (r < a) == (b > 0) {
		return r, true
	}
	return 0, false
}

func checkedMul(a, b int64) (int64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	if (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) {
		return 0, false
	}
	r := a * b
	if r/b != a {
		return 0, false
	}
	return r, true
}

func compareOp(op ast.BinOp, a, b Value, span ast.Span) (Value, *Exception) {
	if as, ok := a.(StringValue); ok {
		bs, ok := b.(StringValue)
		if !ok {
			return nil, typeErrorFor(compareSym(op), a, b, span)
		}
		return BoolValue(compareResult(op, strings.Compare(string(as), string(bs)))), nil
	}
	if al, ok := a.(ListValue); ok {
		bl, ok := b.(ListValue)
		if !ok {
			return nil, typeErrorFor(compareSym(op), a, b, span)
		}
		return BoolValue(compareResult(op, compareLists(*al.Elements, *bl.Elements))), nil
	}
	af, _, aok := asNumeric(a)
	bf, _, bok := asNumeric(b)
	if !aok || !bok {
		return nil, typeErrorFor(compareSym(op), a, b, span)
	}
	if math.IsNaN(af) || math.IsNaN(bf) {
		return BoolValue(false), nil
	}
	switch {
	case af < bf:
		return BoolValue(compareResult(op, -1)), nil
	case af > bf:
		return BoolValue(compareResult(op, 1)), nil
	default:
		return BoolValue(compareResult(op, 0)), nil
	}
}

func compareLists(a, b []Value) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if Equal(a[i], b[i]) {
			continue
		}
		if r, ex := compareOp(ast.OpLt, a[i], b[i], ast.Span{}); ex == nil && r.(BoolValue) {
			return -1
		}
		return 1
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}

func compareResult(op ast.BinOp, cmp int) bool {
	switch op {
	case ast.OpLt:
		return cmp < 0
	case ast.OpLte:
		return cmp <= 0
	case ast.OpGt:
		return cmp > 0
	case ast.OpGte:
		return cmp >= 0
	}
	return false
}

func compareSym(op ast.BinOp) string {
	switch op {
	case ast.OpLt:
		return "<"
	case ast.OpLte:
		return "<="
	case ast.OpGt:
		return ">"
	case ast.OpGte:
		return ">="
	}
	return "?"
}

func typeErrorFor(sym string, a, b Value, span ast.Span) *Exception {
	return NewException(TypeError, span, "unsupported operand type(s) for %s: '%s' and '%s'", sym, a.Type(), b.Type())
}

// UnaryOp applies spec.md 4.1's unary operators (negation, logical not).
func UnaryOp(op ast.UnaryOp, v Value, span ast.Span) (Value, *Exception) {
	switch op {
	case ast.OpNeg:
		switch t := v.(type) {
		case IntValue:
			if t == math.MinInt64 {
				return nil, NewException(TypeError, span, "integer overflow in arithmetic operation")
			}
			return IntValue(-t), nil
		case FloatValue:
			return FloatValue(-t), nil
		case BoolValue:
			return IntValue(-boolToInt(t)), nil
		}
		return nil, NewException(TypeError, span, "bad operand type for unary -: '%s'", v.Type())
	case ast.OpNot:
		return BoolValue(!v.Truthy()), nil
	}
	return nil, NewException(TypeError, span, "unsupported unary operator")
}
