package engine

import (
	"fmt"
	"reflect"
)

// Record is the capability probe a host struct opts into so the
// Conversion Layer recognizes it as a dataclass-like instance, per
// spec.md 4.6's "capability probe analogous to 'has a declared-fields
// descriptor'". Go has no reflection equivalent of Python's
// __dataclass_fields__ to detect this automatically, so an explicit
// marker interface is the idiomatic substitute.
type Record interface {
	RecordName() string
}

// FrozenRecord is the optional capability a Record implements to report
// its frozen-ness; its absence means not frozen, per spec.md 4.6.
type FrozenRecord interface {
	Record
	RecordFrozen() bool
}

// ToEngine converts a host Go value into an engine Value, per spec.md
// 4.6's Host→Engine direction. reg receives every record type it
// encounters, satisfying spec.md's "mutated transparently whenever a host
// record value flows into the engine".
func ToEngine(v any, reg *RecordRegistry) (Value, error) {
	if v == nil {
		return None, nil
	}
	switch t := v.(type) {
	case Value:
		return t, nil
	case int:
		return IntValue(t), nil
	case int64:
		return IntValue(t), nil
	case float64:
		return FloatValue(t), nil
	case string:
		return StringValue(t), nil
	case bool:
		return BoolValue(t), nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]Value, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			elem, err := ToEngine(rv.Index(i).Interface(), reg)
			if err != nil {
				return nil, err
			}
			out[i] = elem
		}
		return NewList(out), nil
	}
	if rec, ok := v.(Record); ok {
		return recordToEngine(rec, reg)
	}
	return nil, fmt.Errorf("engine: value of type %T has no known conversion to an engine Value", v)
}

func recordToEngine(rec Record, reg *RecordRegistry) (Value, error) {
	rv := reflect.ValueOf(rec)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return None, nil
		}
		rv = rv.Elem()
	}
	t := rv.Type()
	reg.RegisterRecordType(t)

	frozen := false
	if fr, ok := rec.(FrozenRecord); ok {
		frozen = fr.RecordFrozen()
	}

	attrs := NewAttrMap()
	fieldNames := make([]string, 0, t.NumField())
	for _, f := range reflect.VisibleFields(t) {
		if !f.IsExported() || f.Anonymous {
			continue
		}
		val, err := ToEngine(rv.FieldByIndex(f.Index).Interface(), reg)
		if err != nil {
			return nil, err
		}
		attrs.Set(f.Name, val)
		fieldNames = append(fieldNames, f.Name)
	}

	return RecordValue{
		Name:       rec.RecordName(),
		TypeID:     t,
		FieldNames: fieldNames,
		Attrs:      attrs,
		Frozen:     frozen,
	}, nil
}

// ToHost converts an engine Value back into a host Go value, per spec.md
// 4.6's Engine→Host direction. Records whose type_id is registered are
// reconstructed via reflection into a fresh instance of the original host
// type (exported fields matched by name, declared fields only — extra
// attrs are dropped); unregistered records come back as *UnknownRecord.
func ToHost(v Value, reg *RecordRegistry) (any, error) {
	switch t := v.(type) {
	case NoneValue:
		return nil, nil
	case IntValue:
		return int64(t), nil
	case FloatValue:
		return float64(t), nil
	case StringValue:
		return string(t), nil
	case BoolValue:
		return bool(t), nil
	case ListValue:
		out := make([]any, len(*t.Elements))
		for i, e := range *t.Elements {
			hv, err := ToHost(e, reg)
			if err != nil {
				return nil, err
			}
			out[i] = hv
		}
		return out, nil
	case RecordValue:
		return recordToHost(t, reg)
	case ExceptionValue:
		return t.Exc, nil
	default:
		return nil, fmt.Errorf("engine: value of type %s has no known conversion to a host value", v.Type())
	}
}

func recordToHost(rv RecordValue, reg *RecordRegistry) (any, error) {
	if rv.TypeID == nil || !reg.Lookup(rv.TypeID) {
		return NewUnknownRecord(rv), nil
	}
	t := rv.TypeID
	ptr := reflect.New(t) // *T
	for _, name := range rv.FieldNames {
		field := ptr.Elem().FieldByName(name)
		if !field.IsValid() || !field.CanSet() {
			continue
		}
		attr, ok := rv.Attrs.Get(name)
		if !ok {
			continue
		}
		hv, err := ToHost(attr, reg)
		if err != nil {
			return nil, err
		}
		if hv == nil {
			continue
		}
		hvv := reflect.ValueOf(hv)
		if hvv.Type().ConvertibleTo(field.Type()) {
			field.Set(hvv.Convert(field.Type()))
		}
	}
	return ptr.Elem().Interface(), nil
}
