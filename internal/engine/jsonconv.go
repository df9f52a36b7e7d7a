package engine

import (
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// JSON interchange is how this engine satisfies spec.md 4.6's "dicts map
// to an ordered key/value pair list" resolution (4.3's Open Question:
// dicts are a conversion shape, not a first-class Value). A Go map has no
// defined iteration order, so the only way to preserve source key order
// end to end is to never round-trip through a map[string]any in the
// first place: gjson.Parse walks object keys in document order, and
// sjson.Set appends in call order, so threading JSON text straight
// through both libraries keeps the order intact without an intermediate
// unordered container.

// dictRecordName is the Record.Name used for a dict converted to a
// RecordValue, distinguishing it from a host dataclass record.
const dictRecordName = "dict"

// JSONToValue parses a JSON document into an engine Value. JSON objects
// become a RecordValue named "dict" (not frozen, FieldNames in document
// order) so the existing attribute-access machinery can read them; JSON
// arrays become ListValue; scalars map directly.
func JSONToValue(doc string) (Value, error) {
	if !gjson.Valid(doc) {
		return nil, fmt.Errorf("engine: invalid JSON document")
	}
	return gjsonToValue(gjson.Parse(doc)), nil
}

func gjsonToValue(r gjson.Result) Value {
	switch r.Type {
	case gjson.Null:
		return None
	case gjson.True:
		return BoolValue(true)
	case gjson.False:
		return BoolValue(false)
	case gjson.Number:
		if r.Num == float64(int64(r.Num)) && !hasDecimalPoint(r.Raw) {
			return IntValue(int64(r.Num))
		}
		return FloatValue(r.Num)
	case gjson.String:
		return StringValue(r.Str)
	}
	if r.IsArray() {
		var elems []Value
		r.ForEach(func(_, val gjson.Result) bool {
			elems = append(elems, gjsonToValue(val))
			return true
		})
		return NewList(elems)
	}
	if r.IsObject() {
		attrs := NewAttrMap()
		var names []string
		r.ForEach(func(key, val gjson.Result) bool {
			name := key.Str
			attrs.Set(name, gjsonToValue(val))
			names = append(names, name)
			return true
		})
		return RecordValue{Name: dictRecordName, FieldNames: names, Attrs: attrs}
	}
	return None
}

func hasDecimalPoint(raw string) bool {
	for i := 0; i < len(raw); i++ {
		if raw[i] == '.' || raw[i] == 'e' || raw[i] == 'E' {
			return true
		}
	}
	return false
}

// ValueToJSON renders an engine Value as a JSON document, preserving a
// dict RecordValue's key order by calling sjson.SetRaw once per key in
// FieldNames order rather than marshaling a Go map.
func ValueToJSON(v Value) (string, error) {
	switch t := v.(type) {
	case NoneValue:
		return "null", nil
	case IntValue:
		return fmt.Sprintf("%d", int64(t)), nil
	case FloatValue:
		return fmt.Sprintf("%g", float64(t)), nil
	case StringValue:
		raw, err := sjson.Set("{}", "v", string(t))
		if err != nil {
			return "", err
		}
		return gjson.Get(raw, "v").Raw, nil
	case BoolValue:
		if t {
			return "true", nil
		}
		return "false", nil
	case ListValue, RecordValue:
		return compositeToJSON(t)
	default:
		return "", fmt.Errorf("engine: value of type %s has no JSON representation", v.Type())
	}
}

func compositeToJSON(v Value) (string, error) {
	switch t := v.(type) {
	case ListValue:
		doc := "[]"
		for i, e := range *t.Elements {
			ed, err := ValueToJSON(e)
			if err != nil {
				return "", err
			}
			raw, err := sjson.SetRaw(doc, fmt.Sprintf("%d", i), ed)
			if err != nil {
				return "", err
			}
			doc = raw
		}
		return doc, nil
	case RecordValue:
		doc := "{}"
		for _, name := range t.FieldNames {
			attr, ok := t.Attrs.Get(name)
			if !ok {
				continue
			}
			ad, err := ValueToJSON(attr)
			if err != nil {
				return "", err
			}
			raw, err := sjson.SetRaw(doc, name, ad)
			if err != nil {
				return "", err
			}
			doc = raw
		}
		return doc, nil
	default:
		return "", fmt.Errorf("engine: value of type %s has no JSON representation", v.Type())
	}
}
