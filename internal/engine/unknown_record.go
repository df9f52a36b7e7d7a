package engine

import "fmt"

// FrozenAssignError is returned when a caller attempts to set an attribute
// on a frozen UnknownRecord, per spec.md 4.6's "raises the host's
// frozen-assignment error" — there is no single canonical Go frozen-struct
// error type in the corpus, so this models the host contract directly.
type FrozenAssignError struct {
	RecordName, Attr string
}

func (e *FrozenAssignError) Error() string {
	return fmt.Sprintf("cannot assign to field %q of frozen record %q", e.Attr, e.RecordName)
}

// UnknownRecord is the stand-in returned Engine→Host when a Record's
// type_id isn't in the RecordRegistry, per spec.md 4.6.
type UnknownRecord struct {
	Name       string
	FieldNames []string
	Attrs      *AttrMap
	Frozen     bool
}

// NewUnknownRecord builds an UnknownRecord from a RecordValue whose type_id
// went unmatched during Engine→Host conversion.
func NewUnknownRecord(rv RecordValue) *UnknownRecord {
	return &UnknownRecord{
		Name:       rv.Name,
		FieldNames: append([]string(nil), rv.FieldNames...),
		Attrs:      rv.Attrs.Clone(),
		Frozen:     rv.Frozen,
	}
}

// Get reads an attribute.
func (u *UnknownRecord) Get(name string) (Value, bool) { return u.Attrs.Get(name) }

// Set assigns an attribute, refusing if the record is frozen.
func (u *UnknownRecord) Set(name string, v Value) error {
	if u.Frozen {
		return &FrozenAssignError{RecordName: u.Name, Attr: name}
	}
	u.Attrs.Set(name, v)
	return nil
}

// Repr renders `<Unknown RecordName(f1=repr(v1), f2=repr(v2), …)>`, declared
// fields in declaration order, per spec.md 4.6.
func (u *UnknownRecord) Repr() string {
	s := fmt.Sprintf("<Unknown %s(", u.Name)
	for i, name := range u.FieldNames {
		if i > 0 {
			s += ", "
		}
		v, _ := u.Attrs.Get(name)
		if v == nil {
			v = None
		}
		s += fmt.Sprintf("%s=%s", name, v.Repr())
	}
	return s + ")>"
}

// Equal implements spec.md 4.6's "true iff both are UnknownRecords with
// identical name and structurally equal attrs (order-sensitive)".
func (u *UnknownRecord) Equal(other *UnknownRecord) bool {
	return u.Name == other.Name && u.Attrs.Equal(other.Attrs)
}

// Hash is defined only when frozen, combining each field name and value's
// representation, per spec.md 4.6. Returns (0, false) when not frozen.
func (u *UnknownRecord) Hash() (uint64, bool) {
	if !u.Frozen {
		return 0, false
	}
	var h uint64 = 14695981039346656037 // FNV-1a offset basis
	mix := func(s string) {
		for i := 0; i < len(s); i++ {
			h ^= uint64(s[i])
			h *= 1099511628211
		}
	}
	for _, name := range u.FieldNames {
		v, _ := u.Attrs.Get(name)
		if v == nil {
			v = None
		}
		mix(name)
		mix(v.Repr())
	}
	return h, true
}
