package engine

import (
	"reflect"
	"testing"
)

type samplePoint struct {
	X, Y int
}

func TestRecordRegistryRoundTripsViaConvert(t *testing.T) {
	reg := NewRecordRegistry()

	host := samplePoint{X: 1, Y: 2}
	engineVal, err := ToEngine(pointRecord{host}, reg)
	if err != nil {
		t.Fatalf("ToEngine: %v", err)
	}
	rv, ok := engineVal.(RecordValue)
	if !ok {
		t.Fatalf("got %T, want RecordValue", engineVal)
	}
	if !reg.Lookup(rv.TypeID) {
		t.Fatal("expected the host type to be registered during conversion")
	}

	back, err := ToHost(rv, reg)
	if err != nil {
		t.Fatalf("ToHost: %v", err)
	}
	got, ok := back.(pointRecord)
	if !ok {
		t.Fatalf("got %T, want pointRecord", back)
	}
	if got != (pointRecord{samplePoint{X: 1, Y: 2}}) {
		t.Fatalf("got %+v, want {1 2}", got)
	}
}

func TestUnregisteredRecordComesBackAsUnknownRecord(t *testing.T) {
	reg := NewRecordRegistry()
	rv := RecordValue{
		Name:       "Orphan",
		TypeID:     reflect.TypeOf(struct{}{}),
		FieldNames: []string{"a"},
		Attrs:      NewAttrMap(),
	}
	rv.Attrs.Set("a", IntValue(1))

	back, err := ToHost(rv, reg)
	if err != nil {
		t.Fatalf("ToHost: %v", err)
	}
	ur, ok := back.(*UnknownRecord)
	if !ok {
		t.Fatalf("got %T, want *UnknownRecord", back)
	}
	if ur.Repr() != "<Unknown Orphan(a=1)>" {
		t.Fatalf("got repr %q", ur.Repr())
	}
}

// TestUnregisteredFrozenRecordPropagatesFrozenness guards against
// NewUnknownRecord silently dropping RecordValue.Frozen: a frozen record
// must come back as a frozen UnknownRecord, refusing Set and supporting
// Hash, exactly as it would if its type had been registered.
func TestUnregisteredFrozenRecordPropagatesFrozenness(t *testing.T) {
	reg := NewRecordRegistry()
	rv := RecordValue{
		Name:       "Orphan",
		TypeID:     reflect.TypeOf(struct{}{}),
		FieldNames: []string{"a"},
		Attrs:      NewAttrMap(),
		Frozen:     true,
	}
	rv.Attrs.Set("a", IntValue(1))

	back, err := ToHost(rv, reg)
	if err != nil {
		t.Fatalf("ToHost: %v", err)
	}
	ur := back.(*UnknownRecord)
	if !ur.Frozen {
		t.Fatal("expected the UnknownRecord to inherit Frozen: true from the RecordValue")
	}
	if err := ur.Set("a", IntValue(2)); err == nil {
		t.Fatal("expected Set on a frozen UnknownRecord to fail")
	}
	if _, ok := ur.Hash(); !ok {
		t.Fatal("expected Hash to be defined for a frozen UnknownRecord")
	}
}

// pointRecord embeds samplePoint so it can also opt into the Record
// capability interface without modifying the plain host struct.
type pointRecord struct {
	samplePoint
}

func (pointRecord) RecordName() string { return "Point" }
