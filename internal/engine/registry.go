package engine

import (
	"reflect"
	"sync"
)

// RecordRegistry is the process-or-run-scoped mapping from type_id
// (reflect.Type) to host type, spec.md 4.7. Since Go has no ambient
// single-threaded guarantee the way the original's host language does,
// every access is guarded by a mutex held only for the duration of a
// single insert/lookup — never across a Suspend, per spec.md section 5's
// fallback requirement.
type RecordRegistry struct {
	mu    sync.Mutex
	types map[reflect.Type]struct{}
}

// NewRecordRegistry builds an empty registry.
func NewRecordRegistry() *RecordRegistry {
	return &RecordRegistry{types: make(map[reflect.Type]struct{})}
}

// RegisterRecordType inserts t, idempotently (spec.md 4.7: "re-registering
// the same type_id overwrites silently").
func (r *RecordRegistry) RegisterRecordType(t reflect.Type) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types[t] = struct{}{}
}

// Lookup reports whether t was previously registered.
func (r *RecordRegistry) Lookup(t reflect.Type) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.types[t]
	return ok
}
