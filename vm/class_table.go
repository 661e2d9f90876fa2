package vm

import (
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// ClassTable: class registry
// ---------------------------------------------------------------------------

// ClassTable manages created classes by qualified name and by type ID.
// The table owns one reference to every registered type.
type ClassTable struct {
	mu      sync.RWMutex
	classes map[string]*Type
	ids     map[uuid.UUID]string
}

// NewClassTable creates a new empty class table.
func NewClassTable() *ClassTable {
	return &ClassTable{
		classes: make(map[string]*Type),
		ids:     make(map[uuid.UUID]string),
	}
}

// Register adds t under its name in namespace ("" for the global one).
// The table takes a new reference to t; a type previously registered
// under the same key is released.
func (ct *ClassTable) Register(namespace string, t *Type) error {
	if t.class == nil {
		return fmt.Errorf("%w: %s is not a class", ErrTypeMismatch, t.Name)
	}
	key := classKey(namespace, t.Name)
	Incref(t)

	ct.mu.Lock()
	old := ct.classes[key]
	ct.classes[key] = t
	if old != nil && ct.ids[old.ID] == key {
		delete(ct.ids, old.ID)
	}
	ct.ids[t.ID] = key
	ct.mu.Unlock()

	if old != nil {
		logger().Infof("class %s (%s) replaced by %s", key, old.ID, t.ID)
		Decref(old)
	}
	return nil
}

// Lookup finds a class in the global namespace. The result is borrowed.
func (ct *ClassTable) Lookup(name string) *Type {
	return ct.LookupInNamespace("", name)
}

// LookupInNamespace finds a class by namespace and name.
func (ct *ClassTable) LookupInNamespace(namespace, name string) *Type {
	ct.mu.RLock()
	defer ct.mu.RUnlock()
	return ct.classes[classKey(namespace, name)]
}

// LookupID finds a class by its type ID. The result is borrowed.
func (ct *ClassTable) LookupID(id uuid.UUID) *Type {
	ct.mu.RLock()
	defer ct.mu.RUnlock()
	key, ok := ct.ids[id]
	if !ok {
		return nil
	}
	return ct.classes[key]
}

// Has returns true if a class with this qualified name is registered.
func (ct *ClassTable) Has(key string) bool {
	ct.mu.RLock()
	defer ct.mu.RUnlock()
	_, ok := ct.classes[key]
	return ok
}

// Remove unregisters the class under key and releases the table's
// reference. It reports whether anything was removed.
func (ct *ClassTable) Remove(key string) bool {
	ct.mu.Lock()
	t, ok := ct.classes[key]
	delete(ct.classes, key)
	if ok && ct.ids[t.ID] == key {
		delete(ct.ids, t.ID)
	}
	ct.mu.Unlock()
	if ok {
		Decref(t)
	}
	return ok
}

// All returns all registered classes ordered by qualified name.
func (ct *ClassTable) All() []*Type {
	ct.mu.RLock()
	keys := make([]string, 0, len(ct.classes))
	for k := range ct.classes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	result := make([]*Type, len(keys))
	for i, k := range keys {
		result[i] = ct.classes[k]
	}
	ct.mu.RUnlock()
	return result
}

// Len returns the number of registered classes.
func (ct *ClassTable) Len() int {
	ct.mu.RLock()
	defer ct.mu.RUnlock()
	return len(ct.classes)
}

// Release drops every registered class, most recently derived first so
// subclasses let go of their bases before the bases are released.
func (ct *ClassTable) Release() {
	ct.mu.Lock()
	types := make([]*Type, 0, len(ct.classes))
	for _, t := range ct.classes {
		types = append(types, t)
	}
	ct.classes = make(map[string]*Type)
	ct.ids = make(map[uuid.UUID]string)
	ct.mu.Unlock()

	sort.Slice(types, func(i, j int) bool {
		return len(types[i].mro) > len(types[j].mro)
	})
	for _, t := range types {
		Decref(t)
	}
}

func classKey(namespace, name string) string {
	if namespace == "" {
		return name
	}
	return namespace + "::" + name
}
