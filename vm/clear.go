package vm

import "sync"

// clearBatchSize bounds the scratch buffer used while draining members.
const clearBatchSize = 16

// memberVector is a lock-protected vector of owned-or-empty references.
type memberVector struct {
	mu    sync.RWMutex
	owner *Type
	slots []Object
}

func newMemberVector(owner *Type, n int) *memberVector {
	return &memberVector{owner: owner, slots: make([]Object, n)}
}

// get returns a new reference to the slot value, or false when unbound.
func (m *memberVector) get(addr uint16) (Object, bool) {
	m.mu.RLock()
	v := m.slots[addr]
	Incref(v)
	m.mu.RUnlock()
	return v, v != nil
}

func (m *memberVector) bound(addr uint16) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.slots[addr] != nil
}

// set stores a new reference to v and releases the previous value
// outside the lock.
func (m *memberVector) set(addr uint16, v Object) {
	Incref(v)
	m.mu.Lock()
	old := m.slots[addr]
	m.slots[addr] = v
	m.mu.Unlock()
	Decref(old)
}

// setIfUnbound stores v only if the slot is empty.
func (m *memberVector) setIfUnbound(addr uint16, v Object) bool {
	m.mu.Lock()
	if m.slots[addr] != nil {
		m.mu.Unlock()
		return false
	}
	m.slots[addr] = Incref(v)
	m.mu.Unlock()
	return true
}

// unset empties the slot and reports whether it was bound.
func (m *memberVector) unset(addr uint16) bool {
	m.mu.Lock()
	old := m.slots[addr]
	m.slots[addr] = nil
	m.mu.Unlock()
	Decref(old)
	return old != nil
}

// snapshot returns new references to every slot value (nil for unbound).
func (m *memberVector) snapshot() []Object {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]Object, len(m.slots))
	for i, v := range m.slots {
		result[i] = Incref(v)
	}
	return result
}

// replace swaps in values (whose references the caller hands over) and
// releases the previous contents.
func (m *memberVector) replace(values []Object) {
	m.mu.Lock()
	old := m.slots
	m.slots = values
	m.mu.Unlock()
	for _, v := range old {
		Decref(v)
	}
}

func (m *memberVector) visit(fn func(Object)) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, v := range m.slots {
		if v != nil {
			fn(v)
		}
	}
}

func (m *memberVector) clear(keep func(Object) bool) {
	drainSlots(&m.mu, func(yield func([]Object) bool) {
		yield(m.slots)
	}, keep)
}

// drainSlots empties every slot produced by groups, except those keep
// accepts.
//
// References that are not the last one are dropped in place under the
// write lock. Last references are moved into a fixed-size buffer and
// released after the lock is dropped, since their finalizers may run
// arbitrary code, including code that stores new references back into
// the slots. The scan repeats until a full pass finds nothing that had
// to be released outside the lock.
func drainSlots(mu *sync.RWMutex, groups func(yield func([]Object) bool), keep func(Object) bool) {
	var buf [clearBatchSize]Object
	for {
		n := 0
		mu.Lock()
		groups(func(slots []Object) bool {
			for i, v := range slots {
				if v == nil || (keep != nil && keep(v)) {
					continue
				}
				slots[i] = nil
				if DecrefIfNotOne(v) {
					continue
				}
				buf[n] = v
				n++
				if n == len(buf) {
					return false
				}
			}
			return true
		})
		mu.Unlock()
		if n == 0 {
			return
		}
		for i := 0; i < n; i++ {
			Decref(buf[i])
			buf[i] = nil
		}
	}
}
