package vm

import (
	"sync/atomic"
)

// Object is any reference-counted runtime object.
//
// Every object embeds a Header carrying its reference count and type.
// Objects are created with a reference count of one, owned by whoever
// created them. Decref runs the type's destructor chain once the count
// reaches zero.
type Object interface {
	ObjHeader() *Header
}

// Header is the common prefix of every runtime object.
type Header struct {
	refcnt atomic.Int64
	typ    *Type

	// dead is set once teardown has completed (or the object was
	// abandoned) so a stray Decref does not run the destructors twice.
	dead atomic.Bool
}

// ObjHeader implements Object.
func (h *Header) ObjHeader() *Header {
	return h
}

// initHeader prepares a freshly allocated object header.
func initHeader(h *Header, t *Type) {
	h.typ = t
	h.refcnt.Store(1)
}

// TypeOf returns the type of an object. TypeOf(nil) is nil.
func TypeOf(o Object) *Type {
	if o == nil {
		return nil
	}
	return o.ObjHeader().typ
}

// ---------------------------------------------------------------------------
// Reference counting
// ---------------------------------------------------------------------------

// Incref adds a reference to o and returns it. nil is ignored.
func Incref(o Object) Object {
	if o != nil {
		o.ObjHeader().refcnt.Add(1)
	}
	return o
}

// Decref drops a reference to o. When the last reference goes away the
// object is destroyed. nil is ignored.
func Decref(o Object) {
	if o == nil {
		return
	}
	h := o.ObjHeader()
	if h.refcnt.Add(-1) == 0 {
		Destroy(o)
	}
}

// DecrefIfNotOne drops a reference to o unless doing so would destroy it.
// It reports whether the reference was dropped. A false result means the
// caller still owns the (last) reference and has to release it somewhere
// arbitrary user code may run.
func DecrefIfNotOne(o Object) bool {
	h := o.ObjHeader()
	for {
		n := h.refcnt.Load()
		if n <= 1 {
			return false
		}
		if h.refcnt.CompareAndSwap(n, n-1) {
			return true
		}
	}
}

// Refcount returns the current reference count of o.
func Refcount(o Object) int64 {
	if o == nil {
		return 0
	}
	return o.ObjHeader().refcnt.Load()
}

// IsDead reports whether o has been torn down or abandoned.
func IsDead(o Object) bool {
	return o.ObjHeader().dead.Load()
}
