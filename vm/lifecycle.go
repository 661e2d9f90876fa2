package vm

import (
	"fmt"
)

// ---------------------------------------------------------------------------
// Destruction
// ---------------------------------------------------------------------------

// Destroy tears o down. It runs the destructor of every type in o's
// primary base chain, most derived first. A destructor that revives the
// object stops teardown; the object then lives on and is destroyed again
// once its new owners release it.
//
// Destroy is called by Decref; embedders only call it directly for
// objects they know to be unreachable.
func Destroy(o Object) {
	h := o.ObjHeader()
	if h.dead.Load() {
		return
	}
	for t := h.typ; t != nil; t = t.Base {
		if t.Life.Dtor != nil && !t.Life.Dtor(o) {
			return
		}
	}
	h.dead.Store(true)
	if _, ok := o.(*Instance); ok {
		Decref(h.typ)
	}
}

// destroyLevel is the destructor of one class level. The instance is kept
// alive by an extra reference while the user destructor runs so a
// destructor that stores self somewhere can be detected.
func (c *Class) destroyLevel(self Object) bool {
	t := c.typ
	_, level, err := asInstance(self, t)
	if err != nil {
		return true
	}
	if fn, status := ResolvePrivateOperator(t, OpDestructor); status == OpFound {
		h := self.ObjHeader()
		h.refcnt.Add(1)
		res, err := ThisCall(fn, self)
		Decref(fn)
		if err != nil {
			logger().Warningf("destructor of %s (%s) failed: %v", t.Name, t.ID, err)
		} else {
			Decref(res)
		}
		if h.refcnt.Add(-1) != 0 {
			logger().Debugf("instance of %s (%s) revived by its destructor", t.Name, t.ID)
			return false
		}
	}
	level.clear(nil)
	return true
}

// ---------------------------------------------------------------------------
// GC hooks
// ---------------------------------------------------------------------------

// Visit calls fn for every reference o owns.
func Visit(o Object, fn func(Object)) {
	for t := TypeOf(o); t != nil; t = t.Base {
		if t.Life.Visit != nil {
			t.Life.Visit(o, fn)
		}
	}
}

// Clear releases every reference o owns.
func Clear(o Object) {
	for t := TypeOf(o); t != nil; t = t.Base {
		if t.Life.Clear != nil {
			t.Life.Clear(o)
		}
	}
}

// PClear releases the references o owns to objects whose type has a GC
// priority of at least prio.
func PClear(o Object, prio uint) {
	for t := TypeOf(o); t != nil; t = t.Base {
		if t.Life.PClear != nil {
			t.Life.PClear(o, prio)
		}
	}
}

func (c *Class) visitLevel(self Object, fn func(Object)) {
	if _, level, err := asInstance(self, c.typ); err == nil {
		level.visit(fn)
	}
}

func (c *Class) clearLevel(self Object) {
	if _, level, err := asInstance(self, c.typ); err == nil {
		level.clear(nil)
	}
}

func (c *Class) pclearLevel(self Object, prio uint) {
	if _, level, err := asInstance(self, c.typ); err == nil {
		level.clear(func(v Object) bool {
			return TypeOf(v).GCPriority < prio
		})
	}
}

// ---------------------------------------------------------------------------
// Copy
// ---------------------------------------------------------------------------

// Copy returns a shallow copy of o as a new reference. Immutable objects
// are shared.
func Copy(o Object) (Object, error) {
	t := TypeOf(o)
	switch {
	case t.Flags&TypeImmutable != 0:
		return Incref(o), nil
	case t.Life.Copy != nil:
		return t.Life.Copy(o)
	case t.Init.CopyCtor == nil:
		return nil, &OperatorError{Type: t, Op: OpCopy, Err: ErrOperatorNotImplemented}
	}
	self, err := t.Alloc()
	if err != nil {
		return nil, err
	}
	if err := t.Init.CopyCtor(self, o); err != nil {
		discard(self)
		return nil, err
	}
	return self, nil
}

// copyLevel initializes this class level of self from other. The base
// portion is copied first; then the class's own copy operator runs, or the
// members are copied one by one when the class has none.
func (c *Class) copyLevel(self, other Object, deep bool) error {
	t := c.typ
	_, level, err := asInstance(self, t)
	if err != nil {
		return err
	}
	_, src, err := asInstance(other, t)
	if err != nil {
		return err
	}
	op, opName := OpCopy, "copy"
	if deep {
		op, opName = OpDeepCopy, "deepcopy"
	}

	level.clear(nil)

	var built *Type
	if b := t.Base; b != nil && b != ObjectType {
		hook := b.Init.CopyCtor
		if deep {
			hook = b.Init.DeepCtor
		}
		if hook == nil {
			return &OperatorError{Type: b, Op: op, Err: ErrOperatorNotImplemented}
		}
		if err := hook(self, other); err != nil {
			level.clear(nil)
			return err
		}
		built = b
	}

	fn, status := ResolvePrivateOperator(t, op)
	switch status {
	case OpFound:
		var res Object
		res, err = ThisCall(fn, self, other)
		Decref(fn)
		Decref(res)
	case OpUnbound:
		err = fmt.Errorf("%w: %s of %s is deleted", ErrOperatorUnbound, opName, t.Name)
	default:
		err = copyMembers(level, src, deep)
	}
	if err != nil {
		c.unwind(self, level, built, err)
		return err
	}
	return nil
}

func copyMembers(dst, src *memberVector, deep bool) error {
	values := src.snapshot()
	if deep {
		for i, v := range values {
			if v == nil {
				continue
			}
			c, err := DeepCopy(v)
			Decref(v)
			if err != nil {
				for _, rest := range values[i+1:] {
					Decref(rest)
				}
				for _, done := range values[:i] {
					Decref(done)
				}
				return err
			}
			values[i] = c
		}
	}
	dst.replace(values)
	return nil
}

// ---------------------------------------------------------------------------
// Assignment
// ---------------------------------------------------------------------------

// Assign replaces the contents of dst with those of src.
func Assign(dst, src Object) error {
	t := TypeOf(dst)
	if t.Life.Assign == nil {
		return &OperatorError{Type: t, Op: OpAssign, Err: ErrOperatorNotImplemented}
	}
	return t.Life.Assign(dst, src)
}

// MoveAssign is Assign where src may be left in any valid state. Types
// without a move-assign hook fall back to Assign.
func MoveAssign(dst, src Object) error {
	t := TypeOf(dst)
	if t.Life.MoveAssign == nil {
		return Assign(dst, src)
	}
	return t.Life.MoveAssign(dst, src)
}

// assign is the assignment hook of class types. A user operator found
// anywhere in the MRO takes over; otherwise every class level of dst
// takes src's members.
func (c *Class) assign(dst, src Object, move bool) error {
	t := c.typ
	op := OpAssign
	if move {
		op = OpMoveAssign
	}
	fn, status := TryResolveOperator(t, op)
	if status == OpNotImplemented && move {
		op = OpAssign
		fn, status = TryResolveOperator(t, op)
	}
	switch status {
	case OpFound:
		defer Decref(fn)
		res, err := ThisCall(fn, dst, src)
		Decref(res)
		return err
	case OpUnbound:
		return &OperatorError{Type: t, Op: op, Err: ErrOperatorUnbound}
	}
	if dst == src {
		return nil
	}
	if !TypeOf(src).IsSubtypeOf(t) {
		return fmt.Errorf("%w: cannot assign %s to %s", ErrTypeMismatch, TypeOf(src), t.Name)
	}
	for a := t; a != nil; a = a.Base {
		if a.class == nil {
			if a.Life.Assign != nil {
				return a.Life.Assign(dst, src)
			}
			break
		}
		_, dl, err := asInstance(dst, a)
		if err != nil {
			return err
		}
		_, sl, err := asInstance(src, a)
		if err != nil {
			return err
		}
		if err := copyMembers(dl, sl, false); err != nil {
			return err
		}
	}
	return nil
}
