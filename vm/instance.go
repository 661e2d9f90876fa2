package vm

import (
	"fmt"
)

// Instance is an instance of a class type.
//
// It holds one member vector per class in the primary base chain, indexed
// by Class.Level. Each vector has its own lock and starts out with every
// slot unbound, so a partially constructed instance is always safe to
// clear.
type Instance struct {
	Header
	levels []*memberVector
}

func allocInstance(t *Type) Object {
	inst := &Instance{levels: make([]*memberVector, t.class.level+1)}
	initHeader(&inst.Header, t)
	Incref(t)
	for a := t; a != nil && a.class != nil; a = a.Base {
		inst.levels[a.class.level] = newMemberVector(a, a.class.desc.InstanceMembers)
	}
	return inst
}

// asInstance returns o as an instance whose type derives from cls.
func asInstance(o Object, cls *Type) (*Instance, *memberVector, error) {
	inst, ok := o.(*Instance)
	if !ok || cls.class == nil {
		return nil, nil, fmt.Errorf("%w: %s is not an instance of %s", ErrTypeMismatch, TypeOf(o), cls.Name)
	}
	lvl := cls.class.level
	if lvl >= len(inst.levels) || inst.levels[lvl] == nil || inst.levels[lvl].owner != cls {
		return nil, nil, fmt.Errorf("%w: %s is not an instance of %s", ErrTypeMismatch, TypeOf(o), cls.Name)
	}
	return inst, inst.levels[lvl], nil
}

func memberVectorOf(o Object, cls *Type, addr uint16) (*memberVector, error) {
	_, m, err := asInstance(o, cls)
	if err != nil {
		return nil, err
	}
	if int(addr) >= len(m.slots) {
		return nil, fmt.Errorf("%w: member %d of %s", ErrBadSlotAddress, addr, cls.Name)
	}
	return m, nil
}

// Member returns a new reference to the instance member of cls at addr.
func Member(o Object, cls *Type, addr uint16) (Object, error) {
	m, err := memberVectorOf(o, cls, addr)
	if err != nil {
		return nil, err
	}
	v, ok := m.get(addr)
	if !ok {
		return nil, fmt.Errorf("%w: %s member %d", ErrUnboundMember, cls.Name, addr)
	}
	return v, nil
}

// SetMember binds the instance member of cls at addr.
func SetMember(o Object, cls *Type, addr uint16, v Object) error {
	m, err := memberVectorOf(o, cls, addr)
	if err != nil {
		return err
	}
	m.set(addr, v)
	return nil
}

// DelMember unbinds the instance member of cls at addr.
func DelMember(o Object, cls *Type, addr uint16) error {
	m, err := memberVectorOf(o, cls, addr)
	if err != nil {
		return err
	}
	if !m.unset(addr) {
		return fmt.Errorf("%w: %s member %d", ErrUnboundMember, cls.Name, addr)
	}
	return nil
}

// BoundMember reports whether the instance member of cls at addr is bound.
func BoundMember(o Object, cls *Type, addr uint16) bool {
	m, err := memberVectorOf(o, cls, addr)
	if err != nil {
		return false
	}
	return m.bound(addr)
}

// ---------------------------------------------------------------------------
// Name-based attribute access
// ---------------------------------------------------------------------------

// findAttr searches the class ancestors of t for name, first in each
// class's instance table, then in its class table.
func findAttr(t *Type, name string) (*Type, *Attr) {
	for _, a := range t.mro {
		if a.class == nil {
			continue
		}
		if attr := a.class.desc.InstanceAttrs.Lookup(name); attr != nil {
			return a, attr
		}
		if attr := a.class.desc.ClassAttrs.Lookup(name); attr != nil {
			return a, attr
		}
	}
	return nil, nil
}

// GetAttr returns a new reference to the attribute name of o. Getter
// properties are invoked with o as this.
func GetAttr(o Object, name string) (Object, error) {
	owner, attr := findAttr(TypeOf(o), name)
	if attr == nil {
		return nil, fmt.Errorf("%w: %s.%s", ErrNoAttribute, TypeOf(o), name)
	}
	if attr.Flags&AttrClassMem != 0 {
		v, err := owner.ClassMember(attr.Addr)
		if err != nil || attr.Flags&AttrGetSet == 0 {
			return v, err
		}
		defer Decref(v)
		return ThisCall(v, o)
	}
	return Member(o, owner, attr.Addr)
}

// SetAttr binds the attribute name of o. Read-only members can only be
// bound while unbound; methods and getters cannot be rebound through an
// instance.
func SetAttr(o Object, name string, v Object) error {
	owner, attr := findAttr(TypeOf(o), name)
	if attr == nil {
		return fmt.Errorf("%w: %s.%s", ErrNoAttribute, TypeOf(o), name)
	}
	if attr.Flags&(AttrMethod|AttrGetSet) != 0 {
		return fmt.Errorf("%w: %s.%s", ErrReadonly, owner, name)
	}
	if attr.Flags&AttrClassMem != 0 {
		m, err := owner.classMembers(attr.Addr)
		if err != nil {
			return err
		}
		return setChecked(m, attr, owner, v)
	}
	m, err := memberVectorOf(o, owner, attr.Addr)
	if err != nil {
		return err
	}
	return setChecked(m, attr, owner, v)
}

func setChecked(m *memberVector, attr *Attr, owner *Type, v Object) error {
	if attr.Flags&AttrReadonly == 0 {
		m.set(attr.Addr, v)
		return nil
	}
	if !m.setIfUnbound(attr.Addr, v) {
		return fmt.Errorf("%w: %s.%s", ErrReadonly, owner, attr.Name)
	}
	return nil
}

// DelAttr unbinds the attribute name of o.
func DelAttr(o Object, name string) error {
	owner, attr := findAttr(TypeOf(o), name)
	if attr == nil {
		return fmt.Errorf("%w: %s.%s", ErrNoAttribute, TypeOf(o), name)
	}
	if attr.Flags&(AttrMethod|AttrGetSet|AttrReadonly) != 0 {
		return fmt.Errorf("%w: %s.%s", ErrReadonly, owner, name)
	}
	if attr.Flags&AttrClassMem != 0 {
		return owner.DelClassMember(attr.Addr)
	}
	return DelMember(o, owner, attr.Addr)
}

// CallMethod looks up the method name on o and calls it with o as this.
func CallMethod(o Object, name string, args ...Object) (Object, error) {
	fn, err := GetAttr(o, name)
	if err != nil {
		return nil, err
	}
	defer Decref(fn)
	return ThisCall(fn, o, args...)
}
