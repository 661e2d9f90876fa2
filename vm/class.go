package vm

import (
	"fmt"
	"sync/atomic"
)

// ---------------------------------------------------------------------------
// Class: the class extension of a Type
// ---------------------------------------------------------------------------

// Class is the part of a Type that only classes have: the description it
// was built from, the class member vector and the operator cache.
//
// Class members and the contents of operator-cache buckets are guarded by
// the member vector's lock. Buckets themselves are allocated lock-free.
type Class struct {
	typ  *Type
	desc *ClassDesc

	// level indexes this class's member vector inside an instance.
	level int

	members *memberVector
	cache   [opcBucketCount]atomic.Pointer[opcBucket]

	strategy   CtorStrategy
	sources    [opCount]OperatorSource
	autoFields []*Attr

	hits   atomic.Uint64
	misses atomic.Uint64
	probes atomic.Uint64
}

// Type returns the type this extension belongs to.
func (c *Class) Type() *Type {
	return c.typ
}

// Desc returns the description the class was created from.
func (c *Class) Desc() *ClassDesc {
	return c.desc
}

// Level returns the index of this class's member vector in an instance.
func (c *Class) Level() int {
	return c.level
}

// Strategy returns the constructor strategy installed for the class.
func (c *Class) Strategy() CtorStrategy {
	return c.strategy
}

// OperatorSource reports where the class gets op from.
func (c *Class) OperatorSource(op OperatorID) OperatorSource {
	if !op.Valid() {
		return OperatorSource{}
	}
	return c.sources[op]
}

// ---------------------------------------------------------------------------
// Class members
// ---------------------------------------------------------------------------

func (t *Type) classMembers(addr uint16) (*memberVector, error) {
	if t.class == nil {
		return nil, fmt.Errorf("%w: %s is not a class", ErrTypeMismatch, t.Name)
	}
	if int(addr) >= len(t.class.members.slots) {
		return nil, fmt.Errorf("%w: class member %d of %s", ErrBadSlotAddress, addr, t.Name)
	}
	return t.class.members, nil
}

// ClassMember returns a new reference to a class member.
func (t *Type) ClassMember(addr uint16) (Object, error) {
	m, err := t.classMembers(addr)
	if err != nil {
		return nil, err
	}
	v, ok := m.get(addr)
	if !ok {
		return nil, fmt.Errorf("%w: class member %d of %s", ErrUnboundMember, addr, t.Name)
	}
	return v, nil
}

// SetClassMember binds a class member.
func (t *Type) SetClassMember(addr uint16, v Object) error {
	m, err := t.classMembers(addr)
	if err != nil {
		return err
	}
	m.set(addr, v)
	return nil
}

// DelClassMember unbinds a class member.
func (t *Type) DelClassMember(addr uint16) error {
	m, err := t.classMembers(addr)
	if err != nil {
		return err
	}
	if !m.unset(addr) {
		return fmt.Errorf("%w: class member %d of %s", ErrUnboundMember, addr, t.Name)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Teardown
// ---------------------------------------------------------------------------

// destroyType runs when a type's last reference goes away. Class types
// release their members and cached operators; finalizers triggered by the
// release may repopulate either, so both are drained together until
// stable.
func destroyType(self Object) bool {
	t := self.(*Type)
	c := t.class
	if c == nil {
		return true
	}
	drainSlots(&c.members.mu, func(yield func([]Object) bool) {
		if !yield(c.members.slots) {
			return
		}
		for i := range c.cache {
			if b := c.cache[i].Load(); b != nil {
				if !yield(b.entries[:]) {
					return
				}
			}
		}
	}, nil)
	bases, module := t.Bases, t.Module
	t.Bases, t.Module = nil, nil
	for _, b := range bases {
		Decref(b)
	}
	Decref(module)
	logger().Debugf("class %s %s destroyed", t.Name, t.ID)
	return true
}

// computeSources records, for every operator, whether the class binds it
// directly, inherits it from a class ancestor or gets a generated
// default.
func (c *Class) computeSources() {
	for op := OperatorID(0); op < opCount; op++ {
		src := OperatorSource{}
		for _, a := range c.typ.mro {
			if a.class == nil {
				continue
			}
			if a.class.desc.binds(op) {
				if a == c.typ {
					src = OperatorSource{Kind: SourceDirect, Owner: a}
				} else {
					src = OperatorSource{Kind: SourceInherited, Owner: a}
				}
				break
			}
		}
		if src.Kind == SourceNone {
			src = c.defaultSource(op)
		}
		c.sources[op] = src
	}
}

func (c *Class) defaultSource(op OperatorID) OperatorSource {
	var k DefaultKind
	switch op {
	case OpConstructor:
		switch {
		case c.desc.Flags&DescAutoInit != 0:
			k = DefaultAutoInit
		case c.desc.Flags&DescInheritCtor != 0:
			k = DefaultForward
		}
	case OpCopy:
		k = DefaultMemberwiseCopy
	case OpDeepCopy:
		k = DefaultMemberwiseDeepCopy
	case OpAssign, OpMoveAssign:
		k = DefaultMemberwiseAssign
	}
	if k == DefaultNone {
		return OperatorSource{}
	}
	return OperatorSource{Kind: SourceDefault, Default: k}
}
