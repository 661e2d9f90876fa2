package vm

import (
	"fmt"

	"github.com/google/uuid"
)

// CreateClass turns a class description into a live type.
//
// bases lists the direct bases; at most one of them may be concrete (not
// abstract), and it becomes the primary base. With no bases the class
// derives from Object. module is the declaring module and may be nil.
//
// The returned type holds one reference owned by the caller. On failure
// nothing is left behind.
func CreateClass(bases []*Type, desc *ClassDesc, module Object) (*Type, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	if len(bases) == 0 {
		bases = []*Type{ObjectType}
	}
	primary, err := primaryBase(desc.Name, bases)
	if err != nil {
		return nil, err
	}

	t := &Type{
		ID:     uuid.New(),
		Name:   desc.Name,
		Doc:    desc.Doc,
		Base:   primary,
		Bases:  append([]*Type(nil), bases...),
		Module: Incref(module),
		alloc:  allocInstance,
	}
	initHeader(&t.Header, TypeType)
	if desc.Flags&DescFinal != 0 {
		t.Flags |= TypeFinal
	}
	if desc.Flags&DescAbstract != 0 {
		t.Flags |= TypeAbstract
	}
	for _, b := range bases {
		Incref(b)
		t.Flags |= b.Flags & TypeGC
	}
	t.mro = linearize(t, t.Bases)

	c := &Class{
		typ:        t,
		desc:       desc,
		members:    newMemberVector(t, desc.ClassMembers),
		autoFields: autoInitAttrs(desc),
	}
	if primary.class != nil {
		c.level = primary.class.level + 1
	}
	t.class = c

	for _, in := range desc.Inits {
		c.members.set(in.Addr, in.Value)
	}

	c.computeSources()
	noBase := primary == ObjectType
	installCtor(t, selectStrategy(desc, noBase))
	t.Init.CopyCtor = func(self, other Object) error {
		return c.copyLevel(self, other, false)
	}
	t.Init.DeepCtor = func(self, other Object) error {
		return c.copyLevel(self, other, true)
	}
	t.Life = LifecycleOps{
		Dtor: c.destroyLevel,
		Assign: func(dst, src Object) error {
			return c.assign(dst, src, false)
		},
		MoveAssign: func(dst, src Object) error {
			return c.assign(dst, src, true)
		},
		Visit:  c.visitLevel,
		Clear:  c.clearLevel,
		PClear: c.pclearLevel,
	}

	t.GCPriority = primary.GCPriority
	if src := c.sources[OpDestructor]; src.Kind == SourceDirect || src.Kind == SourceInherited {
		t.GCPriority++
	}

	logger().Debugf("created class %s %s (base %s, strategy %s, %d instance / %d class members)",
		t.Name, t.ID, primary.Name, c.strategy, desc.InstanceMembers, desc.ClassMembers)
	return t, nil
}

// primaryBase picks the base whose layout the class extends: the single
// concrete base, or the first abstract class when every base is abstract.
// Abstract classes that end up as secondary bases may not declare
// instance members, since instances have no storage for them.
func primaryBase(name string, bases []*Type) (*Type, error) {
	var primary *Type
	seen := make(map[*Type]bool, len(bases))
	for _, b := range bases {
		if b == nil {
			return nil, &BuildError{Class: name, Err: ErrTypeMismatch, Msg: "nil base"}
		}
		if seen[b] {
			return nil, &BuildError{Class: name, Err: ErrTypeMismatch, Msg: fmt.Sprintf("base %s listed twice", b.Name)}
		}
		seen[b] = true
		if b.Flags&TypeFinal != 0 {
			return nil, &BuildError{Class: name, Err: ErrFinalBase, Msg: b.Name}
		}
		if b.Flags&TypeAbstract != 0 || b == ObjectType {
			continue
		}
		if primary != nil {
			return nil, &BuildError{Class: name, Err: ErrMultipleBases, Msg: fmt.Sprintf("%s and %s", primary.Name, b.Name)}
		}
		primary = b
	}
	if primary == nil {
		for _, b := range bases {
			if b.class != nil {
				primary = b
				break
			}
		}
	}
	if primary == nil {
		return ObjectType, nil
	}
	for _, b := range bases {
		if b != primary && b.class != nil && b.class.desc.InstanceMembers != 0 {
			return nil, &BuildError{Class: name, Err: ErrMultipleBases,
				Msg: fmt.Sprintf("abstract base %s declares instance members", b.Name)}
		}
	}
	return primary, nil
}
