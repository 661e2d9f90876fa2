package vm

import "fmt"

// DescFlags are the class-level flags recorded by the compiler.
type DescFlags uint32

const (
	// DescFinal classes cannot be subclassed.
	DescFinal DescFlags = 1 << iota
	// DescAbstract classes may be one of several bases.
	DescAbstract
	// DescInheritCtor classes without a constructor forward their
	// arguments to the base constructor.
	DescInheritCtor
	// DescAutoInit classes bind constructor arguments to their fields.
	DescAutoInit
	// DescSuperKwds super-args generators return (args, kwds) pairs.
	DescSuperKwds
)

// MaxMembers is the size of the 16-bit slot-address space.
const MaxMembers = 0xffff

// MemberInit binds an initial value to a class-member slot.
type MemberInit struct {
	Addr  uint16
	Value Object
}

// ClassDesc is the compiler's description of a class.
//
// A description is immutable once handed to CreateClass and may be shared
// by any number of classes.
type ClassDesc struct {
	Name  string
	Doc   string
	Flags DescFlags

	InstanceAttrs *AttrTable
	ClassAttrs    *AttrTable
	Operators     *OpBindTable

	// Inits are the class-member initializers, applied in order.
	Inits []MemberInit

	InstanceMembers int
	ClassMembers    int
}

// NewClassDesc returns an empty description.
func NewClassDesc(name string) *ClassDesc {
	return &ClassDesc{
		Name:          name,
		InstanceAttrs: NewAttrTable(),
		ClassAttrs:    NewAttrTable(),
		Operators:     NewOpBindTable(),
	}
}

func (d *ClassDesc) nextInstanceSlot() (uint16, error) {
	if d.InstanceMembers >= MaxMembers {
		return 0, &BuildError{Class: d.Name, Err: ErrTooManyMembers, Msg: "instance members"}
	}
	d.InstanceMembers++
	return uint16(d.InstanceMembers - 1), nil
}

func (d *ClassDesc) nextClassSlot() (uint16, error) {
	if d.ClassMembers >= MaxMembers {
		return 0, &BuildError{Class: d.Name, Err: ErrTooManyMembers, Msg: "class members"}
	}
	d.ClassMembers++
	return uint16(d.ClassMembers - 1), nil
}

// AddField declares an instance field in the next free instance slot.
func (d *ClassDesc) AddField(name string, flags AttrFlags) (uint16, error) {
	if d.InstanceAttrs.Lookup(name) != nil {
		return 0, &BuildError{Class: d.Name, Err: ErrDuplicateMember, Msg: name}
	}
	addr, err := d.nextInstanceSlot()
	if err != nil {
		return 0, err
	}
	if _, err := d.InstanceAttrs.Insert(name, addr, flags&^(AttrMethod|AttrGetSet|AttrClassMem)); err != nil {
		d.InstanceMembers--
		return 0, err
	}
	return addr, nil
}

// AddClassMember declares a class-side member. value may be nil to leave
// the slot unbound.
func (d *ClassDesc) AddClassMember(name string, value Object, flags AttrFlags) (uint16, error) {
	if d.ClassAttrs.Lookup(name) != nil {
		return 0, &BuildError{Class: d.Name, Err: ErrDuplicateMember, Msg: name}
	}
	addr, err := d.nextClassSlot()
	if err != nil {
		return 0, err
	}
	if _, err := d.ClassAttrs.Insert(name, addr, flags|AttrClassMem); err != nil {
		d.ClassMembers--
		return 0, err
	}
	d.addInit(addr, value)
	return addr, nil
}

// AddMethod declares an instance method. The callable lives in a class
// slot and is visible through the instance attribute table.
func (d *ClassDesc) AddMethod(name string, fn Object) (uint16, error) {
	return d.addInstanceClassMem(name, fn, AttrMethod)
}

// AddGetter declares a computed instance property backed by a getter.
func (d *ClassDesc) AddGetter(name string, getter Object) (uint16, error) {
	return d.addInstanceClassMem(name, getter, AttrGetSet|AttrReadonly)
}

func (d *ClassDesc) addInstanceClassMem(name string, fn Object, flags AttrFlags) (uint16, error) {
	if d.InstanceAttrs.Lookup(name) != nil {
		return 0, &BuildError{Class: d.Name, Err: ErrDuplicateMember, Msg: name}
	}
	addr, err := d.nextClassSlot()
	if err != nil {
		return 0, err
	}
	if _, err := d.InstanceAttrs.Insert(name, addr, flags|AttrClassMem); err != nil {
		d.ClassMembers--
		return 0, err
	}
	d.addInit(addr, fn)
	return addr, nil
}

// AddOperator binds op to fn through a new class slot. A nil fn declares
// the operator but leaves it unbound, which shadows every ancestor's
// implementation.
func (d *ClassDesc) AddOperator(op OperatorID, fn Object) (uint16, error) {
	if !op.Valid() {
		return 0, &BuildError{Class: d.Name, Err: ErrOperatorNotImplemented, Msg: fmt.Sprintf("operator id %d", op)}
	}
	addr, err := d.nextClassSlot()
	if err != nil {
		return 0, err
	}
	d.Operators.Bind(op, addr)
	d.addInit(addr, fn)
	return addr, nil
}

func (d *ClassDesc) addInit(addr uint16, value Object) {
	if value != nil {
		d.Inits = append(d.Inits, MemberInit{Addr: addr, Value: Incref(value)})
	}
}

// Validate checks the slot-address invariants of the description.
func (d *ClassDesc) Validate() error {
	if d.InstanceMembers > MaxMembers {
		return &BuildError{Class: d.Name, Err: ErrTooManyMembers, Msg: fmt.Sprintf("%d instance members", d.InstanceMembers)}
	}
	if d.ClassMembers > MaxMembers {
		return &BuildError{Class: d.Name, Err: ErrTooManyMembers, Msg: fmt.Sprintf("%d class members", d.ClassMembers)}
	}
	check := func(what string, addr uint16, limit int) error {
		if int(addr) >= limit {
			return &BuildError{Class: d.Name, Err: ErrBadSlotAddress, Msg: fmt.Sprintf("%s at %d (have %d)", what, addr, limit)}
		}
		return nil
	}
	for _, a := range d.InstanceAttrs.Attrs() {
		limit := d.InstanceMembers
		if a.Flags&AttrClassMem != 0 {
			limit = d.ClassMembers
		}
		if err := check(a.Name, a.Addr, limit); err != nil {
			return err
		}
	}
	for _, a := range d.ClassAttrs.Attrs() {
		if err := check(a.Name, a.Addr, d.ClassMembers); err != nil {
			return err
		}
	}
	var err error
	d.Operators.Each(func(op OperatorID, addr uint16) {
		if err == nil {
			err = check("operator "+op.String(), addr, d.ClassMembers)
		}
	})
	if err != nil {
		return err
	}
	for _, in := range d.Inits {
		if err := check("initializer", in.Addr, d.ClassMembers); err != nil {
			return err
		}
	}
	return nil
}

// binds reports whether the description binds op itself.
func (d *ClassDesc) binds(op OperatorID) bool {
	_, ok := d.Operators.Find(op)
	return ok
}
