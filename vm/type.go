package vm

import (
	"github.com/google/uuid"
)

// TypeFlags describe properties of a Type.
type TypeFlags uint32

const (
	// TypeFinal types cannot be subclassed.
	TypeFinal TypeFlags = 1 << iota
	// TypeAbstract types carry no construction protocol of their own and
	// may appear any number of times among a class's bases.
	TypeAbstract
	// TypeImmutable instances are shared instead of copied.
	TypeImmutable
	// TypeGC instances may take part in reference cycles.
	TypeGC
)

// InitOps are the construction entry points of a type. Each operates on
// an already allocated self, so a derived type can run them to initialize
// its base portion.
type InitOps struct {
	Ctor      func(self Object) error
	AnyCtor   func(self Object, args []Object) error
	AnyCtorKw func(self Object, args []Object, kw Kwds) error
	CopyCtor  func(self, other Object) error
	DeepCtor  func(self, other Object) error

	// Fini undoes a completed initialization. It runs when a derived
	// constructor fails after the base portion was built.
	Fini func(self Object) error
}

// LifecycleOps are the per-type teardown and mutation hooks.
type LifecycleOps struct {
	// Dtor runs while the object is being destroyed. It returns false if
	// the object was revived and teardown must stop.
	Dtor func(self Object) bool

	Assign     func(self, other Object) error
	MoveAssign func(self, other Object) error

	// Copy and DeepCopy produce a whole new object. Types that build
	// copies through InitOps leave these nil.
	Copy     func(self Object) (Object, error)
	DeepCopy func(self Object) (Object, error)

	Visit  func(self Object, visit func(Object))
	Clear  func(self Object)
	PClear func(self Object, prio uint)
}

// Type is a live runtime type. Class types carry a *Class extension.
type Type struct {
	Header

	ID    uuid.UUID
	Name  string
	Doc   string
	Flags TypeFlags

	// Base is the primary (concrete) base; Bases lists every direct base.
	Base  *Type
	Bases []*Type

	// GCPriority orders PClear; higher priorities are torn down first.
	GCPriority uint

	// Module is the declaring module, if any.
	Module Object

	Init InitOps
	Life LifecycleOps

	alloc func(t *Type) Object
	mro   []*Type
	class *Class
}

// MRO returns the linearized ancestor order, starting with t itself.
// The slice is shared and must not be modified.
func (t *Type) MRO() []*Type {
	return t.mro
}

// Class returns the class extension, or nil for native types.
func (t *Type) Class() *Class {
	return t.class
}

// IsClass reports whether t was produced by CreateClass.
func (t *Type) IsClass() bool {
	return t.class != nil
}

// IsSubtypeOf reports whether other appears in t's MRO.
func (t *Type) IsSubtypeOf(other *Type) bool {
	for _, a := range t.mro {
		if a == other {
			return true
		}
	}
	return false
}

// String implements the Stringer interface.
func (t *Type) String() string {
	return t.Name
}

// Alloc allocates a new, uninitialized instance of t.
func (t *Type) Alloc() (Object, error) {
	if t.alloc != nil {
		return t.alloc(t), nil
	}
	return nil, &OperatorError{Type: t, Op: OpConstructor, Err: ErrOperatorNotImplemented}
}

// NewNativeType creates a non-class type. Natives may be used as class
// bases; their InitOps then receive the class instance as self.
func NewNativeType(name string, base *Type, flags TypeFlags) *Type {
	t := &Type{
		ID:    uuid.New(),
		Name:  name,
		Flags: flags,
		Base:  base,
	}
	initHeader(&t.Header, TypeType)
	if base != nil {
		t.Bases = []*Type{base}
	}
	t.mro = linearize(t, t.Bases)
	return t
}

// SetAllocator installs the function used by Alloc. Native types without
// an allocator cannot be instantiated on their own.
func (t *Type) SetAllocator(alloc func(t *Type) Object) {
	t.alloc = alloc
}
