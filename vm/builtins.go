package vm

import (
	"fmt"
	"math"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Root types
// ---------------------------------------------------------------------------

// Plain is an instance of the root Object type.
type Plain struct {
	Header
}

var (
	// ObjectType is the universal base of every type.
	ObjectType *Type
	// TypeType is the type of every Type.
	TypeType *Type

	NoneType     *Type
	IntType      *Type
	StringType   *Type
	TupleType    *Type
	FunctionType *Type
	KwdsType     *Type

	// None is the unit value. Its reference count never drops to zero.
	None Object
)

func init() {
	ObjectType = &Type{Name: "Object"}
	TypeType = &Type{Name: "Type", Base: ObjectType, Bases: []*Type{ObjectType}}
	for _, t := range []*Type{ObjectType, TypeType} {
		initHeader(&t.Header, TypeType)
		t.refcnt.Store(math.MaxInt32)
		t.ID = uuid.New()
	}
	ObjectType.mro = []*Type{ObjectType}
	TypeType.mro = []*Type{TypeType, ObjectType}

	ObjectType.alloc = func(t *Type) Object {
		p := &Plain{}
		initHeader(&p.Header, t)
		return p
	}
	// The root type takes no arguments: it only has a no-argument entry
	// point, which makes passing it arguments a protocol violation.
	ObjectType.Init = InitOps{
		Ctor:     func(Object) error { return nil },
		CopyCtor: func(Object, Object) error { return nil },
		DeepCtor: func(Object, Object) error { return nil },
		Fini:     func(Object) error { return nil },
	}

	TypeType.Life.Dtor = destroyType

	NoneType = builtinType("none", TypeImmutable)
	none := &Plain{}
	initHeader(&none.Header, NoneType)
	none.refcnt.Store(math.MaxInt32)
	None = none

	IntType = builtinType("int", TypeImmutable)
	StringType = builtinType("string", TypeImmutable)
	FunctionType = builtinType("Function", TypeImmutable)

	TupleType = builtinType("Tuple", TypeGC)
	TupleType.Life = LifecycleOps{
		Dtor: func(self Object) bool {
			t := self.(*Tuple)
			items := t.Items
			t.Items = nil
			for _, it := range items {
				Decref(it)
			}
			return true
		},
		Copy: func(self Object) (Object, error) {
			return NewTuple(self.(*Tuple).Items...), nil
		},
		DeepCopy: deepCopyTuple,
		Visit: func(self Object, visit func(Object)) {
			for _, it := range self.(*Tuple).Items {
				visit(it)
			}
		},
	}

	KwdsType = builtinType("Kwds", 0)
	KwdsType.Life.Dtor = func(self Object) bool {
		k := self.(*KwdsMap)
		values := k.values
		k.values, k.names = nil, nil
		for _, v := range values {
			Decref(v)
		}
		return true
	}
}

func builtinType(name string, flags TypeFlags) *Type {
	t := NewNativeType(name, ObjectType, flags|TypeFinal)
	t.refcnt.Store(math.MaxInt32)
	return t
}

// ---------------------------------------------------------------------------
// Scalar values
// ---------------------------------------------------------------------------

// Int is an immutable integer.
type Int struct {
	Header
	V int64
}

// NewInt returns a new integer object.
func NewInt(v int64) *Int {
	i := &Int{V: v}
	initHeader(&i.Header, IntType)
	return i
}

func (i *Int) String() string { return fmt.Sprint(i.V) }

// String is an immutable string.
type String struct {
	Header
	V string
}

// NewString returns a new string object.
func NewString(v string) *String {
	s := &String{V: v}
	initHeader(&s.Header, StringType)
	return s
}

func (s *String) String() string { return s.V }

// ---------------------------------------------------------------------------
// Tuple
// ---------------------------------------------------------------------------

// Tuple is a fixed sequence of owned references.
type Tuple struct {
	Header
	Items []Object
}

// NewTuple returns a tuple holding new references to items.
func NewTuple(items ...Object) *Tuple {
	t := &Tuple{Items: make([]Object, len(items))}
	initHeader(&t.Header, TupleType)
	for i, it := range items {
		t.Items[i] = Incref(it)
	}
	return t
}

func deepCopyTuple(self Object) (Object, error) {
	src := self.(*Tuple)
	items := make([]Object, len(src.Items))
	for i, it := range src.Items {
		c, err := DeepCopy(it)
		if err != nil {
			for _, done := range items[:i] {
				Decref(done)
			}
			return nil, err
		}
		items[i] = c
	}
	t := &Tuple{Items: items}
	initHeader(&t.Header, TupleType)
	return t, nil
}

// ---------------------------------------------------------------------------
// Functions
// ---------------------------------------------------------------------------

// FuncImpl is the body of a Function. this is nil for plain calls.
type FuncImpl func(this Object, args []Object, kw Kwds) (Object, error)

// Callable objects can be invoked with an optional this argument.
type Callable interface {
	Object
	CallThis(this Object, args []Object, kw Kwds) (Object, error)
}

// Function wraps a Go function as a callable runtime object.
type Function struct {
	Header
	Name string
	Fn   FuncImpl
}

// NewFunction returns a new function object.
func NewFunction(name string, fn FuncImpl) *Function {
	f := &Function{Name: name, Fn: fn}
	initHeader(&f.Header, FunctionType)
	return f
}

// CallThis implements Callable.
func (f *Function) CallThis(this Object, args []Object, kw Kwds) (Object, error) {
	return f.Fn(this, args, kw)
}

func (f *Function) String() string { return f.Name }

// Call invokes fn without a this argument. The result is a new reference.
func Call(fn Object, args ...Object) (Object, error) {
	return ThisCallKw(fn, nil, args, nil)
}

// ThisCall invokes fn with this passed as the implicit first argument.
func ThisCall(fn, this Object, args ...Object) (Object, error) {
	return ThisCallKw(fn, this, args, nil)
}

// ThisCallKw is ThisCall with keyword arguments.
func ThisCallKw(fn, this Object, args []Object, kw Kwds) (Object, error) {
	c, ok := fn.(Callable)
	if !ok {
		return nil, fmt.Errorf("%w: %s object is not callable", ErrTypeMismatch, TypeOf(fn))
	}
	res, err := c.CallThis(this, args, kw)
	if err != nil {
		return nil, err
	}
	if res == nil {
		res = Incref(None)
	}
	return res, nil
}
