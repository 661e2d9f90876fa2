package vm

import (
	"errors"
	"testing"
)

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

func fn(name string, impl FuncImpl) *Function {
	return NewFunction(name, impl)
}

// ret returns a function that ignores its arguments and returns a new
// reference to v.
func ret(v Object) *Function {
	return fn("ret", func(Object, []Object, Kwds) (Object, error) {
		return Incref(v), nil
	})
}

func mustField(t testing.TB, d *ClassDesc, name string, flags AttrFlags) uint16 {
	t.Helper()
	addr, err := d.AddField(name, flags)
	if err != nil {
		t.Fatalf("AddField(%q): %v", name, err)
	}
	return addr
}

func mustOp(t testing.TB, d *ClassDesc, op OperatorID, f Object) {
	t.Helper()
	if _, err := d.AddOperator(op, f); err != nil {
		t.Fatalf("AddOperator(%s): %v", op, err)
	}
}

func mustCreate(t testing.TB, d *ClassDesc, bases ...*Type) *Type {
	t.Helper()
	typ, err := CreateClass(bases, d, nil)
	if err != nil {
		t.Fatalf("CreateClass(%s): %v", d.Name, err)
	}
	return typ
}

func mustConstruct(t testing.TB, typ *Type, args ...Object) Object {
	t.Helper()
	o, err := Construct(typ, args...)
	if err != nil {
		t.Fatalf("Construct(%s): %v", typ.Name, err)
	}
	return o
}

func mustGet(t testing.TB, o Object, name string) Object {
	t.Helper()
	v, err := GetAttr(o, name)
	if err != nil {
		t.Fatalf("GetAttr(%q): %v", name, err)
	}
	Decref(v)
	return v
}

func intValue(t testing.TB, o Object) int64 {
	t.Helper()
	i, ok := o.(*Int)
	if !ok {
		t.Fatalf("got %s, want int", TypeOf(o))
	}
	return i.V
}

// ---------------------------------------------------------------------------
// Reference counting
// ---------------------------------------------------------------------------

func TestIncrefDecref(t *testing.T) {
	s := NewString("x")
	if Refcount(s) != 1 {
		t.Fatalf("Refcount = %d, want 1", Refcount(s))
	}
	if Incref(s) != s {
		t.Error("Incref should return its argument")
	}
	if Refcount(s) != 2 {
		t.Errorf("Refcount = %d, want 2", Refcount(s))
	}
	Decref(s)
	Decref(s)
	if !IsDead(s) {
		t.Error("string should be dead after its last reference went away")
	}
}

func TestIncrefDecrefNil(t *testing.T) {
	if Incref(nil) != nil {
		t.Error("Incref(nil) should be nil")
	}
	Decref(nil)
	if Refcount(nil) != 0 {
		t.Error("Refcount(nil) should be 0")
	}
	if TypeOf(nil) != nil {
		t.Error("TypeOf(nil) should be nil")
	}
}

func TestDecrefIfNotOne(t *testing.T) {
	s := NewString("x")
	if DecrefIfNotOne(s) {
		t.Fatal("DecrefIfNotOne must not drop the last reference")
	}
	if Refcount(s) != 1 || IsDead(s) {
		t.Fatalf("object changed: refcount %d, dead %v", Refcount(s), IsDead(s))
	}
	Incref(s)
	if !DecrefIfNotOne(s) {
		t.Fatal("DecrefIfNotOne should drop a non-last reference")
	}
	if Refcount(s) != 1 {
		t.Errorf("Refcount = %d, want 1", Refcount(s))
	}
}

func TestNoneSurvives(t *testing.T) {
	before := Refcount(None)
	Decref(None)
	Incref(None)
	if Refcount(None) != before || IsDead(None) {
		t.Error("None must never be destroyed")
	}
}

func TestTupleReleasesItems(t *testing.T) {
	s := NewString("item")
	tup := NewTuple(s, s)
	if Refcount(s) != 3 {
		t.Fatalf("Refcount = %d, want 3", Refcount(s))
	}
	Decref(tup)
	if Refcount(s) != 1 {
		t.Errorf("Refcount after tuple teardown = %d, want 1", Refcount(s))
	}
}

func TestCallNonCallable(t *testing.T) {
	_, err := Call(NewInt(1))
	if !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("err = %v, want ErrTypeMismatch", err)
	}
}

func TestCallNilResultIsNone(t *testing.T) {
	f := fn("nothing", func(Object, []Object, Kwds) (Object, error) { return nil, nil })
	res, err := Call(f)
	if err != nil {
		t.Fatal(err)
	}
	if res != None {
		t.Errorf("result = %v, want None", res)
	}
}

func TestKwdsLaterValueWins(t *testing.T) {
	k := NewKwds(KwArg{"a", NewInt(1)}, KwArg{"b", NewInt(2)}, KwArg{"a", NewInt(3)})
	if k.Len() != 2 {
		t.Fatalf("Len = %d, want 2", k.Len())
	}
	v, ok := k.Lookup("a")
	if !ok || intValue(t, v) != 3 {
		t.Errorf("a = %v, want 3", v)
	}
	if names := k.Names(); names[0] != "a" || names[1] != "b" {
		t.Errorf("Names = %v, want [a b]", names)
	}
}

func TestNativeTypeAllocator(t *testing.T) {
	nt := NewNativeType("Native", ObjectType, 0)
	if _, err := nt.Alloc(); !errors.Is(err, ErrOperatorNotImplemented) {
		t.Errorf("Alloc without allocator: err = %v", err)
	}
	nt.SetAllocator(func(t *Type) Object {
		p := &Plain{}
		initHeader(&p.Header, t)
		return p
	})
	o, err := nt.Alloc()
	if err != nil {
		t.Fatal(err)
	}
	if TypeOf(o) != nt {
		t.Errorf("TypeOf = %v, want Native", TypeOf(o))
	}
	if got := nt.MRO(); len(got) != 2 || got[1] != ObjectType {
		t.Errorf("MRO = %v", got)
	}
}
