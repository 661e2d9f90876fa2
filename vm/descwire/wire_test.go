package descwire

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/chazu/typecore/vm"
)

// registry is a two-way symbol table standing in for a module's exports.
type registry struct {
	byName map[string]vm.Object
	byObj  map[vm.Object]string
}

func newRegistry() *registry {
	return &registry{byName: map[string]vm.Object{}, byObj: map[vm.Object]string{}}
}

func (r *registry) add(name string, o vm.Object) vm.Object {
	r.byName[name] = o
	r.byObj[o] = name
	return o
}

func (r *registry) name(o vm.Object) (string, error) {
	if n, ok := r.byObj[o]; ok {
		return n, nil
	}
	return "", fmt.Errorf("unexported object %v", o)
}

func (r *registry) link(ref string) (vm.Object, error) {
	if o, ok := r.byName[ref]; ok {
		return vm.Incref(o), nil
	}
	return nil, fmt.Errorf("unknown reference %q", ref)
}

func sampleDesc(t *testing.T, r *registry) *vm.ClassDesc {
	t.Helper()
	d := vm.NewClassDesc("Point")
	d.Doc = "A point in the plane."
	d.Flags = vm.DescAutoInit | vm.DescFinal
	if _, err := d.AddField("x", 0); err != nil {
		t.Fatal(err)
	}
	if _, err := d.AddField("y", vm.AttrReadonly); err != nil {
		t.Fatal(err)
	}
	str := r.add("Point.str", vm.NewFunction("str", func(vm.Object, []vm.Object, vm.Kwds) (vm.Object, error) {
		return vm.NewString("point"), nil
	}))
	if _, err := d.AddOperator(vm.OpStr, str); err != nil {
		t.Fatal(err)
	}
	if _, err := d.AddOperator(vm.OpCopy, nil); err != nil {
		t.Fatal(err)
	}
	norm := r.add("Point.norm", vm.NewFunction("norm", func(vm.Object, []vm.Object, vm.Kwds) (vm.Object, error) {
		return vm.NewInt(0), nil
	}))
	if _, err := d.AddMethod("norm", norm); err != nil {
		t.Fatal(err)
	}
	if _, err := d.AddClassMember("origin", r.add("Point.origin", vm.NewInt(0)), 0); err != nil {
		t.Fatal(err)
	}
	return d
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	r := newRegistry()
	d := sampleDesc(t, r)

	w, err := Encode(d, []string{"Shape"}, r.name)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	data, err := Marshal(w)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	w2, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	got, err := Decode(w2, r.link)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if got.Name != d.Name || got.Doc != d.Doc || got.Flags != d.Flags {
		t.Errorf("header = %q/%q/%v", got.Name, got.Doc, got.Flags)
	}
	if len(w2.Bases) != 1 || w2.Bases[0] != "Shape" {
		t.Errorf("Bases = %v", w2.Bases)
	}
	if got.InstanceMembers != d.InstanceMembers || got.ClassMembers != d.ClassMembers {
		t.Errorf("members = %d/%d, want %d/%d",
			got.InstanceMembers, got.ClassMembers, d.InstanceMembers, d.ClassMembers)
	}
	for _, name := range []string{"x", "y", "norm"} {
		want, have := d.InstanceAttrs.Lookup(name), got.InstanceAttrs.Lookup(name)
		if have == nil || have.Addr != want.Addr || have.Flags != want.Flags {
			t.Errorf("attr %s = %+v, want %+v", name, have, want)
		}
	}
	if a := got.ClassAttrs.Lookup("origin"); a == nil || a.Flags&vm.AttrClassMem == 0 {
		t.Errorf("class attr origin = %+v", a)
	}
	for _, op := range []vm.OperatorID{vm.OpStr, vm.OpCopy} {
		want, _ := d.Operators.Find(op)
		if have, ok := got.Operators.Find(op); !ok || have != want {
			t.Errorf("operator %s at %d, want %d", op, have, want)
		}
	}
	if len(got.Inits) != len(d.Inits) {
		t.Fatalf("len(Inits) = %d, want %d", len(got.Inits), len(d.Inits))
	}
	for i := range d.Inits {
		if got.Inits[i] != d.Inits[i] {
			t.Errorf("Inits[%d] = %+v, want %+v", i, got.Inits[i], d.Inits[i])
		}
	}
}

func TestDecodedDescriptionCreatesClass(t *testing.T) {
	r := newRegistry()
	w, err := Encode(sampleDesc(t, r), nil, r.name)
	if err != nil {
		t.Fatal(err)
	}
	d, err := Decode(w, r.link)
	if err != nil {
		t.Fatal(err)
	}
	typ, err := vm.CreateClass(nil, d, nil)
	if err != nil {
		t.Fatalf("CreateClass: %v", err)
	}
	if typ.Class().Strategy() != vm.CtorAutoInitNoBase {
		t.Errorf("strategy = %s", typ.Class().Strategy())
	}
	o, err := vm.Construct(typ, vm.NewInt(1), vm.NewInt(2))
	if err != nil {
		t.Fatal(err)
	}
	res, err := vm.CallOperator(o, vm.OpStr)
	if err != nil {
		t.Fatal(err)
	}
	if res.(*vm.String).V != "point" {
		t.Errorf("str = %v", res)
	}
	if _, err := vm.Copy(o); !errors.Is(err, vm.ErrOperatorUnbound) {
		t.Errorf("deleted copy survived the round trip: err = %v", err)
	}
}

func TestMarshalIsCanonical(t *testing.T) {
	r := newRegistry()
	d := sampleDesc(t, r)
	w1, _ := Encode(d, nil, r.name)
	w2, _ := Encode(d, nil, r.name)
	a, err := Marshal(w1)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Marshal(w2)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a, b) {
		t.Error("encoding the same description twice produced different bytes")
	}
}

func TestEncodeUnnamedInitializer(t *testing.T) {
	d := vm.NewClassDesc("Anon")
	if _, err := d.AddClassMember("v", vm.NewInt(1), 0); err != nil {
		t.Fatal(err)
	}
	if _, err := Encode(d, nil, newRegistry().name); err == nil {
		t.Error("initializers without a name cannot be encoded")
	}
}

func TestDecodeErrors(t *testing.T) {
	r := newRegistry()
	good, err := Encode(sampleDesc(t, r), nil, r.name)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		mutate func(w *Desc)
	}{
		{"version", func(w *Desc) { w.Version = 99 }},
		{"unknown operator", func(w *Desc) { w.Operators = append(w.Operators, OpBinding{Op: "frobnicate"}) }},
		{"unknown reference", func(w *Desc) { w.Inits = append(w.Inits, Init{Addr: 0, Ref: "missing"}) }},
		{"duplicate attribute", func(w *Desc) { w.InstanceAttrs = append(w.InstanceAttrs, w.InstanceAttrs[0]) }},
		{"slot out of range", func(w *Desc) { w.Operators = append(w.Operators, OpBinding{Op: "+", Addr: 200}) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := *good
			w.Operators = append([]OpBinding(nil), good.Operators...)
			w.Inits = append([]Init(nil), good.Inits...)
			w.InstanceAttrs = append([]Attr(nil), good.InstanceAttrs...)
			tt.mutate(&w)
			if _, err := Decode(&w, r.link); err == nil {
				t.Error("Decode should fail")
			}
		})
	}
}

func TestDecodeReleasesLinkedValuesOnError(t *testing.T) {
	r := newRegistry()
	v := r.add("value", vm.NewString("v"))
	w := &Desc{
		Version:      Version,
		Name:         "Broken",
		ClassMembers: 1,
		Inits:        []Init{{Addr: 0, Ref: "value"}, {Addr: 0, Ref: "missing"}},
	}
	if _, err := Decode(w, r.link); err == nil {
		t.Fatal("Decode should fail")
	}
	if vm.Refcount(v) != 1 {
		t.Errorf("Refcount = %d, want 1", vm.Refcount(v))
	}
}

func TestBundleRoundTrip(t *testing.T) {
	r := newRegistry()
	point, _ := Encode(sampleDesc(t, r), nil, r.name)
	shape := &Desc{Version: Version, Name: "Shape", Flags: uint32(vm.DescAbstract)}

	data, err := MarshalBundle([]*Desc{shape, point})
	if err != nil {
		t.Fatal(err)
	}
	got, err := UnmarshalBundle(data)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Name != "Shape" || got[1].Name != "Point" {
		t.Fatalf("bundle = %+v", got)
	}
	if len(got[1].InstanceAttrs) != len(point.InstanceAttrs) {
		t.Error("bundle lost attributes")
	}

	if _, err := UnmarshalBundle([]byte{0xff}); err == nil {
		t.Error("garbage should not decode")
	}
}
