package manifest

import (
	"errors"
	"strings"
	"testing"

	"github.com/chazu/typecore/vm"
)

const pointFile = `
[[class]]
name = "Point"
doc = "A point in the plane."
bases = ["Shape"]
flags = ["final", "auto-init"]
deleted = ["copy"]

[[class.field]]
name = "x"
doc = "Horizontal position."

[[class.field]]
name = "y"
flags = ["readonly"]

[[class.field]]
name = "cache"
flags = ["private", "no-auto-init"]

[[class.method]]
name = "me"
ref = "fn:self"

[[class.getter]]
name = "label"
ref = "fn:nop"

[[class.member]]
name = "dimensions"
ref = "int:2"

[[class.member]]
name = "scratch"

[class.operators]
str = "fn:nop"
"+" = "fn:first"

[[class]]
name = "Shape"
flags = ["abstract"]
`

func TestParseClassFile(t *testing.T) {
	cf, err := ParseClassFile([]byte(pointFile))
	if err != nil {
		t.Fatalf("ParseClassFile: %v", err)
	}
	if len(cf.Classes) != 2 {
		t.Fatalf("len(Classes) = %d, want 2", len(cf.Classes))
	}
	p := cf.Classes[0]
	if p.Name != "Point" || len(p.Bases) != 1 || p.Bases[0] != "Shape" {
		t.Errorf("Point header = %+v", p)
	}
	if len(p.Fields) != 3 || len(p.Methods) != 1 || len(p.Getters) != 1 || len(p.Members) != 2 {
		t.Errorf("member counts = %d/%d/%d/%d", len(p.Fields), len(p.Methods), len(p.Getters), len(p.Members))
	}
	if p.Operators["+"] != "fn:first" || len(p.Deleted) != 1 {
		t.Errorf("operators = %v, deleted = %v", p.Operators, p.Deleted)
	}
}

func TestParseClassFileErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"syntax", "[[class]\nname = 1"},
		{"unknown key", "[[class]]\nname = \"A\"\ncolour = \"red\"\n"},
		{"no name", "[[class]]\ndoc = \"anonymous\"\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ParseClassFile([]byte(tc.content)); err == nil {
				t.Error("ParseClassFile should fail")
			}
		})
	}
}

func TestBuildClassSpec(t *testing.T) {
	cf, err := ParseClassFile([]byte(pointFile))
	if err != nil {
		t.Fatal(err)
	}
	d, err := cf.Classes[0].Build(NewSymbols().Link)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if d.Flags != vm.DescFinal|vm.DescAutoInit {
		t.Errorf("Flags = %v", d.Flags)
	}
	if d.InstanceMembers != 3 {
		t.Errorf("InstanceMembers = %d, want 3", d.InstanceMembers)
	}
	// me, label, dimensions, scratch, then str, +, copy.
	if d.ClassMembers != 7 {
		t.Errorf("ClassMembers = %d, want 7", d.ClassMembers)
	}

	fields := []struct {
		name  string
		addr  uint16
		flags vm.AttrFlags
	}{
		{"x", 0, 0},
		{"y", 1, vm.AttrReadonly},
		{"cache", 2, vm.AttrPrivate | vm.AttrNoAutoInit},
	}
	for _, f := range fields {
		a := d.InstanceAttrs.Lookup(f.name)
		if a == nil || a.Addr != f.addr || a.Flags != f.flags {
			t.Errorf("field %s = %+v, want addr %d flags %v", f.name, a, f.addr, f.flags)
		}
	}
	if a := d.InstanceAttrs.Lookup("x"); a.Doc != "Horizontal position." {
		t.Errorf("x doc = %q", a.Doc)
	}
	if a := d.InstanceAttrs.Lookup("me"); a == nil || a.Flags&vm.AttrMethod == 0 {
		t.Errorf("method me = %+v", a)
	}
	if a := d.InstanceAttrs.Lookup("label"); a == nil || a.Flags&vm.AttrGetSet == 0 {
		t.Errorf("getter label = %+v", a)
	}

	// Operators take slots in id order after the members.
	wantOps := map[vm.OperatorID]uint16{vm.OpCopy: 4, vm.OpStr: 5, vm.OpAdd: 6}
	for op, want := range wantOps {
		if got, ok := d.Operators.Find(op); !ok || got != want {
			t.Errorf("operator %s at %d (%v), want %d", op, got, ok, want)
		}
	}

	// Unbound member and deleted copy have no initializer.
	if len(d.Inits) != 5 {
		t.Errorf("len(Inits) = %d, want 5", len(d.Inits))
	}
}

func TestBuiltClassBehaves(t *testing.T) {
	cf, err := ParseClassFile([]byte(pointFile))
	if err != nil {
		t.Fatal(err)
	}
	syms := NewSymbols()
	shapeDesc, err := cf.Classes[1].Build(syms.Link)
	if err != nil {
		t.Fatal(err)
	}
	shape, err := vm.CreateClass(nil, shapeDesc, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer vm.Decref(shape)
	pointDesc, err := cf.Classes[0].Build(syms.Link)
	if err != nil {
		t.Fatal(err)
	}
	point, err := vm.CreateClass([]*vm.Type{shape}, pointDesc, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer vm.Decref(point)

	o, err := vm.Construct(point, vm.NewInt(3), vm.NewInt(4))
	if err != nil {
		t.Fatalf("Construct: %v", err)
	}
	defer vm.Decref(o)

	x, err := vm.GetAttr(o, "x")
	if err != nil {
		t.Fatal(err)
	}
	if x.(*vm.Int).V != 3 {
		t.Errorf("x = %v, want 3", x)
	}
	vm.Decref(x)

	me, err := vm.CallMethod(o, "me")
	if err != nil {
		t.Fatal(err)
	}
	if me != o {
		t.Errorf("me() = %v, want the instance", me)
	}
	vm.Decref(me)

	sum, err := vm.CallOperator(o, vm.OpAdd, vm.NewInt(7))
	if err != nil {
		t.Fatal(err)
	}
	if sum.(*vm.Int).V != 7 {
		t.Errorf("o + 7 = %v, want 7 (first argument)", sum)
	}
	vm.Decref(sum)

	if _, err := vm.Copy(o); !errors.Is(err, vm.ErrOperatorUnbound) {
		t.Errorf("Copy err = %v, want ErrOperatorUnbound", err)
	}
}

func TestBuildClassSpecErrors(t *testing.T) {
	tests := []struct {
		name string
		spec ClassSpec
		want string
	}{
		{"class flag", ClassSpec{Name: "A", Flags: []string{"sealed"}}, "unknown flag"},
		{"field flag", ClassSpec{Name: "A", Fields: []FieldSpec{{Name: "f", Flags: []string{"hidden"}}}}, "unknown flag"},
		{"duplicate field", ClassSpec{Name: "A", Fields: []FieldSpec{{Name: "f"}, {Name: "f"}}}, "duplicate"},
		{"method without ref", ClassSpec{Name: "A", Methods: []MemberSpec{{Name: "m"}}}, "no ref"},
		{"bad ref", ClassSpec{Name: "A", Methods: []MemberSpec{{Name: "m", Ref: "fn:missing"}}}, "undefined function"},
		{"unknown operator", ClassSpec{Name: "A", Operators: map[string]string{"<=>": "fn:nop"}}, "unknown operator"},
		{"empty operator ref", ClassSpec{Name: "A", Operators: map[string]string{"str": ""}}, "deleted"},
		{"bound and deleted", ClassSpec{Name: "A", Operators: map[string]string{"str": "fn:nop"}, Deleted: []string{"str"}}, "twice"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.spec.Build(NewSymbols().Link)
			if err == nil {
				t.Fatal("Build should fail")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}
