package vm

import (
	"errors"
	"fmt"
	"testing"
)

func TestAttrTableInsertLookup(t *testing.T) {
	tab := NewAttrTable()
	const n = 100
	for i := 0; i < n; i++ {
		if _, err := tab.Insert(fmt.Sprintf("f%d", i), uint16(i), 0); err != nil {
			t.Fatalf("Insert(f%d): %v", i, err)
		}
		if tab.Len()*3 > tab.Cap()*2 {
			t.Fatalf("load factor exceeded after %d inserts: len %d cap %d", i+1, tab.Len(), tab.Cap())
		}
		if c := tab.Cap() + 1; c&(c-1) != 0 {
			t.Fatalf("capacity %d is not a power of two minus one", tab.Cap())
		}
	}
	if tab.Len() != n {
		t.Errorf("Len = %d, want %d", tab.Len(), n)
	}
	for i := 0; i < n; i++ {
		name := fmt.Sprintf("f%d", i)
		a := tab.Lookup(name)
		if a == nil {
			t.Fatalf("Lookup(%q) = nil", name)
		}
		if a.Addr != uint16(i) || a.Name != name || a.Hash != HashName(name) {
			t.Errorf("Lookup(%q) = %+v", name, a)
		}
	}
	if tab.Lookup("missing") != nil {
		t.Error("Lookup of a missing name should be nil")
	}
}

func TestAttrTableMinimumCapacity(t *testing.T) {
	tab := NewAttrTable()
	if tab.Cap() != 0 {
		t.Errorf("empty Cap = %d, want 0", tab.Cap())
	}
	tab.Insert("x", 0, 0)
	if tab.Cap() != minAttrMask {
		t.Errorf("Cap = %d, want %d", tab.Cap(), minAttrMask)
	}
}

func TestAttrTableDuplicate(t *testing.T) {
	tab := NewAttrTable()
	if _, err := tab.Insert("x", 0, 0); err != nil {
		t.Fatal(err)
	}
	_, err := tab.Insert("x", 1, 0)
	if !errors.Is(err, ErrDuplicateMember) {
		t.Errorf("err = %v, want ErrDuplicateMember", err)
	}
	if tab.Len() != 1 {
		t.Errorf("Len = %d, want 1", tab.Len())
	}
	if tab.Lookup("x").Addr != 0 {
		t.Error("duplicate insert must not replace the original entry")
	}
}

func TestAttrTableEmptyName(t *testing.T) {
	if _, err := NewAttrTable().Insert("", 0, 0); err == nil {
		t.Error("empty names should be rejected")
	}
}

func TestAttrTableNilLookup(t *testing.T) {
	var tab *AttrTable
	if tab.Lookup("x") != nil {
		t.Error("nil table should find nothing")
	}
	if tab.Attrs() != nil {
		t.Error("nil table should have no attributes")
	}
}

func TestAttrTableOnRehash(t *testing.T) {
	tab := NewAttrTable()
	grown := 0
	tab.OnRehash = func(*AttrTable) { grown++ }
	for i := 0; i < 20; i++ {
		tab.Insert(fmt.Sprintf("a%d", i), uint16(i), 0)
	}
	// 7 -> 15 -> 31 plus the initial allocation.
	if grown != 3 {
		t.Errorf("OnRehash called %d times, want 3", grown)
	}
}

func TestAttrTableAttrsOrdered(t *testing.T) {
	tab := NewAttrTable()
	names := []string{"z", "y", "x", "w", "v"}
	for i, name := range names {
		tab.Insert(name, uint16(len(names)-1-i), 0)
	}
	attrs := tab.Attrs()
	if len(attrs) != len(names) {
		t.Fatalf("len(Attrs) = %d", len(attrs))
	}
	for i, a := range attrs {
		if a.Addr != uint16(i) {
			t.Errorf("Attrs[%d].Addr = %d", i, a.Addr)
		}
	}
	if tab.MaxAddr() != len(names) {
		t.Errorf("MaxAddr = %d, want %d", tab.MaxAddr(), len(names))
	}
}

func TestAttrAutoInitEligibility(t *testing.T) {
	tests := []struct {
		flags AttrFlags
		want  bool
	}{
		{0, true},
		{AttrReadonly, true},
		{AttrPrivate, false},
		{AttrNoAutoInit, false},
		{AttrMethod | AttrClassMem, false},
		{AttrGetSet | AttrClassMem, false},
	}
	for _, tt := range tests {
		a := &Attr{Name: "x", Flags: tt.flags}
		if got := a.autoInitEligible(); got != tt.want {
			t.Errorf("flags %#x: eligible = %v, want %v", tt.flags, got, tt.want)
		}
	}
}
