// Package descwire implements the portable encoding of class
// descriptions. A description travels as a Desc: plain data in which
// every member initializer is replaced by a symbolic reference. The
// receiver turns references back into objects through a linker and
// rebuilds a vm.ClassDesc with the original slot layout.
package descwire

import (
	"fmt"
	"sort"

	"github.com/chazu/typecore/vm"
	"github.com/fxamacker/cbor/v2"
)

// Version is the wire format version written by this package.
const Version = 1

// Desc is the wire form of a vm.ClassDesc.
type Desc struct {
	Version         uint8       `cbor:"1,keyasint"`
	Name            string      `cbor:"2,keyasint"`
	Doc             string      `cbor:"3,keyasint,omitempty"`
	Flags           uint32      `cbor:"4,keyasint"`
	Bases           []string    `cbor:"5,keyasint,omitempty"` // base class names, in declaration order
	InstanceMembers uint16      `cbor:"6,keyasint"`
	ClassMembers    uint16      `cbor:"7,keyasint"`
	InstanceAttrs   []Attr      `cbor:"8,keyasint,omitempty"`
	ClassAttrs      []Attr      `cbor:"9,keyasint,omitempty"`
	Operators       []OpBinding `cbor:"10,keyasint,omitempty"`
	Inits           []Init      `cbor:"11,keyasint,omitempty"`
}

// Attr is one attribute-table entry.
type Attr struct {
	Name  string `cbor:"1,keyasint"`
	Addr  uint16 `cbor:"2,keyasint"`
	Flags uint16 `cbor:"3,keyasint,omitempty"`
	Doc   string `cbor:"4,keyasint,omitempty"`
}

// OpBinding binds an operator to a class slot. Operators travel by name
// so renumbering operator ids does not invalidate stored descriptions.
type OpBinding struct {
	Op   string `cbor:"1,keyasint"`
	Addr uint16 `cbor:"2,keyasint"`
}

// Init binds the class slot at Addr to whatever Ref links to.
type Init struct {
	Addr uint16 `cbor:"1,keyasint"`
	Ref  string `cbor:"2,keyasint"`
}

// Bundle is a set of descriptions stored or sent together.
type Bundle struct {
	Version uint8  `cbor:"1,keyasint"`
	Classes []Desc `cbor:"2,keyasint"`
}

// Namer maps an initializer value to its symbolic reference.
type Namer func(v vm.Object) (string, error)

// Linker maps a symbolic reference to a new reference to its object.
type Linker func(ref string) (vm.Object, error)

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("descwire: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Encode converts d to its wire form. bases names the direct bases the
// class is created with.
func Encode(d *vm.ClassDesc, bases []string, name Namer) (*Desc, error) {
	if d.InstanceMembers > vm.MaxMembers || d.ClassMembers > vm.MaxMembers {
		return nil, fmt.Errorf("descwire: %s: %w", d.Name, vm.ErrTooManyMembers)
	}
	w := &Desc{
		Version:         Version,
		Name:            d.Name,
		Doc:             d.Doc,
		Flags:           uint32(d.Flags),
		Bases:           append([]string(nil), bases...),
		InstanceMembers: uint16(d.InstanceMembers),
		ClassMembers:    uint16(d.ClassMembers),
		InstanceAttrs:   encodeAttrs(d.InstanceAttrs),
		ClassAttrs:      encodeAttrs(d.ClassAttrs),
	}

	var ops []OpBinding
	d.Operators.Each(func(op vm.OperatorID, addr uint16) {
		ops = append(ops, OpBinding{Op: op.String(), Addr: addr})
	})
	sortBindings(ops)
	w.Operators = ops

	for _, in := range d.Inits {
		ref, err := name(in.Value)
		if err != nil {
			return nil, fmt.Errorf("descwire: %s: initializer at %d: %w", d.Name, in.Addr, err)
		}
		w.Inits = append(w.Inits, Init{Addr: in.Addr, Ref: ref})
	}
	return w, nil
}

func encodeAttrs(t *vm.AttrTable) []Attr {
	var result []Attr
	for _, a := range t.Attrs() {
		result = append(result, Attr{Name: a.Name, Addr: a.Addr, Flags: uint16(a.Flags), Doc: a.Doc})
	}
	return result
}

// Decode rebuilds a class description from its wire form. Every
// initializer reference is resolved through link; the description owns
// the returned references.
func Decode(w *Desc, link Linker) (*vm.ClassDesc, error) {
	if w.Version != Version {
		return nil, fmt.Errorf("descwire: %s: unsupported version %d", w.Name, w.Version)
	}
	d := vm.NewClassDesc(w.Name)
	d.Doc = w.Doc
	d.Flags = vm.DescFlags(w.Flags)
	d.InstanceMembers = int(w.InstanceMembers)
	d.ClassMembers = int(w.ClassMembers)

	if err := decodeAttrs(d.InstanceAttrs, w.InstanceAttrs); err != nil {
		return nil, fmt.Errorf("descwire: %s: instance attributes: %w", w.Name, err)
	}
	if err := decodeAttrs(d.ClassAttrs, w.ClassAttrs); err != nil {
		return nil, fmt.Errorf("descwire: %s: class attributes: %w", w.Name, err)
	}
	for _, b := range w.Operators {
		op, ok := vm.OperatorByName(b.Op)
		if !ok {
			return nil, fmt.Errorf("descwire: %s: unknown operator %q", w.Name, b.Op)
		}
		d.Operators.Bind(op, b.Addr)
	}
	for _, in := range w.Inits {
		v, err := link(in.Ref)
		if err != nil {
			releaseInits(d)
			return nil, fmt.Errorf("descwire: %s: link %q: %w", w.Name, in.Ref, err)
		}
		d.Inits = append(d.Inits, vm.MemberInit{Addr: in.Addr, Value: v})
	}
	if err := d.Validate(); err != nil {
		releaseInits(d)
		return nil, err
	}
	return d, nil
}

func decodeAttrs(t *vm.AttrTable, attrs []Attr) error {
	for _, a := range attrs {
		e, err := t.Insert(a.Name, a.Addr, vm.AttrFlags(a.Flags))
		if err != nil {
			return err
		}
		e.Doc = a.Doc
	}
	return nil
}

func releaseInits(d *vm.ClassDesc) {
	for _, in := range d.Inits {
		vm.Decref(in.Value)
	}
	d.Inits = nil
}

func sortBindings(ops []OpBinding) {
	sort.Slice(ops, func(i, j int) bool { return ops[i].Addr < ops[j].Addr })
}

// Marshal serializes a Desc to canonical CBOR bytes.
func Marshal(w *Desc) ([]byte, error) {
	return cborEncMode.Marshal(w)
}

// Unmarshal deserializes a Desc from CBOR bytes.
func Unmarshal(data []byte) (*Desc, error) {
	var w Desc
	if err := cbor.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("descwire: unmarshal desc: %w", err)
	}
	return &w, nil
}

// MarshalBundle serializes a set of descriptions to canonical CBOR bytes.
func MarshalBundle(descs []*Desc) ([]byte, error) {
	b := Bundle{Version: Version, Classes: make([]Desc, len(descs))}
	for i, w := range descs {
		b.Classes[i] = *w
	}
	return cborEncMode.Marshal(&b)
}

// UnmarshalBundle deserializes a bundle from CBOR bytes.
func UnmarshalBundle(data []byte) ([]*Desc, error) {
	var b Bundle
	if err := cbor.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("descwire: unmarshal bundle: %w", err)
	}
	if b.Version != Version {
		return nil, fmt.Errorf("descwire: unsupported bundle version %d", b.Version)
	}
	result := make([]*Desc, len(b.Classes))
	for i := range b.Classes {
		result[i] = &b.Classes[i]
	}
	return result, nil
}
