package manifest

import (
	"fmt"
	"os"
	"sort"

	"github.com/BurntSushi/toml"

	"github.com/chazu/typecore/vm"
	"github.com/chazu/typecore/vm/descwire"
)

// ClassFile is a TOML file declaring one or more classes:
//
//	[[class]]
//	name = "Point"
//	bases = ["Shape"]
//	flags = ["final", "auto-init"]
//	deleted = ["copy"]
//
//	[[class.field]]
//	name = "x"
//
//	[[class.method]]
//	name = "norm"
//	ref = "fn:nop"
//
//	[class.operators]
//	str = "fn:repr"
type ClassFile struct {
	Classes []ClassSpec `toml:"class"`

	// Path is the file the classes were read from (set at load time).
	Path string `toml:"-"`
}

// ClassSpec declares a single class.
type ClassSpec struct {
	Name  string   `toml:"name"`
	Doc   string   `toml:"doc"`
	Bases []string `toml:"bases"`
	Flags []string `toml:"flags"`

	Fields  []FieldSpec  `toml:"field"`
	Methods []MemberSpec `toml:"method"`
	Getters []MemberSpec `toml:"getter"`
	Members []MemberSpec `toml:"member"`

	// Operators maps operator names to references.
	Operators map[string]string `toml:"operators"`
	// Deleted lists operators declared without an implementation.
	Deleted []string `toml:"deleted"`
}

// FieldSpec declares an instance field.
type FieldSpec struct {
	Name  string   `toml:"name"`
	Doc   string   `toml:"doc"`
	Flags []string `toml:"flags"`
}

// MemberSpec declares a method, getter or class member whose value is
// linked from Ref.
type MemberSpec struct {
	Name  string   `toml:"name"`
	Doc   string   `toml:"doc"`
	Ref   string   `toml:"ref"`
	Flags []string `toml:"flags"`
}

var classFlagNames = map[string]vm.DescFlags{
	"final":        vm.DescFinal,
	"abstract":     vm.DescAbstract,
	"inherit-ctor": vm.DescInheritCtor,
	"auto-init":    vm.DescAutoInit,
	"super-kwds":   vm.DescSuperKwds,
}

var attrFlagNames = map[string]vm.AttrFlags{
	"private":      vm.AttrPrivate,
	"readonly":     vm.AttrReadonly,
	"no-auto-init": vm.AttrNoAutoInit,
}

// ReadClassFile parses a TOML class file.
func ReadClassFile(path string) (*ClassFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	cf, err := ParseClassFile(data)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	cf.Path = path
	return cf, nil
}

// ParseClassFile parses TOML class declarations.
func ParseClassFile(data []byte) (*ClassFile, error) {
	var cf ClassFile
	md, err := toml.Decode(string(data), &cf)
	if err != nil {
		return nil, err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown key %s", undecoded[0])
	}
	for i := range cf.Classes {
		if cf.Classes[i].Name == "" {
			return nil, fmt.Errorf("class #%d has no name", i+1)
		}
	}
	return &cf, nil
}

// Build turns the declaration into a class description. Slots are
// assigned in declaration order: fields, then methods, getters, class
// members and finally operators in operator-id order.
func (s *ClassSpec) Build(link descwire.Linker) (*vm.ClassDesc, error) {
	d := vm.NewClassDesc(s.Name)
	d.Doc = s.Doc
	for _, f := range s.Flags {
		flag, ok := classFlagNames[f]
		if !ok {
			return nil, fmt.Errorf("class %s: unknown flag %q", s.Name, f)
		}
		d.Flags |= flag
	}

	for _, f := range s.Fields {
		flags, err := attrFlags(s.Name, f.Name, f.Flags)
		if err != nil {
			return nil, err
		}
		addr, err := d.AddField(f.Name, flags)
		if err != nil {
			return nil, err
		}
		setDoc(d.InstanceAttrs, f.Name, addr, f.Doc)
	}

	add := func(kind string, m MemberSpec, fn func(v vm.Object, flags vm.AttrFlags) (*vm.AttrTable, uint16, error)) error {
		flags, err := attrFlags(s.Name, m.Name, m.Flags)
		if err != nil {
			return err
		}
		var v vm.Object
		if m.Ref != "" {
			if v, err = link(m.Ref); err != nil {
				return fmt.Errorf("class %s: %s %s: %w", s.Name, kind, m.Name, err)
			}
			// The description takes its own reference.
			defer vm.Decref(v)
		} else if kind != "member" {
			return fmt.Errorf("class %s: %s %s has no ref", s.Name, kind, m.Name)
		}
		table, addr, err := fn(v, flags)
		if err != nil {
			return err
		}
		setDoc(table, m.Name, addr, m.Doc)
		return nil
	}
	for _, m := range s.Methods {
		if err := add("method", m, func(v vm.Object, _ vm.AttrFlags) (*vm.AttrTable, uint16, error) {
			addr, err := d.AddMethod(m.Name, v)
			return d.InstanceAttrs, addr, err
		}); err != nil {
			return nil, err
		}
	}
	for _, m := range s.Getters {
		if err := add("getter", m, func(v vm.Object, _ vm.AttrFlags) (*vm.AttrTable, uint16, error) {
			addr, err := d.AddGetter(m.Name, v)
			return d.InstanceAttrs, addr, err
		}); err != nil {
			return nil, err
		}
	}
	for _, m := range s.Members {
		if err := add("member", m, func(v vm.Object, flags vm.AttrFlags) (*vm.AttrTable, uint16, error) {
			addr, err := d.AddClassMember(m.Name, v, flags)
			return d.ClassAttrs, addr, err
		}); err != nil {
			return nil, err
		}
	}

	ops, err := s.operators()
	if err != nil {
		return nil, err
	}
	for _, b := range ops {
		var v vm.Object
		if b.ref != "" {
			if v, err = link(b.ref); err != nil {
				return nil, fmt.Errorf("class %s: operator %s: %w", s.Name, b.op, err)
			}
		}
		_, err := d.AddOperator(b.op, v)
		vm.Decref(v)
		if err != nil {
			return nil, err
		}
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

type opRef struct {
	op  vm.OperatorID
	ref string
}

// operators merges bound and deleted operators, ordered by id.
func (s *ClassSpec) operators() ([]opRef, error) {
	var result []opRef
	seen := make(map[vm.OperatorID]bool)
	addOp := func(name, ref string) error {
		op, ok := vm.OperatorByName(name)
		if !ok {
			return fmt.Errorf("class %s: unknown operator %q", s.Name, name)
		}
		if seen[op] {
			return fmt.Errorf("class %s: operator %s declared twice", s.Name, name)
		}
		seen[op] = true
		result = append(result, opRef{op: op, ref: ref})
		return nil
	}
	for name, ref := range s.Operators {
		if ref == "" {
			return nil, fmt.Errorf("class %s: operator %s has no ref; list it under deleted", s.Name, name)
		}
		if err := addOp(name, ref); err != nil {
			return nil, err
		}
	}
	for _, name := range s.Deleted {
		if err := addOp(name, ""); err != nil {
			return nil, err
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].op < result[j].op })
	return result, nil
}

func attrFlags(class, attr string, names []string) (vm.AttrFlags, error) {
	var flags vm.AttrFlags
	for _, n := range names {
		f, ok := attrFlagNames[n]
		if !ok {
			return 0, fmt.Errorf("class %s: %s: unknown flag %q", class, attr, n)
		}
		flags |= f
	}
	return flags, nil
}

func setDoc(t *vm.AttrTable, name string, addr uint16, doc string) {
	if doc == "" {
		return
	}
	if a := t.Lookup(name); a != nil && a.Addr == addr {
		a.Doc = doc
	}
}
