package manifest

import (
	"fmt"

	"github.com/tliron/commonlog"

	"github.com/chazu/typecore/vm"
	"github.com/chazu/typecore/vm/descwire"
)

// Loaded is a class created from a Source.
type Loaded struct {
	Source Source
	Desc   *vm.ClassDesc
	Type   *vm.Type // borrowed from the class table
}

// LoadClasses creates every class in sources, which must already be in
// load order, and registers it in ct under namespace. Bases are looked up
// in namespace first, then in the global namespace, then among the
// builtin types.
//
// Loading stops at the first failure; classes created before it stay
// registered.
func LoadClasses(ct *vm.ClassTable, namespace string, sources []Source, link descwire.Linker) ([]Loaded, error) {
	log := commonlog.GetLogger("typecore.manifest")
	result := make([]Loaded, 0, len(sources))
	for _, s := range sources {
		d, err := s.Desc(link)
		if err != nil {
			return result, err
		}
		bases := make([]*vm.Type, 0, len(s.Bases))
		for _, b := range s.Bases {
			t := lookupBase(ct, namespace, b)
			if t == nil {
				return result, fmt.Errorf("%s: class %s: unknown base %s", s.File, s.Name, b)
			}
			bases = append(bases, t)
		}
		typ, err := vm.CreateClass(bases, d, nil)
		if err != nil {
			return result, fmt.Errorf("%s: %w", s.File, err)
		}
		err = ct.Register(namespace, typ)
		vm.Decref(typ)
		if err != nil {
			return result, err
		}
		log.Infof("loaded class %s from %s", s.Name, s.File)
		result = append(result, Loaded{Source: s, Desc: d, Type: typ})
	}
	return result, nil
}

func lookupBase(ct *vm.ClassTable, namespace, name string) *vm.Type {
	if namespace != "" {
		if t := ct.LookupInNamespace(namespace, name); t != nil {
			return t
		}
	}
	if t := ct.Lookup(name); t != nil {
		return t
	}
	return BuiltinType(name)
}

// EncodeClasses converts loaded classes to their wire form, naming
// initializers through name.
func EncodeClasses(loaded []Loaded, name descwire.Namer) ([]*descwire.Desc, error) {
	result := make([]*descwire.Desc, len(loaded))
	for i, l := range loaded {
		w, err := descwire.Encode(l.Desc, l.Source.Bases, name)
		if err != nil {
			return nil, err
		}
		result[i] = w
	}
	return result, nil
}
