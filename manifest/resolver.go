package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tliron/commonlog"

	"github.com/chazu/typecore/vm"
	"github.com/chazu/typecore/vm/descwire"
)

// Source is one class declaration read from a class file, either a TOML
// declaration or a CBOR-encoded description.
type Source struct {
	Name  string
	Bases []string
	File  string

	spec *ClassSpec
	wire *descwire.Desc
}

// Desc builds the class description, linking member references
// through link.
func (s *Source) Desc(link descwire.Linker) (*vm.ClassDesc, error) {
	var d *vm.ClassDesc
	var err error
	if s.spec != nil {
		d, err = s.spec.Build(link)
	} else {
		d, err = descwire.Decode(s.wire, link)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.File, err)
	}
	return d, nil
}

// ReadSources reads every class declared in paths. Files ending in
// .cbor hold description bundles; everything else is a TOML class file.
func ReadSources(paths []string) ([]Source, error) {
	var sources []Source
	for _, path := range paths {
		if strings.EqualFold(filepath.Ext(path), ".cbor") {
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("cannot read %s: %w", path, err)
			}
			descs, err := descwire.UnmarshalBundle(data)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", path, err)
			}
			for _, w := range descs {
				sources = append(sources, Source{Name: w.Name, Bases: w.Bases, File: path, wire: w})
			}
			continue
		}
		cf, err := ReadClassFile(path)
		if err != nil {
			return nil, err
		}
		for i := range cf.Classes {
			spec := &cf.Classes[i]
			sources = append(sources, Source{Name: spec.Name, Bases: spec.Bases, File: path, spec: spec})
		}
	}
	return sources, nil
}

// Resolver orders class sources so that every class follows its bases.
type Resolver struct {
	manifest *Manifest
	// external reports whether a base not declared by any source is
	// already available.
	external func(name string) bool
	log      commonlog.Logger
}

// NewResolver creates a resolver for the classes of m. external may be
// nil, in which case only builtin types count as available bases.
func NewResolver(m *Manifest, external func(name string) bool) *Resolver {
	return &Resolver{
		manifest: m,
		external: external,
		log:      commonlog.GetLogger("typecore.manifest"),
	}
}

// Resolve reads every class file of the manifest and returns the
// classes in load order (topologically sorted: bases before subclasses).
func (r *Resolver) Resolve() ([]Source, error) {
	paths, err := r.manifest.ClassFilePaths()
	if err != nil {
		return nil, err
	}
	sources, err := ReadSources(paths)
	if err != nil {
		return nil, err
	}
	r.log.Debugf("read %d classes from %d files", len(sources), len(paths))
	return r.Order(sources)
}

// Order sorts sources so that every class follows the classes it
// derives from. Declaration order is kept where the bases allow it.
func (r *Resolver) Order(sources []Source) ([]Source, error) {
	byName := make(map[string]int, len(sources))
	for i, s := range sources {
		if j, ok := byName[s.Name]; ok {
			return nil, fmt.Errorf("class %s declared in %s and %s", s.Name, sources[j].File, s.File)
		}
		byName[s.Name] = i
	}

	const (
		unvisited = iota
		visiting
		done
	)
	state := make([]int, len(sources))
	order := make([]Source, 0, len(sources))

	var visit func(i int, path []string) error
	visit = func(i int, path []string) error {
		s := sources[i]
		switch state[i] {
		case done:
			return nil
		case visiting:
			return fmt.Errorf("inheritance cycle: %s", strings.Join(append(path, s.Name), " -> "))
		}
		state[i] = visiting
		path = append(path[:len(path):len(path)], s.Name)
		for _, b := range s.Bases {
			if j, ok := byName[b]; ok {
				if err := visit(j, path); err != nil {
					return err
				}
				continue
			}
			if !r.available(b) {
				return fmt.Errorf("%s: class %s: unknown base %s", s.File, s.Name, b)
			}
		}
		state[i] = done
		order = append(order, s)
		return nil
	}

	for i := range sources {
		if err := visit(i, nil); err != nil {
			return nil, err
		}
	}
	return order, nil
}

func (r *Resolver) available(name string) bool {
	if BuiltinType(name) != nil {
		return true
	}
	return r.external != nil && r.external(name)
}

// BuiltinType returns the builtin type called name, or nil.
func BuiltinType(name string) *vm.Type {
	switch name {
	case "Object":
		return vm.ObjectType
	case "Type":
		return vm.TypeType
	case "none":
		return vm.NoneType
	case "int":
		return vm.IntType
	case "string":
		return vm.StringType
	case "Tuple":
		return vm.TupleType
	case "Function":
		return vm.FunctionType
	case "Kwds":
		return vm.KwdsType
	}
	return nil
}
