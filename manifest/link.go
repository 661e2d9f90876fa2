package manifest

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/chazu/typecore/vm"
)

// Symbols links the references found in class files to runtime objects
// and names objects back for encoding. References have the forms
//
//	int:<decimal>   a new integer
//	str:<text>      a new string
//	none            the unit value
//	fn:<name>       a registered function
//
// Every object handed out by Link is remembered so that Name can map it
// back to the reference it came from.
type Symbols struct {
	mu    sync.Mutex
	funcs map[string]vm.Object
	names map[vm.Object]string
}

// NewSymbols returns a symbol table preloaded with the stock functions:
//
//	fn:nop        returns none
//	fn:self       returns this
//	fn:first      returns the first argument
//	fn:superargs  forwards the constructor arguments unchanged
func NewSymbols() *Symbols {
	s := &Symbols{
		funcs: make(map[string]vm.Object),
		names: make(map[vm.Object]string),
	}
	s.Define("nop", vm.NewFunction("nop", func(vm.Object, []vm.Object, vm.Kwds) (vm.Object, error) {
		return vm.None, nil
	}))
	s.Define("self", vm.NewFunction("self", func(this vm.Object, _ []vm.Object, _ vm.Kwds) (vm.Object, error) {
		if this == nil {
			return vm.None, nil
		}
		return vm.Incref(this), nil
	}))
	s.Define("first", vm.NewFunction("first", func(_ vm.Object, args []vm.Object, _ vm.Kwds) (vm.Object, error) {
		if len(args) == 0 {
			return nil, fmt.Errorf("first: %w", vm.ErrArgumentCount)
		}
		return vm.Incref(args[0]), nil
	}))
	s.Define("superargs", vm.NewFunction("superargs", func(_ vm.Object, args []vm.Object, _ vm.Kwds) (vm.Object, error) {
		return vm.NewTuple(args...), nil
	}))
	return s
}

// Define registers fn under "fn:<name>", replacing any previous
// definition. The table takes over the caller's reference.
func (s *Symbols) Define(name string, fn vm.Object) {
	s.mu.Lock()
	old := s.funcs[name]
	s.funcs[name] = fn
	s.names[fn] = "fn:" + name
	if old != nil && old != fn {
		delete(s.names, old)
	}
	s.mu.Unlock()
	vm.Decref(old)
}

// Functions returns the registered function names, sorted.
func (s *Symbols) Functions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.funcs))
	for n := range s.funcs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Link resolves ref to a new reference.
func (s *Symbols) Link(ref string) (vm.Object, error) {
	kind, arg, _ := strings.Cut(ref, ":")
	var v vm.Object
	switch kind {
	case "none":
		if arg != "" {
			return nil, fmt.Errorf("malformed reference %q", ref)
		}
		return vm.None, nil
	case "int":
		n, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("malformed reference %q: %w", ref, err)
		}
		v = vm.NewInt(n)
	case "str":
		v = vm.NewString(arg)
	case "fn":
		s.mu.Lock()
		fn, ok := s.funcs[arg]
		s.mu.Unlock()
		if !ok {
			return nil, fmt.Errorf("undefined function %q", arg)
		}
		return vm.Incref(fn), nil
	default:
		return nil, fmt.Errorf("unknown reference kind in %q", ref)
	}
	s.mu.Lock()
	s.names[v] = ref
	s.mu.Unlock()
	return v, nil
}

// Name returns the reference v was linked from.
func (s *Symbols) Name(v vm.Object) (string, error) {
	if v == vm.None {
		return "none", nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if ref, ok := s.names[v]; ok {
		return ref, nil
	}
	return "", fmt.Errorf("object %v was not linked from a reference", v)
}
