package manifest

import (
	"testing"

	"github.com/chazu/typecore/vm"
)

func TestToPascalCase(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"models", "Models"},
		{"my-app", "MyApp"},
		{"my_app", "MyApp"},
		{"myApp", "MyApp"},
		{"UPPER", "Upper"},
		{"a", "A"},
		{"", ""},
		{"already-PascalCase", "AlreadyPascalCase"},
		{"foo-bar-baz", "FooBarBaz"},
		{"_leading", "Leading"},
	}

	for _, tc := range tests {
		got := ToPascalCase(tc.input)
		if got != tc.want {
			t.Errorf("ToPascalCase(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestIsReservedNamespace(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"Object", true},
		{"Type", true},
		{"Tuple", true},
		{"int", true},
		{"Kwds", true},
		{"Int", false},
		{"MyApp", false},
		{"Geometry", false},
		// Multi-segment: only root checked
		{"Geometry::Tuple", false},
		{"Tuple::Stuff", true},
		{"MyLib::Object", false},
	}

	for _, tc := range tests {
		got := IsReservedNamespace(tc.name)
		if got != tc.want {
			t.Errorf("IsReservedNamespace(%q) = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestReservedNamespacesAreBuiltinTypes(t *testing.T) {
	builtins := map[string]bool{}
	for _, typ := range []*vm.Type{
		vm.ObjectType, vm.TypeType, vm.NoneType, vm.IntType,
		vm.StringType, vm.TupleType, vm.FunctionType, vm.KwdsType,
	} {
		builtins[typ.Name] = true
	}
	for name := range reservedNamespaces {
		if !builtins[name] {
			t.Errorf("reserved namespace %q is not a builtin type", name)
		}
	}
	for name := range builtins {
		if !reservedNamespaces[name] {
			t.Errorf("builtin type %q is not reserved", name)
		}
	}
}
