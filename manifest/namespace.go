package manifest

import "strings"

// ToPascalCase converts a string to PascalCase.
// "my-app" -> "MyApp", "models" -> "Models", "myApp" -> "MyApp"
func ToPascalCase(s string) string {
	var words []string
	current := ""
	for i, r := range s {
		if r == '-' || r == '_' {
			if current != "" {
				words = append(words, current)
				current = ""
			}
			continue
		}
		if i > 0 && r >= 'A' && r <= 'Z' {
			prev := rune(s[i-1])
			if prev >= 'a' && prev <= 'z' {
				words = append(words, current)
				current = ""
			}
		}
		current += string(r)
	}
	if current != "" {
		words = append(words, current)
	}

	var result string
	for _, w := range words {
		if w == "" {
			continue
		}
		result += strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return result
}

// reservedNamespaces lists the builtin type names. A project namespace
// rooted at one of them would shadow the builtin in class lookups.
var reservedNamespaces = map[string]bool{
	"Object":   true,
	"Type":     true,
	"none":     true,
	"int":      true,
	"string":   true,
	"Tuple":    true,
	"Function": true,
	"Kwds":     true,
}

// IsReservedNamespace reports whether name is a builtin type name that
// must not be used as the root segment of a namespace.
// Only the root segment is checked: "Geometry::Tuple" is fine
// because the root is "Geometry".
func IsReservedNamespace(name string) bool {
	root := name
	if idx := strings.Index(name, "::"); idx >= 0 {
		root = name[:idx]
	}
	return reservedNamespaces[root]
}
