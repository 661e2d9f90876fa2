package vm

// linearize computes the method resolution order of a type with the
// given direct bases: the type itself, then every ancestor in
// breadth-first order with duplicates dropped. It is a pure function;
// types store the result once at creation.
func linearize(self *Type, bases []*Type) []*Type {
	result := []*Type{self}
	seen := map[*Type]bool{self: true}
	for i := 0; i < len(result); i++ {
		next := bases
		if i > 0 {
			next = result[i].Bases
		}
		for _, b := range next {
			if !seen[b] {
				seen[b] = true
				result = append(result, b)
			}
		}
	}
	// The universal base always resolves last.
	for i, t := range result {
		if t == ObjectType && i != len(result)-1 {
			copy(result[i:], result[i+1:])
			result[len(result)-1] = ObjectType
			break
		}
	}
	return result
}
