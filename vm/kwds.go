package vm

// Kwds is the narrow view of a keyword-argument container consumed by
// constructors.
type Kwds interface {
	// Len returns the number of keyword arguments.
	Len() int
	// Names returns the keyword names in call order.
	Names() []string
	// Lookup returns a borrowed reference to the named argument.
	Lookup(name string) (Object, bool)
}

// KwArg is one keyword argument passed to NewKwds.
type KwArg struct {
	Name  string
	Value Object
}

// KwdsMap is an ordered keyword-argument container. It is itself an
// object so it can travel inside a super-args tuple.
type KwdsMap struct {
	Header
	names  []string
	values []Object
}

// NewKwds returns a container holding new references to the argument
// values. A repeated name replaces the earlier value.
func NewKwds(args ...KwArg) *KwdsMap {
	k := &KwdsMap{}
	initHeader(&k.Header, KwdsType)
	for _, a := range args {
		k.set(a.Name, a.Value)
	}
	return k
}

func (k *KwdsMap) set(name string, v Object) {
	Incref(v)
	for i, n := range k.names {
		if n == name {
			Decref(k.values[i])
			k.values[i] = v
			return
		}
	}
	k.names = append(k.names, name)
	k.values = append(k.values, v)
}

// Len implements Kwds.
func (k *KwdsMap) Len() int {
	return len(k.names)
}

// Names implements Kwds.
func (k *KwdsMap) Names() []string {
	return k.names
}

// Lookup implements Kwds.
func (k *KwdsMap) Lookup(name string) (Object, bool) {
	for i, n := range k.names {
		if n == name {
			return k.values[i], true
		}
	}
	return nil, false
}

func isEmptyKwds(kw Kwds) bool {
	return kw == nil || kw.Len() == 0
}
