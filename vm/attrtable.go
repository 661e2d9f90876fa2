package vm

import (
	"fmt"
	"sort"

	"github.com/zeebo/xxh3"
)

// AttrFlags describe a class or instance attribute.
type AttrFlags uint16

const (
	// AttrPrivate attributes are only visible to the declaring class.
	AttrPrivate AttrFlags = 1 << iota
	// AttrReadonly members may only be bound while unbound.
	AttrReadonly
	// AttrMethod slots hold a callable invoked with the instance as this.
	AttrMethod
	// AttrGetSet slots hold a getter callable.
	AttrGetSet
	// AttrClassMem attributes live in the class member vector even when
	// listed in the instance table.
	AttrClassMem
	// AttrNoAutoInit excludes a field from auto-init construction.
	AttrNoAutoInit
)

// Attr is one attribute-table entry.
type Attr struct {
	Name  string
	Hash  uint64
	Addr  uint16
	Flags AttrFlags
	Doc   string
}

// IsField reports whether the attribute is plain instance storage.
func (a *Attr) IsField() bool {
	return a.Flags&(AttrMethod|AttrGetSet|AttrClassMem) == 0
}

// autoInitEligible reports whether auto-init construction binds a.
func (a *Attr) autoInitEligible() bool {
	return a.IsField() && a.Flags&(AttrPrivate|AttrNoAutoInit) == 0
}

// HashName returns the hash stored for an attribute name.
func HashName(name string) uint64 {
	return xxh3.HashString(name)
}

// minAttrMask is the smallest non-empty attribute-table capacity.
const minAttrMask = 7

// AttrTable maps attribute names to member slot addresses.
//
// The table is open-addressed with perturbation probing. Its capacity is
// always a power of two minus one and the load factor is kept at or below
// 2/3. Insert is single-writer and only used while a class is being
// built; Lookup is safe for concurrent readers once the table is
// published.
type AttrTable struct {
	entries []Attr // len(entries) == mask+1; Name == "" marks a free entry
	mask    uint64
	size    int

	// OnRehash is called after the table grew. Pointers previously
	// returned by Insert or Lookup are invalid by then; holders of such
	// pointers must re-resolve them.
	OnRehash func(t *AttrTable)
}

// NewAttrTable creates an empty attribute table.
func NewAttrTable() *AttrTable {
	return &AttrTable{}
}

// Len returns the number of attributes.
func (t *AttrTable) Len() int {
	return t.size
}

// Cap returns the table capacity (its hash mask).
func (t *AttrTable) Cap() int {
	return int(t.mask)
}

// Insert adds an attribute. It fails with ErrDuplicateMember if the name
// is already present.
func (t *AttrTable) Insert(name string, addr uint16, flags AttrFlags) (*Attr, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: empty attribute name", ErrNoAttribute)
	}
	hash := HashName(name)
	if t.Lookup(name) != nil {
		return nil, fmt.Errorf("%w: %q", ErrDuplicateMember, name)
	}
	if uint64(t.size+1)*3 > t.mask*2 {
		t.rehash()
	}
	e := t.freeEntry(hash)
	*e = Attr{Name: name, Hash: hash, Addr: addr, Flags: flags}
	t.size++
	return e, nil
}

// Lookup returns the attribute with the given name, or nil.
func (t *AttrTable) Lookup(name string) *Attr {
	if t == nil || t.size == 0 {
		return nil
	}
	hash := HashName(name)
	i, perturb := hash&t.mask, hash
	for ; ; i, perturb = (i<<2)+i+perturb+1, perturb>>5 {
		e := &t.entries[i&t.mask]
		if e.Name == "" {
			return nil
		}
		if e.Hash == hash && e.Name == name {
			return e
		}
	}
}

// Attrs returns all attributes ordered by ascending slot address.
func (t *AttrTable) Attrs() []*Attr {
	if t == nil {
		return nil
	}
	result := make([]*Attr, 0, t.size)
	for i := range t.entries {
		if t.entries[i].Name != "" {
			result = append(result, &t.entries[i])
		}
	}
	sortAttrsByAddr(result)
	return result
}

// MaxAddr returns one past the highest slot address used, or 0.
func (t *AttrTable) MaxAddr() int {
	max := 0
	for _, a := range t.Attrs() {
		if n := int(a.Addr) + 1; n > max {
			max = n
		}
	}
	return max
}

func (t *AttrTable) freeEntry(hash uint64) *Attr {
	i, perturb := hash&t.mask, hash
	for ; ; i, perturb = (i<<2)+i+perturb+1, perturb>>5 {
		e := &t.entries[i&t.mask]
		if e.Name == "" {
			return e
		}
	}
}

func (t *AttrTable) rehash() {
	newMask := (t.mask << 1) | 1
	if newMask < minAttrMask {
		newMask = minAttrMask
	}
	old := t.entries
	t.entries = make([]Attr, newMask+1)
	t.mask = newMask
	for i := range old {
		if old[i].Name == "" {
			continue
		}
		*t.freeEntry(old[i].Hash) = old[i]
	}
	if t.OnRehash != nil {
		t.OnRehash(t)
	}
}

func sortAttrsByAddr(attrs []*Attr) {
	sort.Slice(attrs, func(i, j int) bool { return attrs[i].Addr < attrs[j].Addr })
}
