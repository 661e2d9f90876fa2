package vm

// minOpMask is the smallest non-empty binding-table capacity.
const minOpMask = 3

type opBinding struct {
	op   OperatorID
	addr uint16
}

// OpBindTable maps operator ids to the class-member slot holding the
// operator's callable.
//
// It uses the same perturbation probing as AttrTable over the small
// operator-id space. Empty entries carry the opInvalid sentinel.
type OpBindTable struct {
	entries []opBinding
	mask    uint64
	size    int
}

// NewOpBindTable creates an empty binding table.
func NewOpBindTable() *OpBindTable {
	return &OpBindTable{}
}

// Len returns the number of bound operators.
func (t *OpBindTable) Len() int {
	return t.size
}

// Cap returns the table capacity (its hash mask).
func (t *OpBindTable) Cap() int {
	return int(t.mask)
}

// Bind binds op to a class-member slot. Rebinding an operator silently
// replaces the previous slot.
func (t *OpBindTable) Bind(op OperatorID, addr uint16) {
	if e := t.find(op); e != nil {
		e.addr = addr
		return
	}
	if uint64(t.size+1)*3 > t.mask*2 {
		t.rehash()
	}
	e := t.free(op)
	e.op, e.addr = op, addr
	t.size++
}

// Find returns the slot bound to op.
func (t *OpBindTable) Find(op OperatorID) (uint16, bool) {
	if e := t.find(op); e != nil {
		return e.addr, true
	}
	return 0, false
}

// Each calls fn for every binding in unspecified order.
func (t *OpBindTable) Each(fn func(op OperatorID, addr uint16)) {
	if t == nil {
		return
	}
	for _, e := range t.entries {
		if e.op != opInvalid {
			fn(e.op, e.addr)
		}
	}
}

func (t *OpBindTable) find(op OperatorID) *opBinding {
	if t == nil || t.size == 0 {
		return nil
	}
	h := uint64(op)
	i, perturb := h&t.mask, h
	for ; ; i, perturb = (i<<2)+i+perturb+1, perturb>>5 {
		e := &t.entries[i&t.mask]
		if e.op == opInvalid {
			return nil
		}
		if e.op == op {
			return e
		}
	}
}

func (t *OpBindTable) free(op OperatorID) *opBinding {
	h := uint64(op)
	i, perturb := h&t.mask, h
	for ; ; i, perturb = (i<<2)+i+perturb+1, perturb>>5 {
		e := &t.entries[i&t.mask]
		if e.op == opInvalid {
			return e
		}
	}
}

func (t *OpBindTable) rehash() {
	newMask := (t.mask << 1) | 1
	if newMask < minOpMask {
		newMask = minOpMask
	}
	old := t.entries
	t.entries = make([]opBinding, newMask+1)
	for i := range t.entries {
		t.entries[i].op = opInvalid
	}
	t.mask = newMask
	for _, e := range old {
		if e.op != opInvalid {
			*t.free(e.op) = e
		}
	}
}
