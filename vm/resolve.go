package vm

// OperatorStatus is the outcome of a non-failing operator resolution.
type OperatorStatus uint8

const (
	// OpFound means a callable was returned.
	OpFound OperatorStatus = iota
	// OpUnbound means a class declares the operator but its slot is empty.
	OpUnbound
	// OpNotImplemented means no ancestor implements the operator.
	OpNotImplemented
)

func (s OperatorStatus) String() string {
	switch s {
	case OpFound:
		return "found"
	case OpUnbound:
		return "unbound"
	}
	return "not implemented"
}

// TryResolveOperator finds the callable implementing op for instances of
// t. The callable is returned as a new reference when the status is
// OpFound.
//
// The search walks t's MRO through its class ancestors. At each ancestor
// the operator cache is consulted first, then the binding table. A bound
// but empty slot shadows every further ancestor. Inherited results are
// cached on t, except for the constructor group, which is looked up with
// per-level arguments.
func TryResolveOperator(t *Type, op OperatorID) (Object, OperatorStatus) {
	if !op.Valid() || t.class == nil {
		return nil, OpNotImplemented
	}
	cacheable := !op.inConstructorGroup() && CurrentOptions().OperatorCache
	for i, a := range t.mro {
		c := a.class
		if c == nil {
			continue
		}
		if fn := c.cacheLookup(op); fn != nil {
			c.hits.Add(1)
			if i > 0 && cacheable {
				fn = t.class.cacheStore(op, fn)
			}
			return fn, OpFound
		}
		c.misses.Add(1)
		c.probes.Add(1)
		addr, ok := c.desc.Operators.Find(op)
		if !ok {
			continue
		}
		fn, bound := c.members.get(addr)
		if !bound {
			return nil, OpUnbound
		}
		if i > 0 && cacheable {
			fn = t.class.cacheStore(op, fn)
		}
		return fn, OpFound
	}
	return nil, OpNotImplemented
}

// ResolveOperator is TryResolveOperator reporting failures as errors
// wrapping ErrOperatorNotImplemented or ErrOperatorUnbound.
func ResolveOperator(t *Type, op OperatorID) (Object, error) {
	fn, status := TryResolveOperator(t, op)
	switch status {
	case OpUnbound:
		return nil, &OperatorError{Type: t, Op: op, Err: ErrOperatorUnbound}
	case OpNotImplemented:
		return nil, &OperatorError{Type: t, Op: op, Err: ErrOperatorNotImplemented}
	}
	return fn, nil
}

// ResolvePrivateOperator looks op up in t's own binding table only. It
// is used for per-level operators (constructors, destructors, super-args,
// copy and assign) so an inherited implementation never runs twice.
func ResolvePrivateOperator(t *Type, op OperatorID) (Object, OperatorStatus) {
	if !op.Valid() || t.class == nil {
		return nil, OpNotImplemented
	}
	c := t.class
	c.probes.Add(1)
	addr, ok := c.desc.Operators.Find(op)
	if !ok {
		return nil, OpNotImplemented
	}
	fn, bound := c.members.get(addr)
	if !bound {
		return nil, OpUnbound
	}
	return fn, OpFound
}

// CallOperator resolves op on self's type and invokes it with self as
// the this argument.
func CallOperator(self Object, op OperatorID, args ...Object) (Object, error) {
	fn, err := ResolveOperator(TypeOf(self), op)
	if err != nil {
		return nil, err
	}
	defer Decref(fn)
	return ThisCall(fn, self, args...)
}
