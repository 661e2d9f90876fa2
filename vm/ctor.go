package vm

import (
	"fmt"
)

// ---------------------------------------------------------------------------
// Constructor strategies
// ---------------------------------------------------------------------------

// CtorStrategy names how instances of a class are constructed. It is
// chosen once at class creation from the class description and installed
// as the type's construction entry points.
type CtorStrategy uint8

const (
	// CtorDefault: no constructor; takes no arguments; base default-built.
	CtorDefault CtorStrategy = iota
	// CtorDefaultNoBase: CtorDefault directly under Object.
	CtorDefaultNoBase
	// CtorForward: the class inherits its constructor; arguments go to the base.
	CtorForward
	// CtorSuperArgs: no constructor body; super-args feed the base.
	CtorSuperArgs
	// CtorUser: user constructor; base default-built.
	CtorUser
	// CtorUserNoBase: CtorUser directly under Object.
	CtorUserNoBase
	// CtorUserSuperArgs: user constructor; super-args feed the base.
	CtorUserSuperArgs
	// CtorAutoInit: arguments bind fields; base default-built.
	CtorAutoInit
	// CtorAutoInitNoBase: CtorAutoInit directly under Object.
	CtorAutoInitNoBase
	// CtorAutoInitSuperArgs: arguments bind fields; super-args feed the base.
	CtorAutoInitSuperArgs
	// CtorAutoInitUser: arguments bind fields, then the user constructor runs.
	CtorAutoInitUser
	// CtorAutoInitUserNoBase: CtorAutoInitUser directly under Object.
	CtorAutoInitUserNoBase
	// CtorAutoInitUserSuperArgs: fields, user constructor and super-args.
	CtorAutoInitUserSuperArgs

	numCtorStrategies
)

type baseMode uint8

const (
	baseNone      baseMode = iota // Object only; nothing to build or undo
	baseDefault                   // base built without arguments
	baseForward                   // base built from the caller's arguments
	baseSuperArgs                 // base built from the super-args result
)

type bodyMode uint8

const (
	bodyNone bodyMode = iota
	bodyUser
	bodyAutoInit
	bodyAutoInitUser
)

type strategyInfo struct {
	name string
	base baseMode
	body bodyMode
}

var strategies = [numCtorStrategies]strategyInfo{
	CtorDefault:               {"default", baseDefault, bodyNone},
	CtorDefaultNoBase:         {"default-nobase", baseNone, bodyNone},
	CtorForward:               {"forward", baseForward, bodyNone},
	CtorSuperArgs:             {"superargs", baseSuperArgs, bodyNone},
	CtorUser:                  {"user", baseDefault, bodyUser},
	CtorUserNoBase:            {"user-nobase", baseNone, bodyUser},
	CtorUserSuperArgs:         {"user-superargs", baseSuperArgs, bodyUser},
	CtorAutoInit:              {"autoinit", baseDefault, bodyAutoInit},
	CtorAutoInitNoBase:        {"autoinit-nobase", baseNone, bodyAutoInit},
	CtorAutoInitSuperArgs:     {"autoinit-superargs", baseSuperArgs, bodyAutoInit},
	CtorAutoInitUser:          {"autoinit-user", baseDefault, bodyAutoInitUser},
	CtorAutoInitUserNoBase:    {"autoinit-user-nobase", baseNone, bodyAutoInitUser},
	CtorAutoInitUserSuperArgs: {"autoinit-user-superargs", baseSuperArgs, bodyAutoInitUser},
}

func (s CtorStrategy) String() string {
	if s < numCtorStrategies {
		return strategies[s].name
	}
	return "unknown"
}

// selectStrategy classifies a class from its description. noBase holds
// when the class has no concrete ancestor other than Object.
func selectStrategy(d *ClassDesc, noBase bool) CtorStrategy {
	hasCtor := d.binds(OpConstructor)
	hasSuper := d.binds(OpSuperArgs)
	autoInit := d.Flags&DescAutoInit != 0
	inherit := d.Flags&DescInheritCtor != 0

	var body bodyMode
	switch {
	case autoInit && hasCtor:
		body = bodyAutoInitUser
	case autoInit:
		body = bodyAutoInit
	case hasCtor:
		body = bodyUser
	}

	var base baseMode
	switch {
	case hasSuper:
		base = baseSuperArgs
	case noBase:
		base = baseNone
	case body == bodyNone && inherit:
		base = baseForward
	default:
		base = baseDefault
	}

	for s, info := range strategies {
		if info.base == base && info.body == body {
			return CtorStrategy(s)
		}
	}
	// baseForward only pairs with bodyNone, which is handled above.
	return CtorDefault
}

// installCtor installs the strategy's three construction entry points
// and the matching undo hook on t.
func installCtor(t *Type, s CtorStrategy) {
	c := t.class
	c.strategy = s
	info := strategies[s]
	t.Init.Ctor = func(self Object) error {
		return c.construct(info, self, nil, nil)
	}
	t.Init.AnyCtor = func(self Object, args []Object) error {
		return c.construct(info, self, args, nil)
	}
	t.Init.AnyCtorKw = func(self Object, args []Object, kw Kwds) error {
		return c.construct(info, self, args, kw)
	}
	t.Init.Fini = c.fini
}

// construct runs one strategy on an allocated instance.
func (c *Class) construct(info strategyInfo, self Object, args []Object, kw Kwds) error {
	t := c.typ
	_, level, err := asInstance(self, t)
	if err != nil {
		return err
	}
	if info.body == bodyNone && info.base != baseForward && info.base != baseSuperArgs {
		if len(args) != 0 {
			return argCountError(t, 0, 0, len(args))
		}
		if !isEmptyKwds(kw) {
			return fmt.Errorf("%w: %s accepts no keyword arguments", ErrKeyword, t.Name)
		}
	}

	// Start from empty members before any user code runs.
	level.clear(nil)

	var built *Type
	if info.base != baseNone {
		var (
			baseArgs []Object
			baseKw   Kwds
			hold     Object
		)
		switch info.base {
		case baseForward:
			baseArgs, baseKw = args, kw
		case baseSuperArgs:
			baseArgs, baseKw, hold, err = c.callSuperArgs(self, args, kw)
			if err != nil {
				level.clear(nil)
				return err
			}
		}
		built, err = initBase(t, self, baseArgs, baseKw)
		Decref(hold)
		if err != nil {
			level.clear(nil)
			return err
		}
	}

	switch info.body {
	case bodyUser:
		err = c.callCtor(self, args, kw)
	case bodyAutoInit:
		err = c.autoInit(level, args, kw)
	case bodyAutoInitUser:
		if err = c.autoInit(level, args, kw); err == nil {
			err = c.callCtor(self, args, kw)
		}
	}
	if err != nil {
		c.unwind(self, level, built, err)
		return err
	}
	return nil
}

// unwind undoes a construction whose body failed after the base portion
// was built. If the base cannot be undone the instance is abandoned as is
// and the failure is only reported through the log.
func (c *Class) unwind(self Object, level *memberVector, built *Type, cause error) {
	if built != nil {
		var undoErr error
		if built.Init.Fini == nil {
			undoErr = fmt.Errorf("%s has no undo hook", built.Name)
		} else {
			undoErr = built.Init.Fini(self)
		}
		if undoErr != nil {
			logger().Errorf("cannot undo construction of base %s after %s constructor failed (%v): %v; instance abandoned",
				built.Name, c.typ.Name, cause, undoErr)
			abandon(self)
			return
		}
	}
	level.clear(nil)
}

// initBase builds the base portion of self. Bases that only forward their
// constructor are skipped in favour of the first concrete ancestor, which
// is returned.
func initBase(t *Type, self Object, args []Object, kw Kwds) (*Type, error) {
	b := t.Base
	for b != nil && b.class != nil && b.class.strategy == CtorForward {
		b = b.Base
	}
	if b == nil {
		return nil, nil
	}
	if b.class != nil {
		info := strategies[b.class.strategy]
		if info.body == bodyNone && info.base != baseForward && info.base != baseSuperArgs {
			if !isEmptyKwds(kw) {
				return nil, protocolErrorf(t, "keyword arguments passed to base %s, which accepts none", b.Name)
			}
			if len(args) != 0 {
				return nil, protocolErrorf(t, "base %s takes no arguments, got %d", b.Name, len(args))
			}
		}
	}
	ops := &b.Init
	if !isEmptyKwds(kw) {
		if ops.AnyCtorKw == nil {
			return nil, protocolErrorf(t, "keyword arguments passed to base %s, which accepts none", b.Name)
		}
		return b, ops.AnyCtorKw(self, args, kw)
	}
	if len(args) == 0 {
		switch {
		case ops.Ctor != nil:
			return b, ops.Ctor(self)
		case ops.AnyCtor != nil:
			return b, ops.AnyCtor(self, nil)
		case ops.AnyCtorKw != nil:
			return b, ops.AnyCtorKw(self, nil, nil)
		}
		return nil, protocolErrorf(t, "base %s cannot be constructed", b.Name)
	}
	switch {
	case ops.AnyCtor != nil:
		return b, ops.AnyCtor(self, args)
	case ops.AnyCtorKw != nil:
		return b, ops.AnyCtorKw(self, args, nil)
	}
	return nil, protocolErrorf(t, "base %s takes no arguments, got %d", b.Name, len(args))
}

// callSuperArgs runs the super-args generator and checks the shape of its
// result. hold owns the returned slices and must be released once the base
// is built.
func (c *Class) callSuperArgs(self Object, args []Object, kw Kwds) ([]Object, Kwds, Object, error) {
	t := c.typ
	fn, status := ResolvePrivateOperator(t, OpSuperArgs)
	if status != OpFound {
		return nil, nil, nil, &OperatorError{Type: t, Op: OpSuperArgs, Err: statusError(status)}
	}
	res, err := ThisCallKw(fn, self, args, kw)
	Decref(fn)
	if err != nil {
		return nil, nil, nil, err
	}
	tup, ok := res.(*Tuple)
	if !ok {
		err := protocolErrorf(t, "super-args returned %s, want Tuple", TypeOf(res))
		Decref(res)
		return nil, nil, nil, err
	}
	if c.desc.Flags&DescSuperKwds == 0 {
		return tup.Items, nil, res, nil
	}
	if len(tup.Items) != 2 {
		err := protocolErrorf(t, "super-args returned %d items, want (args, kwds)", len(tup.Items))
		Decref(res)
		return nil, nil, nil, err
	}
	inner, ok := tup.Items[0].(*Tuple)
	if !ok {
		err := protocolErrorf(t, "super-args positional part is %s, want Tuple", TypeOf(tup.Items[0]))
		Decref(res)
		return nil, nil, nil, err
	}
	var baseKw Kwds
	if tup.Items[1] != None {
		if baseKw, ok = tup.Items[1].(Kwds); !ok {
			err := protocolErrorf(t, "super-args keyword part is %s, want Kwds", TypeOf(tup.Items[1]))
			Decref(res)
			return nil, nil, nil, err
		}
	}
	return inner.Items, baseKw, res, nil
}

// callCtor invokes the class's own constructor with self as this.
func (c *Class) callCtor(self Object, args []Object, kw Kwds) error {
	fn, status := ResolvePrivateOperator(c.typ, OpConstructor)
	if status != OpFound {
		return &OperatorError{Type: c.typ, Op: OpConstructor, Err: statusError(status)}
	}
	defer Decref(fn)
	res, err := ThisCallKw(fn, self, args, kw)
	Decref(res)
	return err
}

// fini undoes this class level and everything below it: the class's own
// destructor runs, its members are released and the base is undone in
// turn.
func (c *Class) fini(self Object) error {
	t := c.typ
	_, level, err := asInstance(self, t)
	if err != nil {
		return err
	}
	if fn, status := ResolvePrivateOperator(t, OpDestructor); status == OpFound {
		res, err := ThisCall(fn, self)
		Decref(fn)
		if err != nil {
			return err
		}
		Decref(res)
	}
	level.clear(nil)
	b := t.Base
	if b == nil {
		return nil
	}
	if b.Init.Fini == nil {
		return fmt.Errorf("%s has no undo hook", b.Name)
	}
	return b.Init.Fini(self)
}

func statusError(s OperatorStatus) error {
	if s == OpUnbound {
		return ErrOperatorUnbound
	}
	return ErrOperatorNotImplemented
}

// ---------------------------------------------------------------------------
// Public construction entry points
// ---------------------------------------------------------------------------

// ConstructDefault creates an instance of t without arguments.
func ConstructDefault(t *Type) (Object, error) {
	return ConstructKw(t, nil, nil)
}

// Construct creates an instance of t from positional arguments.
func Construct(t *Type, args ...Object) (Object, error) {
	return ConstructKw(t, args, nil)
}

// ConstructKw creates an instance of t from positional and keyword
// arguments. The result is a new reference.
func ConstructKw(t *Type, args []Object, kw Kwds) (Object, error) {
	if t.Flags&TypeAbstract != 0 {
		return nil, fmt.Errorf("%w: cannot instantiate abstract type %s", ErrTypeMismatch, t.Name)
	}
	self, err := t.Alloc()
	if err != nil {
		return nil, err
	}
	ops := &t.Init
	switch {
	case !isEmptyKwds(kw) && ops.AnyCtorKw != nil:
		err = ops.AnyCtorKw(self, args, kw)
	case !isEmptyKwds(kw):
		err = fmt.Errorf("%w: %s accepts no keyword arguments", ErrKeyword, t.Name)
	case len(args) == 0 && ops.Ctor != nil:
		err = ops.Ctor(self)
	case ops.AnyCtor != nil:
		err = ops.AnyCtor(self, args)
	case ops.AnyCtorKw != nil:
		err = ops.AnyCtorKw(self, args, nil)
	case len(args) != 0:
		err = argCountError(t, 0, 0, len(args))
	}
	if err != nil {
		discard(self)
		return nil, err
	}
	return self, nil
}

// discard releases a never-completed instance without running any
// destructor.
func discard(self Object) {
	h := self.ObjHeader()
	if h.dead.Swap(true) {
		return
	}
	if inst, ok := self.(*Instance); ok {
		for _, lvl := range inst.levels {
			if lvl != nil {
				lvl.clear(nil)
			}
		}
		Decref(h.typ)
	}
}

// abandon leaves a half-built instance in its last state: it is never
// destroyed and its members are never released.
func abandon(self Object) {
	self.ObjHeader().dead.Store(true)
}
