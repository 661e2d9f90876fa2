package vm

import (
	"fmt"
	"sync"

	"github.com/petermattis/goid"
)

// deepCopyFrame is the per-goroutine state of a deep copy in progress.
// assoc maps every original whose copy is under construction (or done)
// to that copy, so a second reference to the same original within one
// deep copy gets the same copy back.
type deepCopyFrame struct {
	depth int
	assoc map[Object]Object
}

// deepCopyFrames maps goroutine ids to their active frame.
var deepCopyFrames sync.Map

// DeepCopy returns a deep copy of o as a new reference. Cyclic object
// graphs are copied with the same shape: nested DeepCopy calls made while
// a deep copy is running on the same goroutine, including calls from
// user-level deep-copy operators, share one association map.
func DeepCopy(o Object) (Object, error) {
	gid := goid.Get()
	var f *deepCopyFrame
	if v, ok := deepCopyFrames.Load(gid); ok {
		f = v.(*deepCopyFrame)
	} else {
		f = &deepCopyFrame{assoc: make(map[Object]Object)}
		deepCopyFrames.Store(gid, f)
		defer deepCopyFrames.Delete(gid)
	}

	if c, ok := f.assoc[o]; ok {
		return Incref(c), nil
	}
	if limit := CurrentOptions().DeepCopyDepthLimit; f.depth >= limit {
		return nil, fmt.Errorf("%w: deep copy nested deeper than %d", ErrRecursionLimit, limit)
	}
	f.depth++
	defer func() { f.depth-- }()

	t := TypeOf(o)
	switch {
	case t.Flags&TypeImmutable != 0:
		return Incref(o), nil
	case t.Life.DeepCopy != nil:
		return t.Life.DeepCopy(o)
	case t.Init.DeepCtor == nil:
		return nil, &OperatorError{Type: t, Op: OpDeepCopy, Err: ErrOperatorNotImplemented}
	}

	self, err := t.Alloc()
	if err != nil {
		return nil, err
	}
	f.assoc[o] = self
	if err := t.Init.DeepCtor(self, o); err != nil {
		delete(f.assoc, o)
		discard(self)
		return nil, err
	}
	return self, nil
}
