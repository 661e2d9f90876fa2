package vm

import "sync/atomic"

// Options tune runtime behaviour that is not part of any class.
type Options struct {
	// OperatorCache enables caching of inherited operators on the
	// resolving type. Disabling it is only useful when debugging.
	OperatorCache bool

	// DeepCopyDepthLimit bounds the nesting of deep copies on one
	// goroutine. Zero means DefaultDeepCopyDepthLimit.
	DeepCopyDepthLimit int
}

// DefaultDeepCopyDepthLimit is used when Options.DeepCopyDepthLimit is 0.
const DefaultDeepCopyDepthLimit = 1024

// DefaultOptions returns the options in effect when Configure was never
// called.
func DefaultOptions() Options {
	return Options{
		OperatorCache:      true,
		DeepCopyDepthLimit: DefaultDeepCopyDepthLimit,
	}
}

var options atomic.Pointer[Options]

func init() {
	o := DefaultOptions()
	options.Store(&o)
}

// Configure replaces the runtime options.
func Configure(o Options) {
	if o.DeepCopyDepthLimit <= 0 {
		o.DeepCopyDepthLimit = DefaultDeepCopyDepthLimit
	}
	options.Store(&o)
}

// CurrentOptions returns the options in effect.
func CurrentOptions() Options {
	return *options.Load()
}
