package vm

import (
	"errors"
	"fmt"
)

// Build-time errors. These fail class creation and nothing else.
var (
	ErrDuplicateMember = errors.New("duplicate member name")
	ErrTooManyMembers  = errors.New("too many members")
	ErrBadSlotAddress  = errors.New("slot address out of range")
	ErrFinalBase       = errors.New("cannot subclass final type")
	ErrMultipleBases   = errors.New("more than one concrete base")
)

// Construction protocol errors.
var (
	ErrProtocol      = errors.New("constructor protocol violation")
	ErrArgumentCount = errors.New("invalid argument count")
	ErrKeyword       = errors.New("invalid keyword argument")
)

// Operator resolution errors. Callers may treat ErrOperatorUnbound as a
// soft miss.
var (
	ErrOperatorNotImplemented = errors.New("operator not implemented")
	ErrOperatorUnbound        = errors.New("operator unbound")
)

// Member access and runtime errors.
var (
	ErrUnboundMember  = errors.New("unbound member")
	ErrReadonly       = errors.New("member is read-only")
	ErrNoAttribute    = errors.New("no such attribute")
	ErrTypeMismatch   = errors.New("type mismatch")
	ErrRecursionLimit = errors.New("recursion limit exceeded")
)

// BuildError reports why a class could not be created.
type BuildError struct {
	Class string
	Msg   string
	Err   error
}

func (e *BuildError) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("class %s: %v", e.Class, e.Err)
	}
	return fmt.Sprintf("class %s: %v: %s", e.Class, e.Err, e.Msg)
}

func (e *BuildError) Unwrap() error { return e.Err }

// OperatorError reports a failed operator resolution.
type OperatorError struct {
	Type *Type
	Op   OperatorID
	Err  error
}

func (e *OperatorError) Error() string {
	return fmt.Sprintf("%v: %s.%s", e.Err, e.Type.Name, e.Op)
}

func (e *OperatorError) Unwrap() error { return e.Err }

// ProtocolError reports a construction protocol violation.
type ProtocolError struct {
	Type *Type
	Msg  string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("%v in %s: %s", ErrProtocol, e.Type.Name, e.Msg)
}

func (e *ProtocolError) Unwrap() error { return ErrProtocol }

func protocolErrorf(t *Type, format string, args ...any) error {
	return &ProtocolError{Type: t, Msg: fmt.Sprintf(format, args...)}
}

func argCountError(t *Type, min, max, got int) error {
	switch {
	case min == max:
		return fmt.Errorf("%w: %s expects %d argument(s), got %d", ErrArgumentCount, t.Name, min, got)
	case max < 0:
		return fmt.Errorf("%w: %s expects at least %d argument(s), got %d", ErrArgumentCount, t.Name, min, got)
	default:
		return fmt.Errorf("%w: %s expects %d to %d argument(s), got %d", ErrArgumentCount, t.Name, min, max, got)
	}
}
