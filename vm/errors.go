package vm

import (
	"errors"
	"fmt"
)

// ---------------------------------------------------------------------------
// Error taxonomy
// ---------------------------------------------------------------------------
//
// Language-level failures are returned as errors and surface to the
// dispatch loop, which maps them onto whatever unwinding mechanism the
// emulated language exposes. Internal contract violations (cell wiring,
// stack discipline) panic: they indicate a bug in the compiler or dispatch
// layer, not a condition running code can handle.

// ErrStopIteration signals that an iterator is exhausted. It is a normal
// control-flow outcome, not a failure: loops treat it as termination.
var ErrStopIteration = errors.New("stop iteration")

// BindError reports a call-time argument binding failure: wrong arity, an
// unknown keyword, or a missing required argument.
type BindError struct {
	Func   string
	Reason string
}

func (e *BindError) Error() string {
	return fmt.Sprintf("%s(): %s", e.Func, e.Reason)
}

// AttributeError reports a name absent along a class linearization or
// instance storage.
type AttributeError struct {
	Entity string // class or instance description
	Name   string // the attribute looked up
}

func (e *AttributeError) Error() string {
	return fmt.Sprintf("%s has no attribute %q", e.Entity, e.Name)
}

// LinearizeError reports that no consistent C3 linearization exists for a
// class's declared bases. It is raised at class construction, never at
// lookup.
type LinearizeError struct {
	Class string
}

func (e *LinearizeError) Error() string {
	return fmt.Sprintf("cannot linearize inheritance graph of class %s", e.Class)
}

// TypeError reports an operation applied to a value of the wrong kind.
type TypeError struct {
	Op   string
	Want string
	Got  Type
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("%s: want %s, got %s", e.Op, e.Want, e.Got)
}
