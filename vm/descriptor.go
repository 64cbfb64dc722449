package vm

import "fmt"

// ---------------------------------------------------------------------------
// Descriptor protocol
// ---------------------------------------------------------------------------
//
// A descriptor is a class-level value that intercepts attribute access.
// The capability is modelled as two interfaces checked by type assertion:
// a value exposing only Getter is a non-data descriptor (it yields to
// instance storage); a value exposing both Getter and Setter is a data
// descriptor (it takes precedence over instance storage).

// Getter is the "get" capability of a descriptor. instance is nil for
// access through the class itself.
type Getter interface {
	DescrGet(in *Interp, instance Value, owner *Class) (Value, error)
}

// Setter is the "set" capability of a descriptor. A value implementing
// both Getter and Setter is a data descriptor.
type Setter interface {
	DescrSet(in *Interp, instance Value, value Value) error
}

// IsDataDescriptor reports whether v exposes both capabilities.
func IsDataDescriptor(v Value) bool {
	if _, ok := v.(Getter); !ok {
		return false
	}
	_, ok := v.(Setter)
	return ok
}

// ---------------------------------------------------------------------------
// Property: the canonical data descriptor
// ---------------------------------------------------------------------------

// Property wraps a getter and an optional setter callable as a data
// descriptor. Reading the attribute through an instance always invokes
// FGet, even when the instance's own storage shadows the name.
type Property struct {
	FGet Callable
	FSet Callable
}

func (*Property) Type() Type { return TypeProperty }

// String implements the Stringer interface.
func (p *Property) String() string { return "<property>" }

// DescrGet invokes the property getter with the instance.
func (p *Property) DescrGet(in *Interp, instance Value, owner *Class) (Value, error) {
	if p.FGet == nil {
		return nil, fmt.Errorf("property is not readable")
	}
	if instance == nil {
		// Accessed through the class: return the descriptor itself.
		return p, nil
	}
	return p.FGet.Call(in, []Value{instance}, nil)
}

// DescrSet invokes the property setter with the instance and value.
func (p *Property) DescrSet(in *Interp, instance Value, value Value) error {
	if p.FSet == nil {
		return fmt.Errorf("property is not writable")
	}
	_, err := p.FSet.Call(in, []Value{instance, value}, nil)
	return err
}
