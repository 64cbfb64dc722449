package vm

import "fmt"

// ---------------------------------------------------------------------------
// Instance: per-instance storage plus a class back-reference
// ---------------------------------------------------------------------------

// Instance holds a back-reference to its class and its own attribute
// mapping. Instances and classes share the resolver but never unify their
// storage.
type Instance struct {
	Class *Class
	Attrs Namespace
}

// NewInstance allocates an instance with empty storage, then resolves the
// class's constructor attribute and calls it with the new instance
// prepended to the arguments.
func NewInstance(in *Interp, class *Class, args []Value, kwargs Namespace) (*Instance, error) {
	inst := &Instance{Class: class, Attrs: NewNamespace()}

	init, err := class.ResolveAttr(InitAttr)
	if err != nil {
		return nil, err
	}
	ctor, ok := init.(Callable)
	if !ok {
		return nil, &TypeError{Op: class.Name + "." + InitAttr, Want: "callable", Got: init.Type()}
	}

	withSelf := make([]Value, 0, len(args)+1)
	withSelf = append(withSelf, inst)
	withSelf = append(withSelf, args...)
	if _, err := ctor.Call(in, withSelf, kwargs); err != nil {
		return nil, fmt.Errorf("%s(): %w", class.Name, err)
	}
	return inst, nil
}

func (*Instance) Type() Type { return TypeInstance }

// String implements the Stringer interface.
func (i *Instance) String() string {
	return "<" + i.Class.Name + " instance>"
}

func (i *Instance) entity() string {
	return i.Class.Name + " object"
}

// ---------------------------------------------------------------------------
// Attribute lookup: the four-case precedence
// ---------------------------------------------------------------------------

// GetAttribute resolves an attribute read through the instance. The four
// cases are evaluated in this exact order:
//
//  1. The class resolution is a data descriptor: its getter wins, even
//     when instance storage shadows the name.
//  2. The name is in the instance's own storage: return it directly.
//  3. The class resolution found nothing at all: attribute-not-found.
//  4. The class resolution is a non-data descriptor (a function becoming a
//     bound method): invoke its getter; otherwise return the raw value.
func (i *Instance) GetAttribute(in *Interp, name string) (Value, error) {
	classVal, resolveErr := i.Class.ResolveAttr(name)

	if resolveErr == nil && IsDataDescriptor(classVal) {
		return classVal.(Getter).DescrGet(in, i, i.Class)
	}

	if v, ok := i.Attrs[name]; ok {
		return v, nil
	}

	if resolveErr != nil {
		return nil, &AttributeError{Entity: i.entity(), Name: name}
	}

	if g, ok := classVal.(Getter); ok {
		return g.DescrGet(in, i, i.Class)
	}
	return classVal, nil
}

// SetAttr writes directly into the instance's own storage. Data-descriptor
// interception on writes is the dispatch loop's concern; plain assignment
// only touches the local mapping.
func (i *Instance) SetAttr(name string, v Value) {
	i.Attrs[name] = v
}
