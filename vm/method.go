package vm

// ---------------------------------------------------------------------------
// Method: a function bound (or not) to an instance
// ---------------------------------------------------------------------------

// Method is the transient callable produced when a function is accessed as
// a class attribute. Self is nil for an unbound method. Methods are
// immutable views; they are never persisted in class or instance storage.
type Method struct {
	Self  Value // receiving instance, nil when unbound
	Class *Class
	Fn    *Function
}

func (*Method) Type() Type { return TypeMethod }

// String implements the Stringer interface.
func (m *Method) String() string {
	name := m.Class.Name + "." + m.Fn.Name
	if m.Self != nil {
		return "<bound method " + name + ">"
	}
	return "<unbound method " + name + ">"
}

// Call invokes the underlying function, prepending the receiver to the
// positional arguments when the method is bound.
func (m *Method) Call(in *Interp, args []Value, kwargs Namespace) (Value, error) {
	if m.Self != nil {
		withSelf := make([]Value, 0, len(args)+1)
		withSelf = append(withSelf, m.Self)
		withSelf = append(withSelf, args...)
		return m.Fn.Call(in, withSelf, kwargs)
	}
	return m.Fn.Call(in, args, kwargs)
}
