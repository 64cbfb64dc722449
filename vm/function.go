package vm

import "fmt"

// ---------------------------------------------------------------------------
// Function: a callable pairing a bytecode body with its defining scope
// ---------------------------------------------------------------------------

// Function pairs a bytecode body with the captured cells, default argument
// values, and global namespace of its defining scope. Functions are
// immutable after construction.
//
// A function stored as a class attribute is a non-data descriptor: accessed
// through an instance it yields a bound Method, accessed through the class
// it yields itself unchanged.
type Function struct {
	Name     string
	Code     *CodeObject
	Globals  Namespace
	Defaults []Value
	Closure  []*Cell
	Doc      string
}

// NewFunction creates a function value. An empty name falls back to the
// body's own name. closure supplies the cells for the body's free
// variables, obtained from the defining frame's cell table.
func NewFunction(name string, code *CodeObject, globals Namespace, defaults []Value, closure []*Cell) *Function {
	if name == "" {
		name = code.Name
	}
	return &Function{
		Name:     name,
		Code:     code,
		Globals:  globals,
		Defaults: defaults,
		Closure:  closure,
		Doc:      code.DocString(),
	}
}

func (*Function) Type() Type { return TypeFunction }

// String implements the Stringer interface.
func (fn *Function) String() string {
	return "<function " + fn.Name + ">"
}

// ---------------------------------------------------------------------------
// Argument binding
// ---------------------------------------------------------------------------

// Bind checks positional and keyword arguments against the body's declared
// parameters and produces the bound name -> value mapping, falling back to
// default values for omitted trailing parameters. Binding failures are
// call-time errors reported to the caller, never silently coerced.
func (fn *Function) Bind(args []Value, kwargs Namespace) (Namespace, error) {
	params := fn.Code.Params
	if len(args) > len(params) {
		return nil, &BindError{
			Func:   fn.Name,
			Reason: fmt.Sprintf("takes %d arguments (%d given)", len(params), len(args)),
		}
	}

	bound := make(Namespace, len(params))
	for i, arg := range args {
		bound[params[i]] = arg
	}

	for name, v := range kwargs {
		if _, dup := bound[name]; dup {
			return nil, &BindError{
				Func:   fn.Name,
				Reason: fmt.Sprintf("got multiple values for argument %q", name),
			}
		}
		if !fn.hasParam(name) {
			return nil, &BindError{
				Func:   fn.Name,
				Reason: fmt.Sprintf("got an unexpected keyword argument %q", name),
			}
		}
		bound[name] = v
	}

	// Defaults align with the trailing parameters.
	firstDefault := len(params) - len(fn.Defaults)
	for i, name := range params {
		if _, ok := bound[name]; ok {
			continue
		}
		if i >= firstDefault {
			bound[name] = fn.Defaults[i-firstDefault]
			continue
		}
		return nil, &BindError{
			Func:   fn.Name,
			Reason: fmt.Sprintf("missing required argument %q", name),
		}
	}
	return bound, nil
}

func (fn *Function) hasParam(name string) bool {
	for _, p := range fn.Code.Params {
		if p == name {
			return true
		}
	}
	return false
}

// ---------------------------------------------------------------------------
// Calling
// ---------------------------------------------------------------------------

// Call binds the arguments, asks the dispatch loop for a fresh frame, and
// either runs it to completion or, for a generator-flagged body, wraps the
// unrun frame in a Generator and returns that instead.
func (fn *Function) Call(in *Interp, args []Value, kwargs Namespace) (Value, error) {
	bound, err := fn.Bind(args, kwargs)
	if err != nil {
		return nil, err
	}

	frame := in.MakeFrameFor(fn, bound)

	if fn.Code.IsGenerator() {
		gen := NewGenerator(frame, in)
		frame.Gen = gen
		return gen, nil
	}
	return in.RunFrame(frame)
}

// ---------------------------------------------------------------------------
// Descriptor capability (non-data)
// ---------------------------------------------------------------------------

// DescrGet implements the instance-method protocol: access through an
// instance binds the function into a Method; access through the class
// yields the function unchanged.
func (fn *Function) DescrGet(in *Interp, instance Value, owner *Class) (Value, error) {
	if instance == nil {
		return fn, nil
	}
	return &Method{Self: instance, Class: owner, Fn: fn}, nil
}
