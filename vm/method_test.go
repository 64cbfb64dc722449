package vm

import "testing"

// sumMethod compiles a method body that records its receiver in a global
// and returns a + b.
func sumMethod(t *testing.T, globals Namespace) *Function {
	t.Helper()
	b := NewCodeBuilder("sum")
	b.SetParams("self", "a", "b")
	b.Bytecode().EmitUint16(OpLoadName, uint16(b.Name("self")))
	b.Bytecode().EmitUint16(OpStoreGlobal, uint16(b.Name("seen")))
	b.Bytecode().EmitUint16(OpLoadName, uint16(b.Name("a")))
	b.Bytecode().EmitUint16(OpLoadName, uint16(b.Name("b")))
	b.Bytecode().Emit(OpAdd)
	b.Bytecode().Emit(OpReturn)
	return NewFunction("sum", b.Build(), globals, nil, nil)
}

func TestBoundMethodPrependsReceiver(t *testing.T) {
	globals := NewNamespace()
	in := NewInterp(globals, nil)
	owner := mustClass(t, "A")
	inst := &Instance{Class: owner, Attrs: NewNamespace()}
	m := &Method{Self: inst, Class: owner, Fn: sumMethod(t, globals)}

	v, err := m.Call(in, []Value{IntValue(2), IntValue(3)}, nil)
	if err != nil {
		t.Fatalf("bound call failed: %v", err)
	}
	if !Equal(v, IntValue(5)) {
		t.Errorf("bound call = %v, want 5", v)
	}
	if globals["seen"] != Value(inst) {
		t.Error("bound call did not pass the receiver as self")
	}
}

func TestUnboundMethodTakesExplicitReceiver(t *testing.T) {
	globals := NewNamespace()
	in := NewInterp(globals, nil)
	owner := mustClass(t, "A")
	inst := &Instance{Class: owner, Attrs: NewNamespace()}
	fn := sumMethod(t, globals)

	bound := &Method{Self: inst, Class: owner, Fn: fn}
	unbound := &Method{Class: owner, Fn: fn}

	vb, err := bound.Call(in, []Value{IntValue(2), IntValue(3)}, nil)
	if err != nil {
		t.Fatalf("bound call failed: %v", err)
	}
	vu, err := unbound.Call(in, []Value{inst, IntValue(2), IntValue(3)}, nil)
	if err != nil {
		t.Fatalf("unbound call failed: %v", err)
	}
	if !Equal(vb, vu) {
		t.Errorf("bound call = %v, unbound call = %v, want identical results", vb, vu)
	}
}

func TestMethodString(t *testing.T) {
	owner := mustClass(t, "A")
	fn := NewFunction("m", &CodeObject{Name: "m"}, nil, nil, nil)
	inst := &Instance{Class: owner, Attrs: NewNamespace()}

	bound := &Method{Self: inst, Class: owner, Fn: fn}
	if got := bound.String(); got != "<bound method A.m>" {
		t.Errorf("String = %q, want %q", got, "<bound method A.m>")
	}
	unbound := &Method{Class: owner, Fn: fn}
	if got := unbound.String(); got != "<unbound method A.m>" {
		t.Errorf("String = %q, want %q", got, "<unbound method A.m>")
	}
}
