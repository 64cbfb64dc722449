package vm

import (
	"errors"
	"testing"
)

// initTo returns a constructor that assigns fixed attributes on the new
// instance.
func initTo(attrs Namespace) *BuiltinFunc {
	return &BuiltinFunc{
		Name: "__init__",
		Fn: func(in *Interp, args []Value, kwargs Namespace) (Value, error) {
			inst := args[0].(*Instance)
			for k, v := range attrs {
				inst.SetAttr(k, v)
			}
			return Nil, nil
		},
	}
}

func newTestInstance(t *testing.T, class *Class) *Instance {
	t.Helper()
	in := NewInterp(nil, nil)
	inst, err := NewInstance(in, class, nil, nil)
	if err != nil {
		t.Fatalf("NewInstance(%s) failed: %v", class.Name, err)
	}
	return inst
}

// ---------------------------------------------------------------------------
// Construction tests
// ---------------------------------------------------------------------------

func TestNewInstanceRunsConstructor(t *testing.T) {
	a := mustClass(t, "A")
	a.SetAttr(InitAttr, &BuiltinFunc{
		Name: "__init__",
		Fn: func(in *Interp, args []Value, kwargs Namespace) (Value, error) {
			args[0].(*Instance).SetAttr("x", args[1])
			return Nil, nil
		},
	})

	in := NewInterp(nil, nil)
	inst, err := NewInstance(in, a, []Value{IntValue(7)}, nil)
	if err != nil {
		t.Fatalf("NewInstance failed: %v", err)
	}
	if got, ok := inst.Attrs["x"]; !ok || !Equal(got, IntValue(7)) {
		t.Errorf("instance x = %v, want 7", got)
	}
}

func TestNewInstanceInheritedConstructor(t *testing.T) {
	a := mustClass(t, "A")
	a.SetAttr(InitAttr, initTo(Namespace{"tag": StrValue("from A")}))
	b := mustClass(t, "B", a)

	inst := newTestInstance(t, b)
	if inst.Class != b {
		t.Errorf("instance class = %v, want B", inst.Class)
	}
	if got := inst.Attrs["tag"]; !Equal(got, StrValue("from A")) {
		t.Errorf("tag = %v, want %q", got, "from A")
	}
}

func TestNewInstanceMissingConstructor(t *testing.T) {
	a := mustClass(t, "A")
	in := NewInterp(nil, nil)
	_, err := NewInstance(in, a, nil, nil)
	var aerr *AttributeError
	if !errors.As(err, &aerr) {
		t.Fatalf("error = %T, want *AttributeError", err)
	}
}

func TestNewInstanceNonCallableConstructor(t *testing.T) {
	a := mustClass(t, "A")
	a.SetAttr(InitAttr, IntValue(3))
	in := NewInterp(nil, nil)
	_, err := NewInstance(in, a, nil, nil)
	var terr *TypeError
	if !errors.As(err, &terr) {
		t.Fatalf("error = %T, want *TypeError", err)
	}
}

// ---------------------------------------------------------------------------
// Four-case attribute precedence tests
// ---------------------------------------------------------------------------

func TestGetAttributeDataDescriptorBeatsStorage(t *testing.T) {
	a := mustClass(t, "A")
	a.SetAttr(InitAttr, initTo(nil))
	a.SetAttr("x", &Property{
		FGet: &BuiltinFunc{Name: "get_x", Fn: func(in *Interp, args []Value, kwargs Namespace) (Value, error) {
			return StrValue("from property"), nil
		}},
		FSet: &BuiltinFunc{Name: "set_x", Fn: func(in *Interp, args []Value, kwargs Namespace) (Value, error) {
			return Nil, nil
		}},
	})

	inst := newTestInstance(t, a)
	inst.SetAttr("x", StrValue("from storage"))

	in := NewInterp(nil, nil)
	v, err := inst.GetAttribute(in, "x")
	if err != nil {
		t.Fatalf("GetAttribute(x) failed: %v", err)
	}
	if !Equal(v, StrValue("from property")) {
		t.Errorf("GetAttribute(x) = %v, want the data descriptor to win", v)
	}
}

func TestGetAttributeStorageBeatsNonData(t *testing.T) {
	a := mustClass(t, "A")
	a.SetAttr(InitAttr, initTo(nil))
	a.SetAttr("x", IntValue(1))

	inst := newTestInstance(t, a)
	inst.SetAttr("x", IntValue(2))

	in := NewInterp(nil, nil)
	v, err := inst.GetAttribute(in, "x")
	if err != nil {
		t.Fatalf("GetAttribute(x) failed: %v", err)
	}
	if !Equal(v, IntValue(2)) {
		t.Errorf("GetAttribute(x) = %v, want instance storage to win", v)
	}
}

func TestGetAttributeNotFound(t *testing.T) {
	a := mustClass(t, "A")
	a.SetAttr(InitAttr, initTo(nil))
	inst := newTestInstance(t, a)

	in := NewInterp(nil, nil)
	_, err := inst.GetAttribute(in, "ghost")
	var aerr *AttributeError
	if !errors.As(err, &aerr) {
		t.Fatalf("error = %T, want *AttributeError", err)
	}
	if aerr.Name != "ghost" {
		t.Errorf("AttributeError.Name = %q, want %q", aerr.Name, "ghost")
	}
}

func TestGetAttributeBindsFunctions(t *testing.T) {
	a := mustClass(t, "A")
	a.SetAttr(InitAttr, initTo(nil))
	fn := NewFunction("m", &CodeObject{Name: "m", Params: []string{"self"}}, nil, nil, nil)
	a.SetAttr("m", fn)

	inst := newTestInstance(t, a)
	in := NewInterp(nil, nil)
	v, err := inst.GetAttribute(in, "m")
	if err != nil {
		t.Fatalf("GetAttribute(m) failed: %v", err)
	}
	m, ok := v.(*Method)
	if !ok {
		t.Fatalf("GetAttribute(m) = %T, want *Method", v)
	}
	if m.Self != Value(inst) || m.Fn != fn {
		t.Error("bound method does not carry the instance and function")
	}
}

func TestGetAttributeRawClassValue(t *testing.T) {
	a := mustClass(t, "A")
	a.SetAttr(InitAttr, initTo(nil))
	a.SetAttr("limit", IntValue(99))

	inst := newTestInstance(t, a)
	in := NewInterp(nil, nil)
	v, err := inst.GetAttribute(in, "limit")
	if err != nil {
		t.Fatalf("GetAttribute(limit) failed: %v", err)
	}
	if !Equal(v, IntValue(99)) {
		t.Errorf("GetAttribute(limit) = %v, want 99", v)
	}
}
