package vm

import (
	"fmt"
	"strconv"
	"strings"
)

// Value is the interface implemented by every Opal runtime value.
//
// Values are tagged variants: Type reports the kind discriminator and
// String produces a printable representation for diagnostics. Heap kinds
// (functions, classes, instances, generators) are shared by pointer;
// primitive kinds are immutable.
type Value interface {
	Type() Type
	String() string
}

// Type identifies the kind of a Value.
type Type uint8

const (
	TypeNil Type = iota
	TypeBool
	TypeInt
	TypeFloat
	TypeStr
	TypeTuple
	TypeCode
	TypeCellRef
	TypeBuiltin
	TypeFunction
	TypeMethod
	TypeGenerator
	TypeClass
	TypeInstance
	TypeProperty
	TypeIterator
)

// typeNames maps Type values to their display names.
var typeNames = map[Type]string{
	TypeNil:       "nil",
	TypeBool:      "bool",
	TypeInt:       "int",
	TypeFloat:     "float",
	TypeStr:       "str",
	TypeTuple:     "tuple",
	TypeCode:      "code",
	TypeCellRef:   "cell",
	TypeBuiltin:   "builtin",
	TypeFunction:  "function",
	TypeMethod:    "method",
	TypeGenerator: "generator",
	TypeClass:     "class",
	TypeInstance:  "instance",
	TypeProperty:  "property",
	TypeIterator:  "iterator",
}

// String implements the Stringer interface.
func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("type(%d)", uint8(t))
}

// ---------------------------------------------------------------------------
// Primitive kinds
// ---------------------------------------------------------------------------

// NilValue is the single "no value" kind.
type NilValue struct{}

// Nil is the canonical nil value.
var Nil Value = NilValue{}

func (NilValue) Type() Type     { return TypeNil }
func (NilValue) String() string { return "nil" }

// BoolValue represents true or false.
type BoolValue bool

// Canonical boolean values.
var (
	True  Value = BoolValue(true)
	False Value = BoolValue(false)
)

func (BoolValue) Type() Type { return TypeBool }

func (b BoolValue) String() string {
	if b {
		return "true"
	}
	return "false"
}

// FromBool converts a Go bool to a Value.
func FromBool(b bool) Value {
	if b {
		return True
	}
	return False
}

// IntValue represents a signed integer.
type IntValue int64

func (IntValue) Type() Type       { return TypeInt }
func (n IntValue) String() string { return strconv.FormatInt(int64(n), 10) }

// FloatValue represents a 64-bit float.
type FloatValue float64

func (FloatValue) Type() Type       { return TypeFloat }
func (f FloatValue) String() string { return strconv.FormatFloat(float64(f), 'g', -1, 64) }

// StrValue represents an immutable string.
type StrValue string

func (StrValue) Type() Type       { return TypeStr }
func (s StrValue) String() string { return string(s) }

// TupleValue represents an immutable sequence of values.
type TupleValue []Value

func (TupleValue) Type() Type { return TypeTuple }

func (t TupleValue) String() string {
	parts := make([]string, len(t))
	for i, v := range t {
		parts[i] = v.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// ---------------------------------------------------------------------------
// Namespaces
// ---------------------------------------------------------------------------

// Namespace maps variable names to values. Frames use namespaces for their
// local, global, and built-in scopes.
type Namespace map[string]Value

// NewNamespace creates an empty namespace.
func NewNamespace() Namespace {
	return make(Namespace)
}

// Merged returns a new namespace combining ns with extra. Entries in extra
// win on collision.
func (ns Namespace) Merged(extra Namespace) Namespace {
	out := make(Namespace, len(ns)+len(extra))
	for k, v := range ns {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

// ---------------------------------------------------------------------------
// Truthiness and equality
// ---------------------------------------------------------------------------

// IsTruthy reports whether v is considered true in conditionals.
// Only nil, false, zero numbers, and empty strings/tuples are falsy.
func IsTruthy(v Value) bool {
	switch x := v.(type) {
	case NilValue:
		return false
	case BoolValue:
		return bool(x)
	case IntValue:
		return x != 0
	case FloatValue:
		return x != 0
	case StrValue:
		return x != ""
	case TupleValue:
		return len(x) != 0
	default:
		return true
	}
}

// Equal reports whether two values are equal. Primitives compare by value
// (with int/float mixing); heap kinds compare by identity.
func Equal(a, b Value) bool {
	switch x := a.(type) {
	case NilValue:
		return b.Type() == TypeNil
	case BoolValue:
		y, ok := b.(BoolValue)
		return ok && x == y
	case IntValue:
		switch y := b.(type) {
		case IntValue:
			return x == y
		case FloatValue:
			return FloatValue(x) == y
		}
		return false
	case FloatValue:
		switch y := b.(type) {
		case FloatValue:
			return x == y
		case IntValue:
			return x == FloatValue(y)
		}
		return false
	case StrValue:
		y, ok := b.(StrValue)
		return ok && x == y
	case TupleValue:
		y, ok := b.(TupleValue)
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if !Equal(x[i], y[i]) {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}

// ---------------------------------------------------------------------------
// Callables
// ---------------------------------------------------------------------------

// Callable is implemented by values that can be invoked: functions, bound
// methods, built-in functions, and classes (calling a class instantiates it).
type Callable interface {
	Value
	Call(in *Interp, args []Value, kwargs Namespace) (Value, error)
}

// BuiltinFunc is a native Go function exposed as a callable value.
type BuiltinFunc struct {
	Name string
	Fn   func(in *Interp, args []Value, kwargs Namespace) (Value, error)
}

func (*BuiltinFunc) Type() Type { return TypeBuiltin }

func (b *BuiltinFunc) String() string {
	return "<builtin " + b.Name + ">"
}

// Call invokes the native function.
func (b *BuiltinFunc) Call(in *Interp, args []Value, kwargs Namespace) (Value, error) {
	return b.Fn(in, args, kwargs)
}
