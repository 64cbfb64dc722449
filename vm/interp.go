package vm

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("opal.vm")

// ---------------------------------------------------------------------------
// Options
// ---------------------------------------------------------------------------

// Options configures a dispatch loop.
type Options struct {
	// MaxCallDepth bounds the execution frame chain. Exceeding it is a
	// language-level error, not a crash.
	MaxCallDepth int
	// Trace logs every frame push/pop and executed instruction at debug
	// level.
	Trace bool
}

// DefaultOptions returns the standard configuration.
func DefaultOptions() Options {
	return Options{MaxCallDepth: 1024}
}

// ---------------------------------------------------------------------------
// Interp: the bytecode dispatch loop
// ---------------------------------------------------------------------------

// Interp executes Opal bytecode. It owns the live frame chain and the
// global and built-in namespaces handed to root frames, and supplies the
// frame-construction and frame-running entry points the object model
// delegates to.
//
// Execution is single threaded and cooperative: exactly one frame runs at
// a time, and the only suspension point is a generator's yield.
type Interp struct {
	Globals  Namespace
	Builtins Namespace

	frames []*Frame // execution chain, innermost last
	opts   Options
}

// NewInterp creates a dispatch loop over the given global and built-in
// namespaces. Built-ins are an explicit constructor argument: root frames
// inherit them from here rather than from a reserved namespace entry.
func NewInterp(globals, builtins Namespace) *Interp {
	return NewInterpWithOptions(globals, builtins, DefaultOptions())
}

// NewInterpWithOptions creates a dispatch loop with explicit options.
func NewInterpWithOptions(globals, builtins Namespace, opts Options) *Interp {
	if globals == nil {
		globals = NewNamespace()
	}
	if builtins == nil {
		builtins = NewNamespace()
	}
	if opts.MaxCallDepth <= 0 {
		opts.MaxCallDepth = DefaultOptions().MaxCallDepth
	}
	return &Interp{Globals: globals, Builtins: builtins, opts: opts}
}

// CurrentFrame returns the innermost running frame, or nil when idle.
func (in *Interp) CurrentFrame() *Frame {
	if len(in.frames) == 0 {
		return nil
	}
	return in.frames[len(in.frames)-1]
}

// MakeFrame builds a frame for a bytecode body, using the innermost
// running frame as the caller. This is the frame-construction entry point
// the object model delegates to.
func (in *Interp) MakeFrame(code *CodeObject, callArgs, globals, extra Namespace) *Frame {
	if callArgs == nil {
		callArgs = NewNamespace()
	}
	if globals == nil {
		globals = in.Globals
	}
	return newFrame(code, callArgs, globals, extra, in.CurrentFrame(), in.Builtins, nil)
}

// MakeFrameFor builds a frame for a function call with already-bound
// arguments, wiring the body's free variables to the function's captured
// cells.
func (in *Interp) MakeFrameFor(fn *Function, bound Namespace) *Frame {
	return newFrame(fn.Code, bound, fn.Globals, nil, in.CurrentFrame(), in.Builtins, fn.Closure)
}

// RunCode builds a root-style frame for code and runs it to completion.
func (in *Interp) RunCode(code *CodeObject) (Value, error) {
	return in.RunFrame(in.MakeFrame(code, nil, in.Globals, nil))
}

// RunFrame executes a fresh frame to completion or, for a generator's
// frame, to its first suspension.
func (in *Interp) RunFrame(f *Frame) (Value, error) {
	return in.run(f)
}

// ResumeFrame continues a previously suspended frame from its saved
// instruction cursor.
func (in *Interp) ResumeFrame(f *Frame) (Value, error) {
	return in.run(f)
}

// ---------------------------------------------------------------------------
// Dispatch
// ---------------------------------------------------------------------------

// run executes f until it returns, yields, or fails. The instruction
// cursor is advanced past each instruction before it executes, so a yield
// resumes at the following instruction with the resume value pushed by the
// generator.
func (in *Interp) run(f *Frame) (Value, error) {
	if len(in.frames) >= in.opts.MaxCallDepth {
		return nil, fmt.Errorf("maximum call depth exceeded (%d)", in.opts.MaxCallDepth)
	}
	in.frames = append(in.frames, f)
	defer func() {
		in.frames = in.frames[:len(in.frames)-1]
	}()

	if in.opts.Trace {
		log.Debugf("enter %s", f)
	}

	code := f.Code
	bc := code.Bytecode

	for {
		if f.Lasti >= len(bc) {
			// Fell off the end of the body: implicit nil return.
			if f.Gen != nil {
				f.Gen.markFinished()
			}
			return Nil, nil
		}

		op := Opcode(bc[f.Lasti])
		operands := f.Lasti + 1
		f.Lasti += 1 + op.Info().OperandBytes

		if in.opts.Trace {
			log.Debugf("%s: %s", code.Name, op)
		}

		switch op {
		case OpNop:

		case OpPop:
			f.Pop()

		case OpDup:
			f.Push(f.Peek())

		case OpLoadConst:
			f.Push(code.Consts[readUint16(bc, operands)])

		case OpLoadName:
			name := code.Names[readUint16(bc, operands)]
			v, err := f.lookupName(name)
			if err != nil {
				return nil, err
			}
			f.Push(v)

		case OpStoreName:
			f.Locals[code.Names[readUint16(bc, operands)]] = f.Pop()

		case OpLoadGlobal:
			name := code.Names[readUint16(bc, operands)]
			v, err := f.lookupGlobal(name)
			if err != nil {
				return nil, err
			}
			f.Push(v)

		case OpStoreGlobal:
			f.Globals[code.Names[readUint16(bc, operands)]] = f.Pop()

		case OpLoadDeref:
			f.Push(f.cell(code.Names[readUint16(bc, operands)]).Get())

		case OpStoreDeref:
			f.cell(code.Names[readUint16(bc, operands)]).Set(f.Pop())

		case OpLoadClosure:
			f.Push(CellRef{Cell: f.cell(code.Names[readUint16(bc, operands)])})

		case OpLoadAttr:
			name := code.Names[readUint16(bc, operands)]
			v, err := getAttribute(in, f.Pop(), name)
			if err != nil {
				return nil, err
			}
			f.Push(v)

		case OpStoreAttr:
			name := code.Names[readUint16(bc, operands)]
			obj := f.Pop()
			val := f.Pop()
			if err := setAttribute(in, obj, name, val); err != nil {
				return nil, err
			}

		case OpBuildTuple:
			f.Push(TupleValue(f.PopN(int(readUint16(bc, operands)))))

		case OpMakeFunc:
			codeVal, err := popCode(f)
			if err != nil {
				return nil, err
			}
			defaults := f.PopN(int(bc[operands]))
			f.Push(NewFunction("", codeVal, f.Globals, defaults, nil))

		case OpMakeClosure:
			codeVal, err := popCode(f)
			if err != nil {
				return nil, err
			}
			cells, err := popCells(f)
			if err != nil {
				return nil, err
			}
			defaults := f.PopN(int(bc[operands]))
			f.Push(NewFunction("", codeVal, f.Globals, defaults, cells))

		case OpCall:
			args := f.PopN(int(bc[operands]))
			callee := f.Pop()
			c, ok := callee.(Callable)
			if !ok {
				return nil, &TypeError{Op: "call", Want: "callable", Got: callee.Type()}
			}
			v, err := c.Call(in, args, nil)
			if err != nil {
				return nil, err
			}
			f.Push(v)

		case OpJump:
			f.Lasti = int(readUint16(bc, operands))

		case OpJumpIfFalse:
			if !IsTruthy(f.Pop()) {
				f.Lasti = int(readUint16(bc, operands))
			}

		case OpGetIter:
			it, err := getIter(f.Pop())
			if err != nil {
				return nil, err
			}
			f.Push(it)

		case OpForIter:
			it, ok := f.Peek().(Iterator)
			if !ok {
				return nil, &TypeError{Op: "for", Want: "iterator", Got: f.Peek().Type()}
			}
			v, err := it.Next()
			if errors.Is(err, ErrStopIteration) {
				f.Pop()
				f.Lasti = int(readUint16(bc, operands))
			} else if err != nil {
				return nil, err
			} else {
				f.Push(v)
			}

		case OpSetupLoop:
			f.PushBlock(BlockLoop, int(readUint16(bc, operands)))

		case OpPopBlock:
			f.PopBlock()

		case OpBreak:
			b := f.unwindToLoop()
			f.Lasti = b.Handler

		case OpReturn:
			v := f.Pop()
			if f.Gen != nil {
				f.Gen.markFinished()
			}
			if in.opts.Trace {
				log.Debugf("leave %s", f)
			}
			return v, nil

		case OpYield:
			if f.Gen == nil {
				return nil, fmt.Errorf("%s: yield outside generator", code.Name)
			}
			return f.Pop(), nil

		case OpAdd, OpSub, OpMul, OpEq, OpLt:
			b := f.Pop()
			a := f.Pop()
			v, err := binaryOp(op, a, b)
			if err != nil {
				return nil, err
			}
			f.Push(v)

		default:
			panic(fmt.Sprintf("vm: unknown opcode 0x%02X at %d in %s", byte(op), f.Lasti, code.Name))
		}
	}
}

func readUint16(bc []byte, pos int) uint16 {
	return binary.LittleEndian.Uint16(bc[pos:])
}

// ---------------------------------------------------------------------------
// Name and cell access
// ---------------------------------------------------------------------------

func (f *Frame) lookupName(name string) (Value, error) {
	if v, ok := f.Locals[name]; ok {
		return v, nil
	}
	return f.lookupGlobal(name)
}

func (f *Frame) lookupGlobal(name string) (Value, error) {
	if v, ok := f.Globals[name]; ok {
		return v, nil
	}
	if v, ok := f.Builtins[name]; ok {
		return v, nil
	}
	return nil, fmt.Errorf("name %q is not defined", name)
}

// cell returns the frame's cell for a captured name. A missing cell means
// the compiler emitted a deref for a name the frame never wired, which is
// a contract violation.
func (f *Frame) cell(name string) *Cell {
	cell, ok := f.Cells[name]
	if !ok {
		panic(fmt.Sprintf("vm: frame %s: no cell for %q", f.Code.Name, name))
	}
	return cell
}

// unwindToLoop pops blocks until the innermost loop block, restoring the
// operand stack depth as each block exits.
func (f *Frame) unwindToLoop() Block {
	for len(f.Blocks) > 0 {
		b := f.PopBlock()
		if b.Kind == BlockLoop {
			return b
		}
	}
	panic(fmt.Sprintf("vm: frame %s: break outside loop", f.Code.Name))
}

// ---------------------------------------------------------------------------
// Operand helpers
// ---------------------------------------------------------------------------

func popCode(f *Frame) (*CodeObject, error) {
	v := f.Pop()
	code, ok := v.(*CodeObject)
	if !ok {
		return nil, &TypeError{Op: "make function", Want: "code", Got: v.Type()}
	}
	return code, nil
}

func popCells(f *Frame) ([]*Cell, error) {
	v := f.Pop()
	tuple, ok := v.(TupleValue)
	if !ok {
		return nil, &TypeError{Op: "make closure", Want: "tuple", Got: v.Type()}
	}
	cells := make([]*Cell, len(tuple))
	for i, item := range tuple {
		ref, ok := item.(CellRef)
		if !ok {
			return nil, &TypeError{Op: "make closure", Want: "cell", Got: item.Type()}
		}
		cells[i] = ref.Cell
	}
	return cells, nil
}

// getAttribute dispatches an attribute read to the resolver of the
// attribute-bearing entity.
func getAttribute(in *Interp, obj Value, name string) (Value, error) {
	switch o := obj.(type) {
	case *Class:
		return o.GetAttribute(in, name)
	case *Instance:
		return o.GetAttribute(in, name)
	default:
		return nil, &TypeError{Op: "attribute " + name, Want: "class or instance", Got: obj.Type()}
	}
}

// setAttribute dispatches an attribute write. A data descriptor on the
// instance's class intercepts the write; otherwise assignment goes to the
// entity's own storage.
func setAttribute(in *Interp, obj Value, name string, val Value) error {
	switch o := obj.(type) {
	case *Class:
		o.SetAttr(name, val)
		return nil
	case *Instance:
		if classVal, err := o.Class.ResolveAttr(name); err == nil && IsDataDescriptor(classVal) {
			return classVal.(Setter).DescrSet(in, o, val)
		}
		o.SetAttr(name, val)
		return nil
	default:
		return &TypeError{Op: "attribute " + name, Want: "class or instance", Got: obj.Type()}
	}
}

// ---------------------------------------------------------------------------
// Iteration
// ---------------------------------------------------------------------------

// tupleIterator walks a tuple for for-loops.
type tupleIterator struct {
	vals TupleValue
	pos  int
}

func (*tupleIterator) Type() Type     { return TypeIterator }
func (*tupleIterator) String() string { return "<tuple iterator>" }

func (it *tupleIterator) Next() (Value, error) {
	if it.pos >= len(it.vals) {
		return nil, ErrStopIteration
	}
	v := it.vals[it.pos]
	it.pos++
	return v, nil
}

// getIter returns an iterator for v: iterators (generators included) pass
// through, tuples get a fresh cursor.
func getIter(v Value) (Value, error) {
	if _, ok := v.(Iterator); ok {
		return v, nil
	}
	if t, ok := v.(TupleValue); ok {
		return &tupleIterator{vals: t}, nil
	}
	return nil, &TypeError{Op: "iter", Want: "iterable", Got: v.Type()}
}

// ---------------------------------------------------------------------------
// Binary operations
// ---------------------------------------------------------------------------

func binaryOp(op Opcode, a, b Value) (Value, error) {
	switch op {
	case OpEq:
		return FromBool(Equal(a, b)), nil
	case OpAdd:
		if x, ok := a.(StrValue); ok {
			if y, ok := b.(StrValue); ok {
				return x + y, nil
			}
		}
		if x, ok := a.(TupleValue); ok {
			if y, ok := b.(TupleValue); ok {
				out := make(TupleValue, 0, len(x)+len(y))
				out = append(out, x...)
				return append(out, y...), nil
			}
		}
	}
	return numericOp(op, a, b)
}

func numericOp(op Opcode, a, b Value) (Value, error) {
	if x, ok := a.(IntValue); ok {
		if y, ok := b.(IntValue); ok {
			switch op {
			case OpAdd:
				return x + y, nil
			case OpSub:
				return x - y, nil
			case OpMul:
				return x * y, nil
			case OpLt:
				return FromBool(x < y), nil
			}
		}
	}
	x, err := asFloat(op, a)
	if err != nil {
		return nil, err
	}
	y, err := asFloat(op, b)
	if err != nil {
		return nil, err
	}
	switch op {
	case OpAdd:
		return FloatValue(x + y), nil
	case OpSub:
		return FloatValue(x - y), nil
	case OpMul:
		return FloatValue(x * y), nil
	case OpLt:
		return FromBool(x < y), nil
	}
	panic(fmt.Sprintf("vm: binaryOp: unexpected opcode %s", op))
}

func asFloat(op Opcode, v Value) (float64, error) {
	switch x := v.(type) {
	case IntValue:
		return float64(x), nil
	case FloatValue:
		return float64(x), nil
	default:
		return 0, &TypeError{Op: op.Name(), Want: "number", Got: v.Type()}
	}
}
