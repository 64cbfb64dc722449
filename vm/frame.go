package vm

import "fmt"

// ---------------------------------------------------------------------------
// Frame: one activation record of a running function
// ---------------------------------------------------------------------------

// Frame is the execution state of a single call: operand stack, name
// scopes, block stack, cell table, instruction cursor, and a back-link to
// the calling frame. Frames are mutated only by the dispatch loop running
// their instructions. A frame is discarded when its call returns, unless a
// generator holds it, in which case it persists intact across suspensions.
type Frame struct {
	Code *CodeObject

	Locals   Namespace
	Globals  Namespace
	Builtins Namespace

	Stack  []Value
	Blocks []Block
	Cells  map[string]*Cell

	Lasti int    // instruction cursor
	Back  *Frame // calling frame, nil for a root frame

	Gen *Generator // owning generator, nil for plain calls
}

// NewFrame builds a frame for a bytecode body.
//
// callArgs holds the bound arguments, merged with extra into the local
// namespace. Built-ins come from the caller when there is one, otherwise
// from the builtins argument. Cell wiring follows the capture contract:
//
//   - Every cell-producing name gets a fresh cell seeded with its current
//     local value (or left unbound), registered here and also published
//     into the caller's cell table so definitions created later in the
//     caller still share it.
//   - Every free name copies the caller's cell pointer. A free name with
//     no published cell is a compiler/dispatch bug and panics.
func NewFrame(code *CodeObject, callArgs, globals, extra Namespace, back *Frame, builtins Namespace) *Frame {
	return newFrame(code, callArgs, globals, extra, back, builtins, nil)
}

// newFrame additionally accepts the captured cells of the function being
// called. When present they wire the body's free variables directly, in
// declaration order, so a closure that escaped its defining frame still
// resolves to the original cells. Without them the caller's published
// cells are the only source.
func newFrame(code *CodeObject, callArgs, globals, extra Namespace, back *Frame, builtins Namespace, closure []*Cell) *Frame {
	f := &Frame{
		Code:    code,
		Locals:  callArgs.Merged(extra),
		Globals: globals,
		Back:    back,
		Stack:   make([]Value, 0, 8),
	}

	if back != nil {
		f.Builtins = back.Builtins
	} else {
		f.Builtins = builtins
	}
	if f.Builtins == nil {
		f.Builtins = NewNamespace()
	}

	if len(code.CellVars) > 0 {
		f.Cells = make(map[string]*Cell, len(code.CellVars))
		if back != nil && back.Cells == nil {
			back.Cells = make(map[string]*Cell)
		}
		for _, name := range code.CellVars {
			cell := NewCell(f.Locals[name])
			f.Cells[name] = cell
			if back != nil {
				back.Cells[name] = cell
			}
		}
	}

	if len(code.FreeVars) > 0 {
		if f.Cells == nil {
			f.Cells = make(map[string]*Cell, len(code.FreeVars))
		}
		if len(closure) > 0 {
			if len(closure) != len(code.FreeVars) {
				panic(fmt.Sprintf("vm: frame %s: %d captured cells for %d free variables",
					code.Name, len(closure), len(code.FreeVars)))
			}
			for i, name := range code.FreeVars {
				f.Cells[name] = closure[i]
			}
		} else {
			for _, name := range code.FreeVars {
				if back == nil || back.Cells == nil {
					panic(fmt.Sprintf("vm: frame %s: no caller cells for free variable %q", code.Name, name))
				}
				cell, ok := back.Cells[name]
				if !ok {
					panic(fmt.Sprintf("vm: frame %s: no cell published for free variable %q", code.Name, name))
				}
				f.Cells[name] = cell
			}
		}
	}

	return f
}

// LineNumber derives the source line the frame is currently executing from
// the instruction cursor and the body's delta-encoded line table.
func (f *Frame) LineNumber() int {
	return f.Code.LineForOffset(f.Lasti)
}

// String implements the Stringer interface.
func (f *Frame) String() string {
	return fmt.Sprintf("<frame %s @ line %d>", f.Code.Name, f.LineNumber())
}

// ---------------------------------------------------------------------------
// Operand stack
// ---------------------------------------------------------------------------

// Push appends a value to the operand stack.
func (f *Frame) Push(v Value) {
	f.Stack = append(f.Stack, v)
}

// Pop removes and returns the top of the operand stack.
func (f *Frame) Pop() Value {
	n := len(f.Stack)
	if n == 0 {
		panic("vm: operand stack underflow")
	}
	v := f.Stack[n-1]
	f.Stack = f.Stack[:n-1]
	return v
}

// Peek returns the top of the operand stack without removing it.
func (f *Frame) Peek() Value {
	n := len(f.Stack)
	if n == 0 {
		panic("vm: operand stack underflow")
	}
	return f.Stack[n-1]
}

// PopN removes and returns the top n values, oldest first.
func (f *Frame) PopN(n int) []Value {
	if len(f.Stack) < n {
		panic("vm: operand stack underflow")
	}
	out := make([]Value, n)
	copy(out, f.Stack[len(f.Stack)-n:])
	f.Stack = f.Stack[:len(f.Stack)-n]
	return out
}

// ---------------------------------------------------------------------------
// Block stack
// ---------------------------------------------------------------------------

// PushBlock records entry into a loop or protected region.
func (f *Frame) PushBlock(kind BlockKind, handler int) {
	f.Blocks = append(f.Blocks, Block{Kind: kind, Handler: handler, Level: len(f.Stack)})
}

// PopBlock pops the top block and truncates the operand stack to the depth
// saved when the block was pushed.
func (f *Frame) PopBlock() Block {
	n := len(f.Blocks)
	if n == 0 {
		panic("vm: block stack underflow")
	}
	b := f.Blocks[n-1]
	f.Blocks = f.Blocks[:n-1]
	if len(f.Stack) > b.Level {
		f.Stack = f.Stack[:b.Level]
	}
	return b
}

// TopBlock returns the innermost block, or nil when the block stack is
// empty.
func (f *Frame) TopBlock() *Block {
	if len(f.Blocks) == 0 {
		return nil
	}
	return &f.Blocks[len(f.Blocks)-1]
}
