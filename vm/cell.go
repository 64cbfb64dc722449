package vm

// ---------------------------------------------------------------------------
// Cell: shared mutable box for captured variables
// ---------------------------------------------------------------------------

// Cell is a heap-allocated mutable container for a single Value.
//
// Closures keep captured names in scope by storing them not in a frame but
// in a cell. Frames share pointers to cells, so a write through any holder
// is immediately visible to every other holder. There is never a private
// copy: the defining frame and all nested frames that capture the variable
// resolve to the same cell.
type Cell struct {
	value Value
}

// NewCell creates a cell seeded with the given value. Pass Nil for an
// unbound variable.
func NewCell(v Value) *Cell {
	if v == nil {
		v = Nil
	}
	return &Cell{value: v}
}

// Get returns the value stored in the cell.
func (c *Cell) Get() Value {
	return c.value
}

// Set stores a value in the cell. The write is visible to every frame
// sharing the cell.
func (c *Cell) Set(v Value) {
	c.value = v
}

// ---------------------------------------------------------------------------
// CellRef: a cell travelling across the operand stack
// ---------------------------------------------------------------------------

// CellRef wraps a cell as a Value so closure-construction instructions can
// push captured cells onto the operand stack before building a closure.
type CellRef struct {
	Cell *Cell
}

func (CellRef) Type() Type { return TypeCellRef }

func (r CellRef) String() string {
	return "<cell " + r.Cell.Get().String() + ">"
}
