package vm

// ---------------------------------------------------------------------------
// CodeObject: a compiled bytecode body
// ---------------------------------------------------------------------------

// CodeFlags carries per-body flags.
type CodeFlags uint32

const (
	// FlagGenerator marks a body that yields: calling its function builds a
	// generator instead of running the frame.
	FlagGenerator CodeFlags = 1 << 0
)

// CodeObject is one compiled bytecode body: the immutable description of a
// function, method, or module consumed by the dispatch loop.
//
// Params names the positional parameters in declaration order. CellVars
// names the locals captured by some nested scope (cell-producing); FreeVars
// names the variables captured from an enclosing scope. Names is the pool
// of identifiers referenced by name-addressed instructions.
//
// LineTable is the raw delta-encoded source line table: alternating
// (byte_increment, line_increment) octets, decoded by LineForOffset. The
// byte layout is a fidelity boundary and is carried through serialization
// untouched.
type CodeObject struct {
	Name     string
	Filename string

	Params   []string
	CellVars []string
	FreeVars []string
	Names    []string

	Consts   []Value
	Bytecode []byte

	Flags     CodeFlags
	FirstLine int
	LineTable []byte
}

func (*CodeObject) Type() Type { return TypeCode }

// String implements the Stringer interface.
func (c *CodeObject) String() string {
	return "<code " + c.Name + ">"
}

// IsGenerator reports whether this body produces a generator when called.
func (c *CodeObject) IsGenerator() bool {
	return c.Flags&FlagGenerator != 0
}

// LineForOffset derives the source line for a bytecode offset from the
// delta-encoded line table. It walks the (byte_increment, line_increment)
// pairs accumulating a byte offset and line number, and stops advancing
// the line once the accumulated offset exceeds the cursor. A cursor landing
// between entries reports the line most recently entered.
func (c *CodeObject) LineForOffset(offset int) int {
	byteNum := 0
	lineNum := c.FirstLine

	for i := 0; i+1 < len(c.LineTable); i += 2 {
		byteNum += int(c.LineTable[i])
		if byteNum > offset {
			break
		}
		lineNum += int(c.LineTable[i+1])
	}
	return lineNum
}

// DocString returns the body's documentation string: the first constant,
// when it is a string. Returns "" otherwise.
func (c *CodeObject) DocString() string {
	if len(c.Consts) == 0 {
		return ""
	}
	if s, ok := c.Consts[0].(StrValue); ok {
		return string(s)
	}
	return ""
}

// ConstIndex returns the index of an equal constant, adding it if absent.
func (c *CodeObject) ConstIndex(v Value) int {
	for i, existing := range c.Consts {
		if Equal(existing, v) && existing.Type() == v.Type() {
			return i
		}
	}
	c.Consts = append(c.Consts, v)
	return len(c.Consts) - 1
}

// NameIndex returns the index of a name in the identifier pool, adding it
// if absent.
func (c *CodeObject) NameIndex(name string) int {
	for i, existing := range c.Names {
		if existing == name {
			return i
		}
	}
	c.Names = append(c.Names, name)
	return len(c.Names) - 1
}

// Disassemble returns a disassembly of the body's bytecode.
func (c *CodeObject) Disassemble() string {
	return Disassemble(c.Bytecode)
}

// ---------------------------------------------------------------------------
// CodeBuilder: fluent construction of code objects
// ---------------------------------------------------------------------------

// CodeBuilder helps construct CodeObject instances, pairing body metadata
// with a bytecode builder.
type CodeBuilder struct {
	code     *CodeObject
	bytecode *BytecodeBuilder

	lastOffset int
	lastLine   int
}

// NewCodeBuilder creates a builder for a body with the given name.
func NewCodeBuilder(name string) *CodeBuilder {
	return &CodeBuilder{
		code:     &CodeObject{Name: name, FirstLine: 1},
		bytecode: NewBytecodeBuilder(),
	}
}

// SetFilename sets the source filename.
func (b *CodeBuilder) SetFilename(filename string) *CodeBuilder {
	b.code.Filename = filename
	return b
}

// SetParams sets the positional parameter names.
func (b *CodeBuilder) SetParams(params ...string) *CodeBuilder {
	b.code.Params = params
	return b
}

// SetCellVars sets the cell-producing variable names.
func (b *CodeBuilder) SetCellVars(names ...string) *CodeBuilder {
	b.code.CellVars = names
	return b
}

// SetFreeVars sets the free (captured from enclosing scope) variable names.
func (b *CodeBuilder) SetFreeVars(names ...string) *CodeBuilder {
	b.code.FreeVars = names
	return b
}

// SetFlags sets the body flags.
func (b *CodeBuilder) SetFlags(flags CodeFlags) *CodeBuilder {
	b.code.Flags = flags
	return b
}

// SetFirstLine sets the first source line and resets line tracking.
func (b *CodeBuilder) SetFirstLine(line int) *CodeBuilder {
	b.code.FirstLine = line
	b.lastLine = 0
	return b
}

// Const adds a constant (deduplicated) and returns its pool index.
func (b *CodeBuilder) Const(v Value) int {
	return b.code.ConstIndex(v)
}

// Name adds an identifier (deduplicated) and returns its pool index.
func (b *CodeBuilder) Name(name string) int {
	return b.code.NameIndex(name)
}

// Bytecode returns the underlying bytecode builder for direct emission.
func (b *CodeBuilder) Bytecode() *BytecodeBuilder {
	return b.bytecode
}

// MarkLine records that the instructions emitted from the current offset
// onward belong to the given source line, appending a delta pair to the
// line table. Lines must be marked in nondecreasing order.
func (b *CodeBuilder) MarkLine(line int) {
	offset := b.bytecode.Len()
	if b.lastLine == 0 {
		// First mark establishes the base line.
		b.code.FirstLine = line
		b.lastOffset = offset
		b.lastLine = line
		return
	}
	byteIncr := offset - b.lastOffset
	lineIncr := line - b.lastLine
	for byteIncr > 255 {
		b.code.LineTable = append(b.code.LineTable, 255, 0)
		byteIncr -= 255
	}
	for lineIncr > 255 {
		b.code.LineTable = append(b.code.LineTable, byte(byteIncr), 255)
		byteIncr = 0
		lineIncr -= 255
	}
	b.code.LineTable = append(b.code.LineTable, byte(byteIncr), byte(lineIncr))
	b.lastOffset = offset
	b.lastLine = line
}

// Build finalizes and returns the code object.
func (b *CodeBuilder) Build() *CodeObject {
	b.code.Bytecode = b.bytecode.Bytes()
	return b.code
}
