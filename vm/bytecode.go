package vm

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// Opcode definitions
// ---------------------------------------------------------------------------

// Opcode represents a single bytecode instruction.
type Opcode byte

// Stack operations
const (
	OpNop Opcode = 0x00 // no operation
	OpPop Opcode = 0x01 // discard top of stack
	OpDup Opcode = 0x02 // duplicate top of stack
)

// Constants and variables
const (
	OpLoadConst   Opcode = 0x10 // push constant (16-bit pool index)
	OpLoadName    Opcode = 0x11 // push named variable: locals, globals, builtins (16-bit name index)
	OpStoreName   Opcode = 0x12 // pop into local variable (16-bit name index)
	OpLoadGlobal  Opcode = 0x13 // push global or builtin (16-bit name index)
	OpStoreGlobal Opcode = 0x14 // pop into global variable (16-bit name index)
	OpLoadDeref   Opcode = 0x15 // push value of captured cell (16-bit name index)
	OpStoreDeref  Opcode = 0x16 // pop into captured cell (16-bit name index)
	OpLoadClosure Opcode = 0x17 // push the cell itself for closure building (16-bit name index)
)

// Attributes
const (
	OpLoadAttr  Opcode = 0x20 // pop object, push attribute (16-bit name index)
	OpStoreAttr Opcode = 0x21 // pop object then value, assign attribute (16-bit name index)
)

// Aggregates and callables
const (
	OpBuildTuple  Opcode = 0x30 // pop N values, push tuple (16-bit count)
	OpMakeFunc    Opcode = 0x31 // pop code then N defaults, push function (8-bit default count)
	OpMakeClosure Opcode = 0x32 // pop code, cell tuple, then N defaults, push closure (8-bit default count)
	OpCall        Opcode = 0x33 // pop N args then callee, push result (8-bit argc)
)

// Control flow
const (
	OpJump        Opcode = 0x40 // unconditional jump (16-bit absolute target)
	OpJumpIfFalse Opcode = 0x41 // pop, jump if falsy (16-bit absolute target)
	OpGetIter     Opcode = 0x42 // pop value, push iterator for it
	OpForIter     Opcode = 0x43 // advance iterator at TOS; on exhaustion pop it and jump (16-bit target)
	OpSetupLoop   Opcode = 0x44 // push loop block (16-bit exit target)
	OpPopBlock    Opcode = 0x45 // pop top block
	OpBreak       Opcode = 0x46 // unwind to innermost loop block and jump to its handler
)

// Returns and suspension
const (
	OpReturn Opcode = 0x50 // return top of stack
	OpYield  Opcode = 0x51 // suspend the frame, yielding top of stack
)

// Binary operations
const (
	OpAdd Opcode = 0x60 // pop two, push sum
	OpSub Opcode = 0x61 // pop two, push difference
	OpMul Opcode = 0x62 // pop two, push product
	OpEq  Opcode = 0x63 // pop two, push equality
	OpLt  Opcode = 0x64 // pop two, push less-than
)

// ---------------------------------------------------------------------------
// Opcode metadata
// ---------------------------------------------------------------------------

// OpcodeInfo holds metadata about an opcode.
type OpcodeInfo struct {
	Name         string // human-readable name
	OperandBytes int    // number of operand bytes
}

// opcodeTable maps opcodes to their metadata.
var opcodeTable = map[Opcode]OpcodeInfo{
	OpNop: {"NOP", 0},
	OpPop: {"POP", 0},
	OpDup: {"DUP", 0},

	OpLoadConst:   {"LOAD_CONST", 2},
	OpLoadName:    {"LOAD_NAME", 2},
	OpStoreName:   {"STORE_NAME", 2},
	OpLoadGlobal:  {"LOAD_GLOBAL", 2},
	OpStoreGlobal: {"STORE_GLOBAL", 2},
	OpLoadDeref:   {"LOAD_DEREF", 2},
	OpStoreDeref:  {"STORE_DEREF", 2},
	OpLoadClosure: {"LOAD_CLOSURE", 2},

	OpLoadAttr:  {"LOAD_ATTR", 2},
	OpStoreAttr: {"STORE_ATTR", 2},

	OpBuildTuple:  {"BUILD_TUPLE", 2},
	OpMakeFunc:    {"MAKE_FUNCTION", 1},
	OpMakeClosure: {"MAKE_CLOSURE", 1},
	OpCall:        {"CALL", 1},

	OpJump:        {"JUMP", 2},
	OpJumpIfFalse: {"JUMP_IF_FALSE", 2},
	OpGetIter:     {"GET_ITER", 0},
	OpForIter:     {"FOR_ITER", 2},
	OpSetupLoop:   {"SETUP_LOOP", 2},
	OpPopBlock:    {"POP_BLOCK", 0},
	OpBreak:       {"BREAK", 0},

	OpReturn: {"RETURN", 0},
	OpYield:  {"YIELD", 0},

	OpAdd: {"ADD", 0},
	OpSub: {"SUB", 0},
	OpMul: {"MUL", 0},
	OpEq:  {"EQ", 0},
	OpLt:  {"LT", 0},
}

// Info returns the metadata for an opcode.
func (op Opcode) Info() OpcodeInfo {
	if info, ok := opcodeTable[op]; ok {
		return info
	}
	return OpcodeInfo{Name: fmt.Sprintf("UNKNOWN_%02X", byte(op)), OperandBytes: 0}
}

// Name returns the human-readable name for an opcode.
func (op Opcode) Name() string {
	return op.Info().Name
}

// String implements the Stringer interface.
func (op Opcode) String() string {
	return op.Name()
}

// ---------------------------------------------------------------------------
// BytecodeBuilder: helper for constructing bytecode
// ---------------------------------------------------------------------------

// BytecodeBuilder helps construct bytecode sequences.
type BytecodeBuilder struct {
	bytes []byte
}

// NewBytecodeBuilder creates a new bytecode builder.
func NewBytecodeBuilder() *BytecodeBuilder {
	return &BytecodeBuilder{
		bytes: make([]byte, 0, 64),
	}
}

// Bytes returns the constructed bytecode.
func (b *BytecodeBuilder) Bytes() []byte {
	return b.bytes
}

// Len returns the current length.
func (b *BytecodeBuilder) Len() int {
	return len(b.bytes)
}

// Emit appends an opcode with no operands.
func (b *BytecodeBuilder) Emit(op Opcode) {
	b.bytes = append(b.bytes, byte(op))
}

// EmitByte appends an opcode with a single byte operand.
func (b *BytecodeBuilder) EmitByte(op Opcode, operand byte) {
	b.bytes = append(b.bytes, byte(op), operand)
}

// EmitUint16 appends an opcode with a 16-bit operand (little-endian).
func (b *BytecodeBuilder) EmitUint16(op Opcode, operand uint16) {
	b.bytes = append(b.bytes, byte(op), byte(operand), byte(operand>>8))
}

// ---------------------------------------------------------------------------
// Label management for jumps
// ---------------------------------------------------------------------------

// Label represents a jump target, possibly not yet emitted. Jump operands
// are absolute bytecode offsets.
type Label struct {
	resolved bool
	position int   // target offset once resolved
	refs     []int // operand positions awaiting the target
}

// NewLabel creates an unresolved label.
func (b *BytecodeBuilder) NewLabel() *Label {
	return &Label{refs: make([]int, 0, 2)}
}

// Mark resolves a label to the current position and patches all forward
// references.
func (b *BytecodeBuilder) Mark(label *Label) {
	if label.resolved {
		panic("label already resolved")
	}
	label.resolved = true
	label.position = len(b.bytes)

	for _, ref := range label.refs {
		binary.LittleEndian.PutUint16(b.bytes[ref:], uint16(label.position))
	}
	label.refs = nil
}

// EmitJump emits a jump-family instruction targeting a label.
func (b *BytecodeBuilder) EmitJump(op Opcode, label *Label) {
	b.bytes = append(b.bytes, byte(op))
	if label.resolved {
		b.bytes = append(b.bytes, byte(label.position), byte(label.position>>8))
	} else {
		label.refs = append(label.refs, len(b.bytes))
		b.bytes = append(b.bytes, 0, 0) // placeholder
	}
}

// ---------------------------------------------------------------------------
// Bytecode reader
// ---------------------------------------------------------------------------

// BytecodeReader reads bytecode for interpretation or disassembly.
type BytecodeReader struct {
	bytes []byte
	pos   int
}

// NewBytecodeReader creates a reader for bytecode.
func NewBytecodeReader(bc []byte) *BytecodeReader {
	return &BytecodeReader{bytes: bc}
}

// Position returns the current read position.
func (r *BytecodeReader) Position() int {
	return r.pos
}

// HasMore returns true if there are more bytes to read.
func (r *BytecodeReader) HasMore() bool {
	return r.pos < len(r.bytes)
}

// ReadOpcode reads and returns the next opcode.
func (r *BytecodeReader) ReadOpcode() Opcode {
	if r.pos >= len(r.bytes) {
		panic("bytecode underflow")
	}
	op := Opcode(r.bytes[r.pos])
	r.pos++
	return op
}

// ReadByte reads a single byte operand.
func (r *BytecodeReader) ReadByte() byte {
	if r.pos >= len(r.bytes) {
		panic("bytecode underflow")
	}
	b := r.bytes[r.pos]
	r.pos++
	return b
}

// ReadUint16 reads a 16-bit operand (little-endian).
func (r *BytecodeReader) ReadUint16() uint16 {
	if r.pos+2 > len(r.bytes) {
		panic("bytecode underflow")
	}
	v := binary.LittleEndian.Uint16(r.bytes[r.pos:])
	r.pos += 2
	return v
}

// Seek sets the read position.
func (r *BytecodeReader) Seek(pos int) {
	r.pos = pos
}

// ---------------------------------------------------------------------------
// Disassembly
// ---------------------------------------------------------------------------

// DisassembleInstruction disassembles a single instruction at the reader's
// position, advancing the reader.
func DisassembleInstruction(r *BytecodeReader) string {
	pos := r.Position()
	op := r.ReadOpcode()
	info := op.Info()

	switch info.OperandBytes {
	case 0:
		return fmt.Sprintf("%04d  %s", pos, info.Name)
	case 1:
		operand := r.ReadByte()
		return fmt.Sprintf("%04d  %s %d", pos, info.Name, operand)
	case 2:
		operand := r.ReadUint16()
		return fmt.Sprintf("%04d  %s %d", pos, info.Name, operand)
	default:
		for i := 0; i < info.OperandBytes; i++ {
			r.ReadByte()
		}
		return fmt.Sprintf("%04d  %s", pos, info.Name)
	}
}

// Disassemble returns a full disassembly of bytecode.
func Disassemble(bc []byte) string {
	r := NewBytecodeReader(bc)
	var lines []string
	for r.HasMore() {
		lines = append(lines, DisassembleInstruction(r))
	}
	return strings.Join(lines, "\n")
}
