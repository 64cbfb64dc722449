package vm

import "fmt"

// ---------------------------------------------------------------------------
// Block: one entry of a frame's control-flow stack
// ---------------------------------------------------------------------------

// BlockKind identifies why a block was pushed.
type BlockKind uint8

const (
	// BlockLoop protects a loop body; Handler is the instruction after the
	// loop, where a break resumes.
	BlockLoop BlockKind = iota
	// BlockExcept protects an exception-handled region; Handler is the
	// first instruction of the handler. Reserved for the dispatch loop's
	// unwinding machinery.
	BlockExcept
	// BlockFinally protects a cleanup region.
	BlockFinally
)

// String implements the Stringer interface.
func (k BlockKind) String() string {
	switch k {
	case BlockLoop:
		return "loop"
	case BlockExcept:
		return "except"
	case BlockFinally:
		return "finally"
	default:
		return fmt.Sprintf("block(%d)", uint8(k))
	}
}

// Block records one entry of a frame's control-flow stack. It is pushed
// when execution enters a loop or protected region and popped when the
// region exits, normally or by unwinding. Level is the operand stack depth
// to restore on exit.
type Block struct {
	Kind    BlockKind
	Handler int // instruction offset to jump to on break/unwind
	Level   int // operand stack depth when the block was pushed
}
