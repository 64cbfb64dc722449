package vm

// ---------------------------------------------------------------------------
// Generator: a resumable computation backed by a suspended frame
// ---------------------------------------------------------------------------

// genState tracks the generator's position in its lifecycle.
type genState uint8

const (
	genFresh     genState = iota // created, never run
	genSuspended                 // paused at a yield point
	genFinished                  // returned or raised past its boundary
)

// Iterator is implemented by values usable in for-loops. Next returns the
// next element, or ErrStopIteration when the sequence is exhausted.
type Iterator interface {
	Next() (Value, error)
}

// Generator turns "run to completion" into "run until the next yield". It
// owns a suspended frame whose operand stack, block stack, and cell table
// persist intact between resumptions; that persistence is what separates a
// generator from a plain call.
type Generator struct {
	frame *Frame
	in    *Interp
	state genState
}

// NewGenerator wraps a freshly built, unrun frame. The frame is not
// executed until the first resumption.
func NewGenerator(frame *Frame, in *Interp) *Generator {
	return &Generator{frame: frame, in: in}
}

func (*Generator) Type() Type { return TypeGenerator }

// String implements the Stringer interface.
func (g *Generator) String() string {
	return "<generator " + g.frame.Code.Name + ">"
}

// Frame returns the generator's held frame.
func (g *Generator) Frame() *Frame {
	return g.frame
}

// Finished reports whether the generator has run to completion.
func (g *Generator) Finished() bool {
	return g.state == genFinished
}

// markFinished is called by the dispatch loop when the held frame returns
// or an error propagates past it.
func (g *Generator) markFinished() {
	g.state = genFinished
}

// Next resumes the generator with no resume value. Ordinary iteration is
// sending nil.
func (g *Generator) Next() (Value, error) {
	return g.Send(Nil)
}

// Send resumes the suspended frame until its next yield or completion.
//
// The first resumption runs the frame from the top and injects nothing.
// Every later resumption pushes the resume value onto the held frame's
// operand stack, where the paused yield instruction left room for it.
// Resuming a finished generator signals ErrStopIteration deterministically
// on every call.
func (g *Generator) Send(v Value) (Value, error) {
	if g.state == genFinished {
		return nil, ErrStopIteration
	}
	if g.state == genSuspended {
		g.frame.Push(v)
	}
	g.state = genSuspended

	val, err := g.in.ResumeFrame(g.frame)
	if err != nil {
		g.state = genFinished
		return nil, err
	}
	if g.state == genFinished {
		// The frame returned instead of yielding.
		return nil, ErrStopIteration
	}
	return val, nil
}
