package vm

import "github.com/chazu/avm1/pkg/bytecode"

// TryState is the phase a try construct is in.
type TryState uint8

const (
	TryActive TryState = iota
	CatchActive
	FinallyActive
)

func (s TryState) String() string {
	switch s {
	case TryActive:
		return "try"
	case CatchActive:
		return "catch"
	case FinallyActive:
		return "finally"
	}
	return "unknown"
}

// TryFrame tracks one active try construct. The thread's stop offset is
// narrowed to the end of the running phase; reaching it hands control back
// to the frame, which decides where execution resumes.
type TryFrame struct {
	State TryState

	Start     int // first byte of the try body
	CatchPC   int
	FinallyPC int
	AfterPC   int

	HasCatch        bool
	HasFinally      bool
	CatchName       string
	CatchRegister   int
	CatchInRegister bool

	// SavedStopPC is the thread's stop offset before the frame was pushed.
	SavedStopPC int
	// SavedDepth is the stack depth when the frame was pushed.
	SavedDepth int

	pending    Value
	hasPending bool
	// resumePC is where execution continues after the finally block when a
	// phase was left by a jump; -1 when unset.
	resumePC int
}

func newTryFrame(h bytecode.TryHeader, savedStop, depth int) *TryFrame {
	return &TryFrame{
		State:           TryActive,
		Start:           h.BodyStart,
		CatchPC:         h.CatchPC(),
		FinallyPC:       h.FinallyPC(),
		AfterPC:         h.AfterPC(),
		HasCatch:        h.HasCatch(),
		HasFinally:      h.HasFinally(),
		CatchName:       h.CatchName,
		CatchRegister:   int(h.CatchRegister),
		CatchInRegister: h.CatchInRegister(),
		SavedStopPC:     savedStop,
		SavedDepth:      depth,
		resumePC:        -1,
	}
}

// phaseStart is the first offset of the running phase.
func (f *TryFrame) phaseStart() int {
	switch f.State {
	case CatchActive:
		return f.CatchPC
	case FinallyActive:
		return f.FinallyPC
	}
	return f.Start
}

// Pending returns the exception waiting for the finally block to finish.
func (f *TryFrame) Pending() (Value, bool) { return f.pending, f.hasPending }

// pushTry opens a try construct whose body begins at the next opcode.
func (t *Thread) pushTry(h bytecode.TryHeader) {
	end := h.AfterPC()
	if end > t.stopPC {
		t.report(DiagMalformed, "try blocks end at %d, past the enclosing limit %d", end, t.stopPC)
	}
	f := newTryFrame(h, t.stopPC, t.env.Size())
	t.tries = append(t.tries, f)
	t.stopPC = f.CatchPC
}

// atTryBoundary reports whether pc has left the running phase of the
// innermost try frame.
func (t *Thread) atTryBoundary() bool {
	f := t.tries[len(t.tries)-1]
	return t.pc >= t.stopPC || t.pc < f.phaseStart()
}

// advanceTry moves the innermost try frame to its next phase.
func (t *Thread) advanceTry() error {
	f := t.tries[len(t.tries)-1]

	switch f.State {
	case TryActive:
		if exc, ok := t.takeException(f); ok {
			if f.HasCatch {
				return t.enterCatch(f, exc)
			}
			t.setPending(f, exc)
		} else {
			t.noteExit(f)
		}
		return t.enterFinally(f)

	case CatchActive:
		if exc, ok := t.takeException(f); ok {
			t.setPending(f, exc)
		} else {
			t.noteExit(f)
		}
		return t.enterFinally(f)

	default:
		if exc, ok := t.takeException(f); ok {
			t.setPending(f, exc)
		} else if t.pc != f.AfterPC && !t.returning {
			// The finally block was left by a jump; that overrides any
			// pending exception.
			f.hasPending = false
			f.pending = Value{}
			f.resumePC = t.pc
		}
		return t.popTry()
	}
}

// takeException pops a thrown value from the top of the stack and trims
// whatever the phase left above the frame's depth.
func (t *Thread) takeException(f *TryFrame) (Value, bool) {
	if t.available() == 0 || !t.env.Top(0).IsException() {
		return Value{}, false
	}
	exc := t.env.Pop().Unflagged()
	depth := f.SavedDepth
	if depth < t.initialDepth {
		depth = t.initialDepth
	}
	t.env.Truncate(depth)
	return exc, true
}

func (t *Thread) enterCatch(f *TryFrame, exc Value) error {
	f.State = CatchActive
	if f.CatchInRegister {
		if !t.env.SetRegister(f.CatchRegister, exc) {
			t.report(DiagMalformed, "catch register %d out of range", f.CatchRegister)
		}
	} else {
		t.bindCatchVariable(f.CatchName, exc)
	}
	t.stopPC = f.FinallyPC
	return t.retarget(f.CatchPC)
}

// bindCatchVariable binds the caught value by name: as a local inside a
// closure, otherwise as a variable of the current target.
func (t *Thread) bindCatchVariable(name string, v Value) {
	if locals := t.env.Locals(); locals != nil {
		locals.SetMember(name, v)
		return
	}
	t.setVariable(name, v)
}

func (t *Thread) setPending(f *TryFrame, exc Value) {
	f.pending = exc
	f.hasPending = true
	t.returning = false
}

// noteExit records a phase left by a jump rather than by falling off its
// end, so execution resumes at the jump target after the finally block.
func (t *Thread) noteExit(f *TryFrame) {
	if t.returning {
		return
	}
	if t.pc >= f.AfterPC || t.pc < f.phaseStart() {
		f.resumePC = t.pc
	}
}

func (t *Thread) enterFinally(f *TryFrame) error {
	f.State = FinallyActive
	t.stopPC = f.AfterPC
	return t.retarget(f.FinallyPC)
}

// popTry discards the innermost frame and continues after it.
func (t *Thread) popTry() error {
	n := len(t.tries)
	f := t.tries[n-1]
	t.tries = t.tries[:n-1]
	t.stopPC = f.SavedStopPC

	switch {
	case f.hasPending:
		t.env.Push(f.pending.Flagged())
		return t.retarget(t.stopPC)
	case t.returning:
		return t.retarget(t.stopPC)
	case f.resumePC >= 0:
		return t.retarget(f.resumePC)
	default:
		return t.retarget(f.AfterPC)
	}
}

// retarget moves pc for a try transition.
func (t *Thread) retarget(pc int) error {
	return t.moveTo(pc)
}
