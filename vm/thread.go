package vm

import (
	"fmt"

	"github.com/chazu/avm1/pkg/bytecode"
)

// withEntry is one active with block: the scope object and the offset at
// which the block ends.
type withEntry struct {
	obj Object
	end int
}

// maxWithDepth returns the with-stack bound for a SWF version. Exceeding it
// is reported but not enforced.
func maxWithDepth(version int) int {
	if version > 5 {
		return 15
	}
	return 7
}

// Thread walks one range of a buffer against one environment. A thread is
// created for each unit run and each closure call, and is discarded when
// it terminates.
type Thread struct {
	in      *Interpreter
	code    *bytecode.Buffer
	env     *Environment
	version int
	dict    []string

	fn   *Function // closure being run; nil for timeline code
	this Object

	// scope is the chain consulted innermost-last for free identifiers:
	// the closure's captured scope, its activation, then with objects.
	scope []Object
	with  []withEntry
	tries []*TryFrame

	pc     int
	nextPC int
	stopPC int
	lastPC int // start of the last opcode executed; -1 before the first

	initialDepth   int
	originalTarget Object

	returning bool
	retval    Value

	abortOnUnload bool
	branches      int
	instructions  int

	// err is a fatal condition raised by a handler; the loop stops on it.
	err error

	// raised is a value thrown by the running handler, pushed once the
	// handler returns.
	raised    Value
	hasRaised bool
}

func newThread(in *Interpreter, code *bytecode.Buffer, env *Environment, start, end int) *Thread {
	if end > code.Size() {
		end = code.Size()
	}
	return &Thread{
		in:             in,
		code:           code,
		env:            env,
		version:        in.versionOf(code),
		dict:           code.InitialDictionary(),
		pc:             start,
		nextPC:         start,
		stopPC:         end,
		lastPC:         -1,
		initialDepth:   env.Size(),
		originalTarget: env.Target(),
	}
}

// Version returns the SWF version the thread runs under.
func (t *Thread) Version() int { return t.version }

// Env returns the environment the thread drives.
func (t *Thread) Env() *Environment { return t.env }

// PC returns the offset of the current opcode.
func (t *Thread) PC() int { return t.pc }

// ScopeDepth returns the number of objects on the scope stack.
func (t *Thread) ScopeDepth() int { return len(t.scope) }

// Run executes until the thread terminates. It returns nil on normal
// termination (including an early stop for an unloaded target), an
// *UncaughtError when a thrown value leaves the last try frame, or a
// *LimitError when a guard fires.
func (t *Thread) Run() error {
	defer t.cleanupAfterRun()

	for {
		if len(t.tries) > 0 && t.atTryBoundary() {
			if err := t.advanceTry(); err != nil {
				return err
			}
			continue
		}
		if t.pc >= t.stopPC {
			if t.env.Size() > t.initialDepth && t.env.Top(0).IsException() {
				return &UncaughtError{Value: t.env.Pop().Unflagged()}
			}
			return nil
		}

		t.expireWith()

		op := t.code.Opcode(t.pc)
		if op == bytecode.OpEnd {
			return nil
		}
		t.nextPC = t.code.NextPC(t.pc)
		if t.nextPC > t.stopPC {
			t.report(DiagMalformed, "action length runs past its block end (%d > %d)", t.nextPC, t.stopPC)
			t.pc = t.stopPC
			continue
		}

		action := t.in.table.Lookup(op)
		t.ensureStack(action.MinStack)

		if limit := t.in.opts.InstructionLimit; limit > 0 {
			t.instructions++
			if t.instructions > limit {
				return t.limit(ErrExecutionLimit, "instruction", limit)
			}
		}

		if p := t.in.Profiler; p != nil {
			p.recordOp(op)
		}
		t.lastPC = t.pc
		action.Handler(t)
		if t.err != nil {
			return t.err
		}
		if t.hasRaised {
			t.env.Push(t.raised.Flagged())
			t.raised, t.hasRaised = Value{}, false
			t.skipRemainingBuffer()
		}

		if t.abortOnUnload && t.targetUnloaded() {
			t.report(DiagTargetUnloaded, "target unloaded, discarding remaining actions")
			return nil
		}

		if err := t.moveTo(t.nextPC); err != nil {
			return err
		}
	}
}

// moveTo sets pc, counting moves that do not go past the last executed
// opcode.
func (t *Thread) moveTo(pc int) error {
	backward := pc <= t.lastPC
	t.pc = pc
	if backward {
		t.branches++
		if t.branches > t.in.opts.BranchLimit {
			return t.limit(ErrExecutionLimit, "branch", t.in.opts.BranchLimit)
		}
	}
	return nil
}

func (t *Thread) limit(kind error, what string, n int) error {
	err := &LimitError{Kind: kind, What: what, Limit: n, Buffer: t.code.Name(), PC: t.pc}
	t.report(DiagLimit, "%s limit of %d exceeded, aborting", what, n)
	return err
}

// fail records a fatal condition raised inside a handler.
func (t *Thread) fail(err error) {
	if t.err == nil {
		t.err = err
	}
}

func (t *Thread) targetUnloaded() bool {
	tgt, ok := t.env.Target().(Target)
	return ok && tgt.Unloaded()
}

// cleanupAfterRun restores the target and drops values left above the
// thread's window.
func (t *Thread) cleanupAfterRun() {
	t.env.SetTarget(t.originalTarget)
	if extra := t.env.Size() - t.initialDepth; extra > 0 {
		log.Debugf("%d values left on the stack after running %s", extra, t.bufferName())
		t.env.Truncate(t.initialDepth)
	}
	t.with = nil
	t.tries = nil
}

// ensureStack pads the bottom of the thread's stack window so at least n
// values are available.
func (t *Thread) ensureStack(n int) {
	avail := t.env.Size() - t.initialDepth
	if avail >= n {
		return
	}
	t.report(DiagStackUnderflow, "%d values required, %d available; padding with undefined", n, avail)
	t.env.Pad(t.initialDepth, n-avail)
}

// available returns the number of values in the thread's window.
func (t *Thread) available() int {
	return t.env.Size() - t.initialDepth
}

// raise throws v once the running handler returns. Only the first value
// raised by a handler is kept.
func (t *Thread) raise(v Value) {
	if !t.hasRaised {
		t.raised, t.hasRaised = v.Unflagged(), true
	}
}

// skipRemainingBuffer makes the current phase end after this opcode.
func (t *Thread) skipRemainingBuffer() {
	t.nextPC = t.stopPC
}

// expireWith pops with blocks whose range has been left.
func (t *Thread) expireWith() {
	for n := len(t.with); n > 0 && t.pc >= t.with[n-1].end; n = len(t.with) {
		t.with = t.with[:n-1]
		if len(t.scope) > 0 {
			t.scope = t.scope[:len(t.scope)-1]
		}
	}
}

// pushWith opens a with block over obj ending at end.
func (t *Thread) pushWith(obj Object, end int) {
	if limit := maxWithDepth(t.version); len(t.with) >= limit {
		t.report(DiagWithOverflow, "with stack depth %d exceeds the limit of %d for SWF%d", len(t.with)+1, limit, t.version)
	}
	t.with = append(t.with, withEntry{obj: obj, end: end})
	t.scope = append(t.scope, obj)
}

// thisPointer returns the object bound to `this`.
func (t *Thread) thisPointer() Object {
	if t.fn != nil && t.this != nil {
		return t.this
	}
	return t.env.OriginalTarget()
}

// ---------------------------------------------------------------------------
// Payload access
// ---------------------------------------------------------------------------

func (t *Thread) payloadStart() int { return t.pc + 3 }

func (t *Thread) payloadLen() int { return t.code.PayloadLen(t.pc) }

// decodeString converts a string read from the buffer to UTF-8.
func (t *Thread) decodeString(s string) string {
	if t.version < 6 {
		return t.in.decoder.Decode(s)
	}
	return s
}

// ---------------------------------------------------------------------------
// Diagnostics
// ---------------------------------------------------------------------------

func (t *Thread) bufferName() string {
	if n := t.code.Name(); n != "" {
		return n
	}
	return "action buffer"
}

func (t *Thread) diag(kind DiagnosticKind, msg string) Diagnostic {
	return Diagnostic{
		Kind:    kind,
		Op:      t.code.Opcode(t.pc),
		PC:      t.pc,
		Buffer:  t.code.Name(),
		Message: msg,
	}
}

func (t *Thread) report(kind DiagnosticKind, format string, args ...any) {
	t.in.report(t.diag(kind, fmt.Sprintf(format, args...)))
}

// malformed reports a decode error returned by the buffer.
func (t *Thread) malformed(err error) {
	if err != nil {
		t.report(DiagMalformed, "%v", err)
	}
}
