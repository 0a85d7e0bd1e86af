package vm

import (
	"strconv"
	"strings"

	"github.com/chazu/avm1/pkg/bytecode"
)

// ---------------------------------------------------------------------------
// Control flow
// ---------------------------------------------------------------------------

// actionEnd fills the End slot of the table. Run stops on End before
// dispatching, so it is never called from the main loop.
func actionEnd(t *Thread) {
	t.skipRemainingBuffer()
}

// branchOffset reads the signed 16-bit offset of a branch opcode.
func (t *Thread) branchOffset() (int, bool) {
	if t.payloadLen() < 2 {
		t.report(DiagMalformed, "branch without offset")
		return 0, false
	}
	return int(t.code.ReadS16(t.payloadStart())), true
}

// branch moves nextPC by offset relative to the end of the branch opcode.
func (t *Thread) branch(offset int) {
	target := t.nextPC + offset
	if target < 0 {
		t.report(DiagMalformed, "branch to negative offset %d ignored", target)
		return
	}
	if target > t.code.Size() {
		t.report(DiagMalformed, "branch target %d past the end of the buffer (%d)", target, t.code.Size())
	}
	t.nextPC = target
}

func actionJump(t *Thread) {
	if off, ok := t.branchOffset(); ok {
		t.branch(off)
	}
}

func actionIf(t *Thread) {
	off, ok := t.branchOffset()
	if t.env.Pop().ToBool(t.version) && ok {
		t.branch(off)
	}
}

// actionWith opens a with block over the popped object.
func actionWith(t *Thread) {
	v := t.env.Pop()
	if t.payloadLen() != 2 {
		t.report(DiagMalformed, "With payload of %d bytes, expected 2; ignored", t.payloadLen())
		return
	}
	size := int(t.code.ReadU16(t.payloadStart()))
	if size == 0 {
		log.Debugf("empty with block at %d", t.pc)
		return
	}
	obj := t.toObject(v)
	if obj == nil {
		t.report(DiagScriptError, "with(%s): not an object, skipping block", v)
		t.nextPC += size
		return
	}
	t.pushWith(obj, t.nextPC+size)
}

func actionTry(t *Thread) {
	h, err := t.code.DecodeTry(t.pc)
	t.malformed(err)
	if h.TrySize+h.CatchSize+h.FinallySize == 0 {
		return
	}
	t.pushTry(h)
	t.nextPC = h.BodyStart
}

func actionThrow(t *Thread) {
	t.raise(t.env.Pop())
}

func actionReturn(t *Thread) {
	t.retval = t.env.Pop()
	t.returning = true
	t.skipRemainingBuffer()
}

// skipActions advances nextPC over n opcodes, stopping at the phase end.
func (t *Thread) skipActions(n int) {
	for i := 0; i < n; i++ {
		if t.nextPC >= t.stopPC {
			t.report(DiagMalformed, "block ends while skipping %d actions", n)
			t.nextPC = t.stopPC
			return
		}
		t.nextPC = t.code.NextPC(t.nextPC)
	}
	if t.nextPC > t.stopPC {
		t.nextPC = t.stopPC
	}
}

// ---------------------------------------------------------------------------
// Functions and calls
// ---------------------------------------------------------------------------

// actionDefineFunction handles both DefineFunction and DefineFunction2.
// Named functions are stored as variables; anonymous ones are pushed.
func actionDefineFunction(t *Thread) {
	h, err := t.code.DecodeFunction(t.pc)
	t.malformed(err)
	if h.BodyEnd < h.BodyStart {
		h.BodyEnd = h.BodyStart
	}
	f := t.newFunction(h)
	t.nextPC = h.BodyEnd

	fv := ObjectValue(f)
	if h.Name != "" {
		t.setVariable(t.decodeString(h.Name), fv)
		return
	}
	t.env.Push(fv)
}

func (t *Thread) isActivation(o Object) bool {
	locals := t.env.Locals()
	return locals != nil && o == Object(locals)
}

func actionCallFunction(t *Thread) {
	name := t.toString(t.env.Pop())
	fn, owner := t.getVariable(name)
	this := owner
	if this == nil || t.isActivation(this) {
		this = t.thisPointer()
	}
	if !fn.IsFunction() && fn.IsObject() {
		ctor, _ := fn.Object().GetMember("constructor")
		fn, this = ctor, t.thisPointer()
	}
	args := t.popArgs()
	if !fn.IsFunction() {
		t.report(DiagScriptError, "%q is not a function", name)
		t.env.Push(Undefined())
		return
	}
	t.env.Push(t.callValue(fn, this, args))
}

// resolveMethod finds the callable named by a CallMethod/NewMethod name
// operand on obj. An undefined or empty name means obj itself.
func (t *Thread) resolveMethod(objv Value, obj Object, name Value) (Value, bool) {
	if name.IsUndefined() {
		return objv, true
	}
	method := t.toString(name)
	if method == "" {
		return objv, true
	}
	fn, ok := obj.GetMember(method)
	if !ok {
		t.report(DiagScriptError, "no method %q on %s", method, objv)
	}
	return fn, ok
}

func actionCallMethod(t *Thread) {
	name := t.env.Pop()
	objv := t.env.Pop()
	args := t.popArgs()

	obj := t.toObject(objv)
	if obj == nil {
		t.report(DiagScriptError, "method call on non-object %s", objv)
		t.env.Push(Undefined())
		return
	}
	this := obj
	if s, ok := obj.(*superObject); ok {
		this = s.this
	}

	fn, ok := t.resolveMethod(objv, obj, name)
	if !ok {
		t.env.Push(Undefined())
		return
	}
	if !fn.IsFunction() && fn.IsObject() {
		fn, _ = fn.Object().GetMember("constructor")
	}
	t.env.Push(t.callValue(fn, this, args))
}

func actionNewObject(t *Thread) {
	name := t.toString(t.env.Pop())
	args := t.popArgs()
	ctor, _ := t.getVariable(name)
	t.env.Push(t.construct(ctor, args))
}

func actionNewMethod(t *Thread) {
	name := t.env.Pop()
	objv := t.env.Pop()
	args := t.popArgs()

	obj := t.toObject(objv)
	if obj == nil {
		t.report(DiagScriptError, "new on non-object %s", objv)
		t.env.Push(Undefined())
		return
	}
	fn, ok := t.resolveMethod(objv, obj, name)
	if !ok {
		t.env.Push(Undefined())
		return
	}
	t.env.Push(t.construct(fn, args))
}

// ---------------------------------------------------------------------------
// Frame waits and frame calls
// ---------------------------------------------------------------------------

// isFrameNumber parses a 1-based frame number.
func isFrameNumber(ref string) (int, bool) {
	n, err := strconv.ParseFloat(strings.TrimSpace(ref), 64)
	if err != nil {
		return 0, false
	}
	return int(n), true
}

// frameNumber resolves a frame expression against a timeline to a
// zero-based frame: numbers are 1-based frame numbers, other strings are
// labels.
func frameNumber(tl Timeline, ref string) (int, bool) {
	if n, ok := isFrameNumber(ref); ok {
		if n < 1 {
			n = 1
		}
		return n - 1, true
	}
	if fs, ok := tl.(FrameScripter); ok {
		return fs.FrameForLabel(ref)
	}
	return 0, false
}

func (t *Thread) timeline() (Timeline, bool) {
	tl, ok := t.env.Target().(Timeline)
	if !ok {
		log.Debugf("%s: current target has no timeline", t.code.Opcode(t.pc))
	}
	return tl, ok
}

func actionWaitForFrame(t *Thread) {
	if t.payloadLen() < 3 {
		t.report(DiagMalformed, "WaitForFrame payload of %d bytes, expected 3", t.payloadLen())
		return
	}
	frame := int(t.code.ReadU16(t.payloadStart()))
	skip := int(t.code.ReadU8(t.payloadStart() + 2))
	tl, ok := t.timeline()
	if !ok {
		return
	}
	if total := tl.TotalFrames(); frame >= total && total > 0 {
		frame = total - 1
	}
	if frame >= tl.FramesLoaded() {
		t.skipActions(skip)
	}
}

func actionWaitForFrame2(t *Thread) {
	ref := t.env.Pop()
	if t.payloadLen() < 1 {
		t.report(DiagMalformed, "WaitForFrame2 without skip count")
		return
	}
	skip := int(t.code.ReadU8(t.payloadStart()))
	tl, ok := t.timeline()
	if !ok {
		return
	}
	frame, ok := frameNumber(tl, t.toString(ref))
	if !ok {
		t.report(DiagScriptError, "WaitForFrame2: %s is not a frame", ref)
		return
	}
	if frame >= tl.FramesLoaded() {
		t.skipActions(skip)
	}
}

// actionCall runs the actions of a frame in place, then continues.
func actionCall(t *Thread) {
	ref := t.toString(t.env.Pop())
	var target Object
	frame := ref
	if path, name, ok := parsePath(ref); ok {
		target, frame = t.findObject(path), name
	}
	if target == nil {
		target, frame = t.env.Target(), ref
	}
	tl, ok := target.(Timeline)
	fs, ok2 := target.(FrameScripter)
	if !ok || !ok2 {
		t.report(DiagScriptError, "call(%q): target has no frame actions", ref)
		return
	}
	n, ok := frameNumber(tl, frame)
	if !ok {
		t.report(DiagScriptError, "call(%q): no such frame", ref)
		return
	}

	if err := t.in.enterCall(nil); err != nil {
		t.fail(err)
		return
	}
	defer t.in.leaveCall()

	env := t.in.Environment(target)
	for _, buf := range fs.FrameActions(n) {
		err := t.runNested(buf, env)
		if err != nil {
			t.fail(err)
			return
		}
	}
}

// runNested runs buf on env synchronously. Uncaught exceptions end only
// the nested run.
func (t *Thread) runNested(buf *bytecode.Buffer, env *Environment) error {
	nt := newThread(t.in, buf, env, 0, buf.Size())
	err := nt.Run()
	if v, ok := IsUncaught(err); ok {
		t.in.report(Diagnostic{Kind: DiagUncaught, Buffer: buf.Name(), Message: v.String()})
		return nil
	}
	return err
}
