package vm

import (
	"strings"
	"time"
)

// ---------------------------------------------------------------------------
// Playback
// ---------------------------------------------------------------------------

func actionNextFrame(t *Thread) {
	if tl, ok := t.timeline(); ok {
		tl.NextFrame()
	}
}

func actionPrevFrame(t *Thread) {
	if tl, ok := t.timeline(); ok {
		tl.PrevFrame()
	}
}

func actionPlay(t *Thread) {
	if tl, ok := t.timeline(); ok {
		tl.Play()
	}
}

func actionStop(t *Thread) {
	if tl, ok := t.timeline(); ok {
		tl.Stop()
	}
}

func actionToggleQuality(t *Thread) {
	if q, ok := t.in.host.(QualityController); ok {
		q.ToggleQuality()
		return
	}
	t.in.reportUnsupported(t.diag(DiagUnsupported, "host has no quality control"))
}

func actionStopSounds(t *Thread) {
	if s, ok := t.in.host.(SoundController); ok {
		s.StopSounds()
		return
	}
	t.in.reportUnsupported(t.diag(DiagUnsupported, "host has no sound control"))
}

// actionGotoFrame jumps to a zero-based frame number.
func actionGotoFrame(t *Thread) {
	if t.payloadLen() < 2 {
		t.report(DiagMalformed, "GotoFrame without frame number")
		return
	}
	frame := int(t.code.ReadU16(t.payloadStart()))
	if tl, ok := t.timeline(); ok {
		tl.GotoFrame(frame)
	}
}

func actionGotoLabel(t *Thread) {
	label, err := t.code.DecodeString(t.pc)
	if err != nil {
		t.malformed(err)
		return
	}
	label = t.decodeString(label)
	tl, ok := t.timeline()
	if !ok {
		return
	}
	if !tl.GotoLabel(label) {
		t.report(DiagScriptError, "no frame labeled %q", label)
	}
}

// actionGotoFrame2 jumps to a frame given on the stack: a 1-based number,
// a label, or "path:frame". The payload carries the play flag and an
// optional scene bias added to numeric frames.
func actionGotoFrame2(t *Thread) {
	spec := t.toString(t.env.Pop())
	if t.payloadLen() < 1 {
		t.report(DiagMalformed, "GotoFrame2 without flags")
		return
	}
	flags := t.code.ReadU8(t.payloadStart())
	bias := 0
	if flags&0x02 != 0 {
		if t.payloadLen() < 3 {
			t.report(DiagMalformed, "GotoFrame2 bias flag without bias")
		} else {
			bias = int(t.code.ReadU16(t.payloadStart() + 1))
		}
	}

	var target Object
	frame := spec
	if path, name, ok := parsePath(spec); ok {
		target, frame = t.findObject(path), name
	}
	if target == nil {
		target, frame = t.env.Target(), spec
	}
	tl, ok := target.(Timeline)
	if !ok {
		t.report(DiagScriptError, "gotoFrame(%q): target has no timeline", spec)
		return
	}
	n, ok := frameNumber(tl, frame)
	if !ok {
		t.report(DiagScriptError, "gotoFrame(%q): not a valid frame", spec)
		return
	}
	if _, numeric := isFrameNumber(frame); numeric {
		n += bias
	}
	tl.GotoFrame(n)
	if flags&0x01 != 0 {
		tl.Play()
	} else {
		tl.Stop()
	}
}

// ---------------------------------------------------------------------------
// Targets and clips
// ---------------------------------------------------------------------------

// changeTarget resets to the original target and then, for a non-empty
// path, moves to the object it names. An unresolved path keeps the
// original target.
func (t *Thread) changeTarget(path string) {
	t.env.SetTarget(nil)
	if path == "" {
		return
	}
	obj := t.findObject(path)
	if obj == nil {
		t.report(DiagScriptError, "setTarget(%q): no such target", path)
		return
	}
	t.env.SetTarget(obj)
}

func actionSetTarget(t *Thread) {
	path, err := t.code.DecodeString(t.pc)
	if err != nil {
		t.malformed(err)
		return
	}
	t.changeTarget(t.decodeString(path))
}

func actionSetTarget2(t *Thread) {
	v := t.env.Pop()
	if tgt, ok := v.Object().(Target); ok {
		t.env.SetTarget(tgt)
		return
	}
	t.changeTarget(t.toString(v))
}

// resolveTarget finds the clip named by a path operand. An empty path is
// the current target.
func (t *Thread) resolveTarget(v Value) Object {
	if obj, ok := v.Object().(Target); ok {
		return obj
	}
	path := t.toString(v)
	if path == "" {
		return t.env.Target()
	}
	return t.findObject(path)
}

// Clip depths as seen by scripts are offset from the display list depths.
const (
	staticDepthOffset = 16384
	minScriptDepth    = -16384
	maxScriptDepth    = 2130690044
)

func actionCloneSprite(t *Thread) {
	depth := int(t.toInt32(t.env.Pop()))
	name := t.toString(t.env.Pop())
	src := t.env.Pop()

	c, ok := t.resolveTarget(src).(Cloner)
	if !ok {
		t.report(DiagScriptError, "duplicateMovieClip(%s): not a clip", src)
		return
	}
	depth += staticDepthOffset
	if depth < minScriptDepth || depth > maxScriptDepth {
		t.report(DiagScriptError, "duplicateMovieClip: depth %d out of range", depth-staticDepthOffset)
		return
	}
	if _, ok := c.Duplicate(name, depth); !ok {
		t.report(DiagScriptError, "duplicateMovieClip(%s, %q) failed", src, name)
	}
}

func actionRemoveSprite(t *Thread) {
	v := t.env.Pop()
	c, ok := t.resolveTarget(v).(Cloner)
	if !ok {
		t.report(DiagScriptError, "removeMovieClip(%s): not a clip", v)
		return
	}
	c.Remove()
}

func actionGetProperty(t *Thread) {
	idx := Property(t.toInt32(t.env.Pop()))
	tv := t.env.Pop()
	obj := t.resolveTarget(tv)
	if obj == nil {
		log.Debugf("getProperty: %s is not a target", tv)
		t.env.Push(Undefined())
		return
	}
	if !idx.Valid() {
		t.report(DiagScriptError, "getProperty: invalid property index %d", int(idx))
		t.env.Push(Undefined())
		return
	}
	if ph, ok := obj.(PropertyHolder); ok {
		t.env.Push(ph.GetProperty(idx))
		return
	}
	v, _ := obj.GetMember(idx.Name())
	t.env.Push(v)
}

func actionSetProperty(t *Thread) {
	v := t.env.Pop()
	idx := Property(t.toInt32(t.env.Pop()))
	tv := t.env.Pop()
	obj := t.resolveTarget(tv)
	switch {
	case obj == nil:
		log.Debugf("setProperty: %s is not a target", tv)
	case !idx.Valid():
		t.report(DiagScriptError, "setProperty: invalid property index %d", int(idx))
	default:
		if ph, ok := obj.(PropertyHolder); ok {
			ph.SetProperty(idx, v)
			return
		}
		obj.SetMember(idx.Name(), v)
	}
}

// actionStartDrag pops the clip, the lock flag, the constraint flag and,
// when constrained, the rectangle x1, y1, x2, y2.
func actionStartDrag(t *Thread) {
	tv := t.env.Pop()
	lock := t.env.Pop().ToBool(t.version)
	constrained := t.env.Pop().ToBool(t.version)

	var bounds *[4]float64
	if constrained {
		t.ensureStack(4)
		y2 := t.toNumber(t.env.Pop())
		x2 := t.toNumber(t.env.Pop())
		y1 := t.toNumber(t.env.Pop())
		x1 := t.toNumber(t.env.Pop())
		if x1 > x2 {
			x1, x2 = x2, x1
		}
		if y1 > y2 {
			y1, y2 = y2, y1
		}
		bounds = &[4]float64{x1, y1, x2, y2}
	}

	tgt, ok := t.resolveTarget(tv).(Target)
	if !ok {
		t.report(DiagScriptError, "startDrag(%s): not a clip", tv)
		return
	}
	dc, ok := t.in.host.(DragController)
	if !ok {
		t.in.reportUnsupported(t.diag(DiagUnsupported, "host has no drag support"))
		return
	}
	dc.StartDrag(tgt, lock, bounds)
}

func actionEndDrag(t *Thread) {
	if dc, ok := t.in.host.(DragController); ok {
		dc.StopDrag()
		return
	}
	t.in.reportUnsupported(t.diag(DiagUnsupported, "host has no drag support"))
}

// ---------------------------------------------------------------------------
// Host calls
// ---------------------------------------------------------------------------

const fsCommandPrefix = "fscommand:"

// getURL forwards a url request to the host. FSCommand urls become
// fscommand calls with the window as their argument.
func (t *Thread) getURL(url, window string, method int) {
	if url == "" {
		t.report(DiagScriptError, "getURL with an empty url")
		return
	}
	if len(url) >= len(fsCommandPrefix) && strings.EqualFold(url[:len(fsCommandPrefix)], fsCommandPrefix) {
		if fc, ok := t.in.host.(FSCommander); ok {
			fc.FSCommand(url[len(fsCommandPrefix):], window)
			return
		}
		t.in.reportUnsupported(t.diag(DiagUnsupported, "host has no fscommand support"))
		return
	}
	loader, ok := t.in.host.(URLLoader)
	if !ok {
		t.in.reportUnsupported(t.diag(DiagUnsupported, "host cannot load urls"))
		return
	}
	loader.GetURL(t.env.Target(), url, window, method)
}

func actionGetURL(t *Thread) {
	url, window, err := t.code.DecodeGetURL(t.pc)
	if err != nil {
		t.malformed(err)
		return
	}
	t.getURL(t.decodeString(url), t.decodeString(window), 0)
}

// actionGetURL2 pops the window then the url. The low two payload bits
// select the HTTP method.
func actionGetURL2(t *Thread) {
	window := t.toString(t.env.Pop())
	urlv := t.env.Pop()
	method := 0
	if t.payloadLen() > 0 {
		flags := t.code.ReadU8(t.payloadStart())
		method = int(flags & 0x03)
		if flags&0xC0 != 0 {
			log.Debugf("getURL2 load flags %#x passed to the host as a plain request", flags&0xC0)
		}
	}
	if urlv.IsUndefined() {
		t.report(DiagScriptError, "getURL2 with an undefined url")
		return
	}
	t.getURL(t.toString(urlv), window, method)
}

func actionFSCommand2(t *Thread) {
	args := t.popArgs()
	if len(args) == 0 {
		t.report(DiagScriptError, "fscommand2 without a command")
		return
	}
	fc, ok := t.in.host.(FSCommander)
	if !ok {
		t.in.reportUnsupported(t.diag(DiagUnsupported, "host has no fscommand support"))
		return
	}
	rest := make([]string, 0, len(args)-1)
	for _, a := range args[1:] {
		rest = append(rest, t.toString(a))
	}
	fc.FSCommand(t.toString(args[0]), strings.Join(rest, ","))
}

func actionTrace(t *Thread) {
	v := t.env.Pop()
	var msg string
	if v.IsUndefined() {
		msg = "undefined"
	} else {
		msg = t.toString(v)
	}
	if t.in.host != nil {
		t.in.host.Trace(msg)
		return
	}
	log.Infof("trace: %s", msg)
}

// actionRandomNumber pushes an integer in [0, max).
func actionRandomNumber(t *Thread) {
	n := int(t.toInt32(t.env.Pop()))
	if n < 1 {
		n = 1
	}
	t.env.Push(Number(float64(t.in.rng.IntN(n))))
}

func actionGetTime(t *Thread) {
	var ms int64
	if t.in.host != nil {
		ms = t.in.host.Elapsed()
	} else {
		ms = time.Since(t.in.started).Milliseconds()
	}
	t.env.Push(Number(float64(ms)))
}
