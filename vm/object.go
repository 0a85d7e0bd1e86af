package vm

import (
	"strconv"

	"github.com/chazu/avm1/pkg/bytecode"
)

// Object is the capability set the interpreter requires from every object it
// touches. Host objects implement it directly; ScriptObject is the in-memory
// implementation used for objects created by scripts.
type Object interface {
	GetMember(name string) (Value, bool)
	SetMember(name string, v Value)
	DeleteMember(name string) bool
	// Members lists enumerable member names in enumeration order.
	Members() []string
}

// Target is an object that can be the target of timeline code: a clip in
// the host's display tree.
type Target interface {
	Object
	// TargetPath returns the slash-syntax path, e.g. "/clip1/clip2".
	TargetPath() string
	// Unloaded reports whether the clip has been removed from the stage.
	Unloaded() bool
}

// Timeline is implemented by targets with frame playback.
type Timeline interface {
	GotoFrame(frame int) // zero-based
	GotoLabel(label string) bool
	Play()
	Stop()
	NextFrame()
	PrevFrame()
	CurrentFrame() int // zero-based
	FramesLoaded() int
	TotalFrames() int
}

// FrameScripter is implemented by timelines that can hand out the actions of
// a frame so CallFrame can run them in place.
type FrameScripter interface {
	FrameActions(frame int) []*bytecode.Buffer
	FrameForLabel(label string) (int, bool)
}

// Cloner is implemented by targets that can be duplicated or removed.
type Cloner interface {
	Duplicate(name string, depth int) (Target, bool)
	Remove()
}

// PropertyHolder gives direct access to legacy numbered properties. Targets
// that do not implement it are accessed through GetMember/SetMember with
// the property's name.
type PropertyHolder interface {
	GetProperty(p Property) Value
	SetProperty(p Property, v Value)
}

// Host is the external world the interpreter runs in.
type Host interface {
	// FindTarget resolves a slash-syntax path relative to from. It returns
	// nil when nothing matches.
	FindTarget(from Object, path string) Object
	// Global returns the _global object.
	Global() Object
	// Trace receives trace() output.
	Trace(msg string)
	// Elapsed returns milliseconds since the movie started.
	Elapsed() int64
}

// URLLoader is implemented by hosts that handle GetURL and FSCommand.
type URLLoader interface {
	GetURL(from Object, url, window string, method int)
}

// FSCommander is implemented by hosts that receive fscommand() calls, made
// through GetURL with an "FSCommand:" url or through FSCommand2.
type FSCommander interface {
	FSCommand(command, args string)
}

// DragController is implemented by hosts supporting StartDrag/EndDrag.
type DragController interface {
	StartDrag(t Target, lockCenter bool, bounds *[4]float64)
	StopDrag()
}

// SoundController is implemented by hosts that can silence all sounds.
type SoundController interface {
	StopSounds()
}

// QualityController is implemented by hosts with switchable render quality.
type QualityController interface {
	ToggleQuality()
}

// ---------------------------------------------------------------------------
// ScriptObject
// ---------------------------------------------------------------------------

const (
	protoMember       = "__proto__"
	constructorMember = "__constructor__"
)

// ScriptObject is a plain object with ordered members and an optional
// __proto__ chain.
type ScriptObject struct {
	members map[string]Value
	order   []string
	hidden  map[string]bool
}

// NewObject creates an empty object.
func NewObject() *ScriptObject {
	return &ScriptObject{members: make(map[string]Value)}
}

// NewObjectWithProto creates an object whose __proto__ is proto.
func NewObjectWithProto(proto Object) *ScriptObject {
	o := NewObject()
	if proto != nil {
		o.SetHidden(protoMember, ObjectValue(proto))
	}
	return o
}

// GetMember looks up name on the object and then along its __proto__ chain.
func (o *ScriptObject) GetMember(name string) (Value, bool) {
	seen := 0
	var cur Object = o
	for cur != nil && seen < 256 {
		so, ok := cur.(*ScriptObject)
		if !ok {
			// A foreign object in the chain handles the rest itself.
			return cur.GetMember(name)
		}
		if v, ok := so.members[name]; ok {
			return v, true
		}
		p, ok := so.members[protoMember]
		if !ok {
			break
		}
		cur = p.Object()
		seen++
	}
	return Undefined(), false
}

// GetOwnMember looks up name without consulting the prototype chain.
func (o *ScriptObject) GetOwnMember(name string) (Value, bool) {
	v, ok := o.members[name]
	return v, ok
}

// SetMember creates or replaces an own member.
func (o *ScriptObject) SetMember(name string, v Value) {
	v = v.Unflagged()
	if _, ok := o.members[name]; !ok {
		o.order = append(o.order, name)
	}
	o.members[name] = v
}

// SetHidden sets a member that is skipped by enumeration.
func (o *ScriptObject) SetHidden(name string, v Value) {
	o.SetMember(name, v)
	if o.hidden == nil {
		o.hidden = make(map[string]bool)
	}
	o.hidden[name] = true
}

// DeleteMember removes an own member.
func (o *ScriptObject) DeleteMember(name string) bool {
	if _, ok := o.members[name]; !ok {
		return false
	}
	delete(o.members, name)
	delete(o.hidden, name)
	for i, n := range o.order {
		if n == name {
			o.order = append(o.order[:i], o.order[i+1:]...)
			break
		}
	}
	return true
}

// Members lists own enumerable members in insertion order.
func (o *ScriptObject) Members() []string {
	out := make([]string, 0, len(o.order))
	for _, n := range o.order {
		if !o.hidden[n] {
			out = append(out, n)
		}
	}
	return out
}

// Proto returns the object's __proto__, or nil.
func (o *ScriptObject) Proto() Object {
	return o.members[protoMember].Object()
}

// proto returns obj's __proto__ for any Object.
func proto(obj Object) Object {
	if so, ok := obj.(*ScriptObject); ok {
		return so.Proto()
	}
	if f, ok := obj.(interface{ Proto() Object }); ok {
		return f.Proto()
	}
	v, _ := obj.GetMember(protoMember)
	return v.Object()
}

// ---------------------------------------------------------------------------
// Arrays
// ---------------------------------------------------------------------------

// NewArray creates an array-like object holding values at indices 0..n-1
// with a length member.
func NewArray(proto Object, values ...Value) *ScriptObject {
	a := NewObjectWithProto(proto)
	for i, v := range values {
		a.SetMember(strconv.Itoa(i), v)
	}
	a.SetHidden("length", Number(float64(len(values))))
	return a
}

// ArrayValues returns the indexed elements of an array-like object.
func ArrayValues(obj Object) []Value {
	lv, _ := obj.GetMember("length")
	n := int(lv.ToNumber(7))
	if n < 0 || n > 1<<20 {
		n = 0
	}
	out := make([]Value, n)
	for i := range out {
		out[i], _ = obj.GetMember(strconv.Itoa(i))
	}
	return out
}

// enumerate collects member names of obj and its prototypes, nearest first,
// without duplicates.
func enumerate(obj Object) []string {
	var names []string
	seen := make(map[string]bool)
	for depth := 0; obj != nil && depth < 256; depth++ {
		for _, n := range obj.Members() {
			if !seen[n] {
				seen[n] = true
				names = append(names, n)
			}
		}
		obj = proto(obj)
	}
	return names
}
