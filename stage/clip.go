package stage

import (
	"sort"
	"strconv"
	"strings"

	"github.com/chazu/avm1/pkg/bytecode"
	"github.com/chazu/avm1/vm"
)

// Frame is one timeline frame: an optional label and the action buffers
// that run when the playhead enters it.
type Frame struct {
	Label   string
	Actions []*bytecode.Buffer
}

// Clip is a movie clip on the stage. Script members live on the embedded
// ScriptObject; the legacy underscore properties and child clips are
// resolved by GetMember.
type Clip struct {
	*vm.ScriptObject

	stage    *Stage
	name     string
	parent   *Clip
	level    int
	depth    int
	children []*Clip

	frames   []Frame
	current  int
	loaded   int
	playing  bool
	unloaded bool

	props    map[vm.Property]vm.Value
	handlers map[string][]*bytecode.Buffer
}

func newClip(s *Stage, name string, parent *Clip, depth int, frames []Frame) *Clip {
	if len(frames) == 0 {
		frames = []Frame{{}}
	}
	c := &Clip{
		ScriptObject: vm.NewObjectWithProto(s.proto("Object")),
		stage:        s,
		name:         name,
		parent:       parent,
		depth:        depth,
		frames:       frames,
		loaded:       len(frames),
		playing:      true,
		props: map[vm.Property]vm.Value{
			vm.PropX:        vm.Number(0),
			vm.PropY:        vm.Number(0),
			vm.PropXScale:   vm.Number(100),
			vm.PropYScale:   vm.Number(100),
			vm.PropAlpha:    vm.Number(100),
			vm.PropVisible:  vm.Bool(true),
			vm.PropRotation: vm.Number(0),
			vm.PropWidth:    vm.Number(0),
			vm.PropHeight:   vm.Number(0),
		},
		handlers: make(map[string][]*bytecode.Buffer),
	}
	if parent != nil {
		c.level = parent.level
		parent.insertChild(c)
	}
	return c
}

func (c *Clip) insertChild(child *Clip) {
	c.children = append(c.children, child)
	sort.SliceStable(c.children, func(i, j int) bool {
		return c.children[i].depth < c.children[j].depth
	})
}

func (c *Clip) removeChild(child *Clip) {
	for i, ch := range c.children {
		if ch == child {
			c.children = append(c.children[:i], c.children[i+1:]...)
			return
		}
	}
}

// Name returns the instance name.
func (c *Clip) Name() string { return c.name }

// Parent returns the enclosing clip, or nil for a level root.
func (c *Clip) Parent() *Clip { return c.parent }

// Depth returns the display depth.
func (c *Clip) Depth() int { return c.depth }

// Child returns the child named name.
func (c *Clip) Child(name string) *Clip {
	for _, ch := range c.children {
		if ch.name == name {
			return ch
		}
	}
	return nil
}

// Children returns the children in depth order.
func (c *Clip) Children() []*Clip {
	return append([]*Clip(nil), c.children...)
}

// AddChild creates a child clip at depth with the given frames.
func (c *Clip) AddChild(name string, depth int, frames ...Frame) *Clip {
	return newClip(c.stage, name, c, depth, frames)
}

// SetFramesLoaded simulates a partially streamed movie.
func (c *Clip) SetFramesLoaded(n int) {
	c.loaded = max(0, min(n, len(c.frames)))
}

// SetHandler installs the buffers that run for event.
func (c *Clip) SetHandler(event string, bufs ...*bytecode.Buffer) {
	c.handlers[event] = bufs
}

// IsPlaying reports whether the playhead advances on Stage.Advance.
func (c *Clip) IsPlaying() bool { return c.playing }

// ---------------------------------------------------------------------------
// vm.Target
// ---------------------------------------------------------------------------

// TargetPath returns the slash path of the clip, "/" for _level0 and
// "_levelN" for other level roots.
func (c *Clip) TargetPath() string {
	if c.parent == nil {
		if c.level == 0 {
			return "/"
		}
		return "_level" + strconv.Itoa(c.level)
	}
	p := c.parent.TargetPath()
	if strings.HasSuffix(p, "/") {
		return p + c.name
	}
	return p + "/" + c.name
}

// DotPath returns the dot-syntax path, e.g. "_level0.a.b".
func (c *Clip) DotPath() string {
	if c.parent == nil {
		return "_level" + strconv.Itoa(c.level)
	}
	return c.parent.DotPath() + "." + c.name
}

func (c *Clip) String() string { return c.DotPath() }

func (c *Clip) Unloaded() bool { return c.unloaded }

// ---------------------------------------------------------------------------
// vm.Object
// ---------------------------------------------------------------------------

// GetMember resolves script members first, then legacy properties, the
// _parent/_root/_levelN shortcuts and finally child clips.
func (c *Clip) GetMember(name string) (vm.Value, bool) {
	if v, ok := c.ScriptObject.GetMember(name); ok {
		return v, true
	}
	if p, ok := vm.PropertyByName(name); ok {
		return c.GetProperty(p), true
	}
	switch name {
	case "_parent":
		if c.parent == nil {
			return vm.Undefined(), false
		}
		return vm.ObjectValue(c.parent), true
	case "_root":
		return vm.ObjectValue(c.stage.Level(c.level)), true
	}
	if lv, ok := levelNumber(name); ok {
		if root := c.stage.Level(lv); root != nil {
			return vm.ObjectValue(root), true
		}
	}
	if ch := c.Child(name); ch != nil {
		return vm.ObjectValue(ch), true
	}
	return vm.Undefined(), false
}

// SetMember routes legacy property names to SetProperty.
func (c *Clip) SetMember(name string, v vm.Value) {
	if p, ok := vm.PropertyByName(name); ok {
		c.SetProperty(p, v)
		return
	}
	c.ScriptObject.SetMember(name, v)
}

// Members lists script members followed by child clip names.
func (c *Clip) Members() []string {
	names := c.ScriptObject.Members()
	for _, ch := range c.children {
		names = append(names, ch.name)
	}
	return names
}

func levelNumber(name string) (int, bool) {
	rest, ok := strings.CutPrefix(name, "_level")
	if !ok || rest == "" {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// ---------------------------------------------------------------------------
// vm.PropertyHolder
// ---------------------------------------------------------------------------

func (c *Clip) GetProperty(p vm.Property) vm.Value {
	switch p {
	case vm.PropCurrentFrame:
		return vm.Number(float64(c.current + 1))
	case vm.PropTotalFrames:
		return vm.Number(float64(len(c.frames)))
	case vm.PropFramesLoaded:
		return vm.Number(float64(c.loaded))
	case vm.PropName:
		return vm.String(c.name)
	case vm.PropTarget:
		return vm.String(c.TargetPath())
	case vm.PropURL:
		return vm.String(c.stage.URL)
	case vm.PropHighQuality:
		if c.stage.highQuality {
			return vm.Number(1)
		}
		return vm.Number(0)
	case vm.PropQuality:
		if c.stage.highQuality {
			return vm.String("HIGH")
		}
		return vm.String("LOW")
	case vm.PropDropTarget:
		return vm.String("")
	case vm.PropXMouse, vm.PropYMouse:
		return vm.Number(0)
	}
	if v, ok := c.props[p]; ok {
		return v
	}
	return vm.Undefined()
}

// SetProperty stores writable properties. Read-only ones are ignored.
func (c *Clip) SetProperty(p vm.Property, v vm.Value) {
	switch p {
	case vm.PropCurrentFrame, vm.PropTotalFrames, vm.PropFramesLoaded,
		vm.PropTarget, vm.PropURL, vm.PropDropTarget, vm.PropXMouse, vm.PropYMouse:
		log.Debugf("%s: %s is read-only", c, p)
	case vm.PropName:
		c.name = v.ToString(7)
	case vm.PropHighQuality:
		c.stage.highQuality = v.ToNumber(7) != 0
	case vm.PropQuality:
		c.stage.highQuality = strings.EqualFold(v.ToString(7), "HIGH")
	case vm.PropVisible:
		c.props[p] = vm.Bool(v.ToBool(7))
	default:
		c.props[p] = vm.Number(v.ToNumber(7))
	}
}

// ---------------------------------------------------------------------------
// vm.Timeline and vm.FrameScripter
// ---------------------------------------------------------------------------

// GotoFrame moves the playhead and queues the new frame's actions. Frames
// past the loaded range clamp to the last loaded frame.
func (c *Clip) GotoFrame(frame int) {
	last := c.loaded - 1
	if last < 0 {
		return
	}
	frame = max(0, min(frame, last))
	if frame == c.current {
		return
	}
	c.current = frame
	c.stage.queueFrame(c)
}

func (c *Clip) GotoLabel(label string) bool {
	f, ok := c.FrameForLabel(label)
	if ok {
		c.GotoFrame(f)
	}
	return ok
}

func (c *Clip) Play() { c.playing = true }
func (c *Clip) Stop() { c.playing = false }

func (c *Clip) NextFrame() {
	c.GotoFrame(c.current + 1)
	c.playing = false
}

func (c *Clip) PrevFrame() {
	c.GotoFrame(c.current - 1)
	c.playing = false
}

func (c *Clip) CurrentFrame() int { return c.current }
func (c *Clip) FramesLoaded() int { return c.loaded }
func (c *Clip) TotalFrames() int  { return len(c.frames) }

func (c *Clip) FrameActions(frame int) []*bytecode.Buffer {
	if frame < 0 || frame >= c.loaded {
		return nil
	}
	return c.frames[frame].Actions
}

// FrameForLabel looks labels up case-insensitively.
func (c *Clip) FrameForLabel(label string) (int, bool) {
	for i, f := range c.frames {
		if f.Label != "" && strings.EqualFold(f.Label, label) {
			return i, true
		}
	}
	return 0, false
}

// ---------------------------------------------------------------------------
// vm.Cloner
// ---------------------------------------------------------------------------

// Duplicate creates a sibling sharing this clip's frames and handlers. A
// clip already at depth is replaced.
func (c *Clip) Duplicate(name string, depth int) (vm.Target, bool) {
	if c.parent == nil {
		return nil, false
	}
	for _, sib := range c.parent.children {
		if sib.depth == depth {
			sib.Remove()
			break
		}
	}
	dup := newClip(c.stage, name, c.parent, depth, c.frames)
	for k, v := range c.props {
		dup.props[k] = v
	}
	for ev, bufs := range c.handlers {
		dup.handlers[ev] = bufs
	}
	c.stage.queueFrame(dup)
	log.Debugf("duplicated %s as %s at depth %d", c, dup, depth)
	return dup, true
}

// Remove unloads the clip and its subtree. Level roots cannot be removed.
func (c *Clip) Remove() {
	if c.parent == nil {
		log.Debugf("%s: cannot remove a level root", c)
		return
	}
	c.parent.removeChild(c)
	c.unload()
}

func (c *Clip) unload() {
	c.unloaded = true
	c.playing = false
	for _, ch := range c.children {
		ch.unload()
	}
	c.stage.interp.Forget(c)
}
