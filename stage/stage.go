package stage

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tliron/commonlog"

	"github.com/chazu/avm1/vm"
)

var log = commonlog.GetLogger("avm.stage")

// Request is a recorded getURL call.
type Request struct {
	From   string
	URL    string
	Window string
	Method int
}

// Command is a recorded fscommand call.
type Command struct {
	Name string
	Args string
}

// Stage is an in-memory player: a tree of clips per level, a _global
// object with the built-in constructors, and a scheduler that runs the
// units queued by frame changes and events.
type Stage struct {
	Scheduler *Scheduler

	// URL is reported through the _url property.
	URL string
	// Requests and Commands record what scripts asked the player to do.
	Requests []Request
	Commands []Command

	interp *vm.Interpreter
	global *vm.ScriptObject
	levels map[int]*Clip
	out    io.Writer

	start time.Time
	now   func() time.Time

	dragging    *Clip
	dragLock    bool
	dragBounds  *[4]float64
	highQuality bool
	soundsOff   int
}

// New creates a stage with an empty _level0 and an interpreter bound to
// it. trace() output is written to out, one line per call.
func New(opts vm.Options, out io.Writer) (*Stage, error) {
	if out == nil {
		out = io.Discard
	}
	s := &Stage{
		Scheduler:   NewScheduler(),
		global:      vm.NewObject(),
		levels:      make(map[int]*Clip),
		out:         out,
		now:         time.Now,
		highQuality: true,
	}
	s.start = s.now()
	installNatives(s.global)

	in, err := vm.NewInterpreter(s, opts)
	if err != nil {
		return nil, fmt.Errorf("stage: %w", err)
	}
	s.interp = in
	s.levels[0] = s.newLevel(0)
	return s, nil
}

func (s *Stage) newLevel(n int, frames ...Frame) *Clip {
	c := newClip(s, "_level"+strconv.Itoa(n), nil, 0, frames)
	c.level = n
	return c
}

// proto returns the prototype of the global constructor name.
func (s *Stage) proto(name string) vm.Object {
	ctor, ok := s.global.GetMember(name)
	if !ok || !ctor.IsObject() {
		return nil
	}
	p, _ := ctor.Object().GetMember("prototype")
	return p.Object()
}

// Interpreter returns the interpreter running this stage's code.
func (s *Stage) Interpreter() *vm.Interpreter { return s.interp }

// Root returns _level0.
func (s *Stage) Root() *Clip { return s.levels[0] }

// Level returns the root clip of level n, or nil.
func (s *Stage) Level(n int) *Clip { return s.levels[n] }

// LoadLevel replaces level n with a fresh movie of the given frames and
// queues its first frame.
func (s *Stage) LoadLevel(n int, frames ...Frame) *Clip {
	if old, ok := s.levels[n]; ok {
		old.unload()
	}
	c := s.newLevel(n, frames...)
	s.levels[n] = c
	s.queueFrame(c)
	return c
}

// SetFrames replaces the timeline of c. The playhead returns to frame 0.
func (s *Stage) SetFrames(c *Clip, frames ...Frame) {
	if len(frames) == 0 {
		frames = []Frame{{}}
	}
	c.frames = frames
	c.loaded = len(frames)
	c.current = 0
}

// ---------------------------------------------------------------------------
// Scheduling
// ---------------------------------------------------------------------------

// queueFrame queues the actions of c's current frame as global units.
func (s *Stage) queueFrame(c *Clip) {
	for _, buf := range c.FrameActions(c.current) {
		s.Scheduler.Queue(vm.NewGlobalUnit(s.interp, buf, c))
	}
}

// Start queues frame 0 of every clip on every level, parents before
// children.
func (s *Stage) Start() {
	for _, n := range s.levelNumbers() {
		s.walk(s.levels[n], s.queueFrame)
	}
}

// Advance moves every playing clip one frame forward, looping at the end,
// and queues onEnterFrame for clips that define it.
func (s *Stage) Advance() {
	for _, n := range s.levelNumbers() {
		s.walk(s.levels[n], func(c *Clip) {
			if c.playing && len(c.frames) > 1 {
				next := c.current + 1
				if next >= c.loaded {
					next = 0
				}
				if next != c.current {
					c.current = next
					s.queueFrame(c)
				}
			}
			if fn, ok := c.ScriptObject.GetMember("onEnterFrame"); ok && fn.Callable() != nil {
				s.Scheduler.Queue(vm.NewFunctionUnit(s.interp, fn, c))
			}
			if bufs := c.handlers["enterFrame"]; len(bufs) > 0 {
				s.Scheduler.Queue(vm.NewEventUnit(s.interp, "enterFrame", bufs, c))
			}
		})
	}
}

// Dispatch queues the handler buffers c installed for event.
func (s *Stage) Dispatch(c *Clip, event string) (uuid.UUID, bool) {
	bufs := c.handlers[event]
	if len(bufs) == 0 {
		return uuid.Nil, false
	}
	return s.Scheduler.Queue(vm.NewEventUnit(s.interp, event, bufs, c)), true
}

// Run drains the scheduler.
func (s *Stage) Run() error {
	return s.Scheduler.RunAll()
}

// Step advances one frame and drains the scheduler.
func (s *Stage) Step() error {
	s.Advance()
	return s.Run()
}

func (s *Stage) walk(c *Clip, fn func(*Clip)) {
	if c == nil || c.unloaded {
		return
	}
	fn(c)
	for _, ch := range c.Children() {
		s.walk(ch, fn)
	}
}

func (s *Stage) levelNumbers() []int {
	var ns []int
	for n := range s.levels {
		ns = append(ns, n)
	}
	sort.Ints(ns)
	return ns
}

// ---------------------------------------------------------------------------
// vm.Host
// ---------------------------------------------------------------------------

// FindTarget resolves slash and dot paths: "/a/b", "a/b", "../c",
// "_root.a", "_level1/x" and "_parent". A trailing ':' is ignored.
func (s *Stage) FindTarget(from vm.Object, path string) vm.Object {
	cur, _ := from.(*Clip)
	path = strings.TrimSuffix(path, ":")
	if rest, ok := strings.CutPrefix(path, "/"); ok {
		cur = s.rootOf(cur)
		path = rest
	}
	for _, seg := range strings.Split(path, "/") {
		if seg == ".." {
			if cur == nil {
				return nil
			}
			cur = cur.parent
			continue
		}
		for _, part := range strings.Split(seg, ".") {
			if part == "" {
				continue
			}
			cur = s.step(cur, part)
		}
		if cur == nil {
			return nil
		}
	}
	if cur == nil {
		return nil
	}
	return cur
}

func (s *Stage) rootOf(c *Clip) *Clip {
	if c == nil {
		return s.levels[0]
	}
	return s.levels[c.level]
}

func (s *Stage) step(cur *Clip, part string) *Clip {
	if n, ok := levelNumber(part); ok {
		return s.levels[n]
	}
	if cur == nil {
		return nil
	}
	switch part {
	case "_root":
		return s.rootOf(cur)
	case "_parent":
		return cur.parent
	case "this":
		return cur
	}
	if ch := cur.Child(part); ch != nil {
		return ch
	}
	if v, ok := cur.ScriptObject.GetMember(part); ok {
		if c, ok := v.Object().(*Clip); ok {
			return c
		}
	}
	return nil
}

func (s *Stage) Global() vm.Object { return s.global }

func (s *Stage) Trace(msg string) {
	log.Debugf("trace: %s", msg)
	fmt.Fprintln(s.out, msg)
}

func (s *Stage) Elapsed() int64 {
	return s.now().Sub(s.start).Milliseconds()
}

// ---------------------------------------------------------------------------
// Optional capabilities
// ---------------------------------------------------------------------------

func (s *Stage) GetURL(from vm.Object, url, window string, method int) {
	r := Request{URL: url, Window: window, Method: method}
	if t, ok := from.(vm.Target); ok {
		r.From = t.TargetPath()
	}
	log.Infof("getURL %q window=%q method=%d", url, window, method)
	s.Requests = append(s.Requests, r)
}

func (s *Stage) FSCommand(command, args string) {
	log.Infof("fscommand %q %q", command, args)
	s.Commands = append(s.Commands, Command{Name: command, Args: args})
}

func (s *Stage) StartDrag(t vm.Target, lockCenter bool, bounds *[4]float64) {
	c, ok := t.(*Clip)
	if !ok {
		return
	}
	s.dragging, s.dragLock, s.dragBounds = c, lockCenter, bounds
}

func (s *Stage) StopDrag() {
	s.dragging, s.dragLock, s.dragBounds = nil, false, nil
}

// Dragging returns the clip being dragged, if any.
func (s *Stage) Dragging() *Clip { return s.dragging }

func (s *Stage) StopSounds() { s.soundsOff++ }

// SoundStops counts stopAllSounds calls.
func (s *Stage) SoundStops() int { return s.soundsOff }

func (s *Stage) ToggleQuality() { s.highQuality = !s.highQuality }

// HighQuality reports the render quality flag toggled by scripts.
func (s *Stage) HighQuality() bool { return s.highQuality }
