package vm

import (
	"strings"
	"testing"

	"github.com/chazu/avm1/pkg/bytecode"
)

// ---------------------------------------------------------------------------
// Test host: a tiny clip tree with recorded side effects
// ---------------------------------------------------------------------------

type testClip struct {
	*ScriptObject
	name     string
	parent   *testClip
	children map[string]*testClip

	frame    int
	total    int
	loaded   int
	playing  bool
	labels   map[string]int
	actions  map[int][]*bytecode.Buffer
	unloaded bool
	clones   []string
}

func newTestClip(name string, parent *testClip) *testClip {
	c := &testClip{
		ScriptObject: NewObject(),
		name:         name,
		parent:       parent,
		children:     make(map[string]*testClip),
		total:        10,
		loaded:       10,
		labels:       make(map[string]int),
		actions:      make(map[int][]*bytecode.Buffer),
	}
	if parent != nil {
		parent.children[name] = c
		parent.SetMember(name, ObjectValue(c))
	}
	return c
}

func (c *testClip) TargetPath() string {
	if c.parent == nil {
		return "/"
	}
	p := c.parent.TargetPath()
	if p == "/" {
		return "/" + c.name
	}
	return p + "/" + c.name
}

func (c *testClip) String() string { return c.TargetPath() }
func (c *testClip) Unloaded() bool { return c.unloaded }

func (c *testClip) GotoFrame(f int) { c.frame = f }
func (c *testClip) GotoLabel(l string) bool {
	f, ok := c.labels[l]
	if ok {
		c.frame = f
	}
	return ok
}
func (c *testClip) Play()             { c.playing = true }
func (c *testClip) Stop()             { c.playing = false }
func (c *testClip) NextFrame()        { c.frame++ }
func (c *testClip) PrevFrame()        { c.frame-- }
func (c *testClip) CurrentFrame() int { return c.frame }
func (c *testClip) FramesLoaded() int { return c.loaded }
func (c *testClip) TotalFrames() int  { return c.total }

func (c *testClip) FrameActions(f int) []*bytecode.Buffer { return c.actions[f] }
func (c *testClip) FrameForLabel(l string) (int, bool) {
	f, ok := c.labels[l]
	return f, ok
}

func (c *testClip) Duplicate(name string, depth int) (Target, bool) {
	if c.parent == nil {
		return nil, false
	}
	c.clones = append(c.clones, name)
	return newTestClip(name, c.parent), true
}

func (c *testClip) Remove() { c.unloaded = true }

type testHost struct {
	global   *ScriptObject
	root     *testClip
	traces   []string
	urls     []string
	commands []string
	now      int64
}

func newTestHost() *testHost {
	return &testHost{global: NewObject(), root: newTestClip("_root", nil)}
}

// FindTarget resolves "/a/b", "a/b", "_root.a" and "a.b" style paths.
func (h *testHost) FindTarget(from Object, path string) Object {
	cur, _ := from.(*testClip)
	if strings.HasPrefix(path, "/") {
		cur = h.root
		path = path[1:]
	}
	path = strings.TrimSuffix(path, ":")
	for _, part := range strings.FieldsFunc(path, func(r rune) bool { return r == '/' || r == '.' || r == ':' }) {
		if cur == nil {
			return nil
		}
		switch part {
		case "_root", "_level0":
			cur = h.root
		case "_parent", "..":
			cur = cur.parent
		default:
			cur = cur.children[part]
		}
	}
	if cur == nil {
		return nil
	}
	return cur
}

func (h *testHost) Global() Object   { return h.global }
func (h *testHost) Trace(msg string) { h.traces = append(h.traces, msg) }
func (h *testHost) Elapsed() int64   { return h.now }

func (h *testHost) GetURL(from Object, url, window string, method int) {
	h.urls = append(h.urls, url+"|"+window)
}

func (h *testHost) FSCommand(command, args string) {
	h.commands = append(h.commands, command+"|"+args)
}

// ---------------------------------------------------------------------------
// Harness
// ---------------------------------------------------------------------------

type harness struct {
	t     *testing.T
	in    *Interpreter
	host  *testHost
	diags []Diagnostic
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()
	h := &harness{t: t, host: newTestHost()}
	in, err := NewInterpreter(h.host, opts)
	if err != nil {
		t.Fatalf("NewInterpreter: %v", err)
	}
	in.OnDiagnostic = func(d Diagnostic) { h.diags = append(h.diags, d) }
	h.in = in
	return h
}

func testOptions(version int) Options {
	opts := DefaultOptions()
	opts.Version = version
	opts.Seed = 1
	return opts
}

// run assembles a and executes it on _root.
func (h *harness) run(a *bytecode.Assembler) error {
	h.t.Helper()
	buf, err := a.Buffer(bytecode.WithName("test"), bytecode.WithVersion(h.in.opts.Version))
	if err != nil {
		h.t.Fatalf("assemble: %v", err)
	}
	return h.in.Exec(buf, h.host.root)
}

func (h *harness) mustRun(a *bytecode.Assembler) {
	h.t.Helper()
	if err := h.run(a); err != nil {
		h.t.Fatalf("Exec: %v", err)
	}
}

// rootVar returns a member of _root.
func (h *harness) rootVar(name string) Value {
	v, _ := h.host.root.GetMember(name)
	return v
}

func (h *harness) count(kind DiagnosticKind) int {
	n := 0
	for _, d := range h.diags {
		if d.Kind == kind {
			n++
		}
	}
	return n
}

// setResult stores the value on top of the stack into _root.r.
func setResult(a *bytecode.Assembler) *bytecode.Assembler {
	return a.Push(bytecode.Str("r")).Op(bytecode.OpStackSwap, bytecode.OpSetVariable)
}

// setVar assigns a literal to a variable.
func setVar(a *bytecode.Assembler, name string, v bytecode.PushItem) *bytecode.Assembler {
	return a.Push(bytecode.Str(name), v).Op(bytecode.OpSetVariable)
}

func wantNumber(t *testing.T, name string, got Value, want float64) {
	t.Helper()
	if !got.IsNumber() || got.RawNumber() != want {
		t.Errorf("%s = %s, want %v", name, got, want)
	}
}

func wantString(t *testing.T, name string, got Value, want string) {
	t.Helper()
	if !got.IsString() || got.RawString() != want {
		t.Errorf("%s = %s, want %q", name, got, want)
	}
}
