package vm

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/chazu/avm1/pkg/bytecode"
)

// NumGlobalRegisters is the size of the global register bank.
const NumGlobalRegisters = 4

// Options configures an Interpreter.
type Options struct {
	// Version is the SWF version used for buffers that do not carry one.
	Version int
	// BranchLimit caps backward branches per thread.
	BranchLimit int
	// RecursionLimit caps nested closure calls.
	RecursionLimit int
	// InstructionLimit caps opcodes per thread; 0 disables it.
	InstructionLimit int
	// AbortOnUnload stops timeline threads whose target was unloaded.
	AbortOnUnload bool
	// LegacyEncoding names the charset of strings in version < 6 buffers.
	LegacyEncoding string
	// Seed seeds RandomNumber; 0 seeds from the clock.
	Seed uint64
}

// DefaultOptions returns the defaults used by the player.
func DefaultOptions() Options {
	return Options{
		Version:        6,
		BranchLimit:    65536,
		RecursionLimit: 256,
		AbortOnUnload:  true,
		LegacyEncoding: "windows-1252",
	}
}

// ---------------------------------------------------------------------------
// Interpreter: shared context for every thread of one movie
// ---------------------------------------------------------------------------

// Interpreter holds what threads of one movie share: the dispatch table,
// the global register bank, per-target environments and the host.
type Interpreter struct {
	opts    Options
	table   *ActionTable
	host    Host
	decoder *bytecode.StringDecoder
	rng     *rand.Rand
	started time.Time

	registers [NumGlobalRegisters]Value
	envs      map[Object]*Environment

	// calls is the stack of active callables, innermost last.
	calls []Callable

	// interfaces maps a prototype to the interface prototypes declared for
	// it by ImplementsOp.
	interfaces map[Object][]Object

	// unsupported records opcodes already reported as unsupported.
	unsupported [256]bool

	// OnDiagnostic, when set, receives every diagnostic after it is logged.
	OnDiagnostic func(Diagnostic)

	// Profiler, when set, counts dispatched opcodes and closure calls.
	Profiler *Profiler
}

// NewInterpreter creates an interpreter bound to host.
func NewInterpreter(host Host, opts Options) (*Interpreter, error) {
	def := DefaultOptions()
	if opts.Version <= 0 {
		opts.Version = def.Version
	}
	if opts.BranchLimit <= 0 {
		opts.BranchLimit = def.BranchLimit
	}
	if opts.RecursionLimit <= 0 {
		opts.RecursionLimit = def.RecursionLimit
	}
	dec, err := bytecode.LegacyDecoder(opts.LegacyEncoding)
	if err != nil {
		return nil, fmt.Errorf("vm: %w", err)
	}
	seed := opts.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &Interpreter{
		opts:    opts,
		table:   DefaultActionTable(),
		host:    host,
		decoder: dec,
		rng:     rand.New(rand.NewPCG(seed, seed^0x9E3779B97F4A7C15)),
		started: time.Now(),
		envs:    make(map[Object]*Environment),

		interfaces: make(map[Object][]Object),
	}, nil
}

// Options returns the effective options.
func (in *Interpreter) Options() Options { return in.opts }

// Host returns the host the interpreter was created with.
func (in *Interpreter) Host() Host { return in.host }

// Table returns the dispatch table.
func (in *Interpreter) Table() *ActionTable { return in.table }

// GlobalRegister returns global register i, or undefined when out of range.
func (in *Interpreter) GlobalRegister(i int) Value {
	if i < 0 || i >= NumGlobalRegisters {
		return Undefined()
	}
	return in.registers[i]
}

// Environment returns the environment owned by target, creating it on
// first use. Timeline code of one target always shares this environment.
func (in *Interpreter) Environment(target Object) *Environment {
	if env, ok := in.envs[target]; ok {
		return env
	}
	env := newEnvironment(in, target)
	in.envs[target] = env
	return env
}

// Forget drops the environment of a target that left the stage.
func (in *Interpreter) Forget(target Object) {
	delete(in.envs, target)
}

// versionOf returns the SWF version governing buf.
func (in *Interpreter) versionOf(buf *bytecode.Buffer) int {
	if v := buf.Version(); v > 0 {
		return v
	}
	return in.opts.Version
}

// builtinProto returns the prototype object of the global constructor
// name, or nil when the host does not provide one.
func (in *Interpreter) builtinProto(name string) Object {
	g := in.Global()
	if g == nil {
		return nil
	}
	ctor, ok := g.GetMember(name)
	if !ok || !ctor.IsObject() {
		return nil
	}
	p, _ := ctor.Object().GetMember("prototype")
	return p.Object()
}

// Global returns the host's _global object.
func (in *Interpreter) Global() Object {
	if in.host == nil {
		return nil
	}
	return in.host.Global()
}

// Exec runs buf against target's environment until it terminates. An
// exception that escapes every try frame is reported and returned as an
// *UncaughtError.
func (in *Interpreter) Exec(buf *bytecode.Buffer, target Object) error {
	t := newThread(in, buf, in.Environment(target), 0, buf.Size())
	t.abortOnUnload = in.opts.AbortOnUnload
	err := t.Run()
	if v, ok := IsUncaught(err); ok {
		in.report(Diagnostic{Kind: DiagUncaught, Buffer: buf.Name(), PC: t.pc, Message: v.String()})
	}
	return err
}

// Call invokes fn with this and args from outside any thread. A script
// exception that escapes fn is returned as an UncaughtError.
func (in *Interpreter) Call(fn Value, this Object, args ...Value) (Value, error) {
	c := fn.Callable()
	if c == nil {
		return Undefined(), fmt.Errorf("vm: %s is not callable", fn)
	}
	v, err := c.Call(in, this, args)
	if err != nil {
		return Undefined(), err
	}
	if v.IsException() {
		in.report(Diagnostic{Kind: DiagUncaught, Message: v.Unflagged().String()})
		return Undefined(), &UncaughtError{Value: v.Unflagged()}
	}
	return v, nil
}

// enterCall pushes fn onto the call stack, enforcing the recursion limit.
// fn is nil for frame actions run by the Call opcode.
func (in *Interpreter) enterCall(fn Callable) error {
	if len(in.calls) >= in.opts.RecursionLimit {
		err := &LimitError{Kind: ErrRecursionLimit, What: "call depth", Limit: in.opts.RecursionLimit}
		in.report(Diagnostic{Kind: DiagLimit, Message: err.Error()})
		return err
	}
	in.calls = append(in.calls, fn)
	return nil
}

func (in *Interpreter) leaveCall() {
	in.calls = in.calls[:len(in.calls)-1]
}

// caller returns the innermost active callable, or nil at top level.
// Frame calls are recorded as nil entries and skipped.
func (in *Interpreter) caller() Callable {
	for i := len(in.calls) - 1; i >= 0; i-- {
		if in.calls[i] != nil {
			return in.calls[i]
		}
	}
	return nil
}

// CallDepth returns the number of active closure calls.
func (in *Interpreter) CallDepth() int { return len(in.calls) }

// reportUnsupported logs op once per interpreter.
func (in *Interpreter) reportUnsupported(d Diagnostic) {
	if in.unsupported[d.Op] {
		return
	}
	in.unsupported[d.Op] = true
	in.report(d)
}
