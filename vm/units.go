package vm

import (
	"fmt"

	"github.com/chazu/avm1/pkg/bytecode"
)

// Unit is a deferred piece of work queued by the host. Run executes it at
// most once; later calls return nil without doing anything.
type Unit interface {
	Run() error
	// Target returns the object the unit runs against.
	Target() Object
	// String describes the unit for logs.
	String() string
}

type once struct {
	done bool
}

// claim marks the unit as run and reports whether this was the first call.
func (o *once) claim() bool {
	if o.done {
		return false
	}
	o.done = true
	return true
}

// ---------------------------------------------------------------------------
// Global code
// ---------------------------------------------------------------------------

// GlobalUnit runs a frame action buffer against its target's environment.
type GlobalUnit struct {
	once
	in     *Interpreter
	buf    *bytecode.Buffer
	target Object
}

// NewGlobalUnit binds buf to target.
func NewGlobalUnit(in *Interpreter, buf *bytecode.Buffer, target Object) *GlobalUnit {
	return &GlobalUnit{in: in, buf: buf, target: target}
}

func (u *GlobalUnit) Run() error {
	if !u.claim() {
		return nil
	}
	return u.in.Exec(u.buf, u.target)
}

func (u *GlobalUnit) Target() Object { return u.target }

func (u *GlobalUnit) String() string {
	return fmt.Sprintf("global code %s", nameOr(u.buf.Name(), "<anonymous>"))
}

// ---------------------------------------------------------------------------
// Event code
// ---------------------------------------------------------------------------

// EventUnit runs the handler buffers of one event in order. An uncaught
// exception in one buffer does not stop the next; limit errors do.
type EventUnit struct {
	once
	in     *Interpreter
	event  string
	bufs   []*bytecode.Buffer
	target Object
}

// NewEventUnit binds the buffers handling event to target.
func NewEventUnit(in *Interpreter, event string, bufs []*bytecode.Buffer, target Object) *EventUnit {
	return &EventUnit{in: in, event: event, bufs: bufs, target: target}
}

// Run returns the first uncaught exception after all buffers ran, or the
// limit error that stopped them.
func (u *EventUnit) Run() error {
	if !u.claim() {
		return nil
	}
	var first error
	for _, buf := range u.bufs {
		err := u.in.Exec(buf, u.target)
		if err == nil {
			continue
		}
		if _, ok := IsUncaught(err); !ok {
			return err
		}
		if first == nil {
			first = err
		}
	}
	return first
}

func (u *EventUnit) Target() Object { return u.target }

func (u *EventUnit) String() string {
	return fmt.Sprintf("event %s (%d buffers)", u.event, len(u.bufs))
}

// ---------------------------------------------------------------------------
// Function code
// ---------------------------------------------------------------------------

// FunctionUnit calls a closure with no arguments and discards its result.
type FunctionUnit struct {
	once
	in     *Interpreter
	fn     Value
	target Object
}

// NewFunctionUnit binds fn to target, which is also its `this`.
func NewFunctionUnit(in *Interpreter, fn Value, target Object) *FunctionUnit {
	return &FunctionUnit{in: in, fn: fn, target: target}
}

func (u *FunctionUnit) Run() error {
	if !u.claim() {
		return nil
	}
	_, err := u.in.Call(u.fn, u.target)
	return err
}

func (u *FunctionUnit) Target() Object { return u.target }

func (u *FunctionUnit) String() string {
	if f, ok := u.fn.Object().(*Function); ok && f.Name() != "" {
		return "function " + f.Name()
	}
	return "function code"
}

func nameOr(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
