package vm

// Environment is the mutable state a thread drives: the value stack, the
// current target and, inside closures, the activation's locals and local
// register bank.
type Environment struct {
	in       *Interpreter
	stack    []Value
	target   Object
	original Object

	// locals is the activation object of a closure call; nil for timeline
	// code.
	locals *ScriptObject
	// registers is the local register bank. When empty the global bank is
	// used instead.
	registers []Value
}

func newEnvironment(in *Interpreter, target Object) *Environment {
	return &Environment{in: in, target: target, original: target}
}

// Target returns the current target.
func (e *Environment) Target() Object { return e.target }

// OriginalTarget returns the target the environment was created for.
func (e *Environment) OriginalTarget() Object { return e.original }

// SetTarget changes the current target. A nil target reverts to the
// original one.
func (e *Environment) SetTarget(o Object) {
	if o == nil {
		o = e.original
	}
	e.target = o
}

// Locals returns the activation object, or nil outside closures.
func (e *Environment) Locals() *ScriptObject { return e.locals }

// ---------------------------------------------------------------------------
// Stack helpers
// ---------------------------------------------------------------------------

// Size returns the stack depth.
func (e *Environment) Size() int { return len(e.stack) }

// Push pushes v.
func (e *Environment) Push(v Value) { e.stack = append(e.stack, v) }

// Pop removes and returns the top value. Popping an empty stack yields
// undefined.
func (e *Environment) Pop() Value {
	n := len(e.stack)
	if n == 0 {
		return Undefined()
	}
	v := e.stack[n-1]
	e.stack[n-1] = Value{}
	e.stack = e.stack[:n-1]
	return v
}

// Top returns the value n slots below the top; Top(0) is the top.
func (e *Environment) Top(n int) Value {
	i := len(e.stack) - 1 - n
	if i < 0 {
		return Undefined()
	}
	return e.stack[i]
}

// SetTop replaces the value n slots below the top.
func (e *Environment) SetTop(n int, v Value) {
	if i := len(e.stack) - 1 - n; i >= 0 {
		e.stack[i] = v
	}
}

// Drop removes n values from the top.
func (e *Environment) Drop(n int) {
	if n > len(e.stack) {
		n = len(e.stack)
	}
	for i := len(e.stack) - n; i < len(e.stack); i++ {
		e.stack[i] = Value{}
	}
	e.stack = e.stack[:len(e.stack)-n]
}

// Truncate shrinks the stack to depth.
func (e *Environment) Truncate(depth int) {
	if depth < len(e.stack) {
		e.Drop(len(e.stack) - depth)
	}
}

// Pad inserts count undefined values at offset.
func (e *Environment) Pad(offset, count int) {
	if offset > len(e.stack) {
		offset = len(e.stack)
	}
	pad := make([]Value, count)
	e.stack = append(e.stack[:offset], append(pad, e.stack[offset:]...)...)
}

// ---------------------------------------------------------------------------
// Registers
// ---------------------------------------------------------------------------

// HasLocalRegisters reports whether register access is served by a local
// bank.
func (e *Environment) HasLocalRegisters() bool { return len(e.registers) > 0 }

// Register reads register i. The second result is false when i is outside
// the active bank.
func (e *Environment) Register(i int) (Value, bool) {
	if e.HasLocalRegisters() {
		if i < 0 || i >= len(e.registers) {
			return Undefined(), false
		}
		return e.registers[i], true
	}
	if i < 0 || i >= NumGlobalRegisters {
		return Undefined(), false
	}
	return e.in.registers[i], true
}

// SetRegister writes register i and reports whether it was in range.
func (e *Environment) SetRegister(i int, v Value) bool {
	v = v.Unflagged()
	if e.HasLocalRegisters() {
		if i < 0 || i >= len(e.registers) {
			return false
		}
		e.registers[i] = v
		return true
	}
	if i < 0 || i >= NumGlobalRegisters {
		return false
	}
	e.in.registers[i] = v
	return true
}
