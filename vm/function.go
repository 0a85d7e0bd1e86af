package vm

import (
	"github.com/chazu/avm1/pkg/bytecode"
)

// Callable is an object that can be invoked.
type Callable interface {
	Object
	// Call invokes the callable. A script exception that escapes it comes
	// back as a flagged value with a nil error; errors are reserved for
	// conditions that abort the whole unit, such as execution limits.
	Call(in *Interpreter, this Object, args []Value) (Value, error)
}

// ---------------------------------------------------------------------------
// Function: a closure defined by DefineFunction or DefineFunction2
// ---------------------------------------------------------------------------

// Function is a script closure. It captures the defining thread's scope
// stack, target and constant pool; the body is run in a fresh thread on
// every call.
type Function struct {
	*ScriptObject

	code    *bytecode.Buffer
	header  bytecode.FunctionHeader
	scope   []Object
	target  Object
	dict    []string
	version int
}

// newFunction creates the closure for the function header decoded at the
// thread's current opcode.
func (t *Thread) newFunction(h bytecode.FunctionHeader) *Function {
	f := &Function{
		ScriptObject: NewObjectWithProto(t.in.builtinProto("Function")),
		code:         t.code,
		header:       h,
		scope:        append([]Object(nil), t.scope...),
		target:       t.env.Target(),
		dict:         t.dict,
		version:      t.version,
	}
	proto := NewObjectWithProto(t.in.builtinProto("Object"))
	proto.SetHidden("constructor", ObjectValue(f))
	f.SetHidden("prototype", ObjectValue(proto))
	return f
}

// Name returns the declared name; anonymous functions return "".
func (f *Function) Name() string { return f.header.Name }

// Header returns the decoded definition.
func (f *Function) Header() bytecode.FunctionHeader { return f.header }

// Call runs the function body in a new thread and environment.
func (f *Function) Call(in *Interpreter, this Object, args []Value) (Value, error) {
	caller := in.caller()
	if err := in.enterCall(f); err != nil {
		return Undefined(), err
	}
	defer in.leaveCall()
	if in.Profiler != nil {
		in.Profiler.RecordCall(f)
	}

	target := f.target
	if f.version < 6 {
		if tgt, ok := this.(Target); ok {
			target = tgt
		}
	}
	if this == nil {
		this = target
	}

	env := newEnvironment(in, target)
	env.locals = NewObject()
	if f.header.V2 {
		env.registers = make([]Value, f.header.RegisterCount)
	}

	t := newThread(in, f.code, env, f.header.BodyStart, f.header.BodyEnd)
	t.fn = f
	t.this = this
	t.dict = f.dict
	t.version = f.version
	t.scope = append(t.scope, f.scope...)
	if f.version > 5 || f.header.V2 {
		t.scope = append(t.scope, env.locals)
	}

	argsObj := f.argumentsObject(in, args, caller)
	if f.header.V2 {
		f.bindV2(t, this, args, argsObj)
	} else {
		f.bindV1(t, this, args, argsObj)
	}

	err := t.Run()
	if u, ok := IsUncaught(err); ok {
		return u.Flagged(), nil
	}
	if err != nil {
		return Undefined(), err
	}
	return t.retval, nil
}

func (f *Function) argumentsObject(in *Interpreter, args []Value, caller Callable) *ScriptObject {
	a := NewArray(in.builtinProto("Array"), args...)
	a.SetHidden("callee", ObjectValue(f))
	if caller != nil {
		a.SetHidden("caller", ObjectValue(caller))
	} else {
		a.SetHidden("caller", Null())
	}
	return a
}

func (f *Function) bindV1(t *Thread, this Object, args []Value, argsObj *ScriptObject) {
	locals := t.env.locals
	for i, a := range f.header.Args {
		v := Undefined()
		if i < len(args) {
			v = args[i]
		}
		locals.SetMember(a.Name, v)
	}
	locals.SetHidden("this", ObjectValue(this))
	locals.SetHidden("arguments", ObjectValue(argsObj))
	if f.version > 5 {
		if s := newSuper(this); s != nil {
			locals.SetHidden("super", ObjectValue(s))
		}
	}
}

func (f *Function) bindV2(t *Thread, this Object, args []Value, argsObj *ScriptObject) {
	env := t.env
	locals := env.locals
	flags := f.header.Flags
	reg := 1
	preload := func(v Value) {
		if !env.SetRegister(reg, v) {
			t.report(DiagMalformed, "preload register %d out of range (%d registers)", reg, len(env.registers))
		}
		reg++
	}

	if flags&bytecode.PreloadThis != 0 && flags&bytecode.SuppressThis == 0 {
		preload(ObjectValue(this))
	}
	if flags&bytecode.SuppressThis == 0 {
		locals.SetHidden("this", ObjectValue(this))
	}

	if flags&bytecode.PreloadArguments != 0 {
		preload(ObjectValue(argsObj))
	}
	if flags&bytecode.SuppressArguments == 0 {
		locals.SetHidden("arguments", ObjectValue(argsObj))
	}

	// super only exists, and only takes a register, from SWF6 on.
	var sup *superObject
	if f.version > 5 {
		sup = newSuper(this)
	}
	if sup != nil {
		if flags&bytecode.PreloadSuper != 0 {
			preload(ObjectValue(sup))
		}
		if flags&bytecode.SuppressSuper == 0 {
			locals.SetHidden("super", ObjectValue(sup))
		}
	}

	if flags&bytecode.PreloadRoot != 0 {
		if t.env.Target() != nil {
			v, _ := t.getVariableRaw("_root")
			preload(v)
		}
	}
	if flags&bytecode.PreloadParent != 0 {
		v, _ := t.getVariableRaw("_parent")
		preload(v)
	}
	if flags&bytecode.PreloadGlobal != 0 {
		preload(ObjectValue(t.in.Global()))
	}

	for i, a := range f.header.Args {
		v := Undefined()
		if i < len(args) {
			v = args[i]
		}
		if a.Register == 0 {
			locals.SetMember(a.Name, v)
			continue
		}
		if !env.SetRegister(int(a.Register), v) {
			t.report(DiagMalformed, "argument %q register %d out of range", a.Name, a.Register)
		}
	}
}

// ---------------------------------------------------------------------------
// super
// ---------------------------------------------------------------------------

// superObject stands for `super` inside a method: member lookups go to the
// superclass prototype, calling it runs the superclass constructor, and
// methods found through it keep the original `this`.
type superObject struct {
	Object
	ctor Value
	this Object
}

func newSuper(this Object) *superObject {
	if this == nil {
		return nil
	}
	p := proto(this)
	if p == nil {
		return nil
	}
	ctor, _ := p.GetMember(constructorMember)
	sp := proto(p)
	if sp == nil {
		sp = NewObject()
	}
	return &superObject{Object: sp, ctor: ctor, this: this}
}

func (s *superObject) Call(in *Interpreter, _ Object, args []Value) (Value, error) {
	c := s.ctor.Callable()
	if c == nil {
		return Undefined(), nil
	}
	return c.Call(in, s.this, args)
}

// ---------------------------------------------------------------------------
// NativeFunction: a callable implemented in Go
// ---------------------------------------------------------------------------

// NativeFunc is the signature of Go-implemented script functions.
type NativeFunc func(in *Interpreter, this Object, args []Value) (Value, error)

// NativeFunction wraps a Go function as a script callable.
type NativeFunction struct {
	*ScriptObject
	Name string
	Fn   NativeFunc
}

// NewNativeFunction creates a native function with an empty prototype
// object, so it can serve as a constructor.
func NewNativeFunction(name string, fn NativeFunc) *NativeFunction {
	nf := &NativeFunction{ScriptObject: NewObject(), Name: name, Fn: fn}
	proto := NewObject()
	proto.SetHidden("constructor", ObjectValue(nf))
	nf.SetHidden("prototype", ObjectValue(proto))
	return nf
}

// Call invokes the wrapped function.
func (n *NativeFunction) Call(in *Interpreter, this Object, args []Value) (Value, error) {
	if err := in.enterCall(n); err != nil {
		return Undefined(), err
	}
	defer in.leaveCall()
	return n.Fn(in, this, args)
}

// Prototype returns the object new instances inherit from.
func (n *NativeFunction) Prototype() *ScriptObject {
	v, _ := n.GetOwnMember("prototype")
	if so, ok := v.Object().(*ScriptObject); ok {
		return so
	}
	return nil
}

// ---------------------------------------------------------------------------
// Calling from handlers
// ---------------------------------------------------------------------------

// callValue invokes fn. A thrown result is raised in this thread; fatal
// errors stop it. A non-callable fn is reported and yields undefined.
func (t *Thread) callValue(fn Value, this Object, args []Value) Value {
	c := fn.Callable()
	if c == nil {
		t.report(DiagScriptError, "%s is not a function", fn)
		return Undefined()
	}
	v, err := c.Call(t.in, this, args)
	if err != nil {
		t.fail(err)
		return Undefined()
	}
	if v.IsException() {
		t.raise(v)
		return Undefined()
	}
	return v
}

// construct creates an object with ctor's prototype and runs ctor on it.
func (t *Thread) construct(ctor Value, args []Value) Value {
	c := ctor.Callable()
	if c == nil {
		t.report(DiagScriptError, "%s is not a constructor", ctor)
		return Undefined()
	}
	pv, _ := c.GetMember("prototype")
	obj := NewObjectWithProto(pv.Object())
	obj.SetHidden(constructorMember, ctor)
	if t.version < 6 {
		obj.SetHidden("constructor", ctor)
	}

	ret, err := c.Call(t.in, obj, args)
	if err != nil {
		t.fail(err)
		return Undefined()
	}
	if ret.IsException() {
		t.raise(ret)
		return Undefined()
	}
	if _, native := c.(*NativeFunction); native && ret.IsObject() {
		return ret
	}
	return ObjectValue(obj)
}

// popArgs pops an argument count followed by that many arguments. The
// count is clamped to the values available.
func (t *Thread) popArgs() []Value {
	n := int(t.env.Pop().ToNumber(t.version))
	if n < 0 {
		n = 0
	}
	if avail := t.available(); n > avail {
		t.report(DiagStackUnderflow, "%d arguments requested, %d available", n, avail)
		n = avail
	}
	args := make([]Value, n)
	for i := range args {
		args[i] = t.env.Pop()
	}
	return args
}
