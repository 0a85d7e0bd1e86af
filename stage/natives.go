package stage

import (
	"strconv"
	"strings"

	"github.com/chazu/avm1/vm"
)

// builtins holds the shared prototypes while the constructors are built.
type builtins struct {
	global    *vm.ScriptObject
	objProto  *vm.ScriptObject
	funcProto *vm.ScriptObject
}

// installNatives defines the Object, Function, Array, String, Number,
// Boolean and Error constructors on global.
func installNatives(global *vm.ScriptObject) {
	b := &builtins{global: global}

	object := vm.NewNativeFunction("Object", objectCtor)
	b.objProto = object.Prototype()
	function := vm.NewNativeFunction("Function", func(*vm.Interpreter, vm.Object, []vm.Value) (vm.Value, error) {
		return vm.Undefined(), nil
	})
	b.funcProto = function.Prototype()
	b.inherit(b.funcProto)
	b.register(object)
	b.register(function)

	b.method(b.objProto, "toString", objectToString)
	b.method(b.objProto, "valueOf", objectValueOf)
	b.method(b.objProto, "hasOwnProperty", objectHasOwnProperty)

	b.method(b.funcProto, "call", functionCall)
	b.method(b.funcProto, "apply", functionApply)

	array := b.ctor("Array", arrayCtor)
	b.method(array.Prototype(), "push", arrayPush)
	b.method(array.Prototype(), "pop", arrayPop)
	b.method(array.Prototype(), "join", arrayJoin)
	b.method(array.Prototype(), "toString", arrayJoin)

	str := b.ctor("String", primitiveCtor(func(in *vm.Interpreter, args []vm.Value) vm.Value {
		if len(args) == 0 {
			return vm.String("")
		}
		return vm.String(args[0].ToString(in.Options().Version))
	}))
	b.method(str.Prototype(), "toString", unboxed)
	b.method(str.Prototype(), "valueOf", unboxed)
	b.method(str.Prototype(), "toUpperCase", stringMap(strings.ToUpper))
	b.method(str.Prototype(), "toLowerCase", stringMap(strings.ToLower))
	b.method(str.Prototype(), "charAt", stringCharAt)
	b.method(str.Prototype(), "indexOf", stringIndexOf)

	num := b.ctor("Number", primitiveCtor(func(in *vm.Interpreter, args []vm.Value) vm.Value {
		if len(args) == 0 {
			return vm.Number(0)
		}
		return vm.Number(args[0].ToNumber(in.Options().Version))
	}))
	b.method(num.Prototype(), "toString", numberToString)
	b.method(num.Prototype(), "valueOf", unboxed)

	boolean := b.ctor("Boolean", primitiveCtor(func(in *vm.Interpreter, args []vm.Value) vm.Value {
		if len(args) == 0 {
			return vm.Bool(false)
		}
		return vm.Bool(args[0].ToBool(in.Options().Version))
	}))
	b.method(boolean.Prototype(), "toString", unboxed)
	b.method(boolean.Prototype(), "valueOf", unboxed)

	errCtor := b.ctor("Error", errorCtor)
	errCtor.Prototype().SetHidden("name", vm.String("Error"))
	errCtor.Prototype().SetHidden("message", vm.String("Error"))
	b.method(errCtor.Prototype(), "toString", errorToString)
}

// ctor creates a constructor whose prototype inherits from Object's.
func (b *builtins) ctor(name string, fn vm.NativeFunc) *vm.NativeFunction {
	f := vm.NewNativeFunction(name, fn)
	b.inherit(f.Prototype())
	b.register(f)
	return f
}

func (b *builtins) register(f *vm.NativeFunction) {
	f.SetHidden("__proto__", vm.ObjectValue(b.funcProto))
	b.global.SetHidden(f.Name, vm.ObjectValue(f))
}

func (b *builtins) inherit(proto *vm.ScriptObject) {
	proto.SetHidden("__proto__", vm.ObjectValue(b.objProto))
}

func (b *builtins) method(on *vm.ScriptObject, name string, fn vm.NativeFunc) {
	f := vm.NewNativeFunction(name, fn)
	f.SetHidden("__proto__", vm.ObjectValue(b.funcProto))
	on.SetHidden(name, vm.ObjectValue(f))
}

// constructing reports whether this is the fresh object `new` made for
// ctor.
func constructing(in *vm.Interpreter, this vm.Object, ctor string) bool {
	own, ok := this.(interface {
		GetOwnMember(string) (vm.Value, bool)
	})
	if !ok {
		return false
	}
	c, ok := own.GetOwnMember("__constructor__")
	if !ok {
		return false
	}
	want, _ := in.Global().GetMember(ctor)
	return c.Object() != nil && c.Object() == want.Object()
}

func protoOf(in *vm.Interpreter, ctor string) vm.Object {
	c, _ := in.Global().GetMember(ctor)
	if c.Object() == nil {
		return nil
	}
	p, _ := c.Object().GetMember("prototype")
	return p.Object()
}

// ---------------------------------------------------------------------------
// Object and Function
// ---------------------------------------------------------------------------

func objectCtor(in *vm.Interpreter, this vm.Object, args []vm.Value) (vm.Value, error) {
	if len(args) > 0 && args[0].IsObject() {
		return args[0], nil
	}
	if constructing(in, this, "Object") {
		return vm.Undefined(), nil
	}
	return vm.ObjectValue(vm.NewObjectWithProto(protoOf(in, "Object"))), nil
}

func objectToString(in *vm.Interpreter, this vm.Object, _ []vm.Value) (vm.Value, error) {
	if v, ok := vm.Unbox(this); ok {
		return vm.String(v.ToString(in.Options().Version)), nil
	}
	return vm.String("[object Object]"), nil
}

func objectValueOf(_ *vm.Interpreter, this vm.Object, _ []vm.Value) (vm.Value, error) {
	if v, ok := vm.Unbox(this); ok {
		return v, nil
	}
	return vm.ObjectValue(this), nil
}

func objectHasOwnProperty(in *vm.Interpreter, this vm.Object, args []vm.Value) (vm.Value, error) {
	own, ok := this.(interface {
		GetOwnMember(string) (vm.Value, bool)
	})
	if !ok || len(args) == 0 {
		return vm.Bool(false), nil
	}
	_, has := own.GetOwnMember(args[0].ToString(in.Options().Version))
	return vm.Bool(has), nil
}

// functionCall invokes this with an explicit receiver. A thrown value is
// passed through flagged so the calling thread raises it.
func functionCall(in *vm.Interpreter, this vm.Object, args []vm.Value) (vm.Value, error) {
	fn := vm.ObjectValue(this).Callable()
	if fn == nil {
		return vm.Undefined(), nil
	}
	var recv vm.Object
	if len(args) > 0 {
		recv = args[0].Object()
		args = args[1:]
	}
	return fn.Call(in, recv, args)
}

func functionApply(in *vm.Interpreter, this vm.Object, args []vm.Value) (vm.Value, error) {
	fn := vm.ObjectValue(this).Callable()
	if fn == nil {
		return vm.Undefined(), nil
	}
	var recv vm.Object
	var list []vm.Value
	if len(args) > 0 {
		recv = args[0].Object()
	}
	if len(args) > 1 && args[1].Object() != nil {
		list = vm.ArrayValues(args[1].Object())
	}
	return fn.Call(in, recv, list)
}

// ---------------------------------------------------------------------------
// Array
// ---------------------------------------------------------------------------

// arrayCtor builds a fresh array. A single numeric argument sets the
// length without elements.
func arrayCtor(in *vm.Interpreter, _ vm.Object, args []vm.Value) (vm.Value, error) {
	proto := protoOf(in, "Array")
	if len(args) == 1 && args[0].IsNumber() {
		a := vm.NewArray(proto)
		n := args[0].RawNumber()
		if n < 0 || n != float64(int(n)) {
			n = 0
		}
		a.SetHidden("length", vm.Number(n))
		return vm.ObjectValue(a), nil
	}
	return vm.ObjectValue(vm.NewArray(proto, args...)), nil
}

func arrayPush(_ *vm.Interpreter, this vm.Object, args []vm.Value) (vm.Value, error) {
	if this == nil {
		return vm.Undefined(), nil
	}
	n := len(vm.ArrayValues(this))
	for _, v := range args {
		this.SetMember(strconv.Itoa(n), v)
		n++
	}
	setLength(this, n)
	return vm.Number(float64(n)), nil
}

func arrayPop(_ *vm.Interpreter, this vm.Object, _ []vm.Value) (vm.Value, error) {
	if this == nil {
		return vm.Undefined(), nil
	}
	n := len(vm.ArrayValues(this))
	if n == 0 {
		return vm.Undefined(), nil
	}
	key := strconv.Itoa(n - 1)
	v, _ := this.GetMember(key)
	this.DeleteMember(key)
	setLength(this, n-1)
	return v, nil
}

func arrayJoin(in *vm.Interpreter, this vm.Object, args []vm.Value) (vm.Value, error) {
	if this == nil {
		return vm.String(""), nil
	}
	version := in.Options().Version
	sep := ","
	if len(args) > 0 && !args[0].IsUndefined() {
		sep = args[0].ToString(version)
	}
	vals := vm.ArrayValues(this)
	parts := make([]string, len(vals))
	for i, v := range vals {
		if v.IsUndefined() || v.IsNull() {
			continue
		}
		parts[i] = v.ToString(version)
	}
	return vm.String(strings.Join(parts, sep)), nil
}

func setLength(obj vm.Object, n int) {
	if h, ok := obj.(interface{ SetHidden(string, vm.Value) }); ok {
		h.SetHidden("length", vm.Number(float64(n)))
		return
	}
	obj.SetMember("length", vm.Number(float64(n)))
}

// ---------------------------------------------------------------------------
// String, Number and Boolean
// ---------------------------------------------------------------------------

// primitiveCtor returns the primitive when called and a boxed object when
// used with new.
func primitiveCtor(convert func(*vm.Interpreter, []vm.Value) vm.Value) vm.NativeFunc {
	return func(in *vm.Interpreter, this vm.Object, args []vm.Value) (vm.Value, error) {
		v := convert(in, args)
		var name string
		switch {
		case v.IsString():
			name = "String"
		case v.IsNumber():
			name = "Number"
		default:
			name = "Boolean"
		}
		if constructing(in, this, name) {
			return vm.ObjectValue(vm.Box(v, protoOf(in, name))), nil
		}
		return v, nil
	}
}

// unboxed returns the primitive behind this, or this converted to a string.
func unboxed(in *vm.Interpreter, this vm.Object, _ []vm.Value) (vm.Value, error) {
	if v, ok := vm.Unbox(this); ok {
		return v, nil
	}
	return vm.String(vm.ObjectValue(this).ToString(in.Options().Version)), nil
}

func thisString(in *vm.Interpreter, this vm.Object) string {
	if v, ok := vm.Unbox(this); ok {
		return v.ToString(in.Options().Version)
	}
	return vm.ObjectValue(this).ToString(in.Options().Version)
}

func stringMap(f func(string) string) vm.NativeFunc {
	return func(in *vm.Interpreter, this vm.Object, _ []vm.Value) (vm.Value, error) {
		return vm.String(f(thisString(in, this))), nil
	}
}

func stringCharAt(in *vm.Interpreter, this vm.Object, args []vm.Value) (vm.Value, error) {
	r := []rune(thisString(in, this))
	i := 0
	if len(args) > 0 {
		i = int(args[0].ToNumber(in.Options().Version))
	}
	if i < 0 || i >= len(r) {
		return vm.String(""), nil
	}
	return vm.String(string(r[i])), nil
}

func stringIndexOf(in *vm.Interpreter, this vm.Object, args []vm.Value) (vm.Value, error) {
	if len(args) == 0 {
		return vm.Number(-1), nil
	}
	s := thisString(in, this)
	needle := args[0].ToString(in.Options().Version)
	i := strings.Index(s, needle)
	if i < 0 {
		return vm.Number(-1), nil
	}
	return vm.Number(float64(len([]rune(s[:i])))), nil
}

// numberToString honours an optional radix for integral values.
func numberToString(in *vm.Interpreter, this vm.Object, args []vm.Value) (vm.Value, error) {
	v, ok := vm.Unbox(this)
	if !ok {
		return vm.String("NaN"), nil
	}
	version := in.Options().Version
	if len(args) > 0 {
		radix := int(args[0].ToNumber(version))
		n := v.ToNumber(version)
		if radix >= 2 && radix <= 36 && radix != 10 && n == float64(int64(n)) {
			return vm.String(strconv.FormatInt(int64(n), radix)), nil
		}
	}
	return vm.String(v.ToString(version)), nil
}

// ---------------------------------------------------------------------------
// Error
// ---------------------------------------------------------------------------

func errorCtor(in *vm.Interpreter, this vm.Object, args []vm.Value) (vm.Value, error) {
	obj := this
	if !constructing(in, this, "Error") {
		obj = vm.NewObjectWithProto(protoOf(in, "Error"))
	}
	if len(args) > 0 && !args[0].IsUndefined() {
		obj.SetMember("message", vm.String(args[0].ToString(in.Options().Version)))
	}
	return vm.ObjectValue(obj), nil
}

func errorToString(in *vm.Interpreter, this vm.Object, _ []vm.Value) (vm.Value, error) {
	if this == nil {
		return vm.String("Error"), nil
	}
	m, _ := this.GetMember("message")
	return vm.String(m.ToString(in.Options().Version)), nil
}
