package vm

// ---------------------------------------------------------------------------
// Boxing
// ---------------------------------------------------------------------------

// boxedValue wraps a primitive so member access works on it, e.g.
// "abc".length.
type boxedValue struct {
	*ScriptObject
	value Value
}

func (b *boxedValue) String() string { return b.value.ToString(6) }

// Unbox returns the primitive held by an object created when a string,
// number or boolean was used as an object.
func Unbox(obj Object) (Value, bool) {
	if b, ok := obj.(*boxedValue); ok {
		return b.value, true
	}
	return Undefined(), false
}

// toObject returns v as an object, boxing primitives. Undefined and null
// have no object form.
func (t *Thread) toObject(v Value) Object {
	if v.IsObject() {
		return v.Object()
	}
	var ctor string
	switch v.Kind() {
	case KindString:
		ctor = "String"
	case KindNumber:
		ctor = "Number"
	case KindBool:
		ctor = "Boolean"
	default:
		return nil
	}
	return Box(v, t.in.builtinProto(ctor))
}

// Box wraps the primitive v in an object inheriting from proto, the form
// `new String("x")` produces. Strings get a hidden length.
func Box(v Value, proto Object) Object {
	b := &boxedValue{ScriptObject: NewObjectWithProto(proto), value: v}
	if v.IsString() {
		b.SetHidden("length", Number(float64(len([]rune(v.RawString())))))
	}
	return b
}

// setHidden assigns a non-enumerable member when obj supports it.
func setHidden(obj Object, name string, v Value) {
	if h, ok := obj.(interface{ SetHidden(string, Value) }); ok {
		h.SetHidden(name, v)
		return
	}
	obj.SetMember(name, v)
}

// ---------------------------------------------------------------------------
// Variables
// ---------------------------------------------------------------------------

func actionGetVariable(t *Thread) {
	name := t.toString(t.env.Pop())
	if name == "" {
		t.env.Push(Undefined())
		return
	}
	v, _ := t.getVariable(name)
	if t.version < 5 {
		if _, ok := v.Object().(Target); ok {
			v = Undefined()
		}
	}
	t.env.Push(v)
}

func actionSetVariable(t *Thread) {
	v := t.env.Pop()
	name := t.toString(t.env.Pop())
	if name == "" {
		t.report(DiagScriptError, "assignment to an empty variable name")
		return
	}
	t.setVariable(name, v)
}

func actionDefineLocal(t *Thread) {
	v := t.env.Pop()
	t.defineLocal(t.toString(t.env.Pop()), v)
}

func actionDefineLocal2(t *Thread) {
	t.declareLocal(t.toString(t.env.Pop()))
}

func actionDelete(t *Thread) {
	name := t.toString(t.env.Pop())
	obj := t.toObject(t.env.Pop())
	if obj == nil {
		t.env.Push(Bool(false))
		return
	}
	t.env.Push(Bool(obj.DeleteMember(name)))
}

func actionDelete2(t *Thread) {
	t.env.Push(Bool(t.deleteVariable(t.toString(t.env.Pop()))))
}

// ---------------------------------------------------------------------------
// Members
// ---------------------------------------------------------------------------

func actionGetMember(t *Thread) {
	name := t.env.Pop()
	objv := t.env.Pop()
	obj := t.toObject(objv)
	if obj == nil {
		log.Debugf("get member %s of %s", name, objv)
		t.env.Push(Undefined())
		return
	}
	v, _ := obj.GetMember(t.toString(name))
	t.env.Push(v)
}

func actionSetMember(t *Thread) {
	v := t.env.Pop()
	name := t.toString(t.env.Pop())
	objv := t.env.Pop()
	obj := t.toObject(objv)
	switch {
	case obj == nil:
		t.report(DiagScriptError, "set member %q on non-object %s", name, objv)
	case name == "":
		t.report(DiagScriptError, "set member with an empty name on %s", objv)
	default:
		obj.SetMember(name, v)
	}
}

func actionInitArray(t *Thread) {
	n := int(t.toNumber(t.env.Pop()))
	if n < 0 {
		n = 0
	}
	if avail := t.available(); n > avail {
		t.report(DiagStackUnderflow, "array of %d elements, %d available", n, avail)
		n = avail
	}
	elems := make([]Value, n)
	for i := range elems {
		elems[i] = t.env.Pop()
	}
	t.env.Push(ObjectValue(NewArray(t.in.builtinProto("Array"), elems...)))
}

func actionInitObject(t *Thread) {
	n := int(t.toNumber(t.env.Pop()))
	if n < 0 {
		n = 0
	}
	if avail := t.available(); 2*n > avail {
		t.report(DiagStackUnderflow, "object of %d members, %d values available", n, avail)
		n = avail / 2
	}
	obj := NewObjectWithProto(t.in.builtinProto("Object"))
	for i := 0; i < n; i++ {
		v := t.env.Pop()
		obj.SetMember(t.toString(t.env.Pop()), v)
	}
	t.env.Push(ObjectValue(obj))
}

func actionTargetPath(t *Thread) {
	if tgt, ok := t.env.Pop().Object().(Target); ok {
		t.env.Push(String(tgt.TargetPath()))
		return
	}
	t.env.Push(Undefined())
}

// pushEnumeration pushes the undefined end marker followed by the
// enumerable names of obj.
func (t *Thread) pushEnumeration(obj Object) {
	t.env.Push(Undefined())
	if obj == nil {
		return
	}
	for _, name := range enumerate(obj) {
		t.env.Push(String(name))
	}
}

func actionEnumerate(t *Thread) {
	v, _ := t.getVariable(t.toString(t.env.Pop()))
	t.pushEnumeration(v.Object())
}

func actionEnumerate2(t *Thread) {
	t.pushEnumeration(t.env.Pop().Object())
}

// ---------------------------------------------------------------------------
// Classes
// ---------------------------------------------------------------------------

// prototypeOf returns the prototype member of a constructor.
func prototypeOf(ctor Object) Object {
	if ctor == nil {
		return nil
	}
	p, _ := ctor.GetMember("prototype")
	return p.Object()
}

// instanceOf reports whether ctor's prototype is on obj's prototype chain
// or declared as one of its interfaces.
func (in *Interpreter) instanceOf(obj Object, ctor Object) bool {
	want := prototypeOf(ctor)
	if obj == nil || want == nil {
		return false
	}
	seen := make(map[Object]bool)
	var implements func(p Object) bool
	implements = func(p Object) bool {
		if p == want {
			return true
		}
		if seen[p] {
			return false
		}
		seen[p] = true
		for _, i := range in.interfaces[p] {
			if implements(i) {
				return true
			}
		}
		return false
	}
	for p, depth := proto(obj), 0; p != nil && depth < 256; p, depth = proto(p), depth+1 {
		if implements(p) {
			return true
		}
	}
	return false
}

func actionInstanceOf(t *Thread) {
	ctor := t.env.Pop()
	inst := t.env.Pop()
	t.env.Push(Bool(inst.IsObject() && t.in.instanceOf(inst.Object(), ctor.Object())))
}

// actionCastOp pushes the instance if it is an instance of the
// constructor, null otherwise.
func actionCastOp(t *Thread) {
	instv := t.env.Pop()
	ctor := t.env.Pop()
	inst := t.toObject(instv)
	if inst == nil || ctor.Callable() == nil {
		t.report(DiagScriptError, "cast of %s to %s", instv, ctor)
		t.env.Push(Null())
		return
	}
	if t.in.instanceOf(inst, ctor.Object()) {
		t.env.Push(ObjectValue(inst))
		return
	}
	t.env.Push(Null())
}

// actionImplementsOp records the interfaces a constructor's prototype
// implements; InstanceOf and CastOp consult them.
func actionImplementsOp(t *Thread) {
	ctorv := t.env.Pop()
	n := int(t.toNumber(t.env.Pop()))
	if n < 0 {
		n = 0
	}
	if avail := t.available(); n > avail {
		t.report(DiagStackUnderflow, "%d interfaces, %d available", n, avail)
		n = avail
	}
	ifaces := make([]Object, 0, n)
	for i := 0; i < n; i++ {
		if p := prototypeOf(t.env.Pop().Object()); p != nil {
			ifaces = append(ifaces, p)
		}
	}
	p := prototypeOf(ctorv.Object())
	if p == nil {
		t.report(DiagScriptError, "implements: %s has no prototype", ctorv)
		return
	}
	if n == 0 {
		t.report(DiagScriptError, "implements: no interfaces given")
		return
	}
	t.in.interfaces[p] = append(t.in.interfaces[p], ifaces...)
}

// actionExtends gives sub a fresh prototype inheriting from super's.
func actionExtends(t *Thread) {
	superv := t.env.Pop()
	subv := t.env.Pop()
	super, sub := superv.Callable(), subv.Callable()
	if super == nil || sub == nil {
		t.report(DiagScriptError, "%s extends %s: both must be functions", subv, superv)
		return
	}
	p := NewObjectWithProto(prototypeOf(super))
	if t.version > 5 {
		p.SetHidden(constructorMember, superv)
	}
	setHidden(sub, "prototype", ObjectValue(p))
}
