package vm

import (
	"math"
)

// ---------------------------------------------------------------------------
// Conversions that may call script methods
// ---------------------------------------------------------------------------

// toPrimitive converts an object to a primitive by calling valueOf and
// toString in hint order. A thrown result is raised and yields undefined.
func (t *Thread) toPrimitive(v Value, preferString bool) Value {
	obj := v.Object()
	if obj == nil {
		return v
	}
	methods := [2]string{"valueOf", "toString"}
	if preferString {
		methods[0], methods[1] = methods[1], methods[0]
	}
	for _, name := range methods {
		fn, ok := obj.GetMember(name)
		if !ok || !fn.IsFunction() {
			continue
		}
		r := t.callValue(fn, obj, nil)
		if t.hasRaised || t.err != nil {
			return Undefined()
		}
		if !r.IsObject() {
			return r
		}
	}
	return String(v.ToString(t.version))
}

func (t *Thread) toNumber(v Value) float64 {
	return t.toPrimitive(v, false).ToNumber(t.version)
}

func (t *Thread) toString(v Value) string {
	if v.IsObject() {
		if _, ok := v.Object().(Target); ok {
			return v.ToString(t.version)
		}
		return t.toPrimitive(v, true).ToString(t.version)
	}
	return v.ToString(t.version)
}

func (t *Thread) toInt32(v Value) int32 {
	return toInt32(t.toNumber(v))
}

// pushBool pushes a comparison result. SWF4 content expects 1 and 0.
func (t *Thread) pushBool(b bool) {
	if t.version < 5 {
		if b {
			t.env.Push(Number(1))
		} else {
			t.env.Push(Number(0))
		}
		return
	}
	t.env.Push(Bool(b))
}

// popOperands pops the right then the left operand of a binary opcode.
func (t *Thread) popOperands() (left, right Value) {
	right = t.env.Pop()
	left = t.env.Pop()
	return left, right
}

// ---------------------------------------------------------------------------
// SWF4 arithmetic
// ---------------------------------------------------------------------------

func numericOp(f func(a, b float64) float64) ActionHandler {
	return func(t *Thread) {
		l, r := t.popOperands()
		t.env.Push(Number(f(t.toNumber(l), t.toNumber(r))))
	}
}

var (
	actionAdd      = numericOp(func(a, b float64) float64 { return a + b })
	actionSubtract = numericOp(func(a, b float64) float64 { return a - b })
	actionMultiply = numericOp(func(a, b float64) float64 { return a * b })
	actionModulo   = numericOp(math.Mod)
)

func actionDivide(t *Thread) {
	l, r := t.popOperands()
	a, b := t.toNumber(l), t.toNumber(r)
	if b != 0 {
		t.env.Push(Number(a / b))
		return
	}
	switch {
	case t.version < 5:
		t.env.Push(String("#ERROR#"))
	case a == 0 || math.IsNaN(a) || math.IsNaN(b):
		t.env.Push(Number(math.NaN()))
	case a < 0:
		t.env.Push(Number(math.Inf(-1)))
	default:
		t.env.Push(Number(math.Inf(1)))
	}
}

func actionEquals(t *Thread) {
	l, r := t.popOperands()
	t.pushBool(t.toNumber(l) == t.toNumber(r))
}

func actionLess(t *Thread) {
	l, r := t.popOperands()
	t.pushBool(t.toNumber(l) < t.toNumber(r))
}

func actionAnd(t *Thread) {
	l, r := t.popOperands()
	t.pushBool(l.ToBool(t.version) && r.ToBool(t.version))
}

func actionOr(t *Thread) {
	l, r := t.popOperands()
	t.pushBool(l.ToBool(t.version) || r.ToBool(t.version))
}

func actionNot(t *Thread) {
	t.pushBool(!t.env.Pop().ToBool(t.version))
}

func actionToInteger(t *Thread) {
	t.env.Push(Number(float64(t.toInt32(t.env.Pop()))))
}

// ---------------------------------------------------------------------------
// SWF5+ typed operators
// ---------------------------------------------------------------------------

// actionAdd2 concatenates when either primitive operand is a string and
// adds numerically otherwise.
func actionAdd2(t *Thread) {
	l, r := t.popOperands()
	l = t.toPrimitive(l, false)
	r = t.toPrimitive(r, false)
	if l.IsString() || r.IsString() {
		t.env.Push(String(l.ToString(t.version) + r.ToString(t.version)))
		return
	}
	t.env.Push(Number(l.ToNumber(t.version) + r.ToNumber(t.version)))
}

// lessThan implements the abstract relational comparison. The second
// result is false when the comparison is undefined (a NaN operand).
func (t *Thread) lessThan(l, r Value) (less, defined bool) {
	l = t.toPrimitive(l, false)
	r = t.toPrimitive(r, false)
	if l.IsString() && r.IsString() {
		a, b := l.RawString(), r.RawString()
		switch {
		case a == "":
			return false, true
		case b == "":
			return true, true
		}
		return a < b, true
	}
	a, b := l.ToNumber(t.version), r.ToNumber(t.version)
	if math.IsNaN(a) || math.IsNaN(b) {
		return false, false
	}
	return a < b, true
}

func (t *Thread) pushComparison(less, defined bool) {
	if !defined {
		t.env.Push(Undefined())
		return
	}
	t.env.Push(Bool(less))
}

func actionLess2(t *Thread) {
	l, r := t.popOperands()
	t.pushComparison(t.lessThan(l, r))
}

func actionGreater(t *Thread) {
	l, r := t.popOperands()
	t.pushComparison(t.lessThan(r, l))
}

func actionEquals2(t *Thread) {
	l, r := t.popOperands()
	if t.version <= 5 {
		l = t.toPrimitive(l, false)
		r = t.toPrimitive(r, false)
	}
	t.env.Push(Bool(t.looseEquals(l, r, 0)))
}

func actionStrictEquals(t *Thread) {
	l, r := t.popOperands()
	t.env.Push(Bool(strictEquals(l, r)))
}

// strictEquals compares without conversion. Objects compare by identity.
func strictEquals(a, b Value) bool {
	if a.IsObject() && b.IsObject() {
		return a.Object() == b.Object()
	}
	if a.Kind() != b.Kind() {
		return false
	}
	switch a.Kind() {
	case KindUndefined, KindNull:
		return true
	case KindBool:
		return a.RawBool() == b.RawBool()
	case KindNumber:
		return a.RawNumber() == b.RawNumber()
	case KindString:
		return a.RawString() == b.RawString()
	}
	return false
}

// looseEquals is the abstract equality comparison.
func (t *Thread) looseEquals(a, b Value, depth int) bool {
	if depth > 4 {
		return false
	}
	if a.IsObject() == b.IsObject() && (a.IsObject() || a.Kind() == b.Kind()) {
		return strictEquals(a, b)
	}
	switch {
	case a.IsNullish() && b.IsNullish():
		return true
	case a.IsNullish() || b.IsNullish():
		return false
	case a.IsNumber() && b.IsString(), a.IsString() && b.IsNumber():
		return a.ToNumber(t.version) == b.ToNumber(t.version)
	case a.Kind() == KindBool:
		return t.looseEquals(Number(a.ToNumber(t.version)), b, depth+1)
	case b.Kind() == KindBool:
		return t.looseEquals(a, Number(b.ToNumber(t.version)), depth+1)
	case a.IsObject():
		p := t.toPrimitive(a, false)
		if p.IsObject() {
			return false
		}
		return t.looseEquals(p, b, depth+1)
	case b.IsObject():
		p := t.toPrimitive(b, false)
		if p.IsObject() {
			return false
		}
		return t.looseEquals(a, p, depth+1)
	}
	return false
}

func actionToNumber(t *Thread) {
	t.env.Push(Number(t.toNumber(t.env.Pop())))
}

func actionToString(t *Thread) {
	t.env.Push(String(t.toString(t.env.Pop())))
}

func actionIncrement(t *Thread) {
	t.env.Push(Number(t.toNumber(t.env.Pop()) + 1))
}

func actionDecrement(t *Thread) {
	t.env.Push(Number(t.toNumber(t.env.Pop()) - 1))
}

func actionTypeOf(t *Thread) {
	t.env.Push(String(t.env.Pop().TypeOf()))
}

// ---------------------------------------------------------------------------
// Bitwise operators
// ---------------------------------------------------------------------------

func bitwiseOp(f func(a, b int32) int32) ActionHandler {
	return func(t *Thread) {
		l, r := t.popOperands()
		t.env.Push(Number(float64(f(t.toInt32(l), t.toInt32(r)))))
	}
}

var (
	actionBitAnd    = bitwiseOp(func(a, b int32) int32 { return a & b })
	actionBitOr     = bitwiseOp(func(a, b int32) int32 { return a | b })
	actionBitXor    = bitwiseOp(func(a, b int32) int32 { return a ^ b })
	actionBitLShift = bitwiseOp(func(a, b int32) int32 { return a << (uint32(b) & 31) })
	actionBitRShift = bitwiseOp(func(a, b int32) int32 { return a >> (uint32(b) & 31) })
)

// actionBitURShift shifts in zeros; the result is unsigned.
func actionBitURShift(t *Thread) {
	l, r := t.popOperands()
	v := uint32(t.toInt32(l)) >> (uint32(t.toInt32(r)) & 31)
	t.env.Push(Number(float64(v)))
}
