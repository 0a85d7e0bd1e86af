package vm

import (
	"math"
	"strconv"
	"strings"
)

// Kind is the type tag of a Value.
type Kind uint8

const (
	KindUndefined Kind = iota
	KindNull
	KindBool
	KindNumber
	KindString
	KindObject
	KindFunction
)

func (k Kind) String() string {
	switch k {
	case KindUndefined:
		return "undefined"
	case KindNull:
		return "null"
	case KindBool:
		return "boolean"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindObject:
		return "object"
	case KindFunction:
		return "function"
	}
	return "invalid"
}

// Value is a tagged union slot. The exception flag marks a value that was
// thrown and has not been caught yet.
type Value struct {
	kind      Kind
	b         bool
	num       float64
	str       string
	obj       Object
	exception bool
}

// Undefined returns the undefined value.
func Undefined() Value { return Value{} }

// Null returns the null value.
func Null() Value { return Value{kind: KindNull} }

// Bool wraps a boolean.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Number wraps a float.
func Number(f float64) Value { return Value{kind: KindNumber, num: f} }

// String wraps a string.
func String(s string) Value { return Value{kind: KindString, str: s} }

// ObjectValue wraps an object reference. Callables get KindFunction; a nil
// object yields null.
func ObjectValue(o Object) Value {
	if o == nil {
		return Null()
	}
	if _, ok := o.(Callable); ok {
		return Value{kind: KindFunction, obj: o}
	}
	return Value{kind: KindObject, obj: o}
}

func (v Value) Kind() Kind { return v.kind }
func (v Value) IsUndefined() bool { return v.kind == KindUndefined }
func (v Value) IsNull() bool { return v.kind == KindNull }
func (v Value) IsNumber() bool { return v.kind == KindNumber }
func (v Value) IsString() bool { return v.kind == KindString }
func (v Value) IsObject() bool { return v.kind == KindObject || v.kind == KindFunction }
func (v Value) IsFunction() bool { return v.kind == KindFunction }
func (v Value) IsNullish() bool { return v.kind == KindUndefined || v.kind == KindNull }
func (v Value) IsException() bool { return v.exception }

// Flagged returns a copy of v marked as a thrown exception.
func (v Value) Flagged() Value {
	v.exception = true
	return v
}

// Unflagged returns a copy of v with the exception flag cleared.
func (v Value) Unflagged() Value {
	v.exception = false
	return v
}

// Object returns the referenced object, or nil for non-objects.
func (v Value) Object() Object {
	if v.IsObject() {
		return v.obj
	}
	return nil
}

// Callable returns the referenced callable, or nil.
func (v Value) Callable() Callable {
	if v.kind != KindFunction {
		return nil
	}
	c, _ := v.obj.(Callable)
	return c
}

// RawNumber returns the float payload without conversion.
func (v Value) RawNumber() float64 { return v.num }

// RawString returns the string payload without conversion.
func (v Value) RawString() string { return v.str }

// RawBool returns the boolean payload without conversion.
func (v Value) RawBool() bool { return v.b }

// ---------------------------------------------------------------------------
// Conversions. Objects are handled without calling script methods; the
// thread performs valueOf/toString calls before reaching these.
// ---------------------------------------------------------------------------

// ToNumber converts v following the rules of the given SWF version.
func (v Value) ToNumber(version int) float64 {
	switch v.kind {
	case KindUndefined, KindNull:
		if version >= 7 {
			return math.NaN()
		}
		return 0
	case KindBool:
		if v.b {
			return 1
		}
		return 0
	case KindNumber:
		return v.num
	case KindString:
		return parseNumber(v.str, version)
	}
	return math.NaN()
}

// ToInt32 converts v to a 32-bit integer the way bitwise operators do.
func (v Value) ToInt32(version int) int32 {
	return toInt32(v.ToNumber(version))
}

func toInt32(f float64) int32 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	f = math.Trunc(f)
	m := math.Mod(f, 4294967296)
	if m < 0 {
		m += 4294967296
	}
	return int32(uint32(m))
}

// ToString converts v following the rules of the given SWF version.
func (v Value) ToString(version int) string {
	switch v.kind {
	case KindUndefined:
		if version >= 7 {
			return "undefined"
		}
		return ""
	case KindNull:
		return "null"
	case KindBool:
		if v.b {
			return "true"
		}
		return "false"
	case KindNumber:
		return formatNumber(v.num)
	case KindString:
		return v.str
	case KindFunction:
		return "[type Function]"
	case KindObject:
		if s, ok := v.obj.(interface{ String() string }); ok {
			return s.String()
		}
		return "[object Object]"
	}
	return ""
}

// ToBool converts v following the rules of the given SWF version.
func (v Value) ToBool(version int) bool {
	switch v.kind {
	case KindBool:
		return v.b
	case KindNumber:
		return v.num != 0 && !math.IsNaN(v.num)
	case KindString:
		if version >= 7 {
			return v.str != ""
		}
		n := parseNumber(v.str, version)
		return n != 0 && !math.IsNaN(n)
	case KindObject, KindFunction:
		return true
	}
	return false
}

// TypeOf returns the typeof string for v.
func (v Value) TypeOf() string {
	switch v.kind {
	case KindObject:
		if _, ok := v.obj.(Target); ok {
			return "movieclip"
		}
		return "object"
	default:
		return v.kind.String()
	}
}

// String renders v for logs.
func (v Value) String() string {
	var s string
	switch v.kind {
	case KindString:
		s = strconv.Quote(v.str)
	default:
		s = v.ToString(7)
	}
	if v.exception {
		s += " (thrown)"
	}
	return s
}

// parseNumber converts a string the way ToNumber does. SWF4 content treats
// unparseable strings as 0; later versions yield NaN.
func parseNumber(s string, version int) float64 {
	fail := math.NaN()
	if version < 5 {
		fail = 0
	}
	t := strings.TrimSpace(s)
	if t == "" {
		return fail
	}
	if version >= 6 && len(t) > 2 && t[0] == '0' && (t[1] == 'x' || t[1] == 'X') {
		if n, err := strconv.ParseInt(t[2:], 16, 64); err == nil {
			return float64(int32(n))
		}
		return fail
	}
	switch t {
	case "Infinity", "+Infinity":
		return math.Inf(1)
	case "-Infinity":
		return math.Inf(-1)
	}
	f, err := strconv.ParseFloat(t, 64)
	if err != nil {
		return fail
	}
	return f
}

// formatNumber renders a float the way the player does: integers without
// a fraction, up to 15 significant digits, exponent outside [1e-5, 1e15).
func formatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		return "0"
	}
	abs := math.Abs(f)
	if abs >= 1e15 || abs < 1e-5 {
		s := strconv.FormatFloat(f, 'e', -1, 64)
		mant, exp, _ := strings.Cut(s, "e")
		if len(exp) > 0 && exp[0] == '+' {
			exp = exp[1:]
			return mant + "e+" + strings.TrimLeft(exp, "0")
		}
		return mant + "e-" + strings.TrimLeft(exp[1:], "0")
	}
	s := strconv.FormatFloat(f, 'g', 15, 64)
	if strings.ContainsAny(s, "e") {
		s = strconv.FormatFloat(f, 'f', -1, 64)
	}
	return s
}
