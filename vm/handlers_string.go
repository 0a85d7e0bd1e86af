package vm

import (
	"unicode/utf8"
)

// ---------------------------------------------------------------------------
// String opcodes
// ---------------------------------------------------------------------------

func actionStringAdd(t *Thread) {
	l, r := t.popOperands()
	t.env.Push(String(t.toString(l) + t.toString(r)))
}

func actionStringEquals(t *Thread) {
	l, r := t.popOperands()
	t.pushBool(t.toString(l) == t.toString(r))
}

func actionStringLess(t *Thread) {
	l, r := t.popOperands()
	t.pushBool(t.toString(l) < t.toString(r))
}

func actionStringGreater(t *Thread) {
	l, r := t.popOperands()
	t.env.Push(Bool(t.toString(l) > t.toString(r)))
}

// actionStringLength counts characters from SWF6 on and bytes before.
func actionStringLength(t *Thread) {
	s := t.toString(t.env.Pop())
	if t.version > 5 {
		t.env.Push(Number(float64(utf8.RuneCountInString(s))))
		return
	}
	t.env.Push(Number(float64(len(s))))
}

func actionMBStringLength(t *Thread) {
	s := t.toString(t.env.Pop())
	t.env.Push(Number(float64(utf8.RuneCountInString(s))))
}

func actionStringExtract(t *Thread) {
	t.substring()
}

func actionMBStringExtract(t *Thread) {
	t.substring()
}

// substring implements substring(str, start, size) with a 1-based start.
// A negative size means "to the end"; out-of-range starts are clamped.
func (t *Thread) substring() {
	size := int(t.toInt32(t.env.Pop()))
	start := int(t.toInt32(t.env.Pop()))
	sv := t.env.Pop()
	if sv.IsNullish() {
		t.env.Push(Undefined())
		return
	}
	runes := []rune(t.toString(sv))
	n := len(runes)
	if size < 0 {
		size = n
	}
	if size == 0 || n == 0 {
		t.env.Push(String(""))
		return
	}
	if start < 1 {
		start = 1
	} else if start > n {
		t.env.Push(String(""))
		return
	}
	start--
	if start+size > n {
		size = n - start
	}
	t.env.Push(String(string(runes[start : start+size])))
}

// firstCodePoint returns the code of the first character of s, or 0.
func firstCodePoint(s string) int {
	if s == "" {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return int(s[0])
	}
	return int(r)
}

func actionCharToAscii(t *Thread) {
	t.env.Push(Number(float64(firstCodePoint(t.toString(t.env.Pop())))))
}

func actionMBCharToAscii(t *Thread) {
	t.env.Push(Number(float64(firstCodePoint(t.toString(t.env.Pop())))))
}

// actionAsciiToChar builds a one-character string. Before SWF6 the code is
// a byte in the legacy encoding.
func actionAsciiToChar(t *Thread) {
	c := uint16(t.toInt32(t.env.Pop()))
	switch {
	case c == 0:
		t.env.Push(String(""))
	case t.version > 5:
		t.env.Push(String(string(rune(c))))
	case uint8(c) == 0:
		t.env.Push(String(""))
	default:
		t.env.Push(String(t.in.decoder.Decode(string([]byte{uint8(c)}))))
	}
}

func actionMBAsciiToChar(t *Thread) {
	c := uint16(t.toInt32(t.env.Pop()))
	if c == 0 {
		t.env.Push(String(""))
		return
	}
	t.env.Push(String(string(rune(c))))
}
