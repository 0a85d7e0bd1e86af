package bytecode

import (
	"errors"
	"testing"
)

func TestFixedWidthReads(t *testing.T) {
	b := NewBuffer([]byte{0x01, 0x02, 0xFF, 0xFF, 0x00, 0x00, 0x80, 0x3F})

	if got := b.ReadU8(0); got != 0x01 {
		t.Errorf("ReadU8 = %d", got)
	}
	if got := b.ReadU16(0); got != 0x0201 {
		t.Errorf("ReadU16 = 0x%04X", got)
	}
	if got := b.ReadS16(2); got != -1 {
		t.Errorf("ReadS16 = %d", got)
	}
	if got := b.ReadFloat32(4); got != 1.0 {
		t.Errorf("ReadFloat32 = %v", got)
	}
}

func TestReadsOutsideBufferYieldZero(t *testing.T) {
	b := NewBuffer([]byte{0x01, 0x02})
	if b.ReadU16(1) != 0 || b.ReadU32(0) != 0 || b.ReadU8(-1) != 0 || b.ReadFloat64(0) != 0 {
		t.Error("out-of-range read returned data")
	}
	if b.InRange(1, 2) || !b.InRange(0, 2) {
		t.Error("InRange mismatch")
	}
}

func TestReadFloat64SwapsWords(t *testing.T) {
	// 1.0 is 0x3FF00000_00000000; the high word comes first.
	b := NewBuffer([]byte{0x00, 0x00, 0xF0, 0x3F, 0x00, 0x00, 0x00, 0x00})
	if got := b.ReadFloat64(0); got != 1.0 {
		t.Errorf("ReadFloat64 = %v, want 1", got)
	}
}

func TestReadString(t *testing.T) {
	b := NewBuffer([]byte("ab\x00cd"))

	s, next, err := b.ReadString(0, b.Size())
	if err != nil || s != "ab" || next != 3 {
		t.Errorf("ReadString = %q, %d, %v", s, next, err)
	}

	s, next, err = b.ReadString(3, b.Size())
	var me *MalformedError
	if !errors.As(err, &me) {
		t.Fatalf("missing terminator: err = %v", err)
	}
	if s != "cd" || next != 5 {
		t.Errorf("best effort = %q, %d", s, next)
	}

	// The terminator must fall inside the limit.
	if _, _, err := b.ReadString(0, 2); err == nil {
		t.Error("terminator beyond limit accepted")
	}
}

func TestOpcodeNavigation(t *testing.T) {
	a := NewAssembler().Op(OpPlay).Push(Str("x")).Op(OpStop)
	b := a.MustBuffer()

	steps := []struct {
		pc   int
		op   Opcode
		next int
	}{
		{0, OpPlay, 1},
		{1, OpPush, 7},
		{7, OpStop, 8},
		{8, OpEnd, 9},
	}
	for _, s := range steps {
		if got := b.Opcode(s.pc); got != s.op {
			t.Errorf("Opcode(%d) = %s, want %s", s.pc, got, s.op)
		}
		if got := b.NextPC(s.pc); got != s.next {
			t.Errorf("NextPC(%d) = %d, want %d", s.pc, got, s.next)
		}
	}
	if b.PayloadLen(1) != 3 {
		t.Errorf("PayloadLen = %d", b.PayloadLen(1))
	}
}

func TestConstantPoolsAreScanned(t *testing.T) {
	a := NewAssembler().
		ConstantPool("a", "b").
		Op(OpPlay).
		ConstantPool("c")
	b := a.MustBuffer()

	if b.DictionaryLen() != 2 || b.Dictionary(1) != "b" {
		t.Errorf("initial dictionary = %v", b.InitialDictionary())
	}
	second := b.NextPC(b.NextPC(0))
	pool, ok := b.PoolAt(second)
	if !ok || len(pool) != 1 || pool[0] != "c" {
		t.Errorf("PoolAt(%d) = %v, %v", second, pool, ok)
	}
	if _, ok := b.LookupDictionary(5); ok {
		t.Error("out-of-range lookup succeeded")
	}
	if b.Dictionary(5) != "" {
		t.Error("out-of-range Dictionary returned data")
	}
}

func TestExplicitDictionaryWins(t *testing.T) {
	b := NewAssembler().ConstantPool("pool").MustBuffer(WithDictionary([]string{"explicit"}))
	if b.Dictionary(0) != "explicit" {
		t.Errorf("Dictionary(0) = %q", b.Dictionary(0))
	}
	if pool, _ := b.PoolAt(0); len(pool) != 1 || pool[0] != "pool" {
		t.Errorf("PoolAt(0) = %v", pool)
	}
}

func TestBufferCopiesInput(t *testing.T) {
	code := []byte{byte(OpPlay)}
	b := NewBuffer(code, WithName("frame"), WithVersion(7))
	code[0] = byte(OpStop)
	if b.Opcode(0) != OpPlay {
		t.Error("buffer aliases its input")
	}
	if b.Name() != "frame" || b.Version() != 7 {
		t.Errorf("Name/Version = %q/%d", b.Name(), b.Version())
	}
}
