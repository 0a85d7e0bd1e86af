package bytecode

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("avm.bytecode")

// Buffer is an immutable action stream plus the constant pools it declares.
// A Buffer is safe to share between threads.
type Buffer struct {
	code    []byte
	name    string
	version int

	// dict is the pool in effect when execution starts: either an explicit
	// dictionary supplied at construction or the first ConstantPool found.
	dict         []string
	explicitDict bool

	// pools holds every ConstantPool declaration, keyed by its opcode offset.
	pools map[int][]string
}

// BufferOption configures a Buffer at construction.
type BufferOption func(*Buffer)

// WithName labels the buffer for diagnostics.
func WithName(name string) BufferOption {
	return func(b *Buffer) { b.name = name }
}

// WithVersion records the SWF version of the movie the buffer came from.
// Zero leaves the choice to the interpreter.
func WithVersion(version int) BufferOption {
	return func(b *Buffer) { b.version = version }
}

// WithDictionary supplies a dictionary that is in effect before any
// ConstantPool action runs.
func WithDictionary(dict []string) BufferOption {
	return func(b *Buffer) {
		b.dict = append([]string(nil), dict...)
		b.explicitDict = true
	}
}

// NewBuffer copies code into a new Buffer and pre-decodes its constant pools.
func NewBuffer(code []byte, opts ...BufferOption) *Buffer {
	b := &Buffer{
		code:  append([]byte(nil), code...),
		pools: make(map[int][]string),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.scanPools()
	return b
}

// scanPools walks the opcode stream once and decodes every ConstantPool.
// Function bodies are inline in the stream, so a linear walk reaches them.
func (b *Buffer) scanPools() {
	for pc := 0; pc < len(b.code); {
		op := Opcode(b.code[pc])
		if op == OpConstantPool {
			pool, err := b.DecodeConstantPool(pc)
			if err != nil {
				log.Warningf("%s: %v", b.label(), err)
			}
			b.pools[pc] = pool
			if !b.explicitDict && b.dict == nil {
				b.dict = pool
			}
		}
		next := b.NextPC(pc)
		if next <= pc {
			break
		}
		pc = next
	}
}

func (b *Buffer) label() string {
	if b.name != "" {
		return b.name
	}
	return "action buffer"
}

// Name returns the buffer's diagnostic label.
func (b *Buffer) Name() string { return b.name }

// Version returns the SWF version recorded for the buffer, or 0.
func (b *Buffer) Version() int { return b.version }

// Size returns the number of bytes in the buffer.
func (b *Buffer) Size() int { return len(b.code) }

// Code returns a copy of the raw bytes.
func (b *Buffer) Code() []byte { return append([]byte(nil), b.code...) }

// Opcode returns the opcode at pc, or OpEnd past the end of the buffer.
func (b *Buffer) Opcode(pc int) Opcode {
	if pc < 0 || pc >= len(b.code) {
		return OpEnd
	}
	return Opcode(b.code[pc])
}

// PayloadLen returns the declared payload length of the opcode at pc.
func (b *Buffer) PayloadLen(pc int) int {
	if !b.Opcode(pc).HasPayload() {
		return 0
	}
	return int(b.ReadU16(pc + 1))
}

// NextPC returns the offset of the opcode following the one at pc.
func (b *Buffer) NextPC(pc int) int {
	if !b.Opcode(pc).HasPayload() {
		return pc + 1
	}
	return pc + 3 + b.PayloadLen(pc)
}

// ============================================================================
// Fixed-width reads. Reads that fall outside the buffer yield zero.
// ============================================================================

func (b *Buffer) span(pc, n int) []byte {
	if pc < 0 || n < 0 || pc+n > len(b.code) {
		return nil
	}
	return b.code[pc : pc+n]
}

// InRange reports whether n bytes starting at pc lie inside the buffer.
func (b *Buffer) InRange(pc, n int) bool {
	return b.span(pc, n) != nil
}

// ReadU8 reads a byte.
func (b *Buffer) ReadU8(pc int) uint8 {
	if s := b.span(pc, 1); s != nil {
		return s[0]
	}
	return 0
}

// ReadU16 reads a little-endian u16.
func (b *Buffer) ReadU16(pc int) uint16 {
	if s := b.span(pc, 2); s != nil {
		return binary.LittleEndian.Uint16(s)
	}
	return 0
}

// ReadS16 reads a little-endian signed 16-bit value.
func (b *Buffer) ReadS16(pc int) int16 {
	return int16(b.ReadU16(pc))
}

// ReadU32 reads a little-endian u32.
func (b *Buffer) ReadU32(pc int) uint32 {
	if s := b.span(pc, 4); s != nil {
		return binary.LittleEndian.Uint32(s)
	}
	return 0
}

// ReadInt32 reads a little-endian signed 32-bit value.
func (b *Buffer) ReadInt32(pc int) int32 {
	return int32(b.ReadU32(pc))
}

// ReadFloat32 reads a little-endian IEEE single.
func (b *Buffer) ReadFloat32(pc int) float32 {
	return math.Float32frombits(b.ReadU32(pc))
}

// ReadFloat64 reads a double stored as two little-endian words, high word
// first.
func (b *Buffer) ReadFloat64(pc int) float64 {
	if b.span(pc, 8) == nil {
		return 0
	}
	hi := uint64(b.ReadU32(pc))
	lo := uint64(b.ReadU32(pc + 4))
	return math.Float64frombits(hi<<32 | lo)
}

// ReadString reads a NUL-terminated string starting at pc. The terminator
// must appear before limit (clamped to the buffer size). It returns the
// string and the offset just past the terminator. A missing terminator
// yields the bytes up to limit and a MalformedError.
func (b *Buffer) ReadString(pc, limit int) (string, int, error) {
	if limit > len(b.code) || limit < 0 {
		limit = len(b.code)
	}
	if pc < 0 || pc >= limit {
		return "", limit, &MalformedError{PC: pc, Reason: "string starts outside its payload"}
	}
	for i := pc; i < limit; i++ {
		if b.code[i] == 0 {
			return string(b.code[pc:i]), i + 1, nil
		}
	}
	return string(b.code[pc:limit]), limit, &MalformedError{PC: pc, Reason: "string has no terminator"}
}

// ============================================================================
// Dictionary
// ============================================================================

// Dictionary returns entry i of the initial dictionary. An out-of-range
// index is logged and yields the empty string.
func (b *Buffer) Dictionary(i int) string {
	s, ok := b.LookupDictionary(i)
	if !ok {
		log.Warningf("%s: dictionary index %d out of range (size %d)", b.label(), i, len(b.dict))
	}
	return s
}

// LookupDictionary is Dictionary without the log line.
func (b *Buffer) LookupDictionary(i int) (string, bool) {
	if i < 0 || i >= len(b.dict) {
		return "", false
	}
	return b.dict[i], true
}

// DictionaryLen returns the number of entries in the initial dictionary.
func (b *Buffer) DictionaryLen() int { return len(b.dict) }

// InitialDictionary returns the pool in effect before any ConstantPool runs.
func (b *Buffer) InitialDictionary() []string { return b.dict }

// PoolAt returns the pool declared by the ConstantPool opcode at pc.
func (b *Buffer) PoolAt(pc int) ([]string, bool) {
	p, ok := b.pools[pc]
	return p, ok
}

// MalformedError describes a decode problem. Decoders that return one still
// return a best-effort result.
type MalformedError struct {
	PC     int
	Reason string
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("malformed action at %d: %s", e.PC, e.Reason)
}
