package bytecode

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Assembler builds action streams with symbolic labels. Branch offsets and
// block sizes are patched by Assemble.
type Assembler struct {
	code   []byte
	labels map[string]int
	fixups []fixup
}

type fixup struct {
	at        int    // offset of the 2-byte field to patch
	base      int    // offset the value is relative to
	baseLabel string // overrides base when set
	label     string
	signed    bool
}

// NewAssembler creates an empty assembler.
func NewAssembler() *Assembler {
	return &Assembler{labels: make(map[string]int)}
}

// Offset returns the current emission offset.
func (a *Assembler) Offset() int { return len(a.code) }

// Label binds name to the current offset.
func (a *Assembler) Label(name string) *Assembler {
	a.labels[name] = len(a.code)
	return a
}

// Op emits an opcode without payload.
func (a *Assembler) Op(ops ...Opcode) *Assembler {
	for _, op := range ops {
		a.code = append(a.code, byte(op))
	}
	return a
}

// Raw emits an opcode with an explicit payload. The length prefix is
// written from len(payload).
func (a *Assembler) Raw(op Opcode, payload []byte) *Assembler {
	a.code = append(a.code, byte(op))
	a.code = binary.LittleEndian.AppendUint16(a.code, uint16(len(payload)))
	a.code = append(a.code, payload...)
	return a
}

// Bytes appends arbitrary bytes, for crafting malformed input.
func (a *Assembler) Bytes(raw ...byte) *Assembler {
	a.code = append(a.code, raw...)
	return a
}

// ============================================================================
// Push
// ============================================================================

// Str, Num and friends build PushItems for Push.
func Str(s string) PushItem { return PushItem{Type: PushString, Str: s} }
func Num(f float64) PushItem { return PushItem{Type: PushDouble, Num: f} }
func Float(f float32) PushItem { return PushItem{Type: PushFloat, Num: float64(f)} }
func Int(i int32) PushItem { return PushItem{Type: PushInt, Num: float64(i)} }
func Bool(v bool) PushItem { return PushItem{Type: PushBool, Bool: v} }
func Null() PushItem { return PushItem{Type: PushNull} }
func Undefined() PushItem { return PushItem{Type: PushUndefined} }
func Reg(r uint8) PushItem { return PushItem{Type: PushRegister, Register: r} }
func Const(i uint16) PushItem {
	if i <= 0xFF {
		return PushItem{Type: PushDict8, Index: i}
	}
	return PushItem{Type: PushDict16, Index: i}
}

// EncodePushItem appends the wire form of item to dst.
func EncodePushItem(dst []byte, item PushItem) []byte {
	dst = append(dst, byte(item.Type))
	switch item.Type {
	case PushString:
		dst = append(dst, item.Str...)
		dst = append(dst, 0)
	case PushFloat:
		dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(float32(item.Num)))
	case PushRegister:
		dst = append(dst, item.Register)
	case PushBool:
		if item.Bool {
			dst = append(dst, 1)
		} else {
			dst = append(dst, 0)
		}
	case PushDouble:
		bits := math.Float64bits(item.Num)
		dst = binary.LittleEndian.AppendUint32(dst, uint32(bits>>32))
		dst = binary.LittleEndian.AppendUint32(dst, uint32(bits))
	case PushInt:
		dst = binary.LittleEndian.AppendUint32(dst, uint32(int32(item.Num)))
	case PushDict8:
		dst = append(dst, byte(item.Index))
	case PushDict16:
		dst = binary.LittleEndian.AppendUint16(dst, item.Index)
	}
	return dst
}

// Push emits a single Push carrying all items.
func (a *Assembler) Push(items ...PushItem) *Assembler {
	var payload []byte
	for _, it := range items {
		payload = EncodePushItem(payload, it)
	}
	return a.Raw(OpPush, payload)
}

// ============================================================================
// Payload helpers
// ============================================================================

// ConstantPool emits a ConstantPool declaring strs.
func (a *Assembler) ConstantPool(strs ...string) *Assembler {
	payload := binary.LittleEndian.AppendUint16(nil, uint16(len(strs)))
	for _, s := range strs {
		payload = append(payload, s...)
		payload = append(payload, 0)
	}
	return a.Raw(OpConstantPool, payload)
}

// StoreRegister emits StoreRegister r.
func (a *Assembler) StoreRegister(r uint8) *Assembler {
	return a.Raw(OpStoreRegister, []byte{r})
}

// GotoFrame emits GotoFrame frame.
func (a *Assembler) GotoFrame(frame uint16) *Assembler {
	return a.Raw(OpGotoFrame, binary.LittleEndian.AppendUint16(nil, frame))
}

// StringOp emits an opcode whose payload is a single string.
func (a *Assembler) StringOp(op Opcode, s string) *Assembler {
	return a.Raw(op, append([]byte(s), 0))
}

// GetURL emits GetURL url target.
func (a *Assembler) GetURL(url, target string) *Assembler {
	payload := append([]byte(url), 0)
	payload = append(payload, target...)
	return a.Raw(OpGetURL, append(payload, 0))
}

// Jump emits a Jump to label.
func (a *Assembler) Jump(label string) *Assembler { return a.branch(OpJump, label) }

// If emits an If to label.
func (a *Assembler) If(label string) *Assembler { return a.branch(OpIf, label) }

// JumpOffset emits a Jump with a literal offset.
func (a *Assembler) JumpOffset(op Opcode, offset int16) *Assembler {
	return a.Raw(op, binary.LittleEndian.AppendUint16(nil, uint16(offset)))
}

func (a *Assembler) branch(op Opcode, label string) *Assembler {
	a.Raw(op, []byte{0, 0})
	at := len(a.code) - 2
	a.fixups = append(a.fixups, fixup{at: at, base: len(a.code), label: label, signed: true})
	return a
}

// With emits a With whose block ends at label.
func (a *Assembler) With(end string) *Assembler {
	a.Raw(OpWith, []byte{0, 0})
	at := len(a.code) - 2
	a.fixups = append(a.fixups, fixup{at: at, base: len(a.code), label: end})
	return a
}

// DefineFunction emits a v1 function header; the body runs until end.
func (a *Assembler) DefineFunction(name string, args []string, end string) *Assembler {
	payload := append([]byte(name), 0)
	payload = binary.LittleEndian.AppendUint16(payload, uint16(len(args)))
	for _, arg := range args {
		payload = append(payload, arg...)
		payload = append(payload, 0)
	}
	payload = append(payload, 0, 0)
	return a.sized(OpDefineFunction, payload, end)
}

// DefineFunction2 emits a v2 function header; the body runs until end.
func (a *Assembler) DefineFunction2(name string, registers uint8, flags uint16, args []FunctionArg, end string) *Assembler {
	payload := append([]byte(name), 0)
	payload = binary.LittleEndian.AppendUint16(payload, uint16(len(args)))
	payload = append(payload, registers)
	payload = binary.LittleEndian.AppendUint16(payload, flags)
	for _, arg := range args {
		payload = append(payload, arg.Register)
		payload = append(payload, arg.Name...)
		payload = append(payload, 0)
	}
	payload = append(payload, 0, 0)
	return a.sized(OpDefineFunction2, payload, end)
}

// sized emits op with payload whose last two bytes hold the distance from
// the end of the opcode to label.
func (a *Assembler) sized(op Opcode, payload []byte, end string) *Assembler {
	a.Raw(op, payload)
	a.fixups = append(a.fixups, fixup{at: len(a.code) - 2, base: len(a.code), label: end})
	return a
}

// TryBlock describes a Try in terms of labels. Catch and Finally are empty
// when the block is absent.
type TryBlock struct {
	CatchVar        string
	CatchInRegister bool
	CatchRegister   uint8
	Catch           string
	Finally         string
	End             string
}

// Try emits a Try header for blk. The try body starts right after it.
func (a *Assembler) Try(blk TryBlock) *Assembler {
	var flags uint8
	if blk.Catch != "" {
		flags |= TryHasCatch
	}
	if blk.Finally != "" {
		flags |= TryHasFinally
	}
	if blk.CatchInRegister {
		flags |= TryCatchInRegister
	}
	payload := []byte{flags, 0, 0, 0, 0, 0, 0}
	if blk.CatchInRegister {
		payload = append(payload, blk.CatchRegister)
	} else {
		payload = append(payload, blk.CatchVar...)
		payload = append(payload, 0)
	}
	a.Raw(OpTry, payload)
	hdr := len(a.code) - len(payload)
	body := len(a.code)

	tryEnd, catchEnd := blk.End, blk.End
	if blk.Finally != "" {
		tryEnd, catchEnd = blk.Finally, blk.Finally
	}
	if blk.Catch != "" {
		tryEnd = blk.Catch
		a.fixups = append(a.fixups, fixup{at: hdr + 3, baseLabel: blk.Catch, label: catchEnd})
	}
	a.fixups = append(a.fixups, fixup{at: hdr + 1, base: body, label: tryEnd})
	if blk.Finally != "" {
		a.fixups = append(a.fixups, fixup{at: hdr + 5, baseLabel: blk.Finally, label: blk.End})
	}
	return a
}

// Assemble resolves labels and returns the finished stream.
func (a *Assembler) Assemble() ([]byte, error) {
	out := append([]byte(nil), a.code...)
	for _, f := range a.fixups {
		target, ok := a.labels[f.label]
		if !ok {
			return nil, fmt.Errorf("undefined label %q", f.label)
		}
		base := f.base
		if f.baseLabel != "" {
			if base, ok = a.labels[f.baseLabel]; !ok {
				return nil, fmt.Errorf("undefined label %q", f.baseLabel)
			}
		}
		d := target - base
		if f.signed {
			if d < math.MinInt16 || d > math.MaxInt16 {
				return nil, fmt.Errorf("branch to %q out of range (%d)", f.label, d)
			}
		} else if d < 0 || d > math.MaxUint16 {
			return nil, fmt.Errorf("size to %q out of range (%d)", f.label, d)
		}
		binary.LittleEndian.PutUint16(out[f.at:], uint16(d))
	}
	return out, nil
}

// Buffer assembles and wraps the result in a Buffer.
func (a *Assembler) Buffer(opts ...BufferOption) (*Buffer, error) {
	code, err := a.Assemble()
	if err != nil {
		return nil, err
	}
	return NewBuffer(code, opts...), nil
}

// MustBuffer is Buffer that panics on error. Intended for tests and fixtures.
func (a *Assembler) MustBuffer(opts ...BufferOption) *Buffer {
	b, err := a.Buffer(opts...)
	if err != nil {
		panic(err)
	}
	return b
}
