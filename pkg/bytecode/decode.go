package bytecode

import "fmt"

// PushType is the tag of one Push entry.
type PushType uint8

const (
	PushString    PushType = 0
	PushFloat     PushType = 1
	PushNull      PushType = 2
	PushUndefined PushType = 3
	PushRegister  PushType = 4
	PushBool      PushType = 5
	PushDouble    PushType = 6
	PushInt       PushType = 7
	PushDict8     PushType = 8
	PushDict16    PushType = 9
)

func (t PushType) String() string {
	switch t {
	case PushString:
		return "string"
	case PushFloat:
		return "float"
	case PushNull:
		return "null"
	case PushUndefined:
		return "undefined"
	case PushRegister:
		return "register"
	case PushBool:
		return "bool"
	case PushDouble:
		return "double"
	case PushInt:
		return "int"
	case PushDict8, PushDict16:
		return "dict"
	default:
		return fmt.Sprintf("PushType(%d)", t)
	}
}

// PushItem is one decoded Push entry. Only the field matching Type is set.
type PushItem struct {
	Type     PushType
	Str      string
	Num      float64
	Bool     bool
	Register uint8
	Index    uint16
}

// payload returns the [start, end) range of the payload of the opcode at pc,
// clamped to the buffer.
func (b *Buffer) payload(pc int) (int, int) {
	start := pc + 3
	end := start + b.PayloadLen(pc)
	if end > len(b.code) {
		end = len(b.code)
	}
	return start, end
}

// DecodePush decodes every entry of the Push at pc. Decoding stops at the
// first truncated or unknown entry.
func (b *Buffer) DecodePush(pc int) ([]PushItem, error) {
	i, end := b.payload(pc)
	var items []PushItem
	need := func(n int) bool { return i+n <= end }

	for i < end {
		t := PushType(b.code[i])
		i++
		item := PushItem{Type: t}
		switch t {
		case PushString:
			s, next, err := b.ReadString(i, end)
			if err != nil {
				return items, err
			}
			item.Str = s
			i = next
		case PushFloat:
			if !need(4) {
				return items, &MalformedError{PC: i, Reason: "truncated float"}
			}
			item.Num = float64(b.ReadFloat32(i))
			i += 4
		case PushNull, PushUndefined:
		case PushRegister, PushBool, PushDict8:
			if !need(1) {
				return items, &MalformedError{PC: i, Reason: "truncated " + t.String()}
			}
			v := b.code[i]
			item.Register = v
			item.Bool = v != 0
			item.Index = uint16(v)
			i++
		case PushDouble:
			if !need(8) {
				return items, &MalformedError{PC: i, Reason: "truncated double"}
			}
			item.Num = b.ReadFloat64(i)
			i += 8
		case PushInt:
			if !need(4) {
				return items, &MalformedError{PC: i, Reason: "truncated int"}
			}
			item.Num = float64(b.ReadInt32(i))
			i += 4
		case PushDict16:
			if !need(2) {
				return items, &MalformedError{PC: i, Reason: "truncated dictionary index"}
			}
			item.Index = b.ReadU16(i)
			i += 2
		default:
			return items, &MalformedError{PC: i - 1, Reason: fmt.Sprintf("unknown push type %d", t)}
		}
		items = append(items, item)
	}
	return items, nil
}

// DecodeConstantPool decodes the ConstantPool at pc.
func (b *Buffer) DecodeConstantPool(pc int) ([]string, error) {
	i, end := b.payload(pc)
	if i+2 > end {
		return nil, &MalformedError{PC: pc, Reason: "constant pool without count"}
	}
	count := int(b.ReadU16(i))
	i += 2
	pool := make([]string, 0, count)
	for n := 0; n < count; n++ {
		s, next, err := b.ReadString(i, end)
		if err != nil {
			return pool, &MalformedError{PC: pc, Reason: fmt.Sprintf("constant pool declares %d entries, payload holds %d", count, n)}
		}
		pool = append(pool, s)
		i = next
	}
	return pool, nil
}

// Function2 flags.
const (
	PreloadThis       uint16 = 0x0001
	SuppressThis      uint16 = 0x0002
	PreloadArguments  uint16 = 0x0004
	SuppressArguments uint16 = 0x0008
	PreloadSuper      uint16 = 0x0010
	SuppressSuper     uint16 = 0x0020
	PreloadRoot       uint16 = 0x0040
	PreloadParent     uint16 = 0x0080
	PreloadGlobal     uint16 = 0x0100
)

// FunctionArg is one declared argument. Register 0 means "not in a register".
type FunctionArg struct {
	Register uint8
	Name     string
}

// FunctionHeader is the decoded header of DefineFunction or DefineFunction2.
type FunctionHeader struct {
	Name          string
	Args          []FunctionArg
	V2            bool
	RegisterCount uint8
	Flags         uint16

	// BodyStart is the offset of the first opcode of the body; BodyEnd is
	// one past its last byte.
	BodyStart int
	BodyEnd   int
}

// DecodeFunction decodes a DefineFunction or DefineFunction2 header at pc.
// A body length that runs past the buffer is clamped and reported.
func (b *Buffer) DecodeFunction(pc int) (FunctionHeader, error) {
	op := b.Opcode(pc)
	i, end := b.payload(pc)
	h := FunctionHeader{V2: op == OpDefineFunction2}
	h.BodyStart = b.NextPC(pc)
	h.BodyEnd = h.BodyStart
	truncated := &MalformedError{PC: pc, Reason: "truncated function header"}

	name, next, err := b.ReadString(i, end)
	if err != nil {
		return h, err
	}
	h.Name, i = name, next

	if i+2 > end {
		return h, truncated
	}
	nargs := int(b.ReadU16(i))
	i += 2

	if h.V2 {
		if i+3 > end {
			return h, truncated
		}
		h.RegisterCount = b.code[i]
		h.Flags = b.ReadU16(i + 1)
		i += 3
	}

	for n := 0; n < nargs; n++ {
		var arg FunctionArg
		if h.V2 {
			if i >= end {
				return h, truncated
			}
			arg.Register = b.code[i]
			i++
		}
		arg.Name, i, err = b.ReadString(i, end)
		if err != nil {
			return h, err
		}
		h.Args = append(h.Args, arg)
	}

	if i+2 > end {
		return h, truncated
	}
	size := int(b.ReadU16(i))
	h.BodyEnd = h.BodyStart + size
	if h.BodyEnd > len(b.code) {
		h.BodyEnd = len(b.code)
		return h, &MalformedError{PC: pc, Reason: fmt.Sprintf("function body of %d bytes overflows buffer, clamped to %d", size, h.BodyEnd-h.BodyStart)}
	}
	return h, nil
}

// Try flags.
const (
	TryHasCatch        uint8 = 0x01
	TryHasFinally      uint8 = 0x02
	TryCatchInRegister uint8 = 0x04
)

// TryHeader is the decoded header of a Try action.
type TryHeader struct {
	Flags         uint8
	TrySize       int
	CatchSize     int
	FinallySize   int
	CatchName     string
	CatchRegister uint8
	BodyStart     int
}

func (h TryHeader) HasCatch() bool        { return h.Flags&TryHasCatch != 0 }
func (h TryHeader) HasFinally() bool      { return h.Flags&TryHasFinally != 0 }
func (h TryHeader) CatchInRegister() bool { return h.Flags&TryCatchInRegister != 0 }

// CatchPC returns the offset of the first catch opcode.
func (h TryHeader) CatchPC() int { return h.BodyStart + h.TrySize }

// FinallyPC returns the offset of the first finally opcode.
func (h TryHeader) FinallyPC() int { return h.CatchPC() + h.CatchSize }

// AfterPC returns the offset following the whole construct.
func (h TryHeader) AfterPC() int { return h.FinallyPC() + h.FinallySize }

// DecodeTry decodes the Try at pc. Sizes of absent blocks are forced to 0.
func (b *Buffer) DecodeTry(pc int) (TryHeader, error) {
	i, end := b.payload(pc)
	h := TryHeader{BodyStart: b.NextPC(pc)}
	if i+7 > end {
		return h, &MalformedError{PC: pc, Reason: "truncated try header"}
	}
	h.Flags = b.code[i]
	h.TrySize = int(b.ReadU16(i + 1))
	h.CatchSize = int(b.ReadU16(i + 3))
	h.FinallySize = int(b.ReadU16(i + 5))
	i += 7
	if !h.HasCatch() {
		h.CatchSize = 0
	}
	if !h.HasFinally() {
		h.FinallySize = 0
	}
	if h.CatchInRegister() {
		if i >= end {
			return h, &MalformedError{PC: pc, Reason: "try without catch register"}
		}
		h.CatchRegister = b.code[i]
		return h, nil
	}
	if i >= end && !h.HasCatch() {
		return h, nil
	}
	name, _, err := b.ReadString(i, end)
	h.CatchName = name
	return h, err
}

// DecodeGetURL decodes the url and target strings of a GetURL at pc.
func (b *Buffer) DecodeGetURL(pc int) (url, target string, err error) {
	i, end := b.payload(pc)
	url, i, err = b.ReadString(i, end)
	if err != nil {
		return url, "", err
	}
	target, _, err = b.ReadString(i, end)
	return url, target, err
}

// DecodeString decodes a payload consisting of a single string.
func (b *Buffer) DecodeString(pc int) (string, error) {
	i, end := b.payload(pc)
	s, _, err := b.ReadString(i, end)
	return s, err
}
