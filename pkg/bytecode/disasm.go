package bytecode

import (
	"fmt"
	"strconv"
	"strings"
)

// DisasmOptions controls listing output.
type DisasmOptions struct {
	Color bool // wrap mnemonics and operands in ANSI colors
}

const (
	ansiReset  = "\x1b[0m"
	ansiOp     = "\x1b[36m"
	ansiLabel  = "\x1b[33m"
	ansiString = "\x1b[32m"
)

// Disassemble returns a human-readable listing of the whole buffer.
func (b *Buffer) Disassemble() string {
	return b.DisassembleWith(DisasmOptions{})
}

// DisassembleWith returns a listing formatted according to opts.
func (b *Buffer) DisassembleWith(opts DisasmOptions) string {
	var sb strings.Builder

	// Header
	if b.name != "" {
		sb.WriteString(fmt.Sprintf("; === %s ===\n", b.name))
	}
	if b.version != 0 {
		sb.WriteString(fmt.Sprintf("; SWF version %d\n", b.version))
	}
	sb.WriteString(fmt.Sprintf("; %d bytes\n", len(b.code)))

	if len(b.dict) > 0 {
		sb.WriteString("; Dictionary:\n")
		for i, s := range b.dict {
			sb.WriteString(fmt.Sprintf(";   [%3d] %s\n", i, quote(s)))
		}
	}
	sb.WriteString("\n")

	for pc := 0; pc < len(b.code); {
		line, next := b.DisassembleInstruction(pc)
		if opts.Color {
			line = colorize(line)
		}
		sb.WriteString(fmt.Sprintf("%04X  %s\n", pc, line))
		if next <= pc {
			break
		}
		pc = next
	}
	return sb.String()
}

// DisassembleToLines returns one entry per instruction.
func (b *Buffer) DisassembleToLines() []string {
	var lines []string
	for pc := 0; pc < len(b.code); {
		line, next := b.DisassembleInstruction(pc)
		lines = append(lines, line)
		if next <= pc {
			break
		}
		pc = next
	}
	return lines
}

// DisassembleInstruction formats the opcode at pc and returns the offset of
// the next one.
func (b *Buffer) DisassembleInstruction(pc int) (string, int) {
	if pc >= len(b.code) {
		return "<end of code>", pc
	}
	op := b.Opcode(pc)
	info := GetOpcodeInfo(op)
	next := b.NextPC(pc)
	if !op.HasPayload() {
		return info.Name, next
	}
	if next > len(b.code) {
		return fmt.Sprintf("%s <payload of %d bytes overruns buffer>", info.Name, b.PayloadLen(pc)), len(b.code)
	}

	start, end := b.payload(pc)
	var operand string
	switch info.Arg {
	case ArgU8:
		operand = strconv.Itoa(int(b.ReadU8(start)))
	case ArgU16:
		operand = strconv.Itoa(int(b.ReadU16(start)))
		if op == OpWith {
			operand = fmt.Sprintf("%s -> %04X", operand, next+int(b.ReadU16(start)))
		}
	case ArgS16:
		off := int(b.ReadS16(start))
		operand = fmt.Sprintf("%+d -> %04X", off, next+off)
	case ArgString:
		if op == OpGetURL {
			url, target, _ := b.DecodeGetURL(pc)
			operand = quote(url) + " " + quote(target)
		} else {
			s, _ := b.DecodeString(pc)
			operand = quote(s)
		}
	case ArgPushData:
		items, err := b.DecodePush(pc)
		parts := make([]string, 0, len(items))
		for _, it := range items {
			parts = append(parts, b.formatPushItem(it))
		}
		if err != nil {
			parts = append(parts, "<malformed>")
		}
		operand = strings.Join(parts, ", ")
	case ArgDictDecl:
		pool, _ := b.DecodeConstantPool(pc)
		parts := make([]string, len(pool))
		for i, s := range pool {
			parts[i] = quote(s)
		}
		operand = fmt.Sprintf("%d [%s]", len(pool), strings.Join(parts, ", "))
	case ArgFunction, ArgFunction2:
		h, err := b.DecodeFunction(pc)
		operand = formatFunction(h)
		if err != nil {
			operand += " <malformed>"
		}
	case ArgTry:
		h, _ := b.DecodeTry(pc)
		catch := quote(h.CatchName)
		if h.CatchInRegister() {
			catch = fmt.Sprintf("r%d", h.CatchRegister)
		}
		operand = fmt.Sprintf("flags=0x%02X catch=%s try=%04X catch=%04X finally=%04X end=%04X",
			h.Flags, catch, h.BodyStart, h.CatchPC(), h.FinallyPC(), h.AfterPC())
	default:
		var hex []string
		for i := start; i < end; i++ {
			hex = append(hex, fmt.Sprintf("%02X", b.code[i]))
		}
		operand = strings.Join(hex, " ")
	}
	if operand == "" {
		return info.Name, next
	}
	return info.Name + " " + operand, next
}

func (b *Buffer) formatPushItem(it PushItem) string {
	switch it.Type {
	case PushString:
		return quote(it.Str)
	case PushFloat, PushDouble, PushInt:
		return strconv.FormatFloat(it.Num, 'g', -1, 64)
	case PushNull:
		return "null"
	case PushUndefined:
		return "undefined"
	case PushRegister:
		return fmt.Sprintf("r%d", it.Register)
	case PushBool:
		return strconv.FormatBool(it.Bool)
	case PushDict8, PushDict16:
		if s, ok := b.LookupDictionary(int(it.Index)); ok {
			return fmt.Sprintf("c%d:%s", it.Index, quote(s))
		}
		return fmt.Sprintf("c%d", it.Index)
	}
	return "?"
}

func formatFunction(h FunctionHeader) string {
	args := make([]string, len(h.Args))
	for i, a := range h.Args {
		if h.V2 && a.Register != 0 {
			args[i] = fmt.Sprintf("r%d:%s", a.Register, a.Name)
		} else {
			args[i] = a.Name
		}
	}
	s := fmt.Sprintf("%s(%s)", quote(h.Name), strings.Join(args, ", "))
	if h.V2 {
		s += fmt.Sprintf(" regs=%d flags=0x%04X", h.RegisterCount, h.Flags)
	}
	return s + fmt.Sprintf(" body=%04X..%04X", h.BodyStart, h.BodyEnd)
}

// quote escapes a string for display, truncating long ones.
func quote(s string) string {
	if len(s) > 40 {
		s = s[:37] + "..."
	}
	return strconv.Quote(s)
}

func colorize(line string) string {
	name, rest, found := strings.Cut(line, " ")
	out := ansiOp + name + ansiReset
	if !found {
		return out
	}
	if strings.HasPrefix(rest, "\"") {
		return out + " " + ansiString + rest + ansiReset
	}
	if strings.Contains(rest, "->") {
		return out + " " + ansiLabel + rest + ansiReset
	}
	return out + " " + rest
}
