package bytecode

import "fmt"

// Opcode is a single SWF action code.
// Codes with the high bit set carry a u16 little-endian payload length.
type Opcode byte

const (
	// ========================================================================
	// SWF3 timeline actions (0x00-0x09)
	// ========================================================================

	OpEnd           Opcode = 0x00 // End of action block
	OpNextFrame     Opcode = 0x04
	OpPrevFrame     Opcode = 0x05
	OpPlay          Opcode = 0x06
	OpStop          Opcode = 0x07
	OpToggleQuality Opcode = 0x08
	OpStopSounds    Opcode = 0x09

	// ========================================================================
	// SWF4 stack actions (0x0A-0x37)
	// ========================================================================

	OpAdd           Opcode = 0x0A // Numeric add
	OpSubtract      Opcode = 0x0B
	OpMultiply      Opcode = 0x0C
	OpDivide        Opcode = 0x0D
	OpEquals        Opcode = 0x0E // Numeric equality
	OpLess          Opcode = 0x0F // Numeric less-than
	OpAnd           Opcode = 0x10
	OpOr            Opcode = 0x11
	OpNot           Opcode = 0x12
	OpStringEquals  Opcode = 0x13
	OpStringLength  Opcode = 0x14
	OpStringExtract Opcode = 0x15 // substring(str, index, count)
	OpPop           Opcode = 0x17
	OpToInteger     Opcode = 0x18
	OpGetVariable   Opcode = 0x1C
	OpSetVariable   Opcode = 0x1D
	OpSetTarget2    Opcode = 0x20 // SetTarget with the path on the stack
	OpStringAdd     Opcode = 0x21
	OpGetProperty   Opcode = 0x22
	OpSetProperty   Opcode = 0x23
	OpCloneSprite   Opcode = 0x24
	OpRemoveSprite  Opcode = 0x25
	OpTrace         Opcode = 0x26
	OpStartDrag     Opcode = 0x27
	OpEndDrag       Opcode = 0x28
	OpStringLess    Opcode = 0x29
	OpThrow         Opcode = 0x2A
	OpCastOp        Opcode = 0x2B
	OpImplementsOp  Opcode = 0x2C
	OpFSCommand2    Opcode = 0x2D
	OpRandomNumber  Opcode = 0x30
	OpMBStringLength  Opcode = 0x31
	OpCharToAscii     Opcode = 0x32
	OpAsciiToChar     Opcode = 0x33
	OpGetTime         Opcode = 0x34
	OpMBStringExtract Opcode = 0x35
	OpMBCharToAscii   Opcode = 0x36
	OpMBAsciiToChar   Opcode = 0x37

	// ========================================================================
	// SWF5 object actions (0x3A-0x69)
	// ========================================================================

	OpDelete         Opcode = 0x3A // delete obj.member
	OpDelete2        Opcode = 0x3B // delete variable
	OpDefineLocal    Opcode = 0x3C // var name = value
	OpCallFunction   Opcode = 0x3D
	OpReturn         Opcode = 0x3E
	OpModulo         Opcode = 0x3F
	OpNewObject      Opcode = 0x40
	OpDefineLocal2   Opcode = 0x41 // var name
	OpInitArray      Opcode = 0x42
	OpInitObject     Opcode = 0x43
	OpTypeOf         Opcode = 0x44
	OpTargetPath     Opcode = 0x45
	OpEnumerate      Opcode = 0x46
	OpAdd2           Opcode = 0x47 // ECMA-style add
	OpLess2          Opcode = 0x48
	OpEquals2        Opcode = 0x49
	OpToNumber       Opcode = 0x4A
	OpToString       Opcode = 0x4B
	OpPushDuplicate  Opcode = 0x4C
	OpStackSwap      Opcode = 0x4D
	OpGetMember      Opcode = 0x4E
	OpSetMember      Opcode = 0x4F
	OpIncrement      Opcode = 0x50
	OpDecrement      Opcode = 0x51
	OpCallMethod     Opcode = 0x52
	OpNewMethod      Opcode = 0x53
	OpInstanceOf     Opcode = 0x54
	OpEnumerate2     Opcode = 0x55
	OpBitAnd         Opcode = 0x60
	OpBitOr          Opcode = 0x61
	OpBitXor         Opcode = 0x62
	OpBitLShift      Opcode = 0x63
	OpBitRShift      Opcode = 0x64
	OpBitURShift     Opcode = 0x65
	OpStrictEquals   Opcode = 0x66
	OpGreater        Opcode = 0x67
	OpStringGreater  Opcode = 0x68
	OpExtends        Opcode = 0x69

	// ========================================================================
	// Actions with payload (0x81-0x9F)
	// ========================================================================

	OpGotoFrame      Opcode = 0x81 // GotoFrame <frame:u16>
	OpGetURL         Opcode = 0x83 // GetURL <url:str> <target:str>
	OpStoreRegister  Opcode = 0x87 // StoreRegister <reg:u8>
	OpConstantPool   Opcode = 0x88 // ConstantPool <count:u16> <str>*
	OpWaitForFrame   Opcode = 0x8A // WaitForFrame <frame:u16> <skip:u8>
	OpSetTarget      Opcode = 0x8B // SetTarget <path:str>
	OpGotoLabel      Opcode = 0x8C // GotoLabel <label:str>
	OpWaitForFrame2  Opcode = 0x8D // WaitForFrame2 <skip:u8>
	OpDefineFunction2 Opcode = 0x8E
	OpTry            Opcode = 0x8F
	OpWith           Opcode = 0x94 // With <size:u16>
	OpPush           Opcode = 0x96
	OpJump           Opcode = 0x99 // Jump <offset:s16>
	OpGetURL2        Opcode = 0x9A // GetURL2 <method:u8>
	OpDefineFunction Opcode = 0x9B
	OpIf             Opcode = 0x9D // If <offset:s16>
	OpCall           Opcode = 0x9E // Call frame
	OpGotoFrame2     Opcode = 0x9F // GotoFrame2 <flags:u8> [<bias:u16>]
)

// ArgFormat describes how an opcode's payload is encoded.
type ArgFormat uint8

const (
	ArgNone ArgFormat = iota
	ArgString
	ArgHex
	ArgU8
	ArgU16
	ArgS16
	ArgPushData
	ArgDictDecl
	ArgFunction
	ArgFunction2
	ArgTry
)

var argFormatNames = [...]string{
	ArgNone:      "none",
	ArgString:    "string",
	ArgHex:       "hex",
	ArgU8:        "u8",
	ArgU16:       "u16",
	ArgS16:       "s16",
	ArgPushData:  "push-data",
	ArgDictDecl:  "dict-decl",
	ArgFunction:  "function-decl",
	ArgFunction2: "function2-decl",
	ArgTry:       "try",
}

func (f ArgFormat) String() string {
	if int(f) < len(argFormatNames) {
		return argFormatNames[f]
	}
	return fmt.Sprintf("ArgFormat(%d)", f)
}

// OpcodeInfo provides metadata about each opcode for decoding and validation.
type OpcodeInfo struct {
	Name     string    // Human-readable name
	Arg      ArgFormat // Payload encoding
	MinStack int       // Values that must be present before the handler runs
}

// opcodeInfoTable maps opcodes to their metadata.
var opcodeInfoTable = map[Opcode]OpcodeInfo{
	OpEnd:           {"End", ArgNone, 0},
	OpNextFrame:     {"NextFrame", ArgNone, 0},
	OpPrevFrame:     {"PrevFrame", ArgNone, 0},
	OpPlay:          {"Play", ArgNone, 0},
	OpStop:          {"Stop", ArgNone, 0},
	OpToggleQuality: {"ToggleQuality", ArgNone, 0},
	OpStopSounds:    {"StopSounds", ArgNone, 0},

	// Arithmetic and SWF4 comparisons
	OpAdd:           {"Add", ArgNone, 2},
	OpSubtract:      {"Subtract", ArgNone, 2},
	OpMultiply:      {"Multiply", ArgNone, 2},
	OpDivide:        {"Divide", ArgNone, 2},
	OpEquals:        {"Equals", ArgNone, 2},
	OpLess:          {"Less", ArgNone, 2},
	OpAnd:           {"And", ArgNone, 2},
	OpOr:            {"Or", ArgNone, 2},
	OpNot:           {"Not", ArgNone, 1},
	OpStringEquals:  {"StringEquals", ArgNone, 2},
	OpStringLength:  {"StringLength", ArgNone, 1},
	OpStringExtract: {"StringExtract", ArgNone, 3},
	OpPop:           {"Pop", ArgNone, 1},
	OpToInteger:     {"ToInteger", ArgNone, 1},
	OpGetVariable:   {"GetVariable", ArgNone, 1},
	OpSetVariable:   {"SetVariable", ArgNone, 2},
	OpSetTarget2:    {"SetTarget2", ArgNone, 1},
	OpStringAdd:     {"StringAdd", ArgNone, 2},
	OpGetProperty:   {"GetProperty", ArgNone, 2},
	OpSetProperty:   {"SetProperty", ArgNone, 3},
	OpCloneSprite:   {"CloneSprite", ArgNone, 3},
	OpRemoveSprite:  {"RemoveSprite", ArgNone, 1},
	OpTrace:         {"Trace", ArgNone, 1},
	OpStartDrag:     {"StartDrag", ArgNone, 3},
	OpEndDrag:       {"EndDrag", ArgNone, 0},
	OpStringLess:    {"StringLess", ArgNone, 2},
	OpThrow:         {"Throw", ArgNone, 1},
	OpCastOp:        {"CastOp", ArgNone, 2},
	OpImplementsOp:  {"ImplementsOp", ArgNone, 2},
	OpFSCommand2:    {"FSCommand2", ArgNone, 1},
	OpRandomNumber:  {"RandomNumber", ArgNone, 1},
	OpMBStringLength:  {"MBStringLength", ArgNone, 1},
	OpCharToAscii:     {"CharToAscii", ArgNone, 1},
	OpAsciiToChar:     {"AsciiToChar", ArgNone, 1},
	OpGetTime:         {"GetTime", ArgNone, 0},
	OpMBStringExtract: {"MBStringExtract", ArgNone, 3},
	OpMBCharToAscii:   {"MBCharToAscii", ArgNone, 1},
	OpMBAsciiToChar:   {"MBAsciiToChar", ArgNone, 1},

	// SWF5 objects
	OpDelete:        {"Delete", ArgNone, 2},
	OpDelete2:       {"Delete2", ArgNone, 1},
	OpDefineLocal:   {"DefineLocal", ArgNone, 2},
	OpCallFunction:  {"CallFunction", ArgNone, 2},
	OpReturn:        {"Return", ArgNone, 1},
	OpModulo:        {"Modulo", ArgNone, 2},
	OpNewObject:     {"NewObject", ArgNone, 2},
	OpDefineLocal2:  {"DefineLocal2", ArgNone, 1},
	OpInitArray:     {"InitArray", ArgNone, 1},
	OpInitObject:    {"InitObject", ArgNone, 1},
	OpTypeOf:        {"TypeOf", ArgNone, 1},
	OpTargetPath:    {"TargetPath", ArgNone, 1},
	OpEnumerate:     {"Enumerate", ArgNone, 1},
	OpAdd2:          {"Add2", ArgNone, 2},
	OpLess2:         {"Less2", ArgNone, 2},
	OpEquals2:       {"Equals2", ArgNone, 2},
	OpToNumber:      {"ToNumber", ArgNone, 1},
	OpToString:      {"ToString", ArgNone, 1},
	OpPushDuplicate: {"PushDuplicate", ArgNone, 1},
	OpStackSwap:     {"StackSwap", ArgNone, 2},
	OpGetMember:     {"GetMember", ArgNone, 2},
	OpSetMember:     {"SetMember", ArgNone, 3},
	OpIncrement:     {"Increment", ArgNone, 1},
	OpDecrement:     {"Decrement", ArgNone, 1},
	OpCallMethod:    {"CallMethod", ArgNone, 3},
	OpNewMethod:     {"NewMethod", ArgNone, 3},
	OpInstanceOf:    {"InstanceOf", ArgNone, 2},
	OpEnumerate2:    {"Enumerate2", ArgNone, 1},
	OpBitAnd:        {"BitAnd", ArgNone, 2},
	OpBitOr:         {"BitOr", ArgNone, 2},
	OpBitXor:        {"BitXor", ArgNone, 2},
	OpBitLShift:     {"BitLShift", ArgNone, 2},
	OpBitRShift:     {"BitRShift", ArgNone, 2},
	OpBitURShift:    {"BitURShift", ArgNone, 2},
	OpStrictEquals:  {"StrictEquals", ArgNone, 2},
	OpGreater:       {"Greater", ArgNone, 2},
	OpStringGreater: {"StringGreater", ArgNone, 2},
	OpExtends:       {"Extends", ArgNone, 2},

	// Payload-carrying actions
	OpGotoFrame:       {"GotoFrame", ArgU16, 0},
	OpGetURL:          {"GetURL", ArgString, 0},
	OpStoreRegister:   {"StoreRegister", ArgU8, 1},
	OpConstantPool:    {"ConstantPool", ArgDictDecl, 0},
	OpWaitForFrame:    {"WaitForFrame", ArgHex, 0},
	OpSetTarget:       {"SetTarget", ArgString, 0},
	OpGotoLabel:       {"GotoLabel", ArgString, 0},
	OpWaitForFrame2:   {"WaitForFrame2", ArgHex, 1},
	OpDefineFunction2: {"DefineFunction2", ArgFunction2, 0},
	OpTry:             {"Try", ArgTry, 0},
	OpWith:            {"With", ArgU16, 1},
	OpPush:            {"Push", ArgPushData, 0},
	OpJump:            {"Jump", ArgS16, 0},
	OpGetURL2:         {"GetURL2", ArgHex, 2},
	OpDefineFunction:  {"DefineFunction", ArgFunction, 0},
	OpIf:              {"If", ArgS16, 1},
	OpCall:            {"Call", ArgNone, 1},
	OpGotoFrame2:      {"GotoFrame2", ArgHex, 1},
}

// GetOpcodeInfo returns metadata for an opcode.
// Unknown opcodes get a name of the form "UNKNOWN(0xNN)" and a format
// derived from the high bit so the stream stays walkable.
func GetOpcodeInfo(op Opcode) OpcodeInfo {
	if info, ok := opcodeInfoTable[op]; ok {
		return info
	}
	arg := ArgNone
	if op.HasPayload() {
		arg = ArgHex
	}
	return OpcodeInfo{Name: fmt.Sprintf("UNKNOWN(0x%02X)", byte(op)), Arg: arg}
}

// Known reports whether op has a defined meaning.
func (op Opcode) Known() bool {
	_, ok := opcodeInfoTable[op]
	return ok
}

// String returns the human-readable name of an opcode.
func (op Opcode) String() string {
	return GetOpcodeInfo(op).Name
}

// HasPayload reports whether a u16 length and payload follow the opcode byte.
func (op Opcode) HasPayload() bool {
	return op&0x80 != 0
}

// IsBranch returns true for Jump and If.
func (op Opcode) IsBranch() bool {
	return op == OpJump || op == OpIf
}

// AllOpcodes returns a slice of all defined opcodes.
func AllOpcodes() []Opcode {
	opcodes := make([]Opcode, 0, len(opcodeInfoTable))
	for op := range opcodeInfoTable {
		opcodes = append(opcodes, op)
	}
	return opcodes
}

// OpcodeCount returns the number of defined opcodes.
func OpcodeCount() int {
	return len(opcodeInfoTable)
}
