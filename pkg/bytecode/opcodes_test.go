package bytecode

import (
	"strings"
	"testing"
)

func TestAllOpcodesHaveMetadata(t *testing.T) {
	for _, op := range AllOpcodes() {
		info := GetOpcodeInfo(op)
		if info.Name == "" || strings.HasPrefix(info.Name, "UNKNOWN") {
			t.Errorf("Opcode 0x%02X has no metadata", byte(op))
		}
	}
}

func TestOpcodeCount(t *testing.T) {
	if count := OpcodeCount(); count < 95 {
		t.Errorf("Expected at least 95 opcodes, got %d", count)
	}
}

func TestPayloadFormatMatchesHighBit(t *testing.T) {
	for _, op := range AllOpcodes() {
		info := GetOpcodeInfo(op)
		if op == OpCall {
			// Call carries an empty payload.
			continue
		}
		if got := info.Arg != ArgNone; got != op.HasPayload() {
			t.Errorf("%s: payload format %s but HasPayload = %v", op, info.Arg, op.HasPayload())
		}
	}
}

func TestOpcodeString(t *testing.T) {
	tests := []struct {
		op   Opcode
		want string
	}{
		{OpEnd, "End"},
		{OpAdd2, "Add2"},
		{OpPush, "Push"},
		{OpDefineFunction2, "DefineFunction2"},
		{OpTry, "Try"},
		{OpGotoFrame2, "GotoFrame2"},
		{Opcode(0x01), "UNKNOWN(0x01)"},
		{Opcode(0xEE), "UNKNOWN(0xEE)"},
	}
	for _, tt := range tests {
		if got := tt.op.String(); got != tt.want {
			t.Errorf("Opcode(0x%02X).String() = %q, want %q", byte(tt.op), got, tt.want)
		}
	}
}

func TestUnknownOpcodeKeepsStreamWalkable(t *testing.T) {
	if GetOpcodeInfo(Opcode(0xEE)).Arg != ArgHex {
		t.Error("unknown payload opcode should decode its payload as hex")
	}
	if GetOpcodeInfo(Opcode(0x01)).Arg != ArgNone {
		t.Error("unknown low opcode should have no payload")
	}
	if Opcode(0xEE).Known() || !OpPlay.Known() {
		t.Error("Known mismatch")
	}
}

func TestIsBranch(t *testing.T) {
	for _, op := range []Opcode{OpJump, OpIf} {
		if !op.IsBranch() {
			t.Errorf("%s.IsBranch() = false", op)
		}
	}
	for _, op := range []Opcode{OpWith, OpCall, OpTry, OpPush} {
		if op.IsBranch() {
			t.Errorf("%s.IsBranch() = true", op)
		}
	}
}

func TestMinStack(t *testing.T) {
	tests := []struct {
		op   Opcode
		want int
	}{
		{OpPlay, 0},
		{OpNot, 1},
		{OpAdd2, 2},
		{OpSetMember, 3},
		{OpCallMethod, 3},
		{OpIf, 1},
		{OpGetURL2, 2},
	}
	for _, tt := range tests {
		if got := GetOpcodeInfo(tt.op).MinStack; got != tt.want {
			t.Errorf("%s.MinStack = %d, want %d", tt.op, got, tt.want)
		}
	}
}
