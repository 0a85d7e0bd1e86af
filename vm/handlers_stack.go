package vm

import "github.com/chazu/avm1/pkg/bytecode"

// ---------------------------------------------------------------------------
// Stack and register opcodes
// ---------------------------------------------------------------------------

func actionPush(t *Thread) {
	items, err := t.code.DecodePush(t.pc)
	t.malformed(err)
	for _, it := range items {
		t.env.Push(t.pushValue(it))
	}
}

// pushValue converts one Push entry to a value.
func (t *Thread) pushValue(it bytecode.PushItem) Value {
	switch it.Type {
	case bytecode.PushString:
		return String(t.decodeString(it.Str))
	case bytecode.PushFloat, bytecode.PushDouble, bytecode.PushInt:
		return Number(it.Num)
	case bytecode.PushNull:
		return Null()
	case bytecode.PushBool:
		return Bool(it.Bool)
	case bytecode.PushRegister:
		v, ok := t.env.Register(int(it.Register))
		if !ok {
			t.report(DiagMalformed, "register %d out of range", it.Register)
		}
		return v
	case bytecode.PushDict8, bytecode.PushDict16:
		i := int(it.Index)
		if i >= len(t.dict) {
			t.report(DiagMalformed, "dictionary index %d out of range (%d entries)", i, len(t.dict))
			return Number(0)
		}
		return String(t.decodeString(t.dict[i]))
	}
	return Undefined()
}

func actionPop(t *Thread) {
	t.env.Pop()
}

func actionPushDuplicate(t *Thread) {
	t.env.Push(t.env.Top(0))
}

func actionStackSwap(t *Thread) {
	a, b := t.env.Top(0), t.env.Top(1)
	t.env.SetTop(0, b)
	t.env.SetTop(1, a)
}

// actionStoreRegister copies the top of the stack into a register without
// popping it.
func actionStoreRegister(t *Thread) {
	if t.payloadLen() < 1 {
		t.report(DiagMalformed, "StoreRegister without register index")
		return
	}
	r := int(t.code.ReadU8(t.payloadStart()))
	if !t.env.SetRegister(r, t.env.Top(0)) {
		t.report(DiagMalformed, "register %d out of range", r)
	}
}

// actionConstantPool makes the declared pool the thread's dictionary.
func actionConstantPool(t *Thread) {
	pool, ok := t.code.PoolAt(t.pc)
	if !ok {
		var err error
		pool, err = t.code.DecodeConstantPool(t.pc)
		t.malformed(err)
	}
	t.dict = pool
}
