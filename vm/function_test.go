package vm

import (
	"errors"
	"testing"

	"github.com/chazu/avm1/pkg/bytecode"
)

// call emits name(args...) leaving the result on the stack.
func call(a *bytecode.Assembler, name string, args ...bytecode.PushItem) *bytecode.Assembler {
	for i := len(args) - 1; i >= 0; i-- {
		a.Push(args[i])
	}
	return a.Push(bytecode.Int(int32(len(args))), bytecode.Str(name)).Op(bytecode.OpCallFunction)
}

func TestFunctionArgumentsAndReturn(t *testing.T) {
	h := newHarness(t, testOptions(6))
	a := bytecode.NewAssembler().
		DefineFunction("sub", []string{"a", "b"}, "end").
		Push(bytecode.Str("a")).Op(bytecode.OpGetVariable).
		Push(bytecode.Str("b")).Op(bytecode.OpGetVariable, bytecode.OpSubtract, bytecode.OpReturn).
		Label("end")
	call(a, "sub", bytecode.Num(10), bytecode.Num(4))
	setResult(a)
	h.mustRun(a)
	wantNumber(t, "r", h.rootVar("r"), 6)
}

func TestMissingArgumentsAreUndefined(t *testing.T) {
	h := newHarness(t, testOptions(6))
	a := bytecode.NewAssembler().
		DefineFunction("f", []string{"a", "b"}, "end").
		Push(bytecode.Str("b")).Op(bytecode.OpGetVariable, bytecode.OpTypeOf, bytecode.OpReturn).
		Label("end")
	call(a, "f", bytecode.Num(1))
	setResult(a)
	h.mustRun(a)
	wantString(t, "r", h.rootVar("r"), "undefined")
}

func TestArgumentsObject(t *testing.T) {
	h := newHarness(t, testOptions(6))
	a := bytecode.NewAssembler().
		DefineFunction("f", nil, "end").
		Push(bytecode.Str("arguments")).Op(bytecode.OpGetVariable).
		Push(bytecode.Str("length")).Op(bytecode.OpGetMember, bytecode.OpReturn).
		Label("end")
	call(a, "f", bytecode.Num(1), bytecode.Num(2), bytecode.Num(3))
	setResult(a)
	h.mustRun(a)
	wantNumber(t, "r", h.rootVar("r"), 3)
}

func TestLocalsDoNotLeak(t *testing.T) {
	h := newHarness(t, testOptions(6))
	a := bytecode.NewAssembler().
		DefineFunction("f", nil, "end").
		Push(bytecode.Str("tmp"), bytecode.Num(1)).Op(bytecode.OpDefineLocal).
		Push(bytecode.Str("tmp")).Op(bytecode.OpGetVariable, bytecode.OpReturn).
		Label("end")
	call(a, "f")
	setResult(a)
	h.mustRun(a)
	wantNumber(t, "r", h.rootVar("r"), 1)
	if !h.rootVar("tmp").IsUndefined() {
		t.Error("local leaked into the target")
	}
}

func TestLocalRegisterOutOfRangeLeavesGlobalBank(t *testing.T) {
	h := newHarness(t, testOptions(7))
	a := bytecode.NewAssembler().
		DefineFunction2("f", 2, 0, nil, "end").
		Push(bytecode.Num(42)).StoreRegister(2).Op(bytecode.OpPop).
		Push(bytecode.Str("seen"), bytecode.Reg(2)).Op(bytecode.OpTypeOf, bytecode.OpSetVariable).
		Push(bytecode.Num(1)).StoreRegister(1).Op(bytecode.OpReturn).
		Label("end")
	call(a, "f")
	setResult(a)
	h.mustRun(a)

	wantNumber(t, "r", h.rootVar("r"), 1)
	wantString(t, "seen", h.rootVar("seen"), "undefined")
	for i := 0; i < NumGlobalRegisters; i++ {
		if v := h.in.GlobalRegister(i); !v.IsUndefined() {
			t.Errorf("global register %d = %s", i, v)
		}
	}
	// One for the write, one for the read.
	if h.count(DiagMalformed) != 2 {
		t.Errorf("malformed diagnostics = %d, want 2", h.count(DiagMalformed))
	}
}

func TestFunction2Preloads(t *testing.T) {
	h := newHarness(t, testOptions(7))
	flags := bytecode.PreloadThis | bytecode.PreloadArguments | bytecode.PreloadGlobal
	args := []bytecode.FunctionArg{{Register: 4, Name: "x"}, {Register: 0, Name: "y"}}
	a := bytecode.NewAssembler().
		DefineFunction2("f", 5, flags, args, "end").
		// this, arguments and _global land in registers 1-3.
		Push(bytecode.Str("self"), bytecode.Reg(1)).Op(bytecode.OpSetVariable).
		Push(bytecode.Str("argc"), bytecode.Reg(2), bytecode.Str("length")).Op(bytecode.OpGetMember, bytecode.OpSetVariable).
		Push(bytecode.Str("g"), bytecode.Reg(3)).Op(bytecode.OpSetVariable).
		Push(bytecode.Reg(4), bytecode.Str("y")).Op(bytecode.OpGetVariable, bytecode.OpAdd2, bytecode.OpReturn).
		Label("end")
	call(a, "f", bytecode.Num(10), bytecode.Num(5))
	setResult(a)
	h.mustRun(a)

	wantNumber(t, "r", h.rootVar("r"), 15)
	wantNumber(t, "argc", h.rootVar("argc"), 2)
	if h.rootVar("self").Object() != Object(h.host.root) {
		t.Errorf("self = %s, want _root", h.rootVar("self"))
	}
	if h.rootVar("g").Object() != Object(h.host.global) {
		t.Errorf("g = %s, want _global", h.rootVar("g"))
	}
}

func TestFunction2PreloadRegisterOrder(t *testing.T) {
	tests := []struct {
		name  string
		flags uint16
	}{
		// A suppressed this takes no register even when preloaded.
		{"suppressed this", bytecode.PreloadThis | bytecode.SuppressThis | bytecode.PreloadGlobal},
		// _root has no prototype, so there is no super to preload.
		{"no super", bytecode.PreloadSuper | bytecode.PreloadGlobal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, testOptions(7))
			a := bytecode.NewAssembler().
				DefineFunction2("f", 3, tt.flags, nil, "end").
				Push(bytecode.Reg(1)).Op(bytecode.OpReturn).
				Label("end")
			call(a, "f")
			setResult(a)
			h.mustRun(a)
			if got := h.rootVar("r"); got.Object() != Object(h.host.global) {
				t.Errorf("register 1 = %s, want _global", got)
			}
		})
	}
}

func TestSuppressThis(t *testing.T) {
	h := newHarness(t, testOptions(7))
	a := bytecode.NewAssembler().
		DefineFunction2("f", 1, bytecode.SuppressThis, nil, "end").
		Push(bytecode.Str("this")).Op(bytecode.OpGetVariable, bytecode.OpTypeOf, bytecode.OpReturn).
		Label("end")
	call(a, "f")
	setResult(a)
	h.mustRun(a)
	// Without a local binding, `this` falls back to the thread's this pointer.
	wantString(t, "r", h.rootVar("r"), "movieclip")
}

func TestClosureCapturesWithScope(t *testing.T) {
	h := newHarness(t, testOptions(6))
	o := NewObject()
	o.SetMember("k", String("captured"))
	h.host.root.SetMember("o", ObjectValue(o))

	a := bytecode.NewAssembler().
		Push(bytecode.Str("o")).Op(bytecode.OpGetVariable).With("wend").
		DefineFunction("get", nil, "fend").
		Push(bytecode.Str("k")).Op(bytecode.OpGetVariable, bytecode.OpReturn).
		Label("fend").
		Label("wend")
	call(a, "get")
	setResult(a)
	h.mustRun(a)
	wantString(t, "r", h.rootVar("r"), "captured")
}

func TestRecursionLimit(t *testing.T) {
	opts := testOptions(6)
	opts.RecursionLimit = 10
	h := newHarness(t, opts)
	a := bytecode.NewAssembler().DefineFunction("f", nil, "end")
	call(a, "f").Op(bytecode.OpReturn).Label("end")
	call(a, "f")
	setResult(a)

	err := h.run(a)
	if !errors.Is(err, ErrRecursionLimit) {
		t.Fatalf("err = %v, want recursion limit", err)
	}
	if h.in.CallDepth() != 0 {
		t.Errorf("call depth after abort = %d", h.in.CallDepth())
	}
	if !h.rootVar("r").IsUndefined() {
		t.Error("caller continued after the limit fired")
	}
}

func TestRecursionWithinLimit(t *testing.T) {
	h := newHarness(t, testOptions(6))
	// fact(n) = n < 2 ? 1 : n * fact(n - 1)
	a := bytecode.NewAssembler().
		DefineFunction("fact", []string{"n"}, "end").
		Push(bytecode.Str("n")).Op(bytecode.OpGetVariable).
		Push(bytecode.Num(2)).Op(bytecode.OpLess2).If("base").
		Push(bytecode.Str("n")).Op(bytecode.OpGetVariable).
		Push(bytecode.Str("n")).Op(bytecode.OpGetVariable).Push(bytecode.Num(1)).Op(bytecode.OpSubtract).
		Push(bytecode.Int(1), bytecode.Str("fact")).Op(bytecode.OpCallFunction, bytecode.OpMultiply, bytecode.OpReturn).
		Label("base").
		Push(bytecode.Num(1)).Op(bytecode.OpReturn).
		Label("end")
	call(a, "fact", bytecode.Num(5))
	setResult(a)
	h.mustRun(a)
	wantNumber(t, "r", h.rootVar("r"), 120)
}

// ---------------------------------------------------------------------------
// Objects and classes
// ---------------------------------------------------------------------------

func TestMethodCallBindsThis(t *testing.T) {
	h := newHarness(t, testOptions(6))
	o := NewObject()
	o.SetMember("v", Number(9))
	h.host.root.SetMember("o", ObjectValue(o))

	a := bytecode.NewAssembler().
		Push(bytecode.Str("o")).Op(bytecode.OpGetVariable).Push(bytecode.Str("get")).
		DefineFunction("", nil, "end").
		Push(bytecode.Str("this")).Op(bytecode.OpGetVariable).
		Push(bytecode.Str("v")).Op(bytecode.OpGetMember, bytecode.OpReturn).
		Label("end").
		Op(bytecode.OpSetMember).
		Push(bytecode.Int(0), bytecode.Str("o")).Op(bytecode.OpGetVariable).
		Push(bytecode.Str("get")).Op(bytecode.OpCallMethod)
	setResult(a)
	h.mustRun(a)
	wantNumber(t, "r", h.rootVar("r"), 9)
}

func TestNewObjectRunsConstructor(t *testing.T) {
	h := newHarness(t, testOptions(6))
	a := bytecode.NewAssembler().
		DefineFunction("Point", []string{"x"}, "end").
		Push(bytecode.Str("this")).Op(bytecode.OpGetVariable).
		Push(bytecode.Str("x"), bytecode.Str("x")).Op(bytecode.OpGetVariable, bytecode.OpSetMember).
		Label("end").
		Push(bytecode.Str("p"), bytecode.Num(3), bytecode.Int(1), bytecode.Str("Point")).Op(bytecode.OpNewObject, bytecode.OpSetVariable).
		// p instanceof Point
		Push(bytecode.Str("p")).Op(bytecode.OpGetVariable).
		Push(bytecode.Str("Point")).Op(bytecode.OpGetVariable, bytecode.OpInstanceOf)
	setResult(a)
	h.mustRun(a)

	p := h.rootVar("p").Object()
	if p == nil {
		t.Fatal("p is not an object")
	}
	x, _ := p.GetMember("x")
	wantNumber(t, "p.x", x, 3)
	if r := h.rootVar("r"); r.Kind() != KindBool || !r.RawBool() {
		t.Errorf("p instanceof Point = %s", r)
	}
}

func TestExtendsAndSuper(t *testing.T) {
	h := newHarness(t, testOptions(6))
	a := bytecode.NewAssembler().
		// function Base() { this.base = 1 }
		DefineFunction("Base", nil, "bend").
		Push(bytecode.Str("this")).Op(bytecode.OpGetVariable).
		Push(bytecode.Str("base"), bytecode.Num(1)).Op(bytecode.OpSetMember).
		Label("bend").
		// function Sub() { super() }
		DefineFunction("Sub", nil, "send").
		Push(bytecode.Int(0), bytecode.Str("super")).Op(bytecode.OpCallFunction, bytecode.OpPop).
		Label("send").
		Push(bytecode.Str("Sub")).Op(bytecode.OpGetVariable).
		Push(bytecode.Str("Base")).Op(bytecode.OpGetVariable, bytecode.OpExtends).
		Push(bytecode.Str("s"), bytecode.Int(0), bytecode.Str("Sub")).Op(bytecode.OpNewObject, bytecode.OpSetVariable).
		Push(bytecode.Str("s")).Op(bytecode.OpGetVariable).
		Push(bytecode.Str("Base")).Op(bytecode.OpGetVariable, bytecode.OpInstanceOf)
	setResult(a)
	h.mustRun(a)

	if r := h.rootVar("r"); !r.RawBool() {
		t.Errorf("s instanceof Base = %s", r)
	}
	s := h.rootVar("s").Object()
	if s == nil {
		t.Fatal("s is not an object")
	}
	b, _ := s.GetMember("base")
	wantNumber(t, "s.base", b, 1)
}

func TestImplementsOpAndCast(t *testing.T) {
	h := newHarness(t, testOptions(7))
	a := bytecode.NewAssembler().
		DefineFunction("I", nil, "iend").Label("iend").
		DefineFunction("C", nil, "cend").Label("cend").
		// C implements I
		Push(bytecode.Str("I")).Op(bytecode.OpGetVariable).
		Push(bytecode.Int(1), bytecode.Str("C")).Op(bytecode.OpGetVariable, bytecode.OpImplementsOp).
		Push(bytecode.Str("c"), bytecode.Int(0), bytecode.Str("C")).Op(bytecode.OpNewObject, bytecode.OpSetVariable).
		Push(bytecode.Str("isI"), bytecode.Str("c")).Op(bytecode.OpGetVariable).
		Push(bytecode.Str("I")).Op(bytecode.OpGetVariable, bytecode.OpInstanceOf, bytecode.OpSetVariable).
		// cast to an unrelated constructor yields null
		Push(bytecode.Str("cast")).
		DefineFunction("", nil, "uend").Label("uend").
		Push(bytecode.Str("c")).Op(bytecode.OpGetVariable, bytecode.OpCastOp, bytecode.OpSetVariable)
	h.mustRun(a)

	if r := h.rootVar("isI"); !r.RawBool() {
		t.Errorf("c instanceof I = %s", r)
	}
	if r := h.rootVar("cast"); !r.IsNull() {
		t.Errorf("cast = %s, want null", r)
	}
}

func TestCallingNonFunctionIsReported(t *testing.T) {
	h := newHarness(t, testOptions(6))
	a := call(bytecode.NewAssembler(), "missing")
	setResult(a)
	h.mustRun(a)
	if !h.rootVar("r").IsUndefined() {
		t.Errorf("r = %s", h.rootVar("r"))
	}
	if h.count(DiagScriptError) == 0 {
		t.Error("expected a script-error diagnostic")
	}
}

func TestNativeFunction(t *testing.T) {
	h := newHarness(t, testOptions(6))
	var gotThis Object
	h.host.global.SetMember("twice", ObjectValue(NewNativeFunction("twice", func(in *Interpreter, this Object, args []Value) (Value, error) {
		gotThis = this
		return Number(args[0].ToNumber(6) * 2), nil
	})))
	a := call(bytecode.NewAssembler(), "twice", bytecode.Num(21))
	setResult(a)
	h.mustRun(a)
	wantNumber(t, "r", h.rootVar("r"), 42)
	if gotThis != Object(h.host.root) {
		t.Errorf("this = %v, want _root", gotThis)
	}
}

func TestInterpreterCall(t *testing.T) {
	h := newHarness(t, testOptions(6))
	a := bytecode.NewAssembler().
		DefineFunction("thrower", nil, "end").
		Push(bytecode.Str("bad")).Op(bytecode.OpThrow).
		Label("end")
	h.mustRun(a)

	_, err := h.in.Call(h.rootVar("thrower"), h.host.root)
	v, ok := IsUncaught(err)
	if !ok {
		t.Fatalf("err = %v", err)
	}
	wantString(t, "thrown", v, "bad")

	if _, err := h.in.Call(Number(1), nil); err == nil {
		t.Error("calling a number succeeded")
	}
}
