package stage

import (
	"testing"

	"github.com/chazu/avm1/pkg/bytecode"
	"github.com/chazu/avm1/vm"
)

// runRoot runs a on _level0 and returns the stage.
func runRoot(t *testing.T, a *bytecode.Assembler) *Stage {
	t.Helper()
	s, _ := newTestStage(t)
	if err := s.Interpreter().Exec(script(t, a), s.Root()); err != nil {
		t.Fatalf("Exec: %v", err)
	}
	return s
}

func rootVar(s *Stage, name string) vm.Value {
	v, _ := s.Root().GetMember(name)
	return v
}

func TestNativeConstructors(t *testing.T) {
	a := bytecode.NewAssembler().
		// r1 = new Array(1, 2, 3).join("-")
		Push(str("r1"), str("-"), num(1)).
		Push(num(3), num(2), num(1), num(3), str("Array")).Op(bytecode.OpNewObject).
		Push(str("join")).Op(bytecode.OpCallMethod, bytecode.OpSetVariable).
		// r2 = new String("ab").length
		Push(str("r2"), str("ab"), num(1), str("String")).Op(bytecode.OpNewObject).
		Push(str("length")).Op(bytecode.OpGetMember, bytecode.OpSetVariable).
		// r3 = String(5)
		Push(str("r3"), num(5), num(1), str("String")).Op(bytecode.OpCallFunction, bytecode.OpSetVariable).
		// r4 = typeof new Number(2)
		Push(str("r4"), num(2), num(1), str("Number")).Op(bytecode.OpNewObject, bytecode.OpTypeOf, bytecode.OpSetVariable).
		// r5 = new Number(2) + 1
		Push(str("r5"), num(2), num(1), str("Number")).Op(bytecode.OpNewObject).
		Push(num(1)).Op(bytecode.OpAdd2, bytecode.OpSetVariable)

	s := runRoot(t, a)
	tests := []struct {
		name string
		want vm.Value
	}{
		{"r1", vm.String("1-2-3")},
		{"r2", vm.Number(2)},
		{"r3", vm.String("5")},
		{"r4", vm.String("object")},
		{"r5", vm.Number(3)},
	}
	for _, tt := range tests {
		got := rootVar(s, tt.name)
		if got.Kind() != tt.want.Kind() || got.ToString(7) != tt.want.ToString(7) {
			t.Errorf("%s = %s, want %s", tt.name, got, tt.want)
		}
	}
}

func TestErrorInstances(t *testing.T) {
	a := bytecode.NewAssembler().
		Push(str("e"), str("bad"), num(1), str("Error")).Op(bytecode.OpNewObject, bytecode.OpSetVariable).
		Push(str("msg"), str("e")).Op(bytecode.OpGetVariable).
		Push(str("message")).Op(bytecode.OpGetMember, bytecode.OpSetVariable).
		Push(str("isErr"), str("e")).Op(bytecode.OpGetVariable).
		Push(str("Error")).Op(bytecode.OpGetVariable, bytecode.OpInstanceOf, bytecode.OpSetVariable).
		Push(str("isObj"), str("e")).Op(bytecode.OpGetVariable).
		Push(str("Object")).Op(bytecode.OpGetVariable, bytecode.OpInstanceOf, bytecode.OpSetVariable).
		Push(str("asText"), str("e")).Op(bytecode.OpGetVariable).
		Push(str("")).Op(bytecode.OpAdd2, bytecode.OpSetVariable)

	s := runRoot(t, a)
	if v := rootVar(s, "msg"); v.RawString() != "bad" {
		t.Errorf("message = %s", v)
	}
	if v := rootVar(s, "isErr"); !v.RawBool() {
		t.Errorf("e instanceof Error = %s", v)
	}
	if v := rootVar(s, "isObj"); !v.RawBool() {
		t.Errorf("e instanceof Object = %s", v)
	}
	if v := rootVar(s, "asText"); v.RawString() != "bad" {
		t.Errorf("e + \"\" = %s", v)
	}
}

func TestFunctionCallAndApply(t *testing.T) {
	a := bytecode.NewAssembler().
		DefineFunction("f", []string{"k"}, "end").
		Push(str("this")).Op(bytecode.OpGetVariable).
		Push(str("v")).Op(bytecode.OpGetMember).
		Push(str("k")).Op(bytecode.OpGetVariable, bytecode.OpAdd2, bytecode.OpReturn).
		Label("end").
		Push(str("o"), num(0), str("Object")).Op(bytecode.OpNewObject, bytecode.OpSetVariable).
		Push(str("o")).Op(bytecode.OpGetVariable).
		Push(str("v"), num(7)).Op(bytecode.OpSetMember).
		// viaCall = f.call(o, 1)
		Push(str("viaCall"), num(1), str("o")).Op(bytecode.OpGetVariable).
		Push(num(2), str("f")).Op(bytecode.OpGetVariable).
		Push(str("call")).Op(bytecode.OpCallMethod, bytecode.OpSetVariable).
		// viaApply = f.apply(o, [10])
		Push(str("viaApply"), num(10), num(1)).Op(bytecode.OpInitArray).
		Push(str("o")).Op(bytecode.OpGetVariable).
		Push(num(2), str("f")).Op(bytecode.OpGetVariable).
		Push(str("apply")).Op(bytecode.OpCallMethod, bytecode.OpSetVariable)

	s := runRoot(t, a)
	if v := rootVar(s, "viaCall"); v.ToNumber(6) != 8 {
		t.Errorf("viaCall = %s", v)
	}
	if v := rootVar(s, "viaApply"); v.ToNumber(6) != 17 {
		t.Errorf("viaApply = %s", v)
	}
}

func TestArrayMethods(t *testing.T) {
	s, _ := newTestStage(t)
	in := s.Interpreter()
	arr, err := in.Call(rootGlobal(s, "Array"), nil, vm.Number(1), vm.Number(2))
	if err != nil {
		t.Fatal(err)
	}
	obj := arr.Object()
	push, _ := obj.GetMember("push")
	if n, err := in.Call(push, obj, vm.String("x")); err != nil || n.RawNumber() != 3 {
		t.Fatalf("push = %s, %v", n, err)
	}
	pop, _ := obj.GetMember("pop")
	if v, _ := in.Call(pop, obj); v.RawString() != "x" {
		t.Errorf("pop = %s", v)
	}
	if got := vm.ArrayValues(obj); len(got) != 2 {
		t.Errorf("values = %v", got)
	}

	sized, _ := in.Call(rootGlobal(s, "Array"), nil, vm.Number(4))
	if l, _ := sized.Object().GetMember("length"); l.RawNumber() != 4 {
		t.Errorf("new Array(4).length = %s", l)
	}
}

func TestStringMethods(t *testing.T) {
	s, _ := newTestStage(t)
	in := s.Interpreter()
	boxed := vm.Box(vm.String("héllo"), s.proto("String"))
	tests := []struct {
		method string
		args   []vm.Value
		want   string
	}{
		{"toUpperCase", nil, "HÉLLO"},
		{"charAt", []vm.Value{vm.Number(1)}, "é"},
		{"charAt", []vm.Value{vm.Number(9)}, ""},
		{"indexOf", []vm.Value{vm.String("l")}, "2"},
		{"indexOf", []vm.Value{vm.String("z")}, "-1"},
		{"toString", nil, "héllo"},
	}
	for _, tt := range tests {
		fn, _ := boxed.GetMember(tt.method)
		got, err := in.Call(fn, boxed, tt.args...)
		if err != nil {
			t.Fatalf("%s: %v", tt.method, err)
		}
		if got.ToString(7) != tt.want {
			t.Errorf("%s(%v) = %s, want %q", tt.method, tt.args, got, tt.want)
		}
	}
}

func TestNumberToStringRadix(t *testing.T) {
	s, _ := newTestStage(t)
	boxed := vm.Box(vm.Number(255), s.proto("Number"))
	fn, _ := boxed.GetMember("toString")
	got, err := s.Interpreter().Call(fn, boxed, vm.Number(16))
	if err != nil || got.RawString() != "ff" {
		t.Errorf("(255).toString(16) = %s, %v", got, err)
	}
}

func TestHasOwnProperty(t *testing.T) {
	s, _ := newTestStage(t)
	obj := vm.NewObjectWithProto(s.proto("Object"))
	obj.SetMember("own", vm.Number(1))
	fn, _ := obj.GetMember("hasOwnProperty")
	for name, want := range map[string]bool{"own": true, "toString": false} {
		got, _ := s.Interpreter().Call(fn, obj, vm.String(name))
		if got.RawBool() != want {
			t.Errorf("hasOwnProperty(%q) = %s", name, got)
		}
	}
}

func rootGlobal(s *Stage, name string) vm.Value {
	v, _ := s.Global().GetMember(name)
	return v
}
