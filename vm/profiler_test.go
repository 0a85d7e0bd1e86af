package vm

import (
	"testing"

	"github.com/chazu/avm1/pkg/bytecode"
)

func TestProfilerCountsOpcodes(t *testing.T) {
	h := newHarness(t, testOptions(6))
	h.in.Profiler = NewProfiler()
	h.mustRun(bytecode.NewAssembler().
		Push(num(1), num(2)).Op(bytecode.OpAdd2).
		Push(num(3)).Op(bytecode.OpAdd2, bytecode.OpPop))

	p := h.in.Profiler
	if got := p.OpCount(bytecode.OpAdd2); got != 2 {
		t.Errorf("Add2 count = %d", got)
	}
	if got := p.TotalOps(); got != 5 {
		t.Errorf("TotalOps = %d", got)
	}
	top := p.TopOps(1)
	if len(top) != 1 || top[0].Op != bytecode.OpAdd2 || top[0].Count != 2 {
		t.Errorf("TopOps(1) = %v", top)
	}

	p.Reset()
	if p.TotalOps() != 0 {
		t.Error("Reset kept counters")
	}
}

func TestProfilerHotFunctions(t *testing.T) {
	h := newHarness(t, testOptions(6))
	prof := NewProfiler()
	prof.HotThreshold = 3
	var hot []string
	prof.OnHot = func(_ *Function, fp *FunctionProfile) { hot = append(hot, fp.Name) }
	h.in.Profiler = prof

	a := bytecode.NewAssembler().
		DefineFunction("f", nil, "end").
		Label("end")
	for i := 0; i < 4; i++ {
		a.Push(num(0), str("f")).Op(bytecode.OpCallFunction, bytecode.OpPop)
	}
	h.mustRun(a)

	f, _ := h.rootVar("f").Callable().(*Function)
	fp := prof.FunctionProfile(f)
	if fp == nil || fp.Calls != 4 || !fp.IsHot {
		t.Fatalf("profile = %+v", fp)
	}
	if len(hot) != 1 || hot[0] != "f" {
		t.Errorf("OnHot calls = %v", hot)
	}
	if prof.HotFunctionCount() != 1 {
		t.Errorf("HotFunctionCount = %d", prof.HotFunctionCount())
	}
}
