package vm

import (
	"sort"

	"github.com/chazu/avm1/pkg/bytecode"
)

// Profiler counts executed opcodes and closure invocations. Attach one to
// Interpreter.Profiler; a nil profiler costs one branch per opcode.
//
// Like the interpreter it belongs to, a Profiler is not safe for
// concurrent use.
type Profiler struct {
	ops   [256]uint64
	calls map[*Function]*FunctionProfile

	// HotThreshold is the call count at which a function is reported hot.
	HotThreshold uint64

	// OnHot, if set, is called once per function when it turns hot.
	OnHot func(f *Function, p *FunctionProfile)

	hotCount int
}

// FunctionProfile holds the counters of one closure.
type FunctionProfile struct {
	Name  string
	Calls uint64
	IsHot bool
}

// OpCount pairs an opcode with its execution count.
type OpCount struct {
	Op    bytecode.Opcode
	Count uint64
}

// NewProfiler creates a profiler with the default hot threshold.
func NewProfiler() *Profiler {
	return &Profiler{
		calls:        make(map[*Function]*FunctionProfile),
		HotThreshold: 100,
	}
}

func (p *Profiler) recordOp(op bytecode.Opcode) {
	p.ops[op]++
}

// RecordCall increments the call count of f. It returns true if this call
// made f hot.
func (p *Profiler) RecordCall(f *Function) bool {
	if f == nil {
		return false
	}
	prof, ok := p.calls[f]
	if !ok {
		prof = &FunctionProfile{Name: nameOr(f.Name(), "<anonymous>")}
		p.calls[f] = prof
	}
	prof.Calls++
	if !prof.IsHot && p.HotThreshold > 0 && prof.Calls >= p.HotThreshold {
		prof.IsHot = true
		p.hotCount++
		if p.OnHot != nil {
			p.OnHot(f, prof)
		}
		return true
	}
	return false
}

// OpCount returns how many times op was dispatched.
func (p *Profiler) OpCount(op bytecode.Opcode) uint64 { return p.ops[op] }

// TopOps returns the n most executed opcodes, most frequent first. Ties
// are ordered by opcode.
func (p *Profiler) TopOps(n int) []OpCount {
	var out []OpCount
	for op, c := range p.ops {
		if c > 0 {
			out = append(out, OpCount{Op: bytecode.Opcode(op), Count: c})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Op < out[j].Op
	})
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// FunctionProfile returns the counters of f, or nil if f never ran.
func (p *Profiler) FunctionProfile(f *Function) *FunctionProfile {
	return p.calls[f]
}

// HotFunctionCount returns how many functions crossed the threshold.
func (p *Profiler) HotFunctionCount() int { return p.hotCount }

// TotalOps returns the number of dispatched opcodes.
func (p *Profiler) TotalOps() uint64 {
	var total uint64
	for _, c := range p.ops {
		total += c
	}
	return total
}

// Reset clears all counters.
func (p *Profiler) Reset() {
	p.ops = [256]uint64{}
	p.calls = make(map[*Function]*FunctionProfile)
	p.hotCount = 0
}
