package vm

import (
	"fmt"

	"github.com/chazu/avm1/pkg/bytecode"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("avm.vm")

// DiagnosticKind classifies a logged condition.
type DiagnosticKind uint8

const (
	DiagStackUnderflow DiagnosticKind = iota
	DiagMalformed
	DiagUnsupported
	DiagScriptError   // script misuse: calling a non-function, bad member target
	DiagWithOverflow  // with-stack deeper than the version allows
	DiagUncaught
	DiagLimit
	DiagTargetUnloaded
)

var diagnosticNames = [...]string{
	DiagStackUnderflow: "stack-underflow",
	DiagMalformed:      "malformed-bytecode",
	DiagUnsupported:    "unsupported-opcode",
	DiagScriptError:    "script-error",
	DiagWithOverflow:   "with-overflow",
	DiagUncaught:       "uncaught-exception",
	DiagLimit:          "execution-limit",
	DiagTargetUnloaded: "target-unloaded",
}

func (k DiagnosticKind) String() string {
	if int(k) < len(diagnosticNames) {
		return diagnosticNames[k]
	}
	return fmt.Sprintf("DiagnosticKind(%d)", k)
}

// Diagnostic is a recoverable or thread-local condition reported while
// running actions.
type Diagnostic struct {
	Kind    DiagnosticKind
	Op      bytecode.Opcode
	PC      int
	Buffer  string
	Message string
}

func (d Diagnostic) String() string {
	where := d.Buffer
	if where == "" {
		where = "actions"
	}
	return fmt.Sprintf("%s at %s+%d (%s): %s", d.Kind, where, d.PC, d.Op, d.Message)
}

// report logs d at the level matching its kind and forwards it to the
// interpreter's hook.
func (in *Interpreter) report(d Diagnostic) {
	switch d.Kind {
	case DiagUncaught, DiagLimit:
		log.Errorf("%s", d)
	case DiagUnsupported:
		log.Noticef("%s", d)
	case DiagTargetUnloaded:
		log.Debugf("%s", d)
	default:
		log.Warningf("%s", d)
	}
	if in.OnDiagnostic != nil {
		in.OnDiagnostic(d)
	}
}
