package vm

import (
	"errors"
	"fmt"
)

var (
	// ErrExecutionLimit is reported when a thread exceeds its branch or
	// instruction budget. Recursion-limit errors also match it.
	ErrExecutionLimit = errors.New("execution limit exceeded")

	// ErrRecursionLimit is reported when closure calls nest too deeply.
	ErrRecursionLimit = errors.New("recursion limit exceeded")
)

// LimitError aborts the current thread and every thread that synchronously
// called into it, up to the unit that started the run.
type LimitError struct {
	Kind   error  // ErrExecutionLimit or ErrRecursionLimit
	What   string // "branch", "instruction" or "call depth"
	Limit  int
	Buffer string
	PC     int
}

func (e *LimitError) Error() string {
	where := e.Buffer
	if where == "" {
		where = "action buffer"
	}
	return fmt.Sprintf("%v: %s limit %d reached in %s at %d", e.Kind, e.What, e.Limit, where, e.PC)
}

func (e *LimitError) Unwrap() error { return e.Kind }

// Is makes every LimitError match ErrExecutionLimit.
func (e *LimitError) Is(target error) bool {
	return target == ErrExecutionLimit || target == e.Kind
}

// UncaughtError reports a script exception that left the outermost thread.
type UncaughtError struct {
	Value Value
}

func (e *UncaughtError) Error() string {
	return fmt.Sprintf("uncaught exception: %s", e.Value.Unflagged())
}

// IsUncaught checks if an error is an uncaught script exception.
func IsUncaught(err error) (Value, bool) {
	var ue *UncaughtError
	if errors.As(err, &ue) {
		return ue.Value, true
	}
	return Undefined(), false
}
