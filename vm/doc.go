// Package vm implements the action interpreter.
//
// This package contains:
//   - Tagged values with a transient exception flag
//   - The object capability interfaces the interpreter depends on
//   - The opcode dispatch table and handler bodies
//   - Execution threads with the try/catch/finally state machine
//   - Closures and the call protocol
//   - Deferred execution units run by a host scheduler
//
// An Interpreter is not safe for concurrent use. Buffers and the dispatch
// table are read-only and may be shared between interpreters.
package vm
