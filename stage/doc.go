// Package stage is an in-memory player host for the interpreter.
//
// A Stage owns a tree of clips per level, the _global object with the
// built-in constructors, and a Scheduler. Frame changes, events and
// onEnterFrame callbacks become vm units on the scheduler; Run drains it.
// It records getURL and fscommand calls instead of performing them, which
// makes it usable both from the avm command and from tests.
package stage
