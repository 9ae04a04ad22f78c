package vm

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// CompileError is raised while scanning or compiling source, before
// any bytecode runs. Line is the source line the offending token
// started on. The compiler recovers in panic mode: it keeps parsing
// after reporting one error so later independent errors in the same
// source are also reported, but refuses to run anything once any
// CompileError has been recorded.
type CompileError struct {
	Line    int
	Message string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("[line %d] Error: %s", e.Line, e.Message)
}

// CompileErrors aggregates every error a panic-mode compile run
// recorded, in source order.
type CompileErrors struct {
	Errors []*CompileError
}

func (e *CompileErrors) Error() string {
	lines := make([]string, len(e.Errors))
	for i, ce := range e.Errors {
		lines[i] = ce.Error()
	}
	return strings.Join(lines, "\n")
}

// StackFrame is one entry of a RuntimeError's trace, newest call
// first.
type StackFrame struct {
	FunctionName string
	Line         int
}

// RuntimeError is raised by the VM's dispatch loop once bytecode is
// already running: type errors, undefined variables, arity mismatches,
// stack overflow. Trace is ordered newest frame first, the order
// lumen's REPL and CLI print stack traces in. SessionID identifies
// which VM instance raised it, so log aggregation across concurrent
// REPL/file runs can tell one run's stack trace from another's.
type RuntimeError struct {
	Message   string
	Trace     []StackFrame
	SessionID uuid.UUID
}

func (e *RuntimeError) Error() string {
	var b strings.Builder
	if e.SessionID != uuid.Nil {
		fmt.Fprintf(&b, "[session %s] ", e.SessionID.String())
	}
	b.WriteString(e.Message)
	for _, f := range e.Trace {
		b.WriteString("\n[line ")
		fmt.Fprintf(&b, "%d", f.Line)
		b.WriteString("] in ")
		if f.FunctionName == "" {
			b.WriteString("script")
		} else {
			b.WriteString(f.FunctionName + "()")
		}
	}
	return b.String()
}

func newRuntimeError(format string, args ...any) *RuntimeError {
	return &RuntimeError{Message: fmt.Sprintf(format, args...)}
}
