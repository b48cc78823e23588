package batchpool

import (
	"fmt"
	"runtime"
)

// PanicError is the rejection reason of a task that panicked. The pool
// recovers the panic so the rest of the batch and the run are unaffected.
type PanicError struct {
	// Value is the value passed to panic().
	Value any

	// Stack is the stack of the task's goroutine at the point of recovery.
	Stack string
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("task panicked: %v", e.Value)
}

// Unwrap exposes the panic value when it is itself an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

func newPanicError(v any) *PanicError {
	buf := make([]byte, 8192)
	n := runtime.Stack(buf, false)
	return &PanicError{
		Value: v,
		Stack: string(buf[:n]),
	}
}
