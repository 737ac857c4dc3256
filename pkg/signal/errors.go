package signal

import (
	"errors"
	"fmt"
	"runtime/debug"
)

var (
	// ErrFrozen is returned when subscribing to a frozen signal.
	ErrFrozen = errors.New("cannot subscribe to frozen signal")

	// ErrNotFrozen is returned by publish on a require-freeze signal that
	// has not been frozen yet.
	ErrNotFrozen = errors.New("cannot publish non-frozen signal: call Freeze first")
)

// PanicError wraps a panic recovered from a subscriber invocation. It is
// routed to the observer's OnError hook like any other subscriber error.
type PanicError struct {
	// Value is the value the subscriber panicked with.
	Value any
	// Stack is the stack trace captured at recovery.
	Stack []byte
}

func newPanicError(v any) *PanicError {
	return &PanicError{Value: v, Stack: debug.Stack()}
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("subscriber panic: %v", e.Value)
}

// errorReason maps a subscriber error to a metrics label.
func errorReason(err error) string {
	var pe *PanicError
	if errors.As(err, &pe) {
		return "panic"
	}
	return "error"
}
