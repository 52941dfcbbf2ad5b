package retdec

import "time"

// WaitOptions configures Decompilation.WaitUntilFinished. The zero value
// waits with the decompilation's interval, runs no callback, and returns a
// *DecompilationFailedError if the decompilation fails.
type WaitOptions struct {
	// Callback is invoked with the decompilation when its status changes and
	// when it finishes.
	Callback func(*Decompilation)

	OnFailure FailurePolicy

	// Interval overrides the decompilation's wait interval when positive.
	Interval time.Duration
}

type failureMode int

const (
	failureRaise failureMode = iota
	failureHandle
	failureIgnore
)

// FailurePolicy selects what WaitUntilFinished does when the service reports
// that a decompilation failed. The zero value is RaiseOnFailure.
type FailurePolicy struct {
	mode    failureMode
	handler func(message string)
}

// RaiseOnFailure returns a *DecompilationFailedError carrying the service's
// error message.
func RaiseOnFailure() FailurePolicy {
	return FailurePolicy{mode: failureRaise}
}

// HandleFailure passes the service's error message to fn and reports no
// error. A nil fn behaves like IgnoreFailure.
func HandleFailure(fn func(message string)) FailurePolicy {
	if fn == nil {
		return IgnoreFailure()
	}
	return FailurePolicy{mode: failureHandle, handler: fn}
}

// IgnoreFailure reports no error for a failed decompilation.
func IgnoreFailure() FailurePolicy {
	return FailurePolicy{mode: failureIgnore}
}

func (p FailurePolicy) apply(id, message string) error {
	switch p.mode {
	case failureHandle:
		p.handler(message)
		return nil
	case failureIgnore:
		return nil
	default:
		return &DecompilationFailedError{ID: id, Message: message}
	}
}
