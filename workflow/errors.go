package workflow

import "errors"

var (
	// ErrBusy indicates another search, reservation, or cancellation is in flight.
	ErrBusy = errors.New("another operation is in progress")
	// ErrTaskActive indicates the operation is not allowed while a task is monitored.
	ErrTaskActive = errors.New("a reservation task is being monitored")
	// ErrNoActiveTask indicates there is no monitored task to act on.
	ErrNoActiveTask = errors.New("no reservation task is being monitored")
)

// ValidationError reports a missing or invalid selection. No request is sent
// to the worker when one is returned.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}
