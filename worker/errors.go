package worker

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotFound indicates the worker has no record of the requested resource.
	ErrNotFound = errors.New("not found")
	// ErrUnavailable indicates the worker could not be reached.
	ErrUnavailable = errors.New("worker unavailable")
)

// TransportError is returned when a request never produced an HTTP response.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Is matches ErrUnavailable.
func (e *TransportError) Is(target error) bool {
	return target == ErrUnavailable
}

// BackendError is returned when the worker answered with a non-success status.
type BackendError struct {
	StatusCode int
	// Message is the worker's explanation, or the HTTP status text when the
	// body carried none.
	Message string
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("worker error (%d): %s", e.StatusCode, e.Message)
}

// Is matches ErrNotFound for 404 responses.
func (e *BackendError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// Message extracts the worker's explanation from err. For errors that did not
// come from the worker it returns err.Error() and false.
func Message(err error) (string, bool) {
	var backendErr *BackendError
	if errors.As(err, &backendErr) {
		return backendErr.Message, true
	}
	if err == nil {
		return "", false
	}
	return err.Error(), false
}
