package backend

import (
	"errors"
	"fmt"
	"net/http"
)

// GenericMessage is shown whenever the backend gave nothing better to say.
const GenericMessage = "An error occurred. Please try again."

var (
	// ErrNotJSON marks a response whose content type is not JSON. Such a
	// body is never parsed.
	ErrNotJSON = errors.New("backend returned a non-JSON response")

	// ErrTransport marks a request that never produced a response.
	ErrTransport = errors.New("backend request failed")
)

// Error is the single settled value every failed backend call resolves to.
// Status is the HTTP status to surface to the caller and Message the one
// form-level string to show.
type Error struct {
	Status  int
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("backend %d: %s: %v", e.Status, e.Message, e.Cause)
	}
	return fmt.Sprintf("backend %d: %s", e.Status, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// AsError converts any error into an *Error. Errors that are not already
// backend errors become a generic 500.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var be *Error
	if errors.As(err, &be) {
		return be
	}
	return &Error{Status: http.StatusInternalServerError, Message: GenericMessage, Cause: err}
}
