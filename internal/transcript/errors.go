package transcript

import (
	"errors"
	"fmt"
)

// ServiceError is returned by a Completer when the remote call fails
// (network, quota, blocked or malformed response).
type ServiceError struct {
	Message string
	Err     error
}

func (e *ServiceError) Error() string { return e.Message }

func (e *ServiceError) Unwrap() error { return e.Err }

// FormatError renders a completion failure as user-facing text.
func FormatError(err error) string {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return fmt.Sprintf("API error: could not reach Gemini. Error: %s", svcErr.Message)
	}
	return fmt.Sprintf("An unexpected error occurred: %v", err)
}
