package gateway

import (
	"errors"
	"fmt"

	"github.com/MrSnakeDoc/storysync/internal/domain"
)

// NetworkError means the request never produced a usable HTTP answer:
// transport failure, timeout, or a body that could not be read.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: network: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// APIError means the server answered and refused the request.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (status %d): %s", e.StatusCode, e.Message)
}

// IsNetworkError reports whether err is a connectivity failure
func IsNetworkError(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

// AsAPIError returns the APIError in err's chain, if any
func AsAPIError(err error) (*APIError, bool) {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// Classify maps a gateway failure onto the domain taxonomy. Network failures
// wrap ErrNetworkUnavailable, server refusals become RemoteRejectedError and
// anything else is returned unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if IsNetworkError(err) {
		return fmt.Errorf("%w: %w", domain.ErrNetworkUnavailable, err)
	}
	if ae, ok := AsAPIError(err); ok {
		return &domain.RemoteRejectedError{StatusCode: ae.StatusCode, Message: ae.Message, Err: err}
	}
	return err
}
