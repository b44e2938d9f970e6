package proxy

import (
	"errors"
	"fmt"
)

// NetworkErrorMessage is shown when the proxy could not be reached.
const NetworkErrorMessage = "Network error - please check your connection and try again."

// TransportError wraps a failure to reach the proxy at all.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// StatusError is a non-2xx response from the proxy.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("Server error (%d): %s", e.StatusCode, e.Body)
}

// IsNotFound reports whether err is a 404 from the proxy.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == 404
}

// UserMessage converts a proxy error into the message shown to shoppers.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var te *TransportError
	if errors.As(err, &te) {
		return NetworkErrorMessage
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Error()
	}
	return err.Error()
}
