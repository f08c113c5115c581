package relay

import (
	"errors"
	"fmt"
)

// Kind classifies a failed relay call.
type Kind int

const (
	// NetworkFailure: the request never produced a readable response
	// (refused, unreachable, reset, canceled, undecodable body).
	NetworkFailure Kind = iota + 1
	// BackendError: the relay answered with an error field or an error status.
	BackendError
)

func (k Kind) String() string {
	switch k {
	case NetworkFailure:
		return "NetworkFailure"
	case BackendError:
		return "BackendError"
	default:
		return fmt.Sprintf("Unknown(%d)", int(k))
	}
}

var (
	ErrNetworkFailure = errors.New("network failure")
	ErrBackend        = errors.New("backend error")
)

// Error wraps a failed relay call with the operation and classification.
type Error struct {
	Kind    Kind
	Op      string // list, ask, history, compare, delete
	Status  int    // HTTP status, 0 when no response was read
	Model   string // model reported by the backend alongside the error, if any
	Message string // backend-provided error text
	Err     error  // underlying transport or decode error
}

func (e *Error) Error() string {
	switch {
	case e.Kind == BackendError && e.Status >= 300:
		return fmt.Sprintf("%s: backend error (HTTP %d): %s", e.Op, e.Status, e.Message)
	case e.Kind == BackendError:
		return fmt.Sprintf("%s: backend error: %s", e.Op, e.Message)
	default:
		return fmt.Sprintf("%s: network failure: %v", e.Op, e.Err)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets callers match on ErrNetworkFailure / ErrBackend.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrNetworkFailure:
		return e.Kind == NetworkFailure
	case ErrBackend:
		return e.Kind == BackendError
	}
	return false
}

func networkError(op string, err error) *Error {
	return &Error{Kind: NetworkFailure, Op: op, Err: err}
}

func backendError(op string, status int, msg string) *Error {
	return &Error{Kind: BackendError, Op: op, Status: status, Message: msg}
}

// IsNetworkFailure reports whether err is a relay NetworkFailure.
func IsNetworkFailure(err error) bool { return errors.Is(err, ErrNetworkFailure) }

// IsBackendError reports whether err is a relay BackendError.
func IsBackendError(err error) bool { return errors.Is(err, ErrBackend) }

// Describe renders err the way it is shown to the user in the transcript.
func Describe(err error) string {
	var re *Error
	if errors.As(err, &re) {
		if re.Kind == BackendError {
			return "Error: " + re.Message
		}
		if re.Err != nil {
			return "Network error: " + re.Err.Error()
		}
		return "Network error"
	}
	return "Error: " + err.Error()
}
