package vox

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Sentinel errors for common failure modes.
var (
	// ErrValidation indicates a request or entity failed validation.
	ErrValidation = errors.New("validation error")

	// ErrNotFound indicates the requested assistant does not exist.
	ErrNotFound = errors.New("not found")

	// ErrCancelled indicates the caller aborted a stream before it finished.
	ErrCancelled = errors.New("operation cancelled")

	// ErrReadTimeout indicates a single body read exceeded the read timeout.
	ErrReadTimeout = errors.New("stream read timed out")
)

// StatusError is returned when the backend answers with a non-success
// HTTP status.
type StatusError struct {
	Code int
	Body string // trimmed response body, may be empty
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("HTTP %d", e.Code)
	}
	return fmt.Sprintf("HTTP %d: %s", e.Code, e.Body)
}

// APIError is an application-level failure reported inside a response
// envelope whose code is not 200.
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Code, e.Message)
}

// ParseError reports a streamed record that could not be decoded. It is
// never terminal: the stream continues with the next line.
type ParseError struct {
	Line string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse stream record %q: %v", e.Line, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// RemoteError is an error record sent by the backend inside a stream.
type RemoteError struct {
	Message string
}

func (e *RemoteError) Error() string {
	return "remote: " + e.Message
}

// IsTerminal reports whether err, received through StreamHandler.OnError,
// ended the stream.
func IsTerminal(err error) bool {
	var pe *ParseError
	return err != nil && !errors.As(err, &pe)
}

// Describe maps err to a short message suitable for showing to a user.
func Describe(err error) string {
	if err == nil {
		return ""
	}

	var (
		se *StatusError
		ae *APIError
		re *RemoteError
		ne net.Error
		pe *ParseError
	)
	switch {
	case errors.Is(err, ErrCancelled), errors.Is(err, context.Canceled):
		return "Request cancelled"
	case errors.Is(err, ErrReadTimeout), errors.Is(err, context.DeadlineExceeded):
		return "Request timed out, please retry"
	case errors.Is(err, ErrValidation):
		return err.Error()
	case errors.Is(err, ErrNotFound):
		return "Assistant not found"
	case errors.As(err, &se):
		switch se.Code {
		case 401:
			return "Unauthorized, please log in again"
		case 403:
			return "Permission denied"
		case 404:
			return "Endpoint not found"
		case 500:
			return "Internal server error"
		default:
			return fmt.Sprintf("Request error (%d)", se.Code)
		}
	case errors.As(err, &ae):
		if ae.Message == "" {
			return "Request failed"
		}
		return ae.Message
	case errors.As(err, &re):
		return re.Message
	case errors.As(err, &pe):
		return "Malformed reply from server"
	case errors.As(err, &ne) && ne.Timeout():
		return "Request timed out, please retry"
	default:
		return "Network error, please retry later"
	}
}
