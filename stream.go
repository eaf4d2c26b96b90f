package vox

import "context"

// StreamState indicates the current state of a Stream.
type StreamState int

const (
	StreamActive    StreamState = iota // Request issued or body being consumed.
	StreamCompleted                    // Done record received, or body ended.
	StreamCancelled                    // Cancel() or parent context aborted the stream.
	StreamFailed                       // Transport, status, timeout or remote error.
)

// String returns the lower-case state name.
func (s StreamState) String() string {
	switch s {
	case StreamActive:
		return "active"
	case StreamCompleted:
		return "completed"
	case StreamCancelled:
		return "cancelled"
	case StreamFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether s is one of the sticky end states.
func (s StreamState) Terminal() bool {
	return s != StreamActive
}

// StreamRequest identifies the conversation to continue and the body to
// send. It is not modified after submission.
type StreamRequest struct {
	TargetID string
	Payload  any // JSON-serializable; usually an Input
}

// StreamHandler receives the callbacks of one stream. Every field is
// optional; nil callbacks are skipped.
//
// Callbacks run on the stream's own goroutine, in order. OnChunk is called
// zero or more times, followed by exactly one of OnComplete or a terminal
// OnError. OnError may also be called before that for non-fatal
// *ParseError values; use IsTerminal to tell the two apart.
type StreamHandler struct {
	OnChunk    func(text string)
	OnComplete func(usage Usage)
	OnError    func(err error)
}

// Stream is a handle to one in-flight streaming exchange.
//
// Cancel requests early termination. It is idempotent and a no-op once the
// stream reached a terminal state. Done is closed after the terminal
// callback has returned. Wait blocks until then and returns the terminal
// state.
type Stream interface {
	Cancel()
	State() StreamState
	Done() <-chan struct{}
	Wait() StreamState
}

// Streamer starts streaming exchanges with the backend. The returned
// Stream is never nil; request errors are reported through the handler.
type Streamer interface {
	Stream(ctx context.Context, req StreamRequest, h StreamHandler) Stream
}
