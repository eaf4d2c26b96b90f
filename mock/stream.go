package mock

import (
	"context"

	"github.com/fwojciec/vox"
)

// Interface compliance checks.
var (
	_ vox.Streamer = (*Streamer)(nil)
	_ vox.Stream   = (*Stream)(nil)
)

// Streamer is a test double for vox.Streamer.
// Set StreamFn before calling Stream.
type Streamer struct {
	StreamFn func(ctx context.Context, req vox.StreamRequest, h vox.StreamHandler) vox.Stream
}

// Stream delegates to StreamFn.
func (s *Streamer) Stream(ctx context.Context, req vox.StreamRequest, h vox.StreamHandler) vox.Stream {
	return s.StreamFn(ctx, req, h)
}

// Stream is a test double for vox.Stream.
// CancelFn is nil-safe because callers commonly cancel streams they
// never inspect. StateFn, DoneFn and WaitFn panic when nil to catch
// missing setup.
type Stream struct {
	CancelFn func()
	StateFn  func() vox.StreamState
	DoneFn   func() <-chan struct{}
	WaitFn   func() vox.StreamState
}

// Cancel delegates to CancelFn. Does nothing when CancelFn is not set.
func (s *Stream) Cancel() {
	if s.CancelFn != nil {
		s.CancelFn()
	}
}

// State delegates to StateFn.
func (s *Stream) State() vox.StreamState {
	return s.StateFn()
}

// Done delegates to DoneFn.
func (s *Stream) Done() <-chan struct{} {
	return s.DoneFn()
}

// Wait delegates to WaitFn.
func (s *Stream) Wait() vox.StreamState {
	return s.WaitFn()
}
