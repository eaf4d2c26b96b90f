package voicerobot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fwojciec/vox"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Interface compliance check.
var _ vox.Stream = (*stream)(nil)

// stream consumes one stream-process response. All state transitions and
// callbacks happen on the goroutine started by Client.Stream; Cancel only
// raises a flag and cancels the request context.
type stream struct {
	req     vox.StreamRequest
	handler vox.StreamHandler
	logger  *zap.Logger

	cancel    context.CancelFunc
	cancelled atomic.Bool // set by Cancel
	timedOut  atomic.Bool // set by the read watchdog
	once      sync.Once
	done      chan struct{}

	mu    sync.Mutex
	state vox.StreamState
}

// Stream posts req.Payload to the assistant's stream-process endpoint and
// consumes the reply in the background, reporting through h.
//
// The returned handle is never nil. Validation and transport errors are
// delivered through h.OnError like every other terminal error, never
// synchronously from Stream.
func (c *Client) Stream(ctx context.Context, req vox.StreamRequest, h vox.StreamHandler) vox.Stream {
	ctx, cancel := context.WithCancel(ctx)
	s := &stream{
		req:     req,
		handler: h,
		logger:  c.logger.With(zap.String("target_id", req.TargetID)),
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go s.run(ctx, c)
	return s
}

// Cancel requests early termination. Safe to call any number of times,
// from any goroutine.
func (s *stream) Cancel() {
	if s.State().Terminal() {
		return
	}
	s.once.Do(func() {
		s.logger.Debug("stream cancel requested")
		s.cancelled.Store(true)
		s.cancel()
	})
}

// State returns the current stream state.
func (s *stream) State() vox.StreamState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Done is closed once the terminal callback has returned.
func (s *stream) Done() <-chan struct{} {
	return s.done
}

// Wait blocks until the stream is finished and returns its terminal state.
func (s *stream) Wait() vox.StreamState {
	<-s.done
	return s.State()
}

func (s *stream) run(ctx context.Context, c *Client) {
	defer close(s.done)
	defer s.cancel()

	wd := newWatchdog(c.readTimeout, func() {
		s.timedOut.Store(true)
		s.cancel()
	})
	defer wd.stop()

	body, err := c.openStream(ctx, s.req)
	if err != nil {
		s.abortOrFail(ctx, err)
		return
	}
	defer func() {
		if err := body.Close(); err != nil {
			s.logger.Debug("close stream body", zap.Error(err))
		}
	}()

	s.consume(ctx, body, wd.reset, wd.stop)
}

// openStream issues the POST and returns the body of a successful
// response. A non-success status is returned as *vox.StatusError without
// reading the body.
func (c *Client) openStream(ctx context.Context, req vox.StreamRequest) (io.ReadCloser, error) {
	if err := validateID(req.TargetID); err != nil {
		return nil, err
	}

	payload := req.Payload
	switch in := payload.(type) {
	case vox.Input:
		payload = fromInput(in)
	case *vox.Input:
		payload = fromInput(*in)
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("voicerobot: marshal payload: %w", err)
	}

	path := historyPath + "/" + req.TargetID + streamSuffix
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(path), bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("voicerobot: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("voicerobot: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, fmt.Errorf("voicerobot: stream request failed: %w", &vox.StatusError{Code: resp.StatusCode})
	}
	return resp.Body, nil
}

// consume runs the read loop over body until the stream reaches a terminal
// state. arm and disarm bracket every read: the read timeout covers waiting
// on the body, not the time callbacks take.
func (s *stream) consume(ctx context.Context, body io.Reader, arm, disarm func()) {
	// The UTF-8 decoder holds back a multi-byte sequence split across reads
	// until the rest of it arrives.
	r := transform.NewReader(body, unicode.UTF8.NewDecoder())
	buf := make([]byte, readBufferSize)
	var lines lineBuffer

	for {
		if ctx.Err() != nil {
			s.abortOrFail(ctx, ctx.Err())
			return
		}

		arm()
		n, err := r.Read(buf)
		disarm()
		if n > 0 {
			if s.dispatch(lines.push(string(buf[:n]))) {
				return
			}
		}

		switch {
		case err == nil:
		case errors.Is(err, io.EOF):
			if s.dispatch(lines.flush()) {
				return
			}
			s.logger.Debug("stream ended without done record")
			s.complete(vox.Usage{})
			return
		default:
			s.abortOrFail(ctx, err)
			return
		}
	}
}

// dispatch processes complete lines in order. It returns true once the
// stream has reached a terminal state and reading must stop.
func (s *stream) dispatch(lines []string) bool {
	for _, line := range lines {
		if s.cancelled.Load() {
			s.finish(vox.StreamCancelled, vox.ErrCancelled)
			return true
		}

		rec, ok, err := parseLine(line)
		if err != nil {
			s.logger.Debug("skip malformed stream record", zap.String("line", line), zap.Error(err))
			s.report(err)
			continue
		}
		if !ok {
			continue
		}

		if rec.content != "" && s.handler.OnChunk != nil {
			s.handler.OnChunk(rec.content)
		}
		if rec.failed {
			s.finish(vox.StreamFailed, &vox.RemoteError{Message: rec.remote})
			return true
		}
		if rec.done {
			s.complete(rec.usage)
			return true
		}
	}
	return false
}

// abortOrFail ends the stream after a transport error or context end,
// telling caller aborts apart from real failures.
func (s *stream) abortOrFail(ctx context.Context, err error) {
	switch {
	case s.cancelled.Load():
		s.finish(vox.StreamCancelled, vox.ErrCancelled)
	case s.timedOut.Load():
		s.finish(vox.StreamFailed, vox.ErrReadTimeout)
	case ctx.Err() != nil && errors.Is(context.Cause(ctx), context.Canceled):
		s.finish(vox.StreamCancelled, vox.ErrCancelled)
	case ctx.Err() != nil:
		s.finish(vox.StreamFailed, fmt.Errorf("voicerobot: %w", context.Cause(ctx)))
	default:
		s.finish(vox.StreamFailed, err)
	}
}

// transition moves an active stream to state. It reports false, leaving
// the state untouched, when the stream already ended.
func (s *stream) transition(state vox.StreamState) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Terminal() {
		return false
	}
	s.state = state
	return true
}

func (s *stream) complete(usage vox.Usage) {
	if !s.transition(vox.StreamCompleted) {
		return
	}
	// Stop the transport; nothing after the done record is read.
	s.cancel()
	s.logger.Debug("stream completed",
		zap.Int("input_tokens", usage.InputTokens),
		zap.Int("output_tokens", usage.OutputTokens))
	if s.handler.OnComplete != nil {
		s.handler.OnComplete(usage)
	}
}

func (s *stream) finish(state vox.StreamState, err error) {
	if !s.transition(state) {
		s.logger.Debug("drop error after terminal state", zap.Stringer("state", s.State()), zap.Error(err))
		return
	}
	s.cancel()
	s.logger.Debug("stream ended", zap.Stringer("state", state), zap.Error(err))
	if s.handler.OnError != nil {
		s.handler.OnError(err)
	}
}

// report delivers a non-fatal error while the stream is still active.
func (s *stream) report(err error) {
	if s.State().Terminal() || s.handler.OnError == nil {
		return
	}
	s.handler.OnError(err)
}

// watchdog fails a stream that goes quiet for longer than its timeout.
type watchdog struct {
	timer   *time.Timer
	timeout time.Duration
}

// newWatchdog arms a timer calling fire after timeout. A non-positive
// timeout yields a disabled watchdog.
func newWatchdog(timeout time.Duration, fire func()) *watchdog {
	if timeout <= 0 {
		return &watchdog{}
	}
	return &watchdog{timer: time.AfterFunc(timeout, fire), timeout: timeout}
}

func (w *watchdog) reset() {
	if w.timer != nil {
		w.timer.Reset(w.timeout)
	}
}

func (w *watchdog) stop() {
	if w.timer != nil {
		w.timer.Stop()
	}
}
