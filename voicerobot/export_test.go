package voicerobot

import (
	"context"
	"io"

	"github.com/fwojciec/vox"
	"go.uber.org/zap"
)

// Record mirrors the unexported record for assertions.
type Record struct {
	Content string
	Done    bool
	Usage   vox.Usage
	Remote  string
	Failed  bool
}

// ParseLine exposes parseLine for testing.
func ParseLine(line string) (Record, bool, error) {
	rec, ok, err := parseLine(line)
	return Record{
		Content: rec.content,
		Done:    rec.done,
		Usage:   rec.usage,
		Remote:  rec.remote,
		Failed:  rec.failed,
	}, ok, err
}

// LineBuffer exposes lineBuffer for testing.
type LineBuffer struct{ b lineBuffer }

func (l *LineBuffer) Push(text string) []string { return l.b.push(text) }
func (l *LineBuffer) Flush() []string           { return l.b.flush() }

// Consume runs the stream read loop over r without any transport and
// returns the terminal state.
func Consume(r io.Reader, h vox.StreamHandler) vox.StreamState {
	ctx, cancel := context.WithCancel(context.Background())
	s := &stream{
		handler: h,
		logger:  zap.NewNop(),
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	defer close(s.done)
	defer cancel()
	s.consume(ctx, r, func() {}, func() {})
	return s.State()
}

// DecodeEnvelope exposes decodeEnvelope for testing.
var DecodeEnvelope = decodeEnvelope
