package bubbletea_test

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fwojciec/vox"
	bt "github.com/fwojciec/vox/bubbletea"
	"github.com/fwojciec/vox/mock"
	"github.com/stretchr/testify/require"
)

func testAssistant() vox.Assistant {
	return vox.Assistant{
		ID:     "0b6f3a52-8f4c-4c39-9d55-2f3c1f6b7a10",
		Name:   "Robo",
		Prompt: "You are a helpful robot.",
	}
}

// historyOf returns a history service whose Get always answers with msgs.
func historyOf(msgs ...vox.Message) *mock.HistoryService {
	return &mock.HistoryService{
		GetFn: func(_ context.Context, id string) (vox.History, error) {
			return vox.History{AssistantID: id, Messages: msgs}, nil
		},
	}
}

// replying returns a streamer that sends chunks and then completes with
// usage, from its own goroutine like a real stream.
func replying(usage vox.Usage, chunks ...string) *mock.Streamer {
	return &mock.Streamer{
		StreamFn: func(_ context.Context, _ vox.StreamRequest, h vox.StreamHandler) vox.Stream {
			return play(func() {
				for _, c := range chunks {
					h.OnChunk(c)
				}
				h.OnComplete(usage)
			})
		},
	}
}

// failing returns a streamer that sends chunks and then fails with err.
func failing(err error, chunks ...string) *mock.Streamer {
	return &mock.Streamer{
		StreamFn: func(_ context.Context, _ vox.StreamRequest, h vox.StreamHandler) vox.Stream {
			return play(func() {
				for _, c := range chunks {
					h.OnChunk(c)
				}
				h.OnError(err)
			})
		},
	}
}

func play(script func()) *mock.Stream {
	done := make(chan struct{})
	go func() {
		defer close(done)
		script()
	}()
	return &mock.Stream{DoneFn: func() <-chan struct{} { return done }}
}

// initModel creates a model and sends a WindowSizeMsg to initialize the viewport.
func initModel(t *testing.T, s vox.Streamer, h vox.HistoryService) bt.Model {
	t.Helper()
	return initModelWithSize(t, s, h, 80, 24)
}

// initModelWithSize creates a model with a custom terminal size.
func initModelWithSize(t *testing.T, s vox.Streamer, h vox.HistoryService, width, height int) bt.Model {
	t.Helper()
	m := bt.New(testAssistant(), s, h, vox.DefaultTheme())
	return updateModel(t, m, tea.WindowSizeMsg{Width: width, Height: height})
}

// updateModel sends a message and returns the updated Model.
func updateModel(t *testing.T, m bt.Model, msg tea.Msg) bt.Model {
	t.Helper()
	m, _ = update(t, m, msg)
	return m
}

func update(t *testing.T, m bt.Model, msg tea.Msg) (bt.Model, tea.Cmd) {
	t.Helper()
	updated, cmd := m.Update(msg)
	model, ok := updated.(bt.Model)
	require.True(t, ok)
	return model, cmd
}

// send types text and presses Enter.
func send(t *testing.T, m bt.Model, text string) (bt.Model, tea.Cmd) {
	t.Helper()
	m.Input.SetValue(text)
	return update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
}

// pump runs cmd and feeds the messages it yields back into the model until
// the stream ends.
func pump(t *testing.T, m bt.Model, cmd tea.Cmd) bt.Model {
	t.Helper()
	for cmd != nil {
		msg := cmd()
		if msg == nil {
			return m
		}
		m, cmd = update(t, m, msg)
		if _, ok := msg.(bt.StreamDoneMsg); ok {
			return m
		}
	}
	return m
}
