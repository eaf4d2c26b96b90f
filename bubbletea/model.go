package bubbletea

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/fwojciec/vox"
	"github.com/fwojciec/vox/render"
)

var _ tea.Model = Model{}

// eventBuffer bounds how far the stream goroutine may run ahead of the UI.
const eventBuffer = 256

// Model is the Bubble Tea model for chatting with one assistant.
type Model struct {
	// Input is the text input component. Exported for test access.
	Input textinput.Model
	// Viewport is the scrollable conversation. Exported for test access.
	Viewport viewport.Model

	assistant vox.Assistant
	streamer  vox.Streamer
	history   vox.HistoryService
	theme     vox.Theme
	styles    Styles

	blocks []MessageBlock
	live   *AssistantTextBlock // reply being streamed, nil until the first chunk

	stream    vox.Stream
	stop      context.CancelFunc
	events    chan tea.Msg
	running   bool
	resetting bool

	usage     vox.Usage // last completed reply
	total     vox.Usage // whole conversation
	cancelled bool
	warnings  int
	err       error
	ready     bool
}

// New creates a chat Model for assistant. Replies are streamed through
// streamer and the conversation is loaded and reset through history.
func New(assistant vox.Assistant, streamer vox.Streamer, history vox.HistoryService, theme vox.Theme) Model {
	ti := textinput.New()
	ti.Placeholder = "Type a message..."
	ti.Prompt = ""
	ti.Focus()
	ti.CharLimit = 0

	return Model{
		Input:     ti,
		assistant: assistant,
		streamer:  streamer,
		history:   history,
		theme:     theme,
		styles:    NewStyles(theme),
	}
}

// Running returns whether a reply is being streamed.
func (m Model) Running() bool { return m.running }

// Err returns the last error, if any.
func (m Model) Err() error { return m.err }

// Usage returns the token usage of the last completed reply.
func (m Model) Usage() vox.Usage { return m.usage }

// Close cancels the active stream, if any.
func (m Model) Close() {
	if m.stream != nil {
		m.stream.Cancel()
	}
	if m.stop != nil {
		m.stop()
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, loadHistory(m.history, m.assistant.ID))
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m = m.handleWindowSize(msg)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case HistoryMsg:
		if msg.Err != nil {
			m.err = msg.Err
			return m, nil
		}
		m.blocks = append(m.historyBlocks(msg.History), m.blocks...)
		m.total = m.total.Add(msg.History.TotalUsage())
		m = m.refresh(true)
		return m, nil

	case ResetMsg:
		m.resetting = false
		if msg.Err != nil {
			m.err = msg.Err
			return m, nil
		}
		m.blocks = nil
		m.usage = vox.Usage{}
		m.total = vox.Usage{}
		m.cancelled = false
		m.warnings = 0
		m = m.refresh(true)
		return m, loadHistory(m.history, m.assistant.ID)

	case ChunkMsg:
		if m.live == nil {
			m.live = NewAssistantTextBlock(m.theme)
			m.blocks = append(m.blocks, m.live)
		}
		m.live.Append(msg.Text)
		m = m.refresh(false)
		return m, listenForEvent(m.events)

	case WarningMsg:
		m.warnings++
		return m, listenForEvent(m.events)

	case StreamDoneMsg:
		m = m.endStream(msg)
		m = m.refresh(false)
		return m, m.Input.Focus()
	}

	// Viewport always receives messages for scrolling (keyboard and mouse).
	var cmd tea.Cmd
	m.Viewport, cmd = m.Viewport.Update(msg)
	cmds = append(cmds, cmd)

	if !m.running {
		m.Input, cmd = m.Input.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	var b strings.Builder
	b.WriteString(m.Viewport.View())
	b.WriteString("\n")
	b.WriteString(m.statusLine())
	b.WriteString("\n")
	b.WriteString(m.Input.View())
	return b.String()
}

func (m Model) handleWindowSize(msg tea.WindowSizeMsg) Model {
	inputH := 1
	statusHeight := 1
	borderHeight := 2 // newlines between sections
	vpHeight := max(msg.Height-inputH-statusHeight-borderHeight, 1)

	if !m.ready {
		m.Viewport = viewport.New(msg.Width, vpHeight)
		m.ready = true
	} else {
		m.Viewport.Width = msg.Width
		m.Viewport.Height = vpHeight
	}
	m.Input.Width = msg.Width
	return m.refresh(false)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		if m.running {
			m.stream.Cancel()
			return m, nil
		}
		return m, tea.Quit

	case tea.KeyCtrlR:
		if m.running || m.resetting {
			return m, nil
		}
		m.resetting = true
		m.err = nil
		return m, resetHistory(m.history, m.assistant.ID)

	case tea.KeyEnter:
		if m.running {
			return m, nil
		}
		text := strings.TrimSpace(m.Input.Value())
		if text == "" {
			return m, nil
		}
		return m.submitInput(text)
	}

	// When idle, pass keys to both the input (for typing) and the viewport
	// (for scrolling). Character keys only go to the input: 'j' and 'k'
	// scroll the viewport and are also text.
	if !m.running {
		var cmd tea.Cmd
		var cmds []tea.Cmd

		if msg.Type != tea.KeyRunes {
			m.Viewport, cmd = m.Viewport.Update(msg)
			cmds = append(cmds, cmd)
		}

		m.Input, cmd = m.Input.Update(msg)
		cmds = append(cmds, cmd)

		return m, tea.Batch(cmds...)
	}

	return m, nil
}

func (m Model) submitInput(text string) (tea.Model, tea.Cmd) {
	m.Input.SetValue("")
	m.Input.Blur()
	m.err = nil
	m.cancelled = false
	m.warnings = 0
	m.usage = vox.Usage{}

	m.blocks = append(m.blocks, NewUserMessageBlock(text, m.styles))
	m = m.refresh(true)

	ctx, stop := context.WithCancel(context.Background())
	m.stop = stop
	m.events = make(chan tea.Msg, eventBuffer)
	m.running = true
	m.stream = startStream(ctx, m.streamer, vox.StreamRequest{
		TargetID: m.assistant.ID,
		Payload:  vox.Input{Prompt: m.assistant.Prompt, Send: text},
	}, m.events)

	return m, listenForEvent(m.events)
}

func (m Model) endStream(msg StreamDoneMsg) Model {
	if m.live != nil {
		m.live.Finish()
	}
	if m.stop != nil {
		m.stop()
	}
	m.live = nil
	m.stream = nil
	m.stop = nil
	m.events = nil
	m.running = false

	switch msg.State {
	case vox.StreamCompleted:
		m.usage = msg.Usage
		m.total = m.total.Add(msg.Usage)
	case vox.StreamCancelled:
		m.cancelled = true
	default:
		m.err = msg.Err
		m.blocks = append(m.blocks, NewErrorBlock(msg.Err, m.styles))
	}
	return m
}

// historyBlocks creates blocks for the stored exchanges.
func (m Model) historyBlocks(h vox.History) []MessageBlock {
	var blocks []MessageBlock
	for _, msg := range h.Messages {
		if msg.Input.Send != "" {
			blocks = append(blocks, NewUserMessageBlock(msg.Input.Send, m.styles))
		}
		if msg.Output.Content != "" {
			b := NewAssistantTextBlock(m.theme)
			b.Append(msg.Output.Content)
			b.Finish()
			blocks = append(blocks, b)
		}
	}
	return blocks
}

// refresh re-renders the conversation. The viewport follows new content
// only when it was already at the bottom, unless force is set.
func (m Model) refresh(force bool) Model {
	if !m.ready {
		return m
	}
	follow := force || m.Viewport.AtBottom()
	m.Viewport.SetContent(m.renderContent())
	if follow {
		m.Viewport.GotoBottom()
	}
	return m
}

func (m Model) renderContent() string {
	var b strings.Builder
	for i, block := range m.blocks {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(strings.TrimRight(block.View(m.Viewport.Width), "\n"))
	}
	return b.String()
}

func (m Model) statusLine() string {
	name := m.styles.Assistant.Render(m.assistant.Name)

	var status string
	switch {
	case m.err != nil:
		status = m.styles.Error.Render("Error: " + render.Sanitize(vox.Describe(m.err)))
	case m.running:
		status = m.styles.Muted.Render("Generating... Ctrl+C to cancel")
	case m.resetting:
		status = m.styles.Muted.Render("Resetting history...")
	case m.cancelled:
		status = m.styles.Warning.Render("Cancelled")
	case !m.usage.IsZero():
		status = m.styles.Success.Render(fmt.Sprintf("%d in, %d out tokens (%d total)",
			m.usage.InputTokens, m.usage.OutputTokens, m.total.TotalTokens))
	default:
		status = m.styles.Muted.Render("Enter to send, Ctrl+R to reset, Ctrl+C to quit")
	}
	if m.warnings > 0 {
		status += " " + m.styles.Warning.Render(fmt.Sprintf("[%d malformed records skipped]", m.warnings))
	}
	return name + " " + status
}

// startStream starts a stream whose callbacks are forwarded to events as
// tea messages. events is closed after the terminal message.
func startStream(ctx context.Context, s vox.Streamer, req vox.StreamRequest, events chan<- tea.Msg) vox.Stream {
	send := func(msg tea.Msg) {
		select {
		case events <- msg:
		case <-ctx.Done():
		}
	}
	finish := func(msg StreamDoneMsg) {
		send(msg)
		close(events)
	}
	return s.Stream(ctx, req, vox.StreamHandler{
		OnChunk: func(text string) {
			send(ChunkMsg{Text: text})
		},
		OnComplete: func(usage vox.Usage) {
			finish(StreamDoneMsg{State: vox.StreamCompleted, Usage: usage})
		},
		OnError: func(err error) {
			if !vox.IsTerminal(err) {
				send(WarningMsg{Err: err})
				return
			}
			state := vox.StreamFailed
			if errors.Is(err, vox.ErrCancelled) {
				state = vox.StreamCancelled
			}
			finish(StreamDoneMsg{State: state, Err: err})
		},
	})
}

// listenForEvent waits for the next message of the active stream.
func listenForEvent(events <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-events
		if !ok {
			return nil
		}
		return msg
	}
}

func loadHistory(h vox.HistoryService, assistantID string) tea.Cmd {
	return func() tea.Msg {
		hist, err := h.Get(context.Background(), assistantID)
		return HistoryMsg{History: hist, Err: err}
	}
}

func resetHistory(h vox.HistoryService, assistantID string) tea.Cmd {
	return func() tea.Msg {
		return ResetMsg{Err: h.Reset(context.Background(), assistantID)}
	}
}
