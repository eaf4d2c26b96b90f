package bubbletea

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fwojciec/vox"
	"github.com/fwojciec/vox/markdown"
	"github.com/fwojciec/vox/render"
)

var _ MessageBlock = (*AssistantTextBlock)(nil)

// AssistantTextBlock renders an assistant reply as markdown.
//
// While the reply streams, everything up to the last paragraph break
// outside a code fence is stable: it is rendered once per width and
// cached. Only the paragraph still being written is rendered again on
// each chunk.
type AssistantTextBlock struct {
	raw   strings.Builder
	theme vox.Theme
	done  bool

	stable string
	cache  map[int]string // rendered stable prefix by width
}

// NewAssistantTextBlock creates an empty block for a reply.
func NewAssistantTextBlock(theme vox.Theme) *AssistantTextBlock {
	return &AssistantTextBlock{
		theme: theme,
		cache: make(map[int]string),
	}
}

// Append adds streamed text, dropping terminal control sequences. It is
// ignored after Finish.
func (b *AssistantTextBlock) Append(text string) {
	if b.done {
		return
	}
	b.raw.WriteString(render.Sanitize(text))
	b.advance()
}

// Finish marks the reply complete, making all of it stable.
func (b *AssistantTextBlock) Finish() {
	if b.done {
		return
	}
	b.done = true
	b.stable = b.raw.String()
	clear(b.cache)
}

// Text returns the raw reply received so far.
func (b *AssistantTextBlock) Text() string {
	return b.raw.String()
}

func (b *AssistantTextBlock) Update(msg tea.Msg) (MessageBlock, tea.Cmd) {
	return b, nil
}

func (b *AssistantTextBlock) View(width int) string {
	head := b.renderStable(width)
	tail := b.tail()
	if strings.TrimSpace(tail) == "" {
		return head
	}
	rendered := markdown.RenderPartial(tail, width, b.theme)
	if strings.TrimSpace(rendered) == "" {
		return head
	}
	if head == "" {
		return rendered
	}
	// Both halves are rendered separately; rejoin them with exactly one
	// paragraph break.
	return strings.TrimRight(head, "\n") + "\n\n" + strings.TrimLeft(rendered, "\n")
}

// advance moves the stable prefix to the last paragraph break that is not
// inside a fenced code block.
func (b *AssistantTextBlock) advance() {
	raw := b.raw.String()
	for end := len(raw); ; {
		i := strings.LastIndex(raw[:end], "\n\n")
		if i <= 0 {
			return
		}
		if !insideFence(raw[:i]) {
			if raw[:i] != b.stable {
				b.stable = raw[:i]
				clear(b.cache)
			}
			return
		}
		end = i
	}
}

func (b *AssistantTextBlock) renderStable(width int) string {
	if width <= 0 || b.stable == "" {
		return ""
	}
	if cached, ok := b.cache[width]; ok {
		return cached
	}
	rendered := markdown.Render(b.stable, width, b.theme)
	b.cache[width] = rendered
	return rendered
}

// tail is the text after the stable prefix.
func (b *AssistantTextBlock) tail() string {
	raw := b.raw.String()
	return strings.TrimLeft(raw[len(b.stable):], "\n")
}

// insideFence reports whether s ends inside a ``` or ~~~ fenced block.
func insideFence(s string) bool {
	var open string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimLeft(line, " ")
		for _, marker := range []string{"```", "~~~"} {
			if !strings.HasPrefix(line, marker) {
				continue
			}
			switch {
			case open == "":
				open = marker
			case open == marker:
				open = ""
			}
		}
	}
	return open != ""
}
