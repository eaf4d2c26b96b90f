package bubbletea

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/fwojciec/vox"
	"github.com/fwojciec/vox/render"
)

var _ MessageBlock = (*ErrorBlock)(nil)

// ErrorBlock renders a failed exchange with its user-facing description.
type ErrorBlock struct {
	err    error
	styles Styles
}

// NewErrorBlock creates an ErrorBlock.
func NewErrorBlock(err error, styles Styles) *ErrorBlock {
	return &ErrorBlock{err: err, styles: styles}
}

func (b *ErrorBlock) Update(msg tea.Msg) (MessageBlock, tea.Cmd) {
	return b, nil
}

func (b *ErrorBlock) View(width int) string {
	content := b.styles.Error.Render("Error: " + render.Sanitize(vox.Describe(b.err)))
	return lipgloss.NewStyle().Width(width).Render(content)
}
