package bubbletea_test

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/fwojciec/vox"
	bt "github.com/fwojciec/vox/bubbletea"
	"github.com/stretchr/testify/assert"
)

func TestUserMessageBlock_View(t *testing.T) {
	t.Parallel()

	t.Run("renders text behind a marker", func(t *testing.T) {
		t.Parallel()
		styles := bt.NewStyles(vox.DefaultTheme())
		block := bt.NewUserMessageBlock("hello world", styles)
		assert.Contains(t, block.View(80), "> hello world")
	})

	t.Run("lines fit the width", func(t *testing.T) {
		t.Parallel()
		styles := bt.NewStyles(vox.DefaultTheme())
		block := bt.NewUserMessageBlock("test", styles)
		for _, line := range strings.Split(block.View(40), "\n") {
			assert.LessOrEqual(t, lipgloss.Width(line), 40)
		}
	})

	t.Run("wraps long text to width", func(t *testing.T) {
		t.Parallel()
		styles := bt.NewStyles(vox.DefaultTheme())
		longText := "short words that keep going and going beyond the viewport width easily"
		block := bt.NewUserMessageBlock(longText, styles)
		view := block.View(30)
		assert.Contains(t, view, "easily")
		assert.Greater(t, len(strings.Split(view, "\n")), 1)
	})
}
