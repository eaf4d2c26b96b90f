// Package markdown renders assistant replies to ANSI-styled terminal
// output using goldmark for parsing and lipgloss for styling.
package markdown

import (
	"strings"

	"github.com/fwojciec/vox"
)

const defaultWidth = 80

// Render parses markdown source and returns ANSI-styled terminal output.
// Paragraphs and list items are word-wrapped to width. Code blocks are
// rendered at full width without reflow.
func Render(source string, width int, theme vox.Theme) string {
	if source == "" {
		return ""
	}
	if width <= 0 {
		width = defaultWidth
	}
	r := newRenderer(theme)
	return r.render([]byte(source), width)
}

// RenderPartial renders a reply that is still streaming. An unterminated
// code fence is closed first so the code seen so far keeps its code
// styling instead of flickering between prose and code.
func RenderPartial(source string, width int, theme vox.Theme) string {
	if fence, open := openFence(source); open {
		if !strings.HasSuffix(source, "\n") {
			source += "\n"
		}
		source += fence
	}
	return Render(source, width, theme)
}

// openFence reports whether source ends inside a fenced code block and
// returns the fence that would close it.
func openFence(source string) (string, bool) {
	var fence string
	for _, line := range strings.Split(source, "\n") {
		trimmed := strings.TrimLeft(line, " ")
		if len(line)-len(trimmed) > 3 {
			continue
		}
		marker := fenceMarker(trimmed)
		switch {
		case marker == "":
		case fence == "":
			fence = marker
		case marker[0] == fence[0] && len(marker) >= len(fence) && strings.TrimSpace(trimmed[len(marker):]) == "":
			fence = ""
		}
	}
	return fence, fence != ""
}

// fenceMarker returns the run of three or more backticks or tildes that
// starts line, or "".
func fenceMarker(line string) string {
	if len(line) < 3 || (line[0] != '`' && line[0] != '~') {
		return ""
	}
	n := 0
	for n < len(line) && line[n] == line[0] {
		n++
	}
	if n < 3 {
		return ""
	}
	return line[:n]
}
