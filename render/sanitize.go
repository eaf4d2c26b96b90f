package render

import (
	"strings"

	"github.com/charmbracelet/x/ansi"
)

// Sanitize makes text received from the backend safe to print to a
// terminal. It strips escape sequences and every control character except
// tab and newline, and turns CRLF into LF.
//
// Applied chunk by chunk, a sequence split across chunks can leave its
// printable tail behind, but the escape byte itself never survives.
func Sanitize(s string) string {
	if isPlain(s) {
		return s
	}
	s = ansi.Strip(s)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.Map(func(r rune) rune {
		if r == '\t' || r == '\n' || !isControl(r) {
			return r
		}
		return -1
	}, s)
}

// isControl matches C0, DEL and C1 control characters.
func isControl(r rune) bool {
	return r < 0x20 || (r >= 0x7f && r < 0xa0)
}

func isPlain(s string) bool {
	for _, r := range s {
		if r != '\t' && r != '\n' && isControl(r) {
			return false
		}
	}
	return true
}
