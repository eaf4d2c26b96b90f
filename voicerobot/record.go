package voicerobot

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fwojciec/vox"
)

const dataPrefix = "data:"

// lineBuffer reassembles newline-terminated lines from decoded text that
// arrives in arbitrary pieces. It holds the unterminated tail between
// pushes.
type lineBuffer struct {
	tail string
}

// push appends text and returns every line completed by it, without the
// newline. The trailing partial line stays buffered.
func (b *lineBuffer) push(text string) []string {
	s := b.tail + text
	i := strings.LastIndexByte(s, '\n')
	if i < 0 {
		b.tail = s
		return nil
	}
	b.tail = s[i+1:]
	return strings.Split(s[:i], "\n")
}

// flush returns whatever is still buffered, split into lines, and empties
// the buffer.
func (b *lineBuffer) flush() []string {
	s := b.tail
	b.tail = ""
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

// record is one parsed stream line.
type record struct {
	content string // empty content is never delivered
	done    bool
	usage   vox.Usage
	remote  string // backend error message
	failed  bool
}

// parseLine decodes one protocol line. ok is false for lines that carry
// no record: blanks, comments and non-data fields. A line is either
// "data: {json}" or a bare JSON object.
func parseLine(line string) (rec record, ok bool, err error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return record{}, false, nil
	}

	var payload string
	switch {
	case strings.HasPrefix(line, dataPrefix):
		payload = strings.TrimSpace(line[len(dataPrefix):])
	case strings.HasPrefix(line, "{"):
		payload = line
	default:
		return record{}, false, nil
	}

	var raw streamRecord
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return record{}, false, &vox.ParseError{Line: line, Err: err}
	}

	if raw.Content != nil {
		rec.content = *raw.Content
	}
	if truthy(raw.Error) {
		rec.failed = true
		rec.remote = errorText(raw.Error)
	}
	if truthy(raw.Done) {
		rec.done = true
		if raw.Usage != nil {
			rec.usage = toUsage(*raw.Usage)
		}
	}
	return rec, true, nil
}

// truthy mirrors loose JSON truthiness: false, 0, "" and null are false.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != ""
	default:
		return true
	}
}

func errorText(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case map[string]any:
		if msg, ok := t["message"].(string); ok {
			return msg
		}
	}
	return fmt.Sprint(v)
}
