// Package render writes assistants and histories for the command line as
// an aligned table, JSON or YAML.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/fwojciec/vox"
	"github.com/mattn/go-runewidth"
	"github.com/rivo/uniseg"
	"gopkg.in/yaml.v3"
)

// Format selects the output encoding.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// ParseFormat validates a format name. The empty string selects a table.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case "":
		return FormatTable, nil
	case FormatTable, FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unknown format %q (want table, json or yaml): %w", s, vox.ErrValidation)
	}
}

const (
	timeLayout     = "2006-01-02 15:04"
	maxColumnWidth = 40
	ellipsis       = "…"
)

type assistantView struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	Prompt      string `json:"prompt" yaml:"prompt"`
	CreatedAt   string `json:"created_at,omitempty" yaml:"created_at,omitempty"`
	ModifiedAt  string `json:"modified_at,omitempty" yaml:"modified_at,omitempty"`
}

type messageView struct {
	Send         string    `json:"send" yaml:"send"`
	Content      string    `json:"content" yaml:"content"`
	FinishReason string    `json:"finish_reason,omitempty" yaml:"finish_reason,omitempty"`
	Usage        usageView `json:"usage" yaml:"usage"`
	CreatedAt    string    `json:"created_at,omitempty" yaml:"created_at,omitempty"`
}

type usageView struct {
	InputTokens  int `json:"input_tokens" yaml:"input_tokens"`
	OutputTokens int `json:"output_tokens" yaml:"output_tokens"`
	TotalTokens  int `json:"total_tokens" yaml:"total_tokens"`
}

type historyView struct {
	AssistantID string        `json:"assistant_id" yaml:"assistant_id"`
	Messages    []messageView `json:"messages" yaml:"messages"`
	Usage       usageView     `json:"usage" yaml:"usage"`
}

// Assistants writes a list of assistants.
func Assistants(w io.Writer, list []vox.Assistant, f Format) error {
	views := make([]assistantView, len(list))
	for i, a := range list {
		views[i] = assistantView{
			ID:          a.ID,
			Name:        a.Name,
			Description: a.Description,
			Prompt:      a.Prompt,
			CreatedAt:   formatTime(a.CreatedAt),
			ModifiedAt:  formatTime(a.ModifiedAt),
		}
	}
	if f != FormatTable {
		return encode(w, views, f)
	}

	t := table{header: []string{"ID", "NAME", "DESCRIPTION", "MODIFIED"}}
	for _, v := range views {
		t.rows = append(t.rows, []string{v.ID, v.Name, v.Description, v.ModifiedAt})
	}
	return t.write(w)
}

// Assistant writes a single assistant.
func Assistant(w io.Writer, a vox.Assistant, f Format) error {
	if f == FormatTable {
		return Assistants(w, []vox.Assistant{a}, f)
	}
	return encode(w, assistantView{
		ID:          a.ID,
		Name:        a.Name,
		Description: a.Description,
		Prompt:      a.Prompt,
		CreatedAt:   formatTime(a.CreatedAt),
		ModifiedAt:  formatTime(a.ModifiedAt),
	}, f)
}

// History writes a conversation, one row per exchange.
func History(w io.Writer, h vox.History, f Format) error {
	view := historyView{
		AssistantID: h.AssistantID,
		Messages:    make([]messageView, len(h.Messages)),
		Usage:       toUsageView(h.TotalUsage()),
	}
	for i, m := range h.Messages {
		view.Messages[i] = messageView{
			Send:         m.Input.Send,
			Content:      m.Output.Content,
			FinishReason: m.Output.FinishReason,
			Usage:        toUsageView(m.Usage),
			CreatedAt:    formatTime(m.CreatedAt),
		}
	}
	if f != FormatTable {
		return encode(w, view, f)
	}

	t := table{header: []string{"#", "TIME", "YOU", "ASSISTANT", "TOKENS"}}
	for i, m := range view.Messages {
		t.rows = append(t.rows, []string{
			strconv.Itoa(i + 1),
			m.CreatedAt,
			m.Send,
			m.Content,
			strconv.Itoa(m.Usage.TotalTokens),
		})
	}
	if err := t.write(w); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\n%d messages, %d tokens\n", len(view.Messages), view.Usage.TotalTokens)
	return err
}

func toUsageView(u vox.Usage) usageView {
	return usageView{InputTokens: u.InputTokens, OutputTokens: u.OutputTokens, TotalTokens: u.TotalTokens}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(timeLayout)
}

func encode(w io.Writer, v any, f Format) error {
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown format %q: %w", f, vox.ErrValidation)
	}
}

// table aligns cells by terminal display width, so wide CJK text and
// emoji keep the columns straight.
type table struct {
	header []string
	rows   [][]string
}

func (t table) write(w io.Writer) error {
	widths := make([]int, len(t.header))
	cells := make([][]string, 0, len(t.rows)+1)
	for _, row := range append([][]string{t.header}, t.rows...) {
		line := make([]string, len(t.header))
		for i := range line {
			if i < len(row) {
				line[i] = Truncate(singleLine(row[i]), maxColumnWidth)
			}
			widths[i] = max(widths[i], runewidth.StringWidth(line[i]))
		}
		cells = append(cells, line)
	}

	var b strings.Builder
	for _, line := range cells {
		for i, cell := range line {
			b.WriteString(cell)
			if i < len(line)-1 {
				b.WriteString(strings.Repeat(" ", widths[i]-runewidth.StringWidth(cell)+2))
			}
		}
		b.WriteString("\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func singleLine(s string) string {
	return strings.Join(strings.Fields(Sanitize(s)), " ")
}

// Truncate shortens s to at most width terminal columns, ending it with an
// ellipsis when anything was cut. Grapheme clusters are never split.
func Truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if uniseg.StringWidth(s) <= width {
		return s
	}
	limit := width - runewidth.StringWidth(ellipsis)
	var (
		b    strings.Builder
		used int
	)
	g := uniseg.NewGraphemes(s)
	for g.Next() {
		w := g.Width()
		if used+w > limit {
			break
		}
		b.WriteString(g.Str())
		used += w
	}
	return b.String() + ellipsis
}
