// Package voicerobot implements the vox services against the voice-robot
// HTTP API.
//
// CRUD calls go through a small JSON transport that unwraps the backend's
// {code, message, data} envelope. Replies are streamed from the
// stream-process endpoint as newline-delimited "data: {json}" records and
// consumed by a single state machine that resolves every stream exactly
// once to completed, cancelled or failed.
package voicerobot

import (
	"encoding/json"
	"time"

	"github.com/fwojciec/vox"
)

const (
	defaultBaseURL     = "http://localhost:8080"
	defaultTimeout     = 60 * time.Second
	defaultReadTimeout = 30 * time.Second
	apiPrefix          = "/api/voice-robot/v1"
	assistantPath      = "/assistant"
	historyPath        = "/history"
	streamSuffix       = "/stream-process"

	// timeLayout is the backend's gmt_create/gmt_modified format, in the
	// server's local time.
	timeLayout = "2006-01-02 15:04:05"

	// maxEnvelopeSize bounds CRUD response bodies.
	maxEnvelopeSize = 8 << 20

	readBufferSize = 4096
)

// envelope wraps every CRUD response.
//
// The assistant handlers fill code; the history handlers leave it out and
// only set success. Older handlers use msg instead of message.
type envelope struct {
	Code    int             `json:"code"`
	Success *bool           `json:"success"`
	Message string          `json:"message"`
	Msg     string          `json:"msg"`
	Data    json.RawMessage `json:"data"`
}

func (e envelope) ok() bool {
	if e.Code != 0 {
		return e.Code == 200
	}
	return e.Success != nil && *e.Success
}

func (e envelope) message() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Msg
}

type assistantDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Prompt      string `json:"prompt"`
	GmtCreate   string `json:"gmt_create,omitempty"`
	GmtModified string `json:"gmt_modified,omitempty"`
	TimeStamp   string `json:"time_stamp,omitempty"`
}

type historyDTO struct {
	AssistantID string       `json:"assistant_id"`
	Messages    []messageDTO `json:"messages"`
}

type messageDTO struct {
	Input     inputDTO  `json:"input"`
	Output    outputDTO `json:"output"`
	Usage     usageDTO  `json:"usage"`
	GmtCreate string    `json:"gmt_create,omitempty"`
}

type inputDTO struct {
	Prompt string `json:"prompt"`
	Send   string `json:"send"`
}

type outputDTO struct {
	FinishReason string `json:"finish_reason"`
	Content      string `json:"content"`
}

type usageDTO struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// streamRecord is the JSON object carried by one "data:" line.
// Done and Error are loosely typed because the backend has sent them as
// booleans, numbers and strings over time.
type streamRecord struct {
	Content   *string   `json:"content"`
	Done      any       `json:"done"`
	Usage     *usageDTO `json:"usage"`
	Error     any       `json:"error"`
	Heartbeat any       `json:"heartbeat"`
}

func toAssistant(d assistantDTO) vox.Assistant {
	return vox.Assistant{
		ID:          d.ID,
		Name:        d.Name,
		Description: d.Description,
		Prompt:      d.Prompt,
		CreatedAt:   parseTime(d.GmtCreate),
		ModifiedAt:  parseTime(d.GmtModified),
		TimeStamp:   d.TimeStamp,
	}
}

func fromAssistant(a vox.Assistant) assistantDTO {
	return assistantDTO{
		ID:          a.ID,
		Name:        a.Name,
		Description: a.Description,
		Prompt:      a.Prompt,
		GmtCreate:   formatTime(a.CreatedAt),
		GmtModified: formatTime(a.ModifiedAt),
		TimeStamp:   a.TimeStamp,
	}
}

func toMessage(d messageDTO) vox.Message {
	return vox.Message{
		Input:     vox.Input{Prompt: d.Input.Prompt, Send: d.Input.Send},
		Output:    vox.Output{FinishReason: d.Output.FinishReason, Content: d.Output.Content},
		Usage:     toUsage(d.Usage),
		CreatedAt: parseTime(d.GmtCreate),
	}
}

func fromMessage(m vox.Message) messageDTO {
	return messageDTO{
		Input:     fromInput(m.Input),
		Output:    outputDTO{FinishReason: m.Output.FinishReason, Content: m.Output.Content},
		Usage:     usageDTO{InputTokens: m.Usage.InputTokens, OutputTokens: m.Usage.OutputTokens, TotalTokens: m.Usage.TotalTokens},
		GmtCreate: formatTime(m.CreatedAt),
	}
}

func fromInput(in vox.Input) inputDTO {
	return inputDTO{Prompt: in.Prompt, Send: in.Send}
}

func toUsage(d usageDTO) vox.Usage {
	return vox.Usage{
		InputTokens:  d.InputTokens,
		OutputTokens: d.OutputTokens,
		TotalTokens:  d.TotalTokens,
	}
}

// parseTime returns the zero time for empty or malformed values.
func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.ParseInLocation(timeLayout, s, time.Local)
	if err != nil {
		return time.Time{}
	}
	return t
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(timeLayout)
}
