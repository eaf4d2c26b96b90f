package vox

import (
	"context"
	"time"
)

// History is the stored conversation of one assistant.
type History struct {
	AssistantID string
	Messages    []Message
}

// Message is one exchange: what the user sent and what the assistant
// answered.
type Message struct {
	Input     Input
	Output    Output
	Usage     Usage
	CreatedAt time.Time
}

// Input is the user side of an exchange. It is also the payload sent to
// the streaming endpoint.
type Input struct {
	Prompt string // system prompt override; empty uses the assistant's
	Send   string // user text
}

// Output is the assistant side of an exchange.
type Output struct {
	FinishReason string
	Content      string
}

// TotalUsage sums the usage of every message in the history.
func (h History) TotalUsage() Usage {
	var total Usage
	for _, m := range h.Messages {
		total = total.Add(m.Usage)
	}
	return total
}

// HistoryService manages conversation history per assistant.
type HistoryService interface {
	Get(ctx context.Context, assistantID string) (History, error)
	Reset(ctx context.Context, assistantID string) error
	Append(ctx context.Context, assistantID string, msg Message) (Message, error)
}
