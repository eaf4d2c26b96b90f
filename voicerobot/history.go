package voicerobot

import (
	"context"
	"net/http"

	"github.com/fwojciec/vox"
)

// Get returns the stored conversation of an assistant.
func (c *Client) Get(ctx context.Context, assistantID string) (vox.History, error) {
	if err := validateID(assistantID); err != nil {
		return vox.History{}, err
	}
	var dto historyDTO
	if err := c.do(ctx, http.MethodGet, historyPath+"/"+assistantID, nil, &dto); err != nil {
		return vox.History{}, err
	}
	h := vox.History{
		AssistantID: dto.AssistantID,
		Messages:    make([]vox.Message, len(dto.Messages)),
	}
	if h.AssistantID == "" {
		h.AssistantID = assistantID
	}
	for i, m := range dto.Messages {
		h.Messages[i] = toMessage(m)
	}
	return h, nil
}

// Reset clears the conversation. The backend leaves a single greeting
// message behind.
func (c *Client) Reset(ctx context.Context, assistantID string) error {
	if err := validateID(assistantID); err != nil {
		return err
	}
	return c.do(ctx, http.MethodDelete, historyPath+"/"+assistantID, nil, nil)
}

// Append stores one exchange. The backend stamps the creation time and
// returns the stored message.
//
// Streamed replies need no Append: the stream-process handler persists
// the exchange itself once the reply is done. Append is for importing
// exchanges produced elsewhere.
func (c *Client) Append(ctx context.Context, assistantID string, msg vox.Message) (vox.Message, error) {
	if err := validateID(assistantID); err != nil {
		return vox.Message{}, err
	}
	var saved messageDTO
	if err := c.do(ctx, http.MethodPost, historyPath+"/"+assistantID, fromMessage(msg), &saved); err != nil {
		return vox.Message{}, err
	}
	return toMessage(saved), nil
}
