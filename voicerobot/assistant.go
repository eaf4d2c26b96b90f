package voicerobot

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/fwojciec/vox"
)

// List returns every assistant known to the backend.
func (c *Client) List(ctx context.Context) ([]vox.Assistant, error) {
	var dtos []assistantDTO
	if err := c.do(ctx, http.MethodGet, assistantPath, nil, &dtos); err != nil {
		return nil, err
	}
	result := make([]vox.Assistant, len(dtos))
	for i, d := range dtos {
		result[i] = toAssistant(d)
	}
	return result, nil
}

// Create stores a new assistant. The backend assigns the id and
// timestamps and seeds its history with a welcome message.
func (c *Client) Create(ctx context.Context, a vox.Assistant) (vox.Assistant, error) {
	if err := a.Validate(); err != nil {
		return vox.Assistant{}, err
	}
	a.ID = ""
	var saved assistantDTO
	if err := c.do(ctx, http.MethodPost, assistantPath, fromAssistant(a), &saved); err != nil {
		return vox.Assistant{}, err
	}
	return toAssistant(saved), nil
}

// Update changes the given fields of an existing assistant.
//
// The backend replaces name, description and prompt wholesale, so the
// current values are fetched first and merged with upd.
func (c *Client) Update(ctx context.Context, id string, upd vox.AssistantUpdate) (vox.Assistant, error) {
	if err := validateID(id); err != nil {
		return vox.Assistant{}, err
	}
	if upd.IsEmpty() {
		return vox.Assistant{}, fmt.Errorf("nothing to update: %w", vox.ErrValidation)
	}

	current, err := c.find(ctx, id)
	if err != nil {
		return vox.Assistant{}, err
	}
	merged := upd.Apply(current)
	if strings.TrimSpace(merged.Name) == "" {
		return vox.Assistant{}, fmt.Errorf("assistant name cannot be empty: %w", vox.ErrValidation)
	}

	var updated assistantDTO
	if err := c.do(ctx, http.MethodPatch, assistantPath+"/"+id, fromAssistant(merged), &updated); err != nil {
		return vox.Assistant{}, err
	}
	return toAssistant(updated), nil
}

// Delete removes an assistant.
func (c *Client) Delete(ctx context.Context, id string) error {
	if err := validateID(id); err != nil {
		return err
	}
	return c.do(ctx, http.MethodDelete, assistantPath+"/"+id, nil, nil)
}

// Find returns the assistant with the given id.
func (c *Client) Find(ctx context.Context, id string) (vox.Assistant, error) {
	if err := validateID(id); err != nil {
		return vox.Assistant{}, err
	}
	return c.find(ctx, id)
}

// find looks id up in the full listing; the backend has no single-item
// endpoint.
func (c *Client) find(ctx context.Context, id string) (vox.Assistant, error) {
	all, err := c.List(ctx)
	if err != nil {
		return vox.Assistant{}, err
	}
	for _, a := range all {
		if a.ID == id {
			return a, nil
		}
	}
	return vox.Assistant{}, fmt.Errorf("assistant %s: %w", id, vox.ErrNotFound)
}
