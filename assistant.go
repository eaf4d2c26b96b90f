package vox

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Assistant is a configured conversational persona stored on the backend.
type Assistant struct {
	ID          string
	Name        string
	Description string
	Prompt      string // system prompt
	CreatedAt   time.Time
	ModifiedAt  time.Time
	TimeStamp   string // opaque backend revision marker
}

// Validate checks the constraints the backend enforces on create.
func (a Assistant) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return fmt.Errorf("assistant name is required: %w", ErrValidation)
	}
	if strings.TrimSpace(a.Prompt) == "" {
		return fmt.Errorf("assistant prompt is required: %w", ErrValidation)
	}
	return nil
}

// AssistantUpdate carries the fields to change on an existing assistant.
// Nil fields keep their current value.
type AssistantUpdate struct {
	Name        *string
	Description *string
	Prompt      *string
}

// IsEmpty reports whether the update changes nothing.
func (u AssistantUpdate) IsEmpty() bool {
	return u.Name == nil && u.Description == nil && u.Prompt == nil
}

// AssistantService manages assistants.
type AssistantService interface {
	List(ctx context.Context) ([]Assistant, error)
	Create(ctx context.Context, a Assistant) (Assistant, error)
	Update(ctx context.Context, id string, upd AssistantUpdate) (Assistant, error)
	Delete(ctx context.Context, id string) error
}

// Apply returns a copy of a with the non-nil fields of u applied.
func (u AssistantUpdate) Apply(a Assistant) Assistant {
	if u.Name != nil {
		a.Name = *u.Name
	}
	if u.Description != nil {
		a.Description = *u.Description
	}
	if u.Prompt != nil {
		a.Prompt = *u.Prompt
	}
	return a
}
