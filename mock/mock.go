// Package mock provides test doubles for vox interfaces using function fields.
package mock

import (
	"context"

	"github.com/fwojciec/vox"
)

// Interface compliance checks.
var (
	_ vox.AssistantService = (*AssistantService)(nil)
	_ vox.HistoryService   = (*HistoryService)(nil)
)

// AssistantService is a test double for vox.AssistantService.
// Set the function fields for the methods you need.
type AssistantService struct {
	ListFn   func(ctx context.Context) ([]vox.Assistant, error)
	CreateFn func(ctx context.Context, a vox.Assistant) (vox.Assistant, error)
	UpdateFn func(ctx context.Context, id string, upd vox.AssistantUpdate) (vox.Assistant, error)
	DeleteFn func(ctx context.Context, id string) error
}

// List delegates to ListFn.
func (s *AssistantService) List(ctx context.Context) ([]vox.Assistant, error) {
	return s.ListFn(ctx)
}

// Create delegates to CreateFn.
func (s *AssistantService) Create(ctx context.Context, a vox.Assistant) (vox.Assistant, error) {
	return s.CreateFn(ctx, a)
}

// Update delegates to UpdateFn.
func (s *AssistantService) Update(ctx context.Context, id string, upd vox.AssistantUpdate) (vox.Assistant, error) {
	return s.UpdateFn(ctx, id, upd)
}

// Delete delegates to DeleteFn.
func (s *AssistantService) Delete(ctx context.Context, id string) error {
	return s.DeleteFn(ctx, id)
}

// HistoryService is a test double for vox.HistoryService.
type HistoryService struct {
	GetFn    func(ctx context.Context, assistantID string) (vox.History, error)
	ResetFn  func(ctx context.Context, assistantID string) error
	AppendFn func(ctx context.Context, assistantID string, msg vox.Message) (vox.Message, error)
}

// Get delegates to GetFn.
func (s *HistoryService) Get(ctx context.Context, assistantID string) (vox.History, error) {
	return s.GetFn(ctx, assistantID)
}

// Reset delegates to ResetFn.
func (s *HistoryService) Reset(ctx context.Context, assistantID string) error {
	return s.ResetFn(ctx, assistantID)
}

// Append delegates to AppendFn.
func (s *HistoryService) Append(ctx context.Context, assistantID string, msg vox.Message) (vox.Message, error) {
	return s.AppendFn(ctx, assistantID, msg)
}
