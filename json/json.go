// Package json persists conversation transcripts as JSON files.
package json

import (
	"encoding/json"
	"errors"
	"fmt"
	iofs "io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fwojciec/vox"
)

// Pattern matches transcript files below a transcripts directory.
const Pattern = "**/*.json"

// envelope is the v1 wire format for a persisted transcript.
type envelope struct {
	Version     int          `json:"version"`
	AssistantID string       `json:"assistant_id"`
	SavedAt     time.Time    `json:"saved_at"`
	Messages    []messageDTO `json:"messages"`
}

type messageDTO struct {
	Prompt       string    `json:"prompt,omitempty"`
	Send         string    `json:"send"`
	FinishReason string    `json:"finish_reason,omitempty"`
	Content      string    `json:"content"`
	Usage        usageDTO  `json:"usage"`
	CreatedAt    time.Time `json:"created_at"`
}

type usageDTO struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// MarshalHistory serializes a History to JSON in v1 envelope format.
func MarshalHistory(h vox.History) ([]byte, error) {
	env := envelope{
		Version:     1,
		AssistantID: h.AssistantID,
		SavedAt:     time.Now().UTC(),
		Messages:    make([]messageDTO, len(h.Messages)),
	}
	for i, m := range h.Messages {
		env.Messages[i] = messageDTO{
			Prompt:       m.Input.Prompt,
			Send:         m.Input.Send,
			FinishReason: m.Output.FinishReason,
			Content:      m.Output.Content,
			Usage: usageDTO{
				InputTokens:  m.Usage.InputTokens,
				OutputTokens: m.Usage.OutputTokens,
				TotalTokens:  m.Usage.TotalTokens,
			},
			CreatedAt: m.CreatedAt,
		}
	}
	return json.MarshalIndent(env, "", "  ")
}

// UnmarshalHistory deserializes a History from JSON in v1 envelope format.
func UnmarshalHistory(data []byte) (vox.History, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return vox.History{}, fmt.Errorf("unmarshal envelope: %w", err)
	}
	if env.Version != 1 {
		return vox.History{}, fmt.Errorf("unsupported envelope version: %d", env.Version)
	}
	h := vox.History{
		AssistantID: env.AssistantID,
		Messages:    make([]vox.Message, len(env.Messages)),
	}
	for i, dto := range env.Messages {
		h.Messages[i] = vox.Message{
			Input:  vox.Input{Prompt: dto.Prompt, Send: dto.Send},
			Output: vox.Output{FinishReason: dto.FinishReason, Content: dto.Content},
			Usage: vox.Usage{
				InputTokens:  dto.Usage.InputTokens,
				OutputTokens: dto.Usage.OutputTokens,
				TotalTokens:  dto.Usage.TotalTokens,
			},
			CreatedAt: dto.CreatedAt,
		}
	}
	return h, nil
}

// Save writes a History to a JSON file, creating parent directories as needed.
func Save(path string, h vox.History) error {
	data, err := MarshalHistory(h)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create directories: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp) // best-effort cleanup
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

// Load reads a History from a JSON file.
func Load(path string) (vox.History, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return vox.History{}, fmt.Errorf("read file: %w", err)
	}
	return UnmarshalHistory(data)
}

// List returns the paths of all transcripts below dir, sorted. A missing
// directory holds no transcripts.
func List(dir string) ([]string, error) {
	if _, err := os.Stat(dir); errors.Is(err, iofs.ErrNotExist) {
		return nil, nil
	}
	var paths []string
	err := doublestar.GlobWalk(os.DirFS(dir), Pattern, func(path string, d iofs.DirEntry) error {
		if d.IsDir() {
			return nil
		}
		paths = append(paths, filepath.Join(dir, filepath.FromSlash(path)))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list transcripts: %w", err)
	}
	sort.Strings(paths)
	return paths, nil
}

// Filename returns the default transcript file name for an assistant.
func Filename(assistantID string, at time.Time) string {
	return assistantID + "-" + at.UTC().Format("20060102T150405Z") + ".json"
}
