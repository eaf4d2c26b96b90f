package json_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fwojciec/vox"
	voxjson "github.com/fwojciec/vox/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleHistory() vox.History {
	return vox.History{
		AssistantID: "0b6f3a52-8f4c-4c39-9d55-2f3c1f6b7a10",
		Messages: []vox.Message{
			{
				Input:     vox.Input{Prompt: "Be brief."},
				Output:    vox.Output{FinishReason: "stop", Content: "Welcome!"},
				CreatedAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
			},
			{
				Input:     vox.Input{Prompt: "Be brief.", Send: "What is Go?"},
				Output:    vox.Output{FinishReason: "stop", Content: "A **programming** language."},
				Usage:     vox.Usage{InputTokens: 3, OutputTokens: 6, TotalTokens: 9},
				CreatedAt: time.Date(2026, 3, 1, 9, 1, 0, 0, time.UTC),
			},
		},
	}
}

func TestSave_And_Load(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "dir", "t.json")
	want := sampleHistory()

	require.NoError(t, voxjson.Save(path, want))
	_, err := os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err), "temp file left behind")

	got, err := voxjson.Load(path)
	require.NoError(t, err)
	assert.Equal(t, want.AssistantID, got.AssistantID)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, want.Messages[1].Input, got.Messages[1].Input)
	assert.Equal(t, want.Messages[1].Output, got.Messages[1].Output)
	assert.Equal(t, want.Messages[1].Usage, got.Messages[1].Usage)
	assert.True(t, want.Messages[1].CreatedAt.Equal(got.Messages[1].CreatedAt))
}

func TestMarshalHistory_V1Envelope(t *testing.T) {
	t.Parallel()

	data, err := voxjson.MarshalHistory(sampleHistory())
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, float64(1), raw["version"])
	assert.Equal(t, "0b6f3a52-8f4c-4c39-9d55-2f3c1f6b7a10", raw["assistant_id"])
	assert.Contains(t, raw, "saved_at")
	msgs := raw["messages"].([]any)
	require.Len(t, msgs, 2)
	second := msgs[1].(map[string]any)
	assert.Equal(t, "What is Go?", second["send"])
	assert.Equal(t, "stop", second["finish_reason"])
}

func TestUnmarshalHistory_UnsupportedVersion(t *testing.T) {
	t.Parallel()

	_, err := voxjson.UnmarshalHistory([]byte(`{"version":2,"messages":[]}`))
	assert.ErrorContains(t, err, "unsupported envelope version: 2")
}

func TestLoad_NonexistentFile(t *testing.T) {
	t.Parallel()

	_, err := voxjson.Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestList(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	for _, p := range []string{"a.json", "sub/b.json", "sub/deeper/c.json", "notes.txt"} {
		full := filepath.Join(dir, filepath.FromSlash(p))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o700))
		require.NoError(t, os.WriteFile(full, []byte("{}"), 0o600))
	}

	got, err := voxjson.List(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.json"),
		filepath.Join(dir, "sub", "b.json"),
		filepath.Join(dir, "sub", "deeper", "c.json"),
	}, got)
}

func TestList_MissingDirectory(t *testing.T) {
	t.Parallel()

	got, err := voxjson.List(filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFilename(t *testing.T) {
	t.Parallel()

	at := time.Date(2026, 3, 1, 9, 1, 2, 0, time.UTC)
	assert.Equal(t, "abc-20260301T090102Z.json", voxjson.Filename("abc", at))
}
