package log_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/fwojciec/vox/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("writes json entries with fields", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger, err := log.New(&buf, "info", log.FormatJSON)
		require.NoError(t, err)

		logger.Info("stream completed", zap.String("target_id", "abc"), zap.Int("output_tokens", 7))

		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "info", entry["level"])
		assert.Equal(t, "stream completed", entry["message"])
		assert.Equal(t, "abc", entry["target_id"])
		assert.EqualValues(t, 7, entry["output_tokens"])
		assert.Contains(t, entry, "timestamp")
	})

	t.Run("filters below level", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger, err := log.New(&buf, "WARN", "")
		require.NoError(t, err)

		logger.Debug("hidden")
		logger.Info("hidden")
		logger.Warn("shown")

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		require.Len(t, lines, 1)
		assert.Contains(t, lines[0], "shown")
	})

	t.Run("empty level defaults to info", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger, err := log.New(&buf, "", "")
		require.NoError(t, err)

		logger.Debug("hidden")
		logger.Info("shown")
		assert.NotContains(t, buf.String(), "hidden")
		assert.Contains(t, buf.String(), "shown")
	})

	t.Run("console format", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger, err := log.New(&buf, "debug", log.FormatConsole)
		require.NoError(t, err)

		logger.Debug("hello", zap.String("k", "v"))
		assert.Contains(t, buf.String(), "debug")
		assert.Contains(t, buf.String(), "hello")
		assert.Contains(t, buf.String(), `"k": "v"`)
	})

	t.Run("rejects unknown level", func(t *testing.T) {
		t.Parallel()

		_, err := log.New(&bytes.Buffer{}, "verbose", "")
		assert.Error(t, err)
	})

	t.Run("rejects unknown format", func(t *testing.T) {
		t.Parallel()

		_, err := log.New(&bytes.Buffer{}, "info", "xml")
		assert.Error(t, err)
	})
}
