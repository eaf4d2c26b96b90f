package main

import (
	"bytes"
	"context"
	stdjson "encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fwojciec/vox"
	"github.com/fwojciec/vox/json"
	"github.com/fwojciec/vox/mock"
	"github.com/fwojciec/vox/voicerobottest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

type result struct {
	stdout string
	stderr string
	err    error
}

// runCLI runs the app against srv with no config file.
func runCLI(t *testing.T, srv *voicerobottest.Server, args ...string) result {
	t.Helper()
	global := []string{"vox", "--config", "", "--base-url", srv.URL, "--log-level", "error"}
	return runArgs(t, append(global, args...)...)
}

func runArgs(t *testing.T, args ...string) result {
	t.Helper()
	var stdout, stderr bytes.Buffer
	app := newApp(&stdout, &stderr)
	app.ExitErrHandler = func(*cli.Context, error) {}
	err := app.Run(args)
	return result{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

// runWith runs the app with svc in place of the backend assistant service.
func runWith(t *testing.T, svc vox.AssistantService, args ...string) result {
	t.Helper()
	var stdout, stderr bytes.Buffer
	e := &env{stdout: &stdout, stderr: &stderr, assistants: svc}
	app := e.app()
	app.ExitErrHandler = func(*cli.Context, error) {}
	err := app.Run(append([]string{"vox", "--config", "", "--log-level", "error"}, args...))
	return result{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

func newServer(t *testing.T) *voicerobottest.Server {
	t.Helper()
	srv := voicerobottest.NewServer()
	t.Cleanup(srv.Close)
	return srv
}

func TestAssistantCommands(t *testing.T) {
	t.Parallel()

	t.Run("list as json", func(t *testing.T) {
		t.Parallel()
		srv := newServer(t)
		srv.Seed("Robo", "friendly", "be nice")
		srv.Seed("Grumpy", "", "be terse")

		res := runCLI(t, srv, "assistant", "list", "--format", "json")
		require.NoError(t, res.err)

		var got []map[string]any
		require.NoError(t, stdjson.Unmarshal([]byte(res.stdout), &got))
		require.Len(t, got, 2)
		assert.Equal(t, "Robo", got[0]["name"])
		assert.Equal(t, "Grumpy", got[1]["name"])
	})

	t.Run("create then list as table", func(t *testing.T) {
		t.Parallel()
		srv := newServer(t)

		res := runCLI(t, srv, "assistant", "create", "--name", "Tutor", "--prompt", "teach")
		require.NoError(t, res.err)
		assert.Contains(t, res.stdout, "Tutor")

		res = runCLI(t, srv, "assistant", "list")
		require.NoError(t, res.err)
		assert.Contains(t, res.stdout, "NAME")
		assert.Contains(t, res.stdout, "Tutor")
	})

	t.Run("create without prompt fails locally", func(t *testing.T) {
		t.Parallel()
		srv := newServer(t)

		res := runCLI(t, srv, "assistant", "create", "--name", "Tutor")
		require.Error(t, res.err)
		assert.Contains(t, res.err.Error(), "prompt is required")
	})

	t.Run("update changes only given fields", func(t *testing.T) {
		t.Parallel()
		srv := newServer(t)
		a := srv.Seed("Robo", "friendly", "be nice")

		res := runCLI(t, srv, "assistant", "update", "--format", "yaml", "--name", "Robo 2", a.ID)
		require.NoError(t, res.err)
		assert.Contains(t, res.stdout, "name: Robo 2")
		assert.Contains(t, res.stdout, "description: friendly")
	})

	t.Run("update without fields is a usage error", func(t *testing.T) {
		t.Parallel()
		srv := newServer(t)
		a := srv.Seed("Robo", "", "be nice")

		res := runCLI(t, srv, "assistant", "update", a.ID)
		var exitErr cli.ExitCoder
		require.ErrorAs(t, res.err, &exitErr)
		assert.Equal(t, 2, exitErr.ExitCode())
	})

	t.Run("delete", func(t *testing.T) {
		t.Parallel()
		srv := newServer(t)
		a := srv.Seed("Robo", "", "be nice")

		res := runCLI(t, srv, "assistant", "delete", a.ID)
		require.NoError(t, res.err)
		assert.Contains(t, res.stdout, "Deleted assistant "+a.ID)

		res = runCLI(t, srv, "assistant", "list", "--format", "json")
		require.NoError(t, res.err)
		assert.JSONEq(t, "[]", res.stdout)
	})

	t.Run("missing id", func(t *testing.T) {
		t.Parallel()
		srv := newServer(t)

		res := runCLI(t, srv, "assistant", "delete")
		require.Error(t, res.err)
		assert.Contains(t, res.err.Error(), "missing assistant ID")
	})

	t.Run("unknown format", func(t *testing.T) {
		t.Parallel()
		srv := newServer(t)

		res := runCLI(t, srv, "assistant", "list", "--format", "xml")
		require.Error(t, res.err)
		assert.Contains(t, res.err.Error(), "unknown format")
	})
}

func TestAssistantCommands_Service(t *testing.T) {
	t.Parallel()

	t.Run("create passes flags through", func(t *testing.T) {
		t.Parallel()
		var got vox.Assistant
		svc := &mock.AssistantService{
			CreateFn: func(_ context.Context, a vox.Assistant) (vox.Assistant, error) {
				got = a
				a.ID = "a-1"
				return a, nil
			},
		}

		res := runWith(t, svc, "assistant", "create", "--name", "Robo", "--prompt", "be nice", "--format", "json")
		require.NoError(t, res.err)
		assert.Equal(t, vox.Assistant{Name: "Robo", Prompt: "be nice"}, got)
		assert.Contains(t, res.stdout, `"a-1"`)
	})

	t.Run("update sends only set fields", func(t *testing.T) {
		t.Parallel()
		var (
			gotID  string
			gotUpd vox.AssistantUpdate
		)
		svc := &mock.AssistantService{
			UpdateFn: func(_ context.Context, id string, upd vox.AssistantUpdate) (vox.Assistant, error) {
				gotID, gotUpd = id, upd
				return vox.Assistant{ID: id, Name: *upd.Name}, nil
			},
		}

		res := runWith(t, svc, "assistant", "update", "--name", "Grumpy", "a-1")
		require.NoError(t, res.err)
		assert.Equal(t, "a-1", gotID)
		require.NotNil(t, gotUpd.Name)
		assert.Equal(t, "Grumpy", *gotUpd.Name)
		assert.Nil(t, gotUpd.Description)
		assert.Nil(t, gotUpd.Prompt)
	})

	t.Run("service error is described", func(t *testing.T) {
		t.Parallel()
		svc := &mock.AssistantService{
			ListFn: func(context.Context) ([]vox.Assistant, error) {
				return nil, &vox.APIError{Code: 500, Message: "database is locked"}
			},
		}

		res := runWith(t, svc, "assistant", "list")
		require.Error(t, res.err)
		assert.Equal(t, "database is locked", res.err.Error())
		assert.Empty(t, res.stdout)
	})

	t.Run("delete reports the id", func(t *testing.T) {
		t.Parallel()
		var deleted string
		svc := &mock.AssistantService{
			DeleteFn: func(_ context.Context, id string) error {
				deleted = id
				return nil
			},
		}

		res := runWith(t, svc, "assistant", "delete", "a-1")
		require.NoError(t, res.err)
		assert.Equal(t, "a-1", deleted)
		assert.Equal(t, "Deleted assistant a-1\n", res.stdout)
	})
}

func TestHistoryCommands(t *testing.T) {
	t.Parallel()

	t.Run("show includes greeting", func(t *testing.T) {
		t.Parallel()
		srv := newServer(t)
		a := srv.Seed("Robo", "", "be nice")

		res := runCLI(t, srv, "history", "show", a.ID)
		require.NoError(t, res.err)
		assert.Contains(t, res.stdout, "Welcome to Robo")
		assert.Contains(t, res.stdout, "1 messages")
	})

	t.Run("reset", func(t *testing.T) {
		t.Parallel()
		srv := newServer(t)
		a := srv.Seed("Robo", "", "be nice")
		require.NoError(t, runCLI(t, srv, "ask", a.ID, "hi").err)
		require.Len(t, srv.Messages(a.ID), 2)

		res := runCLI(t, srv, "history", "reset", a.ID)
		require.NoError(t, res.err)
		assert.Contains(t, res.stdout, "reset")
		assert.Len(t, srv.Messages(a.ID), 1)
	})

	t.Run("unknown assistant", func(t *testing.T) {
		t.Parallel()
		srv := newServer(t)

		res := runCLI(t, srv, "history", "show", "0b6f3a52-8f4c-4c39-9d55-2f3c1f6b7a10")
		require.Error(t, res.err)
		assert.Equal(t, "Internal server error", res.err.Error())
	})

	t.Run("export and list transcripts", func(t *testing.T) {
		t.Parallel()
		srv := newServer(t)
		a := srv.Seed("Robo", "", "be nice")
		dir := t.TempDir()
		out := filepath.Join(dir, "nested", "robo.json")

		res := runCLI(t, srv, "history", "export", "--out", out, a.ID)
		require.NoError(t, res.err)
		assert.Equal(t, out, strings.TrimSpace(res.stdout))

		h, err := json.Load(out)
		require.NoError(t, err)
		assert.Equal(t, a.ID, h.AssistantID)
		require.Len(t, h.Messages, 1)
		assert.Contains(t, h.Messages[0].Output.Content, "Welcome to Robo")

		res = runCLI(t, srv, "transcripts", "--dir", dir)
		require.NoError(t, res.err)
		assert.Equal(t, out, strings.TrimSpace(res.stdout))
	})
}

func TestAsk(t *testing.T) {
	t.Parallel()

	t.Run("streams reply to stdout", func(t *testing.T) {
		t.Parallel()
		srv := newServer(t)
		a := srv.Seed("Robo", "", "be nice")

		res := runCLI(t, srv, "ask", a.ID, "hello", "there", "world")
		require.NoError(t, res.err)
		assert.Equal(t, "hello there world\n", res.stdout)
		assert.Contains(t, res.stderr, "tokens:")

		msgs := srv.Messages(a.ID)
		require.Len(t, msgs, 2)
		assert.Equal(t, "hello there world", msgs[1].Input.Send)
		assert.Equal(t, "be nice", msgs[1].Input.Prompt)
		assert.Equal(t, voicerobottest.FinishStop, msgs[1].Output.FinishReason)
	})

	t.Run("unknown assistant", func(t *testing.T) {
		t.Parallel()
		srv := newServer(t)

		res := runCLI(t, srv, "ask", "0b6f3a52-8f4c-4c39-9d55-2f3c1f6b7a10", "hi")
		require.Error(t, res.err)
		assert.Equal(t, "Assistant not found", res.err.Error())
	})

	t.Run("invalid id", func(t *testing.T) {
		t.Parallel()
		srv := newServer(t)

		res := runCLI(t, srv, "ask", "not-a-uuid", "hi")
		require.Error(t, res.err)
		assert.Contains(t, res.err.Error(), "invalid assistant id")
	})

	t.Run("needs text", func(t *testing.T) {
		t.Parallel()
		srv := newServer(t)

		res := runCLI(t, srv, "ask", "0b6f3a52-8f4c-4c39-9d55-2f3c1f6b7a10")
		require.Error(t, res.err)
		assert.Contains(t, res.err.Error(), "usage")
	})
}

func TestConfigFile(t *testing.T) {
	srv := newServer(t)
	srv.Seed("Robo", "", "be nice")
	t.Setenv("VOX_TEST_BASE_URL", srv.URL)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  base_url: ${VOX_TEST_BASE_URL}\nlog:\n  level: error\n"), 0o600))

	res := runArgs(t, "vox", "--config", path, "assistant", "list")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "Robo")
}

func TestConfigFileMissing(t *testing.T) {
	t.Parallel()

	res := runArgs(t, "vox", "--config", filepath.Join(t.TempDir(), "nope.yaml"), "assistant", "list")
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), "nope.yaml")
}

func TestBadLogLevel(t *testing.T) {
	t.Parallel()
	srv := newServer(t)

	res := runCLI(t, srv, "--log-level", "loud", "assistant", "list")
	require.Error(t, res.err)
}
