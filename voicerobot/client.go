package voicerobot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fwojciec/vox"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Interface compliance checks.
var (
	_ vox.AssistantService = (*Client)(nil)
	_ vox.HistoryService   = (*Client)(nil)
	_ vox.Streamer         = (*Client)(nil)
)

// Client talks to one voice-robot backend.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	timeout     time.Duration
	readTimeout time.Duration
	logger      *zap.Logger
}

// Option configures a [Client].
type Option func(*Client)

// WithBaseURL sets the backend base URL. Useful for testing with httptest.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(url, "/") }
}

// WithHTTPClient sets a custom HTTP client. Its Timeout must be zero or
// long enough for a whole streamed reply; CRUD deadlines are applied per
// request through WithTimeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the deadline for CRUD requests. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithReadTimeout bounds how long a stream may go without receiving any
// bytes before it fails with [vox.ErrReadTimeout]. Zero disables it.
func WithReadTimeout(d time.Duration) Option {
	return func(c *Client) { c.readTimeout = d }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a new [Client] with the given options.
func New(opts ...Option) *Client {
	c := &Client{
		baseURL:     defaultBaseURL,
		httpClient:  &http.Client{},
		timeout:     defaultTimeout,
		readTimeout: defaultReadTimeout,
		logger:      zap.NewNop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// do sends a JSON request and decodes the envelope's data into out.
// out may be nil when the caller does not need the payload.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("voicerobot: marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url(path), body)
	if err != nil {
		return fmt.Errorf("voicerobot: %w", err)
	}
	req.Header.Set("Content-Type", "application/json;charset=utf-8")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("request failed", zap.String("method", method), zap.String("path", path), zap.Error(err))
		return fmt.Errorf("voicerobot: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxEnvelopeSize))
	if err != nil {
		return fmt.Errorf("voicerobot: read response: %w", err)
	}

	if err := decodeEnvelope(resp.StatusCode, data, out); err != nil {
		c.logger.Warn("request rejected",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.Error(err))
		return fmt.Errorf("voicerobot: %s %s: %w", method, path, err)
	}
	return nil
}

func (c *Client) url(path string) string {
	return c.baseURL + apiPrefix + path
}

// decodeEnvelope validates status and envelope and unmarshals data into out.
func decodeEnvelope(status int, body []byte, out any) error {
	if status == http.StatusNoContent {
		return nil
	}

	var env envelope
	envErr := json.Unmarshal(body, &env)

	if status < 200 || status > 299 {
		se := &vox.StatusError{Code: status}
		if envErr == nil {
			se.Body = env.message()
		} else {
			se.Body = strings.TrimSpace(string(body))
		}
		return se
	}
	if envErr != nil {
		return fmt.Errorf("decode envelope: %w", envErr)
	}
	if !env.ok() {
		return &vox.APIError{Code: env.Code, Message: env.message()}
	}
	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode data: %w", err)
	}
	return nil
}

// validateID rejects ids the backend would refuse. The backend generates
// assistant ids as UUIDs.
func validateID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("invalid assistant id %q: %w", id, vox.ErrValidation)
	}
	return nil
}
