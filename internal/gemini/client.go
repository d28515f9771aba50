package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"geminiproxy/internal/config"
	"geminiproxy/internal/logger"
	"geminiproxy/internal/worker"
)

const maxResponseBytes = 10 << 20

// generateContentRequest is the body accepted by models/*:generateContent.
// A nil Text drops the field while an empty one is sent as "text":"".
type generateContentRequest struct {
	Contents []requestContent `json:"contents"`
}

type requestContent struct {
	Parts []requestPart `json:"parts"`
}

type requestPart struct {
	Text *string `json:"text,omitempty"`
}

// Submitter runs logging work off the response path.
type Submitter interface {
	Submit(job worker.Job) error
}

// Client forwards a single prompt to the generateContent endpoint and hands
// back the upstream JSON untouched. It never retries.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *zap.Logger
	background Submitter
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/"); baseURL != "" {
			c.baseURL = baseURL
		}
	}
}

func WithModel(model string) Option {
	return func(c *Client) {
		if model = strings.TrimSpace(model); model != "" {
			c.model = model
		}
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithBackground routes response logging through s instead of a bare goroutine.
func WithBackground(s Submitter) Option {
	return func(c *Client) {
		c.background = s
	}
}

// NewClient builds a Client for apiKey. An empty key is accepted; Generate
// reports ErrMissingAPIKey.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:     strings.TrimSpace(apiKey),
		baseURL:    config.DefaultGeminiBaseURL,
		model:      config.DefaultGeminiModel,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FromConfig builds a Client from the loaded configuration.
func FromConfig(cfg config.GeminiConfig, opts ...Option) *Client {
	base := []Option{
		WithBaseURL(cfg.BaseURL),
		WithModel(cfg.Model),
		WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
	}
	return NewClient(cfg.APIKey, append(base, opts...)...)
}

// Configured reports whether a credential is present.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

func (c *Client) endpoint() string {
	return fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, url.PathEscape(c.model))
}

func (c *Client) requestURL() string {
	return c.endpoint() + "?" + url.Values{"key": {c.apiKey}}.Encode()
}

// Generate sends prompt upstream. A nil prompt is sent as an empty part. On a
// 2xx answer it returns the raw JSON body. Otherwise the error is
// ErrMissingAPIKey, *UpstreamError or *TransportError.
func (c *Client) Generate(ctx context.Context, prompt *string) (json.RawMessage, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	body, err := json.Marshal(generateContentRequest{
		Contents: []requestContent{{
			Parts: []requestPart{{Text: prompt}},
		}},
	})
	if err != nil {
		return nil, &TransportError{Err: fmt.Errorf("marshal request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.requestURL(), bytes.NewReader(body))
	if err != nil {
		return nil, &TransportError{Err: c.redact(err)}
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Err: c.redact(err)}
	}
	defer func() { _ = res.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBytes))
	if err != nil {
		return nil, &TransportError{Err: fmt.Errorf("read response body: %w", c.redact(err))}
	}
	var payload json.RawMessage
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, &TransportError{Err: fmt.Errorf("invalid json response body (status %d): %w", res.StatusCode, err)}
	}

	ok := res.StatusCode >= 200 && res.StatusCode < 300
	c.logResponse(logger.WithContext(ctx, c.logger), res.StatusCode, ok, payload)

	if !ok {
		return nil, &UpstreamError{StatusCode: res.StatusCode, Body: payload}
	}
	return payload, nil
}

// redact strips the credential from URLs embedded in transport errors.
func (c *Client) redact(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		urlErr.URL = c.endpoint()
	}
	return err
}

func (c *Client) logResponse(l *zap.Logger, status int, ok bool, payload json.RawMessage) {
	job := func() {
		fields := []zap.Field{
			zap.Int("status", status),
			zap.String("model", c.model),
			zap.ByteString("body", payload),
		}
		if !ok {
			l.Error("gemini api error", fields...)
			return
		}
		var parsed genai.GenerateContentResponse
		if err := json.Unmarshal(payload, &parsed); err == nil {
			fields = append(fields, zap.Int("candidates", len(parsed.Candidates)))
			if len(parsed.Candidates) > 0 && parsed.Candidates[0] != nil {
				fields = append(fields, zap.String("finish_reason", string(parsed.Candidates[0].FinishReason)))
			}
			if parsed.UsageMetadata != nil {
				fields = append(fields, zap.Int32("total_tokens", parsed.UsageMetadata.TotalTokenCount))
			}
		}
		l.Info("gemini api response", fields...)
	}

	if c.background == nil {
		go job()
		return
	}
	if err := c.background.Submit(job); err != nil {
		l.Warn("gemini response log dropped", zap.Int("status", status), zap.Error(err))
	}
}
