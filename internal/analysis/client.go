// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"text/template"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/ManuGH/netinspect/internal/config"
	"github.com/ManuGH/netinspect/internal/resilience"
)

const maxErrorBody = 512

// Options are the sampling parameters forwarded to the model.
type Options struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict"`
	NumCtx      int     `json:"num_ctx"`
}

type generateRequest struct {
	Model   string  `json:"model"`
	Prompt  string  `json:"prompt"`
	Stream  bool    `json:"stream"`
	Options Options `json:"options"`
}

type generateResponse struct {
	Response string `json:"response"`
	Error    string `json:"error,omitempty"`
}

// Client talks to an Ollama-compatible /api/generate endpoint.
type Client struct {
	endpoint string
	model    string
	options  Options
	timeout  time.Duration
	prompt   *template.Template
	http     *http.Client
	breaker  *resilience.CircuitBreaker
}

// ClientOption customizes a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the traced default HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.http = hc }
}

// WithBreaker shares a circuit breaker between clients built from successive configs.
func WithBreaker(cb *resilience.CircuitBreaker) ClientOption {
	return func(c *Client) { c.breaker = cb }
}

// NewBreaker returns the breaker guarding the backend. Only transport-level
// failures count; timeouts still let the next run try and fall back.
func NewBreaker(cfg config.AnalysisConfig) *resilience.CircuitBreaker {
	return resilience.NewCircuitBreaker("analysis", cfg.BreakerThreshold, cfg.BreakerReset,
		resilience.WithFailureFilter(func(err error) bool {
			return errors.Is(err, ErrUnavailable) || errors.Is(err, ErrBadResponse)
		}))
}

// NewTransport returns an HTTP client whose requests are traced.
func NewTransport() *http.Client {
	return &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
}

// NewClient builds a client for cfg. The prompt is parsed as a text/template
// that receives the report body as {{.Report}}.
func NewClient(cfg config.AnalysisConfig, opts ...ClientOption) (*Client, error) {
	tmpl, err := template.New("prompt").Option("missingkey=error").Parse(cfg.Prompt)
	if err != nil {
		return nil, fmt.Errorf("analysis: parse prompt: %w", err)
	}
	c := &Client{
		endpoint: cfg.Endpoint,
		model:    cfg.Model,
		timeout:  cfg.Timeout,
		prompt:   tmpl,
		options: Options{
			Temperature: cfg.Temperature,
			NumPredict:  cfg.NumPredict,
			NumCtx:      cfg.NumCtx,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = NewTransport()
	}
	if c.breaker == nil {
		c.breaker = NewBreaker(cfg)
	}
	return c, nil
}

// Model returns the configured model name.
func (c *Client) Model() string { return c.model }

// Timeout returns the bound applied to one Generate call.
func (c *Client) Timeout() time.Duration { return c.timeout }

// Endpoint returns the generate URL.
func (c *Client) Endpoint() string { return c.endpoint }

// Generate renders the prompt around report and returns the model's answer,
// trimmed of surrounding whitespace.
func (c *Client) Generate(ctx context.Context, report string) (string, error) {
	if strings.TrimSpace(report) == "" {
		return "", ErrEmptyReport
	}

	var prompt strings.Builder
	if err := c.prompt.Execute(&prompt, struct{ Report string }{report}); err != nil {
		return "", fmt.Errorf("analysis: render prompt: %w", err)
	}

	var text string
	err := c.breaker.Execute(func() error {
		var genErr error
		text, genErr = c.generate(ctx, prompt.String())
		return genErr
	})
	if errors.Is(err, resilience.ErrCircuitOpen) {
		return "", &BackendError{Sentinel: ErrUnavailable, Endpoint: c.endpoint, Err: err}
	}
	return text, err
}

func (c *Client) generate(ctx context.Context, prompt string) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	body, err := json.Marshal(generateRequest{
		Model:   c.model,
		Prompt:  prompt,
		Stream:  false,
		Options: c.options,
	})
	if err != nil {
		return "", fmt.Errorf("analysis: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", &BackendError{Sentinel: ErrUnavailable, Endpoint: c.endpoint, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return "", c.transportError(ctx, err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))
		return "", &BackendError{
			Sentinel: ErrUnavailable,
			Endpoint: c.endpoint,
			Status:   res.StatusCode,
			Body:     strings.TrimSpace(string(snippet)),
		}
	}

	var out generateResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		if ctx.Err() != nil {
			return "", c.transportError(ctx, err)
		}
		return "", &BackendError{Sentinel: ErrBadResponse, Endpoint: c.endpoint, Err: err}
	}
	if out.Error != "" {
		return "", &BackendError{Sentinel: ErrUnavailable, Endpoint: c.endpoint, Status: res.StatusCode, Body: out.Error}
	}

	text := strings.TrimSpace(out.Response)
	if text == "" {
		return "", &BackendError{Sentinel: ErrEmptyResponse, Endpoint: c.endpoint}
	}
	return text, nil
}

func (c *Client) transportError(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return fmt.Errorf("analysis: %w", ctx.Err())
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) ||
		(errors.As(err, &netErr) && netErr.Timeout()) {
		return &BackendError{Sentinel: ErrTimeout, Endpoint: c.endpoint, Err: err}
	}
	return &BackendError{Sentinel: ErrUnavailable, Endpoint: c.endpoint, Err: err}
}

// Ping lists the backend models via /api/tags to check that it is serving.
func (c *Client) Ping(ctx context.Context) error {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return &BackendError{Sentinel: ErrUnavailable, Endpoint: c.endpoint, Err: err}
	}
	u.Path = "/api/tags"
	u.RawQuery = ""

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return &BackendError{Sentinel: ErrUnavailable, Endpoint: c.endpoint, Err: err}
	}
	res, err := c.http.Do(req)
	if err != nil {
		return c.transportError(ctx, err)
	}
	defer func() { _ = res.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, maxErrorBody))

	if res.StatusCode >= 400 {
		return &BackendError{Sentinel: ErrUnavailable, Endpoint: c.endpoint, Status: res.StatusCode}
	}
	return nil
}
