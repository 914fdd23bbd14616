// Package gateway wraps one OpenAI-compatible chat completion endpoint with
// request validation, pacing, bounded retries and sanitized errors.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// LocalModel is the placeholder model name resolved against a loopback endpoint.
const LocalModel = "local"

const (
	defaultBackoff    = 500 * time.Millisecond
	maxBackoff        = 8 * time.Second
	modelListTimeout  = 10 * time.Second
	fallbackModelName = "default"
)

// Message is one chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Gateway is a client for a single model binding. It is safe for concurrent use.
type Gateway struct {
	binding Binding
	client  *openai.Client
	limiter *rate.Limiter
	logger  *slog.Logger
	host    string
	backoff time.Duration

	modelOnce sync.Once
	model     string
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithHTTPClient replaces the HTTP client used for requests.
func WithHTTPClient(c *http.Client) Option {
	return func(g *Gateway) {
		cfg := clientConfig(g.binding, c)
		g.client = openai.NewClientWithConfig(cfg)
	}
}

// WithBackoff sets the base delay between retry attempts.
func WithBackoff(d time.Duration) Option {
	return func(g *Gateway) {
		g.backoff = d
	}
}

// New creates a Gateway for binding.
func New(binding Binding, logger *slog.Logger, opts ...Option) (*Gateway, error) {
	if err := binding.Validate(); err != nil {
		return nil, fmt.Errorf("binding: %w", err)
	}

	g := &Gateway{
		binding: binding,
		client:  openai.NewClientWithConfig(clientConfig(binding, &http.Client{})),
		logger:  logger.With("system", "gateway", "host", binding.Host(), "backend", binding.Backend),
		host:    binding.Host(),
		backoff: defaultBackoff,
	}

	if binding.RequestsPerMinute > 0 {
		g.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(binding.RequestsPerMinute)), 1)
	}

	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

func clientConfig(b Binding, c *http.Client) openai.ClientConfig {
	key := b.APIKey
	if key == "" {
		key = "not-needed"
	}
	cfg := openai.DefaultConfig(key)
	cfg.BaseURL = b.BaseURL
	cfg.HTTPClient = c
	return cfg
}

// Binding returns the binding the gateway was created with.
func (g *Gateway) Binding() Binding {
	return g.binding
}

// Complete sends messages to the endpoint and returns the first choice's
// content, or "" when the response carries no choices.
func (g *Gateway) Complete(ctx context.Context, messages []Message, maxTokens int) (string, error) {
	if err := validateRequest(messages, maxTokens); err != nil {
		return "", err
	}

	req := openai.ChatCompletionRequest{
		Model:     g.Model(ctx),
		Messages:  make([]openai.ChatCompletionMessage, len(messages)),
		MaxTokens: maxTokens,
	}
	for i, m := range messages {
		req.Messages[i] = openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}

	attempts := 1 + g.binding.Retries()
	var (
		lastErr error
		made    int
	)

	for attempt := range attempts {
		if attempt > 0 {
			if err := g.wait(ctx, attempt); err != nil {
				lastErr = err
				break
			}
		}

		if g.limiter != nil {
			if err := g.limiter.Wait(ctx); err != nil {
				lastErr = err
				break
			}
		}

		made++
		content, err := g.send(ctx, req)
		if err == nil {
			return content, nil
		}
		lastErr = err

		if ctx.Err() != nil || !retryable(err) {
			break
		}

		g.logger.WarnContext(ctx, "model request failed, retrying",
			"attempt", made,
			"max_attempts", attempts,
			"error", describe(err),
		)
	}

	terr := g.transportError(lastErr, max(made, 1))
	g.logger.ErrorContext(ctx, "model request failed", "error", terr)
	return "", terr
}

func (g *Gateway) send(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, g.binding.TimeoutDuration())
	defer cancel()

	resp, err := g.client.CreateChatCompletion(callCtx, req)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

func (g *Gateway) wait(ctx context.Context, attempt int) error {
	d := g.backoff << (attempt - 1)
	if d > maxBackoff || d <= 0 {
		d = maxBackoff
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Model returns the model id used for requests. A placeholder model on a
// loopback endpoint is resolved once against the endpoint's model list.
func (g *Gateway) Model(ctx context.Context) string {
	g.modelOnce.Do(func() {
		g.model = g.resolveModel(ctx)
	})
	return g.model
}

func (g *Gateway) resolveModel(ctx context.Context) string {
	configured := g.binding.Model
	if configured != "" && configured != LocalModel {
		return configured
	}

	fallback := configured
	if fallback == "" {
		fallback = fallbackModelName
	}

	if !isLoopback(g.binding.BaseURL) {
		return fallback
	}

	listCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), modelListTimeout)
	defer cancel()

	list, err := g.client.ListModels(listCtx)
	if err != nil {
		g.logger.WarnContext(ctx, "model list unavailable", "error", describe(err))
		return fallback
	}
	if len(list.Models) == 0 || list.Models[0].ID == "" {
		return fallback
	}

	g.logger.InfoContext(ctx, "resolved local model", "model", list.Models[0].ID)
	return list.Models[0].ID
}

func (g *Gateway) transportError(err error, attempts int) *TransportError {
	te := &TransportError{
		Host:     g.host,
		Attempts: attempts,
		err:      err,
	}
	if err == nil {
		return te
	}

	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		te.Status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		te.Status = reqErr.HTTPStatusCode
	}

	te.Detail = describe(err)
	return te
}

func validateRequest(messages []Message, maxTokens int) error {
	if len(messages) == 0 {
		return fmt.Errorf("%w: messages required", ErrInvalidRequest)
	}
	if maxTokens <= 0 {
		return fmt.Errorf("%w: max tokens must be positive", ErrInvalidRequest)
	}
	for i, m := range messages {
		if m.Role == RoleSystem && i != 0 {
			return fmt.Errorf("%w: system message must be first", ErrInvalidRequest)
		}
	}
	return nil
}

func retryable(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return retryableStatus(apiErr.HTTPStatusCode)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return retryableStatus(reqErr.HTTPStatusCode)
	}
	return true
}

func retryableStatus(code int) bool {
	return code == 0 ||
		code == http.StatusRequestTimeout ||
		code == http.StatusTooManyRequests ||
		code >= http.StatusInternalServerError
}

func isLoopback(baseURL string) bool {
	u, err := url.Parse(baseURL)
	if err != nil {
		return false
	}
	host := u.Hostname()
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
