// Package openai implements model.Model on top of the OpenAI chat completions API.
package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/aretw0/lattice/internal/logging"
	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/model"
	"github.com/aretw0/lattice/pkg/registry"
	"github.com/sashabaranov/go-openai"
)

// DefaultModel is used when New is given an empty model name.
const DefaultModel = openai.GPT4oMini

// Client wraps the OpenAI client and adapts it to model.Model.
type Client struct {
	client     *openai.Client
	model      string
	apiKey     string
	baseURL    string
	httpClient *http.Client
	maxRetries int
	backoff    time.Duration
	timeout    time.Duration
	logger     *slog.Logger
}

var _ model.Model = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithAPIKey sets the API key. It defaults to $OPENAI_API_KEY.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithBaseURL points the client at an OpenAI compatible endpoint.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithMaxRetries sets how many times a rate limited or failed request is retried.
func WithMaxRetries(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.maxRetries = n
		}
	}
}

// WithBackoff sets the delay before the first retry. It doubles on each attempt.
func WithBackoff(d time.Duration) Option {
	return func(c *Client) { c.backoff = d }
}

// WithTimeout bounds each request. Zero disables the per request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a client for modelName.
func New(modelName string, opts ...Option) *Client {
	if modelName == "" {
		modelName = DefaultModel
	}
	c := &Client{
		model:      modelName,
		apiKey:     os.Getenv("OPENAI_API_KEY"),
		maxRetries: 3,
		backoff:    500 * time.Millisecond,
		timeout:    60 * time.Second,
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	cfg := openai.DefaultConfig(c.apiKey)
	if c.baseURL != "" {
		cfg.BaseURL = c.baseURL
	}
	if c.httpClient != nil {
		cfg.HTTPClient = c.httpClient
	}
	c.client = openai.NewClientWithConfig(cfg)
	return c
}

// Model returns the model name sent with each request.
func (c *Client) Model() string {
	return c.model
}

// Invoke sends the conversation and the tool definitions to the chat completions
// endpoint and converts the first choice back into conversation items.
func (c *Client) Invoke(ctx context.Context, messages []domain.Message, tools []registry.Definition) (*model.Response, error) {
	req := openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: toChatMessages(messages),
		Tools:    toTools(tools),
	}

	var (
		resp openai.ChatCompletionResponse
		err  error
	)
	delay := c.backoff
	for attempt := 0; ; attempt++ {
		resp, err = c.create(ctx, req)
		if err == nil || attempt >= c.maxRetries || !retryable(err) {
			break
		}
		c.logger.Warn("chat completion failed, retrying", "attempt", attempt+1, "delay", delay, "error", err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("no choices returned from API")
	}

	c.logger.Debug("chat completion",
		"model", resp.Model,
		"finish_reason", resp.Choices[0].FinishReason,
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens)

	return &model.Response{Output: fromChatMessage(resp.Choices[0].Message)}, nil
}

func (c *Client) create(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	return c.client.CreateChatCompletion(ctx, req)
}

// retryable reports whether err is a rate limit or a server side failure.
func retryable(err error) bool {
	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	default:
		return false
	}
	return status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
}
