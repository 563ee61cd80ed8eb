package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gmsas95/healthplan/internal/config"
	apperrors "github.com/gmsas95/healthplan/internal/errors"
	"github.com/gmsas95/healthplan/internal/metrics"
	"github.com/gmsas95/healthplan/internal/security"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"
)

// Client provides access to one OpenAI-compatible chat completions API
type Client struct {
	name     string
	provider config.Provider
	client   *http.Client
	limiter  *rate.Limiter
	breaker  *gobreaker.CircuitBreaker[*ChatResponse]
}

// NewClient creates a new LLM client
func NewClient(name string, provider config.Provider) *Client {
	timeout := provider.Timeout
	if timeout == 0 {
		timeout = 60
	}

	c := &Client{
		name:     name,
		provider: provider,
		client: &http.Client{
			Timeout: time.Duration(timeout) * time.Second,
		},
	}

	// RPM limiter: convert to requests per second
	if provider.RPM > 0 {
		burst := provider.Burst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(float64(provider.RPM)/60.0), burst)
	}

	failures := provider.BreakerFailures
	if failures <= 0 {
		failures = 3
	}
	openFor := provider.BreakerTimeout
	if openFor <= 0 {
		openFor = 60
	}
	c.breaker = gobreaker.NewCircuitBreaker[*ChatResponse](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     time.Duration(openFor) * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(failures)
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})

	return c
}

// Message represents a chat message
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ResponseFormat asks the API for a constrained reply shape
type ResponseFormat struct {
	Type string `json:"type"`
}

// ChatRequest represents an API request
type ChatRequest struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	Temperature    float64         `json:"temperature,omitempty"`
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`
}

// ChatResponse represents an API response
type ChatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index        int     `json:"index"`
		Message      Message `json:"message"`
		FinishReason string  `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// Content returns the first choice's text, or "" when there is none.
func (r *ChatResponse) Content() string {
	if r == nil || len(r.Choices) == 0 {
		return ""
	}
	return r.Choices[0].Message.Content
}

// APIError is a non-200 reply from the provider
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (status %d): %s", e.StatusCode, e.Body)
}

// Name returns the provider name this client was built for
func (c *Client) Name() string {
	return c.name
}

// GetModel returns the configured model
func (c *Client) GetModel() string {
	return c.provider.Model
}

// ChatCompletion sends a chat completion request through the rate limiter
// and circuit breaker.
func (c *Client) ChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if req.Model == "" {
		req.Model = c.provider.Model
	}
	if req.MaxTokens == 0 {
		req.MaxTokens = c.provider.MaxTokens
	}
	if req.Temperature == 0 {
		req.Temperature = c.provider.Temperature
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, apperrors.WrapAs(apperrors.ErrRateLimited, err)
		}
	}

	start := time.Now()
	resp, err := c.breaker.Execute(func() (*ChatResponse, error) {
		return c.send(ctx, req)
	})
	metrics.RecordAIRequest(c.name, err == nil, time.Since(start))

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, apperrors.WrapAs(apperrors.ErrProviderUnavailable, fmt.Errorf("%s: %w", c.name, err))
	}
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) send(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.provider.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.provider.APIKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &APIError{StatusCode: resp.StatusCode, Body: security.RedactSecrets(string(bodyBytes))}
	}

	var result ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if result.Content() == "" {
		return nil, apperrors.ErrEmptyCompletion
	}

	return &result, nil
}

// ChatOption adjusts a single request
type ChatOption func(*ChatRequest)

// WithTemperature sets the sampling temperature
func WithTemperature(t float64) ChatOption {
	return func(r *ChatRequest) { r.Temperature = t }
}

// WithMaxTokens caps the reply length
func WithMaxTokens(n int) ChatOption {
	return func(r *ChatRequest) { r.MaxTokens = n }
}

// WithJSONResponse requests a JSON object reply
func WithJSONResponse() ChatOption {
	return func(r *ChatRequest) { r.ResponseFormat = &ResponseFormat{Type: "json_object"} }
}

func buildRequest(systemPrompt, userMessage string, opts []ChatOption) ChatRequest {
	req := ChatRequest{
		Messages: []Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userMessage},
		},
	}
	for _, opt := range opts {
		opt(&req)
	}
	return req
}

// SimpleChat sends a simple chat message and returns the response text
func (c *Client) SimpleChat(ctx context.Context, systemPrompt, userMessage string, opts ...ChatOption) (string, error) {
	resp, err := c.ChatCompletion(ctx, buildRequest(systemPrompt, userMessage, opts))
	if err != nil {
		return "", err
	}
	return resp.Content(), nil
}
