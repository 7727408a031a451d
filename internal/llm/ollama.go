package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/time/rate"
)

// Provider defines the interface for talking to the language model.
type Provider interface {
	// Chat sends one non-streaming chat request and returns the raw response
	// body. The body is not interpreted; callers extract the reply themselves.
	Chat(ctx context.Context, req *ChatRequest) ([]byte, error)
	// Ping checks that the model server answers at all.
	Ping(ctx context.Context) error
}

// Message is a single role-tagged turn sent to the model.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Options are the sampling parameters passed through to Ollama.
type Options struct {
	Temperature   float64 `json:"temperature"`
	TopP          float64 `json:"top_p"`
	NumPredict    int     `json:"num_predict"`
	RepeatPenalty float64 `json:"repeat_penalty"`
	TopK          int     `json:"top_k"`
}

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
	Options  *Options  `json:"options,omitempty"`
}

// APIError is returned when the model server answers with a non-2xx status.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("Model API error: %d %s", e.StatusCode, e.Body)
}

type ollamaProvider struct {
	client  *http.Client
	url     string
	limiter *rate.Limiter
}

// ProviderOption customizes an Ollama provider.
type ProviderOption func(*ollamaProvider)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) ProviderOption {
	return func(p *ollamaProvider) { p.client = c }
}

// WithRateLimit bounds outbound calls to perSecond with the given burst.
// A non-positive perSecond disables limiting.
func WithRateLimit(perSecond float64, burst int) ProviderOption {
	return func(p *ollamaProvider) {
		if perSecond <= 0 {
			p.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		if burst < 1 {
			burst = 1
		}
		p.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

func NewOllamaProvider(url string, opts ...ProviderOption) Provider {
	p := &ollamaProvider{
		client:  &http.Client{},
		url:     strings.TrimRight(url, "/"),
		limiter: rate.NewLimiter(rate.Inf, 0),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *ollamaProvider) Chat(ctx context.Context, req *ChatRequest) ([]byte, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	req.Stream = false
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("could not marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("could not create http request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("could not read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(bodyBytes))}
	}
	return bodyBytes, nil
}

func (p *ollamaProvider) Ping(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return fmt.Errorf("could not create http request: %w", err)
	}
	resp, err := p.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &APIError{StatusCode: resp.StatusCode}
	}
	return nil
}
