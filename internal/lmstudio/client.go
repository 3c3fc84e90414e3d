// Package lmstudio talks to a local LM Studio server through its
// OpenAI-compatible chat completions API.
package lmstudio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/algorithm-audits/audits/internal/audit"
)

const (
	// DefaultBaseURL is the default LM Studio server address.
	DefaultBaseURL = "http://localhost:1234"

	// DefaultModel is the default chat model.
	DefaultModel = "google/gemma-3n-e4b"

	// DefaultTimeout is the timeout for a single completion.
	DefaultTimeout = 120 * time.Second

	// DefaultAbstractMax is the number of abstract characters sent to the model.
	DefaultAbstractMax = 2000

	classifyMaxTokens = 10
	extractMaxTokens  = 200

	apiPathModels      = "/v1/models"
	apiPathCompletions = "/v1/chat/completions"
)

// Client classifies and extracts studies with a local chat model.
type Client struct {
	baseURL     string
	model       string
	abstractMax int
	client      *http.Client
	limiter     *rate.Limiter
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL sets the server base URL.
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(url, "/")
	}
}

// WithModel sets the chat model.
func WithModel(model string) Option {
	return func(c *Client) {
		c.model = model
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.client.Timeout = timeout
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.client = hc
	}
}

// WithRateLimit caps requests per second. Zero or less means unlimited.
func WithRateLimit(perSecond float64) Option {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

// WithAbstractMax sets how many abstract characters go into a prompt.
func WithAbstractMax(n int) Option {
	return func(c *Client) {
		c.abstractMax = n
	}
}

// NewClient creates a client with the given options.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:     DefaultBaseURL,
		model:       DefaultModel,
		abstractMax: DefaultAbstractMax,
		client:      &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ModelName returns the chat model name.
func (c *Client) ModelName() string {
	return c.model
}

// Classify asks the model whether the study is an algorithm audit.
func (c *Client) Classify(ctx context.Context, s audit.Study) (bool, error) {
	answer, err := c.Complete(ctx, ClassificationPrompt(s, c.abstractMax), classifyMaxTokens)
	if err != nil {
		return false, eris.Wrap(err, "classifying study")
	}
	return strings.HasPrefix(strings.ToLower(answer), "yes"), nil
}

// Extract asks the model for the method, domain, organization and behavior
// of an audit study.
func (c *Client) Extract(ctx context.Context, s audit.Study) (audit.Extraction, error) {
	reply, err := c.Complete(ctx, ExtractionPrompt(s, c.abstractMax), extractMaxTokens)
	if err != nil {
		return audit.Extraction{}, eris.Wrap(err, "extracting fields")
	}
	return ParseExtraction(reply)
}

// Complete sends a single user message and returns the trimmed reply.
func (c *Client) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", eris.Wrap(err, "rate limiter")
		}
	}

	body, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: 0,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", eris.Wrap(err, "marshaling request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+apiPathCompletions, bytes.NewReader(body))
	if err != nil {
		return "", eris.Wrap(err, "creating request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", eris.Wrap(err, "sending request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &APIError{StatusCode: resp.StatusCode, Body: formatErrorBody(resp.Body)}
	}

	var result chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", eris.Wrap(err, "decoding response")
	}
	if len(result.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	return strings.TrimSpace(result.Choices[0].Message.Content), nil
}

// IsAvailable checks that the server is running.
func (c *Client) IsAvailable(ctx context.Context) error {
	resp, err := c.doGet(ctx, apiPathModels)
	if err != nil {
		return eris.Wrap(err, "LM Studio is not running")
	}
	resp.Body.Close()
	return nil
}

// HasModel reports whether the configured model is loaded.
func (c *Client) HasModel(ctx context.Context) (bool, error) {
	resp, err := c.doGet(ctx, apiPathModels)
	if err != nil {
		return false, eris.Wrap(err, "listing models")
	}
	defer resp.Body.Close()

	var result modelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return false, eris.Wrap(err, "decoding response")
	}
	for _, m := range result.Data {
		if m.ID == c.model {
			return true, nil
		}
	}
	return false, nil
}

// doGet performs a GET request. The caller closes the response body.
func (c *Client) doGet(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, eris.Wrap(err, "creating request")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "sending request")
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, &APIError{StatusCode: resp.StatusCode, Body: formatErrorBody(resp.Body)}
	}
	return resp, nil
}

// formatErrorBody reads the response body for error messages.
func formatErrorBody(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil {
		return fmt.Sprintf("(failed to read response body: %v)", err)
	}
	return strings.TrimSpace(string(data))
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type modelsResponse struct {
	Data []struct {
		ID string `json:"id"`
	} `json:"data"`
}
