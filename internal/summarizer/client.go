// Package summarizer calls an OpenAI-compatible chat-completions endpoint with
// a photo of a school notice and returns the generated summary.
package summarizer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/JakeFAU/notice-summarizer/internal/notice"
)

const (
	defaultBaseURL   = "https://api.openai.com/v1"
	defaultModel     = "gpt-4o-mini"
	defaultMaxTokens = 700
	providerName     = "openai"
)

// Client implements notice.Summarizer via direct HTTP.
type Client struct {
	BaseURL    string
	APIKey     string
	Model      string
	MaxTokens  int
	HTTPClient *http.Client
	// Timeout bounds a single upstream call. The caller's deadline still applies.
	Timeout time.Duration
}

var _ notice.Summarizer = (*Client)(nil)

// NewClient returns a client with defaults applied.
func NewClient(baseURL, apiKey, model string) *Client {
	url := strings.TrimSpace(baseURL)
	if url == "" {
		url = defaultBaseURL
	}
	m := strings.TrimSpace(model)
	if m == "" {
		m = defaultModel
	}
	return &Client{
		BaseURL:   url,
		APIKey:    strings.TrimSpace(apiKey),
		Model:     m,
		MaxTokens: defaultMaxTokens,
	}
}

// Summarize sends the image with the fixed notice prompt and returns the
// trimmed answer. An empty answer is replaced with a resend hint.
func (c *Client) Summarize(ctx context.Context, image []byte) (string, error) {
	if c == nil {
		return "", fmt.Errorf("summarizer client not configured")
	}
	if c.APIKey == "" {
		return "", fmt.Errorf("api key is required")
	}
	if len(image) == 0 {
		return "", fmt.Errorf("image is empty")
	}

	payload := buildChatRequest(c.Model, c.MaxTokens, image)
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	ctx, cancel := withTimeout(ctx, c.Timeout)
	if cancel != nil {
		defer cancel()
	}

	url := strings.TrimRight(c.BaseURL, "/") + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return "", &ProviderError{
			Provider:    providerName,
			StatusCode:  resp.StatusCode,
			Message:     strings.TrimSpace(string(respBody)),
			RetryAfter:  retryAfterFromHeaders(resp.Header, time.Now()),
			RawResponse: respBody,
		}
	}

	var parsed chatCompletionResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	text, err := parsed.text()
	if err != nil {
		return "", err
	}
	if text == "" {
		return notice.MsgEmptySummary, nil
	}
	return text, nil
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return ctx, nil
	}
	return context.WithTimeout(ctx, timeout)
}
