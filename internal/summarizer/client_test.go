package summarizer

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/notice-summarizer/internal/notice"
)

var pngBytes = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0}

func TestClientSummarizeSendsVisionRequest(t *testing.T) {
	t.Parallel()

	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &captured))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"  해야 할 일: 없음 \n"}}]}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL+"/", "sk-test", "vision-model")
	text, err := client.Summarize(context.Background(), pngBytes)
	require.NoError(t, err)
	require.Equal(t, "해야 할 일: 없음", text)

	require.Equal(t, "vision-model", captured["model"])
	messages, ok := captured["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 2)
	user := messages[1].(map[string]any)
	blocks := user["content"].([]any)
	require.Len(t, blocks, 2)
	image := blocks[1].(map[string]any)["image_url"].(map[string]any)
	want := "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes)
	require.Equal(t, want, image["url"])
}

func TestClientSummarizeEmptyTextReturnsHint(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"   "}}]}`))
	}))
	defer srv.Close()

	text, err := NewClient(srv.URL, "sk", "").Summarize(context.Background(), []byte{0xff, 0xd8, 0xff, 0x00})
	require.NoError(t, err)
	require.Equal(t, notice.MsgEmptySummary, text)
}

func TestClientSummarizeProviderError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Retry-After", "20")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"code":"rate_limit_exceeded"}}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "sk", "").Summarize(context.Background(), pngBytes)
	require.Error(t, err)

	var perr *ProviderError
	require.True(t, errors.As(err, &perr))
	require.Equal(t, http.StatusTooManyRequests, perr.StatusCode)
	require.Equal(t, 20*time.Second, perr.RetryAfter)

	wait, throttled := ClassifyThrottle(err, 0)
	require.True(t, throttled)
	require.Equal(t, 20*time.Second, wait)
}

func TestClientSummarizeRejectsMissingInput(t *testing.T) {
	t.Parallel()

	_, err := NewClient("", "", "").Summarize(context.Background(), pngBytes)
	require.ErrorContains(t, err, "api key")

	_, err = NewClient("", "sk", "").Summarize(context.Background(), nil)
	require.ErrorContains(t, err, "image is empty")
}

func TestClientSummarizeHonorsTimeout(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	client := NewClient(srv.URL, "sk", "")
	client.Timeout = 50 * time.Millisecond
	_, err := client.Summarize(context.Background(), pngBytes)
	require.Error(t, err)
	require.True(t, errors.Is(err, context.DeadlineExceeded), "got %v", err)
}

func TestDetectMIME(t *testing.T) {
	t.Parallel()

	require.Equal(t, "image/png", DetectMIME(pngBytes))
	require.Equal(t, "image/jpeg", DetectMIME([]byte{0xff, 0xd8, 0xff, 0xe0}))
	require.Equal(t, "image/jpeg", DetectMIME([]byte("GIF89a")))
	require.Equal(t, "image/jpeg", DetectMIME(nil))
}

func TestRetryAfterFromHeaders(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	h := http.Header{}
	h.Set("Retry-After", now.Add(90*time.Second).Format(http.TimeFormat))
	require.Equal(t, 90*time.Second, retryAfterFromHeaders(h, now))

	h = http.Header{}
	h.Set("x-ratelimit-reset-requests", "1h2m3s")
	h.Set("x-ratelimit-reset-tokens", "6m0s")
	require.Equal(t, time.Hour+2*time.Minute+3*time.Second, retryAfterFromHeaders(h, now))

	require.Zero(t, retryAfterFromHeaders(http.Header{}, now))
}

func TestProviderErrorMessage(t *testing.T) {
	t.Parallel()

	err := &ProviderError{Provider: "openai", StatusCode: http.StatusBadGateway}
	require.True(t, strings.Contains(err.Error(), "Bad Gateway"))
}
