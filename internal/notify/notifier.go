// Package notify delivers the one follow-up message of a job to the
// platform's callback URL.
package notify

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/notice-summarizer/internal/kakao"
	"github.com/JakeFAU/notice-summarizer/internal/metrics"
	"github.com/JakeFAU/notice-summarizer/internal/notice"
)

const (
	// DefaultTokenHeader carries the callback auth token.
	DefaultTokenHeader = "X-Callback-Token"
	defaultTimeout     = 10 * time.Second
)

// Config controls callback delivery.
type Config struct {
	Timeout     time.Duration
	TokenHeader string
}

// Notifier posts simpleText callbacks. It implements notice.Notifier.
type Notifier struct {
	client *http.Client
	cfg    Config
	logger *zap.Logger
}

var _ notice.Notifier = (*Notifier)(nil)

// New builds a Notifier. A nil client uses a fresh http.Client.
func New(client *http.Client, cfg Config, logger *zap.Logger) *Notifier {
	if client == nil {
		client = &http.Client{}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.TokenHeader == "" {
		cfg.TokenHeader = DefaultTokenHeader
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{client: client, cfg: cfg, logger: logger}
}

// Deliver sends text once. Failures are logged and counted, never returned.
func (n *Notifier) Deliver(ctx context.Context, callbackURL, token, text string) {
	logger := n.logger.With(zap.String("callback_host", metrics.SanitizeSite(callbackURL)))

	body, err := kakao.Marshal(kakao.SimpleText(text))
	if err != nil {
		metrics.ObserveCallback("encode_error")
		logger.Error("callback encode failed", zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(ctx, n.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, callbackURL, bytes.NewReader(body))
	if err != nil {
		metrics.ObserveCallback("bad_url")
		logger.Error("callback request build failed", zap.Error(err))
		return
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set(n.cfg.TokenHeader, token)
	}

	start := time.Now()
	resp, err := n.client.Do(req)
	if err != nil {
		metrics.ObserveCallback("error")
		logger.Warn("callback delivery failed", zap.Error(err), zap.Duration("duration", time.Since(start)))
		return
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		metrics.ObserveCallback("rejected")
		logger.Warn("callback rejected",
			zap.Int("status", resp.StatusCode),
			zap.Duration("duration", time.Since(start)),
		)
		return
	}
	metrics.ObserveCallback("delivered")
	logger.Info("callback delivered",
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)
}
