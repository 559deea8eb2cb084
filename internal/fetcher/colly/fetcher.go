// Package collyfetcher downloads skill photos using gocolly.
package collyfetcher

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/JakeFAU/notice-summarizer/internal/metrics"
	"github.com/JakeFAU/notice-summarizer/internal/notice"
)

const (
	// DefaultMaxBytes is the image size ceiling (2.5 MiB).
	DefaultMaxBytes = 2_621_440
	defaultTimeout  = 10 * time.Second
)

// Config controls collector behavior.
type Config struct {
	UserAgent string
	// MaxBytes is the size ceiling; bodies of this size or larger are rejected.
	MaxBytes int
	Timeout  time.Duration
}

// Fetcher implements notice.ImageFetcher using the Colly collector.
type Fetcher struct {
	cfg           Config
	baseCollector *colly.Collector
}

var _ notice.ImageFetcher = (*Fetcher)(nil)

type collectorHooks interface {
	OnResponse(colly.ResponseCallback)
	OnError(colly.ErrorCallback)
}

// New builds a Fetcher.
func New(cfg Config) *Fetcher {
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = DefaultMaxBytes
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	c := colly.NewCollector(colly.Async(false), colly.AllowURLRevisit())
	c.IgnoreRobotsTxt = true
	c.WithTransport(newHTTPTransport())
	// Clones share the backend client, so the timeout is set once here.
	c.SetRequestTimeout(cfg.Timeout)

	return &Fetcher{
		cfg:           cfg,
		baseCollector: c,
	}
}

// Fetch downloads one image. The fetch has its own timeout in addition to
// ctx. A body that reaches MaxBytes yields notice.ErrOversize.
func (f *Fetcher) Fetch(ctx context.Context, url string) (notice.Image, error) {
	ctx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
	defer cancel()

	var (
		result   notice.Image
		fetchErr error
	)
	start := time.Now()
	collector := f.buildCollector(ctx, start, &result, &fetchErr)

	if err := f.runCollector(ctx, collector, url, &fetchErr); err != nil {
		metrics.ObserveImageFetch(url, "error", 0)
		return notice.Image{}, err
	}
	if len(result.Body) >= f.cfg.MaxBytes {
		metrics.ObserveImageFetch(url, "oversize", 0)
		return notice.Image{}, fmt.Errorf("fetch %d+ bytes: %w", len(result.Body), notice.ErrOversize)
	}
	if len(result.Body) == 0 {
		metrics.ObserveImageFetch(url, "empty", 0)
		return notice.Image{}, fmt.Errorf("image body is empty")
	}
	metrics.ObserveImageFetch(url, "ok", len(result.Body))
	return result, nil
}

func (f *Fetcher) buildCollector(
	ctx context.Context,
	start time.Time,
	result *notice.Image,
	fetchErr *error,
) *colly.Collector {
	collector := f.baseCollector.Clone()
	if f.cfg.UserAgent != "" {
		collector.UserAgent = f.cfg.UserAgent
	}
	collector.Context = ctx
	collector.MaxBodySize = f.cfg.MaxBytes

	f.configureCollectorHooks(collector, start, result, fetchErr)
	return collector
}

func (f *Fetcher) configureCollectorHooks(
	hooks collectorHooks,
	start time.Time,
	result *notice.Image,
	fetchErr *error,
) {
	hooks.OnResponse(func(r *colly.Response) {
		contentType := ""
		if r.Headers != nil {
			contentType = r.Headers.Get("Content-Type")
		}
		*result = notice.Image{
			URL:         r.Request.URL.String(),
			Body:        append([]byte(nil), r.Body...),
			ContentType: contentType,
			Duration:    time.Since(start),
		}
	})

	hooks.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode != 0 {
			*fetchErr = fmt.Errorf("status %d: %w", r.StatusCode, err)
			return
		}
		*fetchErr = err
	})
}

func (f *Fetcher) runCollector(ctx context.Context, collector *colly.Collector, url string, fetchErr *error) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("colly fetch canceled: %w", ctx.Err())
	case err := <-done:
		if *fetchErr != nil {
			return fmt.Errorf("colly response failed: %w", *fetchErr)
		}
		if err != nil {
			return fmt.Errorf("colly visit failed: %w", err)
		}
		return nil
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          20,
		IdleConnTimeout:       90 * time.Second,
	}
}
