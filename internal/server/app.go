// Package server provides the core application server and dependency wiring.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/notice-summarizer/internal/api"
	"github.com/JakeFAU/notice-summarizer/internal/clock/system"
	"github.com/JakeFAU/notice-summarizer/internal/config"
	"github.com/JakeFAU/notice-summarizer/internal/dispatcher"
	collyfetcher "github.com/JakeFAU/notice-summarizer/internal/fetcher/colly"
	"github.com/JakeFAU/notice-summarizer/internal/id/uuid"
	"github.com/JakeFAU/notice-summarizer/internal/logging"
	"github.com/JakeFAU/notice-summarizer/internal/metrics"
	"github.com/JakeFAU/notice-summarizer/internal/notify"
	"github.com/JakeFAU/notice-summarizer/internal/policy/ratelimit"
	"github.com/JakeFAU/notice-summarizer/internal/summarizer"
	"github.com/JakeFAU/notice-summarizer/internal/worker"
)

// App contains the application's dependencies.
type App struct {
	cfg       *config.Config
	logger    *zap.Logger
	apiServer *api.Server
	dispatch  *dispatcher.Dispatcher
}

// NewApp creates a new App with the given configuration.
func NewApp(cfg *config.Config, logger *zap.Logger) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	// Only non-sensitive fields are logged.
	logger.Info("creating application",
		zap.Int("server_port", cfg.Server.Port),
		zap.String("skill_path", cfg.Skill.Path),
		zap.String("model", cfg.Upstream.Model),
		zap.Bool("credential", cfg.HasCredential()),
	)
	return &App{
		cfg:    cfg,
		logger: logger,
	}, nil
}

// Handler exposes the HTTP handler, mainly for tests.
func (a *App) Handler() http.Handler {
	return a.apiServer.Handler()
}

// Run starts the application and blocks until the context is canceled or a
// termination signal arrives.
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("application started")
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:           a.apiServer.Handler(),
		ReadHeaderTimeout: a.cfg.Server.ReadHeaderTimeout,
	}

	go func() {
		a.logger.Info("http server started", zap.Int("port", a.cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	a.logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("server shutdown error", zap.Error(err))
	}

	return a.Close(shutdownCtx)
}

// Close drains in-flight jobs until ctx ends and flushes the logger.
func (a *App) Close(ctx context.Context) error {
	if a.dispatch != nil {
		if err := a.dispatch.Shutdown(ctx); err != nil {
			a.logger.Warn("jobs still running at shutdown", zap.Error(err))
		}
	}
	a.logger.Info("shutdown complete")
	if err := a.logger.Sync(); err != nil {
		a.logger.Debug("logger sync failed", zap.Error(err))
	}
	return nil
}

// Build creates the application's dependencies.
func Build(cfg *config.Config) (*App, error) {
	logger, err := logging.New(cfg.Logging.Development, cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("logger init failed: %w", err)
	}
	zap.ReplaceGlobals(logger)

	app, err := NewApp(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("app init failed: %w", err)
	}
	if !cfg.HasCredential() {
		logger.Warn("no upstream API key configured; skill requests will get a configuration message")
	}

	metrics.Init()
	clock := system.New()
	app.dispatch = setupDispatcher(app, clock)
	app.apiServer = api.NewServer(
		app.dispatch,
		uuid.New(),
		clock,
		api.Options{
			SkillPath:     cfg.Skill.Path,
			TokenHeader:   cfg.Callback.TokenHeader,
			HasCredential: cfg.HasCredential(),
		},
		logger.Named("api"),
	)
	return app, nil
}

func setupDispatcher(app *App, clock *system.Clock) *dispatcher.Dispatcher {
	cfg := app.cfg

	fetcher := collyfetcher.New(collyfetcher.Config{
		UserAgent: cfg.Image.UserAgent,
		MaxBytes:  cfg.Image.MaxBytes,
		Timeout:   cfg.Image.FetchTimeout,
	})
	app.logger.Info("using colly image fetcher",
		zap.Int("max_bytes", cfg.Image.MaxBytes),
		zap.Duration("timeout", cfg.Image.FetchTimeout),
	)

	gate := ratelimit.New(ratelimit.Config{
		MinInterval:       cfg.Gate.MinInterval,
		CooldownThreshold: cfg.Gate.CooldownThreshold,
		Location:          ratelimit.LoadLocation(cfg.Gate.Timezone),
	}, clock)
	app.logger.Info("rate gate configured",
		zap.Duration("min_interval", cfg.Gate.MinInterval),
		zap.Duration("cooldown_threshold", cfg.Gate.CooldownThreshold),
		zap.String("timezone", cfg.Gate.Timezone),
	)

	client := summarizer.NewClient(cfg.Upstream.BaseURL, cfg.Upstream.APIKey, cfg.Upstream.Model)
	client.MaxTokens = cfg.Upstream.MaxTokens
	client.Timeout = cfg.Upstream.Timeout
	client.HTTPClient = &http.Client{}

	notifier := notify.New(&http.Client{}, notify.Config{
		Timeout:     cfg.Callback.Timeout,
		TokenHeader: cfg.Callback.TokenHeader,
	}, app.logger.Named("notify"))

	workerCfg := worker.Config{
		Deadline:      cfg.Job.Deadline,
		NotifyTimeout: cfg.Callback.Timeout,
		ThrottleWait:  cfg.Gate.DefaultWait,
	}
	app.logger.Info("worker config",
		zap.Duration("deadline", workerCfg.Deadline),
		zap.Duration("notify_timeout", workerCfg.NotifyTimeout),
		zap.Duration("throttle_wait", workerCfg.ThrottleWait),
	)

	runner := worker.New(fetcher, gate, client, notifier, workerCfg, app.logger.Named("worker"))
	return dispatcher.New(runner, app.logger.Named("dispatcher"))
}

// ShutdownTimeout is exposed for callers that manage their own server.
func (a *App) ShutdownTimeout() time.Duration {
	return a.cfg.Server.ShutdownTimeout
}
