package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/JakeFAU/notice-summarizer/internal/dispatcher"
	"github.com/JakeFAU/notice-summarizer/internal/id/uuid"
	"github.com/JakeFAU/notice-summarizer/internal/metrics"
	"github.com/JakeFAU/notice-summarizer/internal/notice"
)

const (
	defaultSkillPath   = "/kakao-skill"
	defaultTokenHeader = "X-Callback-Token"
	requestTimeout     = 10 * time.Second
)

// Submitter starts a job in the background.
type Submitter interface {
	Submit(job notice.Job) (*dispatcher.Task, error)
}

// Options tunes the webhook.
type Options struct {
	SkillPath   string
	TokenHeader string
	// RequestTimeout bounds the probe and metrics routes. The skill route
	// is left out so it always answers with a platform envelope.
	RequestTimeout time.Duration
	// HasCredential is false when no upstream API key is configured; every
	// skill request then gets an immediate configuration message.
	HasCredential bool
}

// Server wires HTTP handlers to the dispatcher.
type Server struct {
	router    chi.Router
	submitter Submitter
	idGen     notice.IDGenerator
	clock     notice.Clock
	opts      Options
	logger    *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(
	submitter Submitter,
	idGen notice.IDGenerator,
	clock notice.Clock,
	opts Options,
	logger *zap.Logger,
) *Server {
	if opts.SkillPath == "" {
		opts.SkillPath = defaultSkillPath
	}
	if opts.TokenHeader == "" {
		opts.TokenHeader = defaultTokenHeader
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = requestTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		submitter: submitter,
		idGen:     idGen,
		clock:     clock,
		opts:      opts,
		logger:    logger,
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware(uuid.New().NewRequestID))
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(metrics.Middleware)

	r.Group(func(r chi.Router) {
		r.Use(timeoutMiddleware(opts.RequestTimeout))
		r.Get("/", s.root)
		r.Head("/", s.root)
		r.Get("/healthz", s.healthz)
		r.Get("/readyz", s.readyz)
		r.Method(http.MethodGet, "/metrics", metrics.Handler())
	})
	r.Post(opts.SkillPath, s.handleSkill)

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) root(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodHead {
		w.WriteHeader(http.StatusOK)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	upstream := "configured"
	if !s.opts.HasCredential {
		upstream = "missing_credential"
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready", "upstream": upstream})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
