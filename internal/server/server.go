// Package server implements the sealdrop HTTP API: authenticated
// uploads, single-use encrypted downloads, and the decrypt endpoint.
package server

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"sealdrop/internal/artifact"
	"sealdrop/internal/config"
	"sealdrop/internal/crypto"
	"sealdrop/internal/notify"
	"sealdrop/internal/store"
)

const (
	readHeaderTimeout = 5 * time.Second
	readTimeout       = 30 * time.Second
	writeTimeout      = 60 * time.Second
	idleTimeout       = 60 * time.Second

	uploadConcurrencyLimit   = 4
	downloadConcurrencyLimit = 8

	loginMaxFailures = 5
	loginWindow      = time.Minute
	loginBlockedFor  = 5 * time.Minute
)

// Server wraps HTTP handlers for the sealdrop API.
type Server struct {
	addr            string
	store           *store.Store
	artifacts       artifact.Store
	engine          *crypto.Engine
	notifier        notify.Notifier
	logger          *slog.Logger
	jwtSecret       []byte
	adminToken      string
	ttl             time.Duration
	maxUploadBytes  int64
	multipartMemory int64

	authService     *AuthService
	uploadService   *UploadService
	downloadService *DownloadService
	sweepService    *SweepService

	uploadLimiter   chan struct{}
	downloadLimiter chan struct{}
	loginLimiter    *loginRateLimiter
}

// New creates a new server instance.
func New(cfg *config.Config, st *store.Store, artifacts artifact.Store, engine *crypto.Engine, notifier notify.Notifier, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if notifier == nil {
		notifier = notify.Noop{}
	}

	ttl := cfg.TTL()
	s := &Server{
		addr:            cfg.ListenAddr,
		store:           st,
		artifacts:       artifacts,
		engine:          engine,
		notifier:        notifier,
		logger:          logger,
		jwtSecret:       []byte(cfg.JWTSecret),
		adminToken:      strings.TrimSpace(cfg.AdminToken),
		ttl:             ttl,
		maxUploadBytes:  cfg.MaxUploadBytes,
		multipartMemory: cfg.MultipartMaxMemory,
		uploadLimiter:   make(chan struct{}, uploadConcurrencyLimit),
		downloadLimiter: make(chan struct{}, downloadConcurrencyLimit),
		loginLimiter:    newLoginRateLimiter(loginMaxFailures, loginWindow, loginBlockedFor),
	}
	s.authService = NewAuthService(st)
	s.uploadService = NewUploadService(st, artifacts, engine, notifier, logger)
	s.downloadService = NewDownloadService(st, artifacts, engine, ttl, logger)
	s.sweepService = NewSweepService(st, artifacts, ttl, logger)
	return s
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	s.log().Info("starting server", "addr", s.addr)
	server := &http.Server{
		Addr:              s.addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}

	return server.ListenAndServe()
}

func (s *Server) log() *slog.Logger {
	if s != nil && s.logger != nil {
		return s.logger
	}
	return slog.Default()
}

func (s *Server) acquireLimiter(limiter chan struct{}, w http.ResponseWriter, r *http.Request, name string) bool {
	if limiter == nil {
		return true
	}
	select {
	case limiter <- struct{}{}:
		return true
	default:
		err := apiError{
			status:  http.StatusTooManyRequests,
			code:    "resource_exhausted",
			errCode: ErrCodeResourceExhausted,
			err:     errTooManyConcurrent(name),
		}
		s.writeErrorReq(w, r, http.StatusTooManyRequests, err)
		return false
	}
}

func (s *Server) releaseLimiter(limiter chan struct{}) {
	if limiter == nil {
		return
	}
	select {
	case <-limiter:
	default:
	}
}

func (s *Server) withLimiter(w http.ResponseWriter, r *http.Request, limiter chan struct{}, name string, fn func()) {
	if !s.acquireLimiter(limiter, w, r, name) {
		return
	}
	defer s.releaseLimiter(limiter)
	fn()
}
