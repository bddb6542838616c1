// Package server expõe a API HTTP de contas e claims (chi) e o modo gateway
// (reverse proxy com o limite de claims na frente).
package server

import (
	"context"
	"net/http"
	"time"

	"claim-gateway/middleware/claimlimit"
	"claim-gateway/middleware/claimlimit/domain"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

type Deps struct {
	Claims   claimlimit.Options
	Guard    claimlimit.GuardOptions
	Accounts domain.AccountRepository
	Gatherer prometheus.Gatherer
	Logger   *zap.Logger
	// AdminToken habilita /v1/admin (Authorization: Bearer <token>). Vazio = sem rotas de admin.
	AdminToken string
}

type Server struct {
	router *chi.Mux
	srv    *http.Server
	deps   Deps
	log    *zap.Logger
}

func New(addr string, deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Claims.Logger == nil {
		deps.Claims.Logger = deps.Logger
	}
	if deps.Guard.KeyFn == nil {
		deps.Guard.KeyFn = deps.Claims.Client
	}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(AccessLog(deps.Logger))
	r.Use(claimlimit.GuardMiddleware(deps.Guard))

	s := &Server{
		router: r,
		deps:   deps,
		log:    deps.Logger,
		srv: &http.Server{
			Addr:              addr,
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       90 * time.Second,
		},
	}
	s.registerRoutes()
	return s
}

func (s *Server) Handler() http.Handler { return s.router }

// now usa o mesmo relógio da janela de claims, para status e expiração concordarem.
func (s *Server) now() time.Time {
	if s.deps.Claims.Now != nil {
		return s.deps.Claims.Now()
	}
	return time.Now()
}

func (s *Server) ListenAndServe() error {
	s.log.Info("api listening", zap.String("addr", s.srv.Addr))
	return s.srv.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("shutting down api")
	return s.srv.Shutdown(ctx)
}
