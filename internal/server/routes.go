package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) registerRoutes() {
	s.router.Get("/health", s.handleHealth)

	gatherer := s.deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	s.router.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	s.router.Route("/v1", func(r chi.Router) {
		r.Get("/accounts", s.handleListAccounts)
		r.Post("/accounts/{id}/claim", s.handleClaim)
		r.Get("/claims/status", s.handleClaimStatus)

		if s.deps.AdminToken == "" || s.deps.Accounts == nil {
			return
		}
		r.Route("/admin/accounts", func(r chi.Router) {
			r.Use(RequireBearer(s.deps.AdminToken))
			r.Get("/", s.handleAdminListAccounts)
			r.Post("/", s.handleAdminAddAccount)
			r.Get("/{id}", s.handleAdminGetAccount)
			r.Patch("/{id}", s.handleAdminUpdateAccount)
			r.Delete("/{id}", s.handleAdminDeleteAccount)
		})
	})
}
