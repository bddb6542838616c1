package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"claim-gateway/middleware/claimlimit"
	"claim-gateway/middleware/claimlimit/application"
	"claim-gateway/middleware/claimlimit/domain"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type errorBody struct {
	Error             string `json:"error"`
	RetryAfterSeconds int    `json:"retryAfterSeconds,omitempty"`
}

type statusBody struct {
	Client            string `json:"client"`
	Allowed           bool   `json:"allowed"`
	RetryAfterSeconds int    `json:"retryAfterSeconds"`
	Claims            int    `json:"claims"`
	Window            string `json:"window"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	if s.deps.Accounts == nil {
		writeJSON(w, http.StatusOK, []domain.Account{})
		return
	}
	accounts, err := s.deps.Accounts.ListByService(r.Context(), r.URL.Query().Get("service"))
	if err != nil {
		s.log.Error("list accounts failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "failed to list accounts"})
		return
	}
	now := s.now()
	out := make([]domain.Account, 0, len(accounts))
	for _, acc := range accounts {
		out = append(out, acc.Public(now))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleClaim(w http.ResponseWriter, r *http.Request) {
	client := s.deps.Claims.Client(r)
	svc := application.ClaimService{
		Limiter:  s.deps.Claims.LimiterFor(client),
		Accounts: s.deps.Accounts,
		Policy:   s.deps.Claims.Policy,
		Stats:    s.deps.Claims.Stats,
		Client:   client,
		Logger:   s.log,
	}

	acc, err := svc.Claim(r.Context(), chi.URLParam(r, "id"))
	var limited *domain.LimitedError
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, acc)
	case errors.As(err, &limited):
		secs := claimlimit.RetryAfterSeconds(limited.RetryAfter)
		w.Header().Set("Retry-After", strconv.Itoa(secs))
		writeJSON(w, http.StatusTooManyRequests, errorBody{Error: limited.Error(), RetryAfterSeconds: secs})
	case errors.Is(err, domain.ErrAccountNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "account not found"})
	default:
		s.log.Error("claim failed", zap.String("client", client), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "claim failed"})
	}
}

func (s *Server) handleClaimStatus(w http.ResponseWriter, r *http.Request) {
	client := s.deps.Claims.Client(r)
	lim := s.deps.Claims.LimiterFor(client)
	dec := lim.Decide(r.Context())

	window := s.deps.Claims.Window
	if window <= 0 {
		window = domain.DefaultWindow
	}
	writeJSON(w, http.StatusOK, statusBody{
		Client:            client,
		Allowed:           dec.Allowed,
		RetryAfterSeconds: claimlimit.RetryAfterSeconds(dec.RetryAfter),
		Claims:            len(lim.History(r.Context())),
		Window:            window.String(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
