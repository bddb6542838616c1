package server

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"claim-gateway/middleware/claimlimit/domain"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const maxAdminBody = 1 << 20

// RequireBearer barra com 401 requisições sem "Authorization: Bearer <token>".
func RequireBearer(token string) func(http.Handler) http.Handler {
	want := []byte(token)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || subtle.ConstantTimeCompare([]byte(got), want) != 1 {
				w.Header().Set("WWW-Authenticate", `Bearer realm="claimgate-admin"`)
				writeJSON(w, http.StatusUnauthorized, errorBody{Error: "unauthorized"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (s *Server) handleAdminListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.deps.Accounts.List(r.Context())
	if err != nil {
		s.adminError(w, "list", err)
		return
	}
	now := s.now()
	for i := range accounts {
		accounts[i] = accounts[i].WithStatus(now)
	}
	writeJSON(w, http.StatusOK, accounts)
}

func (s *Server) handleAdminGetAccount(w http.ResponseWriter, r *http.Request) {
	acc, err := s.deps.Accounts.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.adminError(w, "get", err)
		return
	}
	writeJSON(w, http.StatusOK, acc.WithStatus(s.now()))
}

func (s *Server) handleAdminAddAccount(w http.ResponseWriter, r *http.Request) {
	var in domain.Account
	if !decodeBody(w, r, &in) {
		return
	}
	// contadores são do servidor
	in.ID, in.LastUsed, in.UsageCount = "", nil, 0

	acc, err := s.deps.Accounts.Add(r.Context(), in)
	if err != nil {
		s.adminError(w, "add", err)
		return
	}
	s.log.Info("account added", zap.String("account_id", acc.ID), zap.String("service", acc.Service))
	writeJSON(w, http.StatusCreated, acc.WithStatus(s.now()))
}

func (s *Server) handleAdminUpdateAccount(w http.ResponseWriter, r *http.Request) {
	var patch domain.AccountPatch
	if !decodeBody(w, r, &patch) {
		return
	}
	acc, err := s.deps.Accounts.Update(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		s.adminError(w, "update", err)
		return
	}
	s.log.Info("account updated", zap.String("account_id", acc.ID))
	writeJSON(w, http.StatusOK, acc.WithStatus(s.now()))
}

func (s *Server) handleAdminDeleteAccount(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.deps.Accounts.Delete(r.Context(), id); err != nil {
		s.adminError(w, "delete", err)
		return
	}
	s.log.Info("account deleted", zap.String("account_id", id))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) adminError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, domain.ErrAccountNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "account not found"})
	case errors.Is(err, domain.ErrInvalidAccount):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
	default:
		s.log.Error("account admin failed", zap.String("op", op), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "account " + op + " failed"})
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxAdminBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid JSON body"})
		return false
	}
	return true
}
