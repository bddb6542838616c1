package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"claim-gateway/middleware/claimlimit"
	"claim-gateway/middleware/claimlimit/domain"
	"claim-gateway/middleware/claimlimit/infra"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAdminToken = "s3cret"

type testClock struct{ now time.Time }

func (c *testClock) Now() time.Time { return c.now }

func newTestServer(t *testing.T) (*Server, *testClock) {
	t.Helper()
	// o repositório expira contas pelo relógio real, então o relógio do teste parte de agora
	clock := &testClock{now: time.Now().UTC().Truncate(time.Second)}
	future := clock.now.Add(60 * 24 * time.Hour)

	reg := prometheus.NewRegistry()
	prom, err := infra.NewPrometheusStatsStore(reg)
	require.NoError(t, err)

	soon := clock.now.Add(3 * 24 * time.Hour)
	repo, err := infra.NewMemoryAccountRepository(
		domain.Account{ID: "1", Service: "netflix", Email: "premium1@example.com", Password: "securepass123", ExpiresOn: &future},
		domain.Account{ID: "2", Service: "netflix", Email: "premium2@example.com", Password: "securepass456", ExpiresOn: &soon},
		domain.Account{ID: "3", Service: "crunchyroll", Email: "anime1@example.com", Password: "animepass123"},
	)
	require.NoError(t, err)

	srv := New(":0", Deps{
		Claims: claimlimit.Options{
			Backend:   infra.NewMemoryStore(),
			KeyHeader: "X-Client",
			Stats:     prom,
			Now:       clock.Now,
		},
		Accounts: repo,
		Gatherer: reg,

		AdminToken: testAdminToken,
	})
	return srv, clock
}

func do(t *testing.T, h http.Handler, method, path, client string) *httptest.ResponseRecorder {
	t.Helper()
	r := httptest.NewRequest(method, path, nil)
	r.Header.Set("X-Client", client)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func TestServer_ListAccountsMasksCredentials(t *testing.T) {
	srv, _ := newTestServer(t)

	w := do(t, srv.Handler(), http.MethodGet, "/v1/accounts?service=netflix", "alice")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))

	body := w.Body.String()
	var got []domain.Account
	require.NoError(t, json.NewDecoder(strings.NewReader(body)).Decode(&got))
	require.Len(t, got, 2)
	assert.Equal(t, "pre•••@example.com", got[0].Email)
	assert.Empty(t, got[0].Password)
	assert.Equal(t, domain.StatusActive, got[0].Status)
	assert.Empty(t, got[1].Password)
	assert.Equal(t, domain.StatusExpiring, got[1].Status)
	assert.Contains(t, body, `"status":"expiring"`)
}

func TestServer_ClaimFlow(t *testing.T) {
	srv, clock := newTestServer(t)
	h := srv.Handler()

	w := do(t, h, http.MethodPost, "/v1/accounts/1/claim", "alice")
	require.Equal(t, http.StatusOK, w.Code)
	var acc domain.Account
	require.NoError(t, json.NewDecoder(w.Body).Decode(&acc))
	assert.Equal(t, "securepass123", acc.Password)
	assert.Equal(t, 1, acc.UsageCount)
	assert.Equal(t, domain.StatusActive, acc.Status)

	clock.now = clock.now.Add(11*time.Hour + 59*time.Minute)
	w = do(t, h, http.MethodPost, "/v1/accounts/3/claim", "alice")
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))

	w = do(t, h, http.MethodGet, "/v1/claims/status", "alice")
	require.Equal(t, http.StatusOK, w.Code)
	var st statusBody
	require.NoError(t, json.NewDecoder(w.Body).Decode(&st))
	assert.False(t, st.Allowed)
	assert.Equal(t, 1, st.Claims)
	assert.Equal(t, "12h0m0s", st.Window)

	w = do(t, h, http.MethodPost, "/v1/accounts/3/claim", "bob")
	require.Equal(t, http.StatusOK, w.Code)

	clock.now = clock.now.Add(time.Minute)
	w = do(t, h, http.MethodPost, "/v1/accounts/3/claim", "alice")
	require.Equal(t, http.StatusOK, w.Code)
}

func TestServer_ClaimUnknownAccount(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	w := do(t, h, http.MethodPost, "/v1/accounts/nope/claim", "alice")
	assert.Equal(t, http.StatusNotFound, w.Code)

	// falha não conta como claim
	w = do(t, h, http.MethodGet, "/v1/claims/status", "alice")
	var st statusBody
	require.NoError(t, json.NewDecoder(w.Body).Decode(&st))
	assert.True(t, st.Allowed)
	assert.Equal(t, 0, st.Claims)
}

func TestServer_MetricsExposeClaimOutcomes(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	do(t, h, http.MethodPost, "/v1/accounts/1/claim", "alice")
	do(t, h, http.MethodPost, "/v1/accounts/1/claim", "alice")

	w := do(t, h, http.MethodGet, "/metrics", "alice")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `claimgate_claims_total{outcome="allowed"} 1`)
	assert.Contains(t, body, `claimgate_claims_total{outcome="limited"} 1`)
}

func TestServer_Health(t *testing.T) {
	srv, _ := newTestServer(t)
	w := do(t, srv.Handler(), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestGateway_GatesOnlyClaimPosts(t *testing.T) {
	upstreamCalls := 0
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upstreamCalls++
		_, _ = io.WriteString(w, r.Method+" "+r.URL.Path)
	}))
	defer upstream.Close()

	target, err := url.Parse(upstream.URL)
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	prom, err := infra.NewPrometheusStatsStore(reg)
	require.NoError(t, err)

	h := NewGateway(GatewayConfig{
		Target:      target,
		ClaimPrefix: "/claim",
		Claims:      claimlimit.Options{Backend: infra.NewMemoryStore(), Stats: prom},
		Gatherer:    reg,
	})

	send := func(method, path string) *httptest.ResponseRecorder {
		r := httptest.NewRequest(method, path, strings.NewReader(""))
		r.RemoteAddr = "10.0.0.1:1234"
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		return w
	}

	assert.Equal(t, http.StatusOK, send(http.MethodPost, "/claim/1").Code)
	assert.Equal(t, http.StatusTooManyRequests, send(http.MethodPost, "/claim/2").Code)
	assert.Equal(t, http.StatusOK, send(http.MethodGet, "/claim/2").Code)
	assert.Equal(t, http.StatusOK, send(http.MethodPost, "/accounts").Code)
	assert.Equal(t, 3, upstreamCalls)

	m := send(http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, m.Code)
	assert.Contains(t, m.Body.String(), `claimgate_claims_total{outcome="allowed"} 1`)
	assert.Contains(t, m.Body.String(), `claimgate_claims_total{outcome="limited"} 1`)
	assert.Equal(t, 3, upstreamCalls)
}

func adminDo(t *testing.T, h http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	r := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	r.Header.Set("X-Client", "admin")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func TestServer_AdminRequiresToken(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	assert.Equal(t, http.StatusUnauthorized, adminDo(t, h, http.MethodGet, "/v1/admin/accounts", "", "").Code)
	assert.Equal(t, http.StatusUnauthorized, adminDo(t, h, http.MethodGet, "/v1/admin/accounts", "wrong", "").Code)
	assert.Equal(t, http.StatusOK, adminDo(t, h, http.MethodGet, "/v1/admin/accounts", testAdminToken, "").Code)
}

func TestServer_AdminDisabledWithoutToken(t *testing.T) {
	repo, err := infra.NewMemoryAccountRepository()
	require.NoError(t, err)
	srv := New(":0", Deps{Claims: claimlimit.Options{Backend: infra.NewMemoryStore()}, Accounts: repo})

	w := adminDo(t, srv.Handler(), http.MethodGet, "/v1/admin/accounts", "anything", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServer_AdminAccountLifecycle(t *testing.T) {
	srv, clock := newTestServer(t)
	h := srv.Handler()

	w := adminDo(t, h, http.MethodPost, "/v1/admin/accounts", testAdminToken,
		`{"service":"Steam","email":"gamer1@example.com","password":"steampass123","usageCount":9}`)
	require.Equal(t, http.StatusCreated, w.Code)
	var created domain.Account
	require.NoError(t, json.NewDecoder(w.Body).Decode(&created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "steam", created.Service)
	assert.Equal(t, 0, created.UsageCount)
	assert.Equal(t, domain.StatusActive, created.Status)

	w = adminDo(t, h, http.MethodPost, "/v1/admin/accounts", testAdminToken, `{"email":"x@example.com"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = adminDo(t, h, http.MethodPost, "/v1/admin/accounts", testAdminToken, `{"bogus":true}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	exp := clock.now.Add(2 * 24 * time.Hour).Format(time.RFC3339)
	w = adminDo(t, h, http.MethodPatch, "/v1/admin/accounts/"+created.ID, testAdminToken,
		`{"password":"newpass","expiresOn":"`+exp+`"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var updated domain.Account
	require.NoError(t, json.NewDecoder(w.Body).Decode(&updated))
	assert.Equal(t, "newpass", updated.Password)
	assert.Equal(t, domain.StatusExpiring, updated.Status)

	w = adminDo(t, h, http.MethodGet, "/v1/admin/accounts/"+created.ID, testAdminToken, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"password":"newpass"`)

	w = do(t, h, http.MethodGet, "/v1/accounts?service=steam", "alice")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), created.ID)

	w = adminDo(t, h, http.MethodDelete, "/v1/admin/accounts/"+created.ID, testAdminToken, "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = adminDo(t, h, http.MethodDelete, "/v1/admin/accounts/"+created.ID, testAdminToken, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = adminDo(t, h, http.MethodPatch, "/v1/admin/accounts/"+created.ID, testAdminToken, `{}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, h, http.MethodPost, "/v1/accounts/"+created.ID+"/claim", "alice")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServer_AdminListIncludesExpired(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	w := adminDo(t, h, http.MethodPost, "/v1/admin/accounts", testAdminToken,
		`{"service":"prime","email":"prime2@example.com","expiresOn":"2020-01-01T00:00:00Z"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w = adminDo(t, h, http.MethodGet, "/v1/admin/accounts", testAdminToken, "")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	var all []domain.Account
	require.NoError(t, json.NewDecoder(strings.NewReader(body)).Decode(&all))
	assert.Len(t, all, 4)
	assert.Contains(t, body, `"status":"expired"`)

	w = do(t, h, http.MethodGet, "/v1/accounts?service=prime", "alice")
	assert.JSONEq(t, `[]`, w.Body.String())
}
