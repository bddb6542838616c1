package server

import (
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"claim-gateway/middleware/claimlimit"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type GatewayConfig struct {
	Target *url.URL
	// ClaimPrefix: POSTs com esse prefixo passam pelo limite de claims. Padrão "/".
	ClaimPrefix string
	Claims      claimlimit.Options
	Guard       claimlimit.GuardOptions
	// Gatherer e MetricsPath expõem as métricas no próprio gateway, sem proxy.
	// Gatherer nil não expõe nada.
	Gatherer    prometheus.Gatherer
	MetricsPath string
	Logger      *zap.Logger
}

// NewGateway faz proxy para cfg.Target. POSTs cujo path começa com ClaimPrefix
// passam pelo limite de claims; o resto só passa pelo guard.
func NewGateway(cfg GatewayConfig) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	claims, guard := cfg.Claims, cfg.Guard
	if claims.Logger == nil {
		claims.Logger = log
	}
	if guard.KeyFn == nil {
		guard.KeyFn = claims.Client
	}
	claimPrefix := cfg.ClaimPrefix
	if claimPrefix == "" {
		claimPrefix = "/"
	}
	target := cfg.Target

	proxy := httputil.NewSingleHostReverseProxy(target)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		log.Warn("proxy error", zap.String("path", r.URL.Path), zap.Error(err))
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}

	claims.Match = func(r *http.Request) bool {
		return r.Method == http.MethodPost && strings.HasPrefix(r.URL.Path, claimPrefix)
	}

	h := http.Handler(proxy)
	h = claimlimit.Middleware(claims)(h)
	h = claimlimit.GuardMiddleware(guard)(h)

	if cfg.Gatherer != nil {
		metricsPath := cfg.MetricsPath
		if metricsPath == "" {
			metricsPath = "/metrics"
		}
		metrics := promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})
		proxied := h
		h = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet && r.URL.Path == metricsPath {
				metrics.ServeHTTP(w, r)
				return
			}
			proxied.ServeHTTP(w, r)
		})
	}

	h = AccessLog(log)(h)
	return RequestID(h)
}
