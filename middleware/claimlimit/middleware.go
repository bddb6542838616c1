package claimlimit

import (
	"net/http"
	"time"

	"claim-gateway/middleware/claimlimit/application"
	"claim-gateway/middleware/claimlimit/domain"
	"claim-gateway/middleware/claimlimit/infra"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type Options struct {
	// Backend é o storage compartilhado; cada cliente recebe um escopo próprio.
	Backend    domain.KeyValueStore
	Window     time.Duration
	HistoryKey string
	Policy     application.RecordPolicy
	Stats      domain.StatsStore

	KeyFn              KeyFunc
	KeyHeader          string
	TrustXForwardedFor bool
	// Match restringe quais requisições são claims. nil = todas.
	Match func(r *http.Request) bool

	RejectStatus    int
	AddClaimHeaders bool

	Now    func() time.Time
	Logger *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.RejectStatus == 0 {
		o.RejectStatus = http.StatusTooManyRequests
	}
	if o.KeyFn == nil {
		o.KeyFn = ClientKeyFunc(o.KeyHeader, o.TrustXForwardedFor)
	}
	if o.Window <= 0 {
		o.Window = domain.DefaultWindow
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// LimiterFor monta o ClaimLimiter sobre o storage do cliente.
func (o Options) LimiterFor(client string) application.ClaimLimiter {
	o = o.withDefaults()
	var store domain.KeyValueStore
	if o.Backend != nil {
		store = infra.NewScopedStore(o.Backend, client)
	}
	return application.ClaimLimiter{
		Store:  store,
		Window: o.Window,
		Key:    o.HistoryKey,
		Now:    o.Now,
		Logger: o.Logger,
	}
}

// Client retorna a chave do cliente para a requisição.
func (o Options) Client(r *http.Request) string {
	return o.withDefaults().KeyFn(r)
}

// Middleware bloqueia claims de um cliente que já fez um claim dentro da janela.
//
// Com RecordAfterClaim, o claim só entra no histórico se o próximo handler
// responder com status < 400. Com RecordBeforeClaim, entra antes de chamar o handler.
func Middleware(opts Options) func(next http.Handler) http.Handler {
	opts = opts.withDefaults()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if opts.Match != nil && !opts.Match(r) {
				next.ServeHTTP(w, r)
				return
			}

			client := opts.KeyFn(r)
			lim := opts.LimiterFor(client)
			log := opts.Logger.With(zap.String("client", client), zap.String("path", r.URL.Path))
			if opts.AddClaimHeaders {
				w.Header().Set("X-Claim-Client", client)
				w.Header().Set("X-Claim-Window", formatSeconds(opts.Window))
			}

			dec := lim.Decide(r.Context())
			if !dec.Allowed {
				recordStats(r, opts.Stats, client, domain.OutcomeLimited, log)
				w.Header().Set("Retry-After", formatSeconds(dec.RetryAfter))
				limited := &domain.LimitedError{Window: opts.Window, RetryAfter: dec.RetryAfter}
				http.Error(w, limited.Error(), opts.RejectStatus)
				log.Info("claim blocked", zap.Duration("retry_after", dec.RetryAfter))
				return
			}

			if opts.Policy == application.RecordBeforeClaim {
				if err := lim.RecordClaim(r.Context()); err != nil {
					log.Warn("claim not recorded in history", zap.Error(err))
				}
				next.ServeHTTP(w, r)
				recordStats(r, opts.Stats, client, domain.OutcomeAllowed, log)
				return
			}

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			if status := ww.Status(); status >= http.StatusBadRequest {
				recordStats(r, opts.Stats, client, domain.OutcomeFailed, log)
				return
			}
			if err := lim.RecordClaim(r.Context()); err != nil {
				log.Warn("claim not recorded in history", zap.Error(err))
			}
			recordStats(r, opts.Stats, client, domain.OutcomeAllowed, log)
		})
	}
}

func recordStats(r *http.Request, stats domain.StatsStore, client string, outcome domain.Outcome, log *zap.Logger) {
	if stats == nil {
		return
	}
	err := stats.Record(r.Context(), domain.StatsEvent{Client: client, Outcome: outcome, At: time.Now()})
	if err != nil {
		log.Debug("claim stats not recorded", zap.Error(err))
	}
}
