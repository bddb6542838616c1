package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"claim-gateway/middleware/claimlimit"
	"claim-gateway/middleware/claimlimit/infra"

	"go.uber.org/zap"
)

// Exemplo: o limite de claims injetado direto no seu webserver (sem proxy),
// com histórico em memória e throttle na frente.
func main() {
	log, _ := zap.NewDevelopment()
	defer func() { _ = log.Sync() }()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	throttle := infra.NewThrottle(5, 10)
	throttle.StartSweeper(ctx)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /claim", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "claimed\n")
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "ok\n")
	})

	claims := claimlimit.Options{
		Backend:         infra.NewMemoryStore(),
		Window:          time.Minute, // janela curta para testar na mão
		KeyHeader:       "X-Api-Key", // ou vazio para usar IP
		AddClaimHeaders: true,
		Match:           func(r *http.Request) bool { return r.Method == http.MethodPost },
		Logger:          log,
	}

	h := http.Handler(mux)
	h = claimlimit.Middleware(claims)(h)
	h = claimlimit.GuardMiddleware(claimlimit.GuardOptions{
		Throttle:      throttle,
		MaxConcurrent: 50,
		KeyFn:         claims.Client,
		Logger:        log,
	})(h)

	addr := ":8081"
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		addr = v
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("example server listening", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("server error", zap.Error(err))
	}
}
