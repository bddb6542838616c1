package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os/signal"
	"syscall"
	"time"

	"claim-gateway/internal/server"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newGatewayCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gateway",
		Short: "Reverse proxy to UPSTREAM_URL with the claim window on claim requests",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.gateway(cmd.Context())
		},
	}
	cmd.Flags().String("upstream", "", "upstream base URL (UPSTREAM_URL)")
	cmd.Flags().String("claim-prefix", "", "path prefix of claim requests (CLAIM_PATH_PREFIX)")
	_ = a.v.BindPFlag("UPSTREAM_URL", cmd.Flags().Lookup("upstream"))
	_ = a.v.BindPFlag("CLAIM_PATH_PREFIX", cmd.Flags().Lookup("claim-prefix"))
	return cmd
}

func (a *app) gateway(parent context.Context) error {
	if err := a.cfg.RequireUpstream(); err != nil {
		return err
	}
	target, err := url.Parse(a.cfg.UpstreamURL)
	if err != nil {
		return fmt.Errorf("invalid UPSTREAM_URL: %w", err)
	}

	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var c closers
	defer c.Close()

	backend, err := openBackend(ctx, a.cfg, &c)
	if err != nil {
		return err
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	stats, err := openStats(ctx, a.cfg, reg, &c)
	if err != nil {
		return err
	}

	h := server.NewGateway(server.GatewayConfig{
		Target:      target,
		ClaimPrefix: a.cfg.ClaimPathPrefix,
		Claims:      claimOptions(a.cfg, backend, stats, a.log),
		Guard:       guardOptions(ctx, a.cfg, a.log),
		Gatherer:    reg,
		MetricsPath: a.cfg.MetricsPath,
		Logger:      a.log,
	})

	srv := &http.Server{
		Addr:              a.cfg.ListenAddr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	a.log.Info("gateway listening",
		zap.String("addr", a.cfg.ListenAddr),
		zap.String("upstream", target.String()),
		zap.String("claim_prefix", a.cfg.ClaimPathPrefix),
		zap.String("metrics_path", a.cfg.MetricsPath))
	a.logStartup()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
