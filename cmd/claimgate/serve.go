package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"claim-gateway/internal/server"
	"claim-gateway/middleware/claimlimit/domain"
	"claim-gateway/middleware/claimlimit/infra"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the accounts/claims HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.serve(cmd.Context())
		},
	}
	cmd.Flags().String("accounts", "", "YAML file with seed accounts (ACCOUNTS_FILE)")
	_ = a.v.BindPFlag("ACCOUNTS_FILE", cmd.Flags().Lookup("accounts"))
	return cmd
}

func (a *app) serve(parent context.Context) error {
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

	var seed []domain.Account
	if a.cfg.AccountsFile != "" {
		seed, err = infra.LoadAccountsYAML(a.cfg.AccountsFile)
		if err != nil {
			return err
		}
	}
	repo, err := infra.NewMemoryAccountRepository(seed...)
	if err != nil {
		return fmt.Errorf("%s: %w", a.cfg.AccountsFile, err)
	}
	if len(seed) > 0 {
		a.log.Info("accounts loaded", zap.String("file", a.cfg.AccountsFile), zap.Int("count", len(seed)))
	}
	if a.cfg.AdminToken == "" {
		a.log.Info("admin routes disabled (ADMIN_TOKEN not set)")
	}

	srv := server.New(a.cfg.ListenAddr, server.Deps{
		Claims:   claimOptions(a.cfg, backend, stats, a.log),
		Guard:    guardOptions(ctx, a.cfg, a.log),
		Accounts: repo,
		Gatherer: reg,
		Logger:   a.log,

		AdminToken: a.cfg.AdminToken,
	})

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	a.logStartup()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (a *app) logStartup() {
	a.log.Info("claim window",
		zap.Duration("window", a.cfg.ClaimWindow),
		zap.String("store", a.cfg.StoreBackend),
		zap.String("record_policy", a.cfg.ClaimRecordPolicy.String()),
		zap.String("key_header", a.cfg.RateKeyHeader),
		zap.Bool("trust_xff", a.cfg.TrustXFF))
	a.log.Info("throttle",
		zap.Bool("enabled", a.cfg.RateEnabled),
		zap.Float64("rps", a.cfg.RateRPS),
		zap.Int("burst", a.cfg.RateBurst),
		zap.Int("concurrency_max", a.cfg.ConcurrencyMax),
		zap.Duration("acquire_timeout", a.cfg.ConcurrencyTimeout))
}
