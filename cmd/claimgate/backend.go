package main

import (
	"context"
	"fmt"
	"time"

	"claim-gateway/internal/config"
	"claim-gateway/middleware/claimlimit"
	"claim-gateway/middleware/claimlimit/domain"
	"claim-gateway/middleware/claimlimit/infra"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type closers []func() error

func (c closers) Close() {
	for i := len(c) - 1; i >= 0; i-- {
		_ = c[i]()
	}
}

func pingRedis(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return rdb, nil
}

// openBackend abre o storage compartilhado do histórico de claims.
func openBackend(ctx context.Context, cfg config.Config, c *closers) (domain.KeyValueStore, error) {
	switch cfg.StoreBackend {
	case "redis":
		rdb, err := pingRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, err
		}
		*c = append(*c, rdb.Close)
		return infra.NewRedisStore(rdb, infra.WithKeyPrefix(cfg.RedisPrefix)), nil
	case "sqlite":
		s, err := infra.OpenSQLiteStore(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		*c = append(*c, s.Close)
		return s, nil
	default:
		return infra.NewMemoryStore(), nil
	}
}

// openStats monta os StatsStore: Prometheus sempre, Redis se habilitado.
func openStats(ctx context.Context, cfg config.Config, reg prometheus.Registerer, c *closers) (domain.StatsStore, error) {
	prom, err := infra.NewPrometheusStatsStore(reg)
	if err != nil {
		return nil, err
	}
	stats := infra.MultiStats{prom}
	if !cfg.StatsEnabled {
		return stats, nil
	}

	rdb, err := pingRedis(ctx, cfg.StatsRedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, err
	}
	*c = append(*c, rdb.Close)
	return append(stats, infra.NewRedisStatsStore(
		rdb,
		infra.WithStatsPrefix(cfg.StatsPrefix),
		infra.WithStatsTTL(cfg.StatsTTL),
		infra.WithStatsBucket(cfg.StatsBucket),
		infra.WithStatsTrackClients(cfg.StatsTrackClient),
	)), nil
}

func claimOptions(cfg config.Config, backend domain.KeyValueStore, stats domain.StatsStore, log *zap.Logger) claimlimit.Options {
	return claimlimit.Options{
		Backend:            backend,
		Window:             cfg.ClaimWindow,
		HistoryKey:         cfg.ClaimStorageKey,
		Policy:             cfg.ClaimRecordPolicy,
		Stats:              stats,
		KeyHeader:          cfg.RateKeyHeader,
		TrustXForwardedFor: cfg.TrustXFF,
		AddClaimHeaders:    cfg.AddClaimHeaders,
		Logger:             log,
	}
}

func guardOptions(ctx context.Context, cfg config.Config, log *zap.Logger) claimlimit.GuardOptions {
	opts := claimlimit.GuardOptions{
		MaxConcurrent:  cfg.ConcurrencyMax,
		AcquireTimeout: cfg.ConcurrencyTimeout,
		RetryAfter:     cfg.RetryAfter,
		KeyFn:          claimlimit.ClientKeyFunc(cfg.RateKeyHeader, cfg.TrustXFF),
		AddHeaders:     cfg.AddRateHeaders,
		Logger:         log,
	}
	if cfg.RateEnabled {
		th := infra.NewThrottle(cfg.RateRPS, cfg.RateBurst)
		th.StartSweeper(ctx)
		opts.Throttle = th
	}
	return opts
}
