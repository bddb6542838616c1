// Package config lê a configuração do claimgate a partir de variáveis de ambiente
// (e flags da CLI ligadas ao mesmo viper).
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"claim-gateway/middleware/claimlimit/application"

	"github.com/spf13/viper"
)

type Config struct {
	ListenAddr      string
	UpstreamURL     string
	ClaimPathPrefix string
	MetricsPath     string
	AdminToken      string

	ClaimWindow       time.Duration
	ClaimStorageKey   string
	ClaimRecordPolicy application.RecordPolicy
	AddClaimHeaders   bool

	StoreBackend  string // memory | redis | sqlite
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
	SQLitePath    string
	AccountsFile  string

	RateEnabled        bool
	RateRPS            float64
	RateBurst          int
	RateKeyHeader      string
	TrustXFF           bool
	RetryAfter         time.Duration
	AddRateHeaders     bool
	ConcurrencyMax     int
	ConcurrencyTimeout time.Duration

	StatsEnabled     bool
	StatsRedisAddr   string
	StatsPrefix      string
	StatsTTL         time.Duration
	StatsBucket      string
	StatsTrackClient bool

	LogLevel  string
	LogFormat string
}

// NewViper cria um viper com os defaults e lendo o ambiente.
func NewViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("LISTEN_ADDR", ":8080")
	v.SetDefault("CLAIM_PATH_PREFIX", "/")
	v.SetDefault("METRICS_PATH", "/metrics")
	v.SetDefault("CLAIM_WINDOW", "12h")
	v.SetDefault("CLAIM_STORAGE_KEY", "user_claim_timestamps")
	v.SetDefault("CLAIM_RECORD_POLICY", "after")
	v.SetDefault("ADD_CLAIM_HEADERS", false)

	v.SetDefault("STORE_BACKEND", "memory")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_PREFIX", "claimlimit")
	v.SetDefault("SQLITE_PATH", "claimgate.db")

	v.SetDefault("RATE_ENABLED", true)
	v.SetDefault("RATE_RPS", 10)
	v.SetDefault("TRUST_XFF", false)
	v.SetDefault("RETRY_AFTER", "1s")
	v.SetDefault("ADD_RATELIMIT_HEADERS", false)
	v.SetDefault("CONCURRENCY_MAX", 100)
	v.SetDefault("CONCURRENCY_TIMEOUT", "0s")

	v.SetDefault("RATE_STATS_ENABLED", false)
	v.SetDefault("RATE_STATS_PREFIX", "claimlimit:stats")
	v.SetDefault("RATE_STATS_TTL", "168h")
	v.SetDefault("RATE_STATS_BUCKET", "hour")
	v.SetDefault("RATE_STATS_TRACK_KEYS", false)

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	return v
}

func Load(v *viper.Viper) (Config, error) {
	policy, err := application.ParseRecordPolicy(v.GetString("CLAIM_RECORD_POLICY"))
	if err != nil {
		return Config{}, fmt.Errorf("CLAIM_RECORD_POLICY: %w", err)
	}

	cfg := Config{
		ListenAddr:      v.GetString("LISTEN_ADDR"),
		UpstreamURL:     v.GetString("UPSTREAM_URL"),
		ClaimPathPrefix: v.GetString("CLAIM_PATH_PREFIX"),
		MetricsPath:     v.GetString("METRICS_PATH"),
		AdminToken:      v.GetString("ADMIN_TOKEN"),

		ClaimWindow:       v.GetDuration("CLAIM_WINDOW"),
		ClaimStorageKey:   v.GetString("CLAIM_STORAGE_KEY"),
		ClaimRecordPolicy: policy,
		AddClaimHeaders:   v.GetBool("ADD_CLAIM_HEADERS"),

		StoreBackend:  strings.ToLower(strings.TrimSpace(v.GetString("STORE_BACKEND"))),
		RedisAddr:     v.GetString("REDIS_ADDR"),
		RedisPassword: v.GetString("REDIS_PASSWORD"),
		RedisDB:       v.GetInt("REDIS_DB"),
		RedisPrefix:   v.GetString("REDIS_PREFIX"),
		SQLitePath:    v.GetString("SQLITE_PATH"),
		AccountsFile:  v.GetString("ACCOUNTS_FILE"),

		RateEnabled:        v.GetBool("RATE_ENABLED"),
		RateRPS:            v.GetFloat64("RATE_RPS"),
		RateKeyHeader:      v.GetString("RATE_KEY_HEADER"),
		TrustXFF:           v.GetBool("TRUST_XFF"),
		RetryAfter:         v.GetDuration("RETRY_AFTER"),
		AddRateHeaders:     v.GetBool("ADD_RATELIMIT_HEADERS"),
		ConcurrencyMax:     v.GetInt("CONCURRENCY_MAX"),
		ConcurrencyTimeout: v.GetDuration("CONCURRENCY_TIMEOUT"),

		StatsEnabled:     v.GetBool("RATE_STATS_ENABLED"),
		StatsRedisAddr:   v.GetString("RATE_STATS_REDIS_ADDR"),
		StatsPrefix:      v.GetString("RATE_STATS_PREFIX"),
		StatsTTL:         v.GetDuration("RATE_STATS_TTL"),
		StatsBucket:      v.GetString("RATE_STATS_BUCKET"),
		StatsTrackClient: v.GetBool("RATE_STATS_TRACK_KEYS"),

		LogLevel:  v.GetString("LOG_LEVEL"),
		LogFormat: v.GetString("LOG_FORMAT"),
	}

	// IMPORTANTE: o "burst" permite uma rajada inicial de requisições.
	// Com RPS muito baixo (ex: 0.02), o padrão 20 dá a impressão de que o
	// throttle não funciona, porque as primeiras ~20 passam.
	if v.IsSet("RATE_BURST") {
		cfg.RateBurst = v.GetInt("RATE_BURST")
	} else {
		cfg.RateBurst = 20
		if cfg.RateRPS > 0 && cfg.RateRPS < 1 {
			cfg.RateBurst = 1
		}
	}
	if cfg.StatsRedisAddr == "" {
		cfg.StatsRedisAddr = cfg.RedisAddr
	}

	return cfg, cfg.validate()
}

func (c Config) validate() error {
	if c.ClaimWindow <= 0 {
		return errors.New("CLAIM_WINDOW must be > 0")
	}
	if strings.TrimSpace(c.ClaimStorageKey) == "" {
		return errors.New("CLAIM_STORAGE_KEY must not be empty")
	}
	switch c.StoreBackend {
	case "memory", "sqlite":
	case "redis":
		if strings.TrimSpace(c.RedisAddr) == "" {
			return errors.New("REDIS_ADDR is required when STORE_BACKEND=redis")
		}
	default:
		return fmt.Errorf("STORE_BACKEND must be memory, redis or sqlite, got %q", c.StoreBackend)
	}
	if c.StatsEnabled && strings.TrimSpace(c.StatsRedisAddr) == "" {
		return errors.New("RATE_STATS_REDIS_ADDR (or REDIS_ADDR) is required when RATE_STATS_ENABLED=true")
	}
	if c.RateRPS <= 0 {
		return errors.New("RATE_RPS must be > 0")
	}
	if c.RateBurst <= 0 {
		return errors.New("RATE_BURST must be > 0")
	}
	if c.MetricsPath != "" && !strings.HasPrefix(c.MetricsPath, "/") {
		return fmt.Errorf("METRICS_PATH must start with /, got %q", c.MetricsPath)
	}
	if c.ConcurrencyMax < 0 {
		return errors.New("CONCURRENCY_MAX must be >= 0")
	}
	return nil
}

// RequireUpstream valida o que só o modo gateway precisa.
func (c Config) RequireUpstream() error {
	if strings.TrimSpace(c.UpstreamURL) == "" {
		return errors.New("UPSTREAM_URL is required")
	}
	return nil
}
