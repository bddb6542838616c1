package main

import (
	"claim-gateway/internal/config"
	"claim-gateway/internal/logging"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type app struct {
	v   *viper.Viper
	cfg config.Config
	log *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{v: config.NewViper()}

	root := &cobra.Command{
		Use:   "claimgate",
		Short: "Per-client claim window in front of a shared-account store",
		Long: `claimgate limits each client to one account claim per window (12h by default).

Configuration comes from environment variables (LISTEN_ADDR, CLAIM_WINDOW,
STORE_BACKEND, REDIS_ADDR, SQLITE_PATH, RATE_RPS, ...); flags override them.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(a.v)
			if err != nil {
				return err
			}
			log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
			if err != nil {
				return err
			}
			a.cfg, a.log = cfg, log
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}

	pf := root.PersistentFlags()
	pf.String("store", "", "history backend: memory, redis or sqlite (STORE_BACKEND)")
	pf.String("window", "", "claim window, e.g. 12h (CLAIM_WINDOW)")
	pf.String("log-level", "", "log level (LOG_LEVEL)")
	pf.String("listen", "", "listen address (LISTEN_ADDR)")
	_ = a.v.BindPFlag("STORE_BACKEND", pf.Lookup("store"))
	_ = a.v.BindPFlag("CLAIM_WINDOW", pf.Lookup("window"))
	_ = a.v.BindPFlag("LOG_LEVEL", pf.Lookup("log-level"))
	_ = a.v.BindPFlag("LISTEN_ADDR", pf.Lookup("listen"))

	root.AddCommand(newServeCmd(a), newGatewayCmd(a), newStatusCmd(a), newRecordCmd(a), newHistoryCmd(a))
	return root
}
