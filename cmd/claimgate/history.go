package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"claim-gateway/middleware/claimlimit/application"
	"claim-gateway/middleware/claimlimit/domain"
	"claim-gateway/middleware/claimlimit/infra"

	"github.com/spf13/cobra"
)

// Comandos de operação: consultam/gravam o histórico de um cliente direto no storage.

func clientFlag(cmd *cobra.Command) *string {
	client := cmd.Flags().String("client", "", "client key (IP or header value) whose history to use")
	_ = cmd.MarkFlagRequired("client")
	return client
}

func (a *app) limiterFor(ctx context.Context, client string, c *closers) (application.ClaimLimiter, error) {
	backend, err := openBackend(ctx, a.cfg, c)
	if err != nil {
		return application.ClaimLimiter{}, err
	}
	return application.ClaimLimiter{
		Store:  infra.NewScopedStore(backend, client),
		Window: a.cfg.ClaimWindow,
		Key:    a.cfg.ClaimStorageKey,
		Logger: a.log,
	}, nil
}

func newStatusCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Tell whether a client may claim now",
	}
	client := clientFlag(cmd)
	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		var c closers
		defer c.Close()
		lim, err := a.limiterFor(cmd.Context(), *client, &c)
		if err != nil {
			return err
		}
		printDecision(cmd.OutOrStdout(), *client, lim.Decide(cmd.Context()))
		return nil
	}
	return cmd
}

func newRecordCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record a claim for a client now (ignores the window)",
	}
	client := clientFlag(cmd)
	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		var c closers
		defer c.Close()
		lim, err := a.limiterFor(cmd.Context(), *client, &c)
		if err != nil {
			return err
		}
		if err := lim.RecordClaim(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "recorded claim for %q (%d in history)\n", *client, len(lim.History(cmd.Context())))
		return nil
	}
	return cmd
}

func newHistoryCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List a client's recorded claims",
	}
	client := clientFlag(cmd)
	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		var c closers
		defer c.Close()
		lim, err := a.limiterFor(cmd.Context(), *client, &c)
		if err != nil {
			return err
		}
		now := time.Now()
		out := cmd.OutOrStdout()
		for _, ev := range lim.History(cmd.Context()) {
			state := "expired"
			if ev.Age(now) < lim.Window {
				state = "counting"
			}
			fmt.Fprintf(out, "%s\t%s\n", ev.Time().UTC().Format(time.RFC3339), state)
		}
		return nil
	}
	return cmd
}

func printDecision(w io.Writer, client string, dec domain.Decision) {
	if dec.Allowed {
		fmt.Fprintf(w, "%s: claim allowed\n", client)
		return
	}
	fmt.Fprintf(w, "%s: blocked, next claim in %s\n", client, dec.RetryAfter.Round(time.Second))
}
