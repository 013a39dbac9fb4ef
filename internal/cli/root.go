// Package cli provides the relayctl command-line interface.
package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ashureev/chatrelay/internal/config"
	"github.com/ashureev/chatrelay/internal/store"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Version is set at build time.
var Version = "0.1.0"

// openRepo opens the conversation store from process configuration.
type openRepo func(ctx context.Context) (store.Repository, error)

func openFromEnv(ctx context.Context) (store.Repository, error) {
	_ = godotenv.Load()

	cfg, err := config.LoadStore()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, _ := config.SetupLogger("", slog.LevelWarn)

	repo, err := store.Open(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return repo, nil
}

// app carries the store shared by subcommands.
type app struct {
	open openRepo
	repo store.Repository
}

func newRootCmd(open openRepo) *cobra.Command {
	a := &app{open: open}

	root := &cobra.Command{
		Use:   "relayctl",
		Short: "Administer the chat relay conversation store",
		Long: `relayctl inspects and maintains the conversation log used by the chat relay.

It reads the same environment (and .env file) as the server, so it talks to
whichever store STORE_DRIVER selects.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "version" {
				return nil
			}
			repo, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			a.repo = repo
			return nil
		},
		PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
			if a.repo == nil {
				return nil
			}
			if err := a.repo.Close(); err != nil {
				return fmt.Errorf("close store: %w", err)
			}
			return nil
		},
	}

	root.AddCommand(newHistoryCmd(a))
	root.AddCommand(newPingCmd(a))
	return root
}

// Execute runs the root command against the configured store.
func Execute() error {
	return newRootCmd(openFromEnv).ExecuteContext(context.Background())
}

func newPingCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check that the store is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.repo.Ping(cmd.Context()); err != nil {
				return fmt.Errorf("ping store: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "ok")
			return nil
		},
	}
}
