package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/redhat-data-and-ai/favourites/internal/app"
	"github.com/redhat-data-and-ai/favourites/pkg/cache"
	"github.com/redhat-data-and-ai/favourites/pkg/config"
	"github.com/redhat-data-and-ai/favourites/pkg/events"
	"github.com/redhat-data-and-ai/favourites/pkg/events/rabbitmq"
	"github.com/redhat-data-and-ai/favourites/pkg/logger"
	"github.com/redhat-data-and-ai/favourites/pkg/persistence/postgres"
	"github.com/redhat-data-and-ai/favourites/pkg/store"
)

type cliOptions struct {
	environment string
	cfg         *config.AppConfig
}

func newRootCmd() *cobra.Command {
	opts := &cliOptions{}

	rootCmd := &cobra.Command{
		Use:           "favourites",
		Short:         "Favourites service for shared entities",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(opts.environment)
			if err != nil {
				return err
			}
			opts.cfg = cfg
			logger.Init(cfg.App.LogLevel, cfg.App.LogFormat)
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVarP(&opts.environment, "env", "e", "",
		"configuration to load from the config directory (defaults to $FAVOURITES_ENV or local)")

	rootCmd.AddCommand(
		newServeCmd(opts),
		newConfigCmd(opts),
		newMigrateCmd(opts),
		newClearCacheCmd(opts),
	)
	return rootCmd
}

func newServeCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the favourites HTTP API and periodic jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := app.New(ctx, opts.cfg)
			if err != nil {
				return err
			}
			defer func() {
				if err := a.Close(); err != nil {
					logger.Logger(ctx).WithError(err).Error("failed to close favourites service")
				}
			}()
			return a.Run(ctx)
		},
	}
}

func newConfigCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration with secrets redacted",
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := config.Dump(opts.cfg)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}

func newMigrateCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the postgres tables used by the favourites service",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			db, err := postgres.Open(ctx, opts.cfg.Favourites.Postgres)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := postgres.Migrate(ctx, db); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
			return nil
		},
	}
}

func newClearCacheCmd(opts *cliOptions) *cobra.Command {
	var reason string

	cmd := &cobra.Command{
		Use:   "clear-cache",
		Short: "Drop cached favourites on every node",
		Long: `With the rabbitmq broadcast driver a clear cache event is published to every node.
Otherwise the configured cache is cleared directly, which only reaches shared caches such as redis.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return clearCache(cmd.Context(), cmd, opts.cfg, reason)
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "manual", "reason recorded with the clear cache event")
	return cmd
}

func clearCache(ctx context.Context, cmd *cobra.Command, cfg *config.AppConfig, reason string) error {
	if cfg.Broadcast.Driver == config.BroadcastRabbitMQ {
		b, err := rabbitmq.Dial(cfg.Broadcast.RabbitMQ, events.NewBus())
		if err != nil {
			return err
		}
		event := events.NewClearCacheEvent(cfg.App.Name+"-cli", reason)
		publishErr := b.Publish(ctx, event)
		if err := errors.Join(publishErr, b.Close()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "published clear cache event %s\n", event.ID)
		return nil
	}

	if cfg.Cache.Driver == "" || cfg.Cache.Driver == cache.DriverMemory {
		logger.Logger(ctx).Warn("the in-memory cache belongs to each server process, use the admin endpoint or the rabbitmq driver instead")
	}
	c, err := cache.New(&cfg.Cache)
	if err != nil {
		return err
	}
	if closer, ok := c.(io.Closer); ok {
		defer closer.Close()
	}
	removed, err := store.New(c, nil).Favourites.InvalidateAll(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "removed %d cached favourites lists\n", removed)
	return nil
}
