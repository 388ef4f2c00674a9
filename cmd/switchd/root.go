package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"smart-switch/config"
	"smart-switch/internal/avl"
	"smart-switch/internal/infra/eeprom"
	"smart-switch/internal/persist"
)

func newRootCmd() *cobra.Command {
	var cfgPath string

	root := &cobra.Command{
		Use:           "switchd",
		Short:         "433 MHz switch controller",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), cfgPath)
		},
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "config.yaml", "path to config file")

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the controller (default)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), cfgPath)
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "dump",
		Short: "Print the stored switch records",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			return runDump(cmd.OutOrStdout(), cfg)
		},
	})

	return root
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// openStore opens the configured backend. readOnly only affects the file
// backend, which then refuses writes and images of the wrong size.
func openStore(cfg config.StoreConfig, readOnly bool) (persist.Store, io.Closer, error) {
	switch cfg.Backend {
	case "memory":
		return eeprom.NewMemory(cfg.Size), nopCloser{}, nil
	case "file":
		open := eeprom.OpenFile
		if readOnly {
			open = eeprom.OpenFileReadOnly
		}
		f, err := open(cfg.Path, cfg.Size)
		if err != nil {
			return nil, nil, err
		}
		return f, f, nil
	case "redis":
		r := eeprom.NewRedis(eeprom.RedisOptions{
			Address:  cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Key:      cfg.Redis.Key,
		}, cfg.Size)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := r.Ping(ctx); err != nil {
			r.Close()
			return nil, nil, err
		}
		return r, r, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

func openCache(cfg config.StoreConfig, readOnly bool, logger *slog.Logger) (*persist.Cache, io.Closer, error) {
	store, closer, err := openStore(cfg, readOnly)
	if err != nil {
		return nil, nil, fmt.Errorf("opening store: %w", err)
	}
	cache, err := persist.New(avl.New(uint8(cfg.MaxSwitches)), store, logger)
	if err != nil {
		closer.Close()
		return nil, nil, err
	}
	return cache, closer, nil
}

func setupLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
