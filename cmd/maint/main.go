// Package main provides maintenance commands for the catalog document:
// dumping it, seeding it from a file, pruning migrated image payloads and
// replacing keys verbatim.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"mediadb/internal/config"
	"mediadb/internal/domain/services"
	"mediadb/internal/repository"
	"mediadb/internal/schema"
	"mediadb/internal/service/catalog"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var verbose bool

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "maint",
	Short: "Maintenance commands for the catalog document",
	Long: `Runs catalog operations directly against the configured store with
admin privileges. The store is selected by the same environment variables as
the server (STORE_BACKEND and friends), read from .env when present.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(dumpCmd, seedCmd, pruneCmd, purgeCmd)
}

// env holds what every command needs
type env struct {
	cfg     *config.Config
	schema  *schema.Schema
	service services.CatalogService
	logger  *slog.Logger
	close   func()
}

func setup(ctx context.Context) (*env, error) {
	_ = godotenv.Load()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}

	logEnv := "prod"
	if verbose {
		logEnv = "dev"
	}
	logger := config.NewLogger(logEnv, os.Stderr)

	s, err := schema.Load()
	if err != nil {
		return nil, err
	}
	if len(cfg.ProtectedKeys) > 0 {
		s = s.WithProtected(cfg.ProtectedKeys)
	}

	store, closeStore, err := repository.Open(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	return &env{
		cfg:     cfg,
		schema:  s,
		service: catalog.NewCatalogService(store, s, cfg.StoreTimeout, logger),
		logger:  logger,
		close:   closeStore,
	}, nil
}
