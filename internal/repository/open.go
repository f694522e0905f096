// Package repository selects and opens the configured document store.
package repository

import (
	"context"
	"fmt"
	"log/slog"

	"mediadb/internal/config"
	"mediadb/internal/domain/models"
	"mediadb/internal/domain/repositories"
	"mediadb/internal/repository/github"
	"mediadb/internal/repository/memory"
	"mediadb/internal/repository/postgres"
	"mediadb/internal/repository/supabase"
)

// Open builds the adapter for cfg.StoreBackend. The returned close function
// releases pools and is never nil.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (repositories.DocumentStore, func(), error) {
	noop := func() {}

	switch cfg.StoreBackend {
	case config.BackendSupabase:
		store := supabase.NewTableStore(supabase.Config{
			URL:     cfg.SupabaseURL,
			Key:     cfg.SupabaseKey,
			Table:   cfg.SupabaseTable,
			Timeout: cfg.StoreTimeout,
		}, logger)
		return store, noop, nil

	case config.BackendGitHub:
		store := github.NewFileStore(github.Config{
			APIURL:  cfg.GitHubAPIURL,
			Token:   cfg.GitHubToken,
			Repo:    cfg.GitHubRepo,
			Branch:  cfg.GitHubBranch,
			Path:    cfg.GitHubPath,
			Timeout: cfg.StoreTimeout,
		}, logger)
		return store, noop, nil

	case config.BackendPostgres:
		pool, err := postgres.CreateConnectionPool(ctx, cfg.SupabaseDBURL)
		if err != nil {
			return nil, noop, fmt.Errorf("open postgres store: %w", err)
		}
		repo := postgres.NewDocumentRepository(&postgres.RepositoryConfig{
			Pool:   pool,
			Tables: postgres.NewTableNames(cfg.TablePrefix),
			Logger: logger,
		})
		if err := repo.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, noop, fmt.Errorf("open postgres store: %w", err)
		}
		logger.Info("database connected", "max_conns", pool.Config().MaxConns, "table_prefix", cfg.TablePrefix)
		return repo, pool.Close, nil

	case config.BackendMemory:
		logger.Warn("using in-memory store, data is lost on restart")
		return memory.New(models.Document{}), noop, nil

	default:
		return nil, noop, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}
