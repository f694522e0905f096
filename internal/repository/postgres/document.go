package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"mediadb/internal/domain"
	"mediadb/internal/domain/models"
	"mediadb/internal/domain/repositories"
)

const backendName = "postgres"

// DocumentRepository stores one row per top-level key in a jsonb column and
// keeps a single revision counter as the version token. Writes lock the
// counter row, so concurrent writers serialize and stale tokens are rejected.
type DocumentRepository struct {
	pool      *pgxpool.Pool
	tables    *TableNames
	txManager repositories.TransactionManager
	logger    *slog.Logger
}

var _ repositories.DocumentStore = (*DocumentRepository)(nil)

// NewDocumentRepository creates a new DocumentRepository
func NewDocumentRepository(config *RepositoryConfig) *DocumentRepository {
	return &DocumentRepository{
		pool:      config.Pool,
		tables:    config.Tables,
		txManager: NewTransactionManager(config.Pool, config.Logger),
		logger:    config.Logger,
	}
}

// Name implements repositories.DocumentStore
func (r *DocumentRepository) Name() string { return backendName }

// EnsureSchema creates the tables when they do not exist yet
func (r *DocumentRepository) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			key        TEXT PRIMARY KEY,
			value      JSONB,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE TABLE IF NOT EXISTS %s (
			id       INT PRIMARY KEY,
			revision BIGINT NOT NULL
		);
		INSERT INTO %s (id, revision) VALUES (1, 0) ON CONFLICT (id) DO NOTHING;
	`, r.tables.Entries, r.tables.Revision, r.tables.Revision)

	if _, err := r.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// ReadAll reads every row and the current revision in one transaction
func (r *DocumentRepository) ReadAll(ctx context.Context) (*models.Snapshot, error) {
	snap := &models.Snapshot{Document: models.Document{}}

	err := r.txManager.ExecTx(ctx, func(ctx context.Context) error {
		executor := GetExecutor(ctx, r.pool)

		revision, err := r.currentRevision(ctx, false)
		if err != nil {
			return err
		}
		snap.Version = formatRevision(revision)

		rows, err := executor.Query(ctx, fmt.Sprintf(`SELECT key, value FROM %s`, r.tables.Entries))
		if err != nil {
			return fmt.Errorf("query entries: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var key string
			var raw []byte
			if err := rows.Scan(&key, &raw); err != nil {
				return fmt.Errorf("scan entry: %w", err)
			}
			var value interface{}
			if len(raw) > 0 {
				if err := json.Unmarshal(raw, &value); err != nil {
					return fmt.Errorf("decode entry %q: %w", key, err)
				}
			}
			snap.Document[key] = value
		}
		return rows.Err()
	})
	if err != nil {
		return nil, r.storeError("read", "", err)
	}

	snap.ReadAt = time.Now()
	return snap, nil
}

// Write upserts the requested keys and bumps the revision atomically
func (r *DocumentRepository) Write(ctx context.Context, req *models.WriteRequest) (string, error) {
	var version string

	err := r.txManager.ExecTx(ctx, func(ctx context.Context) error {
		executor := GetExecutor(ctx, r.pool)

		revision, err := r.currentRevision(ctx, true)
		if err != nil {
			return err
		}
		if req.Version != "" && req.Version != formatRevision(revision) {
			return domain.NewConflict(backendName, "write", formatRevision(revision), nil)
		}

		upsert := fmt.Sprintf(`
			INSERT INTO %s (key, value, updated_at)
			VALUES ($1, $2, now())
			ON CONFLICT (key) DO UPDATE SET
				value = EXCLUDED.value,
				updated_at = EXCLUDED.updated_at
		`, r.tables.Entries)

		for _, key := range req.Keys {
			value, ok := req.Document[key]
			if !ok {
				continue
			}
			raw, err := json.Marshal(value)
			if err != nil {
				return fmt.Errorf("encode %q: %w", key, err)
			}
			if _, err := executor.Exec(ctx, upsert, key, raw); err != nil {
				return domain.NewUnavailable(backendName, "write", key, 0, err)
			}
		}

		next, err := r.bumpRevision(ctx)
		if err != nil {
			return err
		}
		version = formatRevision(next)
		return nil
	})
	if err != nil {
		return "", r.storeError("write", "", err)
	}

	r.logger.Debug("entries upserted", "keys", req.Keys, "version", version)
	return version, nil
}

// Delete removes the row for key and bumps the revision
func (r *DocumentRepository) Delete(ctx context.Context, key string) error {
	err := r.txManager.ExecTx(ctx, func(ctx context.Context) error {
		executor := GetExecutor(ctx, r.pool)

		if _, err := r.currentRevision(ctx, true); err != nil {
			return err
		}
		tag, err := executor.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE key = $1`, r.tables.Entries), key)
		if err != nil {
			return fmt.Errorf("delete entry: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return nil
		}
		_, err = r.bumpRevision(ctx)
		return err
	})
	if err != nil {
		return r.storeError("delete", key, err)
	}
	return nil
}

func (r *DocumentRepository) currentRevision(ctx context.Context, forUpdate bool) (int64, error) {
	query := fmt.Sprintf(`SELECT revision FROM %s WHERE id = 1`, r.tables.Revision)
	if forUpdate {
		query += " FOR UPDATE"
	}

	var revision int64
	err := GetExecutor(ctx, r.pool).QueryRow(ctx, query).Scan(&revision)
	if err != nil {
		if IsPgNoRowsError(err) {
			// Table created without the seed row; the first bump inserts it
			return 0, nil
		}
		return 0, fmt.Errorf("get revision: %w", err)
	}
	return revision, nil
}

func (r *DocumentRepository) bumpRevision(ctx context.Context) (int64, error) {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, revision) VALUES (1, 1)
		ON CONFLICT (id) DO UPDATE SET revision = %s.revision + 1
		RETURNING revision
	`, r.tables.Revision, r.tables.Revision)

	var revision int64
	if err := GetExecutor(ctx, r.pool).QueryRow(ctx, query).Scan(&revision); err != nil {
		return 0, fmt.Errorf("bump revision: %w", err)
	}
	return revision, nil
}

// storeError keeps classified StoreErrors and wraps everything else as
// unavailable, tagging it with the SQLSTATE when there is one.
func (r *DocumentRepository) storeError(op, key string, err error) error {
	var se *domain.StoreError
	if errors.As(err, &se) {
		return err
	}
	if code := pgCode(err); code != "" {
		r.logger.Warn("postgres error", "op", op, "sqlstate", code, "retryable", IsPgSerializationError(err))
	}
	return domain.NewUnavailable(backendName, op, key, 0, err)
}

func formatRevision(revision int64) string {
	return strconv.FormatInt(revision, 10)
}
