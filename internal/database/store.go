package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
)

// Store defines the database operations behind the settings backend.
// Every write bumps a global revision so readers can fetch what changed.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// ListSettings returns every live (non-deleted) row.
	ListSettings(ctx context.Context) ([]SettingRow, error)

	// ListSettingsSince returns rows, tombstones included, whose revision is
	// greater than revision, ordered by revision.
	ListSettingsSince(ctx context.Context, revision int64) ([]SettingRow, error)

	// MaxRevision returns the highest revision in the table, or 0.
	MaxRevision(ctx context.Context) (int64, error)

	// UpsertSetting inserts or replaces a row and returns its new revision.
	UpsertSetting(ctx context.Context, scope, key, value string) (int64, error)

	// DeleteSetting turns a row into a tombstone. Deleting a missing key is
	// not an error.
	DeleteSetting(ctx context.Context, scope, key string) error

	// PurgeTombstones removes tombstones last updated before olderThan.
	PurgeTombstones(ctx context.Context, olderThan time.Time) (int64, error)

	// RunSQLMaintenance performs database maintenance tasks like VACUUM.
	RunSQLMaintenance(ctx context.Context) error
}

type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStore creates a new Store implementation backed by sqlx.
func NewStore(db *sqlx.DB, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:     db,
		logger: logger.With("component", "store"),
	}
}

func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *sqlxStore) ListSettings(ctx context.Context) ([]SettingRow, error) {
	var rows []SettingRow
	query := `
        SELECT scope, key, value, revision, deleted, created_at, updated_at
        FROM settings
        WHERE deleted = 0
        ORDER BY revision;
    `
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		s.logger.ErrorContext(ctx, "Error listing settings", "error", err)
		return nil, fmt.Errorf("failed to list settings: %w", err)
	}
	return rows, nil
}

func (s *sqlxStore) ListSettingsSince(ctx context.Context, revision int64) ([]SettingRow, error) {
	var rows []SettingRow
	query := `
        SELECT scope, key, value, revision, deleted, created_at, updated_at
        FROM settings
        WHERE revision > ?
        ORDER BY revision;
    `
	if err := s.db.SelectContext(ctx, &rows, query, revision); err != nil {
		s.logger.ErrorContext(ctx, "Error listing changed settings", "since", revision, "error", err)
		return nil, fmt.Errorf("failed to list settings since revision %d: %w", revision, err)
	}
	return rows, nil
}

func (s *sqlxStore) MaxRevision(ctx context.Context) (int64, error) {
	var rev int64
	if err := s.db.GetContext(ctx, &rev, `SELECT COALESCE(MAX(revision), 0) FROM settings;`); err != nil {
		return 0, fmt.Errorf("failed to read max revision: %w", err)
	}
	return rev, nil
}

func (s *sqlxStore) UpsertSetting(ctx context.Context, scope, key, value string) (int64, error) {
	if scope == "" || key == "" {
		return 0, fmt.Errorf("setting must have a non-empty scope and key")
	}

	var revision int64
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		if err := tx.GetContext(ctx, &revision, `SELECT COALESCE(MAX(revision), 0) + 1 FROM settings;`); err != nil {
			return fmt.Errorf("failed to allocate revision: %w", err)
		}

		now := time.Now().UTC()
		row := SettingRow{
			Scope:     scope,
			Key:       key,
			Value:     value,
			Revision:  revision,
			CreatedAt: now,
			UpdatedAt: now,
		}
		query := `
            INSERT INTO settings (scope, key, value, revision, deleted, created_at, updated_at)
            VALUES (:scope, :key, :value, :revision, 0, :created_at, :updated_at)
            ON CONFLICT (scope, key) DO UPDATE SET
                value = excluded.value,
                revision = excluded.revision,
                deleted = 0,
                updated_at = excluded.updated_at;
        `
		if _, err := tx.NamedExecContext(ctx, query, row); err != nil {
			return fmt.Errorf("failed to upsert setting %s/%s: %w", scope, key, err)
		}
		return nil
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Error saving setting", "scope", scope, "key", key, "error", err)
		return 0, err
	}

	s.logger.DebugContext(ctx, "Setting saved", "scope", scope, "key", key, "revision", revision)
	return revision, nil
}

func (s *sqlxStore) DeleteSetting(ctx context.Context, scope, key string) error {
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		var revision int64
		if err := tx.GetContext(ctx, &revision, `SELECT COALESCE(MAX(revision), 0) + 1 FROM settings;`); err != nil {
			return fmt.Errorf("failed to allocate revision: %w", err)
		}
		_, err := tx.ExecContext(ctx, `
            UPDATE settings SET deleted = 1, revision = ?, updated_at = ?
            WHERE scope = ? AND key = ? AND deleted = 0;
        `, revision, time.Now().UTC(), scope, key)
		if err != nil {
			return fmt.Errorf("failed to delete setting %s/%s: %w", scope, key, err)
		}
		return nil
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Error deleting setting", "scope", scope, "key", key, "error", err)
		return err
	}
	return nil
}

func (s *sqlxStore) PurgeTombstones(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM settings WHERE deleted = 1 AND updated_at < ?;`, olderThan.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to purge tombstones: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		s.logger.WarnContext(ctx, "Could not get affected row count when purging tombstones", "error", err)
		return 0, nil
	}
	return n, nil
}

func (s *sqlxStore) RunSQLMaintenance(ctx context.Context) error {
	if ctx.Err() != nil {
		s.logger.WarnContext(ctx, "Context cancelled or timed out before starting VACUUM", "error", ctx.Err())
		return ctx.Err()
	}

	s.logger.InfoContext(ctx, "Starting database maintenance (VACUUM)...")

	// VACUUM must run outside a transaction in SQLite
	_, err := s.db.ExecContext(ctx, "VACUUM;")

	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		s.logger.WarnContext(ctx, "VACUUM operation timed out or was cancelled", "error", err)
		return fmt.Errorf("database maintenance (VACUUM) timed out: %w", err)

	case err != nil:
		s.logger.ErrorContext(ctx, "Database maintenance (VACUUM) failed", "error", err)
		return fmt.Errorf("failed to execute VACUUM: %w", err)

	default:
		s.logger.InfoContext(ctx, "Database maintenance (VACUUM) completed successfully")
	}

	return nil
}

// withTx runs fn inside a transaction, committing on success.
func (s *sqlxStore) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if tx != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
				s.logger.WarnContext(ctx, "Error rolling back transaction", "error", rollbackErr)
			}
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	tx = nil
	return nil
}
