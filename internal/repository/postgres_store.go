package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// dbtx is satisfied by both the pool and a transaction.
type dbtx interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const upsertIndexEntry = `INSERT INTO index_entries (key, value, updated_at)
	 VALUES ($1, $2, NOW())
	 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`

// PostgresIndexStore keeps index entries as JSONB rows in index_entries.
type PostgresIndexStore struct {
	pool *pgxpool.Pool
}

func NewPostgresIndexStore(pool *pgxpool.Pool) *PostgresIndexStore {
	return &PostgresIndexStore{pool: pool}
}

func (s *PostgresIndexStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return getIndexEntry(ctx, s.pool, key)
}

func (s *PostgresIndexStore) Set(ctx context.Context, key string, value []byte) error {
	return setIndexEntry(ctx, s.pool, key, value)
}

// SetAll upserts every entry in one transaction.
func (s *PostgresIndexStore) SetAll(ctx context.Context, entries map[string][]byte) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	for k, v := range entries {
		if err := setIndexEntry(ctx, tx, k, v); err != nil {
			_ = tx.Rollback(ctx)
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit index entries: %w", err)
	}
	return nil
}

func getIndexEntry(ctx context.Context, db dbtx, key string) ([]byte, bool, error) {
	var value []byte
	err := db.QueryRow(ctx,
		`SELECT value FROM index_entries WHERE key = $1`,
		key,
	).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return value, true, nil
}

func setIndexEntry(ctx context.Context, db dbtx, key string, value []byte) error {
	if _, err := db.Exec(ctx, upsertIndexEntry, key, string(value)); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}
