package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Kerhoff/ShopListBot/internal/repository"
)

type keyValueStore struct {
	db      *sql.DB
	dialect Dialect
}

// NewKeyValueStore creates a key-value store over the kv_store table
func NewKeyValueStore(db *sql.DB, dialect Dialect) repository.KeyValueStore {
	return &keyValueStore{db: db, dialect: dialect}
}

func (s *keyValueStore) Get(ctx context.Context, key string) (string, bool, error) {
	query := s.dialect.rebind(`SELECT value FROM kv_store WHERE key = ?`)

	var value string
	err := s.db.QueryRowContext(ctx, query, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to get key %q: %w", key, err)
	}

	return value, true, nil
}

func (s *keyValueStore) Set(ctx context.Context, key, value string) error {
	query := s.dialect.rebind(`
		INSERT INTO kv_store (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`)

	if _, err := s.db.ExecContext(ctx, query, key, value, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to set key %q: %w", key, err)
	}

	return nil
}
