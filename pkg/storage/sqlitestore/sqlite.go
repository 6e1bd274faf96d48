// Package sqlitestore provides a storage.KV backend on a pure-Go SQLite
// driver. Both workspace keys are written in one transaction.
package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	_ "modernc.org/sqlite"

	"github.com/goliatone/go-formbuilder/pkg/storage"
)

const defaultTable = "formbuilder_kv"

// Option configures the backend.
type Option func(*KV)

// WithTable overrides the table name.
func WithTable(name string) Option {
	return func(kv *KV) {
		if name != "" {
			kv.table = name
		}
	}
}

// KV stores entries in a two-column table.
type KV struct {
	db    *sql.DB
	table string
	owned bool
}

// Open opens (or creates) the database at dsn and prepares the table.
func Open(ctx context.Context, dsn string, opts ...Option) (*KV, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: open: %w", err)
	}
	db.SetMaxOpenConns(1)

	kv, err := New(ctx, db, opts...)
	if err != nil {
		db.Close()
		return nil, err
	}
	kv.owned = true
	return kv, nil
}

// New wraps an existing handle. The caller keeps ownership of db.
func New(ctx context.Context, db *sql.DB, opts ...Option) (*KV, error) {
	if db == nil {
		return nil, errors.New("sqlitestore: db is nil")
	}
	kv := &KV{db: db, table: defaultTable}
	for _, opt := range opts {
		if opt != nil {
			opt(kv)
		}
	}

	stmt := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %q (
	key TEXT PRIMARY KEY,
	value BLOB NOT NULL,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`, kv.table)
	if _, err := db.ExecContext(ctx, stmt); err != nil {
		return nil, fmt.Errorf("sqlitestore: create table: %w", err)
	}
	return kv, nil
}

// Get implements storage.KV.
func (kv *KV) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	query := fmt.Sprintf(`SELECT value FROM %q WHERE key = ?`, kv.table)
	err := kv.db.QueryRowContext(ctx, query, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: get %s: %w", key, err)
	}
	return value, nil
}

// Put implements storage.KV inside a single transaction.
func (kv *KV) Put(ctx context.Context, entries map[string][]byte) error {
	tx, err := kv.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlitestore: begin: %w", err)
	}
	defer tx.Rollback()

	upsert := fmt.Sprintf(`INSERT INTO %q (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`, kv.table)
	remove := fmt.Sprintf(`DELETE FROM %q WHERE key = ?`, kv.table)

	keys := make([]string, 0, len(entries))
	for key := range entries {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := entries[key]
		if value == nil {
			if _, err := tx.ExecContext(ctx, remove, key); err != nil {
				return fmt.Errorf("sqlitestore: delete %s: %w", key, err)
			}
			continue
		}
		if _, err := tx.ExecContext(ctx, upsert, key, value); err != nil {
			return fmt.Errorf("sqlitestore: put %s: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlitestore: commit: %w", err)
	}
	return nil
}

// Close releases the database when Open created it.
func (kv *KV) Close() error {
	if kv == nil || !kv.owned {
		return nil
	}
	return kv.db.Close()
}
