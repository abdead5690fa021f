package store

import (
	"context"
	"database/sql"
	"strings"
	"sync"

	_ "modernc.org/sqlite"

	ferrors "github.com/pkgforge/feedbot/internal/foundation/errors"
)

// DatabaseBackend is a sqlite-backed Graph Store backend, grounded on
// docbuilder's eventstore.SQLiteStore schema-on-open pattern: a single table
// keyed by the logical Graph Store key, holding the latest JSON blob.
type DatabaseBackend struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewDatabaseBackend opens (or creates) the sqlite database at dbPath and
// ensures its schema.
func NewDatabaseBackend(dbPath string) (*DatabaseBackend, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, ferrors.StoreError("open sqlite database").WithCause(err).WithContext("path", dbPath).Build()
	}

	backend := &DatabaseBackend{db: db}
	if err := backend.initialize(); err != nil {
		_ = db.Close()
		return nil, ferrors.StoreError("initialize schema").WithCause(err).Build()
	}
	return backend, nil
}

func (b *DatabaseBackend) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS records (
		key TEXT PRIMARY KEY,
		payload BLOB NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_records_key ON records(key);
	`
	_, err := b.db.Exec(schema)
	return err
}

func (b *DatabaseBackend) Name() string { return "database" }

func (b *DatabaseBackend) Exists(ctx context.Context, key Key) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var count int
	err := b.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM records WHERE key = ?", string(key)).Scan(&count)
	if err != nil {
		return false, ferrors.StoreError("check key existence").WithCause(err).WithContext("key", string(key)).Build()
	}
	return count > 0, nil
}

func (b *DatabaseBackend) GetBytes(ctx context.Context, key Key) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var payload []byte
	err := b.db.QueryRowContext(ctx, "SELECT payload FROM records WHERE key = ?", string(key)).Scan(&payload)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrKeyNotFound
		}
		return nil, ferrors.StoreError("get record").WithCause(err).WithContext("key", string(key)).Build()
	}
	return payload, nil
}

func (b *DatabaseBackend) PutBytes(ctx context.Context, key Key, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	_, err := b.db.ExecContext(ctx,
		`INSERT INTO records (key, payload, updated_at) VALUES (?, ?, strftime('%s','now'))
		 ON CONFLICT(key) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		string(key), data,
	)
	if err != nil {
		return ferrors.StoreError("put record").WithCause(err).WithContext("key", string(key)).Build()
	}
	return nil
}

func (b *DatabaseBackend) Delete(ctx context.Context, key Key) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.db.ExecContext(ctx, "DELETE FROM records WHERE key = ?", string(key)); err != nil {
		return ferrors.StoreError("delete record").WithCause(err).WithContext("key", string(key)).Build()
	}
	return nil
}

func (b *DatabaseBackend) KeysPrefix(ctx context.Context, prefix string) ([]Key, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	rows, err := b.db.QueryContext(ctx, "SELECT key FROM records WHERE key LIKE ? ORDER BY key", escapeLikePrefix(prefix)+"%")
	if err != nil {
		return nil, ferrors.StoreError("list records").WithCause(err).Build()
	}
	defer rows.Close()

	var keys []Key
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, ferrors.StoreError("scan record key").WithCause(err).Build()
		}
		keys = append(keys, Key(k))
	}
	if err := rows.Err(); err != nil {
		return nil, ferrors.StoreError("iterate records").WithCause(err).Build()
	}
	return keys, nil
}

func escapeLikePrefix(prefix string) string {
	r := strings.NewReplacer("%", "\\%", "_", "\\_")
	return r.Replace(prefix)
}

// Close closes the underlying database connection.
func (b *DatabaseBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.db.Close()
}
