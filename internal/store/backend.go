// Package store implements the Graph Store: a lazy, key-addressed JSON
// object store over one or more pluggable backends (file, read-only mirror,
// database), with per-key advisory locking and retrying I/O.
package store

import "context"

// Key identifies a record in the Graph Store, e.g. "package:numpy",
// "versions:numpy", "pr_info:version:numpy".
type Key string

// Backend is the minimal storage primitive a Graph Store backend must
// implement. Higher-level composition (fallthrough reads, fan-out writes,
// retry, health tracking) lives in Store, not here.
type Backend interface {
	// Name identifies the backend for logging and health tracking.
	Name() string

	// Exists reports whether key has a record.
	Exists(ctx context.Context, key Key) (bool, error)

	// GetBytes returns the raw JSON bytes stored under key.
	GetBytes(ctx context.Context, key Key) ([]byte, error)

	// PutBytes stores raw JSON bytes under key, replacing any prior value.
	PutBytes(ctx context.Context, key Key, data []byte) error

	// Delete removes the record at key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key Key) error

	// KeysPrefix lists all keys with the given prefix (empty prefix lists all).
	KeysPrefix(ctx context.Context, prefix string) ([]Key, error)
}

// HashmapCapable is an optional marker interface a Backend may implement to
// expose atomic field-level reads/writes on a hashmap-shaped record. None of
// the backends in this package implement it; backends without native hashmap
// support simply don't implement this interface.
type HashmapCapable interface {
	HashmapRead(ctx context.Context, key Key, field string) ([]byte, error)
	HashmapWrite(ctx context.Context, key Key, field string, value []byte) error
}
