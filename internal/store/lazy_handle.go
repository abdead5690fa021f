package store

import (
	"context"
	"encoding/json"
)

// LazyHandle wraps a Store + Key + zero value of T. Load fetches and
// unmarshals the record once; callers then read/mutate Value directly and
// call MarkDirty before Flush. There is no proxy or reflection magic here,
// matching idiomatic Go: the caller owns the struct after Load.
type LazyHandle[T any] struct {
	store *Store
	key   Key
	Value T
	dirty bool
	// loaded is true once Load has successfully populated Value.
	loaded bool
}

// NewLazyHandle creates a handle for key against store, with Value at its
// zero value until Load is called.
func NewLazyHandle[T any](s *Store, key Key) *LazyHandle[T] {
	return &LazyHandle[T]{store: s, key: key}
}

// Load fetches and unmarshals the record into h.Value if not already
// loaded. A missing key is not an error: Value stays at its zero value and
// Loaded() reports false to distinguish "not found" from "loaded empty".
func (h *LazyHandle[T]) Load(ctx context.Context) error {
	if h.loaded {
		return nil
	}
	data, err := h.store.GetBytes(ctx, h.key)
	if err != nil {
		if err == ErrKeyNotFound {
			return nil
		}
		return err
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return newCorruptRecordErr(h.key, err)
	}
	h.Value = v
	h.loaded = true
	return nil
}

// Loaded reports whether Load successfully populated Value from an
// existing record.
func (h *LazyHandle[T]) Loaded() bool { return h.loaded }

// MarkDirty flags Value as modified since the last Flush. Flush writes
// Value whether or not the flag is set, and clears it after a clean write.
func (h *LazyHandle[T]) MarkDirty() { h.dirty = true }

// Flush writes Value to all configured backends in primary-first order via
// the underlying Store. A failed secondary write keeps Dirty=true in the
// result and is logged as a warning by Store.PutBytes, per spec.md §4.1.
func (h *LazyHandle[T]) Flush(ctx context.Context) (*FlushResult, error) {
	data, err := json.MarshalIndent(h.Value, "", "  ")
	if err != nil {
		return nil, err
	}
	data = append(data, '\n')

	result, err := h.store.PutBytes(ctx, h.key, data)
	if err != nil {
		return result, err
	}
	if !result.Dirty {
		h.dirty = false
		h.loaded = true
	}
	return result, nil
}
