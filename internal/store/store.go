package store

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/pkgforge/feedbot/internal/logfields"
	"github.com/pkgforge/feedbot/internal/retry"
)

const unhealthyAfterConsecutiveFailures = 3

// Store composes an ordered list of Backends (GRAPH_BACKENDS, default
// "file"). Reads fall through the list, returning the first hit. Writes go
// to the primary (index 0) first, then fan out to the rest; secondary
// failures are collected as warnings rather than failing the write.
type Store struct {
	backends []Backend
	policy   retry.Policy
	lock     keyLock

	mu              sync.Mutex
	consecutiveFail map[string]int
	healthy         map[string]bool
}

// New builds a Store over the given backends in priority order. The first
// backend is the primary.
func New(backends []Backend) *Store {
	healthy := make(map[string]bool, len(backends))
	for _, b := range backends {
		healthy[b.Name()] = true
	}
	return &Store{
		backends:        backends,
		policy:          retry.NewPolicy(retry.BackoffExponential, time.Second, 60*time.Second, 5),
		consecutiveFail: make(map[string]int),
		healthy:         healthy,
	}
}

func (s *Store) isHealthy(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.healthy[name]
}

func (s *Store) recordResult(name string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		s.consecutiveFail[name] = 0
		return
	}
	s.consecutiveFail[name]++
	if s.consecutiveFail[name] >= unhealthyAfterConsecutiveFailures {
		s.healthy[name] = false
		slog.Warn("graph store backend marked unhealthy", logfields.Backend(name))
	}
}

// withRetry executes op, retrying per s.policy on failure, and feeds the
// outcome into the backend's consecutive-failure health counter. A miss
// (ErrKeyNotFound) or a read-only refusal (ErrReadOnlyBackend) is returned
// at once and counts as an answer, not a failure.
func (s *Store) withRetry(backendName string, op func() error) error {
	var lastErr error
	attempts := s.policy.MaxRetries + 1
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			delay := s.policy.Delay(attempt)
			if delay > 0 {
				// Synchronous backoff: Graph Store I/O runs from batch CLI
				// invocations, not latency-sensitive request paths.
				<-time.After(delay)
			}
		}
		lastErr = op()
		if lastErr == nil || lastErr == ErrKeyNotFound || lastErr == ErrReadOnlyBackend {
			s.recordResult(backendName, nil)
			return lastErr
		}
	}
	s.recordResult(backendName, lastErr)
	return lastErr
}

// Exists reports whether any healthy backend has key.
func (s *Store) Exists(ctx context.Context, key Key) (bool, error) {
	for _, b := range s.backends {
		if !s.isHealthy(b.Name()) {
			continue
		}
		var exists bool
		err := s.withRetry(b.Name(), func() error {
			var e error
			exists, e = b.Exists(ctx, key)
			return e
		})
		if err != nil {
			continue
		}
		if exists {
			return true, nil
		}
	}
	return false, nil
}

// GetBytes returns the bytes for key from the first healthy backend that
// has it, falling through on miss or unhealthy backend.
func (s *Store) GetBytes(ctx context.Context, key Key) ([]byte, error) {
	var lastErr error = ErrKeyNotFound
	for _, b := range s.backends {
		if !s.isHealthy(b.Name()) {
			continue
		}
		var data []byte
		err := s.withRetry(b.Name(), func() error {
			var e error
			data, e = b.GetBytes(ctx, key)
			return e
		})
		if err == nil {
			return data, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

// FlushResult reports the outcome of writing a record across all backends.
type FlushResult struct {
	Dirty    bool
	Warnings []error
}

// PutBytes writes data to the primary backend, then fans out to the rest.
// Secondary failures are collected as warnings; the overall call only
// fails if the primary write fails.
func (s *Store) PutBytes(ctx context.Context, key Key, data []byte) (*FlushResult, error) {
	if len(s.backends) == 0 {
		return nil, ErrKeyNotFound
	}

	primary := s.backends[0]
	if err := s.withRetry(primary.Name(), func() error { return primary.PutBytes(ctx, key, data) }); err != nil {
		return &FlushResult{Dirty: true}, err
	}

	result := &FlushResult{Dirty: false}
	for _, b := range s.backends[1:] {
		if !s.isHealthy(b.Name()) {
			result.Dirty = true
			continue
		}
		err := s.withRetry(b.Name(), func() error { return b.PutBytes(ctx, key, data) })
		if err != nil {
			result.Dirty = true
			result.Warnings = append(result.Warnings, err)
			slog.Warn("secondary graph store write failed", logfields.Backend(b.Name()), logfields.Key(string(key)), logfields.Error(err))
		}
	}
	return result, nil
}

// Delete removes key from the primary, then fans out.
func (s *Store) Delete(ctx context.Context, key Key) error {
	if len(s.backends) == 0 {
		return nil
	}
	primary := s.backends[0]
	if err := s.withRetry(primary.Name(), func() error { return primary.Delete(ctx, key) }); err != nil {
		return err
	}
	for _, b := range s.backends[1:] {
		if !s.isHealthy(b.Name()) {
			continue
		}
		if err := s.withRetry(b.Name(), func() error { return b.Delete(ctx, key) }); err != nil {
			slog.Warn("secondary graph store delete failed", logfields.Backend(b.Name()), logfields.Key(string(key)), logfields.Error(err))
		}
	}
	return nil
}

// KeysPrefix lists keys with the given prefix from the primary backend.
func (s *Store) KeysPrefix(ctx context.Context, prefix string) ([]Key, error) {
	if len(s.backends) == 0 {
		return nil, nil
	}
	return s.backends[0].KeysPrefix(ctx, prefix)
}

// WithWriteScope acquires the per-key advisory lock for key, runs fn, and
// releases the lock on return, guaranteeing fn's writes are serialized
// against other in-process writers of the same key.
func (s *Store) WithWriteScope(ctx context.Context, key Key, fn func(ctx context.Context) error) error {
	token := s.lock.Lock(key)
	slog.Debug("write scope acquired", logfields.Key(string(key)), "lock_token", token)
	defer func() {
		s.lock.Unlock(key)
		slog.Debug("write scope released", logfields.Key(string(key)), "lock_token", token)
	}()
	return fn(ctx)
}

// SyncAcrossBackends walks every key on every backend and copies bytes to
// any backend where the key is missing, including copying bytes found only
// on a secondary back into the primary. A key present on two backends with
// different bytes is left as it is. This implements the
// sync-lazy-json-across-backends subcommand (spec.md §6 / SPEC_FULL.md
// "Graph Store" detail): bidirectional reconciliation of all keys.
func (s *Store) SyncAcrossBackends(ctx context.Context) (copied int, err error) {
	if len(s.backends) < 2 {
		return 0, nil
	}
	primary := s.backends[0]

	seen := make(map[Key]bool)
	for _, b := range s.backends {
		keys, err := b.KeysPrefix(ctx, "")
		if err != nil {
			slog.Warn("sync: list keys failed", logfields.Backend(b.Name()), logfields.Error(err))
			continue
		}
		for _, k := range keys {
			seen[k] = true
		}
	}

	for key := range seen {
		var data []byte
		var source Backend
		for _, b := range s.backends {
			exists, err := b.Exists(ctx, key)
			if err == nil && exists {
				data, err = b.GetBytes(ctx, key)
				if err == nil {
					source = b
					break
				}
			}
		}
		if source == nil {
			continue
		}
		for _, b := range s.backends {
			if b.Name() == source.Name() {
				continue
			}
			exists, _ := b.Exists(ctx, key)
			if exists {
				continue
			}
			if err := b.PutBytes(ctx, key, data); err != nil {
				if err == ErrReadOnlyBackend {
					continue
				}
				slog.Warn("sync: copy failed", logfields.Backend(b.Name()), logfields.Key(string(key)), logfields.Error(err))
				continue
			}
			copied++
		}
		_ = primary
	}
	return copied, nil
}
