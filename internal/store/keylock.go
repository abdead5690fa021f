package store

import (
	"sync"

	"github.com/google/uuid"
)

// keyLock is an in-process advisory lock keyed by Key, so that concurrent
// writers to the same logical record within one process serialize rather
// than racing each other's read-modify-write cycles. Readers never block on
// it (per spec.md §4.1 — only WithWriteScope acquires it).
type keyLock struct {
	mu    sync.Mutex
	locks sync.Map // Key -> *sync.Mutex
}

func (kl *keyLock) lockFor(key Key) *sync.Mutex {
	if v, ok := kl.locks.Load(key); ok {
		return v.(*sync.Mutex)
	}
	m := &sync.Mutex{}
	actual, _ := kl.locks.LoadOrStore(key, m)
	return actual.(*sync.Mutex)
}

// Lock acquires the per-key mutex and returns a fresh token identifying
// this holder, so a log line from acquisition through Unlock can be
// correlated even when two WithWriteScope calls for the same key queue up
// back to back.
func (kl *keyLock) Lock(key Key) string {
	kl.lockFor(key).Lock()
	return uuid.NewString()
}

func (kl *keyLock) Unlock(key Key) {
	kl.lockFor(key).Unlock()
}
