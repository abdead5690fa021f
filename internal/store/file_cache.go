package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
)

// FileCache wraps any non-file primary Backend with an on-disk cache: a
// GetBytes miss in the cache, or a content-hash mismatch against the cached
// copy, triggers a refetch from the underlying backend and repopulates the
// cache. GRAPH_USE_FILE_CACHE toggles this wrapper off entirely (the caller
// simply omits it from the backend chain).
type FileCache struct {
	underlying Backend
	disk       *FileBackend

	mu     sync.RWMutex
	hashes map[Key]string
}

// NewFileCache wraps underlying with a disk-backed cache rooted at
// cacheRoot.
func NewFileCache(underlying Backend, cacheRoot string, shardDepth int) (*FileCache, error) {
	disk, err := NewFileBackend(cacheRoot, shardDepth)
	if err != nil {
		return nil, err
	}
	return &FileCache{underlying: underlying, disk: disk, hashes: make(map[Key]string)}, nil
}

func (c *FileCache) Name() string { return "filecache:" + c.underlying.Name() }

func contentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func (c *FileCache) Exists(ctx context.Context, key Key) (bool, error) {
	return c.underlying.Exists(ctx, key)
}

func (c *FileCache) GetBytes(ctx context.Context, key Key) ([]byte, error) {
	c.mu.RLock()
	wantHash, tracked := c.hashes[key]
	c.mu.RUnlock()

	if tracked {
		if cached, err := c.disk.GetBytes(ctx, key); err == nil && contentHash(cached) == wantHash {
			return cached, nil
		}
	}

	data, err := c.underlying.GetBytes(ctx, key)
	if err != nil {
		return nil, err
	}

	if err := c.disk.PutBytes(ctx, key, data); err == nil {
		c.mu.Lock()
		c.hashes[key] = contentHash(data)
		c.mu.Unlock()
	}
	return data, nil
}

func (c *FileCache) PutBytes(ctx context.Context, key Key, data []byte) error {
	if err := c.underlying.PutBytes(ctx, key, data); err != nil {
		return err
	}
	if err := c.disk.PutBytes(ctx, key, data); err == nil {
		c.mu.Lock()
		c.hashes[key] = contentHash(data)
		c.mu.Unlock()
	}
	return nil
}

func (c *FileCache) Delete(ctx context.Context, key Key) error {
	err := c.underlying.Delete(ctx, key)
	_ = c.disk.Delete(ctx, key)
	c.mu.Lock()
	delete(c.hashes, key)
	c.mu.Unlock()
	return err
}

func (c *FileCache) KeysPrefix(ctx context.Context, prefix string) ([]Key, error) {
	return c.underlying.KeysPrefix(ctx, prefix)
}
