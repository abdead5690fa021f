package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"sync"

	ferrors "github.com/pkgforge/feedbot/internal/foundation/errors"
)

const defaultShardDepth = 5

// FileBackend is the on-disk Graph Store backend: sharded path
// objects/<hex[0]>/<hex[1]>/.../<key>.json, adapted from docbuilder's
// FSStore content-addressable layout to key-addressed sharding (the shard
// path is derived from a hash of the logical key, not of the content, since
// records here are mutable).
type FileBackend struct {
	root       string
	shardDepth int
	mu         sync.RWMutex
}

// NewFileBackend creates a FileBackend rooted at root, creating the objects
// directory if needed. shardDepth <= 0 uses defaultShardDepth.
func NewFileBackend(root string, shardDepth int) (*FileBackend, error) {
	if shardDepth <= 0 {
		shardDepth = defaultShardDepth
	}
	objectsDir := filepath.Join(root, "objects")
	if err := os.MkdirAll(objectsDir, 0o750); err != nil {
		return nil, ferrors.StoreError("create objects directory").WithCause(err).WithContext("path", objectsDir).Build()
	}
	return &FileBackend{root: root, shardDepth: shardDepth}, nil
}

func (fb *FileBackend) Name() string { return "file" }

// shardedPath derives the sharded filesystem path for a key: the first
// shardDepth hex characters of sha256(key), one directory per character,
// then the sanitized key itself as the file name.
func (fb *FileBackend) shardedPath(key Key) string {
	sum := sha256.Sum256([]byte(key))
	hexSum := hex.EncodeToString(sum[:])

	depth := fb.shardDepth
	if depth > len(hexSum) {
		depth = len(hexSum)
	}

	parts := make([]string, 0, depth+2)
	parts = append(parts, fb.root, "objects")
	for i := 0; i < depth; i++ {
		parts = append(parts, string(hexSum[i]))
	}
	parts = append(parts, sanitizeKey(key)+".json")
	return filepath.Join(parts...)
}

func (fb *FileBackend) lockPath(key Key) string {
	return fb.shardedPath(key) + ".lock"
}

func sanitizeKey(key Key) string {
	return strings.NewReplacer("%", "%25", "/", "%2F", ":", "%3A", "\\", "%5C").Replace(string(key))
}

func (fb *FileBackend) Exists(ctx context.Context, key Key) (bool, error) {
	fb.mu.RLock()
	defer fb.mu.RUnlock()

	_, err := os.Stat(fb.shardedPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, ferrors.StoreError("stat record").WithCause(err).WithContext("key", string(key)).Build()
	}
	return true, nil
}

func (fb *FileBackend) GetBytes(ctx context.Context, key Key) ([]byte, error) {
	fb.mu.RLock()
	defer fb.mu.RUnlock()

	data, err := os.ReadFile(fb.shardedPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrKeyNotFound
		}
		return nil, ferrors.StoreError("read record").WithCause(err).WithContext("key", string(key)).Build()
	}
	return data, nil
}

func (fb *FileBackend) PutBytes(ctx context.Context, key Key, data []byte) error {
	fb.mu.Lock()
	defer fb.mu.Unlock()

	path := fb.shardedPath(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return ferrors.StoreError("create shard directory").WithCause(err).WithContext("key", string(key)).Build()
	}

	// Stable formatting with trailing newline is the caller's
	// responsibility (json.MarshalIndent); FileBackend writes verbatim.
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return ferrors.StoreError("write record").WithCause(err).WithContext("key", string(key)).Build()
	}
	return nil
}

func (fb *FileBackend) Delete(ctx context.Context, key Key) error {
	fb.mu.Lock()
	defer fb.mu.Unlock()

	path := fb.shardedPath(key)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return ferrors.StoreError("delete record").WithCause(err).WithContext("key", string(key)).Build()
	}
	_ = os.Remove(fb.lockPath(key)) // best effort cleanup of stale lock sidecar
	return nil
}

func (fb *FileBackend) KeysPrefix(ctx context.Context, prefix string) ([]Key, error) {
	fb.mu.RLock()
	defer fb.mu.RUnlock()

	objectsDir := filepath.Join(fb.root, "objects")
	var keys []Key
	err := filepath.Walk(objectsDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || strings.HasSuffix(path, ".lock") {
			return nil
		}
		name := filepath.Base(path)
		name = strings.TrimSuffix(name, ".json")
		key := desanitizeKey(name)
		if prefix == "" || strings.HasPrefix(string(key), prefix) {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return nil, ferrors.StoreError("list records").WithCause(err).Build()
	}
	return keys, nil
}

// desanitizeKey is the exact inverse of sanitizeKey's percent-escaping, so
// KeysPrefix returns the logical keys that were passed to PutBytes.
func desanitizeKey(sanitized string) Key {
	return Key(strings.NewReplacer("%2F", "/", "%3A", ":", "%5C", "\\", "%25", "%").Replace(sanitized))
}
