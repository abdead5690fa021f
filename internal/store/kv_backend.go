package store

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	ferrors "github.com/pkgforge/feedbot/internal/foundation/errors"
)

// KVBackend is a JetStream KV-backed Backend, grounded on docbuilder's
// internal/linkverify.NATSClient connect-with-retry/reconnect-on-first-use
// pattern. It backs the Graph Store's "mirror" entry in GRAPH_BACKENDS.
type KVBackend struct {
	url    string
	bucket string

	mu           sync.RWMutex
	conn         *nats.Conn
	js           jetstream.JetStream
	kv           jetstream.KeyValue
	reconnecting bool
}

// NewKVBackend creates a KVBackend for the given NATS URL and KV bucket
// name. Connection failures at construction time are non-fatal; the
// backend reconnects on first use.
func NewKVBackend(url, bucket string) *KVBackend {
	b := &KVBackend{url: url, bucket: bucket}
	if err := b.connect(context.Background()); err != nil {
		// will retry on first use
		_ = err
	}
	return b
}

func (b *KVBackend) Name() string { return "mirror" }

func (b *KVBackend) connect(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.conn != nil {
		b.conn.Close()
		b.conn, b.js, b.kv = nil, nil, nil
	}

	conn, err := nats.Connect(b.url,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.ReconnectJitter(500*time.Millisecond, 2*time.Second),
	)
	if err != nil {
		return ferrors.StoreError("connect to NATS").WithCause(err).WithContext("url", b.url).Build()
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return ferrors.StoreError("create jetstream context").WithCause(err).Build()
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	kv, err := js.KeyValue(timeoutCtx, b.bucket)
	if err != nil {
		kv, err = js.CreateKeyValue(timeoutCtx, jetstream.KeyValueConfig{
			Bucket:      b.bucket,
			Description: "feedbot Graph Store mirror",
			History:     1,
		})
		if err != nil {
			conn.Close()
			return ferrors.StoreError("initialize KV bucket").WithCause(err).WithContext("bucket", b.bucket).Build()
		}
	}

	b.conn, b.js, b.kv = conn, js, kv
	return nil
}

func (b *KVBackend) ensureConnected(ctx context.Context) error {
	b.mu.RLock()
	connected := b.conn != nil && b.conn.IsConnected()
	b.mu.RUnlock()
	if connected {
		return nil
	}
	return b.connect(ctx)
}

// kvKey maps a Graph Store Key to a NATS KV-legal key ([a-zA-Z0-9_-]+) via
// an MD5 digest, the same sanitization approach docbuilder's NATSClient
// uses for cache keys derived from arbitrary URLs.
func kvKey(key Key) string {
	sum := md5.Sum([]byte(key))
	return hex.EncodeToString(sum[:])
}

func (b *KVBackend) Exists(ctx context.Context, key Key) (bool, error) {
	if err := b.ensureConnected(ctx); err != nil {
		return false, err
	}
	b.mu.RLock()
	kv := b.kv
	b.mu.RUnlock()

	_, err := kv.Get(ctx, kvKey(key))
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return false, nil
		}
		return false, ferrors.StoreError("check key existence").WithCause(err).WithContext("key", string(key)).Build()
	}
	return true, nil
}

func (b *KVBackend) GetBytes(ctx context.Context, key Key) ([]byte, error) {
	if err := b.ensureConnected(ctx); err != nil {
		return nil, err
	}
	b.mu.RLock()
	kv := b.kv
	b.mu.RUnlock()

	entry, err := kv.Get(ctx, kvKey(key))
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, ErrKeyNotFound
		}
		return nil, ferrors.StoreError("get record").WithCause(err).WithContext("key", string(key)).Build()
	}
	return entry.Value(), nil
}

func (b *KVBackend) PutBytes(ctx context.Context, key Key, data []byte) error {
	if err := b.ensureConnected(ctx); err != nil {
		return err
	}
	b.mu.RLock()
	kv := b.kv
	b.mu.RUnlock()

	if _, err := kv.Put(ctx, kvKey(key), data); err != nil {
		return ferrors.StoreError("put record").WithCause(err).WithContext("key", string(key)).Build()
	}
	return nil
}

func (b *KVBackend) Delete(ctx context.Context, key Key) error {
	if err := b.ensureConnected(ctx); err != nil {
		return err
	}
	b.mu.RLock()
	kv := b.kv
	b.mu.RUnlock()

	if err := kv.Delete(ctx, kvKey(key)); err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		return ferrors.StoreError("delete record").WithCause(err).WithContext("key", string(key)).Build()
	}
	return nil
}

// KeysPrefix lists all keys in the bucket. Since KV keys are content
// hashes of the logical key, prefix filtering on the logical key cannot be
// done server-side; KVBackend lists all entries (the KV bucket additionally
// stores the original key string in each record's own JSON body, where
// higher layers can filter by it after fetch).
func (b *KVBackend) KeysPrefix(ctx context.Context, prefix string) ([]Key, error) {
	if err := b.ensureConnected(ctx); err != nil {
		return nil, err
	}
	b.mu.RLock()
	kv := b.kv
	b.mu.RUnlock()

	lister, err := kv.ListKeys(ctx)
	if err != nil {
		return nil, ferrors.StoreError("list keys").WithCause(err).Build()
	}
	var keys []Key
	for k := range lister.Keys() {
		keys = append(keys, Key(strings.TrimPrefix(k, "")))
	}
	return keys, nil
}

// Close releases the underlying NATS connection.
func (b *KVBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.conn != nil {
		b.conn.Close()
		b.conn = nil
	}
	return nil
}
