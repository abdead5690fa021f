package store

import "context"

// MirrorBackend wraps a read-only mirror of the Graph Store, typically a
// JetStream KV bucket mirror. It answers reads from an underlying Backend
// but refuses all writes with ErrReadOnlyBackend, per spec.md §4.1's
// distinction between the authoritative primary and its replicas.
type MirrorBackend struct {
	underlying Backend
}

// NewMirrorBackend wraps underlying as a read-only mirror.
func NewMirrorBackend(underlying Backend) *MirrorBackend {
	return &MirrorBackend{underlying: underlying}
}

func (m *MirrorBackend) Name() string { return "mirror:" + m.underlying.Name() }

func (m *MirrorBackend) Exists(ctx context.Context, key Key) (bool, error) {
	return m.underlying.Exists(ctx, key)
}

func (m *MirrorBackend) GetBytes(ctx context.Context, key Key) ([]byte, error) {
	return m.underlying.GetBytes(ctx, key)
}

func (m *MirrorBackend) PutBytes(ctx context.Context, key Key, data []byte) error {
	return ErrReadOnlyBackend
}

func (m *MirrorBackend) Delete(ctx context.Context, key Key) error {
	return ErrReadOnlyBackend
}

func (m *MirrorBackend) KeysPrefix(ctx context.Context, prefix string) ([]Key, error) {
	return m.underlying.KeysPrefix(ctx, prefix)
}
