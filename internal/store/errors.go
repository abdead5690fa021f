package store

import ferrors "github.com/pkgforge/feedbot/internal/foundation/errors"

// ErrReadOnlyBackend is returned by a MirrorBackend's PutBytes/Delete: the
// mirror is a read replica (typically a JetStream KV bucket mirror) and
// never accepts direct writes.
var ErrReadOnlyBackend = ferrors.StoreError("backend is read-only").
	WithRetry(ferrors.RetryNever).
	WithSeverity(ferrors.SeverityFatal).
	Build()

// ErrKeyNotFound is returned by GetBytes when a key has no record on any
// configured backend.
var ErrKeyNotFound = ferrors.StoreError("key not found").
	WithRetry(ferrors.RetryNever).
	Build()

// newCorruptRecordErr builds the error returned when a record's bytes fail to unmarshal into
// the target type. Per spec.md §7 this is fatal for that key only; callers
// surface it in the status report and continue with other keys.
func newCorruptRecordErr(key Key, cause error) error {
	return ferrors.CorruptRecordError("corrupt store record").
		WithCause(cause).
		WithContext("key", string(key)).
		Build()
}
