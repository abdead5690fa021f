// Package logfields provides canonical log field names and helpers for structured logging in feedbot.
package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
// These are used for structured logging with slog.
const (
	KeyPackage     = "package"
	KeyMigrator    = "migrator"
	KeyMigratorKey = "migrator_key"
	KeyState       = "state"
	KeyStage       = "stage"
	KeyDurationMS  = "duration_ms"
	KeyCycleID     = "cycle_id"
	KeyFingerprint = "fingerprint"
	KeyPRNumber    = "pr_number"
	KeyPRURL       = "pr_url"
	KeyShard       = "shard"
	KeyBackend     = "backend"
	KeyKey         = "key"
	KeyNodeCount   = "node_count"
	KeyCycleCount  = "cycle_count"
	KeyRateRemain  = "rate_remaining"
	KeyError       = "error"
	KeyPath        = "path"
	KeyFile        = "file"
	KeyWorker      = "worker"
	KeyMethod      = "method"
	KeyUserAgent   = "user_agent"
	KeyRemoteAddr  = "remote_addr"
	KeyRequestID   = "request_id"
	KeyStatus      = "status"
	KeyResponseSz  = "response_size"
	KeyForgeType   = "forge_type"
	KeyContentLen  = "content_length"
	KeyName        = "name"
	KeyURL         = "url"
)

// Package returns a slog.Attr for the feedstock/package name.
func Package(name string) slog.Attr { return slog.String(KeyPackage, name) }

// Migrator returns a slog.Attr for a migrator's display name.
func Migrator(name string) slog.Attr { return slog.String(KeyMigrator, name) }

// MigratorKey returns a slog.Attr for a migrator's stable key.
func MigratorKey(key string) slog.Attr { return slog.String(KeyMigratorKey, key) }

// State returns a slog.Attr for a migration state-machine state.
func State(s string) slog.Attr { return slog.String(KeyState, s) }

// Stage returns a slog.Attr for stage name.
func Stage(name string) slog.Attr { return slog.String(KeyStage, name) }

// DurationMS returns a slog.Attr for duration in ms.
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }

// CycleID returns a slog.Attr for a scheduler cycle ID.
func CycleID(id string) slog.Attr { return slog.String(KeyCycleID, id) }

// Fingerprint returns a slog.Attr for a migration fingerprint.
func Fingerprint(fp string) slog.Attr { return slog.String(KeyFingerprint, fp) }

// PRNumber returns a slog.Attr for a pull request number.
func PRNumber(n int) slog.Attr { return slog.Int(KeyPRNumber, n) }

// PRURL returns a slog.Attr for a pull request URL.
func PRURL(u string) slog.Attr { return slog.String(KeyPRURL, u) }

// Shard returns a slog.Attr for a PR tracker shard index.
func Shard(i int) slog.Attr { return slog.Int(KeyShard, i) }

// Backend returns a slog.Attr for a Graph Store backend name.
func Backend(name string) slog.Attr { return slog.String(KeyBackend, name) }

// Key returns a slog.Attr for a Graph Store key.
func Key(k string) slog.Attr { return slog.String(KeyKey, k) }

// NodeCount returns a slog.Attr for a graph node count.
func NodeCount(n int) slog.Attr { return slog.Int(KeyNodeCount, n) }

// CycleCount returns a slog.Attr for a count of SCC cycles found.
func CycleCount(n int) slog.Attr { return slog.Int(KeyCycleCount, n) }

// RateRemaining returns a slog.Attr for remaining forge rate-limit budget.
func RateRemaining(n int) slog.Attr { return slog.Int(KeyRateRemain, n) }

// Path returns a slog.Attr for a file path.
func Path(p string) slog.Attr { return slog.String(KeyPath, p) }

// File returns a slog.Attr for a file name.
func File(f string) slog.Attr { return slog.String(KeyFile, f) }

// Worker returns a slog.Attr for a worker ID.
func Worker(id string) slog.Attr { return slog.String(KeyWorker, id) }

// Method returns a slog.Attr for an HTTP method.
func Method(m string) slog.Attr { return slog.String(KeyMethod, m) }

// UserAgent returns a slog.Attr for a user agent string.
func UserAgent(ua string) slog.Attr { return slog.String(KeyUserAgent, ua) }

// RemoteAddr returns a slog.Attr for a remote address.
func RemoteAddr(a string) slog.Attr { return slog.String(KeyRemoteAddr, a) }

// RequestID returns a slog.Attr for a request ID.
func RequestID(id string) slog.Attr { return slog.String(KeyRequestID, id) }

// Status returns a slog.Attr for an HTTP status code.
func Status(code int) slog.Attr { return slog.Int(KeyStatus, code) }

// ResponseSize returns a slog.Attr for a response size in bytes.
func ResponseSize(sz int) slog.Attr { return slog.Int(KeyResponseSz, sz) }

// ForgeType returns a slog.Attr for a forge type.
func ForgeType(t string) slog.Attr { return slog.String(KeyForgeType, t) }

// ContentLength returns a slog.Attr for content length in bytes.
func ContentLength(cl int64) slog.Attr { return slog.Int64(KeyContentLen, cl) }

// Name returns a slog.Attr for a generic name field.
func Name(n string) slog.Attr { return slog.String(KeyName, n) }

// URL returns a slog.Attr for a URL field.
func URL(u string) slog.Attr { return slog.String(KeyURL, u) }

// Error returns a slog.Attr for an error, or an empty string if nil.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
