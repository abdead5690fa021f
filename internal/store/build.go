package store

import (
	"os"
	"path/filepath"

	ferrors "github.com/pkgforge/feedbot/internal/foundation/errors"
)

// BuildOptions collects the subset of internal/config.Config that
// determines how a Store is assembled, avoiding an import of the config
// package here (store stays a low-level leaf package).
type BuildOptions struct {
	Backends      []string // GRAPH_BACKENDS order; first is primary
	FileRoot      string   // root directory for the "file" backend
	ShardDepth    int      // SHARD_DEPTH
	DatabaseURL   string   // required iff "database" in Backends
	MirrorURL     string   // NATS URL, required iff "mirror" in Backends
	MirrorBucket  string   // JetStream KV bucket name
	UseFileCache  bool     // GRAPH_USE_FILE_CACHE
	FileCacheRoot string   // FILE_CACHE_ROOT, used when UseFileCache wraps a non-file backend
}

// Build assembles a Store from opts, in the order given by opts.Backends.
func Build(opts BuildOptions) (*Store, error) {
	if len(opts.Backends) == 0 {
		opts.Backends = []string{"file"}
	}

	var backends []Backend
	for _, name := range opts.Backends {
		switch name {
		case "file":
			root := opts.FileRoot
			if root == "" {
				root = filepath.Join(os.TempDir(), "feedbot-store")
			}
			fb, err := NewFileBackend(root, opts.ShardDepth)
			if err != nil {
				return nil, err
			}
			backends = append(backends, fb)

		case "mirror":
			if opts.MirrorURL == "" {
				return nil, ferrors.ConfigError("mirror backend configured without a NATS URL").Build()
			}
			kv := NewKVBackend(opts.MirrorURL, opts.MirrorBucket)
			backends = append(backends, NewMirrorBackend(kv))

		case "database":
			if opts.DatabaseURL == "" {
				return nil, ferrors.ConfigError("database backend configured without DATABASE_URL").Build()
			}
			db, err := NewDatabaseBackend(opts.DatabaseURL)
			if err != nil {
				return nil, err
			}
			backends = append(backends, db)

		default:
			return nil, ferrors.ConfigError("unknown graph store backend").WithContext("backend", name).Build()
		}
	}

	if opts.UseFileCache && len(backends) > 0 {
		if _, isFile := backends[0].(*FileBackend); !isFile {
			cacheRoot := opts.FileCacheRoot
			if cacheRoot == "" {
				cacheRoot = filepath.Join(os.TempDir(), "feedbot-store-cache")
			}
			cached, err := NewFileCache(backends[0], cacheRoot, opts.ShardDepth)
			if err != nil {
				return nil, err
			}
			backends[0] = cached
		}
	}

	return New(backends), nil
}
