// Package config loads feedbot's environment-variable configuration (spec.md
// §6) and the YAML-based migrator/pin configuration consumed by
// make-migrators.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/joho/godotenv"

	ferrors "github.com/pkgforge/feedbot/internal/foundation/errors"
	"github.com/pkgforge/feedbot/internal/retry"
)

// Config holds the process-wide settings read once at startup per spec.md §6.
type Config struct {
	GraphBackends   []string      // colon-separated in the env, e.g. file:mirror:database
	GraphUseCache   bool          // GRAPH_USE_FILE_CACHE
	DatabaseURL     string        // required iff "database" in GraphBackends
	ForgeToken      string        // FORGE_TOKEN; never logged
	TimeoutSeconds  int           // TIMEOUT
	MemoryFloorGB   float64       // MEMORY_FLOOR_GB
	DiskFloorGB     float64       // DISK_FLOOR_GB
	RateFloor       int           // RATE_FLOOR
	Org             string        // ORG, the forge organization gather-all-feedstocks lists
	RunURL          string        // RUN_URL, injected into PR bodies
	TmpDir          string        // TMPDIR, scratch root
	PRRetryWindow   int           // PR_RETRY_WINDOW, days, default 7
	FileRoot        string        // STORE_DIR, root directory for the "file" backend
	FileCacheRoot   string        // FILE_CACHE_ROOT
	MirrorURL       string        // NATS_URL, required iff "mirror" in GraphBackends
	MirrorBucket    string        // NATS_BUCKET, JetStream KV bucket name
	EventSubject    string        // EVENT_SUBJECT, NATS subject for reactor events; the daemon does not subscribe to it
	ShardDepth      int           // SHARD_DEPTH, default 5
	RetryBackoff    retry.BackoffMode
}

const (
	defaultTimeoutSeconds = 7200
	defaultMemoryFloorGB  = 7
	defaultDiskFloorGB    = 5
	defaultRateFloor      = 50
	defaultPRRetryWindow  = 7
	defaultShardDepth     = 5
)

var (
	envFileLoadOnce sync.Once
	botTokenWarning sync.Once
)

// loadDotEnv loads .env and .env.local into the process environment, without
// overwriting variables already set. Replaces docbuilder's hand-rolled
// loadEnvFile/loadSingleEnvFile with the library its go.mod already names.
func loadDotEnv() {
	envFileLoadOnce.Do(func() {
		_ = godotenv.Load(".env.local", ".env")
	})
}

// Load reads configuration from the environment (after loading any .env
// files), applying spec.md §6 defaults. It never returns both ForgeToken and
// a second name for the same credential: BOT_TOKEN is accepted as a
// deprecated alias, logged once, and discarded.
func Load() (*Config, error) {
	loadDotEnv()

	cfg := &Config{
		GraphBackends:  splitBackends(getenvDefault("GRAPH_BACKENDS", "file")),
		GraphUseCache:  getenvBoolDefault("GRAPH_USE_FILE_CACHE", true),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		TimeoutSeconds: getenvIntDefault("TIMEOUT", defaultTimeoutSeconds),
		MemoryFloorGB:  getenvFloatDefault("MEMORY_FLOOR_GB", defaultMemoryFloorGB),
		DiskFloorGB:    getenvFloatDefault("DISK_FLOOR_GB", defaultDiskFloorGB),
		RateFloor:      getenvIntDefault("RATE_FLOOR", defaultRateFloor),
		Org:            getenvDefault("ORG", "pkgforge"),
		RunURL:         os.Getenv("RUN_URL"),
		TmpDir:         getenvDefault("TMPDIR", os.TempDir()),
		PRRetryWindow:  getenvIntDefault("PR_RETRY_WINDOW", defaultPRRetryWindow),
		FileRoot:       getenvDefault("STORE_DIR", ""),
		FileCacheRoot:  getenvDefault("FILE_CACHE_ROOT", ""),
		MirrorURL:      os.Getenv("NATS_URL"),
		MirrorBucket:   getenvDefault("NATS_BUCKET", "feedbot-graph"),
		EventSubject:   getenvDefault("EVENT_SUBJECT", "feedbot.events"),
		ShardDepth:     getenvIntDefault("SHARD_DEPTH", defaultShardDepth),
		RetryBackoff:   retry.NormalizeBackoffMode(os.Getenv("RETRY_BACKOFF_MODE")),
	}

	cfg.ForgeToken = resolveForgeToken()

	if cfg.requiresDatabase() && cfg.DatabaseURL == "" {
		return nil, ferrors.ConfigError("DATABASE_URL is required when \"database\" is listed in GRAPH_BACKENDS").
			WithContext("graph_backends", cfg.GraphBackends).
			Build()
	}

	return cfg, nil
}

// resolveForgeToken implements the spec.md §9 open-question resolution:
// FORGE_TOKEN is the one interface name; BOT_TOKEN is a deprecated alias
// read once with a one-time warning, never re-exposed under its own name.
func resolveForgeToken() string {
	if tok := os.Getenv("FORGE_TOKEN"); tok != "" {
		return tok
	}
	if tok := os.Getenv("BOT_TOKEN"); tok != "" {
		botTokenWarning.Do(func() {
			slog.Warn("BOT_TOKEN is a deprecated alias for FORGE_TOKEN and will be removed")
		})
		return tok
	}
	return ""
}

func (c *Config) requiresDatabase() bool {
	for _, b := range c.GraphBackends {
		if b == "database" {
			return true
		}
	}
	return false
}

func splitBackends(raw string) []string {
	parts := strings.Split(raw, ":")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBoolDefault(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getenvIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getenvFloatDefault(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

// String renders a safe summary of the configuration for logging, omitting
// the forge token.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{backends=%v cache=%v timeout=%ds memFloor=%.1fGB diskFloor=%.1fGB rateFloor=%d shardDepth=%d prRetryWindow=%dd}",
		c.GraphBackends, c.GraphUseCache, c.TimeoutSeconds, c.MemoryFloorGB, c.DiskFloorGB, c.RateFloor, c.ShardDepth, c.PRRetryWindow,
	)
}
