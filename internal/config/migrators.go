package config

import (
	"os"

	"gopkg.in/yaml.v3"

	ferrors "github.com/pkgforge/feedbot/internal/foundation/errors"
)

// MigratorSpec is one entry in the migrator registration file consumed by
// make-migrators: which concrete migrator to instantiate and its
// YAML-tagged parameters (pin replacements, target versions, cross-compile
// triples, etc). The migrator package interprets Params according to its
// own Kind.
type MigratorSpec struct {
	Key    string         `yaml:"key"`
	Kind   string         `yaml:"kind"`
	Params map[string]any `yaml:"params"`
}

// MigratorsFile is the top-level document shape for the migrator
// registration YAML file.
type MigratorsFile struct {
	Migrators []MigratorSpec `yaml:"migrators"`
}

// LoadMigratorsFile parses a migrator registration YAML document from disk,
// mirroring docbuilder's YAML-tagged-struct config loading pattern.
func LoadMigratorsFile(path string) (*MigratorsFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, ferrors.ConfigError("read migrators file").WithCause(err).WithContext("path", path).Build()
	}

	var doc MigratorsFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, ferrors.ConfigError("parse migrators file").WithCause(err).WithContext("path", path).Build()
	}

	for i, m := range doc.Migrators {
		if m.Key == "" {
			return nil, ferrors.ValidationError("migrator entry missing key").WithContext("index", i).Build()
		}
		if m.Kind == "" {
			return nil, ferrors.ValidationError("migrator entry missing kind").WithContext("key", m.Key).Build()
		}
	}

	return &doc, nil
}
