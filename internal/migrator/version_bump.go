package migrator

import (
	"context"
	"fmt"

	ferrors "github.com/pkgforge/feedbot/internal/foundation/errors"
	"github.com/pkgforge/feedbot/internal/record"
)

// VersionBump rewrites the source version and integrity hash in the
// recipe and resets the build number to 0; the source URL is left as it
// is (spec.md §4.5's "Version migrator"). NewVersion and NewHash are
// populated per-package from the upstream probe result before Migrate
// runs (the scheduler sets them via WithTarget).
type VersionBump struct {
	Base
	key string

	NewVersion string
	NewHash    string
	HashKind   string
}

// NewVersionBump builds a VersionBump migrator registered under key.
func NewVersionBump(key string) *VersionBump {
	return &VersionBump{key: key}
}

func (m *VersionBump) Key() string { return m.key }

// WithTarget returns a copy of m scoped to probing/migrating one
// package's new version — migrators are stateless templates; the
// scheduler clones one per (package, probe-result) attempt.
func (m *VersionBump) WithTarget(newVersion, newHash, hashKind string) *VersionBump {
	clone := *m
	clone.NewVersion = newVersion
	clone.NewHash = newHash
	clone.HashKind = hashKind
	return &clone
}

func (m *VersionBump) Filter(pkg *record.Package) bool {
	return m.NewVersion == "" || pkg.Archived
}

func (m *VersionBump) Migrate(_ context.Context, recipeDir string, pkg *record.Package) (string, error) {
	if m.NewVersion == "" {
		return "", errNoTarget
	}
	fields, err := readRecipe(recipeDir)
	if err != nil {
		return "", err
	}

	source := nestedMap(fields, "source")
	source["version"] = m.NewVersion
	if m.NewHash != "" {
		hashKind := m.HashKind
		if hashKind == "" {
			hashKind = "sha256"
		}
		source[hashKind] = m.NewHash
	}

	build := nestedMap(fields, "build")
	build["number"] = 0 // a version bump always resets the build number

	if err := writeRecipe(recipeDir, fields); err != nil {
		return "", err
	}
	return m.Fingerprint(pkg)
}

func (m *VersionBump) Fingerprint(pkg *record.Package) (string, error) {
	return Fingerprint(map[string]any{
		"migrator": m.key,
		"package":  pkg.Name,
		"version":  m.NewVersion,
	})
}

func (m *VersionBump) PRTitle(pkg *record.Package) string {
	return fmt.Sprintf("%s: update to %s", pkg.Name, m.NewVersion)
}

func (m *VersionBump) PRBody(pkg *record.Package) string {
	return fmt.Sprintf("Bumps %s from %s to %s.\n\nThis PR was opened automatically.",
		pkg.Name, pkg.CurrentVersion, m.NewVersion)
}

func (m *VersionBump) RemoteBranch(pkg *record.Package) string {
	return fmt.Sprintf("%s-%s", m.key, m.NewVersion)
}

func (m *VersionBump) CommitMessage(pkg *record.Package) string {
	return fmt.Sprintf("%s: %s -> %s", pkg.Name, pkg.CurrentVersion, m.NewVersion)
}

var errNoTarget = ferrors.MigratorError("version bump migrator has no target version set").Build()
