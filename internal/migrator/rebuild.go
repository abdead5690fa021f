package migrator

import (
	"context"
	"fmt"

	"github.com/pkgforge/feedbot/internal/graph"
	"github.com/pkgforge/feedbot/internal/record"
)

// Rebuild emits a no-op recipe change (a build-number bump) sufficient to
// trigger a rebuild for every package that transitively depends on a named
// anchor package (spec.md §4.5's "Rebuild migrator").
type Rebuild struct {
	Base
	key    string
	Anchor string

	descendants map[string]bool
}

// NewRebuild builds a Rebuild migrator anchored at anchor; the set of
// packages that transitively depend on anchor is computed once against full
// at registration time.
func NewRebuild(key, anchor string, full *graph.Graph) *Rebuild {
	set := make(map[string]bool)
	for _, d := range full.Ancestors(anchor) {
		set[d] = true
	}
	return &Rebuild{key: key, Anchor: anchor, descendants: set}
}

func (m *Rebuild) Key() string { return m.key }

func (m *Rebuild) Filter(pkg *record.Package) bool {
	return !m.descendants[pkg.Name]
}

func (m *Rebuild) Migrate(_ context.Context, recipeDir string, pkg *record.Package) (string, error) {
	fields, err := readRecipe(recipeDir)
	if err != nil {
		return "", err
	}
	build := nestedMap(fields, "build")
	build["number"] = incrementBuildNumber(build["number"])
	if err := writeRecipe(recipeDir, fields); err != nil {
		return "", err
	}
	return m.Fingerprint(pkg)
}

func incrementBuildNumber(current any) int {
	n, _ := current.(int)
	return n + 1
}

func (m *Rebuild) Fingerprint(pkg *record.Package) (string, error) {
	return Fingerprint(map[string]any{
		"migrator": m.key,
		"package":  pkg.Name,
		"anchor":   m.Anchor,
	})
}

func (m *Rebuild) PRTitle(pkg *record.Package) string {
	return fmt.Sprintf("%s: rebuild for %s", pkg.Name, m.Anchor)
}

func (m *Rebuild) PRBody(pkg *record.Package) string {
	return fmt.Sprintf("Triggers a rebuild of %s because its dependency %s changed.", pkg.Name, m.Anchor)
}

func (m *Rebuild) RemoteBranch(pkg *record.Package) string {
	return fmt.Sprintf("%s-rebuild-%s", m.key, m.Anchor)
}

func (m *Rebuild) CommitMessage(pkg *record.Package) string {
	return fmt.Sprintf("%s: rebuild for %s", pkg.Name, m.Anchor)
}
