package migrator

import (
	"context"
	"fmt"

	"github.com/pkgforge/feedbot/internal/record"
)

// crossCompileScaffold is the canonical set of build-section keys a
// feedstock needs to participate in cross-compilation.
var crossCompileScaffold = map[string]any{
	"merge_build_host": true,
}

// crossCompileCompilers are the canonical compiler requirement entries
// injected into the build section.
var crossCompileCompilers = []string{"{{ compiler('c') }}", "{{ compiler('cxx') }}"}

// CrossCompile injects the canonical cross-compilation scaffolding into a
// recipe (spec.md §4.5's "Cross-compile migrator").
type CrossCompile struct {
	Base
	key string
}

// NewCrossCompile builds a CrossCompile migrator registered under key.
func NewCrossCompile(key string) *CrossCompile { return &CrossCompile{key: key} }

func (m *CrossCompile) Key() string { return m.key }

func (m *CrossCompile) Filter(pkg *record.Package) bool {
	return dependsOn(pkg.Requirements.Build, "{{ compiler('c') }}")
}

func (m *CrossCompile) Migrate(_ context.Context, recipeDir string, pkg *record.Package) (string, error) {
	fields, err := readRecipe(recipeDir)
	if err != nil {
		return "", err
	}

	build := nestedMap(fields, "build")
	for k, v := range crossCompileScaffold {
		build[k] = v
	}

	requirements := nestedMap(fields, "requirements")
	buildDeps := toStringSlice(requirements["build"])
	requirements["build"] = toAnySlice(mergeUnique(buildDeps, crossCompileCompilers))

	if err := writeRecipe(recipeDir, fields); err != nil {
		return "", err
	}
	return m.Fingerprint(pkg)
}

func toAnySlice(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

func (m *CrossCompile) Fingerprint(pkg *record.Package) (string, error) {
	return Fingerprint(map[string]any{
		"migrator": m.key,
		"package":  pkg.Name,
	})
}

func (m *CrossCompile) PRTitle(pkg *record.Package) string {
	return fmt.Sprintf("%s: add cross-compilation scaffolding", pkg.Name)
}

func (m *CrossCompile) PRBody(pkg *record.Package) string {
	return fmt.Sprintf("Injects the canonical cross-compilation build scaffolding into %s.", pkg.Name)
}

func (m *CrossCompile) RemoteBranch(pkg *record.Package) string {
	return fmt.Sprintf("%s-cross-compile", m.key)
}

func (m *CrossCompile) CommitMessage(pkg *record.Package) string {
	return fmt.Sprintf("%s: cross-compilation scaffolding", pkg.Name)
}
