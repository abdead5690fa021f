package migrator

import (
	"context"
	"fmt"

	"github.com/pkgforge/feedbot/internal/record"
)

// PinReplace edits a pinning section or removes/renames a dependency
// across the build, host and run requirement sections of the recipe
// (the test section is not edited) (spec.md §4.5's
// "Pin/replacement migrator").
type PinReplace struct {
	Base
	key string

	FromDependency string
	ToDependency   string // empty means "remove FromDependency"
	PinExpression  string // e.g. ">=1.2,<2"
}

// NewPinReplace builds a PinReplace migrator registered under key.
func NewPinReplace(key, from, to, pin string) *PinReplace {
	return &PinReplace{key: key, FromDependency: from, ToDependency: to, PinExpression: pin}
}

func (m *PinReplace) Key() string { return m.key }

func (m *PinReplace) Filter(pkg *record.Package) bool {
	return !dependsOn(pkg.Requirements.Build, m.FromDependency) &&
		!dependsOn(pkg.Requirements.Host, m.FromDependency) &&
		!dependsOn(pkg.Requirements.Run, m.FromDependency)
}

func dependsOn(deps []string, name string) bool {
	for _, d := range deps {
		if d == name {
			return true
		}
	}
	return false
}

func (m *PinReplace) Migrate(_ context.Context, recipeDir string, pkg *record.Package) (string, error) {
	fields, err := readRecipe(recipeDir)
	if err != nil {
		return "", err
	}

	requirements := nestedMap(fields, "requirements")
	for _, section := range []string{"build", "host", "run"} {
		raw, ok := requirements[section].([]any)
		if !ok {
			continue
		}
		requirements[section] = replaceDependency(raw, m.FromDependency, m.ToDependency, m.PinExpression)
	}

	if err := writeRecipe(recipeDir, fields); err != nil {
		return "", err
	}
	return m.Fingerprint(pkg)
}

func replaceDependency(deps []any, from, to, pin string) []any {
	out := make([]any, 0, len(deps))
	for _, raw := range deps {
		name, _ := raw.(string)
		if name != from {
			out = append(out, raw)
			continue
		}
		if to == "" {
			continue // removed
		}
		if pin != "" {
			out = append(out, fmt.Sprintf("%s %s", to, pin))
		} else {
			out = append(out, to)
		}
	}
	return out
}

func (m *PinReplace) Fingerprint(pkg *record.Package) (string, error) {
	return Fingerprint(map[string]any{
		"migrator": m.key,
		"package":  pkg.Name,
		"from":     m.FromDependency,
		"to":       m.ToDependency,
		"pin":      m.PinExpression,
	})
}

func (m *PinReplace) PRTitle(pkg *record.Package) string {
	return fmt.Sprintf("%s: replace pinned dependency %s", pkg.Name, m.FromDependency)
}

func (m *PinReplace) PRBody(pkg *record.Package) string {
	if m.ToDependency == "" {
		return fmt.Sprintf("Removes dependency %s from %s.", m.FromDependency, pkg.Name)
	}
	return fmt.Sprintf("Replaces dependency %s with %s in %s.", m.FromDependency, m.ToDependency, pkg.Name)
}

func (m *PinReplace) RemoteBranch(pkg *record.Package) string {
	return fmt.Sprintf("%s-%s", m.key, m.FromDependency)
}

func (m *PinReplace) CommitMessage(pkg *record.Package) string {
	return fmt.Sprintf("%s: pin/replace %s", pkg.Name, m.FromDependency)
}
