package migrator

import (
	"context"
	"fmt"

	"github.com/pkgforge/feedbot/internal/record"
)

// Arch adds architecture entries to a feedstock's configuration (spec.md
// §4.5's "Arch migrator" — e.g. enabling a new platform/architecture
// combination in conda-forge's conda_build_config.yaml-equivalent).
type Arch struct {
	Base
	key string

	Architectures []string
}

// NewArch builds an Arch migrator registered under key, adding archs.
func NewArch(key string, archs []string) *Arch {
	return &Arch{key: key, Architectures: archs}
}

func (m *Arch) Key() string { return m.key }

func (m *Arch) Filter(pkg *record.Package) bool {
	return len(m.Architectures) == 0
}

func (m *Arch) Migrate(_ context.Context, recipeDir string, pkg *record.Package) (string, error) {
	fields, err := readRecipe(recipeDir)
	if err != nil {
		return "", err
	}

	build := nestedMap(fields, "build")
	existing, _ := build["noarch"].(string)
	if existing == "" {
		platforms, _ := fields["extra"].(map[string]any)
		if platforms == nil {
			platforms = map[string]any{}
			fields["extra"] = platforms
		}
		platforms["additional-platforms"] = mergeUnique(toStringSlice(platforms["additional-platforms"]), m.Architectures)
	}

	if err := writeRecipe(recipeDir, fields); err != nil {
		return "", err
	}
	return m.Fingerprint(pkg)
}

func toStringSlice(v any) []string {
	raw, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		if s, ok := r.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func mergeUnique(existing, additions []string) []string {
	seen := make(map[string]bool, len(existing))
	out := append([]string(nil), existing...)
	for _, e := range existing {
		seen[e] = true
	}
	for _, a := range additions {
		if !seen[a] {
			seen[a] = true
			out = append(out, a)
		}
	}
	return out
}

func (m *Arch) Fingerprint(pkg *record.Package) (string, error) {
	return Fingerprint(map[string]any{
		"migrator": m.key,
		"package":  pkg.Name,
		"archs":    m.Architectures,
	})
}

func (m *Arch) PRTitle(pkg *record.Package) string {
	return fmt.Sprintf("%s: add architecture support", pkg.Name)
}

func (m *Arch) PRBody(pkg *record.Package) string {
	return fmt.Sprintf("Adds additional-platforms %v to %s.", m.Architectures, pkg.Name)
}

func (m *Arch) RemoteBranch(pkg *record.Package) string {
	return fmt.Sprintf("%s-arch", m.key)
}

func (m *Arch) CommitMessage(pkg *record.Package) string {
	return fmt.Sprintf("%s: add architecture support", pkg.Name)
}
