package migrator

import (
	"fmt"

	ferrors "github.com/pkgforge/feedbot/internal/foundation/errors"
	"github.com/pkgforge/feedbot/internal/graph"
)

// Spec mirrors internal/config.MigratorSpec's shape without importing
// config (migrator stays independent of the config package's YAML
// concerns); the CLI layer translates one into the other.
type Spec struct {
	Key    string
	Kind   string
	Params map[string]any
}

// Build constructs the configured Migrator instances from specs, in
// registration order (the order spec.md §4.6 iterates migrators in).
// full is the whole dependency graph, needed by kinds (like "rebuild")
// that precompute a descendant set at construction time.
func Build(specs []Spec, full *graph.Graph) ([]Migrator, error) {
	out := make([]Migrator, 0, len(specs))
	for _, spec := range specs {
		m, err := build(spec, full)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

func build(spec Spec, full *graph.Graph) (Migrator, error) {
	switch spec.Kind {
	case "version_bump":
		return NewVersionBump(spec.Key), nil

	case "pin_replace":
		from, _ := spec.Params["from"].(string)
		to, _ := spec.Params["to"].(string)
		pin, _ := spec.Params["pin"].(string)
		if from == "" {
			return nil, invalidSpecErr(spec, "pin_replace requires a non-empty 'from' parameter")
		}
		return NewPinReplace(spec.Key, from, to, pin), nil

	case "rebuild":
		anchor, _ := spec.Params["anchor"].(string)
		if anchor == "" {
			return nil, invalidSpecErr(spec, "rebuild requires a non-empty 'anchor' parameter")
		}
		return NewRebuild(spec.Key, anchor, full), nil

	case "arch":
		archs := stringListParam(spec.Params["architectures"])
		return NewArch(spec.Key, archs), nil

	case "cross_compile":
		return NewCrossCompile(spec.Key), nil

	default:
		return nil, invalidSpecErr(spec, fmt.Sprintf("unknown migrator kind %q", spec.Kind))
	}
}

func stringListParam(v any) []string {
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

func invalidSpecErr(spec Spec, reason string) error {
	return ferrors.ConfigError("invalid migrator specification").
		WithContext("migrator_key", spec.Key).
		WithContext("migrator_kind", spec.Kind).
		WithContext("reason", reason).
		Build()
}
