package migrator

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	ferrors "github.com/pkgforge/feedbot/internal/foundation/errors"
)

const recipeFileName = "meta.yaml"

// readRecipe loads recipeDir/meta.yaml into a generic field map, grounded
// on docbuilder's frontmatterops.Read split-then-parse shape (there: YAML
// frontmatter + body; here: the whole file is YAML, so no split is
// needed).
func readRecipe(recipeDir string) (map[string]any, error) {
	path := filepath.Join(recipeDir, recipeFileName)
	raw, err := os.ReadFile(path) //nolint:gosec // recipeDir is a bot-owned working tree
	if err != nil {
		return nil, ferrors.MigratorError("failed to read recipe file").
			WithCause(err).WithContext("path", path).Build()
	}
	var fields map[string]any
	if err := yaml.Unmarshal(raw, &fields); err != nil {
		return nil, ferrors.MigratorError("failed to parse recipe YAML").
			WithCause(err).WithContext("path", path).Build()
	}
	if fields == nil {
		fields = map[string]any{}
	}
	return fields, nil
}

// writeRecipe serializes fields back to recipeDir/meta.yaml, mirroring
// frontmatterops.Write's serialize-and-join shape (there: rejoin with
// body; here: the file is all YAML).
func writeRecipe(recipeDir string, fields map[string]any) error {
	path := filepath.Join(recipeDir, recipeFileName)
	raw, err := yaml.Marshal(fields)
	if err != nil {
		return ferrors.MigratorError("failed to serialize recipe YAML").
			WithCause(err).WithContext("path", path).Build()
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil { //nolint:gosec // recipe files are not secrets
		return ferrors.MigratorError("failed to write recipe file").
			WithCause(err).WithContext("path", path).Build()
	}
	return nil
}

// nestedMap returns fields[key] as a map[string]any, creating it if
// absent.
func nestedMap(fields map[string]any, key string) map[string]any {
	existing, ok := fields[key].(map[string]any)
	if !ok {
		existing = map[string]any{}
		fields[key] = existing
	}
	return existing
}
