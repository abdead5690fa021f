package migrator

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
)

// Fingerprint computes a stable, canonical-JSON-then-sha256 identity for
// an intended change, given the set of fields that define it. Map keys are
// sorted before serialization so the same logical change always hashes to
// the same fingerprint regardless of map iteration order.
//
// This replaces docbuilder's private github.com/inful/mdfp fingerprint
// library (canonicalize-then-hash over YAML frontmatter + markdown body);
// that library's API is irreducibly about frontmatter/body splitting with
// no counterpart here, so the underlying pattern — exclude volatile
// fields, canonicalize, hash — is reimplemented directly on stdlib
// (see DESIGN.md's dropped-dependency note).
func Fingerprint(fields map[string]any) (string, error) {
	canonical, err := canonicalize(fields)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// canonicalize produces a deterministic JSON encoding of fields: object
// keys are marshaled in sorted order at every level via an ordered
// intermediate representation.
func canonicalize(fields map[string]any) ([]byte, error) {
	return json.Marshal(orderedValue(fields))
}

// orderedValue recursively rewrites maps into a form encoding/json
// already serializes deterministically — Go's json.Marshal sorts
// map[string]any keys automatically, so the only extra work needed is to
// descend through nested maps/slices to normalize their concrete types.
func orderedValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make(map[string]any, len(t))
		for _, k := range keys {
			out[k] = orderedValue(t[k])
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = orderedValue(e)
		}
		return out
	default:
		return v
	}
}
