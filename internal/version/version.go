// Package version implements the total-order version comparator (spec.md
// §4.4) used to decide whether an upstream probe result is newer than a
// package's current version. Parsing follows PEP 440-shaped version
// strings (the lingua franca of the package ecosystems this robot watches):
// release segments, an optional pre-release, an optional post-release, and
// an optional local segment.
package version

import (
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// preKind orders pre-release kinds: dev sorts before any letter-tagged
// pre-release, rc sorts last before a final release (spec.md §4.4:
// dev < a < b < rc < release < post).
type preKind int

const (
	preDev preKind = iota
	preAlpha
	preBeta
	preRC
)

// PreRelease is a parsed pre-release marker, e.g. "a1", "b2", "rc3", "dev0".
type PreRelease struct {
	Kind   preKind
	Number int64
}

// Version is a parsed, comparable version.
type Version struct {
	raw      string
	Segments []int64
	Pre      *PreRelease
	Post     *int64
	Local    string
}

// Raw returns the original (NFKC-normalized) string this Version was
// parsed from.
func (v Version) Raw() string { return v.raw }

// Parse normalizes s to NFKC and attempts to parse it as a version
// string. ok is false if s could not be parsed as a structured version;
// callers should then fall back to raw string comparison (spec.md §4.4).
func Parse(s string) (Version, bool) {
	normalized := norm.NFKC.String(s)
	cleaned := strings.TrimSpace(normalized)
	cleaned = strings.TrimPrefix(cleaned, "v")
	if cleaned == "" {
		return Version{}, false
	}

	local := ""
	if idx := strings.IndexByte(cleaned, '+'); idx != -1 {
		local = cleaned[idx+1:]
		cleaned = cleaned[:idx]
	}

	rest := cleaned
	var post *int64
	if p, tail, ok := extractPost(rest); ok {
		post = &p
		rest = tail
	}

	var pre *PreRelease
	if p, tail, ok := extractPre(rest); ok {
		pre = &p
		rest = tail
	}

	segs, ok := parseSegments(rest)
	if !ok || len(segs) == 0 {
		return Version{}, false
	}

	return Version{raw: normalized, Segments: segs, Pre: pre, Post: post, Local: local}, true
}

func parseSegments(s string) ([]int64, bool) {
	if s == "" {
		return nil, false
	}
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == '.' })
	if len(parts) == 0 {
		return nil, false
	}
	out := make([]int64, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, false
		}
		out = append(out, n)
	}
	return out, true
}

// extractPost looks for a trailing ".postN" / "-postN" / "_postN" / "postN"
// post-release marker and returns the remaining string with it stripped.
func extractPost(s string) (int64, string, bool) {
	lower := strings.ToLower(s)
	for _, marker := range []string{".post", "-post", "_post", "post"} {
		if idx := strings.LastIndex(lower, marker); idx != -1 {
			numPart := s[idx+len(marker):]
			if n, err := strconv.ParseInt(numPart, 10, 64); err == nil {
				return n, s[:idx], true
			}
		}
	}
	return 0, s, false
}

// extractPre looks for a trailing pre-release marker (devN, aN, bN, rcN)
// and returns the remaining string with it stripped.
func extractPre(s string) (PreRelease, string, bool) {
	lower := strings.ToLower(s)
	markers := []struct {
		tag  string
		kind preKind
	}{
		{"dev", preDev},
		{"rc", preRC},
		{"alpha", preAlpha},
		{"beta", preBeta},
		{"a", preAlpha},
		{"b", preBeta},
	}
	for _, m := range markers {
		if idx := strings.LastIndex(lower, m.tag); idx > 0 {
			numPart := s[idx+len(m.tag):]
			if numPart == "" {
				continue
			}
			n, err := strconv.ParseInt(strings.TrimLeft(numPart, ".-"), 10, 64)
			if err != nil {
				continue
			}
			return PreRelease{Kind: m.kind, Number: n}, s[:idx], true
		}
	}
	return PreRelease{}, s, false
}

// Compare returns -1, 0, or 1 as a orders before, same as, or after b,
// following spec.md §4.4: release segments compare element-wise
// (shorter is padded with zeros), then pre-release vs release
// (dev < a < b < rc < release), then post-release (release < post),
// then local segment (no local < has local, local segments compared
// lexicographically as whole strings).
func Compare(a, b Version) int {
	if c := compareSegments(a.Segments, b.Segments); c != 0 {
		return c
	}
	if c := comparePre(a.Pre, b.Pre); c != 0 {
		return c
	}
	if c := comparePost(a.Post, b.Post); c != 0 {
		return c
	}
	return compareLocal(a.Local, b.Local)
}

func compareSegments(a, b []int64) int {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		var av, bv int64
		if i < len(a) {
			av = a[i]
		}
		if i < len(b) {
			bv = b[i]
		}
		if av != bv {
			if av < bv {
				return -1
			}
			return 1
		}
	}
	return 0
}

func comparePre(a, b *PreRelease) int {
	if a == nil && b == nil {
		return 0
	}
	if a == nil {
		return 1 // no pre-release (final) sorts after any pre-release
	}
	if b == nil {
		return -1
	}
	if a.Kind != b.Kind {
		if a.Kind < b.Kind {
			return -1
		}
		return 1
	}
	switch {
	case a.Number < b.Number:
		return -1
	case a.Number > b.Number:
		return 1
	default:
		return 0
	}
}

func comparePost(a, b *int64) int {
	if a == nil && b == nil {
		return 0
	}
	if a == nil {
		return -1 // no post-release sorts before a post-release
	}
	if b == nil {
		return 1
	}
	switch {
	case *a < *b:
		return -1
	case *a > *b:
		return 1
	default:
		return 0
	}
}

func compareLocal(a, b string) int {
	if a == "" && b == "" {
		return 0
	}
	if a == "" {
		return -1 // no local segment sorts before any local segment
	}
	if b == "" {
		return 1
	}
	return strings.Compare(a, b)
}

// CompareStrings compares two raw version strings, per spec.md §4.4: a
// non-parseable string always compares strictly less than any parseable
// version, regardless of which side it's on. Only when both operands fail
// to parse do they fall back to an NFKC-normalized lexical comparison, so
// two unparseable upstream tags still order deterministically.
func CompareStrings(a, b string) int {
	va, okA := Parse(a)
	vb, okB := Parse(b)
	switch {
	case okA && okB:
		return Compare(va, vb)
	case okA && !okB:
		return 1
	case !okA && okB:
		return -1
	default:
		return strings.Compare(norm.NFKC.String(a), norm.NFKC.String(b))
	}
}
