package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompare_ReleaseSegments(t *testing.T) {
	cases := []struct {
		name string
		a, b string
		want int
	}{
		{"patch less", "1.2.3", "1.2.4", -1},
		{"minor greater with more digits", "1.10.0", "1.9.0", 1},
		{"implicit trailing zero equal", "1.0", "1.0.0", 0},
		{"major greater", "2.0", "1.9.9", 1},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			va, ok := Parse(c.a)
			require.True(t, ok, "Parse(%q) failed", c.a)
			vb, ok := Parse(c.b)
			require.True(t, ok, "Parse(%q) failed", c.b)
			assert.Equal(t, c.want, Compare(va, vb))
		})
	}
}

func TestCompare_PreReleaseOrdering(t *testing.T) {
	// dev < a < b < rc < release < post
	order := []string{
		"1.0.0.dev0",
		"1.0.0a1",
		"1.0.0b1",
		"1.0.0rc1",
		"1.0.0",
		"1.0.0.post1",
	}
	for i := 0; i < len(order)-1; i++ {
		lo, hi := order[i], order[i+1]
		t.Run(lo+"_lt_"+hi, func(t *testing.T) {
			va, ok := Parse(lo)
			require.True(t, ok, "Parse(%q) failed", lo)
			vb, ok := Parse(hi)
			require.True(t, ok, "Parse(%q) failed", hi)
			assert.Equal(t, -1, Compare(va, vb))
		})
	}
}

func TestCompare_LocalSegment(t *testing.T) {
	va, ok := Parse("1.0.0")
	require.True(t, ok)
	vb, ok := Parse("1.0.0+local1")
	require.True(t, ok)
	assert.Equal(t, -1, Compare(va, vb))
}

func TestParse_StripsVPrefix(t *testing.T) {
	v, ok := Parse("v1.2.3")
	require.True(t, ok)
	require.Len(t, v.Segments, 3)
	assert.Equal(t, []int64{1, 2, 3}, v.Segments)
}

func TestParse_RejectsNonNumericSegments(t *testing.T) {
	_, ok := Parse("not-a-version-at-all")
	assert.False(t, ok, "expected Parse to fail on a non-version string")
}

func TestCompareStrings_FallsBackToRawWhenBothUnparseable(t *testing.T) {
	assert.Equal(t, -1, CompareStrings("abc", "abd"))
	assert.Equal(t, 0, CompareStrings("abc", "abc"))
}

func TestCompareStrings_ParseableAlwaysBeatsUnparseable(t *testing.T) {
	// Regardless of which side is unparseable, and regardless of raw
	// lexical ordering, the parseable operand must win.
	assert.Equal(t, 1, CompareStrings("1.0.0", "zzz"), "parseable on the left beats unparseable, even lexically larger, right side")
	assert.Equal(t, -1, CompareStrings("zzz", "1.0.0"), "unparseable left loses to parseable right")
	assert.Equal(t, 1, CompareStrings("0.0.1", "aaa"), "parseable wins even when lexically smaller than the unparseable string")
}
