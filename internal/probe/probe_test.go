package probe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkgforge/feedbot/internal/record"
)

func TestDispatcher_SelectsBySourceShape(t *testing.T) {
	d := NewDispatcher(30, false)

	cases := []struct {
		sourceHint string
		wantProbe  string
	}{
		{"https://github.com/numpy/numpy.git", "git_tag"},
		{"https://pypi.org/pypi/requests/json", "pypi"},
		{"https://registry.npmjs.org/left-pad", "registry_feed"},
		{"https://example.org/downloads/", "directory_listing"},
	}
	for _, c := range cases {
		t.Run(c.wantProbe, func(t *testing.T) {
			p, err := d.Select(&record.Package{SourceHint: c.sourceHint})
			require.NoError(t, err)
			assert.Equal(t, c.wantProbe, p.Name())
		})
	}
}

func TestDispatcher_UnrecognizedSource(t *testing.T) {
	d := NewDispatcher(30, false)
	_, err := d.Select(&record.Package{SourceHint: "ftp://old.example.org/pkg"})
	assert.Error(t, err, "expected an error for an unrecognized source shape")
}

func TestOwnedByShard_PartitionsDeterministically(t *testing.T) {
	const n = 4
	counts := make([]int, n)
	names := []string{"numpy", "scipy", "pandas", "requests", "flask", "django", "pytest", "lxml"}
	for _, name := range names {
		owners := 0
		for k := 0; k < n; k++ {
			if OwnedByShard(name, k, n) {
				owners++
				counts[k]++
			}
		}
		assert.Equal(t, 1, owners, "name %q owned by %d shards, want exactly 1", name, owners)
	}
}

func TestOwnedByShard_SingleShardOwnsEverything(t *testing.T) {
	assert.True(t, OwnedByShard("anything", 0, 1), "expected n=1 to own every name")
}
