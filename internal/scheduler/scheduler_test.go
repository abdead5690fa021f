package scheduler

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkgforge/feedbot/internal/forge"
	"github.com/pkgforge/feedbot/internal/graph"
	"github.com/pkgforge/feedbot/internal/migrator"
	"github.com/pkgforge/feedbot/internal/record"
	"github.com/pkgforge/feedbot/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Build(store.BuildOptions{Backends: []string{"file"}, FileRoot: t.TempDir()})
	require.NoError(t, err)
	return st
}

func seedPackage(t *testing.T, st *store.Store, pkg record.Package) {
	t.Helper()
	h := store.NewLazyHandle[record.Package](st, store.Key(record.PackageKey(pkg.Name)))
	h.Value = pkg
	h.MarkDirty()
	_, err := h.Flush(context.Background())
	require.NoError(t, err, "failed to seed package %q", pkg.Name)
}

func seedVersion(t *testing.T, st *store.Store, name string, v record.Version) {
	t.Helper()
	h := store.NewLazyHandle[record.Version](st, store.Key(record.VersionKey(name)))
	h.Value = v
	h.MarkDirty()
	_, err := h.Flush(context.Background())
	require.NoError(t, err, "failed to seed version %q", name)
}

type fakeResources struct {
	diskGB, memGB float64
}

func (f fakeResources) FreeDiskGB(string) (float64, error) { return f.diskGB, nil }
func (f fakeResources) FreeMemGB() (float64, error)        { return f.memGB, nil }

func TestGateReturnsTimeoutWhenExceeded(t *testing.T) {
	s := &Scheduler{}
	cycleStart := time.Now().Add(-time.Hour)
	reason := s.gate(cycleStart, Budget{Timeout: time.Minute}, 0, 0)
	assert.Equal(t, StopTimeout, reason)
}

func TestGateReturnsRateLimitWhenBudgetBelowFloor(t *testing.T) {
	rb := forge.NewRateBudget(10)
	s := &Scheduler{RateBudget: rb}
	reason := s.gate(time.Now(), Budget{RateFloor: 50}, 0, 0)
	assert.Equal(t, StopRateLimit, reason)
}

func TestGateReturnsPRLimitWhenReached(t *testing.T) {
	s := &Scheduler{}
	reason := s.gate(time.Now(), Budget{}, 3, 3)
	assert.Equal(t, StopPRLimit, reason)
}

func TestGateReturnsResourceFloorWhenDiskLow(t *testing.T) {
	s := &Scheduler{Resources: fakeResources{diskGB: 1, memGB: 100}}
	reason := s.gate(time.Now(), Budget{DiskFloorGB: 5}, 0, 0)
	assert.Equal(t, StopResourceFloor, reason)
}

func TestGateReturnsExhaustedWhenNothingTrips(t *testing.T) {
	s := &Scheduler{Resources: fakeResources{diskGB: 100, memGB: 100}}
	reason := s.gate(time.Now(), Budget{Timeout: time.Hour, RateFloor: 0, DiskFloorGB: 5, MemFloorGB: 1}, 0, 0)
	assert.Equal(t, StopExhausted, reason)
}

func TestDedupeSkipsDonePRs(t *testing.T) {
	prInfo := &record.PRInfo{Fingerprints: []record.PRFingerprint{
		{MigratorFingerprint: "fp1", PRState: record.PRStateDone},
	}}
	skip, state := dedupe(prInfo, "fp1", 0, time.Now())
	assert.True(t, skip)
	assert.Equal(t, record.PRStateDone, state)
}

func TestDedupeAllowsRetryAfterClosedWindowElapses(t *testing.T) {
	closedAt := time.Now().Add(-48 * time.Hour)
	prInfo := &record.PRInfo{Fingerprints: []record.PRFingerprint{
		{MigratorFingerprint: "fp1", PRState: record.PRStateClosed, ClosedAt: &closedAt},
	}}
	skip, _ := dedupe(prInfo, "fp1", 24*time.Hour, time.Now())
	assert.False(t, skip, "expected retry to be allowed once the retry window has elapsed")
}

func TestDedupeBlocksRetryWithinClosedWindow(t *testing.T) {
	closedAt := time.Now().Add(-1 * time.Hour)
	prInfo := &record.PRInfo{Fingerprints: []record.PRFingerprint{
		{MigratorFingerprint: "fp1", PRState: record.PRStateClosed, ClosedAt: &closedAt},
	}}
	skip, state := dedupe(prInfo, "fp1", 24*time.Hour, time.Now())
	assert.True(t, skip, "expected skip=true within the retry window")
	assert.Equal(t, record.PRStateClosed, state)
}

func TestDedupeAllowsNewFingerprint(t *testing.T) {
	prInfo := &record.PRInfo{}
	skip, _ := dedupe(prInfo, "fp1", 0, time.Now())
	assert.False(t, skip, "a never-seen fingerprint must never be skipped")
}

// TestRunCycleOpensPRForEligiblePackage drives a full cycle: one package
// with a probed new version, one registered version-bump migrator, a
// FakeGateway. The scheduler's RecipeDir test seam is used to seed a
// meta.yaml into the fake clone's working tree before Migrate runs, the
// same role the real forge.Gateway's checkout would otherwise play.
func TestRunCycleOpensPRForEligiblePackage(t *testing.T) {
	st := newTestStore(t)
	seedPackage(t, st, record.Package{Name: "foo", FeedstockName: "foo-feedstock", CurrentVersion: "1.0.0"})
	seedVersion(t, st, "foo", record.Version{NewVersion: "1.1.0"})

	g, err := graph.Build(context.Background(), st, []string{"foo"})
	require.NoError(t, err)

	gw := forge.NewFakeGateway()
	sched := New(st, gw, forge.NewRateBudget(5000))
	sched.RecipeDir = func(tree *forge.WorkingTree) string {
		err := os.WriteFile(filepath.Join(tree.RecipeDir, "meta.yaml"), []byte("package:\n  version: 1.0.0\n"), 0o644)
		require.NoError(t, err, "failed to seed meta.yaml")
		return tree.RecipeDir
	}

	migrators := []migrator.Migrator{migrator.NewVersionBump("version_bump")}
	report, err := sched.RunCycle(context.Background(), migrators, g, Budget{})
	require.NoError(t, err)
	require.Len(t, report.Migrators, 1)
	mr := report.Migrators[0]
	assert.Equal(t, 1, mr.PRsOpened, "attempted=%+v", mr.Attempted)

	ph := store.NewLazyHandle[record.PRInfo](st, store.Key(record.PRInfoKey("version_bump", "foo")))
	require.NoError(t, ph.Load(context.Background()))
	require.Len(t, ph.Value.Fingerprints, 1)
	assert.Equal(t, record.PRStateInPR, ph.Value.Fingerprints[0].PRState)
}

func TestRunCycleMarksPackageBadWhenMigrateFails(t *testing.T) {
	st := newTestStore(t)
	seedPackage(t, st, record.Package{Name: "bar", FeedstockName: "bar-feedstock", CurrentVersion: "1.0.0"})
	seedVersion(t, st, "bar", record.Version{NewVersion: "2.0.0"})

	g, err := graph.Build(context.Background(), st, []string{"bar"})
	require.NoError(t, err)

	gw := forge.NewFakeGateway()
	sched := New(st, gw, forge.NewRateBudget(5000))
	// No RecipeDir seam set: the fake clone's working tree has no
	// meta.yaml, so Migrate fails and the package should be marked bad.

	migrators := []migrator.Migrator{migrator.NewVersionBump("version_bump")}
	report, err := sched.RunCycle(context.Background(), migrators, g, Budget{})
	require.NoError(t, err)
	assert.Equal(t, 0, report.Migrators[0].PRsOpened)

	pkgHandle := store.NewLazyHandle[record.Package](st, store.Key(record.PackageKey("bar")))
	require.NoError(t, pkgHandle.Load(context.Background()))
	require.NotNil(t, pkgHandle.Value.Bad)
	assert.Equal(t, "migrate", pkgHandle.Value.Bad.Kind)
}

func TestRunCycleStopsAcrossMigratorsWhenRateExhausted(t *testing.T) {
	st := newTestStore(t)
	seedPackage(t, st, record.Package{Name: "baz", FeedstockName: "baz-feedstock"})
	seedVersion(t, st, "baz", record.Version{NewVersion: "2.0.0"})

	g, err := graph.Build(context.Background(), st, []string{"baz"})
	require.NoError(t, err)

	gw := forge.NewFakeGateway()
	rb := forge.NewRateBudget(1)
	sched := New(st, gw, rb)

	migrators := []migrator.Migrator{migrator.NewVersionBump("version_bump")}
	_, err = sched.RunCycle(context.Background(), migrators, g, Budget{RateFloor: 50})
	assert.ErrorIs(t, err, ErrRateLimitExhausted)
}
