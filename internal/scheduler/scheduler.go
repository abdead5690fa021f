// Package scheduler implements the Migration Scheduler (spec.md §4.6): for
// each configured migrator, in registration order, prune the dependency
// graph to the nodes it may presently act on, walk them in the migrator's
// order, gate every attempt against a wall-clock budget / forge rate floor
// / resource floors / per-migrator PR limit, de-duplicate by fingerprint
// against each package's PR-info record, and drive the Forge Gateway
// through fork/clone/migrate/commit/push/open-PR.
//
// The per-(migrator,package) execution is grounded on docbuilder's
// internal/build/queue.BuildQueue worker-loop shape (gate checks before
// each unit of work, always record/flush the outcome, never let one job's
// error abort the loop), generalized from "build jobs" pulled off a
// channel to "(migrator,package) attempts" walked in topological order.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/pkgforge/feedbot/internal/forge"
	ferrors "github.com/pkgforge/feedbot/internal/foundation/errors"
	"github.com/pkgforge/feedbot/internal/graph"
	"github.com/pkgforge/feedbot/internal/logfields"
	"github.com/pkgforge/feedbot/internal/migrator"
	"github.com/pkgforge/feedbot/internal/record"
	"github.com/pkgforge/feedbot/internal/store"
)

// Budget collects the per-run limits spec.md §4.6 step 3 gates every node
// attempt against.
type Budget struct {
	Timeout     time.Duration
	RateFloor   int
	DiskFloorGB float64
	MemFloorGB  float64
	// RetryWindow is the PR_RETRY_WINDOW spec.md §9 asks for: how long a
	// closed-unmerged PR's fingerprint stays "don't retry yet".
	RetryWindow time.Duration
}

// ErrRateLimitExhausted is the sentinel RunCycle returns when the forge
// rate budget drops below Budget.RateFloor: spec.md §4.6 step 6's "break
// out across all remaining migrators", surfaced so the auto-tick command
// loop (and any caller looping over scheduler cycles) knows to stop
// entirely rather than try the next migrator.
var ErrRateLimitExhausted = errors.New("scheduler: forge rate budget exhausted")

// StopReason records why a migrator's walk ended, for the Report.
type StopReason string

const (
	StopExhausted     StopReason = "" // walked every eligible node
	StopTimeout       StopReason = "timeout"
	StopRateLimit     StopReason = "rate_limited"
	StopPRLimit       StopReason = "pr_limit"
	StopResourceFloor StopReason = "resource_floor"
)

// NodeOutcome is the result of one (migrator, package) attempt.
type NodeOutcome struct {
	Package string         `json:"package"`
	State   record.PRState `json:"state"`
	PRURL   string         `json:"pr_url,omitempty"`
	Skipped bool           `json:"skipped"`
	Err     string         `json:"error,omitempty"`
}

// MigratorReport summarizes one migrator's walk within a cycle.
type MigratorReport struct {
	MigratorKey string        `json:"migrator_key"`
	Attempted   []NodeOutcome `json:"attempted"`
	PRsOpened   int           `json:"prs_opened"`
	Stopped     StopReason    `json:"stopped,omitempty"`
}

// Report is RunCycle's overall outcome, serializable for logs/tests.
type Report struct {
	RunID     string           `json:"run_id"`
	StartedAt time.Time        `json:"started_at"`
	Elapsed   time.Duration    `json:"elapsed"`
	Migrators []MigratorReport `json:"migrators"`
}

// ResourceSampler reports free disk/memory, so the gating check (spec.md
// §4.6 step 3, §5 "sampled before each migration attempt") can be faked in
// tests. See resources.go for the default stdlib-backed implementation.
type ResourceSampler interface {
	FreeDiskGB(path string) (float64, error)
	FreeMemGB() (float64, error)
}

// Rerenderer is the external re-render collaborator (§6/glossary):
// regenerates a feedstock's CI scaffolding from the recipe and pinning
// data. Out of scope per spec.md §1 ("the deployment-to-remote git step"
// sibling concerns); Scheduler depends only on this narrow interface so a
// real implementation can be wired in without touching scheduler logic.
type Rerenderer interface {
	// Rerender regenerates scaffolding under recipeDir and reports the
	// tooling version it rendered with.
	Rerender(ctx context.Context, recipeDir string) (toolingVersion string, err error)
}

// NoopRerenderer never changes anything and reports the smithy/pinning
// versions unchanged; used when no real re-render collaborator is wired
// (e.g. --dry-run, or tests).
type NoopRerenderer struct{}

func (NoopRerenderer) Rerender(_ context.Context, _ string) (string, error) { return "", nil }

// Scheduler drives spec.md §4.6 across a set of registered migrators.
type Scheduler struct {
	Store      *store.Store
	Gateway    forge.Gateway
	RateBudget *forge.RateBudget
	Resources  ResourceSampler
	Rerender   Rerenderer
	RecipeDir  func(tree *forge.WorkingTree) string // test seam; defaults to tree.RecipeDir
	Metrics    *Metrics
}

// New builds a Scheduler with sensible defaults (real disk/mem sampling,
// no-op re-render, no metrics).
func New(st *store.Store, gw forge.Gateway, rb *forge.RateBudget) *Scheduler {
	return &Scheduler{
		Store:      st,
		Gateway:    gw,
		RateBudget: rb,
		Resources:  defaultResourceSampler{},
		Rerender:   NoopRerenderer{},
		Metrics:    NewMetrics(nil),
	}
}

// RunCycle implements spec.md §4.6 steps 1-7 across every migrator in
// registration order, stopping immediately (across all remaining
// migrators) if the forge rate budget drops below budget.RateFloor.
func (s *Scheduler) RunCycle(ctx context.Context, migrators []migrator.Migrator, g *graph.Graph, budget Budget) (*Report, error) {
	start := time.Now()
	runID := uuid.NewString()
	report := &Report{RunID: runID, StartedAt: start}
	slog.Info("scheduler cycle started", logfields.CycleID(runID), "migrators", len(migrators))

	for _, m := range migrators {
		mr, err := s.runMigrator(ctx, m, g, budget, start)
		report.Migrators = append(report.Migrators, *mr)
		if err != nil {
			report.Elapsed = time.Since(start)
			slog.Error("scheduler cycle aborted", logfields.CycleID(runID), logfields.Error(err))
			return report, err
		}
	}
	report.Elapsed = time.Since(start)
	slog.Info("scheduler cycle finished", logfields.CycleID(runID), logfields.DurationMS(float64(report.Elapsed.Milliseconds())))
	return report, nil
}

func (s *Scheduler) runMigrator(ctx context.Context, m migrator.Migrator, full *graph.Graph, budget Budget, cycleStart time.Time) (*MigratorReport, error) {
	mr := &MigratorReport{MigratorKey: m.Key()}

	sub, err := s.buildSubgraph(ctx, full, m)
	if err != nil {
		return mr, err
	}

	order := m.Order(sub, full)
	limit := m.PRLimit()

	for _, name := range order {
		if reason := s.gate(cycleStart, budget, mr.PRsOpened, limit); reason != StopExhausted {
			mr.Stopped = reason
			if s.Metrics != nil {
				s.Metrics.ObserveStop(m.Key(), reason)
			}
			if reason == StopRateLimit {
				return mr, ErrRateLimitExhausted
			}
			break
		}

		outcome, rateExhausted := s.attempt(ctx, m, name, budget)
		mr.Attempted = append(mr.Attempted, outcome)
		if outcome.Err == "" && outcome.State == record.PRStateInPR {
			mr.PRsOpened++
		}
		if rateExhausted {
			mr.Stopped = StopRateLimit
			return mr, ErrRateLimitExhausted
		}
	}
	return mr, nil
}

// gate implements spec.md §4.6 step 3: the four checks run before every
// node attempt, any failure breaks this migrator's loop.
func (s *Scheduler) gate(cycleStart time.Time, budget Budget, prsOpened, prLimit int) StopReason {
	if budget.Timeout > 0 && time.Since(cycleStart) >= budget.Timeout {
		return StopTimeout
	}
	if s.RateBudget != nil && budget.RateFloor > 0 && s.RateBudget.Remaining() <= budget.RateFloor {
		return StopRateLimit
	}
	if prLimit > 0 && prsOpened >= prLimit {
		return StopPRLimit
	}
	if s.Resources != nil {
		if budget.DiskFloorGB > 0 {
			if free, err := s.Resources.FreeDiskGB("."); err == nil && free < budget.DiskFloorGB {
				return StopResourceFloor
			}
		}
		if budget.MemFloorGB > 0 {
			if free, err := s.Resources.FreeMemGB(); err == nil && free < budget.MemFloorGB {
				return StopResourceFloor
			}
		}
	}
	return StopExhausted
}

// buildSubgraph implements spec.md §4.6 step 1: prune archived nodes,
// filtered-out nodes, and nodes still awaiting parents (a positive
// in-subgraph in-degree where some predecessor has not yet landed this
// migrator — DESIGN.md's per-migrator scoping of the §9 open question).
func (s *Scheduler) buildSubgraph(ctx context.Context, full *graph.Graph, m migrator.Migrator) (*graph.Graph, error) {
	eligible := make(map[string]bool)
	for _, name := range full.Names() {
		ph := store.NewLazyHandle[record.Package](s.Store, store.Key(record.PackageKey(name)))
		if err := ph.Load(ctx); err != nil {
			return nil, err
		}
		if !ph.Loaded() {
			slog.Warn("node has no package record, short-circuiting to node_missing", logfields.Package(name))
			continue
		}
		if ph.Value.Archived {
			continue
		}
		// Specialize before filtering: a stateless template like
		// VersionBump only knows it has work to do once it carries this
		// package's probed target (set by WithTarget), so the same
		// per-package specialization attempt() uses later must run here
		// too, or every VersionBump node would be filtered out before
		// ever reaching attempt().
		specialized, err := specializeForPackage(ctx, s.Store, m, &ph.Value)
		if err != nil {
			return nil, err
		}
		if specialized.Filter(&ph.Value) {
			continue
		}
		eligible[name] = true
	}
	prefiltered := full.Prune(func(n string) bool { return eligible[n] })

	ready := make(map[string]bool)
	for _, name := range prefiltered.Names() {
		blocked := false
		for _, parent := range prefiltered.Predecessors(name) {
			landed, err := s.hasLanded(ctx, m.Key(), parent)
			if err != nil {
				return nil, err
			}
			if !landed {
				blocked = true
				break
			}
		}
		if !blocked {
			ready[name] = true
		}
	}
	return prefiltered.Prune(func(n string) bool { return ready[n] }), nil
}

// hasLanded reports whether migratorKey has a PR-info entry for pkgName
// whose state is "done" (merged), the definition of a parent having
// "landed" this migrator's change.
func (s *Scheduler) hasLanded(ctx context.Context, migratorKey, pkgName string) (bool, error) {
	ph := store.NewLazyHandle[record.PRInfo](s.Store, store.Key(record.PRInfoKey(migratorKey, pkgName)))
	if err := ph.Load(ctx); err != nil {
		return false, err
	}
	for _, fp := range ph.Value.Fingerprints {
		if fp.PRState == record.PRStateDone {
			return true, nil
		}
	}
	return false, nil
}

// attempt runs spec.md §4.6 steps 4-7 for one (migrator, package) pair.
// The second return value is true iff the forge reported RateLimited,
// signaling the caller to stop scheduling entirely.
func (s *Scheduler) attempt(ctx context.Context, m migrator.Migrator, pkgName string, budget Budget) (NodeOutcome, bool) {
	outcome := NodeOutcome{Package: pkgName}

	var rateExhausted bool
	writeErr := s.Store.WithWriteScope(ctx, store.Key(record.PackageKey(pkgName)), func(ctx context.Context) error {
		pkgHandle := store.NewLazyHandle[record.Package](s.Store, store.Key(record.PackageKey(pkgName)))
		if err := pkgHandle.Load(ctx); err != nil {
			outcome.Err = err.Error()
			return nil
		}
		if !pkgHandle.Loaded() {
			outcome.Err = "node_missing"
			return nil
		}
		pkg := &pkgHandle.Value

		attemptMigrator, err := specializeForPackage(ctx, s.Store, m, pkg)
		if err != nil {
			outcome.Err = err.Error()
			return nil
		}
		if attemptMigrator.Filter(pkg) {
			outcome.Skipped = true
			return nil
		}

		fp, err := attemptMigrator.Fingerprint(pkg)
		if err != nil {
			outcome.Err = err.Error()
			return nil
		}

		prInfoHandle := store.NewLazyHandle[record.PRInfo](s.Store, store.Key(record.PRInfoKey(m.Key(), pkgName)))
		if err := prInfoHandle.Load(ctx); err != nil {
			outcome.Err = err.Error()
			return nil
		}

		skip, state := dedupe(&prInfoHandle.Value, fp, budget.RetryWindow, time.Now())
		if skip {
			outcome.State = state
			outcome.Skipped = true
			return nil
		}

		outcome.State = s.execute(ctx, attemptMigrator, pkg, pkgHandle, prInfoHandle, fp, &rateExhausted)
		pkgHandle.MarkDirty()
		prInfoHandle.MarkDirty()

		if _, err := pkgHandle.Flush(ctx); err != nil {
			slog.Warn("failed to flush package record", logfields.Package(pkgName), logfields.Error(err))
		}
		if _, err := prInfoHandle.Flush(ctx); err != nil {
			slog.Warn("failed to flush pr-info record", logfields.Package(pkgName), logfields.Error(err))
		}
		return nil
	})
	if writeErr != nil && outcome.Err == "" {
		outcome.Err = writeErr.Error()
	}
	return outcome, rateExhausted
}

// execute performs spec.md §4.6 steps 5a-5e against an already-loaded
// package record and PR-info handle, mutating both in place. It always
// returns a state (never panics), per the "flushed regardless of
// success/failure" contract enforced by attempt's caller.
func (s *Scheduler) execute(ctx context.Context, m migrator.Migrator, pkg *record.Package, pkgHandle *store.LazyHandle[record.Package], prInfo *store.LazyHandle[record.PRInfo], fp string, rateExhausted *bool) record.PRState {
	branch := m.RemoteBranch(pkg)

	tree, err := s.Gateway.Clone(ctx, pkg.FeedstockName, branch)
	if kind, classified := forge.AsForgeError(err); classified {
		switch kind {
		case forge.Archived:
			pkgHandle.Value.Archived = true
			return record.PRStateBotError
		case forge.RateLimited:
			*rateExhausted = true
			return record.PRStateAwaitingPR
		}
	}
	if err != nil {
		s.recordBad(pkgHandle, "clone", err)
		return record.PRStateBotError
	}
	recipeDir := tree.RecipeDir
	if s.RecipeDir != nil {
		recipeDir = s.RecipeDir(tree)
	}

	if _, err := m.Migrate(ctx, recipeDir, pkg); err != nil {
		s.recordBad(pkgHandle, "migrate", err)
		return record.PRStateBotError
	}

	if needsRerender(m.RerenderPolicy(), prInfo.Value) {
		tooling, err := s.Rerender.Rerender(ctx, recipeDir)
		if err != nil {
			slog.Warn("re-render collaborator failed", logfields.Package(pkg.Name), logfields.Error(err))
		} else if tooling != "" {
			prInfo.Value.SmithyVersion = tooling
			prInfo.Value.PinningVersion = tooling
		}
	}

	if err := s.Gateway.Commit(ctx, tree, m.CommitMessage(pkg)); err != nil {
		s.recordBad(pkgHandle, "commit", err)
		return record.PRStateBotError
	}
	if err := s.Gateway.Push(ctx, tree); err != nil {
		s.recordBad(pkgHandle, "push", err)
		return record.PRStateBotError
	}

	pr, err := s.Gateway.OpenPR(ctx, pkg.FeedstockName, tree, m.PRTitle(pkg), m.PRBody(pkg))
	if kind, classified := forge.AsForgeError(err); classified {
		switch kind {
		case forge.ValidationFailed:
			// A duplicate PR already exists: swallowed per spec.md §7,
			// treated as success with no new PR.
			s.appendFingerprint(prInfo, fp, record.PRStateInPR, 0, "")
			if s.Metrics != nil {
				s.Metrics.ObserveAttempt(m.Key(), "already_open")
			}
			return record.PRStateInPR
		case forge.Archived:
			pkgHandle.Value.Archived = true
			return record.PRStateBotError
		case forge.RateLimited:
			*rateExhausted = true
			return record.PRStateAwaitingPR
		}
	}
	if err != nil {
		s.recordBad(pkgHandle, "open_pr", err)
		return record.PRStateBotError
	}

	s.appendFingerprint(prInfo, fp, record.PRStateInPR, pr.Number, pr.HTMLURL)
	if s.Metrics != nil {
		s.Metrics.ObserveAttempt(m.Key(), "opened")
	}
	return record.PRStateInPR
}

// needsRerender implements the RerenderIfToolingChanged policy as "the
// tooling has never been recorded for this package before": a real
// Rerenderer is expected to no-op (and report the same version back)
// when its own tooling hasn't moved since SmithyVersion was stamped.
func needsRerender(policy migrator.RerenderPolicy, prInfo record.PRInfo) bool {
	switch policy {
	case migrator.RerenderAlways:
		return true
	case migrator.RerenderNever:
		return false
	default:
		return prInfo.SmithyVersion == ""
	}
}

func (s *Scheduler) recordBad(h *store.LazyHandle[record.Package], kind string, err error) {
	var traceback string
	if ce, ok := ferrors.AsClassified(err); ok {
		traceback = ce.Error()
	}
	h.Value.Bad = &record.BadState{Kind: kind, Reason: err.Error(), Traceback: traceback}
}

func (s *Scheduler) appendFingerprint(prInfo *store.LazyHandle[record.PRInfo], fp string, state record.PRState, prNumber int, prURL string) {
	now := time.Now()
	for i := range prInfo.Value.Fingerprints {
		if prInfo.Value.Fingerprints[i].MigratorFingerprint == fp {
			prInfo.Value.Fingerprints[i].PRState = state
			prInfo.Value.Fingerprints[i].PRNumber = prNumber
			prInfo.Value.Fingerprints[i].PRURL = prURL
			prInfo.Value.Fingerprints[i].Timestamp = now
			prInfo.Value.Fingerprints[i].ClosedAt = nil
			return
		}
	}
	prInfo.Value.Fingerprints = append(prInfo.Value.Fingerprints, record.PRFingerprint{
		MigratorFingerprint: fp,
		PRState:             state,
		PRNumber:            prNumber,
		PRURL:               prURL,
		Timestamp:           now,
	})
}

// dedupe implements spec.md §4.6 step 4.
func dedupe(prInfo *record.PRInfo, fp string, retryWindow time.Duration, now time.Time) (skip bool, state record.PRState) {
	for _, e := range prInfo.Fingerprints {
		if e.MigratorFingerprint != fp {
			continue
		}
		switch e.PRState {
		case record.PRStateDone:
			return true, record.PRStateDone
		case record.PRStateClosed:
			if e.ClosedAt != nil && retryWindow > 0 && now.Sub(*e.ClosedAt) < retryWindow {
				return true, record.PRStateClosed
			}
			return false, ""
		case record.PRStateBotError:
			return true, record.PRStateBotError
		default: // awaiting_pr, in_pr, awaiting_parents
			return true, e.PRState
		}
	}
	return false, ""
}

// specializeForPackage clones a *migrator.VersionBump with the package's
// currently-probed new version as its target (migrators are stateless
// templates; spec.md §4.6 step 5 reads the version record per attempt).
// Other migrator kinds are returned unchanged.
func specializeForPackage(ctx context.Context, st *store.Store, m migrator.Migrator, pkg *record.Package) (migrator.Migrator, error) {
	vb, ok := m.(*migrator.VersionBump)
	if !ok {
		return m, nil
	}
	vh := store.NewLazyHandle[record.Version](st, store.Key(record.VersionKey(pkg.Name)))
	if err := vh.Load(ctx); err != nil {
		return nil, err
	}
	if vh.Value.Bad != nil || vh.Value.NewVersion == "" {
		return vb, nil
	}
	return vb.WithTarget(vh.Value.NewVersion, "", pkg.HashKind), nil
}
