package forge

import (
	"context"
	"fmt"
	"os"
	"sync"
)

// FakeGateway is an in-memory Gateway for tests and local dry-runs,
// grounded on docbuilder's EnhancedMockForgeClient: a state-tracking
// double with injectable failure modes instead of real network calls.
type FakeGateway struct {
	mu sync.Mutex

	rateRemaining int
	openPRs       map[string]*PR // "feedstock#branch" -> PR
	nextID        int

	FailFork    error
	FailClone   error
	FailOpenPR  ErrorKind // if non-empty, OpenPR returns an Error of this kind
	ArchivedFor map[string]bool
	OrgRepos    map[string][]string // org -> repo names, for ListOrgRepos
}

// NewFakeGateway builds a FakeGateway with a generous default rate
// budget.
func NewFakeGateway() *FakeGateway {
	return &FakeGateway{
		rateRemaining: 5000,
		openPRs:       make(map[string]*PR),
		ArchivedFor:   make(map[string]bool),
	}
}

func (f *FakeGateway) Fork(_ context.Context, feedstockName string) (string, error) {
	if f.FailFork != nil {
		return "", f.FailFork
	}
	if f.ArchivedFor[feedstockName] {
		return "", newError(Archived, "repository archived", nil, map[string]any{"feedstock": feedstockName})
	}
	return "file:///fake/" + feedstockName, nil
}

func (f *FakeGateway) Clone(ctx context.Context, feedstockName, branch string) (*WorkingTree, error) {
	if f.FailClone != nil {
		return nil, f.FailClone
	}
	if _, err := f.Fork(ctx, feedstockName); err != nil {
		return nil, err
	}
	dir, err := os.MkdirTemp("", "feedbot-fake-clone-*")
	if err != nil {
		return nil, newError(Transient, "failed to create working directory", err, nil)
	}
	return &WorkingTree{RecipeDir: dir, Branch: branch, BaseRef: "main"}, nil
}

func (f *FakeGateway) Commit(_ context.Context, _ *WorkingTree, _ string) error { return nil }

func (f *FakeGateway) Push(_ context.Context, _ *WorkingTree) error { return nil }

func (f *FakeGateway) OpenPR(_ context.Context, feedstockName string, tree *WorkingTree, title, body string) (*PR, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.FailOpenPR != "" {
		return nil, newError(f.FailOpenPR, "fake gateway configured to fail OpenPR", nil, nil)
	}

	key := feedstockName + "#" + tree.Branch
	if existing, ok := f.openPRs[key]; ok {
		return nil, newError(ValidationFailed, "a pull request for this branch already exists", nil,
			map[string]any{"existing_pr": existing.Number})
	}

	f.nextID++
	pr := &PR{
		ID:      fmt.Sprintf("fake-%d", f.nextID),
		Number:  f.nextID,
		HTMLURL: fmt.Sprintf("https://fake.example.org/%s/pull/%d", feedstockName, f.nextID),
		State:   "open",
	}
	f.openPRs[key] = pr
	_, _ = title, body
	return pr, nil
}

func (f *FakeGateway) Label(_ context.Context, _ string, _ int, _ []string) error { return nil }

func (f *FakeGateway) GetPR(_ context.Context, feedstockName string, prNumber int) (*PR, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, pr := range f.openPRs {
		if pr.Number == prNumber {
			return pr, nil
		}
	}
	return nil, newError(NotFound, "no such pull request", nil,
		map[string]any{"feedstock": feedstockName, "number": prNumber})
}

// SetPRState lets tests drive a fake PR through the state machine
// (e.g. "merged", "closed").
func (f *FakeGateway) SetPRState(prNumber int, state string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, pr := range f.openPRs {
		if pr.Number == prNumber {
			pr.State = state
			return
		}
	}
}

func (f *FakeGateway) RateRemaining(_ context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rateRemaining, nil
}

// SetRateRemaining lets tests drive the gating check in the scheduler.
func (f *FakeGateway) SetRateRemaining(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rateRemaining = n
}

func (f *FakeGateway) ListOrgRepos(_ context.Context, org string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.OrgRepos[org]...), nil
}
