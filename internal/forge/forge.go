// Package forge abstracts over the code-forge (GitHub, GitLab, Forgejo...)
// a feedstock lives on: fork/clone, branch/commit/push, pull-request
// creation and labeling, and rate-budget queries. Concrete gateways never
// surface raw HTTP details to callers — every failure is classified into
// one of a small set of ForgeErrorKinds the Migration Scheduler's state
// machine knows how to react to (spec.md §4.8).
package forge

import "context"

// ErrorKind classifies a forge operation failure into the buckets the
// scheduler's state machine understands.
type ErrorKind string

const (
	RateLimited      ErrorKind = "rate_limited"
	NotFound         ErrorKind = "not_found"
	Archived         ErrorKind = "archived"
	ValidationFailed ErrorKind = "validation_failed" // e.g. a duplicate PR already exists
	AuthFailed       ErrorKind = "auth_failed"
	Transient        ErrorKind = "transient"
)

// WorkingTree is a checked-out, writable copy of a feedstock's recipe
// directory on a fresh branch, ready for a migrator to mutate.
type WorkingTree struct {
	RecipeDir string
	Branch    string
	BaseRef   string
}

// PR describes an opened (or pre-existing) pull request.
type PR struct {
	ID      string
	Number  int
	HTMLURL string
	State   string
}

// Gateway is the Forge Gateway abstraction spec.md §4.8 describes.
// Every method returns a *Error (via AsForgeError) on failure, never a
// raw HTTP or transport error.
type Gateway interface {
	// Fork ensures a fork of feedstockName exists under the bot's
	// account, returning its clone URL.
	Fork(ctx context.Context, feedstockName string) (cloneURL string, err error)

	// Clone produces a WorkingTree on a fresh branch named branch,
	// shallow-cloned with retry.
	Clone(ctx context.Context, feedstockName, branch string) (*WorkingTree, error)

	// Commit stages all changes in tree.RecipeDir and commits with
	// message.
	Commit(ctx context.Context, tree *WorkingTree, message string) error

	// Push pushes tree's branch, injecting the configured auth token.
	Push(ctx context.Context, tree *WorkingTree) error

	// OpenPR opens a pull request from tree's branch against
	// tree.BaseRef. A pre-existing open PR for the same branch is
	// reported as a ValidationFailed Error, not as success.
	OpenPR(ctx context.Context, feedstockName string, tree *WorkingTree, title, body string) (*PR, error)

	// Label adds labels to an existing PR.
	Label(ctx context.Context, feedstockName string, prNumber int, labels []string) error

	// GetPR fetches the current state of a previously opened PR.
	GetPR(ctx context.Context, feedstockName string, prNumber int) (*PR, error)

	// RateRemaining reports the forge's currently remaining rate-limit
	// budget, used by the scheduler's gating check (spec.md §4.6 step 3).
	RateRemaining(ctx context.Context) (int, error)

	// ListOrgRepos lists every non-archived repository name under org,
	// paginating as needed. Backs gather-all-feedstocks (spec.md §6).
	ListOrgRepos(ctx context.Context, org string) ([]string, error)
}
