// Package migrator implements spec.md §4.5's migrator capability set and
// its concrete variants. A Migrator is a polymorphic unit of work the
// scheduler drives over a dependency subgraph: decide whether a package
// needs the change, produce the mutation on a checked-out recipe tree, and
// describe the resulting pull request.
package migrator

import (
	"context"

	"github.com/pkgforge/feedbot/internal/graph"
	"github.com/pkgforge/feedbot/internal/record"
)

// RerenderPolicy decides when the external re-render collaborator (§6)
// must run after a migration.
type RerenderPolicy string

const (
	RerenderAlways           RerenderPolicy = "always"
	RerenderIfToolingChanged RerenderPolicy = "if_tooling_changed"
	RerenderNever            RerenderPolicy = "never"
)

// Migrator is the capability set spec.md §4.5 requires of every migration
// unit. Concrete variants are plain structs implementing this interface;
// the scheduler is generic over it.
type Migrator interface {
	// Key identifies this migrator instance in PR-info records and the
	// migrators.yaml registration file.
	Key() string

	// Filter returns true iff the migrator has no work to do for pkg
	// right now (i.e. skip it).
	Filter(pkg *record.Package) bool

	// Order produces the sequence eligible packages should be attempted
	// in. subgraph is the pruned graph of eligible nodes; full is the
	// whole dependency graph, available for global context.
	Order(subgraph, full *graph.Graph) []string

	// Migrate performs the mutation on a checked-out working copy at
	// recipeDir. It must be idempotent: a second call on an
	// already-migrated tree returns the same fingerprint.
	Migrate(ctx context.Context, recipeDir string, pkg *record.Package) (fingerprint string, err error)

	// Fingerprint returns a JSON-serializable identity of the intended
	// change, used for PR-info de-duplication (spec.md §4.6 step 4).
	Fingerprint(pkg *record.Package) (string, error)

	PRTitle(pkg *record.Package) string
	PRBody(pkg *record.Package) string
	RemoteBranch(pkg *record.Package) string
	CommitMessage(pkg *record.Package) string

	RerenderPolicy() RerenderPolicy
	PRLimit() int
}

// Base provides the default Order (cyclic topological sort over the
// subgraph), RerenderPolicy (if_tooling_changed), and PRLimit that most
// concrete migrators inherit by embedding Base and overriding only what
// differs — the same embed-for-defaults idiom docbuilder uses for its
// forge.Client variants sharing BaseForge's HTTP plumbing.
type Base struct {
	PRLimitValue int
}

// Order returns the cyclic topological sort of subgraph's node names.
func (Base) Order(subgraph, _ *graph.Graph) []string {
	return subgraph.CyclicTopologicalSort(nil)
}

// RerenderPolicy defaults to if_tooling_changed.
func (Base) RerenderPolicy() RerenderPolicy { return RerenderIfToolingChanged }

// PRLimit returns PRLimitValue, or 50 if unset.
func (b Base) PRLimit() int {
	if b.PRLimitValue == 0 {
		return 50
	}
	return b.PRLimitValue
}
