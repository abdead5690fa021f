// Package record defines the Graph Store's JSON record shapes (spec.md §3):
// package, version, PR-info, version-PR-info, and PR-JSON records. These are
// plain data structs; the Graph Store (internal/store) persists them, and
// every other package reads/mutates them through a store.LazyHandle.
package record

import "time"

// RequirementSections groups a recipe's declared dependencies by the
// section they were declared in (spec.md §3/§4.2).
type RequirementSections struct {
	Build []string `json:"build,omitempty"`
	Host  []string `json:"host,omitempty"`
	Run   []string `json:"run,omitempty"`
	Test  []string `json:"test,omitempty"`
}

// BadState records a component-specific error descriptor stored on a
// record, per spec.md §7. Kind is a short conceptual tag ("migrate",
// "node_missing", "probe", ...); Reason is human-readable; Traceback is an
// optional opaque diagnostic blob.
type BadState struct {
	Kind      string `json:"kind"`
	Reason    string `json:"reason"`
	Traceback string `json:"traceback,omitempty"`
}

// Package is the one-per-package-name record (spec.md §3).
type Package struct {
	Name            string               `json:"name"`
	FeedstockName   string               `json:"feedstock_name"`
	Requirements    RequirementSections  `json:"requirements"`
	CurrentVersion  string               `json:"current_version"`
	HashKind        string               `json:"hash_kind,omitempty"`
	Archived        bool                 `json:"archived"`
	Bad             *BadState            `json:"bad,omitempty"`
	SourceHint      string               `json:"source_hint,omitempty"`
	AllowPrerelease bool                 `json:"allow_prerelease,omitempty"`
}

// PackageKey returns the Graph Store key for this package's record.
func PackageKey(name string) string { return "package:" + name }

// Version is the zero-or-one-per-package upstream version probe record.
type Version struct {
	NewVersion         string         `json:"new_version,omitempty"`
	NewVersionAttempts map[string]int `json:"new_version_attempts,omitempty"`
	Bad                *BadState      `json:"bad,omitempty"`
}

// VersionKey returns the Graph Store key for a package's version record.
func VersionKey(name string) string { return "versions:" + name }

// PRState is the lifecycle state of one opened pull request, per spec.md
// §4.6's state machine.
type PRState string

const (
	PRStateAwaitingParents PRState = "awaiting_parents"
	PRStateAwaitingPR      PRState = "awaiting_pr"
	PRStateInPR            PRState = "in_pr"
	PRStateDone            PRState = "done"
	// PRStateClosed is a closed-unmerged PR: eligible for re-attempt once
	// ClosedAt is older than the configured PR_RETRY_WINDOW (spec.md §4.6
	// step 4 / §9's retry-window open question).
	PRStateClosed   PRState = "closed"
	PRStateBotError PRState = "bot_error"
)

// PRFingerprint is one attempt entry in a PR-info record: the identity of
// the intended change, the PR it produced (if any), and its current state.
type PRFingerprint struct {
	MigratorFingerprint string     `json:"migrator_fingerprint"`
	PRState             PRState    `json:"pr_state"`
	PRNumber            int        `json:"pr_number,omitempty"`
	PRURL               string     `json:"pr_url,omitempty"`
	Timestamp           time.Time  `json:"timestamp"`
	ClosedAt            *time.Time `json:"closed_at,omitempty"`
}

// PRInfo is the one-per-package record of every PR this robot has ever
// opened for it, plus the tooling versions in effect at the last success.
type PRInfo struct {
	Fingerprints    []PRFingerprint `json:"fingerprints"`
	Bad             *BadState       `json:"bad,omitempty"`
	SmithyVersion   string          `json:"smithy_version,omitempty"`
	PinningVersion  string          `json:"pinning_version,omitempty"`
}

// PRInfoKey returns the Graph Store key for a package's PR-info record,
// scoped by migrator so each migrator's attempt history is independent
// (DESIGN.md's resolution of spec.md §9's awaiting-parents scope question).
func PRInfoKey(migratorKey, packageName string) string {
	return "pr_info:" + migratorKey + ":" + packageName
}

// VersionAttempt records a version-bump migrator's attempt at one specific
// upstream version: the remote branch used, so a retry can recognize and
// resume it.
type VersionAttempt struct {
	Version     string `json:"version"`
	RemoteHead  string `json:"remote_head"`
	AttemptedAt int64  `json:"attempted_at"`
}

// VersionPRInfo specializes PRInfo for the version-bump migrator, adding
// per-version attempt tracking.
type VersionPRInfo struct {
	PRInfo
	Attempts []VersionAttempt `json:"attempts,omitempty"`
}

// VersionPRInfoKey returns the Graph Store key for a package's
// version-bump-specific PR-info record.
func VersionPRInfoKey(packageName string) string { return "version_pr_info:" + packageName }

// PRJSON mirrors the forge's own PR resource, minimally, for tracking
// (spec.md §3).
type PRJSON struct {
	ID       string     `json:"id"`
	Number   int        `json:"number"`
	State    string     `json:"state"`
	HeadRef  string      `json:"head_ref"`
	BaseRef  string      `json:"base_ref"`
	HTMLURL  string     `json:"html_url"`
	Merged   bool       `json:"merged"`
	MergedAt *time.Time `json:"merged_at,omitempty"`
	ClosedAt *time.Time `json:"closed_at,omitempty"`
}

// PRJSONKey returns the Graph Store key for one PR's mirrored JSON record.
func PRJSONKey(prID string) string { return "pr_json:" + prID }
