// Package reactor implements the Event Reactor (spec.md §4.10): react to
// an external (event_kind, unique_id) trigger by re-running just the
// affected slice of work, instead of a full scheduler cycle.
package reactor

import (
	"context"
	"fmt"

	"github.com/pkgforge/feedbot/internal/forge"
	ferrors "github.com/pkgforge/feedbot/internal/foundation/errors"
	"github.com/pkgforge/feedbot/internal/probe"
	"github.com/pkgforge/feedbot/internal/prtracker"
	"github.com/pkgforge/feedbot/internal/record"
	"github.com/pkgforge/feedbot/internal/store"
)

// EventKind distinguishes the two trigger shapes spec.md §4.10 names.
type EventKind string

const (
	EventPRUpdate EventKind = "pr_update"
	EventPush     EventKind = "push"
)

// Event is one external trigger: a forge PR update or a push to a
// feedstock, identified by an opaque unique_id (the forge's PR id, the key
// of its PR-JSON record, for pr_update; a feedstock name for push).
type Event struct {
	Kind EventKind
	UID  string
}

// Reactor drives spec.md §4.10. It needs the same collaborators the
// scheduler and tracker do; a real deployment shares one Store/Gateway
// across all of them.
type Reactor struct {
	Store        *store.Store
	Gateway      forge.Gateway
	Probes       *probe.Dispatcher
	MigratorKeys []string
}

// New builds a Reactor.
func New(st *store.Store, gw forge.Gateway, probes *probe.Dispatcher, migratorKeys []string) *Reactor {
	return &Reactor{Store: st, Gateway: gw, Probes: probes, MigratorKeys: migratorKeys}
}

// React dispatches event to the pr_update or push handler.
func (r *Reactor) React(ctx context.Context, event Event) error {
	switch event.Kind {
	case EventPRUpdate:
		return r.reactToPRUpdate(ctx, event.UID)
	case EventPush:
		return r.reactToPush(ctx, event.UID)
	default:
		return ferrors.ValidationError(fmt.Sprintf("unknown event kind %q", event.Kind)).Build()
	}
}

// reactToPRUpdate looks up the PR by forge id, finds the owning package and
// migrator via the mirrored PR-JSON record, and re-runs the PR Tracker for
// that one migrator (spec.md §4.10). The tracker run is not narrowed to the
// owning package: it covers every package's PR records for that migrator.
func (r *Reactor) reactToPRUpdate(ctx context.Context, prID string) error {
	prJSON := store.NewLazyHandle[record.PRJSON](r.Store, store.Key(record.PRJSONKey(prID)))
	if err := prJSON.Load(ctx); err != nil {
		return err
	}
	if !prJSON.Loaded() {
		return ferrors.ValidationError(fmt.Sprintf("no PR-JSON record for id %q", prID)).Build()
	}

	owner, migratorKey, err := r.findOwningPackage(ctx, prJSON.Value.Number)
	if err != nil {
		return err
	}
	if owner == "" {
		return nil
	}

	tr := prtracker.New(r.Store, r.Gateway)
	_, err = tr.Run(ctx, []string{migratorKey}, prtracker.Shard{K: 0, N: 1})
	return err
}

// findOwningPackage scans every registered migrator's PR-info records for
// one whose fingerprint references prNumber. The Graph Store has no
// reverse index from PR number to package, so the scan is the store's own
// key-listing facility, scoped by migrator key to keep it bounded.
func (r *Reactor) findOwningPackage(ctx context.Context, prNumber int) (pkg, migratorKey string, err error) {
	for _, mk := range r.MigratorKeys {
		keys, err := r.Store.KeysPrefix(ctx, "pr_info:"+mk+":")
		if err != nil {
			return "", "", err
		}
		for _, key := range keys {
			h := store.NewLazyHandle[record.PRInfo](r.Store, key)
			if err := h.Load(ctx); err != nil {
				continue
			}
			for _, fp := range h.Value.Fingerprints {
				if fp.PRNumber == prNumber {
					return packageNameFromPRInfoKey(string(key), mk), mk, nil
				}
			}
		}
	}
	return "", "", nil
}

func packageNameFromPRInfoKey(key, migratorKey string) string {
	prefix := "pr_info:" + migratorKey + ":"
	if len(key) <= len(prefix) {
		return ""
	}
	return key[len(prefix):]
}

// reactToPush re-probes the upstream version for the feedstock identified
// by uid and, when the probe finds a version, records it and clears any
// stale "bad" probe state, so the next scheduler
// cycle picks up a fingerprint shift immediately rather than waiting for
// the regular update-upstream-versions sweep (spec.md §4.10).
func (r *Reactor) reactToPush(ctx context.Context, feedstockName string) error {
	pkgName, err := r.findPackageByFeedstock(ctx, feedstockName)
	if err != nil {
		return err
	}
	if pkgName == "" {
		return nil
	}

	return r.Store.WithWriteScope(ctx, store.Key(record.PackageKey(pkgName)), func(ctx context.Context) error {
		pkgHandle := store.NewLazyHandle[record.Package](r.Store, store.Key(record.PackageKey(pkgName)))
		if err := pkgHandle.Load(ctx); err != nil {
			return err
		}
		if !pkgHandle.Loaded() {
			return nil
		}

		result, err := r.Probes.Probe(ctx, &pkgHandle.Value)
		if err != nil {
			return err
		}

		versionHandle := store.NewLazyHandle[record.Version](r.Store, store.Key(record.VersionKey(pkgName)))
		if err := versionHandle.Load(ctx); err != nil {
			return err
		}
		if result.Kind == probe.Found {
			versionHandle.Value.NewVersion = result.Version
			versionHandle.Value.Bad = nil
		}
		versionHandle.MarkDirty()
		_, err = versionHandle.Flush(ctx)
		return err
	})
}

// findPackageByFeedstock scans package records for the one whose
// FeedstockName matches. Like findOwningPackage, this leans on the
// store's key listing rather than a reverse index, acceptable for a
// single-feedstock, operator-triggered event.
func (r *Reactor) findPackageByFeedstock(ctx context.Context, feedstockName string) (string, error) {
	keys, err := r.Store.KeysPrefix(ctx, "package:")
	if err != nil {
		return "", err
	}
	for _, key := range keys {
		h := store.NewLazyHandle[record.Package](r.Store, key)
		if err := h.Load(ctx); err != nil {
			continue
		}
		if h.Value.FeedstockName == feedstockName {
			return h.Value.Name, nil
		}
	}
	return "", nil
}
