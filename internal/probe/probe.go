// Package probe implements upstream version probing (spec.md §4.3): given
// a package's declared source, determine whether a newer upstream version
// is available. Concrete probes cover git tag feeds, PyPI-style package
// indices, generic HTTP directory listings, and JSON registry feeds; a
// Dispatcher selects one by inspecting the shape of the package's source
// URL, the way docbuilder's forge factory selects a Client by forge type.
package probe

import (
	"context"

	ferrors "github.com/pkgforge/feedbot/internal/foundation/errors"
	"github.com/pkgforge/feedbot/internal/record"
)

// ResultKind classifies the outcome of a probe attempt.
type ResultKind int

const (
	// Unchanged means the probe ran successfully but found nothing newer
	// than the package's current version.
	Unchanged ResultKind = iota
	// Found means the probe found a version newer than current.
	Found
	// Unavailable means the probe could not determine anything (source
	// unreachable, feed empty, shape not recognized) — not itself an
	// error state for the package, just "no news".
	Unavailable
)

// Result is the outcome of probing one package for a new upstream version.
type Result struct {
	Kind    ResultKind
	Version string
	Reason  string
}

// Probe finds the newest available upstream version for a package, never
// returning a candidate version that is not strictly greater than the
// package's CurrentVersion (spec.md §4.3).
type Probe interface {
	Name() string
	Probe(ctx context.Context, pkg *record.Package) (Result, error)
}

// errUnrecognizedSource is returned by Dispatcher.Select when no probe
// claims the package's source hint.
var errUnrecognizedSource = ferrors.ProbeError("no probe recognizes this package's source shape").Build()

// Dispatcher selects a Probe for a package by inspecting the shape of its
// SourceHint URL, trying each registered probe's Matches in order.
type Dispatcher struct {
	probes []Probe
	match  []func(sourceHint string) bool
}

// NewDispatcher builds the default Dispatcher with the standard probe set,
// in the priority order a source shape is tried.
func NewDispatcher(httpTimeout int, allowPrerelease bool) *Dispatcher {
	d := &Dispatcher{}
	d.Register(NewGitTagProbe(), isGitSource)
	d.Register(NewPyPIProbe(), isPyPISource)
	d.Register(NewRegistryFeedProbe(), isRegistrySource)
	d.Register(NewDirectoryListingProbe(allowPrerelease), isHTTPSource)
	return d
}

// Register adds a probe with its source-shape predicate, appended to the
// dispatch priority order.
func (d *Dispatcher) Register(p Probe, matches func(sourceHint string) bool) {
	d.probes = append(d.probes, p)
	d.match = append(d.match, matches)
}

// Select returns the first registered probe whose predicate matches the
// package's SourceHint.
func (d *Dispatcher) Select(pkg *record.Package) (Probe, error) {
	for i, m := range d.match {
		if m(pkg.SourceHint) {
			return d.probes[i], nil
		}
	}
	return nil, errUnrecognizedSource
}

// Probe runs the dispatcher against pkg: selects a probe by source shape
// and delegates to it. Callers never need to know which concrete probe
// ran.
func (d *Dispatcher) Probe(ctx context.Context, pkg *record.Package) (Result, error) {
	p, err := d.Select(pkg)
	if err != nil {
		return Result{Kind: Unavailable, Reason: err.Error()}, nil
	}
	return p.Probe(ctx, pkg)
}
