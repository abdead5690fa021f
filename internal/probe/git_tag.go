package probe

import (
	"context"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/storage/memory"

	ferrors "github.com/pkgforge/feedbot/internal/foundation/errors"
	"github.com/pkgforge/feedbot/internal/record"
	"github.com/pkgforge/feedbot/internal/version"
)

// GitTagProbe lists a remote's tags via a bare ls-remote (no clone) and
// picks the newest tag by the version comparator, grounded on
// docbuilder's internal/git.Client.ListRemoteReferences pattern.
type GitTagProbe struct {
	allowPrerelease bool
}

// NewGitTagProbe builds a GitTagProbe.
func NewGitTagProbe() *GitTagProbe { return &GitTagProbe{} }

func (p *GitTagProbe) Name() string { return "git_tag" }

func (p *GitTagProbe) Probe(ctx context.Context, pkg *record.Package) (Result, error) {
	url := strings.TrimPrefix(pkg.SourceHint, "git+")
	remote := git.NewRemote(memory.NewStorage(), &config.RemoteConfig{
		Name: "origin",
		URLs: []string{url},
	})

	refs, err := remote.List(&git.ListOptions{})
	if err != nil {
		return Result{}, ferrors.ProbeError("failed to list remote git tags").
			WithCause(err).
			WithContext("package", pkg.Name).
			WithContext("source", url).
			Build()
	}

	best := pkg.CurrentVersion
	found := false
	for _, ref := range refs {
		if ref.Type() == plumbing.SymbolicReference {
			continue
		}
		name := ref.Name()
		if !name.IsTag() {
			continue
		}
		candidate := strings.TrimPrefix(name.Short(), "v")
		if !pkg.AllowPrerelease && looksLikePrerelease(candidate) {
			continue
		}
		if version.CompareStrings(candidate, best) > 0 {
			best = candidate
			found = true
		}
	}

	if !found {
		return Result{Kind: Unchanged}, nil
	}
	return Result{Kind: Found, Version: best}, nil
}

func looksLikePrerelease(v string) bool {
	lower := strings.ToLower(v)
	for _, marker := range []string{"dev", "alpha", "beta", "rc", "a1", "b1"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
