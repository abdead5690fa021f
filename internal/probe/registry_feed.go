package probe

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	ferrors "github.com/pkgforge/feedbot/internal/foundation/errors"
	"github.com/pkgforge/feedbot/internal/record"
	"github.com/pkgforge/feedbot/internal/version"
)

// RegistryFeedProbe reads a generic JSON registry feed (npm, crates.io,
// rubygems-shaped: a top-level "versions" array/object of version
// strings) and picks the newest by the version comparator.
type RegistryFeedProbe struct {
	client *http.Client
}

// NewRegistryFeedProbe builds a RegistryFeedProbe.
func NewRegistryFeedProbe() *RegistryFeedProbe {
	return &RegistryFeedProbe{client: &http.Client{Timeout: 30 * time.Second}}
}

type registryFeedResponse struct {
	Versions map[string]json.RawMessage `json:"versions"`
}

func (p *RegistryFeedProbe) Name() string { return "registry_feed" }

func (p *RegistryFeedProbe) Probe(ctx context.Context, pkg *record.Package) (Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pkg.SourceHint, http.NoBody)
	if err != nil {
		return Result{}, ferrors.ProbeError("failed to build registry feed request").
			WithCause(err).WithContext("package", pkg.Name).Build()
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return Result{}, ferrors.ProbeError("registry feed request failed").
			WithCause(err).WithContext("package", pkg.Name).Build()
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return Result{Kind: Unavailable, Reason: "non-200 response from registry feed"}, nil
	}

	var parsed registryFeedResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return Result{}, ferrors.ProbeError("failed to decode registry feed response").
			WithCause(err).WithContext("package", pkg.Name).Build()
	}

	best := pkg.CurrentVersion
	found := false
	for ver := range parsed.Versions {
		if !pkg.AllowPrerelease && looksLikePrerelease(ver) {
			continue
		}
		if version.CompareStrings(ver, best) > 0 {
			best = ver
			found = true
		}
	}

	if !found {
		return Result{Kind: Unchanged}, nil
	}
	return Result{Kind: Found, Version: best}, nil
}
