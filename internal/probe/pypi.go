package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	ferrors "github.com/pkgforge/feedbot/internal/foundation/errors"
	"github.com/pkgforge/feedbot/internal/record"
	"github.com/pkgforge/feedbot/internal/version"
)

// PyPIProbe reads a PyPI-style JSON package index (`<base>/<name>/json`)
// and picks the newest release by the version comparator.
type PyPIProbe struct {
	client *http.Client
}

// NewPyPIProbe builds a PyPIProbe with a bounded HTTP client.
func NewPyPIProbe() *PyPIProbe {
	return &PyPIProbe{client: &http.Client{Timeout: 30 * time.Second}}
}

type pypiIndexResponse struct {
	Releases map[string][]struct {
		YankedReason string `json:"yanked_reason"`
		Yanked       bool   `json:"yanked"`
	} `json:"releases"`
}

func (p *PyPIProbe) Name() string { return "pypi" }

func (p *PyPIProbe) Probe(ctx context.Context, pkg *record.Package) (Result, error) {
	url := pkg.SourceHint
	if url == "" {
		url = fmt.Sprintf("https://pypi.org/pypi/%s/json", pkg.Name)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return Result{}, ferrors.ProbeError("failed to build PyPI request").
			WithCause(err).WithContext("package", pkg.Name).Build()
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return Result{}, ferrors.ProbeError("PyPI request failed").
			WithCause(err).WithContext("package", pkg.Name).Build()
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return Result{Kind: Unavailable, Reason: "package not found on PyPI"}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return Result{}, ferrors.ProbeError("PyPI returned a non-200 response").
			WithContext("package", pkg.Name).
			WithContext("status", resp.StatusCode).
			Build()
	}

	var parsed pypiIndexResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return Result{}, ferrors.ProbeError("failed to decode PyPI response").
			WithCause(err).WithContext("package", pkg.Name).Build()
	}

	best := pkg.CurrentVersion
	found := false
	for ver, files := range parsed.Releases {
		if len(files) == 0 {
			continue // no distributable files for this release, skip
		}
		allYanked := true
		for _, f := range files {
			if !f.Yanked {
				allYanked = false
				break
			}
		}
		if allYanked {
			continue
		}
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
