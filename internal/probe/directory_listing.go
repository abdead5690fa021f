package probe

import (
	"context"
	"net/http"
	"regexp"
	"time"

	"golang.org/x/net/html"

	ferrors "github.com/pkgforge/feedbot/internal/foundation/errors"
	"github.com/pkgforge/feedbot/internal/record"
	"github.com/pkgforge/feedbot/internal/version"
)

// DirectoryListingProbe fetches a plain HTTP index page (an Apache/nginx
// autoindex, or any page of links to release tarballs) and extracts
// version-looking numbers from anchor hrefs, picking the newest by the
// version comparator. Anchor extraction is grounded on docbuilder's
// linkverify.ExtractLinksFromReader.
type DirectoryListingProbe struct {
	client          *http.Client
	allowPrerelease bool
	versionInLink   *regexp.Regexp
}

// NewDirectoryListingProbe builds a DirectoryListingProbe.
func NewDirectoryListingProbe(allowPrerelease bool) *DirectoryListingProbe {
	return &DirectoryListingProbe{
		client:          &http.Client{Timeout: 30 * time.Second},
		allowPrerelease: allowPrerelease,
		versionInLink:   regexp.MustCompile(`(\d+(?:\.\d+){0,4}(?:[a-zA-Z]+\d*)?)`),
	}
}

func (p *DirectoryListingProbe) Name() string { return "directory_listing" }

func (p *DirectoryListingProbe) Probe(ctx context.Context, pkg *record.Package) (Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pkg.SourceHint, http.NoBody)
	if err != nil {
		return Result{}, ferrors.ProbeError("failed to build directory listing request").
			WithCause(err).WithContext("package", pkg.Name).Build()
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return Result{}, ferrors.ProbeError("directory listing request failed").
			WithCause(err).WithContext("package", pkg.Name).Build()
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return Result{Kind: Unavailable, Reason: "non-200 response from directory listing"}, nil
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return Result{}, ferrors.ProbeError("failed to parse directory listing HTML").
			WithCause(err).WithContext("package", pkg.Name).Build()
	}

	best := pkg.CurrentVersion
	found := false
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			for _, attr := range n.Attr {
				if attr.Key != "href" {
					continue
				}
				m := p.versionInLink.FindStringSubmatch(attr.Val)
				if m == nil {
					continue
				}
				candidate := m[1]
				if !pkg.AllowPrerelease && !p.allowPrerelease && looksLikePrerelease(candidate) {
					continue
				}
				if version.CompareStrings(candidate, best) > 0 {
					best = candidate
					found = true
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	if !found {
		return Result{Kind: Unchanged}, nil
	}
	return Result{Kind: Found, Version: best}, nil
}
