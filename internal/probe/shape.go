package probe

import "strings"

// These predicates classify a package's SourceHint URL by shape, the way
// docbuilder's forge factory dispatches on forge type rather than parsing
// full semantics up front. Order matters: Dispatcher tries git, then
// PyPI, then registry, then falls back to generic HTTP directory listing.

func isGitSource(sourceHint string) bool {
	lower := strings.ToLower(sourceHint)
	if strings.HasSuffix(lower, ".git") {
		return true
	}
	for _, host := range []string{"github.com", "gitlab.com", "codeberg.org", "bitbucket.org"} {
		if strings.Contains(lower, host) {
			return true
		}
	}
	return strings.HasPrefix(lower, "git+")
}

func isPyPISource(sourceHint string) bool {
	lower := strings.ToLower(sourceHint)
	return strings.Contains(lower, "pypi.org") || strings.Contains(lower, "/simple/")
}

func isRegistrySource(sourceHint string) bool {
	lower := strings.ToLower(sourceHint)
	for _, host := range []string{"registry.npmjs.org", "crates.io", "rubygems.org"} {
		if strings.Contains(lower, host) {
			return true
		}
	}
	return false
}

func isHTTPSource(sourceHint string) bool {
	lower := strings.ToLower(sourceHint)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
