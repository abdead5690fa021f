package forge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"

	"github.com/pkgforge/feedbot/internal/retry"
)

// GitHubGateway implements Gateway against the GitHub REST API, grounded
// on docbuilder's forge.GitHubClient (BaseForge-style request building,
// token-bearer auth) with clone/branch/commit/push added on top via
// go-git, replacing docbuilder's read-only discovery client with a
// read-write one.
type GitHubGateway struct {
	httpClient *http.Client
	apiURL     string
	token      string
	botLogin   string
	policy     retry.Policy
}

// NewGitHubGateway builds a GitHubGateway authenticated with token.
func NewGitHubGateway(apiURL, token, botLogin string) *GitHubGateway {
	if apiURL == "" {
		apiURL = "https://api.github.com"
	}
	return &GitHubGateway{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		apiURL:     apiURL,
		token:      token,
		botLogin:   botLogin,
		policy:     retry.DefaultPolicy(),
	}
}

func (g *GitHubGateway) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, newError(Transient, "failed to marshal request body", err, nil)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = http.NoBody
	}
	req, err := http.NewRequestWithContext(ctx, method, g.apiURL+path, reader)
	if err != nil {
		return nil, newError(Transient, "failed to build request", err, map[string]any{"path": path})
	}
	req.Header.Set("Authorization", "Bearer "+g.token)
	req.Header.Set("Accept", "application/vnd.github+json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func (g *GitHubGateway) do(req *http.Request, out any) error {
	resp, err := g.httpClient.Do(req)
	if err != nil {
		return newError(Transient, "forge request failed", err, map[string]any{"url": req.URL.String()})
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusNotFound:
		return newError(NotFound, "resource not found", nil, map[string]any{"url": req.URL.String()})
	case http.StatusUnauthorized, http.StatusForbidden:
		if resp.Header.Get("X-RateLimit-Remaining") == "0" {
			return newError(RateLimited, "forge rate limit exhausted", nil, nil)
		}
		return newError(AuthFailed, "forge authentication failed", nil, nil)
	case http.StatusGone:
		return newError(Archived, "repository archived", nil, nil)
	case http.StatusUnprocessableEntity:
		return newError(ValidationFailed, "forge validation failed", nil, nil)
	}
	if resp.StatusCode >= 300 {
		return newError(Transient, "unexpected forge response", nil, map[string]any{"status": resp.StatusCode})
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return newError(Transient, "failed to decode forge response", err, nil)
	}
	return nil
}

func (g *GitHubGateway) Fork(ctx context.Context, feedstockName string) (string, error) {
	req, err := g.newRequest(ctx, http.MethodPost, "/repos/"+feedstockName+"/forks", nil)
	if err != nil {
		return "", err
	}
	var fork struct {
		CloneURL string `json:"clone_url"`
	}
	if err := g.do(req, &fork); err != nil {
		return "", err
	}
	return fork.CloneURL, nil
}

func (g *GitHubGateway) Clone(ctx context.Context, feedstockName, branch string) (*WorkingTree, error) {
	cloneURL, err := g.Fork(ctx, feedstockName)
	if err != nil {
		return nil, err
	}

	dir, mkErr := os.MkdirTemp("", "feedbot-clone-*")
	if mkErr != nil {
		return nil, newError(Transient, "failed to create working directory", mkErr, nil)
	}

	var repo *git.Repository
	attempts := g.policy.MaxRetries + 1
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			time.Sleep(g.policy.Delay(attempt))
		}
		repo, err = git.PlainCloneContext(ctx, dir, false, &git.CloneOptions{
			URL:   cloneURL,
			Auth:  &githttp.BasicAuth{Username: g.botLogin, Password: g.token},
			Depth: 1,
		})
		if err == nil {
			break
		}
	}
	if err != nil {
		return nil, newError(Transient, "failed to clone feedstock", err, map[string]any{"feedstock": feedstockName})
	}

	wt, err := repo.Worktree()
	if err != nil {
		return nil, newError(Transient, "failed to open worktree", err, nil)
	}
	headRef, err := repo.Head()
	if err != nil {
		return nil, newError(Transient, "failed to resolve HEAD", err, nil)
	}
	branchRef := plumbing.NewBranchReferenceName(branch)
	if err := wt.Checkout(&git.CheckoutOptions{
		Hash:   headRef.Hash(),
		Branch: branchRef,
		Create: true,
	}); err != nil {
		return nil, newError(Transient, "failed to create working branch", err, map[string]any{"branch": branch})
	}

	return &WorkingTree{RecipeDir: dir, Branch: branch, BaseRef: headRef.Name().Short()}, nil
}

func (g *GitHubGateway) Commit(_ context.Context, tree *WorkingTree, message string) error {
	repo, err := git.PlainOpen(tree.RecipeDir)
	if err != nil {
		return newError(Transient, "failed to open working tree", err, nil)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return newError(Transient, "failed to open worktree", err, nil)
	}
	if err := wt.AddGlob(filepath.Join(tree.RecipeDir, "*")); err != nil {
		return newError(Transient, "failed to stage changes", err, nil)
	}
	if _, err := wt.Commit(message, &git.CommitOptions{}); err != nil {
		return newError(Transient, "failed to commit", err, nil)
	}
	return nil
}

func (g *GitHubGateway) Push(ctx context.Context, tree *WorkingTree) error {
	repo, err := git.PlainOpen(tree.RecipeDir)
	if err != nil {
		return newError(Transient, "failed to open working tree", err, nil)
	}
	err = repo.PushContext(ctx, &git.PushOptions{
		RemoteName: "origin",
		Auth:       &githttp.BasicAuth{Username: g.botLogin, Password: g.token},
	})
	if err != nil && err != git.NoErrAlreadyUpToDate {
		return newError(Transient, "failed to push branch", err, map[string]any{"branch": tree.Branch})
	}
	return nil
}

func (g *GitHubGateway) OpenPR(ctx context.Context, feedstockName string, tree *WorkingTree, title, body string) (*PR, error) {
	payload := map[string]any{
		"title": title,
		"body":  body,
		"head":  g.botLogin + ":" + tree.Branch,
		"base":  tree.BaseRef,
	}
	req, err := g.newRequest(ctx, http.MethodPost, "/repos/"+feedstockName+"/pulls", payload)
	if err != nil {
		return nil, err
	}
	var resp struct {
		ID      int64  `json:"id"`
		Number  int    `json:"number"`
		HTMLURL string `json:"html_url"`
		State   string `json:"state"`
	}
	if err := g.do(req, &resp); err != nil {
		return nil, err
	}
	return &PR{ID: strconv.FormatInt(resp.ID, 10), Number: resp.Number, HTMLURL: resp.HTMLURL, State: resp.State}, nil
}

func (g *GitHubGateway) Label(ctx context.Context, feedstockName string, prNumber int, labels []string) error {
	req, err := g.newRequest(ctx, http.MethodPost,
		fmt.Sprintf("/repos/%s/issues/%d/labels", feedstockName, prNumber),
		map[string]any{"labels": labels})
	if err != nil {
		return err
	}
	return g.do(req, nil)
}

func (g *GitHubGateway) GetPR(ctx context.Context, feedstockName string, prNumber int) (*PR, error) {
	req, err := g.newRequest(ctx, http.MethodGet, fmt.Sprintf("/repos/%s/pulls/%d", feedstockName, prNumber), nil)
	if err != nil {
		return nil, err
	}
	var resp struct {
		ID      int64  `json:"id"`
		Number  int    `json:"number"`
		HTMLURL string `json:"html_url"`
		State   string `json:"state"`
		Merged  bool   `json:"merged"`
	}
	if err := g.do(req, &resp); err != nil {
		return nil, err
	}
	state := resp.State
	if resp.Merged {
		state = "merged"
	}
	return &PR{ID: strconv.FormatInt(resp.ID, 10), Number: resp.Number, HTMLURL: resp.HTMLURL, State: state}, nil
}

func (g *GitHubGateway) RateRemaining(ctx context.Context) (int, error) {
	req, err := g.newRequest(ctx, http.MethodGet, "/rate_limit", nil)
	if err != nil {
		return 0, err
	}
	var resp struct {
		Resources struct {
			Core struct {
				Remaining int `json:"remaining"`
			} `json:"core"`
		} `json:"resources"`
	}
	if err := g.do(req, &resp); err != nil {
		return 0, err
	}
	return resp.Resources.Core.Remaining, nil
}

// ListOrgRepos pages through an organization's repositories (100 per
// page, GitHub's max), skipping archived ones.
func (g *GitHubGateway) ListOrgRepos(ctx context.Context, org string) ([]string, error) {
	var names []string
	for page := 1; ; page++ {
		path := fmt.Sprintf("/orgs/%s/repos?per_page=100&page=%d", org, page)
		req, err := g.newRequest(ctx, http.MethodGet, path, nil)
		if err != nil {
			return nil, err
		}
		var resp []struct {
			Name     string `json:"name"`
			Archived bool   `json:"archived"`
		}
		if err := g.do(req, &resp); err != nil {
			return nil, err
		}
		if len(resp) == 0 {
			break
		}
		for _, r := range resp {
			if !r.Archived {
				names = append(names, r.Name)
			}
		}
		if len(resp) < 100 {
			break
		}
	}
	return names, nil
}
