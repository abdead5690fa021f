package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"

	"github.com/pkgforge/feedbot/internal/config"
)

// SyncLazyJSONCmd implements sync-lazy-json-across-backends.
type SyncLazyJSONCmd struct{}

func (c *SyncLazyJSONCmd) Run(cli *CLI) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	st, err := buildStore(cli, cfg)
	if err != nil {
		return err
	}

	copied, err := st.SyncAcrossBackends(context.Background())
	if err != nil {
		return err
	}
	slog.Info("synced graph store across backends", "copied", copied)
	return nil
}

// DeployToGithubCmd implements deploy-to-github: the file backend's root
// directory is itself a git working tree; commit whatever the current run
// mutated and push it, the "external collaborator" spec.md §1 calls out
// as a sibling concern to the scheduler's own per-feedstock commits.
type DeployToGithubCmd struct {
	Message string `help:"Commit message for the graph-store snapshot." default:"feedbot: update graph store"`
}

func (c *DeployToGithubCmd) Run(cli *CLI) error {
	if cli.DryRun {
		slog.Info("dry run: skipping graph store deploy")
		return nil
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	root := cfg.FileRoot
	if root == "" {
		return fmt.Errorf("deploy-to-github requires STORE_DIR to point at a git working tree")
	}

	repo, err := git.PlainOpen(root)
	if err != nil {
		return fmt.Errorf("failed to open graph store as a git repository: %w", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to open worktree: %w", err)
	}
	if err := wt.AddGlob("."); err != nil {
		return fmt.Errorf("failed to stage graph store changes: %w", err)
	}

	status, err := wt.Status()
	if err != nil {
		return fmt.Errorf("failed to read worktree status: %w", err)
	}
	if status.IsClean() {
		slog.Info("graph store unchanged, nothing to deploy")
		return nil
	}

	botLogin := os.Getenv("FORGE_BOT_LOGIN")
	if _, err := wt.Commit(c.Message, &git.CommitOptions{
		Author: &object.Signature{Name: botLogin, When: time.Now()},
	}); err != nil {
		return fmt.Errorf("failed to commit graph store: %w", err)
	}

	err = repo.Push(&git.PushOptions{
		RemoteName: "origin",
		Auth:       &githttp.BasicAuth{Username: botLogin, Password: cfg.ForgeToken},
	})
	if err != nil && err != git.NoErrAlreadyUpToDate {
		return fmt.Errorf("failed to push graph store: %w", err)
	}
	slog.Info("deployed graph store")
	return nil
}
