// Package workspace manages the scratch root a scheduler cycle clones and
// migrates feedstocks under: spec.md §6's TMPDIR, "emptied at run start
// and end". Grounded on docbuilder's workspace.Manager (ephemeral
// timestamped directory vs. fixed persistent directory), generalized from
// one doc-build's working tree to one migration cycle's scratch root.
package workspace

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/pkgforge/feedbot/internal/logfields"
)

// Manager handles the TMPDIR scratch root (both ephemeral per-cycle and
// fixed persistent forms).
type Manager struct {
	baseDir    string
	tempDir    string
	persistent bool // If true, use baseDir directly without timestamps
}

// NewManager creates a new scratch-root manager with ephemeral
// timestamped directories, rooted at TMPDIR (baseDir).
func NewManager(baseDir string) *Manager {
	if baseDir == "" {
		baseDir = os.TempDir()
	}
	return &Manager{
		baseDir:    baseDir,
		persistent: false,
	}
}

// NewPersistentManager creates a workspace manager that uses a persistent directory.
// The workspace directory is fixed (baseDir/subdirName) and not cleaned up on Cleanup().
func NewPersistentManager(baseDir, subdirName string) *Manager {
	if baseDir == "" {
		baseDir = os.TempDir()
	}
	if subdirName == "" {
		subdirName = "working"
	}
	return &Manager{
		baseDir:    baseDir,
		tempDir:    filepath.Join(baseDir, subdirName),
		persistent: true,
	}
}

// Create creates a workspace directory
// For ephemeral mode: creates a timestamped directory
// For persistent mode: ensures the fixed directory exists
func (m *Manager) Create() error {
	if m.persistent {
		// Persistent mode: use fixed directory
		if err := os.MkdirAll(m.tempDir, 0o750); err != nil {
			return fmt.Errorf("failed to create persistent workspace directory: %w", err)
		}
		slog.Info("Using persistent workspace", logfields.Path(m.tempDir))
		return nil
	}

	// Ephemeral mode: create timestamped directory
	timestamp := time.Now().Format("20060102-150405")
	tempDir := filepath.Join(m.baseDir, fmt.Sprintf("feedbot-%s", timestamp))

	if err := os.MkdirAll(tempDir, 0o750); err != nil {
		return fmt.Errorf("failed to create workspace directory: %w", err)
	}

	m.tempDir = tempDir
	slog.Info("Created workspace", logfields.Path(tempDir))
	return nil
}

// GetPath returns the path to the workspace directory
func (m *Manager) GetPath() string {
	return m.tempDir
}

// Cleanup removes the workspace directory
// For persistent mode: does nothing (keeps directory for incremental builds)
// For ephemeral mode: removes the timestamped directory
func (m *Manager) Cleanup() error {
	if m.tempDir == "" {
		return nil
	}

	if m.persistent {
		// Persistent mode: don't delete the directory
		slog.Debug("Skipping cleanup for persistent workspace", logfields.Path(m.tempDir))
		return nil
	}

	// Ephemeral mode: remove directory
	if err := os.RemoveAll(m.tempDir); err != nil {
		return fmt.Errorf("failed to cleanup workspace: %w", err)
	}

	slog.Info("Cleaned up workspace", logfields.Path(m.tempDir))
	m.tempDir = ""
	return nil
}

// EmptyRoot removes and recreates root's contents, implementing spec.md
// §6's "TMPDIR: scratch root; emptied at run start and end". Called once
// before a scheduler cycle begins and once after it ends (success or
// failure), independent of any single Manager's own Create/Cleanup.
func EmptyRoot(root string) error {
	entries, err := os.ReadDir(root)
	if os.IsNotExist(err) {
		return os.MkdirAll(root, 0o750)
	}
	if err != nil {
		return fmt.Errorf("failed to read scratch root: %w", err)
	}
	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(root, entry.Name())); err != nil {
			return fmt.Errorf("failed to empty scratch root: %w", err)
		}
	}
	return nil
}

// CreateSubdir creates a subdirectory within the workspace
func (m *Manager) CreateSubdir(name string) (string, error) {
	if m.tempDir == "" {
		return "", fmt.Errorf("workspace not created")
	}

	subdir := filepath.Join(m.tempDir, name)
	if err := os.MkdirAll(subdir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create subdirectory: %w", err)
	}

	return subdir, nil
}
