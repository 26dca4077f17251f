package model

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/ramili4/ml-ci-pipeline/internal/xfs"
)

// Candidates returns the sorted paths of every immediate subdirectory of root.
// Regular files are ignored; symlinks are followed.
func Candidates(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to read models root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrRootNotDirectory, root)
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("failed to read models root: %w", err)
	}

	dirs := make([]string, 0, len(entries))
	for _, entry := range entries {
		path := filepath.Join(root, entry.Name())

		isDir := entry.IsDir()
		if entry.Type()&os.ModeSymlink != 0 {
			isDir = xfs.IsDir(path)
		}

		if isDir {
			dirs = append(dirs, path)
		}
	}

	sort.Strings(dirs)
	return dirs, nil
}

// Locate returns the single model directory under root.
//
// It fails with ErrNoModelFound when root has no subdirectory and with an
// *AmbiguousModelError naming every candidate when it has more than one.
func Locate(root string) (string, error) {
	dirs, err := Candidates(root)
	if err != nil {
		return "", err
	}

	switch len(dirs) {
	case 0:
		return "", noModelFound(root)
	case 1:
		return dirs[0], nil
	default:
		return "", &AmbiguousModelError{Root: root, Candidates: dirs}
	}
}

// EnsureRoot creates the models root if it does not exist.
func EnsureRoot(root string) error {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return fmt.Errorf("failed to create models root %s: %w", root, err)
	}
	return nil
}

// Purge recursively removes every subdirectory of root and returns the removed paths.
//
// Purge is destructive and is never run implicitly: callers invoke it right before
// placing a fresh model under root.
func Purge(root string) ([]string, error) {
	dirs, err := Candidates(root)
	if err != nil {
		return nil, err
	}

	removed := make([]string, 0, len(dirs))
	for _, dir := range dirs {
		if err := os.RemoveAll(dir); err != nil {
			return removed, fmt.Errorf("failed to remove %s: %w", dir, err)
		}
		removed = append(removed, dir)
		slog.Info("Removed model directory", "path", dir)
	}

	return removed, nil
}
