// Package source fetches model directories into the models root.
package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ramili4/ml-ci-pipeline/internal/backend"
	"github.com/ramili4/ml-ci-pipeline/internal/config"
)

const (
	// DefaultHuggingFaceBin is the Hugging Face CLI looked up on PATH.
	DefaultHuggingFaceBin = "hf"

	// DefaultDownloadTimeout bounds a single download.
	DefaultDownloadTimeout = 30 * time.Minute

	markerFilename = ".qaserve-downloaded"
)

// ErrInvalidRepo is returned for an empty or malformed repository name.
var ErrInvalidRepo = errors.New("invalid repo name")

// HuggingFaceDownloader downloads a model repository with the Hugging Face CLI.
type HuggingFaceDownloader struct {
	executor *backend.Executor
}

// NewHuggingFaceDownloader resolves bin on PATH and creates a downloader.
func NewHuggingFaceDownloader(bin string, timeout time.Duration) (*HuggingFaceDownloader, error) {
	if bin == "" {
		bin = DefaultHuggingFaceBin
	}

	path, err := exec.LookPath(bin)
	if err != nil {
		return nil, fmt.Errorf("hugging face cli not found: %w", err)
	}

	executor, err := backend.NewExecutor(path, timeout)
	if err != nil {
		return nil, err
	}

	return &HuggingFaceDownloader{executor: executor}, nil
}

// NewHuggingFaceDownloaderWithExecutor creates a downloader around an existing executor.
func NewHuggingFaceDownloaderWithExecutor(executor *backend.Executor) *HuggingFaceDownloader {
	return &HuggingFaceDownloader{executor: executor}
}

// DirName maps a repository id like "org/name" to the directory "org--name",
// so that the download is a single direct child of the models root.
func DirName(repo string) string {
	return strings.ReplaceAll(strings.Trim(repo, "/"), "/", "--")
}

// Download fetches src into root/DirName(src.Repo). cached is true when a marker
// from an identical earlier download was found and nothing was fetched.
func (d *HuggingFaceDownloader) Download(ctx context.Context, src config.HuggingFaceSource, root string) (path string, cached bool, err error) {
	repo := strings.TrimSpace(src.Repo)
	if repo == "" || strings.Contains(repo, "..") {
		return "", false, fmt.Errorf("%w: %q", ErrInvalidRepo, src.Repo)
	}

	path = filepath.Join(root, DirName(repo))
	markerPath := filepath.Join(path, markerFilename)
	expected := markerContent(repo, src.Revision)

	if !src.ForceDownload && !shouldRedownload(markerPath, expected) {
		slog.Info("Model already downloaded and up-to-date, skipping", "repo", repo, "path", path)
		return path, true, nil
	}

	if err := os.MkdirAll(path, 0o755); err != nil {
		return "", false, fmt.Errorf("failed to create directory: %w", err)
	}

	slog.Info("Downloading model", "repo", repo, "path", path)
	start := time.Now()

	if _, err := d.executor.Execute(ctx, Args(src, path), nil); err != nil {
		return "", false, fmt.Errorf("failed to download %s: %w", repo, err)
	}

	if err := os.WriteFile(markerPath, []byte(expected), 0o644); err != nil {
		slog.Warn("Failed to write download marker", "path", markerPath, "error", err)
	}

	slog.Info("Model downloaded", "repo", repo, "path", path, "duration", time.Since(start))
	return path, false, nil
}

// Args builds the CLI arguments for downloading src into dir.
func Args(src config.HuggingFaceSource, dir string) []string {
	args := []string{
		"download",
		strings.TrimSpace(src.Repo),
		"--local-dir", dir,
	}

	if src.Revision != "" {
		args = append(args, "--revision", src.Revision)
	}
	for _, inc := range src.Include {
		args = append(args, "--include", inc)
	}
	for _, exc := range src.Exclude {
		args = append(args, "--exclude", exc)
	}
	if src.ForceDownload {
		args = append(args, "--force-download")
	}
	if src.Token != "" {
		args = append(args, "--token", src.Token)
	}
	if src.MaxWorkers > 0 {
		args = append(args, "--max-workers", strconv.Itoa(src.MaxWorkers))
	}

	return args
}

func markerContent(repo, revision string) string {
	return fmt.Sprintf("repo: %s\nrevision: %s\n", repo, revision)
}

// shouldRedownload reports whether the marker at markerPath is missing or stale.
func shouldRedownload(markerPath, expected string) bool {
	content, err := os.ReadFile(markerPath)
	if err != nil {
		return true
	}

	if string(content) != expected {
		slog.Info("Model source changed, will redownload", "marker_path", markerPath)
		return true
	}

	return false
}
