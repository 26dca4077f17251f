package model

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ramili4/ml-ci-pipeline/internal/metrics"
)

// LoadFunc loads the model found at path and returns what it inspected.
type LoadFunc func(ctx context.Context, path string) (*Artifacts, error)

// Manager orchestrates the lifecycle of the single served model.
type Manager struct {
	root     string
	instance *Instance
	mu       sync.Mutex
	started  bool
}

// NewManager creates a Manager for the models under root.
func NewManager(root, name, version string) *Manager {
	metrics.SetModelStatus(string(StatusUninitialized))

	return &Manager{
		root:     root,
		instance: NewInstance(name, version),
	}
}

// Root returns the models root directory.
func (m *Manager) Root() string {
	return m.root
}

// Instance returns the process-wide model instance.
func (m *Manager) Instance() *Instance {
	return m.instance
}

// Resolve runs the locator against the models root at call time.
func (m *Manager) Resolve() (string, error) {
	return Locate(m.root)
}

// Load locates the model and hands it to load, driving the instance through
// loading to ready or failed. It may only be called once.
func (m *Manager) Load(ctx context.Context, load LoadFunc) (*Instance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started {
		return m.instance, ErrAlreadyLoaded
	}
	m.started = true

	if err := m.transition(StatusLoading); err != nil {
		return m.instance, err
	}

	path, err := Locate(m.root)
	if err != nil {
		return m.instance, m.fail(fmt.Errorf("failed to locate model: %w", err))
	}
	m.instance.SetPath(path)
	slog.Info("Model located", "root", m.root, "path", path)

	artifacts, err := load(ctx, path)
	if err != nil {
		return m.instance, m.fail(err)
	}
	m.instance.SetArtifacts(artifacts)

	if err := m.transition(StatusReady); err != nil {
		return m.instance, err
	}

	snap := m.instance.Snapshot()
	var format string
	if artifacts != nil {
		if formats := artifacts.Formats(); len(formats) > 0 {
			format = string(formats[0])
		}
	}
	metrics.ModelInfo.WithLabelValues(snap.Name, snap.Version, format).Set(1)

	slog.Info("Model loaded", "path", path, "name", snap.Name, "version", snap.Version, "format", format)
	return m.instance, nil
}

func (m *Manager) transition(status Status) error {
	if err := m.instance.SetStatus(status); err != nil {
		return err
	}
	metrics.SetModelStatus(string(status))
	return nil
}

func (m *Manager) fail(err error) error {
	if terr := m.instance.Fail(err); terr != nil {
		return terr
	}
	metrics.SetModelStatus(string(StatusFailed))
	slog.Error("Failed to load model", "root", m.root, "error", err)
	return err
}
