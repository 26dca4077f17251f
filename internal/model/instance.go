package model

import (
	"fmt"
	"sync"
	"time"
)

// Status is the current loading status of the model.
type Status string

const (
	// StatusUninitialized indicates that loading has not started.
	StatusUninitialized Status = "uninitialized"

	// StatusLoading indicates that the model is being located and loaded.
	StatusLoading Status = "loading"

	// StatusReady indicates that the model is loaded and serving.
	StatusReady Status = "ready"

	// StatusFailed indicates that the model failed to load.
	StatusFailed Status = "failed"
)

// transitions lists the legal successors of each status.
var transitions = map[Status][]Status{
	StatusUninitialized: {StatusLoading},
	StatusLoading:       {StatusReady, StatusFailed},
}

// Instance represents the process-wide model. It is read-only once ready.
type Instance struct {
	mu        sync.RWMutex
	name      string
	version   string
	path      string
	artifacts *Artifacts
	status    Status
	loadedAt  time.Time
	err       error
}

// Snapshot is a consistent copy of an Instance.
type Snapshot struct {
	Name      string     `json:"name,omitempty"`
	Version   string     `json:"version,omitempty"`
	Path      string     `json:"path,omitempty"`
	Artifacts *Artifacts `json:"artifacts,omitempty"`
	Status    Status     `json:"status"`
	LoadedAt  *time.Time `json:"loaded_at,omitempty"`
	Error     string     `json:"error,omitempty"`
}

// NewInstance creates an uninitialized model instance.
func NewInstance(name, version string) *Instance {
	return &Instance{
		name:    name,
		version: version,
		status:  StatusUninitialized,
	}
}

// SetStatus moves the instance to status, rejecting transitions the lifecycle forbids.
func (mi *Instance) SetStatus(status Status) error {
	mi.mu.Lock()
	defer mi.mu.Unlock()

	for _, next := range transitions[mi.status] {
		if next == status {
			mi.status = status
			if status == StatusReady {
				mi.loadedAt = time.Now()
			}
			return nil
		}
	}

	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, mi.status, status)
}

// Fail records err and moves the instance to failed.
func (mi *Instance) Fail(err error) error {
	if terr := mi.SetStatus(StatusFailed); terr != nil {
		return terr
	}

	mi.mu.Lock()
	mi.err = err
	mi.mu.Unlock()
	return nil
}

// SetPath records the located model directory.
func (mi *Instance) SetPath(path string) {
	mi.mu.Lock()
	defer mi.mu.Unlock()

	mi.path = path
}

// SetArtifacts records the inspected artifacts.
func (mi *Instance) SetArtifacts(a *Artifacts) {
	mi.mu.Lock()
	defer mi.mu.Unlock()

	mi.artifacts = a
}

// Path returns the located model directory, empty until located.
func (mi *Instance) Path() string {
	mi.mu.RLock()
	defer mi.mu.RUnlock()

	return mi.path
}

// Status returns the current status.
func (mi *Instance) Status() Status {
	mi.mu.RLock()
	defer mi.mu.RUnlock()

	return mi.status
}

// Err returns the load error, if any.
func (mi *Instance) Err() error {
	mi.mu.RLock()
	defer mi.mu.RUnlock()

	return mi.err
}

// Snapshot returns a copy of the instance state.
func (mi *Instance) Snapshot() Snapshot {
	mi.mu.RLock()
	defer mi.mu.RUnlock()

	s := Snapshot{
		Name:      mi.name,
		Version:   mi.version,
		Path:      mi.path,
		Artifacts: mi.artifacts,
		Status:    mi.status,
	}
	if !mi.loadedAt.IsZero() {
		t := mi.loadedAt
		s.LoadedAt = &t
	}
	if mi.err != nil {
		s.Error = mi.err.Error()
	}
	return s
}
