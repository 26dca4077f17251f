// Package command implements a backend that runs a question answering program
// once per request: a JSON request on stdin, a JSON result on stdout.
package command

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/ramili4/ml-ci-pipeline/internal/backend"
)

// Backend implements backend.Backend by executing a binary.
type Backend struct {
	executor *backend.Executor
	args     []string

	mu        sync.RWMutex
	modelPath string
}

// NewBackend creates a Backend that runs binPath with args after the model flag.
func NewBackend(binPath string, args []string) (*Backend, error) {
	exec, err := backend.NewExecutor(binPath, 0)
	if err != nil {
		return nil, err
	}

	return NewBackendWithExecutor(exec, args), nil
}

// NewBackendWithExecutor creates a Backend around an existing executor.
func NewBackendWithExecutor(exec *backend.Executor, args []string) *Backend {
	return &Backend{
		executor: exec,
		args:     args,
	}
}

// Provider implements backend.Backend.
func (b *Backend) Provider() backend.Provider {
	return backend.ProviderCommand
}

// Load implements backend.Backend. The program is only run per request, so
// loading records the model directory.
func (b *Backend) Load(_ context.Context, modelPath string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.modelPath = modelPath
	return nil
}

// Answer implements backend.Backend.
func (b *Backend) Answer(ctx context.Context, req *backend.Request) (*backend.Response, error) {
	b.mu.RLock()
	modelPath := b.modelPath
	b.mu.RUnlock()

	if modelPath == "" {
		return nil, backend.ErrNotLoaded
	}

	wire := backend.NewWireRequest(req)
	wire.ModelDir = modelPath

	input, err := json.Marshal(wire)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	args := append([]string{"--model", modelPath}, b.args...)

	start := time.Now()
	stdout, err := b.executor.Execute(ctx, args, bytes.NewReader(input))
	if err != nil {
		return nil, err
	}

	var result map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(stdout), &result); err != nil {
		return nil, fmt.Errorf("%w: %w", backend.ErrMalformedResponse, err)
	}

	resp, err := backend.DecodeResult(result)
	if err != nil {
		return nil, err
	}

	resp.Metadata = &backend.ResponseMetadata{
		Provider:  backend.ProviderCommand,
		Model:     modelPath,
		Timestamp: time.Now(),
		Duration:  time.Since(start),
		BackendSpecific: map[string]any{
			"binary": b.executor.BinaryPath(),
		},
	}

	return resp, nil
}

// Close implements backend.Backend.
func (b *Backend) Close() error {
	return nil
}
