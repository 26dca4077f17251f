// Package httpserver implements a backend that talks to a question answering
// inference server over HTTP, optionally starting that server itself.
package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ramili4/ml-ci-pipeline/internal/backend"
)

const (
	BackendName = "qa-http"
	AnswerPath  = "/v1/question-answering"
	HealthPath  = "/health"

	maxErrorBody = 4 << 10
)

// Backend implements backend.Backend over HTTP.
type Backend struct {
	baseURL       string
	client        *http.Client
	serverManager *backend.ServerManager
	server        *backend.ServerConfig

	mu        sync.RWMutex
	modelPath string
}

// Option configures a Backend.
type Option func(*Backend)

// WithClient sets the HTTP client used for inference calls.
func WithClient(c *http.Client) Option {
	return func(b *Backend) { b.client = c }
}

// WithManagedServer makes Load start the inference server through sm.
// The model directory and port are appended to cfg.Args on Load.
func WithManagedServer(sm *backend.ServerManager, cfg backend.ServerConfig) Option {
	return func(b *Backend) {
		if cfg.Name == "" {
			cfg.Name = BackendName
		}
		b.serverManager = sm
		b.server = &cfg
		b.baseURL = cfg.BaseURL()
	}
}

// NewBackend creates a Backend for the server at baseURL.
func NewBackend(baseURL string, opts ...Option) *Backend {
	b := &Backend{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Provider implements backend.Backend.
func (b *Backend) Provider() backend.Provider {
	return backend.ProviderHTTP
}

// BaseURL returns the inference server URL.
func (b *Backend) BaseURL() string {
	return b.baseURL
}

// Load implements backend.Backend.
func (b *Backend) Load(ctx context.Context, modelPath string) error {
	healthPath := HealthPath

	if b.server != nil {
		cfg := *b.server
		cfg.Args = append([]string{"--model", modelPath, "--port", strconv.Itoa(cfg.Port)}, cfg.Args...)
		if cfg.HealthPath != "" {
			healthPath = cfg.HealthPath
		}

		if err := b.serverManager.StartServer(ctx, cfg); err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+healthPath, http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("inference server unreachable at %s: %w", b.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("inference server not healthy: %s", responseError(resp))
	}

	b.mu.Lock()
	b.modelPath = modelPath
	b.mu.Unlock()

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

	body, err := json.Marshal(wire)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+AnswerPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := b.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("inference server error: %s", responseError(resp))
	}

	var result map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: %w", backend.ErrMalformedResponse, err)
	}

	out, err := backend.DecodeResult(result)
	if err != nil {
		return nil, err
	}

	out.Metadata = &backend.ResponseMetadata{
		Provider:  backend.ProviderHTTP,
		Model:     modelPath,
		Timestamp: time.Now(),
		Duration:  time.Since(start),
		BackendSpecific: map[string]any{
			"url":         b.baseURL,
			"status_code": resp.StatusCode,
		},
	}

	return out, nil
}

// Close implements backend.Backend.
func (b *Backend) Close() error {
	if b.server == nil {
		return nil
	}
	return b.serverManager.StopServer(b.server.Name, b.server.Port)
}

// responseError renders a non-200 response, preferring an {"error": "..."} body.
func responseError(resp *http.Response) string {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var payload struct {
		Error  string `json:"error"`
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(data, &payload); err == nil {
		if payload.Error != "" {
			return fmt.Sprintf("%s: %s", resp.Status, payload.Error)
		}
		if payload.Detail != "" {
			return fmt.Sprintf("%s: %s", resp.Status, payload.Detail)
		}
	}

	if s := strings.TrimSpace(string(data)); s != "" {
		return fmt.Sprintf("%s: %s", resp.Status, s)
	}
	return resp.Status
}
