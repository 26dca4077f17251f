// Package qa wraps a loaded question answering model into a single callable.
package qa

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ramili4/ml-ci-pipeline/internal/backend"
	"github.com/ramili4/ml-ci-pipeline/internal/metrics"
	"github.com/ramili4/ml-ci-pipeline/internal/model"
)

var errScoreOutOfRange = errors.New("score out of range [0, 1]")

// Result is the answer span extracted from the context.
type Result struct {
	Answer string  `json:"answer"`
	Score  float64 `json:"score"`
	Start  int     `json:"start"`
	End    int     `json:"end"`

	// Metadata describes the backend call. It is never part of the answer payload.
	Metadata *backend.ResponseMetadata `json:"-"`
}

// Answerer answers a question about a context.
type Answerer interface {
	Answer(ctx context.Context, question, contextText string) (Result, error)
}

// Adapter is the process-wide inference callable. It is read-only after
// construction and safe for concurrent use.
type Adapter struct {
	backend   backend.Backend
	path      string
	artifacts *model.Artifacts
	timeout   time.Duration
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithTimeout bounds each Answer call. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(a *Adapter) { a.timeout = d }
}

// NewAdapter inspects modelPath and loads it into b.
// Any failure is returned as a *LoadError.
func NewAdapter(ctx context.Context, modelPath string, b backend.Backend, opts ...Option) (*Adapter, error) {
	artifacts, err := model.Inspect(modelPath)
	if err != nil {
		return nil, &LoadError{Path: modelPath, Err: err}
	}

	if err := b.Load(ctx, modelPath); err != nil {
		return nil, &LoadError{Path: modelPath, Err: err}
	}

	a := &Adapter{
		backend:   b,
		path:      modelPath,
		artifacts: artifacts,
	}
	for _, opt := range opts {
		opt(a)
	}

	return a, nil
}

// Answer runs inference on one question/context pair. Inputs are passed through
// unchanged. Backend errors and panics are returned as *InferenceError.
func (a *Adapter) Answer(ctx context.Context, question, contextText string) (res Result, err error) {
	provider := string(a.backend.Provider())
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			err = &InferenceError{Err: fmt.Errorf("panic: %v", r)}
		}

		outcome := metrics.OutcomeOK
		if err != nil {
			outcome = metrics.OutcomeFailed
		}
		metrics.InferenceDuration.WithLabelValues(provider, outcome).Observe(time.Since(start).Seconds())
	}()

	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	resp, err := a.backend.Answer(ctx, &backend.Request{
		ModelPath: a.path,
		Question:  question,
		Context:   contextText,
	})
	if err != nil {
		return Result{}, &InferenceError{Err: err}
	}

	if resp.Score < 0 || resp.Score > 1 {
		return Result{}, &InferenceError{Err: fmt.Errorf("%w: %v", errScoreOutOfRange, resp.Score)}
	}

	return Result{
		Answer:   resp.Answer,
		Score:    resp.Score,
		Start:    resp.Start,
		End:      resp.End,
		Metadata: resp.Metadata,
	}, nil
}

// Path returns the model directory.
func (a *Adapter) Path() string {
	return a.path
}

// Artifacts returns what was inspected at load time.
func (a *Adapter) Artifacts() *model.Artifacts {
	return a.artifacts
}

// Provider returns the backend provider.
func (a *Adapter) Provider() backend.Provider {
	return a.backend.Provider()
}

// Close releases the backend.
func (a *Adapter) Close() error {
	return a.backend.Close()
}
