package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/ramili4/ml-ci-pipeline/internal/metrics"
	"github.com/ramili4/ml-ci-pipeline/internal/qa"
)

// Surface names the request handler variant a request came through.
type Surface string

const (
	SurfaceAPI Surface = "api"
	SurfaceUI  Surface = "ui"
)

// ErrValidation is matched by every *ValidationError.
var ErrValidation = errors.New("validation failed")

// ValidationError reports missing or empty request fields.
type ValidationError struct {
	Missing []string
}

func (e *ValidationError) Error() string {
	return "Missing required fields: 'question' and 'context'"
}

// Is makes errors.Is(err, ErrValidation) match.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// QA is the service shared by both request handler variants.
type QA struct {
	answerer qa.Answerer
	surface  Surface
	logger   *slog.Logger
}

// NewQA creates a QA service for surface.
func NewQA(answerer qa.Answerer, surface Surface, logger *slog.Logger) *QA {
	if logger == nil {
		logger = slog.Default()
	}

	return &QA{
		answerer: answerer,
		surface:  surface,
		logger:   logger.With("surface", string(surface)),
	}
}

// Ask validates the pair and runs inference. Both fields must be non-empty after
// trimming whitespace; invalid requests never reach the model. The values passed to
// the model are the originals, untrimmed.
func (s *QA) Ask(ctx context.Context, question, contextText string) (qa.Result, error) {
	if err := Validate(question, contextText); err != nil {
		metrics.Predictions.WithLabelValues(string(s.surface), metrics.OutcomeInvalid).Inc()
		s.logger.DebugContext(ctx, "Rejected request", "missing", err.(*ValidationError).Missing)
		return qa.Result{}, err
	}

	res, err := s.answerer.Answer(ctx, question, contextText)
	if err != nil {
		metrics.Predictions.WithLabelValues(string(s.surface), metrics.OutcomeFailed).Inc()
		s.logger.ErrorContext(ctx, "Failed to answer question", "error", err)
		return qa.Result{}, err
	}

	metrics.Predictions.WithLabelValues(string(s.surface), metrics.OutcomeOK).Inc()
	attrs := []any{"score", res.Score, "start", res.Start, "end", res.End}
	if md := res.Metadata; md != nil {
		attrs = append(attrs, "provider", string(md.Provider), "model", md.Model, "duration", md.Duration)
	}
	s.logger.DebugContext(ctx, "Answered question", attrs...)
	return res, nil
}

// Validate returns a *ValidationError when question or context is empty.
func Validate(question, contextText string) error {
	var missing []string
	if strings.TrimSpace(question) == "" {
		missing = append(missing, "question")
	}
	if strings.TrimSpace(contextText) == "" {
		missing = append(missing, "context")
	}

	if len(missing) > 0 {
		return &ValidationError{Missing: missing}
	}
	return nil
}
