package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/ramili4/ml-ci-pipeline/internal/model"
	"github.com/ramili4/ml-ci-pipeline/internal/service"
)

type (
	// PredictRequestDTO leaves both fields optional so that missing and empty
	// values reach service validation and its error message.
	PredictRequestDTO struct {
		_        struct{} `json:"-" additionalProperties:"true"`
		Question string   `json:"question,omitempty"`
		Context  string   `json:"context,omitempty"`
	}

	PredictResponseDTO struct {
		Answer string  `json:"answer"`
		Score  float64 `json:"score"`
		Start  int     `json:"start"`
		End    int     `json:"end"`
	}

	HealthStatusDTO struct {
		Status string `json:"status"`
	}

	ModelDirDTO struct {
		ModelDir string `json:"model_dir"`
	}
)

type (
	PredictInput struct {
		Body PredictRequestDTO
	}

	PredictOutput struct {
		Body PredictResponseDTO
	}

	HealthOutput struct {
		Body HealthStatusDTO
	}

	InfoOutput struct {
		Body any
	}
)

// ModelResolver resolves the model directory at call time.
type ModelResolver interface {
	Resolve() (string, error)
}

// QAHandler handles HTTP requests for question answering.
type QAHandler struct {
	service  *service.QA
	resolver ModelResolver
}

// NewQAHandler creates a new QAHandler instance and registers its operations.
func NewQAHandler(api huma.API, service *service.QA, resolver ModelResolver) *QAHandler {
	h := &QAHandler{service: service, resolver: resolver}

	huma.Register(api, huma.Operation{
		OperationID:   "health",
		Method:        http.MethodGet,
		Path:          "/api/health",
		Summary:       "Liveness check",
		Tags:          []string{"qa"},
		DefaultStatus: http.StatusOK,
	}, h.handleHealth)

	huma.Register(api, huma.Operation{
		OperationID:   "predict",
		Method:        http.MethodPost,
		Path:          "/api/predict",
		Summary:       "Answer a question from a context passage",
		Tags:          []string{"qa"},
		DefaultStatus: http.StatusOK,
		Errors:        []int{http.StatusBadRequest, http.StatusInternalServerError},
	}, h.handlePredict)

	huma.Register(api, huma.Operation{
		OperationID:   "info",
		Method:        http.MethodGet,
		Path:          "/api/info",
		Summary:       "Model metadata",
		Tags:          []string{"qa"},
		DefaultStatus: http.StatusOK,
		Errors:        []int{http.StatusNotFound, http.StatusInternalServerError},
	}, h.handleInfo)

	return h
}

// handleHealth reports liveness regardless of model state.
func (h *QAHandler) handleHealth(_ context.Context, _ *struct{}) (*HealthOutput, error) {
	return &HealthOutput{Body: HealthStatusDTO{Status: "healthy"}}, nil
}

// handlePredict handles the predict operation.
func (h *QAHandler) handlePredict(ctx context.Context, input *PredictInput) (*PredictOutput, error) {
	res, err := h.service.Ask(ctx, input.Body.Question, input.Body.Context)
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			return nil, huma.Error400BadRequest(err.Error())
		}
		return nil, huma.Error500InternalServerError(err.Error())
	}

	return &PredictOutput{
		Body: PredictResponseDTO{
			Answer: res.Answer,
			Score:  res.Score,
			Start:  res.Start,
			End:    res.End,
		},
	}, nil
}

// handleInfo returns metadata.json verbatim, or the model directory when absent.
func (h *QAHandler) handleInfo(_ context.Context, _ *struct{}) (*InfoOutput, error) {
	dir, err := h.resolver.Resolve()
	if err != nil {
		if errors.Is(err, model.ErrNoModelFound) {
			return nil, huma.Error404NotFound("No model loaded")
		}
		return nil, huma.Error404NotFound("No model loaded: " + err.Error())
	}

	raw, ok, err := model.ReadMetadata(dir)
	if err != nil {
		return nil, huma.Error500InternalServerError(err.Error())
	}
	if !ok {
		return &InfoOutput{Body: ModelDirDTO{ModelDir: dir}}, nil
	}

	return &InfoOutput{Body: raw}, nil
}
