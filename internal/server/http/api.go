// Package http exposes the question-answering service as a JSON API.
//
// NewAPI replaces huma.NewError for the whole process: every huma error is
// written as {"error": "..."} with Content-Type application/json, and request
// validation failures are reported as 400 instead of 422.
package http

import (
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ramili4/ml-ci-pipeline/internal/server"
	"github.com/ramili4/ml-ci-pipeline/internal/service"
)

// ErrorBody is the error envelope for every non-2xx response: {"error": "..."}.
type ErrorBody struct {
	Message string `json:"error"`
	status  int
}

func (e *ErrorBody) Error() string {
	return e.Message
}

// GetStatus implements huma.StatusError.
func (e *ErrorBody) GetStatus() int {
	return e.status
}

// ContentType forces plain JSON instead of application/problem+json.
func (e *ErrorBody) ContentType(string) string {
	return "application/json"
}

var installErrorBody sync.Once

func newErrorBody(status int, msg string, errs ...error) huma.StatusError {
	if status == http.StatusUnprocessableEntity {
		status = http.StatusBadRequest
	}

	details := make([]string, 0, len(errs))
	for _, err := range errs {
		if err != nil {
			details = append(details, err.Error())
		}
	}
	if len(details) > 0 {
		msg += ": " + strings.Join(details, "; ")
	}
	return &ErrorBody{Message: msg, status: status}
}

// NewAPI creates a huma API on mux without response schema links and installs
// the ErrorBody error model.
func NewAPI(mux *http.ServeMux, title, version string) huma.API {
	installErrorBody.Do(func() { huma.NewError = newErrorBody })

	cfg := huma.DefaultConfig(title, version)
	cfg.CreateHooks = nil
	return humago.New(mux, cfg)
}

// Options configures the API handler.
type Options struct {
	Logger      *slog.Logger
	Title       string
	Version     string
	MetricsPath string
}

// NewHandler builds the API handler: health, predict and info operations plus
// optional metrics, wrapped in request ID, logging, recovery and metrics middleware.
func NewHandler(svc *service.QA, resolver ModelResolver, opts Options) http.Handler {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Title == "" {
		opts.Title = "Question Answering API"
	}
	if opts.Version == "" {
		opts.Version = "1.0.0"
	}

	mux := http.NewServeMux()
	NewQAHandler(NewAPI(mux, opts.Title, opts.Version), svc, resolver)

	if opts.MetricsPath != "" {
		mux.Handle("GET "+opts.MetricsPath, promhttp.Handler())
	}

	return server.Chain(mux,
		server.RequestID(),
		server.Logging(opts.Logger),
		server.Recovery(opts.Logger),
		server.Metrics("api"),
	)
}
