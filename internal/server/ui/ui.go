// Package ui serves the browser form variant of the question-answering service.
package ui

import (
	"bytes"
	"embed"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ramili4/ml-ci-pipeline/internal/envvar"
	"github.com/ramili4/ml-ci-pipeline/internal/model"
	"github.com/ramili4/ml-ci-pipeline/internal/qa"
	"github.com/ramili4/ml-ci-pipeline/internal/server"
	"github.com/ramili4/ml-ci-pipeline/internal/service"
)

const (
	// MissingInputMessage is shown when either field is empty.
	MissingInputMessage = "Please provide both a question and a context."

	maxFormBytes = 1 << 20
)

//go:embed templates/page.html.tmpl
var templatesFS embed.FS

var page = template.Must(template.ParseFS(templatesFS, "templates/page.html.tmpl"))

// ModelState reports the current state of the served model.
type ModelState interface {
	Snapshot() model.Snapshot
}

// RootWatcher reports the subdirectories last seen under the models root.
type RootWatcher interface {
	Candidates() []string
}

// Options configures the UI handler.
type Options struct {
	Logger      *slog.Logger
	LookupEnv   func(string) (string, bool)
	Watcher     RootWatcher
	Title       string
	MetricsPath string
	ShowDetails bool
}

type envEntry struct {
	Name  string
	Value string
}

type pageData struct {
	Result     *qa.Result
	Title      string
	Tab        string
	Question   string
	Context    string
	Output     string
	Env        []envEntry
	Model      model.Snapshot
	Candidates []string
	Watching   bool
	Failed     bool
}

// Handler renders the Ask and Configuration tabs.
type Handler struct {
	service *service.QA
	state   ModelState
	opts    Options
}

// NewHandler builds the UI handler wrapped in request ID, logging, recovery and
// metrics middleware.
func NewHandler(svc *service.QA, state ModelState, opts Options) http.Handler {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.LookupEnv == nil {
		opts.LookupEnv = os.LookupEnv
	}
	if opts.Title == "" {
		opts.Title = "Question Answering"
	}

	h := &Handler{service: svc, state: state, opts: opts}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", h.handleForm)
	mux.HandleFunc("POST /{$}", h.handleAsk)
	mux.HandleFunc("GET /config", h.handleConfig)
	if opts.MetricsPath != "" {
		mux.Handle("GET "+opts.MetricsPath, promhttp.Handler())
	}

	return server.Chain(mux,
		server.RequestID(),
		server.Logging(opts.Logger),
		server.Recovery(opts.Logger),
		server.Metrics("ui"),
	)
}

func (h *Handler) handleForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, &pageData{Tab: "ask"})
}

// handleAsk answers the submitted pair. Every outcome renders the page with an
// inline message; failures never change the response status.
func (h *Handler) handleAsk(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		h.render(w, r, &pageData{Tab: "ask", Output: "Error: " + err.Error(), Failed: true})
		return
	}

	data := &pageData{
		Tab:      "ask",
		Question: r.PostForm.Get("question"),
		Context:  r.PostForm.Get("context"),
	}

	res, err := h.service.Ask(r.Context(), data.Question, data.Context)
	switch {
	case errors.Is(err, service.ErrValidation):
		data.Output = MissingInputMessage
		data.Failed = true
	case err != nil:
		data.Output = "Error: " + err.Error()
		data.Failed = true
	default:
		data.Output = res.Answer
		if h.opts.ShowDetails {
			data.Result = &res
		}
	}

	h.render(w, r, data)
}

// handleConfig re-reads the displayed environment on every request.
func (h *Handler) handleConfig(w http.ResponseWriter, r *http.Request) {
	data := &pageData{Tab: "config"}
	for _, name := range envvar.Displayed {
		value, _ := h.opts.LookupEnv(name)
		data.Env = append(data.Env, envEntry{Name: name, Value: value})
	}
	if h.state != nil {
		data.Model = h.state.Snapshot()
	}
	if h.opts.Watcher != nil {
		data.Watching = true
		data.Candidates = h.opts.Watcher.Candidates()
	}

	h.render(w, r, data)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, data *pageData) {
	data.Title = h.opts.Title

	var buf bytes.Buffer
	if err := page.Execute(&buf, data); err != nil {
		h.opts.Logger.ErrorContext(r.Context(), "Failed to render page", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}
