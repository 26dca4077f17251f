package backend

import (
	"context"
	"time"
)

// Provider is a string identifier for a backend provider.
type Provider string

const (
	ProviderHTTP    Provider = "http"
	ProviderGRPC    Provider = "grpc"
	ProviderCommand Provider = "command"
)

// Backend defines the core interface for all question answering inference backends.
type Backend interface {
	// Provider returns the backend identifier.
	Provider() Provider

	// Load prepares the backend to answer with the model stored in modelPath.
	Load(ctx context.Context, modelPath string) error

	// Answer extracts the answer span for a single question and context.
	Answer(ctx context.Context, req *Request) (*Response, error)

	// Close cleans up resources.
	Close() error
}

// Request encapsulates the inputs of one inference call.
type Request struct {
	// ModelPath is the directory of the loaded model.
	ModelPath string

	Question string
	Context  string
}

// Response contains the result of an inference operation.
type Response struct {
	Answer string
	Score  float64
	Start  int
	End    int

	// Metadata contains backend-specific information.
	Metadata *ResponseMetadata
}

// ResponseMetadata contains metadata about the response.
type ResponseMetadata struct {
	Provider        Provider       `json:"provider"`
	Model           string         `json:"model"`
	Timestamp       time.Time      `json:"timestamp"`
	Duration        time.Duration  `json:"duration"`
	BackendSpecific map[string]any `json:"backend_specific,omitempty"`
}

// WireRequest is the JSON payload sent to HTTP, gRPC and command backends.
type WireRequest struct {
	Question string `json:"question"`
	Context  string `json:"context"`
	ModelDir string `json:"model_dir"`
}

// NewWireRequest builds the payload for req.
func NewWireRequest(req *Request) WireRequest {
	return WireRequest{
		Question: req.Question,
		Context:  req.Context,
		ModelDir: req.ModelPath,
	}
}
