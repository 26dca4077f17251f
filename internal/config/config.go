package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Inference backend providers accepted in inference.backend.
const (
	BackendHTTP    = "http"
	BackendGRPC    = "grpc"
	BackendCommand = "command"
)

// Config holds the main configuration for the application.
type Config struct {
	Version   string          `json:"version"   yaml:"version"`
	Storage   StorageConfig   `json:"storage"   yaml:"storage"`
	Model     ModelConfig     `json:"model"     yaml:"model"`
	Inference InferenceConfig `json:"inference" yaml:"inference"`
	Server    ServerConfig    `json:"server"    yaml:"server"`
	Logging   LoggingConfig   `json:"logging"   yaml:"logging"`
}

// StorageConfig holds the location of the models root.
type StorageConfig struct {
	ModelsDir string `json:"models_dir,omitempty" yaml:"models_dir,omitempty"`
}

// ModelConfig describes the served model. Name and version are informational.
type ModelConfig struct {
	Name    string       `json:"name,omitempty"    yaml:"name,omitempty"`
	Version string       `json:"version,omitempty" yaml:"version,omitempty"`
	Source  SourceConfig `json:"source,omitempty"  yaml:"source,omitempty"`
}

// SourceConfig wraps optional sources (only one should be set).
type SourceConfig struct {
	HuggingFace *HuggingFaceSource `json:"huggingface,omitempty" yaml:"huggingface,omitempty"`
}

// InferenceConfig selects and configures the inference backend.
type InferenceConfig struct {
	Backend string        `json:"backend" yaml:"backend"`
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
	HTTP    HTTPBackend   `json:"http"    yaml:"http"`
	GRPC    GRPCBackend   `json:"grpc"    yaml:"grpc"`
	Command CommandConfig `json:"command" yaml:"command"`
}

// HTTPBackend configures the HTTP inference server backend.
type HTTPBackend struct {
	URL    string         `json:"url"              yaml:"url"`
	Server *ManagedServer `json:"server,omitempty" yaml:"server,omitempty"`
}

// ManagedServer describes an inference server process started by qaserve.
type ManagedServer struct {
	BinPath      string            `json:"bin_path"                yaml:"bin_path"`
	Args         []string          `json:"args,omitempty"          yaml:"args,omitempty"`
	Env          map[string]string `json:"env,omitempty"           yaml:"env,omitempty"`
	Port         int               `json:"port,omitempty"          yaml:"port,omitempty"`
	HealthPath   string            `json:"health_path,omitempty"   yaml:"health_path,omitempty"`
	ReadyTimeout time.Duration     `json:"ready_timeout,omitempty" yaml:"ready_timeout,omitempty"`
}

// GRPCBackend configures the gRPC inference server backend.
type GRPCBackend struct {
	Target string `json:"target" yaml:"target"`
}

// CommandConfig configures the command-line inference backend.
type CommandConfig struct {
	BinPath string   `json:"bin_path"       yaml:"bin_path"`
	Args    []string `json:"args,omitempty" yaml:"args,omitempty"`
}

// ServerConfig holds the listen settings of both request handler variants.
type ServerConfig struct {
	API               ListenConfig  `json:"api"                 yaml:"api"`
	UI                UIConfig      `json:"ui"                  yaml:"ui"`
	Metrics           MetricsConfig `json:"metrics"             yaml:"metrics"`
	ReadHeaderTimeout time.Duration `json:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `json:"shutdown_timeout"    yaml:"shutdown_timeout"`
}

// ListenConfig is a host and port pair.
type ListenConfig struct {
	Host string `json:"host" yaml:"host"`
	Port int    `json:"port" yaml:"port"`
}

// Addr returns the listen address.
func (l ListenConfig) Addr() string {
	return fmt.Sprintf("%s:%d", l.Host, l.Port)
}

// UIConfig configures the web form variant.
type UIConfig struct {
	ListenConfig `yaml:",inline"`
	Title        string `json:"title"        yaml:"title"`
	ShowDetails  bool   `json:"show_details" yaml:"show_details"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Path    string `json:"path"    yaml:"path"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	Level     string `json:"level"      yaml:"level"`
	ToFile    bool   `json:"to_file"    yaml:"to_file"`
	File      string `json:"file"       yaml:"file"`
	AddSource bool   `json:"add_source" yaml:"add_source"`
}

// -------------------------
// Source definitions
// -------------------------

// ErrNoSource is returned by GetSource when model.source is empty.
var ErrNoSource = errors.New("no source configured for model")

// HuggingFaceSource represents a Hugging Face model repository source.
type HuggingFaceSource struct {
	Repo          string   `json:"repo"                     yaml:"repo"`
	Revision      string   `json:"revision,omitempty"       yaml:"revision,omitempty"`
	Token         string   `json:"token,omitempty"          yaml:"token,omitempty"`
	Include       []string `json:"include,omitempty"        yaml:"include,omitempty"`
	Exclude       []string `json:"exclude,omitempty"        yaml:"exclude,omitempty"`
	MaxWorkers    int      `json:"max_workers,omitempty"    yaml:"max_workers,omitempty"`
	ForceDownload bool     `json:"force_download,omitempty" yaml:"force_download,omitempty"`
}

// GetSource returns a copy of the configured Hugging Face source.
func (m *ModelConfig) GetSource() (HuggingFaceSource, error) {
	if m.Source.HuggingFace != nil {
		return *m.Source.HuggingFace, nil
	}

	return HuggingFaceSource{}, ErrNoSource
}

// Validate checks cross-field constraints the schema cannot express.
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Storage.ModelsDir) == "" {
		errs = append(errs, errors.New("storage.models_dir must not be empty"))
	}

	switch c.Inference.Backend {
	case BackendHTTP:
		if _, err := url.ParseRequestURI(c.Inference.HTTP.URL); err != nil {
			errs = append(errs, fmt.Errorf("inference.http.url: %w", err))
		}
		if s := c.Inference.HTTP.Server; s != nil && s.BinPath == "" {
			errs = append(errs, errors.New("inference.http.server.bin_path is required when a managed server is configured"))
		}
	case BackendGRPC:
		if c.Inference.GRPC.Target == "" {
			errs = append(errs, errors.New("inference.grpc.target is required"))
		}
	case BackendCommand:
		if c.Inference.Command.BinPath == "" {
			errs = append(errs, errors.New("inference.command.bin_path is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown inference backend %q", c.Inference.Backend))
	}

	if c.Inference.Timeout < 0 {
		errs = append(errs, errors.New("inference.timeout must not be negative"))
	}

	for name, port := range map[string]int{"server.api.port": c.Server.API.Port, "server.ui.port": c.Server.UI.Port} {
		if port < 1 || port > 65535 {
			errs = append(errs, fmt.Errorf("%s out of range: %d", name, port))
		}
	}

	if c.Server.Metrics.Enabled && !strings.HasPrefix(c.Server.Metrics.Path, "/") {
		errs = append(errs, fmt.Errorf("server.metrics.path must start with '/': %q", c.Server.Metrics.Path))
	}

	return errors.Join(errs...)
}
