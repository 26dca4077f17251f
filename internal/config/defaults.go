package config

import (
	"os"
	"path/filepath"
	"runtime"
	"time"
)

const (
	// DefaultModelsDir is the models root used by container deployments.
	DefaultModelsDir = "/models"

	// DefaultAPIPort is the listen port of the HTTP API variant.
	DefaultAPIPort = 5000

	// DefaultUIPort is the listen port of the UI variant.
	DefaultUIPort = 7860

	// DefaultInferenceTimeout bounds a single inference call.
	DefaultInferenceTimeout = 2 * time.Minute
)

// Defaults returns the configuration used when no file or environment overrides apply.
func Defaults() *Config {
	return &Config{
		Version: "1",
		Storage: StorageConfig{ModelsDir: DefaultModelsDir},
		Inference: InferenceConfig{
			Backend: BackendHTTP,
			Timeout: DefaultInferenceTimeout,
			HTTP:    HTTPBackend{URL: "http://127.0.0.1:8090"},
			GRPC:    GRPCBackend{Target: "127.0.0.1:50051"},
		},
		Server: ServerConfig{
			API: ListenConfig{Host: "0.0.0.0", Port: DefaultAPIPort},
			UI: UIConfig{
				ListenConfig: ListenConfig{Host: "0.0.0.0", Port: DefaultUIPort},
				Title:        "Question Answering",
			},
			Metrics:           MetricsConfig{Enabled: true, Path: "/metrics"},
			ReadHeaderTimeout: 10 * time.Second,
			ShutdownTimeout:   15 * time.Second,
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "logs/qaserve.log",
		},
	}
}

// DefaultConfigPath returns the default path for the qaserve config directory.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "qaserve", "config")
	}

	switch runtime.GOOS {
	case "windows":
		return filepath.Join(home, "AppData", "Roaming", "qaserve")
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "qaserve")
	default: // Linux, BSD, etc.
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "qaserve")
		}
		return filepath.Join(home, ".config", "qaserve")
	}
}

// DefaultConfigFile returns the config file looked up when none is given explicitly.
func DefaultConfigFile() string {
	return filepath.Join(DefaultConfigPath(), "config.yaml")
}
