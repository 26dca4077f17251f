package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramili4/ml-ci-pipeline/internal/envvar"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{
		envvar.QaserveModelsDir, envvar.QaserveAPIPort, envvar.GradioServerPort,
		envvar.QaserveInferenceBackend, envvar.QaserveInferenceURL, envvar.QaserveLogLevel,
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, DefaultModelsDir, cfg.Storage.ModelsDir)
	assert.Equal(t, DefaultAPIPort, cfg.Server.API.Port)
	assert.Equal(t, DefaultUIPort, cfg.Server.UI.Port)
	assert.Equal(t, BackendHTTP, cfg.Inference.Backend)
	assert.Equal(t, DefaultInferenceTimeout, cfg.Inference.Timeout)
	assert.True(t, cfg.Server.Metrics.Enabled)
}

func TestLoadAndValidate_File(t *testing.T) {
	path := writeConfig(t, `
version: "1"
storage:
  models_dir: /srv/models
model:
  name: distilbert-squad
  version: "3"
  source:
    huggingface:
      repo: distilbert/distilbert-base-cased-distilled-squad
inference:
  backend: grpc
  timeout: 45s
  grpc:
    target: inference:50051
server:
  api:
    port: 8080
  ui:
    port: 9000
    show_details: true
  shutdown_timeout: 5s
logging:
  level: debug
  add_source: true
`)

	cfg, err := LoadAndValidate(path)
	require.NoError(t, err)

	assert.Equal(t, "/srv/models", cfg.Storage.ModelsDir)
	assert.Equal(t, "distilbert-squad", cfg.Model.Name)
	assert.Equal(t, BackendGRPC, cfg.Inference.Backend)
	assert.Equal(t, 45*time.Second, cfg.Inference.Timeout)
	assert.Equal(t, "inference:50051", cfg.Inference.GRPC.Target)
	assert.Equal(t, 8080, cfg.Server.API.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.API.Host, "unset keys keep their defaults")
	assert.Equal(t, 9000, cfg.Server.UI.Port)
	assert.True(t, cfg.Server.UI.ShowDetails)
	assert.Equal(t, 5*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Logging.AddSource)

	src, err := cfg.Model.GetSource()
	require.NoError(t, err)
	assert.Equal(t, "distilbert/distilbert-base-cased-distilled-squad", src.Repo)

	src.Repo = "other/repo"
	assert.Equal(t, "distilbert/distilbert-base-cased-distilled-squad", cfg.Model.Source.HuggingFace.Repo, "GetSource returns a copy")
}

func TestGetSource_NotConfigured(t *testing.T) {
	cfg := Defaults()

	_, err := cfg.Model.GetSource()
	require.ErrorIs(t, err, ErrNoSource)
}

func TestLoadAndValidate_EmptyFile(t *testing.T) {
	cfg, err := LoadAndValidate(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
}

func TestLoadAndValidate_SchemaViolations(t *testing.T) {
	cases := map[string]string{
		"unknown key":     "unknown: true\n",
		"unknown backend": "inference:\n  backend: onnx\n",
		"bad duration":    "inference:\n  timeout: soon\n",
		"port range":      "server:\n  api:\n    port: 70000\n",
		"bad level":       "logging:\n  level: trace\n",
	}

	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadAndValidate(writeConfig(t, content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "validation failed")
		})
	}
}

func TestLoadAndValidate_MissingFile(t *testing.T) {
	_, err := LoadAndValidate(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		envvar.QaserveModelsDir:        "/data/models",
		envvar.ModelName:               "squad",
		envvar.ModelVersion:            "7",
		envvar.GradioServerPort:        "7000",
		envvar.QaserveAPIPort:          " 5050 ",
		envvar.QaserveInferenceBackend: BackendCommand,
		envvar.QaserveLogLevel:         "",
	}
	lookup := func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}

	cfg := Defaults()
	require.NoError(t, cfg.ApplyEnv(lookup))

	assert.Equal(t, "/data/models", cfg.Storage.ModelsDir)
	assert.Equal(t, "squad", cfg.Model.Name)
	assert.Equal(t, "7", cfg.Model.Version)
	assert.Equal(t, 7000, cfg.Server.UI.Port)
	assert.Equal(t, 5050, cfg.Server.API.Port)
	assert.Equal(t, BackendCommand, cfg.Inference.Backend)
	assert.Equal(t, "info", cfg.Logging.Level, "empty values do not override")
}

func TestApplyEnv_InvalidPort(t *testing.T) {
	cfg := Defaults()
	err := cfg.ApplyEnv(func(key string) (string, bool) {
		if key == envvar.GradioServerPort {
			return "seventy", true
		}
		return "", false
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), envvar.GradioServerPort)
}

func TestValidate(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())

	cfg.Inference.Backend = BackendCommand
	assert.ErrorContains(t, cfg.Validate(), "inference.command.bin_path")

	cfg = Defaults()
	cfg.Inference.HTTP.Server = &ManagedServer{}
	assert.ErrorContains(t, cfg.Validate(), "bin_path")

	cfg = Defaults()
	cfg.Storage.ModelsDir = " "
	assert.ErrorContains(t, cfg.Validate(), "models_dir")

	cfg = Defaults()
	cfg.Inference.Backend = "onnx"
	assert.ErrorContains(t, cfg.Validate(), "unknown inference backend")
}
