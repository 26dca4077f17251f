package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"go.yaml.in/yaml/v3"

	"github.com/ramili4/ml-ci-pipeline/internal/envvar"
	"github.com/ramili4/ml-ci-pipeline/internal/xfs"
)

const schemaURL = "https://github.com/ramili4/ml-ci-pipeline/schema/qaserve.v1.schema.json"

//go:embed schema/qaserve.v1.schema.json
var schemaJSON string

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	errSchema      error
)

func schema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiledSchema, errSchema = jsonschema.CompileString(schemaURL, schemaJSON)
	})
	return compiledSchema, errSchema
}

// Load builds the effective configuration.
// Layers are applied in order: defaults, the YAML file at path (skipped when path
// is empty), environment variables, then cross-field validation.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		loaded, err := LoadAndValidate(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	cfg.Storage.ModelsDir = xfs.ExpandTilde(cfg.Storage.ModelsDir)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: invalid configuration: %w", err)
	}

	return cfg, nil
}

// LoadAndValidate reads the YAML file at path, validates it against the embedded
// schema and decodes it on top of Defaults.
func LoadAndValidate(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: failed to read config: %w", err)
	}

	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("config: invalid YAML: %w", err)
	}
	if raw == nil {
		raw = map[string]any{}
	}

	s, err := schema()
	if err != nil {
		return nil, fmt.Errorf("config: failed to compile schema: %w", err)
	}

	if err := s.Validate(raw); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal into Config struct: %w", err)
	}

	return cfg, nil
}

// ApplyEnv overrides configuration values from environment variables.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	var errs []error

	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	port := func(key string, dst *int) {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			return
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: invalid port %q", key, v))
			return
		}
		*dst = n
	}

	str(envvar.QaserveModelsDir, &c.Storage.ModelsDir)
	str(envvar.ModelName, &c.Model.Name)
	str(envvar.ModelVersion, &c.Model.Version)
	str(envvar.QaserveInferenceBackend, &c.Inference.Backend)
	str(envvar.QaserveInferenceURL, &c.Inference.HTTP.URL)
	str(envvar.QaserveInferenceGRPCTarget, &c.Inference.GRPC.Target)
	str(envvar.QaserveLogLevel, &c.Logging.Level)
	port(envvar.QaserveAPIPort, &c.Server.API.Port)
	port(envvar.GradioServerPort, &c.Server.UI.Port)

	if len(errs) > 0 {
		return fmt.Errorf("config: environment overrides: %w", errors.Join(errs...))
	}
	return nil
}
