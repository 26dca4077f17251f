package env

import (
	"os"
	"strings"

	"github.com/ramili4/ml-ci-pipeline/internal/envvar"
)

// Environment is the deployment environment the process runs in.
type Environment string

const (
	// Development enables human readable, colored logs.
	Development Environment = "development"

	// Production enables JSON logs.
	Production Environment = "production"

	// Test is used by tests.
	Test Environment = "test"
)

// FromEnv reads the environment from QASERVE_ENV, defaulting to development.
func FromEnv() Environment {
	return Parse(os.Getenv(envvar.QaserveEnv))
}

// Parse converts a raw value into an Environment. Unknown values map to development.
func Parse(raw string) Environment {
	switch Environment(strings.ToLower(strings.TrimSpace(raw))) {
	case Production, "prod":
		return Production
	case Test:
		return Test
	default:
		return Development
	}
}

// IsProduction reports whether e is the production environment.
func (e Environment) IsProduction() bool {
	return e == Production
}
