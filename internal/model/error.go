package model

import (
	"errors"
	"fmt"
	"strings"
)

// Error definitions for the model package.
var (
	ErrNoModelFound      = errors.New("no model directory found")
	ErrAmbiguousModel    = errors.New("multiple model directories found")
	ErrInvalidArtifacts  = errors.New("invalid model artifacts")
	ErrInvalidMetadata   = errors.New("metadata.json is not valid JSON")
	ErrInvalidTransition = errors.New("invalid model status transition")
	ErrAlreadyLoaded     = errors.New("model already loaded")
	ErrRootNotDirectory  = errors.New("models root is not a directory")
)

// AmbiguousModelError is returned when the models root holds more than one subdirectory.
type AmbiguousModelError struct {
	Root       string
	Candidates []string
}

// Error lists every candidate so the operator can see what needs removing.
func (e *AmbiguousModelError) Error() string {
	return fmt.Sprintf("%s in %s: %s", ErrAmbiguousModel, e.Root, strings.Join(e.Candidates, ", "))
}

// Is makes errors.Is(err, ErrAmbiguousModel) match.
func (e *AmbiguousModelError) Is(target error) bool {
	return target == ErrAmbiguousModel
}

func noModelFound(root string) error {
	return fmt.Errorf("%w in %s", ErrNoModelFound, root)
}
