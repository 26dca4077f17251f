package backend

import "errors"

// Error definitions for the backend package.
var (
	ErrNotFound          = errors.New("backend not found in registry")
	ErrAlreadyRegistered = errors.New("backend is already registered in the registry")
	ErrNotLoaded         = errors.New("backend has no model loaded")
	ErrMalformedResponse = errors.New("malformed inference response")
)
