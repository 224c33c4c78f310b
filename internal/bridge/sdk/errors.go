package sdk

import "errors"

var (
	// Builder errors
	ErrMissingAPIKey     = errors.New("snapyr: api key is required")
	ErrMissingFactory    = errors.New("snapyr: no client factory")
	ErrInvalidFlushQueue = errors.New("snapyr: flush queue size must be positive")

	// Option errors
	ErrInvalidEnvironment = errors.New("snapyr: invalid environment")

	// Client errors
	ErrClientShutdown = errors.New("snapyr: client has been shut down")
)

// BuildError wraps a failure raised while constructing a Client.
type BuildError struct {
	Op  string
	Err error
}

func (e *BuildError) Error() string {
	return "snapyr build: " + e.Op + ": " + e.Err.Error()
}

func (e *BuildError) Unwrap() error {
	return e.Err
}
