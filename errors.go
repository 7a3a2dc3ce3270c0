package ragpipe

import (
	"errors"
	"fmt"
)

// ErrEmptyResult reports that retrieval produced zero documents. It is
// a valid terminal state, not a failure: by default the chain answers
// with its insufficient-context message instead of calling the LLM, and
// only surfaces this sentinel when the fallback is disabled.
var ErrEmptyResult = errors.New("ragpipe: retrieval returned no documents")

// ConfigError reports an invalid caller-supplied configuration, such
// as overlap >= chunk size or an embedding dimension mismatch.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid config %s: %s", e.Field, e.Reason)
}

// SourceError reports that a loader could not reach or parse its
// origin. It wraps the underlying cause.
type SourceError struct {
	Source string
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("source %s: %v", e.Source, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

// ProviderError reports a failed or timed-out call to an external
// collaborator (embedding provider, vector store, LLM). The cause is
// wrapped so context cancellation stays distinguishable via errors.Is.
type ProviderError struct {
	Provider string
	Op       string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Provider, e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }
