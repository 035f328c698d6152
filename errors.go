package tiercache

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidConfig is matched by every *ConfigError.
	ErrInvalidConfig = errors.New("tiercache: invalid cache configuration")

	ErrDuplicateRepository = errors.New("tiercache: repository already registered")
	ErrTypeMismatch        = errors.New("tiercache: cache registered with different key/value types")

	// ErrSourcePanic wraps a panic recovered from a repository query or contributor.
	ErrSourcePanic = errors.New("tiercache: source panicked")
)

// ConfigError reports a rejected configuration value.
// Repository is empty for global settings.
type ConfigError struct {
	Repository string
	Field      string
	Reason     string
}

func (e *ConfigError) Error() string {
	if e.Repository == "" {
		return fmt.Sprintf("tiercache: invalid global config %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("tiercache: invalid config for %q %s: %s", e.Repository, e.Field, e.Reason)
}

func (e *ConfigError) Is(target error) bool { return target == ErrInvalidConfig }

// SourceError is a single failed source inside a coordinator pass.
type SourceError struct {
	Source string // repository or contributor name
	Err    error
}

func (e SourceError) Error() string { return e.Source + ": " + e.Err.Error() }
func (e SourceError) Unwrap() error { return e.Err }

// LoadError aggregates the sources that failed during Coordinator.Load.
// The pass itself always completes; LoadError only reports what was skipped.
type LoadError struct {
	Namespace string
	Key       string
	Failures  []SourceError
}

func (e *LoadError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, f.Error())
	}
	return fmt.Sprintf("tiercache: load %s=%q: %d source(s) failed: %s",
		e.Namespace, e.Key, len(e.Failures), strings.Join(parts, "; "))
}

func (e *LoadError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		errs = append(errs, f)
	}
	return errs
}

// FlushError reports a write-back flush that left entries dirty.
type FlushError struct {
	Repository string
	Pending    int
	Err        error
}

func (e *FlushError) Error() string {
	return fmt.Sprintf("tiercache: flush %q: %d entries still dirty: %v", e.Repository, e.Pending, e.Err)
}

func (e *FlushError) Unwrap() error { return e.Err }
