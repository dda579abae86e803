package common

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConfigured marks calls that cannot run because a required setting is missing.
	ErrNotConfigured = errors.New("not configured")

	// ErrSourceUnavailable marks a data source that timed out, answered non-2xx or
	// returned a payload that could not be parsed.
	ErrSourceUnavailable = errors.New("source unavailable")
)

// ConfigError reports a missing or invalid setting.
type ConfigError struct {
	Setting string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s is not configured", e.Setting)
}

// Is lets errors.Is(err, ErrNotConfigured) match.
func (e *ConfigError) Is(target error) bool {
	return target == ErrNotConfigured
}

// SourceError describes a failed call to an external data source.
type SourceError struct {
	Source     string
	Op         string
	StatusCode int
	Err        error
}

func (e *SourceError) Error() string {
	msg := fmt.Sprintf("%s %s", e.Source, e.Op)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(": status %d", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrSourceUnavailable) match.
func (e *SourceError) Is(target error) bool {
	return target == ErrSourceUnavailable
}

// NewSourceError wraps err as a SourceError for the given source and operation.
func NewSourceError(source, op string, err error) *SourceError {
	return &SourceError{Source: source, Op: op, Err: err}
}

// NewStatusError builds a SourceError for a non-2xx response.
func NewStatusError(source, op string, status int) *SourceError {
	return &SourceError{Source: source, Op: op, StatusCode: status}
}
