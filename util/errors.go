package util

import "errors"

// ErrPageOverflow is returned when a serialized payload does not fit in one page.
var ErrPageOverflow = errors.New("payload exceeds page size")

type RstarError struct {
	Message string
	Err     error
}

func (e *RstarError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *RstarError) Unwrap() error {
	return e.Err
}

// ConfigError reports a bad dimensionality, a page size mismatch or a record batch
// that cannot fit one page.
type ConfigError struct {
	*RstarError
}

// CorruptionError reports short reads, missing metadata and nodes that should exist but don't.
type CorruptionError struct {
	*RstarError
}

// InvariantError is raised through panic when the tree would otherwise be corrupted.
type InvariantError struct {
	*RstarError
}

func NewConfigError(message string, err error) *ConfigError {
	return &ConfigError{&RstarError{Message: message, Err: err}}
}

func NewCorruptionError(message string, err error) *CorruptionError {
	return &CorruptionError{&RstarError{Message: message, Err: err}}
}

func NewInvariantError(message string) *InvariantError {
	return &InvariantError{&RstarError{Message: message}}
}
