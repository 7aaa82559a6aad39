package game

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration is matched by every *ConfigurationError via errors.Is.
	ErrConfiguration = errors.New("invalid game configuration")

	// ErrClosed is returned by lifecycle operations on a closed session.
	ErrClosed = errors.New("session closed")
)

// ConfigurationError reports invalid construction input (dimension, mode, palette).
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("game: invalid %s: %s", e.Field, e.Reason)
}

// Is lets errors.Is(err, ErrConfiguration) match any ConfigurationError.
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}
