package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// ErrInvalidArgument covers every shape, rank and parameter failure. All of
	// them are detected before any parallel work starts.
	ErrInvalidArgument = errors.New("invalid argument")

	ErrInvalidEmbedding = fmt.Errorf("%w: embedding", ErrInvalidArgument)
	ErrLibraryTooSmall  = fmt.Errorf("%w: library size is too small", ErrInvalidArgument)
	ErrTargetTooSmall   = fmt.Errorf("%w: target size is too small", ErrInvalidArgument)
	ErrShapeMismatch    = fmt.Errorf("%w: shape mismatch", ErrInvalidArgument)
	ErrPhase            = fmt.Errorf("%w: lookup table phase", ErrInvalidArgument)
)

// Error constructors with context

// NewInvalidArgument wraps ErrInvalidArgument with a formatted reason.
func NewInvalidArgument(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

// NewEmbeddingError reports a bad E, tau or Tp value.
func NewEmbeddingError(reason string) error {
	return fmt.Errorf("%w: %s", ErrInvalidEmbedding, reason)
}

// NewShapeError reports mismatched lengths, ranks or column counts.
func NewShapeError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrShapeMismatch, fmt.Sprintf(format, args...))
}

// Error checking helpers

func IsInvalidArgument(err error) bool {
	return errors.Is(err, ErrInvalidArgument)
}

func IsShapeError(err error) bool {
	return errors.Is(err, ErrShapeMismatch)
}
