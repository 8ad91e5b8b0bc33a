package core

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ID represents a domain identifier
type ID string

// NewID creates a new unique identifier using UUID v7 for time-ordered generation
func NewID() ID {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return ID(id.String())
}

// String returns the string representation
func (id ID) String() string {
	return string(id)
}

// IsEmpty checks if the ID is empty
func (id ID) IsEmpty() bool {
	return id == ""
}

// Domain-specific ID types
type (
	// RunID tags one batch computation (one API request or CLI invocation).
	RunID ID
	// SeriesKey names a dataset column.
	SeriesKey ID
)

func (id RunID) String() string     { return ID(id).String() }
func (id SeriesKey) String() string { return ID(id).String() }

func (id RunID) IsEmpty() bool { return ID(id).IsEmpty() }

// NewRunID returns a fresh time-ordered run identifier.
func NewRunID() RunID {
	return RunID(NewID())
}

// ParseRunID parses a string into RunID
func ParseRunID(s string) (RunID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("run ID cannot be empty")
	}
	return RunID(s), nil
}

// ParseSeriesKey parses a string into SeriesKey
func ParseSeriesKey(s string) (SeriesKey, error) {
	if strings.TrimSpace(s) == "" {
		return "", NewInvalidArgument("series key cannot be empty")
	}
	return SeriesKey(strings.TrimSpace(s)), nil
}
