package models

import (
	"errors"

	"github.com/google/uuid"
)

// Shared failure vocabulary. Collaborator packages wrap these with
// context; flows classify with errors.Is.
var (
	// ErrInvalidPolicy marks a policy that failed validation. Fatal
	// before any discovery happens.
	ErrInvalidPolicy = errors.New("invalid scaling policy")

	// ErrMetricsUnavailable marks a missing or incomplete utilization
	// sample. Per-resource: the evaluation fails, the run continues.
	ErrMetricsUnavailable = errors.New("metrics unavailable")
)

// NewUUID generates a new UUID string
func NewUUID() string {
	return uuid.New().String()
}
