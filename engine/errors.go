/*
errors.go - Centralized error types for the engine

PURPOSE:
  All engine error types in one place. The session and API layers wrap
  these with additional context.

ERROR CATEGORIES:
  1. Configuration errors - out-of-domain settings (margin >= 100%)
  2. Reference errors - unknown allocation methods, malformed inputs

POLICY:
  Divisions with a zero denominator are NOT errors: they yield a defined
  zero ("no activity yet"). Errors are reserved for inputs that are
  out-of-domain, where zero would silently misreport (e.g. an ideal price
  of 0 because the target margin is 100%).

USAGE:
  if errors.Is(err, engine.ErrInvalidConfiguration) {
      // 4xx, not 5xx
  }
*/
package engine

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidConfiguration is the umbrella for out-of-domain settings.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrTargetMarginTooHigh is returned when targetMarginRatio >= 1, which
	// would make the ideal unit price non-finite. Never clamped.
	ErrTargetMarginTooHigh = errors.New("target margin ratio must be below 1")

	// ErrUnknownAllocationMethod is returned for a method outside the closed
	// strategy set.
	ErrUnknownAllocationMethod = errors.New("unknown allocation method")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// ConfigError carries the offending setting and value.
type ConfigError struct {
	Setting string
	Value   string
	Reason  error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error: %s=%s: %v", e.Setting, e.Value, e.Reason)
}

func (e *ConfigError) Unwrap() error {
	if e.Reason != nil {
		return e.Reason
	}
	return ErrInvalidConfiguration
}

// IsConfigError reports whether err is a caller-fixable configuration
// problem (as opposed to an engine defect).
func IsConfigError(err error) bool {
	return errors.Is(err, ErrInvalidConfiguration) ||
		errors.Is(err, ErrTargetMarginTooHigh) ||
		errors.Is(err, ErrUnknownAllocationMethod)
}
