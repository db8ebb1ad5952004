package core

import (
	"errors"
	"fmt"
	"time"
)

// =============================================================================
// Core Error Types
// =============================================================================

// StepError represents a failure in one step of episode generation
type StepError struct {
	Step      string // "load", "validate", "plan", "persist", "render"
	Arc       string
	Episode   int
	Cause     error
	Timestamp time.Time
}

func (e *StepError) Error() string {
	if e.Episode > 0 {
		return fmt.Sprintf("step %s failed for arc %q episode %d: %v", e.Step, e.Arc, e.Episode, e.Cause)
	}
	return fmt.Sprintf("step %s failed for arc %q: %v", e.Step, e.Arc, e.Cause)
}

func (e *StepError) Unwrap() error {
	return e.Cause
}

// ValidationError reports a world-data rule violation. It names the arc and,
// when known, the episode the rule was checked against.
type ValidationError struct {
	Arc       string      // Arc name or ID being validated
	Episode   int         // Episode number, 0 when the rule is not episode-specific
	Rule      string      // Rule identifier, e.g. "silhouette_required"
	Field     string      // Field that failed validation
	Message   string      // Human-readable error message
	Value     interface{} // The value that failed
	Timestamp time.Time
}

func (e *ValidationError) Error() string {
	target := fmt.Sprintf("arc %q", e.Arc)
	if e.Episode > 0 {
		target = fmt.Sprintf("%s episode %d", target, e.Episode)
	}
	if e.Field != "" {
		return fmt.Sprintf("validation failed for %s: rule %s on %s: %s", target, e.Rule, e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed for %s: rule %s: %s", target, e.Rule, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// =============================================================================
// Predefined Error Values
// =============================================================================

var (
	ErrInvalidInput   = errors.New("invalid input")
	ErrUnknownArc     = errors.New("unknown arc")
	ErrInvalidEpisode = errors.New("invalid episode number")
	ErrNotConfigured  = errors.New("storage is not configured")
)

// =============================================================================
// Error Classification Functions
// =============================================================================

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	if err == nil {
		return false
	}
	var validationErr *ValidationError
	return errors.As(err, &validationErr)
}

// IsNotFound reports whether err means an arc could not be found
func IsNotFound(err error) bool {
	return errors.Is(err, ErrUnknownArc)
}

// IsTerminal determines if retrying the same call can never succeed
func IsTerminal(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrUnknownArc) ||
		errors.Is(err, ErrInvalidEpisode)
}

// =============================================================================
// Error Creation Helpers
// =============================================================================

// NewStepError creates a new StepError with timestamp
func NewStepError(step, arc string, episode int, cause error) *StepError {
	return &StepError{
		Step:      step,
		Arc:       arc,
		Episode:   episode,
		Cause:     cause,
		Timestamp: time.Now(),
	}
}

// NewValidationError creates a new ValidationError with timestamp
func NewValidationError(arc string, episode int, rule, field, message string, value interface{}) *ValidationError {
	return &ValidationError{
		Arc:       arc,
		Episode:   episode,
		Rule:      rule,
		Field:     field,
		Message:   message,
		Value:     value,
		Timestamp: time.Now(),
	}
}
