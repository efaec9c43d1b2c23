/*
errors.go - Centralized error taxonomy for the leave engine

PURPOSE:
  All operation-level errors in one place. Handlers and other callers
  classify with errors.Is/As; structured types carry the detail.

ERROR CATEGORIES:
  1. Input errors      - InvalidRange, ValidationFailed, NoChanges
  2. Authorization     - PermissionDenied
  3. Visibility        - NotFound (also covers cross-tenant access: a
     foreign tenant's request must be indistinguishable from a missing one)
  4. Write conflicts   - ConcurrentModification

USAGE:
  var vErr *leave.ValidationFailedError
  if errors.As(err, &vErr) {
      render(vErr.Messages)
  }

SEE ALSO:
  - calendar.ErrInvalidRange: wrapped by ErrInvalidRange at this layer
  - api/handlers.go: maps these to HTTP statuses
*/
package leave

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidRange is returned when a request's end date precedes its
	// start date.
	ErrInvalidRange = errors.New("invalid range: end before start")

	// ErrValidationFailed is returned when one or more error-severity
	// validation rules failed. Use ValidationFailedError for the messages.
	ErrValidationFailed = errors.New("validation failed")

	// ErrPermissionDenied is returned when the actor may not perform the
	// attempted action on the target request.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrNoChanges is returned when an edit carries a payload identical to
	// the stored record. Idempotence guard: no write happens.
	ErrNoChanges = errors.New("no changes to apply")

	// ErrNotFound is returned when the target does not exist OR is outside
	// the actor's visible scope. The two cases are deliberately
	// indistinguishable.
	ErrNotFound = errors.New("request not found")

	// ErrConcurrentModification is returned when the optimistic status/
	// updated-at check fails on write.
	ErrConcurrentModification = errors.New("concurrent modification detected")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationFailedError carries the error-severity messages that blocked a
// submission. Warnings never appear here; they ride along with success.
type ValidationFailedError struct {
	Messages []ValidationMessage
}

func (e *ValidationFailedError) Error() string {
	parts := make([]string, 0, len(e.Messages))
	for _, m := range e.Messages {
		if m.Severity == SeverityError {
			parts = append(parts, m.Message)
		}
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationFailedError) Unwrap() error { return ErrValidationFailed }

// PermissionDeniedError reports which action was refused and why.
type PermissionDeniedError struct {
	Action Action
	Reason string
}

func (e *PermissionDeniedError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("permission denied: %s", e.Action)
	}
	return fmt.Sprintf("permission denied: %s: %s", e.Action, e.Reason)
}

func (e *PermissionDeniedError) Unwrap() error { return ErrPermissionDenied }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if the error might succeed on retry with fresh data.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentModification)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidRange) ||
		errors.Is(err, ErrValidationFailed) ||
		errors.Is(err, ErrNoChanges)
}

// IsNotFound returns true if the target is missing or invisible to the actor.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
