/*
errors.go - Centralized error types for the tuition engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  The service and HTTP layers classify errors with the helpers at the
  bottom instead of matching on concrete types.

ERROR CATEGORIES:
  1. Validation errors    - Malformed input, rejected before any side effect
  2. Not-found errors     - Referenced student/year/grade absent
  3. Allocation errors    - Amount incompatible with the outstanding debt
  4. Concurrency conflict - Receipt counter contention, retryable
  5. Data integrity       - A stored monetary field that does not parse

USAGE:
  if errors.Is(err, ledger.ErrExceedsOwed) {
      var exceeds *ledger.ExceedsOwedError
      errors.As(err, &exceeds)
      // exceeds.Outstanding is the actionable "owed" figure
  }

SEE ALSO:
  - allocation.go: Returns the allocation errors
  - balance.go: Returns ErrBadMoney for unusable fees
  - tuition/service.go: Maps these onto transaction rollback
*/
package ledger

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidAmount is returned when a payment amount is zero or negative.
	ErrInvalidAmount = errors.New("payment amount must be positive")

	// ErrEmptySelection is returned when specific-periods allocation is
	// requested with no periods selected.
	ErrEmptySelection = errors.New("no periods selected")

	// ErrPeriodNotDue is returned when a selected period is not among the
	// periods currently due for the school year.
	ErrPeriodNotDue = errors.New("selected period is not due")

	// ErrNothingOutstanding is returned by bulk allocation when the student
	// owes nothing. Callers should treat this as "nothing to pay", never as
	// silently accepting money un-applied.
	ErrNothingOutstanding = errors.New("no outstanding periods to allocate against")

	// ErrExceedsOwed is returned by specific-periods allocation when the
	// amount is larger than the total owed over the selected periods.
	ErrExceedsOwed = errors.New("amount exceeds outstanding balance")

	// ErrMissingField is returned when a required request field is absent.
	ErrMissingField = errors.New("missing required field")

	// ErrStudentNotFound is returned when a referenced student doesn't exist.
	ErrStudentNotFound = errors.New("student not found")

	// ErrSchoolYearNotFound is returned when a referenced school year doesn't exist.
	ErrSchoolYearNotFound = errors.New("school year not found")

	// ErrNoActiveSchoolYear is returned when no school year is flagged active.
	ErrNoActiveSchoolYear = errors.New("no active school year")

	// ErrGradeNotFound is returned when a student's grade doesn't exist.
	ErrGradeNotFound = errors.New("grade not found")

	// ErrConflict is returned when concurrent submissions contend on the
	// receipt counter and the store could not resolve it. Retryable.
	ErrConflict = errors.New("concurrent modification detected")

	// ErrBadMoney is returned when a stored monetary field cannot be parsed
	// to a valid non-negative number. Fatal for the computation it affects;
	// never coerced to zero, since that would understate every obligation.
	ErrBadMoney = errors.New("unusable monetary value")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ExceedsOwedError reports a specific-mode allocation that asked for more
// than the selected periods owe.
type ExceedsOwedError struct {
	Requested   Money
	Outstanding Money
}

func (e *ExceedsOwedError) Error() string {
	return fmt.Sprintf("amount %v exceeds outstanding balance of %v", e.Requested, e.Outstanding)
}

func (e *ExceedsOwedError) Unwrap() error { return ErrExceedsOwed }

// BadMoneyError reports the raw value that failed to parse.
type BadMoneyError struct {
	Raw   string
	Cause error
}

func (e *BadMoneyError) Error() string {
	return fmt.Sprintf("unusable monetary value %q: %v", e.Raw, e.Cause)
}

func (e *BadMoneyError) Unwrap() error { return ErrBadMoney }

// FieldError reports which required field was missing or malformed.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("field %q: %s", e.Field, e.Reason)
}

func (e *FieldError) Unwrap() error { return ErrMissingField }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if the whole submission might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsNotFound returns true if the error indicates a missing entity.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrStudentNotFound) ||
		errors.Is(err, ErrSchoolYearNotFound) ||
		errors.Is(err, ErrNoActiveSchoolYear) ||
		errors.Is(err, ErrGradeNotFound)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrEmptySelection) ||
		errors.Is(err, ErrPeriodNotDue) ||
		errors.Is(err, ErrNothingOutstanding) ||
		errors.Is(err, ErrExceedsOwed) ||
		errors.Is(err, ErrMissingField)
}
