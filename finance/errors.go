/*
errors.go - Centralized error types for the financial layer

PURPOSE:
  All error types in one place for consistency and discoverability.
  Domain packages (loan, fund) wrap these with document context; the API
  maps them to HTTP statuses through the classifier helpers below.

ERROR CATEGORIES:
  1. Input errors - non-positive principal, term, amortization period
  2. Configuration errors - waterfall splits outside [0, 1]
  3. Date errors - invalid calendar dates

NON-ERRORS:
  APR non-convergence is reported through APRResult.Converged, not here.
  Division-by-zero guards return zero values instead of errors.

SEE ALSO:
  - loan/package.go: Wraps these errors with document context
  - api/handlers.go: Maps errors to HTTP statuses
*/
package finance

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidLoanParameters is returned when principal, term, amortization
	// period, rate or payment cannot produce a meaningful schedule.
	ErrInvalidLoanParameters = errors.New("invalid loan parameters")

	// ErrInvalidWaterfall is returned when a waterfall split or threshold is
	// outside its allowed range.
	ErrInvalidWaterfall = errors.New("invalid waterfall configuration")

	// ErrInvalidDate is returned when a calendar date is not valid.
	ErrInvalidDate = errors.New("invalid date")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InvalidParameterError names the offending field.
type InvalidParameterError struct {
	Field  string
	Value  string
	Reason string
	kind   error
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("%v: %s=%s (%s)", e.kind, e.Field, e.Value, e.Reason)
}

func (e *InvalidParameterError) Unwrap() error { return e.kind }

func invalidLoan(field string, value any, reason string) error {
	return &InvalidParameterError{Field: field, Value: fmt.Sprint(value), Reason: reason, kind: ErrInvalidLoanParameters}
}

func invalidWaterfall(field string, value any, reason string) error {
	return &InvalidParameterError{Field: field, Value: fmt.Sprint(value), Reason: reason, kind: ErrInvalidWaterfall}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidLoanParameters) ||
		errors.Is(err, ErrInvalidWaterfall) ||
		errors.Is(err, ErrInvalidDate)
}
