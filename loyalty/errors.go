/*
errors.go - Centralized error types for the loyalty engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Callers (HTTP layer, scheduler) match on these with errors.Is/As.

ERROR CATEGORIES:
  1. Validation errors - Invalid amounts from the caller
  2. Balance errors    - Redeem exceeding the available balance
  3. Lookup errors     - Unknown users

USAGE:
  if errors.Is(err, loyalty.ErrInsufficientBalance) {
      // reject with 400, balance unchanged
  }

SEE ALSO:
  - service.go: Returns these errors
  - api/handlers.go: Maps them to HTTP status codes
*/
package loyalty

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidAmount is returned when an earn amount or redeem point count
	// is zero or negative.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrInsufficientBalance is returned when a redemption exceeds the
	// available balance. The store is left unchanged.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrUserNotFound is returned when a referenced user doesn't exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrUserExists is returned when creating a user with a phone or email
	// that is already registered.
	ErrUserExists = errors.New("user already exists")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InsufficientBalanceError provides details about a balance shortage.
type InsufficientBalanceError struct {
	UserID    UserID
	Available int64
	Requested int64
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: available %d, requested %d, shortfall %d",
		e.Available, e.Requested, e.Requested-e.Available)
}

func (e *InsufficientBalanceError) Unwrap() error {
	return ErrInsufficientBalance
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrUserExists)
}

// IsNotFound returns true if the error indicates a missing user.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrUserNotFound)
}
