package txn

import (
	"errors"
	"fmt"
)

var (
	// ErrAccountMismatch is returned when the transaction's Account is not the
	// account of the wallet asked to sign it.
	ErrAccountMismatch = errors.New("transaction account does not match signing wallet")

	// ErrInvalidAddress is returned for strings that are not classic addresses.
	ErrInvalidAddress = errors.New("invalid classic address")
)

// ValidationError describes an intent that cannot be turned into a transaction.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
