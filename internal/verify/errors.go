package verify

import "fmt"

// VerificationError means the node answered conclusively and the answer
// is wrong: the transaction does not match what was submitted, or it
// validated with a failure result. It also covers invalid ledger ranges.
type VerificationError struct {
	TransactionID string
	Field         string
	Expected      string
	Actual        string
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("verify %s: %s is %q, expected %q", e.TransactionID, e.Field, e.Actual, e.Expected)
}

// Expiration reasons.
const (
	ReasonLedgerPassed = "validated ledger passed the range without the transaction"
	ReasonOutsideRange = "transaction validated outside the range"
	ReasonAttempts     = "poll attempts exhausted"
	ReasonTimeout      = "verification timed out"
)

// ExpirationError means the transaction was not seen validated inside its
// ledger range before the verifier gave up.
type ExpirationError struct {
	TransactionID string
	Range         LedgerRange
	LastValidated uint32
	Attempts      int
	Reason        string
}

func (e *ExpirationError) Error() string {
	return fmt.Sprintf("verify %s: expired after %d attempts in %s (last validated %d): %s",
		e.TransactionID, e.Attempts, e.Range, e.LastValidated, e.Reason)
}
