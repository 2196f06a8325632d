package multisig

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedPartial is returned for a partial signature whose blob does not
// carry exactly one signature by its declared signer.
var ErrMalformedPartial = errors.New("malformed partial signature")

// QuorumError reports a set of partial signatures that cannot be combined.
type QuorumError struct {
	Reason  string
	Signers []string
}

func (e *QuorumError) Error() string {
	if len(e.Signers) == 0 {
		return "quorum: " + e.Reason
	}
	return fmt.Sprintf("quorum: %s [%s]", e.Reason, strings.Join(e.Signers, ", "))
}
