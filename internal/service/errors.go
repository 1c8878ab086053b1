package service

import (
	"fmt"
	"math"
)

// VerificationFailedError reports that double-check mode exhausted its
// resends without the device ever confirming the value it was sent.
type VerificationFailedError struct {
	Field    string
	Sent     float64
	Observed float64 // NaN when no read-back ever arrived
	Resends  int
}

func (e *VerificationFailedError) Error() string {
	if math.IsNaN(e.Observed) {
		return fmt.Sprintf("verification failed for %s: sent %g, no read-back after %d resends",
			e.Field, e.Sent, e.Resends)
	}
	return fmt.Sprintf("verification failed for %s: sent %g, device reports %g after %d resends",
		e.Field, e.Sent, e.Observed, e.Resends)
}
