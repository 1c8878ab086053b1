package protocol

import (
	"errors"
	"fmt"
)

// ValidationError reports an argument outside the range the device accepts.
// It is raised before any bytes are sent.
type ValidationError struct {
	Field string
	Value float64
	Min   float64
	Max   float64
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s out of range: %g not within [%g, %g]", e.Field, e.Value, e.Min, e.Max)
}

// IsValidationError returns true if the error is a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// MalformedFrameError reports a response fragment that does not match the
// shape its kind requires. The protocol offers no retransmission, so this is
// surfaced to the caller rather than retried.
type MalformedFrameError struct {
	Kind   string
	Length int
	Reason string
}

func (e *MalformedFrameError) Error() string {
	return fmt.Sprintf("malformed %s fragment (%d bytes): %s", e.Kind, e.Length, e.Reason)
}

// IsMalformedFrameError returns true if the error is a MalformedFrameError.
func IsMalformedFrameError(err error) bool {
	var me *MalformedFrameError
	return errors.As(err, &me)
}
