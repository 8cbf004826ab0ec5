package statevec

import "fmt"

// #region validation-error

// ValidationError reports a malformed input: bad dimension, matrix shape
// mismatch, out-of-range basis index, or a malformed serialized record.
// Never retried; the caller's input is wrong.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

// #endregion validation-error

// #region integrity-error

// IntegrityError reports a fingerprint mismatch on reconstruction. It
// signals corrupted or tampered data and is never retried.
type IntegrityError struct {
	Reason string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("integrity: %s", e.Reason)
}

// #endregion integrity-error
