package gateway

import "fmt"

// #region rate-limit-error

// RateLimitError signals that admission denied the request on throughput.
// Expected control flow, not a bug: back off RetryAfter seconds and retry.
type RateLimitError struct {
	RetryAfter int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded: retry after %ds", e.RetryAfter)
}

// #endregion rate-limit-error

// #region circuit-open-error

// CircuitOpenError signals that the key's circuit breaker is open and the
// work was not attempted.
type CircuitOpenError struct {
	RetryAfter int
}

func (e *CircuitOpenError) Error() string {
	return fmt.Sprintf("circuit open: retry after %ds", e.RetryAfter)
}

// #endregion circuit-open-error

// #region operation-error

// OperationError wraps a failure of the governed work itself, after
// admission bookkeeping has already been updated.
type OperationError struct {
	Operation string
	Err       error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("operation %s failed: %v", e.Operation, e.Err)
}

func (e *OperationError) Unwrap() error {
	return e.Err
}

// #endregion operation-error
