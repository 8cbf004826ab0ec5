package admission

import "time"

// #region circuit-state

// CircuitState enumerates the breaker states for an admission key.
type CircuitState string

const (
	CircuitClosed   CircuitState = "CLOSED"
	CircuitOpen     CircuitState = "OPEN"
	CircuitHalfOpen CircuitState = "HALF_OPEN"
)

// #endregion circuit-state

// #region key

// Key identifies one admission bucket: a (operation, identity) pair.
type Key struct {
	Operation string
	Identity  string
}

// #endregion key

// #region policy

// Policy is the configured limit envelope for one operation.
type Policy struct {
	Base         int     // steady-state requests per window
	Burst        int     // headroom above base the adaptive limit may grow into
	RecoveryRate float64 // fraction of base recovered per second of low usage
}

// DefaultPolicy is the permissive fallback for operations with no
// configured policy. Unknown operations are never rejected outright.
func DefaultPolicy() Policy {
	return Policy{Base: 1000, Burst: 0, RecoveryRate: 0.1}
}

// #endregion policy

// #region decision

// Decision is the outcome of one CheckLimit call. RetryAfter is advisory,
// in whole seconds; callers decide whether and when to retry.
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter int
	Limit      int
	Circuit    CircuitState
}

// #endregion decision

// #region adaptive-limit

// adaptiveLimit tracks the moving per-operation limit. Invariant:
// base ≤ current ≤ base+burst, with a half-base floor under shrink pressure.
type adaptiveLimit struct {
	base         int
	burst        int
	recoveryRate float64
	current      float64
	lastUpdate   time.Time
}

// #endregion adaptive-limit

// #region breaker

// breaker holds per-key circuit state. Mutations are serialized by the
// owning entry's lock.
type breaker struct {
	state        CircuitState
	failureCount int
	trippedAt    time.Time
	timeout      time.Duration
}

// #endregion breaker

// #region entry

// entry is the per-key admission bucket: sliding window plus breaker.
type entry struct {
	window  []time.Time
	breaker breaker
}

// #endregion entry
