package threat

import "time"

// #region severity

// Severity classifies a composite threat score.
type Severity string

const (
	SeverityInfo     Severity = "INFO"
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// SeverityFor maps a composite score to its severity band.
func SeverityFor(composite float64) Severity {
	switch {
	case composite >= 0.9:
		return SeverityCritical
	case composite >= 0.7:
		return SeverityHigh
	case composite >= 0.5:
		return SeverityMedium
	case composite >= 0.3:
		return SeverityLow
	default:
		return SeverityInfo
	}
}

// #endregion severity

// #region metrics

// Metrics describes the observed outcome of one executed operation.
type Metrics struct {
	Duration  time.Duration
	ErrorRate float64
}

// #endregion metrics

// #region context

// Context carries the caller-side circumstances of an operation, used by
// the behavioral and contextual scores.
type Context struct {
	SuspiciousIP    bool
	UnusualLocation bool
	RapidSuccession bool
	Frequency       int
}

// #endregion context

// #region scores

// Scores holds the component and composite threat scores, each in [0, 1].
type Scores struct {
	Anomaly    float64 `json:"anomaly"`
	Behavioral float64 `json:"behavioral"`
	Contextual float64 `json:"contextual"`
	Composite  float64 `json:"composite"`
}

// #endregion scores

// #region record

// Record is one immutable analyzed-operation entry for the audit trail.
type Record struct {
	ID        string    `json:"id"`
	Operation string    `json:"operation"`
	Scores    Scores    `json:"scores"`
	Severity  Severity  `json:"severity"`
	Proof     string    `json:"proof"`
	Timestamp time.Time `json:"timestamp"`
}

// #endregion record

// #region baseline

// Baseline is the expected performance envelope for an operation. Updated
// only by the administrative UpdateBaseline call, never by normal traffic.
type Baseline struct {
	AvgDuration time.Duration
	MaxDuration time.Duration
	ErrorRate   float64
}

// BaselinePatch is a partial baseline; nil fields keep the current value.
type BaselinePatch struct {
	AvgDuration *time.Duration
	MaxDuration *time.Duration
	ErrorRate   *float64
}

// #endregion baseline
