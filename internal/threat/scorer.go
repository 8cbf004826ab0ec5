package threat

import (
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/danielpatrickdp/governance-core/go-gateway/internal/audit"
	"github.com/danielpatrickdp/governance-core/go-gateway/internal/fingerprint"
)

// #region constants

const (
	// incidentThreshold is the composite score above which a record opens
	// an incident and triggers response actions.
	incidentThreshold = 0.7

	// noBaselineScore is the behavioral score for operations that have no
	// recorded baseline yet.
	noBaselineScore = 0.1
)

var fingerprintKey = []byte("governance-core/threat/v1")

// #endregion constants

// #region scorer

// Scorer combines a keyed pseudo-random baseline, per-operation behavioral
// deviation, and contextual heuristics into a composite threat score, and
// drives incident response for high scores. Baselines are mutated only by
// UpdateBaseline; the incident counter is a plain atomic.
type Scorer struct {
	mu        sync.Mutex
	baselines map[string]Baseline
	incidents atomic.Int64

	sink audit.Sink
	fp   *fingerprint.Keyed
	now  func() time.Time
	log  *slog.Logger
}

// Config wires a Scorer. Sink is required; Clock and Logger default to
// time.Now and slog.Default.
type Config struct {
	Sink   audit.Sink
	Clock  func() time.Time
	Logger *slog.Logger
}

// NewScorer creates a scorer with no baselines recorded.
func NewScorer(cfg Config) *Scorer {
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Scorer{
		baselines: make(map[string]Baseline),
		sink:      cfg.Sink,
		fp:        fingerprint.New(fingerprintKey),
		now:       clock,
		log:       logger,
	}
}

// #endregion scorer

// #region analyze

// Analyze scores one executed operation and returns its immutable threat
// record. The composite is the strongest single component, not a weighted
// average: one decisive signal should not be diluted by two quiet ones.
// Composite scores above incidentThreshold trigger response actions.
func (s *Scorer) Analyze(operation string, metrics Metrics, ctx Context) Record {
	now := s.now()

	anomaly := s.anomalyScore(operation, metrics, now)
	behavioral := s.behavioralScore(operation, metrics, ctx)
	contextual := s.contextualScore(ctx, now)

	composite := anomaly
	if behavioral > composite {
		composite = behavioral
	}
	if contextual > composite {
		composite = contextual
	}

	id := uuid.New().String()
	rec := Record{
		ID:        id,
		Operation: operation,
		Scores: Scores{
			Anomaly:    anomaly,
			Behavioral: behavioral,
			Contextual: contextual,
			Composite:  composite,
		},
		Severity: SeverityFor(composite),
		Proof: s.fp.Sum(
			id,
			encodeMetrics(metrics),
			strconv.FormatFloat(composite, 'g', 17, 64),
			strconv.FormatInt(now.UnixNano(), 10),
		),
		Timestamp: now,
	}

	if composite > incidentThreshold {
		s.incidents.Add(1)
		s.respond(rec)
	}
	return rec
}

// IncidentCount returns the number of incidents opened so far.
func (s *Scorer) IncidentCount() int64 {
	return s.incidents.Load()
}

// #endregion analyze

// #region component-scores

// anomalyScore derives a keyed pseudo-random floor in [0, 0.3) and adds
// fixed penalties for slow or failing operations.
func (s *Scorer) anomalyScore(operation string, metrics Metrics, now time.Time) float64 {
	score := 0.3 * s.fp.Uniform(
		operation,
		encodeMetrics(metrics),
		strconv.FormatInt(now.UnixNano(), 10),
	)
	if metrics.Duration > time.Second {
		score += 0.4
	}
	if metrics.ErrorRate > 0.1 {
		score += 0.3
	}
	return clamp(score)
}

// behavioralScore measures deviation from the operation's recorded
// baseline. Operations without a baseline get a small fixed score.
func (s *Scorer) behavioralScore(operation string, metrics Metrics, ctx Context) float64 {
	s.mu.Lock()
	baseline, ok := s.baselines[operation]
	s.mu.Unlock()
	if !ok {
		return noBaselineScore
	}

	var score float64
	switch {
	case metrics.Duration > 2*baseline.MaxDuration:
		score += 0.4
	case metrics.Duration > baseline.MaxDuration:
		score += 0.2
	}
	switch {
	case metrics.ErrorRate > 5*baseline.ErrorRate:
		score += 0.4
	case metrics.ErrorRate > 2*baseline.ErrorRate:
		score += 0.2
	}
	if ctx.Frequency > 1000 {
		score += 0.2
	}
	return clamp(score)
}

// contextualScore sums fixed weights for suspicious circumstances.
func (s *Scorer) contextualScore(ctx Context, now time.Time) float64 {
	var score float64
	if ctx.SuspiciousIP {
		score += 0.3
	}
	if hour := now.Hour(); hour < 6 || hour > 22 {
		score += 0.2
	}
	if ctx.UnusualLocation {
		score += 0.3
	}
	if ctx.RapidSuccession {
		score += 0.2
	}
	return clamp(score)
}

// #endregion component-scores

// #region response

// responseActions selects the incident response plan by severity.
func responseActions(severity Severity) []string {
	switch severity {
	case SeverityCritical:
		return []string{"isolate", "alert", "full_audit"}
	case SeverityHigh:
		return []string{"rate_limit", "enhanced_monitor", "review"}
	case SeverityMedium:
		return []string{"log", "baseline_update"}
	default:
		return nil
	}
}

// respond executes the severity's response actions sequentially. Each
// action is observable as an audit event; sink failures are logged and
// never propagate.
func (s *Scorer) respond(rec Record) {
	s.log.Warn("threat incident",
		"operation", rec.Operation,
		"severity", rec.Severity,
		"composite", rec.Scores.Composite,
	)
	for _, action := range responseActions(rec.Severity) {
		_, err := s.sink.Append("threat_response", map[string]any{
			"threat_id": rec.ID,
			"operation": rec.Operation,
			"severity":  string(rec.Severity),
			"action":    action,
			"proof":     rec.Proof,
		})
		if err != nil {
			s.log.Warn("audit append failed", "action", action, "error", err)
		}
	}
}

// #endregion response

// #region baselines

// UpdateBaseline merges a partial baseline into the operation's envelope.
// This is the administrative path; normal traffic never touches baselines.
func (s *Scorer) UpdateBaseline(operation string, patch BaselinePatch) bool {
	if operation == "" {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	baseline := s.baselines[operation]
	if patch.AvgDuration != nil {
		baseline.AvgDuration = *patch.AvgDuration
	}
	if patch.MaxDuration != nil {
		baseline.MaxDuration = *patch.MaxDuration
	}
	if patch.ErrorRate != nil {
		baseline.ErrorRate = *patch.ErrorRate
	}
	s.baselines[operation] = baseline
	return true
}

// BaselineFor returns the operation's baseline, if one has been set.
func (s *Scorer) BaselineFor(operation string) (Baseline, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.baselines[operation]
	return b, ok
}

// #endregion baselines

// #region helpers

func encodeMetrics(m Metrics) string {
	return fmt.Sprintf("%d|%s", m.Duration.Nanoseconds(), strconv.FormatFloat(m.ErrorRate, 'g', 17, 64))
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// #endregion helpers
