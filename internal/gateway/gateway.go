package gateway

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/danielpatrickdp/governance-core/go-gateway/internal/admission"
	"github.com/danielpatrickdp/governance-core/go-gateway/internal/audit"
	"github.com/danielpatrickdp/governance-core/go-gateway/internal/threat"
)

// #region types

// Work is one governed unit of work. Results are captured by the closure;
// the gateway only needs the error to drive admission and threat scoring.
type Work func(ctx context.Context) error

// Result reports what the gateway observed for one governed call.
type Result struct {
	Decision admission.Decision
	Duration time.Duration
	Threat   threat.Record // zero value when the work never ran
}

// #endregion types

// #region gateway

// Gateway orchestrates admission control, execution, and threat analysis
// around arbitrary units of work, forwarding audit events to the injected
// sink. All stores are explicit dependencies; there is no package-level
// registry.
type Gateway struct {
	admission *admission.Controller
	scorer    *threat.Scorer
	sink      audit.Sink
	log       *slog.Logger
	tracer    trace.Tracer

	sweepEvery time.Duration

	closeOnce sync.Once
	stop      context.CancelFunc
	done      chan struct{}
}

// Config wires a Gateway. Admission, Scorer, and Sink are required.
type Config struct {
	Admission *admission.Controller
	Scorer    *threat.Scorer
	Sink      audit.Sink
	Logger    *slog.Logger

	// SweepInterval controls the background window-trim loop started by
	// Start. Zero means the 30s default.
	SweepInterval time.Duration
}

// New creates a gateway. Start must be called to run window maintenance.
func New(cfg Config) *Gateway {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	sweep := cfg.SweepInterval
	if sweep <= 0 {
		sweep = 30 * time.Second
	}
	return &Gateway{
		admission:  cfg.Admission,
		scorer:     cfg.Scorer,
		sink:       cfg.Sink,
		log:        logger,
		tracer:     otel.Tracer("governance-core/gateway"),
		sweepEvery: sweep,
	}
}

// #endregion gateway

// #region execute

// ExecuteGoverned gates the work through admission control, runs it,
// scores the outcome, and forwards audit events. Denials return a
// RateLimitError or CircuitOpenError without running the work; work
// failures are wrapped in an OperationError after admission bookkeeping
// has been updated.
func (g *Gateway) ExecuteGoverned(ctx context.Context, operation, identity string, work Work, reqCtx threat.Context) (Result, error) {
	ctx, span := g.tracer.Start(ctx, "gateway.execute",
		trace.WithAttributes(
			attribute.String("operation", operation),
			attribute.String("identity", identity),
		),
	)
	defer span.End()

	dec := g.admission.CheckLimit(operation, identity, 1)
	if !dec.Allowed {
		g.appendEvent("admission_denied", map[string]any{
			"operation":   operation,
			"identity":    identity,
			"retry_after": dec.RetryAfter,
			"circuit":     string(dec.Circuit),
		})
		var err error
		if dec.Circuit == admission.CircuitOpen {
			err = &CircuitOpenError{RetryAfter: dec.RetryAfter}
		} else {
			err = &RateLimitError{RetryAfter: dec.RetryAfter}
		}
		span.SetStatus(otelcodes.Error, err.Error())
		return Result{Decision: dec}, err
	}

	start := time.Now()
	workErr := work(ctx)
	duration := time.Since(start)

	metrics := threat.Metrics{Duration: duration, ErrorRate: 0}
	if workErr != nil {
		g.admission.RecordFailure(operation, identity)
		metrics.ErrorRate = 1
	} else {
		g.admission.RecordSuccess(operation, identity)
	}
	rec := g.scorer.Analyze(operation, metrics, reqCtx)

	g.appendEvent("performance_metric", map[string]any{
		"operation":   operation,
		"duration_ms": duration.Milliseconds(),
		"success":     workErr == nil,
	})

	res := Result{Decision: dec, Duration: duration, Threat: rec}
	if workErr != nil {
		span.RecordError(workErr)
		span.SetStatus(otelcodes.Error, workErr.Error())
		return res, &OperationError{Operation: operation, Err: workErr}
	}
	return res, nil
}

// UpdateBaseline is the administrative path for adjusting an operation's
// behavioral envelope.
func (g *Gateway) UpdateBaseline(operation string, patch threat.BaselinePatch) bool {
	return g.scorer.UpdateBaseline(operation, patch)
}

// appendEvent forwards to the audit sink best-effort. Sink failures are
// logged and never reach the caller.
func (g *Gateway) appendEvent(eventType string, details map[string]any) {
	if _, err := g.sink.Append(eventType, details); err != nil {
		g.log.Warn("audit append failed", "event", eventType, "error", err)
	}
}

// #endregion execute

// #region lifecycle

// Start launches the background window-sweep loop. The loop is owned by
// the gateway: it ends when ctx is cancelled or Close is called.
func (g *Gateway) Start(ctx context.Context) {
	if g.done != nil {
		return
	}
	ctx, g.stop = context.WithCancel(ctx)
	g.done = make(chan struct{})

	go func() {
		defer close(g.done)
		ticker := time.NewTicker(g.sweepEvery)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				g.admission.Sweep()
			}
		}
	}()
}

// Close stops the maintenance loop and waits for it to exit.
func (g *Gateway) Close() {
	g.closeOnce.Do(func() {
		if g.stop == nil {
			return
		}
		g.stop()
		<-g.done
	})
}

// #endregion lifecycle
