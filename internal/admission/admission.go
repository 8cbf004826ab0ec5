package admission

import (
	"log/slog"
	"math"
	"sync"
	"time"
)

// #region constants

const (
	windowSpan     = 60 * time.Second
	tripThreshold  = 5
	initialTimeout = 30 * time.Second
	maxTimeout     = 300 * time.Second

	// Adaptive limit thresholds. Updates are damped to once per second per
	// operation so bursty traffic does not oscillate the limit.
	shrinkAbove   = 0.8
	growBelow     = 0.3
	shrinkFactor  = 0.95
	adaptInterval = time.Second
)

// #endregion constants

// #region controller

// Controller is a per-(operation, identity) sliding-window rate limiter
// with an adaptive per-operation limit and a per-key circuit breaker.
// Window and breaker mutations for one key are serialized by that key's
// lock; adaptive limits are advisory and tolerate last-writer-wins.
type Controller struct {
	mu       sync.Mutex
	policies map[string]Policy
	limits   map[string]*adaptiveLimit
	entries  map[Key]*lockedEntry

	fallback Policy
	now      func() time.Time
	log      *slog.Logger
}

type lockedEntry struct {
	mu sync.Mutex
	entry
}

// Config wires a Controller. Zero-value fields fall back to defaults:
// DefaultPolicy for unknown operations, time.Now for the clock, and
// slog.Default for logging.
type Config struct {
	Policies map[string]Policy
	Fallback Policy
	Clock    func() time.Time
	Logger   *slog.Logger
}

// NewController creates a controller with the given per-operation policies.
func NewController(cfg Config) *Controller {
	fallback := cfg.Fallback
	if fallback.Base <= 0 {
		fallback = DefaultPolicy()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	policies := make(map[string]Policy, len(cfg.Policies))
	for op, p := range cfg.Policies {
		policies[op] = p
	}

	return &Controller{
		policies: policies,
		limits:   make(map[string]*adaptiveLimit),
		entries:  make(map[Key]*lockedEntry),
		fallback: fallback,
		now:      clock,
		log:      logger,
	}
}

// SetPolicy registers or replaces the limit policy for an operation.
// Existing adaptive state for the operation is reset.
func (c *Controller) SetPolicy(operation string, p Policy) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.policies[operation] = p
	delete(c.limits, operation)
}

// #endregion controller

// #region check-limit

// CheckLimit gates one request of the given cost against the sliding window
// and circuit breaker for (operation, identity). It never blocks and never
// fails: unknown operations use the permissive fallback policy.
func (c *Controller) CheckLimit(operation, identity string, cost int) Decision {
	if cost <= 0 {
		cost = 1
	}
	now := c.now()
	e, lim := c.bucket(operation, identity, now)

	e.mu.Lock()
	defer e.mu.Unlock()

	e.trim(now)
	br := &e.breaker

	if br.state == CircuitOpen {
		expiry := br.trippedAt.Add(br.timeout)
		if now.Before(expiry) {
			return Decision{
				Allowed:    false,
				RetryAfter: ceilSeconds(expiry.Sub(now)),
				Limit:      c.limitValue(lim),
				Circuit:    CircuitOpen,
			}
		}
		br.state = CircuitHalfOpen
	}

	limit := c.limitValue(lim)
	if len(e.window)+cost > limit {
		c.failLocked(br, Key{Operation: operation, Identity: identity}, now)
		retryAfter := 1
		if len(e.window) > 0 {
			retryAfter = ceilSeconds(e.window[0].Add(windowSpan).Sub(now))
			if retryAfter < 1 {
				retryAfter = 1
			}
		}
		return Decision{
			Allowed:    false,
			Remaining:  0,
			RetryAfter: retryAfter,
			Limit:      limit,
			Circuit:    br.state,
		}
	}

	e.window = append(e.window, now)
	limit = c.adapt(lim, len(e.window), now)

	remaining := limit - len(e.window)
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Allowed:   true,
		Remaining: remaining,
		Limit:     limit,
		Circuit:   br.state,
	}
}

// #endregion check-limit

// #region record-outcome

// RecordFailure counts one failed execution against the key's breaker.
// A failure in HALF_OPEN re-trips immediately; otherwise the breaker trips
// after tripThreshold accumulated failures.
func (c *Controller) RecordFailure(operation, identity string) {
	now := c.now()
	e, _ := c.bucket(operation, identity, now)
	e.mu.Lock()
	defer e.mu.Unlock()
	c.failLocked(&e.breaker, Key{Operation: operation, Identity: identity}, now)
}

// RecordSuccess counts one successful execution. HALF_OPEN closes the
// circuit and resets the backoff; otherwise the failure count decays by one.
func (c *Controller) RecordSuccess(operation, identity string) {
	now := c.now()
	e, _ := c.bucket(operation, identity, now)
	e.mu.Lock()
	defer e.mu.Unlock()

	br := &e.breaker
	if br.state == CircuitHalfOpen {
		br.state = CircuitClosed
		br.failureCount = 0
		br.timeout = 0
		c.log.Info("circuit closed", "operation", operation, "identity", identity)
		return
	}
	if br.failureCount > 0 {
		br.failureCount--
	}
}

// #endregion record-outcome

// #region sweep

// Sweep trims expired window entries across all keys. Called periodically
// by the gateway's maintenance loop so idle keys do not pin memory.
func (c *Controller) Sweep() {
	now := c.now()

	c.mu.Lock()
	entries := make([]*lockedEntry, 0, len(c.entries))
	for _, e := range c.entries {
		entries = append(entries, e)
	}
	c.mu.Unlock()

	for _, e := range entries {
		e.mu.Lock()
		e.trim(now)
		e.mu.Unlock()
	}
}

// #endregion sweep

// #region internals

// bucket returns (lazily creating) the entry for a key and the adaptive
// limit for its operation.
func (c *Controller) bucket(operation, identity string, now time.Time) (*lockedEntry, *adaptiveLimit) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := Key{Operation: operation, Identity: identity}
	e, ok := c.entries[key]
	if !ok {
		e = &lockedEntry{entry: entry{breaker: breaker{state: CircuitClosed}}}
		c.entries[key] = e
	}

	lim, ok := c.limits[operation]
	if !ok {
		p, ok := c.policies[operation]
		if !ok {
			p = c.fallback
		}
		lim = &adaptiveLimit{
			base:         p.Base,
			burst:        p.Burst,
			recoveryRate: p.RecoveryRate,
			current:      float64(p.Base),
			lastUpdate:   now,
		}
		c.limits[operation] = lim
	}
	return e, lim
}

// limitValue reads the operation's current limit under the controller lock.
func (c *Controller) limitValue(lim *adaptiveLimit) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return int(lim.current)
}

// adapt moves the operation limit toward the observed usage, at most once
// per adaptInterval. Returns the (possibly updated) integer limit.
func (c *Controller) adapt(lim *adaptiveLimit, windowSize int, now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	elapsed := now.Sub(lim.lastUpdate)
	if elapsed < adaptInterval {
		return int(lim.current)
	}

	ratio := float64(windowSize) / lim.current
	switch {
	case ratio > shrinkAbove:
		lim.current = math.Max(0.5*float64(lim.base), lim.current*shrinkFactor)
	case ratio < growBelow:
		ceiling := float64(lim.base + lim.burst)
		lim.current = math.Min(ceiling, lim.current+float64(lim.base)*lim.recoveryRate*elapsed.Seconds())
	}
	lim.lastUpdate = now
	return int(lim.current)
}

// failLocked applies one failure to a breaker. Caller holds the entry lock.
func (c *Controller) failLocked(br *breaker, key Key, now time.Time) {
	if br.state == CircuitHalfOpen {
		c.trip(br, key, now)
		return
	}
	br.failureCount++
	if br.state == CircuitClosed && br.failureCount >= tripThreshold {
		c.trip(br, key, now)
	}
}

// trip opens the circuit, doubling the previous timeout up to maxTimeout.
func (c *Controller) trip(br *breaker, key Key, now time.Time) {
	if br.timeout == 0 {
		br.timeout = initialTimeout
	} else {
		br.timeout *= 2
		if br.timeout > maxTimeout {
			br.timeout = maxTimeout
		}
	}
	br.state = CircuitOpen
	br.trippedAt = now
	br.failureCount = 0
	c.log.Warn("circuit opened",
		"operation", key.Operation,
		"identity", key.Identity,
		"timeout", br.timeout,
	)
}

// trim drops window entries older than windowSpan.
func (e *lockedEntry) trim(now time.Time) {
	cutoff := now.Add(-windowSpan)
	i := 0
	for i < len(e.window) && !e.window[i].After(cutoff) {
		i++
	}
	if i > 0 {
		e.window = append(e.window[:0], e.window[i:]...)
	}
}

func ceilSeconds(d time.Duration) int {
	return int(math.Ceil(d.Seconds()))
}

// #endregion internals
