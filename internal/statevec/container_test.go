package statevec

import (
	"errors"
	"math"
	"time"

	"testing"

	"github.com/danielpatrickdp/governance-core/go-gateway/internal/fingerprint"
)

// fakeClock returns a clock that advances by step on every call.
func fakeClock(start time.Time, step time.Duration) func() time.Time {
	t := start
	return func() time.Time {
		t = t.Add(step)
		return t
	}
}

// makeContainer builds a container with explicit amplitudes and consistent
// fingerprints, bypassing the entropy draw.
func makeContainer(t *testing.T, amps []Amplitude) *Container {
	t.Helper()
	c := &Container{
		dimension:  len(amps),
		amplitudes: normalize(amps),
		fp:         fingerprint.New(fingerprintKey),
		now:        fakeClock(time.Unix(1700000000, 0), time.Millisecond),
	}
	c.refresh()
	return c
}

func sumSquaredMagnitudes(amps []Amplitude) float64 {
	var sum float64
	for _, a := range amps {
		m := a.Magnitude()
		sum += m * m
	}
	return sum
}

func TestNewNormalized(t *testing.T) {
	for _, dim := range []int{2, 3, 16, 256} {
		c, err := New(dim)
		if err != nil {
			t.Fatalf("New(%d): %v", dim, err)
		}
		if c.Dimension() != dim {
			t.Fatalf("dimension %d, want %d", c.Dimension(), dim)
		}
		if got := sumSquaredMagnitudes(c.Amplitudes()); math.Abs(got-1) >= 1e-9 {
			t.Errorf("dim %d: sum of squared magnitudes %.12f, want 1", dim, got)
		}
	}
}

func TestNewClampsDimension(t *testing.T) {
	c, err := New(1)
	if err != nil {
		t.Fatal(err)
	}
	if c.Dimension() != MinDimension {
		t.Errorf("dimension %d, want clamp to %d", c.Dimension(), MinDimension)
	}

	c, err = New(1000)
	if err != nil {
		t.Fatal(err)
	}
	if c.Dimension() != MaxDimension {
		t.Errorf("dimension %d, want clamp to %d", c.Dimension(), MaxDimension)
	}
}

func TestNormalizeNearZeroResetsToBasis(t *testing.T) {
	out := normalize([]Amplitude{{Real: 1e-20}, {Imag: 1e-20}, {}})
	if out[0].Real != 1 || out[0].Imag != 0 {
		t.Fatalf("expected basis state, got %+v", out)
	}
	for i := 1; i < len(out); i++ {
		if out[i] != (Amplitude{}) {
			t.Fatalf("expected zero amplitude at %d, got %+v", i, out[i])
		}
	}
}

func TestEvolveIdentityPreservesMagnitudesChangesHash(t *testing.T) {
	c := makeContainer(t, []Amplitude{{Real: 1}, {Real: 1}, {Real: 1}, {Real: 1}})
	before := c.Amplitudes()
	hashBefore := c.StateHash()

	if err := c.Evolve(Identity(4)); err != nil {
		t.Fatal(err)
	}

	after := c.Amplitudes()
	for i := range before {
		if math.Abs(before[i].Magnitude()-after[i].Magnitude()) > 1e-12 {
			t.Errorf("magnitude %d changed: %.12f → %.12f", i, before[i].Magnitude(), after[i].Magnitude())
		}
	}
	if c.StateHash() == hashBefore {
		t.Error("stateHash unchanged after evolve (timestamp should have changed)")
	}
	if got := sumSquaredMagnitudes(after); math.Abs(got-1) >= 1e-9 {
		t.Errorf("sum of squared magnitudes %.12f, want 1", got)
	}
}

func TestEvolveDimensionMismatch(t *testing.T) {
	c := makeContainer(t, []Amplitude{{Real: 1}, {}})

	var verr *ValidationError
	if err := c.Evolve(Identity(3)); !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}

	// Ragged row
	ragged := Identity(2)
	ragged[1] = ragged[1][:1]
	if err := c.Evolve(ragged); !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError for ragged matrix, got %v", err)
	}
}

func TestMeasureInvalidBasis(t *testing.T) {
	c := makeContainer(t, []Amplitude{{Real: 1}, {}})

	var verr *ValidationError
	if _, err := c.Measure(-1); !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError for index -1, got %v", err)
	}
	if _, err := c.Measure(2); !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError for index 2, got %v", err)
	}
}

func TestMeasureReadOnly(t *testing.T) {
	c := makeContainer(t, []Amplitude{{Real: 1}, {Real: 1}})
	hashBefore := c.StateHash()

	m, err := c.Measure(0)
	if err != nil {
		t.Fatal(err)
	}
	if m.Proof == "" {
		t.Error("expected non-empty proof")
	}
	if math.Abs(m.Probability-0.5) > 1e-9 {
		t.Errorf("probability %.6f, want 0.5", m.Probability)
	}
	if c.StateHash() != hashBefore {
		t.Error("measure mutated the container")
	}
}

func TestMeasureUniformSplit(t *testing.T) {
	c := makeContainer(t, []Amplitude{{Real: 1}, {Real: 1}})
	// Nanosecond clock steps give a fresh keyed draw per call.
	c.now = fakeClock(time.Unix(1700000000, 0), time.Nanosecond)

	const trials = 10000
	counts := [2]int{}
	for i := 0; i < trials; i++ {
		m, err := c.Measure(0)
		if err != nil {
			t.Fatal(err)
		}
		counts[m.Outcome]++
	}

	// 4-sigma tolerance around 5000 for p=0.5: sigma = sqrt(n*p*(1-p)) = 50.
	if counts[0] < 4800 || counts[0] > 5200 {
		t.Errorf("outcome split %d/%d outside statistical tolerance", counts[0], counts[1])
	}
}

func TestRecordRoundTrip(t *testing.T) {
	c := makeContainer(t, []Amplitude{{Real: 0.3, Imag: 0.1}, {Real: -0.7}, {Imag: 0.4}})

	restored, err := FromRecord(c.ToRecord())
	if err != nil {
		t.Fatalf("FromRecord: %v", err)
	}
	if !restored.Verify() {
		t.Error("restored container failed verification")
	}
	if restored.StateHash() != c.StateHash() {
		t.Error("stateHash changed across round trip")
	}
}

func TestFromRecordTampered(t *testing.T) {
	c := makeContainer(t, []Amplitude{{Real: 1}, {Real: 1}})
	rec := c.ToRecord()
	rec.Amplitudes[0].Real += 0.25

	var ierr *IntegrityError
	if _, err := FromRecord(rec); !errors.As(err, &ierr) {
		t.Fatalf("expected IntegrityError, got %v", err)
	}
}

func TestFromRecordMalformed(t *testing.T) {
	c := makeContainer(t, []Amplitude{{Real: 1}, {Real: 1}})

	var verr *ValidationError

	rec := c.ToRecord()
	rec.Dimension = 1
	if _, err := FromRecord(rec); !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError for bad dimension, got %v", err)
	}

	rec = c.ToRecord()
	rec.Amplitudes = rec.Amplitudes[:1]
	if _, err := FromRecord(rec); !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError for length mismatch, got %v", err)
	}
}

func TestCorrelateZeroPadsShorterVector(t *testing.T) {
	a := makeContainer(t, []Amplitude{{Real: 1}, {Real: 1}})
	b := makeContainer(t, []Amplitude{{Real: 1}, {Real: 1}, {Real: 1}, {Real: 1}})

	corr := a.Correlate(b)
	// Only the first two indices contribute: (1/√2)(1/2) twice = 1/√2.
	want := 1 / math.Sqrt2
	if math.Abs(corr.Value-want) > 1e-9 {
		t.Errorf("correlation %.9f, want %.9f", corr.Value, want)
	}
	if corr.Proof == "" {
		t.Error("expected binding proof")
	}

	// Symmetric pairing from the other side uses the same indices.
	rev := b.Correlate(a)
	if math.Abs(rev.Value-want) > 1e-9 {
		t.Errorf("reverse correlation %.9f, want %.9f", rev.Value, want)
	}
}

func TestVerifyDetectsMutation(t *testing.T) {
	c := makeContainer(t, []Amplitude{{Real: 1}, {Real: 1}})
	if !c.Verify() {
		t.Fatal("fresh container should verify")
	}
	c.amplitudes[0].Real = 0.9
	if c.Verify() {
		t.Error("verify should fail after raw mutation without refresh")
	}
}
