package statevec

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/danielpatrickdp/governance-core/go-gateway/internal/fingerprint"
)

// #region constants

const (
	// MinDimension and MaxDimension bound the vector size; New clamps
	// out-of-range requests instead of failing.
	MinDimension = 2
	MaxDimension = 256

	// normFloor is the threshold below which normalization resets to the
	// basis state instead of dividing by a near-zero norm.
	normFloor = 1e-12
)

// fingerprintKey domain-separates state fingerprints from other subsystems.
var fingerprintKey = []byte("governance-core/statevec/v1")

// #endregion constants

// #region container

// Container is a normalized vector of complex amplitudes with a
// recomputable integrity fingerprint. A Container has exactly one logical
// owner at a time: Evolve mutates in place and concurrent Evolve calls must
// be serialized by the caller. Measure is read-only.
type Container struct {
	dimension  int
	amplitudes []Amplitude
	stateHash  string
	proof      string
	timestamp  int64

	fp  *fingerprint.Keyed
	now func() time.Time
}

// New constructs a Container of the given dimension, clamped to
// [MinDimension, MaxDimension]. Initial amplitudes are drawn from the
// system entropy source in [-1, 1] and normalized.
func New(dimension int) (*Container, error) {
	if dimension < MinDimension {
		dimension = MinDimension
	}
	if dimension > MaxDimension {
		dimension = MaxDimension
	}

	amps := make([]Amplitude, dimension)
	for i := range amps {
		re, err := secureUniform()
		if err != nil {
			return nil, fmt.Errorf("draw entropy: %w", err)
		}
		im, err := secureUniform()
		if err != nil {
			return nil, fmt.Errorf("draw entropy: %w", err)
		}
		amps[i] = Amplitude{Real: re, Imag: im}
	}

	c := &Container{
		dimension:  dimension,
		amplitudes: normalize(amps),
		fp:         fingerprint.New(fingerprintKey),
		now:        time.Now,
	}
	c.refresh()
	return c, nil
}

// #endregion container

// #region accessors

// Dimension returns the vector length.
func (c *Container) Dimension() int { return c.dimension }

// StateHash returns the current integrity fingerprint over the amplitudes.
func (c *Container) StateHash() string { return c.stateHash }

// Proof returns the binding fingerprint over stateHash and timestamp.
func (c *Container) Proof() string { return c.proof }

// Amplitudes returns a copy of the current amplitudes.
func (c *Container) Amplitudes() []Amplitude {
	out := make([]Amplitude, len(c.amplitudes))
	copy(out, c.amplitudes)
	return out
}

// #endregion accessors

// #region evolve

// Evolve applies a dimension×dimension complex matrix to the amplitudes,
// renormalizes, and recomputes hash, proof, and timestamp in place.
func (c *Container) Evolve(matrix [][]Amplitude) error {
	if len(matrix) != c.dimension {
		return &ValidationError{
			Field:  "matrix",
			Reason: fmt.Sprintf("dimension mismatch: got %d rows, want %d", len(matrix), c.dimension),
		}
	}
	for i, row := range matrix {
		if len(row) != c.dimension {
			return &ValidationError{
				Field:  "matrix",
				Reason: fmt.Sprintf("dimension mismatch: row %d has %d columns, want %d", i, len(row), c.dimension),
			}
		}
	}

	next := make([]Amplitude, c.dimension)
	for i := 0; i < c.dimension; i++ {
		var sum Amplitude
		for j := 0; j < c.dimension; j++ {
			sum = sum.add(matrix[i][j].mul(c.amplitudes[j]))
		}
		next[i] = sum
	}

	c.amplitudes = normalize(next)
	c.refresh()
	return nil
}

// Identity returns the n×n identity matrix.
func Identity(n int) [][]Amplitude {
	m := make([][]Amplitude, n)
	for i := range m {
		m[i] = make([]Amplitude, n)
		m[i][i] = Amplitude{Real: 1}
	}
	return m
}

// #endregion evolve

// #region measure

// Measure selects an outcome from the cumulative magnitude² distribution
// using a deterministic uniform value derived from the keyed hash of
// (stateHash, basisIndex, now). The first cumulative bucket the value falls
// under wins; if numerical drift leaves no bucket selected, the last index
// is used. The stored state is not modified.
func (c *Container) Measure(basisIndex int) (Measurement, error) {
	if basisIndex < 0 || basisIndex >= c.dimension {
		return Measurement{}, &ValidationError{
			Field:  "basisIndex",
			Reason: fmt.Sprintf("invalid basis: index %d out of [0,%d)", basisIndex, c.dimension),
		}
	}

	now := c.now().UnixNano()
	u := c.fp.Uniform(c.stateHash, strconv.Itoa(basisIndex), strconv.FormatInt(now, 10))

	outcome := c.dimension - 1
	cum := 0.0
	for i, a := range c.amplitudes {
		m := a.Magnitude()
		cum += m * m
		if u < cum {
			outcome = i
			break
		}
	}

	prob := c.amplitudes[outcome].Magnitude()
	prob *= prob

	return Measurement{
		Outcome:     outcome,
		Probability: prob,
		Proof: c.fp.Sum(
			c.stateHash,
			strconv.Itoa(basisIndex),
			strconv.Itoa(outcome),
			strconv.FormatInt(now, 10),
		),
	}, nil
}

// #endregion measure

// #region verify

// Verify recomputes the hash and proof from the current fields and compares
// them to the stored values. Used after deserialization.
func (c *Container) Verify() bool {
	wantHash := c.fp.Sum(encodeAmplitudes(c.amplitudes), strconv.FormatInt(c.timestamp, 10))
	if wantHash != c.stateHash {
		return false
	}
	wantProof := c.fp.Sum(wantHash, strconv.FormatInt(c.timestamp, 10))
	return wantProof == c.proof
}

// #endregion verify

// #region correlate

// Correlate pairs amplitude_i of c with amplitude_i of other for
// i < min(len(c), len(other)); indices beyond the shorter vector contribute
// zero. Returns a real-valued correlation plus a proof binding both hashes.
func (c *Container) Correlate(other *Container) Correlation {
	n := c.dimension
	if other.dimension < n {
		n = other.dimension
	}

	var value float64
	for i := 0; i < n; i++ {
		value += c.amplitudes[i].Real*other.amplitudes[i].Real +
			c.amplitudes[i].Imag*other.amplitudes[i].Imag
	}

	return Correlation{
		Value: value,
		Proof: c.fp.Sum(c.stateHash, other.stateHash),
	}
}

// #endregion correlate

// #region records

// ToRecord serializes all fields of the container.
func (c *Container) ToRecord() Record {
	return Record{
		Dimension:  c.dimension,
		Amplitudes: c.Amplitudes(),
		StateHash:  c.stateHash,
		Proof:      c.proof,
		Timestamp:  c.timestamp,
	}
}

// FromRecord reconstructs a Container and verifies its fingerprints.
// Returns a ValidationError for a malformed record and an IntegrityError
// when the stored fingerprints do not match the recomputed ones.
func FromRecord(rec Record) (*Container, error) {
	if rec.Dimension < MinDimension || rec.Dimension > MaxDimension {
		return nil, &ValidationError{
			Field:  "dimension",
			Reason: fmt.Sprintf("%d out of [%d,%d]", rec.Dimension, MinDimension, MaxDimension),
		}
	}
	if len(rec.Amplitudes) != rec.Dimension {
		return nil, &ValidationError{
			Field:  "amplitudes",
			Reason: fmt.Sprintf("length %d does not match dimension %d", len(rec.Amplitudes), rec.Dimension),
		}
	}

	c := &Container{
		dimension:  rec.Dimension,
		amplitudes: append([]Amplitude(nil), rec.Amplitudes...),
		stateHash:  rec.StateHash,
		proof:      rec.Proof,
		timestamp:  rec.Timestamp,
		fp:         fingerprint.New(fingerprintKey),
		now:        time.Now,
	}
	if !c.Verify() {
		return nil, &IntegrityError{Reason: "fingerprint mismatch on reconstruction"}
	}
	return c, nil
}

// #endregion records

// #region helpers

// normalize scales amplitudes to unit norm. A norm under normFloor resets
// to the basis state (1,0,0,...) rather than dividing by a near-zero value.
func normalize(amps []Amplitude) []Amplitude {
	var sumSq float64
	for _, a := range amps {
		m := a.Magnitude()
		sumSq += m * m
	}
	norm := math.Sqrt(sumSq)

	out := make([]Amplitude, len(amps))
	if norm < normFloor {
		out[0] = Amplitude{Real: 1}
		return out
	}
	for i, a := range amps {
		out[i] = Amplitude{Real: a.Real / norm, Imag: a.Imag / norm}
	}
	return out
}

// refresh recomputes timestamp, stateHash, and proof after a mutation.
func (c *Container) refresh() {
	c.timestamp = c.now().UnixNano()
	ts := strconv.FormatInt(c.timestamp, 10)
	c.stateHash = c.fp.Sum(encodeAmplitudes(c.amplitudes), ts)
	c.proof = c.fp.Sum(c.stateHash, ts)
}

// encodeAmplitudes produces a deterministic textual encoding for hashing.
func encodeAmplitudes(amps []Amplitude) string {
	var b strings.Builder
	for _, a := range amps {
		b.WriteString(strconv.FormatFloat(a.Real, 'g', 17, 64))
		b.WriteByte(',')
		b.WriteString(strconv.FormatFloat(a.Imag, 'g', 17, 64))
		b.WriteByte(';')
	}
	return b.String()
}

// secureUniform draws a value in [-1, 1] from crypto/rand.
func secureUniform() (float64, error) {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint64(buf[:])
	return float64(v>>11)/(1<<52) - 1, nil
}

// #endregion helpers
