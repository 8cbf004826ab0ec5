package statevec

import "math"

// #region amplitude

// Amplitude is a single complex coordinate of a state vector.
type Amplitude struct {
	Real float64 `json:"real"`
	Imag float64 `json:"imaginary"`
}

// Magnitude returns sqrt(real² + imaginary²).
func (a Amplitude) Magnitude() float64 {
	return math.Sqrt(a.Real*a.Real + a.Imag*a.Imag)
}

// mul returns the complex product a·b.
func (a Amplitude) mul(b Amplitude) Amplitude {
	return Amplitude{
		Real: a.Real*b.Real - a.Imag*b.Imag,
		Imag: a.Real*b.Imag + a.Imag*b.Real,
	}
}

// add returns the complex sum a+b.
func (a Amplitude) add(b Amplitude) Amplitude {
	return Amplitude{Real: a.Real + b.Real, Imag: a.Imag + b.Imag}
}

// #endregion amplitude

// #region record

// Record is the serialized form of a Container. All integrity fields are
// carried so FromRecord can re-verify the fingerprints.
type Record struct {
	Dimension  int         `json:"dimension"`
	Amplitudes []Amplitude `json:"amplitudes"`
	StateHash  string      `json:"state_hash"`
	Proof      string      `json:"proof"`
	Timestamp  int64       `json:"timestamp"`
}

// #endregion record

// #region measurement

// Measurement is the read-only outcome of measuring a Container against a
// basis index. The stored state is not collapsed.
type Measurement struct {
	Outcome     int
	Probability float64
	Proof       string
}

// #endregion measurement

// #region correlation

// Correlation pairs two containers element-wise. Indices beyond the shorter
// vector are treated as zero; this matches the documented behavior even
// though it silently under-weights mismatched lengths.
type Correlation struct {
	Value float64
	Proof string
}

// #endregion correlation
