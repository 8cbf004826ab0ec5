package fingerprint

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
)

// Keyed produces deterministic tamper-evidence fingerprints. These are
// integrity checksums over a domain-separation key, not cryptographic
// proofs of anything.

// #region keyed

// Keyed computes fingerprints bound to a fixed key.
type Keyed struct {
	key []byte
}

// New creates a Keyed fingerprinter. The key separates fingerprint domains
// so that hashes from one subsystem cannot be replayed into another.
func New(key []byte) *Keyed {
	k := make([]byte, len(key))
	copy(k, key)
	return &Keyed{key: k}
}

// #endregion keyed

// #region sum

// Sum returns the hex digest of key || part_0 || 0x1f || part_1 || ...
// The 0x1f separator prevents ambiguity between adjacent parts.
func (k *Keyed) Sum(parts ...string) string {
	h := sha256.New()
	h.Write(k.key)
	for _, p := range parts {
		h.Write([]byte{0x1f})
		h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// #endregion sum

// #region uniform

// Uniform derives a deterministic value in [0, 1) from the keyed hash of
// the given parts. Uses the top 53 bits of the digest so the result is an
// exactly representable float64.
func (k *Keyed) Uniform(parts ...string) float64 {
	h := sha256.New()
	h.Write(k.key)
	for _, p := range parts {
		h.Write([]byte{0x1f})
		h.Write([]byte(p))
	}
	sum := h.Sum(nil)
	v := binary.BigEndian.Uint64(sum[:8])
	return float64(v>>11) / (1 << 53)
}

// #endregion uniform
