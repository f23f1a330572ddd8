package group

import (
	"encoding/binary"

	"github.com/zeebo/blake3"
)

// Hash accumulates domain-separated data before it is reduced to a
// scalar or used as raw digest bytes. It is the building block for the
// kernel message hash and the Schnorr challenge (see package musig),
// using BLAKE3's keyed/derive-key domain separation instead of manual
// "(domain)(data)" framing.
type Hash struct {
	h *blake3.Hasher
}

// NewHash starts a new hash accumulator scoped to domain. Two calls
// with different domains never collide, even given identical
// subsequent writes.
func NewHash(domain string) *Hash {
	return &Hash{h: blake3.NewDeriveKey(domain)}
}

// WriteBytes appends a length-prefixed byte string to the hash state,
// so that ("ab","c") and ("a","bc") never hash identically.
func (h *Hash) WriteBytes(b []byte) *Hash {
	var lenBuf [8]byte
	binary.BigEndian.PutUint64(lenBuf[:], uint64(len(b)))
	_, _ = h.h.Write(lenBuf[:])
	_, _ = h.h.Write(b)
	return h
}

// WriteUint64 appends a fixed-width integer to the hash state.
func (h *Hash) WriteUint64(x uint64) *Hash {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], x)
	_, _ = h.h.Write(buf[:])
	return h
}

// WriteScalar appends a Scalar's canonical encoding to the hash state.
func (h *Hash) WriteScalar(s *Scalar) *Hash {
	return h.WriteBytes(s.Bytes())
}

// WritePoint appends a Point's canonical encoding to the hash state.
func (h *Hash) WritePoint(p *Point) *Hash {
	return h.WriteBytes(p.Bytes())
}

// Sum32 finalizes the hash and returns a 32-byte digest. The hash may
// continue to be written to afterwards; blake3 digests are an
// unbounded stream.
func (h *Hash) Sum32() [32]byte {
	var out [32]byte
	_, _ = h.h.Digest().Read(out[:])
	return out
}

// Scalar finalizes the hash and reduces the digest into the scalar
// field, producing a value suitable as a Schnorr challenge or a
// deterministic nonce.
func (h *Hash) Scalar() *Scalar {
	digest := h.Sum32()
	s, err := ScalarFromBytes(digest[:])
	if err != nil {
		// unreachable: digest is always exactly 32 bytes
		panic(err)
	}
	return s
}

// HashToScalar is a convenience one-shot form of NewHash(domain).WriteBytes(parts...).Scalar().
func HashToScalar(domain string, parts ...[]byte) *Scalar {
	h := NewHash(domain)
	for _, p := range parts {
		h.WriteBytes(p)
	}
	return h.Scalar()
}

// HashToPoint derives a nothing-up-my-sleeve generator from domain by
// the standard try-and-increment construction: hash domain||counter,
// interpret the digest as an x-coordinate with even y, and retry on
// failure. This is how the Mimblewimble "H" fee/value generator (as
// opposed to the standard base point g) must be produced: nobody,
// including the implementer, may know its discrete log relative to g.
func HashToPoint(domain string) *Point {
	for counter := uint32(0); ; counter++ {
		h := NewHash(domain)
		var ctrBuf [4]byte
		binary.BigEndian.PutUint32(ctrBuf[:], counter)
		digest := h.WriteBytes(ctrBuf[:]).Sum32()

		candidate := make([]byte, PointSize)
		candidate[0] = 0x02 // always the even-y root; the next counter gives a new x if this one isn't on the curve
		copy(candidate[1:], digest[:])
		if p, err := PointFromBytes(candidate); err == nil {
			return p
		}
	}
}
