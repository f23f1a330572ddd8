// Package group adapts the secp256k1 group used throughout Mimblewimble
// (blinding factors, Pedersen commitments, kernel excesses) to the types
// the negotiation core needs. It is a thin wrapper, not a reimplementation:
// all arithmetic is delegated to decred's constant-time secp256k1 field and
// scalar code.
package group

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// ScalarSize is the canonical encoded length of a Scalar.
const ScalarSize = 32

// Scalar is an element of the secp256k1 scalar field (integers mod the
// group order). It is used for blinding factors, nonces, and signature
// components.
type Scalar struct {
	v secp256k1.ModNScalar
}

// NewScalar returns the zero scalar.
func NewScalar() *Scalar {
	return &Scalar{}
}

// ScalarFromUint64 lifts a small integer into the scalar field.
func ScalarFromUint64(x uint64) *Scalar {
	var buf [ScalarSize]byte
	binary.BigEndian.PutUint64(buf[ScalarSize-8:], x)
	s := &Scalar{}
	s.v.SetBytes(&buf)
	return s
}

// RandomScalar samples a uniform nonzero scalar using a CSPRNG.
//
// This is never used for nonce generation (which must be deterministic,
// see package musig), only for blinding-factor and offset sampling where
// freshness, not reproducibility, is required.
func RandomScalar() (*Scalar, error) {
	for {
		var buf [ScalarSize]byte
		if _, err := rand.Read(buf[:]); err != nil {
			return nil, fmt.Errorf("group: failed to sample scalar: %w", err)
		}
		s := &Scalar{}
		s.v.SetBytes(&buf)
		if !s.v.IsZero() {
			return s, nil
		}
	}
}

// ScalarFromBytes decodes a 32-byte big-endian buffer into a Scalar.
// Values greater than or equal to the group order are reduced mod N,
// matching the behaviour of decred's ModNScalar.
func ScalarFromBytes(b []byte) (*Scalar, error) {
	if len(b) != ScalarSize {
		return nil, fmt.Errorf("group: invalid scalar length %d", len(b))
	}
	var arr [ScalarSize]byte
	copy(arr[:], b)
	s := &Scalar{}
	s.v.SetBytes(&arr)
	return s, nil
}

// Bytes returns the canonical 32-byte big-endian encoding.
func (s *Scalar) Bytes() []byte {
	out := s.v.Bytes()
	return out[:]
}

// Clone returns an independent copy of s.
func (s *Scalar) Clone() *Scalar {
	out := &Scalar{}
	out.v.Set(&s.v)
	return out
}

// Add returns s + other, without modifying either operand.
func (s *Scalar) Add(other *Scalar) *Scalar {
	out := s.Clone()
	out.v.Add(&other.v)
	return out
}

// Sub returns s - other, without modifying either operand.
func (s *Scalar) Sub(other *Scalar) *Scalar {
	return s.Add(other.Negate())
}

// Negate returns -s.
func (s *Scalar) Negate() *Scalar {
	out := s.Clone()
	out.v.Negate()
	return out
}

// Mul returns s * other, without modifying either operand.
func (s *Scalar) Mul(other *Scalar) *Scalar {
	out := s.Clone()
	out.v.Mul(&other.v)
	return out
}

// Invert returns the multiplicative inverse of s. Panics if s is zero.
func (s *Scalar) Invert() *Scalar {
	if s.v.IsZero() {
		panic("group: inverse of zero scalar")
	}
	out := s.Clone()
	out.v.InverseNonConst()
	return out
}

// Equal reports whether s and other encode the same field element.
func (s *Scalar) Equal(other *Scalar) bool {
	if other == nil {
		return false
	}
	return s.v.Equals(&other.v)
}

// IsZero reports whether s is the additive identity.
func (s *Scalar) IsZero() bool {
	return s.v.IsZero()
}

// Act multiplies p by s, returning a new Point (s·p).
func (s *Scalar) Act(p *Point) *Point {
	out := &Point{}
	secp256k1.ScalarMultNonConst(&s.v, &p.v, &out.v)
	return out
}

// ActOnBase returns s·G, where G is the group generator.
func (s *Scalar) ActOnBase() *Point {
	out := &Point{}
	secp256k1.ScalarBaseMultNonConst(&s.v, &out.v)
	return out
}

// SumScalars adds a list of scalars together, returning the zero scalar
// for an empty list.
func SumScalars(scalars ...*Scalar) *Scalar {
	sum := NewScalar()
	for _, s := range scalars {
		sum = sum.Add(s)
	}
	return sum
}
