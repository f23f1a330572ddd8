package group

import (
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// PointSize is the length of a compressed Point encoding.
const PointSize = 33

// Point is a point on the secp256k1 curve, used for public nonces,
// public excesses, and Pedersen commitments (which are themselves just
// points: g·blind + H·value).
type Point struct {
	v secp256k1.JacobianPoint
}

// Identity returns the point at infinity.
func Identity() *Point {
	return &Point{}
}

// Generator returns the standard secp256k1 base point g.
func Generator() *Point {
	one := NewScalar()
	one.v.SetInt(1)
	return one.ActOnBase()
}

// PointFromBytes decodes a compressed (33-byte) point encoding.
func PointFromBytes(b []byte) (*Point, error) {
	if len(b) != PointSize {
		return nil, fmt.Errorf("group: invalid point length %d", len(b))
	}
	format := b[0]
	if format != secp256k1.PubKeyFormatCompressedEven && format != secp256k1.PubKeyFormatCompressedOdd {
		return nil, fmt.Errorf("group: invalid point format byte 0x%x", format)
	}
	var x, y secp256k1.FieldVal
	if overflow := x.SetByteSlice(b[1:]); overflow {
		return nil, fmt.Errorf("group: x coordinate out of range")
	}
	wantOdd := format == secp256k1.PubKeyFormatCompressedOdd
	if !secp256k1.DecompressY(&x, wantOdd, &y) {
		return nil, fmt.Errorf("group: x coordinate is not on the curve")
	}
	y.Normalize()
	p := &Point{}
	p.v.X.Set(&x)
	p.v.Y.Set(&y)
	p.v.Z.SetInt(1)
	return p, nil
}

// Bytes returns the compressed 33-byte encoding of p. Encoding the
// identity point panics: it never legitimately appears as a commitment,
// nonce, or excess in a valid transaction.
func (p *Point) Bytes() []byte {
	if p.IsIdentity() {
		panic("group: cannot encode the identity point")
	}
	p.v.ToAffine()
	out := make([]byte, PointSize)
	out[0] = secp256k1.PubKeyFormatCompressedEven
	if p.v.Y.IsOdd() {
		out[0] = secp256k1.PubKeyFormatCompressedOdd
	}
	xBytes := p.v.X.Bytes()
	copy(out[1:], xBytes[:])
	return out
}

// Clone returns an independent copy of p.
func (p *Point) Clone() *Point {
	out := &Point{}
	out.v.Set(&p.v)
	return out
}

// Add returns p + other.
func (p *Point) Add(other *Point) *Point {
	out := &Point{}
	secp256k1.AddNonConst(&p.v, &other.v, &out.v)
	return out
}

// Negate returns -p.
func (p *Point) Negate() *Point {
	out := p.Clone()
	out.v.ToAffine()
	out.v.Y.Negate(1)
	out.v.Y.Normalize()
	return out
}

// Sub returns p - other.
func (p *Point) Sub(other *Point) *Point {
	return p.Add(other.Negate())
}

// Equal reports whether p and other represent the same curve point.
func (p *Point) Equal(other *Point) bool {
	a, b := p.Clone(), other.Clone()
	a.v.ToAffine()
	b.v.ToAffine()
	if a.IsIdentity() || b.IsIdentity() {
		return a.IsIdentity() == b.IsIdentity()
	}
	return a.v.X.Equals(&b.v.X) && a.v.Y.Equals(&b.v.Y)
}

// IsIdentity reports whether p is the point at infinity.
func (p *Point) IsIdentity() bool {
	c := p.Clone()
	c.v.ToAffine()
	return c.v.X.IsZero() && c.v.Y.IsZero()
}

// SumPoints adds a list of points together, returning the identity for
// an empty list.
func SumPoints(points ...*Point) *Point {
	sum := Identity()
	for _, p := range points {
		sum = sum.Add(p)
	}
	return sum
}
