package group

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScalarRoundTrip(t *testing.T) {
	s, err := RandomScalar()
	require.NoError(t, err)

	decoded, err := ScalarFromBytes(s.Bytes())
	require.NoError(t, err)
	assert.True(t, s.Equal(decoded))
}

func TestScalarArithmetic(t *testing.T) {
	a, err := RandomScalar()
	require.NoError(t, err)
	b, err := RandomScalar()
	require.NoError(t, err)

	sum := a.Add(b)
	back := sum.Sub(b)
	assert.True(t, a.Equal(back))

	neg := a.Negate()
	assert.True(t, a.Add(neg).IsZero())

	inv := a.Invert()
	assert.True(t, a.Mul(inv).Equal(ScalarFromUint64(1)))
}

func TestPointRoundTrip(t *testing.T) {
	s, err := RandomScalar()
	require.NoError(t, err)
	p := s.ActOnBase()

	decoded, err := PointFromBytes(p.Bytes())
	require.NoError(t, err)
	assert.True(t, p.Equal(decoded))
}

func TestPointArithmetic(t *testing.T) {
	a, err := RandomScalar()
	require.NoError(t, err)
	b, err := RandomScalar()
	require.NoError(t, err)

	pa := a.ActOnBase()
	pb := b.ActOnBase()
	sum := pa.Add(pb)

	expected := a.Add(b).ActOnBase()
	assert.True(t, sum.Equal(expected))

	assert.True(t, pa.Sub(pa).IsIdentity())
}

func TestFeeGeneratorIsStable(t *testing.T) {
	h1 := FeeGenerator()
	h2 := FeeGenerator()
	assert.True(t, h1.Equal(h2))
	assert.False(t, h1.Equal(Generator()))
}

func TestHashToScalarDeterministic(t *testing.T) {
	a := HashToScalar("test/domain", []byte("hello"))
	b := HashToScalar("test/domain", []byte("hello"))
	assert.True(t, a.Equal(b))

	c := HashToScalar("test/domain", []byte("world"))
	assert.False(t, a.Equal(c))

	d := HashToScalar("other/domain", []byte("hello"))
	assert.False(t, a.Equal(d))
}
