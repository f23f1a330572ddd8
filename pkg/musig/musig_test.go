package musig

import (
	"testing"

	"github.com/beamwallet/negotiator/pkg/group"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustScalar(t *testing.T) *group.Scalar {
	t.Helper()
	s, err := group.RandomScalar()
	require.NoError(t, err)
	return s
}

func TestTwoPartySignAndVerify(t *testing.T) {
	message := []byte("kernel message")
	txID := []byte("tx-1")

	xA := mustScalar(t)
	xB := mustScalar(t)
	PA := xA.ActOnBase()
	PB := xB.ActOnBase()
	aggregateExcess := PA.Add(PB)

	kA := DeriveNonce(txID, xA)
	kB := DeriveNonce(txID, xB)
	RA := kA.ActOnBase()
	RB := kB.ActOnBase()
	aggregateNonce := RA.Add(RB)

	e := Challenge(aggregateNonce, aggregateExcess, message)

	sA := PartialSign(kA, xA, e)
	sB := PartialSign(kB, xB, e)

	require.True(t, VerifyPartial(sA, RA, PA, e))
	require.True(t, VerifyPartial(sB, RB, PB, e))

	combined := Combine(sA, sB)
	sig := Signature{Nonce: aggregateNonce, Sig: combined}
	assert.NoError(t, sig.Verify(aggregateExcess, message))
}

func TestVerifyPartialRejectsTamperedSig(t *testing.T) {
	message := []byte("kernel message")
	txID := []byte("tx-1")

	xA := mustScalar(t)
	PA := xA.ActOnBase()
	kA := DeriveNonce(txID, xA)
	RA := kA.ActOnBase()

	e := Challenge(RA, PA, message)
	sA := PartialSign(kA, xA, e)

	tampered := sA.Add(group.ScalarFromUint64(1))
	assert.False(t, VerifyPartial(tampered, RA, PA, e))
}

func TestSignatureVerifyRejectsWrongMessage(t *testing.T) {
	txID := []byte("tx-1")
	xA := mustScalar(t)
	xB := mustScalar(t)
	PA := xA.ActOnBase()
	PB := xB.ActOnBase()
	aggregateExcess := PA.Add(PB)

	kA := DeriveNonce(txID, xA)
	kB := DeriveNonce(txID, xB)
	aggregateNonce := kA.ActOnBase().Add(kB.ActOnBase())

	e := Challenge(aggregateNonce, aggregateExcess, []byte("message one"))
	combined := Combine(PartialSign(kA, xA, e), PartialSign(kB, xB, e))
	sig := Signature{Nonce: aggregateNonce, Sig: combined}

	assert.Error(t, sig.Verify(aggregateExcess, []byte("message two")))
}

func TestDeriveNonceIsDeterministic(t *testing.T) {
	x := mustScalar(t)
	txID := []byte("tx-7")
	assert.True(t, DeriveNonce(txID, x).Equal(DeriveNonce(txID, x)))
}

func TestDeriveNonceDiffersByTx(t *testing.T) {
	x := mustScalar(t)
	n1 := DeriveNonce([]byte("tx-a"), x)
	n2 := DeriveNonce([]byte("tx-b"), x)
	assert.False(t, n1.Equal(n2))
}
