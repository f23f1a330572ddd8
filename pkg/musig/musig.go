// Package musig implements the two-party Schnorr signature aggregation
// the negotiation core uses to jointly sign a transaction kernel:
// each side contributes a nonce and a partial signature over the same
// challenge, without ever exposing its blinding excess to its peer.
package musig

import (
	"fmt"

	"github.com/beamwallet/negotiator/pkg/group"
)

// DeriveNonce computes this party's signing nonce deterministically
// from its blinding excess and the transaction being signed, so a
// restarted negotiation recomputes the same nonce instead of needing
// to persist it separately (persisting only the excess, via
// pkg/paramstore, is enough to resume mid-protocol). A fresh nonce per
// message is critical: reusing one across two different messages
// signed with the same excess leaks the excess.
func DeriveNonce(txID []byte, excess *group.Scalar) *group.Scalar {
	return group.HashToScalar("beamwallet/negotiator: musig nonce", txID, excess.Bytes())
}

// Challenge computes the Schnorr challenge e = H(R || P || m) binding
// the aggregate nonce point, the aggregate public excess, and the
// kernel message together. Both parties must compute the identical
// challenge from data either locally held or received from the peer.
func Challenge(aggregateNonce, aggregateExcess *group.Point, message []byte) *group.Scalar {
	return group.HashToScalar(
		"beamwallet/negotiator: musig challenge",
		aggregateNonce.Bytes(),
		aggregateExcess.Bytes(),
		message,
	)
}

// PartialSign computes this party's contribution s = k + e*x to the
// aggregate signature, given its own nonce scalar k, its own blinding
// excess x, and the challenge e shared by both parties.
func PartialSign(nonce, excess, challenge *group.Scalar) *group.Scalar {
	return nonce.Add(challenge.Mul(excess))
}

// VerifyPartial checks a peer's partial signature against its public
// nonce and public excess: s*G == R + e*P. The negotiation core calls
// this in the step after the one that recorded a peer's partial
// signature, before using it any further — an invalid partial must never
// silently degrade into an invalid final transaction.
func VerifyPartial(partialSig *group.Scalar, publicNonce, publicExcess *group.Point, challenge *group.Scalar) bool {
	lhs := partialSig.ActOnBase()
	rhs := publicNonce.Add(challenge.Act(publicExcess))
	return lhs.Equal(rhs)
}

// Combine sums two partial signatures into the final aggregate
// Schnorr signature scalar.
func Combine(partials ...*group.Scalar) *group.Scalar {
	return group.SumScalars(partials...)
}

// Signature is the final two-party Schnorr signature over a kernel:
// the aggregate nonce point and the combined scalar.
type Signature struct {
	Nonce *group.Point
	Sig   *group.Scalar
}

// Verify checks a complete signature against the aggregate public
// excess and the signed message, recomputing the challenge itself
// rather than trusting a caller-supplied one.
func (s Signature) Verify(aggregateExcess *group.Point, message []byte) error {
	e := Challenge(s.Nonce, aggregateExcess, message)
	lhs := s.Sig.ActOnBase()
	rhs := s.Nonce.Add(e.Act(aggregateExcess))
	if !lhs.Equal(rhs) {
		return fmt.Errorf("musig: signature verification failed")
	}
	return nil
}
