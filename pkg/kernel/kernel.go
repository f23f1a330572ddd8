// Package kernel assembles the canonical transaction the negotiation
// core produces: Pedersen-committed inputs and outputs, a kernel
// carrying the jointly-signed excess, and the conservation-of-value
// check that makes the whole thing verifiable without knowing a
// single value or blinding factor.
package kernel

import (
	"encoding/binary"

	"github.com/beamwallet/negotiator/pkg/group"
	"github.com/beamwallet/negotiator/pkg/musig"
)

// Kernel is the publicly verifiable proof that a transaction's values
// balance: Excess is the pure-blinding commitment (the sum of every
// input/output blinding factor collapsed into one point), and
// Signature proves whoever built Excess knows its discrete log, tying
// the kernel to exactly one transaction.
type Kernel struct {
	Excess    *group.Point
	Signature musig.Signature
	Fee       uint64
	MinHeight uint64
}

// Message returns the byte string the kernel signature is computed
// over: fee and MinHeight, little-endian, so a kernel cannot be
// replayed against a different fee or height floor than it was signed
// for.
func (k *Kernel) Message() []byte {
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint64(buf[0:8], k.Fee)
	binary.LittleEndian.PutUint64(buf[8:16], k.MinHeight)
	return buf
}

// Verify checks the kernel's signature against its own excess and
// message. It does not check conservation of value; see
// Transaction.IsValid for the full check.
func (k *Kernel) Verify() error {
	return k.Signature.Verify(k.Excess, k.Message())
}
