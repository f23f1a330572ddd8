package kernel

import (
	"bytes"
	"context"
	"fmt"
	"sort"

	"github.com/beamwallet/negotiator/pkg/group"
)

// Transaction is the canonical, fully assembled confidential
// transaction: Pedersen commitments for every input and output, the
// sum of every participant's random offset, and one or more kernels
// (this module only ever produces exactly one).
type Transaction struct {
	Inputs  []*group.Point
	Outputs []*group.Point
	Offset  *group.Scalar
	Kernels []*Kernel
}

// SortCommitments orders a slice of commitments into the canonical
// byte order both parties must agree on before hashing or signing
// anything that references "the input set" or "the output set": a
// negotiation that let each side choose its own order could produce
// two different canonical transactions from the same coin set.
func SortCommitments(points []*group.Point) {
	sort.Slice(points, func(i, j int) bool {
		return bytes.Compare(points[i].Bytes(), points[j].Bytes()) < 0
	})
}

// IsValid checks every invariant a recipient must confirm before
// accepting a finished transaction: commitments balance (conservation
// of value), every kernel's signature verifies against its own excess,
// and every kernel's MinHeight has already been reached.
func (t *Transaction) IsValid(_ context.Context, currentHeight uint64) error {
	if len(t.Kernels) == 0 {
		return fmt.Errorf("kernel: transaction has no kernels")
	}

	lhs := group.SumPoints(t.Inputs...)
	rhs := group.SumPoints(t.Outputs...)

	var totalFee uint64
	excessSum := t.Offset.ActOnBase()
	for _, k := range t.Kernels {
		if err := k.Verify(); err != nil {
			return fmt.Errorf("kernel: invalid kernel signature: %w", err)
		}
		if k.MinHeight > currentHeight {
			return fmt.Errorf("kernel: min height %d not yet reached (at %d)", k.MinHeight, currentHeight)
		}
		totalFee += k.Fee
		excessSum = excessSum.Add(k.Excess)
	}

	rhs = rhs.Add(feeCommitment(totalFee)).Add(excessSum)
	if !lhs.Equal(rhs) {
		return fmt.Errorf("kernel: transaction does not balance")
	}
	return nil
}

func feeCommitment(fee uint64) *group.Point {
	return group.ScalarFromUint64(fee).Act(group.FeeGenerator())
}
