// Package ledger defines the wallet-local view of spendable value: the
// coin (UTXO) lifecycle, selection for spend, and the per-negotiation
// reservation/rollback bookkeeping the state machine in pkg/negotiate
// relies on to never double-spend or leak a reservation on failure.
package ledger

import (
	"fmt"

	"github.com/beamwallet/negotiator/pkg/group"
	"github.com/beamwallet/negotiator/pkg/paramstore"
)

// CoinID uniquely identifies one coin in the wallet's ledger. A real
// wallet derives this from the commitment; MemLedger treats it as an
// opaque handle.
type CoinID uint64

// Status is the lifecycle state of a coin, per the closed enumeration
// the negotiation core drives coins through.
type Status uint8

const (
	// Draft coins exist only in a TransactionDescription under
	// construction; they have never been broadcast.
	Draft Status = iota
	// Locked coins are reserved by an in-flight negotiation and are
	// not eligible for selectCoins until the negotiation resolves.
	Locked
	// Unconfirmed coins belong to a transaction that has been
	// broadcast but not yet mined.
	Unconfirmed
	// Confirmed coins are mined and spendable.
	Confirmed
	// Spent coins were consumed as an input of a mined transaction.
	Spent
	// Cancelled coins were Locked by a negotiation that was rolled back
	// without a record of the status they held before the lock (coins
	// with such a record get that status back instead). SelectCoins
	// never picks them.
	Cancelled
)

func (s Status) String() string {
	switch s {
	case Draft:
		return "Draft"
	case Locked:
		return "Locked"
	case Unconfirmed:
		return "Unconfirmed"
	case Confirmed:
		return "Confirmed"
	case Spent:
		return "Spent"
	case Cancelled:
		return "Cancelled"
	default:
		return fmt.Sprintf("Status(%d)", s)
	}
}

// Coin is one unit of spendable (or formerly spendable) value. Value is
// denominated in the smallest indivisible unit the wallet tracks.
type Coin struct {
	ID         CoinID
	Value      uint64
	Status     Status
	Key        *group.Scalar
	Commitment *group.Point

	// CreatedTx is the negotiation that produced this coin, if any
	// (empty for coins the wallet owned before this module existed).
	CreatedTx paramstore.TxID
	// SpentTx is the negotiation that locked/spent this coin, set
	// when Status transitions away from Confirmed.
	SpentTx paramstore.TxID
}

// Clone returns a deep copy safe for a caller to mutate.
func (c *Coin) Clone() *Coin {
	cp := *c
	if c.Key != nil {
		cp.Key = c.Key.Clone()
	}
	if c.Commitment != nil {
		cp.Commitment = c.Commitment.Clone()
	}
	return &cp
}
