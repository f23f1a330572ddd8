package gateway

import "github.com/beamwallet/negotiator/pkg/paramstore"

// Message is the sealed set of wire messages the negotiation core
// exchanges between peers. Each concrete type below tags itself via
// Kind so a transport can dispatch an incoming blob to the right
// decoder without out-of-band framing.
type Message interface {
	Kind() MessageKind
}

// MessageKind identifies a Message's concrete type on the wire.
type MessageKind uint8

const (
	KindInvite MessageKind = iota
	KindConfirmInvitation
	KindConfirmTransaction
	KindTxRegistered
	KindTxFailed
)

// Invite is S0's outbound message: the sender proposes a transaction
// by sharing everything the receiver needs to add its own output and
// partial signature.
type Invite struct {
	TxID            paramstore.TxID `cbor:"1,keyasint"`
	Amount          uint64          `cbor:"2,keyasint"`
	Fee             uint64          `cbor:"3,keyasint"`
	MinHeight       uint64          `cbor:"4,keyasint"`
	Inputs          [][]byte        `cbor:"5,keyasint"`
	Outputs         [][]byte        `cbor:"6,keyasint"`
	PublicExcess    []byte          `cbor:"7,keyasint"`
	PublicNonce     []byte          `cbor:"8,keyasint"`
	Offset          []byte          `cbor:"9,keyasint"`
}

func (Invite) Kind() MessageKind { return KindInvite }

// ConfirmInvitation is R3's outbound message: the receiver's own
// output, public excess and nonce, and its partial signature over the
// jointly-assembled kernel.
type ConfirmInvitation struct {
	TxID          paramstore.TxID `cbor:"1,keyasint"`
	Outputs       [][]byte        `cbor:"2,keyasint"`
	PublicExcess  []byte          `cbor:"3,keyasint"`
	PublicNonce   []byte          `cbor:"4,keyasint"`
	PartialSig    []byte          `cbor:"5,keyasint"`
}

func (ConfirmInvitation) Kind() MessageKind { return KindConfirmInvitation }

// ConfirmTransaction is S4's outbound message: the sender's own
// partial signature, letting the receiver combine it with its own
// share, verify, and assemble the whole transaction. The combined
// kernel signature is never carried on the wire — each side derives
// it independently from the two partial signatures it already has.
type ConfirmTransaction struct {
	TxID       paramstore.TxID `cbor:"1,keyasint"`
	PartialSig []byte          `cbor:"2,keyasint"`
}

func (ConfirmTransaction) Kind() MessageKind { return KindConfirmTransaction }

// KernelProof is the on-chain evidence a registered transaction's
// kernel was included in a block.
type KernelProof struct {
	Height         uint64 `cbor:"1,keyasint"`
	KernelExcess   []byte `cbor:"2,keyasint"`
}

// TxRegistered is R5's notification that the transaction has been
// broadcast and (optionally) already proven included.
type TxRegistered struct {
	TxID  paramstore.TxID `cbor:"1,keyasint"`
	Proof KernelProof     `cbor:"2,keyasint"`
}

func (TxRegistered) Kind() MessageKind { return KindTxRegistered }

// TxFailed carries a failure reason to the peer so both sides release
// their reserved coins instead of one side waiting indefinitely.
type TxFailed struct {
	TxID   paramstore.TxID `cbor:"1,keyasint"`
	Reason string          `cbor:"2,keyasint"`
}

func (TxFailed) Kind() MessageKind { return KindTxFailed }
