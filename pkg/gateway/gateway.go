// Package gateway defines the negotiation core's only window onto the
// outside world: sending a message to the peer wallet, and publishing
// a finished transaction to the network. pkg/negotiate depends only on
// this interface, never on a concrete transport, so the same state
// machine runs over a loopback channel in tests (internal/txtest) or
// over a real network transport in a deployed wallet.
package gateway

import (
	"context"

	"github.com/beamwallet/negotiator/pkg/kernel"
	"github.com/beamwallet/negotiator/pkg/paramstore"
)

// PeerID identifies the counterparty wallet in a negotiation. A real
// wallet backs this with a public key or contact address; the
// negotiation core treats it as an opaque comparable value.
type PeerID string

// Gateway is a record-of-functions capability interface rather than a
// single broad interface with many methods: callers needing only
// Send can be handed a narrower view (an interface embedding just
// Sender) without pulling in Register, matching how pkg/negotiate's
// Role only ever needs to send one message per Update() call.
type Gateway interface {
	Sender
	Registrar
}

// Sender delivers one wire message to a peer. Send must not block
// waiting for a reply: negotiation is asynchronous, and the peer's
// reply (if any) arrives as a separate call to the local Role's
// Update() once the transport delivers it.
type Sender interface {
	Send(ctx context.Context, peer PeerID, msg Message) error
}

// Registrar is the negotiation core's window onto the chain: publishing
// a finished transaction, polling for its kernel's inclusion proof, and
// reading the node's current tip. A real wallet backs this with a node
// RPC client; internal/txtest backs it with an in-memory mempool.
type Registrar interface {
	// RegisterTransaction submits a fully assembled, signed transaction
	// (inputs, outputs, offset, and the combined kernel) for inclusion
	// in the network's next block. It reports only whether the
	// submission itself was accepted; the resulting inclusion proof is
	// fetched separately via ConfirmKernel, since a real node's
	// register and confirm steps happen at different times.
	RegisterTransaction(ctx context.Context, tx *kernel.Transaction) error

	// ConfirmKernel polls the node for a registered kernel's inclusion
	// proof, identified by the transaction it belongs to and its
	// aggregate excess. included reports whether proof is populated;
	// included=false with a nil error means the kernel is known to the
	// node but not yet mined, not a failure — the caller should retry
	// on the next tip update rather than abandon the negotiation.
	ConfirmKernel(ctx context.Context, txID paramstore.TxID, kernelExcess []byte) (proof KernelProof, included bool, err error)

	// ConfirmOutputs notifies the wallet's own coin tracker that a
	// transaction's outputs should be watched for confirmation. This
	// is best-effort: a failure here must never fail the negotiation,
	// since the transaction is already broadcast by the time it runs.
	ConfirmOutputs(ctx context.Context, outputs [][]byte) error

	// GetTip returns the node's current chain-tip height.
	GetTip(ctx context.Context) (uint64, error)

	// IsTestMode reports whether a kernel-inclusion proof should be
	// accepted as final without cross-checking its height against the
	// node's current tip — set by simulated gateways (internal/txtest)
	// that never advance a real chain.
	IsTestMode() bool
}
