// Package txtest provides a synchronous loopback harness for driving
// two negotiate.Role instances against each other without a real
// network: every Send call is delivered to the peer's Role.Update
// directly, and RegisterTransaction/ConfirmKernel post to a shared
// in-memory mempool. It exists purely for tests and cmd/negotiatorsim.
package txtest

import (
	"context"
	"fmt"
	"sync"

	"github.com/beamwallet/negotiator/pkg/gateway"
	"github.com/beamwallet/negotiator/pkg/kernel"
	"github.com/beamwallet/negotiator/pkg/paramstore"
)

// Peer is one wallet's endpoint in a loopback network: it owns a
// deliver callback the Network invokes with an incoming message, and
// a handle back to the shared mempool for registration.
type Peer struct {
	ID      gateway.PeerID
	network *Network
	deliver func(ctx context.Context, msg gateway.Message) error
}

// Bind attaches the function that should run when a message arrives
// for this peer — typically wrapping a *negotiate.Role's Update.
func (p *Peer) Bind(deliver func(ctx context.Context, msg gateway.Message) error) {
	p.deliver = deliver
}

func (p *Peer) Send(ctx context.Context, to gateway.PeerID, msg gateway.Message) error {
	return p.network.route(ctx, to, msg)
}

func (p *Peer) RegisterTransaction(ctx context.Context, tx *kernel.Transaction) error {
	return p.network.register(ctx, tx)
}

func (p *Peer) ConfirmKernel(_ context.Context, txID paramstore.TxID, kernelExcess []byte) (gateway.KernelProof, bool, error) {
	return p.network.confirmKernel(txID, kernelExcess)
}

func (p *Peer) ConfirmOutputs(_ context.Context, _ [][]byte) error {
	return nil
}

func (p *Peer) GetTip(_ context.Context) (uint64, error) {
	return p.network.tip(), nil
}

func (p *Peer) IsTestMode() bool {
	return p.network.testMode()
}

// Network is a shared loopback transport connecting any number of
// Peers, plus a trivial "mempool" that accepts every registered
// transaction that passes IsValid at a fixed height. Tests that need to exercise rejection
// can set FailRegistration; tests exercising the non-fatal
// KernelNotIncluded retry path can set ConfirmKernelDelay to make
// ConfirmKernel report "not yet included" for that many calls first.
type Network struct {
	mu    sync.Mutex
	peers map[gateway.PeerID]*Peer

	// registered tracks submitted kernels by their aggregate excess, not
	// by TxID: a real node has no concept of a wallet-internal
	// transaction identifier, only the kernel that ends up on-chain.
	registered map[string]int

	Height             uint64
	FailRegistration   bool
	ConfirmKernelDelay int

	// TestMode is returned by IsTestMode. It defaults to true: this
	// harness never advances a real chain, so a delivered kernel proof
	// should always be accepted as final.
	TestMode bool
}

// NewNetwork returns an empty loopback network at height 0, in test
// mode.
func NewNetwork() *Network {
	return &Network{peers: make(map[gateway.PeerID]*Peer), registered: make(map[string]int), TestMode: true}
}

// NewPeer registers and returns a new endpoint on this network.
func (n *Network) NewPeer(id gateway.PeerID) *Peer {
	p := &Peer{ID: id, network: n}
	n.mu.Lock()
	n.peers[id] = p
	n.mu.Unlock()
	return p
}

func (n *Network) route(ctx context.Context, to gateway.PeerID, msg gateway.Message) error {
	n.mu.Lock()
	p, ok := n.peers[to]
	n.mu.Unlock()
	if !ok {
		return fmt.Errorf("txtest: no such peer %q", to)
	}
	if p.deliver == nil {
		return fmt.Errorf("txtest: peer %q has no bound receiver", to)
	}
	return p.deliver(ctx, msg)
}

func (n *Network) register(ctx context.Context, tx *kernel.Transaction) error {
	if n.FailRegistration {
		return fmt.Errorf("txtest: registration rejected")
	}
	height, err := n.currentHeight()
	if err != nil {
		return err
	}
	if err := tx.IsValid(ctx, height); err != nil {
		return fmt.Errorf("txtest: submitted transaction invalid: %w", err)
	}
	if len(tx.Kernels) == 0 {
		return fmt.Errorf("txtest: submitted transaction has no kernel")
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.registered[string(tx.Kernels[0].Excess.Bytes())] = 0
	return nil
}

func (n *Network) currentHeight() (uint64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.Height, nil
}

func (n *Network) confirmKernel(txID paramstore.TxID, kernelExcess []byte) (gateway.KernelProof, bool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	key := string(kernelExcess)
	attempts, ok := n.registered[key]
	if !ok {
		return gateway.KernelProof{}, false, fmt.Errorf("txtest: confirm kernel for unregistered tx %s", txID)
	}
	if attempts < n.ConfirmKernelDelay {
		n.registered[key] = attempts + 1
		return gateway.KernelProof{}, false, nil
	}
	return gateway.KernelProof{Height: n.Height, KernelExcess: kernelExcess}, true, nil
}

func (n *Network) tip() uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.Height
}

func (n *Network) testMode() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.TestMode
}
