package txtest_test

import (
	"context"
	"testing"

	"github.com/beamwallet/negotiator/internal/txtest"
	"github.com/beamwallet/negotiator/internal/walletlog"
	"github.com/beamwallet/negotiator/pkg/gateway"
	"github.com/beamwallet/negotiator/pkg/group"
	"github.com/beamwallet/negotiator/pkg/ledger"
	"github.com/beamwallet/negotiator/pkg/negotiate"
	"github.com/beamwallet/negotiator/pkg/paramstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func txID(b byte) paramstore.TxID {
	var id paramstore.TxID
	id[0] = b
	return id
}

type harness struct {
	ctx      context.Context
	network  *txtest.Network
	sendLdgr *ledger.MemLedger
	recvLdgr *ledger.MemLedger
	sender   *negotiate.Role
	receiver *negotiate.Role
}

func newHarness(t *testing.T, txID paramstore.TxID, amount, fee, minHeight, height, fundsAvailable uint64) *harness {
	t.Helper()
	ctx := context.Background()
	network := txtest.NewNetwork()
	network.Height = height

	sendLdgr := ledger.NewMemLedger([32]byte{1})
	recvLdgr := ledger.NewMemLedger([32]byte{2})
	sendLdgr.SetHeight(height)
	recvLdgr.SetHeight(height)
	if fundsAvailable > 0 {
		sendLdgr.SeedCoin(fundsAvailable)
	}

	sendPeer := network.NewPeer("alice")
	recvPeer := network.NewPeer("bob")

	sender, err := negotiate.NewSendRole(ctx, txID, "alice", "bob", amount, fee, minHeight, sendLdgr, sendPeer, walletlog.Nop())
	require.NoError(t, err)
	receiver := negotiate.NewReceiveRole(ctx, txID, "bob", "alice", recvLdgr, recvPeer, walletlog.Nop())

	sendPeer.Bind(func(ctx context.Context, msg gateway.Message) error { return sender.Update(ctx, msg) })
	recvPeer.Bind(func(ctx context.Context, msg gateway.Message) error { return receiver.Update(ctx, msg) })

	return &harness{ctx: ctx, network: network, sendLdgr: sendLdgr, recvLdgr: recvLdgr, sender: sender, receiver: receiver}
}

func TestHappyPathWithChange(t *testing.T) {
	h := newHarness(t, txID(1), 500, 10, 0, 100, 1000)

	require.NoError(t, txtest.Drive(h.ctx, 8, h.sender, h.receiver))

	assert.Equal(t, negotiate.StatusCompleted, h.sender.Status(h.ctx))
	assert.Equal(t, negotiate.StatusCompleted, h.receiver.Status(h.ctx))

	var receiverGotAmount uint64
	_ = h.recvLdgr.Visit(h.ctx, func(c *ledger.Coin) bool {
		if c.Status == ledger.Unconfirmed {
			receiverGotAmount = c.Value
		}
		return true
	})
	assert.Equal(t, uint64(500), receiverGotAmount)

	var senderChange uint64
	var spentCount int
	_ = h.sendLdgr.Visit(h.ctx, func(c *ledger.Coin) bool {
		switch c.Status {
		case ledger.Unconfirmed:
			senderChange = c.Value
		case ledger.Spent:
			spentCount++
		}
		return true
	})
	assert.Equal(t, uint64(490), senderChange) // 1000 - 500 - 10 fee
	assert.Equal(t, 1, spentCount)
}

func TestHappyPathExactAmountNoChange(t *testing.T) {
	h := newHarness(t, txID(2), 990, 10, 0, 100, 1000)
	require.NoError(t, txtest.Drive(h.ctx, 8, h.sender, h.receiver))

	assert.Equal(t, negotiate.StatusCompleted, h.sender.Status(h.ctx))
	assert.Equal(t, negotiate.StatusCompleted, h.receiver.Status(h.ctx))

	count := 0
	_ = h.sendLdgr.Visit(h.ctx, func(c *ledger.Coin) bool {
		count++
		return true
	})
	assert.Equal(t, 1, count) // only the spent input, no change output
}

func TestInsufficientFunds(t *testing.T) {
	h := newHarness(t, txID(3), 500, 10, 0, 100, 100)

	err := h.sender.Update(h.ctx, nil)
	assert.ErrorIs(t, err, negotiate.ErrInsufficientFunds)
	assert.Equal(t, negotiate.StatusFailed, h.sender.Status(h.ctx))
}

func TestTamperedPeerSignatureIsRejected(t *testing.T) {
	h := newHarness(t, txID(4), 500, 10, 0, 100, 1000)

	require.NoError(t, h.sender.Update(h.ctx, nil)) // S0: sends Invite, cascades into receiver's apply

	fakeExcess, err := group.RandomScalar()
	require.NoError(t, err)
	fakeSig, err := group.RandomScalar()
	require.NoError(t, err)

	tampered := &gateway.ConfirmInvitation{
		TxID:         h.sender.TxID(),
		Outputs:      [][]byte{group.Commit(500, fakeExcess).Bytes()},
		PublicExcess: fakeExcess.ActOnBase().Bytes(),
		PublicNonce:  fakeExcess.ActOnBase().Bytes(),
		PartialSig:   fakeSig.Bytes(),
	}

	// the arrival itself only records the tampered fields; verification
	// runs on the next call, when S4 actually combines the signatures.
	require.NoError(t, h.sender.Update(h.ctx, tampered))

	err = h.sender.Update(h.ctx, nil)
	assert.ErrorIs(t, err, negotiate.ErrInvalidPeerSignature)
	assert.Equal(t, negotiate.StatusFailed, h.sender.Status(h.ctx))
}

func TestCancelAfterInviteReleasesCoinsAndNotifiesPeer(t *testing.T) {
	h := newHarness(t, txID(5), 500, 10, 0, 100, 1000)

	require.NoError(t, h.sender.Update(h.ctx, nil)) // invite sent, receiver has recorded it

	require.NoError(t, h.sender.Cancel(h.ctx, "user aborted"))
	assert.Equal(t, negotiate.StatusFailed, h.sender.Status(h.ctx))

	var confirmed int
	_ = h.sendLdgr.Visit(h.ctx, func(c *ledger.Coin) bool {
		if c.Status == ledger.Confirmed {
			confirmed++
		}
		return true
	})
	assert.Equal(t, 1, confirmed)

	// the peer learns about the failure via TxFailed and rolls back too,
	// even though it never reserved any ledger coins of its own yet.
	assert.Equal(t, negotiate.StatusFailed, h.receiver.Status(h.ctx))
}

func TestKernelNotIncludedRetriesUntilProofDelivered(t *testing.T) {
	h := newHarness(t, txID(7), 500, 10, 0, 100, 1000)
	h.network.ConfirmKernelDelay = 2 // ConfirmKernel reports not-yet-included twice before succeeding

	require.NoError(t, txtest.Drive(h.ctx, 12, h.sender, h.receiver))

	assert.Equal(t, negotiate.StatusCompleted, h.sender.Status(h.ctx))
	assert.Equal(t, negotiate.StatusCompleted, h.receiver.Status(h.ctx))
}

func TestRegistrationFailureIsFatalAndPropagatesToSender(t *testing.T) {
	h := newHarness(t, txID(8), 500, 10, 0, 100, 1000)
	h.network.FailRegistration = true

	require.NoError(t, h.sender.Update(h.ctx, nil))   // S0: Invite sent, cascades into receiver's apply
	require.NoError(t, h.receiver.Update(h.ctx, nil)) // R2/R3: ConfirmInvitation sent, cascades into sender's apply
	require.NoError(t, h.sender.Update(h.ctx, nil))   // S4: ConfirmTransaction sent, cascades into receiver's apply

	// R4: the receiver assembles and attempts to register, which the
	// network rejects.
	err := h.receiver.Update(h.ctx, nil)
	assert.ErrorIs(t, err, negotiate.ErrRegistrationFailed)
	assert.Equal(t, negotiate.StatusFailed, h.receiver.Status(h.ctx))

	// the receiver's TxFailed notification fails the sender too.
	assert.Equal(t, negotiate.StatusFailed, h.sender.Status(h.ctx))
}

func TestZeroAmountBoundaryCompletesWithFeeOnlyKernel(t *testing.T) {
	// fundsAvailable equals fee exactly: the sender has nothing left
	// over for a change output, and the invite itself carries no
	// payment amount. The core must still assemble and register a
	// valid fee-only kernel instead of rejecting the zero amount.
	h := newHarness(t, txID(9), 0, 10, 0, 100, 10)

	require.NoError(t, txtest.Drive(h.ctx, 8, h.sender, h.receiver))

	assert.Equal(t, negotiate.StatusCompleted, h.sender.Status(h.ctx))
	assert.Equal(t, negotiate.StatusCompleted, h.receiver.Status(h.ctx))

	var receiverOutputs int
	var receiverValue uint64
	_ = h.recvLdgr.Visit(h.ctx, func(c *ledger.Coin) bool {
		receiverOutputs++
		receiverValue = c.Value
		return true
	})
	assert.Equal(t, 1, receiverOutputs)
	assert.Equal(t, uint64(0), receiverValue)

	var senderOutputs int
	_ = h.sendLdgr.Visit(h.ctx, func(c *ledger.Coin) bool {
		senderOutputs++
		return true
	})
	assert.Equal(t, 1, senderOutputs) // only the spent input, no change output
}

func TestCrashAndResumeUsesPersistedParameters(t *testing.T) {
	h := newHarness(t, txID(6), 500, 10, 0, 100, 1000)
	require.NoError(t, h.sender.Update(h.ctx, nil)) // invite sent; amount/fee/minHeight/inputs now durable

	// Simulate a process restart: drop the original sender Role and
	// rebuild one purely from what's already in the ledger's parameter
	// store, rebinding it to a fresh peer handle on the same network.
	newSendPeer := h.network.NewPeer("alice")
	resumedSender := negotiate.ResumeSendRole(h.sender.TxID(), "alice", "bob", h.sendLdgr, newSendPeer, walletlog.Nop())
	newSendPeer.Bind(func(ctx context.Context, msg gateway.Message) error { return resumedSender.Update(ctx, msg) })

	require.NoError(t, txtest.Drive(h.ctx, 8, resumedSender, h.receiver))
	assert.Equal(t, negotiate.StatusCompleted, resumedSender.Status(h.ctx))
	assert.Equal(t, negotiate.StatusCompleted, h.receiver.Status(h.ctx))
}
