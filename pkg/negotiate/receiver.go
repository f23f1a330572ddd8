package negotiate

import (
	"fmt"

	"github.com/beamwallet/negotiator/pkg/gateway"
	"github.com/beamwallet/negotiator/pkg/group"
	"github.com/beamwallet/negotiator/pkg/kernel"
	"github.com/beamwallet/negotiator/pkg/ledger"
	"github.com/beamwallet/negotiator/pkg/musig"
)

func (sc *stepContext) advanceReceiver() error {
	txID := sc.txID()

	if !amountParam.IsSet(sc.store, txID) {
		return errIdle
	}
	if !outputsParam.IsSet(sc.store, txID) {
		return sc.receiverConfirm()
	}
	if !transactionRegisteredParam.IsSet(sc.store, txID) {
		if !peerSignatureParam.IsSet(sc.store, txID) {
			return errIdle
		}
		return sc.receiverFinalize()
	}
	if !kernelProofParam.IsSet(sc.store, txID) {
		return sc.receiverConfirmKernel()
	}
	return errIdle
}

// applyInvite writes the sender's proposal into the parameter store.
// Amount is taken as given: rejecting a zero amount is a wallet-layer
// concern, not this core's — a fee-only transfer with no change
// output is a transaction this core must still assemble correctly.
func (sc *stepContext) applyInvite(inv *gateway.Invite) error {
	txID := sc.txID()
	if inv.TxID != txID {
		return fmt.Errorf("%w: invite for wrong tx", ErrUnexpectedMessage)
	}
	if amountParam.IsSet(sc.store, txID) {
		return nil // already applied; tolerate a resent invite
	}

	peerInputs, err := decodePoints(inv.Inputs)
	if err != nil {
		return err
	}
	peerOutputs, err := decodePoints(inv.Outputs)
	if err != nil {
		return err
	}
	peerExcess, err := group.PointFromBytes(inv.PublicExcess)
	if err != nil {
		return err
	}
	peerNonce, err := group.PointFromBytes(inv.PublicNonce)
	if err != nil {
		return err
	}
	peerOffset, err := group.ScalarFromBytes(inv.Offset)
	if err != nil {
		return err
	}

	if err := amountParam.Put(sc.store, txID, inv.Amount); err != nil {
		return err
	}
	if err := feeParam.Put(sc.store, txID, inv.Fee); err != nil {
		return err
	}
	if err := minHeightParam.Put(sc.store, txID, inv.MinHeight); err != nil {
		return err
	}
	if err := peerInputsParam.Put(sc.store, txID, peerInputs); err != nil {
		return err
	}
	if err := peerOutputsParam.Put(sc.store, txID, peerOutputs); err != nil {
		return err
	}
	if err := publicPeerExcessParam.Put(sc.store, txID, peerExcess); err != nil {
		return err
	}
	if err := publicPeerNonceParam.Put(sc.store, txID, peerNonce); err != nil {
		return err
	}
	return peerOffsetParam.Put(sc.store, txID, peerOffset)
}

// applyConfirmTransaction writes the sender's partial signature into
// the parameter store. Verifying it and assembling the transaction
// happens later, in receiverFinalize, reading only from the store.
func (sc *stepContext) applyConfirmTransaction(ct *gateway.ConfirmTransaction) error {
	txID := sc.txID()
	if ct.TxID != txID {
		return fmt.Errorf("%w: confirm transaction for wrong tx", ErrUnexpectedMessage)
	}
	if peerSignatureParam.IsSet(sc.store, txID) {
		return nil // already applied; tolerate a resent confirmation
	}
	peerSig, err := group.ScalarFromBytes(ct.PartialSig)
	if err != nil {
		return err
	}
	return peerSignatureParam.Put(sc.store, txID, peerSig)
}

// receiverConfirm is R2/R3: create the output that receives amount,
// compute this side's partial signature, and send it back.
func (sc *stepContext) receiverConfirm() error {
	txID := sc.txID()
	role := sc.role

	amount, _, err := amountParam.Get(sc.store, txID)
	if err != nil {
		return err
	}
	fee, _, err := feeParam.Get(sc.store, txID)
	if err != nil {
		return err
	}
	minHeight, _, err := minHeightParam.Get(sc.store, txID)
	if err != nil {
		return err
	}
	peerExcess, _, err := publicPeerExcessParam.Get(sc.store, txID)
	if err != nil {
		return err
	}
	peerNonce, _, err := publicPeerNonceParam.Get(sc.store, txID)
	if err != nil {
		return err
	}

	ownKey, err := group.RandomScalar()
	if err != nil {
		return fmt.Errorf("negotiate: generate output key: %w", err)
	}
	ownOutput := group.Commit(amount, ownKey)
	coin := &ledger.Coin{Value: amount, Status: ledger.Draft, Key: ownKey, Commitment: ownOutput, CreatedTx: txID}
	if _, err := role.ledger.Store(sc.ctx, coin); err != nil {
		return fmt.Errorf("negotiate: store received coin: %w", err)
	}

	ownExcess := ownKey.Negate()
	if err := outputsParam.Put(sc.store, txID, []*group.Point{ownOutput}); err != nil {
		return err
	}
	if err := blindingExcessParam.Put(sc.store, txID, ownExcess); err != nil {
		return err
	}

	ownNonce := musig.DeriveNonce(txID[:], ownExcess)
	aggregateExcess := peerExcess.Add(ownExcess.ActOnBase())
	aggregateNonce := peerNonce.Add(ownNonce.ActOnBase())

	k := kernel.Kernel{Fee: fee, MinHeight: minHeight}
	challenge := musig.Challenge(aggregateNonce, aggregateExcess, k.Message())
	ownSig := musig.PartialSign(ownNonce, ownExcess, challenge)

	msg := gateway.ConfirmInvitation{
		TxID:         txID,
		Outputs:      encodePoints([]*group.Point{ownOutput}),
		PublicExcess: ownExcess.ActOnBase().Bytes(),
		PublicNonce:  ownNonce.ActOnBase().Bytes(),
		PartialSig:   ownSig.Bytes(),
	}
	return sc.send(&msg)
}

// receiverFinalize is R4: verify the sender's partial signature,
// combine it with this side's own share, assemble and validate the
// whole transaction, and register it with the network. Every value it
// needs — including the sender's partial signature — comes back out
// of the parameter store, never off the message that delivered it; the
// combined kernel signature is derived here rather than trusted from
// the wire, since the protocol never actually puts one there. No reply
// is sent yet: the sender learns about registration once
// receiverConfirmKernel (R5) notifies it, on a later call.
func (sc *stepContext) receiverFinalize() error {
	txID := sc.txID()
	role := sc.role

	fee, _, err := feeParam.Get(sc.store, txID)
	if err != nil {
		return err
	}
	minHeight, _, err := minHeightParam.Get(sc.store, txID)
	if err != nil {
		return err
	}
	senderSig, _, err := peerSignatureParam.Get(sc.store, txID)
	if err != nil {
		return err
	}
	senderExcess, _, err := publicPeerExcessParam.Get(sc.store, txID)
	if err != nil {
		return err
	}
	senderNonce, _, err := publicPeerNonceParam.Get(sc.store, txID)
	if err != nil {
		return err
	}
	ownExcess, _, err := blindingExcessParam.Get(sc.store, txID)
	if err != nil {
		return err
	}
	ownOutputs, _, err := outputsParam.Get(sc.store, txID)
	if err != nil {
		return err
	}
	senderOutputs, _, err := peerOutputsParam.Get(sc.store, txID)
	if err != nil {
		return err
	}
	senderInputs, _, err := peerInputsParam.Get(sc.store, txID)
	if err != nil {
		return err
	}
	offset, _, err := peerOffsetParam.Get(sc.store, txID)
	if err != nil {
		return err
	}

	ownNonce := musig.DeriveNonce(txID[:], ownExcess)
	aggregateExcess := senderExcess.Add(ownExcess.ActOnBase())
	aggregateNonce := senderNonce.Add(ownNonce.ActOnBase())

	k := &kernel.Kernel{Excess: aggregateExcess, Fee: fee, MinHeight: minHeight}
	challenge := musig.Challenge(aggregateNonce, aggregateExcess, k.Message())

	if !musig.VerifyPartial(senderSig, senderNonce, senderExcess, challenge) {
		_ = role.fail(sc.ctx, "invalid peer signature", true)
		return ErrInvalidPeerSignature
	}

	ownSig := musig.PartialSign(ownNonce, ownExcess, challenge)
	finalSig := musig.Combine(ownSig, senderSig)
	k.Signature = musig.Signature{Nonce: aggregateNonce, Sig: finalSig}

	allOutputs := append(append([]*group.Point{}, ownOutputs...), senderOutputs...)
	kernel.SortCommitments(senderInputs)
	kernel.SortCommitments(allOutputs)

	tx := &kernel.Transaction{Inputs: senderInputs, Outputs: allOutputs, Offset: offset, Kernels: []*kernel.Kernel{k}}

	height, err := role.ledger.GetCurrentHeight(sc.ctx)
	if err != nil {
		return err
	}
	if err := tx.IsValid(sc.ctx, height); err != nil {
		_ = role.fail(sc.ctx, "assembled transaction failed validation", true)
		return fmt.Errorf("%w: %v", ErrInvalidTransaction, err)
	}

	if err := role.gw.RegisterTransaction(sc.ctx, tx); err != nil {
		_ = role.fail(sc.ctx, "transaction registration failed", true)
		return fmt.Errorf("%w: %v", ErrRegistrationFailed, err)
	}

	if err := sc.markCoinsBroadcast(); err != nil {
		role.log.Warn().Err(err).Msg("failed to update coin statuses after registration")
	}
	_ = role.gw.ConfirmOutputs(sc.ctx, encodePoints(ownOutputs))

	return transactionRegisteredParam.Put(sc.store, txID, true)
}

// receiverConfirmKernel is R5: tell the sender the transaction is
// registered (so it can mark its own coins broadcast without
// registering anything itself), and poll for the kernel's inclusion
// proof. Sending the notification on every call until a proof is
// found is deliberate: it is a fire-and-forget capability the sender
// tolerates receiving repeatedly, and it saves the sender's own poll
// loop a round once this side already has a proof to forward.
func (sc *stepContext) receiverConfirmKernel() error {
	txID := sc.txID()
	role := sc.role

	ownExcess, _, err := blindingExcessParam.Get(sc.store, txID)
	if err != nil {
		return err
	}
	senderExcess, _, err := publicPeerExcessParam.Get(sc.store, txID)
	if err != nil {
		return err
	}
	aggregateExcess := senderExcess.Add(ownExcess.ActOnBase())

	proof, included, err := role.gw.ConfirmKernel(sc.ctx, txID, aggregateExcess.Bytes())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrKernelNotIncluded, err)
	}

	notifyMsg := gateway.TxRegistered{TxID: txID}
	if included {
		notifyMsg.Proof = proof
	}
	if err := sc.send(&notifyMsg); err != nil {
		return err
	}

	if !included {
		return ErrKernelNotIncluded
	}
	return kernelProofParam.Put(sc.store, txID, proof)
}
