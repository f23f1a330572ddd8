package negotiate

import (
	"errors"
	"fmt"

	"github.com/beamwallet/negotiator/pkg/gateway"
	"github.com/beamwallet/negotiator/pkg/group"
	"github.com/beamwallet/negotiator/pkg/kernel"
	"github.com/beamwallet/negotiator/pkg/ledger"
	"github.com/beamwallet/negotiator/pkg/musig"
)

func (sc *stepContext) advanceSender() error {
	txID := sc.txID()

	if !inputsParam.IsSet(sc.store, txID) {
		return sc.senderInvite()
	}
	if !transactionRegisteredParam.IsSet(sc.store, txID) {
		if !peerSignatureParam.IsSet(sc.store, txID) {
			return errIdle
		}
		return sc.senderConfirmTransaction()
	}
	if !kernelProofParam.IsSet(sc.store, txID) {
		return sc.senderConfirmKernel()
	}
	return errIdle
}

// senderInvite is S0: reserve inputs, build the change output (if
// any), and send the peer everything it needs to add its own output
// and sign.
func (sc *stepContext) senderInvite() error {
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

	coins, err := role.ledger.SelectCoins(sc.ctx, txID, amount+fee)
	if err != nil {
		if errors.Is(err, ledger.ErrInsufficientFunds) {
			_ = role.fail(sc.ctx, "insufficient funds", false)
			return fmt.Errorf("%w", ErrInsufficientFunds)
		}
		return fmt.Errorf("negotiate: select coins: %w", err)
	}

	var inputs []*group.Point
	var inputKeySum = group.NewScalar()
	var total uint64
	for _, c := range coins {
		inputs = append(inputs, c.Commitment)
		inputKeySum = inputKeySum.Add(c.Key)
		total += c.Value
	}

	var outputs []*group.Point
	outputKeySum := group.NewScalar()
	if change := total - (amount + fee); change > 0 {
		changeKey, err := group.RandomScalar()
		if err != nil {
			return fmt.Errorf("negotiate: generate change key: %w", err)
		}
		changeCoin := &ledger.Coin{
			Value:      change,
			Status:     ledger.Draft,
			Key:        changeKey,
			Commitment: group.Commit(change, changeKey),
			CreatedTx:  txID,
		}
		if _, err := role.ledger.Store(sc.ctx, changeCoin); err != nil {
			return fmt.Errorf("negotiate: store change coin: %w", err)
		}
		outputs = append(outputs, changeCoin.Commitment)
		outputKeySum = changeKey
	}

	offset, err := group.RandomScalar()
	if err != nil {
		return fmt.Errorf("negotiate: generate offset: %w", err)
	}
	excess := inputKeySum.Sub(outputKeySum).Sub(offset)

	if err := inputsParam.Put(sc.store, txID, inputs); err != nil {
		return err
	}
	if err := outputsParam.Put(sc.store, txID, outputs); err != nil {
		return err
	}
	if err := blindingExcessParam.Put(sc.store, txID, excess); err != nil {
		return err
	}
	if err := offsetParam.Put(sc.store, txID, offset); err != nil {
		return err
	}

	nonce := musig.DeriveNonce(txID[:], excess)
	msg := gateway.Invite{
		TxID:         txID,
		Amount:       amount,
		Fee:          fee,
		MinHeight:    minHeight,
		Inputs:       encodePoints(inputs),
		Outputs:      encodePoints(outputs),
		PublicExcess: excess.ActOnBase().Bytes(),
		PublicNonce:  nonce.ActOnBase().Bytes(),
		Offset:       offset.Bytes(),
	}
	return sc.send(&msg)
}

// applyConfirmInvitation writes the receiver's output, public excess
// and nonce, and partial signature into the parameter store.
// Verifying the signature happens later, in senderConfirmTransaction,
// reading only from the store — not here, and not off ci directly.
func (sc *stepContext) applyConfirmInvitation(ci *gateway.ConfirmInvitation) error {
	txID := sc.txID()
	if ci.TxID != txID {
		return fmt.Errorf("%w: confirm invitation for wrong tx", ErrUnexpectedMessage)
	}
	if peerSignatureParam.IsSet(sc.store, txID) {
		return nil // already applied; tolerate a resent confirmation
	}

	peerOutputs, err := decodePoints(ci.Outputs)
	if err != nil {
		return err
	}
	peerExcess, err := group.PointFromBytes(ci.PublicExcess)
	if err != nil {
		return err
	}
	peerNonce, err := group.PointFromBytes(ci.PublicNonce)
	if err != nil {
		return err
	}
	peerSig, err := group.ScalarFromBytes(ci.PartialSig)
	if err != nil {
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
	return peerSignatureParam.Put(sc.store, txID, peerSig)
}

// senderConfirmTransaction is S4: verify the receiver's partial
// signature (read back from the store, not from the message that
// applied it), compute this side's own partial signature, and send it
// in ConfirmTransaction. The two shares are not combined here: the
// sender never builds the combined kernel signature.
// Assembling the canonical transaction, validating it, and registering
// it with the network is the receiver's job (R4) — the sender only
// ever proposes its half of the signature and waits for the receiver's
// TxRegistered notification. Resending here on every idle retry is
// harmless: the receiver's own progress is gated on
// transactionRegisteredParam, not on how many times it is told the
// same partial signature.
func (sc *stepContext) senderConfirmTransaction() error {
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
	excess, _, err := blindingExcessParam.Get(sc.store, txID)
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
	peerSig, _, err := peerSignatureParam.Get(sc.store, txID)
	if err != nil {
		return err
	}

	ownNonce := musig.DeriveNonce(txID[:], excess)
	aggregateExcess := excess.ActOnBase().Add(peerExcess)
	aggregateNonce := ownNonce.ActOnBase().Add(peerNonce)

	k := kernel.Kernel{Fee: fee, MinHeight: minHeight}
	challenge := musig.Challenge(aggregateNonce, aggregateExcess, k.Message())

	if !musig.VerifyPartial(peerSig, peerNonce, peerExcess, challenge) {
		_ = role.fail(sc.ctx, "invalid peer signature", true)
		return ErrInvalidPeerSignature
	}

	ownSig := musig.PartialSign(ownNonce, excess, challenge)
	confirmMsg := gateway.ConfirmTransaction{
		TxID:       txID,
		PartialSig: ownSig.Bytes(),
	}
	return sc.send(&confirmMsg)
}

// applyTxRegistered is the sender's entry point for learning the
// receiver has registered the transaction: its own coins can now be
// marked spent/unconfirmed. If the receiver's notification already
// carries a kernel-inclusion proof, adopt it directly; otherwise
// senderConfirmKernel polls for one independently on a later call.
func (sc *stepContext) applyTxRegistered(tr *gateway.TxRegistered) error {
	txID := sc.txID()
	role := sc.role

	if tr.TxID != txID {
		return fmt.Errorf("%w: tx registered for wrong tx", ErrUnexpectedMessage)
	}
	if transactionRegisteredParam.IsSet(sc.store, txID) {
		if len(tr.Proof.KernelExcess) > 0 && !kernelProofParam.IsSet(sc.store, txID) {
			return kernelProofParam.Put(sc.store, txID, tr.Proof)
		}
		return nil // already applied; tolerate a resent notification
	}

	if err := sc.markCoinsBroadcast(); err != nil {
		role.log.Warn().Err(err).Msg("failed to update coin statuses after registration")
	}

	outputs, _, err := outputsParam.Get(sc.store, txID)
	if err != nil {
		return err
	}
	_ = role.gw.ConfirmOutputs(sc.ctx, encodePoints(outputs))

	if err := transactionRegisteredParam.Put(sc.store, txID, true); err != nil {
		return err
	}
	if len(tr.Proof.KernelExcess) > 0 {
		return kernelProofParam.Put(sc.store, txID, tr.Proof)
	}
	return nil
}

// senderConfirmKernel is S5's fallback path: poll for the kernel's
// inclusion proof independently, in case the receiver's registered
// notification arrived before it had obtained one of its own.
func (sc *stepContext) senderConfirmKernel() error {
	txID := sc.txID()
	role := sc.role

	excess, _, err := blindingExcessParam.Get(sc.store, txID)
	if err != nil {
		return err
	}
	peerExcess, _, err := publicPeerExcessParam.Get(sc.store, txID)
	if err != nil {
		return err
	}
	aggregateExcess := excess.ActOnBase().Add(peerExcess)

	proof, included, err := role.gw.ConfirmKernel(sc.ctx, txID, aggregateExcess.Bytes())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrKernelNotIncluded, err)
	}
	if !included {
		return ErrKernelNotIncluded
	}
	return kernelProofParam.Put(sc.store, txID, proof)
}

func (sc *stepContext) markCoinsBroadcast() error {
	coins, err := sc.role.ledger.CoinsForTx(sc.ctx, sc.txID())
	if err != nil {
		return err
	}
	for _, c := range coins {
		status := ledger.Unconfirmed
		if c.Status == ledger.Locked {
			status = ledger.Spent
		}
		if err := sc.role.ledger.UpdateStatus(sc.ctx, c.ID, status); err != nil {
			return err
		}
	}
	return nil
}
