// Package negotiate implements the re-entrant transaction negotiation
// state machine: the sequence of steps two wallets run to jointly
// build, sign, and register a confidential transaction. A Role
// represents one side's view of one negotiation; Update advances it
// by exactly one step per call, sending at most one outbound message,
// and is safe to call again after a crash with the same or a newly
// arrived message — everything it needs to resume lives in the
// parameter store, not in Role's in-memory fields.
package negotiate

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/beamwallet/negotiator/pkg/gateway"
	"github.com/beamwallet/negotiator/pkg/ledger"
	"github.com/beamwallet/negotiator/pkg/paramstore"
	"github.com/rs/zerolog"
)

// Kind tags which side of the two-party protocol a Role plays. The
// negotiation core models this as a tagged union rather than two
// implementations of a common interface: the steps genuinely differ
// in what they compute, and a tag keeps that difference visible at
// the call site instead of hidden behind dynamic dispatch.
type Kind uint8

const (
	Sender Kind = iota
	Receiver
)

func (k Kind) String() string {
	if k == Sender {
		return "sender"
	}
	return "receiver"
}

// Status is the coarse lifecycle of a negotiation, derived from
// parameter-store contents rather than tracked as separate state, so
// it always reflects durable progress.
type Status uint8

const (
	StatusInProgress Status = iota
	StatusRegistered
	StatusCompleted
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusInProgress:
		return "in-progress"
	case StatusRegistered:
		return "registered"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Role is one side of one negotiation. It holds no secret state of
// its own beyond what it needs to reach the ledger and gateway: every
// value particular to this transaction is read from and written to
// the parameter store, keyed by TxID.
type Role struct {
	kind Kind
	txID paramstore.TxID
	self gateway.PeerID
	peer gateway.PeerID

	ledger ledger.Ledger
	gw     gateway.Gateway
	log    zerolog.Logger

	// mu serializes Update/Cancel calls: a single negotiation advances
	// one step at a time even if its transport delivers concurrently
	// (e.g. a retry racing a fresh incoming message).
	mu sync.Mutex
}

func (r *Role) store(ctx context.Context) ledgerParamStore {
	return ledgerParamStore{ctx: ctx, l: r.ledger}
}

// TxID returns the negotiation's transaction identifier.
func (r *Role) TxID() paramstore.TxID { return r.txID }

// Kind returns whether this Role is the sender or the receiver side.
func (r *Role) Kind() Kind { return r.kind }

// NewSendRole starts the sending side of a new negotiation: self pays
// amount (plus fee) to peer. Amount/Fee/MinHeight are persisted
// immediately so a crash before the first Update() call still leaves
// the negotiation resumable.
func NewSendRole(
	ctx context.Context,
	txID paramstore.TxID,
	self, peer gateway.PeerID,
	amount, fee, minHeight uint64,
	ldgr ledger.Ledger,
	gw gateway.Gateway,
	log zerolog.Logger,
) (*Role, error) {
	if peer == self {
		return nil, ErrSelfSendUnsupported
	}
	r := &Role{
		kind: Sender, txID: txID, self: self, peer: peer,
		ledger: ldgr, gw: gw,
		log: log.With().Str("tx", txID.String()).Str("role", "sender").Logger(),
	}
	s := r.store(ctx)
	if err := amountParam.Put(s, txID, amount); err != nil {
		return nil, fmt.Errorf("negotiate: NewSendRole: %w", err)
	}
	if err := feeParam.Put(s, txID, fee); err != nil {
		return nil, fmt.Errorf("negotiate: NewSendRole: %w", err)
	}
	if err := minHeightParam.Put(s, txID, minHeight); err != nil {
		return nil, fmt.Errorf("negotiate: NewSendRole: %w", err)
	}
	return r, nil
}

// ResumeSendRole reconstructs the sending side of a negotiation whose
// Amount/Fee/MinHeight (and possibly further progress) were already
// persisted by an earlier NewSendRole call, typically after a process
// restart. It performs no writes of its own: every further step reads
// what it needs from the parameter store exactly as NewSendRole's
// Role would have.
func ResumeSendRole(
	txID paramstore.TxID,
	self, peer gateway.PeerID,
	ldgr ledger.Ledger,
	gw gateway.Gateway,
	log zerolog.Logger,
) *Role {
	return &Role{
		kind: Sender, txID: txID, self: self, peer: peer,
		ledger: ldgr, gw: gw,
		log: log.With().Str("tx", txID.String()).Str("role", "sender").Logger(),
	}
}

// NewReceiveRole starts the receiving side of a negotiation whose
// Invite has not yet arrived (or has arrived and will be passed to
// the first Update call). Unlike NewSendRole, no parameters are known
// yet: they arrive with the peer's Invite.
func NewReceiveRole(
	ctx context.Context,
	txID paramstore.TxID,
	self, peer gateway.PeerID,
	ldgr ledger.Ledger,
	gw gateway.Gateway,
	log zerolog.Logger,
) *Role {
	return &Role{
		kind: Receiver, txID: txID, self: self, peer: peer,
		ledger: ldgr, gw: gw,
		log: log.With().Str("tx", txID.String()).Str("role", "receiver").Logger(),
	}
}

// Status reports the negotiation's current lifecycle stage. Completed
// has no parameter of its own (KernelProof is the closed parameter
// set's only durable record of success) — it is derived each call by
// checking a persisted kernel-inclusion proof against the current
// chain tip, so a resumed Role computes the same status a crashed one
// would have reported.
func (r *Role) Status(ctx context.Context) Status {
	s := r.store(ctx)
	if failureReasonParam.IsSet(s, r.txID) {
		return StatusFailed
	}
	registered, ok, _ := transactionRegisteredParam.Get(s, r.txID)
	if !ok || !registered {
		return StatusInProgress
	}
	proof, ok, _ := kernelProofParam.Get(s, r.txID)
	if !ok {
		return StatusRegistered
	}
	if r.gw.IsTestMode() {
		return StatusCompleted
	}
	tip, err := r.gw.GetTip(ctx)
	if err != nil || tip < proof.Height {
		return StatusRegistered
	}
	return StatusCompleted
}

// Cancel aborts the negotiation: it releases any reserved coins,
// records reason, and (best-effort) notifies the peer so it releases
// its own reservation instead of waiting forever. Cancel only applies
// while the negotiation is still in progress — once the transaction
// has been registered with the network there is nothing left to pull
// back, so Registered, Completed, and Failed are all rejected alike.
func (r *Role) Cancel(ctx context.Context, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch r.Status(ctx) {
	case StatusInProgress:
		return r.fail(ctx, reason, true)
	case StatusFailed:
		// Already failing; retry in case a prior crash landed between
		// persisting FailureReason and completing the rollback.
		_ = r.reconcileFailure(ctx)
		return ErrAlreadyTerminal
	default:
		return ErrAlreadyTerminal
	}
}

// fail records the failure, rolls back ledger reservations, and
// optionally notifies the peer. notifyPeer is false when the failure
// already originated from a peer message (no point echoing it back).
func (r *Role) fail(ctx context.Context, reason string, notifyPeer bool) error {
	s := r.store(ctx)
	if err := failureReasonParam.Put(s, r.txID, reason); err != nil && !errors.Is(err, paramstore.ErrAlreadySet) {
		r.log.Warn().Err(err).Msg("failed to persist failure reason")
	}
	if err := r.ledger.RollbackTx(ctx, r.txID); err != nil && !errors.Is(err, ledger.ErrNoReservation) {
		r.log.Warn().Err(err).Msg("rollback failed")
	}
	if notifyPeer {
		msg := gateway.TxFailed{TxID: r.txID, Reason: reason}
		if err := r.gw.Send(ctx, r.peer, &msg); err != nil {
			r.log.Warn().Err(err).Msg("failed to notify peer of cancellation")
		}
	}
	return nil
}

// reconcileFailure re-runs the rollback half of fail() for a
// negotiation whose FailureReason is already persisted. It exists
// because fail() writes FailureReason before calling RollbackTx: a
// crash landing between those two calls otherwise leaves a resumed
// Role reporting StatusFailed forever while its coins stay Locked,
// since every future Update/Cancel call used to short-circuit on
// StatusFailed before ever reaching RollbackTx again. Both halves of
// fail() already tolerate being repeated (ErrAlreadySet, ErrNoReservation),
// so simply calling it again, without re-notifying the peer, is enough.
func (r *Role) reconcileFailure(ctx context.Context) error {
	reason, ok, err := failureReasonParam.Get(r.store(ctx), r.txID)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	return r.fail(ctx, reason, false)
}
