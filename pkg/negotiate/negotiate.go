package negotiate

import (
	"context"
	"errors"
	"fmt"

	"github.com/beamwallet/negotiator/pkg/gateway"
	"github.com/beamwallet/negotiator/pkg/paramstore"
)

// Update advances the negotiation. Exactly one of two things happens
// per call: if incoming carries a newly arrived message, Update writes
// its contents into the parameter store and returns — it performs no
// verification and sends nothing. If incoming is nil, Update derives
// the next step entirely from what is already durable and, if ready,
// computes, verifies, and sends at most one outbound message. This
// split keeps the state machine itself from ever inspecting a wire
// message directly: only the parameter store feeds its decisions.
func (r *Role) Update(ctx context.Context, incoming gateway.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if tf, ok := incoming.(*gateway.TxFailed); ok {
		return r.fail(ctx, tf.Reason, false)
	}

	switch r.Status(ctx) {
	case StatusFailed:
		// FailureReason was persisted, but a crash may have landed
		// between that write and the rollback it should have triggered.
		// Retrying fail() is always safe: both its Put and RollbackTx
		// tolerate being repeated.
		if err := r.reconcileFailure(ctx); err != nil {
			return err
		}
		return ErrAlreadyTerminal
	case StatusCompleted:
		return ErrAlreadyTerminal
	}

	sc := &stepContext{ctx: ctx, role: r, store: r.store(ctx)}

	if incoming != nil {
		return sc.applyIncoming(incoming)
	}

	var err error
	switch r.kind {
	case Sender:
		err = sc.advanceSender()
	case Receiver:
		err = sc.advanceReceiver()
	default:
		err = fmt.Errorf("negotiate: unknown role kind %d", r.kind)
	}

	if errors.Is(err, ErrKernelNotIncluded) {
		r.log.Debug().Msg("kernel not yet included, will retry on next tip update")
		return nil
	}
	if err != nil && !errors.Is(err, errIdle) {
		r.log.Warn().Err(err).Msg("negotiation step failed")
	}
	if errors.Is(err, errIdle) {
		return nil
	}
	return err
}

// errIdle marks "nothing to do yet, waiting on the peer" as distinct
// from a real failure: Update swallows it and returns nil so callers
// never have to special-case a sentinel.
var errIdle = errors.New("negotiate: idle, awaiting peer message")

// stepContext threads the per-call dependencies (context, the Role,
// and its parameter store view) through the free-function step
// helpers in sender.go/receiver.go, instead of each step being a
// method with an implicit receiver that hides which of these it
// actually touches. It deliberately does not carry the triggering
// message: advance* and its step functions only ever read what
// applyIncoming already persisted.
type stepContext struct {
	ctx   context.Context
	role  *Role
	store ledgerParamStore
}

func (sc *stepContext) txID() paramstore.TxID { return sc.role.txID }

func (sc *stepContext) send(msg gateway.Message) error {
	if err := sc.role.gw.Send(sc.ctx, sc.role.peer, msg); err != nil {
		return fmt.Errorf("negotiate: send %T: %w", msg, err)
	}
	return nil
}

// applyIncoming decodes a just-arrived message and writes its raw
// fields into the parameter store. It is the transport's job, not the
// state machine's: no signature is verified and no reply is sent
// here, regardless of which step the negotiation happens to be on.
// Writes are idempotent against a resent message (guarded by checking
// whether the field they would set is already present), and a message
// kind that does not belong to this role (e.g. an Invite arriving at
// a Sender) is rejected outright as a routing error.
func (sc *stepContext) applyIncoming(msg gateway.Message) error {
	switch m := msg.(type) {
	case *gateway.Invite:
		if sc.role.kind != Receiver {
			return fmt.Errorf("%w: invite is a receiver-only message", ErrUnexpectedMessage)
		}
		return sc.applyInvite(m)
	case *gateway.ConfirmInvitation:
		if sc.role.kind != Sender {
			return fmt.Errorf("%w: confirm invitation is a sender-only message", ErrUnexpectedMessage)
		}
		return sc.applyConfirmInvitation(m)
	case *gateway.ConfirmTransaction:
		if sc.role.kind != Receiver {
			return fmt.Errorf("%w: confirm transaction is a receiver-only message", ErrUnexpectedMessage)
		}
		return sc.applyConfirmTransaction(m)
	case *gateway.TxRegistered:
		if sc.role.kind != Sender {
			return fmt.Errorf("%w: tx registered is a sender-only message", ErrUnexpectedMessage)
		}
		return sc.applyTxRegistered(m)
	default:
		return fmt.Errorf("%w: unrecognized message type %T", ErrUnexpectedMessage, msg)
	}
}
