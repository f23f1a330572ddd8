package negotiate

import "errors"

var (
	// ErrInsufficientFunds is surfaced from coin selection in place of
	// ledger.ErrInsufficientFunds (which it does not wrap), so callers
	// of this package never need to import pkg/ledger just to check the
	// sentinel.
	ErrInsufficientFunds = errors.New("negotiate: insufficient funds")

	// ErrInvalidPeerSignature is returned when a peer's partial
	// signature fails verification against its own declared nonce and
	// excess. The negotiation fails immediately: there is no retry,
	// since a valid peer cannot produce this.
	ErrInvalidPeerSignature = errors.New("negotiate: invalid peer signature")

	// ErrInvalidTransaction is returned when the fully assembled
	// transaction fails Transaction.IsValid, e.g. the peer's declared
	// outputs don't actually conserve value.
	ErrInvalidTransaction = errors.New("negotiate: invalid transaction")

	// ErrRegistrationFailed is returned when register_tx is rejected
	// outright by the network (e.g. a double-spend). Unlike
	// ErrKernelNotIncluded this is fatal: there is nothing left to
	// retry, so the negotiation fails immediately.
	ErrRegistrationFailed = errors.New("negotiate: transaction registration failed")

	// ErrKernelNotIncluded marks "registered, but not yet mined" as
	// non-fatal. Update treats it like errIdle: the negotiation stays
	// in StatusRegistered and confirm_kernel is retried on the next
	// call. Test mode does not change this: IsTestMode only skips the
	// tip check in Status once a proof is held.
	ErrKernelNotIncluded = errors.New("negotiate: kernel not yet included, retry on next tip update")

	// ErrSelfSendUnsupported is returned by NewSendRole when the
	// requested peer resolves to the local wallet itself: a
	// self-addressed two-party negotiation has no distinct
	// counterparty to run the receiver side, so it is rejected
	// outright rather than silently deadlocking.
	ErrSelfSendUnsupported = errors.New("negotiate: self-send is not supported")

	// ErrUnexpectedMessage is returned when Update receives a message
	// kind that does not fit the role's current step.
	ErrUnexpectedMessage = errors.New("negotiate: unexpected message for current step")

	// ErrAlreadyTerminal is returned by Update/Cancel once a
	// negotiation has already reached a terminal state, and by Cancel
	// for a negotiation that is already registered.
	ErrAlreadyTerminal = errors.New("negotiate: negotiation already terminal")
)
