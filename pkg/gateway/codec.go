package gateway

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// envelope wraps a Message with its Kind so a decoder on the wire can
// pick the right concrete type before unmarshaling the payload.
type envelope struct {
	Kind    MessageKind `cbor:"1,keyasint"`
	Payload cbor.RawMessage `cbor:"2,keyasint"`
}

// Encode serializes a Message for transport.
func Encode(msg Message) ([]byte, error) {
	payload, err := cbor.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("gateway: encode payload: %w", err)
	}
	env := envelope{Kind: msg.Kind(), Payload: payload}
	out, err := cbor.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("gateway: encode envelope: %w", err)
	}
	return out, nil
}

// Decode parses a wire blob back into its concrete Message type.
func Decode(b []byte) (Message, error) {
	var env envelope
	if err := cbor.Unmarshal(b, &env); err != nil {
		return nil, fmt.Errorf("gateway: decode envelope: %w", err)
	}

	var msg Message
	switch env.Kind {
	case KindInvite:
		var m Invite
		msg = &m
	case KindConfirmInvitation:
		var m ConfirmInvitation
		msg = &m
	case KindConfirmTransaction:
		var m ConfirmTransaction
		msg = &m
	case KindTxRegistered:
		var m TxRegistered
		msg = &m
	case KindTxFailed:
		var m TxFailed
		msg = &m
	default:
		return nil, fmt.Errorf("gateway: unknown message kind %d", env.Kind)
	}

	if err := cbor.Unmarshal(env.Payload, msg); err != nil {
		return nil, fmt.Errorf("gateway: decode payload: %w", err)
	}
	return msg, nil
}
