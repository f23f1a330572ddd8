package paramstore

import "fmt"

// Codec centralizes the encode/decode logic for one value type T, so
// call sites never hand-roll (de)serialization.
type Codec[T any] struct {
	Encode func(T) []byte
	Decode func([]byte) (T, error)
}

// Param is a phantom-typed handle for one ParamID, making Get/Put
// type-safe at the call site (the generic T never appears in the
// Store interface itself, only here).
type Param[T any] struct {
	ID    ParamID
	Codec Codec[T]
}

// Get reads and decodes the parameter, returning ok=false if absent.
func (p Param[T]) Get(s Store, txID TxID) (value T, ok bool, err error) {
	raw, present := s.Get(txID, p.ID)
	if !present {
		return value, false, nil
	}
	value, err = p.Codec.Decode(raw)
	if err != nil {
		return value, false, fmt.Errorf("paramstore: decode %s: %w", p.ID, err)
	}
	return value, true, nil
}

// Put encodes and persists the parameter. Returns ErrAlreadySet if a
// value is already present.
func (p Param[T]) Put(s Store, txID TxID, value T) error {
	if err := s.Put(txID, p.ID, p.Codec.Encode(value)); err != nil {
		return fmt.Errorf("paramstore: put %s: %w", p.ID, err)
	}
	return nil
}

// IsSet reports whether the parameter is present, without decoding it.
func (p Param[T]) IsSet(s Store, txID TxID) bool {
	_, ok := s.Get(txID, p.ID)
	return ok
}
