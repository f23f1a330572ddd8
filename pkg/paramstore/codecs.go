package paramstore

import (
	"encoding/binary"
	"fmt"
)

// Uint64 encodes a uint64 as 8 little-endian bytes, per spec's
// "canonical, length-prefixed, little-endian" parameter encoding.
var Uint64 = Codec[uint64]{
	Encode: func(v uint64) []byte {
		buf := make([]byte, 8)
		binary.LittleEndian.PutUint64(buf, v)
		return buf
	},
	Decode: func(b []byte) (uint64, error) {
		if len(b) != 8 {
			return 0, fmt.Errorf("paramstore: uint64 codec: want 8 bytes, got %d", len(b))
		}
		return binary.LittleEndian.Uint64(b), nil
	},
}

// Bool encodes a boolean as a single byte.
var Bool = Codec[bool]{
	Encode: func(v bool) []byte {
		if v {
			return []byte{1}
		}
		return []byte{0}
	},
	Decode: func(b []byte) (bool, error) {
		if len(b) != 1 {
			return false, fmt.Errorf("paramstore: bool codec: want 1 byte, got %d", len(b))
		}
		return b[0] != 0, nil
	},
}

// Bytes is the identity codec: the blob itself is the value.
var Bytes = Codec[[]byte]{
	Encode: func(v []byte) []byte {
		out := make([]byte, len(v))
		copy(out, v)
		return out
	},
	Decode: func(b []byte) ([]byte, error) {
		out := make([]byte, len(b))
		copy(out, b)
		return out, nil
	},
}

// String encodes a UTF-8 string as raw bytes.
var String = Codec[string]{
	Encode: func(v string) []byte { return []byte(v) },
	Decode: func(b []byte) (string, error) { return string(b), nil },
}

// writeLenPrefixed appends a little-endian uint32 length prefix followed by data.
func writeLenPrefixed(buf []byte, data []byte) []byte {
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(data)))
	buf = append(buf, lenBuf[:]...)
	buf = append(buf, data...)
	return buf
}

// Slice builds a Codec[[]T] out of a Codec[T], encoding a little-endian
// uint32 element count followed by each element, itself length-prefixed.
// This is the "...or list thereof" half of spec §4.1's value model.
func Slice[T any](elem Codec[T]) Codec[[]T] {
	return Codec[[]T]{
		Encode: func(vs []T) []byte {
			out := make([]byte, 4)
			binary.LittleEndian.PutUint32(out, uint32(len(vs)))
			for _, v := range vs {
				out = writeLenPrefixed(out, elem.Encode(v))
			}
			return out
		},
		Decode: func(b []byte) ([]T, error) {
			if len(b) < 4 {
				return nil, fmt.Errorf("paramstore: slice codec: buffer too short for count")
			}
			count := binary.LittleEndian.Uint32(b[:4])
			b = b[4:]
			out := make([]T, 0, count)
			for i := uint32(0); i < count; i++ {
				if len(b) < 4 {
					return nil, fmt.Errorf("paramstore: slice codec: buffer too short for element %d length", i)
				}
				elemLen := binary.LittleEndian.Uint32(b[:4])
				b = b[4:]
				if uint32(len(b)) < elemLen {
					return nil, fmt.Errorf("paramstore: slice codec: buffer too short for element %d data", i)
				}
				v, err := elem.Decode(b[:elemLen])
				if err != nil {
					return nil, fmt.Errorf("paramstore: slice codec: element %d: %w", i, err)
				}
				out = append(out, v)
				b = b[elemLen:]
			}
			return out, nil
		},
	}
}
