package paramstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTxID(b byte) TxID {
	var id TxID
	id[0] = b
	return id
}

func TestMemStoreGetAbsent(t *testing.T) {
	s := NewMemStore()
	v, ok := s.Get(testTxID(1), Amount)
	assert.False(t, ok)
	assert.Nil(t, v)
}

func TestMemStorePutThenGet(t *testing.T) {
	s := NewMemStore()
	txID := testTxID(1)
	require.NoError(t, s.Put(txID, Amount, []byte{1, 2, 3}))

	v, ok := s.Get(txID, Amount)
	require.True(t, ok)
	assert.Equal(t, []byte{1, 2, 3}, v)
}

func TestMemStorePutTwiceFails(t *testing.T) {
	s := NewMemStore()
	txID := testTxID(1)
	require.NoError(t, s.Put(txID, Amount, []byte{1}))
	err := s.Put(txID, Amount, []byte{2})
	assert.ErrorIs(t, err, ErrAlreadySet)
}

func TestMemStoreIsolatesKeysByTxAndParam(t *testing.T) {
	s := NewMemStore()
	require.NoError(t, s.Put(testTxID(1), Amount, []byte{1}))
	require.NoError(t, s.Put(testTxID(2), Amount, []byte{2}))
	require.NoError(t, s.Put(testTxID(1), Fee, []byte{3}))

	v1, _ := s.Get(testTxID(1), Amount)
	v2, _ := s.Get(testTxID(2), Amount)
	v3, _ := s.Get(testTxID(1), Fee)
	assert.Equal(t, []byte{1}, v1)
	assert.Equal(t, []byte{2}, v2)
	assert.Equal(t, []byte{3}, v3)
}

func TestMemStoreMutationOfPutSliceDoesNotLeak(t *testing.T) {
	s := NewMemStore()
	txID := testTxID(1)
	buf := []byte{1, 2, 3}
	require.NoError(t, s.Put(txID, Amount, buf))
	buf[0] = 0xff

	v, _ := s.Get(txID, Amount)
	assert.Equal(t, byte(1), v[0])
}

func TestParamUint64RoundTrip(t *testing.T) {
	s := NewMemStore()
	txID := testTxID(1)
	p := Param[uint64]{ID: Amount, Codec: Uint64}

	_, ok, err := p.Get(s, txID)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, p.IsSet(s, txID))

	require.NoError(t, p.Put(s, txID, 1_000_000))
	assert.True(t, p.IsSet(s, txID))

	v, ok, err := p.Get(s, txID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint64(1_000_000), v)
}

func TestParamPutTwiceReturnsAlreadySet(t *testing.T) {
	s := NewMemStore()
	txID := testTxID(1)
	p := Param[uint64]{ID: Fee, Codec: Uint64}

	require.NoError(t, p.Put(s, txID, 100))
	err := p.Put(s, txID, 200)
	assert.ErrorIs(t, err, ErrAlreadySet)
}

func TestSliceCodecRoundTrip(t *testing.T) {
	s := NewMemStore()
	txID := testTxID(1)
	p := Param[[]uint64]{ID: Inputs, Codec: Slice(Uint64)}

	require.NoError(t, p.Put(s, txID, []uint64{1, 2, 3}))
	v, ok, err := p.Get(s, txID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []uint64{1, 2, 3}, v)
}

func TestSliceCodecEmpty(t *testing.T) {
	s := NewMemStore()
	txID := testTxID(1)
	p := Param[[]uint64]{ID: Outputs, Codec: Slice(Uint64)}

	require.NoError(t, p.Put(s, txID, nil))
	v, ok, err := p.Get(s, txID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, v, 0)
}

func TestBytesCodecRoundTrip(t *testing.T) {
	s := NewMemStore()
	txID := testTxID(1)
	p := Param[[]byte]{ID: KernelProof, Codec: Bytes}

	require.NoError(t, p.Put(s, txID, []byte("proof")))
	v, ok, err := p.Get(s, txID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("proof"), v)
}

func TestUint64CodecRejectsWrongLength(t *testing.T) {
	_, err := Uint64.Decode([]byte{1, 2, 3})
	assert.Error(t, err)
}
