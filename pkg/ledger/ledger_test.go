package ledger

import (
	"context"
	"testing"

	"github.com/beamwallet/negotiator/pkg/paramstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTxID(b byte) paramstore.TxID {
	var id paramstore.TxID
	id[0] = b
	return id
}

func TestSelectCoinsLargestFirst(t *testing.T) {
	ctx := context.Background()
	l := NewMemLedger([32]byte{1})
	l.SeedCoin(10)
	l.SeedCoin(50)
	l.SeedCoin(20)

	picked, err := l.SelectCoins(ctx, testTxID(1), 60)
	require.NoError(t, err)
	require.Len(t, picked, 2)
	assert.Equal(t, uint64(50), picked[0].Value)
	assert.Equal(t, uint64(20), picked[1].Value)
}

func TestSelectCoinsInsufficientFunds(t *testing.T) {
	ctx := context.Background()
	l := NewMemLedger([32]byte{1})
	l.SeedCoin(10)

	_, err := l.SelectCoins(ctx, testTxID(1), 60)
	assert.ErrorIs(t, err, ErrInsufficientFunds)
}

func TestSelectCoinsLocksAndExcludesFromFuturePicks(t *testing.T) {
	ctx := context.Background()
	l := NewMemLedger([32]byte{1})
	l.SeedCoin(50)
	l.SeedCoin(50)

	_, err := l.SelectCoins(ctx, testTxID(1), 40)
	require.NoError(t, err)

	picked, err := l.SelectCoins(ctx, testTxID(2), 40)
	require.NoError(t, err)
	require.Len(t, picked, 1)
}

func TestRollbackTxRestoresLockedCoins(t *testing.T) {
	ctx := context.Background()
	l := NewMemLedger([32]byte{1})
	l.SeedCoin(50)

	_, err := l.SelectCoins(ctx, testTxID(1), 40)
	require.NoError(t, err)

	require.NoError(t, l.RollbackTx(ctx, testTxID(1)))

	var found *Coin
	_ = l.Visit(ctx, func(c *Coin) bool {
		found = c
		return true
	})
	require.NotNil(t, found)
	assert.Equal(t, Confirmed, found.Status)
}

func TestRollbackTxDeletesDraftCoins(t *testing.T) {
	ctx := context.Background()
	l := NewMemLedger([32]byte{1})
	txID := testTxID(1)

	_, err := l.Store(ctx, &Coin{Value: 5, Status: Draft, CreatedTx: txID})
	require.NoError(t, err)

	require.NoError(t, l.RollbackTx(ctx, txID))

	count := 0
	_ = l.Visit(ctx, func(c *Coin) bool {
		count++
		return true
	})
	assert.Equal(t, 0, count)
}

func TestRollbackTxWithoutReservationErrors(t *testing.T) {
	ctx := context.Background()
	l := NewMemLedger([32]byte{1})
	err := l.RollbackTx(ctx, testTxID(9))
	assert.ErrorIs(t, err, ErrNoReservation)
}

func TestCalcKeyDeterministic(t *testing.T) {
	ctx := context.Background()
	l := NewMemLedger([32]byte{7})
	c := l.SeedCoin(10)

	k1, err := l.CalcKey(ctx, c)
	require.NoError(t, err)
	k2, err := l.CalcKey(ctx, c)
	require.NoError(t, err)
	assert.True(t, k1.Equal(k2))
}

func TestCoinsForTxReturnsReservedAndDrafted(t *testing.T) {
	ctx := context.Background()
	l := NewMemLedger([32]byte{1})
	txID := testTxID(1)
	l.SeedCoin(50)

	_, err := l.SelectCoins(ctx, txID, 40)
	require.NoError(t, err)
	_, err = l.Store(ctx, &Coin{Value: 10, Status: Draft, CreatedTx: txID})
	require.NoError(t, err)

	coins, err := l.CoinsForTx(ctx, txID)
	require.NoError(t, err)
	assert.Len(t, coins, 2)
}

func TestTxParameterDelegatesToInternalStore(t *testing.T) {
	ctx := context.Background()
	l := NewMemLedger([32]byte{1})
	txID := testTxID(1)

	_, ok := l.GetTxParameter(ctx, txID, paramstore.Amount)
	assert.False(t, ok)

	require.NoError(t, l.SetTxParameter(ctx, txID, paramstore.Amount, []byte{1, 2}))
	v, ok := l.GetTxParameter(ctx, txID, paramstore.Amount)
	require.True(t, ok)
	assert.Equal(t, []byte{1, 2}, v)
}
