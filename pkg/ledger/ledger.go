package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/beamwallet/negotiator/pkg/group"
	"github.com/beamwallet/negotiator/pkg/paramstore"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/sync/singleflight"
)

// ErrInsufficientFunds is returned by SelectCoins when the free pool
// cannot cover the requested amount.
var ErrInsufficientFunds = errors.New("ledger: insufficient funds")

// ErrCoinNotFound is returned when an operation names a CoinID the
// ledger has no record of.
var ErrCoinNotFound = errors.New("ledger: coin not found")

// ErrNoReservation is returned by RollbackTx when the named
// negotiation holds neither locked nor drafted coins.
var ErrNoReservation = errors.New("ledger: no reservation for transaction")

// Ledger is the wallet-local view of value the negotiation core
// reserves inputs from and deposits outputs into. A real wallet backs
// this with a crash-consistent database; MemLedger is the reference
// implementation used by tests and cmd/negotiatorsim.
type Ledger interface {
	// SelectCoins reserves (Locks) a set of Confirmed coins whose
	// total value is >= amount, tagging them with txID so RollbackTx
	// can undo the reservation. It never partially reserves: on
	// ErrInsufficientFunds no coin state changes.
	SelectCoins(ctx context.Context, txID paramstore.TxID, amount uint64) ([]*Coin, error)

	// CalcKey derives the blinding key for a coin deterministically
	// from the wallet's master key and the coin's identity, so a
	// coin's key never needs to be persisted on its own.
	CalcKey(ctx context.Context, coin *Coin) (*group.Scalar, error)

	// Store records a brand-new coin (e.g. a change output produced
	// by this negotiation) at the given status.
	Store(ctx context.Context, coin *Coin) (CoinID, error)

	// UpdateStatus transitions a coin to a new status. It does not
	// record the prior status: RollbackTx only restores the status a
	// coin held before SelectCoins locked it.
	UpdateStatus(ctx context.Context, id CoinID, status Status) error

	// RollbackTx undoes every reservation and draft coin created by
	// txID, restoring locked coins to their pre-negotiation status
	// and deleting coins that existed only as drafts.
	RollbackTx(ctx context.Context, txID paramstore.TxID) error

	// Visit calls fn for every coin in the ledger in an unspecified
	// order, stopping early if fn returns false.
	Visit(ctx context.Context, fn func(*Coin) bool) error

	// GetCurrentHeight returns the wallet's view of chain tip height,
	// used to populate and validate MinHeight.
	GetCurrentHeight(ctx context.Context) (uint64, error)

	// GetTxParameter and SetTxParameter expose the same write-once
	// (TxID, ParamID) -> bytes contract as paramstore.Store; Ledger
	// implementations typically delegate to one internally, but the
	// negotiation core addresses it through the ledger so a single
	// object gates both coin state and parameter state per wallet.
	GetTxParameter(ctx context.Context, txID paramstore.TxID, id paramstore.ParamID) ([]byte, bool)
	SetTxParameter(ctx context.Context, txID paramstore.TxID, id paramstore.ParamID, value []byte) error

	// DeleteTx removes the ledger's per-negotiation coin bookkeeping
	// (its reservation and draft lists) for a finished negotiation.
	// The coins themselves and the negotiation's parameters are kept.
	// Safe to call after RollbackTx or after a transaction is Confirmed.
	DeleteTx(ctx context.Context, txID paramstore.TxID) error

	// CoinsForTx returns every coin this negotiation reserved (via
	// SelectCoins) or created (via Store with Status Draft), so a
	// resumed negotiation can find "my inputs and change output"
	// again without having kept them in memory across a crash.
	CoinsForTx(ctx context.Context, txID paramstore.TxID) ([]*Coin, error)
}

type historyEntry struct {
	prevStatus Status
	txID       paramstore.TxID
}

// MemLedger is an in-memory Ledger. Coin selection is deterministic
// (largest value first, ties broken by CoinID) so tests and the
// loopback simulator produce reproducible input sets; a production
// wallet is free to pick a different policy (e.g. privacy-preserving
// random selection) since coin selection strategy is left to the
// Ledger implementation.
type MemLedger struct {
	mu   sync.Mutex
	seed [32]byte

	nextID CoinID
	coins  map[CoinID]*Coin
	// history records, per coin, the status it held before the most
	// recent lock so RollbackTx can restore it.
	history map[CoinID]historyEntry
	// reservations maps an in-flight txID to the coins it locked, so
	// RollbackTx can find them without scanning every coin.
	reservations map[paramstore.TxID][]CoinID
	// drafted tracks coins created (not merely locked) by a txID, so
	// RollbackTx can delete them outright instead of restoring a
	// prior status that never existed.
	drafted map[paramstore.TxID][]CoinID

	height uint64
	params paramstore.Store

	// sf collapses concurrent SelectCoins calls for the same txID into
	// a single critical section, so a negotiation step re-entered
	// concurrently (see pkg/negotiate) shares one reservation instead of
	// locking coins twice. Calls that do not overlap in time are not
	// collapsed: each one locks a fresh set of coins.
	sf singleflight.Group
}

// NewMemLedger returns an empty ledger seeded for key derivation. seed
// stands in for the wallet's master key.
func NewMemLedger(seed [32]byte) *MemLedger {
	return &MemLedger{
		seed:         seed,
		coins:        make(map[CoinID]*Coin),
		history:      make(map[CoinID]historyEntry),
		reservations: make(map[paramstore.TxID][]CoinID),
		drafted:      make(map[paramstore.TxID][]CoinID),
		params:       paramstore.NewMemStore(),
	}
}

// SeedCoin inserts a Confirmed coin directly, bypassing negotiation
// bookkeeping. Used by tests to fund a wallet before a scenario runs.
func (l *MemLedger) SeedCoin(value uint64) *Coin {
	l.mu.Lock()
	defer l.mu.Unlock()
	id := l.nextID
	l.nextID++
	c := &Coin{ID: id, Value: value, Status: Confirmed}
	key, _ := l.calcKeyLocked(c)
	c.Key = key
	c.Commitment = group.Commit(value, key)
	l.coins[id] = c
	return c.Clone()
}

// SetHeight sets the wallet's chain-tip view, used by tests driving
// MinHeight scenarios.
func (l *MemLedger) SetHeight(h uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.height = h
}

func (l *MemLedger) calcKeyLocked(coin *Coin) (*group.Scalar, error) {
	mac, err := blake2b.New256(l.seed[:])
	if err != nil {
		return nil, fmt.Errorf("ledger: calcKey: %w", err)
	}
	var idBuf [8]byte
	idBuf[0] = byte(coin.ID)
	idBuf[1] = byte(coin.ID >> 8)
	idBuf[2] = byte(coin.ID >> 16)
	idBuf[3] = byte(coin.ID >> 24)
	idBuf[4] = byte(coin.ID >> 32)
	idBuf[5] = byte(coin.ID >> 40)
	idBuf[6] = byte(coin.ID >> 48)
	idBuf[7] = byte(coin.ID >> 56)
	mac.Write(idBuf[:])
	digest := mac.Sum(nil)
	return group.ScalarFromBytes(digest[:32])
}

func (l *MemLedger) CalcKey(_ context.Context, coin *Coin) (*group.Scalar, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calcKeyLocked(coin)
}

func (l *MemLedger) SelectCoins(_ context.Context, txID paramstore.TxID, amount uint64) ([]*Coin, error) {
	v, err, _ := l.sf.Do(txID.String(), func() (interface{}, error) {
		return l.selectCoinsLocked(txID, amount)
	})
	if err != nil {
		return nil, err
	}
	return v.([]*Coin), nil
}

func (l *MemLedger) selectCoinsLocked(txID paramstore.TxID, amount uint64) ([]*Coin, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var candidates []*Coin
	for _, c := range l.coins {
		if c.Status == Confirmed {
			candidates = append(candidates, c)
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Value != candidates[j].Value {
			return candidates[i].Value > candidates[j].Value
		}
		return candidates[i].ID < candidates[j].ID
	})

	var picked []*Coin
	var total uint64
	for _, c := range candidates {
		if total >= amount {
			break
		}
		picked = append(picked, c)
		total += c.Value
	}
	if total < amount {
		return nil, ErrInsufficientFunds
	}

	for _, c := range picked {
		l.history[c.ID] = historyEntry{prevStatus: c.Status, txID: txID}
		c.Status = Locked
		c.SpentTx = txID
		l.reservations[txID] = append(l.reservations[txID], c.ID)
	}

	out := make([]*Coin, len(picked))
	for i, c := range picked {
		out[i] = c.Clone()
	}
	return out, nil
}

func (l *MemLedger) Store(_ context.Context, coin *Coin) (CoinID, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	id := l.nextID
	l.nextID++
	cp := coin.Clone()
	cp.ID = id
	l.coins[id] = cp
	if cp.Status == Draft {
		l.drafted[cp.CreatedTx] = append(l.drafted[cp.CreatedTx], id)
	}
	return id, nil
}

func (l *MemLedger) UpdateStatus(_ context.Context, id CoinID, status Status) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	c, ok := l.coins[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrCoinNotFound, id)
	}
	c.Status = status
	return nil
}

func (l *MemLedger) RollbackTx(_ context.Context, txID paramstore.TxID) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	locked := l.reservations[txID]
	draft := l.drafted[txID]
	if len(locked) == 0 && len(draft) == 0 {
		return fmt.Errorf("%w: %s", ErrNoReservation, txID)
	}

	for _, id := range locked {
		c, ok := l.coins[id]
		if !ok {
			continue
		}
		if h, ok := l.history[id]; ok && h.txID == txID {
			c.Status = h.prevStatus
			delete(l.history, id)
		} else {
			c.Status = Cancelled
		}
	}
	for _, id := range draft {
		delete(l.coins, id)
	}
	delete(l.reservations, txID)
	delete(l.drafted, txID)
	return nil
}

func (l *MemLedger) Visit(_ context.Context, fn func(*Coin) bool) error {
	l.mu.Lock()
	ids := make([]CoinID, 0, len(l.coins))
	for id := range l.coins {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	coins := make([]*Coin, 0, len(ids))
	for _, id := range ids {
		coins = append(coins, l.coins[id].Clone())
	}
	l.mu.Unlock()

	for _, c := range coins {
		if !fn(c) {
			break
		}
	}
	return nil
}

func (l *MemLedger) GetCurrentHeight(_ context.Context) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.height, nil
}

func (l *MemLedger) GetTxParameter(_ context.Context, txID paramstore.TxID, id paramstore.ParamID) ([]byte, bool) {
	return l.params.Get(txID, id)
}

func (l *MemLedger) SetTxParameter(_ context.Context, txID paramstore.TxID, id paramstore.ParamID, value []byte) error {
	return l.params.Put(txID, id, value)
}

func (l *MemLedger) CoinsForTx(_ context.Context, txID paramstore.TxID) ([]*Coin, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []*Coin
	for _, id := range l.reservations[txID] {
		if c, ok := l.coins[id]; ok {
			out = append(out, c.Clone())
		}
	}
	for _, id := range l.drafted[txID] {
		if c, ok := l.coins[id]; ok {
			out = append(out, c.Clone())
		}
	}
	return out, nil
}

func (l *MemLedger) DeleteTx(_ context.Context, txID paramstore.TxID) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.reservations, txID)
	delete(l.drafted, txID)
	return nil
}
