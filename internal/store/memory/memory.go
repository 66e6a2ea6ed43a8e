// Package memory is an in-process ledger.Store used by tests and the
// STORE=memory dev backend. It keeps the same atomic-unit discipline
// as the Postgres store: per-account locks taken in ascending id
// order, staged writes that only land on commit.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nordvault/bank-backend/internal/ledger"
	"github.com/nordvault/bank-backend/internal/money"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

var _ ledger.Store = (*Store)(nil)

type account struct {
	ledger.Account
	mu   sync.Mutex // serializes balance mutation for this account
	last time.Time  // latest log timestamp, keeps stamps non-decreasing
}

// Store holds all state in memory. The outer mutex guards the maps
// and counters; balance mutation is governed by each account's own
// lock inside an atomic unit.
type Store struct {
	mu       sync.RWMutex
	accounts map[int64]*account
	byNumber map[string]int64
	log      map[int64][]ledger.Transaction
	nextAcct int64
	nextTxn  int64
}

func NewStore() *Store {
	return &Store{
		accounts: make(map[int64]*account),
		byNumber: make(map[string]int64),
		log:      make(map[int64][]ledger.Transaction),
	}
}

func (s *Store) CreateAccount(ctx context.Context, userID uuid.UUID, kind ledger.AccountKind, number string) (ledger.Account, error) {
	if err := ctx.Err(); err != nil {
		return ledger.Account{}, fmt.Errorf("%w: %v", ledger.ErrStoreUnavailable, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byNumber[number]; taken {
		return ledger.Account{}, ledger.ErrNumberTaken
	}
	s.nextAcct++
	a := &account{Account: ledger.Account{
		ID:        s.nextAcct,
		UserID:    userID,
		Number:    number,
		Kind:      kind,
		Balance:   money.Zero,
		CreatedAt: time.Now().UTC(),
	}}
	s.accounts[a.ID] = a
	s.byNumber[number] = a.ID
	return a.Account, nil
}

func (s *Store) NumberExists(ctx context.Context, number string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byNumber[number]
	return ok, nil
}

func (s *Store) AccountForUser(ctx context.Context, accountID int64, userID uuid.UUID) (ledger.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[accountID]
	if !ok || a.UserID != userID {
		return ledger.Account{}, ledger.ErrAccountNotFound
	}
	return a.Account, nil
}

func (s *Store) AccountsForUser(ctx context.Context, userID uuid.UUID) ([]ledger.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []ledger.Account
	for _, a := range s.accounts {
		if a.UserID == userID {
			out = append(out, a.Account)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) Transactions(ctx context.Context, accountID int64, limit int) ([]ledger.Transaction, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	s.mu.RLock()
	entries := make([]ledger.Transaction, len(s.log[accountID]))
	copy(entries, s.log[accountID])
	s.mu.RUnlock()

	sortLog(entries)
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (s *Store) TransactionsBetween(ctx context.Context, accountID int64, from, to time.Time) ([]ledger.Transaction, error) {
	s.mu.RLock()
	var entries []ledger.Transaction
	for _, t := range s.log[accountID] {
		if !t.CreatedAt.Before(from) && t.CreatedAt.Before(to) {
			entries = append(entries, t)
		}
	}
	s.mu.RUnlock()

	sortLog(entries)
	return entries, nil
}

// sortLog orders newest first, equal timestamps by ascending id so
// the order is total.
func sortLog(entries []ledger.Transaction) {
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].CreatedAt.After(entries[j].CreatedAt)
		}
		return entries[i].ID < entries[j].ID
	})
}

// Atomic runs fn against a staged view. Nothing fn does is visible
// until commit; an error discards the stage entirely.
func (s *Store) Atomic(ctx context.Context, fn func(ledger.Unit) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ledger.ErrStoreUnavailable, err)
	}

	u := &unit{store: s, staged: make(map[int64]money.Money)}
	defer u.release()

	if err := fn(u); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ledger.ErrStoreUnavailable, err)
	}
	u.commit()
	return nil
}

type pendingEntry struct {
	accountID   int64
	entryType   ledger.EntryType
	amount      money.Money
	description string
}

type unit struct {
	store   *Store
	locked  []*account            // in acquisition (ascending id) order
	staged  map[int64]money.Money // balances of locked accounts
	pending []pendingEntry
}

func (u *unit) AccountForUser(ctx context.Context, accountID int64, userID uuid.UUID) (ledger.Account, error) {
	return u.store.AccountForUser(ctx, accountID, userID)
}

func (u *unit) AccountByNumber(ctx context.Context, number string) (ledger.Account, error) {
	u.store.mu.RLock()
	defer u.store.mu.RUnlock()
	id, ok := u.store.byNumber[number]
	if !ok {
		return ledger.Account{}, ledger.ErrAccountNotFound
	}
	return u.store.accounts[id].Account, nil
}

func (u *unit) LockAccounts(ctx context.Context, ids ...int64) (map[int64]ledger.Account, error) {
	sorted := append([]int64(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	out := make(map[int64]ledger.Account, len(sorted))
	for _, id := range sorted {
		u.store.mu.RLock()
		a, ok := u.store.accounts[id]
		u.store.mu.RUnlock()
		if !ok {
			return nil, ledger.ErrAccountNotFound
		}
		if _, already := u.staged[id]; !already {
			a.mu.Lock()
			u.locked = append(u.locked, a)
			u.staged[id] = a.Balance
		}
		snap := a.Account
		snap.Balance = u.staged[id]
		out[id] = snap
	}
	return out, nil
}

func (u *unit) ApplyDelta(ctx context.Context, accountID int64, delta money.Money) (money.Money, error) {
	bal, locked := u.staged[accountID]
	if !locked {
		return money.Zero, fmt.Errorf("%w: account %d not locked", ledger.ErrStoreUnavailable, accountID)
	}
	next := bal.Add(delta)
	if next.IsNegative() {
		return money.Zero, ledger.ErrInsufficientFunds
	}
	u.staged[accountID] = next
	return next, nil
}

func (u *unit) Append(ctx context.Context, accountID int64, entryType ledger.EntryType, amount money.Money, description string) (ledger.Transaction, error) {
	if !amount.IsPositive() {
		return ledger.Transaction{}, ledger.ErrInvalidAmount
	}
	u.pending = append(u.pending, pendingEntry{accountID, entryType, amount, description})
	// Id and timestamp are assigned at commit.
	return ledger.Transaction{
		AccountID:   accountID,
		Type:        entryType,
		Amount:      amount,
		Description: description,
	}, nil
}

// commit lands staged balances and pending log entries while the
// per-account locks are still held.
func (u *unit) commit() {
	u.store.mu.Lock()
	defer u.store.mu.Unlock()

	for _, a := range u.locked {
		a.Balance = u.staged[a.ID]
	}
	for _, p := range u.pending {
		u.store.nextTxn++
		a := u.store.accounts[p.accountID]
		now := time.Now().UTC()
		if now.Before(a.last) {
			now = a.last
		}
		a.last = now
		u.store.log[p.accountID] = append(u.store.log[p.accountID], ledger.Transaction{
			ID:          u.store.nextTxn,
			AccountID:   p.accountID,
			Type:        p.entryType,
			Amount:      p.amount,
			Description: p.description,
			CreatedAt:   now,
		})
	}
}

// release drops the per-account locks in reverse acquisition order.
func (u *unit) release() {
	for i := len(u.locked) - 1; i >= 0; i-- {
		u.locked[i].mu.Unlock()
	}
	u.locked = nil
}
