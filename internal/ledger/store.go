package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/nordvault/bank-backend/internal/money"
)

// Store is the single write path to the durable ledger. Balances and
// log entries change only inside Atomic; the read methods see
// committed state only.
type Store interface {
	// CreateAccount persists a new zero-balance account. It returns
	// ErrNumberTaken when the number collides with an existing one.
	CreateAccount(ctx context.Context, userID uuid.UUID, kind AccountKind, number string) (Account, error)

	// NumberExists reports whether any account already uses number.
	NumberExists(ctx context.Context, number string) (bool, error)

	// AccountForUser resolves an account scoped to its owner. An
	// ownership mismatch is ErrAccountNotFound, same as a miss.
	AccountForUser(ctx context.Context, accountID int64, userID uuid.UUID) (Account, error)

	// AccountsForUser lists every account the user owns.
	AccountsForUser(ctx context.Context, userID uuid.UUID) ([]Account, error)

	// Transactions returns an account's log, created_at descending,
	// ties broken by ascending id. limit <= 0 selects the default.
	Transactions(ctx context.Context, accountID int64, limit int) ([]Transaction, error)

	// TransactionsBetween returns log entries with created_at in
	// [from, to), same order as Transactions.
	TransactionsBetween(ctx context.Context, accountID int64, from, to time.Time) ([]Transaction, error)

	// Atomic runs fn inside one unit of work. If fn returns an error
	// every mutation made through the Unit is rolled back. Store
	// failures and timeouts come back wrapped in ErrStoreUnavailable.
	Atomic(ctx context.Context, fn func(Unit) error) error
}

// Unit is the view of the store inside one atomic unit. All balance
// mutation goes through ApplyDelta on accounts previously locked by
// LockAccounts.
type Unit interface {
	// AccountForUser and AccountByNumber resolve accounts within the
	// unit, without taking row locks.
	AccountForUser(ctx context.Context, accountID int64, userID uuid.UUID) (Account, error)
	AccountByNumber(ctx context.Context, number string) (Account, error)

	// LockAccounts takes exclusive row locks on the given accounts,
	// always in ascending id order regardless of argument order, and
	// returns their current state keyed by id.
	LockAccounts(ctx context.Context, ids ...int64) (map[int64]Account, error)

	// ApplyDelta adds a signed amount to a locked account's balance
	// and returns the new balance. A result below zero fails with
	// ErrInsufficientFunds and applies nothing.
	ApplyDelta(ctx context.Context, accountID int64, delta money.Money) (money.Money, error)

	// Append writes one immutable log entry with a store-assigned
	// timestamp. Amount must be strictly positive.
	Append(ctx context.Context, accountID int64, entryType EntryType, amount money.Money, description string) (Transaction, error)
}
