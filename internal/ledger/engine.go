package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nordvault/bank-backend/internal/money"
)

// Recorder observes committed operations. Implementations must not
// block; the engine calls it after the store acknowledged the commit.
type Recorder interface {
	RecordTransaction(entryType EntryType, amount money.Money)
}

type nopRecorder struct{}

func (nopRecorder) RecordTransaction(EntryType, money.Money) {}

// openAttempts bounds the account-number collision retry loop.
const openAttempts = 5

// Engine executes deposits, withdrawals and transfers as atomic
// units: every balance change commits together with its log entries
// or not at all.
type Engine struct {
	store Store
	rec   Recorder
}

// NewEngine wires an engine to its store. rec may be nil.
func NewEngine(store Store, rec Recorder) *Engine {
	if rec == nil {
		rec = nopRecorder{}
	}
	return &Engine{store: store, rec: rec}
}

// OpenAccount creates a zero-balance account with a fresh globally
// unique 10-digit number, retrying on the rare collision.
func (e *Engine) OpenAccount(ctx context.Context, userID uuid.UUID, kind AccountKind) (Account, error) {
	if !kind.Valid() {
		return Account{}, fmt.Errorf("unsupported account kind %q", kind)
	}

	lastErr := ErrNumberTaken
	for i := 0; i < openAttempts; i++ {
		number := newAccountNumber()
		taken, err := e.store.NumberExists(ctx, number)
		if err != nil {
			return Account{}, err
		}
		if taken {
			continue
		}
		acct, err := e.store.CreateAccount(ctx, userID, kind, number)
		if errors.Is(err, ErrNumberTaken) {
			// Lost the race against a concurrent open; draw again.
			lastErr = err
			continue
		}
		return acct, err
	}
	return Account{}, fmt.Errorf("could not allocate account number: %w", lastErr)
}

// Accounts lists the user's accounts.
func (e *Engine) Accounts(ctx context.Context, userID uuid.UUID) ([]Account, error) {
	return e.store.AccountsForUser(ctx, userID)
}

// History returns an account's transaction log, newest first, scoped
// to the owning user.
func (e *Engine) History(ctx context.Context, userID uuid.UUID, accountID int64, limit int) ([]Transaction, error) {
	acct, err := e.store.AccountForUser(ctx, accountID, userID)
	if err != nil {
		return nil, err
	}
	return e.store.Transactions(ctx, acct.ID, limit)
}

// Statement returns the account plus its log entries created in
// [from, to), for statement rendering.
func (e *Engine) Statement(ctx context.Context, userID uuid.UUID, accountID int64, from, to time.Time) (Account, []Transaction, error) {
	acct, err := e.store.AccountForUser(ctx, accountID, userID)
	if err != nil {
		return Account{}, nil, err
	}
	txns, err := e.store.TransactionsBetween(ctx, acct.ID, from, to)
	if err != nil {
		return Account{}, nil, err
	}
	return acct, txns, nil
}

// Deposit credits amount to the user's account and logs it. Returns
// the new balance.
func (e *Engine) Deposit(ctx context.Context, userID uuid.UUID, accountID int64, amount money.Money, description string) (money.Money, error) {
	if !amount.IsPositive() {
		return money.Zero, ErrInvalidAmount
	}
	if description == "" {
		description = "Deposit"
	}

	var newBalance money.Money
	err := e.store.Atomic(ctx, func(u Unit) error {
		acct, err := u.AccountForUser(ctx, accountID, userID)
		if err != nil {
			return err
		}
		if _, err := u.LockAccounts(ctx, acct.ID); err != nil {
			return err
		}
		newBalance, err = u.ApplyDelta(ctx, acct.ID, amount)
		if err != nil {
			return err
		}
		_, err = u.Append(ctx, acct.ID, Deposit, amount, description)
		return err
	})
	if err != nil {
		return money.Zero, err
	}

	e.rec.RecordTransaction(Deposit, amount)
	return newBalance, nil
}

// Withdraw debits amount from the user's account, failing with
// ErrInsufficientFunds before any mutation when the balance cannot
// cover it. Returns the new balance.
func (e *Engine) Withdraw(ctx context.Context, userID uuid.UUID, accountID int64, amount money.Money, description string) (money.Money, error) {
	if !amount.IsPositive() {
		return money.Zero, ErrInvalidAmount
	}
	if description == "" {
		description = "Withdrawal"
	}

	var newBalance money.Money
	err := e.store.Atomic(ctx, func(u Unit) error {
		acct, err := u.AccountForUser(ctx, accountID, userID)
		if err != nil {
			return err
		}
		locked, err := u.LockAccounts(ctx, acct.ID)
		if err != nil {
			return err
		}
		if locked[acct.ID].Balance.LessThan(amount) {
			return ErrInsufficientFunds
		}
		newBalance, err = u.ApplyDelta(ctx, acct.ID, amount.Neg())
		if err != nil {
			return err
		}
		_, err = u.Append(ctx, acct.ID, Withdrawal, amount, description)
		return err
	})
	if err != nil {
		return money.Zero, err
	}

	e.rec.RecordTransaction(Withdrawal, amount)
	return newBalance, nil
}

// Transfer moves amount from the user's source account to the account
// addressed by number. Both balance changes and both log entries
// commit as one unit. Returns the source's new balance.
func (e *Engine) Transfer(ctx context.Context, userID uuid.UUID, fromAccountID int64, toNumber string, amount money.Money, description string) (money.Money, error) {
	if !amount.IsPositive() {
		return money.Zero, ErrInvalidAmount
	}

	var newBalance money.Money
	err := e.store.Atomic(ctx, func(u Unit) error {
		src, err := u.AccountForUser(ctx, fromAccountID, userID)
		if err != nil {
			if errors.Is(err, ErrAccountNotFound) {
				return ErrSourceNotFound
			}
			return err
		}
		dst, err := u.AccountByNumber(ctx, toNumber)
		if err != nil {
			if errors.Is(err, ErrAccountNotFound) {
				return ErrDestinationNotFound
			}
			return err
		}
		if src.ID == dst.ID {
			return ErrSelfTransfer
		}

		// Both rows locked in ascending id order; two opposing
		// transfers can never deadlock against each other.
		locked, err := u.LockAccounts(ctx, src.ID, dst.ID)
		if err != nil {
			return err
		}
		if locked[src.ID].Balance.LessThan(amount) {
			return ErrInsufficientFunds
		}

		newBalance, err = u.ApplyDelta(ctx, src.ID, amount.Neg())
		if err != nil {
			return err
		}
		if _, err := u.ApplyDelta(ctx, dst.ID, amount); err != nil {
			return err
		}

		outDesc := description
		if outDesc == "" {
			outDesc = "Transfer to " + dst.Number
		}
		if _, err := u.Append(ctx, src.ID, TransferOut, amount, outDesc); err != nil {
			return err
		}
		_, err = u.Append(ctx, dst.ID, TransferIn, amount, "Transfer from "+src.Number)
		return err
	})
	if err != nil {
		return money.Zero, err
	}

	e.rec.RecordTransaction(TransferOut, amount)
	e.rec.RecordTransaction(TransferIn, amount)
	return newBalance, nil
}
