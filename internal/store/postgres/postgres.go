// Package postgres implements ledger.Store on top of pgx. Balance
// mutation happens inside a single database transaction with row
// locks taken in ascending account id order, and a guarded UPDATE
// that refuses to drive a balance negative.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nordvault/bank-backend/internal/ledger"
	"github.com/nordvault/bank-backend/internal/money"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
	statementLimit   = 2000

	// unitTimeout bounds every atomic unit; a timed-out unit is
	// rolled back and reported as ErrStoreUnavailable.
	unitTimeout = 5 * time.Second
)

var _ ledger.Store = (*Store)(nil)

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Connect opens a pgx pool and verifies the connection.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("creating pgx pool: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return pool, nil
}

// unavailable wraps infrastructure failures so callers can branch on
// ledger.ErrStoreUnavailable without seeing driver details.
func unavailable(err error) error {
	return fmt.Errorf("%w: %v", ledger.ErrStoreUnavailable, err)
}

const accountColumns = `id, user_id, account_number, account_type, balance::text, created_at`

type pgxRow interface {
	Scan(dest ...any) error
}

func scanAccount(row pgxRow) (ledger.Account, error) {
	var (
		a       ledger.Account
		balance string
	)
	if err := row.Scan(&a.ID, &a.UserID, &a.Number, &a.Kind, &balance, &a.CreatedAt); err != nil {
		return ledger.Account{}, err
	}
	bal, err := money.Parse(balance)
	if err != nil {
		return ledger.Account{}, err
	}
	a.Balance = bal
	return a, nil
}

func (s *Store) CreateAccount(ctx context.Context, userID uuid.UUID, kind ledger.AccountKind, number string) (ledger.Account, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO accounts (user_id, account_number, account_type, balance)
		VALUES ($1, $2, $3, 0)
		RETURNING `+accountColumns,
		userID, number, kind)

	acct, err := scanAccount(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ledger.Account{}, ledger.ErrNumberTaken
		}
		return ledger.Account{}, unavailable(err)
	}
	return acct, nil
}

func (s *Store) NumberExists(ctx context.Context, number string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM accounts WHERE account_number = $1)`,
		number).Scan(&exists)
	if err != nil {
		return false, unavailable(err)
	}
	return exists, nil
}

func (s *Store) AccountForUser(ctx context.Context, accountID int64, userID uuid.UUID) (ledger.Account, error) {
	return accountForUser(ctx, s.pool, accountID, userID)
}

func (s *Store) AccountsForUser(ctx context.Context, userID uuid.UUID) ([]ledger.Account, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE user_id = $1
		ORDER BY id`,
		userID)
	if err != nil {
		return nil, unavailable(err)
	}
	defer rows.Close()

	var out []ledger.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, unavailable(err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable(err)
	}
	return out, nil
}

const transactionColumns = `id, account_id, type, amount::text, COALESCE(description, ''), created_at`

func scanTransaction(row pgxRow) (ledger.Transaction, error) {
	var (
		t      ledger.Transaction
		amount string
	)
	if err := row.Scan(&t.ID, &t.AccountID, &t.Type, &amount, &t.Description, &t.CreatedAt); err != nil {
		return ledger.Transaction{}, err
	}
	amt, err := money.Parse(amount)
	if err != nil {
		return ledger.Transaction{}, err
	}
	t.Amount = amt
	return t, nil
}

func (s *Store) Transactions(ctx context.Context, accountID int64, limit int) ([]ledger.Transaction, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	rows, err := s.pool.Query(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE account_id = $1
		ORDER BY created_at DESC, id ASC
		LIMIT $2`,
		accountID, limit)
	if err != nil {
		return nil, unavailable(err)
	}
	defer rows.Close()
	return collectTransactions(rows)
}

func (s *Store) TransactionsBetween(ctx context.Context, accountID int64, from, to time.Time) ([]ledger.Transaction, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE account_id = $1 AND created_at >= $2 AND created_at < $3
		ORDER BY created_at DESC, id ASC
		LIMIT $4`,
		accountID, from, to, statementLimit)
	if err != nil {
		return nil, unavailable(err)
	}
	defer rows.Close()
	return collectTransactions(rows)
}

func collectTransactions(rows pgx.Rows) ([]ledger.Transaction, error) {
	var out []ledger.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, unavailable(err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable(err)
	}
	return out, nil
}

// Atomic runs fn inside one database transaction bounded by
// unitTimeout. Any error from fn rolls the whole unit back.
func (s *Store) Atomic(ctx context.Context, fn func(ledger.Unit) error) error {
	ctx, cancel := context.WithTimeout(ctx, unitTimeout)
	defer cancel()

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return unavailable(err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&unit{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return unavailable(err)
	}
	return nil
}

type unit struct {
	tx pgx.Tx
}

func accountForUser(ctx context.Context, q interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}, accountID int64, userID uuid.UUID) (ledger.Account, error) {
	row := q.QueryRow(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE id = $1 AND user_id = $2`,
		accountID, userID)
	acct, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.Account{}, ledger.ErrAccountNotFound
	}
	if err != nil {
		return ledger.Account{}, unavailable(err)
	}
	return acct, nil
}

func (u *unit) AccountForUser(ctx context.Context, accountID int64, userID uuid.UUID) (ledger.Account, error) {
	return accountForUser(ctx, u.tx, accountID, userID)
}

func (u *unit) AccountByNumber(ctx context.Context, number string) (ledger.Account, error) {
	row := u.tx.QueryRow(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE account_number = $1`,
		number)
	acct, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.Account{}, ledger.ErrAccountNotFound
	}
	if err != nil {
		return ledger.Account{}, unavailable(err)
	}
	return acct, nil
}

// LockAccounts takes FOR UPDATE row locks ordered by id, so any two
// units lock overlapping account sets in the same global order.
func (u *unit) LockAccounts(ctx context.Context, ids ...int64) (map[int64]ledger.Account, error) {
	rows, err := u.tx.Query(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE id = ANY($1)
		ORDER BY id
		FOR UPDATE`,
		ids)
	if err != nil {
		return nil, unavailable(err)
	}
	defer rows.Close()

	out := make(map[int64]ledger.Account, len(ids))
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, unavailable(err)
		}
		out[a.ID] = a
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable(err)
	}
	for _, id := range ids {
		if _, ok := out[id]; !ok {
			return nil, ledger.ErrAccountNotFound
		}
	}
	return out, nil
}

// ApplyDelta is the atomic compare-and-mutate: the WHERE clause
// refuses any update that would leave the balance negative.
func (u *unit) ApplyDelta(ctx context.Context, accountID int64, delta money.Money) (money.Money, error) {
	var balance string
	err := u.tx.QueryRow(ctx, `
		UPDATE accounts
		SET balance = balance + $1::numeric
		WHERE id = $2 AND balance + $1::numeric >= 0
		RETURNING balance::text`,
		delta.String(), accountID).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		// The row is locked and known to exist, so the guard failed.
		return money.Zero, ledger.ErrInsufficientFunds
	}
	if err != nil {
		return money.Zero, unavailable(err)
	}
	newBalance, err := money.Parse(balance)
	if err != nil {
		return money.Zero, unavailable(err)
	}
	return newBalance, nil
}

// Append stamps the entry with clock_timestamp() rather than the
// transaction-start now(): the account's row lock serializes writers,
// so wall-clock stamps at insert keep the per-account log
// non-decreasing even when a unit that began earlier commits later.
func (u *unit) Append(ctx context.Context, accountID int64, entryType ledger.EntryType, amount money.Money, description string) (ledger.Transaction, error) {
	row := u.tx.QueryRow(ctx, `
		INSERT INTO transactions (account_id, type, amount, description, created_at)
		VALUES ($1, $2, $3::numeric, NULLIF($4, ''), clock_timestamp())
		RETURNING `+transactionColumns,
		accountID, entryType, amount.String(), description)
	t, err := scanTransaction(row)
	if err != nil {
		return ledger.Transaction{}, unavailable(err)
	}
	return t, nil
}
