// Package ledger implements the core of the bank: the account
// registry, the append-only transaction log, and the engine that
// moves money between them as atomic units.
package ledger

import (
	"time"

	"github.com/google/uuid"

	"github.com/nordvault/bank-backend/internal/money"
)

// AccountKind distinguishes the two supported account products.
type AccountKind string

const (
	Checking AccountKind = "checking"
	Savings  AccountKind = "savings"
)

// Valid reports whether k is one of the supported kinds.
func (k AccountKind) Valid() bool {
	return k == Checking || k == Savings
}

// EntryType encodes the direction and origin of a log entry. Amounts
// are always positive; direction lives here, never in the sign.
type EntryType string

const (
	Deposit     EntryType = "deposit"
	Withdrawal  EntryType = "withdrawal"
	TransferOut EntryType = "transfer_out"
	TransferIn  EntryType = "transfer_in"
)

// Account is a single balance owned by one user. Balance is only ever
// mutated through an Engine operation and never goes negative in a
// committed state.
type Account struct {
	ID        int64       `json:"id"`
	UserID    uuid.UUID   `json:"-"`
	Number    string      `json:"account_number"`
	Kind      AccountKind `json:"account_type"`
	Balance   money.Money `json:"balance"`
	CreatedAt time.Time   `json:"created_at"`
}

// Transaction is one immutable entry in an account's audit trail.
type Transaction struct {
	ID          int64       `json:"id"`
	AccountID   int64       `json:"-"`
	Type        EntryType   `json:"type"`
	Amount      money.Money `json:"amount"`
	Description string      `json:"description"`
	CreatedAt   time.Time   `json:"date"`
}
