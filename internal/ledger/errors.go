package ledger

import "errors"

var (
	// ErrInvalidAmount rejects non-positive or unparseable amounts.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrAccountNotFound covers both a missing account and an
	// ownership mismatch; callers cannot tell the two apart.
	ErrAccountNotFound = errors.New("account not found")

	// ErrSourceNotFound and ErrDestinationNotFound are the transfer
	// flavors of the lookup miss.
	ErrSourceNotFound      = errors.New("source account not found")
	ErrDestinationNotFound = errors.New("destination account not found")

	// ErrInsufficientFunds means the operation would drive the
	// balance negative. Lost races on the balance check surface as
	// this error too.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrSelfTransfer rejects a transfer whose source and destination
	// resolve to the same account.
	ErrSelfTransfer = errors.New("cannot transfer to the same account")

	// ErrStoreUnavailable wraps store failures and timeouts. The unit
	// that hit it was rolled back unless the store had already
	// acknowledged the commit.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrNumberTaken reports an account-number collision; OpenAccount
	// retries with a fresh number.
	ErrNumberTaken = errors.New("account number already in use")
)
