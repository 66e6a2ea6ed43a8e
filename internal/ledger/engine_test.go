package ledger_test

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nordvault/bank-backend/internal/ledger"
	"github.com/nordvault/bank-backend/internal/money"
	"github.com/nordvault/bank-backend/internal/store/memory"
)

func newEngine(t *testing.T) (*ledger.Engine, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	return ledger.NewEngine(store, nil), store
}

func openAccount(t *testing.T, e *ledger.Engine, userID uuid.UUID) ledger.Account {
	t.Helper()
	acct, err := e.OpenAccount(context.Background(), userID, ledger.Checking)
	require.NoError(t, err)
	return acct
}

func balance(t *testing.T, e *ledger.Engine, userID uuid.UUID, accountID int64) money.Money {
	t.Helper()
	accounts, err := e.Accounts(context.Background(), userID)
	require.NoError(t, err)
	for _, a := range accounts {
		if a.ID == accountID {
			return a.Balance
		}
	}
	t.Fatalf("account %d not found for user %s", accountID, userID)
	return money.Zero
}

func TestOpenAccount(t *testing.T) {
	e, _ := newEngine(t)
	userID := uuid.New()

	acct := openAccount(t, e, userID)
	assert.Len(t, acct.Number, 10)
	assert.Equal(t, ledger.Checking, acct.Kind)
	assert.True(t, acct.Balance.IsZero())

	other := openAccount(t, e, userID)
	assert.NotEqual(t, acct.Number, other.Number)
	assert.NotEqual(t, acct.ID, other.ID)
}

// collidingStore answers every NumberExists probe with "taken";
// OpenAccount never reaches the other methods before giving up.
type collidingStore struct{ ledger.Store }

func (collidingStore) NumberExists(context.Context, string) (bool, error) {
	return true, nil
}

func TestOpenAccountGivesUpWhenNumbersStayTaken(t *testing.T) {
	e := ledger.NewEngine(collidingStore{}, nil)

	_, err := e.OpenAccount(context.Background(), uuid.New(), ledger.Checking)
	require.Error(t, err)
	assert.ErrorIs(t, err, ledger.ErrNumberTaken)
	assert.NotContains(t, err.Error(), "%!w")
}

func TestOpenAccountRejectsUnknownKind(t *testing.T) {
	e, _ := newEngine(t)
	_, err := e.OpenAccount(context.Background(), uuid.New(), ledger.AccountKind("offshore"))
	assert.Error(t, err)
}

func TestDeposit(t *testing.T) {
	e, _ := newEngine(t)
	userID := uuid.New()
	acct := openAccount(t, e, userID)

	newBalance, err := e.Deposit(context.Background(), userID, acct.ID, money.MustParse("100.00"), "payday")
	require.NoError(t, err)
	assert.Equal(t, "100.00", newBalance.String())

	log, err := e.History(context.Background(), userID, acct.ID, 0)
	require.NoError(t, err)
	require.Len(t, log, 1)
	assert.Equal(t, ledger.Deposit, log[0].Type)
	assert.Equal(t, "100.00", log[0].Amount.String())
	assert.Equal(t, "payday", log[0].Description)
	assert.False(t, log[0].CreatedAt.IsZero())
}

func TestDepositRejectsNonPositiveAmount(t *testing.T) {
	e, _ := newEngine(t)
	userID := uuid.New()
	acct := openAccount(t, e, userID)

	for _, amt := range []string{"0.00", "-5.00"} {
		_, err := e.Deposit(context.Background(), userID, acct.ID, money.MustParse(amt), "")
		assert.ErrorIs(t, err, ledger.ErrInvalidAmount, "amount %s", amt)
	}

	log, err := e.History(context.Background(), userID, acct.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, log)
}

func TestDepositOwnershipMismatchLooksLikeMissing(t *testing.T) {
	e, _ := newEngine(t)
	owner := uuid.New()
	acct := openAccount(t, e, owner)

	_, err := e.Deposit(context.Background(), uuid.New(), acct.ID, money.MustParse("10.00"), "")
	assert.ErrorIs(t, err, ledger.ErrAccountNotFound)
	assert.Equal(t, "0.00", balance(t, e, owner, acct.ID).String())
}

func TestWithdraw(t *testing.T) {
	e, _ := newEngine(t)
	userID := uuid.New()
	acct := openAccount(t, e, userID)
	ctx := context.Background()

	_, err := e.Deposit(ctx, userID, acct.ID, money.MustParse("100.00"), "")
	require.NoError(t, err)

	newBalance, err := e.Withdraw(ctx, userID, acct.ID, money.MustParse("30.00"), "groceries")
	require.NoError(t, err)
	assert.Equal(t, "70.00", newBalance.String())
}

func TestWithdrawInsufficientFundsLeavesNoTrace(t *testing.T) {
	e, _ := newEngine(t)
	userID := uuid.New()
	acct := openAccount(t, e, userID)
	ctx := context.Background()

	_, err := e.Deposit(ctx, userID, acct.ID, money.MustParse("100.00"), "")
	require.NoError(t, err)

	_, err = e.Withdraw(ctx, userID, acct.ID, money.MustParse("150.00"), "")
	assert.ErrorIs(t, err, ledger.ErrInsufficientFunds)

	assert.Equal(t, "100.00", balance(t, e, userID, acct.ID).String())
	log, err := e.History(ctx, userID, acct.ID, 0)
	require.NoError(t, err)
	require.Len(t, log, 1) // only the deposit
	assert.Equal(t, ledger.Deposit, log[0].Type)
}

func TestTransfer(t *testing.T) {
	e, _ := newEngine(t)
	alice := uuid.New()
	bob := uuid.New()
	src := openAccount(t, e, alice)
	dst := openAccount(t, e, bob)
	ctx := context.Background()

	_, err := e.Deposit(ctx, alice, src.ID, money.MustParse("100.00"), "")
	require.NoError(t, err)

	newBalance, err := e.Transfer(ctx, alice, src.ID, dst.Number, money.MustParse("40.00"), "")
	require.NoError(t, err)
	assert.Equal(t, "60.00", newBalance.String())
	assert.Equal(t, "40.00", balance(t, e, bob, dst.ID).String())

	srcLog, err := e.History(ctx, alice, src.ID, 0)
	require.NoError(t, err)
	require.Len(t, srcLog, 2)
	assert.Equal(t, ledger.TransferOut, srcLog[0].Type)
	assert.Equal(t, "40.00", srcLog[0].Amount.String())
	assert.Equal(t, "Transfer to "+dst.Number, srcLog[0].Description)

	dstLog, err := e.History(ctx, bob, dst.ID, 0)
	require.NoError(t, err)
	require.Len(t, dstLog, 1)
	assert.Equal(t, ledger.TransferIn, dstLog[0].Type)
	assert.Equal(t, "40.00", dstLog[0].Amount.String())
	assert.Equal(t, "Transfer from "+src.Number, dstLog[0].Description)
}

func TestTransferFailuresLeaveStateUntouched(t *testing.T) {
	e, _ := newEngine(t)
	alice := uuid.New()
	src := openAccount(t, e, alice)
	dst := openAccount(t, e, uuid.New())
	ctx := context.Background()

	_, err := e.Deposit(ctx, alice, src.ID, money.MustParse("100.00"), "")
	require.NoError(t, err)

	_, err = e.Transfer(ctx, alice, src.ID, "0000000000", money.MustParse("40.00"), "")
	assert.ErrorIs(t, err, ledger.ErrDestinationNotFound)

	_, err = e.Transfer(ctx, alice, 9999, dst.Number, money.MustParse("40.00"), "")
	assert.ErrorIs(t, err, ledger.ErrSourceNotFound)

	_, err = e.Transfer(ctx, alice, src.ID, src.Number, money.MustParse("40.00"), "")
	assert.ErrorIs(t, err, ledger.ErrSelfTransfer)

	_, err = e.Transfer(ctx, alice, src.ID, dst.Number, money.MustParse("500.00"), "")
	assert.ErrorIs(t, err, ledger.ErrInsufficientFunds)

	assert.Equal(t, "100.00", balance(t, e, alice, src.ID).String())
	srcLog, err := e.History(ctx, alice, src.ID, 0)
	require.NoError(t, err)
	assert.Len(t, srcLog, 1) // only the funding deposit
}

func TestHistoryNewestFirst(t *testing.T) {
	e, _ := newEngine(t)
	userID := uuid.New()
	acct := openAccount(t, e, userID)
	ctx := context.Background()

	for _, amt := range []string{"10.00", "20.00", "30.00"} {
		_, err := e.Deposit(ctx, userID, acct.ID, money.MustParse(amt), "")
		require.NoError(t, err)
	}

	log, err := e.History(ctx, userID, acct.ID, 0)
	require.NoError(t, err)
	require.Len(t, log, 3)
	for i := 1; i < len(log); i++ {
		assert.False(t, log[i-1].CreatedAt.Before(log[i].CreatedAt),
			"log must be non-increasing by creation time")
	}
}

func TestConcurrentWithdrawalsExactlyOneWins(t *testing.T) {
	e, _ := newEngine(t)
	userID := uuid.New()
	acct := openAccount(t, e, userID)
	ctx := context.Background()

	_, err := e.Deposit(ctx, userID, acct.ID, money.MustParse("50.00"), "")
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = e.Withdraw(ctx, userID, acct.ID, money.MustParse("50.00"), "")
		}(i)
	}
	wg.Wait()

	var wins, losses int
	for _, err := range errs {
		if err == nil {
			wins++
		} else {
			assert.ErrorIs(t, err, ledger.ErrInsufficientFunds)
			losses++
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, 1, losses)
	assert.Equal(t, "0.00", balance(t, e, userID, acct.ID).String())
}

func TestConcurrentOpposingTransfersConserveTotal(t *testing.T) {
	e, _ := newEngine(t)
	alice := uuid.New()
	bob := uuid.New()
	a := openAccount(t, e, alice)
	b := openAccount(t, e, bob)
	ctx := context.Background()

	_, err := e.Deposit(ctx, alice, a.ID, money.MustParse("1000.00"), "")
	require.NoError(t, err)
	_, err = e.Deposit(ctx, bob, b.ID, money.MustParse("1000.00"), "")
	require.NoError(t, err)

	// Opposing transfers exercise the fixed lock order; none may
	// deadlock and the total must be conserved.
	const n = 100
	var wg sync.WaitGroup
	wg.Add(2 * n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			_, err := e.Transfer(ctx, alice, a.ID, b.Number, money.MustParse("1.00"), "")
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			_, err := e.Transfer(ctx, bob, b.ID, a.Number, money.MustParse("1.00"), "")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	balA := balance(t, e, alice, a.ID)
	balB := balance(t, e, bob, b.ID)
	assert.False(t, balA.IsNegative())
	assert.False(t, balB.IsNegative())
	assert.Equal(t, "2000.00", balA.Add(balB).String())
}

func TestConcurrentDeposits(t *testing.T) {
	e, _ := newEngine(t)
	userID := uuid.New()
	acct := openAccount(t, e, userID)
	ctx := context.Background()

	const workers = 100
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			_, err := e.Deposit(ctx, userID, acct.ID, money.MustParse("1.00"), "")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, "100.00", balance(t, e, userID, acct.ID).String())
}
