package ledger_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bankids/ledger-engine/ledger"
	"github.com/bankids/ledger-engine/ledger/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

type fixture struct {
	arena     *ledger.Arena
	repo      ledger.Repository
	engine    *ledger.Engine
	calc      *ledger.Calculator
	hierarchy *ledger.Hierarchy
	selection *store.MemorySelection
}

func newFixture() *fixture {
	return newFixtureWithRepo(store.NewMemory())
}

func newFixtureWithRepo(repo ledger.Repository) *fixture {
	arena := ledger.NewArena()
	sel := store.NewMemorySelection()
	return &fixture{
		arena:     arena,
		repo:      repo,
		engine:    ledger.NewEngine(arena, repo),
		calc:      ledger.NewCalculator(arena),
		hierarchy: ledger.NewHierarchy(arena, repo, sel),
		selection: sel,
	}
}

// newAccountWallets creates an account and returns its parent and purse
// wallets.
func (f *fixture) newAccountWallets(t *testing.T, name string) (ledger.Account, ledger.Wallet, ledger.Wallet) {
	t.Helper()
	account, err := f.hierarchy.CreateAccount(context.Background(), name, "")
	require.NoError(t, err)
	wallets, err := f.hierarchy.WalletsOf(account.ID)
	require.NoError(t, err)
	require.Len(t, wallets, 2)
	return account, wallets[0], wallets[1]
}

// totalBalance sums every wallet balance in the system.
func (f *fixture) totalBalance(t *testing.T) int64 {
	t.Helper()
	var total int64
	for _, acct := range f.hierarchy.Accounts() {
		b, err := f.calc.AccountBalance(acct.ID)
		require.NoError(t, err)
		total += b
	}
	return total
}

// failingRepo rejects every Append to exercise the all-or-nothing path.
type failingRepo struct {
	ledger.Repository
}

func (r *failingRepo) Append(ctx context.Context, txs []ledger.Transaction) error {
	return &ledger.PersistError{Op: "append", Err: errors.New("disk full")}
}

// =============================================================================
// DEPOSIT
// =============================================================================

func TestDeposit_RecordsTransaction(t *testing.T) {
	// GIVEN: A fresh wallet
	// WHEN: Depositing 1000
	// THEN: One Deposit transaction exists and the balance is 1000

	f := newFixture()
	_, parent, _ := f.newAccountWallets(t, "Mio")

	tx, err := f.engine.Deposit(context.Background(), parent.ID, 1000, "gift", time.Time{})
	require.NoError(t, err)

	assert.Equal(t, ledger.KindDeposit, tx.Kind)
	assert.Equal(t, int64(1000), tx.Amount)
	assert.Equal(t, "gift", tx.Memo)
	assert.Empty(t, tx.TransferPairID)
	assert.False(t, tx.Timestamp.IsZero(), "zero timestamp should default to now")

	balance, err := f.calc.WalletBalance(parent.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), balance)
}

func TestDeposit_InvalidAmount_Rejected(t *testing.T) {
	f := newFixture()
	_, parent, _ := f.newAccountWallets(t, "Mio")

	for _, amount := range []int64{0, -1, -500} {
		_, err := f.engine.Deposit(context.Background(), parent.ID, amount, "", time.Time{})
		assert.ErrorIs(t, err, ledger.ErrInvalidAmount, "amount %d", amount)
	}

	txs, err := f.calc.RecentTransactions(parent.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, txs, "rejected deposits must not create transactions")
}

func TestDeposit_UnknownWallet_NotFound(t *testing.T) {
	f := newFixture()

	_, err := f.engine.Deposit(context.Background(), "no-such-wallet", 100, "", time.Time{})
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

// =============================================================================
// WITHDRAW
// =============================================================================

func TestWithdraw_Succeeds(t *testing.T) {
	f := newFixture()
	_, parent, _ := f.newAccountWallets(t, "Mio")
	mustDeposit(t, f, parent.ID, 500)

	tx, err := f.engine.Withdraw(context.Background(), parent.ID, 200, "candy", time.Time{})
	require.NoError(t, err)
	assert.Equal(t, ledger.KindWithdrawal, tx.Kind)

	balance, err := f.calc.WalletBalance(parent.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(300), balance)
}

func TestWithdraw_InsufficientFunds_IdempotentRejection(t *testing.T) {
	// GIVEN: A wallet holding 400
	// WHEN: Withdrawing 700, twice
	// THEN: Both attempts fail identically and the balance never moves

	f := newFixture()
	_, parent, _ := f.newAccountWallets(t, "Mio")
	mustDeposit(t, f, parent.ID, 400)

	for i := 0; i < 2; i++ {
		_, err := f.engine.Withdraw(context.Background(), parent.ID, 700, "", time.Time{})
		require.Error(t, err)
		assert.ErrorIs(t, err, ledger.ErrInsufficientFunds)

		var fundsErr *ledger.InsufficientFundsError
		require.ErrorAs(t, err, &fundsErr)
		assert.Equal(t, int64(400), fundsErr.Available)
		assert.Equal(t, int64(700), fundsErr.Requested)
		assert.Equal(t, int64(300), fundsErr.Shortfall())

		balance, err := f.calc.WalletBalance(parent.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(400), balance)
	}
}

func TestWithdraw_ExactBalance_Allowed(t *testing.T) {
	f := newFixture()
	_, parent, _ := f.newAccountWallets(t, "Mio")
	mustDeposit(t, f, parent.ID, 250)

	_, err := f.engine.Withdraw(context.Background(), parent.ID, 250, "", time.Time{})
	require.NoError(t, err)

	balance, err := f.calc.WalletBalance(parent.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance)
}

func TestWithdraw_ConcurrentDoubleTap_NeverOverdraws(t *testing.T) {
	// GIVEN: A wallet holding 100
	// WHEN: Ten overlapping withdrawals of 30 race each other
	// THEN: Only the affordable ones commit; the balance never goes negative

	f := newFixture()
	_, parent, _ := f.newAccountWallets(t, "Mio")
	mustDeposit(t, f, parent.ID, 100)

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.engine.Withdraw(context.Background(), parent.ID, 30, "", time.Time{}); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	balance, err := f.calc.WalletBalance(parent.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(100-30*succeeded), balance)
	assert.GreaterOrEqual(t, balance, int64(0), "wallet must never be overdrawn")
	assert.Equal(t, 3, succeeded)
}

// =============================================================================
// TRANSFER
// =============================================================================

func TestTransfer_MovesValueAndConservesTotal(t *testing.T) {
	// GIVEN: Parent holds 1000, purse holds 0
	// WHEN: Transferring 400
	// THEN: Balances shift by exactly 400 and the system total is unchanged

	f := newFixture()
	_, parent, purse := f.newAccountWallets(t, "Mio")
	mustDeposit(t, f, parent.ID, 1000)
	before := f.totalBalance(t)

	_, err := f.engine.Transfer(context.Background(), parent.ID, purse.ID, 400, "", time.Time{})
	require.NoError(t, err)

	fromBalance, err := f.calc.WalletBalance(parent.ID)
	require.NoError(t, err)
	toBalance, err := f.calc.WalletBalance(purse.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(600), fromBalance)
	assert.Equal(t, int64(400), toBalance)
	assert.Equal(t, before, f.totalBalance(t), "transfers move value, never create or destroy it")
}

func TestTransfer_PairInvariants(t *testing.T) {
	f := newFixture()
	_, parent, purse := f.newAccountWallets(t, "Mio")
	mustDeposit(t, f, parent.ID, 1000)

	txs, err := f.engine.Transfer(context.Background(), parent.ID, purse.ID, 400, "allowance", time.Time{})
	require.NoError(t, err)
	require.Len(t, txs, 2)

	out, in := txs[0], txs[1]
	assert.Equal(t, ledger.KindTransferOut, out.Kind)
	assert.Equal(t, ledger.KindTransferIn, in.Kind)
	assert.Equal(t, parent.ID, out.WalletID)
	assert.Equal(t, purse.ID, in.WalletID)
	assert.NotEqual(t, out.WalletID, in.WalletID)
	assert.Equal(t, out.Amount, in.Amount)
	assert.Equal(t, out.Memo, in.Memo)
	assert.NotEmpty(t, out.TransferPairID)
	assert.Equal(t, out.TransferPairID, in.TransferPairID)
	assert.NotEqual(t, out.ID, in.ID)
}

func TestTransfer_EmptyMemo_DefaultsToWalletNames(t *testing.T) {
	f := newFixture()
	_, parent, purse := f.newAccountWallets(t, "Mio")
	mustDeposit(t, f, parent.ID, 100)

	txs, err := f.engine.Transfer(context.Background(), parent.ID, purse.ID, 50, "", time.Time{})
	require.NoError(t, err)
	assert.Equal(t, "Parent → Purse", txs[0].Memo)
	assert.Equal(t, "Parent → Purse", txs[1].Memo)
}

func TestTransfer_ExplicitMemo_Kept(t *testing.T) {
	f := newFixture()
	_, parent, purse := f.newAccountWallets(t, "Mio")
	mustDeposit(t, f, parent.ID, 100)

	txs, err := f.engine.Transfer(context.Background(), parent.ID, purse.ID, 50, "pocket money", time.Time{})
	require.NoError(t, err)
	assert.Equal(t, "pocket money", txs[0].Memo)
}

func TestTransfer_SameWallet_AlwaysRejected(t *testing.T) {
	// THEN: SameWallet wins regardless of balance or amount sign

	f := newFixture()
	_, parent, _ := f.newAccountWallets(t, "Mio")

	for _, amount := range []int64{100, 0, -5} {
		_, err := f.engine.Transfer(context.Background(), parent.ID, parent.ID, amount, "", time.Time{})
		assert.ErrorIs(t, err, ledger.ErrSameWallet, "amount %d", amount)
	}
}

func TestTransfer_InvalidAmount_Rejected(t *testing.T) {
	f := newFixture()
	_, parent, purse := f.newAccountWallets(t, "Mio")

	for _, amount := range []int64{0, -100} {
		_, err := f.engine.Transfer(context.Background(), parent.ID, purse.ID, amount, "", time.Time{})
		assert.ErrorIs(t, err, ledger.ErrInvalidAmount, "amount %d", amount)
	}
}

func TestTransfer_UnknownWallet_NotFound(t *testing.T) {
	f := newFixture()
	_, parent, _ := f.newAccountWallets(t, "Mio")

	_, err := f.engine.Transfer(context.Background(), parent.ID, "no-such-wallet", 100, "", time.Time{})
	assert.ErrorIs(t, err, ledger.ErrNotFound)

	_, err = f.engine.Transfer(context.Background(), "no-such-wallet", parent.ID, 100, "", time.Time{})
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestTransfer_CrossAccount_Rejected(t *testing.T) {
	f := newFixture()
	_, parentA, _ := f.newAccountWallets(t, "Mio")
	_, parentB, _ := f.newAccountWallets(t, "Ren")
	mustDeposit(t, f, parentA.ID, 1000)

	_, err := f.engine.Transfer(context.Background(), parentA.ID, parentB.ID, 100, "", time.Time{})
	assert.ErrorIs(t, err, ledger.ErrInvalidArgument)
}

func TestTransfer_InsufficientFunds_NoPartialPair(t *testing.T) {
	// GIVEN: Parent holds 100
	// WHEN: Transferring 500 fails the funds check
	// THEN: Zero transactions exist on either wallet

	f := newFixture()
	_, parent, purse := f.newAccountWallets(t, "Mio")
	mustDeposit(t, f, parent.ID, 100)

	_, err := f.engine.Transfer(context.Background(), parent.ID, purse.ID, 500, "", time.Time{})
	assert.ErrorIs(t, err, ledger.ErrInsufficientFunds)

	assertTxCount(t, f, parent.ID, 1) // just the deposit
	assertTxCount(t, f, purse.ID, 0)
}

func TestTransfer_PersistFailure_NothingApplied(t *testing.T) {
	// GIVEN: A repository that rejects every append
	// WHEN: A valid transfer fails to persist
	// THEN: The engine surfaces the persistence error and the ledger view
	//       contains no half-written pair

	inner := store.NewMemory()
	f := newFixtureWithRepo(inner)
	_, parent, purse := f.newAccountWallets(t, "Mio")
	mustDeposit(t, f, parent.ID, 1000)

	// Same arena, broken persistence underneath.
	broken := ledger.NewEngine(f.arena, &failingRepo{Repository: inner})

	_, err := broken.Transfer(context.Background(), parent.ID, purse.ID, 400, "", time.Time{})
	assert.ErrorIs(t, err, ledger.ErrPersist)

	assertTxCount(t, f, parent.ID, 1)
	assertTxCount(t, f, purse.ID, 0)
	balance, err := f.calc.WalletBalance(parent.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), balance)
}

// =============================================================================
// END-TO-END SCENARIO
// =============================================================================

func TestScenario_DepositTransferWithdraw(t *testing.T) {
	// The canonical flow: gift, split into the purse, overdraw rejected.

	f := newFixture()
	account, parent, purse := f.newAccountWallets(t, "Mio")
	ctx := context.Background()

	_, err := f.engine.Deposit(ctx, parent.ID, 1000, "gift", time.Time{})
	require.NoError(t, err)
	balance, err := f.calc.WalletBalance(parent.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1000), balance)

	txs, err := f.engine.Transfer(ctx, parent.ID, purse.ID, 400, "", time.Time{})
	require.NoError(t, err)

	fromBalance, _ := f.calc.WalletBalance(parent.ID)
	toBalance, _ := f.calc.WalletBalance(purse.ID)
	assert.Equal(t, int64(600), fromBalance)
	assert.Equal(t, int64(400), toBalance)
	assert.Equal(t, txs[0].TransferPairID, txs[1].TransferPairID)

	_, err = f.engine.Withdraw(ctx, purse.ID, 700, "", time.Time{})
	assert.ErrorIs(t, err, ledger.ErrInsufficientFunds)
	toBalance, _ = f.calc.WalletBalance(purse.ID)
	assert.Equal(t, int64(400), toBalance)

	accountBalance, err := f.calc.AccountBalance(account.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), accountBalance)
}

// =============================================================================
// HELPERS
// =============================================================================

func mustDeposit(t *testing.T, f *fixture, id ledger.WalletID, amount int64) {
	t.Helper()
	_, err := f.engine.Deposit(context.Background(), id, amount, "", time.Time{})
	require.NoError(t, err)
}

func assertTxCount(t *testing.T, f *fixture, id ledger.WalletID, want int) {
	t.Helper()
	txs, err := f.calc.RecentTransactions(id, 0)
	require.NoError(t, err)
	assert.Len(t, txs, want)
}
