package ledger_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bankids/ledger-engine/ledger"
)

// graphArena hydrates an arena straight from a crafted graph, bypassing
// the engine, so folds can be checked against arbitrary transaction sets.
func graphArena(t *testing.T, g ledger.Graph) *ledger.Calculator {
	t.Helper()
	arena := ledger.NewArena()
	require.NoError(t, arena.Hydrate(g))
	return ledger.NewCalculator(arena)
}

func tx(walletID ledger.WalletID, kind ledger.Kind, amount int64, at time.Time) ledger.Transaction {
	return ledger.Transaction{
		ID:        ledger.NewTransactionID(),
		WalletID:  walletID,
		Kind:      kind,
		Amount:    amount,
		Timestamp: at,
	}
}

func TestWalletBalance_FoldsAllFourKinds(t *testing.T) {
	// balance = deposits + transfers in - withdrawals - transfers out

	now := time.Now().UTC()
	account := ledger.Account{ID: "a1", Name: "Mio", CreatedAt: now}
	wallet := ledger.Wallet{ID: "w1", AccountID: "a1", Name: "Parent", CreatedAt: now}
	calc := graphArena(t, ledger.Graph{
		Accounts: []ledger.Account{account},
		Wallets:  []ledger.Wallet{wallet},
		Transactions: []ledger.Transaction{
			tx("w1", ledger.KindDeposit, 1000, now),
			tx("w1", ledger.KindWithdrawal, 300, now),
			tx("w1", ledger.KindTransferIn, 50, now),
			tx("w1", ledger.KindTransferOut, 200, now),
		},
	})

	balance, err := calc.WalletBalance("w1")
	require.NoError(t, err)
	assert.Equal(t, int64(1000-300+50-200), balance)
}

func TestWalletBalance_EmptyWalletIsZero(t *testing.T) {
	now := time.Now().UTC()
	calc := graphArena(t, ledger.Graph{
		Accounts: []ledger.Account{{ID: "a1", Name: "Mio", CreatedAt: now}},
		Wallets:  []ledger.Wallet{{ID: "w1", AccountID: "a1", Name: "Parent", CreatedAt: now}},
	})

	balance, err := calc.WalletBalance("w1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance)
}

func TestWalletBalance_UnknownWallet(t *testing.T) {
	calc := graphArena(t, ledger.Graph{})

	_, err := calc.WalletBalance("missing")
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestAccountBalance_SumsWallets(t *testing.T) {
	now := time.Now().UTC()
	calc := graphArena(t, ledger.Graph{
		Accounts: []ledger.Account{{ID: "a1", Name: "Mio", CreatedAt: now}},
		Wallets: []ledger.Wallet{
			{ID: "w1", AccountID: "a1", Name: "Parent", CreatedAt: now},
			{ID: "w2", AccountID: "a1", Name: "Purse", CreatedAt: now},
		},
		Transactions: []ledger.Transaction{
			tx("w1", ledger.KindDeposit, 600, now),
			tx("w2", ledger.KindDeposit, 400, now),
			tx("w2", ledger.KindWithdrawal, 100, now),
		},
	})

	balance, err := calc.AccountBalance("a1")
	require.NoError(t, err)
	assert.Equal(t, int64(900), balance)
}

func TestAccountBalance_UnknownAccount(t *testing.T) {
	calc := graphArena(t, ledger.Graph{})

	_, err := calc.AccountBalance("missing")
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestRecentTransactions_NewestFirst(t *testing.T) {
	now := time.Now().UTC()
	oldest := tx("w1", ledger.KindDeposit, 1, now.Add(-2*time.Hour))
	middle := tx("w1", ledger.KindDeposit, 2, now.Add(-time.Hour))
	newest := tx("w1", ledger.KindDeposit, 3, now)
	calc := graphArena(t, ledger.Graph{
		Accounts: []ledger.Account{{ID: "a1", Name: "Mio", CreatedAt: now}},
		Wallets:  []ledger.Wallet{{ID: "w1", AccountID: "a1", Name: "Parent", CreatedAt: now}},
		// Deliberately out of order on insertion.
		Transactions: []ledger.Transaction{middle, newest, oldest},
	})

	txs, err := calc.RecentTransactions("w1", 0)
	require.NoError(t, err)
	require.Len(t, txs, 3)
	assert.Equal(t, newest.ID, txs[0].ID)
	assert.Equal(t, middle.ID, txs[1].ID)
	assert.Equal(t, oldest.ID, txs[2].ID)
}

func TestRecentTransactions_TiesKeepInsertionOrder(t *testing.T) {
	now := time.Now().UTC()
	first := tx("w1", ledger.KindDeposit, 1, now)
	second := tx("w1", ledger.KindDeposit, 2, now)
	third := tx("w1", ledger.KindDeposit, 3, now)
	calc := graphArena(t, ledger.Graph{
		Accounts:     []ledger.Account{{ID: "a1", Name: "Mio", CreatedAt: now}},
		Wallets:      []ledger.Wallet{{ID: "w1", AccountID: "a1", Name: "Parent", CreatedAt: now}},
		Transactions: []ledger.Transaction{first, second, third},
	})

	txs, err := calc.RecentTransactions("w1", 0)
	require.NoError(t, err)
	require.Len(t, txs, 3)
	assert.Equal(t, first.ID, txs[0].ID)
	assert.Equal(t, second.ID, txs[1].ID)
	assert.Equal(t, third.ID, txs[2].ID)
}

func TestRecentTransactions_Limit(t *testing.T) {
	now := time.Now().UTC()
	g := ledger.Graph{
		Accounts: []ledger.Account{{ID: "a1", Name: "Mio", CreatedAt: now}},
		Wallets:  []ledger.Wallet{{ID: "w1", AccountID: "a1", Name: "Parent", CreatedAt: now}},
	}
	for i := 0; i < 5; i++ {
		g.Transactions = append(g.Transactions, tx("w1", ledger.KindDeposit, int64(i+1), now.Add(time.Duration(i)*time.Minute)))
	}
	calc := graphArena(t, g)

	txs, err := calc.RecentTransactions("w1", 2)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, int64(5), txs[0].Amount)
	assert.Equal(t, int64(4), txs[1].Amount)

	// Zero and negative limits mean "everything".
	txs, err = calc.RecentTransactions("w1", 0)
	require.NoError(t, err)
	assert.Len(t, txs, 5)
	txs, err = calc.RecentTransactions("w1", -1)
	require.NoError(t, err)
	assert.Len(t, txs, 5)
}

func TestRecentTransactions_UnknownWallet(t *testing.T) {
	calc := graphArena(t, ledger.Graph{})

	_, err := calc.RecentTransactions("missing", 10)
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}
