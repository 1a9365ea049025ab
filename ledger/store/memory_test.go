package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bankids/ledger-engine/ledger"
	"github.com/bankids/ledger-engine/ledger/store"
)

func seedAccount(t *testing.T, m *store.Memory, name string) (ledger.Account, ledger.Wallet, ledger.Wallet) {
	t.Helper()
	now := time.Now().UTC()
	account := ledger.Account{ID: ledger.NewAccountID(), Name: name, CreatedAt: now}
	parent := ledger.Wallet{ID: ledger.NewWalletID(), AccountID: account.ID, Name: "Parent", CreatedAt: now, IsDefault: true}
	purse := ledger.Wallet{ID: ledger.NewWalletID(), AccountID: account.ID, Name: "Purse", CreatedAt: now}
	require.NoError(t, m.SaveAccount(context.Background(), account, parent, purse))
	return account, parent, purse
}

func TestMemory_LoadPreservesOrder(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()
	first, firstParent, firstPurse := seedAccount(t, m, "Mio")
	second, _, _ := seedAccount(t, m, "Ren")

	extra := ledger.Wallet{ID: ledger.NewWalletID(), AccountID: first.ID, Name: "Savings", CreatedAt: time.Now().UTC()}
	require.NoError(t, m.SaveWallet(ctx, extra))

	g, err := m.Load(ctx)
	require.NoError(t, err)
	require.Len(t, g.Accounts, 2)
	assert.Equal(t, first.ID, g.Accounts[0].ID)
	assert.Equal(t, second.ID, g.Accounts[1].ID)
	require.Len(t, g.Wallets, 5)
	assert.Equal(t, firstParent.ID, g.Wallets[0].ID)
	assert.Equal(t, firstPurse.ID, g.Wallets[1].ID)
	assert.Equal(t, extra.ID, g.Wallets[4].ID, "SaveWallet appends after existing wallets")
}

func TestMemory_AppendIsAllOrNothing(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()
	_, parent, _ := seedAccount(t, m, "Mio")

	good := ledger.Transaction{ID: ledger.NewTransactionID(), WalletID: parent.ID, Kind: ledger.KindDeposit, Amount: 100, Timestamp: time.Now().UTC()}
	bad := ledger.Transaction{ID: ledger.NewTransactionID(), WalletID: "no-such-wallet", Kind: ledger.KindDeposit, Amount: 100, Timestamp: time.Now().UTC()}

	err := m.Append(ctx, []ledger.Transaction{good, bad})
	require.Error(t, err)
	assert.ErrorIs(t, err, ledger.ErrPersist)

	g, err := m.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, g.Transactions, "a rejected batch leaves nothing behind")
}

func TestMemory_CascadeDeleteAccount(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()
	account, parent, purse := seedAccount(t, m, "Mio")
	keep, keepParent, _ := seedAccount(t, m, "Ren")

	txs := []ledger.Transaction{
		{ID: ledger.NewTransactionID(), WalletID: parent.ID, Kind: ledger.KindDeposit, Amount: 100, Timestamp: time.Now().UTC()},
		{ID: ledger.NewTransactionID(), WalletID: purse.ID, Kind: ledger.KindDeposit, Amount: 200, Timestamp: time.Now().UTC()},
		{ID: ledger.NewTransactionID(), WalletID: keepParent.ID, Kind: ledger.KindDeposit, Amount: 300, Timestamp: time.Now().UTC()},
	}
	require.NoError(t, m.Append(ctx, txs))

	require.NoError(t, m.CascadeDeleteAccount(ctx, account.ID))

	g, err := m.Load(ctx)
	require.NoError(t, err)
	require.Len(t, g.Accounts, 1)
	assert.Equal(t, keep.ID, g.Accounts[0].ID)
	assert.Len(t, g.Wallets, 2)
	require.Len(t, g.Transactions, 1)
	assert.Equal(t, keepParent.ID, g.Transactions[0].WalletID)
}

func TestMemory_CascadeDeleteWallet(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()
	_, parent, purse := seedAccount(t, m, "Mio")

	txs := []ledger.Transaction{
		{ID: ledger.NewTransactionID(), WalletID: parent.ID, Kind: ledger.KindDeposit, Amount: 100, Timestamp: time.Now().UTC()},
		{ID: ledger.NewTransactionID(), WalletID: purse.ID, Kind: ledger.KindDeposit, Amount: 200, Timestamp: time.Now().UTC()},
	}
	require.NoError(t, m.Append(ctx, txs))

	require.NoError(t, m.CascadeDeleteWallet(ctx, purse.ID))

	g, err := m.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, g.Wallets, 1)
	require.Len(t, g.Transactions, 1)
	assert.Equal(t, parent.ID, g.Transactions[0].WalletID)
}

func TestMemorySelection_RoundTrip(t *testing.T) {
	s := store.NewMemorySelection()
	ctx := context.Background()

	sel, err := s.Get(ctx)
	require.NoError(t, err)
	assert.True(t, sel.IsZero())

	want := ledger.Selection{AccountID: "a1", WalletID: "w1"}
	require.NoError(t, s.Set(ctx, want))
	sel, err = s.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, sel)
}
