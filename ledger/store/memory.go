// Package store provides in-memory Repository and SelectionStore
// implementations for tests and development.
package store

import (
	"context"
	"sync"

	"github.com/bankids/ledger-engine/ledger"
)

// =============================================================================
// MEMORY REPOSITORY
// =============================================================================

// Memory implements ledger.Repository with plain maps. All writes are
// applied under one mutex, which makes every method trivially atomic.
type Memory struct {
	mu           sync.Mutex
	accounts     map[ledger.AccountID]ledger.Account
	accountOrder []ledger.AccountID
	wallets      map[ledger.WalletID]ledger.Wallet
	walletOrder  []ledger.WalletID
	transactions []ledger.Transaction // insertion order
}

func NewMemory() *Memory {
	return &Memory{
		accounts: make(map[ledger.AccountID]ledger.Account),
		wallets:  make(map[ledger.WalletID]ledger.Wallet),
	}
}

func (m *Memory) SaveAccount(_ context.Context, account ledger.Account, wallets ...ledger.Wallet) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.accounts[account.ID] = account
	m.accountOrder = append(m.accountOrder, account.ID)
	for _, w := range wallets {
		m.wallets[w.ID] = w
		m.walletOrder = append(m.walletOrder, w.ID)
	}
	return nil
}

func (m *Memory) SaveWallet(_ context.Context, wallet ledger.Wallet) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.wallets[wallet.ID] = wallet
	m.walletOrder = append(m.walletOrder, wallet.ID)
	return nil
}

func (m *Memory) Append(_ context.Context, txs []ledger.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Validate the whole batch before touching state so the write stays
	// all-or-nothing.
	for _, tx := range txs {
		if _, ok := m.wallets[tx.WalletID]; !ok {
			return &ledger.PersistError{Op: "append", Err: &ledger.NotFoundError{Entity: "wallet", ID: string(tx.WalletID)}}
		}
	}
	m.transactions = append(m.transactions, txs...)
	return nil
}

func (m *Memory) CascadeDeleteAccount(_ context.Context, id ledger.AccountID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.accounts, id)
	m.accountOrder = removeID(m.accountOrder, id)

	var orphaned []ledger.WalletID
	for _, wid := range m.walletOrder {
		if m.wallets[wid].AccountID == id {
			orphaned = append(orphaned, wid)
		}
	}
	for _, wid := range orphaned {
		m.deleteWalletLocked(wid)
	}
	return nil
}

func (m *Memory) CascadeDeleteWallet(_ context.Context, id ledger.WalletID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteWalletLocked(id)
	return nil
}

func (m *Memory) deleteWalletLocked(id ledger.WalletID) {
	delete(m.wallets, id)
	m.walletOrder = removeID(m.walletOrder, id)

	kept := m.transactions[:0]
	for _, tx := range m.transactions {
		if tx.WalletID != id {
			kept = append(kept, tx)
		}
	}
	m.transactions = kept
}

func (m *Memory) Load(_ context.Context) (ledger.Graph, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	g := ledger.Graph{
		Accounts:     make([]ledger.Account, 0, len(m.accountOrder)),
		Wallets:      make([]ledger.Wallet, 0, len(m.walletOrder)),
		Transactions: append([]ledger.Transaction(nil), m.transactions...),
	}
	for _, id := range m.accountOrder {
		g.Accounts = append(g.Accounts, m.accounts[id])
	}
	for _, id := range m.walletOrder {
		g.Wallets = append(g.Wallets, m.wallets[id])
	}
	return g, nil
}

func removeID[T comparable](ids []T, id T) []T {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}

// =============================================================================
// MEMORY SELECTION STORE
// =============================================================================

// MemorySelection implements ledger.SelectionStore without persistence.
type MemorySelection struct {
	mu  sync.Mutex
	sel ledger.Selection
}

func NewMemorySelection() *MemorySelection {
	return &MemorySelection{}
}

func (s *MemorySelection) Get(_ context.Context) (ledger.Selection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sel, nil
}

func (s *MemorySelection) Set(_ context.Context, sel ledger.Selection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sel = sel
	return nil
}
