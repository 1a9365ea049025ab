/*
arena.go - In-memory entity graph keyed by id

PURPOSE:
  The Arena is the engine's working copy of the entity graph: accounts,
  wallets, and transactions in plain maps keyed by id, with Account/Wallet
  holding explicit lists of child ids. Deletion explicitly walks and
  removes child ids - there is no framework-managed cascade and no
  ownership cycle: back-references (Wallet -> Account, Transaction ->
  Wallet) are plain id lookups.

CONSISTENCY:
  Mutators are called only after the Repository write succeeded, so the
  arena always reflects committed state. Reads copy values out under a
  read lock and may run concurrently; they observe the latest committed
  snapshot.

SEE ALSO:
  - repository.go: Load produces the Graph the arena is hydrated from
  - balance.go: Reads the arena to derive balances
*/
package ledger

import (
	"fmt"
	"sync"
)

// =============================================================================
// ARENA
// =============================================================================

// Arena holds the committed entity graph in memory.
type Arena struct {
	mu           sync.RWMutex
	accounts     map[AccountID]*Account
	wallets      map[WalletID]*Wallet
	transactions map[TransactionID]*Transaction
	accountOrder []AccountID // creation order
}

func NewArena() *Arena {
	return &Arena{
		accounts:     make(map[AccountID]*Account),
		wallets:      make(map[WalletID]*Wallet),
		transactions: make(map[TransactionID]*Transaction),
	}
}

// Hydrate replaces the arena contents with a loaded graph. Child-id lists
// are rebuilt from back-references in slice order, so repositories must
// return wallets in creation order and transactions in insertion order.
func (a *Arena) Hydrate(g Graph) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.accounts = make(map[AccountID]*Account, len(g.Accounts))
	a.wallets = make(map[WalletID]*Wallet, len(g.Wallets))
	a.transactions = make(map[TransactionID]*Transaction, len(g.Transactions))
	a.accountOrder = a.accountOrder[:0]

	for _, acct := range g.Accounts {
		acct := acct
		acct.WalletIDs = nil
		a.accounts[acct.ID] = &acct
		a.accountOrder = append(a.accountOrder, acct.ID)
	}
	for _, w := range g.Wallets {
		w := w
		w.TransactionIDs = nil
		owner, ok := a.accounts[w.AccountID]
		if !ok {
			return fmt.Errorf("wallet %s references unknown account %s", w.ID, w.AccountID)
		}
		a.wallets[w.ID] = &w
		owner.WalletIDs = append(owner.WalletIDs, w.ID)
	}
	for _, tx := range g.Transactions {
		tx := tx
		owner, ok := a.wallets[tx.WalletID]
		if !ok {
			return fmt.Errorf("transaction %s references unknown wallet %s", tx.ID, tx.WalletID)
		}
		a.transactions[tx.ID] = &tx
		owner.TransactionIDs = append(owner.TransactionIDs, tx.ID)
	}
	return nil
}

// =============================================================================
// READS - Copy out under RLock
// =============================================================================

// Account returns a copy of the account, including its wallet-id list.
func (a *Arena) Account(id AccountID) (Account, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	acct, ok := a.accounts[id]
	if !ok {
		return Account{}, false
	}
	return copyAccount(acct), true
}

// Wallet returns a copy of the wallet, including its transaction-id list.
func (a *Arena) Wallet(id WalletID) (Wallet, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	w, ok := a.wallets[id]
	if !ok {
		return Wallet{}, false
	}
	return copyWallet(w), true
}

// Accounts returns all accounts in creation order.
func (a *Arena) Accounts() []Account {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]Account, 0, len(a.accountOrder))
	for _, id := range a.accountOrder {
		out = append(out, copyAccount(a.accounts[id]))
	}
	return out
}

// WalletsOf returns the account's wallets in creation order.
func (a *Arena) WalletsOf(accountID AccountID) ([]Wallet, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	acct, ok := a.accounts[accountID]
	if !ok {
		return nil, false
	}
	out := make([]Wallet, 0, len(acct.WalletIDs))
	for _, wid := range acct.WalletIDs {
		out = append(out, copyWallet(a.wallets[wid]))
	}
	return out, true
}

// TransactionsOf returns the wallet's transactions in insertion order.
func (a *Arena) TransactionsOf(walletID WalletID) ([]Transaction, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	w, ok := a.wallets[walletID]
	if !ok {
		return nil, false
	}
	out := make([]Transaction, 0, len(w.TransactionIDs))
	for _, tid := range w.TransactionIDs {
		out = append(out, *a.transactions[tid])
	}
	return out, true
}

// =============================================================================
// MUTATIONS - Called only after a successful Repository write
// =============================================================================

func (a *Arena) putAccount(acct Account, wallets ...Wallet) {
	a.mu.Lock()
	defer a.mu.Unlock()

	acct.WalletIDs = nil
	stored := acct
	a.accounts[acct.ID] = &stored
	a.accountOrder = append(a.accountOrder, acct.ID)
	for _, w := range wallets {
		a.putWalletLocked(w)
	}
}

func (a *Arena) putWallet(w Wallet) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.putWalletLocked(w)
}

func (a *Arena) putWalletLocked(w Wallet) {
	w.TransactionIDs = nil
	stored := w
	a.wallets[w.ID] = &stored
	if owner, ok := a.accounts[w.AccountID]; ok {
		owner.WalletIDs = append(owner.WalletIDs, w.ID)
	}
}

func (a *Arena) appendTransactions(txs ...Transaction) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, tx := range txs {
		stored := tx
		a.transactions[tx.ID] = &stored
		if owner, ok := a.wallets[tx.WalletID]; ok {
			owner.TransactionIDs = append(owner.TransactionIDs, tx.ID)
		}
	}
}

// removeAccount walks the account's wallets and their transactions,
// removing every descendant before the account itself.
func (a *Arena) removeAccount(id AccountID) {
	a.mu.Lock()
	defer a.mu.Unlock()

	acct, ok := a.accounts[id]
	if !ok {
		return
	}
	for _, wid := range acct.WalletIDs {
		a.removeWalletLocked(wid)
	}
	delete(a.accounts, id)
	for i, aid := range a.accountOrder {
		if aid == id {
			a.accountOrder = append(a.accountOrder[:i], a.accountOrder[i+1:]...)
			break
		}
	}
}

func (a *Arena) removeWallet(id WalletID) {
	a.mu.Lock()
	defer a.mu.Unlock()

	w, ok := a.wallets[id]
	if !ok {
		return
	}
	if owner, ok := a.accounts[w.AccountID]; ok {
		for i, wid := range owner.WalletIDs {
			if wid == id {
				owner.WalletIDs = append(owner.WalletIDs[:i], owner.WalletIDs[i+1:]...)
				break
			}
		}
	}
	a.removeWalletLocked(id)
}

func (a *Arena) removeWalletLocked(id WalletID) {
	w, ok := a.wallets[id]
	if !ok {
		return
	}
	for _, tid := range w.TransactionIDs {
		delete(a.transactions, tid)
	}
	delete(a.wallets, id)
}

// =============================================================================
// COPY HELPERS
// =============================================================================

func copyAccount(acct *Account) Account {
	out := *acct
	out.WalletIDs = append([]WalletID(nil), acct.WalletIDs...)
	return out
}

func copyWallet(w *Wallet) Wallet {
	out := *w
	out.TransactionIDs = append([]TransactionID(nil), w.TransactionIDs...)
	return out
}
