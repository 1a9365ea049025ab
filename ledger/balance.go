/*
balance.go - Balance derivation from the transaction log

PURPOSE:
  Computes wallet and account balances by folding transactions. This is
  the single source of truth for "how much money is here":

    balance = sum(deposit) + sum(transfer_in)
            - sum(withdrawal) - sum(transfer_out)

NO CACHING:
  Every call recomputes from the current transaction set. The derived
  value can never be stale or drift from the log, at the cost of an O(n)
  fold per read. For the wallet sizes this system sees, the fold stays
  cheaper than proving a memoized counter equal to it.

SEE ALSO:
  - engine.go: Runs the fold inside the account lock for funds checks
  - types.go: Transaction.Signed defines each kind's contribution
*/
package ledger

import "sort"

// =============================================================================
// CALCULATOR
// =============================================================================

// Calculator derives balances from the committed transaction set. It holds
// no mutable state of its own; reads may run concurrently with each other
// and with writers, observing the latest committed snapshot.
type Calculator struct {
	arena *Arena
}

func NewCalculator(arena *Arena) *Calculator {
	return &Calculator{arena: arena}
}

// WalletBalance folds the wallet's transactions into its balance.
func (c *Calculator) WalletBalance(id WalletID) (int64, error) {
	txs, ok := c.arena.TransactionsOf(id)
	if !ok {
		return 0, notFound("wallet", string(id))
	}
	var balance int64
	for _, tx := range txs {
		balance += tx.Signed()
	}
	return balance, nil
}

// AccountBalance sums WalletBalance over the account's wallets.
func (c *Calculator) AccountBalance(id AccountID) (int64, error) {
	wallets, ok := c.arena.WalletsOf(id)
	if !ok {
		return 0, notFound("account", string(id))
	}
	var balance int64
	for _, w := range wallets {
		b, err := c.WalletBalance(w.ID)
		if err != nil {
			return 0, err
		}
		balance += b
	}
	return balance, nil
}

// RecentTransactions returns the wallet's transactions ordered by
// timestamp descending, ties broken by insertion order. The result is a
// fresh copy, truncated to limit; limit <= 0 means no truncation.
func (c *Calculator) RecentTransactions(id WalletID, limit int) ([]Transaction, error) {
	txs, ok := c.arena.TransactionsOf(id)
	if !ok {
		return nil, notFound("wallet", string(id))
	}

	// txs arrives in insertion order; a stable sort keeps that order
	// among equal timestamps.
	sort.SliceStable(txs, func(i, j int) bool {
		return txs[i].Timestamp.After(txs[j].Timestamp)
	})

	if limit > 0 && len(txs) > limit {
		txs = txs[:limit]
	}
	return txs, nil
}
