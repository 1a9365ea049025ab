/*
engine.go - The only writer of ledger transactions

PURPOSE:
  Single entry point for all ledger mutation. Each operation validates
  against the current derived balance, then commits as one atomic unit
  against the Repository: all transactions in the unit persist, or none.

CRITICAL INVARIANTS:
  1. APPEND-ONLY: No operation ever mutates an existing transaction.
     Undo, if ever needed, is a compensating transaction.
  2. CONSERVATION: A transfer writes exactly two transactions sharing a
     fresh pair id - one TransferOut, one TransferIn, equal amount and
     memo. Only deposits and withdrawals change total system value.
  3. SERIALIZATION: Every mutation on a wallet of account A holds A's
     exclusive lock from before the balance read until after the write
     (or its rejection) completes.

WHY THE ACCOUNT LOCK?
  Evaluating the balance and then appending a withdrawal is a classic
  check-then-act race: two overlapping withdrawals (a double-tapped
  button is enough) could both pass the funds check against a stale
  balance and jointly overdraw the wallet. The lock makes check and
  append indivisible. It also serializes transfers for free, since a
  transfer's two wallets always belong to the same account.

  Reads do not take the lock; they see the latest committed snapshot and
  may trail an in-flight write by one operation.

VALIDATION ORDER:
  transfer: SameWallet -> InvalidAmount -> NotFound -> cross-account
  (InvalidArgument) -> InsufficientFunds. SameWallet is checked on the raw
  ids before anything else, so transfer(w, w, ...) fails the same way
  regardless of amount, balance, or whether w still exists.

SEE ALSO:
  - balance.go: The fold the funds check reads
  - repository.go: The atomic Append contract
*/
package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// =============================================================================
// ENGINE
// =============================================================================

// Engine validates and appends transactions for deposit, withdrawal, and
// transfer. It is safe for concurrent use.
type Engine struct {
	arena *Arena
	repo  Repository
	calc  *Calculator

	mu    sync.Mutex
	locks map[AccountID]*sync.Mutex
}

func NewEngine(arena *Arena, repo Repository) *Engine {
	return &Engine{
		arena: arena,
		repo:  repo,
		calc:  NewCalculator(arena),
		locks: make(map[AccountID]*sync.Mutex),
	}
}

// accountLock returns the exclusive lock for an account, creating it on
// first use. Locks are never removed; a deleted account's lock is inert.
func (e *Engine) accountLock(id AccountID) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()

	l, ok := e.locks[id]
	if !ok {
		l = &sync.Mutex{}
		e.locks[id] = l
	}
	return l
}

// =============================================================================
// OPERATIONS
// =============================================================================

// Deposit records one Deposit transaction on the wallet. A zero timestamp
// means "now".
func (e *Engine) Deposit(ctx context.Context, walletID WalletID, amount int64, memo string, at time.Time) (Transaction, error) {
	if amount <= 0 {
		return Transaction{}, ErrInvalidAmount
	}
	w, ok := e.arena.Wallet(walletID)
	if !ok {
		return Transaction{}, notFound("wallet", string(walletID))
	}

	lock := e.accountLock(w.AccountID)
	lock.Lock()
	defer lock.Unlock()

	tx := Transaction{
		ID:        NewTransactionID(),
		WalletID:  walletID,
		Kind:      KindDeposit,
		Amount:    amount,
		Memo:      memo,
		Timestamp: orNow(at),
	}
	if err := e.repo.Append(ctx, []Transaction{tx}); err != nil {
		return Transaction{}, err
	}
	e.arena.appendTransactions(tx)
	return tx, nil
}

// Withdraw records one Withdrawal transaction. The funds check and the
// append happen under the same account lock; on rejection no transaction
// is created and the balance is unchanged.
func (e *Engine) Withdraw(ctx context.Context, walletID WalletID, amount int64, memo string, at time.Time) (Transaction, error) {
	if amount <= 0 {
		return Transaction{}, ErrInvalidAmount
	}
	w, ok := e.arena.Wallet(walletID)
	if !ok {
		return Transaction{}, notFound("wallet", string(walletID))
	}

	lock := e.accountLock(w.AccountID)
	lock.Lock()
	defer lock.Unlock()

	balance, err := e.calc.WalletBalance(walletID)
	if err != nil {
		return Transaction{}, err
	}
	if amount > balance {
		return Transaction{}, &InsufficientFundsError{
			WalletID:  walletID,
			Available: balance,
			Requested: amount,
		}
	}

	tx := Transaction{
		ID:        NewTransactionID(),
		WalletID:  walletID,
		Kind:      KindWithdrawal,
		Amount:    amount,
		Memo:      memo,
		Timestamp: orNow(at),
	}
	if err := e.repo.Append(ctx, []Transaction{tx}); err != nil {
		return Transaction{}, err
	}
	e.arena.appendTransactions(tx)
	return tx, nil
}

// Transfer moves amount between two wallets of the same account, writing
// exactly two transactions (TransferOut on from, TransferIn on to) that
// share a newly generated pair id. The two-record write is all-or-nothing;
// on any failure zero transactions are created.
//
// An empty memo defaults to "<fromName> → <toName>".
func (e *Engine) Transfer(ctx context.Context, fromID, toID WalletID, amount int64, memo string, at time.Time) ([]Transaction, error) {
	if fromID == toID {
		return nil, ErrSameWallet
	}
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	from, ok := e.arena.Wallet(fromID)
	if !ok {
		return nil, notFound("wallet", string(fromID))
	}
	to, ok := e.arena.Wallet(toID)
	if !ok {
		return nil, notFound("wallet", string(toID))
	}
	if from.AccountID != to.AccountID {
		return nil, fmt.Errorf("%w: wallets %s and %s belong to different accounts", ErrInvalidArgument, fromID, toID)
	}

	lock := e.accountLock(from.AccountID)
	lock.Lock()
	defer lock.Unlock()

	balance, err := e.calc.WalletBalance(fromID)
	if err != nil {
		return nil, err
	}
	if amount > balance {
		return nil, &InsufficientFundsError{
			WalletID:  fromID,
			Available: balance,
			Requested: amount,
		}
	}

	if memo == "" {
		memo = fmt.Sprintf("%s → %s", from.Name, to.Name)
	}
	ts := orNow(at)
	pair := NewTransferPairID()

	txs := []Transaction{
		{
			ID:             NewTransactionID(),
			WalletID:       fromID,
			Kind:           KindTransferOut,
			Amount:         amount,
			Memo:           memo,
			Timestamp:      ts,
			TransferPairID: pair,
		},
		{
			ID:             NewTransactionID(),
			WalletID:       toID,
			Kind:           KindTransferIn,
			Amount:         amount,
			Memo:           memo,
			Timestamp:      ts,
			TransferPairID: pair,
		},
	}
	if err := e.repo.Append(ctx, txs); err != nil {
		return nil, err
	}
	e.arena.appendTransactions(txs...)
	return txs, nil
}

func orNow(at time.Time) time.Time {
	if at.IsZero() {
		return time.Now().UTC()
	}
	return at
}
