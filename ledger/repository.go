/*
repository.go - Persistence and selection contracts

PURPOSE:
  Defines the interfaces between the engine and its external collaborators:
  the Repository (durable storage with cascade-delete mechanics) and the
  SelectionStore (the user's currently active account/wallet).

ATOMICITY CONTRACT:
  Append is all-or-nothing for the whole list. A transfer writes two
  transactions through a single Append call; either both persist or
  neither does. There is no partial state observable at any point.

APPEND-ONLY CONTRACT:
  Transactions are never updated and never deleted individually. The only
  way a transaction disappears is the cascading deletion of its owning
  wallet or account.

SELECTION:
  The SelectionStore is consumed, not owned, by the core. The invariant
  that the selected wallet belongs to the selected account is enforced by
  callers; the core exposes WalletsOf so the presentation layer can
  validate and reset selection after an account switch or a deletion.

IMPLEMENTATIONS:
  - store/sqlite: durable SQLite storage (Repository + SelectionStore)
  - ledger/store: in-memory storage for tests and development

SEE ALSO:
  - arena.go: The in-memory entity graph hydrated from Load
  - hierarchy.go: The caller of the cascade-delete operations
*/
package ledger

import "context"

// =============================================================================
// REPOSITORY - Durable storage contract
// =============================================================================

// Graph is the full entity set loaded at startup. Slices are ordered by
// creation for accounts and wallets, and by insertion for transactions.
type Graph struct {
	Accounts     []Account
	Wallets      []Wallet
	Transactions []Transaction
}

// Repository persists entities and implements cascade deletion. Every
// method either fully applies or fully fails; failures are reported as
// *PersistError.
type Repository interface {
	// SaveAccount persists a new account together with its initial
	// wallets as one atomic unit.
	SaveAccount(ctx context.Context, account Account, wallets ...Wallet) error

	// SaveWallet persists a wallet added to an existing account.
	SaveWallet(ctx context.Context, wallet Wallet) error

	// Append persists transactions atomically: all of them or none.
	// This is the ONLY transaction write path. No update, no delete.
	Append(ctx context.Context, txs []Transaction) error

	// CascadeDeleteAccount removes an account, its wallets, and their
	// transactions.
	CascadeDeleteAccount(ctx context.Context, id AccountID) error

	// CascadeDeleteWallet removes a wallet and its transactions.
	CascadeDeleteWallet(ctx context.Context, id WalletID) error

	// Load returns the full entity graph at startup.
	Load(ctx context.Context) (Graph, error)
}

// =============================================================================
// SELECTION STORE - Active account/wallet preference
// =============================================================================

// Selection holds the currently active ids. Zero values mean "nothing
// selected".
type Selection struct {
	AccountID AccountID
	WalletID  WalletID
}

// IsZero reports whether nothing is selected.
func (s Selection) IsZero() bool {
	return s.AccountID == "" && s.WalletID == ""
}

// SelectionStore holds the user's active account/wallet ids. Updates are
// explicit calls made by the owner of the flow (hierarchy on deletion, the
// presentation layer otherwise) - never an implicit side effect of a
// mutation.
type SelectionStore interface {
	Get(ctx context.Context) (Selection, error)
	Set(ctx context.Context, sel Selection) error
}
