/*
Package sqlite provides the SQLite-backed Repository and SelectionStore.

PURPOSE:
  Implements durable persistence for the ledger engine: accounts, wallets,
  the append-only transaction log, and the active-selection preference.

APPEND-ONLY ENFORCEMENT:
  The transactions table is never UPDATEd and never DELETEd row by row.
  Rows only disappear through the foreign-key cascade when their owning
  wallet or account is deleted.

CASCADE DELETES:
  Foreign keys are declared ON DELETE CASCADE and enabled at connection
  time, so deleting an account removes its wallets and their transactions
  in one statement, atomically.

ATOMIC BATCHES:
  Append wraps its inserts in one SQL transaction. A transfer's two
  records either both land or neither does.

ORDERING:
  Load returns accounts and wallets ordered by creation time and
  transactions ordered by rowid, which is their insertion order - the
  tie-breaker the balance calculator relies on.

WAL MODE:
  The database is opened with WAL so readers do not block the single
  writer.

MIGRATION:
  Schema is auto-migrated on New(), the same approach the rest of the
  system assumes for a single embedded database.

SEE ALSO:
  - ledger/repository.go: The contracts implemented here
  - ledger/store/memory.go: The in-memory counterpart for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/bankids/ledger-engine/ledger"
	_ "github.com/mattn/go-sqlite3"
)

// Store implements ledger.Repository and ledger.SelectionStore.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the database at dbPath and migrates the schema.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS accounts (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		icon TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS wallets (
		id TEXT PRIMARY KEY,
		account_id TEXT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		icon TEXT NOT NULL,
		created_at TEXT NOT NULL,
		is_default INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_wallets_account
		ON wallets(account_id);

	-- Append-only ledger. No UPDATE, no row-level DELETE; rows vanish
	-- only via the wallet cascade.
	CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		wallet_id TEXT NOT NULL REFERENCES wallets(id) ON DELETE CASCADE,
		kind TEXT NOT NULL,
		amount INTEGER NOT NULL CHECK (amount > 0),
		memo TEXT NOT NULL DEFAULT '',
		ts TEXT NOT NULL,
		transfer_pair_id TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_transactions_wallet
		ON transactions(wallet_id);
	CREATE INDEX IF NOT EXISTS idx_transactions_pair
		ON transactions(transfer_pair_id) WHERE transfer_pair_id IS NOT NULL;

	-- Single-row table holding the active account/wallet preference.
	CREATE TABLE IF NOT EXISTS selection (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		account_id TEXT NOT NULL DEFAULT '',
		wallet_id TEXT NOT NULL DEFAULT ''
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// REPOSITORY
// =============================================================================

func (s *Store) SaveAccount(ctx context.Context, account ledger.Account, wallets ...ledger.Wallet) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &ledger.PersistError{Op: "save_account", Err: err}
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO accounts (id, name, icon, created_at) VALUES (?, ?, ?, ?)`,
		string(account.ID), account.Name, account.Icon, formatTime(account.CreatedAt))
	if err != nil {
		return &ledger.PersistError{Op: "save_account", Err: err}
	}
	for _, w := range wallets {
		if err := insertWallet(ctx, tx, w); err != nil {
			return &ledger.PersistError{Op: "save_account", Err: err}
		}
	}
	if err := tx.Commit(); err != nil {
		return &ledger.PersistError{Op: "save_account", Err: err}
	}
	return nil
}

func (s *Store) SaveWallet(ctx context.Context, wallet ledger.Wallet) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &ledger.PersistError{Op: "save_wallet", Err: err}
	}
	defer tx.Rollback()

	if err := insertWallet(ctx, tx, wallet); err != nil {
		return &ledger.PersistError{Op: "save_wallet", Err: err}
	}
	if err := tx.Commit(); err != nil {
		return &ledger.PersistError{Op: "save_wallet", Err: err}
	}
	return nil
}

func insertWallet(ctx context.Context, tx *sql.Tx, w ledger.Wallet) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO wallets (id, account_id, name, icon, created_at, is_default)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		string(w.ID), string(w.AccountID), w.Name, w.Icon, formatTime(w.CreatedAt), boolToInt(w.IsDefault))
	return err
}

// Append inserts the batch inside one SQL transaction: all rows or none.
func (s *Store) Append(ctx context.Context, txs []ledger.Transaction) error {
	if len(txs) == 0 {
		return nil
	}

	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &ledger.PersistError{Op: "append", Err: err}
	}
	defer dbTx.Rollback()

	stmt, err := dbTx.PrepareContext(ctx,
		`INSERT INTO transactions (id, wallet_id, kind, amount, memo, ts, transfer_pair_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return &ledger.PersistError{Op: "append", Err: err}
	}
	defer stmt.Close()

	for _, t := range txs {
		var pair any
		if t.TransferPairID != "" {
			pair = string(t.TransferPairID)
		}
		if _, err := stmt.ExecContext(ctx,
			string(t.ID), string(t.WalletID), string(t.Kind), t.Amount,
			t.Memo, formatTime(t.Timestamp), pair); err != nil {
			return &ledger.PersistError{Op: "append", Err: err}
		}
	}
	if err := dbTx.Commit(); err != nil {
		return &ledger.PersistError{Op: "append", Err: err}
	}
	return nil
}

func (s *Store) CascadeDeleteAccount(ctx context.Context, id ledger.AccountID) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM accounts WHERE id = ?`, string(id)); err != nil {
		return &ledger.PersistError{Op: "cascade_delete", Err: err}
	}
	return nil
}

func (s *Store) CascadeDeleteWallet(ctx context.Context, id ledger.WalletID) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM wallets WHERE id = ?`, string(id)); err != nil {
		return &ledger.PersistError{Op: "cascade_delete", Err: err}
	}
	return nil
}

// Load returns the full entity graph: accounts and wallets in creation
// order, transactions in insertion order.
func (s *Store) Load(ctx context.Context) (ledger.Graph, error) {
	var g ledger.Graph

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, icon, created_at FROM accounts ORDER BY created_at, rowid`)
	if err != nil {
		return ledger.Graph{}, &ledger.PersistError{Op: "load", Err: err}
	}
	defer rows.Close()
	for rows.Next() {
		var a ledger.Account
		var id, createdAt string
		if err := rows.Scan(&id, &a.Name, &a.Icon, &createdAt); err != nil {
			return ledger.Graph{}, &ledger.PersistError{Op: "load", Err: err}
		}
		a.ID = ledger.AccountID(id)
		if a.CreatedAt, err = parseTime(createdAt); err != nil {
			return ledger.Graph{}, &ledger.PersistError{Op: "load", Err: err}
		}
		g.Accounts = append(g.Accounts, a)
	}
	if err := rows.Err(); err != nil {
		return ledger.Graph{}, &ledger.PersistError{Op: "load", Err: err}
	}

	wrows, err := s.db.QueryContext(ctx,
		`SELECT id, account_id, name, icon, created_at, is_default
		 FROM wallets ORDER BY created_at, rowid`)
	if err != nil {
		return ledger.Graph{}, &ledger.PersistError{Op: "load", Err: err}
	}
	defer wrows.Close()
	for wrows.Next() {
		var w ledger.Wallet
		var id, accountID, createdAt string
		var isDefault int
		if err := wrows.Scan(&id, &accountID, &w.Name, &w.Icon, &createdAt, &isDefault); err != nil {
			return ledger.Graph{}, &ledger.PersistError{Op: "load", Err: err}
		}
		w.ID = ledger.WalletID(id)
		w.AccountID = ledger.AccountID(accountID)
		w.IsDefault = isDefault != 0
		if w.CreatedAt, err = parseTime(createdAt); err != nil {
			return ledger.Graph{}, &ledger.PersistError{Op: "load", Err: err}
		}
		g.Wallets = append(g.Wallets, w)
	}
	if err := wrows.Err(); err != nil {
		return ledger.Graph{}, &ledger.PersistError{Op: "load", Err: err}
	}

	trows, err := s.db.QueryContext(ctx,
		`SELECT id, wallet_id, kind, amount, memo, ts, transfer_pair_id
		 FROM transactions ORDER BY rowid`)
	if err != nil {
		return ledger.Graph{}, &ledger.PersistError{Op: "load", Err: err}
	}
	defer trows.Close()
	for trows.Next() {
		var t ledger.Transaction
		var id, walletID, kind, ts string
		var pair sql.NullString
		if err := trows.Scan(&id, &walletID, &kind, &t.Amount, &t.Memo, &ts, &pair); err != nil {
			return ledger.Graph{}, &ledger.PersistError{Op: "load", Err: err}
		}
		t.ID = ledger.TransactionID(id)
		t.WalletID = ledger.WalletID(walletID)
		t.Kind = ledger.Kind(kind)
		if pair.Valid {
			t.TransferPairID = ledger.TransferPairID(pair.String)
		}
		if t.Timestamp, err = parseTime(ts); err != nil {
			return ledger.Graph{}, &ledger.PersistError{Op: "load", Err: err}
		}
		g.Transactions = append(g.Transactions, t)
	}
	if err := trows.Err(); err != nil {
		return ledger.Graph{}, &ledger.PersistError{Op: "load", Err: err}
	}

	return g, nil
}

// =============================================================================
// SELECTION STORE
// =============================================================================

func (s *Store) Get(ctx context.Context) (ledger.Selection, error) {
	var accountID, walletID string
	err := s.db.QueryRowContext(ctx,
		`SELECT account_id, wallet_id FROM selection WHERE id = 1`).
		Scan(&accountID, &walletID)
	if err == sql.ErrNoRows {
		return ledger.Selection{}, nil
	}
	if err != nil {
		return ledger.Selection{}, &ledger.PersistError{Op: "selection_get", Err: err}
	}
	return ledger.Selection{
		AccountID: ledger.AccountID(accountID),
		WalletID:  ledger.WalletID(walletID),
	}, nil
}

func (s *Store) Set(ctx context.Context, sel ledger.Selection) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO selection (id, account_id, wallet_id) VALUES (1, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET account_id = excluded.account_id, wallet_id = excluded.wallet_id`,
		string(sel.AccountID), string(sel.WalletID))
	if err != nil {
		return &ledger.PersistError{Op: "selection_set", Err: err}
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
