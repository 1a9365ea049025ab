/*
hierarchy.go - Account/Wallet ownership and cascade deletion

PURPOSE:
  Manages the Account -> Wallet tree: account creation with its two
  bootstrap wallets, adding wallets, and cascading deletion. Deletion is
  terminal and irreversible from the engine's perspective; accounts and
  wallets have no other states.

BOOTSTRAP:
  Every new account starts with a default "parent" wallet (IsDefault =
  true) and a non-default "purse" wallet, created in the same atomic
  persistence unit as the account.

SELECTION SIDE EFFECT:
  When a deleted entity was the active selection, the SelectionStore is
  told to clear or reassign it with an explicit call - never an implicit
  notification. The replacement is the oldest remaining account and its
  oldest wallet.

SEE ALSO:
  - arena.go: The explicit cascade walk
  - repository.go: SaveAccount atomicity and the SelectionStore contract
*/
package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// =============================================================================
// HIERARCHY
// =============================================================================

// Hierarchy manages accounts and wallets. The SelectionStore may be nil
// when no selection tracking is wanted (e.g. in tests).
type Hierarchy struct {
	arena     *Arena
	repo      Repository
	selection SelectionStore
}

func NewHierarchy(arena *Arena, repo Repository, selection SelectionStore) *Hierarchy {
	return &Hierarchy{arena: arena, repo: repo, selection: selection}
}

// =============================================================================
// CREATION
// =============================================================================

// CreateAccount creates an account plus its two bootstrap wallets and
// selects the new account with its parent wallet. An empty icon falls
// back to the default.
func (h *Hierarchy) CreateAccount(ctx context.Context, name, icon string) (Account, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Account{}, fmt.Errorf("%w: account name is empty", ErrInvalidArgument)
	}
	if icon == "" {
		icon = DefaultAccountIcon
	}

	now := time.Now().UTC()
	account := Account{
		ID:        NewAccountID(),
		Name:      name,
		Icon:      icon,
		CreatedAt: now,
	}
	parent := Wallet{
		ID:        NewWalletID(),
		AccountID: account.ID,
		Name:      ParentWalletName,
		Icon:      ParentWalletIcon,
		CreatedAt: now,
		IsDefault: true,
	}
	purse := Wallet{
		ID:        NewWalletID(),
		AccountID: account.ID,
		Name:      PurseWalletName,
		Icon:      PurseWalletIcon,
		CreatedAt: now,
	}

	if err := h.repo.SaveAccount(ctx, account, parent, purse); err != nil {
		return Account{}, err
	}
	h.arena.putAccount(account, parent, purse)

	if h.selection != nil {
		if err := h.selection.Set(ctx, Selection{AccountID: account.ID, WalletID: parent.ID}); err != nil {
			// The account exists; only the preference write failed.
			return h.mustAccount(account.ID), fmt.Errorf("account created, selection update failed: %w", err)
		}
	}
	return h.mustAccount(account.ID), nil
}

// AddWallet appends a non-default wallet to an existing account.
func (h *Hierarchy) AddWallet(ctx context.Context, accountID AccountID, name, icon string) (Wallet, error) {
	if _, ok := h.arena.Account(accountID); !ok {
		return Wallet{}, notFound("account", string(accountID))
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return Wallet{}, fmt.Errorf("%w: wallet name is empty", ErrInvalidArgument)
	}
	if icon == "" {
		icon = DefaultWalletIcon
	}

	wallet := Wallet{
		ID:        NewWalletID(),
		AccountID: accountID,
		Name:      name,
		Icon:      icon,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.repo.SaveWallet(ctx, wallet); err != nil {
		return Wallet{}, err
	}
	h.arena.putWallet(wallet)
	return wallet, nil
}

// =============================================================================
// DELETION
// =============================================================================

// DeleteAccount cascades to all owned wallets and their transactions. If
// the account was selected, selection moves to the oldest remaining
// account (or clears when none remain).
func (h *Hierarchy) DeleteAccount(ctx context.Context, id AccountID) error {
	if _, ok := h.arena.Account(id); !ok {
		return notFound("account", string(id))
	}
	if err := h.repo.CascadeDeleteAccount(ctx, id); err != nil {
		return err
	}
	h.arena.removeAccount(id)

	if h.selection == nil {
		return nil
	}
	sel, err := h.selection.Get(ctx)
	if err != nil {
		return err
	}
	if sel.AccountID != id {
		return nil
	}
	return h.selection.Set(ctx, h.firstSelection())
}

// DeleteWallet cascades to the wallet's transactions. If the wallet was
// selected, selection moves to the account's oldest remaining wallet.
func (h *Hierarchy) DeleteWallet(ctx context.Context, id WalletID) error {
	w, ok := h.arena.Wallet(id)
	if !ok {
		return notFound("wallet", string(id))
	}
	if err := h.repo.CascadeDeleteWallet(ctx, id); err != nil {
		return err
	}
	h.arena.removeWallet(id)

	if h.selection == nil {
		return nil
	}
	sel, err := h.selection.Get(ctx)
	if err != nil {
		return err
	}
	if sel.WalletID != id {
		return nil
	}
	sel.WalletID = ""
	if wallets, ok := h.arena.WalletsOf(w.AccountID); ok && len(wallets) > 0 {
		sel.WalletID = wallets[0].ID
	}
	return h.selection.Set(ctx, sel)
}

// =============================================================================
// READS AND SELECTION REPAIR
// =============================================================================

// Accounts returns all accounts in creation order.
func (h *Hierarchy) Accounts() []Account {
	return h.arena.Accounts()
}

// Account returns a single account.
func (h *Hierarchy) Account(id AccountID) (Account, error) {
	acct, ok := h.arena.Account(id)
	if !ok {
		return Account{}, notFound("account", string(id))
	}
	return acct, nil
}

// WalletsOf returns the account's wallets in creation order. The
// presentation layer uses this to validate and reset selection after an
// account switch or a wallet deletion.
func (h *Hierarchy) WalletsOf(accountID AccountID) ([]Wallet, error) {
	wallets, ok := h.arena.WalletsOf(accountID)
	if !ok {
		return nil, notFound("account", string(accountID))
	}
	return wallets, nil
}

// Wallet returns a single wallet.
func (h *Hierarchy) Wallet(id WalletID) (Wallet, error) {
	w, ok := h.arena.Wallet(id)
	if !ok {
		return Wallet{}, notFound("wallet", string(id))
	}
	return w, nil
}

// ResetSelection is the explicit repair step run at startup and after an
// account switch: it selects the first account when none is selected and
// replaces a wallet selection that no longer belongs to the selected
// account.
func (h *Hierarchy) ResetSelection(ctx context.Context) (Selection, error) {
	if h.selection == nil {
		return Selection{}, nil
	}
	sel, err := h.selection.Get(ctx)
	if err != nil {
		return Selection{}, err
	}

	if _, ok := h.arena.Account(sel.AccountID); !ok {
		sel = h.firstSelection()
	} else if !h.walletBelongs(sel.AccountID, sel.WalletID) {
		sel.WalletID = ""
		if wallets, ok := h.arena.WalletsOf(sel.AccountID); ok && len(wallets) > 0 {
			sel.WalletID = wallets[0].ID
		}
	}

	if err := h.selection.Set(ctx, sel); err != nil {
		return Selection{}, err
	}
	return sel, nil
}

func (h *Hierarchy) walletBelongs(accountID AccountID, walletID WalletID) bool {
	if walletID == "" {
		return false
	}
	w, ok := h.arena.Wallet(walletID)
	return ok && w.AccountID == accountID
}

// firstSelection picks the oldest account and its oldest wallet, or an
// empty selection when no accounts remain.
func (h *Hierarchy) firstSelection() Selection {
	accounts := h.arena.Accounts()
	if len(accounts) == 0 {
		return Selection{}
	}
	sel := Selection{AccountID: accounts[0].ID}
	if wallets, ok := h.arena.WalletsOf(accounts[0].ID); ok && len(wallets) > 0 {
		sel.WalletID = wallets[0].ID
	}
	return sel
}

func (h *Hierarchy) mustAccount(id AccountID) Account {
	acct, _ := h.arena.Account(id)
	return acct
}
