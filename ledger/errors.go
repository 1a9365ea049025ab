/*
errors.go - Centralized error taxonomy for the ledger engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Every validation failure is detected before any write and returned as a
  typed error - never a generic fault, never a partially applied state.

ERROR CATEGORIES:
  1. Validation errors - rejected input (amount, arguments, same-wallet)
  2. Lookup errors     - unknown account/wallet/transaction ids
  3. Persistence errors - storage-layer failures, opaque to the engine

USAGE:
  Callers classify with errors.Is:

    if errors.Is(err, ledger.ErrInsufficientFunds) {
        // show the shortfall, leave the form editable
    }

SEE ALSO:
  - engine.go: Produces the validation errors
  - repository.go: The Persist contract that surfaces PersistError
*/
package ledger

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidAmount is returned when an operation's amount is not
	// strictly positive.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrInsufficientFunds is returned when a withdrawal or transfer
	// exceeds the source wallet's balance.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrSameWallet is returned when a transfer names the same wallet as
	// both source and destination.
	ErrSameWallet = errors.New("transfer source and destination are the same wallet")

	// ErrNotFound is returned when a referenced account, wallet, or
	// transaction does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidArgument is returned for malformed input, e.g. an empty
	// account name or a transfer between wallets of different accounts.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrPersist is returned when the Repository fails. The engine
	// surfaces it unchanged and never retries: retry safety depends on
	// whether the underlying write was partially applied, and that
	// guarantee belongs to the Repository.
	ErrPersist = errors.New("persist failed")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InsufficientFundsError provides details about a funds shortage.
type InsufficientFundsError struct {
	WalletID  WalletID
	Available int64
	Requested int64
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds in wallet %s: available %d, requested %d",
		e.WalletID, e.Available, e.Requested)
}

func (e *InsufficientFundsError) Unwrap() error {
	return ErrInsufficientFunds
}

// Shortfall returns how much the request exceeded the balance.
func (e *InsufficientFundsError) Shortfall() int64 {
	return e.Requested - e.Available
}

// NotFoundError identifies which entity was missing.
type NotFoundError struct {
	Entity string // "account", "wallet", "transaction"
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// PersistError wraps a storage-layer failure. The cause is opaque to the
// engine; it is carried for logging only.
type PersistError struct {
	Op  string // "save_account", "save_wallet", "append", "cascade_delete"
	Err error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("persist %s: %v", e.Op, e.Err)
}

func (e *PersistError) Unwrap() error {
	return ErrPersist
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid caller input
// and the attempted operation can be corrected and resubmitted.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrInsufficientFunds) ||
		errors.Is(err, ErrSameWallet) ||
		errors.Is(err, ErrInvalidArgument)
}

// IsNotFound returns true if the error indicates a missing entity.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func notFound(entity string, id string) error {
	return &NotFoundError{Entity: entity, ID: id}
}
