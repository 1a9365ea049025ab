/*
Package ledger provides the core money-tracking engine.

PURPOSE:
  This package contains the domain model and algorithms for tracking money
  held by child-facing accounts. Each account owns one or more wallets, and
  each wallet owns an append-only log of immutable transactions. Balances
  are never stored - they are always derived by folding the transaction log.

KEY CONCEPTS IN THIS FILE (types.go):
  - Account: A child's account, owning an ordered set of wallets
  - Wallet: A named sub-account of money, the unit of balance calculation
  - Transaction: An immutable ledger entry (deposit, withdrawal, transfer)
  - Kind: The four transaction kinds and their balance signs

DESIGN PRINCIPLES:
  1. Immutability: Transactions are never edited; they only disappear via
     cascading deletion of their owning wallet or account
  2. Derived balance: balance = fold(transactions), no mutable counter
  3. Integer money: amounts are int64 in the smallest currency unit
  4. Conservation: transfers are paired records that move value, never
     create or destroy it

SEE ALSO:
  - balance.go: Balance derivation from transactions
  - engine.go: The only writer of transactions
  - hierarchy.go: Account/Wallet ownership and cascade deletion
*/
package ledger

import (
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type AccountID string
type WalletID string
type TransactionID string

// TransferPairID links the two halves of a transfer. Exactly two
// transactions ever share a pair id: one TransferOut and one TransferIn.
type TransferPairID string

func NewAccountID() AccountID           { return AccountID(uuid.NewString()) }
func NewWalletID() WalletID             { return WalletID(uuid.NewString()) }
func NewTransactionID() TransactionID   { return TransactionID(uuid.NewString()) }
func NewTransferPairID() TransferPairID { return TransferPairID(uuid.NewString()) }

// =============================================================================
// TRANSACTION KIND
// =============================================================================

type Kind string

const (
	KindDeposit     Kind = "deposit"
	KindWithdrawal  Kind = "withdrawal"
	KindTransferIn  Kind = "transfer_in"
	KindTransferOut Kind = "transfer_out"
)

// Sign returns the contribution direction of the kind in a balance fold:
// +1 for deposits and incoming transfers, -1 for withdrawals and outgoing
// transfers.
func (k Kind) Sign() int64 {
	switch k {
	case KindDeposit, KindTransferIn:
		return 1
	case KindWithdrawal, KindTransferOut:
		return -1
	}
	return 0
}

// IsTransfer reports whether the kind is one half of a transfer pair.
func (k Kind) IsTransfer() bool {
	return k == KindTransferIn || k == KindTransferOut
}

// Valid reports whether k is one of the four known kinds.
func (k Kind) Valid() bool {
	return k.Sign() != 0
}

// =============================================================================
// ENTITIES
// =============================================================================

// Account is a child's account. It owns wallets; its balance is the sum of
// its wallets' balances.
type Account struct {
	ID        AccountID
	Name      string
	Icon      string
	CreatedAt time.Time

	// WalletIDs is the ordered set of owned wallets (creation order).
	// Ownership lives here; Wallet.AccountID is a plain back-reference.
	WalletIDs []WalletID
}

// Wallet is a named sub-account of money within an Account. It is the unit
// at which balance and transfer validation are computed.
type Wallet struct {
	ID        WalletID
	AccountID AccountID
	Name      string
	Icon      string
	CreatedAt time.Time

	// IsDefault marks the account's "parent" wallet. Exactly one wallet
	// per account carries this flag, set at creation time.
	IsDefault bool

	// TransactionIDs is the ordered set of owned transactions (insertion
	// order, which is also the tie-breaker for equal timestamps).
	TransactionIDs []TransactionID
}

// Transaction is one immutable ledger entry. Once recorded it is never
// edited; it has a single state and no transitions.
type Transaction struct {
	ID       TransactionID
	WalletID WalletID
	Kind     Kind

	// Amount is strictly positive, in the smallest currency unit.
	// The sign of its balance contribution comes from Kind, not Amount.
	Amount int64

	Memo      string
	Timestamp time.Time

	// TransferPairID is set if and only if Kind is a transfer half.
	TransferPairID TransferPairID
}

// Signed returns the transaction's contribution to its wallet's balance.
func (t Transaction) Signed() int64 {
	return t.Kind.Sign() * t.Amount
}

// =============================================================================
// BOOTSTRAP DEFAULTS
// =============================================================================
// Icon references are opaque to the engine; rendering them is a
// presentation concern.

const (
	DefaultAccountIcon = "person.circle.fill"
	DefaultWalletIcon  = "banknote"

	// Every new account starts with these two wallets: the default
	// "parent" wallet and a non-default "purse" wallet.
	ParentWalletName = "Parent"
	ParentWalletIcon = "building.columns"
	PurseWalletName  = "Purse"
	PurseWalletIcon  = "wallet.bifold"
)
