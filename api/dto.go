/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication, decoupling the
  internal domain model from the external contract. Amounts are int64 in
  the smallest currency unit; display formatting belongs to the client.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/bankids/ledger-engine/ledger"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// AccountDTO represents an account in API responses.
type AccountDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Icon      string `json:"icon"`
	CreatedAt string `json:"created_at"`
	Balance   int64  `json:"balance"`
}

// WalletDTO represents a wallet in API responses.
type WalletDTO struct {
	ID        string `json:"id"`
	AccountID string `json:"account_id"`
	Name      string `json:"name"`
	Icon      string `json:"icon"`
	CreatedAt string `json:"created_at"`
	IsDefault bool   `json:"is_default"`
	Balance   int64  `json:"balance"`
}

// TransactionDTO represents a ledger transaction.
type TransactionDTO struct {
	ID             string `json:"id"`
	WalletID       string `json:"wallet_id"`
	Kind           string `json:"kind"`
	Amount         int64  `json:"amount"`
	Memo           string `json:"memo,omitempty"`
	Timestamp      string `json:"timestamp"`
	TransferPairID string `json:"transfer_pair_id,omitempty"`
}

// BalanceDTO is the response for balance queries.
type BalanceDTO struct {
	ID      string `json:"id"`
	Balance int64  `json:"balance"`
}

// SelectionDTO mirrors the active account/wallet preference.
type SelectionDTO struct {
	AccountID string `json:"account_id,omitempty"`
	WalletID  string `json:"wallet_id,omitempty"`
}

// CreateAccountRequest is the request to create an account.
type CreateAccountRequest struct {
	Name string `json:"name"`
	Icon string `json:"icon,omitempty"`
}

// CreateWalletRequest is the request to add a wallet to an account.
type CreateWalletRequest struct {
	Name string `json:"name"`
	Icon string `json:"icon,omitempty"`
}

// MoneyRequest is the request body for deposits and withdrawals.
// Timestamp is optional RFC3339; empty means "now".
type MoneyRequest struct {
	Amount    int64  `json:"amount"`
	Memo      string `json:"memo,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

// TransferRequest moves money between two wallets of one account.
type TransferRequest struct {
	FromWalletID string `json:"from_wallet_id"`
	ToWalletID   string `json:"to_wallet_id"`
	Amount       int64  `json:"amount"`
	Memo         string `json:"memo,omitempty"`
	Timestamp    string `json:"timestamp,omitempty"`
}

// TransferResponse returns the two halves of the recorded pair.
type TransferResponse struct {
	TransferPairID string           `json:"transfer_pair_id"`
	Transactions   []TransactionDTO `json:"transactions"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toAccountDTO(a ledger.Account, balance int64) AccountDTO {
	return AccountDTO{
		ID:        string(a.ID),
		Name:      a.Name,
		Icon:      a.Icon,
		CreatedAt: a.CreatedAt.Format(time.RFC3339),
		Balance:   balance,
	}
}

func toWalletDTO(w ledger.Wallet, balance int64) WalletDTO {
	return WalletDTO{
		ID:        string(w.ID),
		AccountID: string(w.AccountID),
		Name:      w.Name,
		Icon:      w.Icon,
		CreatedAt: w.CreatedAt.Format(time.RFC3339),
		IsDefault: w.IsDefault,
		Balance:   balance,
	}
}

func toTransactionDTO(tx ledger.Transaction) TransactionDTO {
	return TransactionDTO{
		ID:             string(tx.ID),
		WalletID:       string(tx.WalletID),
		Kind:           string(tx.Kind),
		Amount:         tx.Amount,
		Memo:           tx.Memo,
		Timestamp:      tx.Timestamp.Format(time.RFC3339Nano),
		TransferPairID: string(tx.TransferPairID),
	}
}

func toTransactionDTOs(txs []ledger.Transaction) []TransactionDTO {
	dtos := make([]TransactionDTO, len(txs))
	for i, tx := range txs {
		dtos[i] = toTransactionDTO(tx)
	}
	return dtos
}
