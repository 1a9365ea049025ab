/*
handlers.go - HTTP API handlers for the ledger engine

PURPOSE:
  Exposes the ledger engine via REST. Handles HTTP request/response and
  JSON serialization, and delegates every decision to the domain layer.

ENDPOINTS:
  Accounts:
    GET    /api/accounts                    List accounts (creation order)
    POST   /api/accounts                    Create account (+ two wallets)
    GET    /api/accounts/{id}               Account with derived balance
    DELETE /api/accounts/{id}               Cascade delete
    GET    /api/accounts/{id}/balance       Derived account balance
    GET    /api/accounts/{id}/wallets       Wallets of the account
    POST   /api/accounts/{id}/wallets       Add a wallet

  Wallets:
    GET    /api/wallets/{id}/balance        Derived wallet balance
    GET    /api/wallets/{id}/transactions   Recent transactions (?limit=N)
    DELETE /api/wallets/{id}                Cascade delete
    POST   /api/wallets/{id}/deposit        Record a deposit
    POST   /api/wallets/{id}/withdraw       Record a withdrawal

  Transfers:
    POST   /api/transfers                   Record a transfer pair

  Selection:
    GET    /api/selection                   Active account/wallet
    PUT    /api/selection                   Update (validated) selection

ERROR HANDLING:
  Domain errors map to HTTP status codes:
  - 400: invalid_amount, invalid_argument
  - 404: not_found
  - 409: same_wallet
  - 422: insufficient_funds
  - 500: persistence and unexpected failures
  On any failure the ledger state is unchanged; the client may correct
  the input and resubmit.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/bankids/ledger-engine/ledger"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// =============================================================================
// HANDLER
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Hierarchy *ledger.Hierarchy
	Engine    *ledger.Engine
	Calc      *ledger.Calculator
	Selection ledger.SelectionStore
	Logger    *zap.Logger
	Metrics   *Metrics
}

// NewHandler creates a handler. Logger must be non-nil; Metrics may be nil.
func NewHandler(h *ledger.Hierarchy, e *ledger.Engine, c *ledger.Calculator, sel ledger.SelectionStore, logger *zap.Logger, metrics *Metrics) *Handler {
	return &Handler{
		Hierarchy: h,
		Engine:    e,
		Calc:      c,
		Selection: sel,
		Logger:    logger,
		Metrics:   metrics,
	}
}

// =============================================================================
// ACCOUNT HANDLERS
// =============================================================================

// ListAccounts returns all accounts with derived balances.
func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts := h.Hierarchy.Accounts()
	dtos := make([]AccountDTO, 0, len(accounts))
	for _, a := range accounts {
		balance, err := h.Calc.AccountBalance(a.ID)
		if err != nil {
			// Deleted between listing and folding; skip.
			continue
		}
		dtos = append(dtos, toAccountDTO(a, balance))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateAccount creates an account plus its two bootstrap wallets.
func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req CreateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", "bad_request")
		return
	}

	account, err := h.Hierarchy.CreateAccount(r.Context(), req.Name, req.Icon)
	h.Metrics.Observe("create_account", err)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAccountDTO(account, 0))
}

// GetAccount returns a single account with its derived balance.
func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	id := ledger.AccountID(chi.URLParam(r, "id"))

	account, err := h.Hierarchy.Account(id)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	balance, err := h.Calc.AccountBalance(id)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountDTO(account, balance))
}

// DeleteAccount cascades to wallets and transactions.
func (h *Handler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	id := ledger.AccountID(chi.URLParam(r, "id"))

	err := h.Hierarchy.DeleteAccount(r.Context(), id)
	h.Metrics.Observe("delete_account", err)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetAccountBalance returns the derived account balance.
func (h *Handler) GetAccountBalance(w http.ResponseWriter, r *http.Request) {
	id := ledger.AccountID(chi.URLParam(r, "id"))

	balance, err := h.Calc.AccountBalance(id)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, BalanceDTO{ID: string(id), Balance: balance})
}

// ListWallets returns the account's wallets with derived balances.
func (h *Handler) ListWallets(w http.ResponseWriter, r *http.Request) {
	id := ledger.AccountID(chi.URLParam(r, "id"))

	wallets, err := h.Hierarchy.WalletsOf(id)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	dtos := make([]WalletDTO, 0, len(wallets))
	for _, wallet := range wallets {
		balance, err := h.Calc.WalletBalance(wallet.ID)
		if err != nil {
			continue
		}
		dtos = append(dtos, toWalletDTO(wallet, balance))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateWallet adds a non-default wallet to the account.
func (h *Handler) CreateWallet(w http.ResponseWriter, r *http.Request) {
	id := ledger.AccountID(chi.URLParam(r, "id"))

	var req CreateWalletRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", "bad_request")
		return
	}

	wallet, err := h.Hierarchy.AddWallet(r.Context(), id, req.Name, req.Icon)
	h.Metrics.Observe("add_wallet", err)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toWalletDTO(wallet, 0))
}

// =============================================================================
// WALLET HANDLERS
// =============================================================================

// GetWalletBalance returns the derived wallet balance.
func (h *Handler) GetWalletBalance(w http.ResponseWriter, r *http.Request) {
	id := ledger.WalletID(chi.URLParam(r, "id"))

	balance, err := h.Calc.WalletBalance(id)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, BalanceDTO{ID: string(id), Balance: balance})
}

// ListWalletTransactions returns recent transactions, newest first.
func (h *Handler) ListWalletTransactions(w http.ResponseWriter, r *http.Request) {
	id := ledger.WalletID(chi.URLParam(r, "id"))

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid limit", "bad_request")
			return
		}
		limit = n
	}

	txs, err := h.Calc.RecentTransactions(id, limit)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTOs(txs))
}

// DeleteWallet cascades to the wallet's transactions.
func (h *Handler) DeleteWallet(w http.ResponseWriter, r *http.Request) {
	id := ledger.WalletID(chi.URLParam(r, "id"))

	err := h.Hierarchy.DeleteWallet(r.Context(), id)
	h.Metrics.Observe("delete_wallet", err)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Deposit records a deposit on the wallet.
func (h *Handler) Deposit(w http.ResponseWriter, r *http.Request) {
	h.money(w, r, "deposit", h.Engine.Deposit)
}

// Withdraw records a withdrawal on the wallet.
func (h *Handler) Withdraw(w http.ResponseWriter, r *http.Request) {
	h.money(w, r, "withdraw", h.Engine.Withdraw)
}

// moneyOp is the shared shape of Engine.Deposit and Engine.Withdraw.
type moneyOp func(ctx context.Context, id ledger.WalletID, amount int64, memo string, at time.Time) (ledger.Transaction, error)

func (h *Handler) money(w http.ResponseWriter, r *http.Request, op string, fn moneyOp) {
	id := ledger.WalletID(chi.URLParam(r, "id"))

	var req MoneyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", "bad_request")
		return
	}
	at, ok := parseTimestamp(w, req.Timestamp)
	if !ok {
		return
	}

	tx, err := fn(r.Context(), id, req.Amount, req.Memo, at)
	h.Metrics.Observe(op, err)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransactionDTO(tx))
}

// Transfer records a transfer pair between two wallets of one account.
func (h *Handler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", "bad_request")
		return
	}
	at, ok := parseTimestamp(w, req.Timestamp)
	if !ok {
		return
	}

	txs, err := h.Engine.Transfer(r.Context(),
		ledger.WalletID(req.FromWalletID), ledger.WalletID(req.ToWalletID),
		req.Amount, req.Memo, at)
	h.Metrics.Observe("transfer", err)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, TransferResponse{
		TransferPairID: string(txs[0].TransferPairID),
		Transactions:   toTransactionDTOs(txs),
	})
}

// =============================================================================
// SELECTION HANDLERS
// =============================================================================

// GetSelection returns the active account/wallet ids.
func (h *Handler) GetSelection(w http.ResponseWriter, r *http.Request) {
	sel, err := h.Selection.Get(r.Context())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SelectionDTO{
		AccountID: string(sel.AccountID),
		WalletID:  string(sel.WalletID),
	})
}

// SetSelection updates the active account/wallet. The selected wallet, if
// present, must belong to the selected account - that invariant is
// enforced here, on the presentation side of the SelectionStore contract.
func (h *Handler) SetSelection(w http.ResponseWriter, r *http.Request) {
	var req SelectionDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", "bad_request")
		return
	}

	sel := ledger.Selection{
		AccountID: ledger.AccountID(req.AccountID),
		WalletID:  ledger.WalletID(req.WalletID),
	}
	if !sel.IsZero() {
		wallets, err := h.Hierarchy.WalletsOf(sel.AccountID)
		if err != nil {
			h.writeDomainError(w, err)
			return
		}
		if sel.WalletID != "" && !containsWallet(wallets, sel.WalletID) {
			writeError(w, http.StatusBadRequest, "wallet does not belong to the selected account", "invalid_argument")
			return
		}
	}

	if err := h.Selection.Set(r.Context(), sel); err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SelectionDTO{
		AccountID: string(sel.AccountID),
		WalletID:  string(sel.WalletID),
	})
}

func containsWallet(wallets []ledger.Wallet, id ledger.WalletID) bool {
	for _, w := range wallets {
		if w.ID == id {
			return true
		}
	}
	return false
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg, code string) {
	writeJSON(w, status, ErrorResponse{Error: msg, Code: code})
}

// writeDomainError maps the ledger error taxonomy to HTTP.
func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledger.ErrInvalidAmount):
		writeError(w, http.StatusBadRequest, err.Error(), "invalid_amount")
	case errors.Is(err, ledger.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, err.Error(), "invalid_argument")
	case ledger.IsNotFound(err):
		writeError(w, http.StatusNotFound, err.Error(), "not_found")
	case errors.Is(err, ledger.ErrSameWallet):
		writeError(w, http.StatusConflict, err.Error(), "same_wallet")
	case errors.Is(err, ledger.ErrInsufficientFunds):
		writeError(w, http.StatusUnprocessableEntity, err.Error(), "insufficient_funds")
	default:
		h.Logger.Error("internal error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error", "internal")
	}
}

func parseTimestamp(w http.ResponseWriter, raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, true
	}
	at, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid timestamp (use RFC3339)", "bad_request")
		return time.Time{}, false
	}
	return at, true
}
