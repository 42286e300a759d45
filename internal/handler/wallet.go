package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/cleanCodeCultureSRL/returo-mca/internal/apperror"
	"github.com/cleanCodeCultureSRL/returo-mca/internal/auth"
	"github.com/cleanCodeCultureSRL/returo-mca/internal/model"
	"github.com/cleanCodeCultureSRL/returo-mca/internal/service"
)

// WalletHandler exposes the wallet endpoints. Every route sits behind the
// auth middleware, so the user ID always comes from the request context —
// never from the body, which would let one user mutate another's wallet.
type WalletHandler struct {
	wallet *service.WalletService
	logger *slog.Logger
}

// NewWalletHandler creates a WalletHandler.
func NewWalletHandler(wallet *service.WalletService, logger *slog.Logger) *WalletHandler {
	return &WalletHandler{wallet: wallet, logger: logger}
}

type scanRequest struct {
	Retailer string   `json:"retailer"`
	Amount   float64  `json:"amount"`
	Items    []string `json:"items,omitempty"`
}

type transferRequest struct {
	Amount        float64 `json:"amount"`
	RecipientID   string  `json:"recipientId"`
	RecipientName string  `json:"recipientName"`
}

type donationRequest struct {
	Amount           float64 `json:"amount"`
	OrganizationID   string  `json:"organizationId"`
	OrganizationName string  `json:"organizationName"`
}

type challengeRequest struct {
	Reward float64 `json:"reward"`
}

type grantVoucherRequest struct {
	Title       string            `json:"title"`
	Description string            `json:"description,omitempty"`
	Value       float64           `json:"value"`
	Type        model.VoucherType `json:"type"`
	Retailer    string            `json:"retailer"`
	ExpiresAt   time.Time         `json:"expiresAt"`
	Terms       string            `json:"terms,omitempty"`
	Image       string            `json:"image,omitempty"`
}

// HandleGet returns the full wallet snapshot, seeding the demo wallet on a
// user's first call.
//
// HTTP: GET /api/wallet
func (h *WalletHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	wallet, err := h.wallet.Load(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, wallet)
}

// HandleTransactions returns a page of the ledger, newest first.
//
// HTTP: GET /api/wallet/transactions?limit=20&offset=0
func (h *WalletHandler) HandleTransactions(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	txns, err := h.wallet.Transactions(r.Context(), auth.UserID(r.Context()), limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, txns)
}

// HandleScan credits the reward for a scanned receipt.
//
// HTTP: POST /api/wallet/scan
// REQUEST BODY: {"retailer":"Mega Image","amount":127,"items":["PET 0.5L"]}
func (h *WalletHandler) HandleScan(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	txn, err := h.wallet.ScanReceipt(r.Context(), auth.UserID(r.Context()), req.Retailer, req.Amount, req.Items)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, txn)
}

// HandleTransfer debits the wallet and sends the amount to another user.
//
// HTTP: POST /api/wallet/transfer
func (h *WalletHandler) HandleTransfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	txn, err := h.wallet.Transfer(r.Context(), auth.UserID(r.Context()), req.Amount, req.RecipientID, req.RecipientName)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, txn)
}

// HandleDonate debits the wallet in favour of an organization.
//
// HTTP: POST /api/wallet/donations
func (h *WalletHandler) HandleDonate(w http.ResponseWriter, r *http.Request) {
	var req donationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	txn, err := h.wallet.Donate(r.Context(), auth.UserID(r.Context()), req.Amount, req.OrganizationID, req.OrganizationName)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, txn)
}

// HandleCompleteChallenge credits a challenge reward.
//
// HTTP: POST /api/wallet/challenges/{id}/complete
func (h *WalletHandler) HandleCompleteChallenge(w http.ResponseWriter, r *http.Request) {
	challengeID := r.PathValue("id")

	var req challengeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	txn, err := h.wallet.CompleteChallenge(r.Context(), auth.UserID(r.Context()), challengeID, req.Reward)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, txn)
}

// HandleRedeemVoucher marks a voucher used. A second redeem attempt
// returns 409 rather than silently succeeding.
//
// HTTP: POST /api/wallet/vouchers/{id}/redeem
func (h *WalletHandler) HandleRedeemVoucher(w http.ResponseWriter, r *http.Request) {
	voucher, err := h.wallet.UseVoucher(r.Context(), auth.UserID(r.Context()), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, voucher)
}

// HandleGrantVoucher creates a voucher for the authenticated user (the
// reward-granting flow).
//
// HTTP: POST /api/wallet/vouchers
func (h *WalletHandler) HandleGrantVoucher(w http.ResponseWriter, r *http.Request) {
	var req grantVoucherRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	voucher, err := h.wallet.GrantVoucher(r.Context(), auth.UserID(r.Context()),
		req.Title, req.Description, req.Value, req.Type, req.Retailer, req.ExpiresAt, req.Terms, req.Image)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, voucher)
}
