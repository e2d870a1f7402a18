package server

import (
	"net/http"
	"strings"

	"fortune/models"
	"fortune/service"
)

// HeaderIdempotencyKey may carry the idempotency key instead of the request body
const HeaderIdempotencyKey = "Idempotency-Key"

// getBalance handles GET /wallet/balance
func (s *Server) getBalance(w http.ResponseWriter, r *http.Request) {
	identity := identityFrom(r.Context())
	if !identity.IsAuthenticated() {
		writeError(w, r, errUnauthenticated)
		return
	}

	balance, err := s.services.Wallet.GetBalance(r.Context(), identity.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"user_id": identity.UserID, "balance": balance})
}

// listTransactions handles GET /wallet/transactions?limit=
func (s *Server) listTransactions(w http.ResponseWriter, r *http.Request) {
	identity := identityFrom(r.Context())
	if !identity.IsAuthenticated() {
		writeError(w, r, errUnauthenticated)
		return
	}

	transactions, err := s.services.Wallet.ListTransactions(r.Context(), identity.UserID, intQuery(r, "limit", 50))
	if err != nil {
		writeError(w, r, err)
		return
	}

	response := make([]walletTransactionResponse, 0, len(transactions))
	for _, tx := range transactions {
		response = append(response, newWalletTransactionResponse(tx))
	}
	writeJSON(w, http.StatusOK, response)
}

// purchaseFC handles POST /wallet/purchases for an already authorized payment
func (s *Server) purchaseFC(w http.ResponseWriter, r *http.Request) {
	identity := identityFrom(r.Context())
	if !identity.IsAuthenticated() {
		writeError(w, r, errUnauthenticated)
		return
	}

	var req purchaseFCRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, "invalid_body", "invalid request body: "+err.Error())
		return
	}

	result, err := s.services.Wallet.PurchaseFC(r.Context(), identity.UserID, req.Amount, req.PaymentRef)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, statusForWalletResult(result), newWalletResultResponse(result))
}

// debit handles POST /wallet/debits, spending the caller's own FC
func (s *Server) debit(w http.ResponseWriter, r *http.Request) {
	identity := identityFrom(r.Context())
	if !identity.IsAuthenticated() {
		writeError(w, r, errUnauthenticated)
		return
	}

	var req walletChangeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, "invalid_body", "invalid request body: "+err.Error())
		return
	}
	if req.Reason == "" {
		req.Reason = models.WalletReasonSpend
	}

	result, err := s.services.Wallet.Debit(r.Context(), identity.UserID, req.Amount, req.Reason, idempotencyKey(r, req.IdempotencyKey))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, statusForWalletResult(result), newWalletResultResponse(result))
}

// credit handles POST /wallet/credits, an admin adjustment to any user's balance
func (s *Server) credit(w http.ResponseWriter, r *http.Request) {
	if identityFrom(r.Context()).Role != models.RoleAdmin {
		writeError(w, r, service.ErrForbidden)
		return
	}

	var req walletChangeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, "invalid_body", "invalid request body: "+err.Error())
		return
	}
	if req.Reason == "" {
		req.Reason = models.WalletReasonAdjustment
	}

	result, err := s.services.Wallet.Credit(r.Context(), req.UserID, req.Amount, req.Reason, idempotencyKey(r, req.IdempotencyKey))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, statusForWalletResult(result), newWalletResultResponse(result))
}

func idempotencyKey(r *http.Request, fromBody string) string {
	if key := strings.TrimSpace(fromBody); key != "" {
		return key
	}
	return strings.TrimSpace(r.Header.Get(HeaderIdempotencyKey))
}

// statusForWalletResult reports a replay as 200 and a newly applied change as 201
func statusForWalletResult(result *models.WalletResult) int {
	if result.Replayed {
		return http.StatusOK
	}
	return http.StatusCreated
}
