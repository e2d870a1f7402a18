package server

import (
	"time"

	"fortune/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type createGameRequest struct {
	Name        string          `json:"name"`
	TicketPrice decimal.Decimal `json:"ticket_price"`
	OrganizerID string          `json:"organizer_id"`
}

type gameResponse struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	TicketPrice decimal.Decimal `json:"ticket_price"`
	OrganizerID string          `json:"organizer_id"`
	Version     int64           `json:"version"`
}

func newGameResponse(g *models.Game) gameResponse {
	return gameResponse{
		ID:          g.ID,
		Name:        g.Name,
		TicketPrice: g.TicketPrice,
		OrganizerID: g.OrganizerID,
		Version:     g.Version,
	}
}

type createBookRequest struct {
	BookName          string `json:"book_name"`
	FirstTicketNumber int64  `json:"first_ticket_number"`
	LastTicketNumber  int64  `json:"last_ticket_number"`
	IsOnlineAvailable bool   `json:"is_online_available"`
}

type bookResponse struct {
	ID                int64  `json:"id"`
	GameID            int64  `json:"game_id"`
	BookName          string `json:"book_name"`
	FirstTicketNumber int64  `json:"first_ticket_number"`
	LastTicketNumber  int64  `json:"last_ticket_number"`
	IsOnlineAvailable bool   `json:"is_online_available"`
}

func newBookResponse(b *models.Book) bookResponse {
	return bookResponse{
		ID:                b.ID,
		GameID:            b.GameID,
		BookName:          b.BookName,
		FirstTicketNumber: b.FirstTicketNumber,
		LastTicketNumber:  b.LastTicketNumber,
		IsOnlineAvailable: b.IsOnlineAvailable,
	}
}

type purchaseTicketRequest struct {
	Channel models.Channel   `json:"channel"`
	Buyer   models.BuyerInfo `json:"buyer"`
}

// ticketResponse omits buyer contact details
type ticketResponse struct {
	GameID       int64               `json:"game_id"`
	BookID       int64               `json:"book_id"`
	TicketNumber int64               `json:"ticket_number"`
	Status       models.TicketStatus `json:"status"`
	BookedAt     *time.Time          `json:"booked_at,omitempty"`
	SettledAt    *time.Time          `json:"settled_at,omitempty"`
}

func newTicketResponse(t *models.Ticket) ticketResponse {
	return ticketResponse{
		GameID:       t.GameID,
		BookID:       t.BookID,
		TicketNumber: t.TicketNumber,
		Status:       t.Status,
		BookedAt:     t.BookedAt,
		SettledAt:    t.SettledAt,
	}
}

type counterResponse struct {
	GameID      int64     `json:"game_id"`
	TicketCount int64     `json:"ticket_count"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func newCounterResponse(c *models.FortuneCounter) *counterResponse {
	if c == nil {
		return nil
	}
	return &counterResponse{GameID: c.GameID, TicketCount: c.TicketCount, UpdatedAt: c.UpdatedAt}
}

type settlementRequestResponse struct {
	ID          uuid.UUID               `json:"id"`
	GameID      int64                   `json:"game_id"`
	TicketCount int64                   `json:"ticket_count"`
	AmountDue   decimal.Decimal         `json:"amount_due"`
	Status      models.SettlementStatus `json:"status"`
	RequestedBy string                  `json:"requested_by"`
	ConfirmedBy *string                 `json:"confirmed_by,omitempty"`
	CreatedAt   time.Time               `json:"created_at"`
	ConfirmedAt *time.Time              `json:"confirmed_at,omitempty"`
}

func newSettlementRequestResponse(r *models.FortuneCounterRequest) *settlementRequestResponse {
	if r == nil {
		return nil
	}
	return &settlementRequestResponse{
		ID:          r.ID,
		GameID:      r.GameID,
		TicketCount: r.TicketCount,
		AmountDue:   r.AmountDue,
		Status:      r.Status,
		RequestedBy: r.RequestedBy,
		ConfirmedBy: r.ConfirmedBy,
		CreatedAt:   r.CreatedAt,
		ConfirmedAt: r.ConfirmedAt,
	}
}

type resetResponse struct {
	ID          int64     `json:"id"`
	GameID      int64     `json:"game_id"`
	RequestID   uuid.UUID `json:"request_id"`
	ResetDate   time.Time `json:"reset_date"`
	TicketCount int64     `json:"ticket_count"`
}

func newResetResponse(r *models.FortuneCounterReset) *resetResponse {
	if r == nil {
		return nil
	}
	return &resetResponse{
		ID:          r.ID,
		GameID:      r.GameID,
		RequestID:   r.RequestID,
		ResetDate:   r.ResetDate,
		TicketCount: r.TicketCount,
	}
}

type settlementResultResponse struct {
	Request  *settlementRequestResponse `json:"request"`
	Reset    *resetResponse             `json:"reset"`
	Counter  *counterResponse           `json:"counter"`
	Replayed bool                       `json:"replayed"`
}

type purchaseFCRequest struct {
	Amount     int64  `json:"amount"`
	PaymentRef string `json:"payment_ref"`
}

type walletChangeRequest struct {
	UserID         string              `json:"user_id,omitempty"`
	Amount         int64               `json:"amount"`
	Reason         models.WalletReason `json:"reason"`
	IdempotencyKey string              `json:"idempotency_key"`
}

type walletTransactionResponse struct {
	ID             int64               `json:"id"`
	Amount         int64               `json:"amount"`
	Reason         models.WalletReason `json:"reason"`
	IdempotencyKey string              `json:"idempotency_key"`
	BalanceAfter   int64               `json:"balance_after"`
	Metadata       map[string]any      `json:"metadata,omitempty"`
	CreatedAt      time.Time           `json:"created_at"`
}

func newWalletTransactionResponse(tx *models.WalletTransaction) walletTransactionResponse {
	return walletTransactionResponse{
		ID:             tx.ID,
		Amount:         tx.Amount,
		Reason:         tx.Reason,
		IdempotencyKey: tx.IdempotencyKey,
		BalanceAfter:   tx.BalanceAfter,
		Metadata:       tx.Metadata,
		CreatedAt:      tx.CreatedAt,
	}
}

type walletResultResponse struct {
	Transaction walletTransactionResponse `json:"transaction"`
	NewBalance  int64                     `json:"new_balance"`
	Replayed    bool                      `json:"replayed"`
}

func newWalletResultResponse(result *models.WalletResult) walletResultResponse {
	return walletResultResponse{
		Transaction: newWalletTransactionResponse(result.Transaction),
		NewBalance:  result.NewBalance,
		Replayed:    result.Replayed,
	}
}

type linkReferralRequest struct {
	Code string `json:"code"`
}

type qualifyingPurchaseRequest struct {
	UserID string `json:"user_id"`
}

type referralLinkResponse struct {
	ID             uuid.UUID `json:"id"`
	ReferrerUserID string    `json:"referrer_user_id"`
	ReferredUserID string    `json:"referred_user_id"`
	BonusCredited  bool      `json:"bonus_credited"`
	LinkedAt       time.Time `json:"linked_at"`
}

func newReferralLinkResponse(link *models.ReferralLink) referralLinkResponse {
	return referralLinkResponse{
		ID:             link.ID,
		ReferrerUserID: link.ReferrerUserID,
		ReferredUserID: link.ReferredUserID,
		BonusCredited:  link.BonusCredited,
		LinkedAt:       link.LinkedAt,
	}
}

type cancellationRequest struct {
	Reason  string `json:"reason"`
	Details string `json:"details"`
}

type cancellationStatusRequest struct {
	Status models.CancellationStatus `json:"status"`
}

type cancellationResponse struct {
	ID        uuid.UUID                 `json:"id"`
	BookingID string                    `json:"booking_id"`
	Reason    string                    `json:"reason"`
	Details   *string                   `json:"details,omitempty"`
	Status    models.CancellationStatus `json:"status"`
	CreatedAt time.Time                 `json:"created_at"`
	UpdatedAt time.Time                 `json:"updated_at"`
}

func newCancellationResponse(c *models.BookingCancellation) cancellationResponse {
	return cancellationResponse{
		ID:        c.ID,
		BookingID: c.BookingID,
		Reason:    c.Reason,
		Details:   c.Details,
		Status:    c.Status,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}
