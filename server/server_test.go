package server

import (
	"bytes"
	"context"
	"encoding/json"
	"iter"
	"net/http"
	"net/http/httptest"
	"testing"

	"fortune/models"
	"fortune/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockInventoryService struct {
	mock.Mock
}

func (m *mockInventoryService) CreateGame(ctx context.Context, identity models.Identity, name string, ticketPrice decimal.Decimal, organizerID string) (*models.Game, error) {
	args := m.Called(ctx, identity, name, ticketPrice, organizerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Game), args.Error(1)
}

func (m *mockInventoryService) CreateBook(ctx context.Context, identity models.Identity, book *models.Book) (*models.Book, error) {
	args := m.Called(ctx, identity, book)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Book), args.Error(1)
}

func (m *mockInventoryService) GetTicket(ctx context.Context, gameID, number int64) (*models.Ticket, error) {
	args := m.Called(ctx, gameID, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Ticket), args.Error(1)
}

func (m *mockInventoryService) ListAvailable(ctx context.Context, gameID int64, channel models.Channel) iter.Seq2[*models.Ticket, error] {
	args := m.Called(ctx, gameID, channel)
	return args.Get(0).(iter.Seq2[*models.Ticket, error])
}

func (m *mockInventoryService) GetGameVersion(ctx context.Context, gameID int64) (int64, error) {
	args := m.Called(ctx, gameID)
	return args.Get(0).(int64), args.Error(1)
}

type mockBookingService struct {
	mock.Mock
}

func (m *mockBookingService) PurchaseTicket(ctx context.Context, identity models.Identity, gameID, number int64, channel models.Channel, buyer models.BuyerInfo) (*models.Ticket, error) {
	args := m.Called(ctx, identity, gameID, number, channel, buyer)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Ticket), args.Error(1)
}

type mockFortuneCounterService struct {
	mock.Mock
}

func (m *mockFortuneCounterService) GetCounter(ctx context.Context, gameID int64) (*models.FortuneCounter, error) {
	args := m.Called(ctx, gameID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.FortuneCounter), args.Error(1)
}

func (m *mockFortuneCounterService) RequestSettlement(ctx context.Context, identity models.Identity, gameID int64) (*models.FortuneCounterRequest, error) {
	args := m.Called(ctx, identity, gameID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.FortuneCounterRequest), args.Error(1)
}

func (m *mockFortuneCounterService) ConfirmSettlement(ctx context.Context, identity models.Identity, requestID uuid.UUID) (*models.SettlementResult, error) {
	args := m.Called(ctx, identity, requestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SettlementResult), args.Error(1)
}

func (m *mockFortuneCounterService) GetPendingRequest(ctx context.Context, gameID int64) (*models.FortuneCounterRequest, error) {
	args := m.Called(ctx, gameID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.FortuneCounterRequest), args.Error(1)
}

func (m *mockFortuneCounterService) ListResets(ctx context.Context, gameID int64, limit int) ([]*models.FortuneCounterReset, error) {
	args := m.Called(ctx, gameID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.FortuneCounterReset), args.Error(1)
}

type mockWalletService struct {
	mock.Mock
}

func (m *mockWalletService) Credit(ctx context.Context, userID string, amount int64, reason models.WalletReason, key string) (*models.WalletResult, error) {
	args := m.Called(ctx, userID, amount, reason, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.WalletResult), args.Error(1)
}

func (m *mockWalletService) Debit(ctx context.Context, userID string, amount int64, reason models.WalletReason, key string) (*models.WalletResult, error) {
	args := m.Called(ctx, userID, amount, reason, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.WalletResult), args.Error(1)
}

func (m *mockWalletService) PurchaseFC(ctx context.Context, userID string, amount int64, paymentRef string) (*models.WalletResult, error) {
	args := m.Called(ctx, userID, amount, paymentRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.WalletResult), args.Error(1)
}

func (m *mockWalletService) GetBalance(ctx context.Context, userID string) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockWalletService) ListTransactions(ctx context.Context, userID string, limit int) ([]*models.WalletTransaction, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.WalletTransaction), args.Error(1)
}

type mockReferralService struct {
	mock.Mock
}

func (m *mockReferralService) GetOrCreateReferralCode(ctx context.Context, userID string) (*models.ReferralCode, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ReferralCode), args.Error(1)
}

func (m *mockReferralService) LinkReferral(ctx context.Context, newUserID, code string) (*models.ReferralLink, error) {
	args := m.Called(ctx, newUserID, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ReferralLink), args.Error(1)
}

func (m *mockReferralService) OnFirstQualifyingPurchase(ctx context.Context, userID string) (*models.ReferralLink, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ReferralLink), args.Error(1)
}

type mockCancellationService struct {
	mock.Mock
}

func (m *mockCancellationService) RequestCancellation(ctx context.Context, bookingID, reason, details string) (*models.BookingCancellation, error) {
	args := m.Called(ctx, bookingID, reason, details)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BookingCancellation), args.Error(1)
}

func (m *mockCancellationService) SetStatus(ctx context.Context, id uuid.UUID, status models.CancellationStatus) (*models.BookingCancellation, error) {
	args := m.Called(ctx, id, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BookingCancellation), args.Error(1)
}

func (m *mockCancellationService) GetLatestForBooking(ctx context.Context, bookingID string) (*models.BookingCancellation, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BookingCancellation), args.Error(1)
}

type testServer struct {
	inventory      *mockInventoryService
	booking        *mockBookingService
	fortuneCounter *mockFortuneCounterService
	wallet         *mockWalletService
	referral       *mockReferralService
	cancellation   *mockCancellationService
	handler        http.Handler
}

func newTestServer() *testServer {
	ts := &testServer{
		inventory:      new(mockInventoryService),
		booking:        new(mockBookingService),
		fortuneCounter: new(mockFortuneCounterService),
		wallet:         new(mockWalletService),
		referral:       new(mockReferralService),
		cancellation:   new(mockCancellationService),
	}
	ts.handler = New(Services{
		Inventory:      ts.inventory,
		Booking:        ts.booking,
		FortuneCounter: ts.fortuneCounter,
		Wallet:         ts.wallet,
		Referral:       ts.referral,
		Cancellation:   ts.cancellation,
	}).Router()
	return ts
}

func (ts *testServer) assertExpectations(t *testing.T) {
	ts.inventory.AssertExpectations(t)
	ts.booking.AssertExpectations(t)
	ts.fortuneCounter.AssertExpectations(t)
	ts.wallet.AssertExpectations(t)
	ts.referral.AssertExpectations(t)
	ts.cancellation.AssertExpectations(t)
}

func (ts *testServer) do(t *testing.T, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func asUser(userID string) map[string]string {
	return map[string]string{HeaderUserID: userID}
}

func asRole(userID string, role models.Role) map[string]string {
	return map[string]string{HeaderUserID: userID, HeaderRole: string(role)}
}

func TestServer_Health(t *testing.T) {
	ts := newTestServer()

	rec := ts.do(t, http.MethodGet, "/health", nil, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decodeBody[map[string]string](t, rec)["status"])
}

func TestServer_PurchaseTicket(t *testing.T) {
	buyer := models.BuyerInfo{Name: "Asha", Phone: "555-0100"}

	t.Run("anonymous session purchase succeeds", func(t *testing.T) {
		ts := newTestServer()
		identity := models.Identity{SessionID: "sess-1", Role: models.RoleCustomer}
		name := "Asha"
		ts.booking.On("PurchaseTicket", mock.Anything, identity, int64(7), int64(42), models.ChannelOnline, buyer).
			Return(&models.Ticket{
				GameID:       7,
				BookID:       1,
				TicketNumber: 42,
				Status:       models.TicketStatusSoldOnline,
				BookedByName: &name,
			}, nil)

		rec := ts.do(t, http.MethodPost, "/games/7/tickets/42/purchase",
			purchaseTicketRequest{Channel: models.ChannelOnline, Buyer: buyer},
			map[string]string{HeaderSessionID: "sess-1"})

		assert.Equal(t, http.StatusOK, rec.Code)
		resp := decodeBody[map[string]any](t, rec)
		assert.Equal(t, "sold_online", resp["status"])
		assert.EqualValues(t, 42, resp["ticket_number"])
		assert.NotContains(t, rec.Body.String(), "Asha")
		ts.assertExpectations(t)
	})

	t.Run("lost race maps to conflict", func(t *testing.T) {
		ts := newTestServer()
		ts.booking.On("PurchaseTicket", mock.Anything, mock.Anything, int64(7), int64(42), models.ChannelOnline, buyer).
			Return(nil, service.ErrTicketUnavailable)

		rec := ts.do(t, http.MethodPost, "/games/7/tickets/42/purchase",
			purchaseTicketRequest{Channel: models.ChannelOnline, Buyer: buyer}, asUser("u-1"))

		assert.Equal(t, http.StatusConflict, rec.Code)
		resp := decodeBody[ErrorResponse](t, rec)
		assert.Equal(t, "ticket_unavailable", resp.Code)
		ts.assertExpectations(t)
	})

	t.Run("unknown ticket maps to not found", func(t *testing.T) {
		ts := newTestServer()
		ts.booking.On("PurchaseTicket", mock.Anything, mock.Anything, int64(7), int64(999), models.ChannelOffline, buyer).
			Return(nil, service.ErrTicketNotFound)

		rec := ts.do(t, http.MethodPost, "/games/7/tickets/999/purchase",
			purchaseTicketRequest{Channel: models.ChannelOffline, Buyer: buyer}, nil)

		assert.Equal(t, http.StatusNotFound, rec.Code)
		ts.assertExpectations(t)
	})

	t.Run("non numeric ticket number is rejected before the service", func(t *testing.T) {
		ts := newTestServer()

		rec := ts.do(t, http.MethodPost, "/games/7/tickets/abc/purchase",
			purchaseTicketRequest{Channel: models.ChannelOnline, Buyer: buyer}, nil)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "invalid_ticket_number", decodeBody[ErrorResponse](t, rec).Code)
		ts.assertExpectations(t)
	})

	t.Run("unknown body fields are rejected", func(t *testing.T) {
		ts := newTestServer()

		rec := ts.do(t, http.MethodPost, "/games/7/tickets/42/purchase",
			map[string]any{"channel": "online", "price": 10}, nil)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "invalid_body", decodeBody[ErrorResponse](t, rec).Code)
	})
}

func TestServer_IdentityHeaders(t *testing.T) {
	t.Run("role header is parsed case-insensitively", func(t *testing.T) {
		ts := newTestServer()
		admin := models.Identity{UserID: "admin-1", Role: models.RoleAdmin}
		ts.fortuneCounter.On("RequestSettlement", mock.Anything, admin, int64(3)).
			Return(&models.FortuneCounterRequest{
				ID:          uuid.New(),
				GameID:      3,
				TicketCount: 2,
				AmountDue:   decimal.NewFromInt(20),
				Status:      models.SettlementStatusPending,
				RequestedBy: admin.Key(),
			}, nil)

		rec := ts.do(t, http.MethodPost, "/games/3/fortune-counter/requests", nil,
			map[string]string{HeaderUserID: "admin-1", HeaderRole: "ADMIN"})

		assert.Equal(t, http.StatusCreated, rec.Code)
		resp := decodeBody[map[string]any](t, rec)
		assert.Equal(t, "pending", resp["status"])
		assert.EqualValues(t, 2, resp["ticket_count"])
		ts.assertExpectations(t)
	})

	t.Run("unknown role falls back to customer", func(t *testing.T) {
		ts := newTestServer()
		customer := models.Identity{UserID: "u-1", Role: models.RoleCustomer}
		ts.fortuneCounter.On("RequestSettlement", mock.Anything, customer, int64(3)).
			Return(nil, service.ErrForbidden)

		rec := ts.do(t, http.MethodPost, "/games/3/fortune-counter/requests", nil,
			map[string]string{HeaderUserID: "u-1", HeaderRole: "superuser"})

		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, "forbidden", decodeBody[ErrorResponse](t, rec).Code)
		ts.assertExpectations(t)
	})
}

func TestServer_ErrorMapping(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		expectedCode int
		expectedBody string
	}{
		{"validation", service.ErrInvalidRange, http.StatusBadRequest, "invalid_range"},
		{"not found", service.ErrGameNotFound, http.StatusNotFound, "game_not_found"},
		{"conflict", service.ErrRequestAlreadyPending, http.StatusConflict, "request_already_pending"},
		{"forbidden", service.ErrForbidden, http.StatusForbidden, "forbidden"},
		{"invariant", service.ErrCounterInvariant, http.StatusUnprocessableEntity, "counter_invariant"},
		{"infrastructure", assert.AnError, http.StatusInternalServerError, "internal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer()
			ts.fortuneCounter.On("GetCounter", mock.Anything, int64(5)).Return(nil, tt.err)

			rec := ts.do(t, http.MethodGet, "/games/5/fortune-counter", nil, nil)

			assert.Equal(t, tt.expectedCode, rec.Code)
			assert.Equal(t, tt.expectedBody, decodeBody[ErrorResponse](t, rec).Code)
		})
	}

	t.Run("internal errors do not leak details", func(t *testing.T) {
		ts := newTestServer()
		ts.fortuneCounter.On("GetCounter", mock.Anything, int64(5)).Return(nil, assert.AnError)

		rec := ts.do(t, http.MethodGet, "/games/5/fortune-counter", nil, nil)

		assert.NotContains(t, rec.Body.String(), assert.AnError.Error())
	})
}

func TestServer_FortuneCounter(t *testing.T) {
	t.Run("idle game has no pending request", func(t *testing.T) {
		ts := newTestServer()
		ts.fortuneCounter.On("GetPendingRequest", mock.Anything, int64(1)).Return(nil, nil)

		rec := ts.do(t, http.MethodGet, "/games/1/fortune-counter/pending", nil, nil)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		ts.assertExpectations(t)
	})

	t.Run("confirm returns the settlement result", func(t *testing.T) {
		ts := newTestServer()
		requestID := uuid.New()
		organizer := models.Identity{UserID: "org-1", Role: models.RoleOrganizer}
		ts.fortuneCounter.On("ConfirmSettlement", mock.Anything, organizer, requestID).
			Return(&models.SettlementResult{
				Request:  &models.FortuneCounterRequest{ID: requestID, GameID: 1, TicketCount: 2, Status: models.SettlementStatusConfirmed},
				Reset:    &models.FortuneCounterReset{ID: 1, GameID: 1, RequestID: requestID, TicketCount: 2},
				Counter:  &models.FortuneCounter{GameID: 1, TicketCount: 1},
				Replayed: true,
			}, nil)

		rec := ts.do(t, http.MethodPost, "/fortune-counter/requests/"+requestID.String()+"/confirm", nil,
			asRole("org-1", models.RoleOrganizer))

		assert.Equal(t, http.StatusOK, rec.Code)
		resp := decodeBody[map[string]any](t, rec)
		assert.Equal(t, true, resp["replayed"])
		assert.EqualValues(t, 1, resp["counter"].(map[string]any)["ticket_count"])
		assert.EqualValues(t, 2, resp["reset"].(map[string]any)["ticket_count"])
		ts.assertExpectations(t)
	})

	t.Run("malformed request id", func(t *testing.T) {
		ts := newTestServer()

		rec := ts.do(t, http.MethodPost, "/fortune-counter/requests/not-a-uuid/confirm", nil,
			asRole("org-1", models.RoleOrganizer))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "invalid_request_id", decodeBody[ErrorResponse](t, rec).Code)
	})

	t.Run("resets honor the limit query", func(t *testing.T) {
		ts := newTestServer()
		ts.fortuneCounter.On("ListResets", mock.Anything, int64(1), 5).
			Return([]*models.FortuneCounterReset{{ID: 2, GameID: 1, TicketCount: 3}}, nil)

		rec := ts.do(t, http.MethodGet, "/games/1/fortune-counter/resets?limit=5", nil, nil)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Len(t, decodeBody[[]map[string]any](t, rec), 1)
		ts.assertExpectations(t)
	})
}

func TestServer_ListAvailableTickets(t *testing.T) {
	ts := newTestServer()
	var seq iter.Seq2[*models.Ticket, error] = func(yield func(*models.Ticket, error) bool) {
		for n := int64(1); n <= 10; n++ {
			if !yield(&models.Ticket{GameID: 1, TicketNumber: n, Status: models.TicketStatusAvailable}, nil) {
				return
			}
		}
	}
	ts.inventory.On("ListAvailable", mock.Anything, int64(1), models.ChannelOnline).Return(seq)

	rec := ts.do(t, http.MethodGet, "/games/1/tickets/available?limit=3", nil, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	tickets := decodeBody[[]map[string]any](t, rec)
	require.Len(t, tickets, 3)
	assert.EqualValues(t, 3, tickets[2]["ticket_number"])
	ts.assertExpectations(t)
}

func TestServer_Wallet(t *testing.T) {
	t.Run("balance requires a signed-in user", func(t *testing.T) {
		ts := newTestServer()

		rec := ts.do(t, http.MethodGet, "/wallet/balance", nil, map[string]string{HeaderSessionID: "sess-1"})

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "unauthenticated", decodeBody[ErrorResponse](t, rec).Code)
	})

	t.Run("debit takes the idempotency key from the header", func(t *testing.T) {
		ts := newTestServer()
		ts.wallet.On("Debit", mock.Anything, "u-1", int64(30), models.WalletReasonSpend, "spend-1").
			Return(&models.WalletResult{
				Transaction: &models.WalletTransaction{ID: 1, UserID: "u-1", Amount: -30, Reason: models.WalletReasonSpend, IdempotencyKey: "spend-1", BalanceAfter: 70},
				NewBalance:  70,
			}, nil)

		headers := asUser("u-1")
		headers[HeaderIdempotencyKey] = "spend-1"
		rec := ts.do(t, http.MethodPost, "/wallet/debits", walletChangeRequest{Amount: 30}, headers)

		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.EqualValues(t, 70, decodeBody[map[string]any](t, rec)["new_balance"])
		ts.assertExpectations(t)
	})

	t.Run("insufficient funds maps to unprocessable", func(t *testing.T) {
		ts := newTestServer()
		ts.wallet.On("Debit", mock.Anything, "u-1", int64(30), models.WalletReasonSpend, "spend-2").
			Return(nil, service.ErrInsufficientFunds)

		rec := ts.do(t, http.MethodPost, "/wallet/debits",
			walletChangeRequest{Amount: 30, IdempotencyKey: "spend-2"}, asUser("u-1"))

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, "insufficient_funds", decodeBody[ErrorResponse](t, rec).Code)
		ts.assertExpectations(t)
	})

	t.Run("replayed purchase returns 200", func(t *testing.T) {
		ts := newTestServer()
		ts.wallet.On("PurchaseFC", mock.Anything, "u-1", int64(100), "pay-1").
			Return(&models.WalletResult{
				Transaction: &models.WalletTransaction{ID: 9, UserID: "u-1", Amount: 100, Reason: models.WalletReasonFCPurchase},
				NewBalance:  100,
				Replayed:    true,
			}, nil)

		rec := ts.do(t, http.MethodPost, "/wallet/purchases",
			purchaseFCRequest{Amount: 100, PaymentRef: "pay-1"}, asUser("u-1"))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, true, decodeBody[map[string]any](t, rec)["replayed"])
		ts.assertExpectations(t)
	})

	t.Run("credit is admin only", func(t *testing.T) {
		ts := newTestServer()

		rec := ts.do(t, http.MethodPost, "/wallet/credits",
			walletChangeRequest{UserID: "u-2", Amount: 10, IdempotencyKey: "k"}, asUser("u-1"))

		assert.Equal(t, http.StatusForbidden, rec.Code)
		ts.assertExpectations(t)
	})
}

func TestServer_Referrals(t *testing.T) {
	t.Run("link binds the caller", func(t *testing.T) {
		ts := newTestServer()
		ts.referral.On("LinkReferral", mock.Anything, "new-user", "ABCD1234").
			Return(&models.ReferralLink{ID: uuid.New(), ReferredUserID: "new-user", ReferrerUserID: "owner"}, nil)

		rec := ts.do(t, http.MethodPost, "/referrals/link", linkReferralRequest{Code: "ABCD1234"}, asUser("new-user"))

		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, "owner", decodeBody[map[string]any](t, rec)["referrer_user_id"])
		ts.assertExpectations(t)
	})

	t.Run("second link conflicts", func(t *testing.T) {
		ts := newTestServer()
		ts.referral.On("LinkReferral", mock.Anything, "new-user", "ABCD1234").Return(nil, service.ErrAlreadyLinked)

		rec := ts.do(t, http.MethodPost, "/referrals/link", linkReferralRequest{Code: "ABCD1234"}, asUser("new-user"))

		assert.Equal(t, http.StatusConflict, rec.Code)
		ts.assertExpectations(t)
	})

	t.Run("qualifying purchase with nothing to credit", func(t *testing.T) {
		ts := newTestServer()
		ts.referral.On("OnFirstQualifyingPurchase", mock.Anything, "new-user").Return(nil, nil)

		rec := ts.do(t, http.MethodPost, "/referrals/qualifying-purchases",
			qualifyingPurchaseRequest{UserID: "new-user"}, asRole("admin-1", models.RoleAdmin))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, false, decodeBody[map[string]any](t, rec)["credited"])
		ts.assertExpectations(t)
	})
}

func TestServer_Cancellations(t *testing.T) {
	t.Run("request opens a processing cancellation", func(t *testing.T) {
		ts := newTestServer()
		ts.cancellation.On("RequestCancellation", mock.Anything, "booking-1", "changed plans", "").
			Return(&models.BookingCancellation{ID: uuid.New(), BookingID: "booking-1", Reason: "changed plans", Status: models.CancellationStatusProcessing}, nil)

		rec := ts.do(t, http.MethodPost, "/bookings/booking-1/cancellations",
			cancellationRequest{Reason: "changed plans"}, asUser("u-1"))

		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, "processing", decodeBody[map[string]any](t, rec)["status"])
		ts.assertExpectations(t)
	})

	t.Run("status change is admin only", func(t *testing.T) {
		ts := newTestServer()

		rec := ts.do(t, http.MethodPut, "/cancellations/"+uuid.NewString()+"/status",
			cancellationStatusRequest{Status: models.CancellationStatusCancelled}, asRole("org-1", models.RoleOrganizer))

		assert.Equal(t, http.StatusForbidden, rec.Code)
		ts.assertExpectations(t)
	})

	t.Run("missing cancellation maps to not found", func(t *testing.T) {
		ts := newTestServer()
		ts.cancellation.On("GetLatestForBooking", mock.Anything, "booking-9").Return(nil, service.ErrCancellationNotFound)

		rec := ts.do(t, http.MethodGet, "/bookings/booking-9/cancellations/latest", nil, nil)

		assert.Equal(t, http.StatusNotFound, rec.Code)
		ts.assertExpectations(t)
	})
}
