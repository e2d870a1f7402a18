package service

import (
	"context"

	"fortune/events"
	"fortune/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockGameRepository is a mock implementation of GameRepository
type MockGameRepository struct {
	mock.Mock
}

func (m *MockGameRepository) Create(ctx context.Context, game *models.Game) error {
	args := m.Called(ctx, game)
	return args.Error(0)
}

func (m *MockGameRepository) GetByID(ctx context.Context, id int64) (*models.Game, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Game), args.Error(1)
}

func (m *MockGameRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.Game, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Game), args.Error(1)
}

func (m *MockGameRepository) BumpVersion(ctx context.Context, id int64) (int64, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(int64), args.Error(1)
}

// MockBookRepository is a mock implementation of BookRepository
type MockBookRepository struct {
	mock.Mock
}

func (m *MockBookRepository) Create(ctx context.Context, book *models.Book) error {
	args := m.Called(ctx, book)
	return args.Error(0)
}

func (m *MockBookRepository) GetByID(ctx context.Context, id int64) (*models.Book, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Book), args.Error(1)
}

func (m *MockBookRepository) ListByGame(ctx context.Context, gameID int64) ([]*models.Book, error) {
	args := m.Called(ctx, gameID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Book), args.Error(1)
}

func (m *MockBookRepository) FindOverlapping(ctx context.Context, gameID, first, last int64) ([]*models.Book, error) {
	args := m.Called(ctx, gameID, first, last)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Book), args.Error(1)
}

// MockTicketRepository is a mock implementation of TicketRepository
type MockTicketRepository struct {
	mock.Mock
}

func (m *MockTicketRepository) MaterializeBook(ctx context.Context, book *models.Book) (int64, error) {
	args := m.Called(ctx, book)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTicketRepository) GetByNumber(ctx context.Context, gameID, number int64) (*models.Ticket, error) {
	args := m.Called(ctx, gameID, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Ticket), args.Error(1)
}

func (m *MockTicketRepository) MarkSold(ctx context.Context, gameID, number int64, channel models.Channel, buyer models.BuyerInfo, identityKey string) (*models.Ticket, error) {
	args := m.Called(ctx, gameID, number, channel, buyer, identityKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Ticket), args.Error(1)
}

func (m *MockTicketRepository) SetSaleSeq(ctx context.Context, ticketID, saleSeq int64) error {
	args := m.Called(ctx, ticketID, saleSeq)
	return args.Error(0)
}

func (m *MockTicketRepository) ListAvailablePage(ctx context.Context, gameID int64, onlineOnly bool, afterNumber int64, limit int) ([]*models.Ticket, error) {
	args := m.Called(ctx, gameID, onlineOnly, afterNumber, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Ticket), args.Error(1)
}

func (m *MockTicketRepository) SettleOldestOnline(ctx context.Context, gameID, maxSeq, limit int64) (int64, error) {
	args := m.Called(ctx, gameID, maxSeq, limit)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTicketRepository) CountByStatus(ctx context.Context, gameID int64, status models.TicketStatus) (int64, error) {
	args := m.Called(ctx, gameID, status)
	return args.Get(0).(int64), args.Error(1)
}

// MockFortuneCounterRepository is a mock implementation of FortuneCounterRepository
type MockFortuneCounterRepository struct {
	mock.Mock
}

func (m *MockFortuneCounterRepository) Init(ctx context.Context, gameID int64) error {
	args := m.Called(ctx, gameID)
	return args.Error(0)
}

func (m *MockFortuneCounterRepository) Get(ctx context.Context, gameID int64) (*models.FortuneCounter, error) {
	args := m.Called(ctx, gameID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.FortuneCounter), args.Error(1)
}

func (m *MockFortuneCounterRepository) GetForUpdate(ctx context.Context, gameID int64) (*models.FortuneCounter, error) {
	args := m.Called(ctx, gameID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.FortuneCounter), args.Error(1)
}

func (m *MockFortuneCounterRepository) Increment(ctx context.Context, gameID int64) (*models.FortuneCounter, error) {
	args := m.Called(ctx, gameID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.FortuneCounter), args.Error(1)
}

func (m *MockFortuneCounterRepository) Decrement(ctx context.Context, gameID, n int64) (*models.FortuneCounter, error) {
	args := m.Called(ctx, gameID, n)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.FortuneCounter), args.Error(1)
}

func (m *MockFortuneCounterRepository) CreateRequest(ctx context.Context, request *models.FortuneCounterRequest) error {
	args := m.Called(ctx, request)
	return args.Error(0)
}

func (m *MockFortuneCounterRepository) GetRequestByID(ctx context.Context, id uuid.UUID) (*models.FortuneCounterRequest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.FortuneCounterRequest), args.Error(1)
}

func (m *MockFortuneCounterRepository) GetRequestForUpdate(ctx context.Context, id uuid.UUID) (*models.FortuneCounterRequest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.FortuneCounterRequest), args.Error(1)
}

func (m *MockFortuneCounterRepository) GetPendingRequest(ctx context.Context, gameID int64) (*models.FortuneCounterRequest, error) {
	args := m.Called(ctx, gameID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.FortuneCounterRequest), args.Error(1)
}

func (m *MockFortuneCounterRepository) MarkRequestConfirmed(ctx context.Context, id uuid.UUID, confirmedBy string) (*models.FortuneCounterRequest, error) {
	args := m.Called(ctx, id, confirmedBy)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.FortuneCounterRequest), args.Error(1)
}

func (m *MockFortuneCounterRepository) CreateReset(ctx context.Context, reset *models.FortuneCounterReset) error {
	args := m.Called(ctx, reset)
	return args.Error(0)
}

func (m *MockFortuneCounterRepository) GetResetByRequest(ctx context.Context, requestID uuid.UUID) (*models.FortuneCounterReset, error) {
	args := m.Called(ctx, requestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.FortuneCounterReset), args.Error(1)
}

func (m *MockFortuneCounterRepository) ListResets(ctx context.Context, gameID int64, limit int) ([]*models.FortuneCounterReset, error) {
	args := m.Called(ctx, gameID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.FortuneCounterReset), args.Error(1)
}

// MockWalletRepository is a mock implementation of WalletRepository
type MockWalletRepository struct {
	mock.Mock
}

func (m *MockWalletRepository) EnsureBalance(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockWalletRepository) GetBalance(ctx context.Context, userID string) (*models.FCBalance, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.FCBalance), args.Error(1)
}

func (m *MockWalletRepository) GetBalanceForUpdate(ctx context.Context, userID string) (*models.FCBalance, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.FCBalance), args.Error(1)
}

func (m *MockWalletRepository) AddBalance(ctx context.Context, userID string, amount int64) (int64, error) {
	args := m.Called(ctx, userID, amount)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockWalletRepository) DeductBalance(ctx context.Context, userID string, amount int64) (int64, error) {
	args := m.Called(ctx, userID, amount)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockWalletRepository) GetTransactionByKey(ctx context.Context, key string) (*models.WalletTransaction, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.WalletTransaction), args.Error(1)
}

func (m *MockWalletRepository) RecordTransaction(ctx context.Context, tx *models.WalletTransaction) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *MockWalletRepository) ListTransactions(ctx context.Context, userID string, limit int) ([]*models.WalletTransaction, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.WalletTransaction), args.Error(1)
}

// MockReferralRepository is a mock implementation of ReferralRepository
type MockReferralRepository struct {
	mock.Mock
}

func (m *MockReferralRepository) GetCodeByUser(ctx context.Context, userID string) (*models.ReferralCode, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ReferralCode), args.Error(1)
}

func (m *MockReferralRepository) GetCodeOwner(ctx context.Context, code string) (*models.ReferralCode, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ReferralCode), args.Error(1)
}

func (m *MockReferralRepository) CreateCode(ctx context.Context, code *models.ReferralCode) (bool, error) {
	args := m.Called(ctx, code)
	return args.Bool(0), args.Error(1)
}

func (m *MockReferralRepository) CreateLink(ctx context.Context, link *models.ReferralLink) error {
	args := m.Called(ctx, link)
	return args.Error(0)
}

func (m *MockReferralRepository) GetLinkByReferred(ctx context.Context, referredUserID string) (*models.ReferralLink, error) {
	args := m.Called(ctx, referredUserID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ReferralLink), args.Error(1)
}

func (m *MockReferralRepository) HasQualifyingActivity(ctx context.Context, userID string) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockReferralRepository) ClaimBonus(ctx context.Context, referredUserID string) (*models.ReferralLink, error) {
	args := m.Called(ctx, referredUserID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ReferralLink), args.Error(1)
}

// MockCancellationRepository is a mock implementation of CancellationRepository
type MockCancellationRepository struct {
	mock.Mock
}

func (m *MockCancellationRepository) Create(ctx context.Context, cancellation *models.BookingCancellation) error {
	args := m.Called(ctx, cancellation)
	return args.Error(0)
}

func (m *MockCancellationRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.BookingCancellation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BookingCancellation), args.Error(1)
}

func (m *MockCancellationRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.CancellationStatus) (*models.BookingCancellation, error) {
	args := m.Called(ctx, id, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BookingCancellation), args.Error(1)
}

func (m *MockCancellationRepository) GetLatestByBooking(ctx context.Context, bookingID string) (*models.BookingCancellation, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BookingCancellation), args.Error(1)
}

// MockEventPublisher is a mock implementation of EventPublisher for testing
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(event events.Event) {
	m.Called(event)
}

// MockUnitOfWork is a mock implementation of UnitOfWork. Only the transaction
// methods are recorded; the repository getters hand out the configured mocks.
type MockUnitOfWork struct {
	mock.Mock

	Games         *MockGameRepository
	Books         *MockBookRepository
	Tickets       *MockTicketRepository
	Counters      *MockFortuneCounterRepository
	Wallet        *MockWalletRepository
	Referrals     *MockReferralRepository
	Cancellations *MockCancellationRepository
	Events        *MockEventPublisher
}

// NewMockUnitOfWork returns a unit of work wired to fresh repository mocks
func NewMockUnitOfWork() *MockUnitOfWork {
	return &MockUnitOfWork{
		Games:         new(MockGameRepository),
		Books:         new(MockBookRepository),
		Tickets:       new(MockTicketRepository),
		Counters:      new(MockFortuneCounterRepository),
		Wallet:        new(MockWalletRepository),
		Referrals:     new(MockReferralRepository),
		Cancellations: new(MockCancellationRepository),
		Events:        new(MockEventPublisher),
	}
}

func (m *MockUnitOfWork) Begin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockUnitOfWork) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) Rollback() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) GameRepository() GameRepository { return m.Games }
func (m *MockUnitOfWork) BookRepository() BookRepository { return m.Books }
func (m *MockUnitOfWork) TicketRepository() TicketRepository { return m.Tickets }
func (m *MockUnitOfWork) FortuneCounterRepository() FortuneCounterRepository { return m.Counters }
func (m *MockUnitOfWork) WalletRepository() WalletRepository { return m.Wallet }
func (m *MockUnitOfWork) ReferralRepository() ReferralRepository { return m.Referrals }
func (m *MockUnitOfWork) CancellationRepository() CancellationRepository { return m.Cancellations }
func (m *MockUnitOfWork) EventBus() EventPublisher { return m.Events }

// AssertRepositoryExpectations asserts the expectations of every repository mock
func (m *MockUnitOfWork) AssertRepositoryExpectations(t mock.TestingT) {
	m.Games.AssertExpectations(t)
	m.Books.AssertExpectations(t)
	m.Tickets.AssertExpectations(t)
	m.Counters.AssertExpectations(t)
	m.Wallet.AssertExpectations(t)
	m.Referrals.AssertExpectations(t)
	m.Cancellations.AssertExpectations(t)
	m.Events.AssertExpectations(t)
}

// MockUnitOfWorkFactory is a mock implementation of UnitOfWorkFactory
type MockUnitOfWorkFactory struct {
	mock.Mock
}

func (m *MockUnitOfWorkFactory) Create() UnitOfWork {
	args := m.Called()
	return args.Get(0).(UnitOfWork)
}
