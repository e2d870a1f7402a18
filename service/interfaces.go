package service

import (
	"context"
	"iter"

	"fortune/events"
	"fortune/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// GameRepository defines the interface for game data access
type GameRepository interface {
	// Create inserts a new game and fills in its generated fields
	Create(ctx context.Context, game *models.Game) error

	// GetByID retrieves a game by its ID, nil when not found
	GetByID(ctx context.Context, id int64) (*models.Game, error)

	// GetByIDForUpdate retrieves a game and locks its row until the transaction ends
	GetByIDForUpdate(ctx context.Context, id int64) (*models.Game, error)

	// BumpVersion increments the game's version and returns the new value
	BumpVersion(ctx context.Context, id int64) (int64, error)
}

// BookRepository defines the interface for book data access
type BookRepository interface {
	// Create inserts a new book
	Create(ctx context.Context, book *models.Book) error

	// GetByID retrieves a book by its ID, nil when not found
	GetByID(ctx context.Context, id int64) (*models.Book, error)

	// ListByGame returns all books of a game ordered by first ticket number
	ListByGame(ctx context.Context, gameID int64) ([]*models.Book, error)

	// FindOverlapping returns the books of a game whose range intersects [first, last]
	FindOverlapping(ctx context.Context, gameID, first, last int64) ([]*models.Book, error)
}

// TicketRepository defines the interface for ticket data access
type TicketRepository interface {
	// MaterializeBook creates one available ticket per number of the book's range
	MaterializeBook(ctx context.Context, book *models.Book) (int64, error)

	// GetByNumber retrieves a ticket with its book's online flag, nil when not found
	GetByNumber(ctx context.Context, gameID, number int64) (*models.Ticket, error)

	// MarkSold moves a ticket from available to the channel's sold status and
	// stamps the buyer in the same statement. Returns nil when the ticket was not available.
	MarkSold(ctx context.Context, gameID, number int64, channel models.Channel, buyer models.BuyerInfo, identityKey string) (*models.Ticket, error)

	// SetSaleSeq records the ticket's position in the game's online sales order
	SetSaleSeq(ctx context.Context, ticketID, saleSeq int64) error

	// ListAvailablePage returns up to limit available tickets numbered after afterNumber
	ListAvailablePage(ctx context.Context, gameID int64, onlineOnly bool, afterNumber int64, limit int) ([]*models.Ticket, error)

	// SettleOldestOnline marks up to limit sold_online tickets with sale_seq <= maxSeq
	// as paid_settled, oldest sale first, and returns how many were marked
	SettleOldestOnline(ctx context.Context, gameID, maxSeq, limit int64) (int64, error)

	// CountByStatus returns the number of tickets of a game in the given status
	CountByStatus(ctx context.Context, gameID int64, status models.TicketStatus) (int64, error)
}

// FortuneCounterRepository defines the interface for fortune counter and settlement data access
type FortuneCounterRepository interface {
	// Init creates the zeroed counter row for a game if it does not exist
	Init(ctx context.Context, gameID int64) error

	// Get returns the counter of a game, nil when not found
	Get(ctx context.Context, gameID int64) (*models.FortuneCounter, error)

	// GetForUpdate returns the counter and locks its row until the transaction ends
	GetForUpdate(ctx context.Context, gameID int64) (*models.FortuneCounter, error)

	// Increment records one online sale and returns the updated counter
	Increment(ctx context.Context, gameID int64) (*models.FortuneCounter, error)

	// Decrement subtracts n from the counter. Returns ErrCounterInvariant if it would go negative.
	Decrement(ctx context.Context, gameID, n int64) (*models.FortuneCounter, error)

	// CreateRequest inserts a pending request. Returns ErrRequestAlreadyPending when one exists.
	CreateRequest(ctx context.Context, request *models.FortuneCounterRequest) error

	// GetRequestByID retrieves a request, nil when not found
	GetRequestByID(ctx context.Context, id uuid.UUID) (*models.FortuneCounterRequest, error)

	// GetRequestForUpdate retrieves a request and locks its row
	GetRequestForUpdate(ctx context.Context, id uuid.UUID) (*models.FortuneCounterRequest, error)

	// GetPendingRequest returns the pending request of a game, nil when idle
	GetPendingRequest(ctx context.Context, gameID int64) (*models.FortuneCounterRequest, error)

	// MarkRequestConfirmed confirms a pending request. Returns ErrRequestAlreadyConfirmed otherwise.
	MarkRequestConfirmed(ctx context.Context, id uuid.UUID, confirmedBy string) (*models.FortuneCounterRequest, error)

	// CreateReset appends the audit record of a confirmed settlement
	CreateReset(ctx context.Context, reset *models.FortuneCounterReset) error

	// GetResetByRequest returns the reset written for a request, nil when none
	GetResetByRequest(ctx context.Context, requestID uuid.UUID) (*models.FortuneCounterReset, error)

	// ListResets returns the most recent resets of a game
	ListResets(ctx context.Context, gameID int64, limit int) ([]*models.FortuneCounterReset, error)
}

// WalletRepository defines the interface for FC balance and ledger data access
type WalletRepository interface {
	// EnsureBalance creates a zero balance row for the user if none exists
	EnsureBalance(ctx context.Context, userID string) error

	// GetBalance returns the user's balance row, nil when never touched
	GetBalance(ctx context.Context, userID string) (*models.FCBalance, error)

	// GetBalanceForUpdate returns the user's balance row and locks it
	GetBalanceForUpdate(ctx context.Context, userID string) (*models.FCBalance, error)

	// AddBalance adds amount to the balance and returns the new balance
	AddBalance(ctx context.Context, userID string, amount int64) (int64, error)

	// DeductBalance subtracts amount, returning ErrInsufficientFunds if the balance is too low
	DeductBalance(ctx context.Context, userID string, amount int64) (int64, error)

	// GetTransactionByKey returns the ledger entry recorded for an idempotency key, nil when none
	GetTransactionByKey(ctx context.Context, key string) (*models.WalletTransaction, error)

	// RecordTransaction appends a ledger entry. Returns ErrDuplicatePayment when the key is taken.
	RecordTransaction(ctx context.Context, tx *models.WalletTransaction) error

	// ListTransactions returns the user's most recent ledger entries
	ListTransactions(ctx context.Context, userID string, limit int) ([]*models.WalletTransaction, error)
}

// ReferralRepository defines the interface for referral code and link data access
type ReferralRepository interface {
	// GetCodeByUser returns the code owned by a user, nil when none
	GetCodeByUser(ctx context.Context, userID string) (*models.ReferralCode, error)

	// GetCodeOwner returns the code row for a code value, nil when unknown
	GetCodeOwner(ctx context.Context, code string) (*models.ReferralCode, error)

	// CreateCode stores a new code. Returns false when the code value is already taken.
	CreateCode(ctx context.Context, code *models.ReferralCode) (bool, error)

	// CreateLink stores a referral link. Returns ErrAlreadyLinked when the user already has one.
	CreateLink(ctx context.Context, link *models.ReferralLink) error

	// GetLinkByReferred returns the link of a referred user, nil when unlinked
	GetLinkByReferred(ctx context.Context, referredUserID string) (*models.ReferralLink, error)

	// HasQualifyingActivity reports whether the user already made an FC or ticket purchase
	HasQualifyingActivity(ctx context.Context, userID string) (bool, error)

	// ClaimBonus flips bonus_credited for the user's link if it is still false.
	// Returns nil when there is no link or the bonus was already claimed.
	ClaimBonus(ctx context.Context, referredUserID string) (*models.ReferralLink, error)
}

// CancellationRepository defines the interface for booking cancellation data access
type CancellationRepository interface {
	// Create inserts a processing cancellation. Returns ErrCancellationAlreadyOpen when one is open.
	Create(ctx context.Context, cancellation *models.BookingCancellation) error

	// GetByID retrieves a cancellation, nil when not found
	GetByID(ctx context.Context, id uuid.UUID) (*models.BookingCancellation, error)

	// UpdateStatus sets the status of a cancellation, nil when not found
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.CancellationStatus) (*models.BookingCancellation, error)

	// GetLatestByBooking returns the most recent cancellation of a booking, nil when none
	GetLatestByBooking(ctx context.Context, bookingID string) (*models.BookingCancellation, error)
}

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(event events.Event)
}

// UnitOfWork groups the repositories of one database transaction
type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	GameRepository() GameRepository
	BookRepository() BookRepository
	TicketRepository() TicketRepository
	FortuneCounterRepository() FortuneCounterRepository
	WalletRepository() WalletRepository
	ReferralRepository() ReferralRepository
	CancellationRepository() CancellationRepository
	EventBus() EventPublisher
}

// UnitOfWorkFactory creates units of work
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}

// InventoryService defines the ticket inventory operations
type InventoryService interface {
	// CreateGame registers a game with its ticket price and organizer
	CreateGame(ctx context.Context, identity models.Identity, name string, ticketPrice decimal.Decimal, organizerID string) (*models.Game, error)

	// CreateBook registers a book and materializes its tickets, rejecting overlapping ranges
	CreateBook(ctx context.Context, identity models.Identity, book *models.Book) (*models.Book, error)

	// GetTicket returns a ticket by number
	GetTicket(ctx context.Context, gameID, number int64) (*models.Ticket, error)

	// ListAvailable streams available tickets for a channel in ticket number order
	ListAvailable(ctx context.Context, gameID int64, channel models.Channel) iter.Seq2[*models.Ticket, error]

	// GetGameVersion returns the monotonic version of a game
	GetGameVersion(ctx context.Context, gameID int64) (int64, error)
}

// BookingService defines the ticket purchase operation
type BookingService interface {
	// PurchaseTicket sells an available ticket through a channel
	PurchaseTicket(ctx context.Context, identity models.Identity, gameID, number int64, channel models.Channel, buyer models.BuyerInfo) (*models.Ticket, error)
}

// FortuneCounterService defines the settlement protocol operations
type FortuneCounterService interface {
	// GetCounter returns the current fortune counter of a game
	GetCounter(ctx context.Context, gameID int64) (*models.FortuneCounter, error)

	// RequestSettlement opens a settlement request snapshotting the counter (admin only)
	RequestSettlement(ctx context.Context, identity models.Identity, gameID int64) (*models.FortuneCounterRequest, error)

	// ConfirmSettlement settles the requested tickets (organizer of the game only)
	ConfirmSettlement(ctx context.Context, identity models.Identity, requestID uuid.UUID) (*models.SettlementResult, error)

	// GetPendingRequest returns the open request of a game, nil when idle
	GetPendingRequest(ctx context.Context, gameID int64) (*models.FortuneCounterRequest, error)

	// ListResets returns the settlement history of a game
	ListResets(ctx context.Context, gameID int64, limit int) ([]*models.FortuneCounterReset, error)
}

// WalletService defines the FC wallet operations
type WalletService interface {
	// Credit adds FC to a user's balance, idempotent on key
	Credit(ctx context.Context, userID string, amount int64, reason models.WalletReason, key string) (*models.WalletResult, error)

	// Debit removes FC from a user's balance, idempotent on key
	Debit(ctx context.Context, userID string, amount int64, reason models.WalletReason, key string) (*models.WalletResult, error)

	// PurchaseFC credits purchased FC, idempotent on the payment reference
	PurchaseFC(ctx context.Context, userID string, amount int64, paymentRef string) (*models.WalletResult, error)

	// GetBalance returns the user's current balance
	GetBalance(ctx context.Context, userID string) (int64, error)

	// ListTransactions returns the user's recent ledger entries
	ListTransactions(ctx context.Context, userID string, limit int) ([]*models.WalletTransaction, error)
}

// ReferralService defines the referral operations
type ReferralService interface {
	// GetOrCreateReferralCode returns the user's referral code, issuing one on first use
	GetOrCreateReferralCode(ctx context.Context, userID string) (*models.ReferralCode, error)

	// LinkReferral binds a new user to the owner of a referral code
	LinkReferral(ctx context.Context, newUserID, code string) (*models.ReferralLink, error)

	// OnFirstQualifyingPurchase credits the referrer once; nil when nothing was credited
	OnFirstQualifyingPurchase(ctx context.Context, userID string) (*models.ReferralLink, error)
}

// CancellationService defines the booking cancellation workflow
type CancellationService interface {
	// RequestCancellation opens a processing cancellation for a booking
	RequestCancellation(ctx context.Context, bookingID, reason, details string) (*models.BookingCancellation, error)

	// SetStatus moves a cancellation to a new status
	SetStatus(ctx context.Context, id uuid.UUID, status models.CancellationStatus) (*models.BookingCancellation, error)

	// GetLatestForBooking returns the most recent cancellation of a booking
	GetLatestForBooking(ctx context.Context, bookingID string) (*models.BookingCancellation, error)
}
