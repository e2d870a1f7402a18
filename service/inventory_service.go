package service

import (
	"context"
	"fmt"
	"iter"
	"strings"

	"fortune/config"
	"fortune/database"
	"fortune/events"
	"fortune/models"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

type inventoryService struct {
	uowFactory UnitOfWorkFactory
	config     *config.Config
}

// NewInventoryService creates a new ticket inventory service
func NewInventoryService(uowFactory UnitOfWorkFactory, cfg *config.Config) InventoryService {
	return &inventoryService{
		uowFactory: uowFactory,
		config:     cfg,
	}
}

// CreateGame creates a game and its zeroed fortune counter
func (s *inventoryService) CreateGame(ctx context.Context, identity models.Identity, name string, ticketPrice decimal.Decimal, organizerID string) (*models.Game, error) {
	if identity.Role != models.RoleAdmin {
		return nil, ErrForbidden
	}
	name = strings.TrimSpace(name)
	if name == "" || organizerID == "" || ticketPrice.IsNegative() {
		return nil, ErrInvalidGame
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	game := &models.Game{
		Name:        name,
		TicketPrice: ticketPrice.Round(2),
		OrganizerID: organizerID,
	}
	if err := uow.GameRepository().Create(ctx, game); err != nil {
		return nil, fmt.Errorf("failed to create game: %w", err)
	}

	if err := uow.FortuneCounterRepository().Init(ctx, game.ID); err != nil {
		return nil, fmt.Errorf("failed to initialize fortune counter: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"gameID":      game.ID,
		"organizerID": organizerID,
		"ticketPrice": game.TicketPrice.String(),
	}).Info("Game created")

	return game, nil
}

// CreateBook registers a ticket range and materializes its tickets
func (s *inventoryService) CreateBook(ctx context.Context, identity models.Identity, book *models.Book) (*models.Book, error) {
	book.BookName = strings.TrimSpace(book.BookName)
	if book.BookName == "" || book.FirstTicketNumber < 1 || book.FirstTicketNumber > book.LastTicketNumber {
		return nil, ErrInvalidRange
	}
	if book.Size() > s.config.MaxBookSize {
		return nil, ErrInvalidRange
	}

	var created *models.Book
	err := database.Retry(ctx, s.config.TxMaxRetries, func() error {
		var err error
		created, err = s.createBook(ctx, identity, book)
		return err
	})
	if err != nil {
		return nil, err
	}

	return created, nil
}

func (s *inventoryService) createBook(ctx context.Context, identity models.Identity, book *models.Book) (*models.Book, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	// The game row lock serializes book registration per game so the overlap
	// check below cannot race another insert.
	game, err := uow.GameRepository().GetByIDForUpdate(ctx, book.GameID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock game: %w", err)
	}
	if game == nil {
		return nil, ErrGameNotFound
	}
	if !canManageGame(identity, game) {
		return nil, ErrForbidden
	}

	overlapping, err := uow.BookRepository().FindOverlapping(ctx, book.GameID, book.FirstTicketNumber, book.LastTicketNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to check book overlap: %w", err)
	}
	if len(overlapping) > 0 {
		log.WithFields(log.Fields{
			"gameID":      book.GameID,
			"first":       book.FirstTicketNumber,
			"last":        book.LastTicketNumber,
			"conflicting": overlapping[0].BookName,
		}).Debug("Rejected overlapping book")
		return nil, ErrRangeOverlap
	}

	created := *book
	if err := uow.BookRepository().Create(ctx, &created); err != nil {
		return nil, fmt.Errorf("failed to create book: %w", err)
	}

	count, err := uow.TicketRepository().MaterializeBook(ctx, &created)
	if err != nil {
		return nil, fmt.Errorf("failed to materialize tickets: %w", err)
	}

	version, err := uow.GameRepository().BumpVersion(ctx, game.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to bump game version: %w", err)
	}

	uow.EventBus().Publish(events.BookCreatedEvent{
		GameID:      game.ID,
		BookID:      created.ID,
		BookName:    created.BookName,
		TicketCount: count,
		Version:     version,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &created, nil
}

// GetTicket returns a single ticket by its number within the game
func (s *inventoryService) GetTicket(ctx context.Context, gameID, number int64) (*models.Ticket, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	ticket, err := uow.TicketRepository().GetByNumber(ctx, gameID, number)
	if err != nil {
		return nil, fmt.Errorf("failed to get ticket: %w", err)
	}
	if ticket == nil {
		return nil, ErrTicketNotFound
	}

	return ticket, nil
}

// ListAvailable pages through available tickets by ticket number. Each page is
// read in its own short transaction, so a long iteration never pins a
// connection and tickets sold mid-iteration simply stop appearing.
// Ranging over the returned sequence again starts from the first ticket.
func (s *inventoryService) ListAvailable(ctx context.Context, gameID int64, channel models.Channel) iter.Seq2[*models.Ticket, error] {
	pageSize := s.config.ListPageSize
	if pageSize <= 0 {
		pageSize = 100
	}

	return func(yield func(*models.Ticket, error) bool) {
		if !channel.IsValid() {
			yield(nil, ErrInvalidChannel)
			return
		}

		after := int64(0)
		for {
			page, err := s.availablePage(ctx, gameID, channel == models.ChannelOnline, after, pageSize)
			if err != nil {
				yield(nil, err)
				return
			}

			for _, ticket := range page {
				if !yield(ticket, nil) {
					return
				}
			}

			if len(page) < pageSize {
				return
			}
			after = page[len(page)-1].TicketNumber
		}
	}
}

func (s *inventoryService) availablePage(ctx context.Context, gameID int64, onlineOnly bool, after int64, limit int) ([]*models.Ticket, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	page, err := uow.TicketRepository().ListAvailablePage(ctx, gameID, onlineOnly, after, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list available tickets: %w", err)
	}

	return page, nil
}

// GetGameVersion returns the game's change version, bumped whenever its tickets or counter change
func (s *inventoryService) GetGameVersion(ctx context.Context, gameID int64) (int64, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	game, err := uow.GameRepository().GetByID(ctx, gameID)
	if err != nil {
		return 0, fmt.Errorf("failed to get game: %w", err)
	}
	if game == nil {
		return 0, ErrGameNotFound
	}

	return game.Version, nil
}

// canManageGame reports whether the identity may register books for a game
func canManageGame(identity models.Identity, game *models.Game) bool {
	if identity.Role == models.RoleAdmin {
		return true
	}
	return identity.Role == models.RoleOrganizer && identity.UserID != "" && identity.UserID == game.OrganizerID
}
