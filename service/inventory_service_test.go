package service

import (
	"context"
	"testing"

	"fortune/events"
	"fortune/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	adminIdentity     = models.Identity{UserID: "admin-1", Role: models.RoleAdmin}
	organizerIdentity = models.Identity{UserID: "org-1", Role: models.RoleOrganizer}
	customerIdentity  = models.Identity{UserID: "cust-1", Role: models.RoleCustomer}
)

func testGame() *models.Game {
	return &models.Game{ID: 1, Name: "Diwali Draw", TicketPrice: decimal.NewFromInt(50), OrganizerID: "org-1", Version: 3}
}

func TestInventoryService_CreateGame(t *testing.T) {
	ctx := context.Background()

	t.Run("admin creates a game with its counter", func(t *testing.T) {
		mockFactory, mockUoW := newTestUnitOfWork()
		setupCommittingTransactionMocks(mockUoW)
		svc := NewInventoryService(mockFactory, testConfig())

		mockUoW.Games.On("Create", mock.Anything, mock.AnythingOfType("*models.Game")).
			Run(func(args mock.Arguments) {
				args.Get(1).(*models.Game).ID = 11
			}).
			Return(nil)
		mockUoW.Counters.On("Init", mock.Anything, int64(11)).Return(nil)

		game, err := svc.CreateGame(ctx, adminIdentity, " Diwali Draw ", decimal.RequireFromString("49.999"), "org-1")

		require.NoError(t, err)
		assert.Equal(t, int64(11), game.ID)
		assert.Equal(t, "Diwali Draw", game.Name)
		assert.Equal(t, "50", game.TicketPrice.String())
		mockUoW.AssertRepositoryExpectations(t)
	})

	t.Run("non-admins are refused", func(t *testing.T) {
		mockFactory := new(MockUnitOfWorkFactory)
		svc := NewInventoryService(mockFactory, testConfig())

		_, err := svc.CreateGame(ctx, organizerIdentity, "Draw", decimal.NewFromInt(10), "org-1")
		assert.ErrorIs(t, err, ErrForbidden)
		mockFactory.AssertNotCalled(t, "Create")
	})

	t.Run("negative price", func(t *testing.T) {
		svc := NewInventoryService(new(MockUnitOfWorkFactory), testConfig())

		_, err := svc.CreateGame(ctx, adminIdentity, "Draw", decimal.NewFromInt(-1), "org-1")
		assert.ErrorIs(t, err, ErrInvalidGame)
	})
}

func TestInventoryService_CreateBook(t *testing.T) {
	ctx := context.Background()

	newBook := func(first, last int64) *models.Book {
		return &models.Book{GameID: 1, BookName: "Book B", FirstTicketNumber: first, LastTicketNumber: last, IsOnlineAvailable: true}
	}

	t.Run("organizer registers a non-overlapping book", func(t *testing.T) {
		mockFactory, mockUoW := newTestUnitOfWork()
		setupCommittingTransactionMocks(mockUoW)
		svc := NewInventoryService(mockFactory, testConfig())

		mockUoW.Games.On("GetByIDForUpdate", mock.Anything, int64(1)).Return(testGame(), nil)
		mockUoW.Books.On("FindOverlapping", mock.Anything, int64(1), int64(101), int64(200)).Return([]*models.Book{}, nil)
		mockUoW.Books.On("Create", mock.Anything, mock.AnythingOfType("*models.Book")).
			Run(func(args mock.Arguments) {
				args.Get(1).(*models.Book).ID = 2
			}).
			Return(nil)
		mockUoW.Tickets.On("MaterializeBook", mock.Anything, mock.AnythingOfType("*models.Book")).Return(int64(100), nil)
		mockUoW.Games.On("BumpVersion", mock.Anything, int64(1)).Return(int64(4), nil)
		mockUoW.Events.On("Publish", mock.MatchedBy(func(e events.BookCreatedEvent) bool {
			return e.BookID == 2 && e.TicketCount == 100 && e.Version == 4
		})).Return()

		book, err := svc.CreateBook(ctx, organizerIdentity, newBook(101, 200))

		require.NoError(t, err)
		assert.Equal(t, int64(2), book.ID)
		assert.Equal(t, int64(100), book.Size())
		mockUoW.AssertRepositoryExpectations(t)
	})

	t.Run("overlapping range is rejected", func(t *testing.T) {
		mockFactory, mockUoW := newTestUnitOfWork()
		setupBasicTransactionMocks(mockUoW)
		svc := NewInventoryService(mockFactory, testConfig())

		existing := &models.Book{ID: 1, GameID: 1, BookName: "Book A", FirstTicketNumber: 1, LastTicketNumber: 100}
		mockUoW.Games.On("GetByIDForUpdate", mock.Anything, int64(1)).Return(testGame(), nil)
		mockUoW.Books.On("FindOverlapping", mock.Anything, int64(1), int64(50), int64(150)).Return([]*models.Book{existing}, nil)

		_, err := svc.CreateBook(ctx, adminIdentity, newBook(50, 150))

		assert.ErrorIs(t, err, ErrRangeOverlap)
		mockUoW.Books.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		mockUoW.AssertNotCalled(t, "Commit")
	})

	t.Run("organizer of another game is refused", func(t *testing.T) {
		mockFactory, mockUoW := newTestUnitOfWork()
		setupBasicTransactionMocks(mockUoW)
		svc := NewInventoryService(mockFactory, testConfig())

		mockUoW.Games.On("GetByIDForUpdate", mock.Anything, int64(1)).Return(testGame(), nil)

		other := models.Identity{UserID: "org-2", Role: models.RoleOrganizer}
		_, err := svc.CreateBook(ctx, other, newBook(1, 10))

		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("unknown game", func(t *testing.T) {
		mockFactory, mockUoW := newTestUnitOfWork()
		setupBasicTransactionMocks(mockUoW)
		svc := NewInventoryService(mockFactory, testConfig())

		mockUoW.Games.On("GetByIDForUpdate", mock.Anything, int64(1)).Return(nil, nil)

		_, err := svc.CreateBook(ctx, adminIdentity, newBook(1, 10))

		assert.ErrorIs(t, err, ErrGameNotFound)
	})

	t.Run("invalid ranges", func(t *testing.T) {
		cfg := testConfig()
		cfg.MaxBookSize = 1000
		svc := NewInventoryService(new(MockUnitOfWorkFactory), cfg)

		tests := []struct {
			name string
			book *models.Book
		}{
			{"first after last", newBook(10, 5)},
			{"zero first number", newBook(0, 5)},
			{"too many tickets", newBook(1, 1001)},
			{"missing name", &models.Book{GameID: 1, FirstTicketNumber: 1, LastTicketNumber: 5}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := svc.CreateBook(ctx, adminIdentity, tt.book)
				assert.ErrorIs(t, err, ErrInvalidRange)
			})
		}
	})
}

func TestInventoryService_ListAvailable(t *testing.T) {
	ctx := context.Background()

	page := func(numbers ...int64) []*models.Ticket {
		tickets := make([]*models.Ticket, 0, len(numbers))
		for _, n := range numbers {
			tickets = append(tickets, availableTicket(n, n, true))
		}
		return tickets
	}

	newService := func() (InventoryService, *MockUnitOfWork) {
		cfg := testConfig()
		cfg.ListPageSize = 2
		mockFactory, mockUoW := newTestUnitOfWork()
		setupBasicTransactionMocks(mockUoW)
		return NewInventoryService(mockFactory, cfg), mockUoW
	}

	t.Run("pages until a short page", func(t *testing.T) {
		svc, mockUoW := newService()
		mockUoW.Tickets.On("ListAvailablePage", mock.Anything, int64(1), true, int64(0), 2).Return(page(1, 2), nil)
		mockUoW.Tickets.On("ListAvailablePage", mock.Anything, int64(1), true, int64(2), 2).Return(page(4), nil)

		var numbers []int64
		for ticket, err := range svc.ListAvailable(ctx, 1, models.ChannelOnline) {
			require.NoError(t, err)
			numbers = append(numbers, ticket.TicketNumber)
		}

		assert.Equal(t, []int64{1, 2, 4}, numbers)
		mockUoW.Tickets.AssertExpectations(t)
	})

	t.Run("offline lists every available ticket", func(t *testing.T) {
		svc, mockUoW := newService()
		mockUoW.Tickets.On("ListAvailablePage", mock.Anything, int64(1), false, int64(0), 2).Return(page(), nil)

		count := 0
		for _, err := range svc.ListAvailable(ctx, 1, models.ChannelOffline) {
			require.NoError(t, err)
			count++
		}
		assert.Zero(t, count)
	})

	t.Run("stopping early fetches no further pages", func(t *testing.T) {
		svc, mockUoW := newService()
		mockUoW.Tickets.On("ListAvailablePage", mock.Anything, int64(1), true, int64(0), 2).Return(page(1, 2), nil)

		for ticket, err := range svc.ListAvailable(ctx, 1, models.ChannelOnline) {
			require.NoError(t, err)
			assert.Equal(t, int64(1), ticket.TicketNumber)
			break
		}

		mockUoW.Tickets.AssertNumberOfCalls(t, "ListAvailablePage", 1)
	})

	t.Run("invalid channel yields an error", func(t *testing.T) {
		svc, _ := newService()

		for ticket, err := range svc.ListAvailable(ctx, 1, models.Channel("fax")) {
			assert.Nil(t, ticket)
			assert.ErrorIs(t, err, ErrInvalidChannel)
		}
	})
}

func TestInventoryService_GetGameVersion(t *testing.T) {
	ctx := context.Background()

	mockFactory, mockUoW := newTestUnitOfWork()
	setupBasicTransactionMocks(mockUoW)
	svc := NewInventoryService(mockFactory, testConfig())

	mockUoW.Games.On("GetByID", mock.Anything, int64(1)).Return(testGame(), nil)
	mockUoW.Games.On("GetByID", mock.Anything, int64(2)).Return(nil, nil)

	version, err := svc.GetGameVersion(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(3), version)

	_, err = svc.GetGameVersion(ctx, 2)
	assert.ErrorIs(t, err, ErrGameNotFound)
}
