package testutil

import (
	"context"
	"testing"

	"fortune/models"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// CreateTestGame creates an in-memory game with default values
func CreateTestGame(name, organizerID string) *models.Game {
	return &models.Game{
		Name:        name,
		TicketPrice: decimal.NewFromInt(50),
		OrganizerID: organizerID,
	}
}

// CreateTestBook creates an in-memory book for a game
func CreateTestBook(gameID int64, name string, first, last int64, online bool) *models.Book {
	return &models.Book{
		GameID:            gameID,
		BookName:          name,
		FirstTicketNumber: first,
		LastTicketNumber:  last,
		IsOnlineAvailable: online,
	}
}

// SeedGame inserts a game with its zeroed fortune counter and returns its id
func SeedGame(t *testing.T, td *TestDatabase, organizerID string, price decimal.Decimal) int64 {
	t.Helper()

	var gameID int64
	err := td.DB.WithTransaction(context.Background(), func(tx pgx.Tx) error {
		err := tx.QueryRow(context.Background(),
			`INSERT INTO games (name, ticket_price, organizer_id) VALUES ($1, $2, $3) RETURNING id`,
			"Test Raffle", price, organizerID,
		).Scan(&gameID)
		if err != nil {
			return err
		}
		_, err = tx.Exec(context.Background(), `INSERT INTO fortune_counters (game_id) VALUES ($1)`, gameID)
		return err
	})
	require.NoError(t, err)

	return gameID
}

// SeedBook inserts a book with all of its tickets available and returns its id
func SeedBook(t *testing.T, td *TestDatabase, gameID int64, name string, first, last int64, online bool) int64 {
	t.Helper()

	var bookID int64
	err := td.DB.WithTransaction(context.Background(), func(tx pgx.Tx) error {
		err := tx.QueryRow(context.Background(),
			`INSERT INTO books (game_id, book_name, first_ticket_number, last_ticket_number, is_online_available)
			 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
			gameID, name, first, last, online,
		).Scan(&bookID)
		if err != nil {
			return err
		}
		_, err = tx.Exec(context.Background(),
			`INSERT INTO tickets (game_id, book_id, ticket_number)
			 SELECT $1, $2, n FROM generate_series($3::BIGINT, $4::BIGINT) AS n`,
			gameID, bookID, first, last,
		)
		return err
	})
	require.NoError(t, err)

	return bookID
}

// SeedBalance sets a user's FC balance directly
func SeedBalance(t *testing.T, td *TestDatabase, userID string, balance int64) {
	t.Helper()

	_, err := td.DB.Exec(context.Background(),
		`INSERT INTO fc_balances (user_id, balance) VALUES ($1, $2)
		 ON CONFLICT (user_id) DO UPDATE SET balance = EXCLUDED.balance`,
		userID, balance,
	)
	require.NoError(t, err)
}

// SeedReferralCode assigns a referral code to a user
func SeedReferralCode(t *testing.T, td *TestDatabase, userID, code string) {
	t.Helper()

	_, err := td.DB.Exec(context.Background(),
		`INSERT INTO referral_codes (user_id, code) VALUES ($1, $2)`,
		userID, code,
	)
	require.NoError(t, err)
}
