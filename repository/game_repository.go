package repository

import (
	"context"
	"errors"
	"fmt"

	"fortune/database"
	"fortune/models"
	"fortune/service"

	"github.com/jackc/pgx/v5"
)

// GameRepository implements the GameRepository interface
type GameRepository struct {
	q queryable
}

// NewGameRepository creates a new game repository
func NewGameRepository(db *database.DB) *GameRepository {
	return &GameRepository{q: db.Pool}
}

// newGameRepositoryWithTx creates a new game repository with a transaction
func newGameRepositoryWithTx(tx queryable) *GameRepository {
	return &GameRepository{q: tx}
}

const gameColumns = `id, name, ticket_price, organizer_id, version, created_at, updated_at`

func scanGame(row pgx.Row) (*models.Game, error) {
	var game models.Game
	err := row.Scan(
		&game.ID,
		&game.Name,
		&game.TicketPrice,
		&game.OrganizerID,
		&game.Version,
		&game.CreatedAt,
		&game.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &game, nil
}

// Create inserts a new game and fills in its generated fields
func (r *GameRepository) Create(ctx context.Context, game *models.Game) error {
	query := `
		INSERT INTO games (name, ticket_price, organizer_id)
		VALUES ($1, $2, $3)
		RETURNING id, version, created_at, updated_at
	`

	err := r.q.QueryRow(ctx, query, game.Name, game.TicketPrice, game.OrganizerID).Scan(
		&game.ID,
		&game.Version,
		&game.CreatedAt,
		&game.UpdatedAt,
	)
	if database.IsCheckViolation(err) {
		return service.ErrInvalidGame
	}
	if err != nil {
		return fmt.Errorf("failed to create game: %w", err)
	}

	return nil
}

// GetByID retrieves a game by its ID
func (r *GameRepository) GetByID(ctx context.Context, id int64) (*models.Game, error) {
	query := `SELECT ` + gameColumns + ` FROM games WHERE id = $1`

	game, err := scanGame(r.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get game %d: %w", id, err)
	}

	return game, nil
}

// GetByIDForUpdate retrieves a game and locks its row until the transaction ends
func (r *GameRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.Game, error) {
	query := `SELECT ` + gameColumns + ` FROM games WHERE id = $1 FOR UPDATE`

	game, err := scanGame(r.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock game %d: %w", id, err)
	}

	return game, nil
}

// BumpVersion increments the game's version and returns the new value
func (r *GameRepository) BumpVersion(ctx context.Context, id int64) (int64, error) {
	query := `
		UPDATE games
		SET version = version + 1, updated_at = NOW()
		WHERE id = $1
		RETURNING version
	`

	var version int64
	err := r.q.QueryRow(ctx, query, id).Scan(&version)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("game %d not found", id)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to bump version of game %d: %w", id, err)
	}

	return version, nil
}
