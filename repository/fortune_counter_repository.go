package repository

import (
	"context"
	"errors"
	"fmt"

	"fortune/database"
	"fortune/models"
	"fortune/service"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// FortuneCounterRepository implements the FortuneCounterRepository interface
type FortuneCounterRepository struct {
	q queryable
}

// NewFortuneCounterRepository creates a new fortune counter repository
func NewFortuneCounterRepository(db *database.DB) *FortuneCounterRepository {
	return &FortuneCounterRepository{q: db.Pool}
}

// newFortuneCounterRepositoryWithTx creates a new fortune counter repository with a transaction
func newFortuneCounterRepositoryWithTx(tx queryable) *FortuneCounterRepository {
	return &FortuneCounterRepository{q: tx}
}

const (
	counterColumns = `game_id, ticket_count, sales_seq, updated_at`
	requestColumns = `id, game_id, ticket_count, amount_due, snapshot_seq, status,
		requested_by, confirmed_by, created_at, confirmed_at`
	resetColumns = `id, game_id, request_id, reset_date, ticket_count`

	pendingRequestIndex = "fortune_counter_requests_one_pending"
)

func scanCounter(row pgx.Row) (*models.FortuneCounter, error) {
	var counter models.FortuneCounter
	if err := row.Scan(&counter.GameID, &counter.TicketCount, &counter.SalesSeq, &counter.UpdatedAt); err != nil {
		return nil, err
	}
	return &counter, nil
}

func scanRequest(row pgx.Row) (*models.FortuneCounterRequest, error) {
	var request models.FortuneCounterRequest
	err := row.Scan(
		&request.ID,
		&request.GameID,
		&request.TicketCount,
		&request.AmountDue,
		&request.SnapshotSeq,
		&request.Status,
		&request.RequestedBy,
		&request.ConfirmedBy,
		&request.CreatedAt,
		&request.ConfirmedAt,
	)
	if err != nil {
		return nil, err
	}
	return &request, nil
}

func scanReset(row pgx.Row) (*models.FortuneCounterReset, error) {
	var reset models.FortuneCounterReset
	if err := row.Scan(&reset.ID, &reset.GameID, &reset.RequestID, &reset.ResetDate, &reset.TicketCount); err != nil {
		return nil, err
	}
	return &reset, nil
}

// Init creates the zeroed counter row for a game if it does not exist
func (r *FortuneCounterRepository) Init(ctx context.Context, gameID int64) error {
	_, err := r.q.Exec(ctx,
		`INSERT INTO fortune_counters (game_id) VALUES ($1) ON CONFLICT (game_id) DO NOTHING`,
		gameID,
	)
	if err != nil {
		return fmt.Errorf("failed to initialize fortune counter for game %d: %w", gameID, err)
	}
	return nil
}

// Get returns the counter of a game
func (r *FortuneCounterRepository) Get(ctx context.Context, gameID int64) (*models.FortuneCounter, error) {
	counter, err := scanCounter(r.q.QueryRow(ctx,
		`SELECT `+counterColumns+` FROM fortune_counters WHERE game_id = $1`, gameID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get fortune counter for game %d: %w", gameID, err)
	}
	return counter, nil
}

// GetForUpdate returns the counter and locks its row until the transaction ends
func (r *FortuneCounterRepository) GetForUpdate(ctx context.Context, gameID int64) (*models.FortuneCounter, error) {
	counter, err := scanCounter(r.q.QueryRow(ctx,
		`SELECT `+counterColumns+` FROM fortune_counters WHERE game_id = $1 FOR UPDATE`, gameID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock fortune counter for game %d: %w", gameID, err)
	}
	return counter, nil
}

// Increment records one online sale and returns the updated counter.
// sales_seq is assigned under the row lock, which makes it the settlement barrier.
func (r *FortuneCounterRepository) Increment(ctx context.Context, gameID int64) (*models.FortuneCounter, error) {
	query := `
		UPDATE fortune_counters
		SET ticket_count = ticket_count + 1,
			sales_seq = sales_seq + 1,
			updated_at = NOW()
		WHERE game_id = $1
		RETURNING ` + counterColumns

	counter, err := scanCounter(r.q.QueryRow(ctx, query, gameID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("fortune counter for game %d not found", gameID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to increment fortune counter for game %d: %w", gameID, err)
	}
	return counter, nil
}

// Decrement subtracts n from the counter, refusing to go below zero
func (r *FortuneCounterRepository) Decrement(ctx context.Context, gameID, n int64) (*models.FortuneCounter, error) {
	query := `
		UPDATE fortune_counters
		SET ticket_count = ticket_count - $2,
			updated_at = NOW()
		WHERE game_id = $1 AND ticket_count >= $2
		RETURNING ` + counterColumns

	counter, err := scanCounter(r.q.QueryRow(ctx, query, gameID, n))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, service.ErrCounterInvariant
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decrement fortune counter for game %d: %w", gameID, err)
	}
	return counter, nil
}

// CreateRequest inserts a pending request; the partial unique index rejects a second one
func (r *FortuneCounterRepository) CreateRequest(ctx context.Context, request *models.FortuneCounterRequest) error {
	query := `
		INSERT INTO fortune_counter_requests (id, game_id, ticket_count, amount_due, snapshot_seq, status, requested_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`

	err := r.q.QueryRow(ctx, query,
		request.ID,
		request.GameID,
		request.TicketCount,
		request.AmountDue,
		request.SnapshotSeq,
		request.Status,
		request.RequestedBy,
	).Scan(&request.CreatedAt)
	if database.IsUniqueViolation(err, pendingRequestIndex) {
		return service.ErrRequestAlreadyPending
	}
	if err != nil {
		return fmt.Errorf("failed to create settlement request for game %d: %w", request.GameID, err)
	}

	return nil
}

// GetRequestByID retrieves a request
func (r *FortuneCounterRepository) GetRequestByID(ctx context.Context, id uuid.UUID) (*models.FortuneCounterRequest, error) {
	request, err := scanRequest(r.q.QueryRow(ctx,
		`SELECT `+requestColumns+` FROM fortune_counter_requests WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get settlement request %s: %w", id, err)
	}
	return request, nil
}

// GetRequestForUpdate retrieves a request and locks its row
func (r *FortuneCounterRepository) GetRequestForUpdate(ctx context.Context, id uuid.UUID) (*models.FortuneCounterRequest, error) {
	request, err := scanRequest(r.q.QueryRow(ctx,
		`SELECT `+requestColumns+` FROM fortune_counter_requests WHERE id = $1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock settlement request %s: %w", id, err)
	}
	return request, nil
}

// GetPendingRequest returns the pending request of a game
func (r *FortuneCounterRepository) GetPendingRequest(ctx context.Context, gameID int64) (*models.FortuneCounterRequest, error) {
	request, err := scanRequest(r.q.QueryRow(ctx,
		`SELECT `+requestColumns+` FROM fortune_counter_requests WHERE game_id = $1 AND status = 'pending'`, gameID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pending settlement request for game %d: %w", gameID, err)
	}
	return request, nil
}

// MarkRequestConfirmed confirms a pending request. A request that is not pending
// any more yields ErrRequestAlreadyConfirmed.
func (r *FortuneCounterRepository) MarkRequestConfirmed(ctx context.Context, id uuid.UUID, confirmedBy string) (*models.FortuneCounterRequest, error) {
	query := `
		UPDATE fortune_counter_requests
		SET status = 'confirmed', confirmed_by = $2, confirmed_at = NOW()
		WHERE id = $1 AND status = 'pending'
		RETURNING ` + requestColumns

	request, err := scanRequest(r.q.QueryRow(ctx, query, id, confirmedBy))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, service.ErrRequestAlreadyConfirmed
	}
	if err != nil {
		return nil, fmt.Errorf("failed to confirm settlement request %s: %w", id, err)
	}
	return request, nil
}

// CreateReset appends the audit record of a confirmed settlement
func (r *FortuneCounterRepository) CreateReset(ctx context.Context, reset *models.FortuneCounterReset) error {
	query := `
		INSERT INTO fortune_counter_resets (game_id, request_id, ticket_count)
		VALUES ($1, $2, $3)
		RETURNING id, reset_date
	`

	err := r.q.QueryRow(ctx, query, reset.GameID, reset.RequestID, reset.TicketCount).Scan(&reset.ID, &reset.ResetDate)
	if err != nil {
		return fmt.Errorf("failed to append fortune counter reset for request %s: %w", reset.RequestID, err)
	}
	return nil
}

// GetResetByRequest returns the reset written for a request
func (r *FortuneCounterRepository) GetResetByRequest(ctx context.Context, requestID uuid.UUID) (*models.FortuneCounterReset, error) {
	reset, err := scanReset(r.q.QueryRow(ctx,
		`SELECT `+resetColumns+` FROM fortune_counter_resets WHERE request_id = $1`, requestID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get fortune counter reset for request %s: %w", requestID, err)
	}
	return reset, nil
}

// ListResets returns the most recent resets of a game
func (r *FortuneCounterRepository) ListResets(ctx context.Context, gameID int64, limit int) ([]*models.FortuneCounterReset, error) {
	rows, err := r.q.Query(ctx,
		`SELECT `+resetColumns+` FROM fortune_counter_resets WHERE game_id = $1 ORDER BY reset_date DESC, id DESC LIMIT $2`,
		gameID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list fortune counter resets for game %d: %w", gameID, err)
	}
	defer rows.Close()

	var resets []*models.FortuneCounterReset
	for rows.Next() {
		reset, err := scanReset(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan fortune counter reset: %w", err)
		}
		resets = append(resets, reset)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating fortune counter resets: %w", err)
	}

	return resets, nil
}
