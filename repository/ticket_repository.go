package repository

import (
	"context"
	"errors"
	"fmt"

	"fortune/database"
	"fortune/models"

	"github.com/jackc/pgx/v5"
)

// TicketRepository implements the TicketRepository interface
type TicketRepository struct {
	q queryable
}

// NewTicketRepository creates a new ticket repository
func NewTicketRepository(db *database.DB) *TicketRepository {
	return &TicketRepository{q: db.Pool}
}

// newTicketRepositoryWithTx creates a new ticket repository with a transaction
func newTicketRepositoryWithTx(tx queryable) *TicketRepository {
	return &TicketRepository{q: tx}
}

const ticketColumns = `t.id, t.game_id, t.book_id, t.ticket_number, t.status,
	t.booked_by_name, t.booked_by_phone, t.booked_by_email, t.booked_by_address, t.booked_by_identity,
	t.booked_at, t.sale_seq, t.settled_at`

func ticketScanTargets(ticket *models.Ticket) []any {
	return []any{
		&ticket.ID,
		&ticket.GameID,
		&ticket.BookID,
		&ticket.TicketNumber,
		&ticket.Status,
		&ticket.BookedByName,
		&ticket.BookedByPhone,
		&ticket.BookedByEmail,
		&ticket.BookedByAddress,
		&ticket.BookedByIdentity,
		&ticket.BookedAt,
		&ticket.SaleSeq,
		&ticket.SettledAt,
	}
}

// MaterializeBook creates one available ticket per number of the book's range
func (r *TicketRepository) MaterializeBook(ctx context.Context, book *models.Book) (int64, error) {
	query := `
		INSERT INTO tickets (game_id, book_id, ticket_number)
		SELECT $1, $2, n FROM generate_series($3::BIGINT, $4::BIGINT) AS n
	`

	result, err := r.q.Exec(ctx, query, book.GameID, book.ID, book.FirstTicketNumber, book.LastTicketNumber)
	if err != nil {
		return 0, fmt.Errorf("failed to materialize tickets for book %d: %w", book.ID, err)
	}

	return result.RowsAffected(), nil
}

// GetByNumber retrieves a ticket together with its book's online flag
func (r *TicketRepository) GetByNumber(ctx context.Context, gameID, number int64) (*models.Ticket, error) {
	query := `
		SELECT ` + ticketColumns + `, b.is_online_available
		FROM tickets t
		JOIN books b ON b.id = t.book_id
		WHERE t.game_id = $1 AND t.ticket_number = $2
	`

	var ticket models.Ticket
	targets := append(ticketScanTargets(&ticket), &ticket.OnlineAvailable)
	err := r.q.QueryRow(ctx, query, gameID, number).Scan(targets...)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ticket %d of game %d: %w", number, gameID, err)
	}

	return &ticket, nil
}

// MarkSold is the compare-and-set for a sale: the row only changes while its
// status is still available, so exactly one concurrent caller gets a row back.
func (r *TicketRepository) MarkSold(ctx context.Context, gameID, number int64, channel models.Channel, buyer models.BuyerInfo, identityKey string) (*models.Ticket, error) {
	query := `
		UPDATE tickets t
		SET status = $3,
			booked_by_name = $4,
			booked_by_phone = NULLIF($5, ''),
			booked_by_email = NULLIF($6, ''),
			booked_by_address = NULLIF($7, ''),
			booked_by_identity = $8,
			booked_at = clock_timestamp()
		WHERE t.game_id = $1
		  AND t.ticket_number = $2
		  AND t.status = 'available'
		RETURNING ` + ticketColumns

	var ticket models.Ticket
	err := r.q.QueryRow(ctx, query,
		gameID,
		number,
		channel.SoldStatus(),
		buyer.Name,
		buyer.Phone,
		buyer.Email,
		buyer.Address,
		identityKey,
	).Scan(ticketScanTargets(&ticket)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to mark ticket %d of game %d sold: %w", number, gameID, err)
	}

	return &ticket, nil
}

// SetSaleSeq records the ticket's position in the game's online sales order
func (r *TicketRepository) SetSaleSeq(ctx context.Context, ticketID, saleSeq int64) error {
	result, err := r.q.Exec(ctx, `UPDATE tickets SET sale_seq = $2 WHERE id = $1`, ticketID, saleSeq)
	if err != nil {
		return fmt.Errorf("failed to set sale sequence of ticket %d: %w", ticketID, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("ticket %d not found", ticketID)
	}
	return nil
}

// ListAvailablePage returns up to limit available tickets numbered after afterNumber.
// With onlineOnly set, tickets of books closed to the online channel are skipped.
func (r *TicketRepository) ListAvailablePage(ctx context.Context, gameID int64, onlineOnly bool, afterNumber int64, limit int) ([]*models.Ticket, error) {
	query := `
		SELECT ` + ticketColumns + `, b.is_online_available
		FROM tickets t
		JOIN books b ON b.id = t.book_id
		WHERE t.game_id = $1
		  AND t.status = 'available'
		  AND t.ticket_number > $2
		  AND (NOT $3 OR b.is_online_available)
		ORDER BY t.ticket_number
		LIMIT $4
	`

	rows, err := r.q.Query(ctx, query, gameID, afterNumber, onlineOnly, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list available tickets of game %d: %w", gameID, err)
	}
	defer rows.Close()

	tickets := make([]*models.Ticket, 0, limit)
	for rows.Next() {
		var ticket models.Ticket
		targets := append(ticketScanTargets(&ticket), &ticket.OnlineAvailable)
		if err := rows.Scan(targets...); err != nil {
			return nil, fmt.Errorf("failed to scan ticket: %w", err)
		}
		tickets = append(tickets, &ticket)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tickets: %w", err)
	}

	return tickets, nil
}

// SettleOldestOnline marks up to limit sold_online tickets with sale_seq <= maxSeq
// as paid_settled, oldest sale first, and returns how many were marked
func (r *TicketRepository) SettleOldestOnline(ctx context.Context, gameID, maxSeq, limit int64) (int64, error) {
	query := `
		UPDATE tickets
		SET status = 'paid_settled', settled_at = NOW()
		WHERE id IN (
			SELECT id
			FROM tickets
			WHERE game_id = $1
			  AND status = 'sold_online'
			  AND sale_seq <= $2
			ORDER BY sale_seq, booked_at
			LIMIT $3
			FOR UPDATE
		)
	`

	result, err := r.q.Exec(ctx, query, gameID, maxSeq, limit)
	if err != nil {
		return 0, fmt.Errorf("failed to settle tickets of game %d: %w", gameID, err)
	}

	return result.RowsAffected(), nil
}

// CountByStatus returns the number of tickets of a game in the given status
func (r *TicketRepository) CountByStatus(ctx context.Context, gameID int64, status models.TicketStatus) (int64, error) {
	var count int64
	err := r.q.QueryRow(ctx,
		`SELECT COUNT(*) FROM tickets WHERE game_id = $1 AND status = $2`,
		gameID, status,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count %s tickets of game %d: %w", status, gameID, err)
	}
	return count, nil
}
