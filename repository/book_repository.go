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

// BookRepository implements the BookRepository interface
type BookRepository struct {
	q queryable
}

// NewBookRepository creates a new book repository
func NewBookRepository(db *database.DB) *BookRepository {
	return &BookRepository{q: db.Pool}
}

// newBookRepositoryWithTx creates a new book repository with a transaction
func newBookRepositoryWithTx(tx queryable) *BookRepository {
	return &BookRepository{q: tx}
}

const bookColumns = `id, game_id, book_name, first_ticket_number, last_ticket_number, is_online_available, created_at`

func scanBook(row pgx.Row) (*models.Book, error) {
	var book models.Book
	err := row.Scan(
		&book.ID,
		&book.GameID,
		&book.BookName,
		&book.FirstTicketNumber,
		&book.LastTicketNumber,
		&book.IsOnlineAvailable,
		&book.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// Create inserts a new book
func (r *BookRepository) Create(ctx context.Context, book *models.Book) error {
	query := `
		INSERT INTO books (game_id, book_name, first_ticket_number, last_ticket_number, is_online_available)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query,
		book.GameID,
		book.BookName,
		book.FirstTicketNumber,
		book.LastTicketNumber,
		book.IsOnlineAvailable,
	).Scan(&book.ID, &book.CreatedAt)
	if database.IsCheckViolation(err) {
		return service.ErrInvalidRange
	}
	if err != nil {
		return fmt.Errorf("failed to create book %q: %w", book.BookName, err)
	}

	return nil
}

// GetByID retrieves a book by its ID
func (r *BookRepository) GetByID(ctx context.Context, id int64) (*models.Book, error) {
	query := `SELECT ` + bookColumns + ` FROM books WHERE id = $1`

	book, err := scanBook(r.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get book %d: %w", id, err)
	}

	return book, nil
}

// ListByGame returns all books of a game ordered by first ticket number
func (r *BookRepository) ListByGame(ctx context.Context, gameID int64) ([]*models.Book, error) {
	query := `SELECT ` + bookColumns + ` FROM books WHERE game_id = $1 ORDER BY first_ticket_number`

	return r.queryBooks(ctx, query, gameID)
}

// FindOverlapping returns the books of a game whose inclusive range intersects [first, last]
func (r *BookRepository) FindOverlapping(ctx context.Context, gameID, first, last int64) ([]*models.Book, error) {
	query := `
		SELECT ` + bookColumns + `
		FROM books
		WHERE game_id = $1
		  AND first_ticket_number <= $3
		  AND last_ticket_number >= $2
		ORDER BY first_ticket_number
	`

	return r.queryBooks(ctx, query, gameID, first, last)
}

func (r *BookRepository) queryBooks(ctx context.Context, query string, args ...any) ([]*models.Book, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query books: %w", err)
	}
	defer rows.Close()

	var books []*models.Book
	for rows.Next() {
		book, err := scanBook(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan book: %w", err)
		}
		books = append(books, book)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating books: %w", err)
	}

	return books, nil
}
