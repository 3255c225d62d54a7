package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"bibliobalance/internal/database"
	"bibliobalance/internal/models"
)

// BookRepository handles database operations for books. Every query is
// scoped to the owning user.
type BookRepository struct {
	db database.DBTX
}

// NewBookRepository creates a new book repository
func NewBookRepository(db database.DBTX) *BookRepository {
	return &BookRepository{db: db}
}

const bookColumns = `id, user_id, title, author, cover_image, description, genre,
	page_count, current_page, progress_percentage, status, rating, is_favorite,
	started_reading, finished_reading, date_added, last_updated`

func scanBook(s scanner) (*models.Book, error) {
	b := &models.Book{}
	var (
		cover, description, genre sql.NullString
		progress                  sql.NullFloat64
		rating                    sql.NullInt64
		started, finished         sql.NullTime
		status                    string
	)
	err := s.Scan(
		&b.ID,
		&b.UserID,
		&b.Title,
		&b.Author,
		&cover,
		&description,
		&genre,
		&b.PageCount,
		&b.CurrentPage,
		&progress,
		&status,
		&rating,
		&b.IsFavorite,
		&started,
		&finished,
		&b.DateAdded,
		&b.LastUpdated,
	)
	if err != nil {
		return nil, err
	}

	b.Status = models.BookStatus(status)
	b.CoverImage = stringPtr(cover)
	b.Description = stringPtr(description)
	b.Genre = stringPtr(genre)
	b.ProgressPercentage = floatPtr(progress)
	b.Rating = intPtr(rating)
	b.StartedReading = timePtr(started)
	b.FinishedReading = timePtr(finished)
	b.DateAdded = b.DateAdded.UTC()
	b.LastUpdated = b.LastUpdated.UTC()
	return b, nil
}

func (r *BookRepository) list(ctx context.Context, where string, args ...any) ([]models.Book, error) {
	query := `SELECT ` + bookColumns + ` FROM books WHERE ` + where + ` ORDER BY last_updated DESC, id`
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list books: %w", err)
	}
	defer rows.Close()

	books := []models.Book{}
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan book: %w", err)
		}
		books = append(books, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list books: %w", err)
	}
	return books, nil
}

// ListByUser returns every book owned by userID, most recently updated first.
func (r *BookRepository) ListByUser(ctx context.Context, userID string) ([]models.Book, error) {
	return r.list(ctx, `user_id = ?`, userID)
}

// ListByStatus returns the user's books with the given status.
func (r *BookRepository) ListByStatus(ctx context.Context, userID string, status models.BookStatus) ([]models.Book, error) {
	return r.list(ctx, `user_id = ? AND status = ?`, userID, string(status))
}

// ListFavorites returns the user's favorite books.
func (r *BookRepository) ListFavorites(ctx context.Context, userID string) ([]models.Book, error) {
	return r.list(ctx, `user_id = ? AND is_favorite = ?`, userID, true)
}

// ListAll returns every book of every user. Used for backups.
func (r *BookRepository) ListAll(ctx context.Context) ([]models.Book, error) {
	return r.list(ctx, `1 = 1`)
}

// Get retrieves a book owned by userID. It returns nil, nil when the book
// does not exist or belongs to someone else.
func (r *BookRepository) Get(ctx context.Context, userID, id string) (*models.Book, error) {
	query := `SELECT ` + bookColumns + ` FROM books WHERE id = ? AND user_id = ?`
	b, err := scanBook(r.db.QueryRowContext(ctx, query, id, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get book: %w", err)
	}
	return b, nil
}

// Create inserts a book. DateAdded and LastUpdated are set when zero.
func (r *BookRepository) Create(ctx context.Context, b *models.Book) error {
	ts := now()
	if b.DateAdded.IsZero() {
		b.DateAdded = ts
	}
	if b.LastUpdated.IsZero() {
		b.LastUpdated = ts
	}

	query := `
		INSERT INTO books (` + bookColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		b.ID,
		b.UserID,
		b.Title,
		b.Author,
		nullString(b.CoverImage),
		nullString(b.Description),
		nullString(b.Genre),
		b.PageCount,
		b.CurrentPage,
		nullFloat(b.ProgressPercentage),
		string(b.Status),
		nullInt(b.Rating),
		b.IsFavorite,
		nullTime(b.StartedReading),
		nullTime(b.FinishedReading),
		b.DateAdded.UTC(),
		b.LastUpdated.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to create book: %w", err)
	}
	return nil
}

// bookUpdateColumns fixes the order in which SET clauses are generated.
var bookUpdateColumns = []struct {
	field  models.BookField
	column string
	value  func(u *models.BookUpdate) any
}{
	{models.FieldTitle, "title", func(u *models.BookUpdate) any { return u.Title }},
	{models.FieldAuthor, "author", func(u *models.BookUpdate) any { return u.Author }},
	{models.FieldCoverImage, "cover_image", func(u *models.BookUpdate) any { return nullString(u.CoverImage) }},
	{models.FieldDescription, "description", func(u *models.BookUpdate) any { return nullString(u.Description) }},
	{models.FieldGenre, "genre", func(u *models.BookUpdate) any { return nullString(u.Genre) }},
	{models.FieldPageCount, "page_count", func(u *models.BookUpdate) any { return u.PageCount }},
	{models.FieldCurrentPage, "current_page", func(u *models.BookUpdate) any { return u.CurrentPage }},
	{models.FieldProgressPercentage, "progress_percentage", func(u *models.BookUpdate) any { return nullFloat(u.ProgressPercentage) }},
	{models.FieldStatus, "status", func(u *models.BookUpdate) any { return string(u.Status) }},
	{models.FieldRating, "rating", func(u *models.BookUpdate) any { return nullInt(u.Rating) }},
	{models.FieldIsFavorite, "is_favorite", func(u *models.BookUpdate) any { return u.IsFavorite }},
	{models.FieldStartedReading, "started_reading", func(u *models.BookUpdate) any { return nullTime(u.StartedReading) }},
	{models.FieldFinishedReading, "finished_reading", func(u *models.BookUpdate) any { return nullTime(u.FinishedReading) }},
}

// Update writes the fields present in u and refreshes last_updated. It
// reports whether a book owned by userID was found.
func (r *BookRepository) Update(ctx context.Context, userID, id string, u models.BookUpdate, at time.Time) (bool, error) {
	sets := make([]string, 0, len(bookUpdateColumns)+1)
	args := make([]any, 0, len(bookUpdateColumns)+3)
	for _, c := range bookUpdateColumns {
		if !u.Has(c.field) {
			continue
		}
		sets = append(sets, c.column+" = ?")
		args = append(args, c.value(&u))
	}
	sets = append(sets, "last_updated = ?")
	args = append(args, at.UTC(), id, userID)

	query := `UPDATE books SET ` + strings.Join(sets, ", ") + ` WHERE id = ? AND user_id = ?`
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to update book: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to update book: %w", err)
	}
	return n > 0, nil
}

// Delete removes a book owned by userID and reports whether it existed.
func (r *BookRepository) Delete(ctx context.Context, userID, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM books WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return false, fmt.Errorf("failed to delete book: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to delete book: %w", err)
	}
	return n > 0, nil
}

// ExistsByTitleAuthor reports whether the user already has a book with
// exactly this title and author.
func (r *BookRepository) ExistsByTitleAuthor(ctx context.Context, userID, title, author string) (bool, error) {
	var count int
	query := `SELECT COUNT(*) FROM books WHERE user_id = ? AND title = ? AND author = ?`
	if err := r.db.QueryRowContext(ctx, query, userID, title, author).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check book: %w", err)
	}
	return count > 0, nil
}
