package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"bibliobalance/internal/database"
	"bibliobalance/internal/models"
)

// StatsRepository handles reading_stats and reading_challenges rows
type StatsRepository struct {
	db database.DBTX
}

// NewStatsRepository creates a new stats repository
func NewStatsRepository(db database.DBTX) *StatsRepository {
	return &StatsRepository{db: db}
}

const statsColumns = `id, user_id, books_read, total_pages, reading_time, current_streak, average_rating, last_updated`

func scanStats(s scanner) (*models.ReadingStats, error) {
	st := &models.ReadingStats{}
	err := s.Scan(
		&st.ID,
		&st.UserID,
		&st.BooksRead,
		&st.TotalPages,
		&st.ReadingTime,
		&st.CurrentStreak,
		&st.AverageRating,
		&st.LastUpdated,
	)
	if err != nil {
		return nil, err
	}
	st.LastUpdated = st.LastUpdated.UTC()
	return st, nil
}

// GetStats retrieves the stats row of a user, or nil, nil if none exists.
func (r *StatsRepository) GetStats(ctx context.Context, userID string) (*models.ReadingStats, error) {
	query := `SELECT ` + statsColumns + ` FROM reading_stats WHERE user_id = ?`
	st, err := scanStats(r.db.QueryRowContext(ctx, query, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reading stats: %w", err)
	}
	return st, nil
}

// CreateStats inserts a stats row unless the user already has one. It
// reports whether a row was inserted.
func (r *StatsRepository) CreateStats(ctx context.Context, st *models.ReadingStats) (bool, error) {
	if st.LastUpdated.IsZero() {
		st.LastUpdated = now()
	}
	query := r.db.GetDialect().InsertOrIgnore(`
		INSERT INTO reading_stats (` + statsColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	res, err := r.db.ExecContext(ctx, query,
		st.ID, st.UserID, st.BooksRead, st.TotalPages, st.ReadingTime,
		st.CurrentStreak, st.AverageRating, st.LastUpdated.UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("failed to create reading stats: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to create reading stats: %w", err)
	}
	return n > 0, nil
}

// SaveDerived stores the library-derived stats fields.
func (r *StatsRepository) SaveDerived(ctx context.Context, st *models.ReadingStats) error {
	st.LastUpdated = now()
	query := `
		UPDATE reading_stats
		SET books_read = ?, total_pages = ?, average_rating = ?, last_updated = ?
		WHERE user_id = ?`
	_, err := r.db.ExecContext(ctx, query, st.BooksRead, st.TotalPages, st.AverageRating, st.LastUpdated, st.UserID)
	if err != nil {
		return fmt.Errorf("failed to save reading stats: %w", err)
	}
	return nil
}

// SaveExternal stores the non-nil client-supplied stats fields.
func (r *StatsRepository) SaveExternal(ctx context.Context, userID string, u models.ReadingStatsUpdate) error {
	query := `
		UPDATE reading_stats
		SET reading_time = COALESCE(?, reading_time),
		    current_streak = COALESCE(?, current_streak),
		    last_updated = ?
		WHERE user_id = ?`
	_, err := r.db.ExecContext(ctx, query, nullInt(u.ReadingTime), nullInt(u.CurrentStreak), now(), userID)
	if err != nil {
		return fmt.Errorf("failed to update reading stats: %w", err)
	}
	return nil
}

// ListAllStats returns every stats row. Used for backups.
func (r *StatsRepository) ListAllStats(ctx context.Context) ([]models.ReadingStats, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+statsColumns+` FROM reading_stats ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list reading stats: %w", err)
	}
	defer rows.Close()

	out := []models.ReadingStats{}
	for rows.Next() {
		st, err := scanStats(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reading stats: %w", err)
		}
		out = append(out, *st)
	}
	return out, rows.Err()
}

const challengeColumns = `id, user_id, name, target, current, percentage, year, created_at, updated_at`

func scanChallenge(s scanner) (*models.ReadingChallenge, error) {
	c := &models.ReadingChallenge{}
	err := s.Scan(
		&c.ID,
		&c.UserID,
		&c.Name,
		&c.Target,
		&c.Current,
		&c.Percentage,
		&c.Year,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()
	return c, nil
}

// GetChallenge retrieves the challenge of a user for a year, or nil, nil.
func (r *StatsRepository) GetChallenge(ctx context.Context, userID string, year int) (*models.ReadingChallenge, error) {
	query := `SELECT ` + challengeColumns + ` FROM reading_challenges WHERE user_id = ? AND year = ?`
	c, err := scanChallenge(r.db.QueryRowContext(ctx, query, userID, year))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reading challenge: %w", err)
	}
	return c, nil
}

// CreateChallenge inserts a challenge. It returns ErrDuplicate when the user
// already has one for that year.
func (r *StatsRepository) CreateChallenge(ctx context.Context, c *models.ReadingChallenge) error {
	ts := now()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = ts
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = ts
	}
	query := r.db.GetDialect().InsertOrIgnore(`
		INSERT INTO reading_challenges (` + challengeColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	res, err := r.db.ExecContext(ctx, query,
		c.ID, c.UserID, c.Name, c.Target, c.Current, c.Percentage, c.Year, c.CreatedAt.UTC(), c.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to create reading challenge: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to create reading challenge: %w", err)
	}
	if n == 0 {
		return ErrDuplicate
	}
	return nil
}

// UpdateChallenge stores target, current and percentage of a challenge.
func (r *StatsRepository) UpdateChallenge(ctx context.Context, c *models.ReadingChallenge) error {
	c.UpdatedAt = now()
	query := `
		UPDATE reading_challenges
		SET target = ?, current = ?, percentage = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`
	_, err := r.db.ExecContext(ctx, query, c.Target, c.Current, c.Percentage, c.UpdatedAt, c.ID, c.UserID)
	if err != nil {
		return fmt.Errorf("failed to update reading challenge: %w", err)
	}
	return nil
}

// ListChallenges returns all challenges of a user, newest year first.
func (r *StatsRepository) ListChallenges(ctx context.Context, userID string) ([]models.ReadingChallenge, error) {
	return r.listChallenges(ctx, `WHERE user_id = ? ORDER BY year DESC`, userID)
}

// ListAllChallenges returns every challenge. Used for backups.
func (r *StatsRepository) ListAllChallenges(ctx context.Context) ([]models.ReadingChallenge, error) {
	return r.listChallenges(ctx, `ORDER BY user_id, year`)
}

func (r *StatsRepository) listChallenges(ctx context.Context, tail string, args ...any) ([]models.ReadingChallenge, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+challengeColumns+` FROM reading_challenges `+tail, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list reading challenges: %w", err)
	}
	defer rows.Close()

	out := []models.ReadingChallenge{}
	for rows.Next() {
		c, err := scanChallenge(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reading challenge: %w", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}
