package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"bibliobalance/internal/database"
	"bibliobalance/internal/models"
)

// ProfileRepository handles database operations for profiles
type ProfileRepository struct {
	db database.DBTX
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(db database.DBTX) *ProfileRepository {
	return &ProfileRepository{db: db}
}

const profileColumns = `id, email, password_hash, username, avatar_url,
	COALESCE(oauth_provider, ''), COALESCE(oauth_subject, ''), created_at, updated_at`

func scanProfile(s scanner) (*models.Profile, error) {
	p := &models.Profile{}
	var avatar sql.NullString
	err := s.Scan(
		&p.ID,
		&p.Email,
		&p.PasswordHash,
		&p.Username,
		&avatar,
		&p.OAuthProvider,
		&p.OAuthSubject,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.AvatarURL = stringPtr(avatar)
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return p, nil
}

// Create inserts a new profile. It returns ErrDuplicate when the email is taken.
func (r *ProfileRepository) Create(ctx context.Context, p *models.Profile) error {
	ts := now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = ts
	}
	p.UpdatedAt = ts

	query := r.db.GetDialect().InsertOrIgnore(`
		INSERT INTO profiles (id, email, password_hash, username, avatar_url, oauth_provider, oauth_subject, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	res, err := r.db.ExecContext(ctx, query,
		p.ID, p.Email, p.PasswordHash, p.Username, nullString(p.AvatarURL),
		emptyToNull(p.OAuthProvider), emptyToNull(p.OAuthSubject), p.CreatedAt.UTC(), p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create profile: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrDuplicate
	}
	return nil
}

// GetByEmail retrieves a profile by email address
func (r *ProfileRepository) GetByEmail(ctx context.Context, email string) (*models.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE email = ?`
	p, err := scanProfile(r.db.QueryRowContext(ctx, query, email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return p, nil
}

// GetByID retrieves a profile by ID
func (r *ProfileRepository) GetByID(ctx context.Context, id string) (*models.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE id = ?`
	p, err := scanProfile(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return p, nil
}

// GetByOAuth retrieves a profile by OAuth provider and subject
func (r *ProfileRepository) GetByOAuth(ctx context.Context, provider, subject string) (*models.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE oauth_provider = ? AND oauth_subject = ?`
	p, err := scanProfile(r.db.QueryRowContext(ctx, query, provider, subject))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile by oauth: %w", err)
	}
	return p, nil
}

// LinkOAuthProvider attaches an OAuth identity to an existing profile
func (r *ProfileRepository) LinkOAuthProvider(ctx context.Context, id, provider, subject string) error {
	query := `UPDATE profiles SET oauth_provider = ?, oauth_subject = ?, updated_at = ? WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, query, provider, subject, now(), id); err != nil {
		return fmt.Errorf("failed to link oauth provider: %w", err)
	}
	return nil
}

// Update applies the non-nil fields of u and reports whether the profile exists.
func (r *ProfileRepository) Update(ctx context.Context, id string, u models.ProfileUpdate) (bool, error) {
	query := `
		UPDATE profiles
		SET username = COALESCE(?, username),
		    avatar_url = COALESCE(?, avatar_url),
		    updated_at = ?
		WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query, nullString(u.Username), nullString(u.AvatarURL), now(), id)
	if err != nil {
		return false, fmt.Errorf("failed to update profile: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to update profile: %w", err)
	}
	return n > 0, nil
}

// Delete removes a profile; books, stats and challenges cascade.
func (r *ProfileRepository) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM profiles WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete profile: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to delete profile: %w", err)
	}
	return n > 0, nil
}

// List returns every profile, oldest first.
func (r *ProfileRepository) List(ctx context.Context) ([]models.Profile, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+profileColumns+` FROM profiles ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	defer rows.Close()

	profiles := []models.Profile{}
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		profiles = append(profiles, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	return profiles, nil
}

func emptyToNull(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
