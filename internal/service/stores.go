package service

import (
	"context"
	"errors"
	"time"

	"bibliobalance/internal/models"
)

var (
	ErrEmailTaken         = errors.New("email already taken")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrProfileNotFound    = errors.New("profile not found")
	ErrBookNotFound       = errors.New("book not found")
	ErrBookExists         = errors.New("book already in library")
	ErrInvalidTarget      = errors.New("challenge target must be at least 1")
	ErrChallengeExists    = errors.New("challenge already exists for this year")
)

// ProfileStore persists profiles.
type ProfileStore interface {
	Create(ctx context.Context, p *models.Profile) error
	GetByID(ctx context.Context, id string) (*models.Profile, error)
	GetByEmail(ctx context.Context, email string) (*models.Profile, error)
	GetByOAuth(ctx context.Context, provider, subject string) (*models.Profile, error)
	LinkOAuthProvider(ctx context.Context, id, provider, subject string) error
	Update(ctx context.Context, id string, u models.ProfileUpdate) (bool, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// BookLister reads a user's whole library.
type BookLister interface {
	ListByUser(ctx context.Context, userID string) ([]models.Book, error)
}

// BookStore persists books. Lookups return nil, nil for books that do not
// exist or belong to another user.
type BookStore interface {
	BookLister
	ListByStatus(ctx context.Context, userID string, status models.BookStatus) ([]models.Book, error)
	ListFavorites(ctx context.Context, userID string) ([]models.Book, error)
	Get(ctx context.Context, userID, id string) (*models.Book, error)
	Create(ctx context.Context, b *models.Book) error
	Update(ctx context.Context, userID, id string, u models.BookUpdate, at time.Time) (bool, error)
	Delete(ctx context.Context, userID, id string) (bool, error)
	ExistsByTitleAuthor(ctx context.Context, userID, title, author string) (bool, error)
}

// StatsStore persists reading stats and challenges.
type StatsStore interface {
	GetStats(ctx context.Context, userID string) (*models.ReadingStats, error)
	CreateStats(ctx context.Context, st *models.ReadingStats) (bool, error)
	SaveDerived(ctx context.Context, st *models.ReadingStats) error
	SaveExternal(ctx context.Context, userID string, u models.ReadingStatsUpdate) error
	GetChallenge(ctx context.Context, userID string, year int) (*models.ReadingChallenge, error)
	CreateChallenge(ctx context.Context, c *models.ReadingChallenge) error
	UpdateChallenge(ctx context.Context, c *models.ReadingChallenge) error
	ListChallenges(ctx context.Context, userID string) ([]models.ReadingChallenge, error)
}

// Mailer sends account notifications. A nil Mailer disables them.
type Mailer interface {
	SendWelcomeEmail(ctx context.Context, toEmail, username string) error
	SendChallengeCompletedEmail(ctx context.Context, toEmail, username string, c *models.ReadingChallenge) error
}

// StatsRefresher recomputes derived statistics after library changes.
type StatsRefresher interface {
	Refresh(ctx context.Context, userID string) error
}
