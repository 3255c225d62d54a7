package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"bibliobalance/internal/metrics"
	"bibliobalance/internal/models"
	"bibliobalance/internal/repository"
	"bibliobalance/internal/security"
	"bibliobalance/internal/stats"
	"bibliobalance/internal/validation"
)

// DefaultChallengeTarget is the target of a lazily created challenge.
const DefaultChallengeTarget = 24

// StatsService owns the persisted reading stats and yearly challenges.
// Derived values are always recomputed from the user's full library.
type StatsService struct {
	books    BookLister
	stats    StatsStore
	profiles ProfileStore
	mailer   Mailer
	logger   *zap.Logger
	now      func() time.Time
}

// NewStatsService creates a new stats service. profiles and mailer may be
// nil, which disables challenge notifications.
func NewStatsService(books BookLister, store StatsStore, profiles ProfileStore, mailer Mailer, logger *zap.Logger) *StatsService {
	return &StatsService{
		books:    books,
		stats:    store,
		profiles: profiles,
		mailer:   mailer,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *StatsService) currentYear() int {
	return s.now().Year()
}

// GetStats returns the user's stats, creating the row on first access and
// refreshing the derived fields.
func (s *StatsService) GetStats(ctx context.Context, userID string) (*models.ReadingStats, error) {
	books, err := s.books.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.saveStats(ctx, userID, stats.Compute(books))
}

func (s *StatsService) saveStats(ctx context.Context, userID string, sum stats.Summary) (*models.ReadingStats, error) {
	st, err := s.ensureStats(ctx, userID)
	if err != nil {
		return nil, err
	}

	st.BooksRead = sum.BooksRead
	st.TotalPages = sum.TotalPages
	st.AverageRating = sum.AverageRating
	if err := s.stats.SaveDerived(ctx, st); err != nil {
		return nil, err
	}
	return st, nil
}

func (s *StatsService) ensureStats(ctx context.Context, userID string) (*models.ReadingStats, error) {
	st, err := s.stats.GetStats(ctx, userID)
	if err != nil {
		return nil, err
	}
	if st != nil {
		return st, nil
	}

	st = &models.ReadingStats{ID: security.NewID(), UserID: userID}
	if _, err := s.stats.CreateStats(ctx, st); err != nil {
		return nil, err
	}
	// Another request may have created the row first.
	st, err = s.stats.GetStats(ctx, userID)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, fmt.Errorf("reading stats for user %s missing after create", userID)
	}
	return st, nil
}

// UpdateExternalStats stores the client-supplied reading time and streak.
func (s *StatsService) UpdateExternalStats(ctx context.Context, userID string, u models.ReadingStatsUpdate) (*models.ReadingStats, error) {
	if err := validation.ValidateStruct(u); err != nil {
		return nil, err
	}
	if _, err := s.ensureStats(ctx, userID); err != nil {
		return nil, err
	}
	if err := s.stats.SaveExternal(ctx, userID, u); err != nil {
		return nil, err
	}
	return s.GetStats(ctx, userID)
}

// GetOrCreateChallenge returns the user's challenge for year. A missing
// challenge is created with the default target, so a "get" may write.
func (s *StatsService) GetOrCreateChallenge(ctx context.Context, userID string, year int) (*models.ReadingChallenge, error) {
	if year == 0 {
		year = s.currentYear()
	}
	c, err := s.stats.GetChallenge(ctx, userID, year)
	if err != nil {
		return nil, err
	}
	if c != nil {
		return c, nil
	}

	c = &models.ReadingChallenge{
		ID:     security.NewID(),
		UserID: userID,
		Name:   fmt.Sprintf("%d Reading Challenge", year),
		Target: DefaultChallengeTarget,
		Year:   year,
	}
	err = s.stats.CreateChallenge(ctx, c)
	if errors.Is(err, repository.ErrDuplicate) {
		return s.lookupChallenge(ctx, userID, year)
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *StatsService) lookupChallenge(ctx context.Context, userID string, year int) (*models.ReadingChallenge, error) {
	c, err := s.stats.GetChallenge(ctx, userID, year)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, fmt.Errorf("reading challenge %d for user %s missing after create", year, userID)
	}
	return c, nil
}

// ListChallenges returns all challenges of the user, newest year first.
func (s *StatsService) ListChallenges(ctx context.Context, userID string) ([]models.ReadingChallenge, error) {
	return s.stats.ListChallenges(ctx, userID)
}

// CreateChallenge creates a named challenge. The year defaults to the
// current year and progress starts from the user's completed books.
func (s *StatsService) CreateChallenge(ctx context.Context, userID string, nc models.NewChallenge) (*models.ReadingChallenge, error) {
	nc.Name = strings.TrimSpace(nc.Name)
	if nc.Target < 1 {
		return nil, ErrInvalidTarget
	}
	if err := validation.ValidateStruct(nc); err != nil {
		return nil, err
	}
	if nc.Year == 0 {
		nc.Year = s.currentYear()
	}

	books, err := s.books.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	current := stats.Compute(books).BooksRead

	c := &models.ReadingChallenge{
		ID:         security.NewID(),
		UserID:     userID,
		Name:       nc.Name,
		Target:     nc.Target,
		Current:    current,
		Percentage: stats.ChallengePercentage(current, nc.Target),
		Year:       nc.Year,
	}
	err = s.stats.CreateChallenge(ctx, c)
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, ErrChallengeExists
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// UpdateChallengeTarget changes the target of the current year's challenge.
// Targets below 1 are rejected before anything is read or written. The
// current count is left untouched.
func (s *StatsService) UpdateChallengeTarget(ctx context.Context, userID string, target int) (*models.ReadingChallenge, error) {
	if target < 1 {
		return nil, ErrInvalidTarget
	}

	c, err := s.GetOrCreateChallenge(ctx, userID, s.currentYear())
	if err != nil {
		return nil, err
	}
	wasComplete := c.IsComplete()

	c.Target = target
	c.Percentage = stats.ChallengePercentage(c.Current, c.Target)
	if err := s.stats.UpdateChallenge(ctx, c); err != nil {
		return nil, err
	}
	if !wasComplete && c.IsComplete() {
		s.challengeCompleted(ctx, c)
	}
	return c, nil
}

// RecomputeChallengeProgress sets the current year's challenge progress to
// the number of completed books in the library.
func (s *StatsService) RecomputeChallengeProgress(ctx context.Context, userID string) (*models.ReadingChallenge, error) {
	books, err := s.books.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.recomputeChallenge(ctx, userID, stats.Compute(books).BooksRead)
}

func (s *StatsService) recomputeChallenge(ctx context.Context, userID string, booksRead int) (*models.ReadingChallenge, error) {
	c, err := s.GetOrCreateChallenge(ctx, userID, s.currentYear())
	if err != nil {
		return nil, err
	}
	wasComplete := c.IsComplete()

	c.Current = booksRead
	c.Percentage = stats.ChallengePercentage(c.Current, c.Target)
	if err := s.stats.UpdateChallenge(ctx, c); err != nil {
		return nil, err
	}
	if !wasComplete && c.IsComplete() {
		s.challengeCompleted(ctx, c)
	}
	return c, nil
}

// Refresh recomputes the stats row and the current challenge from the
// library in one pass.
func (s *StatsService) Refresh(ctx context.Context, userID string) error {
	books, err := s.books.ListByUser(ctx, userID)
	if err != nil {
		return err
	}
	sum := stats.Compute(books)
	if _, err := s.saveStats(ctx, userID, sum); err != nil {
		return err
	}
	_, err = s.recomputeChallenge(ctx, userID, sum.BooksRead)
	return err
}

// MonthlyBreakdown returns the 12 monthly buckets of year. A zero year means
// the current year.
func (s *StatsService) MonthlyBreakdown(ctx context.Context, userID string, year int) ([]models.MonthlyStat, error) {
	if year == 0 {
		year = s.currentYear()
	}
	books, err := s.books.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return stats.MonthlyBreakdown(books, year), nil
}

// GenreDistribution returns the completed-book count per genre.
func (s *StatsService) GenreDistribution(ctx context.Context, userID string) ([]models.GenreCount, error) {
	books, err := s.books.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return stats.GenreDistribution(books), nil
}

func (s *StatsService) challengeCompleted(ctx context.Context, c *models.ReadingChallenge) {
	metrics.ChallengesCompleted.Inc()
	s.logger.Info("Reading challenge completed",
		zap.String("user_id", c.UserID),
		zap.Int("year", c.Year),
		zap.Int("target", c.Target))

	if s.mailer == nil || s.profiles == nil {
		return
	}
	profile, err := s.profiles.GetByID(ctx, c.UserID)
	if err != nil || profile == nil {
		s.logger.Warn("Failed to load profile for challenge email", zap.Error(err), zap.String("user_id", c.UserID))
		return
	}
	if err := s.mailer.SendChallengeCompletedEmail(ctx, profile.Email, profile.Username, c); err != nil {
		s.logger.Warn("Failed to send challenge email", zap.Error(err), zap.String("user_id", c.UserID))
	}
}
