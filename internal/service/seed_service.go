package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"bibliobalance/internal/models"
)

// Demo account created by SeedDemo.
const (
	DemoEmail    = "demo@bibliobalance.com"
	DemoPassword = "demo123"
	DemoUsername = "BookLover"
	DemoStreak   = 7
)

const demoAvatarURL = "https://api.dicebear.com/7.x/avataaars/svg?seed=BookLover"

type demoBook struct {
	title, author, coverID, description, genre string
	pageCount, currentPage                     int
	status                                     models.BookStatus
	favorite                                   bool
	rating                                     int
}

var demoBooks = []demoBook{
	{"The Pragmatic Programmer", "David Thomas & Andrew Hunt", "8091016", "A guide to becoming a better programmer through practical advice and timeless principles.", "Technology", 352, 180, models.StatusCurrentlyReading, true, 0},
	{"Atomic Habits", "James Clear", "10958382", "An easy and proven way to build good habits and break bad ones.", "Self-Help", 320, 95, models.StatusCurrentlyReading, false, 0},
	{"Clean Code", "Robert C. Martin", "8503380", "A handbook of agile software craftsmanship.", "Technology", 464, 464, models.StatusCompleted, true, 5},
	{"The Design of Everyday Things", "Don Norman", "8127984", "A powerful primer on how and why some products satisfy customers.", "Design", 368, 368, models.StatusCompleted, false, 4},
	{"Thinking, Fast and Slow", "Daniel Kahneman", "8256494", "A tour of the mind and the two systems that drive the way we think.", "Psychology", 499, 499, models.StatusCompleted, true, 5},
	{"Sapiens: A Brief History of Humankind", "Yuval Noah Harari", "8406786", "A narrative of humanity's creation and evolution.", "History", 443, 443, models.StatusCompleted, false, 4},
	{"Deep Work", "Cal Newport", "8091153", "Rules for focused success in a distracted world.", "Productivity", 296, 296, models.StatusCompleted, true, 5},
	{"System Design Interview", "Alex Xu", "12649369", "An insider's guide to system design interviews.", "Technology", 320, 0, models.StatusWantToRead, false, 0},
	{"The Psychology of Money", "Morgan Housel", "10381858", "Timeless lessons on wealth, greed, and happiness.", "Finance", 256, 0, models.StatusWantToRead, false, 0},
	{"Refactoring", "Martin Fowler", "8544298", "Improving the design of existing code.", "Technology", 448, 0, models.StatusWantToRead, true, 0},
}

// SeedResult summarises a SeedDemo run.
type SeedResult struct {
	Profile   *models.Profile
	Created   bool
	Books     int
	Stats     *models.ReadingStats
	Challenge *models.ReadingChallenge
}

// SeedService fills the database with a demo account.
type SeedService struct {
	auth     *AuthService
	profiles ProfileStore
	books    *BookService
	stats    *StatsService
	logger   *zap.Logger
	now      func() time.Time
}

// NewSeedService creates a new seed service
func NewSeedService(auth *AuthService, profiles ProfileStore, books *BookService, stats *StatsService, logger *zap.Logger) *SeedService {
	return &SeedService{
		auth:     auth,
		profiles: profiles,
		books:    books,
		stats:    stats,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// SeedDemo creates the demo account if needed and replaces its library with
// the sample books. Running it again resets the demo library.
func (s *SeedService) SeedDemo(ctx context.Context) (*SeedResult, error) {
	res := &SeedResult{}

	profile, err := s.profiles.GetByEmail(ctx, DemoEmail)
	if err != nil {
		return nil, fmt.Errorf("failed to lookup demo profile: %w", err)
	}
	if profile == nil {
		auth, err := s.auth.Register(ctx, DemoEmail, DemoPassword, DemoUsername)
		if err != nil {
			return nil, fmt.Errorf("failed to create demo profile: %w", err)
		}
		profile = auth.Profile
		res.Created = true

		avatar := demoAvatarURL
		if _, err := s.profiles.Update(ctx, profile.ID, models.ProfileUpdate{AvatarURL: &avatar}); err != nil {
			return nil, fmt.Errorf("failed to set demo avatar: %w", err)
		}
		profile.AvatarURL = &avatar
		s.logger.Info("Created demo profile", zap.String("email", DemoEmail))
	}
	res.Profile = profile

	existing, err := s.books.List(ctx, profile.ID)
	if err != nil {
		return nil, err
	}
	for _, b := range existing {
		if err := s.books.Delete(ctx, profile.ID, b.ID); err != nil {
			return nil, fmt.Errorf("failed to clear demo book %s: %w", b.ID, err)
		}
	}

	now := s.now()
	for i, sample := range demoBooks {
		if _, err := s.books.Create(ctx, profile.ID, sample.newBook(now, i)); err != nil {
			return nil, fmt.Errorf("failed to add demo book %q: %w", sample.title, err)
		}
		res.Books++
	}

	if _, err := s.stats.GetOrCreateChallenge(ctx, profile.ID, 0); err != nil {
		return nil, err
	}
	if err := s.stats.Refresh(ctx, profile.ID); err != nil {
		return nil, err
	}
	streak := DemoStreak
	if res.Stats, err = s.stats.UpdateExternalStats(ctx, profile.ID, models.ReadingStatsUpdate{CurrentStreak: &streak}); err != nil {
		return nil, err
	}
	if res.Challenge, err = s.stats.GetOrCreateChallenge(ctx, profile.ID, 0); err != nil {
		return nil, err
	}
	return res, nil
}

// newBook spreads reading dates over the last few weeks so the monthly
// breakdown has something to show.
func (d demoBook) newBook(now time.Time, i int) models.NewBook {
	cover := "https://covers.openlibrary.org/b/id/" + d.coverID + "-L.jpg"
	description, genre := d.description, d.genre
	nb := models.NewBook{
		Title:       d.title,
		Author:      d.author,
		CoverImage:  &cover,
		Description: &description,
		Genre:       &genre,
		PageCount:   d.pageCount,
		CurrentPage: d.currentPage,
		Status:      d.status,
		IsFavorite:  d.favorite,
	}
	if d.rating > 0 {
		rating := d.rating
		nb.Rating = &rating
	}
	if d.status != models.StatusWantToRead {
		started := now.AddDate(0, 0, -(30 + 7*i))
		nb.StartedReading = &started
	}
	if d.status == models.StatusCompleted {
		finished := now.AddDate(0, 0, -3*i)
		nb.FinishedReading = &finished
	}
	return nb
}
