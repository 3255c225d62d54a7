package service

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"sync"
	"time"

	"bibliobalance/internal/models"
	"bibliobalance/internal/repository"
)

var errStoreDown = errors.New("store unavailable")

type fakeProfileStore struct {
	mu       sync.Mutex
	profiles map[string]*models.Profile
}

func newFakeProfileStore() *fakeProfileStore {
	return &fakeProfileStore{profiles: map[string]*models.Profile{}}
}

func (f *fakeProfileStore) Create(_ context.Context, p *models.Profile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.profiles {
		if existing.Email == p.Email {
			return repository.ErrDuplicate
		}
	}
	cp := *p
	f.profiles[p.ID] = &cp
	return nil
}

func (f *fakeProfileStore) GetByID(_ context.Context, id string) (*models.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.profiles[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeProfileStore) GetByEmail(_ context.Context, email string) (*models.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.profiles {
		if p.Email == email {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeProfileStore) GetByOAuth(_ context.Context, provider, subject string) (*models.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.profiles {
		if p.OAuthProvider == provider && p.OAuthSubject == subject {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeProfileStore) LinkOAuthProvider(_ context.Context, id, provider, subject string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.profiles[id]; ok {
		p.OAuthProvider, p.OAuthSubject = provider, subject
	}
	return nil
}

func (f *fakeProfileStore) Update(_ context.Context, id string, u models.ProfileUpdate) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[id]
	if !ok {
		return false, nil
	}
	if u.Username != nil {
		p.Username = *u.Username
	}
	if u.AvatarURL != nil {
		p.AvatarURL = u.AvatarURL
	}
	return true, nil
}

func (f *fakeProfileStore) Delete(_ context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.profiles[id]
	delete(f.profiles, id)
	return ok, nil
}

type fakeBookStore struct {
	mu    sync.Mutex
	books map[string]*models.Book
	err   error
}

func newFakeBookStore() *fakeBookStore {
	return &fakeBookStore{books: map[string]*models.Book{}}
}

func (f *fakeBookStore) list(userID string, keep func(*models.Book) bool) ([]models.Book, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := []models.Book{}
	for _, b := range f.books {
		if b.UserID == userID && keep(b) {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeBookStore) ListByUser(_ context.Context, userID string) ([]models.Book, error) {
	return f.list(userID, func(*models.Book) bool { return true })
}

func (f *fakeBookStore) ListByStatus(_ context.Context, userID string, status models.BookStatus) ([]models.Book, error) {
	return f.list(userID, func(b *models.Book) bool { return b.Status == status })
}

func (f *fakeBookStore) ListFavorites(_ context.Context, userID string) ([]models.Book, error) {
	return f.list(userID, func(b *models.Book) bool { return b.IsFavorite })
}

func (f *fakeBookStore) Get(_ context.Context, userID, id string) (*models.Book, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	b, ok := f.books[id]
	if !ok || b.UserID != userID {
		return nil, nil
	}
	cp := *b
	return &cp, nil
}

func (f *fakeBookStore) Create(_ context.Context, b *models.Book) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	cp := *b
	f.books[b.ID] = &cp
	return nil
}

func (f *fakeBookStore) Update(_ context.Context, userID, id string, u models.BookUpdate, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	b, ok := f.books[id]
	if !ok || b.UserID != userID {
		return false, nil
	}
	applyBookUpdate(b, u)
	b.LastUpdated = at
	return true, nil
}

func applyBookUpdate(b *models.Book, u models.BookUpdate) {
	if u.Has(models.FieldTitle) {
		b.Title = u.Title
	}
	if u.Has(models.FieldAuthor) {
		b.Author = u.Author
	}
	if u.Has(models.FieldCoverImage) {
		b.CoverImage = u.CoverImage
	}
	if u.Has(models.FieldDescription) {
		b.Description = u.Description
	}
	if u.Has(models.FieldGenre) {
		b.Genre = u.Genre
	}
	if u.Has(models.FieldPageCount) {
		b.PageCount = u.PageCount
	}
	if u.Has(models.FieldCurrentPage) {
		b.CurrentPage = u.CurrentPage
	}
	if u.Has(models.FieldProgressPercentage) {
		b.ProgressPercentage = u.ProgressPercentage
	}
	if u.Has(models.FieldStatus) {
		b.Status = u.Status
	}
	if u.Has(models.FieldRating) {
		b.Rating = u.Rating
	}
	if u.Has(models.FieldIsFavorite) {
		b.IsFavorite = u.IsFavorite
	}
	if u.Has(models.FieldStartedReading) {
		b.StartedReading = u.StartedReading
	}
	if u.Has(models.FieldFinishedReading) {
		b.FinishedReading = u.FinishedReading
	}
}

func (f *fakeBookStore) Delete(_ context.Context, userID, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.books[id]
	if !ok || b.UserID != userID {
		return false, nil
	}
	delete(f.books, id)
	return true, nil
}

func (f *fakeBookStore) ExistsByTitleAuthor(_ context.Context, userID, title, author string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range f.books {
		if b.UserID == userID && b.Title == title && b.Author == author {
			return true, nil
		}
	}
	return false, nil
}

type fakeStatsStore struct {
	mu             sync.Mutex
	stats          map[string]*models.ReadingStats
	challenges     map[string]*models.ReadingChallenge
	challengeCalls int
	updateCalls    int
}

func newFakeStatsStore() *fakeStatsStore {
	return &fakeStatsStore{
		stats:      map[string]*models.ReadingStats{},
		challenges: map[string]*models.ReadingChallenge{},
	}
}

func (f *fakeStatsStore) GetStats(_ context.Context, userID string) (*models.ReadingStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if st, ok := f.stats[userID]; ok {
		cp := *st
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeStatsStore) CreateStats(_ context.Context, st *models.ReadingStats) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.stats[st.UserID]; ok {
		return false, nil
	}
	cp := *st
	f.stats[st.UserID] = &cp
	return true, nil
}

func (f *fakeStatsStore) SaveDerived(_ context.Context, st *models.ReadingStats) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.stats[st.UserID]
	if !ok {
		return nil
	}
	row.BooksRead, row.TotalPages, row.AverageRating = st.BooksRead, st.TotalPages, st.AverageRating
	return nil
}

func (f *fakeStatsStore) SaveExternal(_ context.Context, userID string, u models.ReadingStatsUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.stats[userID]
	if !ok {
		return nil
	}
	if u.ReadingTime != nil {
		row.ReadingTime = *u.ReadingTime
	}
	if u.CurrentStreak != nil {
		row.CurrentStreak = *u.CurrentStreak
	}
	return nil
}

func challengeKey(userID string, year int) string {
	return userID + "/" + strconv.Itoa(year)
}

func (f *fakeStatsStore) GetChallenge(_ context.Context, userID string, year int) (*models.ReadingChallenge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.challengeCalls++
	if c, ok := f.challenges[challengeKey(userID, year)]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeStatsStore) CreateChallenge(_ context.Context, c *models.ReadingChallenge) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := challengeKey(c.UserID, c.Year)
	if _, ok := f.challenges[key]; ok {
		return repository.ErrDuplicate
	}
	cp := *c
	f.challenges[key] = &cp
	return nil
}

func (f *fakeStatsStore) UpdateChallenge(_ context.Context, c *models.ReadingChallenge) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateCalls++
	key := challengeKey(c.UserID, c.Year)
	if row, ok := f.challenges[key]; ok {
		row.Target, row.Current, row.Percentage = c.Target, c.Current, c.Percentage
	}
	return nil
}

func (f *fakeStatsStore) ListChallenges(_ context.Context, userID string) ([]models.ReadingChallenge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.ReadingChallenge{}
	for _, c := range f.challenges {
		if c.UserID == userID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Year > out[j].Year })
	return out, nil
}

type sentEmail struct {
	kind  string
	to    string
	name  string
	title string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentEmail
	err  error
}

func (f *fakeMailer) SendWelcomeEmail(_ context.Context, toEmail, username string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentEmail{kind: "welcome", to: toEmail, name: username})
	return f.err
}

func (f *fakeMailer) SendChallengeCompletedEmail(_ context.Context, toEmail, username string, c *models.ReadingChallenge) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentEmail{kind: "challenge", to: toEmail, name: username, title: c.Name})
	return f.err
}

type countingRefresher struct {
	calls int
	err   error
}

func (c *countingRefresher) Refresh(context.Context, string) error {
	c.calls++
	return c.err
}
