package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"bibliobalance/internal/metrics"
	"bibliobalance/internal/models"
	"bibliobalance/internal/security"
	"bibliobalance/internal/validation"
)

// statsFields are the book fields that feed into the derived statistics.
const statsFields = models.FieldStatus | models.FieldPageCount | models.FieldRating |
	models.FieldGenre | models.FieldFinishedReading

// BookService handles a user's library
type BookService struct {
	books  BookStore
	stats  StatsRefresher
	logger *zap.Logger
	now    func() time.Time
}

// NewBookService creates a new book service. stats may be nil.
func NewBookService(books BookStore, stats StatsRefresher, logger *zap.Logger) *BookService {
	return &BookService{
		books:  books,
		stats:  stats,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}
}

// List returns all books of the user
func (s *BookService) List(ctx context.Context, userID string) ([]models.Book, error) {
	return s.books.ListByUser(ctx, userID)
}

// ListByStatus returns the user's books in one reading state
func (s *BookService) ListByStatus(ctx context.Context, userID string, status models.BookStatus) ([]models.Book, error) {
	if !status.Valid() {
		return nil, validation.NewError("status", "must be one of want-to-read, currently-reading, completed")
	}
	return s.books.ListByStatus(ctx, userID, status)
}

// ListFavorites returns the user's favorite books
func (s *BookService) ListFavorites(ctx context.Context, userID string) ([]models.Book, error) {
	return s.books.ListFavorites(ctx, userID)
}

// Get returns a single book or ErrBookNotFound
func (s *BookService) Get(ctx context.Context, userID, id string) (*models.Book, error) {
	book, err := s.books.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if book == nil {
		return nil, ErrBookNotFound
	}
	return book, nil
}

// Exists reports whether the user already has a book with this exact title
// and author.
func (s *BookService) Exists(ctx context.Context, userID, title, author string) (bool, error) {
	title, author = strings.TrimSpace(title), strings.TrimSpace(author)
	if title == "" || author == "" {
		return false, validation.NewError("title", "title and author are required")
	}
	return s.books.ExistsByTitleAuthor(ctx, userID, title, author)
}

// Create adds a book to the user's library
func (s *BookService) Create(ctx context.Context, userID string, nb models.NewBook) (*models.Book, error) {
	nb.Title = strings.TrimSpace(nb.Title)
	nb.Author = strings.TrimSpace(nb.Author)
	if err := validation.ValidateStruct(nb); err != nil {
		return nil, err
	}

	ts := s.now()
	book := &models.Book{
		ID:              security.NewID(),
		UserID:          userID,
		Title:           nb.Title,
		Author:          nb.Author,
		CoverImage:      nb.CoverImage,
		Description:     nb.Description,
		Genre:           nb.Genre,
		PageCount:       nb.PageCount,
		CurrentPage:     nb.CurrentPage,
		Status:          nb.Status,
		Rating:          nb.Rating,
		IsFavorite:      nb.IsFavorite,
		StartedReading:  nb.StartedReading,
		FinishedReading: nb.FinishedReading,
		DateAdded:       ts,
		LastUpdated:     ts,
	}
	if book.Status == "" {
		book.Status = models.StatusWantToRead
	}
	if book.IsCompleted() && book.FinishedReading == nil {
		book.FinishedReading = &ts
	}
	if !book.IsCompleted() {
		book.FinishedReading = nil
	}
	if book.CurrentPage > 0 {
		progress := book.Progress()
		book.ProgressPercentage = &progress
	}

	if err := s.books.Create(ctx, book); err != nil {
		return nil, err
	}
	if book.IsCompleted() {
		metrics.BooksCompleted.Inc()
		s.refreshStats(ctx, userID)
	}
	return book, nil
}

// AddFromCatalog adds a catalog entry unless the user already has a book
// with the same title and author.
func (s *BookService) AddFromCatalog(ctx context.Context, userID string, nb models.NewBook) (*models.Book, error) {
	exists, err := s.books.ExistsByTitleAuthor(ctx, userID, strings.TrimSpace(nb.Title), strings.TrimSpace(nb.Author))
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrBookExists
	}
	return s.Create(ctx, userID, nb)
}

// Update applies a partial update and returns the stored book.
func (s *BookService) Update(ctx context.Context, userID, id string, u models.BookUpdate) (*models.Book, error) {
	current, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if err := validateBookUpdate(current, &u); err != nil {
		return nil, err
	}

	if u.Has(models.FieldPageCount|models.FieldCurrentPage) && !u.Has(models.FieldProgressPercentage) {
		progress := updatedProgress(current, u)
		u.ProgressPercentage = &progress
		u.Set(models.FieldProgressPercentage)
	}

	ts := s.now()
	if u.Has(models.FieldStatus) && !u.Has(models.FieldFinishedReading) {
		switch {
		case u.Status == models.StatusCompleted && current.FinishedReading == nil:
			u.FinishedReading = &ts
			u.Set(models.FieldFinishedReading)
		case u.Status != models.StatusCompleted && current.FinishedReading != nil:
			u.FinishedReading = nil
			u.Set(models.FieldFinishedReading)
		}
	}

	found, err := s.books.Update(ctx, userID, id, u, ts)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrBookNotFound
	}
	if u.Has(models.FieldStatus) && u.Status == models.StatusCompleted && !current.IsCompleted() {
		metrics.BooksCompleted.Inc()
		s.logger.Info("Book completed", zap.String("user_id", userID), zap.String("book_id", id))
	}
	if u.Fields&statsFields != 0 {
		s.refreshStats(ctx, userID)
	}
	return s.Get(ctx, userID, id)
}

// updatedProgress is the progress percentage after u is applied to current.
func updatedProgress(current *models.Book, u models.BookUpdate) float64 {
	pageCount, currentPage := current.PageCount, current.CurrentPage
	if u.Has(models.FieldPageCount) {
		pageCount = u.PageCount
	}
	if u.Has(models.FieldCurrentPage) {
		currentPage = u.CurrentPage
	}
	if pageCount <= 0 {
		return 0
	}
	return float64(currentPage) / float64(pageCount) * 100
}

func validateBookUpdate(current *models.Book, u *models.BookUpdate) error {
	var errs []validation.ValidationError
	add := func(field, msg string) {
		errs = append(errs, validation.ValidationError{Field: field, Message: msg})
	}

	if u.Has(models.FieldTitle) {
		u.Title = strings.TrimSpace(u.Title)
		if u.Title == "" {
			add("title", "title is required")
		}
	}
	if u.Has(models.FieldAuthor) {
		u.Author = strings.TrimSpace(u.Author)
		if u.Author == "" {
			add("author", "author is required")
		}
	}

	pageCount := current.PageCount
	if u.Has(models.FieldPageCount) {
		if u.PageCount <= 0 {
			add("pageCount", "pageCount must be greater than 0")
		}
		pageCount = u.PageCount
	}
	switch {
	case u.Has(models.FieldCurrentPage):
		if u.CurrentPage < 0 || u.CurrentPage > pageCount {
			add("currentPage", fmt.Sprintf("currentPage must be between 0 and %d", pageCount))
		}
	case u.Has(models.FieldPageCount) && current.CurrentPage > pageCount:
		add("currentPage", fmt.Sprintf("currentPage %d is past the new pageCount %d", current.CurrentPage, pageCount))
	}
	if u.Has(models.FieldProgressPercentage) && u.ProgressPercentage != nil &&
		(*u.ProgressPercentage < 0 || *u.ProgressPercentage > 100) {
		add("progressPercentage", "progressPercentage must be between 0 and 100")
	}
	if u.Has(models.FieldStatus) && !u.Status.Valid() {
		add("status", "must be one of want-to-read, currently-reading, completed")
	}
	if u.Has(models.FieldRating) && u.Rating != nil && (*u.Rating < 1 || *u.Rating > 5) {
		add("rating", "rating must be between 1 and 5")
	}

	if len(errs) > 0 {
		return &validation.RequestValidationError{Errors: errs}
	}
	return nil
}

// UpdateProgress records the current page. Reaching the last page completes
// the book, and the first non-zero page marks it as started; both can happen
// in the same call. A pageCount of 0 keeps the stored page count.
func (s *BookService) UpdateProgress(ctx context.Context, userID, id string, currentPage, pageCount int) (*models.Book, error) {
	if currentPage < 0 {
		return nil, validation.NewError("currentPage", "currentPage must be at least 0")
	}
	if pageCount < 0 {
		return nil, validation.NewError("pageCount", "pageCount must be greater than 0")
	}

	book, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	var u models.BookUpdate
	if pageCount > 0 && pageCount != book.PageCount {
		u.PageCount = pageCount
		u.Set(models.FieldPageCount)
	} else {
		pageCount = book.PageCount
	}
	if currentPage > pageCount {
		currentPage = pageCount
	}

	ts := s.now()
	progress := float64(currentPage) / float64(pageCount) * 100
	u.CurrentPage = currentPage
	u.ProgressPercentage = &progress
	u.Set(models.FieldCurrentPage | models.FieldProgressPercentage)

	if book.StartedReading == nil && currentPage > 0 {
		u.StartedReading = &ts
		u.Set(models.FieldStartedReading)
	}
	completed := false
	if currentPage >= pageCount && !book.IsCompleted() {
		u.Status = models.StatusCompleted
		u.FinishedReading = &ts
		u.Set(models.FieldStatus | models.FieldFinishedReading)
		completed = true
	}

	found, err := s.books.Update(ctx, userID, id, u, ts)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrBookNotFound
	}
	if completed {
		metrics.BooksCompleted.Inc()
		s.logger.Info("Book completed", zap.String("user_id", userID), zap.String("book_id", id))
	}
	if completed || u.Has(models.FieldPageCount) {
		s.refreshStats(ctx, userID)
	}
	return s.Get(ctx, userID, id)
}

// ToggleFavorite sets the favorite flag to isFavorite.
func (s *BookService) ToggleFavorite(ctx context.Context, userID, id string, isFavorite bool) (*models.Book, error) {
	u := models.BookUpdate{IsFavorite: isFavorite}
	u.Set(models.FieldIsFavorite)

	found, err := s.books.Update(ctx, userID, id, u, s.now())
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrBookNotFound
	}
	return s.Get(ctx, userID, id)
}

// Delete removes a book from the user's library
func (s *BookService) Delete(ctx context.Context, userID, id string) error {
	found, err := s.books.Delete(ctx, userID, id)
	if err != nil {
		return err
	}
	if !found {
		return ErrBookNotFound
	}
	s.refreshStats(ctx, userID)
	return nil
}

func (s *BookService) refreshStats(ctx context.Context, userID string) {
	if s.stats == nil {
		return
	}
	if err := s.stats.Refresh(ctx, userID); err != nil {
		metrics.StatsRefreshErrors.Inc()
		s.logger.Warn("Failed to refresh reading stats", zap.Error(err), zap.String("user_id", userID))
	}
}
