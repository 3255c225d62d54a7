package service

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"bibliobalance/internal/metrics"
	"bibliobalance/internal/models"
	"bibliobalance/internal/validation"
)

const testUser = "user-1"

var fixedNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func newTestBookService() (*BookService, *fakeBookStore, *countingRefresher) {
	store := newFakeBookStore()
	refresher := &countingRefresher{}
	svc := NewBookService(store, refresher, zap.NewNop())
	svc.now = func() time.Time { return fixedNow }
	return svc, store, refresher
}

func addBook(t *testing.T, svc *BookService, nb models.NewBook) *models.Book {
	t.Helper()
	b, err := svc.Create(context.Background(), testUser, nb)
	require.NoError(t, err)
	return b
}

func ptr[T any](v T) *T { return &v }

func TestBookServiceCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("defaults", func(t *testing.T) {
		svc, _, refresher := newTestBookService()

		b := addBook(t, svc, models.NewBook{Title: " Dune ", Author: "Frank Herbert", PageCount: 412})
		assert.Equal(t, "Dune", b.Title)
		assert.Equal(t, models.StatusWantToRead, b.Status)
		assert.Nil(t, b.FinishedReading)
		assert.Equal(t, fixedNow, b.DateAdded)
		assert.Zero(t, refresher.calls)
	})

	t.Run("completed book gets finish date and refreshes stats", func(t *testing.T) {
		svc, _, refresher := newTestBookService()

		b := addBook(t, svc, models.NewBook{Title: "Emma", Author: "Jane Austen", PageCount: 300, Status: models.StatusCompleted})
		require.NotNil(t, b.FinishedReading)
		assert.Equal(t, fixedNow, *b.FinishedReading)
		assert.Equal(t, 1, refresher.calls)
	})

	t.Run("finish date dropped for unfinished book", func(t *testing.T) {
		svc, _, _ := newTestBookService()

		b := addBook(t, svc, models.NewBook{
			Title: "Emma", Author: "Jane Austen", PageCount: 300,
			Status: models.StatusCurrentlyReading, FinishedReading: ptr(fixedNow),
		})
		assert.Nil(t, b.FinishedReading)
	})

	tests := []struct {
		name  string
		book  models.NewBook
		field string
	}{
		{"missing title", models.NewBook{Author: "A", PageCount: 10}, "title"},
		{"zero pages", models.NewBook{Title: "T", Author: "A"}, "pageCount"},
		{"current page past end", models.NewBook{Title: "T", Author: "A", PageCount: 10, CurrentPage: 11}, "currentPage"},
		{"bad status", models.NewBook{Title: "T", Author: "A", PageCount: 10, Status: "paused"}, "status"},
		{"bad rating", models.NewBook{Title: "T", Author: "A", PageCount: 10, Rating: ptr(6)}, "rating"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store, _ := newTestBookService()

			_, err := svc.Create(ctx, testUser, tt.book)
			var ve *validation.RequestValidationError
			require.ErrorAs(t, err, &ve)
			assert.Contains(t, ve.Fields(), tt.field)
			assert.Empty(t, store.books)
		})
	}
}

func TestBookServiceGet(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestBookService()
	b := addBook(t, svc, models.NewBook{Title: "Dune", Author: "Frank Herbert", PageCount: 412})

	got, err := svc.Get(ctx, testUser, b.ID)
	require.NoError(t, err)
	assert.Equal(t, b.ID, got.ID)

	_, err = svc.Get(ctx, testUser, "missing")
	assert.ErrorIs(t, err, ErrBookNotFound)

	_, err = svc.Get(ctx, "someone-else", b.ID)
	assert.ErrorIs(t, err, ErrBookNotFound)
}

func TestBookServiceLists(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestBookService()
	addBook(t, svc, models.NewBook{Title: "A", Author: "X", PageCount: 10, Status: models.StatusCompleted, IsFavorite: true})
	addBook(t, svc, models.NewBook{Title: "B", Author: "X", PageCount: 10, Status: models.StatusCurrentlyReading})

	all, err := svc.List(ctx, testUser)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	reading, err := svc.ListByStatus(ctx, testUser, models.StatusCurrentlyReading)
	require.NoError(t, err)
	require.Len(t, reading, 1)
	assert.Equal(t, "B", reading[0].Title)

	favorites, err := svc.ListFavorites(ctx, testUser)
	require.NoError(t, err)
	require.Len(t, favorites, 1)
	assert.Equal(t, "A", favorites[0].Title)

	none, err := svc.ListByStatus(ctx, "someone-else", models.StatusCompleted)
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)

	_, err = svc.ListByStatus(ctx, testUser, "paused")
	assert.Error(t, err)
}

func TestBookServiceUpdate(t *testing.T) {
	ctx := context.Background()

	t.Run("applies only masked fields", func(t *testing.T) {
		svc, _, refresher := newTestBookService()
		b := addBook(t, svc, models.NewBook{Title: "Dune", Author: "Frank Herbert", PageCount: 412, Genre: ptr("Sci-Fi")})

		u := models.BookUpdate{Title: "Dune Messiah", Author: "ignored"}
		u.Set(models.FieldTitle)

		got, err := svc.Update(ctx, testUser, b.ID, u)
		require.NoError(t, err)
		assert.Equal(t, "Dune Messiah", got.Title)
		assert.Equal(t, "Frank Herbert", got.Author)
		assert.Equal(t, "Sci-Fi", got.GenreName())
		assert.Zero(t, refresher.calls)
	})

	t.Run("completing sets finish date", func(t *testing.T) {
		svc, _, refresher := newTestBookService()
		b := addBook(t, svc, models.NewBook{Title: "Dune", Author: "Frank Herbert", PageCount: 412})
		before := testutil.ToFloat64(metrics.BooksCompleted)

		u := models.BookUpdate{Status: models.StatusCompleted}
		u.Set(models.FieldStatus)

		got, err := svc.Update(ctx, testUser, b.ID, u)
		require.NoError(t, err)
		assert.Equal(t, models.StatusCompleted, got.Status)
		require.NotNil(t, got.FinishedReading)
		assert.Equal(t, fixedNow, *got.FinishedReading)
		assert.Equal(t, 1, refresher.calls)
		assert.Equal(t, before+1, testutil.ToFloat64(metrics.BooksCompleted))

		// Already completed: no second count.
		_, err = svc.Update(ctx, testUser, b.ID, u)
		require.NoError(t, err)
		assert.Equal(t, before+1, testutil.ToFloat64(metrics.BooksCompleted))
	})

	t.Run("leaving completed clears finish date", func(t *testing.T) {
		svc, _, _ := newTestBookService()
		b := addBook(t, svc, models.NewBook{Title: "Dune", Author: "Frank Herbert", PageCount: 412, Status: models.StatusCompleted})

		u := models.BookUpdate{Status: models.StatusCurrentlyReading}
		u.Set(models.FieldStatus)

		got, err := svc.Update(ctx, testUser, b.ID, u)
		require.NoError(t, err)
		assert.Nil(t, got.FinishedReading)
	})

	t.Run("explicit finish date wins", func(t *testing.T) {
		svc, _, _ := newTestBookService()
		b := addBook(t, svc, models.NewBook{Title: "Dune", Author: "Frank Herbert", PageCount: 412})
		finished := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)

		u := models.BookUpdate{Status: models.StatusCompleted, FinishedReading: &finished}
		u.Set(models.FieldStatus | models.FieldFinishedReading)

		got, err := svc.Update(ctx, testUser, b.ID, u)
		require.NoError(t, err)
		require.NotNil(t, got.FinishedReading)
		assert.Equal(t, finished, *got.FinishedReading)
	})

	t.Run("rejects invalid values", func(t *testing.T) {
		svc, store, _ := newTestBookService()
		b := addBook(t, svc, models.NewBook{Title: "Dune", Author: "Frank Herbert", PageCount: 412})

		u := models.BookUpdate{CurrentPage: 500, Rating: ptr(0)}
		u.Set(models.FieldCurrentPage | models.FieldRating)

		_, err := svc.Update(ctx, testUser, b.ID, u)
		var ve *validation.RequestValidationError
		require.ErrorAs(t, err, &ve)
		assert.Contains(t, ve.Fields(), "currentPage")
		assert.Contains(t, ve.Fields(), "rating")
		assert.Equal(t, 0, store.books[b.ID].CurrentPage)
	})

	t.Run("pageCount below current page", func(t *testing.T) {
		svc, store, _ := newTestBookService()
		b := addBook(t, svc, models.NewBook{Title: "Dune", Author: "Frank Herbert", PageCount: 300, CurrentPage: 250, Status: models.StatusCurrentlyReading})

		u := models.BookUpdate{PageCount: 100}
		u.Set(models.FieldPageCount)

		_, err := svc.Update(ctx, testUser, b.ID, u)
		var ve *validation.RequestValidationError
		require.ErrorAs(t, err, &ve)
		assert.Contains(t, ve.Fields(), "currentPage")
		assert.Equal(t, 300, store.books[b.ID].PageCount)
		assert.Equal(t, 250, store.books[b.ID].CurrentPage)
	})

	t.Run("pageCount change refreshes progress", func(t *testing.T) {
		svc, _, _ := newTestBookService()
		b := addBook(t, svc, models.NewBook{Title: "Dune", Author: "Frank Herbert", PageCount: 300, CurrentPage: 150, Status: models.StatusCurrentlyReading})

		u := models.BookUpdate{PageCount: 600}
		u.Set(models.FieldPageCount)

		got, err := svc.Update(ctx, testUser, b.ID, u)
		require.NoError(t, err)
		assert.Equal(t, 150, got.CurrentPage)
		require.NotNil(t, got.ProgressPercentage)
		assert.InDelta(t, 25.0, *got.ProgressPercentage, 0.001)
	})

	t.Run("unknown book", func(t *testing.T) {
		svc, _, _ := newTestBookService()

		u := models.BookUpdate{Title: "x"}
		u.Set(models.FieldTitle)
		_, err := svc.Update(ctx, testUser, "missing", u)
		assert.ErrorIs(t, err, ErrBookNotFound)
	})
}

func TestBookServiceUpdateProgress(t *testing.T) {
	ctx := context.Background()

	t.Run("last page completes and starts in one call", func(t *testing.T) {
		svc, _, refresher := newTestBookService()
		b := addBook(t, svc, models.NewBook{Title: "Dune", Author: "Frank Herbert", PageCount: 412})

		got, err := svc.UpdateProgress(ctx, testUser, b.ID, 412, 412)
		require.NoError(t, err)
		assert.Equal(t, models.StatusCompleted, got.Status)
		require.NotNil(t, got.StartedReading)
		require.NotNil(t, got.FinishedReading)
		assert.Equal(t, fixedNow, *got.StartedReading)
		assert.Equal(t, fixedNow, *got.FinishedReading)
		require.NotNil(t, got.ProgressPercentage)
		assert.InDelta(t, 100.0, *got.ProgressPercentage, 0.001)
		assert.Equal(t, 1, refresher.calls)
	})

	t.Run("partial progress starts reading", func(t *testing.T) {
		svc, _, refresher := newTestBookService()
		b := addBook(t, svc, models.NewBook{Title: "Dune", Author: "Frank Herbert", PageCount: 400})

		got, err := svc.UpdateProgress(ctx, testUser, b.ID, 100, 400)
		require.NoError(t, err)
		assert.Equal(t, models.StatusWantToRead, got.Status)
		assert.NotNil(t, got.StartedReading)
		assert.Nil(t, got.FinishedReading)
		assert.InDelta(t, 25.0, *got.ProgressPercentage, 0.001)
		assert.Zero(t, refresher.calls)
	})

	t.Run("existing start date is kept", func(t *testing.T) {
		svc, _, _ := newTestBookService()
		started := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		b := addBook(t, svc, models.NewBook{Title: "Dune", Author: "Frank Herbert", PageCount: 400, StartedReading: &started})

		got, err := svc.UpdateProgress(ctx, testUser, b.ID, 50, 0)
		require.NoError(t, err)
		assert.Equal(t, started, *got.StartedReading)
	})

	t.Run("zero page does not start", func(t *testing.T) {
		svc, _, _ := newTestBookService()
		b := addBook(t, svc, models.NewBook{Title: "Dune", Author: "Frank Herbert", PageCount: 400})

		got, err := svc.UpdateProgress(ctx, testUser, b.ID, 0, 400)
		require.NoError(t, err)
		assert.Nil(t, got.StartedReading)
	})

	t.Run("already completed keeps finish date", func(t *testing.T) {
		svc, _, _ := newTestBookService()
		finished := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
		b := addBook(t, svc, models.NewBook{
			Title: "Dune", Author: "Frank Herbert", PageCount: 400,
			Status: models.StatusCompleted, FinishedReading: &finished,
		})

		got, err := svc.UpdateProgress(ctx, testUser, b.ID, 400, 400)
		require.NoError(t, err)
		assert.Equal(t, finished, *got.FinishedReading)
	})

	t.Run("current page is clamped", func(t *testing.T) {
		svc, _, _ := newTestBookService()
		b := addBook(t, svc, models.NewBook{Title: "Dune", Author: "Frank Herbert", PageCount: 300})

		got, err := svc.UpdateProgress(ctx, testUser, b.ID, 350, 0)
		require.NoError(t, err)
		assert.Equal(t, 300, got.CurrentPage)
		assert.Equal(t, models.StatusCompleted, got.Status)
	})

	t.Run("negative page rejected", func(t *testing.T) {
		svc, _, _ := newTestBookService()
		b := addBook(t, svc, models.NewBook{Title: "Dune", Author: "Frank Herbert", PageCount: 300})

		_, err := svc.UpdateProgress(ctx, testUser, b.ID, -1, 0)
		assert.Error(t, err)
	})

	t.Run("unknown book", func(t *testing.T) {
		svc, _, _ := newTestBookService()

		_, err := svc.UpdateProgress(ctx, testUser, "missing", 1, 10)
		assert.ErrorIs(t, err, ErrBookNotFound)
	})
}

func TestBookServiceToggleFavorite(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestBookService()
	b := addBook(t, svc, models.NewBook{Title: "Dune", Author: "Frank Herbert", PageCount: 412})
	original := b.IsFavorite

	first, err := svc.ToggleFavorite(ctx, testUser, b.ID, !original)
	require.NoError(t, err)
	assert.Equal(t, !original, first.IsFavorite)

	second, err := svc.ToggleFavorite(ctx, testUser, b.ID, !first.IsFavorite)
	require.NoError(t, err)
	assert.Equal(t, original, second.IsFavorite)

	same, err := svc.ToggleFavorite(ctx, testUser, b.ID, original)
	require.NoError(t, err)
	assert.Equal(t, original, same.IsFavorite)

	_, err = svc.ToggleFavorite(ctx, testUser, "missing", true)
	assert.ErrorIs(t, err, ErrBookNotFound)
}

func TestBookServiceDelete(t *testing.T) {
	ctx := context.Background()
	svc, store, refresher := newTestBookService()
	b := addBook(t, svc, models.NewBook{Title: "Dune", Author: "Frank Herbert", PageCount: 412})

	assert.ErrorIs(t, svc.Delete(ctx, "someone-else", b.ID), ErrBookNotFound)
	require.NoError(t, svc.Delete(ctx, testUser, b.ID))
	assert.Empty(t, store.books)
	assert.Equal(t, 1, refresher.calls)
	assert.ErrorIs(t, svc.Delete(ctx, testUser, b.ID), ErrBookNotFound)
}

func TestBookServiceAddFromCatalog(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newTestBookService()
	nb := models.NewBook{Title: "Dune", Author: "Frank Herbert", PageCount: 412}

	_, err := svc.AddFromCatalog(ctx, testUser, nb)
	require.NoError(t, err)

	exists, err := svc.Exists(ctx, testUser, "Dune", "Frank Herbert")
	require.NoError(t, err)
	assert.True(t, exists)

	_, err = svc.AddFromCatalog(ctx, testUser, nb)
	assert.ErrorIs(t, err, ErrBookExists)
	assert.Len(t, store.books, 1)
}

func TestBookServiceStoreFailure(t *testing.T) {
	svc, store, _ := newTestBookService()
	store.err = errStoreDown

	_, err := svc.List(context.Background(), testUser)
	assert.ErrorIs(t, err, errStoreDown)

	_, err = svc.Get(context.Background(), testUser, "any")
	assert.ErrorIs(t, err, errStoreDown)
}
