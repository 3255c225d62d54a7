package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bibliobalance/internal/models"
)

func intPtr(v int) *int { return &v }

func strPtr(v string) *string { return &v }

func timePtr(t time.Time) *time.Time { return &t }

func completed(pages int, rating *int, genre string, finished *time.Time) models.Book {
	b := models.Book{Status: models.StatusCompleted, PageCount: pages, Rating: rating, FinishedReading: finished}
	if genre != "" {
		b.Genre = strPtr(genre)
	}
	return b
}

func TestCompute(t *testing.T) {
	mar := timePtr(time.Date(2024, time.March, 5, 12, 0, 0, 0, time.UTC))
	tests := []struct {
		name  string
		books []models.Book
		want  Summary
	}{
		{
			name:  "empty library",
			books: nil,
			want:  Summary{},
		},
		{
			name: "nothing completed",
			books: []models.Book{
				{Status: models.StatusWantToRead, PageCount: 300, Rating: intPtr(5)},
				{Status: models.StatusCurrentlyReading, PageCount: 120},
			},
			want: Summary{},
		},
		{
			name: "completed but unrated",
			books: []models.Book{
				completed(250, nil, "", nil),
				completed(150, nil, "", nil),
			},
			want: Summary{BooksRead: 2, TotalPages: 400, AverageRating: 0},
		},
		{
			name: "average ignores unrated books",
			books: []models.Book{
				completed(300, intPtr(4), "", mar),
				completed(200, nil, "", mar),
				completed(100, intPtr(2), "", nil),
			},
			want: Summary{BooksRead: 3, TotalPages: 600, AverageRating: 3},
		},
		{
			name: "ratings on unfinished books do not count",
			books: []models.Book{
				completed(100, intPtr(5), "", nil),
				{Status: models.StatusCurrentlyReading, PageCount: 500, Rating: intPtr(1)},
			},
			want: Summary{BooksRead: 1, TotalPages: 100, AverageRating: 5},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Compute(tt.books)
			assert.Equal(t, tt.want.BooksRead, got.BooksRead)
			assert.Equal(t, tt.want.TotalPages, got.TotalPages)
			assert.InDelta(t, tt.want.AverageRating, got.AverageRating, 1e-9)
		})
	}
}

func TestMonthlyBreakdown(t *testing.T) {
	books := []models.Book{
		completed(300, intPtr(4), "Fantasy", timePtr(time.Date(2024, time.March, 10, 9, 0, 0, 0, time.UTC))),
		completed(200, nil, "Mystery", timePtr(time.Date(2024, time.May, 2, 9, 0, 0, 0, time.UTC))),
		completed(150, nil, "", timePtr(time.Date(2023, time.May, 2, 9, 0, 0, 0, time.UTC))),
		completed(999, nil, "", nil),
		{Status: models.StatusCurrentlyReading, PageCount: 80, FinishedReading: timePtr(time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC))},
	}

	got := MonthlyBreakdown(books, 2024)
	require.Len(t, got, 12)
	for i, m := range got {
		assert.Equal(t, MonthLabels[i], m.Month)
	}

	assert.Equal(t, models.MonthlyStat{Month: "Mar", Books: 1, Pages: 300}, got[2])
	assert.Equal(t, models.MonthlyStat{Month: "May", Books: 1, Pages: 200}, got[4])

	totalBooks := 0
	for _, m := range got {
		totalBooks += m.Books
	}
	assert.Equal(t, 2, totalBooks)
}

func TestMonthlyBreakdownUsesUTC(t *testing.T) {
	tz := time.FixedZone("UTC+10", 10*60*60)
	// 1 April 05:00 at UTC+10 is still 31 March in UTC.
	finished := time.Date(2024, time.April, 1, 5, 0, 0, 0, tz)
	got := MonthlyBreakdown([]models.Book{completed(100, nil, "", &finished)}, 2024)

	assert.Equal(t, 1, got[2].Books)
	assert.Equal(t, 0, got[3].Books)
}

func TestMonthlyBreakdownEmpty(t *testing.T) {
	got := MonthlyBreakdown(nil, 2024)
	require.Len(t, got, 12)
	for _, m := range got {
		assert.Zero(t, m.Books)
		assert.Zero(t, m.Pages)
	}
}

func TestGenreDistribution(t *testing.T) {
	books := []models.Book{
		completed(100, nil, "Mystery", nil),
		completed(100, nil, "Fantasy", nil),
		completed(100, nil, "", nil),
		completed(100, nil, "Mystery", nil),
		{Status: models.StatusWantToRead, Genre: strPtr("Horror"), PageCount: 10},
		completed(100, nil, "Poetry", nil),
	}

	got := GenreDistribution(books)
	assert.Equal(t, []models.GenreCount{
		{Name: "Mystery", Value: 2},
		{Name: "Fantasy", Value: 1},
		{Name: "Poetry", Value: 1},
	}, got)
}

func TestGenreDistributionEmpty(t *testing.T) {
	got := GenreDistribution(nil)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestChallengePercentage(t *testing.T) {
	tests := []struct {
		name    string
		current int
		target  int
		want    float64
	}{
		{"nothing read", 0, 24, 0},
		{"half way", 12, 24, 50},
		{"fractional", 1, 3, 100.0 / 3},
		{"exactly done", 24, 24, 100},
		{"overshoot capped", 30, 24, 100},
		{"zero target", 5, 0, 0},
		{"negative target", 5, -1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, ChallengePercentage(tt.current, tt.target), 1e-9)
		})
	}
}
