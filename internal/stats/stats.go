// Package stats derives reading statistics from a user's library. All
// functions are pure and recompute from the full book set on every call.
package stats

import (
	"math"
	"time"

	"bibliobalance/internal/models"
)

// MonthLabels are the labels used by MonthlyBreakdown, January first.
var MonthLabels = [12]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

// Summary holds the derived portion of ReadingStats.
type Summary struct {
	BooksRead     int
	TotalPages    int
	AverageRating float64
}

// Compute summarizes the completed books. The average covers only rated
// books and is 0 when none are rated.
func Compute(books []models.Book) Summary {
	var s Summary
	ratingSum, rated := 0, 0

	for i := range books {
		b := &books[i]
		if !b.IsCompleted() {
			continue
		}
		s.BooksRead++
		s.TotalPages += b.PageCount
		if b.Rating != nil {
			ratingSum += *b.Rating
			rated++
		}
	}

	if rated > 0 {
		s.AverageRating = float64(ratingSum) / float64(rated)
	}
	return s
}

// MonthlyBreakdown buckets the books completed in year by the month of
// finishedReading (UTC). It always returns 12 entries, Jan to Dec. Completed
// books without a finish date are left out.
func MonthlyBreakdown(books []models.Book, year int) []models.MonthlyStat {
	out := make([]models.MonthlyStat, 12)
	for i, label := range MonthLabels {
		out[i].Month = label
	}

	for i := range books {
		b := &books[i]
		if !b.IsCompleted() || b.FinishedReading == nil {
			continue
		}
		finished := b.FinishedReading.UTC()
		if finished.Year() != year {
			continue
		}
		m := &out[finished.Month()-time.January]
		m.Books++
		m.Pages += b.PageCount
	}
	return out
}

// GenreDistribution counts completed books per non-empty genre, in order of
// first occurrence.
func GenreDistribution(books []models.Book) []models.GenreCount {
	out := []models.GenreCount{}
	index := make(map[string]int)

	for i := range books {
		b := &books[i]
		genre := b.GenreName()
		if !b.IsCompleted() || genre == "" {
			continue
		}
		if j, ok := index[genre]; ok {
			out[j].Value++
			continue
		}
		index[genre] = len(out)
		out = append(out, models.GenreCount{Name: genre, Value: 1})
	}
	return out
}

// ChallengePercentage is current/target as a percentage, capped at 100.
// A non-positive target yields 0.
func ChallengePercentage(current, target int) float64 {
	if target <= 0 || current <= 0 {
		return 0
	}
	return math.Min(100, float64(current)/float64(target)*100)
}
