package models

import "time"

// ReadingStats holds the per-user aggregates. BooksRead, TotalPages and
// AverageRating are derived from the library; ReadingTime and CurrentStreak
// are supplied by the client and stored as-is.
type ReadingStats struct {
	ID            string    `json:"id"`
	UserID        string    `json:"userId"`
	BooksRead     int       `json:"booksRead"`
	TotalPages    int       `json:"totalPages"`
	ReadingTime   int       `json:"readingTime"`
	CurrentStreak int       `json:"currentStreak"`
	AverageRating float64   `json:"averageRating"`
	LastUpdated   time.Time `json:"lastUpdated"`
}

// ReadingStatsUpdate carries the client-supplied stats fields.
type ReadingStatsUpdate struct {
	ReadingTime   *int `json:"readingTime" validate:"omitempty,gte=0"`
	CurrentStreak *int `json:"currentStreak" validate:"omitempty,gte=0"`
}

// ReadingChallenge is a per-year reading goal
type ReadingChallenge struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	Name       string    `json:"name"`
	Target     int       `json:"target"`
	Current    int       `json:"current"`
	Percentage float64   `json:"percentage"`
	Year       int       `json:"year"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// IsComplete reports whether the target has been reached.
func (c *ReadingChallenge) IsComplete() bool {
	return c.Target > 0 && c.Current >= c.Target
}

// NewChallenge carries the fields accepted when a challenge is created.
type NewChallenge struct {
	Name   string `json:"name" validate:"required,max=255"`
	Target int    `json:"target" validate:"required,gte=1"`
	Year   int    `json:"year" validate:"omitempty,gte=1900,lte=9999"`
}

// MonthlyStat is one month of completed reading
type MonthlyStat struct {
	Month string `json:"month"`
	Books int    `json:"books"`
	Pages int    `json:"pages"`
}

// GenreCount is the number of completed books in one genre
type GenreCount struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}
