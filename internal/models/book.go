package models

import "time"

// BookStatus is the reading state of a book
type BookStatus string

const (
	StatusWantToRead       BookStatus = "want-to-read"
	StatusCurrentlyReading BookStatus = "currently-reading"
	StatusCompleted        BookStatus = "completed"
)

// Valid reports whether s is one of the known statuses.
func (s BookStatus) Valid() bool {
	switch s {
	case StatusWantToRead, StatusCurrentlyReading, StatusCompleted:
		return true
	}
	return false
}

// Book is an entry in a user's library
type Book struct {
	ID                 string     `json:"id"`
	UserID             string     `json:"userId"`
	Title              string     `json:"title"`
	Author             string     `json:"author"`
	CoverImage         *string    `json:"cover"`
	Description        *string    `json:"description"`
	Genre              *string    `json:"genre"`
	PageCount          int        `json:"pageCount"`
	CurrentPage        int        `json:"currentPage"`
	ProgressPercentage *float64   `json:"progressPercentage"`
	Status             BookStatus `json:"status"`
	Rating             *int       `json:"rating"`
	IsFavorite         bool       `json:"isFavorite"`
	StartedReading     *time.Time `json:"startedReading"`
	FinishedReading    *time.Time `json:"finishedReading"`
	DateAdded          time.Time  `json:"dateAdded"`
	LastUpdated        time.Time  `json:"lastUpdated"`
}

// IsCompleted reports whether the book has been finished
func (b *Book) IsCompleted() bool {
	return b.Status == StatusCompleted
}

// GenreName returns the genre or "" when unset.
func (b *Book) GenreName() string {
	if b.Genre == nil {
		return ""
	}
	return *b.Genre
}

// Progress returns currentPage as a percentage of pageCount, capped at 100.
func (b *Book) Progress() float64 {
	if b.PageCount <= 0 {
		return 0
	}
	p := float64(b.CurrentPage) / float64(b.PageCount) * 100
	if p > 100 {
		return 100
	}
	return p
}

// NewBook carries the fields accepted when a book is added to a library.
type NewBook struct {
	Title           string     `json:"title" validate:"required,max=512"`
	Author          string     `json:"author" validate:"required,max=512"`
	CoverImage      *string    `json:"cover" validate:"omitempty,max=2048"`
	Description     *string    `json:"description"`
	Genre           *string    `json:"genre" validate:"omitempty,max=255"`
	PageCount       int        `json:"pageCount" validate:"required,gt=0"`
	CurrentPage     int        `json:"currentPage" validate:"gte=0,ltefield=PageCount"`
	Status          BookStatus `json:"status" validate:"omitempty,book_status"`
	Rating          *int       `json:"rating" validate:"omitempty,min=1,max=5"`
	IsFavorite      bool       `json:"isFavorite"`
	StartedReading  *time.Time `json:"startedReading"`
	FinishedReading *time.Time `json:"finishedReading"`
}
