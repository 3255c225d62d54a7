package models

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

// BookField identifies one updatable column of a book.
type BookField uint32

const (
	FieldTitle BookField = 1 << iota
	FieldAuthor
	FieldCoverImage
	FieldDescription
	FieldGenre
	FieldPageCount
	FieldCurrentPage
	FieldProgressPercentage
	FieldStatus
	FieldRating
	FieldIsFavorite
	FieldStartedReading
	FieldFinishedReading
)

// bookFieldKeys lists the accepted request keys per field. Both the API's
// camelCase names and the column names are accepted.
var bookFieldKeys = map[string]BookField{
	"title":               FieldTitle,
	"author":              FieldAuthor,
	"cover":               FieldCoverImage,
	"coverImage":          FieldCoverImage,
	"cover_image":         FieldCoverImage,
	"description":         FieldDescription,
	"genre":               FieldGenre,
	"pageCount":           FieldPageCount,
	"page_count":          FieldPageCount,
	"currentPage":         FieldCurrentPage,
	"current_page":        FieldCurrentPage,
	"progressPercentage":  FieldProgressPercentage,
	"progress_percentage": FieldProgressPercentage,
	"status":              FieldStatus,
	"rating":              FieldRating,
	"isFavorite":          FieldIsFavorite,
	"is_favorite":         FieldIsFavorite,
	"startedReading":      FieldStartedReading,
	"started_reading":     FieldStartedReading,
	"finishedReading":     FieldFinishedReading,
	"finished_reading":    FieldFinishedReading,
}

// BookUpdate is a sparse update of a book. Only fields present in Fields
// are written; the value fields for absent fields are ignored.
type BookUpdate struct {
	Fields BookField

	Title              string
	Author             string
	CoverImage         *string
	Description        *string
	Genre              *string
	PageCount          int
	CurrentPage        int
	ProgressPercentage *float64
	Status             BookStatus
	Rating             *int
	IsFavorite         bool
	StartedReading     *time.Time
	FinishedReading    *time.Time
}

// Has reports whether f is part of the update.
func (u *BookUpdate) Has(f BookField) bool {
	return u.Fields&f != 0
}

// Set marks f as part of the update.
func (u *BookUpdate) Set(f BookField) {
	u.Fields |= f
}

// Empty reports whether the update touches no field.
func (u *BookUpdate) Empty() bool {
	return u.Fields == 0
}

// FieldError describes a request field that could not be accepted.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

var nullLiteral = []byte("null")

// ParseBookUpdate builds a BookUpdate from a decoded JSON object. Keys outside
// the allow-list are ignored. A JSON null clears optional fields and is
// rejected for required ones.
func ParseBookUpdate(raw map[string]json.RawMessage) (BookUpdate, error) {
	var u BookUpdate
	for key, value := range raw {
		field, ok := bookFieldKeys[key]
		if !ok {
			continue
		}
		isNull := bytes.Equal(bytes.TrimSpace(value), nullLiteral)
		if err := u.assign(field, value, isNull); err != nil {
			return BookUpdate{}, &FieldError{Field: key, Message: err.Error()}
		}
		u.Set(field)
	}
	return u, nil
}

func (u *BookUpdate) assign(field BookField, value json.RawMessage, isNull bool) error {
	switch field {
	case FieldTitle:
		return decodeRequired(value, isNull, &u.Title)
	case FieldAuthor:
		return decodeRequired(value, isNull, &u.Author)
	case FieldCoverImage:
		return decodeOptional(value, isNull, &u.CoverImage)
	case FieldDescription:
		return decodeOptional(value, isNull, &u.Description)
	case FieldGenre:
		return decodeOptional(value, isNull, &u.Genre)
	case FieldPageCount:
		return decodeRequired(value, isNull, &u.PageCount)
	case FieldCurrentPage:
		return decodeRequired(value, isNull, &u.CurrentPage)
	case FieldProgressPercentage:
		return decodeOptional(value, isNull, &u.ProgressPercentage)
	case FieldStatus:
		return decodeRequired(value, isNull, &u.Status)
	case FieldRating:
		return decodeOptional(value, isNull, &u.Rating)
	case FieldIsFavorite:
		return decodeRequired(value, isNull, &u.IsFavorite)
	case FieldStartedReading:
		return decodeOptional(value, isNull, &u.StartedReading)
	case FieldFinishedReading:
		return decodeOptional(value, isNull, &u.FinishedReading)
	}
	return nil
}

func decodeRequired[T any](value json.RawMessage, isNull bool, dst *T) error {
	if isNull {
		return errors.New("must not be null")
	}
	if err := json.Unmarshal(value, dst); err != nil {
		return errors.New("invalid value")
	}
	return nil
}

func decodeOptional[T any](value json.RawMessage, isNull bool, dst **T) error {
	if isNull {
		*dst = nil
		return nil
	}
	v := new(T)
	if err := json.Unmarshal(value, v); err != nil {
		return errors.New("invalid value")
	}
	*dst = v
	return nil
}
