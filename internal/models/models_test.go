package models

import (
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionIsExpired(t *testing.T) {
	tests := []struct {
		name      string
		expiresAt time.Time
		want      bool
	}{
		{
			name:      "future expiration",
			expiresAt: time.Now().Add(1 * time.Hour),
			want:      false,
		},
		{
			name:      "just expired",
			expiresAt: time.Now().Add(-1 * time.Second),
			want:      true,
		},
		{
			name:      "expired yesterday",
			expiresAt: time.Now().Add(-24 * time.Hour),
			want:      true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session := Session{
				UserID:    "user-1",
				ExpiresAt: tt.expiresAt,
				IssuedAt:  time.Now().Add(-1 * time.Hour),
			}
			result := session.IsExpired()
			if result != tt.want {
				t.Errorf("Session.IsExpired() = %v, want %v", result, tt.want)
			}
		})
	}
}

func TestBookStatusValid(t *testing.T) {
	tests := []struct {
		status BookStatus
		want   bool
	}{
		{StatusWantToRead, true},
		{StatusCurrentlyReading, true},
		{StatusCompleted, true},
		{"reading", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if got := tt.status.Valid(); got != tt.want {
				t.Errorf("BookStatus(%q).Valid() = %v, want %v", tt.status, got, tt.want)
			}
		})
	}
}

func TestBookProgress(t *testing.T) {
	tests := []struct {
		name    string
		current int
		pages   int
		want    float64
	}{
		{"not started", 0, 200, 0},
		{"half way", 100, 200, 50},
		{"finished", 200, 200, 100},
		{"overshoot capped", 250, 200, 100},
		{"no pages", 10, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := Book{CurrentPage: tt.current, PageCount: tt.pages}
			assert.InDelta(t, tt.want, b.Progress(), 0.0001)
		})
	}
}

func decodeObject(t *testing.T, body string) map[string]json.RawMessage {
	t.Helper()
	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(body), &raw))
	return raw
}

func TestParseBookUpdate(t *testing.T) {
	t.Run("allow-listed fields are picked up", func(t *testing.T) {
		u, err := ParseBookUpdate(decodeObject(t, `{
			"title": "Dune Messiah",
			"current_page": 42,
			"rating": 5,
			"isFavorite": true,
			"finishedReading": "2024-03-10T18:30:00Z"
		}`))
		require.NoError(t, err)

		assert.True(t, u.Has(FieldTitle))
		assert.True(t, u.Has(FieldCurrentPage))
		assert.True(t, u.Has(FieldRating))
		assert.True(t, u.Has(FieldIsFavorite))
		assert.True(t, u.Has(FieldFinishedReading))
		assert.False(t, u.Has(FieldAuthor))

		assert.Equal(t, "Dune Messiah", u.Title)
		assert.Equal(t, 42, u.CurrentPage)
		require.NotNil(t, u.Rating)
		assert.Equal(t, 5, *u.Rating)
		assert.True(t, u.IsFavorite)
		require.NotNil(t, u.FinishedReading)
		assert.Equal(t, time.Date(2024, time.March, 10, 18, 30, 0, 0, time.UTC), u.FinishedReading.UTC())
	})

	t.Run("unknown keys are ignored", func(t *testing.T) {
		u, err := ParseBookUpdate(decodeObject(t, `{"user_id": "someone-else", "id": "x", "dateAdded": "2020-01-01T00:00:00Z"}`))
		require.NoError(t, err)
		assert.True(t, u.Empty())
	})

	t.Run("null clears optional fields", func(t *testing.T) {
		u, err := ParseBookUpdate(decodeObject(t, `{"rating": null, "genre": null}`))
		require.NoError(t, err)
		assert.True(t, u.Has(FieldRating))
		assert.Nil(t, u.Rating)
		assert.True(t, u.Has(FieldGenre))
		assert.Nil(t, u.Genre)
	})

	t.Run("null is rejected for required fields", func(t *testing.T) {
		_, err := ParseBookUpdate(decodeObject(t, `{"title": null}`))
		var fe *FieldError
		require.ErrorAs(t, err, &fe)
		assert.Equal(t, "title", fe.Field)
	})

	t.Run("wrong type is rejected", func(t *testing.T) {
		_, err := ParseBookUpdate(decodeObject(t, `{"pageCount": "lots"}`))
		var fe *FieldError
		require.ErrorAs(t, err, &fe)
		assert.Equal(t, "pageCount", fe.Field)
	})
}

func TestChallengeIsComplete(t *testing.T) {
	tests := []struct {
		name    string
		current int
		target  int
		want    bool
	}{
		{"below target", 3, 24, false},
		{"at target", 24, 24, true},
		{"above target", 30, 24, true},
		{"no target", 5, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := ReadingChallenge{Current: tt.current, Target: tt.target}
			if got := c.IsComplete(); got != tt.want {
				t.Errorf("IsComplete() = %v, want %v", got, tt.want)
			}
		})
	}
}
