package models

import "time"

// Profile represents a registered reader
type Profile struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	PasswordHash  string    `json:"-"`
	Username      string    `json:"username"`
	AvatarURL     *string   `json:"avatarUrl"`
	OAuthProvider string    `json:"-"`
	OAuthSubject  string    `json:"-"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// ProfileUpdate carries the profile fields a user may change. Nil fields keep
// their stored value.
type ProfileUpdate struct {
	Username  *string `json:"username" validate:"omitempty,min=1,max=100"`
	AvatarURL *string `json:"avatarUrl" validate:"omitempty,url,max=2048"`
}

// Session is the authenticated identity attached to a request. It is built
// from a verified token and passed explicitly to the layers that need it.
type Session struct {
	UserID    string
	Email     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// IsExpired checks if the session has expired
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}
