package security

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("demo123")
	require.NoError(t, err)

	assert.NotEqual(t, "demo123", hash)
	assert.True(t, CheckPassword(hash, "demo123"))
	assert.False(t, CheckPassword(hash, "demo124"))
	assert.False(t, CheckPassword("", "demo123"))
}

func TestTokenRoundTrip(t *testing.T) {
	m, err := NewTokenManager("test-secret", time.Hour)
	require.NoError(t, err)

	token, expires, err := m.Issue("user-1", "reader@example.com")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expires, time.Minute)

	claims, err := m.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "reader@example.com", claims.Email)
}

func TestTokenRejections(t *testing.T) {
	m, err := NewTokenManager("test-secret", time.Hour)
	require.NoError(t, err)
	other, err := NewTokenManager("other-secret", time.Hour)
	require.NoError(t, err)

	foreign, _, err := other.Issue("user-1", "reader@example.com")
	require.NoError(t, err)

	expiredManager, err := NewTokenManager("test-secret", time.Hour)
	require.NoError(t, err)
	expiredManager.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, _, err := expiredManager.Issue("user-1", "reader@example.com")
	require.NoError(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{UserID: "user-1"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-token"},
		{"wrong secret", foreign},
		{"expired", expired},
		{"unsigned", none},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.Verify(tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestNewTokenManagerRequiresSecret(t *testing.T) {
	_, err := NewTokenManager("", time.Hour)
	assert.Error(t, err)
	_, err = NewTokenManager("secret", 0)
	assert.Error(t, err)
}

func TestStateSigner(t *testing.T) {
	s := NewStateSigner("state-secret")
	state := s.NewState()

	assert.NoError(t, s.Validate(state))
	assert.Error(t, NewStateSigner("other").Validate(state))
	assert.Error(t, s.Validate("no-dot"))
	assert.Error(t, s.Validate(strings.Replace(state, ".", ".0", 1)))
	assert.NotEqual(t, state, s.NewState())
}

func TestIsSecureRequest(t *testing.T) {
	tests := []struct {
		name   string
		target string
		proto  string
		want   bool
	}{
		{"plain http", "http://example.com/", "", false},
		{"forwarded https", "http://example.com/", "https", true},
		{"https scheme", "https://example.com/", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", tt.target, nil)
			if tt.proto != "" {
				r.Header.Set("X-Forwarded-Proto", tt.proto)
			}
			if got := IsSecureRequest(r); got != tt.want {
				t.Errorf("IsSecureRequest() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewID(t *testing.T) {
	a, b := NewID(), NewID()
	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
}
