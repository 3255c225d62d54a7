package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

// StateSigner produces and checks OAuth state values. A state is a random
// nonce followed by its HMAC-SHA256, so the callback can verify it without
// server-side storage.
type StateSigner struct {
	secret []byte
}

// NewStateSigner creates a signer keyed with secret.
func NewStateSigner(secret string) *StateSigner {
	return &StateSigner{secret: []byte(secret)}
}

// NewState returns a fresh signed state.
func (s *StateSigner) NewState() string {
	nonce := strings.ReplaceAll(NewID(), "-", "")
	return nonce + "." + s.sign(nonce)
}

// Validate reports whether state was produced by this signer.
func (s *StateSigner) Validate(state string) error {
	nonce, mac, ok := strings.Cut(state, ".")
	if !ok || nonce == "" || mac == "" {
		return errors.New("malformed state")
	}
	if !hmac.Equal([]byte(s.sign(nonce)), []byte(mac)) {
		return errors.New("state signature mismatch")
	}
	return nil
}

func (s *StateSigner) sign(nonce string) string {
	m := hmac.New(sha256.New, s.secret)
	m.Write([]byte(nonce))
	return hex.EncodeToString(m.Sum(nil))
}
