package models

import "time"

// Session represents an authenticated principal's credential window:
// the access/refresh token pair plus its expiry.
type Session struct {
	// AccessToken is the opaque bearer credential for the principal.
	AccessToken string `json:"access_token"`
	// RefreshToken is exchanged for a new token pair on rotation.
	RefreshToken string `json:"refresh_token"`
	// IssuedAt is when the session was created, in epoch seconds.
	IssuedAt int64 `json:"issued_at"`
	// ExpiresAt is when the session stops being valid, in epoch seconds.
	ExpiresAt int64 `json:"expires_at"`
	// UserID identifies the authenticated principal.
	UserID string `json:"user_id"`
}

// Valid reports whether the session can still be used at the given time.
// A session is valid iff it exists and now is strictly before expiry; a
// session expiring exactly now is already invalid.
func (s *Session) Valid(now time.Time) bool {
	return s != nil && s.ExpiresAt > now.Unix()
}

// TimeUntilExpiry returns how long the session remains valid at the given
// time. Negative for expired sessions.
func (s *Session) TimeUntilExpiry(now time.Time) time.Duration {
	return time.Duration(s.ExpiresAt-now.Unix()) * time.Second
}
