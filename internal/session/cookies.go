package session

import (
	"net/http"
	"time"

	"github.com/theceo1/trustbank-gateway/internal/constants"
	"github.com/theceo1/trustbank-gateway/internal/models"
	"github.com/theceo1/trustbank-gateway/internal/token"
)

// CookieWriter mirrors the session into response cookies: the raw token
// pair plus the signed composite blob. The cookies are a last-known-good
// cache; their presence is never a substitute for the expiry check.
type CookieWriter struct {
	codec  token.Codec
	maxAge time.Duration
	secure bool
}

// NewCookieWriter creates a writer with the configured cookie lifetime.
// The secure flag follows the environment: production cookies are
// HTTPS-only.
func NewCookieWriter(codec token.Codec, maxAge time.Duration, secure bool) *CookieWriter {
	return &CookieWriter{
		codec:  codec,
		maxAge: maxAge,
		secure: secure,
	}
}

// Write sets the session cookies on the response. A blob that fails to
// encode skips only the composite cookie; the token cookies still go out.
func (w *CookieWriter) Write(rw http.ResponseWriter, s *models.Session) {
	if s == nil {
		return
	}

	w.set(rw, constants.CookieAccessToken, s.AccessToken)
	w.set(rw, constants.CookieRefreshToken, s.RefreshToken)

	if blob, err := w.codec.Encode(s); err == nil {
		w.set(rw, constants.CookieSession, blob)
	}
}

// Read extracts the session from the composite cookie, verifying its
// signature. Returns nil when the cookie is absent or tampered with.
func (w *CookieWriter) Read(r *http.Request) *models.Session {
	cookie, err := r.Cookie(constants.CookieSession)
	if err != nil {
		return nil
	}

	s, err := w.codec.Decode(cookie.Value)
	if err != nil {
		return nil
	}
	return s
}

// Clear expires all session cookies on the response.
func (w *CookieWriter) Clear(rw http.ResponseWriter) {
	for _, name := range []string{
		constants.CookieAccessToken,
		constants.CookieRefreshToken,
		constants.CookieSession,
	} {
		http.SetCookie(rw, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   w.secure,
			SameSite: http.SameSiteLaxMode,
		})
	}
}

func (w *CookieWriter) set(rw http.ResponseWriter, name, value string) {
	http.SetCookie(rw, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(w.maxAge.Seconds()),
		HttpOnly: true,
		Secure:   w.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
