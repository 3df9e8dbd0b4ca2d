package session

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/theceo1/trustbank-gateway/internal/constants"
	"github.com/theceo1/trustbank-gateway/internal/models"
	"github.com/theceo1/trustbank-gateway/internal/token"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func testSession() *models.Session {
	now := time.Now()
	return &models.Session{
		AccessToken:  "at-1",
		RefreshToken: "rt-1",
		IssuedAt:     now.Unix(),
		ExpiresAt:    now.Add(time.Hour).Unix(),
		UserID:       "user-1",
	}
}

func TestCookieWriter_WriteSetsAllThreeCookies(t *testing.T) {
	codec := token.NewBlobCodec(testSecret)
	w := NewCookieWriter(codec, 720*time.Hour, true)

	rec := httptest.NewRecorder()
	w.Write(rec, testSession())

	cookies := rec.Result().Cookies()
	byName := map[string]*http.Cookie{}
	for _, c := range cookies {
		byName[c.Name] = c
	}

	for _, name := range []string{
		constants.CookieAccessToken,
		constants.CookieRefreshToken,
		constants.CookieSession,
	} {
		c, ok := byName[name]
		if !ok {
			t.Fatalf("Cookie %s not set", name)
		}
		if !c.HttpOnly {
			t.Errorf("Cookie %s must be httpOnly", name)
		}
		if c.SameSite != http.SameSiteLaxMode {
			t.Errorf("Cookie %s must be SameSite=Lax", name)
		}
		if !c.Secure {
			t.Errorf("Cookie %s must be secure when configured so", name)
		}
		if c.MaxAge != int((720 * time.Hour).Seconds()) {
			t.Errorf("Cookie %s has MaxAge %d", name, c.MaxAge)
		}
		if c.Path != "/" {
			t.Errorf("Cookie %s has path %q", name, c.Path)
		}
	}

	if byName[constants.CookieAccessToken].Value != "at-1" {
		t.Errorf("Access token cookie value mismatch")
	}
}

func TestCookieWriter_ReadRoundTrip(t *testing.T) {
	codec := token.NewBlobCodec(testSecret)
	w := NewCookieWriter(codec, time.Hour, false)

	rec := httptest.NewRecorder()
	sess := testSession()
	w.Write(rec, sess)

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}

	got := w.Read(req)
	if got == nil {
		t.Fatal("Expected session from cookie round trip")
	}
	if got.AccessToken != sess.AccessToken || got.UserID != sess.UserID || got.ExpiresAt != sess.ExpiresAt {
		t.Errorf("Round-tripped session mismatch: %+v", got)
	}
}

func TestCookieWriter_ReadRejectsTamperedBlob(t *testing.T) {
	w := NewCookieWriter(token.NewBlobCodec(testSecret), time.Hour, false)
	other := NewCookieWriter(token.NewBlobCodec("ffffffffffffffffffffffffffffffff"), time.Hour, false)

	rec := httptest.NewRecorder()
	other.Write(rec, testSession())

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}

	if got := w.Read(req); got != nil {
		t.Fatal("Expected nil for a blob signed with a different secret")
	}
}

func TestCookieWriter_ReadMissingCookie(t *testing.T) {
	w := NewCookieWriter(token.NewBlobCodec(testSecret), time.Hour, false)
	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)

	if got := w.Read(req); got != nil {
		t.Fatal("Expected nil when no session cookie is present")
	}
}

func TestCookieWriter_Clear(t *testing.T) {
	w := NewCookieWriter(token.NewBlobCodec(testSecret), time.Hour, false)

	rec := httptest.NewRecorder()
	w.Clear(rec)

	cookies := rec.Result().Cookies()
	if len(cookies) != 3 {
		t.Fatalf("Expected 3 expired cookies, got %d", len(cookies))
	}
	for _, c := range cookies {
		if c.MaxAge != -1 {
			t.Errorf("Cookie %s should be expired, MaxAge=%d", c.Name, c.MaxAge)
		}
	}
}

func TestCookieWriter_WriteNilSession(t *testing.T) {
	w := NewCookieWriter(token.NewBlobCodec(testSecret), time.Hour, false)

	rec := httptest.NewRecorder()
	w.Write(rec, nil)

	if got := len(rec.Result().Cookies()); got != 0 {
		t.Fatalf("Expected no cookies for nil session, got %d", got)
	}
}
