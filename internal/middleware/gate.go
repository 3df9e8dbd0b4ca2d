package middleware

import (
	"context"
	"net/http"
	"net/url"

	"github.com/sirupsen/logrus"

	"github.com/theceo1/trustbank-gateway/internal/constants"
	"github.com/theceo1/trustbank-gateway/internal/models"
	"github.com/theceo1/trustbank-gateway/internal/roles"
	"github.com/theceo1/trustbank-gateway/internal/routes"
	"github.com/theceo1/trustbank-gateway/internal/session"
	"github.com/theceo1/trustbank-gateway/internal/totp"
	"github.com/theceo1/trustbank-gateway/pkg/logger"
)

// sessionCtxKey is the context key under which the gate stores the
// request's validated session.
type sessionCtxKey struct{}

// SessionFromContext returns the session the gate attached to the request,
// or nil if the request was allowed without one (public paths).
func SessionFromContext(ctx context.Context) *models.Session {
	s, _ := ctx.Value(sessionCtxKey{}).(*models.Session)
	return s
}

// TOTPVerifier checks a one-time code for a user. Satisfied by
// *totp.Service.
type TOTPVerifier interface {
	Verify(ctx context.Context, userID, code string) error
}

// Gate is the session guard. It intercepts every request before its
// handler, classifies the path, and resolves one of: allow (optionally
// refreshing session cookies), redirect, or reject. The gate never lets a
// collaborator failure escape: refresh errors, role lookup errors and
// panics all degrade to the deny branch of the current tier.
type Gate struct {
	table    *routes.Table
	sessions *session.Manager
	cookies  *session.CookieWriter
	roles    roles.Lookup
	totp     TOTPVerifier
	logger   *logrus.Logger
}

// NewGate creates a session guard. roleLookup may be nil when no role store
// is configured; admin paths then always redirect to the admin login.
func NewGate(
	table *routes.Table,
	sessions *session.Manager,
	cookies *session.CookieWriter,
	roleLookup roles.Lookup,
	totpVerifier TOTPVerifier,
	log *logrus.Logger,
) *Gate {
	return &Gate{
		table:    table,
		sessions: sessions,
		cookies:  cookies,
		roles:    roleLookup,
		totp:     totpVerifier,
		logger:   log,
	}
}

// Guard is the middleware entry point.
func (g *Gate) Guard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path

		// The matched path is always echoed back, on every branch.
		w.Header().Set(constants.HeaderXPathname, path)

		switch g.table.Classify(path) {
		case routes.ClassPublic:
			next.ServeHTTP(w, r)

		case routes.ClassAdminLogin:
			// Escape hatch: always renders so the admin redirect cannot loop.
			next.ServeHTTP(w, r)

		case routes.ClassAuthPage:
			g.evalAuthPage(w, r, next)

		case routes.ClassAdmin:
			g.evalAdmin(w, r, next)

		case routes.ClassTwoFA:
			g.evalTwoFA(w, r, next)

		default: // routes.ClassProtected and anything unmatched
			g.evalProtected(w, r, next)
		}
	})
}

// evalAuthPage handles the sign-in/sign-up pages: anonymous visitors see
// them, signed-in users are bounced to the dashboard.
func (g *Gate) evalAuthPage(w http.ResponseWriter, r *http.Request, next http.Handler) {
	sess := g.freshSession(r)
	if g.sessions.Valid(sess) {
		g.cookies.Write(w, sess)
		http.Redirect(w, r, constants.PathDashboard, http.StatusFound)
		return
	}
	next.ServeHTTP(w, r)
}

// evalAdmin requires a valid session plus an admin or super-admin role.
// Every failure mode lands on the admin login redirect.
func (g *Gate) evalAdmin(w http.ResponseWriter, r *http.Request, next http.Handler) {
	sess := g.freshSession(r)
	if !g.sessions.Valid(sess) {
		http.Redirect(w, r, constants.PathAdminLogin, http.StatusFound)
		return
	}

	role, err := g.lookupRole(r.Context(), sess.UserID)
	if err != nil {
		logger.WithCorrelationID(r.Context(), g.logger).
			WithError(err).
			WithField("path", r.URL.Path).
			Warn("Admin role lookup failed, denying")
		http.Redirect(w, r, constants.PathAdminLogin, http.StatusFound)
		return
	}
	if !role.IsAdmin() {
		http.Redirect(w, r, constants.PathAdminLogin, http.StatusFound)
		return
	}

	g.cookies.Write(w, sess)
	next.ServeHTTP(w, r.WithContext(withSession(r.Context(), sess)))
}

// evalTwoFA gates sensitive financial mutations behind a one-time code.
// These are API endpoints, so failures reject with JSON rather than
// redirecting.
func (g *Gate) evalTwoFA(w http.ResponseWriter, r *http.Request, next http.Handler) {
	sess := g.freshSession(r)
	if !g.sessions.Valid(sess) {
		g.reject(w, http.StatusUnauthorized, "authentication_required", "A valid session is required")
		return
	}

	code := r.Header.Get(constants.HeaderTwoFactorCode)
	if code == "" {
		g.reject(w, http.StatusUnauthorized, "two_factor_required", "A one-time code is required for this operation")
		return
	}

	if err := g.verifyCode(r.Context(), sess.UserID, code); err != nil {
		logger.WithCorrelationID(r.Context(), g.logger).
			WithField("path", r.URL.Path).
			Warn("One-time code verification failed")
		g.reject(w, http.StatusForbidden, "two_factor_invalid", "The one-time code is missing, expired, or invalid")
		return
	}

	g.cookies.Write(w, sess)
	next.ServeHTTP(w, r.WithContext(withSession(r.Context(), sess)))
}

// evalProtected is the default tier: valid session or a login redirect
// carrying the original path.
func (g *Gate) evalProtected(w http.ResponseWriter, r *http.Request, next http.Handler) {
	sess := g.freshSession(r)
	if !g.sessions.Valid(sess) {
		target := constants.PathLogin + "?redirect=" + url.QueryEscape(r.URL.Path)
		http.Redirect(w, r, target, http.StatusFound)
		return
	}

	g.cookies.Write(w, sess)
	next.ServeHTTP(w, r.WithContext(withSession(r.Context(), sess)))
}

// freshSession reads the session cookies and refreshes the session when it
// is close to expiry. Any panic from the refresh path degrades to no
// session, which every tier treats as its deny branch.
func (g *Gate) freshSession(r *http.Request) (sess *models.Session) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.WithCorrelationID(r.Context(), g.logger).
				WithField("panic", rec).
				Error("Session refresh panicked, treating as signed out")
			sess = nil
		}
	}()

	return g.sessions.RefreshIfNeeded(r.Context(), g.cookies.Read(r))
}

// lookupRole wraps the role store so panics and nil stores read as lookup
// failures.
func (g *Gate) lookupRole(ctx context.Context, userID string) (role *models.AdminRole, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			role, err = nil, roles.ErrStoreUnavailable
		}
	}()

	if g.roles == nil {
		return nil, roles.ErrStoreUnavailable
	}
	return g.roles.GetRole(ctx, userID)
}

// verifyCode wraps the TOTP service the same way.
func (g *Gate) verifyCode(ctx context.Context, userID, code string) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = totp.ErrInvalidCode
		}
	}()

	if g.totp == nil {
		return totp.ErrInvalidCode
	}
	return g.totp.Verify(ctx, userID, code)
}

func withSession(ctx context.Context, s *models.Session) context.Context {
	return context.WithValue(ctx, sessionCtxKey{}, s)
}

// reject writes a JSON authorization error without redirecting.
func (g *Gate) reject(w http.ResponseWriter, status int, code, description string) {
	w.Header().Set(constants.HeaderContentType, constants.ContentTypeJSON)
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error": "` + code + `", "error_description": "` + description + `"}`))
}
