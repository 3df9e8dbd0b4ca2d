// Package constants contains shared HTTP header names, cookie names and
// common content type strings used across the gateway.
package constants

// Header names commonly used across the application.
const (
	// HeaderAccept is the HTTP "Accept" header name.
	HeaderAccept = "Accept"

	// HeaderAuthorization is the HTTP "Authorization" header name.
	HeaderAuthorization = "Authorization"

	// HeaderContentType is the HTTP "Content-Type" header name.
	HeaderContentType = "Content-Type"

	// HeaderReferer is the HTTP "Referer" header name.
	HeaderReferer = "Referer"

	// HeaderUserAgent is the HTTP "User-Agent" header name.
	HeaderUserAgent = "User-Agent"

	// HeaderXRequestID is the custom request ID header name.
	HeaderXRequestID = "X-Request-ID"

	// HeaderXPathname echoes the matched request path back to the caller.
	HeaderXPathname = "x-pathname"

	// HeaderTwoFactorCode carries the one-time code for sensitive
	// financial mutations.
	HeaderTwoFactorCode = "x-2fa-code"
)

// Cookie names written back on authenticated requests.
const (
	// CookieAccessToken mirrors the session's access token.
	CookieAccessToken = "sb-access-token"

	// CookieRefreshToken mirrors the session's refresh token.
	CookieRefreshToken = "sb-refresh-token"

	// CookieSession holds the signed composite session blob.
	CookieSession = "sb-session"
)

// Common media / content types used in requests and responses.
const (
	// ContentTypeJSON represents "application/json".
	ContentTypeJSON = "application/json"

	// ContentTypeFormURLEncoded represents
	// "application/x-www-form-urlencoded".
	ContentTypeFormURLEncoded = "application/x-www-form-urlencoded"

	// ContentTypeHTMLUTF8 represents "text/html; charset=utf-8".
	ContentTypeHTMLUTF8 = "text/html; charset=utf-8"

	// ContentTypePlainUTF8 represents "text/plain; charset=utf-8".
	ContentTypePlainUTF8 = "text/plain; charset=utf-8"
)

// Well known redirect targets used by the session guard.
const (
	// PathLogin is where unauthenticated users are sent.
	PathLogin = "/auth/login"

	// PathAdminLogin is where failed admin checks are sent.
	PathAdminLogin = "/admin/login"

	// PathDashboard is where already signed-in users land when they hit
	// an auth-only page such as the login form.
	PathDashboard = "/dashboard"
)
