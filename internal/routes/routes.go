// Package routes implements the static classification of URL paths into
// access tiers. Classification is an ordered table of (pattern, class)
// pairs evaluated first-match-wins; the precedence order (admin-login
// escape hatch, admin, auth pages, public, 2FA-gated, default-protected)
// is an explicit invariant of the table, not an accident of list order.
package routes

import "strings"

// Class is the access tier a path belongs to.
type Class string

const (
	// ClassPublic requires no authentication.
	ClassPublic Class = "public"
	// ClassAuthPage is a sign-in/sign-up page: public for anonymous
	// visitors, but already signed-in users are bounced to the dashboard.
	ClassAuthPage Class = "auth_page"
	// ClassAdminLogin is the admin login escape hatch; it always renders
	// so the admin redirect cannot loop.
	ClassAdminLogin Class = "admin_login"
	// ClassAdmin requires a valid session plus an admin role.
	ClassAdmin Class = "admin"
	// ClassTwoFA requires a valid session plus a fresh one-time code.
	ClassTwoFA Class = "two_fa"
	// ClassProtected requires a valid session. Paths matching no rule
	// fall through to this tier: the table fails closed.
	ClassProtected Class = "protected"
)

// Rule pairs a path pattern with its class. A pattern matches the exact
// path or any subpath below it; the root pattern "/" matches only "/".
type Rule struct {
	Pattern string
	Class   Class
}

// Table is the compiled, precedence-ordered classification table.
type Table struct {
	rules []Rule
}

// Lists holds the raw per-tier path lists a table is built from.
type Lists struct {
	Public    []string
	AuthPages []string
	Admin     []string
	TwoFA     []string
	Protected []string
}

// DefaultLists returns the platform's built-in route lists.
func DefaultLists() Lists {
	return Lists{
		Public: []string{
			"/",
			"/market",
			"/trade",
			"/about",
			"/blog",
			"/calculator",
			"/contact",
			"/faq",
			"/legal",
			"/api/market",
			"/api/auth",
			"/api/gateway/health",
			"/metrics",
		},
		AuthPages: []string{
			"/auth/login",
			"/auth/signup",
			"/auth/forgot-password",
		},
		Admin: []string{
			"/admin",
			"/api/admin",
		},
		TwoFA: []string{
			"/api/wallet/withdraw",
			"/api/wallet/transfer",
			"/api/swap",
			"/api/p2p/orders/create",
			"/api/p2p/orders/cancel",
		},
		Protected: []string{
			"/dashboard",
			"/profile",
			"/api/wallet",
			"/api/p2p",
		},
	}
}

// New compiles the lists into a table. Rules are laid out in the fixed
// precedence order regardless of how the lists were populated.
func New(lists Lists) *Table {
	t := &Table{}

	t.append(ClassAdminLogin, []string{"/admin/login"})
	t.append(ClassAdmin, lists.Admin)
	t.append(ClassAuthPage, lists.AuthPages)
	t.append(ClassPublic, lists.Public)
	t.append(ClassTwoFA, lists.TwoFA)
	t.append(ClassProtected, lists.Protected)

	return t
}

// NewDefault compiles the built-in route lists.
func NewDefault() *Table {
	return New(DefaultLists())
}

func (t *Table) append(class Class, patterns []string) {
	for _, p := range patterns {
		if p == "" {
			continue
		}
		t.rules = append(t.rules, Rule{Pattern: p, Class: class})
	}
}

// Classify returns the access tier for a request path. Paths matching no
// rule are treated as protected: unknown routes deny by default.
func (t *Table) Classify(path string) Class {
	for _, rule := range t.rules {
		if matches(rule.Pattern, path) {
			return rule.Class
		}
	}
	return ClassProtected
}

// Rules returns a copy of the compiled rule order, mainly for diagnostics.
func (t *Table) Rules() []Rule {
	out := make([]Rule, len(t.rules))
	copy(out, t.rules)
	return out
}

// matches reports whether path falls under pattern. Matching is on whole
// path segments so "/admin" does not capture "/administrators".
func matches(pattern, path string) bool {
	if pattern == "/" {
		return path == "/"
	}
	return path == pattern || strings.HasPrefix(path, pattern+"/")
}
