// Package guard decides whether a session may view a page. Decisions are
// pure values; callers perform the redirect.
package guard

import (
	"strings"

	"speakwell/internal/models"
	"speakwell/internal/session"
)

// Page paths
const (
	LandingPage        = "/"
	TrialPage          = "/trial"
	RoadmapPage        = "/roadmap"
	UserDashboardPage  = "/user-dashboard"
	AdminDashboardPage = "/admin-dashboard"
)

// Rule is an access requirement for a page
type Rule struct {
	kind ruleKind
	role models.Role
}

type ruleKind int

const (
	kindPublic ruleKind = iota
	kindAuthenticated
	kindRole
)

var (
	// Public lets everyone through
	Public = Rule{kind: kindPublic}
	// RequireAuthenticated lets any signed-in session through
	RequireAuthenticated = Rule{kind: kindAuthenticated}
)

// RequireRole lets through sessions holding role
func RequireRole(role models.Role) Rule {
	return Rule{kind: kindRole, role: role}
}

func (r Rule) String() string {
	switch r.kind {
	case kindAuthenticated:
		return "authenticated"
	case kindRole:
		return "role:" + string(r.role)
	default:
		return "public"
	}
}

// Decision is the outcome of evaluating a Rule. A zero RedirectTo means the
// navigation is allowed.
type Decision struct {
	Allow      bool
	RedirectTo string
}

func allow() Decision { return Decision{Allow: true} }

func redirect(path string) Decision { return Decision{RedirectTo: path} }

// DefaultPage returns where a role lands after sign-in
func DefaultPage(role models.Role) string {
	if role == models.RoleAdmin {
		return AdminDashboardPage
	}
	return UserDashboardPage
}

// Evaluate applies rule to sess. sess may be nil.
func Evaluate(rule Rule, sess *session.Session) Decision {
	switch rule.kind {
	case kindAuthenticated:
		if sess == nil {
			return redirect(LandingPage)
		}
		return allow()
	case kindRole:
		if sess == nil {
			return redirect(LandingPage)
		}
		if sess.Role != rule.role {
			return redirect(DefaultPage(sess.Role))
		}
		return allow()
	default:
		return allow()
	}
}

// Route binds a path, or a path prefix ending in "/", to a rule
type Route struct {
	Path string
	Rule Rule
}

// Table is an ordered list of routes. The longest matching path wins.
type Table []Route

// DefaultTable is the application's route table
var DefaultTable = Table{
	{Path: LandingPage, Rule: Public},
	{Path: TrialPage, Rule: RequireAuthenticated},
	{Path: "/trial/", Rule: RequireAuthenticated},
	{Path: "/speak", Rule: Public},
	{Path: "/auth/", Rule: Public},
	{Path: "/healthz", Rule: Public},
	{Path: RoadmapPage, Rule: RequireAuthenticated},
	{Path: UserDashboardPage, Rule: RequireAuthenticated},
	{Path: "/lessons", Rule: RequireAuthenticated},
	{Path: "/units", Rule: RequireAuthenticated},
	{Path: "/feedback", Rule: RequireAuthenticated},
	{Path: AdminDashboardPage, Rule: RequireRole(models.RoleAdmin)},
	{Path: "/admin/", Rule: RequireRole(models.RoleAdmin)},
}

// RuleFor returns the rule guarding path. Paths matching no route are public.
func (t Table) RuleFor(path string) Rule {
	best := -1
	rule := Public
	for _, r := range t {
		if !matches(r.Path, path) {
			continue
		}
		if len(r.Path) > best {
			best = len(r.Path)
			rule = r.Rule
		}
	}
	return rule
}

func matches(pattern, path string) bool {
	if pattern == path {
		return true
	}
	if pattern != "/" && strings.HasSuffix(pattern, "/") {
		return strings.HasPrefix(path, pattern) || path == strings.TrimSuffix(pattern, "/")
	}
	return false
}

// Check evaluates the rule for path against sess
func (t Table) Check(path string, sess *session.Session) Decision {
	return Evaluate(t.RuleFor(path), sess)
}
