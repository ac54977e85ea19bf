// ABOUTME: Role-gated panel composition from a single declarative rule table
// ABOUTME: Pure functions of the session; no I/O, deterministic output order

package views

import (
	"github.com/2389/factdesk/internal/session"
)

// PanelID names one panel.
type PanelID string

const (
	PanelLogin           PanelID = "login"
	PanelSignup          PanelID = "signup"
	PanelUserAdmin       PanelID = "user-admin"
	PanelSourceAdmin     PanelID = "source-admin"
	PanelArticleAdmin    PanelID = "article-admin"
	PanelReportSubmit    PanelID = "report-submit"
	PanelCredibilityForm PanelID = "credibility-form"
	PanelPerformCheck    PanelID = "perform-check"
	PanelArticleList     PanelID = "article-list"
	PanelSourceList      PanelID = "source-list"
	PanelCredibilityList PanelID = "credibility-list"
	PanelReportList      PanelID = "report-list"
	PanelTopSources      PanelID = "top-sources"
	PanelActiveReporters PanelID = "active-reporters"
	PanelUnderReview     PanelID = "under-review"
)

// Rule is one row of the visibility table. A nil Roles means any
// authenticated session.
type Rule struct {
	Panel PanelID
	Title string
	Roles []session.Role
}

// Allows reports whether role may see the panel.
func (r Rule) Allows(role session.Role) bool {
	if r.Roles == nil {
		return role.Valid()
	}
	for _, allowed := range r.Roles {
		if allowed == role {
			return true
		}
	}
	return false
}

var (
	adminOnly        = []session.Role{session.RoleAdmin}
	adminOrReporter  = []session.Role{session.RoleAdmin, session.RoleReporter}
	checkerOrAdmin   = []session.Role{session.RoleFactChecker, session.RoleAdmin}
	anyAuthenticated []session.Role
)

// table is the whole client-side authorization contract, in display order.
var table = []Rule{
	{PanelUserAdmin, "Add user", adminOnly},
	{PanelSourceAdmin, "Add source", adminOnly},
	{PanelArticleAdmin, "Add article", adminOrReporter},
	{PanelReportSubmit, "Report an article", anyAuthenticated},
	{PanelCredibilityForm, "Add credibility check", checkerOrAdmin},
	{PanelPerformCheck, "Perform credibility check", checkerOrAdmin},
	{PanelArticleList, "Articles", anyAuthenticated},
	{PanelSourceList, "Sources", anyAuthenticated},
	{PanelCredibilityList, "Credibility checks", checkerOrAdmin},
	{PanelReportList, "Reports", checkerOrAdmin},
	{PanelTopSources, "Top trusted sources", anyAuthenticated},
	{PanelActiveReporters, "Active reporters", checkerOrAdmin},
	{PanelUnderReview, "Articles under review", checkerOrAdmin},
}

var unauthenticated = []PanelID{PanelLogin, PanelSignup}

var titles = map[PanelID]string{
	PanelLogin:  "Log in",
	PanelSignup: "Sign up",
}

func init() {
	for _, r := range table {
		titles[r.Panel] = r.Title
	}
}

// Compose returns the panels visible to s, in table order. A nil session
// sees only login and signup.
func Compose(s *session.Session) []PanelID {
	if s == nil {
		return append([]PanelID(nil), unauthenticated...)
	}

	out := make([]PanelID, 0, len(table))
	for _, r := range table {
		if r.Allows(s.User.Role) {
			out = append(out, r.Panel)
		}
	}
	return out
}

// Visible reports whether id is in Compose(s).
func Visible(s *session.Session, id PanelID) bool {
	for _, p := range Compose(s) {
		if p == id {
			return true
		}
	}
	return false
}

// Table returns a copy of the rule table.
func Table() []Rule {
	out := make([]Rule, len(table))
	for i, r := range table {
		out[i] = Rule{Panel: r.Panel, Title: r.Title}
		if r.Roles != nil {
			out[i].Roles = append([]session.Role(nil), r.Roles...)
		}
	}
	return out
}

// Title returns the display title of a panel, or the ID when unknown.
func Title(id PanelID) string {
	if t, ok := titles[id]; ok {
		return t
	}
	return string(id)
}

// Known reports whether id names a panel.
func Known(id PanelID) bool {
	_, ok := titles[id]
	return ok
}
