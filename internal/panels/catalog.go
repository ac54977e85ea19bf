// ABOUTME: The concrete form and list panels keyed by panel ID
// ABOUTME: Field sets, endpoints, columns and empty-state messages live here

package panels

import (
	"context"
	"fmt"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/2389/factdesk/internal/api"
	"github.com/2389/factdesk/internal/session"
	"github.com/2389/factdesk/internal/views"
)

func roleOptions() []Option {
	opts := make([]Option, 0, len(session.ValidRoles))
	for _, r := range session.ValidRoles {
		opts = append(opts, Option{Value: string(r), Label: string(r)})
	}
	return opts
}

func verdictOptions() []Option {
	opts := make([]Option, 0, len(api.Verdicts))
	for _, v := range api.Verdicts {
		opts = append(opts, Option{Value: v, Label: v})
	}
	return opts
}

func scoreField(name, label, def string, required bool) Field {
	return Field{
		Name:     name,
		Label:    label,
		Kind:     KindFloat,
		Required: required,
		Default:  def,
		Min:      bound(0),
		Max:      bound(1),
		Step:     "0.01",
	}
}

var forms = map[views.PanelID]*Form{
	views.PanelUserAdmin: {
		Panel:   views.PanelUserAdmin,
		Route:   api.RouteUsers,
		Button:  "Add user",
		Confirm: "User added successfully",
		Fields: []Field{
			{Name: "name", Label: "Name", Kind: KindText, Required: true},
			{Name: "email", Label: "Email", Kind: KindEmail, Required: true},
			{Name: "password", Label: "Password", Kind: KindPassword, Required: true},
			{Name: "role", Label: "Role", Kind: KindSelect, Required: true, Default: string(session.RoleUser), Options: roleOptions()},
		},
	},
	views.PanelSourceAdmin: {
		Panel:   views.PanelSourceAdmin,
		Route:   api.RouteSources,
		Button:  "Add source",
		Confirm: "Source added successfully",
		Fields: []Field{
			{Name: "name", Label: "Name", Kind: KindText, Required: true},
			{Name: "domain", Label: "Domain", Kind: KindText, Required: true, Placeholder: "e.g. example.com"},
			{Name: "trust", Label: "Trust rating", Kind: KindFloat, Default: "50", Min: bound(0), Max: bound(100), Step: "0.01"},
		},
	},
	views.PanelArticleAdmin: {
		Panel:   views.PanelArticleAdmin,
		Route:   api.RouteArticles,
		Button:  "Add article",
		Confirm: "Article added successfully",
		Fields: []Field{
			{Name: "title", Label: "Title", Kind: KindText, Required: true},
			{Name: "content", Label: "Content", Kind: KindTextArea, Required: true},
			{Name: "url", Label: "URL", Kind: KindURL, Required: true, Placeholder: "https://"},
			{Name: "source_id", Label: "Source ID", Kind: KindInt, Required: true, Min: bound(1)},
			{Name: "publish_date", Label: "Publish date", Kind: KindDate, Required: true},
		},
	},
	views.PanelReportSubmit: {
		Panel:   views.PanelReportSubmit,
		Route:   api.RouteReports,
		Button:  "Submit report",
		Confirm: "Report submitted successfully",
		Fields: []Field{
			{Name: "user_id", Label: "User ID", Kind: KindInt, Required: true, Min: bound(1)},
			{Name: "article_id", Label: "Article ID", Kind: KindInt, Required: true, Min: bound(1)},
			{Name: "reason", Label: "Reason", Kind: KindTextArea, Placeholder: "Why is this article suspicious?"},
		},
		prefill: func(s *session.Session, values map[string]string) {
			values["user_id"] = strconv.FormatInt(s.User.ID, 10)
		},
	},
	views.PanelCredibilityForm: {
		Panel:   views.PanelCredibilityForm,
		Route:   api.RouteCredibility,
		Button:  "Add check",
		Confirm: "Credibility check added successfully",
		Fields: []Field{
			{Name: "article_id", Label: "Article ID", Kind: KindInt, Required: true, Min: bound(1)},
			scoreField("ai_score", "AI score", "", true),
			scoreField("factcheck_score", "Fact-check score", "", false),
			{Name: "final_verdict", Label: "Final verdict", Kind: KindSelect, Required: true, Default: api.VerdictUnverified, Options: verdictOptions()},
			{Name: "checked_by", Label: "Checked by (user ID)", Kind: KindInt, Min: bound(1)},
		},
	},
	views.PanelPerformCheck: {
		Panel:   views.PanelPerformCheck,
		Route:   api.RoutePerformCheck,
		Button:  "Record check",
		Confirm: "Credibility check recorded",
		Fields: []Field{
			{Name: "article_id", Label: "Article", Kind: KindInt, Required: true, Min: bound(1)},
			scoreField("ai_score", "AI score", "0.50", true),
			scoreField("factcheck_score", "Fact-check score", "0.50", true),
			{Name: "final_verdict", Label: "Final verdict", Kind: KindSelect, Required: true, Default: api.VerdictUnverified, Options: verdictOptions()},
			{Name: "checked_by", Label: "Checked by", Kind: KindInt, Required: true, Min: bound(1)},
		},
		load:  loadCheckChoices,
		check: checkChecker,
	},
}

// loadCheckChoices fetches articles and users together to offer choices
// and to know every user's role.
func loadCheckChoices(ctx context.Context, a API, st *FormState) error {
	var (
		articles []api.ArticleRow
		users    []api.UserRow
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		articles, err = a.ListArticles(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		users, err = a.ListUsers(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("load check choices: %w", err)
	}

	articleOpts := make([]Option, 0, len(articles))
	for _, art := range articles {
		articleOpts = append(articleOpts, Option{
			Value: idText(art.ArticleID),
			Label: fmt.Sprintf("%s (#%d)", art.Title, art.ArticleID),
		})
	}

	roster := make(map[int64]session.Role, len(users))
	checkerOpts := make([]Option, 0, len(users))
	for _, u := range users {
		role := session.Role(u.Role)
		roster[u.UserID] = role
		if canCheck(role) {
			checkerOpts = append(checkerOpts, Option{
				Value: idText(u.UserID),
				Label: fmt.Sprintf("%s (%s)", u.Name, u.Role),
			})
		}
	}

	if st.Options == nil {
		st.Options = make(map[string][]Option)
	}
	st.Options["article_id"] = articleOpts
	st.Options["checked_by"] = checkerOpts
	st.Roster = roster
	return nil
}

func canCheck(role session.Role) bool {
	return role == session.RoleFactChecker || role == session.RoleAdmin
}

// checkChecker rejects a checked_by that is not a fact-checker or admin.
func checkChecker(st *FormState, payload map[string]any) error {
	id, _ := payload["checked_by"].(int64)
	role, ok := st.Roster[id]
	if !ok {
		return api.Validation("Checked by: user %d does not exist", id)
	}
	if !canCheck(role) {
		return api.Validation("Checked by: user %d is a %s; only fact-checkers and admins can perform checks", id, role)
	}
	return nil
}

var listers = map[views.PanelID]*Lister{
	views.PanelArticleList: {
		Panel:   views.PanelArticleList,
		Columns: []string{"ID", "Title", "Source", "Published", "Review status", "Reports", "Credibility"},
		Empty:   "No articles found.",
		fetch:   fetchArticles,
	},
	views.PanelSourceList: {
		Panel:   views.PanelSourceList,
		Columns: []string{"ID", "Name", "Domain", "Trust rating", "Avg credibility", "Created"},
		Empty:   "No sources found.",
		fetch:   fetchSources,
	},
	views.PanelCredibilityList: {
		Panel:   views.PanelCredibilityList,
		Columns: []string{"ID", "Article", "AI score", "Fact-check score", "Verdict", "Checked by", "Date"},
		Empty:   "No credibility checks found.",
		fetch:   fetchChecks,
	},
	views.PanelReportList: {
		Panel:   views.PanelReportList,
		Columns: []string{"ID", "Reporter", "Article", "Reason", "Status", "Date"},
		Empty:   "No reports found.",
		fetch:   fetchReports,
	},
	views.PanelTopSources: {
		Panel:   views.PanelTopSources,
		Columns: []string{"Rank", "Source", "Domain", "Trust rating"},
		Empty:   "No sources found.",
		fetch:   fetchTopSources,
	},
	views.PanelActiveReporters: {
		Panel:   views.PanelActiveReporters,
		Columns: []string{"Name", "Email", "Role", "Reports"},
		Empty:   "No active reporters found.",
		fetch:   fetchActiveReporters,
	},
	views.PanelUnderReview: {
		Panel:   views.PanelUnderReview,
		Columns: []string{"ID", "Title", "Source", "Reports", "Status"},
		Empty:   "No articles are currently under review.",
		fetch:   fetchUnderReview,
	},
}

// LookupForm returns the form panel for id.
func LookupForm(id views.PanelID) (*Form, bool) {
	f, ok := forms[id]
	return f, ok
}

// LookupLister returns the list panel for id.
func LookupLister(id views.PanelID) (*Lister, bool) {
	l, ok := listers[id]
	return l, ok
}
