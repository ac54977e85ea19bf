// ABOUTME: Form panels: uncommitted field state and one mutating request per submit
// ABOUTME: Success clears the state and bumps the refresh token; failure keeps the values

package panels

import (
	"context"
	"maps"

	"github.com/2389/factdesk/internal/api"
	"github.com/2389/factdesk/internal/session"
	"github.com/2389/factdesk/internal/views"
)

// API is the subset of *api.Client the panels use.
type API interface {
	Create(ctx context.Context, route string, fields map[string]any) (*api.MessageReply, error)
	MarkReportReviewed(ctx context.Context, reportID int64) (*api.MessageReply, error)
	ListUsers(ctx context.Context) ([]api.UserRow, error)
	ListSources(ctx context.Context) ([]api.SourceRow, error)
	ListArticles(ctx context.Context) ([]api.ArticleRow, error)
	ListReports(ctx context.Context) ([]api.ReportRow, error)
	ListCredibilityChecks(ctx context.Context) ([]api.CredibilityRow, error)
	SourceAvgCredibility(ctx context.Context, sourceID int64) (*api.AvgCredibility, error)
	ArticlesWithReportCount(ctx context.Context) ([]api.ReportCountRow, error)
	ArticleReportCount(ctx context.Context, articleID int64) (*api.ReportCount, error)
	TopTrustedSources(ctx context.Context) ([]api.TopSourceRow, error)
	ActiveReporters(ctx context.Context) ([]api.ActiveReporterRow, error)
	UnderReviewArticles(ctx context.Context) ([]api.UnderReviewRow, error)
}

// Notifier is told after every successful mutation. *refresh.Coordinator
// satisfies it.
type Notifier interface {
	Bump() uint64
}

// tokenSource is implemented by notifiers that expose the current refresh
// token, letting forms notice that loaded choices predate a mutation.
type tokenSource interface {
	Token() uint64
}

// FormState is the uncommitted state of one form panel.
type FormState struct {
	Values map[string]string
	// Options offers loaded choices for a field (e.g. articles, checkers).
	Options map[string][]Option
	// Roster maps user IDs to roles, loaded by forms that validate users.
	Roster map[int64]session.Role
	Loaded bool
	// LoadedAt is the refresh token the choices were loaded at.
	LoadedAt uint64
	LoadErr  error
	Message  string
	Err      error

	initial map[string]string
}

// ErrorText returns the reason to show for the last failure.
func (s *FormState) ErrorText() string {
	return api.Reason(s.Err)
}

// LoadErrorText returns the reason to show when loading choices failed.
func (s *FormState) LoadErrorText() string {
	return api.Reason(s.LoadErr)
}

// Form is a create panel bound to one endpoint.
type Form struct {
	Panel   views.PanelID
	Route   string
	Fields  []Field
	Button  string
	Confirm string

	prefill func(s *session.Session, values map[string]string)
	load    func(ctx context.Context, a API, st *FormState) error
	check   func(st *FormState, payload map[string]any) error
}

// Title returns the panel title.
func (f *Form) Title() string {
	return views.Title(f.Panel)
}

// Field returns the named field.
func (f *Form) Field(name string) (Field, bool) {
	for _, fl := range f.Fields {
		if fl.Name == name {
			return fl, true
		}
	}
	return Field{}, false
}

// NewState returns a fresh state with defaults and session prefills.
func (f *Form) NewState(s *session.Session) *FormState {
	initial := make(map[string]string, len(f.Fields))
	for _, fl := range f.Fields {
		if fl.Default != "" {
			initial[fl.Name] = fl.Default
		}
	}
	if f.prefill != nil && s != nil {
		f.prefill(s, initial)
	}
	return &FormState{
		Values:  maps.Clone(initial),
		Options: make(map[string][]Option),
		initial: initial,
	}
}

// NeedsLoad reports whether the form fetches choices before use.
func (f *Form) NeedsLoad() bool {
	return f.load != nil
}

// Load fetches the form's choices into st. Forms without choices are
// loaded immediately.
func (f *Form) Load(ctx context.Context, a API, st *FormState) error {
	if f.load == nil {
		st.Loaded = true
		return nil
	}
	err := f.load(ctx, a, st)
	st.LoadErr = err
	st.Loaded = err == nil
	return err
}

// Refresh loads the form's choices unless they were already loaded at
// token. Any mutation since the last load moves the token, so a user or
// article created elsewhere shows up on the next render.
func (f *Form) Refresh(ctx context.Context, a API, st *FormState, token uint64) error {
	if !f.NeedsLoad() || (st.Loaded && st.LoadedAt == token) {
		return nil
	}
	if err := f.Load(ctx, a, st); err != nil {
		return err
	}
	st.LoadedAt = token
	return nil
}

// Submit validates st.Values, issues the request, and updates st. On
// success the values reset to their initial state, st.Message carries the
// server's message (or the panel's confirmation) and n is bumped. On
// failure the values are kept and st.Err holds the reason. Never retries.
func (f *Form) Submit(ctx context.Context, a API, st *FormState, n Notifier) (*api.MessageReply, error) {
	st.Message = ""
	st.Err = nil

	payload, err := serialize(f.Fields, st.Values)
	if err != nil {
		st.Err = err
		return nil, err
	}

	if f.check != nil {
		if ts, ok := n.(tokenSource); ok {
			err = f.Refresh(ctx, a, st, ts.Token())
		} else if !st.Loaded {
			err = f.Load(ctx, a, st)
		}
		if err != nil {
			st.Err = err
			return nil, err
		}
		if err := f.check(st, payload); err != nil {
			st.Err = err
			return nil, err
		}
	}

	reply, err := a.Create(ctx, f.Route, payload)
	if err != nil {
		st.Err = err
		return nil, err
	}

	st.Values = maps.Clone(st.initial)
	st.Message = reply.Message
	if st.Message == "" {
		st.Message = f.Confirm
	}
	if n != nil {
		n.Bump()
	}
	return reply, nil
}

// MarkReviewed moves an Open report to Reviewed and bumps n on success.
func MarkReviewed(ctx context.Context, a API, reportID int64, n Notifier) (*api.MessageReply, error) {
	if reportID <= 0 {
		return nil, api.Validation("invalid report id %d", reportID)
	}
	reply, err := a.MarkReportReviewed(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if reply.Message == "" {
		reply.Message = "Report marked reviewed"
	}
	if n != nil {
		n.Bump()
	}
	return reply, nil
}
