// ABOUTME: Tests for form serialization, submit outcomes, and perform-check validation
// ABOUTME: Runs against the fake upstream so request bodies can be inspected

package panels_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/factdesk/internal/api"
	"github.com/2389/factdesk/internal/api/apitest"
	"github.com/2389/factdesk/internal/panels"
	"github.com/2389/factdesk/internal/refresh"
	"github.com/2389/factdesk/internal/session"
	"github.com/2389/factdesk/internal/views"
)

func mustForm(t *testing.T, id views.PanelID) *panels.Form {
	t.Helper()
	f, ok := panels.LookupForm(id)
	require.True(t, ok, "no form for %s", id)
	return f
}

func adminSession() *session.Session {
	return &session.Session{User: session.User{ID: 1, Name: "Ada Admin", Email: "admin@example.org", Role: session.RoleAdmin}, Token: "token-1"}
}

func TestSubmit_CoercesNumbersAndOmitsBlankOptionals(t *testing.T) {
	srv := apitest.New(t)
	coord := refresh.New()
	f := mustForm(t, views.PanelCredibilityForm)
	st := f.NewState(adminSession())

	st.Values["article_id"] = "2"
	st.Values["ai_score"] = " 0.25 "
	st.Values["final_verdict"] = api.VerdictFake

	reply, err := f.Submit(context.Background(), srv.Client(), st, coord)
	require.NoError(t, err)
	assert.Equal(t, "Credibility check added successfully", reply.Message)

	reqs := srv.Requests()
	require.Len(t, reqs, 1)
	body := reqs[0].Body
	assert.Equal(t, float64(2), body["article_id"])
	assert.Equal(t, 0.25, body["ai_score"])
	assert.Equal(t, api.VerdictFake, body["final_verdict"])
	assert.NotContains(t, body, "factcheck_score")
	assert.NotContains(t, body, "checked_by")
}

func TestSubmit_BlankRequiredFieldMakesNoRequest(t *testing.T) {
	srv := apitest.New(t)
	f := mustForm(t, views.PanelUserAdmin)
	st := f.NewState(adminSession())
	st.Values["name"] = "Nia"
	st.Values["email"] = "   "
	st.Values["password"] = "pw"

	_, err := f.Submit(context.Background(), srv.Client(), st, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, api.ErrValidationFailure)
	assert.Equal(t, "Email is required", st.ErrorText())
	assert.Equal(t, "Nia", st.Values["name"])
	assert.Empty(t, srv.Requests())
}

func TestSubmit_ValidationFailures(t *testing.T) {
	tests := []struct {
		name   string
		panel  views.PanelID
		values map[string]string
		reason string
	}{
		{
			name:   "unparsable int",
			panel:  views.PanelArticleAdmin,
			values: map[string]string{"title": "t", "content": "c", "url": "https://x", "source_id": "one", "publish_date": "2025-01-02"},
			reason: "Source ID must be a whole number",
		},
		{
			name:   "bad date",
			panel:  views.PanelArticleAdmin,
			values: map[string]string{"title": "t", "content": "c", "url": "https://x", "source_id": "1", "publish_date": "02/01/2025"},
			reason: "Publish date must be a date (YYYY-MM-DD)",
		},
		{
			name:   "trust out of range",
			panel:  views.PanelSourceAdmin,
			values: map[string]string{"name": "n", "domain": "d.example", "trust": "120"},
			reason: "Trust rating must be between 0 and 100",
		},
		{
			name:   "unknown role",
			panel:  views.PanelUserAdmin,
			values: map[string]string{"name": "n", "email": "n@x", "password": "p", "role": "overlord"},
			reason: `Role: "overlord" is not one of the offered choices`,
		},
		{
			name:   "email without at",
			panel:  views.PanelUserAdmin,
			values: map[string]string{"name": "n", "email": "nx", "password": "p", "role": "user"},
			reason: "Email must be an email address",
		},
		{
			name:   "score above one",
			panel:  views.PanelCredibilityForm,
			values: map[string]string{"article_id": "1", "ai_score": "1.5", "final_verdict": "Real"},
			reason: "AI score must be between 0 and 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := apitest.New(t)
			f := mustForm(t, tt.panel)
			st := f.NewState(adminSession())
			for k, v := range tt.values {
				st.Values[k] = v
			}

			_, err := f.Submit(context.Background(), srv.Client(), st, nil)
			require.Error(t, err)
			assert.ErrorIs(t, err, api.ErrValidationFailure)
			assert.Equal(t, tt.reason, st.ErrorText())
			assert.Empty(t, srv.Requests())
		})
	}
}

func TestSubmit_SuccessResetsStateAndBumps(t *testing.T) {
	srv := apitest.New(t)
	coord := refresh.New()
	f := mustForm(t, views.PanelSourceAdmin)
	st := f.NewState(adminSession())
	assert.Equal(t, "50", st.Values["trust"])

	st.Values["name"] = "Wire"
	st.Values["domain"] = "wire.example"

	_, err := f.Submit(context.Background(), srv.Client(), st, coord)
	require.NoError(t, err)

	assert.Equal(t, "Source added successfully", st.Message)
	assert.NoError(t, st.Err)
	assert.Equal(t, map[string]string{"trust": "50"}, st.Values)
	assert.Equal(t, uint64(1), coord.Token())
}

func TestSubmit_FailureKeepsStateAndDoesNotBump(t *testing.T) {
	srv := apitest.New(t)
	srv.Fail("POST /api/users", apitest.Failure{Status: 400, Message: "Email already exists"})
	coord := refresh.New()
	f := mustForm(t, views.PanelUserAdmin)
	st := f.NewState(adminSession())
	st.Values["name"] = "Nia"
	st.Values["email"] = "nia@example.org"
	st.Values["password"] = "pw"

	_, err := f.Submit(context.Background(), srv.Client(), st, coord)
	require.Error(t, err)
	assert.ErrorIs(t, err, api.ErrServerError)
	assert.Equal(t, "Email already exists", st.ErrorText())
	assert.Equal(t, "nia@example.org", st.Values["email"])
	assert.Empty(t, st.Message)
	assert.Equal(t, uint64(0), coord.Token())
	assert.Equal(t, 1, srv.Count("POST /api/users"))
}

func TestReportSubmit_PrefillsUserFromSession(t *testing.T) {
	f := mustForm(t, views.PanelReportSubmit)
	st := f.NewState(&session.Session{User: session.User{ID: 42, Name: "R", Role: session.RoleUser}})
	assert.Equal(t, "42", st.Values["user_id"])

	srv := apitest.New(t)
	st.Values["article_id"] = "1"
	_, err := f.Submit(context.Background(), srv.Client(), st, nil)
	require.NoError(t, err)
	assert.Equal(t, "42", st.Values["user_id"], "prefill survives the reset")
}

func TestCreateSourceThenListShowsServerTrust(t *testing.T) {
	srv := apitest.New(t)
	client := srv.Client()
	coord := refresh.New()
	f := mustForm(t, views.PanelSourceAdmin)
	st := f.NewState(adminSession())
	st.Values["name"] = "Wire"
	st.Values["domain"] = "wire.example"

	_, err := f.Submit(context.Background(), client, st, coord)
	require.NoError(t, err)
	assert.Equal(t, float64(50), srv.Requests()[0].Body["trust"])

	l, ok := panels.LookupLister(views.PanelSourceList)
	require.True(t, ok)
	listing := l.Fetch(context.Background(), client, panels.FetchOptions{})
	require.NoError(t, listing.Err)
	require.Len(t, listing.Rows, 3)
	assert.Equal(t, "50.00%", listing.Rows[2].Cells[3].Text)
}

func TestPerformCheck_LoadsChoices(t *testing.T) {
	srv := apitest.New(t)
	f := mustForm(t, views.PanelPerformCheck)
	require.True(t, f.NeedsLoad())
	st := f.NewState(adminSession())

	require.NoError(t, f.Load(context.Background(), srv.Client(), st))
	assert.True(t, st.Loaded)
	assert.Equal(t, []panels.Option{
		{Value: "1", Label: "Ada Admin (admin)"},
		{Value: "2", Label: "Fran Checker (fact-checker)"},
	}, st.Options["checked_by"])
	assert.Len(t, st.Options["article_id"], 2)
	assert.Equal(t, session.RoleUser, st.Roster[4])
	assert.Equal(t, "0.50", st.Values["ai_score"])
	assert.Equal(t, api.VerdictUnverified, st.Values["final_verdict"])
}

func TestPerformCheck_RejectsNonCheckerBeforeNetwork(t *testing.T) {
	srv := apitest.New(t)
	f := mustForm(t, views.PanelPerformCheck)
	st := f.NewState(adminSession())
	require.NoError(t, f.Load(context.Background(), srv.Client(), st))
	loadCalls := len(srv.Requests())

	st.Values["article_id"] = "1"
	st.Values["checked_by"] = "4"

	_, err := f.Submit(context.Background(), srv.Client(), st, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, api.ErrValidationFailure)
	assert.Contains(t, st.ErrorText(), "only fact-checkers and admins")
	assert.Len(t, srv.Requests(), loadCalls)
}

func TestPerformCheck_RejectsUnknownUser(t *testing.T) {
	srv := apitest.New(t)
	f := mustForm(t, views.PanelPerformCheck)
	st := f.NewState(adminSession())
	st.Values["article_id"] = "1"
	st.Values["checked_by"] = "99"

	_, err := f.Submit(context.Background(), srv.Client(), st, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, api.ErrValidationFailure)
	assert.Equal(t, 0, srv.Count("POST /api/perform_check"))
	assert.Equal(t, 1, srv.Count("GET /api/users"), "submit loads the roster on demand")
}

func TestPerformCheck_Success(t *testing.T) {
	srv := apitest.New(t)
	coord := refresh.New()
	f := mustForm(t, views.PanelPerformCheck)
	st := f.NewState(adminSession())
	st.Values["article_id"] = "2"
	st.Values["checked_by"] = "2"
	st.Values["final_verdict"] = api.VerdictFake

	_, err := f.Submit(context.Background(), srv.Client(), st, coord)
	require.NoError(t, err)
	assert.Equal(t, "Credibility check recorded", st.Message)
	assert.Equal(t, uint64(1), coord.Token())

	var body map[string]any
	for _, r := range srv.Requests() {
		if r.Method == "POST" && r.Path == api.RoutePerformCheck {
			body = r.Body
		}
	}
	require.NotNil(t, body)
	assert.Equal(t, 0.5, body["ai_score"])
	assert.Equal(t, 0.5, body["factcheck_score"])
	assert.Equal(t, float64(2), body["checked_by"])
}

func TestPerformCheck_ReloadsRosterAfterMutation(t *testing.T) {
	srv := apitest.New(t)
	ctx := context.Background()
	coord := refresh.New()

	check := mustForm(t, views.PanelPerformCheck)
	st := check.NewState(adminSession())
	require.NoError(t, check.Refresh(ctx, srv.Client(), st, coord.Token()))
	require.NoError(t, check.Refresh(ctx, srv.Client(), st, coord.Token()))
	assert.Equal(t, 1, srv.Count("GET /api/users"), "unchanged token reuses the roster")

	users := mustForm(t, views.PanelUserAdmin)
	ust := users.NewState(adminSession())
	ust.Values["name"] = "New Checker"
	ust.Values["email"] = "new.checker@example.org"
	ust.Values["password"] = "pw"
	ust.Values["role"] = string(session.RoleFactChecker)
	_, err := users.Submit(ctx, srv.Client(), ust, coord)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), coord.Token())

	st.Values["article_id"] = "1"
	st.Values["checked_by"] = "5"
	_, err = check.Submit(ctx, srv.Client(), st, coord)
	require.NoError(t, err, st.ErrorText())
	assert.Equal(t, 1, srv.Count("POST /api/perform_check"))
	assert.Equal(t, 2, srv.Count("GET /api/users"))
	assert.Equal(t, uint64(1), st.LoadedAt)
	assert.Contains(t, st.Options["checked_by"], panels.Option{Value: "5", Label: "New Checker (fact-checker)"})
}

func TestPerformCheck_LoadFailure(t *testing.T) {
	srv := apitest.New(t)
	srv.Fail("GET /api/users", apitest.Failure{Status: 500, Message: "db down"})
	f := mustForm(t, views.PanelPerformCheck)
	st := f.NewState(adminSession())

	err := f.Load(context.Background(), srv.Client(), st)
	require.Error(t, err)
	assert.False(t, st.Loaded)
	assert.Equal(t, "db down", st.LoadErrorText())
}

func TestMarkReviewed(t *testing.T) {
	srv := apitest.New(t)
	coord := refresh.New()

	reply, err := panels.MarkReviewed(context.Background(), srv.Client(), 1, coord)
	require.NoError(t, err)
	assert.Equal(t, "Report 1 marked Reviewed", reply.Message)
	assert.Equal(t, uint64(1), coord.Token())

	r, ok := srv.Report(1)
	require.True(t, ok)
	assert.Equal(t, api.ReportReviewed, r.Status)

	_, err = panels.MarkReviewed(context.Background(), srv.Client(), 0, coord)
	assert.ErrorIs(t, err, api.ErrValidationFailure)
	assert.Equal(t, uint64(1), coord.Token())
}
