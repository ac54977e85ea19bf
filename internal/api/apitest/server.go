// ABOUTME: In-memory fake of the fake-news REST API for tests
// ABOUTME: Records every request and lets tests inject failures or block a route

package apitest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/2389/factdesk/internal/api"
)

// Account is a user the fake server can authenticate.
type Account struct {
	api.UserRow
	Password string
}

// Request is one recorded call.
type Request struct {
	Method    string
	Path      string
	Auth      string
	UserAgent string
	Body      map[string]any
}

// Failure makes a route answer with a status and {error} body.
type Failure struct {
	Status  int
	Message string
}

// Server is a fake API backed by in-memory slices.
type Server struct {
	mu       sync.Mutex
	srv      *httptest.Server
	accounts []Account
	sources  []api.SourceRow
	articles []api.ArticleRow
	reports  []api.ReportRow
	checks   []api.CredibilityRow
	avgCred  map[int64]string
	failures map[string]Failure
	hooks    map[string]func()
	requests []Request

	// TokenFor issues the token returned on login/signup. Defaults to "token-<id>".
	TokenFor func(u api.UserRow) string
}

// New starts a fake server seeded with a small data set. It is closed
// when the test ends.
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		avgCred:  make(map[int64]string),
		failures: make(map[string]Failure),
		hooks:    make(map[string]func()),
	}
	s.seed()
	s.srv = httptest.NewServer(s.routes())
	t.Cleanup(s.srv.Close)
	return s
}

func (s *Server) seed() {
	s.accounts = []Account{
		{UserRow: api.UserRow{UserID: 1, Name: "Ada Admin", Email: "admin@example.org", Role: "admin"}, Password: "admin-pw"},
		{UserRow: api.UserRow{UserID: 2, Name: "Fran Checker", Email: "checker@example.org", Role: "fact-checker"}, Password: "checker-pw"},
		{UserRow: api.UserRow{UserID: 3, Name: "Rey Porter", Email: "reporter@example.org", Role: "reporter"}, Password: "reporter-pw"},
		{UserRow: api.UserRow{UserID: 4, Name: "Uma User", Email: "user@example.org", Role: "user"}, Password: "user-pw"},
	}
	s.sources = []api.SourceRow{
		{SourceID: 1, Name: "Daily Facts", Domain: "dailyfacts.example", TrustRating: "82.50", CreatedAt: "Mon, 06 Jan 2025 10:00:00 GMT"},
		{SourceID: 2, Name: "Rumor Mill", Domain: "rumormill.example", TrustRating: "12.00", CreatedAt: "Tue, 07 Jan 2025 10:00:00 GMT"},
	}
	s.articles = []api.ArticleRow{
		{ArticleID: 1, Title: "Budget passes", SourceName: "Daily Facts", PublishDate: "Wed, 08 Jan 2025 00:00:00 GMT", ReviewStatus: "Pending", CredibilityVerdict: "Real", URL: "https://dailyfacts.example/budget"},
		{ArticleID: 2, Title: "Moon made of cheese", SourceName: "Rumor Mill", PublishDate: "Thu, 09 Jan 2025 00:00:00 GMT", ReviewStatus: "Under Review", CredibilityVerdict: "Unverified", URL: "https://rumormill.example/moon"},
	}
	s.reports = []api.ReportRow{
		{ReportID: 1, Reporter: "Uma User", ArticleTitle: "Moon made of cheese", Reason: "obviously false", Status: api.ReportOpen, ReportDate: "Fri, 10 Jan 2025 09:00:00 GMT"},
		{ReportID: 2, Reporter: "Rey Porter", ArticleTitle: "Moon made of cheese", Reason: "", Status: api.ReportReviewed, ReportDate: "Fri, 10 Jan 2025 10:00:00 GMT"},
	}
	s.checks = []api.CredibilityRow{
		{CheckID: 1, ArticleTitle: "Budget passes", AIScore: "0.91", FactCheckScore: "0.88", FinalVerdict: "Real", CheckedBy: "Fran Checker", CheckDate: "Sat, 11 Jan 2025 12:00:00 GMT"},
	}
	s.avgCred[1] = "0.895"
	s.avgCred[2] = "0"
}

// URL returns the server's base URL.
func (s *Server) URL() string {
	return s.srv.URL
}

// Client returns an api.Client pointed at the server.
func (s *Server) Client(opts ...api.Option) *api.Client {
	return api.New(s.srv.URL, opts...)
}

// Fail makes "METHOD /path" answer with the given failure until cleared.
func (s *Server) Fail(route string, f Failure) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[route] = f
}

// ClearFailures removes all injected failures.
func (s *Server) ClearFailures() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = make(map[string]Failure)
}

// Hook runs fn before "METHOD /path" is answered. fn runs outside the lock
// and may block to hold the response.
func (s *Server) Hook(route string, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks[route] = fn
}

// Requests returns a copy of every recorded request.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// Count returns how many times "METHOD /path" was called.
func (s *Server) Count(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.requests {
		if r.Method+" "+r.Path == route {
			n++
		}
	}
	return n
}

// SetSourceTrust overwrites a source's TrustRating, as the trigger layer would.
func (s *Server) SetSourceTrust(id int64, rating string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.sources {
		if s.sources[i].SourceID == id {
			s.sources[i].TrustRating = api.Number(rating)
		}
	}
}

// SetAvgCredibility sets the avg_credibility reply for a source.
func (s *Server) SetAvgCredibility(id int64, v string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.avgCred[id] = v
}

// Report returns the report with the given ID.
func (s *Server) Report(id int64) (api.ReportRow, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.reports {
		if r.ReportID == id {
			return r, true
		}
	}
	return api.ReportRow{}, false
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /ping", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("pong"))
	})

	mux.HandleFunc("POST /api/auth/login", s.handleLogin)
	mux.HandleFunc("POST /api/auth/signup", s.handleSignup)

	mux.HandleFunc("GET /api/users", func(w http.ResponseWriter, _ *http.Request) {
		s.mu.Lock()
		rows := make([]api.UserRow, 0, len(s.accounts))
		for _, a := range s.accounts {
			rows = append(rows, a.UserRow)
		}
		s.mu.Unlock()
		writeJSON(w, http.StatusOK, rows)
	})
	mux.HandleFunc("POST /api/users", s.handleCreateUser)

	mux.HandleFunc("GET /api/sources", func(w http.ResponseWriter, _ *http.Request) {
		s.mu.Lock()
		rows := append([]api.SourceRow{}, s.sources...)
		s.mu.Unlock()
		writeJSON(w, http.StatusOK, rows)
	})
	mux.HandleFunc("POST /api/sources", s.handleCreateSource)
	mux.HandleFunc("GET /api/sources/{id}/avg_credibility", s.handleAvgCredibility)

	mux.HandleFunc("GET /api/articles", func(w http.ResponseWriter, _ *http.Request) {
		s.mu.Lock()
		rows := append([]api.ArticleRow{}, s.articles...)
		s.mu.Unlock()
		writeJSON(w, http.StatusOK, rows)
	})
	mux.HandleFunc("POST /api/articles", s.handleCreateArticle)
	mux.HandleFunc("GET /api/articles/{id}/report_count", s.handleReportCount)

	mux.HandleFunc("GET /api/reports", func(w http.ResponseWriter, _ *http.Request) {
		s.mu.Lock()
		rows := append([]api.ReportRow{}, s.reports...)
		s.mu.Unlock()
		writeJSON(w, http.StatusOK, rows)
	})
	mux.HandleFunc("POST /api/reports", s.handleCreateReport)
	mux.HandleFunc("POST /api/reports/{id}/review", s.handleReview)

	mux.HandleFunc("GET /api/credibility", func(w http.ResponseWriter, _ *http.Request) {
		s.mu.Lock()
		rows := append([]api.CredibilityRow{}, s.checks...)
		s.mu.Unlock()
		writeJSON(w, http.StatusOK, rows)
	})
	mux.HandleFunc("POST /api/credibility", s.handleCreateCheck("Credibility check added successfully"))
	mux.HandleFunc("POST /api/perform_check", s.handleCreateCheck("Credibility check recorded"))

	mux.HandleFunc("GET /api/analytics/top_trusted_sources", s.handleTopSources)
	mux.HandleFunc("GET /api/analytics/active_reporters", s.handleActiveReporters)
	mux.HandleFunc("GET /api/analytics/under_review_articles", s.handleUnderReview)
	mux.HandleFunc("GET /api/analytics/articles_with_report_count", s.handleArticleCounts)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&body)
		}
		route := r.Method + " " + r.URL.Path

		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method:    r.Method,
			Path:      r.URL.Path,
			Auth:      r.Header.Get("Authorization"),
			UserAgent: r.UserAgent(),
			Body:      body,
		})
		hook := s.hooks[route]
		failure, failing := s.failures[route]
		s.mu.Unlock()

		if hook != nil {
			hook()
		}
		if failing {
			writeJSON(w, failure.Status, map[string]string{"error": failure.Message})
			return
		}

		r = r.WithContext(withBody(r.Context(), body))
		mux.ServeHTTP(w, r)
	})
}

func (s *Server) token(u api.UserRow) string {
	if s.TokenFor != nil {
		return s.TokenFor(u)
	}
	return fmt.Sprintf("token-%d", u.UserID)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	body := bodyFrom(r.Context())
	email, _ := body["email"].(string)
	password, _ := body["password"].(string)

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if a.Email == email && a.Password == password {
			writeJSON(w, http.StatusOK, authReply(a.UserRow, s.token(a.UserRow)))
			return
		}
	}
	writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid email or password"})
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	body := bodyFrom(r.Context())
	name, _ := body["name"].(string)
	email, _ := body["email"].(string)
	password, _ := body["password"].(string)
	role, _ := body["role"].(string)

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if a.Email == email {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "Email already registered"})
			return
		}
	}
	// Self-service signup may not grant admin.
	if role == "admin" {
		role = "user"
	}
	row := api.UserRow{UserID: int64(len(s.accounts) + 1), Name: name, Email: email, Role: role}
	s.accounts = append(s.accounts, Account{UserRow: row, Password: password})
	writeJSON(w, http.StatusCreated, authReply(row, s.token(row)))
}

func authReply(u api.UserRow, token string) map[string]any {
	return map[string]any{
		"user": map[string]any{
			"id":    u.UserID,
			"name":  u.Name,
			"email": u.Email,
			"role":  u.Role,
		},
		"token": token,
	}
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	body := bodyFrom(r.Context())
	name, _ := body["name"].(string)
	email, _ := body["email"].(string)
	password, _ := body["password"].(string)
	role, _ := body["role"].(string)
	if name == "" || email == "" || password == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Missing required fields (name, email, password)"})
		return
	}
	if role == "" {
		role = "user"
	}

	s.mu.Lock()
	row := api.UserRow{UserID: int64(len(s.accounts) + 1), Name: name, Email: email, Role: role}
	s.accounts = append(s.accounts, Account{UserRow: row, Password: password})
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, map[string]string{"message": "User added successfully"})
}

func (s *Server) handleCreateSource(w http.ResponseWriter, r *http.Request) {
	body := bodyFrom(r.Context())
	name, _ := body["name"].(string)
	domain, _ := body["domain"].(string)
	trust := "50.00"
	if v, ok := body["trust"]; ok {
		f, isNum := v.(float64)
		if !isNum {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid trust value; must be a number"})
			return
		}
		trust = strconv.FormatFloat(f, 'f', 2, 64)
	}
	if name == "" || domain == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Missing required fields: name and domain"})
		return
	}

	s.mu.Lock()
	id := int64(len(s.sources) + 1)
	s.sources = append(s.sources, api.SourceRow{SourceID: id, Name: name, Domain: domain, TrustRating: api.Number(trust)})
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, map[string]string{"message": "Source added successfully"})
}

func (s *Server) handleCreateArticle(w http.ResponseWriter, r *http.Request) {
	body := bodyFrom(r.Context())
	title, _ := body["title"].(string)
	if title == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Missing required article fields"})
		return
	}
	url, _ := body["url"].(string)

	s.mu.Lock()
	id := int64(len(s.articles) + 1)
	s.articles = append(s.articles, api.ArticleRow{ArticleID: id, Title: title, URL: url, ReviewStatus: "Pending", CredibilityVerdict: api.VerdictUnverified})
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, map[string]string{"message": "Article added successfully"})
}

func (s *Server) handleCreateReport(w http.ResponseWriter, r *http.Request) {
	body := bodyFrom(r.Context())
	if _, ok := body["user_id"]; !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Missing required fields user_id and article_id"})
		return
	}
	if _, ok := body["article_id"]; !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Missing required fields user_id and article_id"})
		return
	}
	reason, _ := body["reason"].(string)

	s.mu.Lock()
	id := int64(len(s.reports) + 1)
	s.reports = append(s.reports, api.ReportRow{ReportID: id, Reason: reason, Status: api.ReportOpen})
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, map[string]string{"message": "Report submitted successfully"})
}

func (s *Server) handleReview(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.reports {
		if s.reports[i].ReportID == id {
			s.reports[i].Status = api.ReportReviewed
			writeJSON(w, http.StatusOK, map[string]string{"message": fmt.Sprintf("Report %d marked Reviewed", id)})
			return
		}
	}
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Report not found"})
}

func (s *Server) handleCreateCheck(message string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body := bodyFrom(r.Context())
		for _, k := range []string{"article_id", "ai_score", "final_verdict"} {
			if _, ok := body[k]; !ok {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Missing required fields"})
				return
			}
		}
		verdict, _ := body["final_verdict"].(string)
		ai, _ := body["ai_score"].(float64)
		fact, _ := body["factcheck_score"].(float64)

		s.mu.Lock()
		id := int64(len(s.checks) + 1)
		s.checks = append(s.checks, api.CredibilityRow{
			CheckID:        id,
			AIScore:        api.Number(strconv.FormatFloat(ai, 'f', -1, 64)),
			FactCheckScore: api.Number(strconv.FormatFloat(fact, 'f', -1, 64)),
			FinalVerdict:   verdict,
		})
		s.mu.Unlock()
		writeJSON(w, http.StatusCreated, map[string]string{"message": message})
	}
}

func (s *Server) handleAvgCredibility(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	s.mu.Lock()
	v, ok := s.avgCred[id]
	s.mu.Unlock()
	if !ok {
		v = "0"
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"source_id": %d, "avg_credibility": %s}`, id, v)
}

func (s *Server) handleReportCount(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"article_id": id, "report_count": s.reportCount(id)})
}

func (s *Server) reportCount(articleID int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var title string
	for _, a := range s.articles {
		if a.ArticleID == articleID {
			title = a.Title
		}
	}
	var n int64
	for _, r := range s.reports {
		if title != "" && r.ArticleTitle == title {
			n++
		}
	}
	return n
}

func (s *Server) handleTopSources(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	rows := make([]api.TopSourceRow, 0, len(s.sources))
	for _, src := range s.sources {
		rows = append(rows, api.TopSourceRow{SourceID: src.SourceID, SourceName: src.Name, Domain: src.Domain, TrustRating: src.TrustRating})
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleActiveReporters(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	rows := []api.ActiveReporterRow{}
	for _, a := range s.accounts {
		var n int64
		for _, r := range s.reports {
			if r.Reporter == a.Name {
				n++
			}
		}
		if n > 0 {
			rows = append(rows, api.ActiveReporterRow{UserID: a.UserID, Name: a.Name, Email: a.Email, Role: a.Role, TotalReports: n})
		}
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleUnderReview(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	articles := append([]api.ArticleRow{}, s.articles...)
	s.mu.Unlock()

	rows := []api.UnderReviewRow{}
	for _, a := range articles {
		if strings.EqualFold(a.ReviewStatus, "Under Review") {
			rows = append(rows, api.UnderReviewRow{
				ArticleID:    a.ArticleID,
				Title:        a.Title,
				SourceName:   a.SourceName,
				TotalReports: s.reportCount(a.ArticleID),
				ReviewStatus: a.ReviewStatus,
			})
		}
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleArticleCounts(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	articles := append([]api.ArticleRow{}, s.articles...)
	s.mu.Unlock()

	rows := make([]api.ReportCountRow, 0, len(articles))
	for _, a := range articles {
		rows = append(rows, api.ReportCountRow{ArticleID: a.ArticleID, ReportCount: s.reportCount(a.ArticleID)})
	}
	writeJSON(w, http.StatusOK, rows)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type bodyKey struct{}

func withBody(ctx context.Context, body map[string]any) context.Context {
	return context.WithValue(ctx, bodyKey{}, body)
}

func bodyFrom(ctx context.Context) map[string]any {
	body, _ := ctx.Value(bodyKey{}).(map[string]any)
	if body == nil {
		return map[string]any{}
	}
	return body
}
