// ABOUTME: Typed endpoint methods for users, sources, articles, reports, checks and analytics
// ABOUTME: One method per REST route; mutations go through Create

package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// Collection routes accepting GET (list) and POST (create).
const (
	RouteUsers        = "/api/users"
	RouteSources      = "/api/sources"
	RouteArticles     = "/api/articles"
	RouteReports      = "/api/reports"
	RouteCredibility  = "/api/credibility"
	RoutePerformCheck = "/api/perform_check"
)

// Login posts credentials to /api/auth/login.
func (c *Client) Login(ctx context.Context, email, password string) (*AuthReply, error) {
	var reply AuthReply
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", "/api/auth/login", body, &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}

// Signup posts a new account to /api/auth/signup.
func (c *Client) Signup(ctx context.Context, req SignupRequest) (*AuthReply, error) {
	var reply AuthReply
	if err := c.do(ctx, http.MethodPost, "/api/auth/signup", "/api/auth/signup", req, &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}

// Create posts fields to one of the collection routes.
func (c *Client) Create(ctx context.Context, route string, fields map[string]any) (*MessageReply, error) {
	var reply MessageReply
	if err := c.do(ctx, http.MethodPost, route, route, fields, &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}

func (c *Client) ListUsers(ctx context.Context) ([]UserRow, error) {
	var rows []UserRow
	err := c.do(ctx, http.MethodGet, RouteUsers, RouteUsers, nil, &rows)
	return rows, err
}

func (c *Client) ListSources(ctx context.Context) ([]SourceRow, error) {
	var rows []SourceRow
	err := c.do(ctx, http.MethodGet, RouteSources, RouteSources, nil, &rows)
	return rows, err
}

func (c *Client) ListArticles(ctx context.Context) ([]ArticleRow, error) {
	var rows []ArticleRow
	err := c.do(ctx, http.MethodGet, RouteArticles, RouteArticles, nil, &rows)
	return rows, err
}

func (c *Client) ListReports(ctx context.Context) ([]ReportRow, error) {
	var rows []ReportRow
	err := c.do(ctx, http.MethodGet, RouteReports, RouteReports, nil, &rows)
	return rows, err
}

func (c *Client) ListCredibilityChecks(ctx context.Context) ([]CredibilityRow, error) {
	var rows []CredibilityRow
	err := c.do(ctx, http.MethodGet, RouteCredibility, RouteCredibility, nil, &rows)
	return rows, err
}

// MarkReportReviewed asks the server to move an Open report to Reviewed.
func (c *Client) MarkReportReviewed(ctx context.Context, reportID int64) (*MessageReply, error) {
	var reply MessageReply
	path := fmt.Sprintf("/api/reports/%d/review", reportID)
	if err := c.do(ctx, http.MethodPost, "/api/reports/{id}/review", path, nil, &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}

func (c *Client) SourceAvgCredibility(ctx context.Context, sourceID int64) (*AvgCredibility, error) {
	var out AvgCredibility
	path := fmt.Sprintf("/api/sources/%d/avg_credibility", sourceID)
	if err := c.do(ctx, http.MethodGet, "/api/sources/{id}/avg_credibility", path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ArticleReportCount(ctx context.Context, articleID int64) (*ReportCount, error) {
	var out ReportCount
	path := fmt.Sprintf("/api/articles/%d/report_count", articleID)
	if err := c.do(ctx, http.MethodGet, "/api/articles/{id}/report_count", path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) TopTrustedSources(ctx context.Context) ([]TopSourceRow, error) {
	var rows []TopSourceRow
	const route = "/api/analytics/top_trusted_sources"
	err := c.do(ctx, http.MethodGet, route, route, nil, &rows)
	return rows, err
}

func (c *Client) ActiveReporters(ctx context.Context) ([]ActiveReporterRow, error) {
	var rows []ActiveReporterRow
	const route = "/api/analytics/active_reporters"
	err := c.do(ctx, http.MethodGet, route, route, nil, &rows)
	return rows, err
}

func (c *Client) UnderReviewArticles(ctx context.Context) ([]UnderReviewRow, error) {
	var rows []UnderReviewRow
	const route = "/api/analytics/under_review_articles"
	err := c.do(ctx, http.MethodGet, route, route, nil, &rows)
	return rows, err
}

func (c *Client) ArticlesWithReportCount(ctx context.Context) ([]ReportCountRow, error) {
	var rows []ReportCountRow
	const route = "/api/analytics/articles_with_report_count"
	err := c.do(ctx, http.MethodGet, route, route, nil, &rows)
	return rows, err
}

// Ping checks that the API answers /ping.
func (c *Client) Ping(ctx context.Context) error {
	var body []byte
	if err := c.do(ctx, http.MethodGet, "/ping", "/ping", nil, &body); err != nil {
		return err
	}
	if !strings.Contains(string(body), "pong") {
		return &Error{Kind: KindServer, Op: "GET /ping", Message: "unexpected ping reply"}
	}
	return nil
}
