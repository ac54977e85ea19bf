// ABOUTME: Wire types for the fake-news REST API
// ABOUTME: Row field names follow the server's JSON exactly; numbers keep their raw text

package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/2389/factdesk/internal/session"
)

// Verdict values accepted by the credibility endpoints.
const (
	VerdictUnverified = "Unverified"
	VerdictReal       = "Real"
	VerdictFake       = "Fake"
)

// Verdicts lists every verdict in display order.
var Verdicts = []string{VerdictUnverified, VerdictReal, VerdictFake}

// Report status values.
const (
	ReportOpen      = "Open"
	ReportReviewed  = "Reviewed"
	ReportDismissed = "Dismissed"
)

// Number is a numeric column carried as the exact text the server sent.
// The server may encode decimals as JSON numbers or as numeric strings.
type Number string

func (n *Number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*n = ""
		return nil
	}
	text := string(data)
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &text); err != nil {
			return err
		}
		if text == "" {
			*n = ""
			return nil
		}
	}
	if _, err := strconv.ParseFloat(text, 64); err != nil {
		return fmt.Errorf("invalid number %q", text)
	}
	*n = Number(text)
	return nil
}

func (n Number) MarshalJSON() ([]byte, error) {
	if n == "" {
		return []byte("null"), nil
	}
	return []byte(n), nil
}

// Float parses the number; ok is false when the value was null.
func (n Number) Float() (float64, bool) {
	if n == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(string(n), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func (n Number) String() string {
	return string(n)
}

// MessageReply is the body of a successful mutation.
type MessageReply struct {
	Message string `json:"message"`
}

// errorReply is the body of a failed request.
type errorReply struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type UserRow struct {
	UserID int64  `json:"UserID"`
	Name   string `json:"Name"`
	Email  string `json:"Email,omitempty"`
	Role   string `json:"Role"`
}

type SourceRow struct {
	SourceID    int64  `json:"SourceID"`
	Name        string `json:"Name"`
	Domain      string `json:"Domain"`
	TrustRating Number `json:"TrustRating"`
	CreatedAt   string `json:"CreatedAt,omitempty"`
}

type ArticleRow struct {
	ArticleID          int64  `json:"ArticleID"`
	Title              string `json:"Title"`
	SourceName         string `json:"SourceName,omitempty"`
	PublishDate        string `json:"PublishDate,omitempty"`
	ReviewStatus       string `json:"ReviewStatus,omitempty"`
	CredibilityVerdict string `json:"CredibilityVerdict,omitempty"`
	URL                string `json:"URL,omitempty"`
}

type ReportRow struct {
	ReportID     int64  `json:"ReportID"`
	Reporter     string `json:"Reporter"`
	ArticleTitle string `json:"ArticleTitle"`
	Reason       string `json:"Reason"`
	Status       string `json:"Status"`
	ReportDate   string `json:"ReportDate"`
}

// Open reports whether the report can still be marked reviewed.
func (r ReportRow) Open() bool {
	return r.Status == ReportOpen
}

type CredibilityRow struct {
	CheckID        int64  `json:"CheckID"`
	ArticleTitle   string `json:"ArticleTitle"`
	AIScore        Number `json:"AI_Score"`
	FactCheckScore Number `json:"FactCheckScore"`
	FinalVerdict   string `json:"FinalVerdict"`
	CheckedBy      string `json:"CheckedBy"`
	CheckDate      string `json:"CheckDate"`
}

type TopSourceRow struct {
	SourceID    int64  `json:"SourceID"`
	SourceName  string `json:"SourceName"`
	Domain      string `json:"Domain"`
	TrustRating Number `json:"TrustRating"`
}

type ActiveReporterRow struct {
	UserID       int64  `json:"UserID"`
	Name         string `json:"Name"`
	Email        string `json:"Email"`
	Role         string `json:"Role"`
	TotalReports int64  `json:"TotalReports"`
}

type UnderReviewRow struct {
	ArticleID    int64  `json:"ArticleID"`
	Title        string `json:"Title"`
	SourceName   string `json:"SourceName"`
	TotalReports int64  `json:"TotalReports"`
	ReviewStatus string `json:"ReviewStatus"`
}

type ReportCountRow struct {
	ArticleID   int64 `json:"ArticleID"`
	ReportCount int64 `json:"ReportCount"`
}

type AvgCredibility struct {
	SourceID       int64  `json:"source_id"`
	AvgCredibility Number `json:"avg_credibility"`
}

type ReportCount struct {
	ArticleID   int64 `json:"article_id"`
	ReportCount int64 `json:"report_count"`
}

// SignupRequest is the body of POST /api/auth/signup.
type SignupRequest struct {
	Name     string       `json:"name"`
	Email    string       `json:"email"`
	Password string       `json:"password"`
	Role     session.Role `json:"role"`
}

// AuthReply is the decoded body of a successful login or signup.
type AuthReply struct {
	User  session.User
	Token string
}

// authUser accepts both the lower-case and the column-cased user shapes.
type authUser struct {
	ID       int64  `json:"id"`
	UserID   int64  `json:"UserID"`
	Name     string `json:"name"`
	NameCol  string `json:"Name"`
	Email    string `json:"email"`
	EmailCol string `json:"Email"`
	Role     string `json:"role"`
	RoleCol  string `json:"Role"`
}

func (a *AuthReply) UnmarshalJSON(data []byte) error {
	var raw struct {
		User  *authUser `json:"user"`
		Token string    `json:"token"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.User == nil {
		return fmt.Errorf("reply has no user")
	}

	u := raw.User
	a.Token = raw.Token
	a.User = session.User{
		ID:    firstInt(u.ID, u.UserID),
		Name:  firstString(u.Name, u.NameCol),
		Email: firstString(u.Email, u.EmailCol),
		Role:  session.Role(firstString(u.Role, u.RoleCol)),
	}
	return nil
}

func firstInt(vals ...int64) int64 {
	for _, v := range vals {
		if v != 0 {
			return v
		}
	}
	return 0
}

func firstString(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// timestampLayouts are the date shapes the server emits.
var timestampLayouts = []string{
	time.RFC1123,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp parses a server date string.
func ParseTimestamp(s string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
