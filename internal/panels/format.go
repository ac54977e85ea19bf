// ABOUTME: Display helpers shared by the console templates and the CLI tables
// ABOUTME: Status classes, percentage rendering, rank badges and date formatting

package panels

import (
	"strconv"

	"github.com/2389/factdesk/internal/api"
	"github.com/2389/factdesk/internal/session"
)

// Display classes. The console maps them to CSS, the CLI to colours.
const (
	ClassGood    = "good"
	ClassWarn    = "warn"
	ClassBad     = "bad"
	ClassMuted   = "muted"
	ClassInfo    = "info"
	ClassPrimary = "primary"
)

const notAvailable = "N/A"

// TrustClass grades a 0..100 trust rating.
func TrustClass(n api.Number) string {
	v, ok := n.Float()
	switch {
	case !ok:
		return ClassMuted
	case v >= 70:
		return ClassGood
	case v >= 40:
		return ClassWarn
	default:
		return ClassBad
	}
}

// RatingText shows a trust rating exactly as the server sent it.
func RatingText(n api.Number) string {
	if n.String() == "" {
		return notAvailable
	}
	return n.String() + "%"
}

// AverageText shows an average credibility with two decimals.
func AverageText(n api.Number) string {
	v, ok := n.Float()
	if !ok {
		return notAvailable
	}
	return strconv.FormatFloat(v, 'f', 2, 64) + "%"
}

// ScoreText renders a 0..1 score as a percentage with one decimal.
func ScoreText(n api.Number) string {
	v, ok := n.Float()
	if !ok {
		return notAvailable
	}
	return strconv.FormatFloat(v*100, 'f', 1, 64) + "%"
}

// VerdictClass grades a credibility verdict.
func VerdictClass(verdict string) string {
	switch verdict {
	case api.VerdictReal:
		return ClassGood
	case api.VerdictFake:
		return ClassBad
	default:
		return ClassMuted
	}
}

// ReportStatusClass grades a report status.
func ReportStatusClass(status string) string {
	switch status {
	case api.ReportReviewed:
		return ClassGood
	case api.ReportDismissed:
		return ClassMuted
	default:
		return ClassWarn
	}
}

// ReviewStatusClass grades an article review status.
func ReviewStatusClass(status string) string {
	if status == "Under Review" {
		return ClassWarn
	}
	return ClassGood
}

// RoleClass picks a badge class for a role.
func RoleClass(role string) string {
	switch session.Role(role) {
	case session.RoleAdmin:
		return ClassBad
	case session.RoleFactChecker:
		return ClassPrimary
	default:
		return ClassMuted
	}
}

// RankBadge returns the badge for a zero-based rank.
func RankBadge(i int) string {
	switch i {
	case 0:
		return "🥇"
	case 1:
		return "🥈"
	case 2:
		return "🥉"
	default:
		return "⭐"
	}
}

// DateText shows a server timestamp as a date, or the raw text when it
// cannot be parsed.
func DateText(s string) string {
	if s == "" {
		return notAvailable
	}
	if t, ok := api.ParseTimestamp(s); ok {
		return t.Format("2006-01-02")
	}
	return s
}

// DateTimeText shows a server timestamp with minutes.
func DateTimeText(s string) string {
	if s == "" {
		return notAvailable
	}
	if t, ok := api.ParseTimestamp(s); ok {
		return t.Format("2006-01-02 15:04")
	}
	return s
}

func orNA(s string) string {
	if s == "" {
		return notAvailable
	}
	return s
}
