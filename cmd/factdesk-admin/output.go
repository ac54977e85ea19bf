// ABOUTME: Table output for list panels using tabwriter with a colored heading
// ABOUTME: Row actions become a trailing column pointing at the follow-up command

package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/2389/factdesk/internal/panels"
)

func printListing(out io.Writer, l panels.Listing) {
	cyan := color.New(color.FgCyan)
	fmt.Fprintln(out)
	cyan.Fprintf(out, "  %s\n", l.Title)
	cyan.Fprintf(out, "  %s\n", strings.Repeat("-", len(l.Title)))

	if l.IsEmpty() {
		fmt.Fprintf(out, "  %s\n\n", l.Empty)
		return
	}

	hasActions := false
	for _, r := range l.Rows {
		if r.Action != nil || r.Note != "" {
			hasActions = true
			break
		}
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	header := make([]string, 0, len(l.Columns)+1)
	rule := make([]string, 0, len(l.Columns)+1)
	for _, c := range l.Columns {
		header = append(header, strings.ToUpper(c))
		rule = append(rule, strings.Repeat("-", len(c)))
	}
	if hasActions {
		header = append(header, "ACTION")
		rule = append(rule, "------")
	}
	fmt.Fprintf(w, "  %s\n", strings.Join(header, "\t"))
	fmt.Fprintf(w, "  %s\n", strings.Join(rule, "\t"))

	for _, r := range l.Rows {
		cells := make([]string, 0, len(r.Cells)+1)
		for _, c := range r.Cells {
			cells = append(cells, truncate(c.Text, 40))
		}
		switch {
		case r.Action != nil:
			cells = append(cells, fmt.Sprintf("reports review %d", r.Action.ID))
		case hasActions:
			cells = append(cells, r.Note)
		}
		fmt.Fprintf(w, "  %s\n", strings.Join(cells, "\t"))
	}
	_ = w.Flush()
	fmt.Fprintln(out)
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
