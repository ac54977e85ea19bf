// ABOUTME: Resource commands built from the panel catalog: list, add, review, perform
// ABOUTME: Flags for add commands are generated from each form's field definitions

package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/2389/factdesk/internal/panels"
	"github.com/2389/factdesk/internal/views"
)

func usersCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "users", Short: "Manage users (admin)"}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List users",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				if err := a.require(views.PanelUserAdmin); err != nil {
					return err
				}
				users, err := a.api().ListUsers(cmd.Context())
				if err != nil {
					return err
				}
				listing := panels.Listing{
					Panel:   views.PanelUserAdmin,
					Title:   "Users",
					Columns: []string{"ID", "Name", "Email", "Role"},
					Empty:   "No users found.",
				}
				for _, u := range users {
					listing.Rows = append(listing.Rows, panels.Row{Cells: []panels.Cell{
						{Text: strconv.FormatInt(u.UserID, 10)},
						{Text: u.Name},
						{Text: u.Email},
						{Text: u.Role, Class: panels.RoleClass(u.Role)},
					}})
				}
				printListing(a.out, listing)
				return nil
			},
		},
		addCmd(a, "add", views.PanelUserAdmin),
	)
	return cmd
}

func sourcesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "sources", Short: "Browse and add news sources"}
	cmd.AddCommand(
		listCmd(a, "list", views.PanelSourceList),
		addCmd(a, "add", views.PanelSourceAdmin),
	)
	return cmd
}

func articlesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "articles", Short: "Browse and add articles"}
	cmd.AddCommand(
		listCmd(a, "list", views.PanelArticleList),
		addCmd(a, "add", views.PanelArticleAdmin),
	)
	return cmd
}

func reportsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "reports", Short: "Report articles and review reports"}
	cmd.AddCommand(
		listCmd(a, "list", views.PanelReportList),
		addCmd(a, "add", views.PanelReportSubmit),
		&cobra.Command{
			Use:   "review <report-id>",
			Short: "Mark an open report reviewed",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := a.require(views.PanelReportList); err != nil {
					return err
				}
				id, err := strconv.ParseInt(args[0], 10, 64)
				if err != nil {
					return fmt.Errorf("invalid report id %q", args[0])
				}
				reply, err := panels.MarkReviewed(cmd.Context(), a.api(), id, a.coord)
				if err != nil {
					return err
				}
				printOK(a, reply.Message)
				return nil
			},
		},
	)
	return cmd
}

func checksCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "checks", Short: "Browse and record credibility checks"}
	cmd.AddCommand(
		listCmd(a, "list", views.PanelCredibilityList),
		addCmd(a, "add", views.PanelCredibilityForm),
		addCmd(a, "perform", views.PanelPerformCheck),
	)
	return cmd
}

func analyticsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "analytics", Short: "Server-computed analytics"}
	cmd.AddCommand(
		listCmd(a, "top-sources", views.PanelTopSources),
		listCmd(a, "active-reporters", views.PanelActiveReporters),
		listCmd(a, "under-review", views.PanelUnderReview),
	)
	return cmd
}

// listCmd prints a list panel as a table.
func listCmd(a *app, use string, panel views.PanelID) *cobra.Command {
	l, ok := panels.LookupLister(panel)
	if !ok {
		panic("no lister for " + string(panel))
	}
	return &cobra.Command{
		Use:   use,
		Short: "Show " + strings.ToLower(l.Title()),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.require(panel); err != nil {
				return err
			}
			listing := l.Fetch(cmd.Context(), a.api(), a.fetch)
			if listing.Err != nil {
				return listing.Err
			}
			printListing(a.out, listing)
			return nil
		},
	}
}

// flagName maps a field name to its flag: article_id becomes --article-id.
func flagName(field string) string {
	return strings.ReplaceAll(field, "_", "-")
}

// addCmd submits a form panel with one flag per field.
func addCmd(a *app, use string, panel views.PanelID) *cobra.Command {
	f, ok := panels.LookupForm(panel)
	if !ok {
		panic("no form for " + string(panel))
	}

	cmd := &cobra.Command{
		Use:   use,
		Short: f.Title(),
		Long:  formHelp(f),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.require(panel); err != nil {
				return err
			}

			st := f.NewState(a.session())
			for _, field := range f.Fields {
				if name := flagName(field.Name); cmd.Flags().Changed(name) {
					st.Values[field.Name], _ = cmd.Flags().GetString(name)
				}
			}

			if _, err := f.Submit(cmd.Context(), a.api(), st, a.coord); err != nil {
				return err
			}
			printOK(a, st.Message)
			return nil
		},
	}

	for _, field := range f.Fields {
		usage := field.Label
		if len(field.Options) > 0 {
			values := make([]string, 0, len(field.Options))
			for _, o := range field.Options {
				values = append(values, o.Value)
			}
			usage += " (" + strings.Join(values, ", ") + ")"
		}
		if field.Required {
			usage += " [required]"
		}
		cmd.Flags().String(flagName(field.Name), field.Default, usage)
	}
	return cmd
}

func formHelp(f *panels.Form) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s via POST %s.\n\nFields:\n", f.Title(), f.Route)
	for _, field := range f.Fields {
		fmt.Fprintf(&b, "  --%s\n", flagName(field.Describe()))
	}
	return b.String()
}

func printOK(a *app, message string) {
	color.New(color.FgGreen).Fprint(a.out, "✓ ")
	fmt.Fprintln(a.out, message)
}
