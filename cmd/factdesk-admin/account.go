// ABOUTME: Session commands: login, signup, logout, whoami and panels
// ABOUTME: Missing credentials are prompted for on stdin

package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/2389/factdesk/internal/auth"
	"github.com/2389/factdesk/internal/session"
	"github.com/2389/factdesk/internal/views"
)

// asker reads answers for missing flags from the command's stdin.
type asker struct {
	reader *bufio.Reader
	a      *app
}

func newAsker(a *app) *asker {
	return &asker{reader: bufio.NewReader(a.in), a: a}
}

func (k *asker) ask(question, current string) string {
	if current != "" {
		return current
	}
	fmt.Fprintf(k.a.out, "%s: ", question)
	answer, _ := k.reader.ReadString('\n')
	return strings.TrimSpace(answer)
}

func loginCmd(a *app) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			k := newAsker(a)
			email = k.ask("Email", email)
			password = k.ask("Password", password)

			sess, err := a.gateway.Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			printWelcome(a, sess)
			return nil
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "account password (prompted when omitted)")
	return cmd
}

func signupCmd(a *app) *cobra.Command {
	var name, email, password, role string

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and store the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			k := newAsker(a)
			name = k.ask("Name", name)
			email = k.ask("Email", email)
			password = k.ask("Password", password)

			r, err := session.ParseRole(role)
			if err != nil {
				return err
			}

			sess, err := a.gateway.Signup(cmd.Context(), name, email, password, r)
			if err != nil {
				return err
			}
			printWelcome(a, sess)
			return nil
		},
	}
	cmd.Flags().StringVarP(&name, "name", "n", "", "display name")
	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "account password (prompted when omitted)")
	cmd.Flags().StringVarP(&role, "role", "r", string(session.RoleUser), "role: user, reporter, fact-checker or admin")
	return cmd
}

func logoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.gateway.Logout(cmd.Context()); err != nil {
				return err
			}
			color.New(color.FgGreen).Fprintln(a.out, "Logged out")
			return nil
		},
	}
}

func whoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in user",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			s := a.session()
			if s == nil {
				return errors.New("not logged in; run factdesk-admin login")
			}

			cyan := color.New(color.FgCyan)
			cyan.Fprint(a.out, "User:    ")
			fmt.Fprintf(a.out, "%s (#%d)\n", s.User.Name, s.User.ID)
			cyan.Fprint(a.out, "Email:   ")
			fmt.Fprintln(a.out, s.User.Email)
			cyan.Fprint(a.out, "Role:    ")
			fmt.Fprintln(a.out, s.User.Role)
			cyan.Fprint(a.out, "API:     ")
			fmt.Fprintln(a.out, a.profile.APIURL)
			cyan.Fprint(a.out, "Expires: ")
			if exp, err := auth.TokenExpiry(s.Token); err == nil {
				fmt.Fprintln(a.out, exp.Local().Format(time.RFC1123))
			} else {
				fmt.Fprintln(a.out, "unknown")
			}
			return nil
		},
	}
}

func panelsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "panels",
		Short: "List the panels available to the current session",
		Args:  cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			for _, id := range views.Compose(a.session()) {
				fmt.Fprintf(a.out, "%-18s %s\n", id, views.Title(id))
			}
		},
	}
}

func printWelcome(a *app, s *session.Session) {
	color.New(color.FgGreen).Fprint(a.out, "✓ ")
	fmt.Fprintf(a.out, "Logged in as %s (%s)\n", s.User.Name, s.User.Role)
}
