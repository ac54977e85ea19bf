// ABOUTME: Entry point for factdesk-admin, the command-line client for the fact-checking API
// ABOUTME: Persists its session to a file and exposes each role-gated panel as a subcommand

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/2389/factdesk/internal/api"
	"github.com/2389/factdesk/internal/auth"
	"github.com/2389/factdesk/internal/panels"
	"github.com/2389/factdesk/internal/refresh"
	"github.com/2389/factdesk/internal/session"
	"github.com/2389/factdesk/internal/views"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := newRootCmd(os.Stdin, os.Stdout, os.Stderr).Execute(); err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "Error: %s\n", api.Reason(err))
		if hint := errorHint(err); hint != "" {
			fmt.Fprintln(os.Stderr, hint)
		}
		os.Exit(1)
	}
}

// errorHint suggests a next step for failures the user can fix.
func errorHint(err error) string {
	switch api.KindOf(err) {
	case api.KindNetwork:
		return "Check that the API is running and that --api-url or FACTDESK_API_URL points at it."
	case api.KindAuthentication:
		if api.IsStatus(err, http.StatusUnauthorized) {
			return "The API rejected your session; run factdesk-admin login."
		}
	}
	return ""
}

// app is the state shared by every subcommand once the profile is resolved.
type app struct {
	in      io.Reader
	out     io.Writer
	errOut  io.Writer
	profile *Profile
	client  *api.Client
	gateway *auth.Gateway
	coord   *refresh.Coordinator
	fetch   panels.FetchOptions
	logger  *slog.Logger
}

// session returns the stored session, or nil.
func (a *app) session() *session.Session {
	return a.gateway.Session()
}

// api returns a client carrying the current session's token.
func (a *app) api() *api.Client {
	if s := a.session(); s != nil {
		return a.client.WithToken(s.Token)
	}
	return a.client
}

// require checks that the session may use panel.
func (a *app) require(panel views.PanelID) error {
	s := a.session()
	if s == nil {
		return fmt.Errorf("not logged in; run factdesk-admin login")
	}
	if !views.Visible(s, panel) {
		return fmt.Errorf("%s is not available to the %s role", views.Title(panel), s.User.Role)
	}
	return nil
}

func newRootCmd(in io.Reader, out, errOut io.Writer) *cobra.Command {
	var (
		profilePath string
		apiURL      string
		sessionPath string
		verbose     bool
	)
	a := &app{in: in, out: out, errOut: errOut}

	root := &cobra.Command{
		Use:           "factdesk-admin",
		Short:         "Command-line client for the fake-news detection database",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if profilePath == "" {
				profilePath = getProfilePath()
			}
			p, err := loadProfile(profilePath)
			if err != nil {
				return err
			}
			p.resolve(apiURL, sessionPath)
			if p.NoColor {
				color.NoColor = true
			}
			a.profile = p

			level := slog.LevelWarn
			if verbose {
				level = slog.LevelDebug
			}
			a.logger = slog.New(slog.NewTextHandler(errOut, &slog.HandlerOptions{Level: level}))

			a.client = api.New(p.APIURL,
				api.WithTimeout(p.timeout),
				api.WithLogger(a.logger),
				api.WithUserAgent("factdesk-admin/"+version),
			)
			a.gateway = auth.NewGateway(a.client, session.NewFileStore(p.SessionPath, a.logger), a.logger)
			a.coord = refresh.New()
			a.fetch = panels.FetchOptions{MaxParallel: p.MaxParallel, Logger: a.logger}
			return a.gateway.Init(cmd.Context())
		},
	}

	root.PersistentFlags().StringVar(&profilePath, "profile", "", "profile file (default $FACTDESK_ADMIN_CONFIG or $XDG_CONFIG_HOME/factdesk/admin.toml)")
	root.PersistentFlags().StringVar(&apiURL, "api-url", "", "fact-checking API base URL (default $FACTDESK_API_URL or http://localhost:5000)")
	root.PersistentFlags().StringVar(&sessionPath, "session", "", "session file (default $XDG_CONFIG_HOME/factdesk/session.json)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log API calls to stderr")

	root.AddCommand(
		loginCmd(a),
		signupCmd(a),
		logoutCmd(a),
		whoamiCmd(a),
		panelsCmd(a),
		usersCmd(a),
		sourcesCmd(a),
		articlesCmd(a),
		reportsCmd(a),
		checksCmd(a),
		analyticsCmd(a),
	)
	return root
}

// execute runs args against a fresh command tree. Used by tests.
func execute(ctx context.Context, in io.Reader, out, errOut io.Writer, args ...string) error {
	cmd := newRootCmd(in, out, errOut)
	cmd.SetArgs(args)
	return cmd.ExecuteContext(ctx)
}
