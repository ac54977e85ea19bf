// ABOUTME: HTTP handlers for console pages, htmx panel fragments and the refresh stream
// ABOUTME: Every panel route is gated through views.Visible before touching the API

package webconsole

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/2389/factdesk/internal/api"
	"github.com/2389/factdesk/internal/auth"
	"github.com/2389/factdesk/internal/panels"
	"github.com/2389/factdesk/internal/session"
	"github.com/2389/factdesk/internal/views"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const csrfContextKey contextKey = "csrf_token"

// refreshEvent is the HX-Trigger event list panels listen for.
const refreshEvent = "factdesk-refresh"

var sessionIDPattern = regexp.MustCompile(`^[0-9a-f]{64}$`)

type treeHandler func(w http.ResponseWriter, r *http.Request, t *viewTree)

// withTree resolves the browser's console session ID (issuing one when
// absent), loads its view tree and makes sure a CSRF token exists.
func (c *Console) withTree(next treeHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := c.sessionID(w, r)
		if err != nil {
			c.logger.Error("failed to issue console session", "error", err)
			http.Error(w, "An error occurred", http.StatusInternalServerError)
			return
		}

		t, err := c.registry.Get(r.Context(), id)
		if err != nil {
			c.logger.Error("failed to load view tree", "error", err)
			http.Error(w, "An error occurred", http.StatusInternalServerError)
			return
		}

		r, _ = c.ensureCSRFToken(w, r)
		next(w, r, t)
	}
}

// requireSession wraps a handler to require an authenticated view tree
func (c *Console) requireSession(next treeHandler) treeHandler {
	return func(w http.ResponseWriter, r *http.Request, t *viewTree) {
		sess := t.Session()
		if sess == nil {
			if r.Header.Get("HX-Request") == "true" {
				w.Header().Set("HX-Redirect", "/console/login")
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			http.Redirect(w, r, "/console/login", http.StatusSeeOther)
			return
		}
		next(w, r.WithContext(auth.WithSession(r.Context(), sess)), t)
	}
}

// tokenRejected signs the tree out when the API refused its token and sends
// the browser back to login. Returns true when it did.
func (c *Console) tokenRejected(w http.ResponseWriter, r *http.Request, t *viewTree, err error) bool {
	if !api.IsStatus(err, http.StatusUnauthorized) {
		return false
	}

	c.logger.Info("api rejected session token, signing out", "user_id", auth.MustFromContext(r.Context()).User.ID)
	if err := t.gateway.Logout(r.Context()); err != nil {
		c.logger.Error("failed to clear console session", "error", err)
	}
	t.rebind()

	w.Header().Set("HX-Redirect", "/console/login")
	w.WriteHeader(http.StatusUnauthorized)
	return true
}

// sessionID returns the console session ID from the cookie, issuing a new
// one when the cookie is missing or not one of ours.
func (c *Console) sessionID(w http.ResponseWriter, r *http.Request) (string, error) {
	if cookie, err := r.Cookie(SessionCookieName); err == nil && sessionIDPattern.MatchString(cookie.Value) {
		return cookie.Value, nil
	}

	id, err := generateSecureToken(32)
	if err != nil {
		return "", err
	}
	c.setSessionCookie(w, r, id)
	return id, nil
}

func (c *Console) setSessionCookie(w http.ResponseWriter, r *http.Request, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    id,
		Path:     cookiePath,
		Expires:  time.Now().Add(c.cfg.SessionDuration),
		HttpOnly: true,
		Secure:   c.cfg.SecureCookies || r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}

// rotateSession moves a freshly signed-in session from the pre-login ID to
// a new one. The pre-login ID is left with no row and no tree, so a cookie
// planted before login never reaches the authenticated session.
func (c *Console) rotateSession(ctx context.Context, w http.ResponseWriter, r *http.Request, t *viewTree) error {
	newID, err := generateSecureToken(32)
	if err != nil {
		return fmt.Errorf("generating session id: %w", err)
	}

	row, err := c.backend.GetConsoleSession(ctx, t.id)
	if err != nil {
		return fmt.Errorf("loading console session: %w", err)
	}
	row.ID = newID
	if err := c.backend.PutConsoleSession(ctx, row); err != nil {
		return err
	}
	if err := c.backend.DeleteConsoleSession(ctx, t.id); err != nil {
		return fmt.Errorf("dropping pre-login session: %w", err)
	}
	c.registry.Remove(t.id)

	if _, err := c.registry.Get(ctx, newID); err != nil {
		return err
	}
	c.setSessionCookie(w, r, newID)
	return nil
}

// signedIn finishes a login or signup. Returns false after rendering an
// error when the session could not be moved to a new ID.
func (c *Console) signedIn(w http.ResponseWriter, r *http.Request, t *viewTree) bool {
	if err := c.rotateSession(r.Context(), w, r, t); err != nil {
		c.logger.Error("failed to rotate console session", "error", err)
		if err := t.gateway.Logout(r.Context()); err != nil {
			c.logger.Error("failed to clear console session", "error", err)
		}
		t.rebind()
		http.Error(w, "Could not start your session, please try again", http.StatusInternalServerError)
		return false
	}
	return true
}

// getCSRFToken retrieves the CSRF token from the request context
func getCSRFToken(r *http.Request) string {
	token, _ := r.Context().Value(csrfContextKey).(string)
	return token
}

// ensureCSRFToken generates a CSRF token if not present and adds it to context
func (c *Console) ensureCSRFToken(w http.ResponseWriter, r *http.Request) (*http.Request, string) {
	cookie, err := r.Cookie(CSRFCookieName)
	if err == nil && cookie.Value != "" {
		ctx := context.WithValue(r.Context(), csrfContextKey, cookie.Value)
		return r.WithContext(ctx), cookie.Value
	}

	token, err := generateSecureToken(32)
	if err != nil {
		c.logger.Error("failed to generate CSRF token", "error", err)
		token = "" // Will fail validation, but won't crash
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CSRFCookieName,
		Value:    token,
		Path:     cookiePath,
		HttpOnly: true,
		Secure:   c.cfg.SecureCookies || r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
	})

	ctx := context.WithValue(r.Context(), csrfContextKey, token)
	return r.WithContext(ctx), token
}

// validateCSRF checks the CSRF token from form against cookie
func (c *Console) validateCSRF(r *http.Request) bool {
	cookie, err := r.Cookie(CSRFCookieName)
	if err != nil || cookie.Value == "" {
		return false
	}

	formToken := r.FormValue("csrf_token")
	if formToken == "" {
		// Also check header for htmx requests
		formToken = r.Header.Get("X-CSRF-Token")
	}

	return formToken != "" && formToken == cookie.Value
}

// handleLoginPage renders the login page
func (c *Console) handleLoginPage(w http.ResponseWriter, r *http.Request, t *viewTree) {
	if t.Session() != nil {
		http.Redirect(w, r, "/console/", http.StatusSeeOther)
		return
	}
	c.pages.login(w, c.logger, authPageData{Title: views.Title(views.PanelLogin), CSRFToken: getCSRFToken(r)})
}

// handleLogin processes login form submission
func (c *Console) handleLogin(w http.ResponseWriter, r *http.Request, t *viewTree) {
	data := authPageData{Title: views.Title(views.PanelLogin), CSRFToken: getCSRFToken(r)}

	if err := r.ParseForm(); err != nil {
		data.Error = "Invalid form data"
		c.pages.login(w, c.logger, data)
		return
	}
	if !c.validateCSRF(r) {
		data.Error = "Invalid request, please try again"
		c.pages.login(w, c.logger, data)
		return
	}

	data.Email = strings.TrimSpace(r.FormValue("email"))
	sess, err := t.gateway.Login(r.Context(), data.Email, r.FormValue("password"))
	if err != nil {
		data.Error = api.Reason(err)
		c.pages.login(w, c.logger, data)
		return
	}
	if !c.signedIn(w, r, t) {
		return
	}

	c.logger.Info("console login", "user_id", sess.User.ID, "role", sess.User.Role)
	http.Redirect(w, r, "/console/", http.StatusSeeOther)
}

// handleSignupPage renders the signup page
func (c *Console) handleSignupPage(w http.ResponseWriter, r *http.Request, t *viewTree) {
	if t.Session() != nil {
		http.Redirect(w, r, "/console/", http.StatusSeeOther)
		return
	}
	c.pages.signup(w, c.logger, authPageData{
		Title:     views.Title(views.PanelSignup),
		CSRFToken: getCSRFToken(r),
		Roles:     session.ValidRoles,
		Role:      session.RoleUser,
	})
}

// handleSignup processes the signup form
func (c *Console) handleSignup(w http.ResponseWriter, r *http.Request, t *viewTree) {
	data := authPageData{
		Title:     views.Title(views.PanelSignup),
		CSRFToken: getCSRFToken(r),
		Roles:     session.ValidRoles,
		Role:      session.RoleUser,
	}

	if err := r.ParseForm(); err != nil {
		data.Error = "Invalid form data"
		c.pages.signup(w, c.logger, data)
		return
	}
	if !c.validateCSRF(r) {
		data.Error = "Invalid request, please try again"
		c.pages.signup(w, c.logger, data)
		return
	}

	data.Name = strings.TrimSpace(r.FormValue("name"))
	data.Email = strings.TrimSpace(r.FormValue("email"))
	data.Role = session.Role(r.FormValue("role"))

	sess, err := t.gateway.Signup(r.Context(), data.Name, data.Email, r.FormValue("password"), data.Role)
	if err != nil {
		data.Error = api.Reason(err)
		c.pages.signup(w, c.logger, data)
		return
	}
	if !c.signedIn(w, r, t) {
		return
	}

	c.logger.Info("console signup", "user_id", sess.User.ID, "role", sess.User.Role)
	http.Redirect(w, r, "/console/", http.StatusSeeOther)
}

// handleLogout clears the session locally and in the store
func (c *Console) handleLogout(w http.ResponseWriter, r *http.Request, t *viewTree) {
	// Validate CSRF - but don't block logout if invalid
	if err := r.ParseForm(); err == nil && !c.validateCSRF(r) {
		c.logger.Warn("logout request with invalid CSRF token")
	}

	if err := t.gateway.Logout(r.Context()); err != nil {
		c.logger.Error("failed to clear console session", "error", err)
	}
	t.rebind()

	http.Redirect(w, r, "/console/login", http.StatusSeeOther)
}

// handleDashboard renders the panels composed for the session's role
func (c *Console) handleDashboard(w http.ResponseWriter, r *http.Request, t *viewTree) {
	sess := auth.MustFromContext(r.Context())

	var cards []panelCard
	for _, id := range views.Compose(sess) {
		_, isList := panels.LookupLister(id)
		cards = append(cards, panelCard{ID: id, Title: views.Title(id), IsList: isList})
	}

	c.pages.dashboard(w, c.logger, dashboardData{
		Title:     "Dashboard",
		User:      sess.User,
		CSRFToken: getCSRFToken(r),
		Panels:    cards,
	})
}

// visiblePanel resolves the {panel} path value and enforces visibility.
func (c *Console) visiblePanel(w http.ResponseWriter, r *http.Request) (views.PanelID, bool) {
	id := views.PanelID(r.PathValue("panel"))
	if !views.Known(id) {
		http.NotFound(w, r)
		return "", false
	}
	if !views.Visible(auth.MustFromContext(r.Context()), id) {
		http.Error(w, "This panel is not available for your role", http.StatusForbidden)
		return "", false
	}
	return id, true
}

// handlePanel renders one panel fragment
func (c *Console) handlePanel(w http.ResponseWriter, r *http.Request, t *viewTree) {
	id, ok := c.visiblePanel(w, r)
	if !ok {
		return
	}

	if f, ok := panels.LookupForm(id); ok {
		slot := t.form(f)
		slot.mu.Lock()
		defer slot.mu.Unlock()
		if err := f.Refresh(r.Context(), t.API(), slot.state, t.coord.Token()); err != nil {
			c.logger.Warn("failed to load form choices", "panel", id, "error", err)
		}
		c.pages.form(w, c.logger, http.StatusOK, c.buildFormView(r, t, f, slot.state))
		return
	}

	if l, ok := panels.LookupLister(id); ok {
		listing := t.list(l).Sync(r.Context(), t.coord.Token())
		if c.tokenRejected(w, r, t, listing.Err) {
			return
		}
		c.pages.list(w, c.logger, http.StatusOK, listView{Listing: listing, CSRFToken: getCSRFToken(r)})
		return
	}

	http.NotFound(w, r)
}

// handleSubmit processes a form panel submission
func (c *Console) handleSubmit(w http.ResponseWriter, r *http.Request, t *viewTree) {
	id, ok := c.visiblePanel(w, r)
	if !ok {
		return
	}
	f, ok := panels.LookupForm(id)
	if !ok {
		http.Error(w, "Panel does not accept submissions", http.StatusMethodNotAllowed)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return
	}
	if !c.validateCSRF(r) {
		http.Error(w, "Invalid request, please try again", http.StatusForbidden)
		return
	}

	slot := t.form(f)
	slot.mu.Lock()
	defer slot.mu.Unlock()

	if !c.guard.Redeem(t.id, r.PostFormValue("submission_id")) {
		if c.metrics != nil {
			c.metrics.DuplicateSubmission()
		}
		c.logger.Warn("rejected duplicate form submission", "panel", id)
		view := c.buildFormView(r, t, f, slot.state)
		view.Error = "This form was already submitted. Review the result before sending it again."
		c.pages.form(w, c.logger, http.StatusConflict, view)
		return
	}

	for _, field := range f.Fields {
		if v, present := r.PostForm[field.Name]; present && len(v) > 0 {
			slot.state.Values[field.Name] = v[0]
		}
	}

	if _, err := f.Submit(r.Context(), t.API(), slot.state, t.coord); err != nil {
		if c.tokenRejected(w, r, t, err) {
			return
		}
		c.logger.Debug("form submission failed", "panel", id, "error", err)
	} else {
		w.Header().Set("HX-Trigger", refreshEvent)
	}
	c.pages.form(w, c.logger, http.StatusOK, c.buildFormView(r, t, f, slot.state))
}

// handleReview marks a report reviewed and re-renders the report list
func (c *Console) handleReview(w http.ResponseWriter, r *http.Request, t *viewTree) {
	sess := auth.MustFromContext(r.Context())
	if !views.Visible(sess, views.PanelReportList) {
		http.Error(w, "This panel is not available for your role", http.StatusForbidden)
		return
	}
	if err := r.ParseForm(); err != nil || !c.validateCSRF(r) {
		http.Error(w, "Invalid request, please try again", http.StatusForbidden)
		return
	}

	reportID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid report id", http.StatusBadRequest)
		return
	}

	view := listView{CSRFToken: getCSRFToken(r)}
	reply, err := panels.MarkReviewed(r.Context(), t.API(), reportID, t.coord)
	if c.tokenRejected(w, r, t, err) {
		return
	}
	if err != nil {
		view.Error = api.Reason(err)
	} else {
		view.Notice = reply.Message
		w.Header().Set("HX-Trigger", refreshEvent)
	}

	l, _ := panels.LookupLister(views.PanelReportList)
	view.Listing = t.list(l).Sync(r.Context(), t.coord.Token())
	c.pages.list(w, c.logger, http.StatusOK, view)
}

// handleEvents streams the view tree's refresh token as server-sent events
func (c *Console) handleEvents(w http.ResponseWriter, r *http.Request, t *viewTree) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	updates := t.coord.Latest(r.Context())

	fmt.Fprintf(w, "event: connected\ndata: %d\n\n", t.coord.Token())
	flusher.Flush()

	// Heartbeat keeps proxies from closing the stream and the tree from
	// being swept while the page is open
	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return

		case <-heartbeat.C:
			t.touch(time.Now())
			fmt.Fprint(w, ": heartbeat\n\n")
			flusher.Flush()

		case token, ok := <-updates:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: refresh\ndata: %d\n\n", token)
			flusher.Flush()
		}
	}
}

// handleHelp renders the embedded help page with the visibility table
func (c *Console) handleHelp(w http.ResponseWriter, r *http.Request, t *viewTree) {
	content, err := renderHelp()
	if err != nil {
		c.logger.Error("failed to render help", "error", err)
	}

	rows := make([]helpRule, 0, len(views.Table()))
	for _, rule := range views.Table() {
		row := helpRule{Title: rule.Title}
		for _, role := range session.ValidRoles {
			row.Allowed = append(row.Allowed, rule.Allows(role))
		}
		rows = append(rows, row)
	}

	var user *session.User
	if s := t.Session(); s != nil {
		user = &s.User
	}
	c.pages.help(w, c.logger, helpData{
		Title:     "Help",
		User:      user,
		CSRFToken: getCSRFToken(r),
		Content:   content,
		Roles:     session.ValidRoles,
		Rules:     rows,
	})
}

// handleHealth reports liveness
func (c *Console) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// handleReady reports readiness: the session store and the upstream API
// must both answer
func (c *Console) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := map[string]string{"database": "ok", "api": "ok"}
	status := http.StatusOK

	if err := c.backend.Ping(ctx); err != nil {
		checks["database"] = err.Error()
		status = http.StatusServiceUnavailable
	}
	if err := c.base.Ping(ctx); err != nil {
		checks["api"] = api.Reason(err)
		status = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(checks)
}
