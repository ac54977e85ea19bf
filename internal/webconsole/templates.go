// ABOUTME: Template data types and rendering for console pages and panel fragments
// ABOUTME: Templates are parsed once from the embedded filesystem at startup

package webconsole

import (
	"bytes"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/yuin/goldmark"

	"github.com/2389/factdesk/internal/panels"
	"github.com/2389/factdesk/internal/session"
	"github.com/2389/factdesk/internal/views"
)

// Template data types
type authPageData struct {
	Title     string
	User      *session.User
	Error     string
	CSRFToken string
	Name      string
	Email     string
	Role      session.Role
	Roles     []session.Role
}

type panelCard struct {
	ID     views.PanelID
	Title  string
	IsList bool
}

type dashboardData struct {
	Title     string
	User      session.User
	CSRFToken string
	Panels    []panelCard
}

type helpRule struct {
	Title   string
	Allowed []bool
}

type helpData struct {
	Title     string
	User      *session.User
	CSRFToken string
	Content   template.HTML
	Roles     []session.Role
	Rules     []helpRule
}

type fieldView struct {
	Name        string
	Label       string
	InputType   string
	Required    bool
	Value       string
	Placeholder string
	Options     []panels.Option
	Select      bool
	TextArea    bool
	Min         string
	Max         string
	Step        string
}

type formView struct {
	Panel        views.PanelID
	Title        string
	Button       string
	Fields       []fieldView
	Message      string
	Error        string
	LoadError    string
	SubmissionID string
	CSRFToken    string
}

type listView struct {
	Listing   panels.Listing
	Notice    string
	Error     string
	CSRFToken string
}

// buildFormView builds the template data for a form panel and issues the
// submission ID its next post must carry.
func (c *Console) buildFormView(r *http.Request, t *viewTree, f *panels.Form, st *panels.FormState) formView {
	v := formView{
		Panel:        f.Panel,
		Title:        f.Title(),
		Button:       f.Button,
		Message:      st.Message,
		Error:        st.ErrorText(),
		LoadError:    st.LoadErrorText(),
		SubmissionID: c.guard.Issue(t.id),
		CSRFToken:    getCSRFToken(r),
	}

	for _, fl := range f.Fields {
		fv := fieldView{
			Name:        fl.Name,
			Label:       fl.Label,
			InputType:   fl.Kind.InputType(),
			Required:    fl.Required,
			Value:       st.Values[fl.Name],
			Placeholder: fl.Placeholder,
			Options:     fl.Options,
			Select:      fl.Kind == panels.KindSelect,
			TextArea:    fl.Kind == panels.KindTextArea,
			Step:        fl.Step,
		}
		if fl.Kind == panels.KindPassword {
			fv.Value = ""
		}
		if opts := st.Options[fl.Name]; len(opts) > 0 {
			fv.Options = opts
			fv.Select = true
		}
		if fl.Min != nil {
			fv.Min = strconv.FormatFloat(*fl.Min, 'f', -1, 64)
		}
		if fl.Max != nil {
			fv.Max = strconv.FormatFloat(*fl.Max, 'f', -1, 64)
		}
		v.Fields = append(v.Fields, fv)
	}
	return v
}

// renderer holds the parsed page and fragment templates
type renderer struct {
	pages     map[string]*template.Template
	fragments *template.Template
}

var templateFuncs = template.FuncMap{
	"cellClass": func(class string) string {
		if class == "" {
			return ""
		}
		return "cell-" + class
	},
}

func newRenderer() (*renderer, error) {
	r := &renderer{pages: make(map[string]*template.Template)}

	for _, page := range []string{"login", "signup", "dashboard", "help"} {
		tmpl, err := template.New("base.html").Funcs(templateFuncs).ParseFS(templateFS,
			"templates/base.html",
			"templates/"+page+".html",
		)
		if err != nil {
			return nil, fmt.Errorf("page %s: %w", page, err)
		}
		r.pages[page] = tmpl
	}

	fragments, err := template.New("fragments").Funcs(templateFuncs).ParseFS(templateFS, "templates/partials/*.html")
	if err != nil {
		return nil, fmt.Errorf("partials: %w", err)
	}
	r.fragments = fragments
	return r, nil
}

func (p *renderer) page(w http.ResponseWriter, logger *slog.Logger, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := p.pages[name].Execute(w, data); err != nil {
		logger.Error("failed to render page", "page", name, "error", err)
	}
}

func (p *renderer) fragment(w http.ResponseWriter, logger *slog.Logger, status int, name string, data any) {
	var buf bytes.Buffer
	if err := p.fragments.ExecuteTemplate(&buf, name, data); err != nil {
		logger.Error("failed to render fragment", "fragment", name, "error", err)
		http.Error(w, "Failed to render panel", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// login renders the login page
func (p *renderer) login(w http.ResponseWriter, logger *slog.Logger, data authPageData) {
	p.page(w, logger, "login", data)
}

// signup renders the signup page
func (p *renderer) signup(w http.ResponseWriter, logger *slog.Logger, data authPageData) {
	p.page(w, logger, "signup", data)
}

// dashboard renders the main dashboard
func (p *renderer) dashboard(w http.ResponseWriter, logger *slog.Logger, data dashboardData) {
	p.page(w, logger, "dashboard", data)
}

// help renders the help page
func (p *renderer) help(w http.ResponseWriter, logger *slog.Logger, data helpData) {
	p.page(w, logger, "help", data)
}

// form renders a form panel fragment
func (p *renderer) form(w http.ResponseWriter, logger *slog.Logger, status int, data formView) {
	p.fragment(w, logger, status, "form", data)
}

// list renders a list panel fragment
func (p *renderer) list(w http.ResponseWriter, logger *slog.Logger, status int, data listView) {
	p.fragment(w, logger, status, "list", data)
}

// renderHelp converts the embedded help markdown to HTML
func renderHelp() (template.HTML, error) {
	md, err := helpDocsFS.ReadFile("docs/help.md")
	if err != nil {
		return template.HTML("<p>Help is not available.</p>"), err
	}
	var buf bytes.Buffer
	if err := goldmark.Convert(md, &buf); err != nil {
		return template.HTML("<p>Failed to render help content.</p>"), err
	}
	return template.HTML(buf.String()), nil
}
