// ABOUTME: List panels: fetch rows, enrich them, and cache the listing per refresh token
// ABOUTME: ListState re-fetches exactly once per observed token change; last response wins

package panels

import (
	"context"
	"log/slog"
	"strconv"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/2389/factdesk/internal/api"
	"github.com/2389/factdesk/internal/views"
)

// Cell is one rendered table cell.
type Cell struct {
	Text  string
	Class string
	Link  string
}

// RowAction is a per-row mutation offered by a list.
type RowAction struct {
	Label string
	ID    int64
}

// Row is one rendered table row.
type Row struct {
	Cells  []Cell
	Action *RowAction
	// Note replaces the action when the row no longer accepts one.
	Note string
}

// Listing is the rendered state of a list panel.
type Listing struct {
	Panel   views.PanelID
	Title   string
	Columns []string
	Rows    []Row
	Empty   string
	Err     error
	Token   uint64
	Loading bool
}

// IsEmpty reports whether the empty-state message applies.
func (l Listing) IsEmpty() bool {
	return l.Err == nil && !l.Loading && len(l.Rows) == 0
}

// ErrorText returns the inline error reason.
func (l Listing) ErrorText() string {
	return api.Reason(l.Err)
}

// FetchOptions tunes list fetches.
type FetchOptions struct {
	// MaxParallel bounds per-row enrichment requests. Zero means 4.
	MaxParallel int
	Logger      *slog.Logger
}

func (o FetchOptions) parallel() int {
	if o.MaxParallel <= 0 {
		return 4
	}
	return o.MaxParallel
}

func (o FetchOptions) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.Default().With("component", "panels")
	}
	return o.Logger
}

// Lister is a read-only panel backed by one primary endpoint.
type Lister struct {
	Panel   views.PanelID
	Columns []string
	Empty   string

	fetch func(ctx context.Context, a API, o FetchOptions) ([]Row, error)
}

// Title returns the panel title.
func (l *Lister) Title() string {
	return views.Title(l.Panel)
}

// Fetch performs one fetch and returns the resulting listing.
func (l *Lister) Fetch(ctx context.Context, a API, o FetchOptions) Listing {
	rows, err := l.fetch(ctx, a, o)
	listing := l.blank()
	if err != nil {
		listing.Err = err
		return listing
	}
	listing.Rows = rows
	return listing
}

func (l *Lister) blank() Listing {
	return Listing{
		Panel:   l.Panel,
		Title:   l.Title(),
		Columns: l.Columns,
		Empty:   l.Empty,
	}
}

// ListState caches a lister's listing against the refresh token it was
// fetched for.
type ListState struct {
	lister *Lister
	api    API
	opts   FetchOptions

	mu       sync.Mutex
	synced   bool
	seen     uint64
	inflight int
	fetches  int
	current  Listing
}

// NewListState binds a lister to an API for repeated syncs.
func NewListState(l *Lister, a API, o FetchOptions) *ListState {
	return &ListState{
		lister:  l,
		api:     a,
		opts:    o,
		current: l.blank(),
	}
}

// Lister returns the bound lister.
func (s *ListState) Lister() *Lister {
	return s.lister
}

// Sync returns the listing for token. The first call and every call with a
// token different from the last one observed fetch; other calls return the
// cached listing. Concurrent fetches are not merged: whichever completes
// last is kept.
func (s *ListState) Sync(ctx context.Context, token uint64) Listing {
	s.mu.Lock()
	if s.synced && s.seen == token {
		out := s.current
		out.Loading = s.inflight > 0
		s.mu.Unlock()
		return out
	}
	s.synced = true
	s.seen = token
	s.inflight++
	s.fetches++
	s.mu.Unlock()

	fetched := s.lister.Fetch(ctx, s.api, s.opts)
	fetched.Token = token

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inflight--
	s.current = fetched
	out := s.current
	out.Loading = s.inflight > 0
	return out
}

// Snapshot returns the cached listing without fetching.
func (s *ListState) Snapshot() Listing {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.current
	out.Loading = s.inflight > 0
	return out
}

// Fetches returns how many fetches Sync has started.
func (s *ListState) Fetches() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetches
}

func idText(id int64) string {
	return strconv.FormatInt(id, 10)
}

func fetchArticles(ctx context.Context, a API, o FetchOptions) ([]Row, error) {
	var (
		articles []api.ArticleRow
		counts   []api.ReportCountRow
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		articles, err = a.ListArticles(gctx)
		return err
	})
	g.Go(func() error {
		rows, err := a.ArticlesWithReportCount(gctx)
		if err != nil {
			o.logger().Warn("report counts unavailable, falling back to per-article counts", "error", err)
			return nil
		}
		counts = rows
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var byArticle map[int64]int64
	if counts != nil {
		byArticle = make(map[int64]int64, len(counts))
		for _, c := range counts {
			byArticle[c.ArticleID] = c.ReportCount
		}
	} else {
		var err error
		if byArticle, err = articleReportCounts(ctx, a, articles, o); err != nil {
			return nil, err
		}
	}

	rows := make([]Row, 0, len(articles))
	for _, art := range articles {
		rows = append(rows, Row{Cells: []Cell{
			{Text: idText(art.ArticleID)},
			{Text: art.Title, Link: art.URL},
			{Text: orNA(art.SourceName)},
			{Text: DateText(art.PublishDate)},
			{Text: orNA(art.ReviewStatus), Class: ReviewStatusClass(art.ReviewStatus)},
			{Text: strconv.FormatInt(byArticle[art.ArticleID], 10)},
			{Text: orNA(art.CredibilityVerdict), Class: VerdictClass(art.CredibilityVerdict)},
		}})
	}
	return rows, nil
}

// articleReportCounts asks for each article's count separately. Articles
// whose count cannot be fetched are left out and render as 0.
func articleReportCounts(ctx context.Context, a API, articles []api.ArticleRow, o FetchOptions) (map[int64]int64, error) {
	var mu sync.Mutex
	counts := make(map[int64]int64, len(articles))

	var g errgroup.Group
	g.SetLimit(o.parallel())
	for _, art := range articles {
		g.Go(func() error {
			rc, err := a.ArticleReportCount(ctx, art.ArticleID)
			if err != nil {
				o.logger().Warn("report count unavailable", "article_id", art.ArticleID, "error", err)
				return nil
			}
			mu.Lock()
			counts[art.ArticleID] = rc.ReportCount
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return counts, nil
}

func fetchSources(ctx context.Context, a API, o FetchOptions) ([]Row, error) {
	sources, err := a.ListSources(ctx)
	if err != nil {
		return nil, err
	}

	avgs := make([]*api.AvgCredibility, len(sources))
	var g errgroup.Group
	g.SetLimit(o.parallel())
	for i, src := range sources {
		g.Go(func() error {
			avg, err := a.SourceAvgCredibility(ctx, src.SourceID)
			if err != nil {
				o.logger().Warn("average credibility unavailable", "source_id", src.SourceID, "error", err)
				return nil
			}
			avgs[i] = avg
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	rows := make([]Row, 0, len(sources))
	for i, src := range sources {
		avg := Cell{Text: notAvailable, Class: ClassMuted}
		if avgs[i] != nil {
			avg = Cell{Text: AverageText(avgs[i].AvgCredibility)}
		}
		rows = append(rows, Row{Cells: []Cell{
			{Text: idText(src.SourceID)},
			{Text: src.Name},
			{Text: src.Domain},
			{Text: RatingText(src.TrustRating), Class: TrustClass(src.TrustRating)},
			avg,
			{Text: DateText(src.CreatedAt)},
		}})
	}
	return rows, nil
}

func fetchChecks(ctx context.Context, a API, _ FetchOptions) ([]Row, error) {
	checks, err := a.ListCredibilityChecks(ctx)
	if err != nil {
		return nil, err
	}
	rows := make([]Row, 0, len(checks))
	for _, c := range checks {
		rows = append(rows, Row{Cells: []Cell{
			{Text: idText(c.CheckID)},
			{Text: c.ArticleTitle},
			{Text: ScoreText(c.AIScore)},
			{Text: ScoreText(c.FactCheckScore)},
			{Text: orNA(c.FinalVerdict), Class: VerdictClass(c.FinalVerdict)},
			{Text: orNA(c.CheckedBy)},
			{Text: DateTimeText(c.CheckDate)},
		}})
	}
	return rows, nil
}

func fetchReports(ctx context.Context, a API, _ FetchOptions) ([]Row, error) {
	reports, err := a.ListReports(ctx)
	if err != nil {
		return nil, err
	}
	rows := make([]Row, 0, len(reports))
	for _, r := range reports {
		reason := Cell{Text: r.Reason}
		if r.Reason == "" {
			reason = Cell{Text: "No reason provided", Class: ClassMuted}
		}
		row := Row{Cells: []Cell{
			{Text: idText(r.ReportID)},
			{Text: r.Reporter},
			{Text: r.ArticleTitle},
			reason,
			{Text: orNA(r.Status), Class: ReportStatusClass(r.Status)},
			{Text: DateTimeText(r.ReportDate)},
		}}
		if r.Open() {
			row.Action = &RowAction{Label: "Mark reviewed", ID: r.ReportID}
		} else {
			row.Note = "Already reviewed"
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func fetchTopSources(ctx context.Context, a API, _ FetchOptions) ([]Row, error) {
	top, err := a.TopTrustedSources(ctx)
	if err != nil {
		return nil, err
	}
	rows := make([]Row, 0, len(top))
	for i, s := range top {
		rows = append(rows, Row{Cells: []Cell{
			{Text: RankBadge(i)},
			{Text: s.SourceName},
			{Text: s.Domain},
			{Text: RatingText(s.TrustRating), Class: TrustClass(s.TrustRating)},
		}})
	}
	return rows, nil
}

func fetchActiveReporters(ctx context.Context, a API, _ FetchOptions) ([]Row, error) {
	reporters, err := a.ActiveReporters(ctx)
	if err != nil {
		return nil, err
	}
	rows := make([]Row, 0, len(reporters))
	for _, r := range reporters {
		rows = append(rows, Row{Cells: []Cell{
			{Text: r.Name},
			{Text: r.Email},
			{Text: r.Role, Class: RoleClass(r.Role)},
			{Text: strconv.FormatInt(r.TotalReports, 10), Class: ClassInfo},
		}})
	}
	return rows, nil
}

func fetchUnderReview(ctx context.Context, a API, _ FetchOptions) ([]Row, error) {
	articles, err := a.UnderReviewArticles(ctx)
	if err != nil {
		return nil, err
	}
	rows := make([]Row, 0, len(articles))
	for _, art := range articles {
		rows = append(rows, Row{Cells: []Cell{
			{Text: idText(art.ArticleID)},
			{Text: art.Title},
			{Text: orNA(art.SourceName)},
			{Text: strconv.FormatInt(art.TotalReports, 10), Class: ClassWarn},
			{Text: orNA(art.ReviewStatus), Class: ReviewStatusClass(art.ReviewStatus)},
		}})
	}
	return rows, nil
}
