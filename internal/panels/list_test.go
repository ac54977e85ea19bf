// ABOUTME: Tests for list rendering, enrichment fallbacks, and token-driven re-fetching
// ABOUTME: Covers the once-per-observed-token contract and last-response-wins overlap

package panels_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/factdesk/internal/api"
	"github.com/2389/factdesk/internal/api/apitest"
	"github.com/2389/factdesk/internal/panels"
	"github.com/2389/factdesk/internal/refresh"
	"github.com/2389/factdesk/internal/views"
)

func mustLister(t *testing.T, id views.PanelID) *panels.Lister {
	t.Helper()
	l, ok := panels.LookupLister(id)
	require.True(t, ok, "no lister for %s", id)
	return l
}

func texts(row panels.Row) []string {
	out := make([]string, 0, len(row.Cells))
	for _, c := range row.Cells {
		out = append(out, c.Text)
	}
	return out
}

func TestSourceList_Enrichment(t *testing.T) {
	srv := apitest.New(t)
	srv.SetAvgCredibility(1, "72.5")

	listing := mustLister(t, views.PanelSourceList).Fetch(context.Background(), srv.Client(), panels.FetchOptions{MaxParallel: 1})
	require.NoError(t, listing.Err)
	require.Len(t, listing.Rows, 2)

	assert.Equal(t, []string{"1", "Daily Facts", "dailyfacts.example", "82.50%", "72.50%", "2025-01-06"}, texts(listing.Rows[0]))
	assert.Equal(t, panels.ClassGood, listing.Rows[0].Cells[3].Class)
	assert.Equal(t, panels.ClassBad, listing.Rows[1].Cells[3].Class)
	assert.Equal(t, "0.00%", listing.Rows[1].Cells[4].Text)
	assert.Equal(t, 1, srv.Count("GET /api/sources/1/avg_credibility"))
	assert.Equal(t, 1, srv.Count("GET /api/sources/2/avg_credibility"))
}

func TestSourceList_FailedItemShowsNA(t *testing.T) {
	srv := apitest.New(t)
	srv.Fail("GET /api/sources/2/avg_credibility", apitest.Failure{Status: 500, Message: "boom"})

	listing := mustLister(t, views.PanelSourceList).Fetch(context.Background(), srv.Client(), panels.FetchOptions{})
	require.NoError(t, listing.Err)
	require.Len(t, listing.Rows, 2)
	assert.NotEqual(t, "N/A", listing.Rows[0].Cells[4].Text)
	assert.Equal(t, "N/A", listing.Rows[1].Cells[4].Text)
	assert.Equal(t, panels.ClassMuted, listing.Rows[1].Cells[4].Class)
}

func TestSourceList_PrimaryFailureIsInline(t *testing.T) {
	srv := apitest.New(t)
	srv.Fail("GET /api/sources", apitest.Failure{Status: 500, Message: "db down"})

	listing := mustLister(t, views.PanelSourceList).Fetch(context.Background(), srv.Client(), panels.FetchOptions{})
	require.Error(t, listing.Err)
	assert.ErrorIs(t, listing.Err, api.ErrServerError)
	assert.Equal(t, "db down", listing.ErrorText())
	assert.False(t, listing.IsEmpty())
	assert.Equal(t, "Sources", listing.Title)
}

func TestArticleList_CountsFallBack(t *testing.T) {
	srv := apitest.New(t)

	listing := mustLister(t, views.PanelArticleList).Fetch(context.Background(), srv.Client(), panels.FetchOptions{})
	require.NoError(t, listing.Err)
	require.Len(t, listing.Rows, 2)
	assert.Equal(t, "2", listing.Rows[1].Cells[5].Text)
	assert.Equal(t, "https://rumormill.example/moon", listing.Rows[1].Cells[1].Link)
	assert.Equal(t, panels.ClassWarn, listing.Rows[1].Cells[4].Class)

	// Bulk counts down: each article is asked for separately
	srv.Fail("GET /api/analytics/articles_with_report_count", apitest.Failure{Status: 500, Message: "no"})
	listing = mustLister(t, views.PanelArticleList).Fetch(context.Background(), srv.Client(), panels.FetchOptions{MaxParallel: 1})
	require.NoError(t, listing.Err)
	assert.Equal(t, "2", listing.Rows[1].Cells[5].Text)
	assert.Equal(t, 1, srv.Count("GET /api/articles/1/report_count"))
	assert.Equal(t, 1, srv.Count("GET /api/articles/2/report_count"))

	// Both down: the count shows 0
	srv.Fail("GET /api/articles/2/report_count", apitest.Failure{Status: 500, Message: "no"})
	listing = mustLister(t, views.PanelArticleList).Fetch(context.Background(), srv.Client(), panels.FetchOptions{})
	require.NoError(t, listing.Err)
	assert.Equal(t, "0", listing.Rows[1].Cells[5].Text)
}

func TestReportList_ActionsOnOpenRowsOnly(t *testing.T) {
	srv := apitest.New(t)

	listing := mustLister(t, views.PanelReportList).Fetch(context.Background(), srv.Client(), panels.FetchOptions{})
	require.NoError(t, listing.Err)
	require.Len(t, listing.Rows, 2)

	open := listing.Rows[0]
	require.NotNil(t, open.Action)
	assert.Equal(t, int64(1), open.Action.ID)
	assert.Equal(t, panels.ClassWarn, open.Cells[4].Class)

	reviewed := listing.Rows[1]
	assert.Nil(t, reviewed.Action)
	assert.Equal(t, "Already reviewed", reviewed.Note)
	assert.Equal(t, "No reason provided", reviewed.Cells[3].Text)
}

func TestTopSources_RankBadges(t *testing.T) {
	srv := apitest.New(t)
	listing := mustLister(t, views.PanelTopSources).Fetch(context.Background(), srv.Client(), panels.FetchOptions{})
	require.NoError(t, listing.Err)
	require.Len(t, listing.Rows, 2)
	assert.Equal(t, "🥇", listing.Rows[0].Cells[0].Text)
	assert.Equal(t, "🥈", listing.Rows[1].Cells[0].Text)
}

func TestCredibilityList_ScoresAsPercentages(t *testing.T) {
	srv := apitest.New(t)
	listing := mustLister(t, views.PanelCredibilityList).Fetch(context.Background(), srv.Client(), panels.FetchOptions{})
	require.NoError(t, listing.Err)
	require.Len(t, listing.Rows, 1)
	assert.Equal(t, []string{"1", "Budget passes", "91.0%", "88.0%", "Real", "Fran Checker", "2025-01-11 12:00"}, texts(listing.Rows[0]))
}

func TestAnalyticsLists(t *testing.T) {
	srv := apitest.New(t)

	reporters := mustLister(t, views.PanelActiveReporters).Fetch(context.Background(), srv.Client(), panels.FetchOptions{})
	require.NoError(t, reporters.Err)
	assert.Len(t, reporters.Rows, 2)

	review := mustLister(t, views.PanelUnderReview).Fetch(context.Background(), srv.Client(), panels.FetchOptions{})
	require.NoError(t, review.Err)
	require.Len(t, review.Rows, 1)
	assert.Equal(t, "Moon made of cheese", review.Rows[0].Cells[1].Text)
	assert.Equal(t, "No articles are currently under review.", review.Empty)
}

func TestListState_FetchesOncePerObservedToken(t *testing.T) {
	srv := apitest.New(t)
	coord := refresh.New()
	state := panels.NewListState(mustLister(t, views.PanelTopSources), srv.Client(), panels.FetchOptions{})
	ctx := context.Background()

	first := state.Sync(ctx, coord.Token())
	require.NoError(t, first.Err)
	state.Sync(ctx, coord.Token())
	state.Sync(ctx, coord.Token())
	assert.Equal(t, 1, state.Fetches())
	assert.Equal(t, 1, srv.Count("GET /api/analytics/top_trusted_sources"))

	for i := 0; i < 5; i++ {
		coord.Bump()
	}
	listing := state.Sync(ctx, coord.Token())
	state.Sync(ctx, coord.Token())
	assert.Equal(t, 2, state.Fetches(), "coalesced bumps cause one re-fetch")
	assert.Equal(t, uint64(5), listing.Token)
	assert.False(t, listing.Loading)
}

func TestListState_ReflectsMutationAfterBump(t *testing.T) {
	srv := apitest.New(t)
	client := srv.Client()
	coord := refresh.New()
	state := panels.NewListState(mustLister(t, views.PanelReportList), client, panels.FetchOptions{})
	ctx := context.Background()

	before := state.Sync(ctx, coord.Token())
	require.NotNil(t, before.Rows[0].Action)

	_, err := panels.MarkReviewed(ctx, client, 1, coord)
	require.NoError(t, err)

	after := state.Sync(ctx, coord.Token())
	assert.Nil(t, after.Rows[0].Action)
	assert.Equal(t, "Reviewed", after.Rows[0].Cells[4].Text)
}

func TestListState_LastResponseWins(t *testing.T) {
	srv := apitest.New(t)
	state := panels.NewListState(mustLister(t, views.PanelSourceList), srv.Client(), panels.FetchOptions{})
	ctx := context.Background()

	release := make(chan struct{})
	entered := make(chan struct{}, 1)
	srv.Hook("GET /api/sources", func() {
		select {
		case entered <- struct{}{}:
			<-release
		default:
		}
	})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		state.Sync(ctx, 1)
	}()

	select {
	case <-entered:
	case <-time.After(2 * time.Second):
		t.Fatal("first fetch never reached the server")
	}
	assert.True(t, state.Snapshot().Loading)

	srv.SetSourceTrust(1, "99.00")
	entered <- struct{}{} // fill the slot so the second fetch is not held
	second := state.Sync(ctx, 2)
	assert.Equal(t, "99.00%", second.Rows[0].Cells[3].Text)
	assert.True(t, second.Loading, "first fetch still outstanding")

	srv.SetSourceTrust(1, "10.00")
	close(release)
	wg.Wait()

	final := state.Snapshot()
	assert.False(t, final.Loading)
	assert.Equal(t, uint64(1), final.Token, "the slower response completed last")
	assert.Equal(t, "10.00%", final.Rows[0].Cells[3].Text)
}

func TestListing_IsEmpty(t *testing.T) {
	assert.True(t, panels.Listing{}.IsEmpty())
	assert.False(t, panels.Listing{Loading: true}.IsEmpty())
	assert.False(t, panels.Listing{Rows: []panels.Row{{}}}.IsEmpty())
}
