package scraper

import (
	"context"
	"sync"
	"testing"
	"time"

	"csgostats-scraper/internal/api"
	"csgostats-scraper/internal/browser"
	"csgostats-scraper/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestScraper(t *testing.T, site *fakeSite, concurrency int) *Scraper {
	t.Helper()
	s, err := New(Options{Sessions: site, Concurrency: concurrency})
	require.NoError(t, err)
	return s
}

func TestNewRejectsUnknownModes(t *testing.T) {
	site := newFakeSite(t)

	_, err := New(Options{Sessions: site, Markup: "fancy"})
	assert.Error(t, err)

	_, err = New(Options{Sessions: site, GraphSource: "network"})
	assert.Error(t, err)

	_, err = New(Options{Backend: "remote"})
	assert.Error(t, err, "remote backend needs a url")
}

func TestNewDefaults(t *testing.T) {
	s := newTestScraper(t, newFakeSite(t), 0)

	assert.Equal(t, 10, s.gate.Limit())
	assert.Equal(t, MarkupAuto, s.env.markup)
	assert.Equal(t, GraphSourceAuto, s.env.graphSource)
	assert.Equal(t, 30*time.Second, s.env.rawDataTimeout)
	assert.Equal(t, 100*time.Millisecond, s.env.rawDataPoll)
	assert.Zero(t, s.QueueSize())
}

func TestScraperBoundsConcurrency(t *testing.T) {
	site := newFakeSite(t).page(api.MatchURL(mirageMatchID), "match.html")
	site.delay = 50 * time.Millisecond
	s := newTestScraper(t, site, 2)

	const calls = 6
	var wg sync.WaitGroup
	results := make([]*domain.MatchOutput, calls)
	errs := make([]error, calls)
	for i := range calls {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = s.GetMatch(context.Background(), mirageMatchID)
		}()
	}

	assert.Eventually(t, func() bool { return s.QueueSize() > 0 }, time.Second, time.Millisecond)
	wg.Wait()

	for i := range calls {
		require.NoError(t, errs[i])
		assert.Equal(t, "de_mirage", results[i].Map)
	}
	assert.LessOrEqual(t, site.maxActive, 2)
	assert.Zero(t, s.QueueSize())
	requireBalanced(t, site, calls)
}

func TestScraperQueuedCallCancelled(t *testing.T) {
	site := newFakeSite(t).page(api.MatchURL(mirageMatchID), "match.html")
	site.delay = 100 * time.Millisecond
	s := newTestScraper(t, site, 1)

	done := make(chan error, 1)
	go func() {
		_, err := s.GetMatch(context.Background(), mirageMatchID)
		done <- err
	}()
	require.Eventually(t, func() bool { return s.gate.Running() == 1 }, time.Second, time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := s.ListLatestMatches(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, <-done)
	requireBalanced(t, site, 1)
}

func TestScraperRoutesEveryOperation(t *testing.T) {
	site := newFakeSite(t).
		page(api.Homepage, "home.html").
		page(hikoURL, "player.html").
		page(api.MatchURL(mirageMatchID), "match.html").
		page(api.MatchList, "matches.html")
	site.searches["hiko36"] = hikoURL
	site.noScript = true
	site.fetch = uploadResponse(api.UploadComplete, mirageMatchID)
	s := newTestScraper(t, site, 3)
	ctx := context.Background()

	player, err := s.SearchPlayer(ctx, "hiko36", domain.PlayerFilters{})
	require.NoError(t, err)
	assert.Equal(t, hikoID, player.Summary.SteamID64)

	player, err = s.GetPlayer(ctx, "STEAM_0:1:1395", domain.PlayerFilters{})
	require.NoError(t, err)
	assert.Equal(t, hikoID, player.Summary.SteamID64)

	match, err := s.SearchMatch(ctx, mirageCode)
	require.NoError(t, err)
	assert.Equal(t, "de_mirage", match.Map)

	latest, err := s.ListLatestMatches(ctx)
	require.NoError(t, err)
	assert.Len(t, latest, 3)

	site.fetch = func(req browser.FetchRequest) *browser.FetchResponse {
		return &browser.FetchResponse{Status: 200, OK: true, StatusText: "OK", Body: []byte(playedWithBody)}
	}
	playedWith, err := s.GetPlayedWith(ctx, hikoID, domain.PlayedWithFilters{})
	require.NoError(t, err)
	assert.Len(t, playedWith.Players, 1)

	requireBalanced(t, site, 7)
}

func TestScraperShutdownAndClose(t *testing.T) {
	site := newFakeSite(t).page(api.MatchURL(mirageMatchID), "match.html")
	s := newTestScraper(t, site, 1)
	ctx := context.Background()

	require.NoError(t, s.Shutdown())
	_, err := s.GetMatch(ctx, mirageMatchID)
	require.NoError(t, err, "browser restarts after shutdown")

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.Equal(t, 2, site.shutdown)

	_, err = s.GetMatch(ctx, mirageMatchID)
	assert.ErrorIs(t, err, ErrClosed)
	requireBalanced(t, site, 1)
}
