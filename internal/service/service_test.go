package service

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"csgostats-scraper/internal/config"
	"csgostats-scraper/internal/database"
	"csgostats-scraper/internal/domain"
	"csgostats-scraper/internal/repository"
	"csgostats-scraper/internal/scraper"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const hikoID = "76561197960268519"

type fakeScraper struct {
	calls atomic.Int64

	mu   sync.Mutex
	ids  []any
	fail map[string]error
}

func (f *fakeScraper) SearchPlayer(ctx context.Context, query string, filters domain.PlayerFilters) (*domain.PlayerOutput, error) {
	f.calls.Add(1)
	if query == "nobody" {
		return nil, &scraper.ValidationError{Message: "No player found"}
	}
	return &domain.PlayerOutput{Summary: domain.PlayerSummary{SteamID64: hikoID}}, nil
}

func (f *fakeScraper) GetPlayer(ctx context.Context, id any, filters domain.PlayerFilters) (*domain.PlayerOutput, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.ids = append(f.ids, id)
	err := f.fail[fmt.Sprint(id)]
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	kd := 1.1
	return &domain.PlayerOutput{
		Summary: domain.PlayerSummary{SteamID64: fmt.Sprint(id), CurrentRank: domain.GoldNovaI},
		Stats:   &domain.PlayerStats{KillDeathRatio: &kd},
	}, nil
}

func (f *fakeScraper) GetPlayedWith(ctx context.Context, id any, filters domain.PlayedWithFilters) (*domain.PlayedWith, error) {
	f.calls.Add(1)
	return &domain.PlayedWith{Players: []domain.PlayedWithPlayer{{SteamID: "76561197988627193"}}, Vac: "0"}, nil
}

func (f *fakeScraper) SearchMatch(ctx context.Context, shareCode string) (*domain.MatchOutput, error) {
	f.calls.Add(1)
	if shareCode == "CSGO-aaaaa-aaaaa-aaaaa-aaaaa-aaaaa" {
		return nil, &scraper.NotReadyError{ShareCode: shareCode, Status: "In Queue"}
	}
	return &domain.MatchOutput{MatchmakingService: domain.ServiceMM, Map: "de_mirage"}, nil
}

func (f *fakeScraper) GetMatch(ctx context.Context, matchID int64) (*domain.MatchOutput, error) {
	f.calls.Add(1)
	if matchID == 404 {
		return nil, &scraper.HTTPStatusError{StatusCode: 404, StatusText: "Not Found"}
	}
	return &domain.MatchOutput{MatchmakingService: domain.ServiceFaceIt, AverageRank: domain.FaceItLevel3, Map: "de_nuke"}, nil
}

func (f *fakeScraper) ListLatestMatches(ctx context.Context) ([]domain.MatchSummary, error) {
	f.calls.Add(1)
	return []domain.MatchSummary{{MatchID: 1, MatchmakingService: domain.ServiceMM, AverageRank: domain.GlobalElite}}, nil
}

type fixture struct {
	scraper     *fakeScraper
	players     *PlayerService
	matches     *MatchService
	matchDetail *MatchDetailService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	sc := &fakeScraper{fail: map[string]error{}}
	playerRepo := repository.NewPlayerRepository(db, zerolog.Nop())
	matchRepo := repository.NewMatchRepository(db, zerolog.Nop())
	cfg := &config.Config{CacheTTL: time.Hour}

	return &fixture{
		scraper:     sc,
		players:     NewPlayerService(sc, playerRepo, cfg, zerolog.Nop()),
		matches:     NewMatchService(sc, matchRepo, zerolog.Nop()),
		matchDetail: NewMatchDetailService(sc, matchRepo, zerolog.Nop()),
	}
}

func TestGetPlayerCaches(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.players.GetPlayer(ctx, "STEAM_0:1:1395", domain.PlayerFilters{}, false)
	require.NoError(t, err)
	assert.Equal(t, hikoID, first.Summary.SteamID64)

	// a different spelling of the same id hits the cache
	second, err := f.players.GetPlayer(ctx, hikoID, domain.PlayerFilters{}, false)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, int64(1), f.scraper.calls.Load())

	_, err = f.players.GetPlayer(ctx, hikoID, domain.PlayerFilters{}, true)
	require.NoError(t, err)
	assert.Equal(t, int64(2), f.scraper.calls.Load())

	_, err = f.players.GetPlayer(ctx, hikoID, domain.PlayerFilters{MatchType: domain.MatchTypeScrimmage}, false)
	require.NoError(t, err)
	assert.Equal(t, int64(3), f.scraper.calls.Load())

	// the scraper only ever sees canonical ids
	assert.Equal(t, []any{hikoID, hikoID, hikoID}, f.scraper.ids)
}

func TestGetPlayerInvalidID(t *testing.T) {
	f := newFixture(t)

	_, err := f.players.GetPlayer(context.Background(), "bogus", domain.PlayerFilters{}, false)

	var validationErr *scraper.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Zero(t, f.scraper.calls.Load())
}

func TestSearchPlayer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	out, err := f.players.SearchPlayer(ctx, "  hiko36 ", domain.PlayerFilters{})
	require.NoError(t, err)
	assert.Equal(t, hikoID, out.Summary.SteamID64)

	// the resolved profile is served from cache afterwards
	_, err = f.players.GetPlayer(ctx, hikoID, domain.PlayerFilters{}, false)
	require.NoError(t, err)
	assert.Equal(t, int64(1), f.scraper.calls.Load())

	_, err = f.players.SearchPlayer(ctx, " ", domain.PlayerFilters{})
	var validationErr *scraper.ValidationError
	assert.ErrorAs(t, err, &validationErr)

	_, err = f.players.SearchPlayer(ctx, "nobody", domain.PlayerFilters{})
	assert.ErrorAs(t, err, &validationErr)
}

func TestGetPlayers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ids := []string{"76561198325964713", "76561198223594140", "76561198145522845"}

	players, err := f.players.GetPlayers(ctx, ids, domain.PlayerFilters{}, false)
	require.NoError(t, err)
	require.Len(t, players, len(ids))
	for i, id := range ids {
		assert.Equal(t, id, players[i].Summary.SteamID64)
	}

	f.scraper.fail["76561198145522845"] = &scraper.HTTPStatusError{StatusCode: 404}
	_, err = f.players.GetPlayers(ctx, ids, domain.PlayerFilters{}, true)
	assert.ErrorIs(t, err, scraper.ErrNotFound)

	var validationErr *scraper.ValidationError
	_, err = f.players.GetPlayers(ctx, nil, domain.PlayerFilters{}, false)
	assert.ErrorAs(t, err, &validationErr)
	_, err = f.players.GetPlayers(ctx, make([]string, 21), domain.PlayerFilters{}, false)
	assert.ErrorAs(t, err, &validationErr)
}

func TestGetPlayedWith(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	vac := false

	out, err := f.players.GetPlayedWith(ctx, hikoID, domain.PlayedWithFilters{Vac: &vac}, false)
	require.NoError(t, err)
	assert.Len(t, out.Players, 1)

	_, err = f.players.GetPlayedWith(ctx, hikoID, domain.PlayedWithFilters{Vac: &vac}, false)
	require.NoError(t, err)
	assert.Equal(t, int64(1), f.scraper.calls.Load())

	var validationErr *scraper.ValidationError
	_, err = f.players.GetPlayedWith(ctx, hikoID, domain.PlayedWithFilters{Offset: -1}, false)
	assert.ErrorAs(t, err, &validationErr)
}

func TestLatestMatches(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.matches.LatestMatches(ctx, false)
	require.NoError(t, err)
	second, err := f.matches.LatestMatches(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, domain.GlobalElite, second[0].AverageRank)
	assert.Equal(t, int64(1), f.scraper.calls.Load())

	_, err = f.matches.LatestMatches(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, int64(2), f.scraper.calls.Load())
}

func TestGetMatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.matchDetail.GetMatch(ctx, 46327747, false)
	require.NoError(t, err)
	out, err := f.matchDetail.GetMatch(ctx, 46327747, false)
	require.NoError(t, err)
	assert.Equal(t, domain.FaceItLevel3, out.AverageRank)
	assert.Equal(t, int64(1), f.scraper.calls.Load())

	_, err = f.matchDetail.GetMatch(ctx, 404, false)
	assert.ErrorIs(t, err, scraper.ErrNotFound)
}

func TestSearchMatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	const code = "CSGO-Q8CpG-TyNWZ-ptSn5-ETEer-MOBJC"

	_, err := f.matchDetail.SearchMatch(ctx, code, false)
	require.NoError(t, err)
	out, err := f.matchDetail.SearchMatch(ctx, " "+code, false)
	require.NoError(t, err)
	assert.Equal(t, "de_mirage", out.Map)
	assert.Equal(t, int64(1), f.scraper.calls.Load())

	const queued = "CSGO-aaaaa-aaaaa-aaaaa-aaaaa-aaaaa"
	_, err = f.matchDetail.SearchMatch(ctx, queued, false)
	assert.ErrorIs(t, err, scraper.ErrNotReady)
	_, err = f.matchDetail.SearchMatch(ctx, queued, false)
	assert.ErrorIs(t, err, scraper.ErrNotReady)
	assert.Equal(t, int64(3), f.scraper.calls.Load())

	var validationErr *scraper.ValidationError
	_, err = f.matchDetail.SearchMatch(ctx, "CSGO-short", false)
	assert.ErrorAs(t, err, &validationErr)
}
