package repository

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"csgostats-scraper/internal/database"
	"csgostats-scraper/internal/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestPlayerRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewPlayerRepository(openTestDB(t), zerolog.Nop())
	const id = "76561197960268519"
	filters := domain.PlayerFilters{MatchType: domain.MatchTypeCompetitive}

	_, err := repo.Get(ctx, id, filters)
	assert.ErrorIs(t, err, ErrNotCached)
	refresh, err := repo.ShouldRefresh(ctx, id, filters, time.Hour)
	require.NoError(t, err)
	assert.True(t, refresh)

	wins := 1024
	kd := 1.23
	player := &domain.PlayerOutput{
		Summary: domain.PlayerSummary{
			SteamID64:       id,
			SteamProfileURL: "https://steamcommunity.com/profiles/" + id,
			CurrentRank:     domain.LegendaryEagle,
			BestRank:        domain.SupremeMasterFirstClass,
			CompetitiveWins: &wins,
		},
		Stats:  &domain.PlayerStats{KillDeathRatio: &kd},
		Graphs: &domain.PlayerGraphs{RawData: []domain.GraphsRawDatum{{K: 21, Rank: domain.LegendaryEagle}}},
	}
	require.NoError(t, repo.Upsert(ctx, filters, player))
	require.NoError(t, repo.Upsert(ctx, filters, player))

	got, err := repo.Get(ctx, id, filters)
	require.NoError(t, err)
	assert.Equal(t, player, got)

	refresh, err = repo.ShouldRefresh(ctx, id, filters, time.Hour)
	require.NoError(t, err)
	assert.False(t, refresh)
	refresh, err = repo.ShouldRefresh(ctx, id, filters, 0)
	require.NoError(t, err)
	assert.True(t, refresh)

	// other filters are a separate entry
	_, err = repo.Get(ctx, id, domain.PlayerFilters{})
	assert.ErrorIs(t, err, ErrNotCached)
}

func TestPlayedWithRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewPlayerRepository(openTestDB(t), zerolog.Nop())
	const id = "76561197960268519"
	vac := true
	filters := domain.PlayedWithFilters{Vac: &vac}

	playedWith := &domain.PlayedWith{
		Players: []domain.PlayedWithPlayer{{SteamID: "76561197988627193", Stats: domain.PlayedWithStats{Games: "42"}}},
		Vac:     "1",
		Offset:  100,
	}
	require.NoError(t, repo.UpsertPlayedWith(ctx, id, filters, playedWith))

	got, err := repo.GetPlayedWith(ctx, id, filters)
	require.NoError(t, err)
	assert.Equal(t, playedWith, got)

	_, err = repo.GetPlayedWith(ctx, id, domain.PlayedWithFilters{})
	assert.ErrorIs(t, err, ErrNotCached)
}

func TestMatchRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMatchRepository(openTestDB(t), zerolog.Nop())
	date := time.Date(2021, time.October, 10, 1, 36, 57, 0, time.UTC)

	match := &domain.MatchOutput{
		MatchmakingService: domain.ServiceMM,
		AverageRank:        domain.GoldNovaI,
		Map:                "de_mirage",
		Date:               date,
		HasBannedPlayer:    true,
	}
	require.NoError(t, repo.Upsert(ctx, 46327747, match))

	got, err := repo.Get(ctx, 46327747)
	require.NoError(t, err)
	assert.Equal(t, domain.GoldNovaI, got.AverageRank)
	assert.Equal(t, "de_mirage", got.Map)
	assert.True(t, date.Equal(got.Date))

	const code = "CSGO-Q8CpG-TyNWZ-ptSn5-ETEer-MOBJC"
	_, err = repo.GetByShareCode(ctx, code)
	assert.ErrorIs(t, err, ErrNotCached)
	require.NoError(t, repo.UpsertShareCode(ctx, code, match))
	got, err = repo.GetByShareCode(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, "de_mirage", got.Map)

	refresh, err := repo.ShouldRefreshLatest(ctx, time.Minute)
	require.NoError(t, err)
	assert.True(t, refresh)

	latest := []domain.MatchSummary{
		{MatchID: 1, MatchmakingService: domain.ServiceFaceIt, AverageRank: domain.FaceItLevel8, Date: date},
		{MatchID: 0, MatchmakingService: domain.ServiceESEA},
	}
	require.NoError(t, repo.UpsertLatest(ctx, latest))
	gotLatest, err := repo.GetLatest(ctx)
	require.NoError(t, err)
	require.Len(t, gotLatest, 2)
	assert.Equal(t, domain.FaceItLevel8, gotLatest[0].AverageRank)
	assert.Nil(t, gotLatest[1].AverageRank)

	refresh, err = repo.ShouldRefreshLatest(ctx, time.Minute)
	require.NoError(t, err)
	assert.False(t, refresh)
}
