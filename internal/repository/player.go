package repository

import (
	"context"
	"database/sql"
	"time"

	"csgostats-scraper/internal/api"
	"csgostats-scraper/internal/domain"

	"github.com/rs/zerolog"
)

// PlayerRepository caches player profiles and played-with lists. Both are
// keyed by the upstream URL, so each filter combination is its own entry.
type PlayerRepository struct {
	store *snapshotStore
}

func NewPlayerRepository(sqlDB *sql.DB, logger zerolog.Logger) *PlayerRepository {
	return &PlayerRepository{
		store: &snapshotStore{db: sqlDB, logger: logger},
	}
}

func (r *PlayerRepository) Get(ctx context.Context, steamID64 string, filters domain.PlayerFilters) (*domain.PlayerOutput, error) {
	return load[domain.PlayerOutput](ctx, r.store, KindPlayer, api.PlayerURL(steamID64, filters))
}

func (r *PlayerRepository) Upsert(ctx context.Context, filters domain.PlayerFilters, player *domain.PlayerOutput) error {
	return save(ctx, r.store, KindPlayer, api.PlayerURL(player.Summary.SteamID64, filters), player)
}

func (r *PlayerRepository) ShouldRefresh(ctx context.Context, steamID64 string, filters domain.PlayerFilters, ttl time.Duration) (bool, error) {
	return r.store.shouldRefresh(ctx, KindPlayer, api.PlayerURL(steamID64, filters), ttl)
}

func (r *PlayerRepository) GetPlayedWith(ctx context.Context, steamID64 string, filters domain.PlayedWithFilters) (*domain.PlayedWith, error) {
	return load[domain.PlayedWith](ctx, r.store, KindPlayedWith, api.PlayedWithURL(steamID64, filters))
}

func (r *PlayerRepository) UpsertPlayedWith(ctx context.Context, steamID64 string, filters domain.PlayedWithFilters, playedWith *domain.PlayedWith) error {
	return save(ctx, r.store, KindPlayedWith, api.PlayedWithURL(steamID64, filters), playedWith)
}

func (r *PlayerRepository) ShouldRefreshPlayedWith(ctx context.Context, steamID64 string, filters domain.PlayedWithFilters, ttl time.Duration) (bool, error) {
	return r.store.shouldRefresh(ctx, KindPlayedWith, api.PlayedWithURL(steamID64, filters), ttl)
}
