package service

import (
	"context"

	"csgostats-scraper/internal/domain"

	"github.com/rs/zerolog"
)

// Scraper is the live csgostats.gg lookup the services fall back to on a
// cache miss.
type Scraper interface {
	SearchPlayer(ctx context.Context, query string, filters domain.PlayerFilters) (*domain.PlayerOutput, error)
	GetPlayer(ctx context.Context, id any, filters domain.PlayerFilters) (*domain.PlayerOutput, error)
	GetPlayedWith(ctx context.Context, id any, filters domain.PlayedWithFilters) (*domain.PlayedWith, error)
	SearchMatch(ctx context.Context, shareCode string) (*domain.MatchOutput, error)
	GetMatch(ctx context.Context, matchID int64) (*domain.MatchOutput, error)
	ListLatestMatches(ctx context.Context) ([]domain.MatchSummary, error)
}

// fromCache returns the cached value unless it is missing, stale or
// unreadable. Cache failures are logged and treated as a miss.
func fromCache[T any](logger zerolog.Logger, stale func() (bool, error), get func() (T, error)) (T, bool) {
	var zero T

	shouldRefresh, err := stale()
	if err != nil {
		logger.Warn().Err(err).Msg("failed to check cache, fetching live data")
		return zero, false
	}
	if shouldRefresh {
		return zero, false
	}

	v, err := get()
	if err != nil {
		logger.Warn().Err(err).Msg("failed to read cache, fetching live data")
		return zero, false
	}
	return v, true
}
