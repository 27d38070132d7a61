package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"csgostats-scraper/internal/config"
	"csgostats-scraper/internal/constants"
	"csgostats-scraper/internal/domain"
	"csgostats-scraper/internal/parse"
	"csgostats-scraper/internal/repository"
	"csgostats-scraper/internal/scraper"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

type PlayerService struct {
	scraper Scraper
	repo    *repository.PlayerRepository
	ttl     time.Duration
	logger  zerolog.Logger
}

func NewPlayerService(sc Scraper, repo *repository.PlayerRepository, cfg *config.Config, logger zerolog.Logger) *PlayerService {
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = constants.PlayerCacheTTL
	}
	return &PlayerService{scraper: sc, repo: repo, ttl: ttl, logger: logger}
}

func (s *PlayerService) GetPlayer(ctx context.Context, id string, filters domain.PlayerFilters, refresh bool) (*domain.PlayerOutput, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	steamID64, err := parse.SteamID64(id)
	if err != nil {
		return nil, &scraper.ValidationError{Message: fmt.Sprintf("invalid steam id: %q", id), Err: err}
	}

	s.logger.Info().Str("steam_id", steamID64).Bool("refresh", refresh).Msg("getting player")

	if !refresh {
		player, ok := fromCache(s.logger,
			func() (bool, error) { return s.repo.ShouldRefresh(ctx, steamID64, filters, s.ttl) },
			func() (*domain.PlayerOutput, error) { return s.repo.Get(ctx, steamID64, filters) },
		)
		if ok {
			s.logger.Info().Str("steam_id", steamID64).Msg("returning cached player")
			return player, nil
		}
	} else {
		s.logger.Debug().Str("steam_id", steamID64).Msg("manual refresh requested")
	}

	player, err := s.scraper.GetPlayer(ctx, steamID64, filters)
	if err != nil {
		s.logger.Error().Err(err).Str("steam_id", steamID64).Msg("failed to fetch player")
		return nil, fmt.Errorf("failed to fetch player: %w", err)
	}
	s.store(ctx, filters, player)

	s.logger.Info().Str("steam_id", steamID64).Bool("has_stats", player.Stats != nil).Msg("player fetched successfully")
	return player, nil
}

// SearchPlayer always goes to the site since the query only resolves to a
// Steam ID there. The resolved profile is cached like any other.
func (s *PlayerService) SearchPlayer(ctx context.Context, query string, filters domain.PlayerFilters) (*domain.PlayerOutput, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, &scraper.ValidationError{Message: "search query is required"}
	}

	s.logger.Info().Str("query", query).Msg("searching player")

	player, err := s.scraper.SearchPlayer(ctx, query, filters)
	if err != nil {
		s.logger.Error().Err(err).Str("query", query).Msg("failed to search player")
		return nil, fmt.Errorf("failed to search player: %w", err)
	}
	s.store(ctx, filters, player)

	s.logger.Info().Str("query", query).Str("steam_id", player.Summary.SteamID64).Msg("search completed")
	return player, nil
}

// GetPlayers looks up a batch of players, as listed by a status command.
// The scraper's concurrency limit still applies to the fan out.
func (s *PlayerService) GetPlayers(ctx context.Context, ids []string, filters domain.PlayerFilters, refresh bool) ([]*domain.PlayerOutput, error) {
	if len(ids) == 0 {
		return nil, &scraper.ValidationError{Message: "at least one steam id is required"}
	}
	if len(ids) > constants.BatchPlayerLimit {
		return nil, &scraper.ValidationError{Message: fmt.Sprintf("at most %d players per request, got %d", constants.BatchPlayerLimit, len(ids))}
	}

	s.logger.Debug().Int("count", len(ids)).Msg("getting players")

	players := make([]*domain.PlayerOutput, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	for i, id := range ids {
		g.Go(func() error {
			player, err := s.GetPlayer(gctx, id, filters, refresh)
			if err != nil {
				return fmt.Errorf("player %s: %w", id, err)
			}
			players[i] = player
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.logger.Info().Int("count", len(players)).Msg("players fetched successfully")
	return players, nil
}

func (s *PlayerService) GetPlayedWith(ctx context.Context, id string, filters domain.PlayedWithFilters, refresh bool) (*domain.PlayedWith, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	steamID64, err := parse.SteamID64(id)
	if err != nil {
		return nil, &scraper.ValidationError{Message: fmt.Sprintf("invalid steam id: %q", id), Err: err}
	}
	if filters.Offset < 0 {
		return nil, &scraper.ValidationError{Message: fmt.Sprintf("invalid offset: %d", filters.Offset)}
	}

	s.logger.Info().Str("steam_id", steamID64).Int("offset", filters.Offset).Bool("refresh", refresh).Msg("getting played-with")

	if !refresh {
		playedWith, ok := fromCache(s.logger,
			func() (bool, error) {
				return s.repo.ShouldRefreshPlayedWith(ctx, steamID64, filters, constants.PlayedWithCacheTTL)
			},
			func() (*domain.PlayedWith, error) { return s.repo.GetPlayedWith(ctx, steamID64, filters) },
		)
		if ok {
			s.logger.Info().Str("steam_id", steamID64).Msg("returning cached played-with")
			return playedWith, nil
		}
	}

	playedWith, err := s.scraper.GetPlayedWith(ctx, steamID64, filters)
	if err != nil {
		s.logger.Error().Err(err).Str("steam_id", steamID64).Msg("failed to fetch played-with")
		return nil, fmt.Errorf("failed to fetch played-with: %w", err)
	}
	if err := s.repo.UpsertPlayedWith(ctx, steamID64, filters, playedWith); err != nil {
		s.logger.Warn().Err(err).Str("steam_id", steamID64).Msg("failed to cache played-with")
	}

	s.logger.Info().Str("steam_id", steamID64).Int("players", len(playedWith.Players)).Msg("played-with fetched successfully")
	return playedWith, nil
}

func (s *PlayerService) store(ctx context.Context, filters domain.PlayerFilters, player *domain.PlayerOutput) {
	if err := s.repo.Upsert(ctx, filters, player); err != nil {
		s.logger.Warn().Err(err).Str("steam_id", player.Summary.SteamID64).Msg("failed to cache player")
	}
}
