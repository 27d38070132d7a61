package service

import (
	"context"
	"fmt"

	"csgostats-scraper/internal/constants"
	"csgostats-scraper/internal/domain"
	"csgostats-scraper/internal/parse"
	"csgostats-scraper/internal/repository"
	"csgostats-scraper/internal/scraper"

	"github.com/rs/zerolog"
)

type MatchDetailService struct {
	scraper Scraper
	repo    *repository.MatchRepository
	logger  zerolog.Logger
}

func NewMatchDetailService(sc Scraper, repo *repository.MatchRepository, logger zerolog.Logger) *MatchDetailService {
	return &MatchDetailService{scraper: sc, repo: repo, logger: logger}
}

func (s *MatchDetailService) GetMatch(ctx context.Context, matchID int64, refresh bool) (*domain.MatchOutput, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	s.logger.Debug().Int64("match_id", matchID).Bool("refresh", refresh).Msg("getting match")

	if !refresh {
		match, ok := fromCache(s.logger,
			func() (bool, error) { return s.repo.ShouldRefresh(ctx, matchID, constants.MatchCacheTTL) },
			func() (*domain.MatchOutput, error) { return s.repo.Get(ctx, matchID) },
		)
		if ok {
			s.logger.Info().Int64("match_id", matchID).Msg("match found in cache")
			return match, nil
		}
	}

	match, err := s.scraper.GetMatch(ctx, matchID)
	if err != nil {
		s.logger.Error().Err(err).Int64("match_id", matchID).Msg("failed to fetch match")
		return nil, fmt.Errorf("failed to fetch match: %w", err)
	}
	if err := s.repo.Upsert(ctx, matchID, match); err != nil {
		s.logger.Warn().Err(err).Int64("match_id", matchID).Msg("failed to cache match")
	}

	s.logger.Info().Int64("match_id", matchID).Str("map", match.Map).Msg("match fetched successfully")
	return match, nil
}

// SearchMatch resolves a share code. Resolved codes are cached for good;
// codes whose demo is still being parsed are not cached at all.
func (s *MatchDetailService) SearchMatch(ctx context.Context, shareCode string, refresh bool) (*domain.MatchOutput, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	code, err := parse.ShareCode(shareCode)
	if err != nil {
		return nil, &scraper.ValidationError{Message: fmt.Sprintf("invalid share code: %q", shareCode), Err: err}
	}

	if !refresh {
		if match, err := s.repo.GetByShareCode(ctx, code); err == nil {
			s.logger.Info().Str("share_code", code).Msg("match found in cache")
			return match, nil
		}
	}

	match, err := s.scraper.SearchMatch(ctx, code)
	if err != nil {
		s.logger.Error().Err(err).Str("share_code", code).Msg("failed to search match")
		return nil, fmt.Errorf("failed to search match: %w", err)
	}
	if err := s.repo.UpsertShareCode(ctx, code, match); err != nil {
		s.logger.Warn().Err(err).Str("share_code", code).Msg("failed to cache match")
	}

	s.logger.Info().Str("share_code", code).Str("map", match.Map).Msg("match fetched successfully")
	return match, nil
}
