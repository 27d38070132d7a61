package service

import (
	"context"
	"fmt"

	"csgostats-scraper/internal/constants"
	"csgostats-scraper/internal/domain"
	"csgostats-scraper/internal/repository"

	"github.com/rs/zerolog"
)

type MatchService struct {
	scraper Scraper
	repo    *repository.MatchRepository
	logger  zerolog.Logger
}

func NewMatchService(sc Scraper, repo *repository.MatchRepository, logger zerolog.Logger) *MatchService {
	return &MatchService{scraper: sc, repo: repo, logger: logger}
}

// LatestMatches lists the most recently parsed matches site wide.
func (s *MatchService) LatestMatches(ctx context.Context, refresh bool) ([]domain.MatchSummary, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	if !refresh {
		summaries, ok := fromCache(s.logger,
			func() (bool, error) { return s.repo.ShouldRefreshLatest(ctx, constants.LatestCacheTTL) },
			func() ([]domain.MatchSummary, error) { return s.repo.GetLatest(ctx) },
		)
		if ok {
			s.logger.Info().Int("count", len(summaries)).Msg("returning cached latest matches")
			return summaries, nil
		}
	}

	summaries, err := s.scraper.ListLatestMatches(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to fetch latest matches")
		return nil, fmt.Errorf("failed to fetch latest matches: %w", err)
	}
	if err := s.repo.UpsertLatest(ctx, summaries); err != nil {
		s.logger.Warn().Err(err).Msg("failed to cache latest matches")
	}

	s.logger.Info().Int("count", len(summaries)).Msg("latest matches fetched successfully")
	return summaries, nil
}
