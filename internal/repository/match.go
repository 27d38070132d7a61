package repository

import (
	"context"
	"database/sql"
	"time"

	"csgostats-scraper/internal/api"
	"csgostats-scraper/internal/domain"

	"github.com/rs/zerolog"
)

type MatchRepository struct {
	store *snapshotStore
}

func NewMatchRepository(sqlDB *sql.DB, logger zerolog.Logger) *MatchRepository {
	return &MatchRepository{
		store: &snapshotStore{db: sqlDB, logger: logger},
	}
}

func (r *MatchRepository) Get(ctx context.Context, matchID int64) (*domain.MatchOutput, error) {
	return load[domain.MatchOutput](ctx, r.store, KindMatch, api.MatchURL(matchID))
}

func (r *MatchRepository) Upsert(ctx context.Context, matchID int64, match *domain.MatchOutput) error {
	return save(ctx, r.store, KindMatch, api.MatchURL(matchID), match)
}

func (r *MatchRepository) ShouldRefresh(ctx context.Context, matchID int64, ttl time.Duration) (bool, error) {
	return r.store.shouldRefresh(ctx, KindMatch, api.MatchURL(matchID), ttl)
}

// GetByShareCode returns a match previously resolved from a share code.
func (r *MatchRepository) GetByShareCode(ctx context.Context, shareCode string) (*domain.MatchOutput, error) {
	return load[domain.MatchOutput](ctx, r.store, KindShareCode, shareCode)
}

func (r *MatchRepository) UpsertShareCode(ctx context.Context, shareCode string, match *domain.MatchOutput) error {
	return save(ctx, r.store, KindShareCode, shareCode, match)
}

func (r *MatchRepository) GetLatest(ctx context.Context) ([]domain.MatchSummary, error) {
	summaries, err := load[[]domain.MatchSummary](ctx, r.store, KindLatestMatches, api.MatchList)
	if err != nil {
		return nil, err
	}
	return *summaries, nil
}

func (r *MatchRepository) UpsertLatest(ctx context.Context, summaries []domain.MatchSummary) error {
	return save(ctx, r.store, KindLatestMatches, api.MatchList, summaries)
}

func (r *MatchRepository) ShouldRefreshLatest(ctx context.Context, ttl time.Duration) (bool, error) {
	return r.store.shouldRefresh(ctx, KindLatestMatches, api.MatchList, ttl)
}
