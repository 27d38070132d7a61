package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

var ErrNotCached = errors.New("snapshot not cached")

type Kind string

const (
	KindPlayer        Kind = "player"
	KindPlayedWith    Kind = "played_with"
	KindMatch         Kind = "match"
	KindShareCode     Kind = "share_code"
	KindLatestMatches Kind = "latest_matches"
)

// snapshotStore keeps the last scraped result per kind and cache key as JSON.
type snapshotStore struct {
	db     *sql.DB
	logger zerolog.Logger
}

type snapshot struct {
	id        string
	payload   []byte
	fetchedAt time.Time
}

func (s *snapshotStore) get(ctx context.Context, kind Kind, key string) (*snapshot, error) {
	var snap snapshot
	err := s.db.QueryRowContext(ctx,
		`SELECT id, payload, fetched_at FROM snapshots WHERE kind = ? AND cache_key = ?`,
		kind, key,
	).Scan(&snap.id, &snap.payload, &snap.fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s %s", ErrNotCached, kind, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s snapshot: %w", kind, err)
	}
	return &snap, nil
}

func (s *snapshotStore) upsert(ctx context.Context, kind Kind, key string, payload []byte, fetchedAt time.Time) error {
	id, err := gonanoid.New()
	if err != nil {
		return fmt.Errorf("failed to generate snapshot id: %w", err)
	}
	now := time.Now().UTC()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO snapshots (id, kind, cache_key, payload, fetched_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (kind, cache_key) DO UPDATE SET
			payload = excluded.payload,
			fetched_at = excluded.fetched_at,
			updated_at = excluded.updated_at`,
		id, kind, key, payload, fetchedAt.UTC(), now, now,
	)
	if err != nil {
		s.logger.Error().Err(err).Str("kind", string(kind)).Str("key", key).Msg("failed to upsert snapshot")
		return fmt.Errorf("failed to upsert %s snapshot: %w", kind, err)
	}

	s.logger.Debug().Str("kind", string(kind)).Str("key", key).Int("bytes", len(payload)).Msg("snapshot stored")
	return nil
}

func (s *snapshotStore) shouldRefresh(ctx context.Context, kind Kind, key string, ttl time.Duration) (bool, error) {
	var fetchedAt time.Time
	err := s.db.QueryRowContext(ctx,
		`SELECT fetched_at FROM snapshots WHERE kind = ? AND cache_key = ?`,
		kind, key,
	).Scan(&fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		s.logger.Debug().Str("kind", string(kind)).Str("key", key).Msg("snapshot not found, should refresh")
		return true, nil
	}
	if err != nil {
		s.logger.Error().Err(err).Str("kind", string(kind)).Str("key", key).Msg("failed to get snapshot")
		return false, err
	}

	timeSince := time.Since(fetchedAt)
	shouldRefresh := timeSince > ttl
	s.logger.Debug().
		Str("kind", string(kind)).
		Str("key", key).
		Time("fetched_at", fetchedAt).
		Dur("time_since", timeSince).
		Dur("ttl", ttl).
		Bool("should_refresh", shouldRefresh).
		Msg("checking if snapshot should refresh")

	return shouldRefresh, nil
}

func load[T any](ctx context.Context, s *snapshotStore, kind Kind, key string) (*T, error) {
	snap, err := s.get(ctx, kind, key)
	if err != nil {
		return nil, err
	}
	var v T
	if err := json.Unmarshal(snap.payload, &v); err != nil {
		return nil, fmt.Errorf("failed to decode %s snapshot %s: %w", kind, snap.id, err)
	}
	return &v, nil
}

func save[T any](ctx context.Context, s *snapshotStore, kind Kind, key string, v T) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s snapshot: %w", kind, err)
	}
	return s.upsert(ctx, kind, key, payload, time.Now())
}
