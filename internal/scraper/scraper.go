package scraper

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"csgostats-scraper/internal/browser"
	"csgostats-scraper/internal/constants"
	"csgostats-scraper/internal/domain"
	"csgostats-scraper/internal/gate"

	"github.com/rs/zerolog"
)

type Options struct {
	// per browser call timeout
	Timeout time.Duration

	// operations allowed to run at once, the rest wait in order
	Concurrency int

	Backend   browser.Backend
	RemoteURL string
	Headless  bool

	// Chrome flags applied over the defaults when a browser starts
	BrowserFlags map[string]any

	UserAgent   string
	Markup      MarkupVersion
	GraphSource GraphSource

	RawDataTimeout      time.Duration
	RawDataPollInterval time.Duration

	// zero value discards
	Logger zerolog.Logger

	// overrides Backend when set
	Sessions browser.Factory
}

// Scraper is the entry point for csgostats.gg lookups. All methods are safe
// for concurrent use.
type Scraper struct {
	env    *env
	gate   *gate.Gate
	closed atomic.Bool
	logger zerolog.Logger
}

func New(opts Options) (*Scraper, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = constants.ScraperTimeout
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = constants.ScraperConcurrency
	}
	if opts.RawDataTimeout <= 0 {
		opts.RawDataTimeout = constants.RawDataTimeout
	}
	if opts.RawDataPollInterval <= 0 {
		opts.RawDataPollInterval = constants.RawDataPollInterval
	}

	markup, err := ParseMarkupVersion(string(opts.Markup))
	if err != nil {
		return nil, err
	}
	graphSource, err := ParseGraphSource(string(opts.GraphSource))
	if err != nil {
		return nil, err
	}

	logger := opts.Logger.With().Str("component", "scraper").Logger()

	sessions := opts.Sessions
	if sessions == nil {
		sessions, err = browser.NewFactory(browser.Options{
			Backend:     opts.Backend,
			RemoteURL:   opts.RemoteURL,
			Headless:    opts.Headless,
			Flags:       opts.BrowserFlags,
			UserAgent:   opts.UserAgent,
			BlockImages: true,
			Timeout:     opts.Timeout,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create browser factory: %w", err)
		}
	}

	logger.Info().
		Str("backend", string(opts.Backend)).
		Int("concurrency", opts.Concurrency).
		Dur("timeout", opts.Timeout).
		Str("markup", string(markup)).
		Str("graph_source", string(graphSource)).
		Msg("scraper created")

	return &Scraper{
		env: &env{
			sessions:       sessions,
			markup:         markup,
			graphSource:    graphSource,
			rawDataTimeout: opts.RawDataTimeout,
			rawDataPoll:    opts.RawDataPollInterval,
			logger:         logger,
			now:            time.Now,
		},
		gate:   gate.New(opts.Concurrency, logger),
		logger: logger,
	}, nil
}

// submit runs op through the concurrency gate.
func submit[T any](ctx context.Context, s *Scraper, name string, op func(context.Context, *env) (T, error)) (T, error) {
	var zero T
	if s.closed.Load() {
		return zero, ErrClosed
	}
	return gate.Submit(ctx, s.gate, func(ctx context.Context) (T, error) {
		if s.closed.Load() {
			return zero, ErrClosed
		}
		start := time.Now()
		out, err := op(ctx, s.env)
		event := s.logger.Debug()
		if err != nil {
			event = s.logger.Warn().Err(err)
		}
		event.Str("op", name).Dur("elapsed", time.Since(start)).Msg("operation finished")
		return out, err
	})
}

// SearchPlayer looks a player up through the site's search box. The query
// can be anything the site resolves: a name, a Steam ID or a profile URL.
func (s *Scraper) SearchPlayer(ctx context.Context, query string, filters domain.PlayerFilters) (*domain.PlayerOutput, error) {
	return submit(ctx, s, "search_player", func(ctx context.Context, e *env) (*domain.PlayerOutput, error) {
		return searchPlayer(ctx, e, query, filters)
	})
}

// GetPlayer accepts a 64-bit Steam ID (string or integer), a 32-bit account
// id, a STEAM_X:Y:Z or [U:1:N] id, a steamcommunity.com profile URL or a
// steamid.SteamId.
func (s *Scraper) GetPlayer(ctx context.Context, id any, filters domain.PlayerFilters) (*domain.PlayerOutput, error) {
	return submit(ctx, s, "get_player", func(ctx context.Context, e *env) (*domain.PlayerOutput, error) {
		return getPlayer(ctx, e, id, filters)
	})
}

func (s *Scraper) GetPlayedWith(ctx context.Context, id any, filters domain.PlayedWithFilters) (*domain.PlayedWith, error) {
	return submit(ctx, s, "get_played_with", func(ctx context.Context, e *env) (*domain.PlayedWith, error) {
		return getPlayedWith(ctx, e, id, filters)
	})
}

// SearchMatch resolves a match share code. A code whose demo has not been
// parsed yet returns a *NotReadyError.
func (s *Scraper) SearchMatch(ctx context.Context, shareCode string) (*domain.MatchOutput, error) {
	return submit(ctx, s, "search_match", func(ctx context.Context, e *env) (*domain.MatchOutput, error) {
		return searchMatch(ctx, e, shareCode)
	})
}

func (s *Scraper) GetMatch(ctx context.Context, matchID int64) (*domain.MatchOutput, error) {
	return submit(ctx, s, "get_match", func(ctx context.Context, e *env) (*domain.MatchOutput, error) {
		return getMatch(ctx, e, matchID)
	})
}

func (s *Scraper) ListLatestMatches(ctx context.Context) ([]domain.MatchSummary, error) {
	return submit(ctx, s, "list_latest_matches", listLatestMatches)
}

// QueueSize is the number of calls waiting for a free slot.
func (s *Scraper) QueueSize() int {
	return s.gate.Queued()
}

// Shutdown releases the browser. The next call starts it again.
func (s *Scraper) Shutdown() error {
	s.logger.Info().Msg("shutting down browser")
	if err := s.env.sessions.Close(); err != nil {
		return fmt.Errorf("failed to shut down browser: %w", err)
	}
	return nil
}

// Close releases the browser for good. Later calls return ErrClosed.
func (s *Scraper) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	return s.Shutdown()
}
