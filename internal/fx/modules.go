package fx

import (
	"csgostats-scraper/internal/config"
	"csgostats-scraper/internal/database"
	"csgostats-scraper/internal/logger"
	"csgostats-scraper/internal/repository"
	"csgostats-scraper/internal/scraper"
	"csgostats-scraper/internal/server"
	"csgostats-scraper/internal/service"

	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

func ProvideScraper(cfg *config.Config, logger zerolog.Logger) (*scraper.Scraper, error) {
	return scraper.New(scraper.Options{
		Timeout:     cfg.ScraperTimeout,
		Concurrency: cfg.ScraperConcurrency,
		Backend:     cfg.BrowserBackend,
		RemoteURL:   cfg.BrowserRemoteURL,
		Headless:    cfg.BrowserHeadless,
		UserAgent:   cfg.BrowserUserAgent,
		Markup:      cfg.MarkupVersion,
		GraphSource: cfg.GraphSource,
		Logger:      logger,
	})
}

var Module = fx.Options(
	fx.Provide(logger.New),
	fx.Provide(config.Load),
	fx.Provide(database.New),
	// scraper
	fx.Provide(ProvideScraper),
	fx.Provide(func(s *scraper.Scraper) service.Scraper { return s }),
	fx.Provide(func(s *scraper.Scraper) server.QueueSizer { return s }),
	// repos
	fx.Provide(repository.NewPlayerRepository),
	fx.Provide(repository.NewMatchRepository),
	// svc
	fx.Provide(service.NewPlayerService),
	fx.Provide(service.NewMatchService),
	fx.Provide(service.NewMatchDetailService),
	// server
	fx.Provide(server.NewTrackerServer),
)
