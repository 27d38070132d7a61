package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"csgostats-scraper/internal/browser"
	"csgostats-scraper/internal/constants"
	"csgostats-scraper/internal/logger"
	"csgostats-scraper/internal/scraper"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

type Config struct {
	ScraperTimeout     time.Duration
	ScraperConcurrency int
	BrowserBackend     browser.Backend
	BrowserRemoteURL   string
	BrowserHeadless    bool
	BrowserUserAgent   string
	MarkupVersion      scraper.MarkupVersion
	GraphSource        scraper.GraphSource
	DBPath             string
	ServerPort         string
	LogLevel           string
	CacheTTL           time.Duration
}

func Load(log zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg(".env file not found, using environment variables or defaults")
	}

	var err error
	cfg := &Config{
		BrowserRemoteURL: getEnv("BROWSER_REMOTE_URL", ""),
		BrowserUserAgent: getEnv("BROWSER_USER_AGENT", ""),
		DBPath:           getEnv("DB_PATH", "csgostats.db"),
		ServerPort:       getEnv("SERVER_PORT", "8080"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
	}

	if cfg.ScraperTimeout, err = getDuration("SCRAPER_TIMEOUT", constants.ScraperTimeout); err != nil {
		return nil, err
	}
	if cfg.CacheTTL, err = getDuration("CACHE_TTL", constants.PlayerCacheTTL); err != nil {
		return nil, err
	}
	if cfg.ScraperConcurrency, err = getInt("SCRAPER_CONCURRENCY", constants.ScraperConcurrency); err != nil {
		return nil, err
	}
	if cfg.BrowserHeadless, err = getBool("BROWSER_HEADLESS", true); err != nil {
		return nil, err
	}
	if cfg.BrowserBackend, err = browser.ParseBackend(getEnv("BROWSER_BACKEND", string(browser.BackendLocal))); err != nil {
		return nil, fmt.Errorf("invalid BROWSER_BACKEND: %w", err)
	}
	if cfg.MarkupVersion, err = scraper.ParseMarkupVersion(getEnv("MARKUP_VERSION", string(scraper.MarkupAuto))); err != nil {
		return nil, fmt.Errorf("invalid MARKUP_VERSION: %w", err)
	}
	if cfg.GraphSource, err = scraper.ParseGraphSource(getEnv("GRAPH_SOURCE", string(scraper.GraphSourceAuto))); err != nil {
		return nil, fmt.Errorf("invalid GRAPH_SOURCE: %w", err)
	}

	if cfg.BrowserBackend == browser.BackendRemote && cfg.BrowserRemoteURL == "" {
		return nil, fmt.Errorf("BROWSER_REMOTE_URL is required for the remote browser backend")
	}
	if cfg.ScraperConcurrency < 1 {
		return nil, fmt.Errorf("SCRAPER_CONCURRENCY must be at least 1, got %d", cfg.ScraperConcurrency)
	}

	if err := logger.ApplyLevel(cfg.LogLevel); err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	log.Info().
		Str("db_path", cfg.DBPath).
		Str("server_port", cfg.ServerPort).
		Str("log_level", cfg.LogLevel).
		Dur("cache_ttl", cfg.CacheTTL).
		Str("browser_backend", string(cfg.BrowserBackend)).
		Bool("browser_headless", cfg.BrowserHeadless).
		Int("scraper_concurrency", cfg.ScraperConcurrency).
		Dur("scraper_timeout", cfg.ScraperTimeout).
		Str("markup_version", string(cfg.MarkupVersion)).
		Str("graph_source", string(cfg.GraphSource)).
		Msg("configuration loaded")

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

var Module = fx.Provide(Load)
