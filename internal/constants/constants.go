package constants

import "time"

const (
	PlayerCacheTTL     = 5 * time.Minute
	PlayedWithCacheTTL = 10 * time.Minute
	MatchCacheTTL      = 24 * time.Hour
	LatestCacheTTL     = 1 * time.Minute
)

const (
	ScraperTimeout      = 120 * time.Second
	ScraperConcurrency  = 10
	RawDataTimeout      = 30 * time.Second
	RawDataPollInterval = 100 * time.Millisecond
	MaxRedirects        = 10
)

const (
	ExternalAPITimeout = 10 * time.Second
	DatabaseTimeout    = 5 * time.Second
	RequestTimeout     = 3 * time.Minute
)

const (
	DBMaxOpenConns    = 100
	DBMaxIdleConns    = 10
	DBConnMaxLifetime = 1 * time.Hour
	DBMaxIdleTime     = 10 * time.Minute
)

const (
	ShutdownTimeout = 5 * time.Second
)

const (
	BatchPlayerLimit = 20
)
