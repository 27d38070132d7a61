package scraper

import (
	"context"
	"errors"
	"fmt"

	"csgostats-scraper/internal/browser"
	"csgostats-scraper/internal/domain"
	"csgostats-scraper/internal/parse"
)

// MarkupVersion selects how rank badges are read off a profile page.
type MarkupVersion string

const (
	// detect from the page
	MarkupAuto MarkupVersion = "auto"

	// rank images told apart by their size attributes
	MarkupLegacy MarkupVersion = "legacy"

	// list of badges, rank drawn as a css background image
	MarkupBadges MarkupVersion = "badges"
)

func ParseMarkupVersion(s string) (MarkupVersion, error) {
	switch v := MarkupVersion(s); v {
	case MarkupAuto, MarkupLegacy, MarkupBadges:
		return v, nil
	case "":
		return MarkupAuto, nil
	default:
		return "", fmt.Errorf("unknown markup version %q", s)
	}
}

const (
	currentRankSelector = `img[src^="` + parse.RankImagePrefix + `"][width="92"]`
	bestRankSelector    = `img[src^="` + parse.RankImagePrefix + `"][height="24"]`
	rankBadgeSelector   = `.player-ranks .rank-badge`
)

type profileMarkup interface {
	// ranks returns the current and best rank, 0 when unreadable.
	ranks(ctx context.Context, s browser.Session, p *page) (current, best domain.Rank, err error)
}

func markupFor(version MarkupVersion, p *page) profileMarkup {
	switch version {
	case MarkupLegacy:
		return legacyMarkup{}
	case MarkupBadges:
		return badgeMarkup{}
	default:
		if p.doc.Find(rankBadgeSelector).Length() > 0 {
			return badgeMarkup{}
		}
		return legacyMarkup{}
	}
}

type legacyMarkup struct{}

func (legacyMarkup) ranks(_ context.Context, _ browser.Session, p *page) (domain.Rank, domain.Rank, error) {
	var current, best domain.Rank
	if src, ok := attr(p.doc.Find(currentRankSelector), "src"); ok {
		current, _ = parse.RankFromURL(src)
	}
	if src, ok := attr(p.doc.Find(bestRankSelector), "src"); ok {
		best, _ = parse.RankFromURL(src)
	}
	return current, best, nil
}

type badgeMarkup struct{}

func (badgeMarkup) ranks(ctx context.Context, s browser.Session, p *page) (domain.Rank, domain.Rank, error) {
	current, err := badgeRank(ctx, s, 0)
	if err != nil {
		return 0, 0, err
	}
	best, err := badgeRank(ctx, s, 1)
	if err != nil {
		return 0, 0, err
	}
	return current, best, nil
}

func badgeRank(ctx context.Context, s browser.Session, index int) (domain.Rank, error) {
	bg, err := s.ComputedStyle(ctx, rankBadgeSelector, index, "background-image")
	if errors.Is(err, browser.ErrNoElement) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read rank badge %d: %w", index, err)
	}
	rank, _ := parse.RankFromBackgroundImage(bg)
	return rank, nil
}
