package scraper

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"csgostats-scraper/internal/api"
	"csgostats-scraper/internal/browser"
	"csgostats-scraper/internal/domain"
	"csgostats-scraper/internal/parse"
)

const (
	searchInputSelector     = "#search-input"
	errorBannerSelector     = "div.alert.alert-danger"
	steamIconSelector       = ".steam-icon"
	eseaIconSelector        = ".esea-icon"
	avatarSelector          = `img[src*="steamcdn"][width="120"][height="120"], img[src*="steamstatic"][width="120"][height="120"]`
	competitiveWinsSelector = "#competitve-wins > span"
	lastGameSelector        = "#last-game"
	noMatchesSelector       = "#player-outer-section > div:nth-child(2) > div > span"

	killDeathSelector = "#kpd > span"
	ratingSelector    = "#rating > span"
	clutchSelector    = "#player-overview > div.stats-col-2 > div > div:nth-child(1) > div:nth-child(2) > div:nth-child(1) > span:nth-child(2)"
	winRateSelector   = "#player-overview > div.stats-col-1 > div:nth-child(4) > div > div:nth-child(2) > div:nth-child(2)"
	headshotSelector  = "#player-overview > div.stats-col-1 > div:nth-child(5) > div > div:nth-child(2) > div:nth-child(2)"
	damageSelector    = "#player-overview > div.stats-col-1 > div:nth-child(6) > div > div:nth-child(2) > div:nth-child(2)"
	entrySelector     = "#player-overview > div.stats-col-2 > div > div:nth-child(2) > div:nth-child(2) > div:nth-child(1) > span:nth-child(2)"
)

func getPlayer(ctx context.Context, e *env, anyID any, filters domain.PlayerFilters) (*domain.PlayerOutput, error) {
	steamID64, err := parse.SteamID64(anyID)
	if err != nil {
		return nil, &ValidationError{Message: fmt.Sprintf("invalid steam id: %v", anyID), Err: err}
	}

	return withSession(ctx, e, func(s browser.Session) (*domain.PlayerOutput, error) {
		p, err := open(ctx, e, s, api.PlayerURL(steamID64, filters))
		if err != nil {
			return nil, err
		}

		summary, err := readSummary(ctx, e, s, p, steamID64)
		if err != nil {
			return nil, err
		}
		out := &domain.PlayerOutput{
			Summary: *summary,
			PlayedWith: domain.PlayedWithRequest{
				SteamID64: steamID64,
				Filters:   api.PlayedWithFilters(filters),
			},
		}

		if msg, ok := text(p.doc.Find(noMatchesSelector)); ok && msg != "" {
			e.logger.Debug().Str("steam_id", steamID64).Str("message", msg).Msg("no matches for player")
			return out, nil
		}

		stats, err := readStats(p)
		if err != nil {
			return nil, err
		}
		e.logger.Debug().
			Str("steam_id", steamID64).
			Interface("stats", stats).
			Msg("extracted player stats")

		rawData, err := readRawData(ctx, e, s, p)
		if err != nil {
			return nil, err
		}
		e.logger.Debug().Str("steam_id", steamID64).Int("raw_data", len(rawData)).Msg("extracted player graphs")

		out.Stats = stats
		out.Graphs = &domain.PlayerGraphs{RawData: rawData}
		return out, nil
	})
}

func readSummary(ctx context.Context, e *env, s browser.Session, p *page, steamID64 string) (*domain.PlayerSummary, error) {
	summary := &domain.PlayerSummary{SteamID64: steamID64}

	profile, ok := attr(p.doc.Find(steamIconSelector).First().Parent(), "href")
	if !ok {
		return nil, missing(steamIconSelector)
	}
	summary.SteamProfileURL = p.resolve(profile)

	if esea, ok := attr(p.doc.Find(eseaIconSelector).First().Parent(), "href"); ok {
		summary.ESEAURL = p.resolve(esea)
	}

	avatar, ok := attr(p.doc.Find(avatarSelector), "src")
	if !ok {
		return nil, missing(avatarSelector)
	}
	summary.SteamPictureURL = p.resolve(avatar)

	current, best, err := markupFor(e.markup, p).ranks(ctx, s, p)
	if err != nil {
		return nil, err
	}
	if best < current {
		best = current
	}
	summary.CurrentRank = current
	summary.BestRank = best

	wins, ok, err := parse.Number(p.doc.Find(competitiveWinsSelector), parse.Int)
	if err != nil {
		return nil, fmt.Errorf("failed to parse competitive wins: %w", err)
	}
	if ok {
		n := int(wins)
		summary.CompetitiveWins = &n
	}

	now := e.now()
	lastGame := p.doc.Find(lastGameSelector).First()
	if lastGame.Length() > 0 {
		if t, ok := readDate(e, strings.TrimSpace(lastGame.Contents().First().Text()), now); ok {
			summary.LastGameDate = &t
		}
		if children := lastGame.Children(); children.Length() > 1 {
			// "VAC Banned 83 days ago." or "Overwatch Banned 97 days ago."
			banText := strings.TrimSpace(children.First().Text())
			summary.BanType = domain.BanTypeOverwatch
			if strings.HasPrefix(banText, "VAC") {
				summary.BanType = domain.BanTypeVAC
			}
			if t, ok := readDate(e, banText, now); ok {
				summary.BanDate = &t
			}
		}
	}

	e.logger.Debug().
		Str("steam_id", steamID64).
		Str("profile_url", summary.SteamProfileURL).
		Str("esea_url", summary.ESEAURL).
		Str("picture_url", summary.SteamPictureURL).
		Int("current_rank", int(summary.CurrentRank)).
		Int("best_rank", int(summary.BestRank)).
		Str("ban_type", string(summary.BanType)).
		Msg("extracted player summary")

	return summary, nil
}

// readDate treats an unreadable optional date as absent.
func readDate(e *env, text string, now time.Time) (time.Time, bool) {
	if text == "" {
		return time.Time{}, false
	}
	t, err := parse.Date(text, now)
	if err != nil {
		e.logger.Debug().Err(err).Str("text", text).Msg("ignoring unreadable date")
		return time.Time{}, false
	}
	return t, true
}

func readStats(p *page) (*domain.PlayerStats, error) {
	stats := &domain.PlayerStats{}
	fields := []struct {
		selector string
		parse    func(string) (float64, error)
		dst      **float64
	}{
		{killDeathSelector, parse.Float, &stats.KillDeathRatio},
		{ratingSelector, parse.Float, &stats.HLTVRating},
		{clutchSelector, parse.Percent, &stats.ClutchSuccessRate},
		{winRateSelector, parse.Percent, &stats.WinRate},
		{headshotSelector, parse.Percent, &stats.HeadshotRate},
		{damageSelector, parse.Int, &stats.AverageDamageRound},
		{entrySelector, parse.Percent, &stats.EntrySuccessRate},
	}
	for _, f := range fields {
		v, ok, err := parse.Number(p.doc.Find(f.selector), f.parse)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", f.selector, err)
		}
		if ok {
			*f.dst = &v
		}
	}
	return stats, nil
}

func searchPlayer(ctx context.Context, e *env, query string, filters domain.PlayerFilters) (*domain.PlayerOutput, error) {
	steamID64, err := withSession(ctx, e, func(s browser.Session) (string, error) {
		if _, err := open(ctx, e, s, api.Homepage); err != nil {
			return "", err
		}
		from, err := s.Location(ctx)
		if err != nil {
			return "", err
		}

		if err := s.Type(ctx, searchInputSelector, query); err != nil {
			return "", err
		}
		if err := s.PressEnter(ctx, searchInputSelector); err != nil {
			return "", err
		}
		e.logger.Debug().Str("query", query).Msg("waiting for location change")
		if err := s.WaitForLocationChange(ctx, from); err != nil {
			return "", err
		}

		doc, err := s.Document(ctx)
		if err != nil {
			return "", err
		}
		if msg, ok := text(doc.Find(errorBannerSelector)); ok && msg != "" {
			return "", &ValidationError{Message: msg}
		}

		loc, err := s.Location(ctx)
		if err != nil {
			return "", err
		}
		return lastPathSegment(loc)
	})
	if err != nil {
		return nil, err
	}

	e.logger.Debug().Str("query", query).Str("steam_id", steamID64).Msg("resolved search")
	return getPlayer(ctx, e, steamID64, filters)
}

func lastPathSegment(loc string) (string, error) {
	u, err := url.Parse(loc)
	if err != nil {
		return "", fmt.Errorf("failed to parse location %s: %w", loc, err)
	}
	segment := path.Base(strings.TrimSuffix(u.Path, "/"))
	if segment == "" || segment == "." || segment == "/" {
		return "", fmt.Errorf("no player id in location %s", loc)
	}
	return segment, nil
}

func getPlayedWith(ctx context.Context, e *env, anyID any, filters domain.PlayedWithFilters) (*domain.PlayedWith, error) {
	steamID64, err := parse.SteamID64(anyID)
	if err != nil {
		return nil, &ValidationError{Message: fmt.Sprintf("invalid steam id: %v", anyID), Err: err}
	}

	return withSession(ctx, e, func(s browser.Session) (*domain.PlayedWith, error) {
		if err := warmUp(ctx, e, s, api.Homepage); err != nil {
			return nil, err
		}

		target := api.PlayedWithURL(steamID64, filters)
		e.logger.Debug().Str("url", target).Msg("fetching played-with data")
		resp, err := s.Fetch(ctx, browser.FetchRequest{Method: "GET", URL: target})
		if err != nil {
			return nil, err
		}
		if !resp.OK {
			return nil, fmt.Errorf("failed to get played-with data: %s: %w", resp.StatusText,
				&HTTPStatusError{StatusCode: resp.Status, StatusText: resp.StatusText})
		}

		playedWith, err := api.Decode[domain.PlayedWith](resp.Body)
		if err != nil {
			return nil, err
		}
		e.logger.Debug().Str("steam_id", steamID64).Int("players", len(playedWith.Players)).Str("vac", playedWith.Vac).Msg("extracted played-with data")
		return playedWith, nil
	})
}
