package scraper

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"csgostats-scraper/internal/api"
	"csgostats-scraper/internal/browser"
	"csgostats-scraper/internal/domain"
	"csgostats-scraper/internal/parse"

	"github.com/PuerkitoBio/goquery"
)

const (
	serviceIconSelector    = "#match-main > div > div.main-header > div.main-content > div:nth-child(1) > div > img"
	averageRankSelector    = `span > img[src^="` + parse.RankImagePrefix + `"]`
	mapSelector            = ".map-text"
	serverLocationSelector = ".server-loc-text"
	matchDateSelector      = ".match-date-text"
	watchURLSelector       = ".match-watch > a"
	watchDaysSelector      = ".match-watch-days"
	bannedSelector         = ".has-banned"
	matchRowSelector       = ".p-row"
)

var (
	watchDaysRegex = regexp.MustCompile(`\((\d+).*\)`)
	matchLinkRegex = regexp.MustCompile(`/match/(\d+)`)
)

func getMatch(ctx context.Context, e *env, matchID int64) (*domain.MatchOutput, error) {
	if matchID <= 0 {
		return nil, &ValidationError{Message: fmt.Sprintf("invalid match id: %d", matchID)}
	}

	return withSession(ctx, e, func(s browser.Session) (*domain.MatchOutput, error) {
		p, err := open(ctx, e, s, api.MatchURL(matchID))
		if err != nil {
			return nil, err
		}
		return readMatch(e, p)
	})
}

func readMatch(e *env, p *page) (*domain.MatchOutput, error) {
	doc := p.doc
	out := &domain.MatchOutput{}

	serviceIcon, ok := attr(doc.Find(serviceIconSelector), "src")
	if !ok {
		return nil, missing(serviceIconSelector)
	}
	out.MatchmakingService = parse.Service(serviceIcon)

	if icon, ok := attr(doc.Find(averageRankSelector), "src"); ok {
		out.AverageRank = parse.AverageRank(icon)
	}

	mapName, ok := text(doc.Find(mapSelector))
	if !ok {
		return nil, missing(mapSelector)
	}
	out.Map = mapName

	if loc, ok := text(doc.Find(serverLocationSelector)); ok {
		out.ServerLocation = loc
	}

	dateText, ok := text(doc.Find(matchDateSelector))
	if !ok {
		return nil, missing(matchDateSelector)
	}
	date, err := parse.Date(dateText, e.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to parse match date: %w", err)
	}
	out.Date = date

	if href, ok := attr(doc.Find(watchURLSelector), "href"); ok {
		out.WatchURL = p.resolve(href)
	}
	if days, ok := text(doc.Find(watchDaysSelector)); ok {
		if m := watchDaysRegex.FindStringSubmatch(days); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				out.DemoWatchDays = &n
			}
		}
	}

	out.HasBannedPlayer = doc.Find(bannedSelector).Length() > 0

	e.logger.Debug().
		Str("service", string(out.MatchmakingService)).
		Stringer("average_rank", out.AverageRank).
		Str("map", out.Map).
		Str("server", out.ServerLocation).
		Time("date", out.Date).
		Str("watch_url", out.WatchURL).
		Bool("has_banned", out.HasBannedPlayer).
		Msg("extracted match")

	return out, nil
}

func searchMatch(ctx context.Context, e *env, shareCode string) (*domain.MatchOutput, error) {
	code, err := parse.ShareCode(shareCode)
	if err != nil {
		return nil, &ValidationError{Message: fmt.Sprintf("invalid share code: %q", shareCode), Err: err}
	}

	matchID, err := withSession(ctx, e, func(s browser.Session) (int64, error) {
		if err := warmUp(ctx, e, s, api.Homepage); err != nil {
			return 0, err
		}

		body := api.UploadForm(code)
		e.logger.Debug().Str("body", body).Msg("uploading share code")
		resp, err := s.Fetch(ctx, browser.FetchRequest{
			Method: "POST",
			URL:    api.UploadURL,
			Header: map[string]string{"content-type": api.FormContentType},
			Body:   body,
		})
		if err != nil {
			return 0, err
		}
		if !resp.OK {
			return 0, fmt.Errorf("failed to find match: %s: %w", resp.StatusText,
				&HTTPStatusError{StatusCode: resp.Status, StatusText: resp.StatusText})
		}

		upload, err := api.Decode[api.UploadMatchResponse](resp.Body)
		if err != nil {
			return 0, err
		}
		e.logger.Debug().
			Str("status", upload.Status).
			Str("msg", upload.Data.Msg).
			Int64("queue_id", upload.Data.QueueID).
			Int64("demo_id", upload.Data.DemoID).
			Msg("upload match response")

		if upload.Data.Msg != api.UploadComplete {
			return 0, &NotReadyError{ShareCode: code, Status: upload.Data.Msg}
		}
		if upload.Data.DemoID <= 0 {
			return 0, fmt.Errorf("%w: upload of %s is %q without a demo_id (status %q, queue_id %d)",
				ErrUnexpectedResponse, code, upload.Data.Msg, upload.Status, upload.Data.QueueID)
		}
		return upload.Data.DemoID, nil
	})
	if err != nil {
		return nil, err
	}

	return getMatch(ctx, e, matchID)
}

func listLatestMatches(ctx context.Context, e *env) ([]domain.MatchSummary, error) {
	return withSession(ctx, e, func(s browser.Session) ([]domain.MatchSummary, error) {
		p, err := open(ctx, e, s, api.MatchList)
		if err != nil {
			return nil, err
		}

		now := e.now().UTC()
		rows := p.doc.Find(matchRowSelector)
		e.logger.Debug().Int("rows", rows.Length()).Msg("parsing match rows")

		summaries := make([]domain.MatchSummary, 0, rows.Length())
		rows.Each(func(i int, row *goquery.Selection) {
			summaries = append(summaries, readMatchRow(e, i, row, now))
		})
		return summaries, nil
	})
}

// readMatchRow never fails; unreadable fields are left at their zero value.
func readMatchRow(e *env, i int, row *goquery.Selection, now time.Time) domain.MatchSummary {
	summary := domain.MatchSummary{MatchID: rowMatchID(row)}
	if summary.MatchID == 0 {
		e.logger.Debug().Int("row", i).Msg("could not resolve match id")
	}

	cells := row.Children()
	icon, _ := attr(cells.Eq(0).Find("img"), "src")
	summary.MatchmakingService = parse.Service(icon)

	if rankIcon, ok := attr(cells.Eq(1).Find("img"), "src"); ok {
		summary.AverageRank = parse.AverageRank(rankIcon)
	}

	if dateText, ok := text(cells.Eq(2)); ok {
		date, err := parse.Date(dateText, now)
		if err != nil {
			e.logger.Debug().Err(err).Int("row", i).Msg("could not parse match date")
		} else {
			summary.Date = date
		}
	}
	return summary
}

// rowMatchID reads the id out of the row's click handler, or any other
// attribute linking to the match. 0 when none does.
func rowMatchID(row *goquery.Selection) int64 {
	candidates := []string{row.AttrOr("onclick", "")}
	if len(row.Nodes) > 0 {
		for _, a := range row.Nodes[0].Attr {
			if a.Key != "onclick" {
				candidates = append(candidates, a.Val)
			}
		}
	}
	for _, c := range candidates {
		if m := matchLinkRegex.FindStringSubmatch(c); m != nil {
			if id, err := strconv.ParseInt(m[1], 10, 64); err == nil {
				return id
			}
		}
	}
	return 0
}
