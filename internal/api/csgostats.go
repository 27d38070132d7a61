package api

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"csgostats-scraper/internal/domain"
)

const (
	Homepage  = "https://csgostats.gg"
	UploadURL = Homepage + "/match/upload/ajax"
	MatchList = Homepage + "/match"

	FormContentType = "application/x-www-form-urlencoded"
)

// UploadMatchResponse is the body returned by the share code upload endpoint.
type UploadMatchResponse struct {
	Status string          `json:"status"`
	Data   UploadMatchData `json:"data"`
	Error  int             `json:"error"`
}

type UploadMatchData struct {
	Msg       string `json:"msg"`
	Index     string `json:"index"`
	ShareCode string `json:"sharecode"`
	QueueID   int64  `json:"queue_id"`
	DemoID    int64  `json:"demo_id"`
	URL       string `json:"url"`
}

// UploadComplete is the message of a share code whose demo has been parsed.
const UploadComplete = "Complete"

func PlayerURL(steamID64 string, filters domain.PlayerFilters) string {
	u := fmt.Sprintf("%s/player/%s", Homepage, steamID64)
	params := url.Values{}
	setString(params, "type", string(filters.MatchType))
	if len(filters.Maps) > 0 {
		params.Set("maps", strings.Join(filters.Maps, ","))
	}
	setTime(params, "date_start", filters.StartDate)
	setTime(params, "date_end", filters.EndDate)
	return withQuery(u, params)
}

func PlayedWithURL(steamID64 string, filters domain.PlayedWithFilters) string {
	u := fmt.Sprintf("%s/player/%s/ajax/played-with", Homepage, steamID64)
	params := url.Values{}
	if filters.Vac != nil {
		params.Set("vac", boolToInt(*filters.Vac))
	}
	if filters.Offset > 0 {
		params.Set("offset", strconv.Itoa(filters.Offset))
	}
	setString(params, "mode", string(filters.Mode))
	setTime(params, "date_start", filters.StartDate)
	setTime(params, "date_end", filters.EndDate)
	setString(params, "order", filters.Order)
	setString(params, "source", filters.Source)
	return withQuery(u, params)
}

func MatchURL(matchID int64) string {
	return fmt.Sprintf("%s/match/%d", Homepage, matchID)
}

func UploadForm(shareCode string) string {
	form := url.Values{}
	form.Set("sharecode", shareCode)
	form.Set("index", "0")
	return form.Encode()
}

// PlayedWithFilters scopes a played-with query to the filters a profile was
// read with.
func PlayedWithFilters(filters domain.PlayerFilters) domain.PlayedWithFilters {
	return domain.PlayedWithFilters{
		Mode:      filters.MatchType,
		StartDate: filters.StartDate,
		EndDate:   filters.EndDate,
	}
}

func setString(params url.Values, key, value string) {
	if value != "" {
		params.Set(key, value)
	}
}

// dates are sent as unix milliseconds
func setTime(params url.Values, key string, t time.Time) {
	if !t.IsZero() {
		params.Set(key, strconv.FormatInt(t.UnixMilli(), 10))
	}
}

func boolToInt(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func withQuery(u string, params url.Values) string {
	if len(params) == 0 {
		return u
	}
	return u + "?" + params.Encode()
}
