package domain

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"
)

type BanType string

const (
	BanTypeNone      BanType = ""
	BanTypeVAC       BanType = "VAC"
	BanTypeOverwatch BanType = "OVERWATCH"
)

type MatchType string

const (
	MatchTypeCompetitive MatchType = "comp"
	MatchTypeScrimmage   MatchType = "scrimmage"
)

type PlayerFilters struct {
	MatchType MatchType `json:"matchType,omitempty"`
	Maps      []string  `json:"maps,omitempty"`
	StartDate time.Time `json:"startDate,omitempty"`
	EndDate   time.Time `json:"endDate,omitempty"`
}

type PlayedWithFilters struct {
	// nil leaves the upstream default (not banned only)
	Vac *bool `json:"vac,omitempty"`

	// page of 100 players, 0 is the first page
	Offset int `json:"offset,omitempty"`

	Mode      MatchType `json:"mode,omitempty"`
	StartDate time.Time `json:"startDate,omitempty"`
	EndDate   time.Time `json:"endDate,omitempty"`

	// descending sort column, upstream default "games"
	Order string `json:"order,omitempty"`

	// upstream default "csgo"
	Source string `json:"source,omitempty"`
}

type PlayerSummary struct {
	SteamID64       string     `json:"steamId64"`
	SteamProfileURL string     `json:"steamProfileUrl"`
	ESEAURL         string     `json:"eseaUrl,omitempty"`
	SteamPictureURL string     `json:"steamPictureUrl"`
	CurrentRank     Rank       `json:"currentRank,omitempty"`
	BestRank        Rank       `json:"bestRank,omitempty"`
	CompetitiveWins *int       `json:"competitiveWins,omitempty"`
	LastGameDate    *time.Time `json:"lastGameDate,omitempty"`
	BanType         BanType    `json:"banType,omitempty"`
	BanDate         *time.Time `json:"banDate,omitempty"`
}

// PlayerStats holds the profile aggregates. A nil field was not shown on
// the page, which is distinct from a real zero.
type PlayerStats struct {
	KillDeathRatio     *float64 `json:"killDeathRatio,omitempty"`
	HLTVRating         *float64 `json:"hltvRating,omitempty"`
	ClutchSuccessRate  *float64 `json:"clutchSuccessRate,omitempty"`
	WinRate            *float64 `json:"winRate,omitempty"`
	HeadshotRate       *float64 `json:"headshotRate,omitempty"`
	AverageDamageRound *float64 `json:"averageDamageRound,omitempty"`
	EntrySuccessRate   *float64 `json:"entrySuccessRate,omitempty"`
}

// GraphsRawDatum is one match point of the profile graphs, as emitted by the
// page script.
type GraphsRawDatum struct {
	K          float64 `json:"K"`
	D          float64 `json:"D"`
	HS         float64 `json:"HS"`
	Dmg        float64 `json:"dmg"`
	Rating     float64 `json:"rating"`
	Team1Score int     `json:"team1_score"`
	Team2Score int     `json:"team2_score"`
	Winner     int     `json:"winner"`
	Team       int     `json:"team"`
	Date       string  `json:"date"`
	ID         int64   `json:"id"`
	WR         float64 `json:"WR"`
	ClutchWon  int     `json:"1vX_won"`
	ClutchLost int     `json:"1vX_lost"`
	Clutches   int     `json:"1vX"`
	Rank       Rank    `json:"rank"`
}

type PlayerGraphs struct {
	RawData []GraphsRawDatum `json:"rawData"`
}

// PlayedWithRequest describes the follow-up played-with query for a player
// scoped to the filters the profile was fetched with.
type PlayedWithRequest struct {
	SteamID64 string            `json:"steamId64"`
	Filters   PlayedWithFilters `json:"filters"`
}

type PlayerOutput struct {
	Summary    PlayerSummary     `json:"summary"`
	Stats      *PlayerStats      `json:"stats,omitempty"`
	Graphs     *PlayerGraphs     `json:"graphs,omitempty"`
	PlayedWith PlayedWithRequest `json:"playedWith"`
}

// Stat is an upstream aggregate that may be sent as a string, a number or
// null. It keeps the textual form.
type Stat string

func (s *Stat) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = Stat(str)
		return nil
	}
	*s = Stat(data)
	return nil
}

func (s Stat) Float() float64 {
	f, err := strconv.ParseFloat(string(s), 64)
	if err != nil {
		return 0
	}
	return f
}

type PlayedWithStats struct {
	LastPlayed Stat `json:"last_played"`
	Games      Stat `json:"games"`
	Win        Stat `json:"win"`
	Lose       Stat `json:"lose"`
	Draw       Stat `json:"draw"`
	Rounds     Stat `json:"rounds"`
	K          Stat `json:"K"`
	D          Stat `json:"D"`
	A          Stat `json:"A"`
	Dmg        Stat `json:"dmg"`
	Rating     Stat `json:"rating"`
	HS         Stat `json:"HS"`
	FKT        Stat `json:"FK_T"`
	FKCT       Stat `json:"FK_CT"`
	FDT        Stat `json:"FD_T"`
	FDCT       Stat `json:"FD_CT"`
	K5         Stat `json:"5k"`
	K4         Stat `json:"4k"`
	K3         Stat `json:"3k"`
	K2         Stat `json:"2k"`
	K1         Stat `json:"1k"`
	V1         Stat `json:"1v1"`
	V2         Stat `json:"1v2"`
	V3         Stat `json:"1v3"`
	V4         Stat `json:"1v4"`
	V5         Stat `json:"1v5"`
	V1Lost     Stat `json:"1v1_lost"`
	V2Lost     Stat `json:"1v2_lost"`
	V3Lost     Stat `json:"1v3_lost"`
	V4Lost     Stat `json:"1v4_lost"`
	V5Lost     Stat `json:"1v5_lost"`
}

type PlayedWithPlayerDetails struct {
	Name       string `json:"name"`
	Avatar     string `json:"avatar"`
	IsBanned   Stat   `json:"is_banned"`
	VacBanned  Stat   `json:"vac_banned"`
	BannedDate Stat   `json:"banned_date"`
}

type PlayedWithPlayer struct {
	SteamID string                  `json:"steam_id"`
	Stats   PlayedWithStats         `json:"stats"`
	Vs      PlayedWithStats         `json:"vs"`
	Details PlayedWithPlayerDetails `json:"details"`
}

type PlayedWith struct {
	Players []PlayedWithPlayer `json:"players"`
	Vac     string             `json:"vac"`
	Offset  int                `json:"offset"`
}

// UnmarshalJSON accepts vac and offset both as strings and numbers.
func (p *PlayedWith) UnmarshalJSON(data []byte) error {
	var raw struct {
		Players []PlayedWithPlayer `json:"players"`
		Vac     Stat               `json:"vac"`
		Offset  Stat               `json:"offset"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	p.Players = raw.Players
	p.Vac = string(raw.Vac)
	p.Offset = int(raw.Offset.Float())
	return nil
}
