package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

type MatchmakingService string

const (
	ServiceMM     MatchmakingService = "Official Matchmaking"
	ServiceFaceIt MatchmakingService = "FaceIt"
	ServiceESEA   MatchmakingService = "ESEA"
)

type MatchOutput struct {
	MatchmakingService MatchmakingService `json:"matchmakingService"`
	AverageRank        AverageRank        `json:"averageRank,omitempty"`
	Map                string             `json:"map"`
	ServerLocation     string             `json:"serverLocation,omitempty"`
	Date               time.Time          `json:"date"`
	WatchURL           string             `json:"watchUrl,omitempty"`
	DemoWatchDays      *int               `json:"demoWatchDays,omitempty"`
	HasBannedPlayer    bool               `json:"hasBannedPlayer"`
}

func (m *MatchOutput) UnmarshalJSON(data []byte) error {
	type plain MatchOutput
	var raw struct {
		plain
		AverageRank json.RawMessage `json:"averageRank,omitempty"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	rank, err := DecodeAverageRank(raw.MatchmakingService, raw.AverageRank)
	if err != nil {
		return err
	}
	*m = MatchOutput(raw.plain)
	m.AverageRank = rank
	return nil
}

type MatchSummary struct {
	MatchID            int64              `json:"matchId"`
	MatchmakingService MatchmakingService `json:"matchmakingService"`
	AverageRank        AverageRank        `json:"averageRank,omitempty"`
	Date               time.Time          `json:"date"`
}

func (m *MatchSummary) UnmarshalJSON(data []byte) error {
	type plain MatchSummary
	var raw struct {
		plain
		AverageRank json.RawMessage `json:"averageRank,omitempty"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	rank, err := DecodeAverageRank(raw.MatchmakingService, raw.AverageRank)
	if err != nil {
		return err
	}
	*m = MatchSummary(raw.plain)
	m.AverageRank = rank
	return nil
}

// DecodeAverageRank restores the rank scale of an encoded average rank from the
// service the match was played on.
func DecodeAverageRank(service MatchmakingService, data json.RawMessage) (AverageRank, error) {
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}
	switch service {
	case ServiceFaceIt:
		var r FaceItRank
		if err := json.Unmarshal(data, &r); err != nil {
			return nil, fmt.Errorf("failed to decode faceit rank: %w", err)
		}
		return r, nil
	case ServiceESEA:
		var r ESEARank
		if err := json.Unmarshal(data, &r); err != nil {
			return nil, fmt.Errorf("failed to decode esea rank: %w", err)
		}
		return r, nil
	default:
		var r Rank
		if err := json.Unmarshal(data, &r); err != nil {
			return nil, fmt.Errorf("failed to decode rank: %w", err)
		}
		return r, nil
	}
}
