package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"csgostats-scraper/internal/domain"
	"csgostats-scraper/internal/middleware"
	"csgostats-scraper/internal/scraper"
	"csgostats-scraper/internal/service"

	"github.com/rs/zerolog"
)

const dateLayout = "2006-01-02"

type TrackerServer struct {
	playerSvc      *service.PlayerService
	matchSvc       *service.MatchService
	matchDetailSvc *service.MatchDetailService
	queue          func() int
}

// QueueSizer reports how many lookups wait for a browser slot.
type QueueSizer interface {
	QueueSize() int
}

func NewTrackerServer(playerSvc *service.PlayerService, matchSvc *service.MatchService, matchDetailSvc *service.MatchDetailService, queue QueueSizer) *TrackerServer {
	return &TrackerServer{playerSvc: playerSvc, matchSvc: matchSvc, matchDetailSvc: matchDetailSvc, queue: queue.QueueSize}
}

func (s *TrackerServer) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/players/search", s.SearchPlayer)
	mux.HandleFunc("GET /api/players/{id}", s.GetPlayer)
	mux.HandleFunc("GET /api/players", s.GetPlayers)
	mux.HandleFunc("GET /api/players/{id}/played-with", s.GetPlayedWith)
	mux.HandleFunc("GET /api/matches/latest", s.LatestMatches)
	mux.HandleFunc("GET /api/matches/{id}", s.GetMatch)
	mux.HandleFunc("POST /api/matches/search", s.SearchMatch)
	mux.HandleFunc("GET /api/health", s.Health)
}

func (s *TrackerServer) SearchPlayer(w http.ResponseWriter, r *http.Request) {
	filters, err := playerFilters(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	player, err := s.playerSvc.SearchPlayer(r.Context(), r.URL.Query().Get("q"), filters)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, player)
}

func (s *TrackerServer) GetPlayer(w http.ResponseWriter, r *http.Request) {
	filters, err := playerFilters(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	player, err := s.playerSvc.GetPlayer(r.Context(), r.PathValue("id"), filters, refresh(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, player)
}

// GetPlayers takes a comma separated ids list and answers in the same order.
func (s *TrackerServer) GetPlayers(w http.ResponseWriter, r *http.Request) {
	filters, err := playerFilters(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	players, err := s.playerSvc.GetPlayers(r.Context(), splitList(r.URL.Query().Get("ids")), filters, refresh(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"players": players})
}

func (s *TrackerServer) GetPlayedWith(w http.ResponseWriter, r *http.Request) {
	filters, err := playedWithFilters(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	playedWith, err := s.playerSvc.GetPlayedWith(r.Context(), r.PathValue("id"), filters, refresh(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, playedWith)
}

func (s *TrackerServer) LatestMatches(w http.ResponseWriter, r *http.Request) {
	matches, err := s.matchSvc.LatestMatches(r.Context(), refresh(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"matches": matches})
}

func (s *TrackerServer) GetMatch(w http.ResponseWriter, r *http.Request) {
	matchID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		s.writeError(w, r, &scraper.ValidationError{Message: fmt.Sprintf("invalid match id: %q", r.PathValue("id")), Err: err})
		return
	}
	match, err := s.matchDetailSvc.GetMatch(r.Context(), matchID, refresh(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, match)
}

type searchMatchRequest struct {
	ShareCode string `json:"shareCode"`
	Refresh   bool   `json:"refresh"`
}

// SearchMatch accepts the share code as a JSON body or as a form field.
func (s *TrackerServer) SearchMatch(w http.ResponseWriter, r *http.Request) {
	var req searchMatchRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, r, &scraper.ValidationError{Message: "invalid request body", Err: err})
			return
		}
	} else {
		req.ShareCode = r.FormValue("shareCode")
		req.Refresh = refresh(r)
	}

	match, err := s.matchDetailSvc.SearchMatch(r.Context(), req.ShareCode, req.Refresh)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, match)
}

func (s *TrackerServer) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]any{"status": "ok", "queued": s.queue()})
}

func (s *TrackerServer) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	logger := zerolog.Ctx(r.Context())
	if status >= http.StatusInternalServerError {
		logger.Error().Err(err).Int("status", status).Msg("request failed")
	} else {
		logger.Debug().Err(err).Int("status", status).Msg("request rejected")
	}

	body := map[string]string{"error": err.Error()}
	if id := middleware.GetRequestID(r.Context()); id != "" {
		body["requestId"] = id
	}
	writeJSON(w, r, status, body)
}

func statusFor(err error) int {
	var validationErr *scraper.ValidationError
	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest
	case errors.Is(err, scraper.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, scraper.ErrNotReady):
		return http.StatusConflict
	case errors.Is(err, scraper.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, scraper.ErrClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Int("status", status).Msg("failed to write response")
	}
}

func refresh(r *http.Request) bool {
	v, _ := strconv.ParseBool(r.FormValue("refresh"))
	return v
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func playerFilters(r *http.Request) (domain.PlayerFilters, error) {
	q := r.URL.Query()
	var filters domain.PlayerFilters
	var err error

	if filters.MatchType, err = matchType(q.Get("type")); err != nil {
		return filters, err
	}
	filters.Maps = splitList(q.Get("maps"))
	if filters.StartDate, err = date(q.Get("date_start")); err != nil {
		return filters, err
	}
	if filters.EndDate, err = date(q.Get("date_end")); err != nil {
		return filters, err
	}
	return filters, nil
}

func playedWithFilters(r *http.Request) (domain.PlayedWithFilters, error) {
	q := r.URL.Query()
	filters := domain.PlayedWithFilters{
		Order:  q.Get("order"),
		Source: q.Get("source"),
	}
	var err error

	if v := q.Get("vac"); v != "" {
		vac, err := strconv.ParseBool(v)
		if err != nil {
			return filters, &scraper.ValidationError{Message: fmt.Sprintf("invalid vac: %q", v), Err: err}
		}
		filters.Vac = &vac
	}
	if v := q.Get("offset"); v != "" {
		if filters.Offset, err = strconv.Atoi(v); err != nil {
			return filters, &scraper.ValidationError{Message: fmt.Sprintf("invalid offset: %q", v), Err: err}
		}
	}
	if filters.Mode, err = matchType(q.Get("mode")); err != nil {
		return filters, err
	}
	if filters.StartDate, err = date(q.Get("date_start")); err != nil {
		return filters, err
	}
	if filters.EndDate, err = date(q.Get("date_end")); err != nil {
		return filters, err
	}
	return filters, nil
}

func matchType(v string) (domain.MatchType, error) {
	switch t := domain.MatchType(v); t {
	case "", domain.MatchTypeCompetitive, domain.MatchTypeScrimmage:
		return t, nil
	default:
		return "", &scraper.ValidationError{Message: fmt.Sprintf("invalid match type: %q", v)}
	}
}

func date(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dateLayout, v)
	if err != nil {
		return time.Time{}, &scraper.ValidationError{Message: fmt.Sprintf("invalid date: %q", v), Err: err}
	}
	return t, nil
}
