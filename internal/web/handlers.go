package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/flor3z/fide-tracker/internal/fide"
	"github.com/flor3z/fide-tracker/internal/history"
	"github.com/flor3z/fide-tracker/internal/rating"
	"github.com/flor3z/fide-tracker/internal/stats"
	"github.com/flor3z/fide-tracker/internal/storage"
)

const monthParam = "2006-01"

type gameJSON struct {
	Date           string  `json:"date"`
	TournamentName string  `json:"tournament_name"`
	Country        string  `json:"country"`
	PlayerName     string  `json:"player_name"`
	PlayerRating   *int    `json:"player_rating"`
	PlayerColor    string  `json:"player_color"`
	OpponentName   string  `json:"opponent_name"`
	OpponentRating *int    `json:"opponent_rating"`
	Result         float64 `json:"result"`
	Chg            string  `json:"chg"`
	K              string  `json:"k"`
	KChg           string  `json:"k_chg"`
}

func toGameJSON(games []storage.GameRecord) []gameJSON {
	out := make([]gameJSON, 0, len(games))
	for _, g := range games {
		out = append(out, gameJSON{
			Date:           g.Date.Format(storage.MonthLayout),
			TournamentName: g.TournamentName,
			Country:        g.Country,
			PlayerName:     g.PlayerName,
			PlayerRating:   g.PlayerRating,
			PlayerColor:    storage.ColorName(g.PlayerColor),
			OpponentName:   g.OpponentName,
			OpponentRating: g.OpponentRating,
			Result:         float64(g.Result),
			Chg:            g.Chg,
			K:              g.K,
			KChg:           g.KChg,
		})
	}
	return out
}

type profileJSON struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Federation     string `json:"federation,omitempty"`
	BirthYear      string `json:"birth_year,omitempty"`
	Sex            string `json:"sex,omitempty"`
	Title          string `json:"title,omitempty"`
	StandardRating *int   `json:"standard_rating"`
	RapidRating    *int   `json:"rapid_rating"`
	BlitzRating    *int   `json:"blitz_rating"`
	WorldRank      *int   `json:"world_rank"`
	ProfilePhoto   string `json:"profile_photo,omitempty"`
	StoredGames    int    `json:"stored_games"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"status": "ok",
		"time":   s.now().Unix(),
	}
	if s.cache != nil {
		resp["cache"] = s.cache.Stats()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "missing query parameter q")
		return
	}

	hits, err := s.search.SearchPlayers(r.Context(), query)
	if err != nil {
		s.writeFailure(w, "search", err)
		return
	}
	if hits == nil {
		hits = []fide.PlayerHit{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"query":   query,
		"players": hits,
	})
}

func (s *Server) handlePlayer(w http.ResponseWriter, r *http.Request) {
	p, err := s.players.LoadPlayer(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeFailure(w, "load player", err)
		return
	}

	stored, err := s.store.CountGames(r.Context(), p.PlayerID)
	if err != nil {
		s.writeFailure(w, "count games", err)
		return
	}

	writeJSON(w, http.StatusOK, profileJSON{
		ID:             p.PlayerID,
		Name:           p.Name,
		Federation:     p.Federation,
		BirthYear:      p.BirthYear,
		Sex:            p.Sex,
		Title:          p.Title,
		StandardRating: p.StandardRating,
		RapidRating:    p.RapidRating,
		BlitzRating:    p.BlitzRating,
		WorldRank:      p.WorldRank,
		ProfilePhoto:   p.ProfilePhoto,
		StoredGames:    stored,
	})
}

func (s *Server) handleGames(w http.ResponseWriter, r *http.Request) {
	opts, err := filterOptions(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.withGames(w, r, func(p *storage.PlayerProfile, games []storage.GameRecord) interface{} {
		filtered := stats.Filter(games, opts)
		opponents := filtered.Opponents
		if opponents == nil {
			opponents = []string{}
		}
		return map[string]interface{}{
			"player_id": p.PlayerID,
			"games":     toGameJSON(filtered.Games),
			"opponents": opponents,
			"tally":     filtered.Tally,
		}
	})
}

func (s *Server) handleTournaments(w http.ResponseWriter, r *http.Request) {
	s.withGames(w, r, func(p *storage.PlayerProfile, games []storage.GameRecord) interface{} {
		summaries := rating.SummarizeTournaments(games)
		if summaries == nil {
			summaries = []rating.TournamentSummary{}
		}
		return map[string]interface{}{
			"player_id":   p.PlayerID,
			"tournaments": summaries,
		}
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.withGames(w, r, func(p *storage.PlayerProfile, games []storage.GameRecord) interface{} {
		return map[string]interface{}{
			"player_id": p.PlayerID,
			"games":     len(games),
			"results":   stats.Breakdown(games),
			"opponents": stats.OpponentAverages(games),
			"rating":    stats.RatingEvolution(games),
		}
	})
}

func (s *Server) handleDedupe(w http.ResponseWriter, r *http.Request) {
	removed, err := s.store.Deduplicate(r.Context())
	if err != nil {
		s.writeFailure(w, "deduplicate", err)
		return
	}
	slog.Info("Deduplicated game history", "removed", removed)
	writeJSON(w, http.StatusOK, map[string]interface{}{"removed": removed})
}

// withGames resolves the player and window, syncs it and renders the result
func (s *Server) withGames(w http.ResponseWriter, r *http.Request, render func(*storage.PlayerProfile, []storage.GameRecord) interface{}) {
	start, end, err := s.window(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	p, err := s.players.LoadPlayer(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeFailure(w, "load player", err)
		return
	}

	games, err := s.players.EnsureRange(r.Context(), p.PlayerID, p.Name, start, end)
	if err != nil {
		s.writeFailure(w, "sync history", err)
		return
	}

	writeJSON(w, http.StatusOK, render(p, games))
}

// window reads start and end as YYYY-MM, defaulting to the configured
// number of months up to now
func (s *Server) window(r *http.Request) (start, end time.Time, err error) {
	start, end = history.MonthsBack(s.now(), s.defaultMonths)

	q := r.URL.Query()
	if v := q.Get("start"); v != "" {
		if start, err = time.Parse(monthParam, v); err != nil {
			return start, end, fmt.Errorf("invalid start %q, expected YYYY-MM", v)
		}
	}
	if v := q.Get("end"); v != "" {
		if end, err = time.Parse(monthParam, v); err != nil {
			return start, end, fmt.Errorf("invalid end %q, expected YYYY-MM", v)
		}
	}
	if end.Before(start) {
		return start, end, fmt.Errorf("start %s is after end %s", start.Format(monthParam), end.Format(monthParam))
	}
	return start, end, nil
}

// filterOptions reads result=win,draw and opponent=... from the query
func filterOptions(r *http.Request) (stats.FilterOptions, error) {
	q := r.URL.Query()
	opts := stats.FilterOptions{OpponentContains: q.Get("opponent")}
	if raw := q.Get("result"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			res, ok := stats.ParseResult(part)
			if !ok {
				return opts, fmt.Errorf("invalid result %q", part)
			}
			opts.Results = append(opts.Results, res)
		}
	}
	return opts, nil
}

// writeFailure maps pipeline errors onto status codes
func (s *Server) writeFailure(w http.ResponseWriter, op string, err error) {
	var fetchErr *fide.FetchError
	var parseErr *fide.ParseError
	switch {
	case errors.As(err, &fetchErr) && fetchErr.StatusCode == http.StatusNotFound:
		writeError(w, http.StatusNotFound, "player not found")
	case errors.As(err, &fetchErr), errors.Is(err, context.DeadlineExceeded):
		slog.Warn("Upstream failure", "op", op, "error", err)
		writeError(w, http.StatusBadGateway, err.Error())
	case errors.As(err, &parseErr):
		slog.Warn("Unreadable page", "op", op, "error", err)
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		slog.Error("Request failed", "op", op, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
