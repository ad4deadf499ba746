package storage

import (
	"strings"
	"time"

	"github.com/notnil/chess"
)

// MonthLayout is how game dates are persisted
const MonthLayout = "2006-01-02"

// Result is the player's score in a single game
type Result float64

const (
	Loss Result = 0
	Draw Result = 0.5
	Win  Result = 1
)

// GameRecord represents one rated game from a monthly calculation page
type GameRecord struct {
	ID             int64
	PlayerID       string
	Date           time.Time // first day of the rating period
	TournamentName string
	Country        string
	PlayerName     string
	PlayerRating   *int // rating for the whole tournament block
	PlayerColor    chess.Color
	OpponentName   string
	OpponentRating *int // nil when the source value was not a number
	Result         Result
	Chg            string
	K              string
	KChg           string
}

// NaturalKey identifies a game independently of its storage ID
type NaturalKey struct {
	Date           string
	TournamentName string
	PlayerName     string
	OpponentName   string
	Result         Result
}

// Key returns the record's natural key
func (g GameRecord) Key() NaturalKey {
	return NaturalKey{
		Date:           g.Date.Format(MonthLayout),
		TournamentName: g.TournamentName,
		PlayerName:     g.PlayerName,
		OpponentName:   g.OpponentName,
		Result:         g.Result,
	}
}

// DedupeGames collapses records sharing a natural key, keeping the first seen
func DedupeGames(games []GameRecord) []GameRecord {
	seen := make(map[NaturalKey]struct{}, len(games))
	out := make([]GameRecord, 0, len(games))
	for _, g := range games {
		k := g.Key()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, g)
	}
	return out
}

// PlayerProfile is a cached snapshot of a player's public profile.
// Ratings and world rank are never refreshed once stored.
type PlayerProfile struct {
	PlayerID       string
	Name           string
	Federation     string
	BirthYear      string
	Sex            string
	Title          string
	StandardRating *int
	RapidRating    *int
	BlitzRating    *int
	ProfilePhoto   string // data URI or image URL
	WorldRank      *int
	CreatedAt      time.Time
}

// Coverage is the stored [min, max] month envelope for a player
type Coverage struct {
	Min time.Time
	Max time.Time
}

// ColorName returns the persisted name for a player colour
func ColorName(c chess.Color) string {
	switch c {
	case chess.White:
		return "white"
	case chess.Black:
		return "black"
	default:
		return ""
	}
}

// ParseColor is the inverse of ColorName
func ParseColor(s string) chess.Color {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "white":
		return chess.White
	case "black":
		return chess.Black
	default:
		return chess.NoColor
	}
}

// FirstOfMonth truncates t to the first day of its month in UTC
func FirstOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
