// Package stats derives read-only figures from a player's game history.
package stats

import (
	"sort"
	"strings"
	"time"

	"github.com/notnil/chess"

	"github.com/flor3z/fide-tracker/internal/storage"
)

// Tally counts game outcomes
type Tally struct {
	Wins   int `json:"wins"`
	Draws  int `json:"draws"`
	Losses int `json:"losses"`
}

// Games is the number of games counted
func (t Tally) Games() int {
	return t.Wins + t.Draws + t.Losses
}

// Points is the score under the usual 1/0.5/0 scheme
func (t Tally) Points() float64 {
	return float64(t.Wins) + float64(t.Draws)/2
}

func (t *Tally) add(r storage.Result) {
	switch r {
	case storage.Win:
		t.Wins++
	case storage.Draw:
		t.Draws++
	default:
		t.Losses++
	}
}

// ResultBreakdown splits outcomes by the colour the player had
type ResultBreakdown struct {
	Overall Tally `json:"overall"`
	White   Tally `json:"white"`
	Black   Tally `json:"black"`
}

// Breakdown counts wins, draws and losses overall and per colour
func Breakdown(games []storage.GameRecord) ResultBreakdown {
	var b ResultBreakdown
	for _, g := range games {
		b.Overall.add(g.Result)
		switch g.PlayerColor {
		case chess.White:
			b.White.add(g.Result)
		case chess.Black:
			b.Black.add(g.Result)
		}
	}
	return b
}

// ColorAverages holds mean opponent ratings per result for one colour
type ColorAverages struct {
	Win  *float64 `json:"win,omitempty"`
	Draw *float64 `json:"draw,omitempty"`
	Loss *float64 `json:"loss,omitempty"`
}

// Averages is the mean opponent rating overall and per colour and result.
// Groups without a rated opponent are nil.
type Averages struct {
	Overall *float64      `json:"overall,omitempty"`
	White   ColorAverages `json:"white"`
	Black   ColorAverages `json:"black"`
}

type mean struct {
	sum   int
	count int
}

func (m *mean) add(v int) {
	m.sum += v
	m.count++
}

func (m mean) value() *float64 {
	if m.count == 0 {
		return nil
	}
	v := float64(m.sum) / float64(m.count)
	return &v
}

// OpponentAverages computes mean opponent ratings, skipping unrated opponents
func OpponentAverages(games []storage.GameRecord) Averages {
	var overall mean
	var perColor [2][3]mean // white, black x win, draw, loss

	for _, g := range games {
		if g.OpponentRating == nil {
			continue
		}
		overall.add(*g.OpponentRating)

		c := -1
		switch g.PlayerColor {
		case chess.White:
			c = 0
		case chess.Black:
			c = 1
		}
		if c < 0 {
			continue
		}
		r := 2
		switch g.Result {
		case storage.Win:
			r = 0
		case storage.Draw:
			r = 1
		}
		perColor[c][r].add(*g.OpponentRating)
	}

	colorAvg := func(m [3]mean) ColorAverages {
		return ColorAverages{Win: m[0].value(), Draw: m[1].value(), Loss: m[2].value()}
	}
	return Averages{
		Overall: overall.value(),
		White:   colorAvg(perColor[0]),
		Black:   colorAvg(perColor[1]),
	}
}

// RatingPoint is the player's rating in one rating period
type RatingPoint struct {
	Month  time.Time `json:"month"`
	Rating int       `json:"rating"`
}

// Evolution describes how the player's rating moved across a window
type Evolution struct {
	Points  []RatingPoint `json:"points"`
	Initial *int          `json:"initial,omitempty"`
	Final   *int          `json:"final,omitempty"`
	Delta   int           `json:"delta"`
}

// RatingEvolution lists the player's rating per month in ascending order.
// The first rated game of a month wins when tournaments disagree.
func RatingEvolution(games []storage.GameRecord) Evolution {
	byMonth := make(map[time.Time]int)
	for _, g := range games {
		if g.PlayerRating == nil {
			continue
		}
		m := storage.FirstOfMonth(g.Date)
		if _, ok := byMonth[m]; !ok {
			byMonth[m] = *g.PlayerRating
		}
	}

	var ev Evolution
	for m, r := range byMonth {
		ev.Points = append(ev.Points, RatingPoint{Month: m, Rating: r})
	}
	sort.Slice(ev.Points, func(i, j int) bool { return ev.Points[i].Month.Before(ev.Points[j].Month) })

	if n := len(ev.Points); n > 0 {
		first, last := ev.Points[0].Rating, ev.Points[n-1].Rating
		ev.Initial, ev.Final = &first, &last
		ev.Delta = last - first
	}
	return ev
}

// FilterOptions narrows a game list. Zero values match everything.
type FilterOptions struct {
	Results          []storage.Result
	OpponentContains string
}

// Filtered is the outcome of Filter
type Filtered struct {
	Games     []storage.GameRecord `json:"-"`
	Opponents []string             `json:"opponents"`
	Tally     Tally                `json:"tally"`
}

// Filter returns the games matching opts, with the distinct opponents
// matched and their combined tally
func Filter(games []storage.GameRecord, opts FilterOptions) Filtered {
	needle := strings.ToLower(strings.TrimSpace(opts.OpponentContains))

	var out Filtered
	seen := make(map[string]struct{})
	for _, g := range games {
		if len(opts.Results) > 0 && !containsResult(opts.Results, g.Result) {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(g.OpponentName), needle) {
			continue
		}
		out.Games = append(out.Games, g)
		out.Tally.add(g.Result)
		if _, ok := seen[g.OpponentName]; !ok {
			seen[g.OpponentName] = struct{}{}
			out.Opponents = append(out.Opponents, g.OpponentName)
		}
	}
	sort.Strings(out.Opponents)
	return out
}

func containsResult(results []storage.Result, r storage.Result) bool {
	for _, want := range results {
		if want == r {
			return true
		}
	}
	return false
}

// ParseResult maps a user-facing outcome name to a Result
func ParseResult(s string) (storage.Result, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "win", "w", "1":
		return storage.Win, true
	case "draw", "d", "0.5", "½":
		return storage.Draw, true
	case "loss", "l", "0":
		return storage.Loss, true
	default:
		return 0, false
	}
}
