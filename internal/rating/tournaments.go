package rating

import (
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/flor3z/fide-tracker/internal/storage"
)

// TournamentSummary aggregates a player's games in one event
type TournamentSummary struct {
	Name         string    `json:"name"`
	Date         time.Time `json:"date"`
	Games        int       `json:"games"`
	Points       float64   `json:"points"`
	Wins         int       `json:"wins"`
	Draws        int       `json:"draws"`
	Losses       int       `json:"losses"`
	PlayerRating *int      `json:"player_rating,omitempty"`
	RatedGames   int       `json:"rated_games"` // opponent figures only count rated opponents
	OpponentsAvg *int      `json:"opponents_avg,omitempty"`
	RatingSum    int       `json:"rating_sum"`
	Performance  *int      `json:"performance,omitempty"`
}

// Score formats points over games, e.g. "6/7" or "4.5/7"
func (s TournamentSummary) Score() string {
	return strconv.FormatFloat(s.Points, 'f', -1, 64) + "/" + strconv.Itoa(s.Games)
}

type tournamentKey struct {
	name string
	date time.Time
}

// SummarizeTournaments groups games by tournament and rating period, most
// recent first.
func SummarizeTournaments(games []storage.GameRecord) []TournamentSummary {
	index := make(map[tournamentKey]int)
	var out []TournamentSummary

	// rated-only tallies feed the performance estimate
	type ratedTally struct {
		points       float64
		wins, losses int
	}
	var tallies []ratedTally

	for _, g := range games {
		key := tournamentKey{name: g.TournamentName, date: storage.FirstOfMonth(g.Date)}
		i, ok := index[key]
		if !ok {
			i = len(out)
			index[key] = i
			out = append(out, TournamentSummary{Name: key.name, Date: key.date, PlayerRating: g.PlayerRating})
			tallies = append(tallies, ratedTally{})
		}

		s := &out[i]
		s.Games++
		s.Points += float64(g.Result)
		switch g.Result {
		case storage.Win:
			s.Wins++
		case storage.Loss:
			s.Losses++
		default:
			s.Draws++
		}

		if g.OpponentRating != nil {
			s.RatedGames++
			s.RatingSum += *g.OpponentRating
			t := &tallies[i]
			t.points += float64(g.Result)
			switch g.Result {
			case storage.Win:
				t.wins++
			case storage.Loss:
				t.losses++
			}
		}
	}

	for i := range out {
		s := &out[i]
		if s.RatedGames == 0 {
			continue
		}
		avg := int(math.Round(float64(s.RatingSum) / float64(s.RatedGames)))
		t := tallies[i]
		perf := EstimatePerformance(s.RatedGames, t.points, avg, s.RatingSum, t.wins, t.losses)
		s.OpponentsAvg = &avg
		s.Performance = &perf
	}

	sort.SliceStable(out, func(a, b int) bool {
		if !out[a].Date.Equal(out[b].Date) {
			return out[a].Date.After(out[b].Date)
		}
		return out[a].Name < out[b].Name
	})
	return out
}

// Latest returns at most n summaries from an already sorted slice
func Latest(summaries []TournamentSummary, n int) []TournamentSummary {
	if n < 0 {
		n = 0
	}
	if len(summaries) > n {
		return summaries[:n]
	}
	return summaries
}
