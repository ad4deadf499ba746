package storage

import (
	"testing"
	"time"

	"github.com/notnil/chess"
)

func TestDedupeGamesFirstSeenWins(t *testing.T) {
	a := game(month(2022, 1), "So, Wesley", Draw)
	a.Chg = "first"
	b := a
	b.Chg = "second"
	c := game(month(2022, 1), "So, Wesley", Win)

	got := DedupeGames([]GameRecord{a, b, c})
	if len(got) != 2 {
		t.Fatalf("expected 2 games, got %d", len(got))
	}
	if got[0].Chg != "first" {
		t.Errorf("expected first-seen copy, got %s", got[0].Chg)
	}
}

func TestColorRoundTrip(t *testing.T) {
	for _, c := range []chess.Color{chess.White, chess.Black} {
		if got := ParseColor(ColorName(c)); got != c {
			t.Errorf("ParseColor(ColorName(%v)) = %v", c, got)
		}
	}
	if ParseColor("green") != chess.NoColor {
		t.Error("unknown colour should map to NoColor")
	}
}

func TestFirstOfMonth(t *testing.T) {
	got := FirstOfMonth(time.Date(2021, 8, 17, 13, 4, 0, 0, time.UTC))
	if !got.Equal(month(2021, 8)) {
		t.Errorf("FirstOfMonth = %s", got)
	}
}
