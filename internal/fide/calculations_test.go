package fide

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/notnil/chess"

	"github.com/flor3z/fide-tracker/internal/storage"
)

var march2021 = time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC)

type testGame struct {
	opponent string
	rating   string
	result   string
	icon     string // wh or bl
}

type testTournament struct {
	name   string
	date   string
	rating string
	games  []testGame
}

func cells(values ...string) string {
	var sb strings.Builder
	sb.WriteString("<tr>")
	for _, v := range values {
		sb.WriteString("<td>" + v + "</td>")
	}
	sb.WriteString("</tr>\n")
	return sb.String()
}

// calcPage renders a calculation table shaped like the rating site's
func calcPage(footnoteAfterFirst bool, tournaments ...testTournament) string {
	var sb strings.Builder
	sb.WriteString(`<html><body><div class="section-profile"><table class="calc_table">`)
	sb.WriteString("<thead><tr>" + strings.Repeat("<th></th>", 10) + "</tr></thead><tbody>\n")
	for i, t := range tournaments {
		sb.WriteString(fmt.Sprintf(`<tr><td colspan="7">%s</td><td>%s</td><td></td><td></td></tr>`+"\n", t.name, t.date))
		sb.WriteString(cells("", "Rc", "", "Ro", "", "w", "n", "chg", "K", "K*chg"))
		sb.WriteString(cells("2432", t.rating, "", "", "", "", "", "", "", ""))
		sb.WriteString(`<tr><td colspan="10">&nbsp;</td></tr>` + "\n")
		for _, g := range t.games {
			icon := fmt.Sprintf(`<img src="/imgs/clr_%s.gif">`, g.icon)
			sb.WriteString(cells(g.opponent, "GM", icon, g.rating, "NOR", g.result, "", "4.2", "10", "42.0"))
		}
		if i == 0 && footnoteAfterFirst {
			sb.WriteString(`<tr><td colspan="10">*  Rating difference of more than 400.</td></tr>` + "\n")
		}
	}
	sb.WriteString("</tbody></table></div></body></html>")
	return sb.String()
}

func twoTournaments() []testTournament {
	return []testTournament{
		{
			name: "Norway Chess 2021", date: "2021-03-10", rating: "2847",
			games: []testGame{
				{"Caruana, Fabiano", "2820", "1", "wh"},
				{"Ding, Liren", "2791", "0.5", "wh"},
				{"So, Wesley", "2770", "0", "bl"},
			},
		},
		{
			name: "Tata Steel Masters", date: "2021-03-28", rating: "2847",
			games: []testGame{
				{"Giri, Anish", "2764", "0.5", "bl"},
				{"Firouzja, Alireza", "2759", "1", "wh"},
			},
		},
	}
}

func TestParseCalculationsColorCursor(t *testing.T) {
	records, err := ParseCalculations(calcPage(true, twoTournaments()...), march2021, "1503014", "Carlsen, Magnus")
	if err != nil {
		t.Fatalf("ParseCalculations: %v", err)
	}
	if len(records) != 5 {
		t.Fatalf("expected 5 records, got %d", len(records))
	}

	wantColors := []chess.Color{chess.White, chess.White, chess.Black, chess.Black, chess.White}
	for i, r := range records {
		if r.PlayerColor != wantColors[i] {
			t.Errorf("record %d colour = %v, want %v", i, r.PlayerColor, wantColors[i])
		}
	}

	wantTournaments := []string{"Norway Chess 2021", "Norway Chess 2021", "Norway Chess 2021", "Tata Steel Masters", "Tata Steel Masters"}
	for i, r := range records {
		if r.TournamentName != wantTournaments[i] {
			t.Errorf("record %d tournament = %q, want %q", i, r.TournamentName, wantTournaments[i])
		}
	}
}

func TestParseCalculationsFields(t *testing.T) {
	records, err := ParseCalculations(calcPage(false, twoTournaments()...), time.Date(2021, 3, 17, 0, 0, 0, 0, time.UTC), "1503014", "Carlsen, Magnus")
	if err != nil {
		t.Fatalf("ParseCalculations: %v", err)
	}

	r := records[1]
	if r.PlayerID != "1503014" || r.PlayerName != "Carlsen, Magnus" {
		t.Errorf("unexpected player fields: %+v", r)
	}
	if !r.Date.Equal(march2021) {
		t.Errorf("date should be the first of the month, got %s", r.Date)
	}
	if r.OpponentName != "Ding, Liren" || r.OpponentRating == nil || *r.OpponentRating != 2791 {
		t.Errorf("unexpected opponent: %+v", r)
	}
	if r.Result != storage.Draw {
		t.Errorf("result = %v, want draw", r.Result)
	}
	if r.PlayerRating == nil || *r.PlayerRating != 2847 {
		t.Errorf("player rating = %v", r.PlayerRating)
	}
	if r.Country != "NOR" || r.Chg != "4.2" || r.K != "10" || r.KChg != "42.0" {
		t.Errorf("pass-through fields not kept verbatim: %+v", r)
	}
}

func TestParseCalculationsCoercion(t *testing.T) {
	tour := testTournament{
		name: "Club Open", date: "2021-03-05", rating: "2100",
		games: []testGame{
			{"Rated, Ann", "1950*", "1", "wh"},
			{"Unrated, Bob", "-", "0.5", "bl"},
			{"Broken, Cid", "1800", "x", "wh"},
			{"Last, Dee", "1700", "0", "bl"},
		},
	}

	records, err := ParseCalculations(calcPage(false, tour), march2021, "1", "Player")
	if err != nil {
		t.Fatalf("ParseCalculations: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected the malformed result row to be dropped, got %d records", len(records))
	}
	if records[0].OpponentRating == nil || *records[0].OpponentRating != 1950 {
		t.Errorf("expected 1950, got %v", records[0].OpponentRating)
	}
	if records[1].OpponentRating != nil {
		t.Errorf("non-numeric rating should be absent, got %d", *records[1].OpponentRating)
	}
	// the dropped row still consumed its icon
	if records[2].OpponentName != "Last, Dee" || records[2].PlayerColor != chess.Black {
		t.Errorf("colour misaligned after dropped row: %+v", records[2])
	}
}

func TestParseCalculationsNoTable(t *testing.T) {
	records, err := ParseCalculations("<html><body><p>No calculations</p></body></html>", march2021, "1", "Player")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(records) != 0 {
		t.Errorf("expected no records, got %d", len(records))
	}
}

func TestParseCalculationsEmptyTable(t *testing.T) {
	page := `<table class="calc_table"><thead><tr><th></th></tr></thead><tbody></tbody></table>`
	records, err := ParseCalculations(page, march2021, "1", "Player")
	if err != nil || len(records) != 0 {
		t.Errorf("expected empty result, got %d records, err %v", len(records), err)
	}
}

func TestParseCalculationsWithoutSeparators(t *testing.T) {
	page := `<table class="calc_table">` +
		cells("Some Open", "", "", "", "", "", "", "2021-03-01", "", "") +
		cells("Opponent", "", `<img src="clr_wh.gif">`, "2000", "", "1", "", "", "", "") +
		`</table>`

	_, err := ParseCalculations(page, march2021, "1", "Player")
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
}

func TestParseCalculationsIconMismatch(t *testing.T) {
	page := calcPage(false, twoTournaments()...)
	page = strings.Replace(page, `<img src="/imgs/clr_bl.gif">`, "", 1)

	_, err := ParseCalculations(page, march2021, "1", "Player")
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
	if !strings.Contains(perr.Error(), "2021-03") {
		t.Errorf("error should name the month: %v", perr)
	}
}

func TestParseCalculationsSeparatorWithoutHeader(t *testing.T) {
	page := `<table class="calc_table">` +
		`<tr><td colspan="10"></td></tr>` +
		cells("Opponent", "", `<img src="clr_wh.gif">`, "2000", "", "1", "", "", "", "") +
		`</table>`

	_, err := ParseCalculations(page, march2021, "1", "Player")
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
}

func TestParseResult(t *testing.T) {
	tests := []struct {
		in   string
		want storage.Result
		ok   bool
	}{
		{"1", storage.Win, true},
		{"1.00", storage.Win, true},
		{"0.5", storage.Draw, true},
		{"½", storage.Draw, true},
		{"0", storage.Loss, true},
		{"", 0, false},
		{"2", 0, false},
		{"+", 0, false},
	}
	for _, tt := range tests {
		got, ok := parseResult(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("parseResult(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestDigitsOnly(t *testing.T) {
	if v := digitsOnly(" 2,450 "); v == nil || *v != 2450 {
		t.Errorf("digitsOnly = %v", v)
	}
	if v := digitsOnly("Not rated"); v != nil {
		t.Errorf("expected nil, got %d", *v)
	}
}
