package fide

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/notnil/chess"

	"github.com/flor3z/fide-tracker/internal/storage"
)

const footnoteText = "rating difference of more than 400"

// tournamentBlock is one tournament's slice of a calculation table
type tournamentBlock struct {
	name         string
	date         string
	playerRating *int
	firstRow     int // index of the first game row
	games        []row
}

// ParseCalculations converts one month's rating calculation page into game
// records. A page without a calculation table yields no records and no
// error. Rows with unusable fields are dropped; structural problems are
// returned as *ParseError.
func ParseCalculations(markup string, month time.Time, playerID, playerName string) ([]storage.GameRecord, error) {
	month = storage.FirstOfMonth(month)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, &ParseError{Month: month, Reason: fmt.Sprintf("invalid markup: %v", err)}
	}

	table := doc.Find("table.calc_table").First()
	if table.Length() == 0 {
		return nil, nil
	}

	rows := dropFootnotes(tableRows(table))
	if !hasContent(rows) {
		return nil, nil
	}

	blocks, err := segment(rows)
	if err != nil {
		return nil, &ParseError{Month: month, Reason: err.Error()}
	}

	colors := iconColors(table)
	gameRows := 0
	for _, b := range blocks {
		gameRows += len(b.games)
	}
	if gameRows != len(colors) {
		return nil, &ParseError{
			Month:  month,
			Reason: fmt.Sprintf("%d game rows but %d colour icons", gameRows, len(colors)),
		}
	}

	var records []storage.GameRecord
	cursor := 0
	for _, b := range blocks {
		slog.Debug("Parsed tournament block", "month", month.Format("2006-01"), "tournament", b.name, "date", b.date, "games", len(b.games))
		for i, r := range b.games {
			color := colors[cursor]
			cursor++

			g, err := buildRecord(b, r, b.firstRow+i)
			if err != nil {
				slog.Debug("Dropping game row", "month", month.Format("2006-01"), "tournament", b.name, "error", err)
				continue
			}
			g.PlayerID = playerID
			g.PlayerName = playerName
			g.Date = month
			g.PlayerColor = color
			records = append(records, g)
		}
	}

	return records, nil
}

// dropFootnotes removes the footnote row and reindexes
func dropFootnotes(rows []row) []row {
	out := make([]row, 0, len(rows))
	for _, r := range rows {
		if strings.Contains(strings.ToLower(r.cell(0)), footnoteText) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func hasContent(rows []row) bool {
	for _, r := range rows {
		if !r.blank() {
			return true
		}
	}
	return false
}

// segment splits rows into tournament blocks using blank limiter rows. The
// header sits headerOffset rows above each limiter and the player's rating
// ratingOffset rows above it. Games run from the row after a limiter to
// headerOffset rows before the next limiter, or to the end of the table.
func segment(rows []row) ([]tournamentBlock, error) {
	var limiters []int
	for i, r := range rows {
		if r.blank() {
			limiters = append(limiters, i)
		}
	}
	if len(limiters) == 0 {
		return nil, errors.New("no separator rows in a non-empty table")
	}

	l := calculationLayout
	blocks := make([]tournamentBlock, 0, len(limiters))
	for k, lim := range limiters {
		if lim < headerOffset {
			return nil, fmt.Errorf("separator at row %d has no tournament header", lim)
		}
		header := rows[lim-headerOffset]
		ratings := rows[lim-ratingOffset]

		end := len(rows)
		if k+1 < len(limiters) {
			end = limiters[k+1] - headerOffset
		}
		start := lim + 1
		if end < start {
			end = start
		}

		blocks = append(blocks, tournamentBlock{
			name:         header.cell(l.TournamentName),
			date:         header.cell(l.TournamentDate),
			playerRating: digitsOnly(ratings.cell(l.PlayerRating)),
			firstRow:     start,
			games:        rows[start:end],
		})
	}
	return blocks, nil
}

// iconColors reads the colour icons of the table in document order
func iconColors(table *goquery.Selection) []chess.Color {
	var colors []chess.Color
	table.Find("img").Each(func(_ int, img *goquery.Selection) {
		src, _ := img.Attr("src")
		if !strings.Contains(src, "clr_") {
			return
		}
		if strings.Contains(src, "clr_wh") {
			colors = append(colors, chess.White)
		} else {
			colors = append(colors, chess.Black)
		}
	})
	return colors
}

func buildRecord(b tournamentBlock, r row, index int) (storage.GameRecord, error) {
	cells := calculationLayout.game(r)

	if b.name == "" {
		return storage.GameRecord{}, &MissingFieldError{Field: "tournament_name", Row: index}
	}
	if cells.OpponentName == "" {
		return storage.GameRecord{}, &MissingFieldError{Field: "opponent_name", Row: index}
	}
	result, ok := parseResult(cells.Result)
	if !ok {
		return storage.GameRecord{}, &MissingFieldError{Field: "result", Row: index}
	}

	return storage.GameRecord{
		TournamentName: b.name,
		Country:        cells.Country,
		PlayerRating:   b.playerRating,
		OpponentName:   cells.OpponentName,
		OpponentRating: digitsOnly(cells.OpponentRating),
		Result:         result,
		Chg:            cells.Chg,
		K:              cells.K,
		KChg:           cells.KChg,
	}, nil
}

func parseResult(s string) (storage.Result, bool) {
	s = strings.ReplaceAll(s, "½", ".5")
	if strings.HasPrefix(s, ".") {
		s = "0" + s
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	switch r := storage.Result(v); r {
	case storage.Win, storage.Draw, storage.Loss:
		return r, true
	}
	return 0, false
}
