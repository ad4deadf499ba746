package fide

import (
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// row holds the normalized cell texts of one table row, with colspans
// expanded so positions line up across rows.
type row []string

func (r row) blank() bool {
	for _, c := range r {
		if c != "" {
			return false
		}
	}
	return true
}

// column is a position in a calculation table row
type column int

// calcLayout names every position of the calculation table the parser reads.
// Nothing outside this file refers to raw column numbers.
type calcLayout struct {
	// header row, headerOffset rows above a limiter
	TournamentName column
	TournamentDate column

	// rating row, ratingOffset rows above a limiter
	PlayerRating column

	// game rows
	OpponentName   column
	OpponentRating column
	Country        column
	Result         column
	Chg            column
	K              column
	KChg           column
}

const (
	headerOffset = 3
	ratingOffset = 1
)

var calculationLayout = calcLayout{
	TournamentName: 0,
	TournamentDate: 7,
	PlayerRating:   1,
	OpponentName:   0,
	OpponentRating: 3,
	Country:        4,
	Result:         5,
	Chg:            7,
	K:              8,
	KChg:           9,
}

// cell returns the text at c, or "" when the row is shorter
func (r row) cell(c column) string {
	if int(c) < 0 || int(c) >= len(r) {
		return ""
	}
	return r[c]
}

// gameCells is a game row translated into named fields
type gameCells struct {
	OpponentName   string
	OpponentRating string
	Country        string
	Result         string
	Chg            string
	K              string
	KChg           string
}

func (l calcLayout) game(r row) gameCells {
	return gameCells{
		OpponentName:   r.cell(l.OpponentName),
		OpponentRating: r.cell(l.OpponentRating),
		Country:        r.cell(l.Country),
		Result:         r.cell(l.Result),
		Chg:            r.cell(l.Chg),
		K:              r.cell(l.K),
		KChg:           r.cell(l.KChg),
	}
}

// tableRows flattens a table into rows. Header rows (thead, or leading rows
// made only of th cells) are skipped; every row is padded to the widest.
func tableRows(table *goquery.Selection) []row {
	var rows []row
	width := 0
	inHeader := true

	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		if tr.ParentsFiltered("thead").Length() > 0 {
			return
		}
		cells := tr.ChildrenFiltered("td, th")
		if inHeader && cells.Length() > 0 && cells.Length() == tr.ChildrenFiltered("th").Length() {
			return
		}
		inHeader = false

		var r row
		cells.Each(func(_ int, c *goquery.Selection) {
			text := cleanText(c.Text())
			span := 1
			if v, ok := c.Attr("colspan"); ok {
				if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n > 1 {
					span = n
				}
			}
			for i := 0; i < span; i++ {
				r = append(r, text)
			}
		})
		if len(r) > width {
			width = len(r)
		}
		rows = append(rows, r)
	})

	for i := range rows {
		for len(rows[i]) < width {
			rows[i] = append(rows[i], "")
		}
	}
	return rows
}

// cleanText collapses whitespace, including non-breaking spaces
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// digitsOnly parses the digits of s as an int. It returns nil when s holds
// no digits.
func digitsOnly(s string) *int {
	var sb strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			sb.WriteRune(r)
		}
	}
	if sb.Len() == 0 {
		return nil
	}
	n, err := strconv.Atoi(sb.String())
	if err != nil {
		return nil
	}
	return &n
}
