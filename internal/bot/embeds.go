package bot

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/flor3z/fide-tracker/internal/fide"
	"github.com/flor3z/fide-tracker/internal/rating"
	"github.com/flor3z/fide-tracker/internal/stats"
	"github.com/flor3z/fide-tracker/internal/storage"
)

const (
	colorInfo    = 0x3498DB
	colorWin     = 0x2ECC71
	colorLoss    = 0xE74C3C
	colorNeutral = 0x95A5A6

	maxSearchHits   = 10
	maxHistoryLines = 10
	latestEvents    = 3
)

// searchEmbed lists search hits with their identifiers
func searchEmbed(query string, hits []fide.PlayerHit) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title: fmt.Sprintf("Players matching \"%s\"", query),
		Color: colorInfo,
	}
	if len(hits) == 0 {
		embed.Description = "No players found."
		return embed
	}

	var sb strings.Builder
	for idx, h := range hits {
		if idx == maxSearchHits {
			sb.WriteString(fmt.Sprintf("...and %d more", len(hits)-maxSearchHits))
			break
		}
		sb.WriteString(fmt.Sprintf("%d. **%s** (%s) `%s`\n", idx+1, h.Name, h.Title, h.ID))
	}
	embed.Description = sb.String()
	embed.Footer = &discordgo.MessageEmbedFooter{Text: "Use /profile fide_id:<id> for details"}
	return embed
}

// profileEmbed renders a stored profile
func profileEmbed(p *storage.PlayerProfile) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title: p.Name,
		URL:   "https://ratings.fide.com/profile/" + p.PlayerID,
		Color: colorInfo,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Standard", Value: optionalInt(p.StandardRating), Inline: true},
			{Name: "Rapid", Value: optionalInt(p.RapidRating), Inline: true},
			{Name: "Blitz", Value: optionalInt(p.BlitzRating), Inline: true},
			{Name: "Federation", Value: orDash(p.Federation), Inline: true},
			{Name: "Birth year", Value: orDash(p.BirthYear), Inline: true},
			{Name: "World rank", Value: optionalInt(p.WorldRank), Inline: true},
		},
		Footer: &discordgo.MessageEmbedFooter{Text: "FIDE ID: " + p.PlayerID},
	}
	if p.Title != "" {
		embed.Description = "**" + p.Title + "**"
	}
	if strings.HasPrefix(p.ProfilePhoto, "http") {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: p.ProfilePhoto}
	}
	return embed
}

// historyEmbed summarizes the window and lists the most recent games
func historyEmbed(p *storage.PlayerProfile, games []storage.GameRecord) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:  "Rating history",
		Author: &discordgo.MessageEmbedAuthor{Name: p.Name},
		Color:  colorInfo,
	}
	if len(games) == 0 {
		embed.Description = "No rated games found in this period."
		return embed
	}

	ev := stats.RatingEvolution(games)
	avg := stats.OpponentAverages(games)
	embed.Color = deltaColor(ev.Delta)
	embed.Fields = []*discordgo.MessageEmbedField{
		{Name: "Games", Value: strconv.Itoa(len(games)), Inline: true},
		{Name: "Avg opponent", Value: optionalFloat(avg.Overall), Inline: true},
		{Name: "Rating change", Value: signed(ev.Delta), Inline: true},
	}
	if ev.Initial != nil {
		embed.Description = fmt.Sprintf("%s to %s: %d → %d",
			ev.Points[0].Month.Format("Jan 2006"), ev.Points[len(ev.Points)-1].Month.Format("Jan 2006"), *ev.Initial, *ev.Final)
	}

	var sb strings.Builder
	recent := games
	if len(recent) > maxHistoryLines {
		recent = recent[len(recent)-maxHistoryLines:]
	}
	for idx := len(recent) - 1; idx >= 0; idx-- {
		g := recent[idx]
		sb.WriteString(fmt.Sprintf("`%s` %s %s vs %s (%s)\n",
			g.Date.Format("2006-01"), resultSymbol(g.Result), storage.ColorName(g.PlayerColor), g.OpponentName, optionalInt(g.OpponentRating)))
	}
	embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "Latest games", Value: sb.String()})
	return embed
}

// tournamentsEmbed shows the latest events with score and performance
func tournamentsEmbed(p *storage.PlayerProfile, games []storage.GameRecord) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:  "Latest tournaments",
		Author: &discordgo.MessageEmbedAuthor{Name: p.Name},
		Color:  colorInfo,
	}
	summaries := rating.Latest(rating.SummarizeTournaments(games), latestEvents)
	if len(summaries) == 0 {
		embed.Description = "No tournaments found in this period."
		return embed
	}

	for _, t := range summaries {
		value := fmt.Sprintf("Score **%s** | Avg opponent %s | Performance %s",
			t.Score(), optionalInt(t.OpponentsAvg), optionalInt(t.Performance))
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  fmt.Sprintf("%s (%s)", t.Name, t.Date.Format("Jan 2006")),
			Value: value,
		})
	}
	return embed
}

// statsEmbed shows results and opponent strength by colour
func statsEmbed(p *storage.PlayerProfile, games []storage.GameRecord) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:  "Game statistics",
		Author: &discordgo.MessageEmbedAuthor{Name: p.Name},
		Color:  colorNeutral,
	}
	if len(games) == 0 {
		embed.Description = "No rated games found in this period."
		return embed
	}

	b := stats.Breakdown(games)
	avg := stats.OpponentAverages(games)
	embed.Fields = []*discordgo.MessageEmbedField{
		{Name: "Overall", Value: formatTally(b.Overall), Inline: true},
		{Name: "As white", Value: formatTally(b.White), Inline: true},
		{Name: "As black", Value: formatTally(b.Black), Inline: true},
		{Name: "Avg opponent (white)", Value: formatColorAverages(avg.White), Inline: true},
		{Name: "Avg opponent (black)", Value: formatColorAverages(avg.Black), Inline: true},
	}
	return embed
}

func formatTally(t stats.Tally) string {
	if t.Games() == 0 {
		return "-"
	}
	return fmt.Sprintf("+%d =%d -%d\n%s/%d (%.0f%%)",
		t.Wins, t.Draws, t.Losses, strconv.FormatFloat(t.Points(), 'f', -1, 64), t.Games(), 100*t.Points()/float64(t.Games()))
}

func formatColorAverages(c stats.ColorAverages) string {
	return fmt.Sprintf("W %s\nD %s\nL %s", optionalFloat(c.Win), optionalFloat(c.Draw), optionalFloat(c.Loss))
}

func resultSymbol(r storage.Result) string {
	switch r {
	case storage.Win:
		return "W"
	case storage.Draw:
		return "D"
	default:
		return "L"
	}
}

func deltaColor(delta int) int {
	switch {
	case delta > 0:
		return colorWin
	case delta < 0:
		return colorLoss
	default:
		return colorInfo
	}
}

func signed(n int) string {
	if n > 0 {
		return "+" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}

func optionalInt(v *int) string {
	if v == nil {
		return "-"
	}
	return strconv.Itoa(*v)
}

func optionalFloat(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.0f", *v)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
