package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/flor3z/fide-tracker/internal/fide"
	"github.com/flor3z/fide-tracker/internal/history"
	"github.com/flor3z/fide-tracker/internal/storage"
)

// commandTimeout bounds a whole command, gap fills included
const commandTimeout = 2 * time.Minute

var minMonths = 1.0

func fideIDOption() *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "fide_id",
		Description: "FIDE identifier (e.g., 1503014)",
		Required:    true,
	}
}

func monthsOption() *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionInteger,
		Name:        "months",
		Description: "How many rating periods to include, counting back from this month",
		Required:    false,
		MinValue:    &minMonths,
		MaxValue:    120,
	}
}

// Slash command definitions
func (b *Bot) getCommandDefinitions() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        "search",
			Description: "Search FIDE players by name",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "query",
					Description: "Player name (e.g., Carlsen)",
					Required:    true,
				},
			},
		},
		{
			Name:        "profile",
			Description: "Show a player's FIDE profile",
			Options:     []*discordgo.ApplicationCommandOption{fideIDOption()},
		},
		{
			Name:        "history",
			Description: "Show a player's rated games and rating evolution",
			Options:     []*discordgo.ApplicationCommandOption{fideIDOption(), monthsOption()},
		},
		{
			Name:        "tournaments",
			Description: "Show a player's latest tournaments with performance",
			Options:     []*discordgo.ApplicationCommandOption{fideIDOption(), monthsOption()},
		},
		{
			Name:        "stats",
			Description: "Show results by colour and opponent strength",
			Options:     []*discordgo.ApplicationCommandOption{fideIDOption(), monthsOption()},
		},
	}
}

// registerCommands registers all slash commands with Discord
func (b *Bot) registerCommands() error {
	slog.Info("Registering slash commands")

	commandDefinitions := b.getCommandDefinitions()
	registeredCommands := make([]*discordgo.ApplicationCommand, 0, len(commandDefinitions))

	for _, cmd := range commandDefinitions {
		registered, err := b.session.ApplicationCommandCreate(
			b.session.State.User.ID,
			"", // Empty string = global command
			cmd,
		)
		if err != nil {
			return fmt.Errorf("failed to register command %s: %w", cmd.Name, err)
		}
		registeredCommands = append(registeredCommands, registered)
		slog.Debug("Registered command", "name", cmd.Name)
	}

	b.commands = registeredCommands
	slog.Info("Slash commands registered", "count", len(registeredCommands))
	return nil
}

// removeCommands removes all registered slash commands
func (b *Bot) removeCommands() {
	for _, cmd := range b.commands {
		err := b.session.ApplicationCommandDelete(b.session.State.User.ID, "", cmd.ID)
		if err != nil {
			slog.Error("Failed to remove command", "name", cmd.Name, "error", err)
		}
	}
}

// handleSearch handles the /search command
func (b *Bot) handleSearch(s *discordgo.Session, i *discordgo.InteractionCreate) {
	query := i.ApplicationCommandData().Options[0].StringValue()

	// Respond immediately to avoid timeout
	deferResponse(s, i)

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	hits, err := b.search.SearchPlayers(ctx, query)
	if err != nil {
		slog.Error("Search failed", "query", query, "error", err)
		b.editResponse(s, i, userMessage(err))
		return
	}

	b.editEmbed(s, i, searchEmbed(query, hits))
}

// handleProfile handles the /profile command
func (b *Bot) handleProfile(s *discordgo.Session, i *discordgo.InteractionCreate) {
	playerID := strings.TrimSpace(i.ApplicationCommandData().Options[0].StringValue())

	deferResponse(s, i)

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	profile, err := b.players.LoadPlayer(ctx, playerID)
	if err != nil {
		slog.Error("Failed to load player", "playerID", playerID, "error", err)
		b.editResponse(s, i, userMessage(err))
		return
	}

	b.editEmbed(s, i, profileEmbed(profile))
}

// handleHistory handles the /history command
func (b *Bot) handleHistory(s *discordgo.Session, i *discordgo.InteractionCreate) {
	b.withGames(s, i, func(p *storage.PlayerProfile, games []storage.GameRecord) *discordgo.MessageEmbed {
		return historyEmbed(p, games)
	})
}

// handleTournaments handles the /tournaments command
func (b *Bot) handleTournaments(s *discordgo.Session, i *discordgo.InteractionCreate) {
	b.withGames(s, i, func(p *storage.PlayerProfile, games []storage.GameRecord) *discordgo.MessageEmbed {
		return tournamentsEmbed(p, games)
	})
}

// handleStats handles the /stats command
func (b *Bot) handleStats(s *discordgo.Session, i *discordgo.InteractionCreate) {
	b.withGames(s, i, func(p *storage.PlayerProfile, games []storage.GameRecord) *discordgo.MessageEmbed {
		return statsEmbed(p, games)
	})
}

// withGames loads the player, brings the requested window up to date and
// renders it
func (b *Bot) withGames(s *discordgo.Session, i *discordgo.InteractionCreate, render func(*storage.PlayerProfile, []storage.GameRecord) *discordgo.MessageEmbed) {
	playerID, months := b.gameOptions(i.ApplicationCommandData().Options)

	deferResponse(s, i)

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	profile, err := b.players.LoadPlayer(ctx, playerID)
	if err != nil {
		slog.Error("Failed to load player", "playerID", playerID, "error", err)
		b.editResponse(s, i, userMessage(err))
		return
	}

	start, end := history.MonthsBack(time.Now(), months)
	games, err := b.players.EnsureRange(ctx, profile.PlayerID, profile.Name, start, end)
	if err != nil {
		slog.Error("Failed to sync history", "playerID", playerID, "error", err)
		b.editResponse(s, i, userMessage(err))
		return
	}

	b.editEmbed(s, i, render(profile, games))
}

func (b *Bot) gameOptions(options []*discordgo.ApplicationCommandInteractionDataOption) (playerID string, months int) {
	months = b.config.DefaultHistoryMonths
	for _, opt := range options {
		switch opt.Name {
		case "fide_id":
			playerID = strings.TrimSpace(opt.StringValue())
		case "months":
			months = int(opt.IntValue())
		}
	}
	return playerID, months
}

// userMessage turns pipeline failures into something a user can act on
func userMessage(err error) string {
	var fetchErr *fide.FetchError
	var parseErr *fide.ParseError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "The rating site took too long to answer. Please try again."
	case errors.As(err, &fetchErr):
		if fetchErr.StatusCode == 404 {
			return "No FIDE player was found with that identifier."
		}
		return "Could not reach the FIDE rating site. Please try again later."
	case errors.As(err, &parseErr):
		return "The FIDE page could not be read. Its layout may have changed."
	default:
		return "Something went wrong. Please try again."
	}
}

// Helper functions

func deferResponse(s *discordgo.Session, i *discordgo.InteractionCreate) {
	s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	})
}

func (b *Bot) editResponse(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{
		Content: &content,
	})
}

func (b *Bot) editEmbed(s *discordgo.Session, i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed) {
	embeds := []*discordgo.MessageEmbed{embed}
	if _, err := s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{
		Embeds: &embeds,
	}); err != nil {
		slog.Error("Failed to send response", "error", err)
	}
}
