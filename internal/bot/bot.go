package bot

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/flor3z/fide-tracker/internal/config"
	"github.com/flor3z/fide-tracker/internal/fide"
	"github.com/flor3z/fide-tracker/internal/storage"
)

// Players is what the bot needs from the history layer
type Players interface {
	LoadPlayer(ctx context.Context, playerID string) (*storage.PlayerProfile, error)
	EnsureRange(ctx context.Context, playerID, playerName string, start, end time.Time) ([]storage.GameRecord, error)
}

// Searcher looks players up by name
type Searcher interface {
	SearchPlayers(ctx context.Context, query string) ([]fide.PlayerHit, error)
}

// Bot represents the Discord bot instance
type Bot struct {
	config   *config.Config
	session  *discordgo.Session
	players  Players
	search   Searcher
	commands []*discordgo.ApplicationCommand
}

// New creates a new Bot instance
func New(cfg *config.Config, players Players, search Searcher) (*Bot, error) {
	// Create Discord session
	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Discord session: %w", err)
	}

	// Set intents
	session.Identify.Intents = discordgo.IntentsGuilds

	b := &Bot{
		config:  cfg,
		session: session,
		players: players,
		search:  search,
	}

	// Register command handlers
	b.registerHandlers()

	return b, nil
}

// Start opens the Discord connection and registers commands
func (b *Bot) Start(ctx context.Context) error {
	// Open Discord connection
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("failed to open Discord connection: %w", err)
	}

	slog.Info("Connected to Discord", "user", b.session.State.User.Username)

	// Register slash commands
	if err := b.registerCommands(); err != nil {
		return fmt.Errorf("failed to register commands: %w", err)
	}

	return nil
}

// Stop gracefully shuts down the bot
func (b *Bot) Stop() error {
	if b.config.RemoveCommandsOnExit {
		b.removeCommands()
	}

	// Close Discord session
	if b.session != nil {
		return b.session.Close()
	}

	return nil
}

// registerHandlers sets up Discord event handlers
func (b *Bot) registerHandlers() {
	b.session.AddHandler(b.handleInteraction)
	b.session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		slog.Info("Bot is ready", "guilds", len(r.Guilds))
	})
}

// handleInteraction processes slash command interactions
func (b *Bot) handleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	data := i.ApplicationCommandData()
	slog.Debug("Received command", "command", data.Name, "guild", i.GuildID)

	switch data.Name {
	case "search":
		b.handleSearch(s, i)
	case "profile":
		b.handleProfile(s, i)
	case "history":
		b.handleHistory(s, i)
	case "tournaments":
		b.handleTournaments(s, i)
	case "stats":
		b.handleStats(s, i)
	default:
		slog.Warn("Unknown command", "command", data.Name)
	}
}
