package history

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/flor3z/fide-tracker/internal/storage"
)

// Store is the subset of the repository the synchronizer needs
type Store interface {
	Coverage(ctx context.Context, playerID string) (storage.Coverage, bool, error)
	GamesInRange(ctx context.Context, playerID string, start, end time.Time) ([]storage.GameRecord, error)
	InsertGames(ctx context.Context, games []storage.GameRecord) (int, error)
	GetProfile(ctx context.Context, playerID string) (*storage.PlayerProfile, error)
	PutProfile(ctx context.Context, p *storage.PlayerProfile) error
}

// MonthSource returns the parsed games of one rating period
type MonthSource interface {
	FetchMonth(ctx context.Context, playerID, playerName string, month time.Time) ([]storage.GameRecord, error)
}

// ProfileSource returns a freshly scraped player profile
type ProfileSource interface {
	FetchProfile(ctx context.Context, playerID string) (*storage.PlayerProfile, error)
}

// Synchronizer keeps the store's monthly coverage in step with requests
type Synchronizer struct {
	store    Store
	months   MonthSource
	profiles ProfileSource

	// One logical writer
	mu sync.Mutex
}

// New creates a Synchronizer
func New(store Store, months MonthSource, profiles ProfileSource) *Synchronizer {
	return &Synchronizer{
		store:    store,
		months:   months,
		profiles: profiles,
	}
}

// EnsureRange makes sure the store holds every month of [start, end] outside
// the already covered envelope, then returns the stored games for the window.
// Months inside the stored min/max envelope are never refetched.
func (s *Synchronizer) EnsureRange(ctx context.Context, playerID, playerName string, start, end time.Time) ([]storage.GameRecord, error) {
	start, end = storage.FirstOfMonth(start), storage.FirstOfMonth(end)
	if end.Before(start) {
		return nil, fmt.Errorf("invalid range: %s is after %s", start.Format("2006-01"), end.Format("2006-01"))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cov, covered, err := s.store.Coverage(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to read coverage: %w", err)
	}

	for _, gap := range missingSpans(start, end, cov, covered) {
		slog.Info("Filling history gap", "player", playerID, "from", gap.from.Format("2006-01"), "to", gap.to.Format("2006-01"))
		if err := s.fill(ctx, playerID, playerName, gap); err != nil {
			return nil, err
		}
	}

	games, err := s.store.GamesInRange(ctx, playerID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to read games: %w", err)
	}
	return games, nil
}

// fill fetches a span month by month, committing each month on its own so a
// failure keeps what was already stored
func (s *Synchronizer) fill(ctx context.Context, playerID, playerName string, gap span) error {
	for _, month := range gap.months() {
		if err := ctx.Err(); err != nil {
			return err
		}

		games, err := s.months.FetchMonth(ctx, playerID, playerName, month)
		if err != nil {
			return fmt.Errorf("fetch %s for %s: %w", month.Format("2006-01"), playerID, err)
		}
		if len(games) == 0 {
			slog.Debug("No rated games", "player", playerID, "month", month.Format("2006-01"))
			continue
		}

		inserted, err := s.store.InsertGames(ctx, games)
		if err != nil {
			return fmt.Errorf("failed to store %s for %s: %w", month.Format("2006-01"), playerID, err)
		}
		slog.Debug("Stored games", "player", playerID, "month", month.Format("2006-01"), "count", inserted)
	}
	return nil
}

// LoadPlayer returns the stored profile, scraping and storing it first when
// the player is unknown. Stored profiles are never refreshed.
func (s *Synchronizer) LoadPlayer(ctx context.Context, playerID string) (*storage.PlayerProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.store.GetProfile(ctx, playerID)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("failed to read profile: %w", err)
	}

	fresh, err := s.profiles.FetchProfile(ctx, playerID)
	if err != nil {
		return nil, err
	}
	if err := s.store.PutProfile(ctx, fresh); err != nil {
		return nil, fmt.Errorf("failed to store profile: %w", err)
	}
	slog.Info("Stored new player", "player", playerID, "name", fresh.Name)

	return s.store.GetProfile(ctx, playerID)
}
