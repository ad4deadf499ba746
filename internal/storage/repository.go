package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a profile is not stored
var ErrNotFound = errors.New("not found")

// Driver selects the SQL backend
type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

// Repository handles all database operations
type Repository struct {
	db     *sqlx.DB
	driver Driver
}

// NewRepository opens the store. For SQLite dsn is a file path, for
// Postgres a connection URL.
func NewRepository(driver Driver, dsn string) (*Repository, error) {
	switch driver {
	case DriverSQLite:
		// Ensure directory exists
		dir := filepath.Dir(dsn)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	case DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported database driver: %q", driver)
	}

	db, err := sqlx.Open(string(driver), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Single writer, single file
	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	repo := &Repository{db: db, driver: driver}

	// Run migrations
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

// Close closes the database connection
func (r *Repository) Close() error {
	return r.db.Close()
}

// migrate creates the database schema
func (r *Repository) migrate() error {
	idColumn := "id INTEGER PRIMARY KEY AUTOINCREMENT"
	floatType := "REAL"
	if r.driver == DriverPostgres {
		idColumn = "id BIGSERIAL PRIMARY KEY"
		floatType = "DOUBLE PRECISION"
	}

	migrations := []string{
		`CREATE TABLE IF NOT EXISTS player_data (
			player_id VARCHAR(20) PRIMARY KEY,
			name TEXT NOT NULL,
			federation TEXT NOT NULL DEFAULT '',
			birth_year VARCHAR(10) NOT NULL DEFAULT '',
			sex VARCHAR(10) NOT NULL DEFAULT '',
			title VARCHAR(50) NOT NULL DEFAULT '',
			std_rating INTEGER,
			rapid_rating INTEGER,
			blitz_rating INTEGER,
			profile_photo TEXT NOT NULL DEFAULT '',
			world_rank INTEGER,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS game_history (
			` + idColumn + `,
			player_id VARCHAR(20) NOT NULL,
			date VARCHAR(10) NOT NULL,
			tournament_name TEXT NOT NULL,
			country TEXT NOT NULL DEFAULT '',
			player_name TEXT NOT NULL,
			player_rating INTEGER,
			player_color VARCHAR(5) NOT NULL,
			opponent_name TEXT NOT NULL,
			opponent_rating INTEGER,
			result ` + floatType + ` NOT NULL,
			chg TEXT NOT NULL DEFAULT '',
			k TEXT NOT NULL DEFAULT '',
			k_chg TEXT NOT NULL DEFAULT '',
			FOREIGN KEY (player_id) REFERENCES player_data(player_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_game_history_player_date ON game_history(player_id, date)`,
	}

	for _, migration := range migrations {
		if _, err := r.db.Exec(migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	return nil
}

// rebind rewrites ? placeholders into the driver's syntax
func (r *Repository) rebind(query string) string {
	return sqlx.Rebind(sqlx.BindType(string(r.driver)), query)
}

// Profile operations

// PutProfile stores a profile unless one already exists for the player
func (r *Repository) PutProfile(ctx context.Context, p *PlayerProfile) error {
	_, err := r.db.ExecContext(ctx, r.rebind(
		`INSERT INTO player_data (player_id, name, federation, birth_year, sex, title,
			std_rating, rapid_rating, blitz_rating, profile_photo, world_rank)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (player_id) DO NOTHING`),
		p.PlayerID, p.Name, p.Federation, p.BirthYear, p.Sex, p.Title,
		nullInt(p.StandardRating), nullInt(p.RapidRating), nullInt(p.BlitzRating),
		p.ProfilePhoto, nullInt(p.WorldRank),
	)
	if err != nil {
		return fmt.Errorf("failed to store profile %s: %w", p.PlayerID, err)
	}
	return nil
}

// GetProfile finds a profile by player ID
func (r *Repository) GetProfile(ctx context.Context, playerID string) (*PlayerProfile, error) {
	p := &PlayerProfile{}
	var std, rapid, blitz, rank sql.NullInt64
	err := r.db.QueryRowContext(ctx, r.rebind(
		`SELECT player_id, name, federation, birth_year, sex, title,
			std_rating, rapid_rating, blitz_rating, profile_photo, world_rank, created_at
		 FROM player_data WHERE player_id = ?`),
		playerID,
	).Scan(&p.PlayerID, &p.Name, &p.Federation, &p.BirthYear, &p.Sex, &p.Title,
		&std, &rapid, &blitz, &p.ProfilePhoto, &rank, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	p.StandardRating = intPtr(std)
	p.RapidRating = intPtr(rapid)
	p.BlitzRating = intPtr(blitz)
	p.WorldRank = intPtr(rank)
	return p, nil
}

// Game operations

// InsertGames stores a batch of games in one transaction. Duplicates inside
// the batch are collapsed first; the number of inserted rows is returned.
func (r *Repository) InsertGames(ctx context.Context, games []GameRecord) (int, error) {
	games = DedupeGames(games)
	if len(games) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, r.rebind(
		`INSERT INTO game_history (player_id, date, tournament_name, country, player_name,
			player_rating, player_color, opponent_name, opponent_rating, result, chg, k, k_chg)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`))
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	for _, g := range games {
		_, err := stmt.ExecContext(ctx,
			g.PlayerID, FirstOfMonth(g.Date).Format(MonthLayout), g.TournamentName, g.Country, g.PlayerName,
			nullInt(g.PlayerRating), ColorName(g.PlayerColor), g.OpponentName, nullInt(g.OpponentRating),
			float64(g.Result), g.Chg, g.K, g.KChg,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to insert game vs %s: %w", g.OpponentName, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(games), nil
}

// GamesInRange returns a player's games with dates in [start, end]
func (r *Repository) GamesInRange(ctx context.Context, playerID string, start, end time.Time) ([]GameRecord, error) {
	rows, err := r.db.QueryContext(ctx, r.rebind(
		`SELECT id, player_id, date, tournament_name, country, player_name, player_rating,
			player_color, opponent_name, opponent_rating, result, chg, k, k_chg
		 FROM game_history
		 WHERE player_id = ? AND date BETWEEN ? AND ?
		 ORDER BY date, id`),
		playerID, FirstOfMonth(start).Format(MonthLayout), FirstOfMonth(end).Format(MonthLayout),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var games []GameRecord
	for rows.Next() {
		var (
			g                    GameRecord
			date, color          string
			playerRating, oppRtg sql.NullInt64
			result               float64
		)
		if err := rows.Scan(&g.ID, &g.PlayerID, &date, &g.TournamentName, &g.Country, &g.PlayerName,
			&playerRating, &color, &g.OpponentName, &oppRtg, &result, &g.Chg, &g.K, &g.KChg); err != nil {
			return nil, err
		}
		g.Date, err = time.Parse(MonthLayout, date)
		if err != nil {
			return nil, fmt.Errorf("bad stored date %q: %w", date, err)
		}
		g.PlayerRating = intPtr(playerRating)
		g.OpponentRating = intPtr(oppRtg)
		g.PlayerColor = ParseColor(color)
		g.Result = Result(result)
		games = append(games, g)
	}

	return games, rows.Err()
}

// Coverage returns the stored month envelope for a player. ok is false
// when the player has no stored games.
func (r *Repository) Coverage(ctx context.Context, playerID string) (cov Coverage, ok bool, err error) {
	var minDate, maxDate sql.NullString
	err = r.db.QueryRowContext(ctx, r.rebind(
		`SELECT MIN(date), MAX(date) FROM game_history WHERE player_id = ?`),
		playerID,
	).Scan(&minDate, &maxDate)
	if err != nil {
		return Coverage{}, false, err
	}
	if !minDate.Valid || !maxDate.Valid {
		return Coverage{}, false, nil
	}

	if cov.Min, err = time.Parse(MonthLayout, minDate.String); err != nil {
		return Coverage{}, false, fmt.Errorf("bad stored date %q: %w", minDate.String, err)
	}
	if cov.Max, err = time.Parse(MonthLayout, maxDate.String); err != nil {
		return Coverage{}, false, fmt.Errorf("bad stored date %q: %w", maxDate.String, err)
	}
	return cov, true, nil
}

// CountGames returns how many games are stored for a player
func (r *Repository) CountGames(ctx context.Context, playerID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, r.rebind(
		`SELECT COUNT(*) FROM game_history WHERE player_id = ?`), playerID,
	).Scan(&n)
	return n, err
}

// Deduplicate removes every game sharing a natural key with a game of
// lower ID and returns how many rows were deleted.
func (r *Repository) Deduplicate(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM game_history
		 WHERE id IN (
			SELECT id FROM (
				SELECT id, ROW_NUMBER() OVER (
					PARTITION BY date, tournament_name, player_name, opponent_name, result
					ORDER BY id
				) AS rn
				FROM game_history
			) ranked
			WHERE rn > 1
		 )`)
	if err != nil {
		return 0, fmt.Errorf("failed to remove duplicate games: %w", err)
	}
	return result.RowsAffected()
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}
