package web

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/flor3z/fide-tracker/internal/fide"
	"github.com/flor3z/fide-tracker/internal/storage"
)

// Players is what the API needs from the history layer
type Players interface {
	LoadPlayer(ctx context.Context, playerID string) (*storage.PlayerProfile, error)
	EnsureRange(ctx context.Context, playerID, playerName string, start, end time.Time) ([]storage.GameRecord, error)
}

// Searcher looks players up by name
type Searcher interface {
	SearchPlayers(ctx context.Context, query string) ([]fide.PlayerHit, error)
}

// Maintainer runs store housekeeping and bookkeeping queries
type Maintainer interface {
	Deduplicate(ctx context.Context) (int64, error)
	CountGames(ctx context.Context, playerID string) (int, error)
}

// Server exposes players and their history as JSON
type Server struct {
	players       Players
	search        Searcher
	store         Maintainer
	cache         *fide.PageCache
	defaultMonths int
	now           func() time.Time

	httpServer *http.Server
}

// NewServer creates the API server. cache may be nil.
func NewServer(players Players, search Searcher, store Maintainer, cache *fide.PageCache, defaultMonths int) *Server {
	s := &Server{
		players:       players,
		search:        search,
		store:         store,
		cache:         cache,
		defaultMonths: defaultMonths,
		now:           time.Now,
	}
	s.httpServer = &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 3 * time.Minute, // gap fills fetch one page per month
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler builds the routed, CORS-wrapped handler
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", s.handleHealth).Methods("GET")
	api.HandleFunc("/search", s.handleSearch).Methods("GET")
	api.HandleFunc("/players/{id:[0-9]+}", s.handlePlayer).Methods("GET")
	api.HandleFunc("/players/{id:[0-9]+}/games", s.handleGames).Methods("GET")
	api.HandleFunc("/players/{id:[0-9]+}/tournaments", s.handleTournaments).Methods("GET")
	api.HandleFunc("/players/{id:[0-9]+}/stats", s.handleStats).Methods("GET")
	api.HandleFunc("/maintenance/dedupe", s.handleDedupe).Methods("POST")

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	})

	return c.Handler(router)
}

// Start listens on addr until Stop is called. It returns nil once stopped,
// including when Stop ran first.
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	slog.Info("Starting HTTP API", "addr", ln.Addr().String())
	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop shuts the listener down
func (s *Server) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		slog.Error("Server shutdown error", "error", err)
	}
}
