package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/notnil/chess"

	"github.com/flor3z/fide-tracker/internal/fide"
	"github.com/flor3z/fide-tracker/internal/storage"
)

func intp(v int) *int { return &v }

type fakePlayers struct {
	err        error
	start, end time.Time
}

func (f *fakePlayers) LoadPlayer(ctx context.Context, id string) (*storage.PlayerProfile, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &storage.PlayerProfile{PlayerID: id, Name: "Carlsen, Magnus", StandardRating: intp(2830)}, nil
}

func (f *fakePlayers) EnsureRange(ctx context.Context, id, name string, start, end time.Time) ([]storage.GameRecord, error) {
	f.start, f.end = start, end
	mar := time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC)
	return []storage.GameRecord{
		{PlayerID: id, Date: mar, TournamentName: "Norway Chess", PlayerName: name, PlayerRating: intp(2847), PlayerColor: chess.White, OpponentName: "Caruana, Fabiano", OpponentRating: intp(2820), Result: storage.Win},
		{PlayerID: id, Date: mar, TournamentName: "Norway Chess", PlayerName: name, PlayerRating: intp(2847), PlayerColor: chess.Black, OpponentName: "Ding, Liren", OpponentRating: intp(2791), Result: storage.Draw},
	}, nil
}

type fakeSearch struct{}

func (fakeSearch) SearchPlayers(ctx context.Context, q string) ([]fide.PlayerHit, error) {
	return []fide.PlayerHit{{ID: "1503014", Name: "Carlsen, Magnus", Title: "GM"}}, nil
}

type fakeStore struct{ calls int }

func (f *fakeStore) Deduplicate(ctx context.Context) (int64, error) {
	f.calls++
	return 3, nil
}

func (f *fakeStore) CountGames(ctx context.Context, id string) (int, error) {
	return 42, nil
}

func newTestServer(players *fakePlayers) (*Server, *fakeStore) {
	store := &fakeStore{}
	s := NewServer(players, fakeSearch{}, store, nil, 12)
	s.now = func() time.Time { return time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC) }
	return s, store
}

func do(t *testing.T, s *Server, method, target string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(method, target, nil))

	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("%s %s: invalid JSON %q", method, target, rec.Body.String())
	}
	return rec, body
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(&fakePlayers{})
	rec, body := do(t, s, http.MethodGet, "/api/health")
	if rec.Code != http.StatusOK || body["status"] != "ok" {
		t.Errorf("health = %d %v", rec.Code, body)
	}
}

func TestPlayer(t *testing.T) {
	s, _ := newTestServer(&fakePlayers{})
	rec, body := do(t, s, http.MethodGet, "/api/players/1503014")
	if rec.Code != http.StatusOK || body["name"] != "Carlsen, Magnus" || body["stored_games"] != 42.0 {
		t.Errorf("player = %d %v", rec.Code, body)
	}
	if body["standard_rating"] != 2830.0 || body["rapid_rating"] != nil {
		t.Errorf("ratings = %v / %v", body["standard_rating"], body["rapid_rating"])
	}
}

func TestSearch(t *testing.T) {
	s, _ := newTestServer(&fakePlayers{})

	rec, body := do(t, s, http.MethodGet, "/api/search?q=carlsen")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if players := body["players"].([]interface{}); len(players) != 1 {
		t.Errorf("players = %v", players)
	}

	if rec, _ := do(t, s, http.MethodGet, "/api/search"); rec.Code != http.StatusBadRequest {
		t.Errorf("missing query status = %d", rec.Code)
	}
}

func TestGamesWindow(t *testing.T) {
	players := &fakePlayers{}
	s, _ := newTestServer(players)

	rec, body := do(t, s, http.MethodGet, "/api/players/1503014/games?start=2021-01&end=2021-08")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %v", rec.Code, body)
	}
	if !players.start.Equal(time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)) || !players.end.Equal(time.Date(2021, 8, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("window = %v..%v", players.start, players.end)
	}

	games := body["games"].([]interface{})
	first := games[0].(map[string]interface{})
	if first["player_color"] != "white" || first["date"] != "2021-03-01" || first["result"] != 1.0 {
		t.Errorf("unexpected game %v", first)
	}
}

func TestGamesDefaultWindow(t *testing.T) {
	players := &fakePlayers{}
	s, _ := newTestServer(players)

	do(t, s, http.MethodGet, "/api/players/1503014/games")
	if !players.start.Equal(time.Date(2023, 4, 1, 0, 0, 0, 0, time.UTC)) || !players.end.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("default window = %v..%v", players.start, players.end)
	}
}

func TestGamesFilter(t *testing.T) {
	s, _ := newTestServer(&fakePlayers{})

	_, body := do(t, s, http.MethodGet, "/api/players/1503014/games?result=draw&opponent=ding")
	if games := body["games"].([]interface{}); len(games) != 1 {
		t.Errorf("expected 1 filtered game, got %d", len(games))
	}

	if rec, _ := do(t, s, http.MethodGet, "/api/players/1503014/games?result=maybe"); rec.Code != http.StatusBadRequest {
		t.Errorf("bad result filter status = %d", rec.Code)
	}
}

func TestBadDates(t *testing.T) {
	s, _ := newTestServer(&fakePlayers{})

	for _, target := range []string{
		"/api/players/1503014/games?start=2021-13",
		"/api/players/1503014/stats?start=2021-05&end=2021-01",
	} {
		if rec, _ := do(t, s, http.MethodGet, target); rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d", target, rec.Code)
		}
	}
}

func TestTournamentsAndStats(t *testing.T) {
	s, _ := newTestServer(&fakePlayers{})

	_, body := do(t, s, http.MethodGet, "/api/players/1503014/tournaments?start=2021-03&end=2021-03")
	tournaments := body["tournaments"].([]interface{})
	if len(tournaments) != 1 || tournaments[0].(map[string]interface{})["points"] != 1.5 {
		t.Errorf("tournaments = %v", tournaments)
	}

	_, body = do(t, s, http.MethodGet, "/api/players/1503014/stats?start=2021-03&end=2021-03")
	if body["games"] != 2.0 {
		t.Errorf("stats = %v", body)
	}
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{&fide.FetchError{StatusCode: http.StatusNotFound}, http.StatusNotFound},
		{fmt.Errorf("fetch: %w", &fide.FetchError{StatusCode: http.StatusServiceUnavailable}), http.StatusBadGateway},
		{&fide.ParseError{Reason: "no separators"}, http.StatusUnprocessableEntity},
		{fmt.Errorf("disk full"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		s, _ := newTestServer(&fakePlayers{err: tt.err})
		if rec, _ := do(t, s, http.MethodGet, "/api/players/1503014"); rec.Code != tt.want {
			t.Errorf("%v: status = %d, want %d", tt.err, rec.Code, tt.want)
		}
	}
}

func TestDedupe(t *testing.T) {
	s, store := newTestServer(&fakePlayers{})

	rec, body := do(t, s, http.MethodPost, "/api/maintenance/dedupe")
	if rec.Code != http.StatusOK || body["removed"] != 3.0 || store.calls != 1 {
		t.Errorf("dedupe = %d %v", rec.Code, body)
	}
}

func TestStopBeforeStart(t *testing.T) {
	s, _ := newTestServer(&fakePlayers{})
	s.Stop()

	if err := s.Start("127.0.0.1:0"); err != nil {
		t.Errorf("Start after Stop = %v", err)
	}
}

func TestStartStop(t *testing.T) {
	s, _ := newTestServer(&fakePlayers{})

	done := make(chan error, 1)
	go func() { done <- s.Start("127.0.0.1:0") }()
	s.Stop()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Start = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Start did not return after Stop")
	}
}
