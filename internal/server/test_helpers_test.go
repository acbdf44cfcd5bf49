package server

import (
	"math/rand"
	"testing"

	"github.com/roahoki/rucakiller/internal/config"
)

var testLocations = []string{"Patio", "Cocina", "Biblioteca"}

var testWeapons = []string{"Cuchara", "Lápiz", "Calcetín", "Peluche", "Regla", "Tenedor"}

func newCoreServer(t *testing.T) *Server {
	t.Helper()
	srv := New(nil, config.Default())
	srv.rng = rand.New(rand.NewSource(1))
	return srv
}

// setupLobby creates a game with a moderator plus the named players and a
// configured pool, still in the lobby.
func setupLobby(t *testing.T, srv *Server, names ...string) (*Game, session) {
	t.Helper()
	game, master, err := srv.store.CreateGame("GM", "test-hash")
	if err != nil {
		t.Fatalf("create game: %v", err)
	}
	for _, name := range names {
		if _, _, err := srv.store.AddPlayer(game.ID, name); err != nil {
			t.Fatalf("join %s: %v", name, err)
		}
	}
	masterSess := session{GameID: game.ID, PlayerID: master.ID, Master: true}
	if _, err := srv.configurePool(masterSess, testLocations, testWeapons); err != nil {
		t.Fatalf("configure pool: %v", err)
	}
	return game, masterSess
}

// setupActiveGame starts the game on top of setupLobby.
func setupActiveGame(t *testing.T, srv *Server, names ...string) (*Game, session) {
	t.Helper()
	game, masterSess := setupLobby(t, srv, names...)
	if _, err := srv.startGame(masterSess); err != nil {
		t.Fatalf("start game: %v", err)
	}
	return game, masterSess
}

func playerByName(t *testing.T, game *Game, name string) *Player {
	t.Helper()
	for i := range game.Players {
		if game.Players[i].Name == name {
			return &game.Players[i]
		}
	}
	t.Fatalf("player %s not found", name)
	return nil
}

func playerSession(game *Game, playerID int) session {
	return session{GameID: game.ID, PlayerID: playerID}
}

func activeEdges(game *Game) []Assignment {
	var edges []Assignment
	for _, a := range game.Assignments {
		if a.IsActive {
			edges = append(edges, a)
		}
	}
	return edges
}

// assertWeaponExclusivity checks that a weapon is unavailable exactly
// when some active assignment carries it.
func assertWeaponExclusivity(t *testing.T, game *Game) {
	t.Helper()
	inPlay := make(map[string]int)
	for _, a := range activeEdges(game) {
		inPlay[a.Weapon]++
	}
	for name, uses := range inPlay {
		if uses > 1 {
			t.Errorf("weapon %s carried by %d active assignments", name, uses)
		}
	}
	for _, w := range game.Weapons {
		_, used := inPlay[w.Name]
		if used && w.IsAvailable {
			t.Errorf("weapon %s is in play but marked available", w.Name)
		}
		if !used && !w.IsAvailable {
			t.Errorf("weapon %s is idle but marked unavailable", w.Name)
		}
	}
}

func assertErrorStatus(t *testing.T, err error, wantStatus int) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with status %d, got nil", wantStatus)
	}
	if got := errorStatus(err); got != wantStatus {
		t.Fatalf("expected status %d, got %d (%v)", wantStatus, got, err)
	}
}
