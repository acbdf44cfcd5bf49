package server

import (
	"net/http"
	"testing"
)

func TestConfigurePoolReplacesAndDedupes(t *testing.T) {
	srv := newCoreServer(t)
	game, masterSess := setupLobby(t, srv, "Ana", "Beto")

	counts, err := srv.configurePool(masterSess,
		[]string{"Patio", "patio ", "Azotea", ""},
		[]string{"Cuchara", "CUCHARA", "Lápiz"})
	if err != nil {
		t.Fatalf("configure: %v", err)
	}
	if counts.Locations != 2 || counts.Weapons != 2 {
		t.Fatalf("expected deduped counts 2/2, got %d/%d", counts.Locations, counts.Weapons)
	}
	if len(game.Locations) != 2 {
		t.Fatalf("expected 2 locations after dedupe, got %d", len(game.Locations))
	}
	if len(game.Weapons) != 2 {
		t.Fatalf("expected 2 weapons after dedupe, got %d", len(game.Weapons))
	}
	for _, w := range game.Weapons {
		if !w.IsAvailable {
			t.Fatalf("fresh pool weapon %s must be available", w.Name)
		}
	}
}

func TestConfigurePoolLobbyOnly(t *testing.T) {
	srv := newCoreServer(t)
	_, masterSess := setupActiveGame(t, srv, "Ana", "Beto")

	_, err := srv.configurePool(masterSess, []string{"Patio"}, []string{"Cuchara", "Lápiz"})
	assertErrorStatus(t, err, http.StatusBadRequest)
}

func TestAddWeapon(t *testing.T) {
	srv := newCoreServer(t)
	game, masterSess := setupLobby(t, srv, "Ana", "Beto")

	weapon, err := srv.addWeapon(masterSess, "  Paraguas ")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if weapon.Name != "Paraguas" {
		t.Fatalf("expected trimmed name, got %q", weapon.Name)
	}
	if game.weaponByName("Paraguas") == nil {
		t.Fatal("weapon not in pool")
	}

	_, err = srv.addWeapon(masterSess, "paraguas")
	assertErrorStatus(t, err, http.StatusBadRequest)
}

func TestRemoveWeaponFloor(t *testing.T) {
	srv := newCoreServer(t)
	game, master, err := srv.store.CreateGame("GM", "hash")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	for _, name := range []string{"Ana", "Beto", "Carla"} {
		srv.store.AddPlayer(game.ID, name)
	}
	masterSess := session{GameID: game.ID, PlayerID: master.ID, Master: true}
	if _, err := srv.configurePool(masterSess, []string{"Patio"}, []string{"Cuchara", "Lápiz", "Regla"}); err != nil {
		t.Fatalf("configure: %v", err)
	}

	// Three players, three weapons: removing any would starve the start.
	err = srv.removeWeapon(masterSess, game.Weapons[0].ID)
	assertErrorStatus(t, err, http.StatusBadRequest)

	if _, err := srv.addWeapon(masterSess, "Tenedor"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := srv.removeWeapon(masterSess, game.Weapons[0].ID); err != nil {
		t.Fatalf("remove with slack: %v", err)
	}
	if len(game.Weapons) != 3 {
		t.Fatalf("expected 3 weapons, got %d", len(game.Weapons))
	}
}
