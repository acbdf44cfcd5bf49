package server

import (
	"net/http"
	"sync"
	"testing"
)

func grantKills(t *testing.T, srv *Server, game *Game, playerID, kills int) {
	t.Helper()
	_, err := srv.store.UpdateGame(game.ID, func(g *Game) error {
		g.player(playerID).KillCount = kills
		return nil
	})
	if err != nil {
		t.Fatalf("grant kills: %v", err)
	}
}

func setCharacter(t *testing.T, srv *Server, game *Game, playerID int, ch SpecialCharacter) {
	t.Helper()
	_, err := srv.store.UpdateGame(game.ID, func(g *Game) error {
		p := g.player(playerID)
		p.Character = ch
		p.CharacterUsed = false
		return nil
	})
	if err != nil {
		t.Fatalf("set character: %v", err)
	}
}

func setPower(t *testing.T, srv *Server, game *Game, playerID int, power Power) {
	t.Helper()
	_, err := srv.store.UpdateGame(game.ID, func(g *Game) error {
		p := g.player(playerID)
		p.Power = power
		p.PowerUsed = false
		return nil
	})
	if err != nil {
		t.Fatalf("set power: %v", err)
	}
}

func TestClaimPowerRequiresTwoKills(t *testing.T) {
	srv := newCoreServer(t)
	game, _ := setupActiveGame(t, srv, "Ana", "Beto", "Carla")

	ana := playerByName(t, game, "Ana")
	_, err := srv.claimPower(playerSession(game, ana.ID), PowerSicario)
	assertErrorStatus(t, err, http.StatusBadRequest)

	grantKills(t, srv, game, ana.ID, 2)
	message, err := srv.claimPower(playerSession(game, ana.ID), PowerSicario)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if message == "" {
		t.Fatal("expected a claim message")
	}
	if game.player(ana.ID).Power != PowerSicario {
		t.Fatal("power not recorded on the player")
	}
}

func TestClaimPowerFirstWriterWins(t *testing.T) {
	srv := newCoreServer(t)
	game, _ := setupActiveGame(t, srv, "Ana", "Beto", "Carla")

	ana := playerByName(t, game, "Ana")
	beto := playerByName(t, game, "Beto")
	grantKills(t, srv, game, ana.ID, 2)
	grantKills(t, srv, game, beto.ID, 3)

	if _, err := srv.claimPower(playerSession(game, ana.ID), PowerAsesinoSerial); err != nil {
		t.Fatalf("first claim: %v", err)
	}
	_, err := srv.claimPower(playerSession(game, beto.ID), PowerAsesinoSerial)
	assertErrorStatus(t, err, http.StatusConflict)

	// The loser is free to claim a different power.
	if _, err := srv.claimPower(playerSession(game, beto.ID), PowerInvestigador); err != nil {
		t.Fatalf("fallback claim: %v", err)
	}
}

func TestClaimPowerOnePerPlayer(t *testing.T) {
	srv := newCoreServer(t)
	game, _ := setupActiveGame(t, srv, "Ana", "Beto", "Carla")

	ana := playerByName(t, game, "Ana")
	grantKills(t, srv, game, ana.ID, 2)
	if _, err := srv.claimPower(playerSession(game, ana.ID), PowerSicario); err != nil {
		t.Fatalf("claim: %v", err)
	}
	_, err := srv.claimPower(playerSession(game, ana.ID), PowerInvestigador)
	assertErrorStatus(t, err, http.StatusBadRequest)
}

func TestClaimPowerUnknownType(t *testing.T) {
	srv := newCoreServer(t)
	game, _ := setupActiveGame(t, srv, "Ana", "Beto", "Carla")

	ana := playerByName(t, game, "Ana")
	grantKills(t, srv, game, ana.ID, 2)
	_, err := srv.claimPower(playerSession(game, ana.ID), Power("telepatia"))
	assertErrorStatus(t, err, http.StatusBadRequest)
}

func TestClaimPowerConcurrentSingleWinner(t *testing.T) {
	srv := newCoreServer(t)
	names := []string{"Ana", "Beto", "Carla", "Diego", "Elisa", "Fabi"}
	game, _ := setupActiveGame(t, srv, names...)

	ids := make([]int, 0, len(names))
	for _, name := range names {
		p := playerByName(t, game, name)
		grantKills(t, srv, game, p.ID, 2)
		ids = append(ids, p.ID)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0
	conflicts := 0
	for _, id := range ids {
		wg.Add(1)
		go func(playerID int) {
			defer wg.Done()
			_, err := srv.claimPower(playerSession(game, playerID), PowerSicario)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				winners++
			case errorIs(err, kindConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(id)
	}
	wg.Wait()

	if winners != 1 {
		t.Fatalf("expected exactly one winner, got %d", winners)
	}
	if conflicts != len(ids)-1 {
		t.Fatalf("expected %d conflicts, got %d", len(ids)-1, conflicts)
	}
}

func TestDetectiveClueMatchesForeignAssignment(t *testing.T) {
	srv := newCoreServer(t)
	game, _ := setupActiveGame(t, srv, "Ana", "Beto", "Carla", "Diego")

	ana := playerByName(t, game, "Ana")
	setCharacter(t, srv, game, ana.ID, CharacterDetective)

	clue, err := srv.useDetective(playerSession(game, ana.ID))
	if err != nil {
		t.Fatalf("detective: %v", err)
	}
	matched := false
	for _, a := range activeEdges(game) {
		if a.HunterID == ana.ID {
			continue
		}
		if a.Location == clue.Location && a.Weapon == clue.Weapon {
			matched = true
		}
	}
	if !matched {
		t.Fatalf("clue %+v matches no foreign assignment", clue)
	}

	// One-shot: a second use is refused.
	_, err = srv.useDetective(playerSession(game, ana.ID))
	assertErrorStatus(t, err, http.StatusBadRequest)
}

func TestEspiaRevealsTargetOfTarget(t *testing.T) {
	srv := newCoreServer(t)
	game, _ := setupActiveGame(t, srv, "Ana", "Beto", "Carla", "Diego")

	ana := playerByName(t, game, "Ana")
	beto := playerByName(t, game, "Beto")
	setCharacter(t, srv, game, ana.ID, CharacterEspia)

	betoEdge := game.activeAssignmentByHunter(beto.ID)
	want := game.player(betoEdge.TargetID).Name

	got, err := srv.useEspia(playerSession(game, ana.ID), beto.ID)
	if err != nil {
		t.Fatalf("espia: %v", err)
	}
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
	if !game.player(ana.ID).CharacterUsed {
		t.Fatal("one-shot character not marked used")
	}
}

func TestEspiaRequiresRole(t *testing.T) {
	srv := newCoreServer(t)
	game, _ := setupActiveGame(t, srv, "Ana", "Beto", "Carla")

	ana := playerByName(t, game, "Ana")
	beto := playerByName(t, game, "Beto")
	setCharacter(t, srv, game, ana.ID, CharacterNone)

	_, err := srv.useEspia(playerSession(game, ana.ID), beto.ID)
	assertErrorStatus(t, err, http.StatusBadRequest)
}

func TestSaboteadorSwapsWeapon(t *testing.T) {
	srv := newCoreServer(t)
	game, _ := setupActiveGame(t, srv, "Ana", "Beto", "Carla", "Diego")

	ana := playerByName(t, game, "Ana")
	beto := playerByName(t, game, "Beto")
	setCharacter(t, srv, game, ana.ID, CharacterSaboteador)

	victimEdge := game.activeAssignmentByHunter(beto.ID)
	oldWeapon := victimEdge.Weapon
	free := game.firstAvailableWeapon()
	if free == nil {
		t.Fatal("test pool should leave spare weapons")
	}

	result, err := srv.useSaboteador(playerSession(game, ana.ID), beto.ID, "weapon", free.Name)
	if err != nil {
		t.Fatalf("saboteador: %v", err)
	}
	if result.NewValue != free.Name || result.OldValue != oldWeapon {
		t.Fatalf("unexpected result: %+v", result)
	}
	if game.activeAssignmentByHunter(beto.ID).Weapon != free.Name {
		t.Fatal("assignment weapon not swapped")
	}
	assertWeaponExclusivity(t, game)
}

func TestSaboteadorRejectsWeaponInPlay(t *testing.T) {
	srv := newCoreServer(t)
	game, _ := setupActiveGame(t, srv, "Ana", "Beto", "Carla", "Diego")

	ana := playerByName(t, game, "Ana")
	beto := playerByName(t, game, "Beto")
	carla := playerByName(t, game, "Carla")
	setCharacter(t, srv, game, ana.ID, CharacterSaboteador)

	inPlay := game.activeAssignmentByHunter(carla.ID).Weapon
	if game.activeAssignmentByHunter(beto.ID).Weapon == inPlay {
		t.Fatal("test setup broken: same weapon on two edges")
	}
	_, err := srv.useSaboteador(playerSession(game, ana.ID), beto.ID, "weapon", inPlay)
	assertErrorStatus(t, err, http.StatusConflict)
}

func TestSaboteadorValidatesChangeType(t *testing.T) {
	srv := newCoreServer(t)
	game, _ := setupActiveGame(t, srv, "Ana", "Beto", "Carla")

	ana := playerByName(t, game, "Ana")
	beto := playerByName(t, game, "Beto")
	setCharacter(t, srv, game, ana.ID, CharacterSaboteador)

	_, err := srv.useSaboteador(playerSession(game, ana.ID), beto.ID, "target", "Carla")
	assertErrorStatus(t, err, http.StatusBadRequest)
}

func TestInvestigadorRevealsAssignment(t *testing.T) {
	srv := newCoreServer(t)
	game, _ := setupActiveGame(t, srv, "Ana", "Beto", "Carla", "Diego")

	ana := playerByName(t, game, "Ana")
	beto := playerByName(t, game, "Beto")
	setPower(t, srv, game, ana.ID, PowerInvestigador)

	edge := game.activeAssignmentByHunter(beto.ID)
	result, err := srv.useInvestigador(playerSession(game, ana.ID), beto.ID)
	if err != nil {
		t.Fatalf("investigador: %v", err)
	}
	if result.TargetName != "Beto" {
		t.Fatalf("expected Beto, got %q", result.TargetName)
	}
	if result.VictimName != game.player(edge.TargetID).Name {
		t.Fatalf("victim mismatch: %+v", result)
	}
	if result.Location != edge.Location || result.Weapon != edge.Weapon {
		t.Fatalf("conditions mismatch: %+v vs %+v", result, edge)
	}

	// Claim powers are single-use too.
	_, err = srv.useInvestigador(playerSession(game, ana.ID), beto.ID)
	assertErrorStatus(t, err, http.StatusBadRequest)
}

func TestSicarioRetargets(t *testing.T) {
	srv := newCoreServer(t)
	game, _ := setupActiveGame(t, srv, "Ana", "Beto", "Carla", "Diego")

	ana := playerByName(t, game, "Ana")
	setPower(t, srv, game, ana.ID, PowerSicario)

	current := game.activeAssignmentByHunter(ana.ID)
	newTargetID := 0
	for _, p := range game.Players {
		if !p.IsMaster && p.IsAlive && p.ID != ana.ID && p.ID != current.TargetID {
			newTargetID = p.ID
			break
		}
	}

	result, err := srv.useSicario(playerSession(game, ana.ID), newTargetID)
	if err != nil {
		t.Fatalf("sicario: %v", err)
	}
	if result.TargetName != game.player(newTargetID).Name {
		t.Fatalf("unexpected target: %+v", result)
	}
	edge := game.activeAssignmentByHunter(ana.ID)
	if edge.TargetID != newTargetID {
		t.Fatalf("assignment not retargeted: %+v", edge)
	}
	assertWeaponExclusivity(t, game)

	// Guards: self, the moderator and the current target are refused.
	setPower(t, srv, game, ana.ID, PowerSicario)
	_, err = srv.useSicario(playerSession(game, ana.ID), ana.ID)
	assertErrorStatus(t, err, http.StatusBadRequest)
	_, err = srv.useSicario(playerSession(game, ana.ID), game.MasterID)
	assertErrorStatus(t, err, http.StatusBadRequest)
	_, err = srv.useSicario(playerSession(game, ana.ID), newTargetID)
	assertErrorStatus(t, err, http.StatusBadRequest)
}

func TestPowersBlockedWhenDead(t *testing.T) {
	srv := newCoreServer(t)
	game, _ := setupActiveGame(t, srv, "Ana", "Beto", "Carla")

	ana := playerByName(t, game, "Ana")
	setCharacter(t, srv, game, ana.ID, CharacterDetective)
	grantKills(t, srv, game, ana.ID, 2)
	srv.store.UpdateGame(game.ID, func(g *Game) error {
		g.player(ana.ID).IsAlive = false
		return nil
	})

	_, err := srv.useDetective(playerSession(game, ana.ID))
	assertErrorStatus(t, err, http.StatusBadRequest)
	_, err = srv.claimPower(playerSession(game, ana.ID), PowerSicario)
	assertErrorStatus(t, err, http.StatusBadRequest)
}
