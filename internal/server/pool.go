package server

import "fmt"

type poolCounts struct {
	Locations int
	Weapons   int
}

// configurePool replaces the game's locations and weapons wholesale.
// Only valid in the lobby; re-configuring drops the previous pool. The
// returned counts reflect the pool after trimming and deduplication.
func (s *Server) configurePool(sess session, locations, weapons []string) (poolCounts, error) {
	cleanLocations, err := normalizePoolNames("lugar", locations, s.cfg.MinLocations)
	if err != nil {
		return poolCounts{}, err
	}
	cleanWeapons, err := normalizePoolNames("arma", weapons, s.cfg.MinWeapons)
	if err != nil {
		return poolCounts{}, err
	}

	game, err := s.store.UpdateGame(sess.GameID, func(g *Game) error {
		if g.Phase != phaseLobby {
			return preconditionError("Solo se puede configurar en estado lobby")
		}
		g.Locations = g.Locations[:0]
		for _, name := range cleanLocations {
			g.Locations = append(g.Locations, Location{ID: g.nextID(), Name: name})
		}
		g.Weapons = g.Weapons[:0]
		for _, name := range cleanWeapons {
			g.Weapons = append(g.Weapons, Weapon{ID: g.nextID(), Name: name, IsAvailable: true})
		}
		return nil
	})
	if err != nil {
		return poolCounts{}, err
	}
	s.persistPool(game)
	return poolCounts{Locations: len(cleanLocations), Weapons: len(cleanWeapons)}, nil
}

// addWeapon lets the moderator grow the pool ad hoc while in the lobby.
func (s *Server) addWeapon(sess session, name string) (Weapon, error) {
	trimmed, err := validatePoolName("arma", name)
	if err != nil {
		return Weapon{}, err
	}
	var added Weapon
	game, err := s.store.UpdateGame(sess.GameID, func(g *Game) error {
		if g.Phase != phaseLobby {
			return preconditionError("Solo se pueden agregar armas en el lobby")
		}
		if g.weaponByName(trimmed) != nil {
			return preconditionError("Ya existe un arma con ese nombre")
		}
		added = Weapon{ID: g.nextID(), Name: trimmed, IsAvailable: true}
		g.Weapons = append(g.Weapons, added)
		return nil
	})
	if err != nil {
		return Weapon{}, err
	}
	s.persistPool(game)
	return added, nil
}

// removeWeapon is blocked when it would leave fewer weapons than living
// non-moderator players: the hunt needs one distinct weapon per hunter.
func (s *Server) removeWeapon(sess session, weaponID int) error {
	game, err := s.store.UpdateGame(sess.GameID, func(g *Game) error {
		if g.Phase != phaseLobby {
			return preconditionError("Solo se pueden eliminar armas en el lobby")
		}
		index := -1
		for i := range g.Weapons {
			if g.Weapons[i].ID == weaponID {
				index = i
				break
			}
		}
		if index < 0 {
			return notFoundError("Arma no encontrada")
		}
		playerCount := 0
		for _, p := range g.Players {
			if !p.IsMaster {
				playerCount++
			}
		}
		if len(g.Weapons)-1 < playerCount {
			return preconditionError(fmt.Sprintf(
				"No puedes eliminar esta arma. Necesitas al menos %d armas para %d jugadores",
				playerCount, playerCount))
		}
		g.Weapons = append(g.Weapons[:index], g.Weapons[index+1:]...)
		return nil
	})
	if err != nil {
		return err
	}
	s.persistPool(game)
	return nil
}
