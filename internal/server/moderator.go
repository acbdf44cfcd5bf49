package server

import (
	"fmt"
	"strings"
)

type reassignRequest struct {
	AssignmentID int
	NewTargetID  int
	NewLocation  string
	NewWeapon    string
}

// reassign lets the moderator repair a mission by hand. Target changes
// retire the old edge and create a new one so the active set stays
// append-only; location/weapon-only changes edit the row in place. A
// direct two-cycle (A→B while B→A) is refused.
func (s *Server) reassign(sess session, req reassignRequest) (Assignment, error) {
	var updated Assignment
	var notes []Notification
	game, err := s.store.UpdateGame(sess.GameID, func(g *Game) error {
		if g.Phase == phaseFinished {
			return preconditionError("La partida ya finalizó")
		}
		var assignment *Assignment
		for i := range g.Assignments {
			if g.Assignments[i].ID == req.AssignmentID && g.Assignments[i].IsActive {
				assignment = &g.Assignments[i]
				break
			}
		}
		if assignment == nil {
			return notFoundError("Asignación no encontrada")
		}

		targetChanged := req.NewTargetID != 0 && req.NewTargetID != assignment.TargetID
		if !targetChanged && req.NewLocation == "" && req.NewWeapon == "" {
			return validationError("No se especificaron cambios")
		}

		if targetChanged {
			newTarget := g.player(req.NewTargetID)
			if newTarget == nil {
				return notFoundError("El jugador objetivo no existe")
			}
			if !newTarget.IsAlive {
				return preconditionError("El jugador objetivo está muerto")
			}
			if newTarget.IsMaster {
				return preconditionError("El GameMaster no puede ser un objetivo")
			}
			if req.NewTargetID == assignment.HunterID {
				return preconditionError("Un jugador no puede ser su propio objetivo")
			}
			if reverse := g.activeAssignmentByHunter(req.NewTargetID); reverse != nil && reverse.TargetID == assignment.HunterID {
				return preconditionError("Esta reasignación crearía un ciclo directo (A→B y B→A)")
			}
		}

		location := assignment.Location
		if req.NewLocation != "" {
			if g.locationByName(req.NewLocation) == nil {
				return validationError("Lugar no válido")
			}
			location = req.NewLocation
		}
		weaponName := assignment.Weapon
		if req.NewWeapon != "" && !equalFold(req.NewWeapon, assignment.Weapon) {
			newWeapon := g.weaponByName(req.NewWeapon)
			if newWeapon == nil {
				return validationError("Arma no válida")
			}
			if !newWeapon.IsAvailable {
				return conflictError("Esa arma ya está en juego")
			}
			if oldWeapon := g.weaponByName(assignment.Weapon); oldWeapon != nil {
				oldWeapon.IsAvailable = true
			}
			newWeapon.IsAvailable = false
			weaponName = newWeapon.Name
		}

		hunterID := assignment.HunterID
		targetID := assignment.TargetID
		if targetChanged {
			assignment.IsActive = false
			targetID = req.NewTargetID
			g.Assignments = append(g.Assignments, Assignment{
				ID:       g.nextID(),
				HunterID: hunterID,
				TargetID: targetID,
				Location: location,
				Weapon:   weaponName,
				IsActive: true,
			})
			updated = g.Assignments[len(g.Assignments)-1]
		} else {
			assignment.Location = location
			assignment.Weapon = weaponName
			updated = *assignment
		}

		g.addEvent(KillEvent{
			Type:      eventReassigned,
			KillerID:  hunterID,
			VictimID:  targetID,
			Location:  location,
			Weapon:    weaponName,
			Confirmed: true,
		})

		var changes []string
		if targetChanged {
			if newTarget := g.player(targetID); newTarget != nil {
				changes = append(changes, fmt.Sprintf("nuevo objetivo: %s", newTarget.Name))
			}
		}
		if req.NewLocation != "" {
			changes = append(changes, fmt.Sprintf("nuevo lugar: %s", location))
		}
		if req.NewWeapon != "" {
			changes = append(changes, fmt.Sprintf("nueva arma: %s", weaponName))
		}
		notes = append(notes, g.addPrivateNotification(hunterID,
			fmt.Sprintf("🔄 GameMaster ha reasignado tu misión: %s", strings.Join(changes, ", "))))
		notes = append(notes, g.addPublicNotification("🔄 GameMaster ha realizado una reasignación manual"))
		return nil
	})
	if err != nil {
		return updated, err
	}
	s.pushNotifications(game, notes)
	s.persistAssignments(game)
	return updated, nil
}

// removePlayer is the moderator boot. In the lobby the player simply
// leaves the roster; in an active game the removal counts as a death and
// the chain is spliced around the hole, with win detection afterwards.
func (s *Server) removePlayer(sess session, targetID int) error {
	var notes []Notification
	game, err := s.store.UpdateGame(sess.GameID, func(g *Game) error {
		if g.Phase == phaseFinished {
			return preconditionError("La partida ya finalizó")
		}
		target := g.player(targetID)
		if target == nil {
			return notFoundError("Jugador no encontrado")
		}
		if target.IsMaster {
			return preconditionError("No puedes eliminar al GameMaster")
		}

		if g.Phase == phaseLobby {
			for i := range g.Players {
				if g.Players[i].ID == targetID {
					g.Players = append(g.Players[:i], g.Players[i+1:]...)
					break
				}
			}
			return nil
		}

		if !target.IsAlive {
			return preconditionError("El jugador ya está muerto")
		}
		target.IsAlive = false
		targetName := target.Name
		g.dropPendingAttemptsInvolving(targetID)

		hunterEdge := g.activeAssignmentByTarget(targetID)
		victimEdge := g.activeAssignmentByHunter(targetID)
		var hunterID, inheritedTargetID int
		var inheritedWeapon string
		if hunterEdge != nil {
			hunterID = hunterEdge.HunterID
			hunterEdge.IsActive = false
			if weapon := g.weaponByName(hunterEdge.Weapon); weapon != nil {
				weapon.IsAvailable = true
			}
		}
		if victimEdge != nil {
			inheritedTargetID = victimEdge.TargetID
			inheritedWeapon = victimEdge.Weapon
			victimEdge.IsActive = false
			if weapon := g.weaponByName(victimEdge.Weapon); weapon != nil {
				weapon.IsAvailable = true
			}
		}

		g.addEvent(KillEvent{
			Type:      eventEliminatedByGM,
			VictimID:  targetID,
			Confirmed: true,
		})
		notes = append(notes, g.addPublicNotification(
			fmt.Sprintf("⚖️ %s fue eliminado por el GameMaster", targetName)))

		alive := g.aliveKillers()
		if len(alive) == 1 {
			notes = append(notes, finishGame(g, alive[0].ID)...)
			return nil
		}
		if len(alive) == 0 {
			notes = append(notes, finishGame(g, 0)...)
			return nil
		}

		if hunterID != 0 && inheritedTargetID != 0 && hunterID != targetID {
			location := ""
			if len(g.Locations) > 0 {
				location = g.Locations[s.rng.Intn(len(g.Locations))].Name
			}
			weaponName := inheritedWeapon
			if weapon := g.firstAvailableWeapon(); weapon != nil {
				weaponName = weapon.Name
			}
			if weapon := g.weaponByName(weaponName); weapon != nil {
				weapon.IsAvailable = false
			}
			g.Assignments = append(g.Assignments, Assignment{
				ID:       g.nextID(),
				HunterID: hunterID,
				TargetID: inheritedTargetID,
				Location: location,
				Weapon:   weaponName,
				IsActive: true,
			})
			if newTarget := g.player(inheritedTargetID); newTarget != nil {
				notes = append(notes, g.addPrivateNotification(hunterID,
					fmt.Sprintf("🔄 Tu objetivo fue eliminado. Tu nuevo objetivo es: %s", newTarget.Name)))
			}
		}
		notes = append(notes, g.addPublicNotification(
			fmt.Sprintf("Quedan %d jugadores vivos", len(alive))))
		return nil
	})
	if err != nil {
		return err
	}
	s.pushNotifications(game, notes)
	s.persistKillResolution(game)
	return nil
}

// dropPendingAttemptsInvolving clears unconfirmed kill events where the
// player is hunter or victim; they can no longer be arbitrated.
func (g *Game) dropPendingAttemptsInvolving(playerID int) {
	kept := g.Events[:0]
	for _, ev := range g.Events {
		if ev.Type == eventKill && !ev.Confirmed && (ev.KillerID == playerID || ev.VictimID == playerID) {
			if ev.DBID != 0 {
				g.purgedEventIDs = append(g.purgedEventIDs, ev.DBID)
			}
			continue
		}
		kept = append(kept, ev)
	}
	g.Events = kept
}
