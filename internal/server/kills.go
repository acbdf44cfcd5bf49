package server

import (
	"fmt"

	"github.com/google/uuid"
)

type attemptResult struct {
	EventID        string
	LocationWaived bool
}

type resolveResult struct {
	Winner     bool
	KillerDied bool
	Message    string
}

// attemptKill registers an unconfirmed kill event for the hunter's
// current assignment. The victim arbitrates it later via resolveKill.
func (s *Server) attemptKill(sess session, targetID int) (attemptResult, error) {
	var result attemptResult
	game, err := s.store.UpdateGame(sess.GameID, func(g *Game) error {
		if g.Phase != phaseActive {
			return preconditionError("El juego no está activo. No se pueden realizar asesinatos.")
		}
		hunter := g.player(sess.PlayerID)
		if hunter == nil {
			return notFoundError("Jugador no encontrado")
		}
		if !hunter.IsAlive {
			return preconditionError("No puedes asesinar si estás muerto")
		}
		target := g.player(targetID)
		if target == nil {
			return notFoundError("Objetivo no encontrado")
		}
		if !target.IsAlive {
			return preconditionError("Tu objetivo ya está muerto")
		}

		assignment := g.activeAssignmentByHunter(hunter.ID)
		if assignment == nil || assignment.TargetID != targetID {
			return notFoundError("Este no es tu objetivo asignado")
		}
		if pending := g.pendingAttemptByHunter(hunter.ID); pending != nil {
			return preconditionError("Ya tienes un intento de asesinato pendiente")
		}

		ev := g.addEvent(KillEvent{
			ID:             uuid.NewString(),
			Type:           eventKill,
			KillerID:       hunter.ID,
			VictimID:       targetID,
			Location:       assignment.Location,
			Weapon:         assignment.Weapon,
			LocationWaived: hunter.Power == PowerAsesinoSerial,
		})
		result = attemptResult{EventID: ev.ID, LocationWaived: ev.LocationWaived}
		return nil
	})
	if err != nil {
		return result, err
	}
	s.persistEventByID(game, result.EventID)
	return result, nil
}

// resolveKill is the victim's verdict on a pending attempt. Confirm
// splices the chain and rotates weapons; reject punishes the hunter with
// death. Both paths run win detection. The event is consumed exactly
// once: a second concurrent resolution finds nothing and fails with
// not-found.
func (s *Server) resolveKill(sess session, eventID string, confirmed bool) (resolveResult, error) {
	var result resolveResult
	var notes []Notification
	game, err := s.store.UpdateGame(sess.GameID, func(g *Game) error {
		ev := g.pendingAttemptFor(eventID, sess.PlayerID)
		if ev == nil {
			return notFoundError("Evento no encontrado o ya confirmado")
		}
		if g.Phase != phaseActive {
			return preconditionError("El juego no está activo")
		}
		if victim := g.player(sess.PlayerID); victim == nil || !victim.IsAlive {
			return preconditionError("No puedes confirmar asesinatos si estás muerto")
		}
		if confirmed {
			return s.confirmKill(g, ev, &result, &notes)
		}
		return s.rejectKill(g, *ev, &result, &notes)
	})
	if err != nil {
		return result, err
	}
	s.pushNotifications(game, notes)
	s.persistKillResolution(game)
	return result, nil
}

// rejectKill: the victim attests the conditions were wrong, so the hunter
// dies. The pending event is dropped and replaced by a failed_attempt
// audit record; a dead hunter keeps no assignment, and the hole in the
// chain stays until that hunter's own hunter scores or the game ends.
func (s *Server) rejectKill(g *Game, ev KillEvent, result *resolveResult, notes *[]Notification) error {
	hunterID := ev.KillerID
	victimID := ev.VictimID
	g.removeEvent(ev.ID)

	hunter := g.player(hunterID)
	hunterName := "Un jugador"
	if hunter != nil {
		hunter.IsAlive = false
		hunterName = hunter.Name
	}
	if assignment := g.activeAssignmentByHunter(hunterID); assignment != nil {
		assignment.IsActive = false
		if weapon := g.weaponByName(assignment.Weapon); weapon != nil {
			weapon.IsAvailable = true
		}
	}
	// The dead hunter can no longer attempt or arbitrate anything.
	g.dropPendingAttemptsInvolving(hunterID)

	g.addEvent(KillEvent{
		Type:      eventFailedAttempt,
		KillerID:  hunterID,
		VictimID:  victimID,
		Location:  ev.Location,
		Weapon:    ev.Weapon,
		Confirmed: true,
	})

	*notes = append(*notes, g.addPrivateNotification(hunterID,
		"💀 Tu intento de asesinato fue rechazado. Has sido eliminado por intentar asesinar sin cumplir las condiciones."))
	*notes = append(*notes, g.addPublicNotification(
		fmt.Sprintf("⚖️ %s fue eliminado por intentar un asesinato sin cumplir las condiciones", hunterName)))

	result.KillerDied = true
	alive := g.aliveKillers()
	if len(alive) == 1 {
		*notes = append(*notes, finishGame(g, alive[0].ID)...)
		result.Winner = true
		result.Message = "Asesinato rechazado. El asesino ha sido eliminado. ¡Hay un ganador!"
		return nil
	}
	*notes = append(*notes, g.addPublicNotification(
		fmt.Sprintf("Quedan %d jugadores vivos", len(alive))))
	result.Message = "Asesinato rechazado. El asesino ha sido eliminado."
	return nil
}

// confirmKill marks the victim dead and splices the chain: the hunter
// inherits the victim's target under freshly rolled conditions. The
// hunter's old weapon and the victim's weapon return to the pool; the new
// edge reserves its weapon.
func (s *Server) confirmKill(g *Game, ev *KillEvent, result *resolveResult, notes *[]Notification) error {
	ev.Confirmed = true
	killerID, victimID := ev.KillerID, ev.VictimID
	victim := g.player(victimID)
	if victim != nil {
		victim.IsAlive = false
	}
	hunter := g.player(killerID)
	if hunter != nil {
		hunter.KillCount++
	}
	// Any unconfirmed attempt by or against the victim dies with them.
	// This compacts g.Events, so ev must not be touched past this point.
	g.dropPendingAttemptsInvolving(victimID)

	alive := g.aliveKillers()
	if len(alive) <= 1 {
		winnerID := killerID
		if len(alive) == 1 {
			winnerID = alive[0].ID
		}
		*notes = append(*notes, finishGame(g, winnerID)...)
		result.Winner = true
		result.Message = "Asesinato confirmado. ¡Hay un ganador!"
		return nil
	}

	victimAssignment := g.activeAssignmentByHunter(victimID)
	if hunterAssignment := g.activeAssignmentByHunter(killerID); hunterAssignment != nil {
		hunterAssignment.IsActive = false
		if weapon := g.weaponByName(hunterAssignment.Weapon); weapon != nil {
			weapon.IsAvailable = true
		}
	}
	if victimAssignment != nil {
		victimAssignment.IsActive = false
		if weapon := g.weaponByName(victimAssignment.Weapon); weapon != nil {
			weapon.IsAvailable = true
		}

		location := victimAssignment.Location
		if len(g.Locations) > 0 {
			location = g.Locations[s.rng.Intn(len(g.Locations))].Name
		}
		weaponName := victimAssignment.Weapon
		if weapon := g.firstAvailableWeapon(); weapon != nil {
			weaponName = weapon.Name
		}
		if weapon := g.weaponByName(weaponName); weapon != nil {
			weapon.IsAvailable = false
		}

		g.Assignments = append(g.Assignments, Assignment{
			ID:       g.nextID(),
			HunterID: killerID,
			TargetID: victimAssignment.TargetID,
			Location: location,
			Weapon:   weaponName,
			IsActive: true,
		})
		if newTarget := g.player(victimAssignment.TargetID); newTarget != nil {
			*notes = append(*notes, g.addPrivateNotification(killerID,
				fmt.Sprintf("¡Asesinato confirmado! Tu nuevo objetivo es: %s", newTarget.Name)))
		}
	}

	*notes = append(*notes, g.addPublicNotification("⚔️ Se ha producido un asesinato"))
	*notes = append(*notes, g.addPublicNotification(
		fmt.Sprintf("Quedan %d jugadores vivos", len(alive))))
	result.Message = "Asesinato confirmado exitosamente"
	return nil
}

func (g *Game) removeEvent(id string) {
	for i := range g.Events {
		if g.Events[i].ID == id {
			if dbID := g.Events[i].DBID; dbID != 0 {
				g.purgedEventIDs = append(g.purgedEventIDs, dbID)
			}
			g.Events = append(g.Events[:i], g.Events[i+1:]...)
			return
		}
	}
}

func (g *Game) firstAvailableWeapon() *Weapon {
	for i := range g.Weapons {
		if g.Weapons[i].IsAvailable {
			return &g.Weapons[i]
		}
	}
	return nil
}
