package server

import "fmt"

var powerDisplayNames = map[Power]string{
	PowerAsesinoSerial: "Asesino Serial",
	PowerInvestigador:  "Investigador",
	PowerSicario:       "Sicario",
}

// claimPower allocates a claim-once power. The availability row is the
// contended resource: the first writer flips is_taken under the store
// lock, a loser sees it taken and gets a conflict so it can retry with a
// different choice.
func (s *Server) claimPower(sess session, power Power) (string, error) {
	valid := false
	for _, p := range claimablePowers {
		if p == power {
			valid = true
			break
		}
	}
	if !valid {
		return "", validationError("Tipo de poder inválido")
	}

	var message string
	var notes []Notification
	var claimed *AvailablePower
	game, err := s.store.UpdateGame(sess.GameID, func(g *Game) error {
		player := g.player(sess.PlayerID)
		if player == nil {
			return notFoundError("Jugador no encontrado")
		}
		if player.KillCount < 2 {
			return preconditionError("Necesitas al menos 2 kills para elegir un poder")
		}
		if player.Power != PowerNone {
			return preconditionError("Ya tienes un poder de 2 kills")
		}
		if !player.IsAlive {
			return preconditionError("No puedes elegir un poder si estás muerto")
		}
		if g.Phase != phaseActive {
			return preconditionError("El juego no está activo")
		}

		var row *AvailablePower
		for i := range g.Powers {
			if g.Powers[i].Name == power {
				row = &g.Powers[i]
				break
			}
		}
		if row == nil {
			return notFoundError("Ese poder no existe en esta partida")
		}
		if row.IsTaken {
			return conflictError("Este poder ya fue tomado por otro jugador")
		}
		row.IsTaken = true
		row.TakenBy = player.ID
		player.Power = power
		claimed = row

		g.addEvent(KillEvent{
			Type:      eventPowerUsed,
			KillerID:  player.ID,
			Confirmed: true,
		})
		notes = append(notes, g.addPublicNotification(
			fmt.Sprintf("⚡ %s ha obtenido el poder de %s", player.Name, powerDisplayNames[power])))
		message = fmt.Sprintf("Has obtenido el poder de %s", powerDisplayNames[power])
		return nil
	})
	if err != nil {
		return "", err
	}
	s.pushNotifications(game, notes)
	s.persistPowerClaim(game, claimed, sess.PlayerID)
	return message, nil
}

// checkSpecialCharacter covers the shared one-shot preconditions.
func checkSpecialCharacter(g *Game, playerID int, want SpecialCharacter, roleError string) (*Player, error) {
	player := g.player(playerID)
	if player == nil {
		return nil, notFoundError("Jugador no encontrado")
	}
	if player.Character != want {
		return nil, preconditionError(roleError)
	}
	if player.CharacterUsed {
		return nil, preconditionError("Ya usaste tu poder especial")
	}
	if !player.IsAlive {
		return nil, preconditionError("No puedes usar poderes si estás muerto")
	}
	if g.Phase != phaseActive {
		return nil, preconditionError("El juego no está activo")
	}
	return player, nil
}

type detectiveClue struct {
	Location string
	Weapon   string
}

// useDetective reveals location+weapon of one random active assignment
// other than the detective's own. Identities stay hidden.
func (s *Server) useDetective(sess session) (detectiveClue, error) {
	var clue detectiveClue
	game, err := s.store.UpdateGame(sess.GameID, func(g *Game) error {
		player, err := checkSpecialCharacter(g, sess.PlayerID, CharacterDetective,
			"Solo los Detectives pueden usar este poder")
		if err != nil {
			return err
		}
		var candidates []*Assignment
		for _, a := range g.activeAssignments() {
			if a.HunterID != player.ID {
				candidates = append(candidates, a)
			}
		}
		if len(candidates) == 0 {
			return notFoundError("No hay asignaciones disponibles para investigar")
		}
		picked := candidates[s.rng.Intn(len(candidates))]
		clue = detectiveClue{Location: picked.Location, Weapon: picked.Weapon}

		player.CharacterUsed = true
		g.addEvent(KillEvent{
			Type:      eventSpecialUsed,
			KillerID:  player.ID,
			Location:  picked.Location,
			Weapon:    picked.Weapon,
			Confirmed: true,
		})
		return nil
	})
	if err != nil {
		return clue, err
	}
	s.persistPlayerState(game, sess.PlayerID)
	return clue, nil
}

// useEspia reveals only the name of the chosen player's target.
func (s *Server) useEspia(sess session, targetPlayerID int) (string, error) {
	var targetName string
	game, err := s.store.UpdateGame(sess.GameID, func(g *Game) error {
		player, err := checkSpecialCharacter(g, sess.PlayerID, CharacterEspia,
			"Solo los Espías pueden usar este poder")
		if err != nil {
			return err
		}
		assignment := g.activeAssignmentByHunter(targetPlayerID)
		if assignment == nil {
			return notFoundError("El jugador seleccionado no tiene objetivo asignado")
		}
		target := g.player(assignment.TargetID)
		if target == nil {
			return notFoundError("Objetivo no encontrado")
		}
		targetName = target.Name

		player.CharacterUsed = true
		g.addEvent(KillEvent{
			Type:      eventSpecialUsed,
			KillerID:  player.ID,
			VictimID:  targetPlayerID,
			Confirmed: true,
		})
		return nil
	})
	if err != nil {
		return "", err
	}
	s.persistPlayerState(game, sess.PlayerID)
	return targetName, nil
}

type sabotageResult struct {
	ChangeType string
	OldValue   string
	NewValue   string
}

// useSaboteador mutates exactly one of {location, weapon} on the chosen
// player's active assignment. The target is not notified. A weapon swap
// claims the new weapon from the pool and frees the old one.
func (s *Server) useSaboteador(sess session, targetPlayerID int, changeType, newValue string) (sabotageResult, error) {
	var result sabotageResult
	if changeType != "location" && changeType != "weapon" {
		return result, validationError(`changeType debe ser "location" o "weapon"`)
	}
	game, err := s.store.UpdateGame(sess.GameID, func(g *Game) error {
		player, err := checkSpecialCharacter(g, sess.PlayerID, CharacterSaboteador,
			"Solo los Saboteadores pueden usar este poder")
		if err != nil {
			return err
		}
		assignment := g.activeAssignmentByHunter(targetPlayerID)
		if assignment == nil {
			return notFoundError("El jugador seleccionado no tiene asignación activa")
		}

		switch changeType {
		case "location":
			if g.locationByName(newValue) == nil {
				return validationError("Lugar no válido")
			}
			result = sabotageResult{ChangeType: changeType, OldValue: assignment.Location, NewValue: newValue}
			assignment.Location = newValue
		case "weapon":
			newWeapon := g.weaponByName(newValue)
			if newWeapon == nil {
				return validationError("Arma no válida")
			}
			if !newWeapon.IsAvailable && !equalFold(newWeapon.Name, assignment.Weapon) {
				return conflictError("Esa arma ya está en juego")
			}
			if oldWeapon := g.weaponByName(assignment.Weapon); oldWeapon != nil {
				oldWeapon.IsAvailable = true
			}
			newWeapon.IsAvailable = false
			result = sabotageResult{ChangeType: changeType, OldValue: assignment.Weapon, NewValue: newWeapon.Name}
			assignment.Weapon = newWeapon.Name
		}

		player.CharacterUsed = true
		g.addEvent(KillEvent{
			Type:      eventSpecialUsed,
			KillerID:  player.ID,
			VictimID:  targetPlayerID,
			Location:  assignment.Location,
			Weapon:    assignment.Weapon,
			Confirmed: true,
		})
		return nil
	})
	if err != nil {
		return result, err
	}
	s.persistPlayerState(game, sess.PlayerID)
	s.persistAssignments(game)
	return result, nil
}

type investigationResult struct {
	TargetName string
	VictimName string
	Location   string
	Weapon     string
}

// useInvestigador reveals a player's full active assignment to the
// investigator, and tells the investigated player it happened.
func (s *Server) useInvestigador(sess session, targetPlayerID int) (investigationResult, error) {
	var result investigationResult
	var notes []Notification
	game, err := s.store.UpdateGame(sess.GameID, func(g *Game) error {
		if g.Phase != phaseActive {
			return preconditionError("El juego no está activo")
		}
		player := g.player(sess.PlayerID)
		if player == nil {
			return notFoundError("Jugador no encontrado")
		}
		if !player.IsAlive {
			return preconditionError("No puedes usar poderes si estás muerto")
		}
		if player.Power != PowerInvestigador {
			return preconditionError("No tienes el poder de Investigador")
		}
		if player.PowerUsed {
			return preconditionError("Ya has usado tu poder de Investigador")
		}
		target := g.player(targetPlayerID)
		if target == nil {
			return notFoundError("Jugador objetivo no encontrado")
		}
		if !target.IsAlive {
			return preconditionError("No puedes investigar a un jugador muerto")
		}
		if targetPlayerID == player.ID {
			return preconditionError("No puedes investigarte a ti mismo")
		}
		assignment := g.activeAssignmentByHunter(targetPlayerID)
		if assignment == nil {
			return notFoundError("El jugador objetivo no tiene asignación activa")
		}
		victim := g.player(assignment.TargetID)
		if victim == nil {
			return notFoundError("No se pudo obtener información de la víctima")
		}

		player.PowerUsed = true
		result = investigationResult{
			TargetName: target.Name,
			VictimName: victim.Name,
			Location:   assignment.Location,
			Weapon:     assignment.Weapon,
		}
		g.addEvent(KillEvent{
			Type:      eventPowerUsed,
			KillerID:  player.ID,
			VictimID:  targetPlayerID,
			Confirmed: true,
		})
		notes = append(notes, g.addPrivateNotification(player.ID,
			fmt.Sprintf("🔍 Investigación completa: %s debe asesinar a %s en %s con %s",
				target.Name, victim.Name, assignment.Location, assignment.Weapon)))
		notes = append(notes, g.addPrivateNotification(targetPlayerID,
			fmt.Sprintf("⚠️ %s ha investigado tu objetivo", player.Name)))
		notes = append(notes, g.addPublicNotification("🔍 Un jugador ha usado el poder de Investigador"))
		return nil
	})
	if err != nil {
		return result, err
	}
	s.pushNotifications(game, notes)
	s.persistPlayerState(game, sess.PlayerID)
	return result, nil
}

type sicarioResult struct {
	TargetName string
	Location   string
	Weapon     string
}

// useSicario replaces the user's own target with a chosen living player.
// The old edge is retired (weapon freed) and a fresh edge is created with
// newly rolled conditions; the new target only learns the weapon.
func (s *Server) useSicario(sess session, newTargetID int) (sicarioResult, error) {
	var result sicarioResult
	var notes []Notification
	game, err := s.store.UpdateGame(sess.GameID, func(g *Game) error {
		if g.Phase != phaseActive {
			return preconditionError("El juego no está activo")
		}
		player := g.player(sess.PlayerID)
		if player == nil {
			return notFoundError("Jugador no encontrado")
		}
		if !player.IsAlive {
			return preconditionError("No puedes usar poderes si estás muerto")
		}
		if player.Power != PowerSicario {
			return preconditionError("No tienes el poder de Sicario")
		}
		if player.PowerUsed {
			return preconditionError("Ya has usado tu poder de Sicario")
		}
		newTarget := g.player(newTargetID)
		if newTarget == nil {
			return notFoundError("Jugador objetivo no encontrado")
		}
		if !newTarget.IsAlive {
			return preconditionError("No puedes elegir como objetivo a un jugador muerto")
		}
		if newTargetID == player.ID {
			return preconditionError("No puedes elegirte a ti mismo como objetivo")
		}
		if newTarget.IsMaster {
			return preconditionError("El GameMaster no puede ser un objetivo")
		}
		current := g.activeAssignmentByHunter(player.ID)
		if current == nil {
			return notFoundError("No tienes una asignación activa")
		}
		if current.TargetID == newTargetID {
			return preconditionError("Ese ya es tu objetivo actual")
		}

		current.IsActive = false
		if weapon := g.weaponByName(current.Weapon); weapon != nil {
			weapon.IsAvailable = true
		}
		location := current.Location
		if len(g.Locations) > 0 {
			location = g.Locations[s.rng.Intn(len(g.Locations))].Name
		}
		weaponName := current.Weapon
		if weapon := g.firstAvailableWeapon(); weapon != nil {
			weaponName = weapon.Name
		}
		if weapon := g.weaponByName(weaponName); weapon != nil {
			weapon.IsAvailable = false
		}
		g.Assignments = append(g.Assignments, Assignment{
			ID:       g.nextID(),
			HunterID: player.ID,
			TargetID: newTargetID,
			Location: location,
			Weapon:   weaponName,
			IsActive: true,
		})

		player.PowerUsed = true
		result = sicarioResult{TargetName: newTarget.Name, Location: location, Weapon: weaponName}
		g.addEvent(KillEvent{
			Type:      eventPowerUsed,
			KillerID:  player.ID,
			VictimID:  newTargetID,
			Confirmed: true,
		})
		notes = append(notes, g.addPrivateNotification(player.ID,
			fmt.Sprintf("🎯 Nuevo objetivo elegido: %s", newTarget.Name)))
		notes = append(notes, g.addPrivateNotification(newTargetID,
			fmt.Sprintf("💀 Alguien te está cazando con: %s", weaponName)))
		notes = append(notes, g.addPublicNotification("🎯 Un jugador ha usado el poder de Sicario"))
		return nil
	})
	if err != nil {
		return result, err
	}
	s.pushNotifications(game, notes)
	s.persistPlayerState(game, sess.PlayerID)
	s.persistAssignments(game)
	return result, nil
}
