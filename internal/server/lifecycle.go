package server

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

type startResult struct {
	Assignments int
	Players     int
}

// startGame transitions lobby→active: builds and validates the hunt
// cycle, reserves the weapons in play, deals special characters and seeds
// the claimable powers. Nothing is applied to the game until the generated
// chain has passed validation, so a construction failure leaves the lobby
// untouched.
func (s *Server) startGame(sess session) (startResult, error) {
	var result startResult
	var notes []Notification
	game, err := s.store.UpdateGame(sess.GameID, func(g *Game) error {
		if g.Phase != phaseLobby {
			return preconditionError("El juego ya fue iniciado o finalizó")
		}
		killers := g.aliveKillers()
		assignments, err := generateAssignments(killers, g.Locations, g.Weapons, s.rng)
		if err != nil {
			return err
		}
		if !validateChain(assignments) {
			log.Error().Str("game_id", g.ID).Int("players", len(killers)).
				Msg("generated assignment chain failed cycle validation")
			return invariantError("Error al generar cadena circular válida")
		}

		for i := range assignments {
			assignments[i].ID = g.nextID()
		}
		g.Assignments = assignments

		inPlay := make(map[string]struct{}, len(assignments))
		for _, a := range assignments {
			inPlay[a.Weapon] = struct{}{}
		}
		for i := range g.Weapons {
			_, used := inPlay[g.Weapons[i].Name]
			g.Weapons[i].IsAvailable = !used
		}

		ids := make([]int, 0, len(killers))
		for _, p := range killers {
			ids = append(ids, p.ID)
		}
		characters := assignSpecialCharacters(ids, s.cfg.SpecialCharacterRatio, s.rng)
		for i := range g.Players {
			if ch, ok := characters[g.Players[i].ID]; ok {
				g.Players[i].Character = ch
				g.Players[i].CharacterUsed = false
			}
		}

		g.Powers = g.Powers[:0]
		for _, p := range claimablePowers {
			g.Powers = append(g.Powers, AvailablePower{ID: g.nextID(), Name: p})
		}

		g.Phase = phaseActive
		g.StartTime = timeNowUTC()
		g.EndTime = time.Time{}
		g.WinnerID = 0
		notes = append(notes, g.addPublicNotification("🎮 La partida ha comenzado. ¡Buena suerte!"))
		result = startResult{Assignments: len(assignments), Players: len(killers)}
		return nil
	})
	if err != nil {
		return result, err
	}
	s.pushNotifications(game, notes)
	s.persistGameStarted(game)
	return result, nil
}

func (s *Server) pauseGame(sess session) error {
	var notes []Notification
	game, err := s.store.UpdateGame(sess.GameID, func(g *Game) error {
		if g.Phase != phaseActive {
			return preconditionError("El juego no está activo")
		}
		g.Phase = phasePaused
		notes = append(notes, g.addPublicNotification("⏸️ El GameMaster ha pausado la partida"))
		return nil
	})
	if err != nil {
		return err
	}
	s.pushNotifications(game, notes)
	s.persistPhase(game)
	return nil
}

func (s *Server) resumeGame(sess session) error {
	var notes []Notification
	game, err := s.store.UpdateGame(sess.GameID, func(g *Game) error {
		if g.Phase != phasePaused {
			return preconditionError("La partida no está pausada")
		}
		g.Phase = phaseActive
		notes = append(notes, g.addPublicNotification("▶️ La partida ha sido reanudada"))
		return nil
	})
	if err != nil {
		return err
	}
	s.pushNotifications(game, notes)
	s.persistPhase(game)
	return nil
}

// endGame is the moderator force-end: the game finishes with no winner.
func (s *Server) endGame(sess session) error {
	var notes []Notification
	game, err := s.store.UpdateGame(sess.GameID, func(g *Game) error {
		if g.Phase == phaseFinished {
			return preconditionError("La partida ya finalizó")
		}
		notes = append(notes, finishGame(g, 0)...)
		notes = append(notes, g.addPublicNotification("🛑 El GameMaster ha terminado la partida"))
		return nil
	})
	if err != nil {
		return err
	}
	s.pushNotifications(game, notes)
	s.persistPhase(game)
	return nil
}

// finishGame deactivates every remaining assignment, stamps the end time
// and records the winner when there is one. Terminal: callers gate every
// later mutation on Phase != finished.
func finishGame(g *Game, winnerID int) []Notification {
	var notes []Notification
	for i := range g.Assignments {
		g.Assignments[i].IsActive = false
	}
	g.Phase = phaseFinished
	g.EndTime = timeNowUTC()
	g.WinnerID = winnerID
	if winnerID != 0 {
		if winner := g.player(winnerID); winner != nil {
			notes = append(notes, g.addPublicNotification(
				fmt.Sprintf("🏆 %s ha ganado la partida", winner.Name)))
		}
	}
	return notes
}
