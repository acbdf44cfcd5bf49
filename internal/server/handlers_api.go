package server

import (
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/roahoki/rucakiller/internal/pin"
)

type createGameRequest struct {
	MasterName string `json:"master_name"`
	PIN        string `json:"pin"`
}

type joinRequest struct {
	Name string `json:"name"`
}

type configureRequest struct {
	PlayerID  int      `json:"player_id"`
	Locations []string `json:"locations"`
	Weapons   []string `json:"weapons"`
}

type masterLoginRequest struct {
	PIN string `json:"pin"`
}

type startRequest struct {
	PlayerID int `json:"player_id"`
}

type killAttemptRequest struct {
	PlayerID int `json:"player_id"`
	TargetID int `json:"target_id"`
}

type killConfirmRequest struct {
	PlayerID  int    `json:"player_id"`
	EventID   string `json:"event_id"`
	Confirmed bool   `json:"confirmed"`
}

type powerClaimRequest struct {
	PlayerID int    `json:"player_id"`
	Power    string `json:"power"`
}

type powerUseRequest struct {
	PlayerID int `json:"player_id"`
	TargetID int `json:"target_id"`
}

type sabotageRequest struct {
	PlayerID   int    `json:"player_id"`
	TargetID   int    `json:"target_id"`
	ChangeType string `json:"change_type"`
	NewValue   string `json:"new_value"`
}

type moderatorReassignRequest struct {
	PlayerID     int    `json:"player_id"`
	AssignmentID int    `json:"assignment_id"`
	NewTargetID  int    `json:"new_target_id"`
	NewLocation  string `json:"new_location"`
	NewWeapon    string `json:"new_weapon"`
}

type weaponAddRequest struct {
	PlayerID int    `json:"player_id"`
	Name     string `json:"name"`
}

type weaponRemoveRequest struct {
	PlayerID int `json:"player_id"`
	WeaponID int `json:"weapon_id"`
}

type removePlayerRequest struct {
	PlayerID int `json:"player_id"`
	TargetID int `json:"target_id"`
}

// findGame resolves the path segment as a game ID first, then as a join
// code. Players share the code; the ID appears in responses.
func (s *Server) findGame(idOrCode string) (*Game, bool) {
	if game, ok := s.store.GetGame(idOrCode); ok {
		return game, true
	}
	return s.store.FindGameByCode(idOrCode)
}

// masterSession authenticates the requester as the game's moderator.
// Moderator operations trust the session flag, so this is the only
// place the role check happens.
func (s *Server) masterSession(idOrCode string, playerID int) (session, error) {
	game, ok := s.findGame(idOrCode)
	if !ok {
		return session{}, notFoundError("Juego no encontrado")
	}
	if playerID == 0 || playerID != game.MasterID {
		return session{}, preconditionError("Solo el GameMaster puede realizar esta acción")
	}
	return session{GameID: game.ID, PlayerID: playerID, Master: true}, nil
}

func pathPlayerID(r *http.Request) (int, error) {
	id, err := strconv.Atoi(r.PathValue("playerID"))
	if err != nil || id <= 0 {
		return 0, validationError("ID de jugador inválido")
	}
	return id, nil
}

func (s *Server) handleListGames(w http.ResponseWriter, r *http.Request) {
	summaries := s.store.ListGameSummaries()
	games := make([]map[string]any, 0, len(summaries))
	for _, g := range summaries {
		games = append(games, map[string]any{
			"game_id": g.ID,
			"code":    g.Code,
			"status":  g.Phase,
			"players": g.Players,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"games": games})
}

func (s *Server) handleCreateGame(w http.ResponseWriter, r *http.Request) {
	var req createGameRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "JSON inválido")
		return
	}
	name, err := validatePlayerName(req.MasterName)
	if err != nil {
		writeGameError(w, err)
		return
	}
	if !pin.ValidFormat(req.PIN) {
		writeError(w, http.StatusBadRequest, "El PIN debe tener entre 4 y 6 dígitos")
		return
	}
	hash, err := pin.Hash(req.PIN)
	if err != nil {
		log.Error().Err(err).Msg("pin hash failed")
		writeError(w, http.StatusInternalServerError, "Error al crear la partida")
		return
	}
	game, master, err := s.store.CreateGame(name, hash)
	if err != nil {
		writeGameError(w, err)
		return
	}
	if err := s.persistGame(game); err != nil {
		writeGameError(w, err)
		return
	}
	log.Info().Str("game_id", game.ID).Str("code", game.Code).Msg("game created")
	writeJSON(w, http.StatusCreated, map[string]any{
		"game_id":   game.ID,
		"code":      game.Code,
		"master_id": master.ID,
	})
}

func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	var req joinRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "JSON inválido")
		return
	}
	name, err := validatePlayerName(req.Name)
	if err != nil {
		writeGameError(w, err)
		return
	}
	game, player, err := s.store.AddPlayer(r.PathValue("id"), name)
	if err != nil {
		writeGameError(w, err)
		return
	}
	s.persistPlayer(game, player.ID)
	s.ws.Broadcast(game.ID, map[string]any{
		"kind":        "player_joined",
		"player_name": player.Name,
	})
	writeJSON(w, http.StatusCreated, map[string]any{
		"game_id":   game.ID,
		"player_id": player.ID,
		"name":      player.Name,
	})
}

func (s *Server) handleMasterLogin(w http.ResponseWriter, r *http.Request) {
	var req masterLoginRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "JSON inválido")
		return
	}
	var view map[string]any
	hash := ""
	err := s.store.ViewGame(r.PathValue("id"), func(g *Game) error {
		hash = g.MasterPINHash
		view = map[string]any{
			"game_id":   g.ID,
			"code":      g.Code,
			"master_id": g.MasterID,
			"status":    g.Phase,
		}
		return nil
	})
	if err != nil {
		writeGameError(w, err)
		return
	}
	// Argon2 verification is deliberately slow; never under the store lock.
	if !pin.Verify(req.PIN, hash) {
		writeError(w, http.StatusUnauthorized, "PIN incorrecto")
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleGameSnapshot(w http.ResponseWriter, r *http.Request) {
	var view map[string]any
	err := s.store.ViewGame(r.PathValue("id"), func(g *Game) error {
		view = s.snapshot(g)
		return nil
	})
	if err != nil {
		writeGameError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleConfigure(w http.ResponseWriter, r *http.Request) {
	var req configureRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "JSON inválido")
		return
	}
	sess, err := s.masterSession(r.PathValue("id"), req.PlayerID)
	if err != nil {
		writeGameError(w, err)
		return
	}
	counts, err := s.configurePool(sess, req.Locations, req.Weapons)
	if err != nil {
		writeGameError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"locations": counts.Locations,
		"weapons":   counts.Weapons,
	})
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "JSON inválido")
		return
	}
	sess, err := s.masterSession(r.PathValue("id"), req.PlayerID)
	if err != nil {
		writeGameError(w, err)
		return
	}
	result, err := s.startGame(sess)
	if err != nil {
		writeGameError(w, err)
		return
	}
	log.Info().Str("game_id", sess.GameID).Int("players", result.Players).Msg("game started")
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      phaseActive,
		"players":     result.Players,
		"assignments": result.Assignments,
	})
}

func (s *Server) handleAssignment(w http.ResponseWriter, r *http.Request) {
	playerID, err := pathPlayerID(r)
	if err != nil {
		writeGameError(w, err)
		return
	}
	var view map[string]any
	err = s.store.ViewGame(r.PathValue("id"), func(g *Game) error {
		assignment := g.activeAssignmentByHunter(playerID)
		if assignment == nil {
			return notFoundError("No tienes una misión activa")
		}
		targetName := ""
		if target := g.player(assignment.TargetID); target != nil {
			targetName = target.Name
		}
		view = map[string]any{
			"assignment_id": assignment.ID,
			"target_id":     assignment.TargetID,
			"target_name":   targetName,
			"location":      assignment.Location,
			"weapon":        assignment.Weapon,
		}
		return nil
	})
	if err != nil {
		writeGameError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	playerID, err := pathPlayerID(r)
	if err != nil {
		writeGameError(w, err)
		return
	}
	var notes []Notification
	_, err = s.store.UpdateGame(r.PathValue("id"), func(g *Game) error {
		if g.player(playerID) == nil {
			return notFoundError("Jugador no encontrado")
		}
		notes = g.notificationsFor(playerID)
		return nil
	})
	if err != nil {
		writeGameError(w, err)
		return
	}
	out := make([]map[string]any, 0, len(notes))
	for _, n := range notes {
		out = append(out, map[string]any{
			"id":         n.ID,
			"type":       n.Type,
			"message":    n.Message,
			"created_at": n.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"notifications": out})
}

// handlePendingAttempt lets a player poll for an unconfirmed attempt
// against them, which they then resolve via kills/confirm.
func (s *Server) handlePendingAttempt(w http.ResponseWriter, r *http.Request) {
	playerID, err := pathPlayerID(r)
	if err != nil {
		writeGameError(w, err)
		return
	}
	view := map[string]any{"pending": false}
	err = s.store.ViewGame(r.PathValue("id"), func(g *Game) error {
		if ev := g.pendingAttemptAgainst(playerID); ev != nil {
			view = map[string]any{
				"pending":         true,
				"event_id":        ev.ID,
				"location":        ev.Location,
				"weapon":          ev.Weapon,
				"location_waived": ev.LocationWaived,
			}
		}
		return nil
	})
	if err != nil {
		writeGameError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleKillAttempt(w http.ResponseWriter, r *http.Request) {
	var req killAttemptRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "JSON inválido")
		return
	}
	sess := session{GameID: r.PathValue("id"), PlayerID: req.PlayerID}
	result, err := s.attemptKill(sess, req.TargetID)
	if err != nil {
		writeGameError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"event_id":        result.EventID,
		"location_waived": result.LocationWaived,
	})
}

func (s *Server) handleKillConfirm(w http.ResponseWriter, r *http.Request) {
	var req killConfirmRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "JSON inválido")
		return
	}
	sess := session{GameID: r.PathValue("id"), PlayerID: req.PlayerID}
	result, err := s.resolveKill(sess, req.EventID, req.Confirmed)
	if err != nil {
		writeGameError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":     result.Message,
		"winner":      result.Winner,
		"killer_died": result.KillerDied,
	})
}

func (s *Server) handlePowerClaim(w http.ResponseWriter, r *http.Request) {
	var req powerClaimRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "JSON inválido")
		return
	}
	sess := session{GameID: r.PathValue("id"), PlayerID: req.PlayerID}
	message, err := s.claimPower(sess, Power(req.Power))
	if err != nil {
		writeGameError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"power":   req.Power,
		"message": message,
	})
}

func (s *Server) handleDetective(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "JSON inválido")
		return
	}
	sess := session{GameID: r.PathValue("id"), PlayerID: req.PlayerID}
	clue, err := s.useDetective(sess)
	if err != nil {
		writeGameError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"location": clue.Location,
		"weapon":   clue.Weapon,
	})
}

func (s *Server) handleEspia(w http.ResponseWriter, r *http.Request) {
	var req powerUseRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "JSON inválido")
		return
	}
	sess := session{GameID: r.PathValue("id"), PlayerID: req.PlayerID}
	targetName, err := s.useEspia(sess, req.TargetID)
	if err != nil {
		writeGameError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"target_of_target": targetName,
	})
}

func (s *Server) handleSaboteador(w http.ResponseWriter, r *http.Request) {
	var req sabotageRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "JSON inválido")
		return
	}
	sess := session{GameID: r.PathValue("id"), PlayerID: req.PlayerID}
	result, err := s.useSaboteador(sess, req.TargetID, req.ChangeType, req.NewValue)
	if err != nil {
		writeGameError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"change_type": result.ChangeType,
		"old_value":   result.OldValue,
		"new_value":   result.NewValue,
	})
}

func (s *Server) handleInvestigador(w http.ResponseWriter, r *http.Request) {
	var req powerUseRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "JSON inválido")
		return
	}
	sess := session{GameID: r.PathValue("id"), PlayerID: req.PlayerID}
	result, err := s.useInvestigador(sess, req.TargetID)
	if err != nil {
		writeGameError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"target_name": result.TargetName,
		"victim_name": result.VictimName,
		"location":    result.Location,
		"weapon":      result.Weapon,
	})
}

func (s *Server) handleSicario(w http.ResponseWriter, r *http.Request) {
	var req powerUseRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "JSON inválido")
		return
	}
	sess := session{GameID: r.PathValue("id"), PlayerID: req.PlayerID}
	result, err := s.useSicario(sess, req.TargetID)
	if err != nil {
		writeGameError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"target_name": result.TargetName,
		"location":    result.Location,
		"weapon":      result.Weapon,
	})
}

func (s *Server) handleReassign(w http.ResponseWriter, r *http.Request) {
	var req moderatorReassignRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "JSON inválido")
		return
	}
	sess, err := s.masterSession(r.PathValue("id"), req.PlayerID)
	if err != nil {
		writeGameError(w, err)
		return
	}
	assignment, err := s.reassign(sess, reassignRequest{
		AssignmentID: req.AssignmentID,
		NewTargetID:  req.NewTargetID,
		NewLocation:  req.NewLocation,
		NewWeapon:    req.NewWeapon,
	})
	if err != nil {
		writeGameError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"assignment_id": assignment.ID,
		"hunter_id":     assignment.HunterID,
		"target_id":     assignment.TargetID,
		"location":      assignment.Location,
		"weapon":        assignment.Weapon,
	})
}

func (s *Server) handleAddWeapon(w http.ResponseWriter, r *http.Request) {
	var req weaponAddRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "JSON inválido")
		return
	}
	sess, err := s.masterSession(r.PathValue("id"), req.PlayerID)
	if err != nil {
		writeGameError(w, err)
		return
	}
	weapon, err := s.addWeapon(sess, req.Name)
	if err != nil {
		writeGameError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"weapon_id": weapon.ID,
		"name":      weapon.Name,
	})
}

func (s *Server) handleRemoveWeapon(w http.ResponseWriter, r *http.Request) {
	var req weaponRemoveRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "JSON inválido")
		return
	}
	sess, err := s.masterSession(r.PathValue("id"), req.PlayerID)
	if err != nil {
		writeGameError(w, err)
		return
	}
	if err := s.removeWeapon(sess, req.WeaponID); err != nil {
		writeGameError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"removed": true})
}

func (s *Server) handleRemovePlayer(w http.ResponseWriter, r *http.Request) {
	var req removePlayerRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "JSON inválido")
		return
	}
	sess, err := s.masterSession(r.PathValue("id"), req.PlayerID)
	if err != nil {
		writeGameError(w, err)
		return
	}
	if err := s.removePlayer(sess, req.TargetID); err != nil {
		writeGameError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"removed": true})
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	s.handlePhaseChange(w, r, s.pauseGame)
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	s.handlePhaseChange(w, r, s.resumeGame)
}

func (s *Server) handleEnd(w http.ResponseWriter, r *http.Request) {
	s.handlePhaseChange(w, r, s.endGame)
}

func (s *Server) handlePhaseChange(w http.ResponseWriter, r *http.Request, op func(session) error) {
	var req startRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "JSON inválido")
		return
	}
	sess, err := s.masterSession(r.PathValue("id"), req.PlayerID)
	if err != nil {
		writeGameError(w, err)
		return
	}
	if err := op(sess); err != nil {
		writeGameError(w, err)
		return
	}
	game, _ := s.store.GetGame(sess.GameID)
	status := ""
	if game != nil {
		status = game.Phase
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": status})
}
