package server

import (
	"encoding/json"
	"errors"

	"github.com/jackc/pgconn"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/roahoki/rucakiller/internal/db"
)

// The in-memory store is authoritative; Postgres is a write-behind audit
// mirror. Everything below tolerates a nil connection (tests run without
// one) and, except for the initial game creation, mirror failures are
// logged rather than surfaced.

// persistGame writes the game and its GameMaster as one transaction.
// This one is primary: the create operation fails if the mirror does.
func (s *Server) persistGame(game *Game) error {
	if s.db == nil {
		return nil
	}
	master := game.player(game.MasterID)
	err := s.db.Transaction(func(tx *gorm.DB) error {
		record := db.Game{
			Code:      game.Code,
			Status:    game.Phase,
			MasterPIN: game.MasterPINHash,
		}
		if err := tx.Create(&record).Error; err != nil {
			return err
		}
		game.DBID = record.ID
		if master != nil {
			row := db.Player{
				GameID:       record.ID,
				Name:         master.Name,
				IsAlive:      true,
				IsGameMaster: true,
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
			master.DBID = row.ID
			masterID := row.ID
			if err := tx.Model(&db.Game{}).Where("id = ?", record.ID).
				Update("master_id", masterID).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if isUniqueViolation(err) {
			return storageError("No se pudo generar un código único. Intenta nuevamente.")
		}
		return storageError("Error al crear la partida")
	}
	return nil
}

func (s *Server) persistPlayer(game *Game, playerID int) {
	if s.db == nil || !s.ensureGameDBID(game) {
		return
	}
	player := game.player(playerID)
	if player == nil || player.DBID != 0 {
		return
	}
	row := db.Player{
		GameID:       game.DBID,
		Name:         player.Name,
		IsAlive:      player.IsAlive,
		IsGameMaster: player.IsMaster,
	}
	if err := s.db.Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			var existing db.Player
			if s.db.Where("game_id = ? AND name = ?", game.DBID, player.Name).
				First(&existing).Error == nil {
				player.DBID = existing.ID
			}
			return
		}
		log.Warn().Err(err).Str("game_id", game.ID).Str("player", player.Name).
			Msg("player mirror failed")
		return
	}
	player.DBID = row.ID
}

func (s *Server) persistNotification(game *Game, n Notification) error {
	if s.db == nil || !s.ensureGameDBID(game) {
		return nil
	}
	row := db.Notification{
		GameID:  game.DBID,
		Type:    n.Type,
		Message: n.Message,
	}
	if n.PlayerID != 0 {
		row.PlayerID = s.playerDBID(game, n.PlayerID)
	}
	return s.db.Create(&row).Error
}

func (s *Server) persistEventByID(game *Game, eventID string) {
	if s.db == nil {
		return
	}
	for i := range game.Events {
		if game.Events[i].ID == eventID {
			s.syncEvent(game, &game.Events[i])
			return
		}
	}
}

func (s *Server) syncEvent(game *Game, ev *KillEvent) {
	if s.db == nil || !s.ensureGameDBID(game) {
		return
	}
	if ev.DBID != 0 {
		err := s.db.Model(&db.Event{}).Where("id = ?", ev.DBID).
			Update("confirmed", ev.Confirmed).Error
		if err != nil {
			log.Warn().Err(err).Str("game_id", game.ID).Msg("event mirror update failed")
		}
		return
	}
	payload, _ := json.Marshal(map[string]any{
		"event_id":        ev.ID,
		"location_waived": ev.LocationWaived,
	})
	row := db.Event{
		GameID:    game.DBID,
		EventType: ev.Type,
		Location:  ev.Location,
		Weapon:    ev.Weapon,
		Confirmed: ev.Confirmed,
		Payload:   datatypes.JSON(payload),
		KillerID:  s.playerDBID(game, ev.KillerID),
		VictimID:  s.playerDBID(game, ev.VictimID),
	}
	if err := s.db.Create(&row).Error; err != nil {
		log.Warn().Err(err).Str("game_id", game.ID).Str("type", ev.Type).
			Msg("event mirror failed")
		return
	}
	ev.DBID = row.ID
}

func (s *Server) persistGameStarted(game *Game) {
	if s.db == nil || !s.ensureGameDBID(game) {
		return
	}
	s.syncPlayers(game)
	s.syncAssignments(game)
	s.syncWeapons(game)
	s.syncLocations(game)
	s.syncPowers(game)
	s.persistPhase(game)
}

func (s *Server) persistPhase(game *Game) {
	if s.db == nil || !s.ensureGameDBID(game) {
		return
	}
	updates := map[string]any{"status": game.Phase}
	if !game.StartTime.IsZero() {
		updates["start_time"] = game.StartTime
	}
	if !game.EndTime.IsZero() {
		updates["end_time"] = game.EndTime
	}
	if err := s.db.Model(&db.Game{}).Where("id = ?", game.DBID).
		Updates(updates).Error; err != nil {
		log.Warn().Err(err).Str("game_id", game.ID).Msg("phase mirror failed")
	}
	if game.Phase == phaseFinished {
		s.syncAssignments(game)
	}
}

// persistKillResolution mirrors everything a confirm/reject touches.
func (s *Server) persistKillResolution(game *Game) {
	if s.db == nil || !s.ensureGameDBID(game) {
		return
	}
	s.syncPlayers(game)
	s.syncAssignments(game)
	s.syncWeapons(game)
	s.syncEvents(game)
	s.persistPhase(game)
}

// persistPowerClaim mirrors a claim with a compare-and-set update so a
// stale mirror can never record two claimants. A lost race here only
// means the mirror diverged; the in-memory claim already won.
func (s *Server) persistPowerClaim(game *Game, row *AvailablePower, playerID int) {
	if s.db == nil || row == nil || !s.ensureGameDBID(game) {
		return
	}
	s.syncPowers(game)
	claimant := s.playerDBID(game, playerID)
	result := s.db.Model(&db.AvailablePower{}).
		Where("game_id = ? AND power_name = ? AND is_taken = ?", game.DBID, string(row.Name), false).
		Updates(map[string]any{"is_taken": true, "taken_by_player_id": claimant})
	if result.Error != nil {
		log.Warn().Err(result.Error).Str("game_id", game.ID).Msg("power claim mirror failed")
		return
	}
	if result.RowsAffected == 0 {
		log.Warn().Str("game_id", game.ID).Str("power", string(row.Name)).
			Msg("power claim mirror diverged: row already taken")
		return
	}
	s.persistPlayerState(game, playerID)
	s.syncEvents(game)
}

func (s *Server) persistPlayerState(game *Game, playerID int) {
	if s.db == nil || !s.ensureGameDBID(game) {
		return
	}
	player := game.player(playerID)
	if player == nil {
		return
	}
	if player.DBID == 0 {
		s.persistPlayer(game, playerID)
	}
	if player.DBID == 0 {
		return
	}
	err := s.db.Model(&db.Player{}).Where("id = ?", player.DBID).Updates(map[string]any{
		"is_alive":               player.IsAlive,
		"kill_count":             player.KillCount,
		"special_character":      string(player.Character),
		"special_character_used": player.CharacterUsed,
		"power2_kills":           string(player.Power),
		"power2_kills_used":      player.PowerUsed,
	}).Error
	if err != nil {
		log.Warn().Err(err).Str("game_id", game.ID).Int("player_id", playerID).
			Msg("player state mirror failed")
	}
	s.syncEvents(game)
}

func (s *Server) persistAssignments(game *Game) {
	if s.db == nil || !s.ensureGameDBID(game) {
		return
	}
	s.syncAssignments(game)
	s.syncWeapons(game)
	s.syncEvents(game)
}

func (s *Server) persistPool(game *Game) {
	if s.db == nil || !s.ensureGameDBID(game) {
		return
	}
	if err := s.db.Where("game_id = ?", game.DBID).Delete(&db.Location{}).Error; err != nil {
		log.Warn().Err(err).Str("game_id", game.ID).Msg("location mirror reset failed")
	}
	if err := s.db.Where("game_id = ?", game.DBID).Delete(&db.Weapon{}).Error; err != nil {
		log.Warn().Err(err).Str("game_id", game.ID).Msg("weapon mirror reset failed")
	}
	for i := range game.Locations {
		game.Locations[i].DBID = 0
	}
	for i := range game.Weapons {
		game.Weapons[i].DBID = 0
	}
	s.syncLocations(game)
	s.syncWeapons(game)
}

func (s *Server) syncPlayers(game *Game) {
	for i := range game.Players {
		s.persistPlayer(game, game.Players[i].ID)
		player := &game.Players[i]
		if player.DBID == 0 {
			continue
		}
		err := s.db.Model(&db.Player{}).Where("id = ?", player.DBID).Updates(map[string]any{
			"is_alive":               player.IsAlive,
			"kill_count":             player.KillCount,
			"special_character":      string(player.Character),
			"special_character_used": player.CharacterUsed,
			"power2_kills":           string(player.Power),
			"power2_kills_used":      player.PowerUsed,
		}).Error
		if err != nil {
			log.Warn().Err(err).Str("game_id", game.ID).Msg("player sync failed")
		}
	}
}

func (s *Server) syncAssignments(game *Game) {
	for i := range game.Assignments {
		a := &game.Assignments[i]
		if a.DBID == 0 {
			hunter := s.playerDBID(game, a.HunterID)
			target := s.playerDBID(game, a.TargetID)
			if hunter == nil || target == nil {
				continue
			}
			row := db.Assignment{
				GameID:   game.DBID,
				HunterID: *hunter,
				TargetID: *target,
				Location: a.Location,
				Weapon:   a.Weapon,
				IsActive: a.IsActive,
			}
			if err := s.db.Create(&row).Error; err != nil {
				log.Warn().Err(err).Str("game_id", game.ID).Msg("assignment mirror failed")
				continue
			}
			a.DBID = row.ID
			continue
		}
		err := s.db.Model(&db.Assignment{}).Where("id = ?", a.DBID).Updates(map[string]any{
			"is_active": a.IsActive,
			"location":  a.Location,
			"weapon":    a.Weapon,
		}).Error
		if err != nil {
			log.Warn().Err(err).Str("game_id", game.ID).Msg("assignment sync failed")
		}
	}
}

func (s *Server) syncWeapons(game *Game) {
	for i := range game.Weapons {
		w := &game.Weapons[i]
		if w.DBID == 0 {
			row := db.Weapon{GameID: game.DBID, Name: w.Name, IsAvailable: w.IsAvailable}
			if err := s.db.Create(&row).Error; err != nil {
				log.Warn().Err(err).Str("game_id", game.ID).Msg("weapon mirror failed")
				continue
			}
			w.DBID = row.ID
			continue
		}
		err := s.db.Model(&db.Weapon{}).Where("id = ?", w.DBID).
			Update("is_available", w.IsAvailable).Error
		if err != nil {
			log.Warn().Err(err).Str("game_id", game.ID).Msg("weapon sync failed")
		}
	}
}

func (s *Server) syncLocations(game *Game) {
	for i := range game.Locations {
		l := &game.Locations[i]
		if l.DBID != 0 {
			continue
		}
		row := db.Location{GameID: game.DBID, Name: l.Name}
		if err := s.db.Create(&row).Error; err != nil {
			log.Warn().Err(err).Str("game_id", game.ID).Msg("location mirror failed")
			continue
		}
		l.DBID = row.ID
	}
}

func (s *Server) syncPowers(game *Game) {
	for i := range game.Powers {
		p := &game.Powers[i]
		if p.DBID != 0 {
			continue
		}
		row := db.AvailablePower{GameID: game.DBID, PowerName: string(p.Name)}
		if err := s.db.Create(&row).Error; err != nil {
			log.Warn().Err(err).Str("game_id", game.ID).Msg("power mirror failed")
			continue
		}
		p.DBID = row.ID
	}
}

func (s *Server) syncEvents(game *Game) {
	for _, dbID := range game.purgedEventIDs {
		if err := s.db.Delete(&db.Event{}, dbID).Error; err != nil {
			log.Warn().Err(err).Str("game_id", game.ID).Msg("event mirror delete failed")
		}
	}
	game.purgedEventIDs = game.purgedEventIDs[:0]
	for i := range game.Events {
		s.syncEvent(game, &game.Events[i])
	}
}

func (s *Server) ensureGameDBID(game *Game) bool {
	if game.DBID != 0 {
		return true
	}
	var record db.Game
	if err := s.db.Where("code = ?", game.Code).First(&record).Error; err != nil {
		return false
	}
	game.DBID = record.ID
	return true
}

func (s *Server) playerDBID(game *Game, playerID int) *uint {
	if playerID == 0 {
		return nil
	}
	player := game.player(playerID)
	if player == nil || player.DBID == 0 {
		return nil
	}
	id := player.DBID
	return &id
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
