package server

// snapshot is the public game view: roster, pool and phase. It never
// exposes assignments or the hunt order; those stay per-player.
func (s *Server) snapshot(game *Game) map[string]any {
	players := make([]map[string]any, 0, len(game.Players))
	alive := 0
	for _, p := range game.Players {
		if p.IsAlive && !p.IsMaster {
			alive++
		}
		players = append(players, map[string]any{
			"id":         p.ID,
			"name":       p.Name,
			"is_alive":   p.IsAlive,
			"is_master":  p.IsMaster,
			"kill_count": p.KillCount,
		})
	}
	locations := make([]map[string]any, 0, len(game.Locations))
	for _, l := range game.Locations {
		locations = append(locations, map[string]any{
			"id":   l.ID,
			"name": l.Name,
		})
	}
	weapons := make([]map[string]any, 0, len(game.Weapons))
	for _, w := range game.Weapons {
		weapons = append(weapons, map[string]any{
			"id":           w.ID,
			"name":         w.Name,
			"is_available": w.IsAvailable,
		})
	}
	powers := make([]map[string]any, 0, len(game.Powers))
	for _, p := range game.Powers {
		powers = append(powers, map[string]any{
			"name":     string(p.Name),
			"is_taken": p.IsTaken,
		})
	}

	out := map[string]any{
		"game_id":   game.ID,
		"code":      game.Code,
		"status":    game.Phase,
		"players":   players,
		"alive":     alive,
		"locations": locations,
		"weapons":   weapons,
		"powers":    powers,
	}
	if !game.StartTime.IsZero() {
		out["start_time"] = game.StartTime
	}
	if !game.EndTime.IsZero() {
		out["end_time"] = game.EndTime
	}
	if game.WinnerID != 0 {
		if winner := game.player(game.WinnerID); winner != nil {
			out["winner"] = winner.Name
		}
	}
	return out
}
