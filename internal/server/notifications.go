package server

import (
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

func (g *Game) addNotification(playerID int, typ, message string) Notification {
	n := Notification{
		ID:        uuid.NewString(),
		PlayerID:  playerID,
		Type:      typ,
		Message:   message,
		CreatedAt: timeNowUTC(),
	}
	g.Notifications = append(g.Notifications, n)
	return n
}

func (g *Game) addPublicNotification(message string) Notification {
	return g.addNotification(0, notificationPublic, message)
}

func (g *Game) addPrivateNotification(playerID int, message string) Notification {
	return g.addNotification(playerID, notificationPrivate, message)
}

func (g *Game) addEvent(ev KillEvent) *KillEvent {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = timeNowUTC()
	}
	g.Events = append(g.Events, ev)
	return &g.Events[len(g.Events)-1]
}

// pushNotifications fans freshly created notifications out to websocket
// subscribers and mirrors them to Postgres. Both are best-effort
// secondary effects: a failure here never fails the operation that
// produced the notification.
func (s *Server) pushNotifications(game *Game, notes []Notification) {
	for _, n := range notes {
		payload := map[string]any{
			"kind":      "notification",
			"type":      n.Type,
			"message":   n.Message,
			"player_id": n.PlayerID,
		}
		s.ws.Broadcast(game.ID, payload)
		if err := s.persistNotification(game, n); err != nil {
			log.Warn().Err(err).Str("game_id", game.ID).Msg("notification mirror failed")
		}
	}
}

// notificationsFor returns public notifications plus the player's private
// ones, oldest first, and marks the returned ones read.
func (g *Game) notificationsFor(playerID int) []Notification {
	var out []Notification
	for i := range g.Notifications {
		n := &g.Notifications[i]
		if n.PlayerID == 0 || n.PlayerID == playerID {
			out = append(out, *n)
			n.Read = true
		}
	}
	return out
}
