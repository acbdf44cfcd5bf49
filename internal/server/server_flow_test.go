package server

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/gorilla/websocket"

	"github.com/roahoki/rucakiller/internal/config"
)

func newFlowServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := New(nil, config.Default())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func TestCreateGameEndpoint(t *testing.T) {
	ts := newFlowServer(t)

	gameID, code, masterID := createGame(t, ts)
	if gameID == "" || len(code) != gameCodeLength || masterID == 0 {
		t.Fatalf("bad create response: id=%q code=%q master=%d", gameID, code, masterID)
	}

	snapshot := fetchSnapshot(t, ts, gameID)
	if snapshot["status"] != phaseLobby {
		t.Fatalf("expected lobby, got %v", snapshot["status"])
	}
}

func TestCreateGameValidation(t *testing.T) {
	ts := newFlowServer(t)

	resp := doRequest(t, ts, http.MethodPost, "/api/games", map[string]string{
		"master_name": "GM",
		"pin":         "12",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("short PIN: expected %d, got %d", http.StatusBadRequest, resp.StatusCode)
	}

	resp = doRequest(t, ts, http.MethodPost, "/api/games", map[string]string{
		"master_name": "",
		"pin":         testPIN,
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("empty name: expected %d, got %d", http.StatusBadRequest, resp.StatusCode)
	}
}

func TestJoinByCode(t *testing.T) {
	ts := newFlowServer(t)
	_, code, _ := createGame(t, ts)

	playerID := joinPlayer(t, ts, code, "Ana")
	if playerID == 0 {
		t.Fatal("expected player id")
	}

	resp := doRequest(t, ts, http.MethodPost, "/api/games/"+code+"/join", map[string]string{
		"name": "ana",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("duplicate name: expected %d, got %d", http.StatusBadRequest, resp.StatusCode)
	}

	resp = doRequest(t, ts, http.MethodPost, "/api/games/NOCODE/join", map[string]string{
		"name": "Beto",
	})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown game: expected %d, got %d", http.StatusNotFound, resp.StatusCode)
	}
}

func TestMasterLogin(t *testing.T) {
	ts := newFlowServer(t)
	_, code, masterID := createGame(t, ts)

	resp := doRequest(t, ts, http.MethodPost, "/api/games/"+code+"/master/login", map[string]string{
		"pin": "9999",
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("wrong PIN: expected %d, got %d", http.StatusUnauthorized, resp.StatusCode)
	}

	resp = doRequest(t, ts, http.MethodPost, "/api/games/"+code+"/master/login", map[string]string{
		"pin": testPIN,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login: expected %d, got %d", http.StatusOK, resp.StatusCode)
	}
	body := decodeBody(t, resp)
	if int(body["master_id"].(float64)) != masterID {
		t.Fatalf("expected master %d, got %v", masterID, body["master_id"])
	}
}

func TestMasterOnlyRoutes(t *testing.T) {
	ts := newFlowServer(t)
	gameID, _, _ := createGame(t, ts)
	playerID := joinPlayer(t, ts, gameID, "Ana")

	resp := doRequest(t, ts, http.MethodPost, "/api/games/"+gameID+"/start", map[string]int{
		"player_id": playerID,
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("player start: expected %d, got %d", http.StatusBadRequest, resp.StatusCode)
	}

	resp = doRequest(t, ts, http.MethodPost, "/api/games/"+gameID+"/configure", map[string]any{
		"player_id": playerID,
		"locations": testLocations,
		"weapons":   testWeapons,
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("player configure: expected %d, got %d", http.StatusBadRequest, resp.StatusCode)
	}
}

func TestFullKillFlow(t *testing.T) {
	ts := newFlowServer(t)
	gameID, _, masterID := createGame(t, ts)

	names := []string{"Ana", "Beto", "Carla", "Diego"}
	ids := make(map[string]int, len(names))
	for _, name := range names {
		ids[name] = joinPlayer(t, ts, gameID, name)
	}
	configureGame(t, ts, gameID, masterID)
	startGameHTTP(t, ts, gameID, masterID)

	snapshot := fetchSnapshot(t, ts, gameID)
	if snapshot["status"] != phaseActive {
		t.Fatalf("expected active, got %v", snapshot["status"])
	}
	if int(snapshot["alive"].(float64)) != len(names) {
		t.Fatalf("expected %d alive, got %v", len(names), snapshot["alive"])
	}

	// Walk the cycle through each player's own assignment view.
	targets := make(map[int]int, len(names))
	for _, id := range ids {
		view := fetchAssignment(t, ts, gameID, id)
		targets[id] = int(view["target_id"].(float64))
	}
	seen := map[int]bool{}
	current := ids["Ana"]
	for range targets {
		if seen[current] {
			t.Fatal("assignment views do not form a single cycle")
		}
		seen[current] = true
		current = targets[current]
	}
	if current != ids["Ana"] {
		t.Fatal("assignment views do not close the cycle")
	}

	hunter := ids["Ana"]
	victim := targets[hunter]

	// Attempting someone other than the assigned target is refused.
	wrong := 0
	for _, id := range ids {
		if id != hunter && id != victim {
			wrong = id
			break
		}
	}
	resp := doRequest(t, ts, http.MethodPost, "/api/games/"+gameID+"/kills/attempt", map[string]int{
		"player_id": hunter,
		"target_id": wrong,
	})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("wrong target: expected %d, got %d", http.StatusNotFound, resp.StatusCode)
	}

	resp = doRequest(t, ts, http.MethodPost, "/api/games/"+gameID+"/kills/attempt", map[string]int{
		"player_id": hunter,
		"target_id": victim,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("attempt: expected %d, got %d", http.StatusCreated, resp.StatusCode)
	}
	eventID := decodeBody(t, resp)["event_id"].(string)

	// The victim discovers the attempt by polling.
	resp = doRequest(t, ts, http.MethodGet,
		"/api/games/"+gameID+"/players/"+strconv.Itoa(victim)+"/pending-attempt", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("pending poll: expected %d, got %d", http.StatusOK, resp.StatusCode)
	}
	pending := decodeBody(t, resp)
	if pending["pending"] != true || pending["event_id"] != eventID {
		t.Fatalf("bad pending view: %v", pending)
	}

	resp = doRequest(t, ts, http.MethodPost, "/api/games/"+gameID+"/kills/confirm", map[string]any{
		"player_id": victim,
		"event_id":  eventID,
		"confirmed": true,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("confirm: expected %d, got %d", http.StatusOK, resp.StatusCode)
	}

	snapshot = fetchSnapshot(t, ts, gameID)
	if int(snapshot["alive"].(float64)) != len(names)-1 {
		t.Fatalf("expected %d alive, got %v", len(names)-1, snapshot["alive"])
	}

	// The hunter inherited the victim's target.
	view := fetchAssignment(t, ts, gameID, hunter)
	if int(view["target_id"].(float64)) != targets[victim] {
		t.Fatalf("expected inherited target %d, got %v", targets[victim], view["target_id"])
	}

	// The hunter's notifications include the private new-target note.
	resp = doRequest(t, ts, http.MethodGet,
		"/api/games/"+gameID+"/players/"+strconv.Itoa(hunter)+"/notifications", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("notifications: expected %d, got %d", http.StatusOK, resp.StatusCode)
	}
	notes := decodeBody(t, resp)["notifications"].([]any)
	found := false
	for _, raw := range notes {
		n := raw.(map[string]any)
		if msg, ok := n["message"].(string); ok && strings.Contains(msg, "Tu nuevo objetivo es") {
			found = true
		}
	}
	if !found {
		t.Fatal("hunter never told their new target")
	}
}

func TestWebsocketNotifications(t *testing.T) {
	ts := newFlowServer(t)
	gameID, _, _ := createGame(t, ts)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/games/" + gameID
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	joinPlayer(t, ts, gameID, "Ana")

	var payload map[string]any
	if err := conn.ReadJSON(&payload); err != nil {
		t.Fatalf("read: %v", err)
	}
	if payload["kind"] != "player_joined" || payload["player_name"] != "Ana" {
		t.Fatalf("unexpected payload: %v", payload)
	}
}

func TestWebsocketUnknownGame(t *testing.T) {
	ts := newFlowServer(t)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/games/game-999"
	if _, _, err := websocket.DefaultDialer.Dial(wsURL, nil); err == nil {
		t.Fatal("expected dial failure for unknown game")
	}
}
