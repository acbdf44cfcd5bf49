package server

import (
	"fmt"
	"strings"
	"sync"
)

const maxCodeAttempts = 5

// Store is the authoritative in-memory state. Every core operation runs
// inside UpdateGame, so mutations on a single game are serialized by the
// store mutex; Postgres only mirrors what happened here.
type Store struct {
	mu           sync.Mutex
	nextID       int
	nextPlayerID int
	games        map[string]*Game
	codeGen      func() string
}

func NewStore() *Store {
	return &Store{
		nextID:       1,
		nextPlayerID: 1,
		games:        make(map[string]*Game),
		codeGen:      newGameCode,
	}
}

// CreateGame allocates a unique join code (bounded retries) and creates
// the game together with its GameMaster as one unit.
func (s *Store) CreateGame(masterName, pinHash string) (*Game, *Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	code := ""
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		candidate := s.codeGen()
		if !s.codeExistsLocked(candidate) {
			code = candidate
			break
		}
	}
	if code == "" {
		return nil, nil, storageError("No se pudo generar un código único. Intenta nuevamente.")
	}

	id := fmt.Sprintf("game-%d", s.nextID)
	s.nextID++
	game := &Game{
		ID:            id,
		Code:          code,
		Phase:         phaseLobby,
		MasterPINHash: pinHash,
	}
	master := Player{
		ID:       s.nextPlayerID,
		Name:     masterName,
		IsAlive:  true,
		IsMaster: true,
	}
	s.nextPlayerID++
	game.Players = append(game.Players, master)
	game.MasterID = master.ID
	s.games[id] = game
	return game, &game.Players[0], nil
}

func (s *Store) codeExistsLocked(code string) bool {
	for _, game := range s.games {
		if game.Code == code {
			return true
		}
	}
	return false
}

func (s *Store) GetGame(id string) (*Game, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	game, ok := s.games[id]
	return game, ok
}

func (s *Store) FindGameByCode(code string) (*Game, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	normalized := strings.ToUpper(strings.TrimSpace(code))
	for _, game := range s.games {
		if game.Code == normalized {
			return game, true
		}
	}
	return nil, false
}

// resolveLocked accepts either a game id or a join code.
func (s *Store) resolveLocked(idOrCode string) (*Game, bool) {
	if game, ok := s.games[idOrCode]; ok {
		return game, true
	}
	normalized := strings.ToUpper(strings.TrimSpace(idOrCode))
	for _, game := range s.games {
		if game.Code == normalized {
			return game, true
		}
	}
	return nil, false
}

// UpdateGame runs fn on the game under the store lock. It is the only
// write path for game state.
func (s *Store) UpdateGame(idOrCode string, fn func(game *Game) error) (*Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	game, ok := s.resolveLocked(idOrCode)
	if !ok {
		return nil, notFoundError("Partida no encontrada")
	}
	if err := fn(game); err != nil {
		return game, err
	}
	return game, nil
}

func (s *Store) AddPlayer(idOrCode, name string) (*Game, *Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	game, ok := s.resolveLocked(idOrCode)
	if !ok {
		return nil, nil, notFoundError("Código de partida inválido o no existe")
	}
	if game.Phase != phaseLobby {
		return nil, nil, preconditionError("La partida ya comenzó o finalizó")
	}
	for i := range game.Players {
		if equalFold(game.Players[i].Name, name) {
			return nil, nil, preconditionError("Ya existe un jugador con ese nombre en esta partida")
		}
	}

	player := Player{
		ID:      s.nextPlayerID,
		Name:    name,
		IsAlive: true,
	}
	s.nextPlayerID++
	game.Players = append(game.Players, player)
	return game, &game.Players[len(game.Players)-1], nil
}

// ViewGame runs fn on the game under the store lock without treating it
// as a mutation. Read handlers use it so snapshots never race an
// UpdateGame closure.
func (s *Store) ViewGame(idOrCode string, fn func(game *Game) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	game, ok := s.resolveLocked(idOrCode)
	if !ok {
		return notFoundError("Partida no encontrada")
	}
	return fn(game)
}

func (s *Store) ListGameSummaries() []GameSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := make([]GameSummary, 0, len(s.games))
	for _, game := range s.games {
		list = append(list, GameSummary{
			ID:      game.ID,
			Code:    game.Code,
			Phase:   game.Phase,
			Players: len(game.Players),
		})
	}
	return list
}
