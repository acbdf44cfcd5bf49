package server

import (
	"math/rand"
	"net/http"
	"time"

	"gorm.io/gorm"

	"github.com/roahoki/rucakiller/internal/config"
)

type Server struct {
	store *Store
	db    *gorm.DB
	ws    *wsHub
	cfg   config.Config
	// rng is only touched inside store.UpdateGame closures, which the
	// store mutex serializes.
	rng *rand.Rand
}

func New(conn *gorm.DB, cfg config.Config) *Server {
	return &Server{
		store: NewStore(),
		db:    conn,
		ws:    newWSHub(),
		cfg:   cfg,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/games", s.handleListGames)
	mux.HandleFunc("POST /api/games", s.handleCreateGame)
	mux.HandleFunc("GET /api/games/{id}", s.handleGameSnapshot)
	mux.HandleFunc("POST /api/games/{id}/configure", s.handleConfigure)
	mux.HandleFunc("POST /api/games/{id}/join", s.handleJoin)
	mux.HandleFunc("POST /api/games/{id}/start", s.handleStart)
	mux.HandleFunc("GET /api/games/{id}/players/{playerID}/assignment", s.handleAssignment)
	mux.HandleFunc("GET /api/games/{id}/players/{playerID}/notifications", s.handleNotifications)
	mux.HandleFunc("GET /api/games/{id}/players/{playerID}/pending-attempt", s.handlePendingAttempt)
	mux.HandleFunc("POST /api/games/{id}/kills/attempt", s.handleKillAttempt)
	mux.HandleFunc("POST /api/games/{id}/kills/confirm", s.handleKillConfirm)
	mux.HandleFunc("POST /api/games/{id}/powers/claim", s.handlePowerClaim)
	mux.HandleFunc("POST /api/games/{id}/powers/detective", s.handleDetective)
	mux.HandleFunc("POST /api/games/{id}/powers/espia", s.handleEspia)
	mux.HandleFunc("POST /api/games/{id}/powers/saboteador", s.handleSaboteador)
	mux.HandleFunc("POST /api/games/{id}/powers/investigador", s.handleInvestigador)
	mux.HandleFunc("POST /api/games/{id}/powers/sicario", s.handleSicario)
	mux.HandleFunc("POST /api/games/{id}/master/login", s.handleMasterLogin)
	mux.HandleFunc("POST /api/games/{id}/master/reassign", s.handleReassign)
	mux.HandleFunc("POST /api/games/{id}/master/weapons/add", s.handleAddWeapon)
	mux.HandleFunc("POST /api/games/{id}/master/weapons/remove", s.handleRemoveWeapon)
	mux.HandleFunc("POST /api/games/{id}/master/remove-player", s.handleRemovePlayer)
	mux.HandleFunc("POST /api/games/{id}/master/pause", s.handlePause)
	mux.HandleFunc("POST /api/games/{id}/master/resume", s.handleResume)
	mux.HandleFunc("POST /api/games/{id}/master/end", s.handleEnd)
	mux.HandleFunc("GET /ws/games/{id}", s.handleWebsocket)
	return mux
}
