package server

import "time"

const (
	phaseLobby    = "lobby"
	phaseActive   = "active"
	phasePaused   = "paused"
	phaseFinished = "finished"
)

// SpecialCharacter is the one-shot role dealt to ~30% of players at start.
type SpecialCharacter string

const (
	CharacterNone       SpecialCharacter = ""
	CharacterEspia      SpecialCharacter = "espia"
	CharacterDetective  SpecialCharacter = "detective"
	CharacterSaboteador SpecialCharacter = "saboteador"
)

var specialCharacterRoster = []SpecialCharacter{
	CharacterEspia,
	CharacterDetective,
	CharacterSaboteador,
}

// Power is a claim-once ability unlocked at two confirmed kills.
type Power string

const (
	PowerNone          Power = ""
	PowerAsesinoSerial Power = "asesino_serial"
	PowerInvestigador  Power = "investigador"
	PowerSicario       Power = "sicario"
)

var claimablePowers = []Power{
	PowerAsesinoSerial,
	PowerInvestigador,
	PowerSicario,
}

const (
	eventKill           = "kill"
	eventFailedAttempt  = "failed_attempt"
	eventPowerUsed      = "power_used"
	eventSpecialUsed    = "special_used"
	eventEliminatedByGM = "eliminated_by_gm"
	eventReassigned     = "reassigned"
)

const (
	notificationPublic  = "public"
	notificationPrivate = "private"
)

type GameSummary struct {
	ID      string
	Code    string
	Phase   string
	Players int
}

type Game struct {
	ID             string
	DBID           uint
	Code           string
	Phase          string
	MasterID       int
	MasterPINHash  string
	StartTime      time.Time
	EndTime        time.Time
	WinnerID       int
	Players        []Player
	Locations      []Location
	Weapons        []Weapon
	Assignments    []Assignment
	Events         []KillEvent
	Notifications  []Notification
	Powers         []AvailablePower
	nextEntityID   int
	purgedEventIDs []uint
}

type Player struct {
	ID            int
	DBID          uint
	Name          string
	IsAlive       bool
	IsMaster      bool
	Character     SpecialCharacter
	CharacterUsed bool
	Power         Power
	PowerUsed     bool
	KillCount     int
}

type Location struct {
	ID   int
	DBID uint
	Name string
}

type Weapon struct {
	ID          int
	DBID        uint
	Name        string
	IsAvailable bool
}

// Assignment is one hunter→target edge. Rows are append-only: target
// changes deactivate the old row and create a new one, so the active set
// always reflects the current cycle. Condition-only edits update in place.
type Assignment struct {
	ID       int
	DBID     uint
	HunterID int
	TargetID int
	Location string
	Weapon   string
	IsActive bool
}

type KillEvent struct {
	ID             string
	DBID           uint
	Type           string
	KillerID       int
	VictimID       int
	Location       string
	Weapon         string
	Confirmed      bool
	LocationWaived bool
	CreatedAt      time.Time
}

type Notification struct {
	ID        string
	DBID      uint
	PlayerID  int // 0 means public
	Type      string
	Message   string
	Read      bool
	CreatedAt time.Time
}

type AvailablePower struct {
	ID      int
	DBID    uint
	Name    Power
	IsTaken bool
	TakenBy int
}

// session identifies the caller of a core operation. Handlers build it
// from the request; core code never reads ambient identity.
type session struct {
	GameID   string
	PlayerID int
	Master   bool
}

func (g *Game) nextID() int {
	g.nextEntityID++
	return g.nextEntityID
}

func (g *Game) player(id int) *Player {
	for i := range g.Players {
		if g.Players[i].ID == id {
			return &g.Players[i]
		}
	}
	return nil
}

func (g *Game) activeAssignmentByHunter(hunterID int) *Assignment {
	for i := range g.Assignments {
		if g.Assignments[i].IsActive && g.Assignments[i].HunterID == hunterID {
			return &g.Assignments[i]
		}
	}
	return nil
}

func (g *Game) activeAssignmentByTarget(targetID int) *Assignment {
	for i := range g.Assignments {
		if g.Assignments[i].IsActive && g.Assignments[i].TargetID == targetID {
			return &g.Assignments[i]
		}
	}
	return nil
}

func (g *Game) activeAssignments() []*Assignment {
	var active []*Assignment
	for i := range g.Assignments {
		if g.Assignments[i].IsActive {
			active = append(active, &g.Assignments[i])
		}
	}
	return active
}

func (g *Game) weaponByName(name string) *Weapon {
	for i := range g.Weapons {
		if equalFold(g.Weapons[i].Name, name) {
			return &g.Weapons[i]
		}
	}
	return nil
}

func (g *Game) locationByName(name string) *Location {
	for i := range g.Locations {
		if equalFold(g.Locations[i].Name, name) {
			return &g.Locations[i]
		}
	}
	return nil
}

// aliveKillers counts living non-moderator players, the population the
// hunt cycle must cover.
func (g *Game) aliveKillers() []Player {
	var alive []Player
	for _, p := range g.Players {
		if p.IsAlive && !p.IsMaster {
			alive = append(alive, p)
		}
	}
	return alive
}

func (g *Game) pendingAttemptByHunter(hunterID int) *KillEvent {
	for i := range g.Events {
		ev := &g.Events[i]
		if ev.Type == eventKill && !ev.Confirmed && ev.KillerID == hunterID {
			return ev
		}
	}
	return nil
}

func (g *Game) pendingAttemptAgainst(victimID int) *KillEvent {
	for i := range g.Events {
		ev := &g.Events[i]
		if ev.Type == eventKill && !ev.Confirmed && ev.VictimID == victimID {
			return ev
		}
	}
	return nil
}

func (g *Game) pendingAttemptFor(eventID string, victimID int) *KillEvent {
	for i := range g.Events {
		ev := &g.Events[i]
		if ev.ID == eventID && ev.Type == eventKill && !ev.Confirmed && ev.VictimID == victimID {
			return ev
		}
	}
	return nil
}
