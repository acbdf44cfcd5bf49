package db

import (
	"time"

	"gorm.io/datatypes"
)

type Game struct {
	ID        uint       `gorm:"primaryKey"`
	Code      string     `gorm:"size:12;uniqueIndex;not null"`
	Status    string     `gorm:"size:32;not null"`
	MasterID  *uint      `gorm:"index"`
	MasterPIN string     `gorm:"size:255"`
	StartTime *time.Time
	EndTime   *time.Time
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
	Players   []Player
	Events    []Event
}

type Player struct {
	ID                   uint      `gorm:"primaryKey"`
	GameID               uint      `gorm:"index;not null;uniqueIndex:idx_players_game_name"`
	Name                 string    `gorm:"size:64;not null;uniqueIndex:idx_players_game_name"`
	IsAlive              bool      `gorm:"not null;default:true"`
	IsGameMaster         bool      `gorm:"not null;default:false"`
	SpecialCharacter     string    `gorm:"size:32"`
	SpecialCharacterUsed bool      `gorm:"not null;default:false"`
	Power2Kills          string    `gorm:"size:32"`
	Power2KillsUsed      bool      `gorm:"not null;default:false"`
	KillCount            int       `gorm:"not null;default:0"`
	CreatedAt            time.Time `gorm:"not null"`
	UpdatedAt            time.Time `gorm:"not null"`
}

type Location struct {
	ID        uint      `gorm:"primaryKey"`
	GameID    uint      `gorm:"index;not null"`
	Name      string    `gorm:"size:80;not null"`
	CreatedAt time.Time `gorm:"not null"`
}

type Weapon struct {
	ID          uint      `gorm:"primaryKey"`
	GameID      uint      `gorm:"index;not null"`
	Name        string    `gorm:"size:80;not null"`
	IsAvailable bool      `gorm:"not null;default:true"`
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`
}

type Assignment struct {
	ID        uint      `gorm:"primaryKey"`
	GameID    uint      `gorm:"index;not null"`
	HunterID  uint      `gorm:"index;not null"`
	TargetID  uint      `gorm:"index;not null"`
	Location  string    `gorm:"size:80;not null"`
	Weapon    string    `gorm:"size:80;not null"`
	IsActive  bool      `gorm:"index;not null;default:true"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

type Event struct {
	ID        uint           `gorm:"primaryKey"`
	GameID    uint           `gorm:"index;not null"`
	EventType string         `gorm:"size:32;not null"`
	KillerID  *uint          `gorm:"index"`
	VictimID  *uint          `gorm:"index"`
	Location  string         `gorm:"size:80"`
	Weapon    string         `gorm:"size:80"`
	Confirmed bool           `gorm:"not null;default:false"`
	Payload   datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt time.Time      `gorm:"not null"`
	UpdatedAt time.Time      `gorm:"not null"`
}

type Notification struct {
	ID        uint      `gorm:"primaryKey"`
	GameID    uint      `gorm:"index;not null"`
	PlayerID  *uint     `gorm:"index"`
	Type      string    `gorm:"size:16;not null"`
	Message   string    `gorm:"size:500;not null"`
	Read      bool      `gorm:"not null;default:false"`
	CreatedAt time.Time `gorm:"not null"`
}

type AvailablePower struct {
	ID              uint      `gorm:"primaryKey"`
	GameID          uint      `gorm:"index;not null;uniqueIndex:idx_powers_game_name"`
	PowerName       string    `gorm:"size:32;not null;uniqueIndex:idx_powers_game_name"`
	IsTaken         bool      `gorm:"not null;default:false"`
	TakenByPlayerID *uint     `gorm:"index"`
	CreatedAt       time.Time `gorm:"not null"`
	UpdatedAt       time.Time `gorm:"not null"`
}
