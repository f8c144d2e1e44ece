package models

import (
	"database/sql"
	"time"
)

const (
	SecretHidden   = "hidden"
	SecretRevealed = "revealed"
)

// Secret is the hidden character assignment a player must protect.
// The hidden -> revealed transition is one way, triggered by a correct guess.
type Secret struct {
	ID          int64        `json:"id"`        // Primary key
	GameID      int64        `json:"game_id"`   // FK to games(id)
	PlayerID    int64        `json:"player_id"` // FK to game_players(id), unique per game
	CharacterID int64        `json:"character_id"`
	State       string       `json:"state"` // 'hidden', 'revealed'
	AssignedAt  time.Time    `json:"assigned_at"`
	RevealedAt  sql.NullTime `json:"revealed_at"`
}
