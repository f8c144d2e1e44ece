package models

import (
	"database/sql"
	"time"
)

type Question struct {
	ID             int64         `json:"id"`       // Primary key
	GameID         int64         `json:"game_id"`  // FK to games(id)
	RoundID        int64         `json:"round_id"` // FK to rounds(id)
	AskerPlayerID  int64         `json:"asker_player_id"`
	TargetPlayerID sql.NullInt64 `json:"target_player_id"` // null means open to anyone but the asker
	Text           string        `json:"text"`
	CreatedAt      time.Time     `json:"created_at"`
}
