package models

import (
	"database/sql"
	"time"
)

const (
	GameStatusLobby      = "lobby"
	GameStatusInProgress = "in_progress"
	GameStatusCompleted  = "completed"
)

type Game struct {
	ID             int64         `json:"id"`        // Primary key
	RoomCode       string        `json:"room_code"` // Unique, stored uppercase
	Status         string        `json:"status"`    // 'lobby', 'in_progress', 'completed'
	WinnerPlayerID sql.NullInt64 `json:"winner_player_id"`
	CreatedAt      time.Time     `json:"created_at"`
	StartedAt      sql.NullTime  `json:"started_at"`
	EndedAt        sql.NullTime  `json:"ended_at"`
}
