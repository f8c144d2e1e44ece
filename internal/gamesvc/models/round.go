package models

import (
	"database/sql"
	"time"
)

const (
	RoundStateAwaitingQuestion = "awaiting_question"
	RoundStateAwaitingAnswer   = "awaiting_answer"
	RoundStateClosed           = "closed"
)

type Round struct {
	ID             int64         `json:"id"`       // Primary key
	GameID         int64         `json:"game_id"`  // FK to games(id)
	RoundNo        int           `json:"round_no"` // sequential, 1-based
	ActivePlayerID int64         `json:"active_player_id"`
	State          string        `json:"state"` // 'awaiting_question', 'awaiting_answer', 'closed'
	StartedAt      time.Time     `json:"started_at"`
	EndedAt        sql.NullTime  `json:"ended_at"`
	DurationMs     sql.NullInt64 `json:"duration_ms"`
}
