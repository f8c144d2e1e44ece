package models

import (
	"database/sql"
	"time"
)

type GamePlayer struct {
	ID        int64         `json:"id"`      // Primary key
	GameID    int64         `json:"game_id"` // FK to games(id)
	UserID    sql.NullInt64 `json:"user_id"` // FK to users(user_id), null for guests
	Username  string        `json:"username"`
	Score     int           `json:"score"` // never negative, floored at 0
	Ready     bool          `json:"ready"`
	LeftAt    sql.NullTime  `json:"left_at"`   // null means the seat is active
	Placement sql.NullInt64 `json:"placement"` // assigned at game end
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// Active reports whether the player still holds the seat.
func (p *GamePlayer) Active() bool {
	return !p.LeftAt.Valid
}
