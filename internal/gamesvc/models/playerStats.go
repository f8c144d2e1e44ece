package models

import "time"

// PlayerStats is the per-user aggregate kept in mongo, updated
// best-effort when a game completes.
type PlayerStats struct {
	UserID      int64     `bson:"user_id" json:"user_id"`
	GamesPlayed int       `bson:"games_played" json:"games_played"`
	Wins        int       `bson:"wins" json:"wins"`
	TotalScore  int64     `bson:"total_score" json:"total_score"`
	BestScore   int       `bson:"best_score" json:"best_score"`
	WinRate     string    `bson:"win_rate" json:"win_rate"` // decimal string, 2 places
	UpdatedAt   time.Time `bson:"updated_at" json:"updated_at"`
}
