package models

import "time"

type Guess struct {
	ID              int64     `json:"id"`       // Primary key
	GameID          int64     `json:"game_id"`  // FK to games(id)
	RoundID         int64     `json:"round_id"` // FK to rounds(id)
	GuesserPlayerID int64     `json:"guesser_player_id"`
	TargetPlayerID  int64     `json:"target_player_id"`
	CharacterID     int64     `json:"character_id"` // the character named by the guesser
	Correct         bool      `json:"correct"`
	CreatedAt       time.Time `json:"created_at"`
}
