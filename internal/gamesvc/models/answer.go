package models

import "time"

const (
	AnswerYes    = "yes"
	AnswerNo     = "no"
	AnswerUnsure = "unsure"
)

type Answer struct {
	ID                int64     `json:"id"`          // Primary key
	QuestionID        int64     `json:"question_id"` // FK to questions(id), unique - one answer per question
	ResponderPlayerID int64     `json:"responder_player_id"`
	Value             string    `json:"value"` // 'yes', 'no', 'unsure'
	Note              string    `json:"note"`  // optional free text
	CreatedAt         time.Time `json:"created_at"`
}
