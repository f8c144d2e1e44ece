package engine

import (
	"errors"
	"fmt"
)

// RejectError is a client-caused illegal action (wrong turn, wrong
// state, not a participant, ...). No game state is mutated when one is
// returned.
type RejectError struct {
	Code    string
	Message string
}

func (e *RejectError) Error() string {
	return e.Message
}

func reject(code, format string, args ...interface{}) error {
	return &RejectError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// InternalError marks an invariant violation that should be
// structurally impossible; it indicates a data-integrity bug.
type InternalError struct {
	Message string
	Err     error
}

func (e *InternalError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *InternalError) Unwrap() error {
	return e.Err
}

func internal(format string, args ...interface{}) error {
	return &InternalError{Message: fmt.Sprintf(format, args...)}
}

// IsReject reports whether err is a client rejection, so the gateway
// and controllers can translate it without crashing the handling loop.
func IsReject(err error) bool {
	var re *RejectError
	return errors.As(err, &re)
}

func IsInternal(err error) bool {
	var ie *InternalError
	return errors.As(err, &ie)
}

// Rejection codes surfaced to clients.
const (
	CodeGameNotFound    = "game_not_found"
	CodeNotParticipant  = "not_participant"
	CodeWrongStatus     = "wrong_game_status"
	CodeWrongState      = "wrong_round_state"
	CodeNotYourTurn     = "not_your_turn"
	CodeTargetNotFound  = "target_not_found"
	CodeAlreadyAnswered = "already_answered"
	CodeNotYourQuestion = "not_your_question"
	CodeGuessLimit      = "guess_limit_exceeded"
	CodeSelfGuess       = "self_guess"
	CodeBadValue        = "bad_value"
	CodeNotReady        = "players_not_ready"
	CodeLobbySize       = "lobby_size"
	CodeNoCharacters    = "not_enough_characters"
)
