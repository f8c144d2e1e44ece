package comm

import (
	"encoding/json"

	"github.com/avvvet/guesswho-services/internal/gamesvc/models"
)

type WSMessage struct {
	Type     string          `json:"type"` // e.g. "join-room", "ask-question"
	Data     json.RawMessage `json:"data"`
	SocketId string          `json:"socketid"`
	RoomCode string          `json:"roomcode,omitempty"`
}

// Outbound event types pushed to web clients.
const (
	EventLobbyUpdate       = "lobbyUpdate"
	EventPlayerJoined      = "playerJoined"
	EventPlayerLeft        = "playerLeft"
	EventGameStarted       = "gameStarted"
	EventQuestionAsked     = "questionAsked"
	EventAnswerSubmitted   = "answerSubmitted"
	EventGuessResult       = "guessResult"
	EventGameOver          = "gameOver"
	EventCharacterAssigned = "characterAssigned" // private, single socket
	EventError             = "error"
)

type LobbyData struct {
	Game    *models.Game         `json:"game"`
	Players []*models.GamePlayer `json:"players"`
}

type PlayerEvent struct {
	RoomCode string `json:"room_code"`
	PlayerId int64  `json:"player_id"`
	Username string `json:"username"`
}

type GameStartedData struct {
	Game         *models.Game         `json:"game"`
	Players      []*models.GamePlayer `json:"players"`
	Round        *models.Round        `json:"round"`
	ActivePlayer int64                `json:"active_player_id"`
}

type CharacterAssignedData struct {
	PlayerId  int64             `json:"player_id"`
	Character *models.Character `json:"character"`
}

type QuestionData struct {
	Question     *models.Question `json:"question"`
	Round        *models.Round    `json:"round"`
	ActivePlayer int64            `json:"active_player_id"`
}

type AnswerData struct {
	Answer       *models.Answer `json:"answer"`
	Round        *models.Round  `json:"round"`
	ActivePlayer int64          `json:"active_player_id"`
}

type GuessResultData struct {
	Guess        *models.Guess `json:"guess"`
	IsCorrect    bool          `json:"is_correct"`
	GuesserScore int           `json:"guesser_score"`
	ActivePlayer int64         `json:"active_player_id"`
	GameOver     bool          `json:"game_over"`
}

type GameOverData struct {
	Game       *models.Game         `json:"game"`
	WinnerId   int64                `json:"winner_player_id"`
	Placements []*models.GamePlayer `json:"placements"`
}

type ErrorData struct {
	Message string `json:"message"`
}
