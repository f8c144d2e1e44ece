package engine

import (
	"context"
	"time"

	"github.com/avvvet/guesswho-services/internal/gamesvc/models"
)

// Store contracts the engine runs against; the pgx-backed services
// satisfy them in production, tests use in-memory fakes.

type GameStore interface {
	GetGameByCode(ctx context.Context, roomCode string) (*models.Game, error)
	MarkInProgress(ctx context.Context, gameID int64, startedAt time.Time) error
	MarkCompleted(ctx context.Context, gameID int64, winnerPlayerID int64, endedAt time.Time) error
}

type PlayerStore interface {
	GetPlayersByGameID(ctx context.Context, gameID int64) ([]*models.GamePlayer, error)
	GetPlayerByGameAndUser(ctx context.Context, gameID int64, userID int64) (*models.GamePlayer, error)
	AddScore(ctx context.Context, playerID int64, delta int) (int, error)
	SetReady(ctx context.Context, playerID int64, ready bool) error
	MarkLeft(ctx context.Context, playerID int64, leftAt time.Time) error
	SetPlacement(ctx context.Context, playerID int64, placement int) error
}

type RoundStore interface {
	CreateRound(ctx context.Context, r *models.Round) (*models.Round, error)
	GetCurrentRound(ctx context.Context, gameID int64) (*models.Round, error)
	SetState(ctx context.Context, roundID int64, state string, activePlayerID int64) error
	CloseRound(ctx context.Context, roundID int64, endedAt time.Time, durationMs int64) error
}

type QuestionStore interface {
	CreateQuestion(ctx context.Context, q *models.Question) (*models.Question, error)
	GetQuestionByID(ctx context.Context, questionID int64) (*models.Question, error)
	GetQuestionsByGameID(ctx context.Context, gameID int64) ([]*models.Question, error)
}

type AnswerStore interface {
	CreateAnswer(ctx context.Context, a *models.Answer) (*models.Answer, error)
	GetAnswerByQuestionID(ctx context.Context, questionID int64) (*models.Answer, error)
	GetAnswersByGameID(ctx context.Context, gameID int64) ([]*models.Answer, error)
}

type GuessStore interface {
	CreateGuess(ctx context.Context, g *models.Guess) (*models.Guess, error)
	CountByPlayer(ctx context.Context, gameID int64, playerID int64) (int, error)
}

type SecretStore interface {
	CreateSecret(ctx context.Context, s *models.Secret) (*models.Secret, error)
	GetByPlayer(ctx context.Context, gameID int64, playerID int64) (*models.Secret, error)
	GetSecretsByGameID(ctx context.Context, gameID int64) ([]*models.Secret, error)
	Reveal(ctx context.Context, secretID int64, revealedAt time.Time) error
}

type CharacterStore interface {
	GetActiveCharacters(ctx context.Context) ([]*models.Character, error)
	GetCharacterByID(ctx context.Context, characterID int64) (*models.Character, error)
}

// StatsRecorder folds finished games into per-user aggregates;
// failures are logged, never surfaced.
type StatsRecorder interface {
	RecordResult(ctx context.Context, userID int64, score int, won bool) error
}
