package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/avvvet/guesswho-services/internal/gamesvc/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrQuestionAlreadyAnswered is returned when a second answer is
// submitted for a question; a question accepts at most one answer ever.
var ErrQuestionAlreadyAnswered = errors.New("question already answered")

type AnswerStore struct {
	db *pgxpool.Pool
}

func NewAnswerStore(db *pgxpool.Pool) *AnswerStore {
	return &AnswerStore{db: db}
}

func (s *AnswerStore) CreateAnswer(ctx context.Context, a *models.Answer) (*models.Answer, error) {
	query := `
		INSERT INTO answers (question_id, responder_player_id, value, note)
		VALUES ($1, $2, $3, $4)
		RETURNING id, question_id, responder_player_id, value, note, created_at
	`

	answer := &models.Answer{}
	err := s.db.QueryRow(ctx, query, a.QuestionID, a.ResponderPlayerID, a.Value, a.Note).Scan(
		&answer.ID,
		&answer.QuestionID,
		&answer.ResponderPlayerID,
		&answer.Value,
		&answer.Note,
		&answer.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == "unique_question_answer" {
			return nil, ErrQuestionAlreadyAnswered
		}
		return nil, fmt.Errorf("failed to create answer: %w", err)
	}

	return answer, nil
}

func (s *AnswerStore) GetAnswerByQuestionID(ctx context.Context, questionID int64) (*models.Answer, error) {
	query := `
		SELECT id, question_id, responder_player_id, value, note, created_at
		FROM answers
		WHERE question_id = $1
		LIMIT 1
	`

	answer := &models.Answer{}
	err := s.db.QueryRow(ctx, query, questionID).Scan(
		&answer.ID,
		&answer.QuestionID,
		&answer.ResponderPlayerID,
		&answer.Value,
		&answer.Note,
		&answer.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get answer by question ID: %w", err)
	}

	return answer, nil
}

func (s *AnswerStore) GetAnswersByGameID(ctx context.Context, gameID int64) ([]*models.Answer, error) {
	query := `
		SELECT a.id, a.question_id, a.responder_player_id, a.value, a.note, a.created_at
		FROM answers a
		JOIN questions q ON q.id = a.question_id
		WHERE q.game_id = $1
		ORDER BY a.id
	`

	rows, err := s.db.Query(ctx, query, gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var answers []*models.Answer
	for rows.Next() {
		var a models.Answer
		err := rows.Scan(
			&a.ID,
			&a.QuestionID,
			&a.ResponderPlayerID,
			&a.Value,
			&a.Note,
			&a.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		answers = append(answers, &a)
	}

	return answers, nil
}
