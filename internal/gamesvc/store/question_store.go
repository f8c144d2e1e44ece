package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/avvvet/guesswho-services/internal/gamesvc/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type QuestionStore struct {
	db *pgxpool.Pool
}

func NewQuestionStore(db *pgxpool.Pool) *QuestionStore {
	return &QuestionStore{db: db}
}

func (s *QuestionStore) CreateQuestion(ctx context.Context, q *models.Question) (*models.Question, error) {
	query := `
		INSERT INTO questions (game_id, round_id, asker_player_id, target_player_id, text)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, game_id, round_id, asker_player_id, target_player_id, text, created_at
	`

	question := &models.Question{}
	err := s.db.QueryRow(ctx, query, q.GameID, q.RoundID, q.AskerPlayerID, q.TargetPlayerID, q.Text).Scan(
		&question.ID,
		&question.GameID,
		&question.RoundID,
		&question.AskerPlayerID,
		&question.TargetPlayerID,
		&question.Text,
		&question.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create question: %w", err)
	}

	return question, nil
}

func (s *QuestionStore) GetQuestionByID(ctx context.Context, questionID int64) (*models.Question, error) {
	query := `
		SELECT id, game_id, round_id, asker_player_id, target_player_id, text, created_at
		FROM questions
		WHERE id = $1
	`

	question := &models.Question{}
	err := s.db.QueryRow(ctx, query, questionID).Scan(
		&question.ID,
		&question.GameID,
		&question.RoundID,
		&question.AskerPlayerID,
		&question.TargetPlayerID,
		&question.Text,
		&question.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get question by ID: %w", err)
	}

	return question, nil
}

func (s *QuestionStore) GetQuestionsByGameID(ctx context.Context, gameID int64) ([]*models.Question, error) {
	query := `
		SELECT id, game_id, round_id, asker_player_id, target_player_id, text, created_at
		FROM questions
		WHERE game_id = $1
		ORDER BY id
	`

	rows, err := s.db.Query(ctx, query, gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []*models.Question
	for rows.Next() {
		var q models.Question
		err := rows.Scan(
			&q.ID,
			&q.GameID,
			&q.RoundID,
			&q.AskerPlayerID,
			&q.TargetPlayerID,
			&q.Text,
			&q.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		questions = append(questions, &q)
	}

	return questions, nil
}
