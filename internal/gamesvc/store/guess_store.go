package store

import (
	"context"
	"fmt"

	"github.com/avvvet/guesswho-services/internal/gamesvc/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

type GuessStore struct {
	db *pgxpool.Pool
}

func NewGuessStore(db *pgxpool.Pool) *GuessStore {
	return &GuessStore{db: db}
}

func (s *GuessStore) CreateGuess(ctx context.Context, g *models.Guess) (*models.Guess, error) {
	query := `
		INSERT INTO guesses (game_id, round_id, guesser_player_id, target_player_id, character_id, correct)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, game_id, round_id, guesser_player_id, target_player_id, character_id, correct, created_at
	`

	guess := &models.Guess{}
	err := s.db.QueryRow(ctx, query, g.GameID, g.RoundID, g.GuesserPlayerID, g.TargetPlayerID, g.CharacterID, g.Correct).Scan(
		&guess.ID,
		&guess.GameID,
		&guess.RoundID,
		&guess.GuesserPlayerID,
		&guess.TargetPlayerID,
		&guess.CharacterID,
		&guess.Correct,
		&guess.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create guess: %w", err)
	}

	return guess, nil
}

// CountByPlayer counts the player's guesses across the whole game; the
// guess limit is global per game, not per round.
func (s *GuessStore) CountByPlayer(ctx context.Context, gameID int64, playerID int64) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM guesses
		WHERE game_id = $1 AND guesser_player_id = $2
	`

	var count int
	if err := s.db.QueryRow(ctx, query, gameID, playerID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count guesses: %w", err)
	}

	return count, nil
}

func (s *GuessStore) GetGuessesByGameID(ctx context.Context, gameID int64) ([]*models.Guess, error) {
	query := `
		SELECT id, game_id, round_id, guesser_player_id, target_player_id, character_id, correct, created_at
		FROM guesses
		WHERE game_id = $1
		ORDER BY id
	`

	rows, err := s.db.Query(ctx, query, gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var guesses []*models.Guess
	for rows.Next() {
		var g models.Guess
		err := rows.Scan(
			&g.ID,
			&g.GameID,
			&g.RoundID,
			&g.GuesserPlayerID,
			&g.TargetPlayerID,
			&g.CharacterID,
			&g.Correct,
			&g.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		guesses = append(guesses, &g)
	}

	return guesses, nil
}
