package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avvvet/guesswho-services/internal/gamesvc/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type RoundStore struct {
	db *pgxpool.Pool
}

func NewRoundStore(db *pgxpool.Pool) *RoundStore {
	return &RoundStore{db: db}
}

func (s *RoundStore) CreateRound(ctx context.Context, r *models.Round) (*models.Round, error) {
	query := `
		INSERT INTO rounds (game_id, round_no, active_player_id, state, started_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, game_id, round_no, active_player_id, state, started_at, ended_at, duration_ms
	`

	round := &models.Round{}
	err := s.db.QueryRow(ctx, query, r.GameID, r.RoundNo, r.ActivePlayerID, r.State, r.StartedAt).Scan(
		&round.ID,
		&round.GameID,
		&round.RoundNo,
		&round.ActivePlayerID,
		&round.State,
		&round.StartedAt,
		&round.EndedAt,
		&round.DurationMs,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create round: %w", err)
	}

	return round, nil
}

// GetCurrentRound returns the latest round by round number for the game.
func (s *RoundStore) GetCurrentRound(ctx context.Context, gameID int64) (*models.Round, error) {
	query := `
		SELECT id, game_id, round_no, active_player_id, state, started_at, ended_at, duration_ms
		FROM rounds
		WHERE game_id = $1
		ORDER BY round_no DESC
		LIMIT 1
	`

	round := &models.Round{}
	err := s.db.QueryRow(ctx, query, gameID).Scan(
		&round.ID,
		&round.GameID,
		&round.RoundNo,
		&round.ActivePlayerID,
		&round.State,
		&round.StartedAt,
		&round.EndedAt,
		&round.DurationMs,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // No round yet
		}
		return nil, fmt.Errorf("failed to get current round: %w", err)
	}

	return round, nil
}

func (s *RoundStore) SetState(ctx context.Context, roundID int64, state string, activePlayerID int64) error {
	query := `
		UPDATE rounds
		SET state = $2, active_player_id = $3
		WHERE id = $1
	`

	if _, err := s.db.Exec(ctx, query, roundID, state, activePlayerID); err != nil {
		return fmt.Errorf("failed to update round %d: %w", roundID, err)
	}

	return nil
}

func (s *RoundStore) CloseRound(ctx context.Context, roundID int64, endedAt time.Time, durationMs int64) error {
	query := `
		UPDATE rounds
		SET state = $2, ended_at = $3, duration_ms = $4
		WHERE id = $1
	`

	if _, err := s.db.Exec(ctx, query, roundID, models.RoundStateClosed, endedAt, durationMs); err != nil {
		return fmt.Errorf("failed to close round %d: %w", roundID, err)
	}

	return nil
}
