package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/avvvet/guesswho-services/internal/gamesvc/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type GameStore struct {
	db *pgxpool.Pool
}

func NewGameStore(db *pgxpool.Pool) *GameStore {
	return &GameStore{db: db}
}

// NormalizeRoomCode trims surrounding whitespace and uppercases the code.
// Every lookup and comparison goes through this first.
func NormalizeRoomCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (s *GameStore) CreateGame(ctx context.Context, roomCode string) (*models.Game, error) {
	query := `
		INSERT INTO games (room_code, status)
		VALUES ($1, $2)
		RETURNING id, room_code, status, winner_player_id, created_at, started_at, ended_at
	`

	game := &models.Game{}
	err := s.db.QueryRow(ctx, query, NormalizeRoomCode(roomCode), models.GameStatusLobby).Scan(
		&game.ID,
		&game.RoomCode,
		&game.Status,
		&game.WinnerPlayerID,
		&game.CreatedAt,
		&game.StartedAt,
		&game.EndedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create game: %w", err)
	}

	return game, nil
}

func (s *GameStore) GetGameByCode(ctx context.Context, roomCode string) (*models.Game, error) {
	query := `
		SELECT id, room_code, status, winner_player_id, created_at, started_at, ended_at
		FROM games
		WHERE room_code = $1
		LIMIT 1
	`

	game := &models.Game{}
	err := s.db.QueryRow(ctx, query, NormalizeRoomCode(roomCode)).Scan(
		&game.ID,
		&game.RoomCode,
		&game.Status,
		&game.WinnerPlayerID,
		&game.CreatedAt,
		&game.StartedAt,
		&game.EndedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Game not found
		}
		return nil, fmt.Errorf("failed to get game by code: %w", err)
	}

	return game, nil
}

func (s *GameStore) GetGameByID(ctx context.Context, gameID int64) (*models.Game, error) {
	query := `
		SELECT id, room_code, status, winner_player_id, created_at, started_at, ended_at
		FROM games
		WHERE id = $1
	`

	game := &models.Game{}
	err := s.db.QueryRow(ctx, query, gameID).Scan(
		&game.ID,
		&game.RoomCode,
		&game.Status,
		&game.WinnerPlayerID,
		&game.CreatedAt,
		&game.StartedAt,
		&game.EndedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get game by ID: %w", err)
	}

	return game, nil
}

func (s *GameStore) MarkInProgress(ctx context.Context, gameID int64, startedAt time.Time) error {
	query := `
		UPDATE games
		SET status = $2, started_at = $3
		WHERE id = $1 AND status = $4
	`

	tag, err := s.db.Exec(ctx, query, gameID, models.GameStatusInProgress, startedAt, models.GameStatusLobby)
	if err != nil {
		return fmt.Errorf("failed to mark game in progress: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("game %d is not in lobby status", gameID)
	}

	return nil
}

func (s *GameStore) MarkCompleted(ctx context.Context, gameID int64, winnerPlayerID int64, endedAt time.Time) error {
	query := `
		UPDATE games
		SET status = $2, winner_player_id = $3, ended_at = $4
		WHERE id = $1
	`

	if _, err := s.db.Exec(ctx, query, gameID, models.GameStatusCompleted, winnerPlayerID, endedAt); err != nil {
		return fmt.Errorf("failed to mark game completed: %w", err)
	}

	return nil
}
