package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avvvet/guesswho-services/internal/gamesvc/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrLobbyFull is returned when a seat cannot be created because the
// game already holds its maximum of two players.
var ErrLobbyFull = errors.New("lobby is full")

type GamePlayerStore struct {
	db *pgxpool.Pool
}

func NewGamePlayerStore(db *pgxpool.Pool) *GamePlayerStore {
	return &GamePlayerStore{db: db}
}

func (s *GamePlayerStore) GetPlayersByGameID(ctx context.Context, gameID int64) ([]*models.GamePlayer, error) {
	query := `
		SELECT id, game_id, user_id, username, score, ready, left_at, placement, created_at, updated_at
		FROM game_players
		WHERE game_id = $1
		ORDER BY id
	`

	rows, err := s.db.Query(ctx, query, gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var players []*models.GamePlayer
	for rows.Next() {
		var gp models.GamePlayer
		err := rows.Scan(
			&gp.ID,
			&gp.GameID,
			&gp.UserID,
			&gp.Username,
			&gp.Score,
			&gp.Ready,
			&gp.LeftAt,
			&gp.Placement,
			&gp.CreatedAt,
			&gp.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		players = append(players, &gp)
	}

	return players, nil
}

func (s *GamePlayerStore) GetPlayerByGameAndUser(ctx context.Context, gameID int64, userID int64) (*models.GamePlayer, error) {
	query := `
		SELECT id, game_id, user_id, username, score, ready, left_at, placement, created_at, updated_at
		FROM game_players
		WHERE game_id = $1 AND user_id = $2
		LIMIT 1
	`

	gp := &models.GamePlayer{}
	err := s.db.QueryRow(ctx, query, gameID, userID).Scan(
		&gp.ID,
		&gp.GameID,
		&gp.UserID,
		&gp.Username,
		&gp.Score,
		&gp.Ready,
		&gp.LeftAt,
		&gp.Placement,
		&gp.CreatedAt,
		&gp.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get player by game and user: %w", err)
	}

	return gp, nil
}

// It fails if:
// - The game is not in lobby status (locked CTE returns no row).
// - The game already seats two players (seat count filter).
// - The user has already joined the game (unique_game_user constraint).
// Returns the created GamePlayer on success, or an error on failure.
func (s *GamePlayerStore) CreatePlayerIfLobbyOpen(ctx context.Context, gameID int64, userID int64, username string) (*models.GamePlayer, error) {
	if gameID <= 0 {
		return nil, fmt.Errorf("invalid game ID: %d", gameID)
	}
	if username == "" {
		return nil, fmt.Errorf("username cannot be empty")
	}

	// CTE locks the game row and enforces status='lobby' with a free seat
	const query = `
WITH locked_game AS (
  SELECT id
  FROM games
  WHERE id = $1
    AND status = 'lobby'
    AND (SELECT COUNT(*) FROM game_players WHERE game_id = $1) < 2
  FOR UPDATE
)
INSERT INTO game_players (game_id, user_id, username, score, ready)
SELECT lg.id, $2, $3, 0, false
FROM locked_game lg
RETURNING id, game_id, user_id, username, score, ready, left_at, placement, created_at, updated_at;
`
	var uid interface{}
	if userID > 0 {
		uid = userID
	}

	gp := &models.GamePlayer{}
	err := s.db.QueryRow(ctx, query, gameID, uid, username).Scan(
		&gp.ID,
		&gp.GameID,
		&gp.UserID,
		&gp.Username,
		&gp.Score,
		&gp.Ready,
		&gp.LeftAt,
		&gp.Placement,
		&gp.CreatedAt,
		&gp.UpdatedAt,
	)
	if err != nil {
		// zero rows means the lobby is closed or full (or the game doesn't exist)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLobbyFull
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == "unique_game_user" {
			return nil, fmt.Errorf("user %d has already joined game %d", userID, gameID)
		}
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return nil, fmt.Errorf("invalid reference: %s", pgErr.Message)
		}
		return nil, fmt.Errorf("failed to create game player: %w", err)
	}

	return gp, nil
}

// AddScore applies a delta to the player's score, clamping the result at
// zero, and returns the new score.
func (s *GamePlayerStore) AddScore(ctx context.Context, playerID int64, delta int) (int, error) {
	query := `
		UPDATE game_players
		SET score = GREATEST(0, score + $2), updated_at = NOW()
		WHERE id = $1
		RETURNING score
	`

	var score int
	if err := s.db.QueryRow(ctx, query, playerID, delta).Scan(&score); err != nil {
		return 0, fmt.Errorf("failed to update score for player %d: %w", playerID, err)
	}

	return score, nil
}

func (s *GamePlayerStore) SetReady(ctx context.Context, playerID int64, ready bool) error {
	query := `
		UPDATE game_players
		SET ready = $2, updated_at = NOW()
		WHERE id = $1
	`

	if _, err := s.db.Exec(ctx, query, playerID, ready); err != nil {
		return fmt.Errorf("failed to set ready for player %d: %w", playerID, err)
	}

	return nil
}

func (s *GamePlayerStore) MarkLeft(ctx context.Context, playerID int64, leftAt time.Time) error {
	query := `
		UPDATE game_players
		SET left_at = $2, updated_at = NOW()
		WHERE id = $1 AND left_at IS NULL
	`

	if _, err := s.db.Exec(ctx, query, playerID, leftAt); err != nil {
		return fmt.Errorf("failed to mark player %d as left: %w", playerID, err)
	}

	return nil
}

func (s *GamePlayerStore) SetPlacement(ctx context.Context, playerID int64, placement int) error {
	query := `
		UPDATE game_players
		SET placement = $2, updated_at = NOW()
		WHERE id = $1
	`

	if _, err := s.db.Exec(ctx, query, playerID, placement); err != nil {
		return fmt.Errorf("failed to set placement for player %d: %w", playerID, err)
	}

	return nil
}
