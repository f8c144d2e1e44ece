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

type SecretStore struct {
	db *pgxpool.Pool
}

func NewSecretStore(db *pgxpool.Pool) *SecretStore {
	return &SecretStore{db: db}
}

func (s *SecretStore) CreateSecret(ctx context.Context, sec *models.Secret) (*models.Secret, error) {
	query := `
		INSERT INTO secrets (game_id, player_id, character_id, state, assigned_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, game_id, player_id, character_id, state, assigned_at, revealed_at
	`

	secret := &models.Secret{}
	err := s.db.QueryRow(ctx, query, sec.GameID, sec.PlayerID, sec.CharacterID, models.SecretHidden, sec.AssignedAt).Scan(
		&secret.ID,
		&secret.GameID,
		&secret.PlayerID,
		&secret.CharacterID,
		&secret.State,
		&secret.AssignedAt,
		&secret.RevealedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create secret: %w", err)
	}

	return secret, nil
}

func (s *SecretStore) GetByPlayer(ctx context.Context, gameID int64, playerID int64) (*models.Secret, error) {
	query := `
		SELECT id, game_id, player_id, character_id, state, assigned_at, revealed_at
		FROM secrets
		WHERE game_id = $1 AND player_id = $2
		LIMIT 1
	`

	secret := &models.Secret{}
	err := s.db.QueryRow(ctx, query, gameID, playerID).Scan(
		&secret.ID,
		&secret.GameID,
		&secret.PlayerID,
		&secret.CharacterID,
		&secret.State,
		&secret.AssignedAt,
		&secret.RevealedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get secret by player: %w", err)
	}

	return secret, nil
}

func (s *SecretStore) GetSecretsByGameID(ctx context.Context, gameID int64) ([]*models.Secret, error) {
	query := `
		SELECT id, game_id, player_id, character_id, state, assigned_at, revealed_at
		FROM secrets
		WHERE game_id = $1
		ORDER BY id
	`

	rows, err := s.db.Query(ctx, query, gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var secrets []*models.Secret
	for rows.Next() {
		var sec models.Secret
		err := rows.Scan(
			&sec.ID,
			&sec.GameID,
			&sec.PlayerID,
			&sec.CharacterID,
			&sec.State,
			&sec.AssignedAt,
			&sec.RevealedAt,
		)
		if err != nil {
			return nil, err
		}
		secrets = append(secrets, &sec)
	}

	return secrets, nil
}

// Reveal flips a hidden secret to revealed; the transition is one way.
func (s *SecretStore) Reveal(ctx context.Context, secretID int64, revealedAt time.Time) error {
	query := `
		UPDATE secrets
		SET state = $2, revealed_at = $3
		WHERE id = $1 AND state = $4
	`

	if _, err := s.db.Exec(ctx, query, secretID, models.SecretRevealed, revealedAt, models.SecretHidden); err != nil {
		return fmt.Errorf("failed to reveal secret %d: %w", secretID, err)
	}

	return nil
}
