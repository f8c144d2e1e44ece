package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/avvvet/guesswho-services/internal/gamesvc/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type CharacterStore struct {
	db *pgxpool.Pool
}

func NewCharacterStore(db *pgxpool.Pool) *CharacterStore {
	return &CharacterStore{db: db}
}

func (s *CharacterStore) GetActiveCharacters(ctx context.Context) ([]*models.Character, error) {
	query := `
		SELECT id, name, avatar, active, created_at
		FROM characters
		WHERE active = true
		ORDER BY id
	`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var characters []*models.Character
	for rows.Next() {
		var c models.Character
		err := rows.Scan(
			&c.ID,
			&c.Name,
			&c.Avatar,
			&c.Active,
			&c.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		characters = append(characters, &c)
	}

	return characters, nil
}

func (s *CharacterStore) GetCharacterByID(ctx context.Context, characterID int64) (*models.Character, error) {
	query := `
		SELECT id, name, avatar, active, created_at
		FROM characters
		WHERE id = $1
	`

	character := &models.Character{}
	err := s.db.QueryRow(ctx, query, characterID).Scan(
		&character.ID,
		&character.Name,
		&character.Avatar,
		&character.Active,
		&character.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get character by ID: %w", err)
	}

	return character, nil
}
