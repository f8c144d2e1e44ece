package service

import (
	"context"

	"github.com/avvvet/guesswho-services/internal/gamesvc/models"
	"github.com/avvvet/guesswho-services/internal/gamesvc/store"
)

type CharacterService struct {
	store *store.CharacterStore
}

func NewCharacterService(store *store.CharacterStore) *CharacterService {
	return &CharacterService{store: store}
}

func (s *CharacterService) GetActiveCharacters(ctx context.Context) ([]*models.Character, error) {
	return s.store.GetActiveCharacters(ctx)
}

func (s *CharacterService) GetCharacterByID(ctx context.Context, characterID int64) (*models.Character, error) {
	return s.store.GetCharacterByID(ctx, characterID)
}
