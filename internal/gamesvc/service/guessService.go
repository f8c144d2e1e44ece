package service

import (
	"context"

	"github.com/avvvet/guesswho-services/internal/gamesvc/models"
	"github.com/avvvet/guesswho-services/internal/gamesvc/store"
)

type GuessService struct {
	store *store.GuessStore
}

func NewGuessService(store *store.GuessStore) *GuessService {
	return &GuessService{store: store}
}

func (s *GuessService) CreateGuess(ctx context.Context, g *models.Guess) (*models.Guess, error) {
	return s.store.CreateGuess(ctx, g)
}

func (s *GuessService) CountByPlayer(ctx context.Context, gameID int64, playerID int64) (int, error) {
	return s.store.CountByPlayer(ctx, gameID, playerID)
}

func (s *GuessService) GetGuessesByGameID(ctx context.Context, gameID int64) ([]*models.Guess, error) {
	return s.store.GetGuessesByGameID(ctx, gameID)
}
