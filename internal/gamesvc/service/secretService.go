package service

import (
	"context"
	"time"

	"github.com/avvvet/guesswho-services/internal/gamesvc/models"
	"github.com/avvvet/guesswho-services/internal/gamesvc/store"
)

type SecretService struct {
	store *store.SecretStore
}

func NewSecretService(store *store.SecretStore) *SecretService {
	return &SecretService{store: store}
}

func (s *SecretService) CreateSecret(ctx context.Context, sec *models.Secret) (*models.Secret, error) {
	return s.store.CreateSecret(ctx, sec)
}

func (s *SecretService) GetByPlayer(ctx context.Context, gameID int64, playerID int64) (*models.Secret, error) {
	return s.store.GetByPlayer(ctx, gameID, playerID)
}

func (s *SecretService) GetSecretsByGameID(ctx context.Context, gameID int64) ([]*models.Secret, error) {
	return s.store.GetSecretsByGameID(ctx, gameID)
}

func (s *SecretService) Reveal(ctx context.Context, secretID int64, revealedAt time.Time) error {
	return s.store.Reveal(ctx, secretID, revealedAt)
}
