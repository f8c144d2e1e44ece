package service

import (
	"context"
	"time"

	"github.com/avvvet/guesswho-services/internal/gamesvc/models"
	"github.com/avvvet/guesswho-services/internal/gamesvc/store"
)

type RoundService struct {
	store *store.RoundStore
}

func NewRoundService(store *store.RoundStore) *RoundService {
	return &RoundService{store: store}
}

func (s *RoundService) CreateRound(ctx context.Context, r *models.Round) (*models.Round, error) {
	return s.store.CreateRound(ctx, r)
}

func (s *RoundService) GetCurrentRound(ctx context.Context, gameID int64) (*models.Round, error) {
	return s.store.GetCurrentRound(ctx, gameID)
}

func (s *RoundService) SetState(ctx context.Context, roundID int64, state string, activePlayerID int64) error {
	return s.store.SetState(ctx, roundID, state, activePlayerID)
}

func (s *RoundService) CloseRound(ctx context.Context, roundID int64, endedAt time.Time, durationMs int64) error {
	return s.store.CloseRound(ctx, roundID, endedAt, durationMs)
}
