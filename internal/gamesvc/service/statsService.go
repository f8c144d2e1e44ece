package service

import (
	"context"

	"github.com/avvvet/guesswho-services/internal/gamesvc/models"
	"github.com/avvvet/guesswho-services/internal/gamesvc/store"
)

type StatsService struct {
	store *store.PlayerStatsStore
}

func NewStatsService(store *store.PlayerStatsStore) *StatsService {
	return &StatsService{store: store}
}

func (s *StatsService) RecordResult(ctx context.Context, userID int64, score int, won bool) error {
	return s.store.RecordResult(ctx, userID, score, won)
}

func (s *StatsService) GetByUserID(ctx context.Context, userID int64) (*models.PlayerStats, error) {
	return s.store.GetByUserID(ctx, userID)
}
