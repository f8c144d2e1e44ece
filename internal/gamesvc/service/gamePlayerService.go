package service

import (
	"context"
	"time"

	"github.com/avvvet/guesswho-services/internal/gamesvc/models"
	"github.com/avvvet/guesswho-services/internal/gamesvc/store"
)

type GamePlayerService struct {
	store *store.GamePlayerStore
}

func NewGamePlayerService(store *store.GamePlayerStore) *GamePlayerService {
	return &GamePlayerService{store: store}
}

func (s *GamePlayerService) GetPlayersByGameID(ctx context.Context, gameID int64) ([]*models.GamePlayer, error) {
	return s.store.GetPlayersByGameID(ctx, gameID)
}

func (s *GamePlayerService) GetPlayerByGameAndUser(ctx context.Context, gameID int64, userID int64) (*models.GamePlayer, error) {
	return s.store.GetPlayerByGameAndUser(ctx, gameID, userID)
}

func (s *GamePlayerService) CreatePlayerIfLobbyOpen(ctx context.Context, gameID int64, userID int64, username string) (*models.GamePlayer, error) {
	return s.store.CreatePlayerIfLobbyOpen(ctx, gameID, userID, username)
}

func (s *GamePlayerService) AddScore(ctx context.Context, playerID int64, delta int) (int, error) {
	return s.store.AddScore(ctx, playerID, delta)
}

func (s *GamePlayerService) SetReady(ctx context.Context, playerID int64, ready bool) error {
	return s.store.SetReady(ctx, playerID, ready)
}

func (s *GamePlayerService) MarkLeft(ctx context.Context, playerID int64, leftAt time.Time) error {
	return s.store.MarkLeft(ctx, playerID, leftAt)
}

func (s *GamePlayerService) SetPlacement(ctx context.Context, playerID int64, placement int) error {
	return s.store.SetPlacement(ctx, playerID, placement)
}
