package service

import (
	"context"
	"math/rand"
	"time"

	"github.com/avvvet/guesswho-services/internal/gamesvc/models"
	"github.com/avvvet/guesswho-services/internal/gamesvc/store"
)

// room codes avoid 0/O and 1/I lookalikes
const roomCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
const roomCodeLength = 5

type GameService struct {
	gameStore *store.GameStore
}

func NewGameService(gameStore *store.GameStore) *GameService {
	return &GameService{gameStore: gameStore}
}

func (s *GameService) GetGameByCode(ctx context.Context, roomCode string) (*models.Game, error) {
	return s.gameStore.GetGameByCode(ctx, roomCode)
}

func (s *GameService) GetGameByID(ctx context.Context, gameID int64) (*models.Game, error) {
	return s.gameStore.GetGameByID(ctx, gameID)
}

func (s *GameService) MarkInProgress(ctx context.Context, gameID int64, startedAt time.Time) error {
	return s.gameStore.MarkInProgress(ctx, gameID, startedAt)
}

func (s *GameService) MarkCompleted(ctx context.Context, gameID int64, winnerPlayerID int64, endedAt time.Time) error {
	return s.gameStore.MarkCompleted(ctx, gameID, winnerPlayerID, endedAt)
}

// CreateGame generates room codes until an unused one is found and
// creates the lobby under it.
func (s *GameService) CreateGame(ctx context.Context) (*models.Game, error) {
	for {
		code := randomRoomCode()
		existing, err := s.gameStore.GetGameByCode(ctx, code)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			continue
		}
		return s.gameStore.CreateGame(ctx, code)
	}
}

func randomRoomCode() string {
	b := make([]byte, roomCodeLength)
	for i := range b {
		b[i] = roomCodeAlphabet[rand.Intn(len(roomCodeAlphabet))]
	}
	return string(b)
}
