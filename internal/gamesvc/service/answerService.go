package service

import (
	"context"

	"github.com/avvvet/guesswho-services/internal/gamesvc/models"
	"github.com/avvvet/guesswho-services/internal/gamesvc/store"
)

type AnswerService struct {
	store *store.AnswerStore
}

func NewAnswerService(store *store.AnswerStore) *AnswerService {
	return &AnswerService{store: store}
}

func (s *AnswerService) CreateAnswer(ctx context.Context, a *models.Answer) (*models.Answer, error) {
	return s.store.CreateAnswer(ctx, a)
}

func (s *AnswerService) GetAnswerByQuestionID(ctx context.Context, questionID int64) (*models.Answer, error) {
	return s.store.GetAnswerByQuestionID(ctx, questionID)
}

func (s *AnswerService) GetAnswersByGameID(ctx context.Context, gameID int64) ([]*models.Answer, error) {
	return s.store.GetAnswersByGameID(ctx, gameID)
}
