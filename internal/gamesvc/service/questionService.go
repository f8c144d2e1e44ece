package service

import (
	"context"

	"github.com/avvvet/guesswho-services/internal/gamesvc/models"
	"github.com/avvvet/guesswho-services/internal/gamesvc/store"
)

type QuestionService struct {
	store *store.QuestionStore
}

func NewQuestionService(store *store.QuestionStore) *QuestionService {
	return &QuestionService{store: store}
}

func (s *QuestionService) CreateQuestion(ctx context.Context, q *models.Question) (*models.Question, error) {
	return s.store.CreateQuestion(ctx, q)
}

func (s *QuestionService) GetQuestionByID(ctx context.Context, questionID int64) (*models.Question, error) {
	return s.store.GetQuestionByID(ctx, questionID)
}

func (s *QuestionService) GetQuestionsByGameID(ctx context.Context, gameID int64) ([]*models.Question, error) {
	return s.store.GetQuestionsByGameID(ctx, gameID)
}
