package service

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/avvvet/guesswho-services/internal/gamesvc/models"
	"github.com/avvvet/guesswho-services/internal/gamesvc/store"
)

// UserService is the account layer behind login: players identify with
// a guest name and get a persistent user row on first contact.
type UserService struct {
	userStore *store.UserStore
}

func NewUserService(userStore *store.UserStore) *UserService {
	return &UserService{
		userStore: userStore,
	}
}

// GetOrCreateUser resolves an account, creating it on first login.
func (s *UserService) GetOrCreateUser(ctx context.Context, userInfo models.User) (*models.User, error) {
	existingUser, err := s.userStore.GetByID(ctx, userInfo.UserId)
	if err == nil {
		return existingUser, nil
	}

	log.Infof("user %d not found, registering: %v", userInfo.UserId, err)

	userInfo.Status = "ACTIVE"
	userId, err := s.userStore.CreateUser(ctx, userInfo)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %v", err)
	}

	userInfo.UserId = userId
	return &userInfo, nil
}
