package service

import (
	"context"

	"github.com/pagemint/backend/internal/model"
	"github.com/pagemint/backend/internal/repository"
	"github.com/sirupsen/logrus"
)

type UserService struct {
	base
}

func NewUserService(store repository.Store, log logrus.FieldLogger) *UserService {
	return &UserService{base: newBase(store, log)}
}

type TelegramUser struct {
	ID           int64
	Username     *string
	FirstName    *string
	LastName     *string
	LanguageCode *string
}

// EnsureUser creates the wallet row for an authenticated user on first sight
// and refreshes the profile fields afterwards.
func (s *UserService) EnsureUser(ctx context.Context, telegramUser TelegramUser) (*model.User, error) {
	user := &model.User{
		ID:           telegramUser.ID,
		Username:     telegramUser.Username,
		FirstName:    telegramUser.FirstName,
		LastName:     telegramUser.LastName,
		LanguageCode: telegramUser.LanguageCode,
	}
	err := s.inTx(ctx, "ensure_user", func(q repository.Queries) error {
		return q.UpsertUser(ctx, user)
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) GetUser(ctx context.Context, id int64) (*model.User, error) {
	var user *model.User
	err := s.view(ctx, func(q repository.Queries) error {
		var err error
		user, err = q.GetUser(ctx, id)
		return err
	})
	return user, err
}
