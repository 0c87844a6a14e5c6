// Package user はユーザー管理のドメインロジックを提供する。
package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hitoshi/tenki/internal/model"
	"github.com/hitoshi/tenki/internal/repository"
)

// Service は退会処理を提供する。
type Service struct {
	users repository.UserRepository
}

// NewService はServiceを生成する。
func NewService(users repository.UserRepository) *Service {
	return &Service{users: users}
}

// Withdraw はユーザー行を1文で削除する。
// sessions、favorites、weather_subscriptionsは外部キーのCASCADEで同じ文の中で消える。
func (s *Service) Withdraw(ctx context.Context, userID string) error {
	if err := s.users.DeleteByID(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.NewUserNotFoundError()
		}
		return fmt.Errorf("ユーザーの削除に失敗しました: %w", err)
	}

	slog.Info("ユーザーが退会しました", slog.String("user_id", userID))
	return nil
}
