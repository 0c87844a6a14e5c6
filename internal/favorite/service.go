// Package favorite はお気に入り地点管理のドメインロジックを提供する。
package favorite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/tenki/internal/model"
	"github.com/hitoshi/tenki/internal/repository"
	"github.com/hitoshi/tenki/internal/security"
)

// Service はお気に入り地点のサービス層。
type Service struct {
	repo      repository.FavoriteRepository
	sanitizer security.TextSanitizer
	now       func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(repo repository.FavoriteRepository, sanitizer security.TextSanitizer) *Service {
	return &Service{
		repo:      repo,
		sanitizer: sanitizer,
		now:       time.Now,
	}
}

// CreateFavorite はお気に入り地点を登録する。
// latitude/longitudeは未指定の場合nilで渡す。
func (s *Service) CreateFavorite(ctx context.Context, userID, locationName string, latitude, longitude *float64) (*model.Favorite, error) {
	name := s.sanitizer.Sanitize(locationName)
	if name == "" {
		return nil, model.NewValidationError("location_name は必須です。")
	}
	if latitude == nil || longitude == nil {
		return nil, model.NewValidationError("latitude と longitude は必須です。")
	}
	if *latitude < -90 || *latitude > 90 {
		return nil, model.NewValidationError("latitude は -90 から 90 の範囲で指定してください。")
	}
	if *longitude < -180 || *longitude > 180 {
		return nil, model.NewValidationError("longitude は -180 から 180 の範囲で指定してください。")
	}

	fav := &model.Favorite{
		ID:           uuid.New().String(),
		UserID:       userID,
		LocationName: name,
		Latitude:     *latitude,
		Longitude:    *longitude,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.repo.Create(ctx, fav); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, model.NewDuplicateFavoriteError()
		}
		return nil, fmt.Errorf("お気に入りの登録に失敗しました: %w", err)
	}
	return fav, nil
}

// ListFavorites はユーザーのお気に入り一覧を新しい順に返す。
func (s *Service) ListFavorites(ctx context.Context, userID string) ([]*model.Favorite, error) {
	favs, err := s.repo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("お気に入り一覧の取得に失敗しました: %w", err)
	}
	if favs == nil {
		favs = []*model.Favorite{}
	}
	return favs, nil
}

// DeleteFavorite はお気に入り地点を削除する。紐づく購読も同時に削除される。
// 他ユーザーのお気に入りは存在しないものとして扱う。
func (s *Service) DeleteFavorite(ctx context.Context, userID, favoriteID string) error {
	// UUID形式でないIDはDBに問い合わせずに見つからない扱いにする
	if _, err := uuid.Parse(favoriteID); err != nil {
		return model.NewFavoriteNotFoundError(favoriteID)
	}
	if err := s.repo.DeleteByIDAndUser(ctx, favoriteID, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.NewFavoriteNotFoundError(favoriteID)
		}
		return fmt.Errorf("お気に入りの削除に失敗しました: %w", err)
	}
	return nil
}
