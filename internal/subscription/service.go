// Package subscription は天気条件の購読管理のドメインロジックを提供する。
package subscription

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/tenki/internal/model"
	"github.com/hitoshi/tenki/internal/repository"
)

// SubscriptionInfo は購読情報とお気に入り地点の情報を結合したドメインオブジェクト。
type SubscriptionInfo struct {
	ID             string
	UserID         string
	FavoriteID     string
	LocationName   string
	Latitude       float64
	Longitude      float64
	ConditionType  model.ConditionType
	ConditionValue *string
	IsActive       bool
	LastNotifiedAt *time.Time
	CreatedAt      time.Time
}

// Service は購読管理のサービス層。
// 購読の登録、一覧取得、削除のビジネスロジックを提供する。
type Service struct {
	subRepo repository.SubscriptionRepository
	favRepo repository.FavoriteRepository
	now     func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(subRepo repository.SubscriptionRepository, favRepo repository.FavoriteRepository) *Service {
	return &Service{
		subRepo: subRepo,
		favRepo: favRepo,
		now:     time.Now,
	}
}

// CreateSubscription はお気に入り地点に天気条件の購読を登録する。
// conditionValueはtemp_gt/temp_ltでは必須の数値文字列、それ以外では省略可能。
func (s *Service) CreateSubscription(ctx context.Context, userID, favoriteID, conditionType string, conditionValue *string) (*SubscriptionInfo, error) {
	favoriteID = strings.TrimSpace(favoriteID)
	if favoriteID == "" {
		return nil, model.NewValidationError("favorite_id は必須です。")
	}
	if strings.TrimSpace(conditionType) == "" {
		return nil, model.NewValidationError("condition_type は必須です。")
	}
	ct, ok := model.ParseConditionType(conditionType)
	if !ok {
		return nil, model.NewValidationError(fmt.Sprintf("未対応の condition_type です: %s", conditionType))
	}

	value, err := normalizeValue(ct, conditionValue)
	if err != nil {
		return nil, err
	}

	if _, err := uuid.Parse(favoriteID); err != nil {
		return nil, model.NewFavoriteNotFoundError(favoriteID)
	}
	fav, err := s.favRepo.FindByIDAndUser(ctx, favoriteID, userID)
	if err != nil {
		return nil, fmt.Errorf("お気に入りの取得に失敗しました: %w", err)
	}
	if fav == nil {
		return nil, model.NewFavoriteNotFoundError(favoriteID)
	}

	sub := &model.Subscription{
		ID:             uuid.New().String(),
		UserID:         userID,
		FavoriteID:     fav.ID,
		ConditionType:  ct,
		ConditionValue: value,
		IsActive:       true,
		CreatedAt:      s.now().UTC(),
	}
	if err := s.subRepo.Create(ctx, sub); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			return nil, model.NewDuplicateSubscriptionError()
		case errors.Is(err, repository.ErrForeignKey):
			// 確認後にお気に入りが削除された場合
			return nil, model.NewFavoriteNotFoundError(favoriteID)
		default:
			return nil, fmt.Errorf("購読の登録に失敗しました: %w", err)
		}
	}

	return &SubscriptionInfo{
		ID:             sub.ID,
		UserID:         sub.UserID,
		FavoriteID:     sub.FavoriteID,
		LocationName:   fav.LocationName,
		Latitude:       fav.Latitude,
		Longitude:      fav.Longitude,
		ConditionType:  sub.ConditionType,
		ConditionValue: sub.ConditionValue,
		IsActive:       sub.IsActive,
		CreatedAt:      sub.CreatedAt,
	}, nil
}

// maxConditionValueLen はweather_subscriptions.condition_valueの列長。
const maxConditionValueLen = 64

// normalizeValue はしきい値を検証して正規化する。
// しきい値が不要な条件では値を保存しない。
func normalizeValue(ct model.ConditionType, raw *string) (*string, error) {
	if !ct.RequiresValue() {
		return nil, nil
	}

	var value string
	if raw != nil {
		value = strings.TrimSpace(*raw)
	}
	if value == "" {
		return nil, model.NewValidationError(fmt.Sprintf("condition_type %s には condition_value が必須です。", ct))
	}
	if len(value) > maxConditionValueLen {
		return nil, model.NewValidationError(fmt.Sprintf("condition_value は%d文字以内で指定してください。", maxConditionValueLen))
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, model.NewValidationError("condition_value は数値で指定してください。")
	}
	return &value, nil
}

// ListSubscriptions はユーザーの購読一覧をお気に入り地点の情報付きで新しい順に返す。
func (s *Service) ListSubscriptions(ctx context.Context, userID string) ([]SubscriptionInfo, error) {
	rows, err := s.subRepo.ListByUserIDWithFavorite(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("購読一覧の取得に失敗しました: %w", err)
	}

	results := make([]SubscriptionInfo, len(rows))
	for i, row := range rows {
		results[i] = SubscriptionInfo{
			ID:             row.ID,
			UserID:         row.UserID,
			FavoriteID:     row.FavoriteID,
			LocationName:   row.LocationName,
			Latitude:       row.Latitude,
			Longitude:      row.Longitude,
			ConditionType:  row.ConditionType,
			ConditionValue: row.ConditionValue,
			IsActive:       row.IsActive,
			LastNotifiedAt: row.LastNotifiedAt,
			CreatedAt:      row.CreatedAt,
		}
	}
	return results, nil
}

// DeleteSubscription は購読を削除する。他ユーザーの購読は存在しないものとして扱う。
func (s *Service) DeleteSubscription(ctx context.Context, userID, subscriptionID string) error {
	if _, err := uuid.Parse(subscriptionID); err != nil {
		return model.NewSubscriptionNotFoundError(subscriptionID)
	}
	if err := s.subRepo.DeleteByIDAndUser(ctx, subscriptionID, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.NewSubscriptionNotFoundError(subscriptionID)
		}
		return fmt.Errorf("購読の削除に失敗しました: %w", err)
	}
	return nil
}
