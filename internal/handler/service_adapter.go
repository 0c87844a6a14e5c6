package handler

import (
	"context"

	"github.com/hitoshi/tenki/internal/auth"
	"github.com/hitoshi/tenki/internal/favorite"
	"github.com/hitoshi/tenki/internal/subscription"
	"github.com/hitoshi/tenki/internal/user"
	"github.com/hitoshi/tenki/internal/weather"
)

// SubscriptionServiceAdapter は subscription.Service を SubscriptionServiceInterface に適合させるアダプタ。
type SubscriptionServiceAdapter struct {
	svc *subscription.Service
}

// NewSubscriptionServiceAdapter はSubscriptionServiceAdapterを生成する。
func NewSubscriptionServiceAdapter(svc *subscription.Service) *SubscriptionServiceAdapter {
	return &SubscriptionServiceAdapter{svc: svc}
}

// CreateSubscription は購読を登録しhandlerレスポンス型で返す。
func (a *SubscriptionServiceAdapter) CreateSubscription(ctx context.Context, userID, favoriteID, conditionType string, conditionValue *string) (*subscriptionResponse, error) {
	info, err := a.svc.CreateSubscription(ctx, userID, favoriteID, conditionType, conditionValue)
	if err != nil {
		return nil, err
	}
	resp := toSubscriptionResponse(*info)
	return &resp, nil
}

// ListSubscriptions はユーザーの購読一覧をhandlerレスポンス型で返す。
func (a *SubscriptionServiceAdapter) ListSubscriptions(ctx context.Context, userID string) ([]subscriptionResponse, error) {
	infos, err := a.svc.ListSubscriptions(ctx, userID)
	if err != nil {
		return nil, err
	}

	results := make([]subscriptionResponse, len(infos))
	for i, info := range infos {
		results[i] = toSubscriptionResponse(info)
	}
	return results, nil
}

// DeleteSubscription は購読を削除する。
func (a *SubscriptionServiceAdapter) DeleteSubscription(ctx context.Context, userID, subscriptionID string) error {
	return a.svc.DeleteSubscription(ctx, userID, subscriptionID)
}

// toSubscriptionResponse はドメインのSubscriptionInfoをhandlerのレスポンス型に変換する。
func toSubscriptionResponse(info subscription.SubscriptionInfo) subscriptionResponse {
	return subscriptionResponse{
		ID:             info.ID,
		UserID:         info.UserID,
		FavoriteID:     info.FavoriteID,
		LocationName:   info.LocationName,
		Latitude:       info.Latitude,
		Longitude:      info.Longitude,
		ConditionType:  string(info.ConditionType),
		ConditionValue: info.ConditionValue,
		IsActive:       info.IsActive,
		LastNotifiedAt: info.LastNotifiedAt,
		CreatedAt:      info.CreatedAt,
	}
}

// --- compile-time interface checks ---

var _ SubscriptionServiceInterface = (*SubscriptionServiceAdapter)(nil)
var _ AuthServiceInterface = (*auth.Service)(nil)
var _ FavoriteServiceInterface = (*favorite.Service)(nil)
var _ UserServiceInterface = (*user.Service)(nil)
var _ WeatherServiceInterface = (*weather.Service)(nil)
