package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/tenki/internal/model"
)

// SubscriptionServiceInterface は天気購読ハンドラーが必要とするサービスインターフェース。
type SubscriptionServiceInterface interface {
	// CreateSubscription はお気に入り地点に天気条件の購読を登録する。
	CreateSubscription(ctx context.Context, userID, favoriteID, conditionType string, conditionValue *string) (*subscriptionResponse, error)
	// ListSubscriptions は地点情報を結合した購読一覧を返す。
	ListSubscriptions(ctx context.Context, userID string) ([]subscriptionResponse, error)
	// DeleteSubscription は購読を削除する。
	DeleteSubscription(ctx context.Context, userID, subscriptionID string) error
}

// SubscriptionHandler は天気購読のHTTPハンドラー。
type SubscriptionHandler struct {
	service SubscriptionServiceInterface
}

// NewSubscriptionHandler はSubscriptionHandlerを生成する。
func NewSubscriptionHandler(service SubscriptionServiceInterface) *SubscriptionHandler {
	return &SubscriptionHandler{
		service: service,
	}
}

// subscriptionResponse は購読情報のAPIレスポンス。
type subscriptionResponse struct {
	ID             string     `json:"id"`
	UserID         string     `json:"user_id"`
	FavoriteID     string     `json:"favorite_id"`
	LocationName   string     `json:"location_name"`
	Latitude       float64    `json:"latitude"`
	Longitude      float64    `json:"longitude"`
	ConditionType  string     `json:"condition_type"`
	ConditionValue *string    `json:"condition_value"`
	IsActive       bool       `json:"is_active"`
	LastNotifiedAt *time.Time `json:"last_notified_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// createSubscriptionRequest は購読登録リクエストのボディ。
// しきい値の要否と数値形式はサービス層で検証する。
type createSubscriptionRequest struct {
	FavoriteID     string         `json:"favorite_id" validate:"required"`
	ConditionType  string         `json:"condition_type" validate:"required,oneof=temp_gt temp_lt rain snow"`
	ConditionValue optionalString `json:"condition_value"`
}

// CreateSubscription は天気購読を登録する。
// POST /api/weather-subscriptions
func (h *SubscriptionHandler) CreateSubscription(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req createSubscriptionRequest
	if apiErr := decodeAndValidate(r, &req); apiErr != nil {
		writeAPIErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	sub, err := h.service.CreateSubscription(r.Context(), userID, req.FavoriteID, req.ConditionType, req.ConditionValue.Value)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message":      fmt.Sprintf("'%s' の天気通知を登録しました。", sub.LocationName),
		"subscription": sub,
	})
}

// ListSubscriptions はユーザーの購読一覧を返す。
// GET /api/weather-subscriptions
func (h *SubscriptionHandler) ListSubscriptions(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	subs, err := h.service.ListSubscriptions(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if subs == nil {
		subs = []subscriptionResponse{}
	}

	writeJSON(w, http.StatusOK, subs)
}

// DeleteSubscription は購読を削除する。
// DELETE /api/weather-subscriptions/{id}
func (h *SubscriptionHandler) DeleteSubscription(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	subscriptionID := chi.URLParam(r, "id")
	if subscriptionID == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("購読IDが指定されていません。"))
		return
	}

	if err := h.service.DeleteSubscription(r.Context(), userID, subscriptionID); err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message":         "天気通知を解除しました。",
		"subscription_id": subscriptionID,
	})
}
