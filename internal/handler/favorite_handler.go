package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/tenki/internal/model"
)

// FavoriteServiceInterface はお気に入りハンドラーが必要とするサービスインターフェース。
type FavoriteServiceInterface interface {
	// CreateFavorite はお気に入り地点を登録する。
	CreateFavorite(ctx context.Context, userID, locationName string, latitude, longitude *float64) (*model.Favorite, error)
	// ListFavorites はユーザーのお気に入り一覧を新しい順に返す。
	ListFavorites(ctx context.Context, userID string) ([]*model.Favorite, error)
	// DeleteFavorite はお気に入り地点と紐づく購読を削除する。
	DeleteFavorite(ctx context.Context, userID, favoriteID string) error
}

// FavoriteHandler はお気に入り地点のHTTPハンドラー。
type FavoriteHandler struct {
	service FavoriteServiceInterface
}

// NewFavoriteHandler はFavoriteHandlerを生成する。
func NewFavoriteHandler(service FavoriteServiceInterface) *FavoriteHandler {
	return &FavoriteHandler{
		service: service,
	}
}

// favoriteResponse はお気に入り地点のAPIレスポンス。
type favoriteResponse struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	LocationName string    `json:"location_name"`
	Latitude     float64   `json:"latitude"`
	Longitude    float64   `json:"longitude"`
	CreatedAt    time.Time `json:"created_at"`
}

// createFavoriteRequest はお気に入り登録リクエストのボディ。
// 範囲チェックはサービス層で行う。
type createFavoriteRequest struct {
	LocationName string   `json:"location_name" validate:"required,max=200"`
	Latitude     *float64 `json:"latitude" validate:"required"`
	Longitude    *float64 `json:"longitude" validate:"required"`
}

func toFavoriteResponse(f *model.Favorite) favoriteResponse {
	return favoriteResponse{
		ID:           f.ID,
		UserID:       f.UserID,
		LocationName: f.LocationName,
		Latitude:     f.Latitude,
		Longitude:    f.Longitude,
		CreatedAt:    f.CreatedAt,
	}
}

// CreateFavorite はお気に入り地点を登録する。
// POST /api/favorites
func (h *FavoriteHandler) CreateFavorite(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req createFavoriteRequest
	if apiErr := decodeAndValidate(r, &req); apiErr != nil {
		writeAPIErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	fav, err := h.service.CreateFavorite(r.Context(), userID, req.LocationName, req.Latitude, req.Longitude)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message":  fmt.Sprintf("'%s' をお気に入りに追加しました。", fav.LocationName),
		"favorite": toFavoriteResponse(fav),
	})
}

// ListFavorites はユーザーのお気に入り一覧を返す。
// GET /api/favorites
func (h *FavoriteHandler) ListFavorites(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	favs, err := h.service.ListFavorites(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	results := make([]favoriteResponse, len(favs))
	for i, f := range favs {
		results[i] = toFavoriteResponse(f)
	}
	writeJSON(w, http.StatusOK, results)
}

// DeleteFavorite はお気に入り地点を削除する。
// DELETE /api/favorites/{id}
func (h *FavoriteHandler) DeleteFavorite(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	favoriteID := chi.URLParam(r, "id")
	if favoriteID == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("お気に入りIDが指定されていません。"))
		return
	}

	if err := h.service.DeleteFavorite(r.Context(), userID, favoriteID); err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message":     "お気に入りを削除しました。",
		"favorite_id": favoriteID,
	})
}
