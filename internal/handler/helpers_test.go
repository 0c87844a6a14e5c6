package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/tenki/internal/middleware"
	"github.com/hitoshi/tenki/internal/model"
	"github.com/hitoshi/tenki/internal/weather"
)

// withUserID はテスト用にコンテキストにユーザーIDを注入するヘルパー。
func withUserID(r *http.Request, userID string) *http.Request {
	ctx := middleware.ContextWithUserID(r.Context(), userID)
	return r.WithContext(ctx)
}

// withChiURLParam はテスト用にchiのURLパラメータを注入するヘルパー。
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	ctx := context.WithValue(r.Context(), chi.RouteCtxKey, rctx)
	return r.WithContext(ctx)
}

// parseAPIErrorResponse はレスポンスボディからAPIErrorレスポンスをパースするヘルパー。
func parseAPIErrorResponse(t *testing.T, w *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var result map[string]string
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return result
}

// decodeJSONBody はレスポンスボディを汎用マップにデコードするヘルパー。
func decodeJSONBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var result map[string]any
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return result
}

func float64Ptr(v float64) *float64 { return &v }

func stringPtr(s string) *string { return &s }

// --- モック定義 ---

// mockAuthService はAuthServiceInterfaceのモック実装。
type mockAuthService struct {
	signupFn  func(ctx context.Context, email, password string) (*model.User, error)
	loginFn   func(ctx context.Context, email, password string) (*model.Session, *model.User, error)
	logoutFn  func(ctx context.Context, sessionID string) error
	getUserFn func(ctx context.Context, userID string) (*model.User, error)
}

func (m *mockAuthService) Signup(ctx context.Context, email, password string) (*model.User, error) {
	if m.signupFn != nil {
		return m.signupFn(ctx, email, password)
	}
	return &model.User{ID: "user-new", Email: email}, nil
}

func (m *mockAuthService) Login(ctx context.Context, email, password string) (*model.Session, *model.User, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, email, password)
	}
	return nil, nil, model.NewInvalidCredentialsError()
}

func (m *mockAuthService) Logout(ctx context.Context, sessionID string) error {
	if m.logoutFn != nil {
		return m.logoutFn(ctx, sessionID)
	}
	return nil
}

func (m *mockAuthService) GetUser(ctx context.Context, userID string) (*model.User, error) {
	if m.getUserFn != nil {
		return m.getUserFn(ctx, userID)
	}
	return &model.User{ID: userID, Email: "test@example.com"}, nil
}

// mockFavoriteService はFavoriteServiceInterfaceのモック実装。
type mockFavoriteService struct {
	createFavoriteFn func(ctx context.Context, userID, locationName string, lat, lon *float64) (*model.Favorite, error)
	listFavoritesFn  func(ctx context.Context, userID string) ([]*model.Favorite, error)
	deleteFavoriteFn func(ctx context.Context, userID, favoriteID string) error
}

func (m *mockFavoriteService) CreateFavorite(ctx context.Context, userID, locationName string, lat, lon *float64) (*model.Favorite, error) {
	if m.createFavoriteFn != nil {
		return m.createFavoriteFn(ctx, userID, locationName, lat, lon)
	}
	return &model.Favorite{ID: "fav-1", UserID: userID, LocationName: locationName}, nil
}

func (m *mockFavoriteService) ListFavorites(ctx context.Context, userID string) ([]*model.Favorite, error) {
	if m.listFavoritesFn != nil {
		return m.listFavoritesFn(ctx, userID)
	}
	return []*model.Favorite{}, nil
}

func (m *mockFavoriteService) DeleteFavorite(ctx context.Context, userID, favoriteID string) error {
	if m.deleteFavoriteFn != nil {
		return m.deleteFavoriteFn(ctx, userID, favoriteID)
	}
	return nil
}

// mockSubscriptionService はSubscriptionServiceInterfaceのモック実装。
type mockSubscriptionService struct {
	createSubscriptionFn func(ctx context.Context, userID, favoriteID, conditionType string, conditionValue *string) (*subscriptionResponse, error)
	listSubscriptionsFn  func(ctx context.Context, userID string) ([]subscriptionResponse, error)
	deleteSubscriptionFn func(ctx context.Context, userID, subscriptionID string) error
}

func (m *mockSubscriptionService) CreateSubscription(ctx context.Context, userID, favoriteID, conditionType string, conditionValue *string) (*subscriptionResponse, error) {
	if m.createSubscriptionFn != nil {
		return m.createSubscriptionFn(ctx, userID, favoriteID, conditionType, conditionValue)
	}
	return &subscriptionResponse{ID: "sub-1", UserID: userID, FavoriteID: favoriteID, ConditionType: conditionType, IsActive: true}, nil
}

func (m *mockSubscriptionService) ListSubscriptions(ctx context.Context, userID string) ([]subscriptionResponse, error) {
	if m.listSubscriptionsFn != nil {
		return m.listSubscriptionsFn(ctx, userID)
	}
	return nil, nil
}

func (m *mockSubscriptionService) DeleteSubscription(ctx context.Context, userID, subscriptionID string) error {
	if m.deleteSubscriptionFn != nil {
		return m.deleteSubscriptionFn(ctx, userID, subscriptionID)
	}
	return nil
}

// mockWeatherService はWeatherServiceInterfaceのモック実装。
type mockWeatherService struct {
	getForecastFn func(ctx context.Context, lat, lon float64) (*weather.Forecast, error)
	getCurrentFn  func(ctx context.Context, lat, lon float64) (*weather.Current, error)
}

func (m *mockWeatherService) GetForecast(ctx context.Context, lat, lon float64) (*weather.Forecast, error) {
	if m.getForecastFn != nil {
		return m.getForecastFn(ctx, lat, lon)
	}
	return &weather.Forecast{}, nil
}

func (m *mockWeatherService) GetCurrent(ctx context.Context, lat, lon float64) (*weather.Current, error) {
	if m.getCurrentFn != nil {
		return m.getCurrentFn(ctx, lat, lon)
	}
	return &weather.Current{}, nil
}

// mockUserService はUserServiceInterfaceのモック実装。
type mockUserService struct {
	withdrawFn func(ctx context.Context, userID string) error
}

func (m *mockUserService) Withdraw(ctx context.Context, userID string) error {
	if m.withdrawFn != nil {
		return m.withdrawFn(ctx, userID)
	}
	return nil
}
