package favorite

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/hitoshi/tenki/internal/model"
	"github.com/hitoshi/tenki/internal/repository"
	"github.com/hitoshi/tenki/internal/security"
)

// --- モック ---

type mockFavoriteRepo struct {
	createFn          func(ctx context.Context, fav *model.Favorite) error
	findByIDAndUserFn func(ctx context.Context, id, userID string) (*model.Favorite, error)
	listByUserIDFn    func(ctx context.Context, userID string) ([]*model.Favorite, error)
	deleteFn          func(ctx context.Context, id, userID string) error
}

func (m *mockFavoriteRepo) Create(ctx context.Context, fav *model.Favorite) error {
	if m.createFn != nil {
		return m.createFn(ctx, fav)
	}
	return nil
}
func (m *mockFavoriteRepo) FindByIDAndUser(ctx context.Context, id, userID string) (*model.Favorite, error) {
	if m.findByIDAndUserFn != nil {
		return m.findByIDAndUserFn(ctx, id, userID)
	}
	return nil, nil
}
func (m *mockFavoriteRepo) ListByUserID(ctx context.Context, userID string) ([]*model.Favorite, error) {
	return m.listByUserIDFn(ctx, userID)
}
func (m *mockFavoriteRepo) DeleteByIDAndUser(ctx context.Context, id, userID string) error {
	return m.deleteFn(ctx, id, userID)
}

func ptr(f float64) *float64 { return &f }

func newTestService(repo repository.FavoriteRepository) *Service {
	svc := NewService(repo, security.NewTextSanitizer())
	svc.now = func() time.Time { return time.Date(2025, 6, 25, 12, 0, 0, 0, time.UTC) }
	return svc
}

func assertAPIErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *model.APIError", err)
	}
	if apiErr.Code != code {
		t.Errorf("Code = %q, want %q", apiErr.Code, code)
	}
}

// --- テスト ---

func TestService_CreateFavorite(t *testing.T) {
	var saved *model.Favorite
	repo := &mockFavoriteRepo{
		createFn: func(ctx context.Context, fav *model.Favorite) error {
			saved = fav
			return nil
		},
	}
	svc := newTestService(repo)

	fav, err := svc.CreateFavorite(context.Background(), "user-1", "  <b>Seoul</b> Station ", ptr(37.5547), ptr(126.9707))
	if err != nil {
		t.Fatalf("CreateFavorite() error = %v", err)
	}
	if fav.ID == "" {
		t.Error("ID is empty")
	}
	if fav.UserID != "user-1" {
		t.Errorf("UserID = %q, want %q", fav.UserID, "user-1")
	}
	if fav.LocationName != "Seoul Station" {
		t.Errorf("LocationName = %q, want %q", fav.LocationName, "Seoul Station")
	}
	if fav.Latitude != 37.5547 || fav.Longitude != 126.9707 {
		t.Errorf("coords = %v,%v", fav.Latitude, fav.Longitude)
	}
	if saved != fav {
		t.Error("repository received a different favorite")
	}
}

func TestService_CreateFavorite_Validation(t *testing.T) {
	tests := []struct {
		name     string
		location string
		lat, lon *float64
	}{
		{"地点名が空", "", ptr(1), ptr(1)},
		{"地点名がタグのみ", "<i></i>", ptr(1), ptr(1)},
		{"緯度なし", "Seoul", nil, ptr(1)},
		{"経度なし", "Seoul", ptr(1), nil},
		{"緯度が範囲外", "Seoul", ptr(90.1), ptr(1)},
		{"経度が範囲外", "Seoul", ptr(1), ptr(-180.5)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockFavoriteRepo{
				createFn: func(ctx context.Context, fav *model.Favorite) error {
					t.Error("Create should not be called")
					return nil
				},
			}
			_, err := newTestService(repo).CreateFavorite(context.Background(), "user-1", tt.location, tt.lat, tt.lon)
			assertAPIErrorCode(t, err, model.ErrCodeValidation)
		})
	}
}

func TestService_CreateFavorite_Duplicate(t *testing.T) {
	repo := &mockFavoriteRepo{
		createFn: func(ctx context.Context, fav *model.Favorite) error {
			return fmt.Errorf("insert: %w", repository.ErrDuplicate)
		},
	}
	_, err := newTestService(repo).CreateFavorite(context.Background(), "user-1", "Seoul", ptr(1), ptr(2))
	assertAPIErrorCode(t, err, model.ErrCodeDuplicateFavorite)
}

func TestService_CreateFavorite_RepoError(t *testing.T) {
	repo := &mockFavoriteRepo{
		createFn: func(ctx context.Context, fav *model.Favorite) error {
			return errors.New("connection refused")
		},
	}
	_, err := newTestService(repo).CreateFavorite(context.Background(), "user-1", "Seoul", ptr(1), ptr(2))
	var apiErr *model.APIError
	if err == nil || errors.As(err, &apiErr) {
		t.Errorf("error = %v, want plain internal error", err)
	}
}

func TestService_ListFavorites_EmptyIsNotNil(t *testing.T) {
	repo := &mockFavoriteRepo{
		listByUserIDFn: func(ctx context.Context, userID string) ([]*model.Favorite, error) {
			return nil, nil
		},
	}
	favs, err := newTestService(repo).ListFavorites(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("ListFavorites() error = %v", err)
	}
	if favs == nil || len(favs) != 0 {
		t.Errorf("favs = %v, want empty slice", favs)
	}
}

const favID = "6f1c2a4e-8b3d-4c5e-9f70-1a2b3c4d5e6f"

func TestService_DeleteFavorite(t *testing.T) {
	t.Run("削除成功", func(t *testing.T) {
		var gotID, gotUser string
		repo := &mockFavoriteRepo{
			deleteFn: func(ctx context.Context, id, userID string) error {
				gotID, gotUser = id, userID
				return nil
			},
		}
		if err := newTestService(repo).DeleteFavorite(context.Background(), "user-1", favID); err != nil {
			t.Fatalf("DeleteFavorite() error = %v", err)
		}
		if gotID != favID || gotUser != "user-1" {
			t.Errorf("DeleteByIDAndUser(%q, %q), want (favID, user-1)", gotID, gotUser)
		}
	})

	t.Run("他ユーザーまたは存在しない", func(t *testing.T) {
		repo := &mockFavoriteRepo{
			deleteFn: func(ctx context.Context, id, userID string) error {
				return fmt.Errorf("wrap: %w", repository.ErrNotFound)
			},
		}
		err := newTestService(repo).DeleteFavorite(context.Background(), "user-2", favID)
		assertAPIErrorCode(t, err, model.ErrCodeFavoriteNotFound)
	})

	t.Run("UUID形式でないID", func(t *testing.T) {
		repo := &mockFavoriteRepo{
			deleteFn: func(ctx context.Context, id, userID string) error {
				t.Error("DeleteByIDAndUser should not be called")
				return nil
			},
		}
		err := newTestService(repo).DeleteFavorite(context.Background(), "user-1", "not-a-uuid")
		assertAPIErrorCode(t, err, model.ErrCodeFavoriteNotFound)
	})
}
