package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/tenki/internal/model"
)

// PostgresFavoriteRepo はPostgreSQLを使用したお気に入りリポジトリ。
type PostgresFavoriteRepo struct {
	db *sql.DB
}

// NewPostgresFavoriteRepo はPostgresFavoriteRepoを生成する。
func NewPostgresFavoriteRepo(db *sql.DB) *PostgresFavoriteRepo {
	return &PostgresFavoriteRepo{db: db}
}

// Create はお気に入りを作成する。
func (r *PostgresFavoriteRepo) Create(ctx context.Context, fav *model.Favorite) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO favorites (id, user_id, location_name, latitude, longitude, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		fav.ID, fav.UserID, fav.LocationName, fav.Latitude, fav.Longitude, fav.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("お気に入りの作成に失敗しました: %w", translateError(err))
	}
	return nil
}

// FindByIDAndUser は所有者を条件にお気に入りを取得する。見つからない場合はnilを返す。
func (r *PostgresFavoriteRepo) FindByIDAndUser(ctx context.Context, id, userID string) (*model.Favorite, error) {
	fav := &model.Favorite{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, location_name, latitude, longitude, created_at
		 FROM favorites WHERE id = $1 AND user_id = $2`,
		id, userID,
	).Scan(&fav.ID, &fav.UserID, &fav.LocationName, &fav.Latitude, &fav.Longitude, &fav.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("お気に入りの取得に失敗しました: %w", err)
	}
	return fav, nil
}

// ListByUserID はユーザーのお気に入り一覧を新しい順に返す。
func (r *PostgresFavoriteRepo) ListByUserID(ctx context.Context, userID string) ([]*model.Favorite, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, location_name, latitude, longitude, created_at
		 FROM favorites WHERE user_id = $1
		 ORDER BY created_at DESC, id DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("お気に入り一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	favs := []*model.Favorite{}
	for rows.Next() {
		fav := &model.Favorite{}
		if err := rows.Scan(&fav.ID, &fav.UserID, &fav.LocationName, &fav.Latitude, &fav.Longitude, &fav.CreatedAt); err != nil {
			return nil, fmt.Errorf("お気に入り行の読み取りに失敗しました: %w", err)
		}
		favs = append(favs, fav)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("お気に入り一覧の走査に失敗しました: %w", err)
	}
	return favs, nil
}

// DeleteByIDAndUser は所有者を条件にお気に入りを削除する。
// weather_subscriptionsは外部キーのON DELETE CASCADEで同時に削除される。
func (r *PostgresFavoriteRepo) DeleteByIDAndUser(ctx context.Context, id, userID string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM favorites WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	if err != nil {
		return fmt.Errorf("お気に入りの削除に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("削除結果の取得に失敗しました: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("お気に入りが見つかりません: %s: %w", id, ErrNotFound)
	}
	return nil
}

// compile-time interface check
var _ FavoriteRepository = (*PostgresFavoriteRepo)(nil)
