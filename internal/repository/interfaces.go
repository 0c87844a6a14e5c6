// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/tenki/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail はメールアドレスでユーザーを取得する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// Create はユーザーを作成する。メールアドレスが重複する場合はErrDuplicateを返す。
	Create(ctx context.Context, user *model.User) error

	// DeleteByID は指定IDのユーザーを削除する。該当行がない場合はErrNotFoundを返す。
	// 関連するsessions、favorites、weather_subscriptionsはCASCADE削除される。
	DeleteByID(ctx context.Context, id string) error
}

// SessionRepository はログインセッションの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを保存する。
	Create(ctx context.Context, session *model.Session) error
	// FindActive は時刻atで有効なセッションを返す。無効な場合は nil, nil。
	FindActive(ctx context.Context, id string, at time.Time) (*model.Session, error)
	// Delete はセッションを削除する。
	Delete(ctx context.Context, id string) error
	// PurgeExpired はcutoffより前に期限切れとなったセッションを削除し、件数を返す。
	PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

// FavoriteRepository はお気に入り地点の永続化インターフェース。
type FavoriteRepository interface {
	// Create はお気に入りを作成する。同一ユーザー・同一座標の場合はErrDuplicateを返す。
	Create(ctx context.Context, favorite *model.Favorite) error

	// FindByIDAndUser は所有者を条件にお気に入りを取得する。見つからない場合はnilを返す。
	FindByIDAndUser(ctx context.Context, id, userID string) (*model.Favorite, error)

	// ListByUserID はユーザーのお気に入り一覧をcreated_at降順で返す。
	ListByUserID(ctx context.Context, userID string) ([]*model.Favorite, error)

	// DeleteByIDAndUser は所有者を条件にお気に入りを削除する。
	// 紐づくweather_subscriptionsはCASCADE削除される。
	// 該当行がない場合はErrNotFoundを返す。
	DeleteByIDAndUser(ctx context.Context, id, userID string) error
}

// SubscriptionRepository は天気条件の購読の永続化インターフェース。
type SubscriptionRepository interface {
	// Create は購読を作成する。
	// (user_id, favorite_id, condition_type) が重複する場合はErrDuplicate、
	// favorite_idが同一ユーザーのお気に入りを参照しない場合はErrForeignKeyを返す。
	Create(ctx context.Context, subscription *model.Subscription) error

	// ListByUserIDWithFavorite はユーザーの購読一覧をお気に入り地点の情報付きでcreated_at降順で返す。
	ListByUserIDWithFavorite(ctx context.Context, userID string) ([]model.SubscriptionWithFavorite, error)

	// DeleteByIDAndUser は所有者を条件に購読を削除する。該当行がない場合はErrNotFoundを返す。
	DeleteByIDAndUser(ctx context.Context, id, userID string) error

	// ListActiveWithFavorite は全ユーザーの有効な購読をお気に入り地点の情報付きで返す。
	// 条件評価ワーカーが使用する。
	ListActiveWithFavorite(ctx context.Context) ([]model.SubscriptionWithFavorite, error)

	// MarkNotified は購読の最終通知日時を更新する。
	MarkNotified(ctx context.Context, id string, notifiedAt time.Time) error
}
