package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/tenki/internal/model"
)

// PostgresSubscriptionRepo はPostgreSQLを使用した天気条件購読リポジトリ。
type PostgresSubscriptionRepo struct {
	db *sql.DB
}

// NewPostgresSubscriptionRepo はPostgresSubscriptionRepoを生成する。
func NewPostgresSubscriptionRepo(db *sql.DB) *PostgresSubscriptionRepo {
	return &PostgresSubscriptionRepo{db: db}
}

// Create は購読を作成する。
// 複合外部キー (favorite_id, user_id) により、他ユーザーのお気に入りへの紐付けはErrForeignKeyになる。
func (r *PostgresSubscriptionRepo) Create(ctx context.Context, sub *model.Subscription) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO weather_subscriptions
		   (id, user_id, favorite_id, condition_type, condition_value, is_active, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		sub.ID, sub.UserID, sub.FavoriteID, string(sub.ConditionType), nullString(sub.ConditionValue), sub.IsActive, sub.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("購読の作成に失敗しました: %w", translateError(err))
	}
	return nil
}

const subscriptionWithFavoriteColumns = `
	s.id, s.user_id, s.favorite_id, s.condition_type, s.condition_value,
	s.is_active, s.last_notified_at, s.created_at,
	f.location_name, f.latitude, f.longitude`

// ListByUserIDWithFavorite はユーザーの購読一覧をお気に入り地点の情報付きで新しい順に返す。
func (r *PostgresSubscriptionRepo) ListByUserIDWithFavorite(ctx context.Context, userID string) ([]model.SubscriptionWithFavorite, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT`+subscriptionWithFavoriteColumns+`
		 FROM weather_subscriptions s
		 JOIN favorites f ON s.favorite_id = f.id
		 WHERE s.user_id = $1
		 ORDER BY s.created_at DESC, s.id DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("購読一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	return scanSubscriptionsWithFavorite(rows)
}

// ListActiveWithFavorite は全ユーザーの有効な購読をお気に入り地点の情報付きで返す。
func (r *PostgresSubscriptionRepo) ListActiveWithFavorite(ctx context.Context) ([]model.SubscriptionWithFavorite, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT`+subscriptionWithFavoriteColumns+`
		 FROM weather_subscriptions s
		 JOIN favorites f ON s.favorite_id = f.id
		 WHERE s.is_active = true
		 ORDER BY f.latitude, f.longitude, s.created_at`,
	)
	if err != nil {
		return nil, fmt.Errorf("有効な購読一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	return scanSubscriptionsWithFavorite(rows)
}

// DeleteByIDAndUser は所有者を条件に購読を削除する。
func (r *PostgresSubscriptionRepo) DeleteByIDAndUser(ctx context.Context, id, userID string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM weather_subscriptions WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	if err != nil {
		return fmt.Errorf("購読の削除に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("削除結果の取得に失敗しました: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("購読が見つかりません: %s: %w", id, ErrNotFound)
	}
	return nil
}

// MarkNotified は購読の最終通知日時を更新する。
func (r *PostgresSubscriptionRepo) MarkNotified(ctx context.Context, id string, notifiedAt time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE weather_subscriptions SET last_notified_at = $2 WHERE id = $1`,
		id, notifiedAt,
	)
	if err != nil {
		return fmt.Errorf("最終通知日時の更新に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("更新結果の取得に失敗しました: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("購読が見つかりません: %s: %w", id, ErrNotFound)
	}
	return nil
}

func scanSubscriptionsWithFavorite(rows *sql.Rows) ([]model.SubscriptionWithFavorite, error) {
	results := []model.SubscriptionWithFavorite{}
	for rows.Next() {
		var (
			info          model.SubscriptionWithFavorite
			conditionType string
			value         sql.NullString
			notifiedAt    sql.NullTime
		)
		if err := rows.Scan(
			&info.ID, &info.UserID, &info.FavoriteID, &conditionType, &value,
			&info.IsActive, &notifiedAt, &info.CreatedAt,
			&info.LocationName, &info.Latitude, &info.Longitude,
		); err != nil {
			return nil, fmt.Errorf("購読行の読み取りに失敗しました: %w", err)
		}
		info.ConditionType = model.ConditionType(conditionType)
		if value.Valid {
			v := value.String
			info.ConditionValue = &v
		}
		if notifiedAt.Valid {
			t := notifiedAt.Time
			info.LastNotifiedAt = &t
		}
		results = append(results, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("購読一覧の走査に失敗しました: %w", err)
	}
	return results, nil
}

// nullString は空のポインタをSQLのNULLに変換する。
func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// compile-time interface check
var _ SubscriptionRepository = (*PostgresSubscriptionRepo)(nil)
