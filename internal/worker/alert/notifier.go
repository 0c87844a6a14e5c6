package alert

import (
	"context"
	"log/slog"
	"time"

	"github.com/hitoshi/tenki/internal/model"
)

// Alert は条件が成立した購読1件分の通知内容。
type Alert struct {
	Subscription model.SubscriptionWithFavorite
	Observation  Observation
	TriggeredAt  time.Time
}

// Notifier は成立した条件をユーザーに届ける。
type Notifier interface {
	Notify(ctx context.Context, alert Alert) error
}

// LogNotifier は通知内容を構造化ログに出力するだけのNotifier。
// メール等の配信経路は持たない。
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier はLogNotifierを生成する。
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify は通知内容をINFOレベルで記録する。
func (n *LogNotifier) Notify(_ context.Context, a Alert) error {
	attrs := []any{
		slog.String("subscription_id", a.Subscription.ID),
		slog.String("user_id", a.Subscription.UserID),
		slog.String("favorite_id", a.Subscription.FavoriteID),
		slog.String("location_name", a.Subscription.LocationName),
		slog.String("condition_type", string(a.Subscription.ConditionType)),
		slog.Float64("temp_c", a.Observation.TempC),
		slog.String("weather", a.Observation.Main),
		slog.Time("triggered_at", a.TriggeredAt),
	}
	if a.Subscription.ConditionValue != nil {
		attrs = append(attrs, slog.String("condition_value", *a.Subscription.ConditionValue))
	}
	n.logger.Info("天気条件が成立しました", attrs...)
	return nil
}
