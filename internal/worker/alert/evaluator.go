package alert

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hitoshi/tenki/internal/model"
	"github.com/hitoshi/tenki/internal/weather"
)

// SubscriptionSource は評価対象の購読の取得と通知済み記録を行う。
type SubscriptionSource interface {
	ListActiveWithFavorite(ctx context.Context) ([]model.SubscriptionWithFavorite, error)
	MarkNotified(ctx context.Context, id string, notifiedAt time.Time) error
}

// WeatherObserver は座標の現在の天気を取得する。
type WeatherObserver interface {
	GetCurrent(ctx context.Context, lat, lon float64) (*weather.Current, error)
}

// AlertRecorder は成立した条件数を記録する。
type AlertRecorder interface {
	RecordAlertTriggered(conditionType string)
}

// Evaluator は有効な購読を地点ごとにまとめて現在の天気を取得し、条件を判定する。
// 上流呼び出しはsemaphoreで最大並列数を制御する。
// 通知後はcooldownが経過するまで同じ購読を再通知しない。
type Evaluator struct {
	subs           SubscriptionSource
	observer       WeatherObserver
	notifier       Notifier
	recorder       AlertRecorder
	logger         *slog.Logger
	maxConcurrency int
	cooldown       time.Duration
	now            func() time.Time
}

// NewEvaluator はEvaluatorを生成する。
// maxConcurrencyが0以下の場合はデフォルト値5を使用する。recorderはnilでもよい。
func NewEvaluator(
	subs SubscriptionSource,
	observer WeatherObserver,
	notifier Notifier,
	recorder AlertRecorder,
	logger *slog.Logger,
	maxConcurrency int,
	cooldown time.Duration,
) *Evaluator {
	if maxConcurrency <= 0 {
		maxConcurrency = 5
	}
	return &Evaluator{
		subs:           subs,
		observer:       observer,
		notifier:       notifier,
		recorder:       recorder,
		logger:         logger,
		maxConcurrency: maxConcurrency,
		cooldown:       cooldown,
		now:            time.Now,
	}
}

type location struct {
	lat, lon float64
}

// RunOnce は有効な購読を1回評価する。
func (e *Evaluator) RunOnce(ctx context.Context) error {
	start := e.now()

	subs, err := e.subs.ListActiveWithFavorite(ctx)
	if err != nil {
		return fmt.Errorf("有効な購読の取得に失敗: %w", err)
	}

	groups := make(map[location][]model.SubscriptionWithFavorite)
	for _, sub := range subs {
		if e.inCooldown(sub, start) {
			continue
		}
		loc := location{lat: sub.Latitude, lon: sub.Longitude}
		groups[loc] = append(groups[loc], sub)
	}

	if len(groups) == 0 {
		e.logger.Info("評価対象の購読はありません",
			slog.Int("active_count", len(subs)),
		)
		return nil
	}

	e.logger.Info("条件評価サイクルを開始します",
		slog.Int("active_count", len(subs)),
		slog.Int("location_count", len(groups)),
	)

	sem := make(chan struct{}, e.maxConcurrency)
	var wg sync.WaitGroup
	var mu sync.Mutex
	triggered := 0

	dispatched := 0
	for loc, group := range groups {
		if !acquire(ctx, sem) {
			break
		}
		dispatched++
		wg.Add(1)

		go func(loc location, group []model.SubscriptionWithFavorite) {
			defer wg.Done()
			defer func() { <-sem }()

			n := e.evaluateLocation(ctx, loc, group)
			mu.Lock()
			triggered += n
			mu.Unlock()
		}(loc, group)
	}

	wg.Wait()

	if err := ctx.Err(); err != nil {
		e.logger.Warn("条件評価サイクルを中断しました",
			slog.Int("location_count", len(groups)),
			slog.Int("dispatched_count", dispatched),
			slog.Int("triggered_count", triggered),
		)
		return fmt.Errorf("条件評価を中断しました: %w", err)
	}

	e.logger.Info("条件評価サイクルが完了しました",
		slog.Int("location_count", len(groups)),
		slog.Int("triggered_count", triggered),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
	return nil
}

// acquire はセマフォの枠を確保する。ctxがキャンセル済みなら確保せずfalseを返す。
func acquire(ctx context.Context, sem chan struct{}) bool {
	if ctx.Err() != nil {
		return false
	}
	select {
	case sem <- struct{}{}:
	case <-ctx.Done():
		return false
	}
	if ctx.Err() != nil {
		<-sem
		return false
	}
	return true
}

func (e *Evaluator) inCooldown(sub model.SubscriptionWithFavorite, now time.Time) bool {
	if sub.LastNotifiedAt == nil {
		return false
	}
	return now.Sub(*sub.LastNotifiedAt) < e.cooldown
}

// evaluateLocation は1地点の天気を取得し、その地点の購読を判定する。成立件数を返す。
func (e *Evaluator) evaluateLocation(ctx context.Context, loc location, group []model.SubscriptionWithFavorite) int {
	current, err := e.observer.GetCurrent(ctx, loc.lat, loc.lon)
	if err != nil {
		e.logger.Error("現在の天気の取得に失敗しました",
			slog.Float64("latitude", loc.lat),
			slog.Float64("longitude", loc.lon),
			slog.String("error", err.Error()),
		)
		return 0
	}
	obs := Observation{TempC: current.Temperature, Main: current.Main}

	triggered := 0
	for _, sub := range group {
		ok, err := Match(sub.ConditionType, sub.ConditionValue, obs)
		if err != nil {
			e.logger.Warn("購読条件を判定できません",
				slog.String("subscription_id", sub.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		if !ok {
			continue
		}

		notifiedAt := e.now()
		if err := e.notifier.Notify(ctx, Alert{Subscription: sub, Observation: obs, TriggeredAt: notifiedAt}); err != nil {
			e.logger.Error("通知に失敗しました",
				slog.String("subscription_id", sub.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		if err := e.subs.MarkNotified(ctx, sub.ID, notifiedAt); err != nil {
			e.logger.Error("最終通知日時の更新に失敗しました",
				slog.String("subscription_id", sub.ID),
				slog.String("error", err.Error()),
			)
		}
		if e.recorder != nil {
			e.recorder.RecordAlertTriggered(string(sub.ConditionType))
		}
		triggered++
	}
	return triggered
}
