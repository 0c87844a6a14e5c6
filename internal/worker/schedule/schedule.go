// Package schedule はcron式でバックグラウンドジョブを定期実行する。
package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// JobFunc は定期実行されるジョブ。
type JobFunc func(ctx context.Context) error

// Scheduler はrobfig/cronを用いたジョブスケジューラ。
// 同一ジョブの実行が重なった場合は後続をスキップする。
type Scheduler struct {
	cron   *cron.Cron
	logger *slog.Logger
	jobs   []namedJob
	// runCtx はStartで設定され、cronから起動されるジョブに渡される。
	runCtx context.Context
}

type namedJob struct {
	name string
	spec string
	fn   JobFunc
}

// NewScheduler はSchedulerを生成する。
func NewScheduler(logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithChain(
			cron.Recover(cron.DefaultLogger),
			cron.SkipIfStillRunning(cron.DefaultLogger),
		)),
		logger: logger,
	}
}

// Add はジョブをcronに登録する。specは "@every 15m" や "0 3 * * *" 形式。
// Start前に呼び出すこと。
func (s *Scheduler) Add(name, spec string, fn JobFunc) error {
	job := namedJob{name: name, spec: spec, fn: fn}
	if _, err := s.cron.AddFunc(spec, func() { s.run(s.runCtx, job) }); err != nil {
		return fmt.Errorf("ジョブ %s のスケジュールが不正です: %w", name, err)
	}
	s.jobs = append(s.jobs, job)
	return nil
}

// Start は登録済みジョブを起動直後に1回実行し、以降はスケジュールに従って実行する。
// コンテキストがキャンセルされるまでブロックし、停止時は実行中のジョブの完了を待つ。
func (s *Scheduler) Start(ctx context.Context) {
	s.runCtx = ctx

	s.logger.Info("ジョブスケジューラを開始しました",
		slog.Int("job_count", len(s.jobs)),
	)

	for _, job := range s.jobs {
		s.run(ctx, job)
	}
	s.cron.Start()

	<-ctx.Done()
	<-s.cron.Stop().Done()
	s.logger.Info("ジョブスケジューラを停止しました")
}

func (s *Scheduler) run(ctx context.Context, job namedJob) {
	if ctx.Err() != nil {
		return
	}
	start := time.Now()
	if err := job.fn(ctx); err != nil {
		s.logger.Error("ジョブの実行に失敗しました",
			slog.String("job", job.name),
			slog.String("error", err.Error()),
		)
		return
	}
	s.logger.Debug("ジョブが完了しました",
		slog.String("job", job.name),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
}
