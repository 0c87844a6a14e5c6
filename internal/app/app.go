package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/tenki/internal/auth"
	"github.com/hitoshi/tenki/internal/config"
	"github.com/hitoshi/tenki/internal/database"
	"github.com/hitoshi/tenki/internal/favorite"
	"github.com/hitoshi/tenki/internal/handler"
	"github.com/hitoshi/tenki/internal/logger"
	"github.com/hitoshi/tenki/internal/metrics"
	"github.com/hitoshi/tenki/internal/middleware"
	"github.com/hitoshi/tenki/internal/repository"
	"github.com/hitoshi/tenki/internal/security"
	"github.com/hitoshi/tenki/internal/subscription"
	"github.com/hitoshi/tenki/internal/user"
	"github.com/hitoshi/tenki/internal/weather"
	"github.com/hitoshi/tenki/internal/worker/alert"
	"github.com/hitoshi/tenki/internal/worker/cleanup"
	"github.com/hitoshi/tenki/internal/worker/schedule"
)

const shutdownTimeout = 30 * time.Second

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. 設定に従ってログレベルを反映する
	logger.SetLevel(cfg.LogLevel)

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch cmd {
	case CommandWorker:
		return runWorker(ctx, cfg)
	case CommandMigrate:
		return runMigrate(cfg, commandArgs(args))
	default:
		return runServe(ctx, cfg)
	}
}

// openDatabase はDB接続を開き疎通を確認する。
func openDatabase(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// newRegistry はアプリケーションメトリクスとランタイムメトリクスを登録したレジストリを返す。
func newRegistry() (*prometheus.Registry, *metrics.Collector) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg, metrics.NewCollector(reg)
}

// newWeatherService はOpenWeatherMapクライアントと日別予報サービスを構築する。
func newWeatherService(cfg *config.Config, recorder weather.UpstreamRecorder) *weather.Service {
	client := weather.NewClient(weather.ClientConfig{
		APIKey:         cfg.WeatherAPIKey,
		BaseURL:        cfg.WeatherBaseURL,
		Lang:           cfg.WeatherLang,
		Timeout:        cfg.UpstreamTimeout,
		RPS:            cfg.UpstreamRPS,
		Burst:          cfg.UpstreamBurst,
		MaxRetries:     cfg.UpstreamMaxRetries,
		InitialBackoff: cfg.UpstreamInitialBackoff,
	}, nil, recorder)
	if !client.HasAPIKey() {
		slog.Warn("OpenWeatherMap API key is not configured; weather endpoints will return errors")
	}
	return weather.NewService(client, cfg.ForecastDays, slog.Default())
}

// buildRouter は全依存関係をワイヤリングしたAPIルーターを構築する。
// 戻り値のstop関数でレートリミッターのクリーンアップを停止する。
func buildRouter(cfg *config.Config, db *sql.DB, reg *prometheus.Registry, collector *metrics.Collector) (http.Handler, func()) {
	// リポジトリ
	userRepo := repository.NewPostgresUserRepo(db)
	sessionRepo := repository.NewPostgresSessionRepo(db)
	favRepo := repository.NewPostgresFavoriteRepo(db)
	subRepo := repository.NewPostgresSubscriptionRepo(db)

	// ドメインサービス
	authService := auth.NewService(userRepo, sessionRepo, collector, auth.ServiceConfig{
		SessionMaxAge: cfg.SessionMaxAge,
		BcryptCost:    cfg.BcryptCost,
	})
	favService := favorite.NewService(favRepo, security.NewTextSanitizer())
	subService := subscription.NewService(subRepo, favRepo)
	userService := user.NewService(userRepo)
	weatherService := newWeatherService(cfg, collector)

	limiter := middleware.NewRateLimiter(
		middleware.RateLimiterConfigPerMinute(cfg.RateLimitGeneral, cfg.RateLimitWrite),
	)

	deps := &handler.RouterDeps{
		Logger:            slog.Default(),
		SessionFinder:     authService,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		CSRFConfig: middleware.CSRFConfig{
			Secret:       cfg.SessionSecret,
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
		},
		RateLimiter:     limiter,
		MetricsObserver: collector,
		MetricsGatherer: reg,
		HealthChecker:   db,

		AuthService: authService,
		AuthConfig: handler.AuthHandlerConfig{
			CookieDomain:  cfg.CookieDomain,
			CookieSecure:  cfg.CookieSecure,
			SessionMaxAge: cfg.SessionMaxAge,
		},

		WeatherService:      weatherService,
		FavoriteService:     favService,
		SubscriptionService: handler.NewSubscriptionServiceAdapter(subService),
		UserService:         userService,
	}

	return handler.NewRouter(deps), limiter.Stop
}

// runServe はAPIサーバーモードで起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(ctx context.Context, cfg *config.Config) error {
	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	slog.Info("database connection established")

	reg, collector := newRegistry()
	router, stopLimiter := buildRouter(cfg, db, reg, collector)
	defer stopLimiter()

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	slog.Info("API server starting", slog.String("addr", server.Addr))
	if err := serveUntilDone(ctx, server); err != nil {
		return err
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// buildWorkerScheduler は定期ジョブを登録したスケジューラを構築する。
// セッションのクリーンアップは常に登録し、条件評価は有効化されている場合のみ登録する。
func buildWorkerScheduler(cfg *config.Config, db *sql.DB, collector *metrics.Collector) (*schedule.Scheduler, error) {
	log := slog.Default()
	scheduler := schedule.NewScheduler(log)

	cleanupJob := cleanup.NewCleanupJob(repository.NewPostgresSessionRepo(db), log)
	if cfg.SessionGraceDays > 0 {
		cleanupJob.GraceDays = cfg.SessionGraceDays
	}
	if err := scheduler.Add("session_cleanup", cfg.CleanupSchedule, cleanupJob.Run); err != nil {
		return nil, err
	}

	if !cfg.EvaluatorEnabled {
		log.Info("condition evaluator is disabled")
		return scheduler, nil
	}

	evaluator := alert.NewEvaluator(
		repository.NewPostgresSubscriptionRepo(db),
		newWeatherService(cfg, collector),
		alert.NewLogNotifier(log),
		collector,
		log,
		cfg.EvaluatorMaxConcurrent,
		cfg.EvaluatorCooldown,
	)
	if err := scheduler.Add("condition_evaluator", cfg.EvaluatorSchedule, evaluator.RunOnce); err != nil {
		return nil, err
	}
	return scheduler, nil
}

// runWorker はワーカーモードで起動する。
// 定期ジョブを実行し、メトリクスを別ポートで公開する。
func runWorker(ctx context.Context, cfg *config.Config) error {
	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	slog.Info("database connection established (worker)")

	reg, collector := newRegistry()
	scheduler, err := buildWorkerScheduler(cfg, db, collector)
	if err != nil {
		return err
	}

	metricsServer := &http.Server{
		Addr:              ":" + cfg.MetricsPort,
		Handler:           metrics.SetupMetricsRoute(reg),
		ReadHeaderTimeout: 5 * time.Second,
	}
	metricsErr := make(chan error, 1)
	go func() {
		metricsErr <- serveUntilDone(ctx, metricsServer)
	}()

	slog.Info("worker starting",
		slog.Bool("evaluator_enabled", cfg.EvaluatorEnabled),
		slog.String("evaluator_schedule", cfg.EvaluatorSchedule),
		slog.String("cleanup_schedule", cfg.CleanupSchedule),
		slog.String("metrics_addr", metricsServer.Addr),
	)

	// スケジューラをメインgoroutineで実行（ブロッキング）
	scheduler.Start(ctx)

	if err := <-metricsErr; err != nil {
		slog.Error("metrics server error", slog.String("error", err.Error()))
	}

	slog.Info("worker stopped gracefully")
	return nil
}

// serveUntilDone はctxがキャンセルされるまでサーバーを動かし、その後グレースフルに停止する。
func serveUntilDone(ctx context.Context, server *http.Server) error {
	listenErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			listenErr <- err
		}
		close(listenErr)
	}()

	select {
	case err, ok := <-listenErr:
		if ok && err != nil {
			return fmt.Errorf("server listen error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down server...", slog.String("addr", server.Addr))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
//
//	migrate            未適用マイグレーションをすべて適用
//	migrate up         同上
//	migrate down [N]   直近N件（デフォルト1件）を取り消す
//	migrate version    現在のスキーマバージョンを表示
func runMigrate(cfg *config.Config, args []string) error {
	masked := maskDatabaseURL(cfg.DatabaseURL)

	action := "up"
	if len(args) > 0 {
		action = args[0]
	}

	switch action {
	case "up":
		slog.Info("running database migrations", slog.String("database_url", masked))
		if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		slog.Info("database migrations completed successfully")
	case "down":
		steps := 1
		if len(args) > 1 {
			n, err := strconv.Atoi(args[1])
			if err != nil || n <= 0 {
				return fmt.Errorf("invalid rollback steps: %q", args[1])
			}
			steps = n
		}
		slog.Info("rolling back database migrations",
			slog.String("database_url", masked),
			slog.Int("steps", steps),
		)
		if err := database.RollbackMigrations(cfg.DatabaseURL, steps); err != nil {
			return fmt.Errorf("rollback failed: %w", err)
		}
		slog.Info("database rollback completed successfully")
	case "version":
		status, err := database.GetMigrationStatus(cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to read migration status: %w", err)
		}
		slog.Info("database migration status",
			slog.Bool("applied", status.Applied),
			slog.Uint64("version", uint64(status.Version)),
			slog.Bool("dirty", status.Dirty),
		)
	default:
		return fmt.Errorf("unknown migrate action: %q", action)
	}
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	target := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(target)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLのパスワードをマスクする。
func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "***"
	}
	return u.Redacted()
}
