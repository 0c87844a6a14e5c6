package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/tenki/internal/metrics"
	"github.com/hitoshi/tenki/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	SessionFinder     middleware.SessionFinder
	CORSAllowedOrigin string
	CSRFConfig        middleware.CSRFConfig
	RateLimiter       *middleware.RateLimiter
	MetricsObserver   middleware.HTTPObserver
	MetricsGatherer   prometheus.Gatherer
	HealthChecker     HealthChecker

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// 天気
	WeatherService WeatherServiceInterface

	// お気に入り
	FavoriteService FavoriteServiceInterface

	// 購読
	SubscriptionService SubscriptionServiceInterface

	// ユーザー
	UserService UserServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → RequestID → RealIP → SecurityHeaders → Logging → Metrics → CORS
//	  /auth/*: CSRF
//	  /api/*:  Session → RateLimit(General) → CSRF → RateLimit(Write, 変更系のみ)
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger))
	if deps.MetricsObserver != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.MetricsObserver))
	}
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	weatherHandler := NewWeatherHandler(deps.WeatherService)
	favHandler := NewFavoriteHandler(deps.FavoriteService)
	subHandler := NewSubscriptionHandler(deps.SubscriptionService)
	userHandler := NewUserHandler(deps.UserService)
	csrf := middleware.NewCSRFMiddleware(deps.CSRFConfig)

	// --- 認証不要のルート ---

	r.Get("/health", NewHealthHandler(deps.HealthChecker))
	if deps.MetricsGatherer != nil {
		r.Handle("/metrics", metrics.Handler(deps.MetricsGatherer))
	}

	r.Route("/auth", func(r chi.Router) {
		r.Use(csrf)
		r.Get("/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig).ServeHTTP)
		r.Post("/signup", authHandler.Signup)
		r.Post("/login", authHandler.Login)
		r.Post("/logout", authHandler.Logout)
	})

	// --- 認証が必要なルート ---
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionFinder))
		r.Use(deps.RateLimiter.GeneralMiddleware())
		r.Use(csrf)
		r.Use(deps.RateLimiter.WriteMiddleware())

		r.Get("/api/current-user", authHandler.CurrentUser)

		// 天気情報
		r.Get("/api/weather-forecast", weatherHandler.GetForecast)
		r.Get("/api/weather-by-coords", weatherHandler.GetCurrent)

		// お気に入り地点
		r.Route("/api/favorites", func(r chi.Router) {
			r.Get("/", favHandler.ListFavorites)
			r.Post("/", favHandler.CreateFavorite)
			r.Delete("/{id}", favHandler.DeleteFavorite)
		})

		// 天気購読
		r.Route("/api/weather-subscriptions", func(r chi.Router) {
			r.Get("/", subHandler.ListSubscriptions)
			r.Post("/", subHandler.CreateSubscription)
			r.Delete("/{id}", subHandler.DeleteSubscription)
		})

		// ユーザー管理
		r.Route("/api/users", func(r chi.Router) {
			r.Delete("/me", userHandler.Withdraw)
		})
	})

	return r
}
