package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/sociallink/internal/middleware"
)

// HealthChecker はDB疎通確認のインターフェース。*sql.DBが満たす。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger

	// 連携フロー
	LinkService LinkServiceInterface
	LinkConfig  LinkHandlerConfig

	// アカウント管理
	AccountService AccountServiceInterface

	// 運用エンドポイント
	HealthChecker  HealthChecker
	MetricsHandler http.Handler
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	CORS → SecurityHeaders → Recovery → Logging → RateLimit
//
// レート制限は連携フロー（LinkMiddleware、厳しめ）とその他API
// （GeneralMiddleware）で分ける。/healthと/metricsはレート制限の外。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))

	linkHandler := NewLinkHandler(deps.LinkService, deps.LinkConfig)
	accountHandler := NewAccountHandler(deps.AccountService)

	// LinkedIn連携フロー
	r.Route("/auth/linkedin", func(r chi.Router) {
		r.With(deps.RateLimiter.LinkMiddleware()).Get("/connect", linkHandler.InitiateLink)
		r.With(deps.RateLimiter.LinkMiddleware()).Post("/connect", linkHandler.CompleteLinkPost)
		r.With(deps.RateLimiter.LinkMiddleware()).Get("/callback", linkHandler.Callback)

		// その他メソッドは405 JSON
		r.Put("/connect", linkHandler.MethodNotAllowed)
		r.Delete("/connect", linkHandler.MethodNotAllowed)
		r.Patch("/connect", linkHandler.MethodNotAllowed)
	})

	// アカウント管理
	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Route("/api/accounts", func(r chi.Router) {
			r.Get("/", accountHandler.ListAccounts)
			r.Post("/{platform}/disconnect", accountHandler.Disconnect)
		})
	})

	// ヘルスチェック（DB疎通込み）
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := deps.HealthChecker.PingContext(r.Context()); err != nil {
			slog.Error("health check failed", slog.String("error", err.Error()))
			http.Error(w, "unhealthy", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Prometheusメトリクス
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	return r
}
