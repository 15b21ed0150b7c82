package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/hitoshi/retaildesk/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	CORSAllowedOrigin string
	TrustProxyHeaders bool // trueの場合のみchiのRealIPでプロキシヘッダーをRemoteAddrに反映する
	RateLimiter       *middleware.RateLimiter
	TokenVerifier     middleware.TokenVerifier
	RequireAuth       bool // trueの場合、商品・販売・ユーザーAPIにBearer認証を要求する

	// メトリクス
	StatusRecorder middleware.StatusCodeRecorder
	MetricsHandler http.Handler

	// 認証
	AuthService AuthServiceInterface
	TokenIssuer TokenIssuer
	AuthMetrics AuthMetrics

	// 業務API
	ProductService ProductServiceInterface
	SaleService    SaleServiceInterface
	UserService    UserServiceInterface

	Sanitizer TextSanitizer
	DB        Pinger
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RequestID → RealIP（TrustProxyHeaders時のみ） → Logging → Metrics → Recovery → SecurityHeaders → CORS
//
// /api/auth/register と /api/auth/login には登録・ログイン用のレート制限、
// その他の /api/* にはAPI全般のレート制限を適用する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r.Use(chimw.RequestID)
	if deps.TrustProxyHeaders {
		r.Use(chimw.RealIP)
	}
	r.Use(middleware.NewLoggingMiddleware(logger))
	if deps.StatusRecorder != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.StatusRecorder))
	}
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	authHandler := NewAuthHandler(deps.AuthService, deps.TokenIssuer, deps.Sanitizer, deps.AuthMetrics)
	catalogHandler := NewCatalogHandler(deps.ProductService, deps.SaleService, deps.Sanitizer)
	userHandler := NewUserHandler(deps.UserService, deps.Sanitizer)
	healthHandler := NewHealthHandler(deps.DB)

	// --- 稼働確認 ---
	r.Get("/", healthHandler.Banner)
	r.Get("/health", healthHandler.Health)
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", healthHandler.Health)

		// --- 認証 ---
		r.Route("/auth", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				if deps.RateLimiter != nil {
					r.Use(deps.RateLimiter.AuthMiddleware())
				}
				r.Post("/register", authHandler.Register)
				r.Post("/login", authHandler.Login)
			})

			r.Group(func(r chi.Router) {
				if deps.RateLimiter != nil {
					r.Use(deps.RateLimiter.GeneralMiddleware())
				}
				r.Use(middleware.NewBearerAuthMiddleware(deps.TokenVerifier))
				r.Get("/me", authHandler.Me)
			})
		})

		// --- 業務API ---
		r.Group(func(r chi.Router) {
			if deps.RateLimiter != nil {
				r.Use(deps.RateLimiter.GeneralMiddleware())
			}
			if deps.RequireAuth {
				r.Use(middleware.NewBearerAuthMiddleware(deps.TokenVerifier))
			}

			r.Route("/products", func(r chi.Router) {
				r.Get("/", catalogHandler.ListProducts)
				r.Post("/", catalogHandler.CreateProduct)
			})

			r.Route("/sales", func(r chi.Router) {
				r.Get("/", catalogHandler.ListSales)
				r.Post("/", catalogHandler.CreateSale)
			})

			r.Route("/users", func(r chi.Router) {
				r.Get("/", userHandler.ListUsers)
				r.Post("/", userHandler.CreateUser)
			})
		})
	})

	return r
}
