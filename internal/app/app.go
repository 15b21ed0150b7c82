package app

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/retaildesk/internal/auth"
	"github.com/hitoshi/retaildesk/internal/config"
	"github.com/hitoshi/retaildesk/internal/database"
	"github.com/hitoshi/retaildesk/internal/handler"
	"github.com/hitoshi/retaildesk/internal/logger"
	"github.com/hitoshi/retaildesk/internal/metrics"
	"github.com/hitoshi/retaildesk/internal/middleware"
	"github.com/hitoshi/retaildesk/internal/password"
	"github.com/hitoshi/retaildesk/internal/product"
	"github.com/hitoshi/retaildesk/internal/repository"
	"github.com/hitoshi/retaildesk/internal/sale"
	"github.com/hitoshi/retaildesk/internal/security"
	"github.com/hitoshi/retaildesk/internal/token"
	"github.com/hitoshi/retaildesk/internal/user"
)

// Init はアプリケーションの初期化を行う。
// JSON構造化ログをセットアップし、環境変数からConfigを読み込む。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w, slog.LevelInfo)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. 設定されたログレベルで再設定
	logger.SetupDefault(w, logger.ParseLevel(cfg.LogLevel))

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
			port = "4000"
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
		slog.String("db_driver", string(cfg.DBDriver)),
		slog.Bool("insecure_signing_key", cfg.JWTSecretIsDefault),
	)
	if cfg.JWTSecretIsDefault {
		slog.Warn("JWT_SECRET is not set; using the built-in default signing key")
	}

	return runServe(cfg)
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	dsn, err := cfg.DSN()
	if err != nil {
		return fmt.Errorf("failed to build database DSN: %w", err)
	}

	pool := database.DefaultPoolConfig()
	pool.MaxOpenConns = cfg.DBMaxOpenConns
	pool.MaxIdleConns = cfg.DBMaxOpenConns

	db, err := database.Open(cfg.DBDriver, dsn, pool)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established",
		slog.String("dsn", database.MaskDSN(cfg.DBDriver, dsn)),
	)

	server, cleanup := newServer(cfg, db, prometheus.NewRegistry())
	defer cleanup()

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	listenErr := make(chan error, 1)
	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			listenErr <- err
		}
	}()

	select {
	case <-stop:
	case err := <-listenErr:
		return fmt.Errorf("server listen error: %w", err)
	}
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// newServer はリポジトリ・サービス・ルーターを組み立ててHTTPサーバーを返す。
// 戻り値の関数はレートリミッタのバックグラウンド処理を停止する。
func newServer(cfg *config.Config, db *sql.DB, reg *prometheus.Registry) (*http.Server, func()) {
	// 1. リポジトリの初期化
	accountRepo := repository.NewSQLAccountRepo(db, cfg.DBDriver)
	productRepo := repository.NewSQLProductRepo(db, cfg.DBDriver)
	saleRepo := repository.NewSQLSaleRepo(db, cfg.DBDriver)

	// 2. メトリクス
	collector := metrics.NewCollector(reg)

	// 3. 認証まわりの初期化
	hasher := auth.InstrumentHasher(password.NewHasher(cfg.BcryptCost), collector)
	authService := auth.NewService(accountRepo, hasher, auth.ServiceConfig{
		DefaultRole: cfg.DefaultRole,
	})
	issuer := token.NewIssuer([]byte(cfg.JWTSecret), cfg.TokenTTL)
	slog.Info("token issuer configured",
		slog.Duration("token_ttl", issuer.TTL()),
	)

	// 4. ドメインサービスの初期化
	productService := product.NewService(productRepo)
	saleService := sale.NewService(saleRepo)
	userService := user.NewService(accountRepo, cfg.DefaultRole)

	// 5. ルーターの構築
	rateLimiterCfg := middleware.DefaultRateLimiterConfig()
	// configのレート制限はreq/min単位のためrate.Limit(req/sec)に変換する
	rateLimiterCfg.GeneralRate = middleware.PerMinute(cfg.RateLimitGeneral)
	rateLimiterCfg.GeneralBurst = cfg.RateLimitGeneral
	rateLimiterCfg.AuthRate = middleware.PerMinute(cfg.RateLimitAuth)
	rateLimiterCfg.AuthBurst = cfg.RateLimitAuth
	rateLimiter := middleware.NewRateLimiter(rateLimiterCfg)

	deps := &handler.RouterDeps{
		Logger:            slog.Default(),
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		TrustProxyHeaders: cfg.TrustProxyHeaders,
		RateLimiter:       rateLimiter,
		TokenVerifier:     issuer,
		RequireAuth:       cfg.APIRequireAuth,

		StatusRecorder: collector,
		MetricsHandler: metrics.Handler(reg),

		AuthService: authService,
		TokenIssuer: issuer,
		AuthMetrics: collector,

		ProductService: productService,
		SaleService:    saleService,
		UserService:    userService,

		Sanitizer: security.NewTextSanitizer(),
		DB:        db,
	}

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      handler.NewRouter(deps),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return server, rateLimiter.Stop
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}
