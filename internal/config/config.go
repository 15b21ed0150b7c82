package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hitoshi/retaildesk/internal/database"
)

// DefaultJWTSecret はJWT_SECRET未設定時の署名鍵。本番では必ず上書きすること。
const DefaultJWTSecret = "your-secret-key-change-in-production"

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DBDriver       database.Dialect
	DatabaseURL    string
	DBHost         string
	DBPort         int
	DBUser         string
	DBPassword     string
	DBName         string
	DBMaxOpenConns int

	// Auth
	JWTSecret          string
	JWTSecretIsDefault bool
	TokenTTL           time.Duration
	BcryptCost         int
	DefaultRole        string
	APIRequireAuth     bool

	// Rate Limit (req/min per IP)
	RateLimitGeneral int
	RateLimitAuth    int

	// Server
	ServerPort string
	// TrustProxyHeadersがtrueの場合のみX-Forwarded-For等をクライアントIPとして扱う
	TrustProxyHeaders bool

	// CORS
	CORSAllowedOrigin string

	// Logging
	LogLevel string
}

// Load は環境変数からConfigを読み込む。
// 値が不正な環境変数がある場合はまとめてエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	var invalid []string

	cfg.DBDriver = database.Dialect(strings.ToLower(getEnvString("DB_DRIVER", string(database.Postgres))))
	if !cfg.DBDriver.Valid() {
		invalid = append(invalid, "DB_DRIVER")
	}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.DBHost = getEnvString("DB_HOST", "localhost")
	cfg.DBPort = getEnvInt("DB_PORT", defaultPort(cfg.DBDriver))
	cfg.DBUser = getEnvString("DB_USER", defaultUser(cfg.DBDriver))
	cfg.DBPassword = os.Getenv("DB_PASSWORD")
	cfg.DBName = getEnvString("DB_NAME", "retail_store")
	cfg.DBMaxOpenConns = getEnvInt("DB_MAX_OPEN_CONNS", 10)

	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = DefaultJWTSecret
		cfg.JWTSecretIsDefault = true
	}
	cfg.TokenTTL = getEnvDuration("TOKEN_TTL", 7*24*time.Hour)
	cfg.BcryptCost = getEnvInt("BCRYPT_COST", 10)
	cfg.DefaultRole = getEnvString("DEFAULT_ROLE", "staff")
	cfg.APIRequireAuth = getEnvBool("API_REQUIRE_AUTH", false)

	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 300)
	if cfg.RateLimitGeneral <= 0 {
		invalid = append(invalid, "RATE_LIMIT_GENERAL")
	}
	cfg.RateLimitAuth = getEnvInt("RATE_LIMIT_AUTH", 20)
	if cfg.RateLimitAuth <= 0 {
		invalid = append(invalid, "RATE_LIMIT_AUTH")
	}

	cfg.ServerPort = getEnvString("SERVER_PORT", "4000")
	cfg.TrustProxyHeaders = getEnvBool("TRUST_PROXY_HEADERS", false)
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "*")
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")

	if len(invalid) > 0 {
		return nil, fmt.Errorf("invalid environment variables: %v", invalid)
	}

	return cfg, nil
}

// DSN はデータベース接続文字列を返す。
// DATABASE_URLが設定されていればそれを優先し、なければ個別パラメータから組み立てる。
func (c *Config) DSN() (string, error) {
	if c.DatabaseURL != "" {
		return c.DatabaseURL, nil
	}
	return database.BuildDSN(c.DBDriver, database.ConnParams{
		Host:     c.DBHost,
		Port:     c.DBPort,
		User:     c.DBUser,
		Password: c.DBPassword,
		Name:     c.DBName,
	})
}

func defaultPort(d database.Dialect) int {
	if d == database.MySQL {
		return 3306
	}
	return 5432
}

func defaultUser(d database.Dialect) string {
	if d == database.MySQL {
		return "root"
	}
	return "postgres"
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
