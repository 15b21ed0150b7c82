package database

import (
	"fmt"
	"net"
	"net/url"
	"strconv"

	"github.com/go-sql-driver/mysql"
)

// ConnParams は個別の接続パラメータ。DATABASE_URL未指定時にDSNを組み立てるために使う。
type ConnParams struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
}

// BuildDSN は方言に応じた接続文字列を組み立てる。
func BuildDSN(dialect Dialect, p ConnParams) (string, error) {
	addr := net.JoinHostPort(p.Host, strconv.Itoa(p.Port))

	switch dialect {
	case MySQL:
		cfg := mysql.NewConfig()
		cfg.User = p.User
		cfg.Passwd = p.Password
		cfg.Net = "tcp"
		cfg.Addr = addr
		cfg.DBName = p.Name
		cfg.ParseTime = true
		return cfg.FormatDSN(), nil
	case Postgres:
		u := &url.URL{
			Scheme:   "postgres",
			Host:     addr,
			Path:     "/" + p.Name,
			RawQuery: "sslmode=disable",
		}
		if p.Password != "" {
			u.User = url.UserPassword(p.User, p.Password)
		} else {
			u.User = url.User(p.User)
		}
		return u.String(), nil
	default:
		return "", fmt.Errorf("unsupported database driver: %q", dialect)
	}
}

// MaskDSN は接続文字列の認証情報をマスクする。ログ出力用。
func MaskDSN(dialect Dialect, dsn string) string {
	switch dialect {
	case MySQL:
		cfg, err := mysql.ParseDSN(dsn)
		if err != nil {
			return "***"
		}
		return fmt.Sprintf("%s:***@%s(%s)/%s", cfg.User, cfg.Net, cfg.Addr, cfg.DBName)
	case Postgres:
		u, err := url.Parse(dsn)
		if err != nil || u.Host == "" {
			return "***"
		}
		if u.User != nil {
			u.User = url.UserPassword(u.User.Username(), "***")
		}
		u.RawQuery = ""
		return u.String()
	default:
		return "***"
	}
}
