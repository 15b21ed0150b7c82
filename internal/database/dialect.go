package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
)

// Dialect はSQL方言（ドライバー）を表す。
type Dialect string

const (
	// Postgres はPostgreSQL（lib/pq）を表す。
	Postgres Dialect = "postgres"
	// MySQL はMySQL（go-sql-driver/mysql）を表す。
	MySQL Dialect = "mysql"
)

// 制約違反のエラーコード
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	mysqlDuplicateEntry   = 1062
	mysqlNoReferencedRow  = 1452
)

// Valid はサポート対象の方言かどうかを返す。
func (d Dialect) Valid() bool {
	return d == Postgres || d == MySQL
}

// DriverName はdatabase/sqlに登録されたドライバー名を返す。
func (d Dialect) DriverName() string {
	return string(d)
}

// Rebind は ? プレースホルダーを方言に合わせて書き換える。
// PostgreSQLでは $1, $2, ... に変換する。クエリ中の文字列リテラルに ? を含めないこと。
func (d Dialect) Rebind(query string) string {
	if d != Postgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Querier は*sql.DBと*sql.Txの共通部分。
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// InsertReturningID はINSERTを実行し、採番されたIDを返す。
// PostgreSQLでは RETURNING id、MySQLでは LastInsertId を使用する。
// queryは ? プレースホルダーで記述する。
func (d Dialect) InsertReturningID(ctx context.Context, q Querier, query string, args ...any) (int64, error) {
	if d == Postgres {
		var id int64
		if err := q.QueryRowContext(ctx, d.Rebind(query)+" RETURNING id", args...).Scan(&id); err != nil {
			return 0, err
		}
		return id, nil
	}

	result, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert id: %w", err)
	}
	return id, nil
}

// IsUniqueViolation はerrが一意制約違反かどうかを判定する。
func IsUniqueViolation(err error) bool {
	return matchesCode(err, pgUniqueViolation, mysqlDuplicateEntry)
}

// IsForeignKeyViolation はerrが外部キー制約違反（参照先なし）かどうかを判定する。
func IsForeignKeyViolation(err error) bool {
	return matchesCode(err, pgForeignKeyViolation, mysqlNoReferencedRow)
}

func matchesCode(err error, pgCode string, mysqlNumber uint16) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == pgCode
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlNumber
	}
	return false
}
