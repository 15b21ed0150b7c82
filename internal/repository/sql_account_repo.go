package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/retaildesk/internal/database"
	"github.com/hitoshi/retaildesk/internal/model"
)

// SQLAccountRepo はdatabase/sqlを使用したアカウントリポジトリ。
// PostgreSQLとMySQLの両方で動作する。
type SQLAccountRepo struct {
	db      *sql.DB
	dialect database.Dialect
}

// NewSQLAccountRepo はSQLAccountRepoを生成する。
func NewSQLAccountRepo(db *sql.DB, dialect database.Dialect) *SQLAccountRepo {
	return &SQLAccountRepo{db: db, dialect: dialect}
}

const selectAccountColumns = `SELECT id, name, email, password_hash, mobile, address, role, created_at FROM users`

// FindByEmail はemailでアカウントを検索する。見つからない場合はnilを返す。
func (r *SQLAccountRepo) FindByEmail(ctx context.Context, email string) (*model.Account, error) {
	row := r.db.QueryRowContext(ctx,
		r.dialect.Rebind(selectAccountColumns+` WHERE email = ?`),
		email,
	)
	account, err := scanAccount(row)
	if err != nil {
		return nil, fmt.Errorf("failed to find account by email: %w", err)
	}
	return account, nil
}

// FindByID は指定IDのアカウントを取得する。見つからない場合はnilを返す。
func (r *SQLAccountRepo) FindByID(ctx context.Context, id int64) (*model.Account, error) {
	row := r.db.QueryRowContext(ctx,
		r.dialect.Rebind(selectAccountColumns+` WHERE id = ?`),
		id,
	)
	account, err := scanAccount(row)
	if err != nil {
		return nil, fmt.Errorf("failed to find account by ID: %w", err)
	}
	return account, nil
}

// Create はアカウントを作成し、採番されたIDを返す。
func (r *SQLAccountRepo) Create(ctx context.Context, account *model.Account) (int64, error) {
	id, err := r.dialect.InsertReturningID(ctx, r.db,
		`INSERT INTO users (name, email, password_hash, mobile, address, role) VALUES (?, ?, ?, ?, ?, ?)`,
		account.Name,
		account.Email,
		nullString(account.PasswordHash),
		nullString(account.Mobile),
		nullString(account.Address),
		account.Role,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return 0, model.ErrDuplicateEmail
		}
		return 0, fmt.Errorf("failed to insert account: %w", err)
	}
	return id, nil
}

// List は全アカウントを新しい順に返す。
func (r *SQLAccountRepo) List(ctx context.Context) ([]*model.Account, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, email, role, created_at FROM users ORDER BY id DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*model.Account
	for rows.Next() {
		a := &model.Account{}
		if err := rows.Scan(&a.ID, &a.Name, &a.Email, &a.Role, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate accounts: %w", err)
	}
	return accounts, nil
}

// scanAccount は1行をAccountに読み込む。行がない場合は(nil, nil)を返す。
func scanAccount(row *sql.Row) (*model.Account, error) {
	a := &model.Account{}
	var passwordHash, mobile, address sql.NullString
	err := row.Scan(&a.ID, &a.Name, &a.Email, &passwordHash, &mobile, &address, &a.Role, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	a.PasswordHash = passwordHash.String
	a.Mobile = mobile.String
	a.Address = address.String
	return a, nil
}

// nullString は空文字列をNULLとして保存するための変換を行う。
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// compile-time interface check
var _ AccountRepository = (*SQLAccountRepo)(nil)
