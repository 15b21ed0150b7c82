// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/retaildesk/internal/model"
)

// AccountRepository はアカウント（usersテーブル）の永続化インターフェース。
type AccountRepository interface {
	// FindByEmail はemailでアカウントを検索する。見つからない場合はnilを返す。
	// emailは保存値と大文字小文字を区別して比較する。
	FindByEmail(ctx context.Context, email string) (*model.Account, error)

	// FindByID は指定IDのアカウントを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.Account, error)

	// Create はアカウントを作成し、採番されたIDを返す。
	// email重複（一意制約違反）の場合はmodel.ErrDuplicateEmailを返す。
	Create(ctx context.Context, account *model.Account) (int64, error)

	// List は全アカウントを新しい順に返す。PasswordHashは読み込まない。
	List(ctx context.Context) ([]*model.Account, error)
}

// ProductRepository は商品の永続化インターフェース。
type ProductRepository interface {
	// List は全商品を新しい順に返す。
	List(ctx context.Context) ([]*model.Product, error)
	// Create は商品を作成し、採番されたIDを返す。
	Create(ctx context.Context, product *model.Product) (int64, error)
}

// SaleRepository は販売記録の永続化インターフェース。
type SaleRepository interface {
	// List は全販売記録を販売日時の新しい順に返す。
	List(ctx context.Context) ([]*model.Sale, error)
	// Create は販売記録を作成し、採番されたIDを返す。
	Create(ctx context.Context, sale *model.Sale) (int64, error)
}
