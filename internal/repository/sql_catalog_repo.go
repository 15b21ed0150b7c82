package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/retaildesk/internal/database"
	"github.com/hitoshi/retaildesk/internal/model"
)

// SQLProductRepo はdatabase/sqlを使用した商品リポジトリ。
type SQLProductRepo struct {
	db      *sql.DB
	dialect database.Dialect
}

// NewSQLProductRepo はSQLProductRepoを生成する。
func NewSQLProductRepo(db *sql.DB, dialect database.Dialect) *SQLProductRepo {
	return &SQLProductRepo{db: db, dialect: dialect}
}

// List は全商品を新しい順に返す。
func (r *SQLProductRepo) List(ctx context.Context) ([]*model.Product, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, sku, price, stock, created_at FROM products ORDER BY id DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	var products []*model.Product
	for rows.Next() {
		p := &model.Product{}
		if err := rows.Scan(&p.ID, &p.Name, &p.SKU, &p.Price, &p.Stock, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate products: %w", err)
	}
	return products, nil
}

// Create は商品を作成し、採番されたIDを返す。
func (r *SQLProductRepo) Create(ctx context.Context, product *model.Product) (int64, error) {
	id, err := r.dialect.InsertReturningID(ctx, r.db,
		`INSERT INTO products (name, sku, price, stock) VALUES (?, ?, ?, ?)`,
		product.Name, product.SKU, product.Price, product.Stock,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return 0, model.ErrDuplicateSKU
		}
		return 0, fmt.Errorf("failed to insert product: %w", err)
	}
	return id, nil
}

// SQLSaleRepo はdatabase/sqlを使用した販売記録リポジトリ。
type SQLSaleRepo struct {
	db      *sql.DB
	dialect database.Dialect
}

// NewSQLSaleRepo はSQLSaleRepoを生成する。
func NewSQLSaleRepo(db *sql.DB, dialect database.Dialect) *SQLSaleRepo {
	return &SQLSaleRepo{db: db, dialect: dialect}
}

// List は全販売記録を販売日時の新しい順に返す。
func (r *SQLSaleRepo) List(ctx context.Context) ([]*model.Sale, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, product_id, quantity, total_amount, sold_at FROM sales ORDER BY sold_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list sales: %w", err)
	}
	defer rows.Close()

	var sales []*model.Sale
	for rows.Next() {
		s := &model.Sale{}
		if err := rows.Scan(&s.ID, &s.ProductID, &s.Quantity, &s.TotalAmount, &s.SoldAt); err != nil {
			return nil, fmt.Errorf("failed to scan sale: %w", err)
		}
		sales = append(sales, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sales: %w", err)
	}
	return sales, nil
}

// Create は販売記録を作成し、採番されたIDを返す。
func (r *SQLSaleRepo) Create(ctx context.Context, sale *model.Sale) (int64, error) {
	id, err := r.dialect.InsertReturningID(ctx, r.db,
		`INSERT INTO sales (product_id, quantity, total_amount) VALUES (?, ?, ?)`,
		sale.ProductID, sale.Quantity, sale.TotalAmount,
	)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return 0, model.ErrUnknownProduct
		}
		return 0, fmt.Errorf("failed to insert sale: %w", err)
	}
	return id, nil
}

// compile-time interface check
var (
	_ ProductRepository = (*SQLProductRepo)(nil)
	_ SaleRepository    = (*SQLSaleRepo)(nil)
)
