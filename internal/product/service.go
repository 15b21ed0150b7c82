// Package product は商品管理のドメインロジックを提供する。
package product

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hitoshi/retaildesk/internal/model"
	"github.com/hitoshi/retaildesk/internal/repository"
)

// Service は商品管理のサービス層。
type Service struct {
	products repository.ProductRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(products repository.ProductRepository) *Service {
	return &Service{products: products}
}

// List は全商品を新しい順に返す。
func (s *Service) List(ctx context.Context) ([]*model.Product, error) {
	products, err := s.products.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("商品一覧の取得に失敗しました: %w", err)
	}
	if products == nil {
		products = []*model.Product{}
	}
	return products, nil
}

// Create は商品を登録し、採番されたIDを返す。
func (s *Service) Create(ctx context.Context, p *model.Product) (int64, error) {
	id, err := s.products.Create(ctx, p)
	if err != nil {
		if errors.Is(err, model.ErrDuplicateSKU) {
			return 0, model.NewDuplicateSKUError()
		}
		return 0, fmt.Errorf("商品の登録に失敗しました: %w", err)
	}

	slog.Info("商品を登録しました",
		slog.Int64("product_id", id),
		slog.String("sku", p.SKU),
	)
	return id, nil
}
