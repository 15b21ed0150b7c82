// Package sale は販売記録のドメインロジックを提供する。
package sale

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hitoshi/retaildesk/internal/model"
	"github.com/hitoshi/retaildesk/internal/repository"
)

// Service は販売記録のサービス層。
type Service struct {
	sales repository.SaleRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(sales repository.SaleRepository) *Service {
	return &Service{sales: sales}
}

// List は全販売記録を販売日時の新しい順に返す。
func (s *Service) List(ctx context.Context) ([]*model.Sale, error) {
	sales, err := s.sales.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("販売記録の取得に失敗しました: %w", err)
	}
	if sales == nil {
		sales = []*model.Sale{}
	}
	return sales, nil
}

// Record は販売を記録し、採番されたIDを返す。
// 在庫の引き当ては行わない。
func (s *Service) Record(ctx context.Context, sale *model.Sale) (int64, error) {
	id, err := s.sales.Create(ctx, sale)
	if err != nil {
		if errors.Is(err, model.ErrUnknownProduct) {
			return 0, model.NewUnknownProductError()
		}
		return 0, fmt.Errorf("販売記録の登録に失敗しました: %w", err)
	}

	slog.Info("販売を記録しました",
		slog.Int64("sale_id", id),
		slog.Int64("product_id", sale.ProductID),
		slog.Int("quantity", sale.Quantity),
	)
	return id, nil
}
