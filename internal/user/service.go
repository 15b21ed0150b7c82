// Package user はユーザー管理のドメインロジックを提供する。
package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hitoshi/retaildesk/internal/model"
	"github.com/hitoshi/retaildesk/internal/repository"
)

// CreateInput は管理画面からのユーザー作成の入力値。
type CreateInput struct {
	Name  string
	Email string
	Role  string // 空の場合はサービスの既定ロール
}

// Service はユーザー管理のサービス層。
// 一覧取得と、パスワードを持たないユーザーの作成を提供する。
type Service struct {
	accounts    repository.AccountRepository
	defaultRole string
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(accounts repository.AccountRepository, defaultRole string) *Service {
	return &Service{
		accounts:    accounts,
		defaultRole: defaultRole,
	}
}

// List は全ユーザーを新しい順に返す。
func (s *Service) List(ctx context.Context) ([]*model.Account, error) {
	accounts, err := s.accounts.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("ユーザー一覧の取得に失敗しました: %w", err)
	}
	if accounts == nil {
		accounts = []*model.Account{}
	}
	return accounts, nil
}

// Create はユーザーを作成し、採番されたIDを返す。
// 作成されたユーザーはパスワードを持たないため、そのままではログインできない。
func (s *Service) Create(ctx context.Context, in CreateInput) (int64, error) {
	existing, err := s.accounts.FindByEmail(ctx, in.Email)
	if err != nil {
		return 0, fmt.Errorf("ユーザーの検索に失敗しました: %w", err)
	}
	if existing != nil {
		return 0, model.NewDuplicateAccountError()
	}

	role := in.Role
	if role == "" {
		role = s.defaultRole
	}

	id, err := s.accounts.Create(ctx, &model.Account{
		Name:  in.Name,
		Email: in.Email,
		Role:  role,
	})
	if err != nil {
		if errors.Is(err, model.ErrDuplicateEmail) {
			return 0, model.NewDuplicateAccountError()
		}
		return 0, fmt.Errorf("ユーザーの作成に失敗しました: %w", err)
	}

	slog.Info("ユーザーを作成しました",
		slog.Int64("account_id", id),
		slog.String("role", role),
	)

	return id, nil
}
