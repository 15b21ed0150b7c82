// Package auth はパスワード認証（登録・ログイン）のビジネスロジックを提供する。
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hitoshi/retaildesk/internal/model"
	"github.com/hitoshi/retaildesk/internal/repository"
)

// DefaultRole は登録時に付与するロールの既定値。
const DefaultRole = "staff"

// PasswordHasher はパスワードのハッシュ化と照合のインターフェース。
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, digest string) bool
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	DefaultRole string // 登録時に付与するロール。空の場合はDefaultRole
}

// RegisterInput は登録リクエストの入力値。
// 値は検証・正規化済みであること。
type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
	Mobile    string
	Address   string
}

// RegisterResult は登録成功時の結果。
type RegisterResult struct {
	ID    int64
	Email string
}

// LoginResult はログイン成功時の結果。
type LoginResult struct {
	ID    int64
	Email string
	Name  string
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	accounts repository.AccountRepository
	hasher   PasswordHasher
	config   ServiceConfig
}

// NewService はServiceを生成する。
func NewService(accounts repository.AccountRepository, hasher PasswordHasher, config ServiceConfig) *Service {
	if config.DefaultRole == "" {
		config.DefaultRole = DefaultRole
	}
	return &Service{
		accounts: accounts,
		hasher:   hasher,
		config:   config,
	}
}

// Register は新しいアカウントを作成する。
// emailが登録済みの場合はDuplicateAccountエラーを返し、挿入は行わない。
func (s *Service) Register(ctx context.Context, in RegisterInput) (*RegisterResult, error) {
	existing, err := s.accounts.FindByEmail(ctx, in.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to find account: %w", err)
	}
	if existing != nil {
		return nil, model.NewDuplicateAccountError()
	}

	digest, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to register account: %w", err)
	}

	account := &model.Account{
		Name:         in.FirstName + " " + in.LastName,
		Email:        in.Email,
		PasswordHash: digest,
		Mobile:       in.Mobile,
		Address:      in.Address,
		Role:         s.config.DefaultRole,
	}

	id, err := s.accounts.Create(ctx, account)
	if err != nil {
		// 検索と挿入の間に同じemailで登録された場合
		if errors.Is(err, model.ErrDuplicateEmail) {
			return nil, model.NewDuplicateAccountError()
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	slog.Info("account registered",
		slog.Int64("account_id", id),
		slog.String("role", account.Role),
	)

	return &RegisterResult{ID: id, Email: account.Email}, nil
}

// Login はemailとパスワードでアカウントを認証する。
// 未登録emailとパスワード不一致は同一のInvalidCredentialsエラーを返す。
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	account, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to find account: %w", err)
	}
	if account == nil || !account.HasPassword() {
		return nil, model.NewInvalidCredentialsError()
	}

	if !s.hasher.Verify(password, account.PasswordHash) {
		return nil, model.NewInvalidCredentialsError()
	}

	return &LoginResult{ID: account.ID, Email: account.Email, Name: account.Name}, nil
}

// CurrentAccount はトークンから特定されたアカウントを取得する。
func (s *Service) CurrentAccount(ctx context.Context, id int64) (*model.Account, error) {
	account, err := s.accounts.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find account: %w", err)
	}
	if account == nil {
		return nil, model.NewAccountNotFoundError()
	}
	return account, nil
}
