// Package model はドメインモデルを定義する。
package model

import (
	"errors"
	"fmt"
)

// APIError は統一エラーフォーマットを表す。
// Messageはそのままレスポンスの error フィールドに載るため、内部情報を含めないこと。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, catalog, system
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeDuplicateAccount   = "DUPLICATE_ACCOUNT"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeValidationFailed   = "VALIDATION_FAILED"
	ErrCodeInvalidRequest     = "INVALID_REQUEST"
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeAccountNotFound    = "ACCOUNT_NOT_FOUND"
	ErrCodeDuplicateSKU       = "DUPLICATE_SKU"
	ErrCodeUnknownProduct     = "UNKNOWN_PRODUCT"
	ErrCodeInternal           = "INTERNAL_ERROR"
)

// ErrDuplicateEmail はストアの一意制約違反（email重複）を表す。
// リポジトリ層が返し、サービス層でDuplicateAccountに変換する。
var ErrDuplicateEmail = errors.New("email already exists")

// ErrDuplicateSKU はストアの一意制約違反（SKU重複）を表す。
var ErrDuplicateSKU = errors.New("sku already exists")

// ErrUnknownProduct は販売記録が存在しない商品を参照したことを表す（外部キー制約違反）。
var ErrUnknownProduct = errors.New("referenced product does not exist")

// NewDuplicateAccountError は登録済みemailでの登録エラーを生成する。
func NewDuplicateAccountError() *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateAccount,
		Message:  "Email already registered",
		Category: "auth",
	}
}

// NewDuplicateSKUError は登録済みSKUでの商品登録エラーを生成する。
func NewDuplicateSKUError() *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateSKU,
		Message:  "SKU already exists",
		Category: "catalog",
	}
}

// NewUnknownProductError は存在しない商品への販売記録エラーを生成する。
func NewUnknownProductError() *APIError {
	return &APIError{
		Code:     ErrCodeUnknownProduct,
		Message:  "Product does not exist",
		Category: "catalog",
	}
}

// NewInvalidCredentialsError はログイン失敗エラーを生成する。
// 未登録emailとパスワード不一致のどちらでも同一の値を返す。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "Invalid email or password",
		Category: "auth",
	}
}

// NewValidationError は入力検証エラーを生成する。
func NewValidationError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeValidationFailed,
		Message:  message,
		Category: "validation",
	}
}

// NewInvalidRequestError はリクエストボディの解析エラーを生成する。
func NewInvalidRequestError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  "Invalid request body",
		Category: "validation",
	}
}

// NewUnauthorizedError はBearerトークン不正・欠落エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "Unauthorized",
		Category: "auth",
	}
}

// NewAccountNotFoundError はアカウントが見つからない場合のエラーを生成する。
func NewAccountNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeAccountNotFound,
		Message:  "Account not found",
		Category: "auth",
	}
}

// NewInternalError は内部エラーの汎用レスポンス用エラーを生成する。
// 詳細はログのみに記録する。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "Internal server error",
		Category: "system",
	}
}
