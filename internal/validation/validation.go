// Package validation はリクエストペイロードの入力検証を提供する。
// 検証はサービス層から独立しており、ハンドラーがサービス呼び出し前に実行する。
package validation

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// MaxPasswordBytes はbcryptが受け付けるパスワードの最大バイト数。
const MaxPasswordBytes = 72

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// maxはルーン数で数えるため、バイト長の上限は独自タグで検証する
	if err := v.RegisterValidation("maxbytes", maxBytes); err != nil {
		panic(err)
	}
	return v
}

func maxBytes(fl validator.FieldLevel) bool {
	limit, err := strconv.Atoi(fl.Param())
	if err != nil {
		return false
	}
	return len(fl.Field().String()) <= limit
}

// Registration は登録リクエストの検証対象。
// フィールドの並び順がエラー報告の優先順になる。
type Registration struct {
	FirstName string `validate:"required,min=6,alpha"`
	LastName  string `validate:"required"`
	Password  string `validate:"min=6,maxbytes=72"`
	Email     string `validate:"required,email"`
	Mobile    string `validate:"required,len=10,number"`
	Address   string `validate:"required"`
}

// Login はログインリクエストの検証対象。
type Login struct {
	Email    string `validate:"required"`
	Password string `validate:"required"`
}

// Product は商品登録リクエストの検証対象。
type Product struct {
	Name  string  `validate:"required,max=255"`
	SKU   string  `validate:"required,max=64"`
	Price float64 `validate:"gte=0"`
	Stock int     `validate:"gte=0"`
}

// Sale は販売登録リクエストの検証対象。
type Sale struct {
	ProductID   int64   `validate:"gt=0"`
	Quantity    int     `validate:"gt=0"`
	TotalAmount float64 `validate:"gte=0"`
}

// User は管理画面からのユーザー作成リクエストの検証対象。
type User struct {
	Name  string `validate:"required,max=255"`
	Email string `validate:"required,email"`
	Role  string `validate:"omitempty,max=32"`
}

// messages はフィールドとタグの組み合わせごとの表示メッセージ。
// 該当なしの場合はフィールド単位のメッセージにフォールバックする。
var messages = map[string]string{
	"FirstName":         "First name must be at least 6 characters.",
	"FirstName.alpha":   "First name must contain letters only.",
	"LastName":          "Last name is required.",
	"Password":          "Password must be at least 6 characters.",
	"Password.required": "Password is required.",
	"Password.maxbytes": "Password must be at most 72 bytes.",
	"Email":             "Enter a valid email (name@domain.com).",
	"Mobile":            "Mobile number must be exactly 10 digits.",
	"Address":           "Address is required.",
	"Name":              "Name is required.",
	"SKU":               "SKU is required.",
	"Price":             "Price must not be negative.",
	"Stock":             "Stock must not be negative.",
	"ProductID":         "Product is required.",
	"Quantity":          "Quantity must be at least 1.",
	"TotalAmount":       "Total amount must not be negative.",
	"Role":              "Role is too long.",
}

// Struct はvを検証し、最初に失敗したフィールドのメッセージをエラーとして返す。
// 問題がなければnilを返す。
func Struct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("validation failed: %w", err)
	}

	return errors.New(messageFor(verrs[0]))
}

func messageFor(fe validator.FieldError) string {
	if msg, ok := messages[fe.Field()+"."+fe.Tag()]; ok {
		return msg
	}
	if msg, ok := messages[fe.Field()]; ok {
		return msg
	}
	return fmt.Sprintf("%s is invalid.", fe.Field())
}

// Normalize は前後の空白を除去する。
// パスワード以外の文字列フィールドは検証前に正規化する。
func (r Registration) Normalize() Registration {
	return Registration{
		FirstName: strings.TrimSpace(r.FirstName),
		LastName:  strings.TrimSpace(r.LastName),
		Password:  r.Password,
		Email:     strings.TrimSpace(r.Email),
		Mobile:    strings.TrimSpace(r.Mobile),
		Address:   strings.TrimSpace(r.Address),
	}
}
