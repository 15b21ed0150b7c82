// Package model はドメインモデルを定義する。
package model

import "time"

// Account は登録済みの利用者（スタッフ）を表す。
// PasswordHashはどのレスポンスにも含めない。
type Account struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
	Mobile       string
	Address      string
	Role         string
	CreatedAt    time.Time
}

// HasPassword はパスワードログイン可能なアカウントかどうかを返す。
// 管理画面から作成されたアカウントはハッシュを持たない。
func (a *Account) HasPassword() bool {
	return a.PasswordHash != ""
}
