// Package model はドメインモデルを定義する。
package model

import "time"

// Identity は外部認証プロバイダーが管理するユーザー情報を表す。
// 生成・破棄はプロバイダー側で行われ、アプリケーションは状態遷移を観測するだけである。
type Identity struct {
	UID         string `json:"uid" yaml:"uid"`
	DisplayName string `json:"display_name,omitempty" yaml:"display_name,omitempty"`
	Email       string `json:"email,omitempty" yaml:"email,omitempty"`
	Provider    string `json:"provider,omitempty" yaml:"provider,omitempty"` // "password", "google.com"
}

// Greeting は表示用のユーザー名を返す。表示名が空の場合はメールアドレスを使う。
func (i *Identity) Greeting() string {
	if i.DisplayName != "" {
		return i.DisplayName
	}
	return i.Email
}

// Credential は認証プロバイダーから払い出された資格情報を表す。
// 次回起動時のIdentity解決のためにローカルへ保存される。
type Credential struct {
	Identity     Identity  `json:"identity"`
	IDToken      string    `json:"id_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Expired はIDトークンの有効期限が切れているかを返す。
// 期限直前の失効を避けるため、1分の余裕を持たせる。
func (c *Credential) Expired(now time.Time) bool {
	return !now.Add(time.Minute).Before(c.ExpiresAt)
}
