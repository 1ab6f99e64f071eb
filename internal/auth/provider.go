// Package auth は外部認証プロバイダー（Firebase Authentication、Googleサインイン）との連携を提供する。
// アカウントの生成・破棄はプロバイダー側で行われ、このパッケージは資格情報の取得と保存のみを担う。
package auth

import (
	"context"
	"errors"

	"github.com/hitoshi/trainboard/internal/model"
)

// プロバイダーが返す代表的な失敗。ProviderErrorからerrors.Isで判定できる。
var (
	ErrAccountNotFound    = errors.New("account not found")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailExists        = errors.New("email already in use")
	ErrTokenExpired       = errors.New("session expired, please login again")
)

// Provider は認証プロバイダーの操作を抽象化する。
type Provider interface {
	// SignInWithPassword は既存アカウントにメール/パスワードでサインインする。
	SignInWithPassword(ctx context.Context, email, password string) (*model.Credential, error)
	// SignUpWithPassword はメール/パスワードで新規アカウントを作成し、サインインする。
	SignUpWithPassword(ctx context.Context, email, password string) (*model.Credential, error)
	// SignInWithGoogleIDToken はGoogleのIDトークンでサインインする。
	SignInWithGoogleIDToken(ctx context.Context, idToken string) (*model.Credential, error)
	// Refresh は期限切れの資格情報をリフレッシュトークンで更新する。
	Refresh(ctx context.Context, cred *model.Credential) (*model.Credential, error)
	// SignOut はプロバイダー側のセッションを終了する。
	SignOut(ctx context.Context, cred *model.Credential) error
}

// ProviderError はプロバイダーが返したエラーコードを保持する。
// 既知のコードは対応するセンチネルエラーにUnwrapされる。
type ProviderError struct {
	Code    string // 例: EMAIL_NOT_FOUND
	Message string // プロバイダーが返した詳細
	Err     error
}

// Error はerrorインターフェースを実装する。
func (e *ProviderError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Message != "" {
		return e.Message
	}
	return e.Code
}

// Unwrap は対応するセンチネルエラーを返す。
func (e *ProviderError) Unwrap() error {
	return e.Err
}
