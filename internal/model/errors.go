// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は利用者に提示するエラーの統一フォーマットを表す。
// 画面に表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ（そのまま表示される）
	Category string // カテゴリ: auth, validation, service, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
// 画面にはMessageのみを表示するため、コードは含めない。
func (e *APIError) Error() string {
	return e.Message
}

// 定義済みエラーコード
const (
	ErrCodeValidation     = "VALIDATION"
	ErrCodeLoginRequired  = "LOGIN_REQUIRED"
	ErrCodeLoginFailed    = "LOGIN_FAILED"
	ErrCodeLogoutFailed   = "LOGOUT_FAILED"
	ErrCodeAuthFailed     = "AUTH_FAILED"
	ErrCodeFavoriteAdd    = "FAVORITE_ADD_FAILED"
	ErrCodeFavoriteRemove = "FAVORITE_REMOVE_FAILED"
	ErrCodeFavoriteLoad   = "FAVORITE_LOAD_FAILED"
	ErrCodeServiceError   = "SERVICE_ERROR"
	ErrCodeFetchFailed    = "FETCH_FAILED"
)

// NewValidationError は入力検証エラーを生成する。ネットワーク呼び出し前に返される。
func NewValidationError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  message,
		Category: "validation",
		Action:   "Check the input and submit again.",
	}
}

// NewLoginRequiredError は未ログイン時の操作エラーを生成する。
func NewLoginRequiredError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeLoginRequired,
		Message:  message,
		Category: "auth",
		Action:   "Login with Google or email first.",
	}
}

// NewLoginFailedError はGoogleログイン失敗エラーを生成する。
func NewLoginFailedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeLoginFailed,
		Message:  fmt.Sprintf("Login failed: %s", reason),
		Category: "auth",
		Action:   "Try logging in again.",
	}
}

// NewAuthFailedError はメール/パスワード認証の失敗エラーを生成する。
func NewAuthFailedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeAuthFailed,
		Message:  fmt.Sprintf("Authentication failed: %s", reason),
		Category: "auth",
		Action:   "Check the email address and password.",
	}
}

// NewLogoutFailedError はログアウト失敗エラーを生成する。
func NewLogoutFailedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeLogoutFailed,
		Message:  fmt.Sprintf("Logout failed: %s", reason),
		Category: "auth",
		Action:   "The local session was cleared. Try again if the provider session remains.",
	}
}

// NewFavoriteAddError はお気に入り追加失敗エラーを生成する。
func NewFavoriteAddError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeFavoriteAdd,
		Message:  fmt.Sprintf("Failed to add favorite: %s", reason),
		Category: "service",
		Action:   "Wait a moment and try again.",
	}
}

// NewFavoriteRemoveError はお気に入り削除失敗エラーを生成する。
func NewFavoriteRemoveError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeFavoriteRemove,
		Message:  fmt.Sprintf("Failed to remove favorite: %s", reason),
		Category: "service",
		Action:   "Wait a moment and try again.",
	}
}

// NewServiceError はバックエンドが返したエラーペイロードをそのまま表すエラーを生成する。
func NewServiceError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeServiceError,
		Message:  message,
		Category: "service",
		Action:   "Check the query and try again.",
	}
}

// NewFetchFailedError は通信失敗を一般化したエラーを生成する。
// タイムアウト、4xx、5xxは区別しない。
func NewFetchFailedError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeFetchFailed,
		Message:  message,
		Category: "system",
		Action:   "Check the connection and try again later.",
	}
}
