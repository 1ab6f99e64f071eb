// Package middleware は列車情報スタブサーバーのHTTPミドルウェアを提供する。
package middleware

import (
	"encoding/json"
	"net/http"
)

// ErrorResponseBody はバックエンドのエラーペイロード形式。
// クライアントはerrorフィールドの有無でアプリケーションエラーを判定する。
type ErrorResponseBody struct {
	Error string `json:"error"`
}

// WriteErrorResponse はエラーペイロードを書き込む。
func WriteErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponseBody{Error: message})
}

// WriteInternalServerError は内部エラーの応答を書き込む。詳細はログのみに記録する。
func WriteInternalServerError(w http.ResponseWriter) {
	WriteErrorResponse(w, http.StatusInternalServerError, "Internal server error")
}
