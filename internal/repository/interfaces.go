// Package repository はお気に入りデータの永続化インターフェースと実装を提供する。
package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/hitoshi/trainboard/internal/model"
)

var (
	// ErrInvalidKey はユーザーIDまたはお気に入りIDがストアのキーとして使えないことを表す。
	ErrInvalidKey = errors.New("invalid key")
	// ErrPermissionDenied はストアのアクセス規則で操作が拒否されたことを表す。
	ErrPermissionDenied = errors.New("missing or insufficient permissions")
)

// FavoriteRepository はユーザーごとのお気に入りの永続化インターフェース。
// すべての操作はユーザーIDでスコープされ、他ユーザーのデータは参照できない。
type FavoriteRepository interface {
	// Create はお気に入りを作成する。IDと作成日時はストア側で採番し、作成結果を返す。
	Create(ctx context.Context, uid string, fav *model.Favorite) (*model.Favorite, error)

	// ListByUser はユーザーのお気に入りを作成日時の昇順で返す。
	ListByUser(ctx context.Context, uid string) ([]model.Favorite, error)

	// Delete は指定IDのお気に入りを削除する。存在しない場合もエラーにしない。
	Delete(ctx context.Context, uid, id string) error
}

// validateKey はドキュメントパスの区切りを含むキーを拒否する。
func validateKey(key string) error {
	if strings.TrimSpace(key) == "" || strings.Contains(key, "/") {
		return ErrInvalidKey
	}
	return nil
}
