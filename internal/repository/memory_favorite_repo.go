package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/trainboard/internal/model"
)

// MemoryFavoriteRepo はプロセス内メモリに保持するお気に入りリポジトリ。
type MemoryFavoriteRepo struct {
	mu    sync.RWMutex
	byUID map[string][]model.Favorite
	now   func() time.Time
}

// NewMemoryFavoriteRepo はMemoryFavoriteRepoを生成する。
func NewMemoryFavoriteRepo() *MemoryFavoriteRepo {
	return &MemoryFavoriteRepo{
		byUID: make(map[string][]model.Favorite),
		now:   time.Now,
	}
}

// Create はお気に入りを追加する。
func (r *MemoryFavoriteRepo) Create(ctx context.Context, uid string, fav *model.Favorite) (*model.Favorite, error) {
	if err := validateKey(uid); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	created := *fav
	created.ID = uuid.NewString()
	created.CreatedAt = r.now().UTC()

	r.mu.Lock()
	r.byUID[uid] = append(r.byUID[uid], created)
	r.mu.Unlock()

	return &created, nil
}

// ListByUser はユーザーのお気に入りを追加順に返す。
func (r *MemoryFavoriteRepo) ListByUser(ctx context.Context, uid string) ([]model.Favorite, error) {
	if err := validateKey(uid); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	favs := make([]model.Favorite, len(r.byUID[uid]))
	copy(favs, r.byUID[uid])
	return favs, nil
}

// Delete はお気に入りを削除する。
func (r *MemoryFavoriteRepo) Delete(ctx context.Context, uid, id string) error {
	if err := validateKey(uid); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	favs := r.byUID[uid]
	for i, f := range favs {
		if f.ID == id {
			r.byUID[uid] = append(favs[:i:i], favs[i+1:]...)
			return nil
		}
	}
	return nil
}

// compile-time interface check
var _ FavoriteRepository = (*MemoryFavoriteRepo)(nil)
