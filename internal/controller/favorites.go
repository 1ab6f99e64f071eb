package controller

import (
	"context"
	"log/slog"
	"sync"

	"github.com/hitoshi/trainboard/internal/model"
)

const (
	msgFavoritesLoginRequired = "Please login to view your favorites"
	msgFavoriteRemoved        = "Removed from favorites!"
)

// FavoritesState はお気に入り画面の状態スナップショット。
type FavoritesState struct {
	SignedIn  bool             `json:"signed_in" yaml:"signed_in"`
	Identity  *model.Identity  `json:"identity,omitempty" yaml:"identity,omitempty"`
	Phase     Phase            `json:"phase" yaml:"phase"`
	Favorites []model.Favorite `json:"favorites" yaml:"favorites"`
	Notice    string           `json:"notice,omitempty" yaml:"notice,omitempty"`
	NoticeErr bool             `json:"notice_error,omitempty" yaml:"notice_error,omitempty"`
}

// Message は未サインイン時に表示する案内を返す。
func (s FavoritesState) Message() string {
	if !s.SignedIn {
		return msgFavoritesLoginRequired
	}
	return ""
}

// FavoritesController はサインイン中のユーザーのお気に入り一覧を管理する。
// サインイン状態の変化に追従し、サインイン時に再読み込み、サインアウト時に一覧を消去する。
type FavoritesController struct {
	session IdentityObservable
	store   FavoriteStore

	mu    sync.Mutex
	state FavoritesState
	seq   requestSeq
	subs  observers[FavoritesState]
}

// NewFavoritesController はFavoritesControllerを生成する。
func NewFavoritesController(session IdentityObservable, store FavoriteStore) *FavoritesController {
	return &FavoritesController{
		session: session,
		store:   store,
		state:   FavoritesState{Phase: PhaseIdle, Favorites: []model.Favorite{}},
	}
}

// Start はサインイン状態の購読を開始し、現在の状態を反映する。返り値で購読を解除する。
func (c *FavoritesController) Start(ctx context.Context) (stop func()) {
	unsubscribe := c.session.Subscribe(func(id *model.Identity) {
		c.onIdentityChange(ctx, id)
	})
	c.onIdentityChange(ctx, c.session.Current())
	return unsubscribe
}

func (c *FavoritesController) onIdentityChange(ctx context.Context, id *model.Identity) {
	if id == nil {
		c.mu.Lock()
		c.seq.next()
		c.state = FavoritesState{Phase: PhaseIdle, Favorites: []model.Favorite{}}
		c.subs.enqueue(c.snapshotLocked())
		c.mu.Unlock()
		c.subs.flush()
		return
	}

	c.mu.Lock()
	c.state.SignedIn = true
	c.state.Identity = id
	c.mu.Unlock()
	c.Load(ctx)
}

// State は現在の状態のコピーを返す。
func (c *FavoritesController) State() FavoritesState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Subscribe は状態変更の通知先を登録する。
func (c *FavoritesController) Subscribe(fn func(FavoritesState)) (unsubscribe func()) {
	return c.subs.subscribe(fn)
}

// Load はお気に入り一覧を読み込む。読み取りの失敗は空一覧として扱われる。
func (c *FavoritesController) Load(ctx context.Context) {
	c.mu.Lock()
	if !c.state.SignedIn {
		c.mu.Unlock()
		return
	}
	token := c.seq.next()
	c.state.Phase = PhaseLoading
	c.subs.enqueue(c.snapshotLocked())
	c.mu.Unlock()
	c.subs.flush()

	favs := c.store.List(ctx)

	c.mu.Lock()
	if !c.seq.isLatest(token) {
		c.mu.Unlock()
		slog.Debug("古いお気に入り一覧を破棄しました", slog.Uint64("token", token))
		return
	}
	c.state.Phase = PhaseSuccess
	c.state.Favorites = favs
	c.subs.enqueue(c.snapshotLocked())
	c.mu.Unlock()
	c.subs.flush()
}

// Remove はお気に入りを削除し、一覧を再読み込みする。削除の確認は描画側で行う。
// 未サインインの場合は何もしない。
func (c *FavoritesController) Remove(ctx context.Context, id string) {
	c.mu.Lock()
	signedIn := c.state.SignedIn
	c.mu.Unlock()
	if !signedIn {
		return
	}

	err := c.store.Remove(ctx, id)

	c.mu.Lock()
	if err != nil {
		c.state.Notice, c.state.NoticeErr = userMessage(err, err.Error()), true
	} else {
		c.state.Notice, c.state.NoticeErr = msgFavoriteRemoved, false
	}
	c.subs.enqueue(c.snapshotLocked())
	c.mu.Unlock()
	c.subs.flush()

	c.Load(ctx)
}

func (c *FavoritesController) snapshotLocked() FavoritesState {
	snap := c.state
	snap.Favorites = append([]model.Favorite(nil), c.state.Favorites...)
	if snap.Favorites == nil {
		snap.Favorites = []model.Favorite{}
	}
	if c.state.Identity != nil {
		id := *c.state.Identity
		snap.Identity = &id
	}
	return snap
}
