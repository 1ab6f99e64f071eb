// Package controller は各画面（検索、PNR照会、運行状況、お気に入り）の入力・通信・結果状態を管理する。
// コントローラーは描画を行わず、状態のスナップショットと変更通知だけを公開する。
package controller

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/hitoshi/trainboard/internal/model"
	"github.com/hitoshi/trainboard/internal/trainapi"
)

// Phase は照会の進行状態を表す。
type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseLoading Phase = "loading"
	PhaseSuccess Phase = "success"
	PhaseError   Phase = "error"
)

// TrainSearcher は列車検索を行う。
type TrainSearcher interface {
	SearchTrains(ctx context.Context, from, to string) ([]model.TrainSummary, error)
}

// PNRChecker はPNR照会を行う。
type PNRChecker interface {
	GetPNRStatus(ctx context.Context, pnr string) (*model.PNRStatus, error)
}

// LiveStatusChecker は運行状況の照会を行う。
type LiveStatusChecker interface {
	GetLiveStatus(ctx context.Context, trainNumber string) (*model.LiveStatus, error)
}

// FavoriteAdder はお気に入りの追加を行う。
type FavoriteAdder interface {
	Add(ctx context.Context, train model.TrainSummary) error
}

// FavoriteStore はお気に入りの一覧と削除を行う。
type FavoriteStore interface {
	List(ctx context.Context) []model.Favorite
	Remove(ctx context.Context, id string) error
}

// IdentityObservable はサインイン状態の参照と変更通知を提供する。
type IdentityObservable interface {
	Current() *model.Identity
	Subscribe(fn func(*model.Identity)) (unsubscribe func())
}

// requestSeq はコントローラーごとの単調増加するリクエストトークン。
// 最新のトークン以外の応答は破棄する。呼び出し側のロック下で使う。
type requestSeq struct {
	latest uint64
}

func (s *requestSeq) next() uint64 {
	s.latest++
	return s.latest
}

func (s *requestSeq) isLatest(token uint64) bool {
	return token == s.latest
}

// observers は状態スナップショットの購読者を登録順に保持する。
// スナップショットは予約された順に、1つずつ配送される。
type observers[S any] struct {
	mu       sync.Mutex
	nextID   int
	fns      map[int]func(S)
	pending  []S
	draining bool
}

func (o *observers[S]) subscribe(fn func(S)) func() {
	o.mu.Lock()
	if o.fns == nil {
		o.fns = make(map[int]func(S))
	}
	id := o.nextID
	o.nextID++
	o.fns[id] = fn
	o.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			o.mu.Lock()
			delete(o.fns, id)
			o.mu.Unlock()
		})
	}
}

// enqueue は配送を予約する。コントローラーの状態ロック下で呼ぶと、
// ロックを取得した順に配送される。
func (o *observers[S]) enqueue(state S) {
	o.mu.Lock()
	o.pending = append(o.pending, state)
	o.mu.Unlock()
}

// flush は予約済みのスナップショットを配送する。
// 別の呼び出しが配送中の場合はそちらに任せてすぐに戻る。
func (o *observers[S]) flush() {
	o.mu.Lock()
	if o.draining {
		o.mu.Unlock()
		return
	}
	o.draining = true
	for len(o.pending) > 0 {
		state := o.pending[0]
		var zero S
		o.pending[0] = zero
		o.pending = o.pending[1:]
		fns := o.sortedLocked()
		o.mu.Unlock()

		for _, fn := range fns {
			fn(state)
		}
		o.mu.Lock()
	}
	o.pending = nil
	o.draining = false
	o.mu.Unlock()
}

func (o *observers[S]) notify(state S) {
	o.enqueue(state)
	o.flush()
}

func (o *observers[S]) sortedLocked() []func(S) {
	ids := make([]int, 0, len(o.fns))
	for id := range o.fns {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(S), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, o.fns[id])
	}
	return fns
}

// userMessage は照会の失敗を利用者向けメッセージに変換する。
// エラーペイロードはそのまま、通信失敗は汎用メッセージになる。
func userMessage(err error, fallback string) string {
	var svcErr *trainapi.ServiceError
	if errors.As(err, &svcErr) {
		return svcErr.Message
	}
	var fetchErr *trainapi.FetchError
	if errors.As(err, &fetchErr) {
		return fetchErr.Message
	}
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return fallback
}
