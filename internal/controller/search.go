package controller

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/hitoshi/trainboard/internal/model"
)

const (
	msgSearchInputRequired = "Please enter both from and to stations"
	msgSearchFailed        = "Failed to search trains"
	msgFavoriteAdded       = "Train added to favorites!"
	msgAddLoginRequired    = "Please login to add favorites"
)

// SearchState は検索画面の状態スナップショット。
type SearchState struct {
	From   string               `json:"from" yaml:"from"`
	To     string               `json:"to" yaml:"to"`
	Phase  Phase                `json:"phase" yaml:"phase"`
	Trains []model.TrainSummary `json:"trains" yaml:"trains"`
	Error  string               `json:"error,omitempty" yaml:"error,omitempty"`

	// Notice はお気に入り追加の結果メッセージ。NoticeErrは失敗を表す。
	Notice    string `json:"notice,omitempty" yaml:"notice,omitempty"`
	NoticeErr bool   `json:"notice_error,omitempty" yaml:"notice_error,omitempty"`
}

// SearchController は出発駅・到着駅による列車検索を管理する。
type SearchController struct {
	client    TrainSearcher
	favorites FavoriteAdder

	mu    sync.Mutex
	state SearchState
	seq   requestSeq
	subs  observers[SearchState]
}

// NewSearchController はSearchControllerを生成する。
func NewSearchController(client TrainSearcher, favorites FavoriteAdder) *SearchController {
	return &SearchController{
		client:    client,
		favorites: favorites,
		state:     SearchState{Phase: PhaseIdle, Trains: []model.TrainSummary{}},
	}
}

// State は現在の状態のコピーを返す。
func (c *SearchController) State() SearchState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Subscribe は状態変更の通知先を登録する。
func (c *SearchController) Subscribe(fn func(SearchState)) (unsubscribe func()) {
	return c.subs.subscribe(fn)
}

// SetFrom は出発駅を設定する。
func (c *SearchController) SetFrom(from string) {
	c.update(func(s *SearchState) { s.From = from })
}

// SetTo は到着駅を設定する。
func (c *SearchController) SetTo(to string) {
	c.update(func(s *SearchState) { s.To = to })
}

// Swap は出発駅と到着駅を入れ替える。2回適用すると元に戻る。
func (c *SearchController) Swap() {
	c.update(func(s *SearchState) { s.From, s.To = s.To, s.From })
}

// Submit は入力を検証して検索を実行する。
// 前回の結果とエラーは通信前に消去され、古いリクエストの応答は破棄される。
func (c *SearchController) Submit(ctx context.Context) {
	c.mu.Lock()
	token := c.seq.next()
	from, to := c.state.From, c.state.To
	if strings.TrimSpace(from) == "" || strings.TrimSpace(to) == "" {
		c.state.Phase = PhaseError
		c.state.Error = msgSearchInputRequired
		c.state.Trains = []model.TrainSummary{}
		c.subs.enqueue(c.snapshotLocked())
		c.mu.Unlock()
		c.subs.flush()
		return
	}
	c.state.Phase = PhaseLoading
	c.state.Error = ""
	c.state.Trains = []model.TrainSummary{}
	c.state.Notice, c.state.NoticeErr = "", false
	c.subs.enqueue(c.snapshotLocked())
	c.mu.Unlock()
	c.subs.flush()

	trains, err := c.client.SearchTrains(ctx, from, to)

	c.mu.Lock()
	if !c.seq.isLatest(token) {
		c.mu.Unlock()
		slog.Debug("古い検索結果を破棄しました", slog.Uint64("token", token))
		return
	}
	if err != nil {
		c.state.Phase = PhaseError
		c.state.Error = userMessage(err, msgSearchFailed)
	} else {
		if trains == nil {
			trains = []model.TrainSummary{}
		}
		c.state.Phase = PhaseSuccess
		c.state.Trains = trains
	}
	c.subs.enqueue(c.snapshotLocked())
	c.mu.Unlock()
	c.subs.flush()
}

// AddToFavorites は検索結果の列車をお気に入りに追加し、結果をNoticeに記録する。
// お気に入りの追加先なしで生成された場合は未サインインとして扱う。
func (c *SearchController) AddToFavorites(ctx context.Context, train model.TrainSummary) {
	if c.favorites == nil {
		c.update(func(s *SearchState) { s.Notice, s.NoticeErr = msgAddLoginRequired, true })
		return
	}
	err := c.favorites.Add(ctx, train)
	c.update(func(s *SearchState) {
		if err != nil {
			s.Notice, s.NoticeErr = userMessage(err, err.Error()), true
			return
		}
		s.Notice, s.NoticeErr = msgFavoriteAdded, false
	})
}

func (c *SearchController) update(fn func(*SearchState)) {
	c.mu.Lock()
	fn(&c.state)
	c.subs.enqueue(c.snapshotLocked())
	c.mu.Unlock()
	c.subs.flush()
}

func (c *SearchController) snapshotLocked() SearchState {
	snap := c.state
	snap.Trains = append([]model.TrainSummary(nil), c.state.Trains...)
	if snap.Trains == nil {
		snap.Trains = []model.TrainSummary{}
	}
	return snap
}
