package controller

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/hitoshi/trainboard/internal/model"
)

const (
	msgTrainNumberRequired = "Please enter train number"
	msgLiveStatusFailed    = "Failed to get live status"
)

// LiveStatusState は運行状況画面の状態スナップショット。
type LiveStatusState struct {
	TrainNumber string            `json:"train_number" yaml:"train_number"`
	Phase       Phase             `json:"phase" yaml:"phase"`
	Result      *model.LiveStatus `json:"result,omitempty" yaml:"result,omitempty"`
	Error       string            `json:"error,omitempty" yaml:"error,omitempty"`
}

// StatusClass は運行状況の表示クラスを返す。結果がない場合は空文字。
func (s LiveStatusState) StatusClass() string {
	if s.Result == nil {
		return ""
	}
	return LiveStatusClass(s.Result.Status)
}

// LiveStatusController は列車番号による運行状況の照会を管理する。
type LiveStatusController struct {
	client LiveStatusChecker

	mu    sync.Mutex
	state LiveStatusState
	seq   requestSeq
	subs  observers[LiveStatusState]
}

// NewLiveStatusController はLiveStatusControllerを生成する。
func NewLiveStatusController(client LiveStatusChecker) *LiveStatusController {
	return &LiveStatusController{
		client: client,
		state:  LiveStatusState{Phase: PhaseIdle},
	}
}

// State は現在の状態のコピーを返す。
func (c *LiveStatusController) State() LiveStatusState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Subscribe は状態変更の通知先を登録する。
func (c *LiveStatusController) Subscribe(fn func(LiveStatusState)) (unsubscribe func()) {
	return c.subs.subscribe(fn)
}

// SetTrainNumber は列車番号を設定する。
func (c *LiveStatusController) SetTrainNumber(trainNumber string) {
	c.mu.Lock()
	c.state.TrainNumber = trainNumber
	c.subs.enqueue(c.snapshotLocked())
	c.mu.Unlock()
	c.subs.flush()
}

// Submit は入力を検証して運行状況の照会を実行する。
func (c *LiveStatusController) Submit(ctx context.Context) {
	c.mu.Lock()
	token := c.seq.next()
	trainNumber := c.state.TrainNumber
	if strings.TrimSpace(trainNumber) == "" {
		c.state.Phase = PhaseError
		c.state.Error = msgTrainNumberRequired
		c.state.Result = nil
		c.subs.enqueue(c.snapshotLocked())
		c.mu.Unlock()
		c.subs.flush()
		return
	}
	c.state.Phase = PhaseLoading
	c.state.Error = ""
	c.state.Result = nil
	c.subs.enqueue(c.snapshotLocked())
	c.mu.Unlock()
	c.subs.flush()

	result, err := c.client.GetLiveStatus(ctx, trainNumber)

	c.mu.Lock()
	if !c.seq.isLatest(token) {
		c.mu.Unlock()
		slog.Debug("古い運行状況を破棄しました", slog.Uint64("token", token))
		return
	}
	if err != nil {
		c.state.Phase = PhaseError
		c.state.Error = userMessage(err, msgLiveStatusFailed)
	} else {
		c.state.Phase = PhaseSuccess
		c.state.Result = result
	}
	c.subs.enqueue(c.snapshotLocked())
	c.mu.Unlock()
	c.subs.flush()
}

func (c *LiveStatusController) snapshotLocked() LiveStatusState {
	snap := c.state
	if c.state.Result != nil {
		r := *c.state.Result
		snap.Result = &r
	}
	return snap
}
